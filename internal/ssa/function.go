package ssa

import (
	"fmt"

	"triadc/internal/ast"
	"triadc/internal/rename"
	"triadc/internal/symboltable"
)

// TransformedFunction bundles a function's SSA-rewritten body and optional
// finalize block together with the accumulators the flatten pass folds
// into terminal Return/Finalize statements.
type TransformedFunction struct {
	Body        *ast.Block
	BodyReturns []Guarded

	// FinalizeCalls holds every finalize(...) invocation consumed out of
	// Body, one slice per argument position (nil if the function never
	// calls finalize).
	FinalizeCalls [][]Guarded

	// Finalize and FinalizeReturns are nil unless fn carries a finalize
	// block of its own.
	Finalize        *ast.Block
	FinalizeReturns []Guarded

	// Assigner is the unique-name generator shared by both stages above.
	// The flatten pass reuses it so its own fold-ternary names stay
	// unique within the function too (spec.md §4.2, §9).
	Assigner *rename.Assigner
}

// TransformFunction runs the SSA pass over a function's body and, if
// present, its finalize block. Both share one *rename.Assigner so that
// every name introduced across the two stays unique within the function
// (spec.md §4.2), even though each has its own independent rename-table
// scope — a finalize block does not see the body's local bindings.
func TransformFunction(fn *ast.Function, symtab *symboltable.Table) (*TransformedFunction, error) {
	gen := rename.NewAssigner()

	bodyT := NewTransformer(symtab, gen)
	bodyT.SeedParams(fn.Inputs)
	body, err := bodyT.TransformBlock(fn.Body)
	if err != nil {
		return nil, fmt.Errorf("ssa: function %q: %w", fn.Name, err)
	}

	result := &TransformedFunction{
		Body:          body,
		BodyReturns:   bodyT.Returns,
		FinalizeCalls: bodyT.Finalizes,
		Assigner:      gen,
	}

	if fn.Finalize != nil {
		finT := NewTransformer(symtab, gen)
		finT.SeedParams(fn.Finalize.Inputs)
		finBlock, err := finT.TransformBlock(fn.Finalize.Body)
		if err != nil {
			return nil, fmt.Errorf("ssa: function %q finalize block: %w", fn.Name, err)
		}
		result.Finalize = finBlock
		result.FinalizeReturns = finT.Returns
	}

	return result, nil
}
