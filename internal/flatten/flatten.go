// Package flatten implements the second pass of the pipeline: it drains
// the early-return and early-finalize accumulators the SSA pass built up
// and folds each into a single terminal statement per block, guarded by
// the path conditions already materialized during SSA (spec.md §4.4).
package flatten

import (
	"fmt"

	"triadc/internal/ast"
	"triadc/internal/rename"
	"triadc/internal/ssa"
)

// Fold applies the guard-folding rule of spec.md §4.4 to a non-empty list
// of (guard, value) pairs and appends the materialized intermediate
// ternary assignments to block's statement list. prefix names the fresh
// bindings created along the way ("ret" for returns, "fin$<i>" for
// finalize argument position i — see rename.PrefixReturn/FinalizePrefix).
// It returns the final atomic value, or an error if pairs is empty.
func Fold(pairs []ssa.Guarded, prefix string, gen *rename.Assigner, block *[]ast.Stmt) (ast.Expr, error) {
	if len(pairs) == 0 {
		return nil, fmt.Errorf("flatten: cannot fold an empty guard list")
	}

	n := len(pairs)
	// The last pair's guard is ignored: its value is the else-of-last-resort.
	acc := pairs[n-1].Value
	for i := n - 2; i >= 0; i-- {
		pair := pairs[i]
		name := gen.Fresh(prefix)
		ident := &ast.Identifier{Name: name}
		*block = append(*block, &ast.Assign{
			Place: ident,
			Value: &ast.Ternary{Cond: pair.Guard, IfTrue: pair.Value, IfFalse: acc},
		})
		acc = ident
	}
	return acc, nil
}

// Function folds one function's SSA-transformed body and optional
// finalize block into their final straight-line form, each ending with at
// most one terminal Return and at most one terminal Finalize (spec.md §3
// "at most one terminal Return... at most one terminal Finalize").
//
// The finalize block is folded before the function body, mirroring the
// original compiler's ordering: the finalize block never depends on the
// function body's locals, so there is no correctness reason to fold them
// in the other order, and doing the smaller block first keeps the larger
// body's fold last (SPEC_FULL.md §4 item 3).
func Function(result *ssa.TransformedFunction) (*ast.Block, *ast.Block, error) {
	gen := result.Assigner
	var finalizeBlock *ast.Block
	if result.Finalize != nil {
		fb, err := foldBlock(result.Finalize, result.FinalizeReturns, nil, gen)
		if err != nil {
			return nil, nil, fmt.Errorf("flatten: finalize block: %w", err)
		}
		finalizeBlock = fb
	}

	body, err := foldBlock(result.Body, result.BodyReturns, result.FinalizeCalls, gen)
	if err != nil {
		return nil, nil, fmt.Errorf("flatten: function body: %w", err)
	}

	return body, finalizeBlock, nil
}

// foldBlock appends block's statements, the folded return, and the folded
// finalize invocation (if any) into one flat, terminal-appended block.
func foldBlock(block *ast.Block, returns []ssa.Guarded, finalizes [][]ssa.Guarded, gen *rename.Assigner) (*ast.Block, error) {
	stmts := append([]ast.Stmt(nil), block.Statements...)

	// Materialize every fold's intermediate ternary assignments first, and
	// only append the terminal Return/Finalize statements afterward — both
	// must end up after every other statement in the block, so neither can
	// be appended before the other fold has finished emitting its own
	// ternary chain (spec.md §4.4).
	var returnValue ast.Expr
	if len(returns) > 0 {
		v, err := Fold(returns, rename.PrefixReturn, gen, &stmts)
		if err != nil {
			return nil, err
		}
		returnValue = v
	}

	var finalizeArgs []ast.Expr
	if len(finalizes) > 0 {
		finalizeArgs = make([]ast.Expr, len(finalizes))
		for i, pairs := range finalizes {
			if len(pairs) == 0 {
				return nil, fmt.Errorf("flatten: finalize argument position %d has no recorded value", i)
			}
			v, err := Fold(pairs, rename.FinalizePrefix(i), gen, &stmts)
			if err != nil {
				return nil, err
			}
			finalizeArgs[i] = v
		}
	}

	if returnValue != nil || len(returns) > 0 {
		stmts = append(stmts, &ast.Return{Value: returnValue})
	}
	if finalizeArgs != nil {
		stmts = append(stmts, &ast.Finalize{Args: finalizeArgs})
	}

	return &ast.Block{Pos: block.Pos, Statements: stmts}, nil
}
