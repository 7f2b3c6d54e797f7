package flatten_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triadc/internal/ast"
	"triadc/internal/flatten"
	"triadc/internal/rename"
	"triadc/internal/ssa"
)

func ident(name string) *ast.Identifier { return &ast.Identifier{Name: name} }

func TestFoldSinglePairReturnsItsValueUnguarded(t *testing.T) {
	gen := rename.NewAssigner()
	var block []ast.Stmt

	value, err := flatten.Fold([]ssa.Guarded{{Guard: nil, Value: ident("v")}}, rename.PrefixReturn, gen, &block)

	require.NoError(t, err)
	assert.Equal(t, "v", value.(*ast.Identifier).Name)
	assert.Empty(t, block, "a single-pair fold needs no intermediate ternary")
}

func TestFoldMultiplePairsFoldsRightToLeft(t *testing.T) {
	gen := rename.NewAssigner()
	var block []ast.Stmt

	pairs := []ssa.Guarded{
		{Guard: ident("g1"), Value: ident("v1")},
		{Guard: ident("g2"), Value: ident("v2")},
		{Guard: ident("g3"), Value: ident("v3")}, // last guard ignored
	}

	value, err := flatten.Fold(pairs, rename.PrefixReturn, gen, &block)
	require.NoError(t, err)

	require.Len(t, block, 2)

	first := block[0].(*ast.Assign)
	firstTernary := first.Value.(*ast.Ternary)
	assert.Equal(t, "g2", firstTernary.Cond.(*ast.Identifier).Name)
	assert.Equal(t, "v2", firstTernary.IfTrue.(*ast.Identifier).Name)
	assert.Equal(t, "v3", firstTernary.IfFalse.(*ast.Identifier).Name)

	second := block[1].(*ast.Assign)
	secondTernary := second.Value.(*ast.Ternary)
	assert.Equal(t, "g1", secondTernary.Cond.(*ast.Identifier).Name)
	assert.Equal(t, "v1", secondTernary.IfTrue.(*ast.Identifier).Name)
	assert.Equal(t, first.Place.(*ast.Identifier).Name, secondTernary.IfFalse.(*ast.Identifier).Name)

	assert.Equal(t, second.Place.(*ast.Identifier).Name, value.(*ast.Identifier).Name)
}

func TestFoldEmptyListErrors(t *testing.T) {
	gen := rename.NewAssigner()
	var block []ast.Stmt
	_, err := flatten.Fold(nil, rename.PrefixReturn, gen, &block)
	assert.Error(t, err)
}

func TestFunctionEndsWithAtMostOneReturnAndOneFinalize(t *testing.T) {
	result := &ssa.TransformedFunction{
		Assigner: rename.NewAssigner(),
		Body:     &ast.Block{Statements: []ast.Stmt{&ast.Assign{Place: ident("x"), Value: &ast.Literal{Value: "1u8"}}}},
		BodyReturns: []ssa.Guarded{
			{Guard: ident("cond0"), Value: ident("r1")},
			{Guard: ident("cond1"), Value: ident("r2")},
			{Guard: nil, Value: ident("r3")},
		},
		FinalizeCalls: [][]ssa.Guarded{
			{{Guard: ident("cond0"), Value: ident("a0")}, {Guard: nil, Value: ident("a1")}},
		},
	}

	body, finalizeBlock, err := flatten.Function(result)
	require.NoError(t, err)
	assert.Nil(t, finalizeBlock)

	var returnCount, finalizeCount int
	for i, s := range body.Statements {
		switch v := s.(type) {
		case *ast.Return:
			returnCount++
			assert.Equal(t, len(body.Statements)-2, i, "Return must be the second-to-last statement (Finalize follows it)")
			_ = v
		case *ast.Finalize:
			finalizeCount++
			assert.Equal(t, len(body.Statements)-1, i, "Finalize must be the last statement")
			assert.Len(t, v.Args, 1)
		}
	}
	assert.Equal(t, 1, returnCount)
	assert.Equal(t, 1, finalizeCount)
}

func TestFinalizeBlockFoldedIndependentlyOfBody(t *testing.T) {
	result := &ssa.TransformedFunction{
		Assigner: rename.NewAssigner(),
		Body:     &ast.Block{},
		BodyReturns: []ssa.Guarded{
			{Guard: nil, Value: ident("bodyval")},
		},
		Finalize: &ast.Block{},
		FinalizeReturns: []ssa.Guarded{
			{Guard: nil, Value: ident("finval")},
		},
	}

	body, finalizeBlock, err := flatten.Function(result)
	require.NoError(t, err)

	require.Len(t, finalizeBlock.Statements, 1)
	ret, ok := finalizeBlock.Statements[0].(*ast.Return)
	require.True(t, ok)
	assert.Equal(t, "finval", ret.Value.(*ast.Identifier).Name)

	require.Len(t, body.Statements, 1)
	bodyRet, ok := body.Statements[0].(*ast.Return)
	require.True(t, ok)
	assert.Equal(t, "bodyval", bodyRet.Value.(*ast.Identifier).Name)
}
