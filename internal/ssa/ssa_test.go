package ssa_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triadc/internal/ast"
	"triadc/internal/ssa"
	"triadc/internal/symboltable"
)

func u8() *ast.Type { return ast.PrimitiveType(ast.KindU8) }
func boolT() *ast.Type { return ast.PrimitiveType(ast.KindBool) }

func ident(name string) *ast.Identifier { return &ast.Identifier{Name: name} }
func lit(typ *ast.Type, value string) *ast.Literal { return &ast.Literal{Type: typ, Value: value} }

func assignStmt(name string, value ast.Expr) *ast.Assign {
	return &ast.Assign{Place: ident(name), Value: value}
}

// assignsIn collects every *ast.Assign in block.Statements, in order,
// skipping any other statement kind.
func assignsIn(block *ast.Block) []*ast.Assign {
	var out []*ast.Assign
	for _, s := range block.Statements {
		if a, ok := s.(*ast.Assign); ok {
			out = append(out, a)
		}
	}
	return out
}

func TestCompoundAssignLowersToSingleInstruction(t *testing.T) {
	fn := &ast.Function{
		Name: "bump",
		Inputs: []*ast.Param{
			{Name: "v", Type: u8()},
		},
		Output: u8(),
		Body: &ast.Block{Statements: []ast.Stmt{
			&ast.CompoundAssign{Place: ident("v"), Op: ast.CompoundAdd, Value: lit(u8(), "1u8")},
			&ast.Return{Value: ident("v")},
		}},
	}

	result, err := ssa.TransformFunction(fn, symboltable.New())
	require.NoError(t, err)

	assigns := assignsIn(result.Body)
	require.Len(t, assigns, 1)

	bin, ok := assigns[0].Value.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, "+", bin.Op)
	assert.Equal(t, "v", bin.Left.(*ast.Identifier).Name)
	assert.Equal(t, "1u8", bin.Right.(*ast.Literal).Value)

	require.Len(t, result.BodyReturns, 1)
	assert.Equal(t, assigns[0].Place.(*ast.Identifier).Name, result.BodyReturns[0].Value.(*ast.Identifier).Name)
	assert.Nil(t, result.BodyReturns[0].Guard)
}

func TestConditionalFlattensToMergeTernaryAndEarlyReturn(t *testing.T) {
	// if (flag == 0u8) { v += 1u8; return v; } else { v += 2u8; }
	// return v;
	fn := &ast.Function{
		Name: "f",
		Inputs: []*ast.Param{
			{Name: "flag", Type: u8()},
			{Name: "v", Type: u8()},
		},
		Output: u8(),
		Body: &ast.Block{Statements: []ast.Stmt{
			&ast.Conditional{
				Guard: &ast.Binary{Op: "==", Left: ident("flag"), Right: lit(u8(), "0u8")},
				Then: &ast.Block{Statements: []ast.Stmt{
					&ast.CompoundAssign{Place: ident("v"), Op: ast.CompoundAdd, Value: lit(u8(), "1u8")},
					&ast.Return{Value: ident("v")},
				}},
				Else: &ast.Block{Statements: []ast.Stmt{
					&ast.CompoundAssign{Place: ident("v"), Op: ast.CompoundAdd, Value: lit(u8(), "2u8")},
				}},
			},
			&ast.Return{Value: ident("v")},
		}},
	}

	result, err := ssa.TransformFunction(fn, symboltable.New())
	require.NoError(t, err)

	// No Conditional, Definition, CompoundAssign, or Iteration survives.
	for _, s := range result.Body.Statements {
		switch s.(type) {
		case *ast.Conditional, *ast.Definition, *ast.CompoundAssign, *ast.Iteration:
			t.Fatalf("statement %T survived SSA", s)
		}
	}

	assigns := assignsIn(result.Body)
	// is.eq guard, v+=1u8, "not guard" (else's path guard, bound even
	// though nothing folds an early exit through it), v+=2u8, merge
	// ternary for v.
	require.Len(t, assigns, 5)

	guardName := assigns[0].Place.(*ast.Identifier).Name
	assert.Contains(t, guardName, "$cond")

	notGuard := assigns[2]
	unary, ok := notGuard.Value.(*ast.Unary)
	require.True(t, ok)
	assert.Equal(t, "!", unary.Op)
	assert.Equal(t, guardName, unary.Operand.(*ast.Identifier).Name)

	merge := assigns[4]
	ternary, ok := merge.Value.(*ast.Ternary)
	require.True(t, ok)
	assert.Equal(t, guardName, ternary.Cond.(*ast.Identifier).Name)
	assert.Equal(t, assigns[1].Place.(*ast.Identifier).Name, ternary.IfTrue.(*ast.Identifier).Name)
	assert.Equal(t, assigns[3].Place.(*ast.Identifier).Name, ternary.IfFalse.(*ast.Identifier).Name)

	// Two early returns recorded: the in-branch one guarded by the
	// conditional, and the unconditional one at function end.
	require.Len(t, result.BodyReturns, 2)
	assert.Equal(t, guardName, result.BodyReturns[0].Guard.(*ast.Identifier).Name)
	assert.Equal(t, assigns[1].Place.(*ast.Identifier).Name, result.BodyReturns[0].Value.(*ast.Identifier).Name)
	assert.Nil(t, result.BodyReturns[1].Guard)
	assert.Equal(t, merge.Place.(*ast.Identifier).Name, result.BodyReturns[1].Value.(*ast.Identifier).Name)
}

func TestTernaryOfTuplesProducesPerElementTernaries(t *testing.T) {
	fn := &ast.Function{
		Name: "pick",
		Inputs: []*ast.Param{
			{Name: "c", Type: boolT()},
			{Name: "a", Type: u8()},
			{Name: "b", Type: u8()},
			{Name: "x", Type: u8()},
			{Name: "y", Type: u8()},
		},
		Output: ast.TupleType(u8(), u8()),
		Body: &ast.Block{Statements: []ast.Stmt{
			&ast.Return{Value: &ast.Ternary{
				Cond:    ident("c"),
				IfTrue:  &ast.Tuple{Elements: []ast.Expr{ident("a"), ident("b")}},
				IfFalse: &ast.Tuple{Elements: []ast.Expr{ident("x"), ident("y")}},
			}},
		}},
	}

	result, err := ssa.TransformFunction(fn, symboltable.New())
	require.NoError(t, err)

	require.Len(t, result.BodyReturns, 1)
	tup, ok := result.BodyReturns[0].Value.(*ast.Tuple)
	require.True(t, ok)
	require.Len(t, tup.Elements, 2)
	for _, el := range tup.Elements {
		assert.IsType(t, &ast.Identifier{}, el)
	}

	assigns := assignsIn(result.Body)
	require.Len(t, assigns, 2)
	for _, a := range assigns {
		_, ok := a.Value.(*ast.Ternary)
		assert.True(t, ok, "each tuple-of-ternaries element should materialize as its own ternary assignment")
	}
}

func TestCompositeTernaryExpandsPerMember(t *testing.T) {
	symtab := symboltable.New()
	symtab.DefineComposite("State", []symboltable.CompositeMember{
		{Name: "balance", Type: u8()},
		{Name: "active", Type: boolT()},
	}, "circuit")

	stateType := ast.CompositeType("State")

	fn := &ast.Function{
		Name: "choose",
		Inputs: []*ast.Param{
			{Name: "c", Type: boolT()},
			{Name: "s1", Type: stateType},
			{Name: "s2", Type: stateType},
		},
		Output: stateType,
		Body: &ast.Block{Statements: []ast.Stmt{
			&ast.Return{Value: &ast.Ternary{Cond: ident("c"), IfTrue: ident("s1"), IfFalse: ident("s2")}},
		}},
	}

	result, err := ssa.TransformFunction(fn, symtab)
	require.NoError(t, err)

	require.Len(t, result.BodyReturns, 1)
	returned, ok := result.BodyReturns[0].Value.(*ast.Identifier)
	require.True(t, ok)

	assigns := assignsIn(result.Body)
	require.Len(t, assigns, 3) // balance ternary, active ternary, composite-init

	final := assigns[len(assigns)-1]
	assert.Equal(t, returned.Name, final.Place.(*ast.Identifier).Name)
	composite, ok := final.Value.(*ast.CompositeInit)
	require.True(t, ok)
	assert.Equal(t, "State", composite.TypeName)
	require.Len(t, composite.Members, 2)
	assert.Equal(t, "balance", composite.Members[0].Name)
	assert.Equal(t, "active", composite.Members[1].Name)
}

func TestConsoleAssertPassesThroughAtomicOperands(t *testing.T) {
	fn := &ast.Function{
		Name:   "check",
		Output: u8(),
		Inputs: []*ast.Param{{Name: "x", Type: u8()}, {Name: "y", Type: u8()}},
		Body: &ast.Block{Statements: []ast.Stmt{
			&ast.ConsoleAssert{Kind: ast.AssertEq, Left: ident("x"), Right: ident("y")},
			&ast.Return{Value: ident("x")},
		}},
	}

	result, err := ssa.TransformFunction(fn, symboltable.New())
	require.NoError(t, err)

	require.Len(t, result.Body.Statements, 1)
	ca, ok := result.Body.Statements[0].(*ast.ConsoleAssert)
	require.True(t, ok)
	assert.Equal(t, "x", ca.Left.(*ast.Identifier).Name)
	assert.Equal(t, "y", ca.Right.(*ast.Identifier).Name)
}

func TestIterationIsRejected(t *testing.T) {
	fn := &ast.Function{
		Name:   "loopy",
		Output: u8(),
		Body: &ast.Block{Statements: []ast.Stmt{
			&ast.Iteration{Binding: "i", Start: lit(u8(), "0u8"), Stop: lit(u8(), "3u8"), Body: &ast.Block{}},
		}},
	}

	_, err := ssa.TransformFunction(fn, symboltable.New())
	assert.Error(t, err)
}

func TestAssignmentToNonIdentifierIsUnsupported(t *testing.T) {
	fn := &ast.Function{
		Name:   "bad",
		Output: u8(),
		Body: &ast.Block{Statements: []ast.Stmt{
			assignStmt("x", lit(u8(), "1u8")),
			&ast.Assign{Place: &ast.TupleAccess{Target: ident("x"), Index: 0}, Value: lit(u8(), "2u8")},
		}},
	}

	_, err := ssa.TransformFunction(fn, symboltable.New())
	assert.Error(t, err)
}

func TestDeterministicAcrossRuns(t *testing.T) {
	build := func() *ast.Function {
		return &ast.Function{
			Name:   "f",
			Output: u8(),
			Inputs: []*ast.Param{{Name: "v", Type: u8()}},
			Body: &ast.Block{Statements: []ast.Stmt{
				&ast.CompoundAssign{Place: ident("v"), Op: ast.CompoundAdd, Value: lit(u8(), "1u8")},
				&ast.Return{Value: ident("v")},
			}},
		}
	}

	r1, err := ssa.TransformFunction(build(), symboltable.New())
	require.NoError(t, err)
	r2, err := ssa.TransformFunction(build(), symboltable.New())
	require.NoError(t, err)

	assert.Equal(t, ast.Print(&ast.Function{Name: "f", Output: u8(), Body: r1.Body}),
		ast.Print(&ast.Function{Name: "f", Output: u8(), Body: r2.Body}))
}
