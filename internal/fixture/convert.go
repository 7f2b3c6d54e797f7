package fixture

import (
	"fmt"
	"strings"

	"triadc/internal/ast"
	"triadc/internal/symboltable"
)

var primitiveKinds = map[string]ast.Kind{
	"u8": ast.KindU8, "u16": ast.KindU16, "u32": ast.KindU32, "u64": ast.KindU64, "u128": ast.KindU128,
	"i8": ast.KindI8, "i16": ast.KindI16, "i32": ast.KindI32, "i64": ast.KindI64, "i128": ast.KindI128,
	"field": ast.KindField, "group": ast.KindGroup, "scalar": ast.KindScalar,
	"bool": ast.KindBool, "boolean": ast.KindBool,
	"address": ast.KindAddress, "string": ast.KindString,
}

// converter accumulates the composite and function signatures declared in
// a fixture source alongside converting each function body, so the single
// parse produces both the *ast.Program and the symboltable.Table the
// passes need as their read-only oracle (spec.md §3 "Symbol Table
// (read)").
type converter struct {
	symtab *symboltable.Table
}

// Convert walks a parsed fixture Program into an *ast.Program plus the
// symboltable.Table describing every composite and function it declares.
func Convert(p *Program) (*ast.Program, *symboltable.Table, error) {
	c := &converter{symtab: symboltable.New()}
	program0 := p.PackageName

	// Composites are registered before any function body is converted so
	// a composite ternary (spec.md §4.3.1 case 2) can look up a type
	// regardless of declaration order in the source text.
	for _, d := range p.Decls {
		if d.Composite != nil {
			if err := c.registerComposite(d.Composite); err != nil {
				return nil, nil, err
			}
		}
	}

	program := ast.Program{Name: program0}
	for _, d := range p.Decls {
		if d.Function == nil {
			continue
		}
		fn, err := c.convertFunction(d.Function)
		if err != nil {
			return nil, nil, err
		}
		program.Functions = append(program.Functions, fn)
		inputTypes := make([]*ast.Type, len(fn.Inputs))
		for i, p := range fn.Inputs {
			inputTypes[i] = p.Type
		}
		c.symtab.DefineFunction(fn.Name, inputTypes, fn.Output)
	}
	return &program, c.symtab, nil
}

func (c *converter) registerComposite(d *CompositeDecl) error {
	members := make([]symboltable.CompositeMember, len(d.Fields))
	for i, f := range d.Fields {
		typ, err := c.convertType(f.Type)
		if err != nil {
			return fmt.Errorf("fixture: composite %q field %q: %w", d.Name, f.Name, err)
		}
		members[i] = symboltable.CompositeMember{Name: f.Name, Type: typ}
	}
	c.symtab.DefineComposite(d.Name, members, d.Kind)
	return nil
}

func (c *converter) convertType(t *TypeName) (*ast.Type, error) {
	if len(t.Tuple) > 0 {
		elems := make([]*ast.Type, len(t.Tuple))
		for i, el := range t.Tuple {
			conv, err := c.convertType(el)
			if err != nil {
				return nil, err
			}
			elems[i] = conv
		}
		return ast.TupleType(elems...), nil
	}
	if kind, ok := primitiveKinds[t.Name]; ok {
		return ast.PrimitiveType(kind), nil
	}
	if _, ok := c.symtab.LookupComposite(t.Name); ok {
		return ast.CompositeType(t.Name), nil
	}
	// Not yet registered: assume a forward-referenced composite. The
	// fixture performs no validation pass of its own (spec.md §1 treats
	// name resolution as an external collaborator) — an unknown name
	// here surfaces downstream as a symbol-table lookup failure instead.
	return ast.CompositeType(t.Name), nil
}

func convertMode(m string) ast.Mode {
	switch m {
	case "public":
		return ast.ModePublic
	case "private":
		return ast.ModePrivate
	default:
		return ast.ModeUnspecified
	}
}

func (c *converter) convertParam(p *ParamDecl) (*ast.Param, error) {
	typ, err := c.convertType(p.Type)
	if err != nil {
		return nil, err
	}
	return &ast.Param{Name: p.Name, Type: typ, Mode: convertMode(p.Type.Mode)}, nil
}

func (c *converter) convertFunction(f *FunctionDecl) (*ast.Function, error) {
	inputs := make([]*ast.Param, len(f.Params))
	for i, p := range f.Params {
		conv, err := c.convertParam(p)
		if err != nil {
			return nil, fmt.Errorf("fixture: function %q param %q: %w", f.Name, p.Name, err)
		}
		inputs[i] = conv
	}
	output, err := c.convertType(f.Output)
	if err != nil {
		return nil, fmt.Errorf("fixture: function %q output: %w", f.Name, err)
	}
	body, err := c.convertBlock(f.Body)
	if err != nil {
		return nil, fmt.Errorf("fixture: function %q: %w", f.Name, err)
	}

	fn := &ast.Function{Name: f.Name, Inputs: inputs, Output: output, Body: body}

	if f.Finalize != nil {
		finInputs := make([]*ast.Param, len(f.Finalize.Params))
		for i, p := range f.Finalize.Params {
			conv, err := c.convertParam(p)
			if err != nil {
				return nil, fmt.Errorf("fixture: function %q finalize param %q: %w", f.Name, p.Name, err)
			}
			finInputs[i] = conv
		}
		finOutput, err := c.convertType(f.Finalize.Output)
		if err != nil {
			return nil, fmt.Errorf("fixture: function %q finalize output: %w", f.Name, err)
		}
		finBody, err := c.convertBlock(f.Finalize.Body)
		if err != nil {
			return nil, fmt.Errorf("fixture: function %q finalize body: %w", f.Name, err)
		}
		fn.Finalize = &ast.FinalizeBlock{Inputs: finInputs, Output: finOutput, Body: finBody}
	}

	return fn, nil
}

func (c *converter) convertBlock(b *BlockNode) (*ast.Block, error) {
	block := &ast.Block{}
	for _, s := range b.Statements {
		stmt, err := c.convertStatement(s)
		if err != nil {
			return nil, err
		}
		block.Statements = append(block.Statements, stmt)
	}
	return block, nil
}

func (c *converter) convertStatement(s *StatementNode) (ast.Stmt, error) {
	switch {
	case s.If != nil:
		return c.convertIf(s.If)
	case s.Let != nil:
		return c.convertLet(s.Let)
	case s.Return != nil:
		return c.convertReturn(s.Return)
	case s.Finalize != nil:
		return c.convertFinalizeStmt(s.Finalize)
	case s.Assert != nil:
		return c.convertAssert(s.Assert)
	case s.IncrDecr != nil:
		return c.convertIncrDecr(s.IncrDecr)
	case s.Assign != nil:
		return c.convertAssign(s.Assign)
	case s.Nested != nil:
		return c.convertBlock(s.Nested.Body)
	default:
		return nil, fmt.Errorf("fixture: empty statement node")
	}
}

func (c *converter) convertIf(s *IfStmt) (ast.Stmt, error) {
	cond, err := c.convertExpr(s.Cond)
	if err != nil {
		return nil, err
	}
	then, err := c.convertBlock(s.Then)
	if err != nil {
		return nil, err
	}
	cond2 := &ast.Conditional{Guard: cond, Then: then}
	if s.Else != nil {
		elseBlock, err := c.convertBlock(s.Else)
		if err != nil {
			return nil, err
		}
		cond2.Else = elseBlock
	}
	return cond2, nil
}

func (c *converter) convertLet(s *LetStmt) (ast.Stmt, error) {
	value, err := c.convertExpr(s.Value)
	if err != nil {
		return nil, err
	}
	var typ *ast.Type
	if s.Type != nil {
		typ, err = c.convertType(s.Type)
		if err != nil {
			return nil, err
		}
	}
	return &ast.Definition{Name: s.Name, Type: typ, Value: value}, nil
}

func (c *converter) convertReturn(s *ReturnStmt) (ast.Stmt, error) {
	if s.Value == nil {
		return &ast.Return{}, nil
	}
	v, err := c.convertExpr(s.Value)
	if err != nil {
		return nil, err
	}
	return &ast.Return{Value: v}, nil
}

func (c *converter) convertFinalizeStmt(s *FinalizeStmt) (ast.Stmt, error) {
	args := make([]ast.Expr, len(s.Args))
	for i, a := range s.Args {
		v, err := c.convertExpr(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return &ast.Finalize{Args: args}, nil
}

func (c *converter) convertAssert(s *AssertStmt) (ast.Stmt, error) {
	left, err := c.convertExpr(s.Left)
	if err != nil {
		return nil, err
	}
	kind := ast.AssertTruthy
	var right ast.Expr
	switch s.Kind {
	case "assert_eq":
		kind = ast.AssertEq
	case "assert_neq":
		kind = ast.AssertNeq
	}
	if s.Right != nil {
		right, err = c.convertExpr(s.Right)
		if err != nil {
			return nil, err
		}
	}
	return &ast.ConsoleAssert{Kind: kind, Left: left, Right: right}, nil
}

func (c *converter) convertIncrDecr(s *IncrDecrStmt) (ast.Stmt, error) {
	key, err := c.convertExpr(s.Key)
	if err != nil {
		return nil, err
	}
	amount, err := c.convertExpr(s.Amount)
	if err != nil {
		return nil, err
	}
	if s.Kind == "increment" {
		return &ast.Increment{Mapping: s.Mapping, Key: key, Amount: amount}, nil
	}
	return &ast.Decrement{Mapping: s.Mapping, Key: key, Amount: amount}, nil
}

func (c *converter) convertAssign(s *AssignStmt) (ast.Stmt, error) {
	value, err := c.convertExpr(s.Value)
	if err != nil {
		return nil, err
	}
	place := &ast.Identifier{Name: s.Target}
	if s.Op == "=" {
		return &ast.Assign{Place: place, Value: value}, nil
	}
	return &ast.CompoundAssign{Place: place, Op: ast.CompoundAssignOp(strings.TrimSuffix(s.Op, "=")), Value: value}, nil
}

func (c *converter) convertExpr(e *ExprNode) (ast.Expr, error) {
	cond, err := c.convertBinary(e.Cond)
	if err != nil {
		return nil, err
	}
	if e.Tail == nil {
		return cond, nil
	}
	ifTrue, err := c.convertExpr(e.Tail.IfTrue)
	if err != nil {
		return nil, err
	}
	ifFalse, err := c.convertExpr(e.Tail.IfFalse)
	if err != nil {
		return nil, err
	}
	return &ast.Ternary{Cond: cond, IfTrue: ifTrue, IfFalse: ifFalse}, nil
}

func (c *converter) convertBinary(b *BinaryExpr) (ast.Expr, error) {
	left, err := c.convertUnary(b.Left)
	if err != nil {
		return nil, err
	}
	ops := make([]opValue, len(b.Ops))
	for i, o := range b.Ops {
		right, err := c.convertUnary(o.Right)
		if err != nil {
			return nil, err
		}
		ops[i] = opValue{op: o.Operator, value: right}
	}
	result, remaining := climb(left, ops, 0, func(op string, l, r any) any {
		return &ast.Binary{Op: op, Left: l.(ast.Expr), Right: r.(ast.Expr)}
	})
	if len(remaining) > 0 {
		return nil, fmt.Errorf("fixture: unresolved operator %q", remaining[0].op)
	}
	return result.(ast.Expr), nil
}

func (c *converter) convertUnary(u *UnaryExpr) (ast.Expr, error) {
	value, err := c.convertPostfix(u.Value)
	if err != nil {
		return nil, err
	}
	if u.Operator == "" {
		return value, nil
	}
	return &ast.Unary{Op: u.Operator, Operand: value}, nil
}

func (c *converter) convertPostfix(p *PostfixExpr) (ast.Expr, error) {
	expr, err := c.convertPrimary(p.Primary)
	if err != nil {
		return nil, err
	}
	for _, suffix := range p.Suffix {
		if suffix.Name != "" {
			expr = &ast.MemberAccess{Target: expr, Name: suffix.Name}
			continue
		}
		idx, err := parseTupleIndex(suffix.Index)
		if err != nil {
			return nil, err
		}
		expr = &ast.TupleAccess{Target: expr, Index: idx}
	}
	return expr, nil
}

func parseTupleIndex(lit string) (int, error) {
	n := 0
	for _, r := range lit {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("fixture: invalid tuple index %q", lit)
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}

func (c *converter) convertPrimary(p *PrimaryExpr) (ast.Expr, error) {
	switch {
	case p.New != nil:
		return c.convertNew(p.New)
	case p.Assoc != nil:
		args, err := c.convertExprList(p.Assoc.Args)
		if err != nil {
			return nil, err
		}
		return &ast.AssociatedFunctionAccess{TypeName: p.Assoc.TypeName, Name: p.Assoc.Name, Args: args}, nil
	case p.Call != nil:
		args, err := c.convertExprList(p.Call.Args)
		if err != nil {
			return nil, err
		}
		return &ast.Call{Callee: p.Call.Callee, Args: args}, nil
	case p.Num != "":
		return literalOfNumeral(p.Num), nil
	case p.Str != "":
		return &ast.Literal{Type: ast.PrimitiveType(ast.KindString), Value: p.Str}, nil
	case p.Tuple != nil:
		return c.convertTuple(p.Tuple)
	case p.Ident == "true" || p.Ident == "false":
		return &ast.Literal{Type: ast.PrimitiveType(ast.KindBool), Value: p.Ident}, nil
	case p.Ident != "":
		return &ast.Identifier{Name: p.Ident}, nil
	default:
		return nil, fmt.Errorf("fixture: empty primary expression")
	}
}

func (c *converter) convertNew(n *NewExpr) (ast.Expr, error) {
	members := make([]ast.CompositeMember, len(n.Members))
	for i, m := range n.Members {
		v, err := c.convertExpr(m.Value)
		if err != nil {
			return nil, err
		}
		members[i] = ast.CompositeMember{Name: m.Name, Value: v}
	}
	return &ast.CompositeInit{TypeName: n.TypeName, Members: members}, nil
}

func (c *converter) convertTuple(t *TupleExpr) (ast.Expr, error) {
	if len(t.Elements) == 1 {
		return c.convertExpr(t.Elements[0])
	}
	elems, err := c.convertExprList(t.Elements)
	if err != nil {
		return nil, err
	}
	return &ast.Tuple{Elements: elems}, nil
}

func (c *converter) convertExprList(exprs []*ExprNode) ([]ast.Expr, error) {
	out := make([]ast.Expr, len(exprs))
	for i, e := range exprs {
		v, err := c.convertExpr(e)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// literalOfNumeral splits a lexed numeral like "1u8" into its literal type,
// matching the primitive suffix vocabulary primitiveKinds recognizes;
// a bare numeral with no suffix is left untyped (KindInvalid), same as a
// source-level integer literal whose type is inferred upstream of this
// pipeline.
func literalOfNumeral(s string) *ast.Literal {
	for suffix, kind := range primitiveKinds {
		if suffix == "bool" || suffix == "boolean" || suffix == "address" || suffix == "string" {
			continue
		}
		if strings.HasSuffix(s, suffix) && len(s) > len(suffix) {
			return &ast.Literal{Type: ast.PrimitiveType(kind), Value: s}
		}
	}
	return &ast.Literal{Value: s}
}
