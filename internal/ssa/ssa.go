// Package ssa implements the first pass of the pipeline: it rewrites a
// pre-SSA function body into static single assignment form, flattening
// conditionals into ternary selectors and lowering compound assignments
// along the way (spec.md §4.3). It never emits a terminal Return or
// Finalize statement directly — those are diverted into per-function
// accumulators the flatten pass (internal/flatten) later folds.
package ssa

import (
	"fmt"
	"sort"

	"triadc/internal/ast"
	"triadc/internal/rename"
	"triadc/internal/symboltable"
)

// Guarded pairs a path-guard expression with the value reached under that
// guard. Guard is nil to mean the unconditional ("true") top-level path;
// per spec.md §4.4 the last guard in a fold is ignored regardless, so nil
// never needs to stand in for a real boolean operand.
type Guarded struct {
	Guard ast.Expr
	Value ast.Expr
}

// Transformer runs the SSA pass over a single block scope (a function body
// or a finalize block). Construct one per scope; share a single
// *rename.Assigner across every Transformer used for one function (body
// and finalize block alike) so unique names never collide within it
// (spec.md §4.2, §9 "Deterministic naming").
type Transformer struct {
	symtab *symboltable.Table
	table  *rename.Table
	gen    *rename.Assigner

	// composites maps an SSA-bound name to the composite type it was
	// constructed as, consulted by ternary case 2 before falling back to
	// the symbol table (SPEC_FULL.md §4 item 1).
	composites map[string]string

	// Returns and Finalizes accumulate every early return/finalize
	// payload encountered, each paired with its path guard. Finalizes is
	// indexed by argument position, one inner slice per position.
	Returns   []Guarded
	Finalizes [][]Guarded
}

// NewTransformer constructs a Transformer over a fresh rename scope, backed
// by the given read-only symbol table and a shared unique-name generator.
func NewTransformer(symtab *symboltable.Table, gen *rename.Assigner) *Transformer {
	return &Transformer{
		symtab:     symtab,
		table:      rename.New(),
		gen:        gen,
		composites: make(map[string]string),
	}
}

// SeedParams registers composite-typed parameters in the secondary map so
// ternary case 2 recognizes them even when they reach a ternary branch
// directly, without ever passing through a CompositeInit.
func (t *Transformer) SeedParams(params []*ast.Param) {
	for _, p := range params {
		if p.Type != nil && p.Type.Kind == ast.KindComposite {
			t.composites[p.Name] = p.Type.Composite
		}
	}
}

// TransformBlock rewrites block into SSA form. The returned block contains
// no Conditional, Definition, CompoundAssign, or Iteration statement, and
// no terminal Return/Finalize — those are recorded on t.Returns/t.Finalizes
// instead.
func (t *Transformer) TransformBlock(block *ast.Block) (*ast.Block, error) {
	var buf []ast.Stmt
	if err := t.consumeStatements(block.Statements, nil, &buf); err != nil {
		return nil, err
	}
	return &ast.Block{Pos: block.Pos, Statements: buf}, nil
}

func (t *Transformer) consumeStatements(stmts []ast.Stmt, guard ast.Expr, buf *[]ast.Stmt) error {
	for _, s := range stmts {
		if err := t.consumeStatement(s, guard, buf); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transformer) consumeStatement(s ast.Stmt, guard ast.Expr, buf *[]ast.Stmt) error {
	switch v := s.(type) {
	case *ast.Assign:
		return t.consumeAssign(v.Place, v.Value, v.Pos, buf)

	case *ast.CompoundAssign:
		place, ok := v.Place.(*ast.Identifier)
		if !ok {
			return fmt.Errorf("ssa: compound assignment target must be a plain identifier, got %T", v.Place)
		}
		lowered := &ast.Binary{
			Pos:   v.Pos,
			Op:    string(v.Op),
			Left:  &ast.Identifier{Pos: v.Pos, Name: place.Name},
			Right: v.Value,
		}
		return t.consumeAssign(place, lowered, v.Pos, buf)

	case *ast.Definition:
		return t.consumeAssign(&ast.Identifier{Pos: v.Pos, Name: v.Name}, v.Value, v.Pos, buf)

	case *ast.Conditional:
		return t.consumeConditional(v, guard, buf)

	case *ast.Iteration:
		return fmt.Errorf("ssa: iteration statement reached the SSA pass at %s; loops must already be unrolled upstream", v.Pos)

	case *ast.Block:
		t.table.Push()
		var inner []ast.Stmt
		if err := t.consumeStatements(v.Statements, guard, &inner); err != nil {
			t.table.Pop()
			return err
		}
		t.table.Pop()
		*buf = append(*buf, inner...)
		return nil

	case *ast.Return:
		var atomic ast.Expr
		if v.Value != nil {
			var err error
			atomic, err = t.consumeExpr(v.Value, "", buf)
			if err != nil {
				return err
			}
		}
		t.Returns = append(t.Returns, Guarded{Guard: guard, Value: atomic})
		return nil

	case *ast.Finalize:
		for len(t.Finalizes) < len(v.Args) {
			t.Finalizes = append(t.Finalizes, nil)
		}
		for i, arg := range v.Args {
			atomic, err := t.consumeExpr(arg, "", buf)
			if err != nil {
				return err
			}
			t.Finalizes[i] = append(t.Finalizes[i], Guarded{Guard: guard, Value: atomic})
		}
		return nil

	case *ast.Increment:
		key, err := t.consumeExpr(v.Key, "", buf)
		if err != nil {
			return err
		}
		amount, err := t.consumeExpr(v.Amount, "", buf)
		if err != nil {
			return err
		}
		*buf = append(*buf, &ast.Increment{Pos: v.Pos, Mapping: v.Mapping, Key: key, Amount: amount})
		return nil

	case *ast.Decrement:
		key, err := t.consumeExpr(v.Key, "", buf)
		if err != nil {
			return err
		}
		amount, err := t.consumeExpr(v.Amount, "", buf)
		if err != nil {
			return err
		}
		*buf = append(*buf, &ast.Decrement{Pos: v.Pos, Mapping: v.Mapping, Key: key, Amount: amount})
		return nil

	case *ast.ConsoleAssert:
		left, err := t.consumeExpr(v.Left, "", buf)
		if err != nil {
			return err
		}
		var right ast.Expr
		if v.Right != nil {
			right, err = t.consumeExpr(v.Right, "", buf)
			if err != nil {
				return err
			}
		}
		*buf = append(*buf, &ast.ConsoleAssert{Pos: v.Pos, Kind: v.Kind, Left: left, Right: right})
		return nil

	default:
		return fmt.Errorf("ssa: unsupported statement %T at %s", s, s.Span())
	}
}

// consumeAssign implements the shared Assign/Definition/lowered-CompoundAssign
// rule: consume the RHS first, then allocate a fresh name for the LHS
// (spec.md §4.3.2). An atomic RHS (identifier or literal) needs its own
// explicit copy assignment; a compound RHS already binds itself to a fresh
// name while being consumed, so that same bind becomes the place's
// assignment directly — otherwise "x += 1u8" would wastefully lower to two
// statements ("$var$0 = x + 1u8; x$1 = $var$0;") instead of the single
// "x$1 = x + 1u8;" spec.md §8 scenario 5 requires.
func (t *Transformer) consumeAssign(place ast.Expr, value ast.Expr, pos ast.Position, buf *[]ast.Stmt) error {
	ident, ok := place.(*ast.Identifier)
	if !ok {
		return fmt.Errorf("ssa: assignment target must be a plain identifier, got %T at %s", place, pos)
	}

	switch value.(type) {
	case *ast.Literal, *ast.Identifier:
		rhs, err := t.consumeExpr(value, "", buf)
		if err != nil {
			return err
		}
		fresh := t.defineName(ident.Name)
		*buf = append(*buf, &ast.Assign{Pos: pos, Place: fresh, Value: rhs})
		return nil

	default:
		rhs, err := t.consumeExpr(value, ident.Name, buf)
		if err != nil {
			return err
		}
		bound, ok := rhs.(*ast.Identifier)
		if !ok {
			// Reachable for a Tuple RHS, which never binds to a fresh
			// name of its own (spec.md §4.3.1), and for a tuple
			// projection that resolves to a literal element.
			fresh := t.defineName(ident.Name)
			*buf = append(*buf, &ast.Assign{Pos: pos, Place: fresh, Value: rhs})
			return nil
		}
		t.table.Update(ident.Name, bound.Name)
		return nil
	}
}

func (t *Transformer) defineName(original string) *ast.Identifier {
	name := t.gen.Fresh(original)
	t.table.Update(original, name)
	return &ast.Identifier{Name: name}
}

// consumeConditional implements spec.md §4.3.2's conditional-flattening
// rule: the statement itself never survives, replaced by the then/else
// bodies' statements (unconditionally executed, since this target has no
// real branches) followed by one merge ternary per name rebound in either
// branch.
func (t *Transformer) consumeConditional(v *ast.Conditional, guard ast.Expr, buf *[]ast.Stmt) error {
	cond, err := t.consumeExpr(v.Guard, rename.PrefixCond, buf)
	if err != nil {
		return err
	}

	// Both branch guards are materialized unconditionally, even when a
	// branch has no early return/finalize to fold: the path guard is a
	// value every statement in the branch is conceptually evaluated under,
	// and spec.md §8 scenario 1's exact counter numbering (v$1 then v$3,
	// skipping v$2) only falls out if the else branch's "not cond" guard
	// is bound before that branch's statements are consumed, regardless of
	// whether anything downstream ends up reading it.
	thenGuard := t.conjoin(guard, cond, buf)

	t.table.Push()
	var thenBuf []ast.Stmt
	if err := t.consumeStatements(v.Then.Statements, thenGuard, &thenBuf); err != nil {
		t.table.Pop()
		return err
	}
	fThen := t.table.Pop()
	*buf = append(*buf, thenBuf...)

	fElse := map[string]string{}
	if v.Else != nil {
		notCond := t.negate(cond, buf)
		elseGuard := t.conjoin(guard, notCond, buf)

		t.table.Push()
		var elseBuf []ast.Stmt
		if err := t.consumeStatements(v.Else.Statements, elseGuard, &elseBuf); err != nil {
			t.table.Pop()
			return err
		}
		fElse = t.table.Pop()
		*buf = append(*buf, elseBuf...)
	}

	touched := make(map[string]struct{}, len(fThen)+len(fElse))
	for name := range fThen {
		touched[name] = struct{}{}
	}
	for name := range fElse {
		touched[name] = struct{}{}
	}

	// Sorted for deterministic emission order; map iteration order is not
	// stable and byte-exact determinism is a tested property (spec.md §8).
	names := make([]string, 0, len(touched))
	for name := range touched {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		thenVal := t.resolveBranchValue(name, fThen)
		elseVal := t.resolveBranchValue(name, fElse)
		merged := t.bind(name, &ast.Ternary{Pos: v.Pos, Cond: cond, IfTrue: thenVal, IfFalse: elseVal}, v.Pos, buf)
		t.table.Update(name, merged.Name)
	}
	return nil
}

// resolveBranchValue returns the value name holds coming out of one branch:
// the branch's own rebinding if it touched the name, otherwise whatever was
// visible immediately before the conditional (or the bare name itself, if
// it was never bound at all — a free variable).
func (t *Transformer) resolveBranchValue(name string, frame map[string]string) ast.Expr {
	if u, ok := frame[name]; ok {
		return &ast.Identifier{Name: u}
	}
	if u, ok := t.table.Lookup(name); ok {
		return &ast.Identifier{Name: u}
	}
	return &ast.Identifier{Name: name}
}

func (t *Transformer) conjoin(outer, inner ast.Expr, buf *[]ast.Stmt) ast.Expr {
	if outer == nil {
		return inner
	}
	return t.bind(rename.PrefixVar, &ast.Binary{Op: "&&", Left: outer, Right: inner}, inner.Span(), buf)
}

func (t *Transformer) negate(e ast.Expr, buf *[]ast.Stmt) ast.Expr {
	return t.bind(rename.PrefixVar, &ast.Unary{Op: "!", Operand: e}, e.Span(), buf)
}

// bind materializes value as a fresh simple assignment named from hint (or
// the generic $var prefix if hint is empty) and returns the new identifier.
func (t *Transformer) bind(hint string, value ast.Expr, pos ast.Position, buf *[]ast.Stmt) *ast.Identifier {
	if hint == "" {
		hint = rename.PrefixVar
	}
	name := t.gen.Fresh(hint)
	ident := &ast.Identifier{Pos: pos, Name: name}
	*buf = append(*buf, &ast.Assign{Pos: pos, Place: ident, Value: value})
	return ident
}

// consumeExprList consumes each element of exprs in order, as spec.md
// §4.3.1 requires ("concatenate their statement sequences in evaluation
// order").
func (t *Transformer) consumeExprList(exprs []ast.Expr, buf *[]ast.Stmt) ([]ast.Expr, error) {
	out := make([]ast.Expr, len(exprs))
	for i, e := range exprs {
		v, err := t.consumeExpr(e, "", buf)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// consumeExpr is the expression-consumption half of the pass (spec.md
// §4.3.1). hint names the fresh binding this expression's value should
// receive, if any; recursive sub-expression calls pass "" so only the
// outermost call of an assignment's RHS inherits the place name.
func (t *Transformer) consumeExpr(e ast.Expr, hint string, buf *[]ast.Stmt) (ast.Expr, error) {
	switch v := e.(type) {
	case *ast.Literal:
		return v, nil

	case *ast.Identifier:
		if u, ok := t.table.Lookup(v.Name); ok {
			return &ast.Identifier{Pos: v.Pos, Name: u}, nil
		}
		// No binding: a free variable (function parameter, storage
		// reference, or associated-type name) passes through unrenamed
		// (SPEC_FULL.md §4 item 2).
		return v, nil

	case *ast.Binary:
		l, err := t.consumeExpr(v.Left, "", buf)
		if err != nil {
			return nil, err
		}
		r, err := t.consumeExpr(v.Right, "", buf)
		if err != nil {
			return nil, err
		}
		return t.bind(hint, &ast.Binary{Pos: v.Pos, Op: v.Op, Left: l, Right: r}, v.Pos, buf), nil

	case *ast.Unary:
		o, err := t.consumeExpr(v.Operand, "", buf)
		if err != nil {
			return nil, err
		}
		return t.bind(hint, &ast.Unary{Pos: v.Pos, Op: v.Op, Operand: o}, v.Pos, buf), nil

	case *ast.Call:
		args, err := t.consumeExprList(v.Args, buf)
		if err != nil {
			return nil, err
		}
		return t.bind(hint, &ast.Call{Pos: v.Pos, Callee: v.Callee, Args: args}, v.Pos, buf), nil

	case *ast.MemberAccess:
		target, err := t.consumeExpr(v.Target, "", buf)
		if err != nil {
			return nil, err
		}
		return t.bind(hint, &ast.MemberAccess{Pos: v.Pos, Target: target, Name: v.Name}, v.Pos, buf), nil

	case *ast.TupleAccess:
		target, err := t.consumeExpr(v.Target, "", buf)
		if err != nil {
			return nil, err
		}
		if tup, ok := target.(*ast.Tuple); ok {
			if v.Index < 0 || v.Index >= len(tup.Elements) {
				return nil, fmt.Errorf("ssa: tuple access index %d out of range at %s", v.Index, v.Pos)
			}
			return tup.Elements[v.Index], nil
		}
		return t.bind(hint, &ast.TupleAccess{Pos: v.Pos, Target: target, Index: v.Index}, v.Pos, buf), nil

	case *ast.AssociatedFunctionAccess:
		args, err := t.consumeExprList(v.Args, buf)
		if err != nil {
			return nil, err
		}
		return t.bind(hint, &ast.AssociatedFunctionAccess{Pos: v.Pos, TypeName: v.TypeName, Name: v.Name, Args: args}, v.Pos, buf), nil

	case *ast.Tuple:
		// Tuples never get a fresh name of their own (spec.md §4.3.1): they
		// have no target-bytecode representation, only their atomic
		// elements do.
		elems, err := t.consumeExprList(v.Elements, buf)
		if err != nil {
			return nil, err
		}
		return &ast.Tuple{Pos: v.Pos, Elements: elems}, nil

	case *ast.CompositeInit:
		members := make([]ast.CompositeMember, len(v.Members))
		for i, m := range v.Members {
			mv, err := t.consumeExpr(m.Value, "", buf)
			if err != nil {
				return nil, err
			}
			members[i] = ast.CompositeMember{Name: m.Name, Value: mv}
		}
		bound := t.bind(hint, &ast.CompositeInit{Pos: v.Pos, TypeName: v.TypeName, Members: members}, v.Pos, buf)
		t.composites[bound.Name] = v.TypeName
		return bound, nil

	case *ast.Ternary:
		return t.consumeTernary(v, hint, buf)

	default:
		return nil, fmt.Errorf("ssa: unsupported expression %T at %s", e, e.Span())
	}
}

// consumeTernary implements the three ternary cases of spec.md §4.3.1.
func (t *Transformer) consumeTernary(v *ast.Ternary, hint string, buf *[]ast.Stmt) (ast.Expr, error) {
	cond, err := t.consumeExpr(v.Cond, rename.PrefixCond, buf)
	if err != nil {
		return nil, err
	}
	thenVal, err := t.consumeExpr(v.IfTrue, "", buf)
	if err != nil {
		return nil, err
	}
	elseVal, err := t.consumeExpr(v.IfFalse, "", buf)
	if err != nil {
		return nil, err
	}

	// Case 1: both branches are tuples.
	if thenTuple, ok := thenVal.(*ast.Tuple); ok {
		if elseTuple, ok := elseVal.(*ast.Tuple); ok {
			if len(thenTuple.Elements) != len(elseTuple.Elements) {
				return nil, fmt.Errorf("ssa: ternary branches are tuples of different arity at %s", v.Pos)
			}
			elems := make([]ast.Expr, len(thenTuple.Elements))
			for i := range thenTuple.Elements {
				inner := &ast.Ternary{Pos: v.Pos, Cond: cond, IfTrue: thenTuple.Elements[i], IfFalse: elseTuple.Elements[i]}
				e, err := t.consumeExpr(inner, hint, buf)
				if err != nil {
					return nil, err
				}
				elems[i] = e
			}
			return &ast.Tuple{Pos: v.Pos, Elements: elems}, nil
		}
	}

	// Case 2: both branches are identifiers of the same known composite
	// type.
	if thenIdent, ok := thenVal.(*ast.Identifier); ok {
		if elseIdent, ok := elseVal.(*ast.Identifier); ok {
			thenType, thenOK := t.composites[thenIdent.Name]
			elseType, elseOK := t.composites[elseIdent.Name]
			if thenOK && elseOK && thenType == elseType {
				composite, found := t.symtab.LookupComposite(thenType)
				if !found {
					return nil, fmt.Errorf("ssa: unknown composite type %q at %s", thenType, v.Pos)
				}
				// One ternary instruction per member (spec.md §8 scenario
				// 4): "first.m"/"second.m" are addressed directly as the
				// ternary's own operands rather than bound through their
				// own separate MemberAccess instructions first.
				members := make([]ast.CompositeMember, len(composite.Members))
				for i, m := range composite.Members {
					memberTernary := &ast.Ternary{
						Pos:     v.Pos,
						Cond:    cond,
						IfTrue:  &ast.MemberAccess{Pos: v.Pos, Target: thenIdent, Name: m.Name},
						IfFalse: &ast.MemberAccess{Pos: v.Pos, Target: elseIdent, Name: m.Name},
					}
					mv := t.bind(m.Name, memberTernary, v.Pos, buf)
					members[i] = ast.CompositeMember{Name: m.Name, Value: mv}
				}
				bound := t.bind(hint, &ast.CompositeInit{Pos: v.Pos, TypeName: thenType, Members: members}, v.Pos, buf)
				t.composites[bound.Name] = thenType
				return bound, nil
			}
		}
	}

	// Case 3: scalar ternary.
	return t.bind(hint, &ast.Ternary{Pos: v.Pos, Cond: cond, IfTrue: thenVal, IfFalse: elseVal}, v.Pos, buf), nil
}
