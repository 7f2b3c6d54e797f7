// Package codegen implements the third and final pass of the pipeline: it
// emits textual three-address bytecode from an SSA-flattened function body
// (spec.md §4.5). It is a pure tree-to-text walk — it never rewrites the
// tree the way the ssa and flatten packages do.
package codegen

import (
	"fmt"
	"strings"

	"triadc/internal/ast"
	"triadc/internal/errors"
	"triadc/internal/symboltable"
)

// Generator holds the per-function emission state spec.md §4.5 names:
// variable_mapping (source atomic name → emitted operand string) and
// composite_mapping (consulted through symtab), plus the function currently
// being emitted.
type Generator struct {
	symtab    *symboltable.Table
	varmap    map[string]string
	current   *ast.Function
	registers int
}

// NewGenerator returns a Generator reading composite layout from symtab.
func NewGenerator(symtab *symboltable.Table) *Generator {
	return &Generator{symtab: symtab}
}

// Function emits one function's bytecode text: its signature, the
// SSA-flattened body, and (if present) its finalize block's signature and
// body. body and finalizeBody are the trees flatten.Function returned for
// fn — the generator never runs SSA or flatten itself (spec.md §9 "double
// recursion... keep this split").
func (g *Generator) Function(fn *ast.Function, body *ast.Block, finalizeBody *ast.Block) (string, error) {
	g.current = fn
	g.varmap = make(map[string]string)
	g.registers = 0

	var b strings.Builder
	sig, err := g.signature(fn)
	if err != nil {
		return "", err
	}
	b.WriteString(sig)

	bodyText, err := g.emitBlock(body)
	if err != nil {
		return "", err
	}
	b.WriteString(bodyText)

	if fn.Finalize != nil {
		if finalizeBody == nil {
			return "", fmt.Errorf("codegen: function %q declares a finalize block but none was supplied for emission", fn.Name)
		}
		g.varmap = make(map[string]string)
		finSig, err := g.finalizeSignature(fn.Finalize)
		if err != nil {
			return "", err
		}
		b.WriteString(finSig)

		finText, err := g.emitBlock(finalizeBody)
		if err != nil {
			return "", err
		}
		b.WriteString(finText)
	}

	return b.String(), nil
}

func (g *Generator) signature(fn *ast.Function) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "function %s:\n", fn.Name)
	for _, p := range fn.Inputs {
		typ, err := g.emitParamType(p.Type, p.Mode)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "    input %s as %s;\n", p.Name, typ)
	}
	return b.String(), nil
}

func (g *Generator) finalizeSignature(fb *ast.FinalizeBlock) (string, error) {
	var b strings.Builder
	b.WriteString("finalize:\n")
	for _, p := range fb.Inputs {
		typ, err := g.emitParamType(p.Type, p.Mode)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "    input %s as %s;\n", p.Name, typ)
	}
	return b.String(), nil
}

// emitParamType emits a parameter's declared type with its visibility mode,
// same rule as a return type's visibility (spec.md §4.5) except composites
// never carry a visibility suffix either way.
func (g *Generator) emitParamType(t *ast.Type, mode ast.Mode) (string, error) {
	return g.typeWithVisibility(t, mode)
}

// emitType renders t's bare keyword/composite name with no visibility
// suffix (spec.md §4.5 "Type emission").
func (g *Generator) emitType(t *ast.Type) (string, error) {
	switch t.Kind {
	case ast.KindComposite:
		suffix, err := g.symtab.CompositeSuffix(t.Composite)
		if err != nil {
			return "", err
		}
		return strings.ToLower(t.Composite) + "." + suffix, nil
	case ast.KindTuple:
		return "", fmt.Errorf("codegen: tuple type %s reached the generator undecomposed", t)
	default:
		if !t.IsPrimitive() {
			return "", fmt.Errorf("codegen: unknown type kind %v", t.Kind)
		}
		return t.Keyword(), nil
	}
}

// typeWithVisibility appends ".private"/".public" to t, except for
// composite types which carry no trailing visibility (spec.md §4.5).
func (g *Generator) typeWithVisibility(t *ast.Type, mode ast.Mode) (string, error) {
	base, err := g.emitType(t)
	if err != nil {
		return "", err
	}
	if t.Kind == ast.KindComposite {
		return base, nil
	}
	return base + "." + mode.String(), nil
}

// returnTypes splits a function's output type into one entry per tuple
// element, or a single entry for a scalar output (spec.md §4.5
// "visit_return_type").
func (g *Generator) returnTypes(output *ast.Type, mode ast.Mode) ([]string, error) {
	if output.Kind == ast.KindTuple {
		out := make([]string, len(output.Elements))
		for i, el := range output.Elements {
			s, err := g.typeWithVisibility(el, mode)
			if err != nil {
				return nil, err
			}
			out[i] = s
		}
		return out, nil
	}
	s, err := g.typeWithVisibility(output, mode)
	if err != nil {
		return nil, err
	}
	return []string{s}, nil
}

func (g *Generator) emitBlock(block *ast.Block) (string, error) {
	var b strings.Builder
	for _, s := range block.Statements {
		text, err := g.emitStatement(s)
		if err != nil {
			return "", err
		}
		b.WriteString(text)
	}
	return b.String(), nil
}

func (g *Generator) emitStatement(s ast.Stmt) (string, error) {
	switch v := s.(type) {
	case *ast.Assign:
		return g.emitAssign(v)
	case *ast.Return:
		return g.emitReturn(v)
	case *ast.Finalize:
		return g.emitFinalize(v)
	case *ast.ConsoleAssert:
		return g.emitConsoleAssert(v)
	case *ast.Increment:
		return g.emitIncrement(v)
	case *ast.Decrement:
		return g.emitDecrement(v)
	case *ast.Block:
		return g.emitBlock(v)

	case *ast.Definition:
		return "", errors.InvariantViolation("code generator", "DefinitionStatement", v.Pos).Build()
	case *ast.Conditional:
		return "", errors.InvariantViolation("code generator", "ConditionalStatement", v.Pos).Build()
	case *ast.Iteration:
		return "", errors.InvariantViolation("code generator", "IterationStatement", v.Pos).Build()
	case *ast.CompoundAssign:
		return "", errors.InvariantViolation("code generator", "CompoundAssignStatement", v.Pos).Build()

	default:
		return "", fmt.Errorf("codegen: unsupported statement %T at %s", s, s.Span())
	}
}

// emitAssign records place's operand mapping (spec.md §4.5 "assign(v, e)").
// For an atomic RHS no instruction is emitted, only the mapping; for a
// compound RHS, place's own SSA name becomes the instruction's destination
// register directly (spec.md §8 scenario 1: "an add producing v$1" — the
// destination is the assignment's own name, not a synthesized one) and the
// expression emitter's instructions are returned as-is.
func (g *Generator) emitAssign(a *ast.Assign) (string, error) {
	place, ok := a.Place.(*ast.Identifier)
	if !ok {
		return "", errors.UnsupportedConstruct(
			fmt.Sprintf("assignment target %T is not a plain identifier", a.Place), a.Pos,
		).Build()
	}
	operand, instructions, err := g.emitExprNamed(a.Value, place.Name)
	if err != nil {
		return "", err
	}
	g.varmap[place.Name] = operand
	return instructions, nil
}

// emitReturn evaluates the return payload and emits one "output" line per
// component of the function's output type (spec.md §4.5, §8 scenario 3).
func (g *Generator) emitReturn(r *ast.Return) (string, error) {
	operand, instructions, err := g.emitExpr(r.Value)
	if err != nil {
		return "", err
	}
	types, err := g.returnTypes(g.current.Output, ast.ModeUnspecified)
	if err != nil {
		return "", err
	}
	operands := strings.Split(operand, "\n")
	if len(operands) != len(types) {
		return "", fmt.Errorf(
			"codegen: return arity mismatch: %d operand(s) for a %d-component output type in function %q",
			len(operands), len(types), g.current.Name,
		)
	}
	var b strings.Builder
	b.WriteString(instructions)
	for i, op := range operands {
		fmt.Fprintf(&b, "    output %s as %s;\n", op, types[i])
	}
	return b.String(), nil
}

func (g *Generator) emitFinalize(f *ast.Finalize) (string, error) {
	var b strings.Builder
	operands := make([]string, len(f.Args))
	for i, a := range f.Args {
		operand, instructions, err := g.emitExpr(a)
		if err != nil {
			return "", err
		}
		b.WriteString(instructions)
		operands[i] = operand
	}
	fmt.Fprintf(&b, "    async %s %s;\n", g.current.Name, strings.Join(operands, " "))
	return b.String(), nil
}

func (g *Generator) emitConsoleAssert(c *ast.ConsoleAssert) (string, error) {
	var b strings.Builder
	left, leftInstr, err := g.emitExpr(c.Left)
	if err != nil {
		return "", err
	}
	b.WriteString(leftInstr)

	switch c.Kind {
	case ast.AssertEq, ast.AssertNeq:
		right, rightInstr, err := g.emitExpr(c.Right)
		if err != nil {
			return "", err
		}
		b.WriteString(rightInstr)
		mnemonic := "assert.eq"
		if c.Kind == ast.AssertNeq {
			mnemonic = "assert.neq"
		}
		fmt.Fprintf(&b, "    %s %s %s;\n", mnemonic, left, right)
	default:
		// A bare console.assert(e) reuses assert.eq against the literal
		// boolean "true" (SPEC_FULL.md §4 item 7; the Leo source always
		// compares to the boolean true regardless of e's own type).
		fmt.Fprintf(&b, "    assert.eq %s true;\n", left)
	}
	return b.String(), nil
}

func (g *Generator) emitIncrement(v *ast.Increment) (string, error) {
	return g.emitMappingOp("increment", v.Mapping, v.Key, v.Amount)
}

func (g *Generator) emitDecrement(v *ast.Decrement) (string, error) {
	return g.emitMappingOp("decrement", v.Mapping, v.Key, v.Amount)
}

func (g *Generator) emitMappingOp(mnemonic, mapping string, key, amount ast.Expr) (string, error) {
	var b strings.Builder
	keyOp, keyInstr, err := g.emitExpr(key)
	if err != nil {
		return "", err
	}
	b.WriteString(keyInstr)
	amountOp, amountInstr, err := g.emitExpr(amount)
	if err != nil {
		return "", err
	}
	b.WriteString(amountInstr)
	fmt.Fprintf(&b, "    %s %s[%s] by %s;\n", mnemonic, mapping, keyOp, amountOp)
	return b.String(), nil
}

// binaryMnemonics maps a Binary operator to its target-bytecode opcode
// (spec.md §8 scenario 1's "is.eq"/"add" naming).
var binaryMnemonics = map[string]string{
	"+":  "add",
	"-":  "sub",
	"*":  "mul",
	"/":  "div",
	"%":  "rem",
	"&":  "and",
	"|":  "or",
	"^":  "xor",
	"<<": "shl",
	">>": "shr",
	"&&": "and",
	"||": "or",
	"==": "is.eq",
	"!=": "is.neq",
	"<":  "lt",
	"<=": "lte",
	">":  "gt",
	">=": "gte",
}

var unaryMnemonics = map[string]string{
	"!": "not",
	"-": "neg",
}

// emitExpr produces (operand, instructions) for e (spec.md §4.5 "Expression
// emission"). Atomic expressions (identifier, literal) and a MemberAccess
// whose target is itself atomic produce no instructions — both are valid
// inline operand text at this target's bytecode level. Any other shape
// recursively emits its sub-operands, allocates a target register, and
// emits one three-address instruction for it.
func (g *Generator) emitExpr(e ast.Expr) (string, string, error) {
	switch v := e.(type) {
	case *ast.Literal:
		return v.Value, "", nil

	case *ast.Identifier:
		return g.operand(v.Name), "", nil

	case *ast.MemberAccess:
		target, instr, err := g.emitExpr(v.Target)
		if err != nil {
			return "", "", err
		}
		return fmt.Sprintf("%s.%s", target, v.Name), instr, nil

	case *ast.TupleAccess:
		target, instr, err := g.emitExpr(v.Target)
		if err != nil {
			return "", "", err
		}
		return fmt.Sprintf("%s.%d", target, v.Index), instr, nil

	case *ast.Binary:
		return g.emitBinary(v, "")

	case *ast.Unary:
		return g.emitUnary(v, "")

	case *ast.Ternary:
		return g.emitTernary(v, "")

	case *ast.Call:
		return g.emitCall(v, "")

	case *ast.AssociatedFunctionAccess:
		return g.emitAssociatedCall(v, "")

	case *ast.CompositeInit:
		return g.emitCompositeInit(v, "")

	case *ast.Tuple:
		return g.emitTuple(v)

	default:
		return "", "", fmt.Errorf("codegen: unsupported expression %T at %s", e, e.Span())
	}
}

// emitExprNamed is emitExpr's counterpart for an Assign's RHS: a compound
// expression's destination operand is the assignment's own place name
// (spec.md §8 scenario 1: "an add producing v$1" — the destination is the
// statement's own SSA name, not a synthesized one), since every Assign in
// SSA form already is a uniquely-named three-address instruction. Atomic
// expressions and Tuple have no destination register at all, so they fall
// straight through to emitExpr unchanged.
func (g *Generator) emitExprNamed(e ast.Expr, name string) (string, string, error) {
	switch v := e.(type) {
	case *ast.Binary:
		return g.emitBinary(v, name)
	case *ast.Unary:
		return g.emitUnary(v, name)
	case *ast.Ternary:
		return g.emitTernary(v, name)
	case *ast.Call:
		return g.emitCall(v, name)
	case *ast.AssociatedFunctionAccess:
		return g.emitAssociatedCall(v, name)
	case *ast.CompositeInit:
		return g.emitCompositeInit(v, name)
	default:
		return g.emitExpr(e)
	}
}

// dest returns name as the destination operand if one was given (the
// Assign-place hint from emitExprNamed), otherwise allocates a fresh
// register — the path spec.md §4.5 describes for a non-atomic expression
// the SSA pass did not already bind to a name of its own.
func (g *Generator) dest(name string) string {
	if name != "" {
		return name
	}
	return g.register()
}

// operand resolves name through the variable mapping (spec.md §4.5
// "variable_mapping"), falling back to the bare name for a free variable
// that was never the LHS of an Assign in this function (a parameter or
// storage reference).
func (g *Generator) operand(name string) string {
	if op, ok := g.varmap[name]; ok {
		return op
	}
	return name
}

func (g *Generator) emitBinary(v *ast.Binary, name string) (string, string, error) {
	mnemonic, ok := binaryMnemonics[v.Op]
	if !ok {
		return "", "", fmt.Errorf("codegen: unsupported binary operator %q at %s", v.Op, v.Pos)
	}
	left, leftInstr, err := g.emitExpr(v.Left)
	if err != nil {
		return "", "", err
	}
	right, rightInstr, err := g.emitExpr(v.Right)
	if err != nil {
		return "", "", err
	}
	reg := g.dest(name)
	var b strings.Builder
	b.WriteString(leftInstr)
	b.WriteString(rightInstr)
	fmt.Fprintf(&b, "    %s %s %s into %s;\n", mnemonic, left, right, reg)
	return reg, b.String(), nil
}

func (g *Generator) emitUnary(v *ast.Unary, name string) (string, string, error) {
	mnemonic, ok := unaryMnemonics[v.Op]
	if !ok {
		return "", "", fmt.Errorf("codegen: unsupported unary operator %q at %s", v.Op, v.Pos)
	}
	operand, instr, err := g.emitExpr(v.Operand)
	if err != nil {
		return "", "", err
	}
	reg := g.dest(name)
	var b strings.Builder
	b.WriteString(instr)
	fmt.Fprintf(&b, "    %s %s into %s;\n", mnemonic, operand, reg)
	return reg, b.String(), nil
}

func (g *Generator) emitTernary(v *ast.Ternary, name string) (string, string, error) {
	cond, condInstr, err := g.emitExpr(v.Cond)
	if err != nil {
		return "", "", err
	}
	ifTrue, trueInstr, err := g.emitExpr(v.IfTrue)
	if err != nil {
		return "", "", err
	}
	ifFalse, falseInstr, err := g.emitExpr(v.IfFalse)
	if err != nil {
		return "", "", err
	}
	reg := g.dest(name)
	var b strings.Builder
	b.WriteString(condInstr)
	b.WriteString(trueInstr)
	b.WriteString(falseInstr)
	fmt.Fprintf(&b, "    ternary %s %s %s into %s;\n", cond, ifTrue, ifFalse, reg)
	return reg, b.String(), nil
}

func (g *Generator) emitCall(v *ast.Call, name string) (string, string, error) {
	operands, instr, err := g.emitExprList(v.Args)
	if err != nil {
		return "", "", err
	}
	reg := g.dest(name)
	var b strings.Builder
	b.WriteString(instr)
	fmt.Fprintf(&b, "    call %s %s into %s;\n", v.Callee, strings.Join(operands, " "), reg)
	return reg, b.String(), nil
}

func (g *Generator) emitAssociatedCall(v *ast.AssociatedFunctionAccess, name string) (string, string, error) {
	operands, instr, err := g.emitExprList(v.Args)
	if err != nil {
		return "", "", err
	}
	reg := g.dest(name)
	var b strings.Builder
	b.WriteString(instr)
	callee := fmt.Sprintf("%s::%s", v.TypeName, v.Name)
	if len(operands) > 0 {
		fmt.Fprintf(&b, "    call %s %s into %s;\n", callee, strings.Join(operands, " "), reg)
	} else {
		fmt.Fprintf(&b, "    call %s into %s;\n", callee, reg)
	}
	return reg, b.String(), nil
}

func (g *Generator) emitCompositeInit(v *ast.CompositeInit, name string) (string, string, error) {
	suffix, err := g.symtab.CompositeSuffix(v.TypeName)
	if err != nil {
		return "", "", err
	}
	operands := make([]string, len(v.Members))
	var b strings.Builder
	for i, m := range v.Members {
		op, instr, err := g.emitExpr(m.Value)
		if err != nil {
			return "", "", err
		}
		b.WriteString(instr)
		operands[i] = op
	}
	reg := g.dest(name)
	fmt.Fprintf(&b, "    cast %s into %s as %s.%s;\n", strings.Join(operands, " "), reg, strings.ToLower(v.TypeName), suffix)
	return reg, b.String(), nil
}

func (g *Generator) emitTuple(v *ast.Tuple) (string, string, error) {
	operands, instr, err := g.emitExprList(v.Elements)
	if err != nil {
		return "", "", err
	}
	return strings.Join(operands, "\n"), instr, nil
}

func (g *Generator) emitExprList(exprs []ast.Expr) ([]string, string, error) {
	operands := make([]string, len(exprs))
	var b strings.Builder
	for i, e := range exprs {
		op, instr, err := g.emitExpr(e)
		if err != nil {
			return nil, "", err
		}
		b.WriteString(instr)
		operands[i] = op
	}
	return operands, b.String(), nil
}

// register allocates a fresh target-register name for a non-atomic
// expression the SSA pass did not already bind to a name of its own.
// Per spec.md §4.5 this path is only exercised when SSA was bypassed — the
// code generator owns its own per-function counter, disjoint from
// rename.Assigner, so it never needs to share that pass's state. Resetting
// it at the start of Function keeps emission deterministic across repeated
// compilations of the same function (spec.md §8).
func (g *Generator) register() string {
	g.registers++
	return fmt.Sprintf("r$%d", g.registers)
}
