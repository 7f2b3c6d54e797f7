// Package symboltable provides the read-only oracle the SSA pass and code
// generator consult for composite-type layout. It mirrors the two-phase
// "populate, then read-only" lifecycle of the teacher's
// internal/types.TypeRegistry and internal/semantic.SymbolTable: a caller
// (the front end, or a test) builds a Table before compilation begins, and
// every pass from then on only ever calls its read methods.
package symboltable

import (
	"fmt"

	"triadc/internal/ast"
)

// CompositeMember is one ordered field of a composite (record/circuit)
// type.
type CompositeMember struct {
	Name string
	Type *ast.Type
}

// Composite is the full layout of a user-defined composite type: its
// ordered member list and the suffix ("record" or "circuit") the code
// generator appends to its emitted type name.
type Composite struct {
	Name    string
	Members []CompositeMember
	Suffix  string // "record" or "circuit"
}

// FunctionSignature is the input/output shape of a user-defined function,
// as registered by DefineFunction and returned by LookupFunction. The SSA
// pass and code generator do not read it: a call's result is always bound
// to a single fresh name.
type FunctionSignature struct {
	Name       string
	InputTypes []*ast.Type
	Output     *ast.Type
}

// Table is the read-only oracle. Its zero value is not usable; construct
// one with New.
type Table struct {
	composites map[string]*Composite
	functions  map[string]*FunctionSignature
}

// New returns an empty table ready for DefineComposite/DefineFunction
// calls.
func New() *Table {
	return &Table{
		composites: make(map[string]*Composite),
		functions:  make(map[string]*FunctionSignature),
	}
}

// DefineComposite registers a composite type's layout. Suffix must be
// "record" or "circuit"; it is asserted, not validated, since by the time
// this module sees a program the type checker has already accepted it.
func (t *Table) DefineComposite(name string, members []CompositeMember, suffix string) {
	t.composites[name] = &Composite{Name: name, Members: members, Suffix: suffix}
}

// DefineFunction registers a function's signature.
func (t *Table) DefineFunction(name string, inputs []*ast.Type, output *ast.Type) {
	t.functions[name] = &FunctionSignature{Name: name, InputTypes: inputs, Output: output}
}

// LookupComposite returns the layout of a composite type by name, or
// (nil, false) if it is unknown — which, this far into the pipeline, is an
// invariant-violation: the type checker guarantees every composite name
// reaching the SSA pass or code generator was already validated.
func (t *Table) LookupComposite(name string) (*Composite, bool) {
	c, ok := t.composites[name]
	return c, ok
}

// LookupFunction returns a function's signature by name, or (nil, false) if
// unknown.
func (t *Table) LookupFunction(name string) (*FunctionSignature, bool) {
	f, ok := t.functions[name]
	return f, ok
}

// CompositeSuffix is a convenience accessor returning just the
// "record"/"circuit" suffix, since that is all the code generator's type
// emission needs (spec.md §4.5).
func (t *Table) CompositeSuffix(name string) (string, error) {
	c, ok := t.composites[name]
	if !ok {
		return "", fmt.Errorf("symboltable: unknown composite type %q", name)
	}
	return c.Suffix, nil
}
