package ast

import "fmt"

// Kind enumerates the primitive and compound type families the code
// generator must eventually be able to emit.
type Kind int

const (
	KindInvalid Kind = iota
	KindU8
	KindU16
	KindU32
	KindU64
	KindU128
	KindI8
	KindI16
	KindI32
	KindI64
	KindI128
	KindField
	KindGroup
	KindScalar
	KindBool
	KindAddress
	KindString
	KindComposite
	KindTuple
)

// Type is a value type in the source language. Composite carries the name
// of a user-defined circuit/record (looked up in the symbol table); Tuple
// carries its element types and must be decomposed before it reaches the
// code generator (spec.md §4.5: "Tuple types must have been decomposed by
// upstream passes; error otherwise").
type Type struct {
	Kind      Kind
	Composite string  // valid when Kind == KindComposite
	Elements  []*Type // valid when Kind == KindTuple
}

var primitiveKeywords = map[Kind]string{
	KindU8:      "u8",
	KindU16:     "u16",
	KindU32:     "u32",
	KindU64:     "u64",
	KindU128:    "u128",
	KindI8:      "i8",
	KindI16:     "i16",
	KindI32:     "i32",
	KindI64:     "i64",
	KindI128:    "i128",
	KindField:   "field",
	KindGroup:   "group",
	KindScalar:  "scalar",
	KindBool:    "boolean",
	KindAddress: "address",
	KindString:  "string",
}

// IsPrimitive reports whether t is one of the scalar keyword types.
func (t *Type) IsPrimitive() bool {
	_, ok := primitiveKeywords[t.Kind]
	return ok
}

// Keyword returns the lowercase target-bytecode keyword for a primitive
// type. Callers must check IsPrimitive (or Kind) before calling it; it
// panics on a composite or tuple type.
func (t *Type) Keyword() string {
	kw, ok := primitiveKeywords[t.Kind]
	if !ok {
		panic(fmt.Sprintf("ast: Keyword() called on non-primitive type %v", t.Kind))
	}
	return kw
}

func (t *Type) String() string {
	switch t.Kind {
	case KindComposite:
		return t.Composite
	case KindTuple:
		s := "("
		for i, e := range t.Elements {
			if i > 0 {
				s += ", "
			}
			s += e.String()
		}
		return s + ")"
	default:
		if kw, ok := primitiveKeywords[t.Kind]; ok {
			return kw
		}
		return "<invalid>"
	}
}

// Convenience constructors for the small set of types a caller (or the
// fixture front end) needs to build by hand.
func PrimitiveType(k Kind) *Type      { return &Type{Kind: k} }
func CompositeType(name string) *Type { return &Type{Kind: KindComposite, Composite: name} }
func TupleType(elems ...*Type) *Type  { return &Type{Kind: KindTuple, Elements: elems} }

// Mode is the visibility annotation carried by function inputs and, in the
// output-type position, by return values. ModeUnspecified defaults to
// private at code-generation time (spec.md §4.5, §9).
type Mode int

const (
	ModeUnspecified Mode = iota
	ModePrivate
	ModePublic
)

func (m Mode) String() string {
	switch m {
	case ModePublic:
		return "public"
	default:
		return "private"
	}
}
