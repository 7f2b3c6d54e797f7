// Package fixture is a small, test-only front end: it parses a compact
// textual notation into an *ast.Program plus the symboltable.Table the
// source's composite declarations describe. It exists only because
// lexing/parsing is an explicit external-collaborator Non-goal of this
// pipeline (spec.md §1, §6) — tests and the CLI demo still need a
// convenient way to build an ast.Program without hand-writing every node
// as a Go struct literal. It performs no type checking or name
// resolution; callers get exactly what the text says, same as the real
// front end this pipeline assumes upstream.
//
// The lexer is grounded on the teacher's grammar.KansoLexer
// (grammar/lexer.go): a participle stateful lexer with the same ordering
// discipline (comments before numbers, numbers before identifiers,
// operators before bare punctuation).
package fixture

import "github.com/alecthomas/participle/v2/lexer"

// Lexer tokenizes the fixture notation. NumLiteral captures a full typed
// numeral (e.g. "1u8", "3field") as one token so the parser never has to
// reassemble a literal from separate digit/suffix tokens.
var Lexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Comment", `//[^\n]*`, nil},
		{"String", `"(\\.|[^"\\])*"`, nil},
		{"NumLiteral", `[0-9]+(u8|u16|u32|u64|u128|i8|i16|i32|i64|i128|field|group|scalar)?`, nil},
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*`, nil},
		{"Operator", `(\|\||&&|==|!=|<=|>=|\+=|-=|\*=|/=|%=|::|[-+*/%=!<>])`, nil},
		{"Punctuation", `[{}\[\]:,;().?]`, nil},
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
