package fixture

import (
	"fmt"
	"sync"

	"github.com/alecthomas/participle/v2"

	"triadc/internal/ast"
	"triadc/internal/symboltable"
)

var (
	buildOnce sync.Once
	built     *participle.Parser[Program]
	buildErr  error
)

// parser lazily builds the participle parser once per process, the same
// pattern internal/parser/parser.go's package-level buildParser() follows
// (a parser.Build call is expensive enough to want exactly one, not one
// per Parse call).
func parser() (*participle.Parser[Program], error) {
	buildOnce.Do(func() {
		built, buildErr = participle.Build[Program](
			participle.Lexer(Lexer),
			participle.Elide("Whitespace", "Comment"),
			participle.UseLookahead(3),
		)
	})
	return built, buildErr
}

// Parse parses source (named filename for diagnostics) in the fixture
// notation into an *ast.Program and the symboltable.Table describing its
// composite and function declarations.
func Parse(filename, source string) (*ast.Program, *symboltable.Table, error) {
	p, err := parser()
	if err != nil {
		return nil, nil, fmt.Errorf("fixture: building parser: %w", err)
	}
	tree, err := p.ParseString(filename, source)
	if err != nil {
		return nil, nil, fmt.Errorf("fixture: parsing %s: %w", filename, err)
	}
	return Convert(tree)
}
