package errors

import (
	"fmt"

	"triadc/internal/ast"
)

// ErrorBuilder provides a fluent interface for attaching notes and help
// text to a CompilerError, mirroring the teacher's SemanticErrorBuilder.
type ErrorBuilder struct {
	err CompilerError
}

func newBuilder(code, message string, pos ast.Position) *ErrorBuilder {
	return &ErrorBuilder{
		err: CompilerError{
			Level:    Error,
			Code:     code,
			Message:  message,
			Position: pos,
			Length:   1,
		},
	}
}

// WithNote appends a context note.
func (b *ErrorBuilder) WithNote(note string) *ErrorBuilder {
	b.err.Notes = append(b.err.Notes, note)
	return b
}

// WithHelp sets the help text.
func (b *ErrorBuilder) WithHelp(help string) *ErrorBuilder {
	b.err.HelpText = help
	return b
}

// Build returns the finished CompilerError.
func (b *ErrorBuilder) Build() CompilerError {
	return b.err
}

// InvariantViolation builds an E0601 error: construct reached a pass that
// should never see it.
func InvariantViolation(pass, construct string, pos ast.Position) *ErrorBuilder {
	return newBuilder(ErrorInvariantViolation,
		fmt.Sprintf("%s encountered a %s, which an earlier pass should have removed", pass, construct),
		pos,
	).WithNote("this indicates a bug in the pipeline itself, not in the input program")
}

// UnsupportedConstruct builds an E0602 error: a user-reachable construct
// this pipeline does not support.
func UnsupportedConstruct(what string, pos ast.Position) *ErrorBuilder {
	return newBuilder(ErrorUnsupportedConstruct,
		fmt.Sprintf("unsupported construct: %s", what),
		pos,
	)
}

// IOError builds an E0603 error: the output writer could not produce the
// bytecode file. pos is the zero Position since an I/O failure has no
// source location to anchor on.
func IOError(path string, cause error) *ErrorBuilder {
	return newBuilder(ErrorIO,
		fmt.Sprintf("failed to write output %q: %v", path, cause),
		ast.Position{},
	)
}
