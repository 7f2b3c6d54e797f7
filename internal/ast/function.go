package ast

// Param is one function or finalize-block input.
type Param struct {
	Pos  Position
	Name string
	Type *Type
	Mode Mode
}

// FinalizeBlock is the optional post-execution block a Function may carry,
// used to commit persistent state after the main body completes.
type FinalizeBlock struct {
	Pos    Position
	Inputs []*Param
	Output *Type
	Body   *Block
}

// Function is a top-level function: its signature, body, and optional
// finalize block. Annotations carries source-level attributes (e.g.
// "@program") that the code generator does not interpret but preserves for
// the driver.
type Function struct {
	Pos         Position
	Name        string
	Inputs      []*Param
	Output      *Type
	Body        *Block
	Finalize    *FinalizeBlock // nil if the function has no finalize block
	Annotations []string
}

// Program is the compilation unit: a package name and its functions.
type Program struct {
	Name      string
	Functions []*Function
}
