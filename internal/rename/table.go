// Package rename implements the two small, purely mechanical pieces the SSA
// pass leans on: a scoped rename table (spec.md §4.1) and a per-function
// unique symbol generator (spec.md §4.2). Neither holds any SSA-specific
// logic; they are the "linear structure, no hash merging on pop" bookkeeping
// the spec calls out as the only non-local part of an otherwise tree-local
// rewrite.
package rename

// Table is a stack of scoped frames mapping an original source name to the
// unique name currently visible for it. Frames are pushed on entering a
// conditional branch or block where divergent rebinding may occur and
// popped on exit; a frame's bindings are additive and never shared with a
// sibling frame (spec.md §4.1: "frames are never shared; a frame's bindings
// are additive within its scope... no hash merging on pop").
type Table struct {
	frames []frame
}

type frame map[string]string

// New returns a Table with a single empty top-level frame.
func New() *Table {
	return &Table{frames: []frame{make(frame)}}
}

// Push enters a nested scope.
func (t *Table) Push() {
	t.frames = append(t.frames, make(frame))
}

// Pop leaves the current scope and returns its bindings, so the caller
// (conditional-statement merge logic) can inspect exactly which names were
// rewritten inside it.
func (t *Table) Pop() map[string]string {
	n := len(t.frames)
	top := t.frames[n-1]
	t.frames = t.frames[:n-1]
	return top
}

// Update records that original currently refers to unique in the
// innermost (current) scope.
func (t *Table) Update(original, unique string) {
	t.frames[len(t.frames)-1][original] = unique
}

// Lookup walks frames from innermost to outermost and returns the first
// binding found for original.
func (t *Table) Lookup(original string) (string, bool) {
	for i := len(t.frames) - 1; i >= 0; i-- {
		if u, ok := t.frames[i][original]; ok {
			return u, true
		}
	}
	return "", false
}
