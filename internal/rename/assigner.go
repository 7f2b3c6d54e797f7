package rename

import "fmt"

// Assigner produces fresh, per-function-unique names of the form
// "<original-or-prefix>$<counter>" (spec.md §4.2). The counter is shared by
// the SSA pass and the flatten pass that runs after it: the driver
// constructs exactly one Assigner per function and threads it through both
// passes, so a flatten-pass fold ternary can never collide with a name the
// SSA pass already produced, without having to rely on prefix disjointness
// alone.
//
// Counter values are implementation-defined beyond "monotonic, unique, and
// deterministic within a function": every Fresh call takes the next value,
// including synthesized guards, so one variable's numbering can skip values
// (v$1 then v$3). See DESIGN.md's Open Question resolution for why both
// branch guards of a conditional are always bound.
type Assigner struct {
	counter int
}

// NewAssigner returns an Assigner whose counter starts at zero.
func NewAssigner() *Assigner {
	return &Assigner{}
}

// Fresh returns a new unique name built from prefix and advances the
// counter. prefix is either an original source identifier (for a renamed
// variable) or one of the reserved synthesis prefixes: "$cond$" (a
// conditional's materialized guard), "$var$" (an anonymous intermediate
// value), "ret$" (a flatten-pass return fold), or "fin$<i>$" (a flatten-pass
// finalize-argument fold for position i).
func (a *Assigner) Fresh(prefix string) string {
	name := fmt.Sprintf("%s$%d", prefix, a.counter)
	a.counter++
	return name
}

const (
	// PrefixCond names a conditional statement's materialized guard. Fresh
	// appends "$<counter>", so the first guard in a function is "$cond$0".
	PrefixCond = "$cond"
	// PrefixVar names an anonymous intermediate value with no more
	// specific name to inherit; Fresh yields "$var$0", "$var$1", ...
	PrefixVar = "$var"
	// PrefixReturn names a flatten-pass return-guard fold; Fresh yields
	// "ret$0", "ret$1", ...
	PrefixReturn = "ret"
)

// FinalizePrefix names the flatten-pass fold for finalize argument position
// i. Fresh appends "$<counter>", so position 0's first fold is "fin$0$0".
func FinalizePrefix(i int) string {
	return fmt.Sprintf("fin$%d", i)
}
