package command

import (
	"fmt"
	"strings"

	"cmdcheck/symbolic"

	"github.com/leanovate/gopter"
)

// An Entry is one generated element of a command sequence: the symbolic
// variable standing in for its result, the chosen command and the raw
// arguments as generated. Arguments may contain symbolic variables of
// earlier entries.
//
// Entries are immutable once generated.
type Entry[T, S any] struct {
	Var     symbolic.Variable
	Name    string
	Command *Command[T, S]
	Args    any

	// Shrinker of the argument generator, captured at generation time so
	// that the entry's own arguments can be shrunk later.
	argShrinker gopter.Shrinker
}

func (e Entry[T, S]) String() string {
	return fmt.Sprintf("%v=%v(%v)", e.Var, e.Name, e.Args)
}

// A Sequence is an ordered list of command entries.
type Sequence[T, S any] []Entry[T, S]

func (s Sequence[T, S]) String() string {
	parts := make([]string, len(s))
	for i, e := range s {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Valid reports whether the sequence can be replayed from the given model
// state: at every position the command's requirement holds, the generated
// arguments pass its precondition and every symbolic reference in the
// arguments points at a strictly earlier entry of the sequence.
//
// Valid is used three ways: as the sieve of the sequence generator, as the
// filter discarding inconsistent shrink candidates, and on its own to check
// sequences supplied by hand.
func Valid[T, S any](spec *Specification[T, S], initial S, seq Sequence[T, S]) bool {
	state := initial
	minted := map[symbolic.Variable]bool{}
	for _, entry := range seq {
		if entry.Command == nil {
			return false
		}
		for _, ref := range symbolic.Variables(entry.Args) {
			if !minted[ref] {
				return false
			}
		}
		if !entry.Command.Allowed(state) {
			return false
		}
		if !entry.Command.Accepts(state, entry.Args) {
			return false
		}
		state = entry.Command.NextState(state, entry.Args, entry.Var)
		minted[entry.Var] = true
	}
	return true
}
