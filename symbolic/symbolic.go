package symbolic

import "fmt"

// A Variable is a placeholder standing in for the result of a command that
// has not been executed yet.
//
// Variables are minted during sequence generation, one per generated command,
// numbered monotonically by generation order. A Variable is never mutated
// after creation and is used purely as a lookup key into a Results map.
type Variable int

func (v Variable) String() string {
	return fmt.Sprintf("var%d", int(v))
}

// Results maps a Variable to the concrete result produced when its
// originating command was executed.
//
// A Results map grows by exactly one entry per executed command.
// Entries are never removed and keys are never reused.
type Results map[Variable]any

// The error returned when resolving a Variable that has no entry in the
// Results map.
//
// An unresolved reference is a sequencing defect: the variable's originating
// command has not been executed before the variable was used.
type UnresolvedError struct {
	Variable Variable
}

func (e UnresolvedError) Error() string {
	return fmt.Sprintf("symbolic: No result recorded for %v", e.Variable)
}
