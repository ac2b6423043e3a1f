package command

import (
	"reflect"

	"github.com/leanovate/gopter"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// A Command describes one operation of the subject under test: how to
// generate its arguments, when it may be used, how it changes the model
// state, how to invoke the real operation and how to judge the outcome.
//
// GenArgs, NextState and Run must be set. The predicate fields are optional
// and default to true when nil.
//
// NextState must be a pure function. It is invoked once during generation
// with a symbolic.Variable standing in for the not-yet-known result, and
// again during execution and validation with the concrete result.
type Command[T, S any] struct {
	// Generate arguments for the command. The model state is visible so
	// that arguments can reference values the model already tracks,
	// including symbolic variables of earlier commands.
	GenArgs func(state S) gopter.Gen

	// Gate checked against the model state before arguments are generated.
	Requires func(state S) bool

	// Gate checked after argument generation.
	Precondition func(state S, args any) bool

	// Advance the model state.
	NextState func(state S, args any, result any) S

	// Invoke the real operation on the subject. A non-nil error fails the
	// run.
	Run func(subject T, args any) (any, error)

	// Correctness check evaluated by the validator against the model states
	// before and after the command.
	Postcondition func(prev S, next S, args any, result any) bool
}

// Allowed reports whether the command may be attempted in the given model
// state. Defaults to true when no Requires predicate is set.
func (c *Command[T, S]) Allowed(state S) bool {
	if c.Requires == nil {
		return true
	}
	return c.Requires(state)
}

// Accepts reports whether the generated arguments satisfy the command's
// precondition. Defaults to true when no Precondition predicate is set.
func (c *Command[T, S]) Accepts(state S, args any) bool {
	if c.Precondition == nil {
		return true
	}
	return c.Precondition(state, args)
}

// Satisfied reports whether the command's postcondition holds for the given
// model transition and result. Defaults to true when no Postcondition
// predicate is set.
func (c *Command[T, S]) Satisfied(prev S, next S, args any, result any) bool {
	if c.Postcondition == nil {
		return true
	}
	return c.Postcondition(prev, next, args, result)
}

// A Specification describes a stateful subject as a named set of commands
// together with the model state and subject lifecycle.
//
// T is the type of the real subject, S the type of the model state.
type Specification[T, S any] struct {
	// The commands of the subject, keyed by a name unique within the
	// specification.
	Commands map[string]*Command[T, S]

	// Generator choosing the name of the next command to try. Optional.
	// Defaults to a uniform choice over the sorted command names.
	SelectCommand func(state S) gopter.Gen

	// Construct a fresh model state. Optional, defaults to the zero value.
	InitialState func() S

	// Construct a fresh real subject for one sequence. Optional, defaults
	// to the zero value.
	Setup func() (T, error)

	// Release the subject after a sequence. Optional. Invoked exactly once
	// per sequence, on both successful and failed runs. Best effort: a
	// panic during cleanup is logged and never masks the run's outcome.
	Cleanup func(subject T)
}

// Command returns the command registered under name.
func (s *Specification[T, S]) Command(name string) (*Command[T, S], bool) {
	cmd, ok := s.Commands[name]
	return cmd, ok
}

// Names returns the command names in lexicographic order.
// Sorted so that a fixed seed reproduces the same sequences regardless of
// map iteration order.
func (s *Specification[T, S]) Names() []string {
	names := maps.Keys(s.Commands)
	slices.Sort(names)
	return names
}

// Initial returns a fresh model state.
func (s *Specification[T, S]) Initial() S {
	if s.InitialState == nil {
		var zero S
		return zero
	}
	return s.InitialState()
}

// NewSubject constructs a fresh real subject.
func (s *Specification[T, S]) NewSubject() (T, error) {
	if s.Setup == nil {
		var zero T
		return zero, nil
	}
	return s.Setup()
}

func (s *Specification[T, S]) selectCommand(state S) gopter.Gen {
	if s.SelectCommand != nil {
		return s.SelectCommand(state)
	}
	names := s.Names()
	return func(params *gopter.GenParameters) *gopter.GenResult {
		if len(names) == 0 {
			return gopter.NewEmptyResult(reflect.TypeOf(""))
		}
		name := names[params.Rng.Intn(len(names))]
		return gopter.NewGenResult(name, gopter.NoShrinker)
	}
}
