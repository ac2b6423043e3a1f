package runner

import (
	"errors"
	"testing"

	"cmdcheck/command"
	"cmdcheck/symbolic"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/stretchr/testify/require"
)

type register struct {
	value    int
	cleanups *int
}

// A register with set and read commands, instrumented to count cleanups.
func registerSpec(cleanups *int) *command.Specification[*register, int] {
	return &command.Specification[*register, int]{
		InitialState: func() int { return 0 },
		Setup: func() (*register, error) {
			return &register{cleanups: cleanups}, nil
		},
		Cleanup: func(r *register) {
			*r.cleanups++
		},
		Commands: map[string]*command.Command[*register, int]{
			"set": {
				GenArgs: func(int) gopter.Gen {
					return gen.IntRange(0, 100)
				},
				NextState: func(state int, args any, result any) int {
					return args.(int)
				},
				Run: func(r *register, args any) (any, error) {
					r.value = args.(int)
					return args, nil
				},
			},
			"read": {
				GenArgs: func(int) gopter.Gen {
					return gen.Const(struct{}{})
				},
				NextState: func(state int, args any, result any) int {
					return state
				},
				Run: func(r *register, args any) (any, error) {
					return r.value, nil
				},
				Postcondition: func(prev int, next int, args any, result any) bool {
					return result == next
				},
			},
		},
	}
}

func entry[T, S any](spec *command.Specification[T, S], v int, name string, args any) command.Entry[T, S] {
	cmd, ok := spec.Command(name)
	if !ok {
		panic("unknown command " + name)
	}
	return command.Entry[T, S]{
		Var:     symbolic.Variable(v),
		Name:    name,
		Command: cmd,
		Args:    args,
	}
}

func TestRunCommandsCompletes(t *testing.T) {
	cleanups := 0
	spec := registerSpec(&cleanups)
	seq := command.Sequence[*register, int]{
		entry(spec, 0, "set", 7),
		entry(spec, 1, "read", struct{}{}),
	}

	trace := RunCommands(spec, spec.Initial(), seq)

	require.True(t, trace.Completed())
	require.False(t, trace.Failed())
	require.NoError(t, trace.Err())
	require.Equal(t, 1, cleanups)

	// Per command: executed, advanced, checked. Then the terminal step.
	phases := []Phase{}
	for _, step := range trace.Steps {
		phases = append(phases, step.Phase)
	}
	require.Equal(t, []Phase{
		PhaseExecuted, PhaseAdvanced, PhaseChecked,
		PhaseExecuted, PhaseAdvanced, PhaseChecked,
		PhaseCompleted,
	}, phases)

	require.Equal(t, symbolic.Results{
		symbolic.Variable(0): 7,
		symbolic.Variable(1): 7,
	}, trace.Results)
}

func TestRunCommandsEmptySequence(t *testing.T) {
	cleanups := 0
	spec := registerSpec(&cleanups)

	trace := RunCommands(spec, spec.Initial(), command.Sequence[*register, int]{})

	require.True(t, trace.Completed())
	require.Len(t, trace.Steps, 1)
	require.Equal(t, 1, cleanups)
}

func TestRunCommandsStopsOnCommandError(t *testing.T) {
	cleanups := 0
	spec := registerSpec(&cleanups)
	spec.Commands["set"].Run = func(r *register, args any) (any, error) {
		return nil, errors.New("disk full")
	}
	seq := command.Sequence[*register, int]{
		entry(spec, 0, "set", 1),
		entry(spec, 1, "read", struct{}{}),
	}

	trace := RunCommands(spec, spec.Initial(), seq)

	require.True(t, trace.Failed())
	require.Equal(t, 1, cleanups)

	var cmdErr CommandError
	require.True(t, errors.As(trace.Err(), &cmdErr))
	require.Equal(t, "set", cmdErr.Command)

	// The failing command produced no executed step and no result, and the
	// second command never ran.
	require.Len(t, trace.Steps, 1)
	require.Empty(t, trace.Results)
}

func TestRunCommandsCatchesCommandPanic(t *testing.T) {
	cleanups := 0
	spec := registerSpec(&cleanups)
	spec.Commands["set"].Run = func(r *register, args any) (any, error) {
		panic("boom")
	}
	seq := command.Sequence[*register, int]{entry(spec, 0, "set", 1)}

	trace := RunCommands(spec, spec.Initial(), seq)

	require.True(t, trace.Failed())
	require.Equal(t, 1, cleanups)
	var cmdErr CommandError
	require.True(t, errors.As(trace.Err(), &cmdErr))
}

func TestRunCommandsCatchesTransitionPanic(t *testing.T) {
	cleanups := 0
	spec := registerSpec(&cleanups)
	spec.Commands["set"].NextState = func(state int, args any, result any) int {
		panic("bad transition")
	}
	seq := command.Sequence[*register, int]{entry(spec, 0, "set", 1)}

	trace := RunCommands(spec, spec.Initial(), seq)

	require.True(t, trace.Failed())
	require.Equal(t, 1, cleanups)

	var transErr TransitionError
	require.True(t, errors.As(trace.Err(), &transErr))
	require.Equal(t, "set", transErr.Command)

	// The command itself did execute and its result is recorded.
	require.Equal(t, PhaseExecuted, trace.Steps[0].Phase)
	require.Equal(t, 1, trace.Results[symbolic.Variable(0)])
}

func TestRunCommandsFailsOnUnresolvedReference(t *testing.T) {
	cleanups := 0
	spec := registerSpec(&cleanups)
	seq := command.Sequence[*register, int]{
		entry(spec, 0, "set", symbolic.Variable(99)),
	}

	trace := RunCommands(spec, spec.Initial(), seq)

	require.True(t, trace.Failed())
	require.Equal(t, 1, cleanups)

	var unresolved symbolic.UnresolvedError
	require.True(t, errors.As(trace.Err(), &unresolved))
	require.Equal(t, symbolic.Variable(99), unresolved.Variable)
}

func TestRunCommandsSetupError(t *testing.T) {
	cleanups := 0
	spec := registerSpec(&cleanups)
	spec.Setup = func() (*register, error) {
		return nil, errors.New("connection refused")
	}
	seq := command.Sequence[*register, int]{entry(spec, 0, "set", 1)}

	trace := RunCommands(spec, spec.Initial(), seq)

	require.True(t, trace.Failed())
	var setupErr SetupError
	require.True(t, errors.As(trace.Err(), &setupErr))
	// No subject was created, so cleanup must not run.
	require.Equal(t, 0, cleanups)
}

func TestRunCommandsResolvesSymbolicArguments(t *testing.T) {
	cleanups := 0
	spec := registerSpec(&cleanups)
	seq := command.Sequence[*register, int]{
		entry(spec, 0, "set", 42),
		// Reuse the result of the first set as the next argument.
		entry(spec, 1, "set", symbolic.Variable(0)),
	}

	trace := RunCommands(spec, spec.Initial(), seq)

	require.True(t, trace.Completed())
	require.Equal(t, 42, trace.Steps[3].Args)
	require.Equal(t, 42, trace.Results[symbolic.Variable(1)])
}

func TestCleanupPanicDoesNotMaskOutcome(t *testing.T) {
	cleanups := 0
	spec := registerSpec(&cleanups)
	spec.Cleanup = func(r *register) {
		panic("cleanup exploded")
	}
	seq := command.Sequence[*register, int]{entry(spec, 0, "set", 1)}

	trace := RunCommands(spec, spec.Initial(), seq)
	require.True(t, trace.Completed())
}
