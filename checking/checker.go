// Package checking validates recorded execution traces against the model.
//
// Validation replays a trace without touching the real subject: model
// transitions are recomputed independently of the runner and every
// postcondition checkpoint is evaluated against the recomputed states. This
// keeps one recorded trace independently verifiable, for example when
// reporting a shrunk counterexample.
package checking

import (
	"bytes"
	"errors"
	"fmt"
	"text/tabwriter"

	"cmdcheck/command"
	"cmdcheck/runner"
)

// The failure reported when a command's postcondition predicate returned
// false during validation.
type PostconditionError struct {
	Command string
	Step    int
}

func (e PostconditionError) Error() string {
	return fmt.Sprintf("checking: Postcondition of %v broken at step %v", e.Command, e.Step)
}

// A Verdict is the outcome of validating one trace.
type Verdict struct {
	Passed bool

	// Index of the trace step that failed validation. -1 when passed.
	Step int

	// Name of the command whose checkpoint or transition failed.
	Command string

	Err error
}

// Response returns the verdict together with a formatted description.
// If validation failed the description names the failing step.
func (v Verdict) Response() (bool, string) {
	if v.Passed {
		return true, "Trace is consistent with the model"
	}
	var buffer bytes.Buffer
	wrt := tabwriter.NewWriter(&buffer, 4, 4, 0, ' ', 0)
	fmt.Fprintf(wrt, "Trace broken at step %v. \n", v.Step)
	fmt.Fprintf(wrt, "-> %v \n", v.Err)
	wrt.Flush()
	return false, buffer.String()
}

// Passed replays the trace against the model and reports whether every
// postcondition held and the run completed.
func Passed[T, S any](spec *command.Specification[T, S], initial S, trace *runner.Trace) bool {
	return Check(spec, initial, trace).Passed
}

// Check replays the trace left to right, carrying the model state together
// with the state before the current command.
//
// On a state-advance step the model transition is recomputed here rather
// than trusted from the runner, guarding against a runner defect or a
// non-deterministic transition function. On a postcondition step the
// command's predicate is evaluated against the previous and new model
// states; the first broken predicate short-circuits the walk. A failed
// trace is never passed.
func Check[T, S any](spec *command.Specification[T, S], initial S, trace *runner.Trace) Verdict {
	var (
		prev  = initial
		state = initial
	)
	for i, step := range trace.Steps {
		switch step.Phase {
		case runner.PhaseExecuted:
			// Recorded for reporting and replay only. The model is not
			// involved in the invocation itself.

		case runner.PhaseAdvanced:
			cmd, ok := spec.Command(step.Command)
			if !ok {
				return fail(i, step.Command, fmt.Errorf("checking: Unknown command %v in trace", step.Command))
			}
			prev = state
			state = cmd.NextState(state, step.Args, step.Result)

		case runner.PhaseChecked:
			cmd, ok := spec.Command(step.Command)
			if !ok {
				return fail(i, step.Command, fmt.Errorf("checking: Unknown command %v in trace", step.Command))
			}
			if !cmd.Satisfied(prev, state, step.Args, step.Result) {
				return fail(i, step.Command, PostconditionError{Command: step.Command, Step: i})
			}

		case runner.PhaseCompleted:
			return Verdict{Passed: true, Step: -1}

		case runner.PhaseFailed:
			return fail(i, step.Command, step.Err)
		}
	}
	return fail(len(trace.Steps), "", errors.New("checking: Trace ended without a terminal step"))
}

func fail(step int, cmd string, err error) Verdict {
	return Verdict{
		Passed:  false,
		Step:    step,
		Command: cmd,
		Err:     err,
	}
}
