// Package runner executes concrete command sequences against a live subject.
//
// Execution is a small state machine driven synchronously from NextCommand
// to a terminal Done or Fail state, recording one trace step per phase. The
// subject is exclusively owned by one run and released exactly once through
// the specification's cleanup hook, on both terminal states.
package runner

import (
	"fmt"
	"log/slog"

	"cmdcheck/command"
	"cmdcheck/symbolic"

	"golang.org/x/exp/maps"
)

// The states of the runner state machine.
type stateName int

const (
	stateNextCommand stateName = iota
	stateRunCommand
	stateNextState
	statePostcondition
	stateDone
	stateFail
)

// The persistent state of one run, carried independently of the trace.
type machine[T, S any] struct {
	spec    *command.Specification[T, S]
	subject T

	// Subject-facing model state, advanced with concrete results. It is a
	// second, structurally independent instance of the model: the instance
	// used during generation never reaches the runner.
	model S

	results   symbolic.Results
	remaining command.Sequence[T, S]
	trace     *Trace

	// Data handed from one state to the next.
	current command.Entry[T, S]
	args    any
	result  any
	err     error
}

// RunCommands executes the sequence against a freshly constructed subject
// and returns the full trace.
//
// The run starts in NextCommand and ends in exactly one of Done or Fail.
// Any panic inside the drive loop is caught at the top level and terminates
// the run as a failure. Cleanup is invoked exactly once in every case.
func RunCommands[T, S any](spec *command.Specification[T, S], initial S, seq command.Sequence[T, S]) *Trace {
	trace := newTrace()

	subject, err := spec.NewSubject()
	if err != nil {
		// No subject was created, so there is nothing to clean up.
		trace.add(Step{Phase: PhaseFailed, Err: SetupError{Err: err}})
		return trace
	}

	m := &machine[T, S]{
		spec:      spec,
		subject:   subject,
		model:     initial,
		results:   symbolic.Results{},
		remaining: seq,
		trace:     trace,
	}
	defer m.cleanup()

	state := stateNextCommand
	func() {
		defer func() {
			if r := recover(); r != nil {
				m.err = fmt.Errorf("runner: Run aborted by panic: %v", r)
				state = stateFail
			}
		}()
		for state != stateDone && state != stateFail {
			state = m.step(state)
		}
	}()

	trace.Results = maps.Clone(m.results)
	if state == stateFail {
		trace.add(Step{Phase: PhaseFailed, Err: m.err})
	} else {
		trace.add(Step{Phase: PhaseCompleted})
	}
	return trace
}

// One transition of the state machine.
func (m *machine[T, S]) step(state stateName) stateName {
	switch state {
	case stateNextCommand:
		if len(m.remaining) == 0 {
			return stateDone
		}
		entry := m.remaining[0]
		m.remaining = m.remaining[1:]

		args, err := symbolic.Resolve(entry.Args, m.results)
		if err != nil {
			m.err = err
			return stateFail
		}
		m.current, m.args = entry, args
		return stateRunCommand

	case stateRunCommand:
		result, err := m.invoke()
		if err != nil {
			m.err = err
			return stateFail
		}
		m.result = result
		m.results[m.current.Var] = result
		m.trace.add(Step{
			Phase:   PhaseExecuted,
			Command: m.current.Name,
			Var:     m.current.Var,
			Args:    m.args,
			Result:  result,
		})
		return stateNextState

	case stateNextState:
		next, err := m.advance()
		if err != nil {
			m.err = err
			return stateFail
		}
		m.model = next
		m.trace.add(Step{
			Phase:   PhaseAdvanced,
			Command: m.current.Name,
			Var:     m.current.Var,
			Args:    m.args,
			Result:  m.result,
		})
		return statePostcondition

	case statePostcondition:
		// The checkpoint records everything the validator needs. The
		// predicate itself is not evaluated here.
		m.trace.add(Step{
			Phase:   PhaseChecked,
			Command: m.current.Name,
			Var:     m.current.Var,
			Args:    m.args,
			Result:  m.result,
			Repr:    fmt.Sprintf("%v", m.result),
		})
		return stateNextCommand
	}
	return state
}

func (m *machine[T, S]) invoke() (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = CommandError{Command: m.current.Name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	result, runErr := m.current.Command.Run(m.subject, m.args)
	if runErr != nil {
		return nil, CommandError{Command: m.current.Name, Err: runErr}
	}
	return result, nil
}

func (m *machine[T, S]) advance() (next S, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = TransitionError{Command: m.current.Name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return m.current.Command.NextState(m.model, m.args, m.result), nil
}

// Release the subject. Best effort: a panic here is logged and never masks
// the outcome of the run.
func (m *machine[T, S]) cleanup() {
	if m.spec.Cleanup == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("cleanup panicked", "trace", m.trace.ID, "cause", r)
		}
	}()
	m.spec.Cleanup(m.subject)
}
