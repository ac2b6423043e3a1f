package runner

import (
	"bytes"
	"fmt"
	"io"
	"text/tabwriter"

	"cmdcheck/symbolic"

	"github.com/google/uuid"
)

// Phase tags a trace step with the part of the run that produced it.
type Phase int

const (
	// The real command was invoked and its result recorded.
	PhaseExecuted Phase = iota
	// The subject-facing model state was advanced with the concrete result.
	PhaseAdvanced
	// The postcondition checkpoint was recorded. The predicate itself is
	// evaluated by the validator, not here, so that the trace can be
	// verified without re-executing the subject.
	PhaseChecked
	// The run executed every command.
	PhaseCompleted
	// The run was aborted by an error.
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseExecuted:
		return "executed"
	case PhaseAdvanced:
		return "advanced"
	case PhaseChecked:
		return "checked"
	case PhaseCompleted:
		return "completed"
	case PhaseFailed:
		return "failed"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// A Step is one record of an execution trace.
//
// Which fields are set depends on the phase: Executed, Advanced and Checked
// steps carry the command name, its resolved arguments and the concrete
// result; Checked steps additionally carry a printable snapshot of the
// result; Failed steps carry the causing error.
type Step struct {
	Phase   Phase
	Command string
	Var     symbolic.Variable
	Args    any
	Result  any
	Repr    string
	Err     error
}

func (s Step) String() string {
	switch s.Phase {
	case PhaseCompleted:
		return "completed"
	case PhaseFailed:
		return fmt.Sprintf("failed: %v", s.Err)
	case PhaseChecked:
		return fmt.Sprintf("%v %v(%v) = %v", s.Phase, s.Command, s.Args, s.Repr)
	}
	return fmt.Sprintf("%v %v(%v) = %v", s.Phase, s.Command, s.Args, s.Result)
}

// A Trace is the ordered record of one sequence execution.
//
// A trace is produced once by RunCommands and read-only afterwards. It
// always ends in exactly one terminal step, Completed or Failed.
type Trace struct {
	// Identifies the run, so that traces of repeated executions of the same
	// sequence can be told apart in reports.
	ID uuid.UUID

	Steps []Step

	// Snapshot of the result map when the run ended.
	Results symbolic.Results
}

func newTrace() *Trace {
	return &Trace{
		ID:    uuid.New(),
		Steps: []Step{},
	}
}

func (t *Trace) add(s Step) {
	t.Steps = append(t.Steps, s)
}

// Completed reports whether the run executed every command.
func (t *Trace) Completed() bool {
	return len(t.Steps) > 0 && t.Steps[len(t.Steps)-1].Phase == PhaseCompleted
}

// Failed reports whether the run was aborted.
func (t *Trace) Failed() bool {
	return len(t.Steps) > 0 && t.Steps[len(t.Steps)-1].Phase == PhaseFailed
}

// Err returns the error that aborted the run, or nil.
func (t *Trace) Err() error {
	if !t.Failed() {
		return nil
	}
	return t.Steps[len(t.Steps)-1].Err
}

// Export writes a readable representation of the trace to the writer.
func (t *Trace) Export(w io.Writer) error {
	var buffer bytes.Buffer
	wrt := tabwriter.NewWriter(&buffer, 4, 4, 0, ' ', 0)
	fmt.Fprintf(wrt, "Trace %v \n", t.ID)
	for _, step := range t.Steps {
		fmt.Fprintf(wrt, "-> %v \n", step)
	}
	wrt.Flush()
	_, err := w.Write(buffer.Bytes())
	return err
}

func (t *Trace) String() string {
	var buffer bytes.Buffer
	t.Export(&buffer)
	return buffer.String()
}
