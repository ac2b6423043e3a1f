// Package cmdcheck is a stateful, model-based testing engine.
//
// A Specification describes the commands of a real stateful subject together
// with an abstract model of it. cmdcheck generates random valid command
// sequences, executes them against both the model and a live subject,
// checks that real outcomes match the model's predictions and, on failure,
// searches for a minimal failing sequence.
//
// The random generation, shrinking and search machinery is gopter's;
// cmdcheck owns the symbolic-value mechanism, the dependent-state sequence
// generator, the command runner and the trace validator.
package cmdcheck

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"text/tabwriter"

	"cmdcheck/checking"
	"cmdcheck/command"
	"cmdcheck/runner"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/prop"
)

// The structured failure raised when an executed sequence does not match
// the model. It carries everything the shrink search and the report need:
// the initial model state, the full trace of the failing try and the
// validator's verdict.
type SequenceError struct {
	Initial any
	Trace   *runner.Trace
	Try     int
	Verdict checking.Verdict
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("cmdcheck: Sequence failed on try %v at step %v: %v", e.Try, e.Verdict.Step, e.Verdict.Err)
}

func (e *SequenceError) Unwrap() error {
	return e.Verdict.Err
}

// AsProperty wires the sequence generator, the runner and the validator
// into a single gopter property.
//
// Each generated sequence is executed tries times, every time against a
// fresh model state and a fresh subject, and every execution must validate.
// The first failing try raises a SequenceError and skips the remaining
// tries, handing the sequence to gopter's shrink search.
func AsProperty[T, S any](spec *command.Specification[T, S], tries int) gopter.Prop {
	if tries < 1 {
		tries = 1
	}
	return prop.ForAll(
		func(seq command.Sequence[T, S]) (bool, error) {
			for try := 0; try < tries; try++ {
				initial := spec.Initial()
				trace := runner.RunCommands(spec, initial, seq)
				verdict := checking.Check(spec, initial, trace)
				if !verdict.Passed {
					return false, &SequenceError{
						Initial: initial,
						Trace:   trace,
						Try:     try,
						Verdict: verdict,
					}
				}
			}
			return true, nil
		},
		command.Generate(spec),
	)
}

// The Result of running a specification through the search loop.
type Result[T, S any] struct {
	Passed bool

	// Outcome of the search as reported by gopter, e.g. PASSED or FAILED.
	Status string

	// Number of sequences that passed before the search ended.
	NumTests int

	// The seed the search ran with. Reuse it with WithSeed to reproduce
	// the run.
	Seed int64

	// On failure: the minimal shrunk failing sequence, the sequence as
	// originally generated, and the number of shrink steps between them.
	Sequence command.Sequence[T, S]
	Original command.Sequence[T, S]
	Shrinks  int

	// On failure: the structured failure of the shrunk sequence.
	Failure *SequenceError
}

// Report returns a plain text summary of the result.
//
// A passing result reports only the number of tests and the seed. A failing
// result reports the shrunk failing sequence, its trace and the seed.
func (r *Result[T, S]) Report() string {
	if r.Passed {
		return fmt.Sprintf("OK, passed %v tests. Seed: %v", r.NumTests, r.Seed)
	}

	var buffer bytes.Buffer
	wrt := tabwriter.NewWriter(&buffer, 4, 4, 0, ' ', 0)
	fmt.Fprintf(wrt, "FAILED (%v) after %v tests. Seed: %v \n", r.Status, r.NumTests, r.Seed)
	if r.Sequence != nil {
		fmt.Fprintf(wrt, "Shrunk sequence (%v shrinks): \n", r.Shrinks)
		for _, entry := range r.Sequence {
			fmt.Fprintf(wrt, "-> %v \n", entry)
		}
	}
	wrt.Flush()
	if r.Failure != nil && r.Failure.Trace != nil {
		r.Failure.Trace.Export(&buffer)
	}
	return buffer.String()
}

// RunSpecification searches for a command sequence that breaks the
// specification.
//
// Runs NumTests generated sequences (default 100) of at most MaxSize
// commands (default 200), each executed Tries times (default 1). Returns
// the full search result, including the seed used and, on failure, the
// original and minimal shrunk failing sequence with its trace.
func RunSpecification[T, S any](spec *command.Specification[T, S], opts ...RunOption) *Result[T, S] {
	var (
		numTests = 100
		maxSize  = 200
		tries    = 1

		seed    int64
		hasSeed = false
	)
	for _, opt := range opts {
		switch t := opt.(type) {
		case numTestsOption:
			numTests = t.n
		case maxSizeOption:
			maxSize = t.n
		case seedOption:
			seed = t.seed
			hasSeed = true
		case triesOption:
			tries = t.n
		}
	}

	var params *gopter.TestParameters
	if hasSeed {
		params = gopter.DefaultTestParametersWithSeed(seed)
	} else {
		params = gopter.DefaultTestParameters()
	}
	params.MinSuccessfulTests = numTests
	params.MaxSize = maxSize

	res := AsProperty(spec, tries).Check(params)

	out := &Result[T, S]{
		Passed:   res.Passed(),
		Status:   fmt.Sprintf("%v", res.Status),
		NumTests: res.Succeeded,
		Seed:     params.Seed(),
	}
	if !out.Passed {
		if len(res.Args) > 0 {
			arg := res.Args[0]
			if seq, ok := arg.Arg.(command.Sequence[T, S]); ok {
				out.Sequence = seq
			}
			if seq, ok := arg.OrigArg.(command.Sequence[T, S]); ok {
				out.Original = seq
			}
			out.Shrinks = arg.Shrinks
		}
		var seqErr *SequenceError
		if errors.As(res.Error, &seqErr) {
			out.Failure = seqErr
		}
	}

	slog.Debug("specification search finished",
		"status", res.Status,
		"tests", res.Succeeded,
		"discarded", res.Discarded,
		"seed", params.Seed(),
	)
	return out
}
