package command

import (
	"cmdcheck/symbolic"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
)

// Number of attempts to find a usable command for one sequence position
// before the sequence is ended early.
const selectRetries = 100

// Generate returns a generator of valid command sequences for the
// specification.
//
// Sequences are grown against a fresh model state: at every position a
// command name is drawn from the specification's selection policy, checked
// against the requirement and precondition gates, and the model state is
// advanced with a fresh symbolic variable standing in for the command's
// result. Rejected draws are retried without consuming budget.
//
// Shrinking removes chunks of commands and shrinks the arguments of
// individual entries; candidates that are no longer valid are discarded.
func Generate[T, S any](spec *Specification[T, S]) gopter.Gen {
	return func(params *gopter.GenParameters) *gopter.GenResult {
		seq := grow(spec, params)
		result := gopter.NewGenResult(seq, Shrinker(spec))
		result.Sieve = func(v interface{}) bool {
			cand, ok := v.(Sequence[T, S])
			return ok && Valid(spec, spec.Initial(), cand)
		}
		return result
	}
}

// Shrinker returns the shrinker used for generated sequences.
//
// The candidates are produced by gopter's slice shrinker, so one candidate
// either drops a chunk of commands or shrinks the arguments of a single
// entry. Dropping a command may orphan a symbolic reference in a later
// entry; such candidates are filtered out here rather than hidden inside
// candidate production.
func Shrinker[T, S any](spec *Specification[T, S]) gopter.Shrinker {
	sliceShrinker := gen.SliceShrinker(entryShrinker[T, S]())
	return func(v interface{}) gopter.Shrink {
		seq, ok := v.(Sequence[T, S])
		if !ok {
			return gopter.NoShrink
		}
		return sliceShrinker(seq).Filter(func(cand interface{}) bool {
			c, ok := cand.(Sequence[T, S])
			return ok && Valid(spec, spec.Initial(), c)
		})
	}
}

// Shrinks a single entry by shrinking its arguments with the shrinker
// captured at generation time. The variable, command and position are kept.
func entryShrinker[T, S any]() gopter.Shrinker {
	return func(v interface{}) gopter.Shrink {
		entry, ok := v.(Entry[T, S])
		if !ok || entry.argShrinker == nil {
			return gopter.NoShrink
		}
		return entry.argShrinker(entry.Args).Map(func(args interface{}) Entry[T, S] {
			shrunk := entry
			shrunk.Args = args
			return shrunk
		})
	}
}

func grow[T, S any](spec *Specification[T, S], params *gopter.GenParameters) Sequence[T, S] {
	var (
		seq   = Sequence[T, S]{}
		state = spec.Initial()
		count = 0
	)
	for size := params.MaxSize; size > 0; size-- {
		// Stop with probability 1 : size, so sequences end increasingly
		// often as the budget drains.
		if params.Rng.Intn(size+1) == 0 {
			break
		}
		entry, ok := next(spec, state, count, params)
		if !ok {
			break
		}
		state = entry.Command.NextState(state, entry.Args, entry.Var)
		seq = append(seq, entry)
		count++
	}
	return seq
}

// Draws the next usable entry for the current model state.
// A draw is rejected when the selection policy yields nothing, the command
// is unknown, its requirement fails or the generated arguments fail the
// precondition. Rejected draws are retried up to selectRetries times.
func next[T, S any](spec *Specification[T, S], state S, count int, params *gopter.GenParameters) (Entry[T, S], bool) {
	for attempt := 0; attempt < selectRetries; attempt++ {
		selected, ok := spec.selectCommand(state)(params).Retrieve()
		if !ok {
			continue
		}
		name, ok := selected.(string)
		if !ok {
			continue
		}
		cmd, ok := spec.Command(name)
		if !ok || !cmd.Allowed(state) {
			continue
		}

		argResult := cmd.GenArgs(state)(params)
		args, ok := argResult.Retrieve()
		if !ok {
			continue
		}
		if !cmd.Accepts(state, args) {
			continue
		}

		return Entry[T, S]{
			Var:         symbolic.Variable(count),
			Name:        name,
			Command:     cmd,
			Args:        args,
			argShrinker: argResult.Shrinker,
		}, true
	}
	return Entry[T, S]{}, false
}
