package cmdcheck

// RunOption configures RunSpecification.
type RunOption interface{}

type numTestsOption struct{ n int }

// Configure the number of generated sequences the search runs.
//
// Default value is 100.
func NumTests(n int) RunOption {
	return numTestsOption{n: n}
}

type maxSizeOption struct{ n int }

// Configure the maximum generation size, i.e. the command budget of one
// generated sequence.
//
// Default value is 200.
func MaxSize(n int) RunOption {
	return maxSizeOption{n: n}
}

type seedOption struct{ seed int64 }

// Configure the seed of the search, making the whole run reproducible.
//
// By default a fresh seed is chosen and reported in the result.
func WithSeed(seed int64) RunOption {
	return seedOption{seed: seed}
}

type triesOption struct{ n int }

// Configure how many times each generated sequence is executed, every time
// against a fresh subject. Every execution must pass. More than one try
// helps to catch nondeterministic subjects.
//
// Default value is 1.
func Tries(n int) RunOption {
	return triesOption{n: n}
}
