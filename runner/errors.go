package runner

import "fmt"

// The error recorded when the real invocation of a command fails, either by
// returning an error or by panicking.
type CommandError struct {
	Command string
	Err     error
}

func (e CommandError) Error() string {
	return fmt.Sprintf("runner: Command %v failed: %v", e.Command, e.Err)
}

func (e CommandError) Unwrap() error {
	return e.Err
}

// The error recorded when a command's model transition function panics
// during execution. The persistent model state is not advanced.
type TransitionError struct {
	Command string
	Err     error
}

func (e TransitionError) Error() string {
	return fmt.Sprintf("runner: Transition of %v failed: %v", e.Command, e.Err)
}

func (e TransitionError) Unwrap() error {
	return e.Err
}

// The error recorded when setting up the real subject fails before any
// command is executed.
type SetupError struct {
	Err error
}

func (e SetupError) Error() string {
	return fmt.Sprintf("runner: Setup failed: %v", e.Err)
}

func (e SetupError) Unwrap() error {
	return e.Err
}
