package main

// Exit codes: a small closed set distinguishing usage errors from
// runtime failures from interrupts, rather than the conventional 0/1 a
// library-style CLI would settle for.
const (
	codeOK = 0
	// codeError is the catch-all for a file that failed optimize/estimate
	// after usage and input were both valid.
	codeError = 1
	// codeBadUsage covers flag/argument misuse.
	codeBadUsage = 2
	// codeBadInput covers files that can't even be read off disk.
	codeBadInput = 3
	// codeUnsupportedFormat mirrors imaging.CodeUnsupportedMediaType.
	codeUnsupportedFormat = 4
	// codeInterrupted follows the shell convention of 128+SIGINT.
	codeInterrupted = 130
)

// exitCodeError pairs an error with the process exit code it should
// produce.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string {
	return e.err.Error()
}

func (e *exitCodeError) Unwrap() error {
	return e.err
}

func newExitError(code int, err error) *exitCodeError {
	return &exitCodeError{code: code, err: err}
}
