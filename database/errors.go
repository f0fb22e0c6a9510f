package database

import "fmt"

// ResolutionError reports that a hostname yielded no usable IPv4 address.
type ResolutionError struct {
	Host string
	Err  error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("no IPv4 address for %s: %v", e.Host, e.Err)
	}
	return fmt.Sprintf("no IPv4 address for %s", e.Host)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// FatalConnectionError wraps a connection failure that did not match any
// known transient pattern. It is never retried.
type FatalConnectionError struct {
	Err error
}

func (e *FatalConnectionError) Error() string {
	return fmt.Sprintf("fatal connection error: %v", e.Err)
}

func (e *FatalConnectionError) Unwrap() error { return e.Err }

// ExhaustedError reports that the retry budget ran out. Retries is the
// number of retries performed after the initial attempt.
type ExhaustedError struct {
	Retries int
	Err     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("connection retries exhausted after %d retries: %v", e.Retries, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }
