package worker

import "fmt"

// FlushError is a runtime fatal error: the batch of a sample could not be
// delivered. It terminates the worker that met it.
type FlushError struct {
	Sample string
	Err    error
}

func (e *FlushError) Error() string {
	return fmt.Sprintf("failed to flush a batch of sample %q: %s", e.Sample, e.Err)
}

func (e *FlushError) Unwrap() error {
	return e.Err
}
