package types

import "context"

// Runner is a long-running unit of work. Run blocks until the context is
// cancelled or the unit fails. Cancellation is observed between iterations.
type Runner interface {
	Run(ctx context.Context) error
}

type RunnerFunc func(ctx context.Context) error

func (f RunnerFunc) Run(ctx context.Context) error {
	return f(ctx)
}
