package util

// Failer is a step that may fail.
type Failer func() error

// Step pairs an action with the action reverting it.
type Step struct {
	Do   Failer
	Undo Failer
}

// ExecEnsure runs the steps in order and stops at the first failure. The
// steps that succeeded before it are reverted in reverse order; revert
// failures are ignored in favour of the original error.
func ExecEnsure(steps ...Step) error {
	for ix, step := range steps {
		if err := step.Do(); err != nil {
			for jx := ix - 1; jx >= 0; jx-- {
				if steps[jx].Undo != nil {
					steps[jx].Undo()
				}
			}
			return err
		}
	}
	return nil
}
