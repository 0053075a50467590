package settings

import (
	"errors"
	"fmt"

	"github.com/awesome-flow/eventgen/pkg/types"
)

// ErrStructuralKey marks a token key whose shape can not be parsed. A stanza
// carrying such a key is dropped as a whole.
var ErrStructuralKey = errors.New("unparseable structural key")

// ValidationError reports a single rejected key. The key is skipped and the
// rest of the stanza is kept unless the cause is ErrStructuralKey.
type ValidationError struct {
	Stanza string
	Key    string
	Value  types.Value
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("stanza %q: invalid value %v for key %q: %s", e.Stanza, e.Value, e.Key, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsStructural returns true if err rejects the whole stanza.
func IsStructural(err error) bool {
	return errors.Is(err, ErrStructuralKey)
}
