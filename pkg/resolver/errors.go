package resolver

import "fmt"

// StanzaError rejects a whole stanza. Resolution continues without it.
type StanzaError struct {
	Stanza string
	Err    error
}

func (e *StanzaError) Error() string {
	return fmt.Sprintf("stanza %q rejected: %s", e.Stanza, e.Err)
}

func (e *StanzaError) Unwrap() error {
	return e.Err
}

// ConfigurationFatalError aborts startup.
type ConfigurationFatalError struct {
	Reason string
	Err    error
}

func (e *ConfigurationFatalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fatal configuration error: %s: %s", e.Reason, e.Err)
	}
	return fmt.Sprintf("fatal configuration error: %s", e.Reason)
}

func (e *ConfigurationFatalError) Unwrap() error {
	return e.Err
}
