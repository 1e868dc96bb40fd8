package settings

import "fmt"

// ConfigError reports a malformed or out of range configuration value.
type ConfigError struct {
	Variable string
	Value    string
	Err      error
}

func (e *ConfigError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid configuration %s: %v", e.Variable, e.Err)
	}
	return fmt.Sprintf("invalid configuration %s=%q: %v", e.Variable, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Cause lets github.com/pkg/errors unwrap the error.
func (e *ConfigError) Cause() error {
	return e.Err
}
