package notify

import "fmt"

// ErrInvalidConfig reports a config field failing validation.
type ErrInvalidConfig struct {
	Field  string
	Reason string
}

func (e ErrInvalidConfig) Error() string {
	return fmt.Sprintf("invalid notify config field %s: %s", e.Field, e.Reason)
}
