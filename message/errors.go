package message

import (
	"errors"
	"fmt"
)

// FormatError is returned when a payload cannot be parsed in the selected
// format
type FormatError struct {
	Format Format
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed %s payload: %v", e.Format, e.Err)
}

// Unwrap returns the underlying parse error
func (e *FormatError) Unwrap() error {
	return e.Err
}

func formatError(format Format, err error) error {
	return &FormatError{Format: format, Err: err}
}

var (
	// ErrUnsupportedOperation is returned when a replacement or a deletion is
	// requested in a format that cannot represent it
	ErrUnsupportedOperation = errors.New("operation not supported by the message format")

	// ErrZeroOffsetTarget is returned when offset 0 is used as a mutation
	// target in the Protobuf format, where 0 means "unset"
	ErrZeroOffsetTarget = errors.New("offset 0 cannot be a mutation target in protobuf format")

	// ErrNegativeOffset is returned for negative mutation targets
	ErrNegativeOffset = errors.New("mutation target offset cannot be negative")

	// ErrConflictingMutation is returned for an envelope that both replaces
	// and deletes
	ErrConflictingMutation = errors.New("envelope cannot both replace and delete")
)
