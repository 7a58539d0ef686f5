package lists

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyList        = errors.New("operation failed: list is empty")
	ErrValueNotFound    = errors.New("operation failed: value not found in list")
	ErrIndexOutOfBounds = errors.New("index is out of bounds")
)

// IndexError reports a positional access past the end of a non-empty list.
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %d is out of bounds (max: %d)", e.Index, e.Len-1)
}

func (e *IndexError) Unwrap() error {
	return ErrIndexOutOfBounds
}

func valueNotFound(value any) error {
	return fmt.Errorf("%w: %v", ErrValueNotFound, value)
}
