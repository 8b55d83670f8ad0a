package sequence

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexOutOfRange matches every IndexError.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrNotFound is returned by a Registry lookup that matches nothing.
	ErrNotFound = errors.New("sequence not found")
	// ErrDuplicate is returned when registering a name twice.
	ErrDuplicate = errors.New("sequence already registered")

	errNoValue = errors.New("compute returned no value")
)

const (
	msgNegativeIndex = "Index cannot be negative"
	msgIndexTooBig   = "Index is too big"
)

// IndexError reports an index outside [0, MaxIndex].
type IndexError struct {
	Index    int
	MaxIndex int
}

func (e *IndexError) Error() string {
	if e.Index < 0 {
		return msgNegativeIndex
	}
	return msgIndexTooBig
}

// Is makes errors.Is(err, ErrIndexOutOfRange) hold.
func (e *IndexError) Is(target error) bool { return target == ErrIndexOutOfRange }

// ComputationError wraps a failure raised while computing a member. Panics
// inside a compute function are recovered into this type as well.
type ComputationError struct {
	Sequence Name
	Index    int
	Err      error
}

// Error returns the originating message unchanged, since it is what clients see.
func (e *ComputationError) Error() string { return e.Err.Error() }

func (e *ComputationError) Unwrap() error { return e.Err }

func recovered(name Name, index int, r any) *ComputationError {
	err, ok := r.(error)
	if !ok {
		err = fmt.Errorf("%v", r)
	}
	return &ComputationError{Sequence: name, Index: index, Err: err}
}
