package repo

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTarget matches any InvalidTargetError via errors.Is.
	ErrInvalidTarget = errors.New("invalid target")
	ErrEmptyTitle    = errors.New("title must not be empty")
)

// InvalidTargetError reports an operation that referenced a thread or
// conversation that does not exist.
type InvalidTargetError struct {
	Kind string
	ID   string
}

func (e InvalidTargetError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e InvalidTargetError) Is(target error) bool { return target == ErrInvalidTarget }
