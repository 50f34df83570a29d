package opener

import (
	"errors"
	"fmt"
)

// ErrNoOpeners is returned when no candidate survived filtering. Nothing is
// stored in that case.
var ErrNoOpeners = errors.New("opener: no appropriate openers generated")

// GenerationError wraps a failure of the primary call to the text-generation
// service.
type GenerationError struct {
	Stage string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("opener: %s generation: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
