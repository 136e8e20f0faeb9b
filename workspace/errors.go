package workspace

import (
	"errors"
	"fmt"
)

// Sentinel errors for loading.
var (
	ErrNotFound  = errors.New("path not found")
	ErrNoSources = errors.New("no .ent files found")
)

// LoadError is returned when a path cannot be discovered or read.
type LoadError struct {
	Path  string
	Cause error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Cause)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}
