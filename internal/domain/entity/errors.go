package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyPrompt prompt is empty or whitespace only
	ErrEmptyPrompt = errors.New("empty prompt")

	// ErrNoImage provider answered without any image part
	ErrNoImage = errors.New("no image in response")

	// ErrSelectionNotFound selection arrived with no pending prompt
	ErrSelectionNotFound = errors.New("pending selection not found")

	// ErrAllBackendsFailed every adapter the policy allowed has failed
	ErrAllBackendsFailed = errors.New("all backends failed")

	// ErrUnknownProvider provider id is not configured
	ErrUnknownProvider = errors.New("unknown provider")
)

// GenerationError is the failure side of an ImageResult.
type GenerationError struct {
	Provider string
	Cause    error
}

func (e *GenerationError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: generation failed", e.Provider)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Cause)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}
