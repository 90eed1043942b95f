package study

import (
	"errors"
	"fmt"
)

const (
	// NoTextMessage is the artifact returned when there is nothing to summarize.
	NoTextMessage = "No text could be found. The file might be blank or unreadable."

	// ServiceErrorPrefix starts every artifact produced from a failed inference call.
	ServiceErrorPrefix = "AI Service Error: "
)

var (
	// ErrNoText is returned when the input is empty after trimming. No request is sent.
	ErrNoText = errors.New("no text to summarize")

	// ErrInferenceFailed is returned when the backend call fails on every attempt.
	ErrInferenceFailed = errors.New("inference request failed")

	// ErrEmptyCompletion is returned when the backend answers without usable content.
	ErrEmptyCompletion = errors.New("empty completion")
)

// InferenceError describes a failed generation with the model that was asked.
type InferenceError struct {
	Op    string
	Model string
	Err   error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("%s (model %s): %v", e.Op, e.Model, e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// Is reports every InferenceError as ErrInferenceFailed.
func (e *InferenceError) Is(target error) bool {
	return target == ErrInferenceFailed
}

// ServiceErrorMessage renders err the way it is shown in place of an artifact.
func ServiceErrorMessage(err error) string {
	var infErr *InferenceError
	if errors.As(err, &infErr) {
		err = infErr.Err
	}
	return ServiceErrorPrefix + err.Error()
}
