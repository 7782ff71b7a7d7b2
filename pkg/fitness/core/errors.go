package core

import (
	"errors"
	"fmt"
)

// Error codes for fitness evaluation
const (
	ErrCodeConfiguration  = 1
	ErrCodeSequencing     = 2
	ErrCodeInvalidInput   = 3
	ErrCodeNotInitialized = 4
)

// FitnessError is a structured error type for the fitness packages
type FitnessError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *FitnessError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("fitness: [%d] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("fitness: [%d] %s", e.Code, e.Message)
}

// Is matches any FitnessError carrying the same code, so errors built with
// Errorf compare equal to the predefined sentinels.
func (e *FitnessError) Is(target error) bool {
	t, ok := target.(*FitnessError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func NewError(code int, message string, details ...string) error {
	err := &FitnessError{
		Code:    code,
		Message: message,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

// Errorf returns a FitnessError of the same class as sentinel with formatted details.
func Errorf(sentinel error, format string, args ...interface{}) error {
	base, ok := sentinel.(*FitnessError)
	if !ok {
		return fmt.Errorf(format+": %w", append(args, sentinel)...)
	}
	return &FitnessError{
		Code:    base.Code,
		Message: base.Message,
		Details: fmt.Sprintf(format, args...),
	}
}

// Code extracts the error code, or 0 if err is not a FitnessError.
func Code(err error) int {
	var fe *FitnessError
	if errors.As(err, &fe) {
		return fe.Code
	}
	return 0
}

// Predefined errors
var (
	ErrConfiguration  = NewError(ErrCodeConfiguration, "configuration violation")
	ErrSequencing     = NewError(ErrCodeSequencing, "sequencing violation")
	ErrInvalidInput   = NewError(ErrCodeInvalidInput, "invalid input data")
	ErrNotInitialized = NewError(ErrCodeNotInitialized, "method not initialized")
)
