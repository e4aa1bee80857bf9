package services

import "errors"

var (
	// ErrNotFound is returned when an update or lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrInvalid matches every *ValidationError via errors.Is.
	ErrInvalid = errors.New("invalid input")
)

// ValidationError is a rejected input; Msg is safe to show to users.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalid }

func invalid(msg string) error { return &ValidationError{Msg: msg} }
