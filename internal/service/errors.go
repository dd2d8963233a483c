package service

import (
	"errors"
	"fmt"
)

// Error kinds. Every error the services return for a caller mistake wraps
// exactly one of these, so transports can map them with errors.Is.
var (
	ErrUnauthorized = errors.New("authorization required")
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
)

// Error is a caller-facing error of a given kind.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func validationf(format string, args ...any) error {
	return newError(ErrValidation, fmt.Sprintf(format, args...))
}

func notFoundf(format string, args ...any) error {
	return newError(ErrNotFound, fmt.Sprintf(format, args...))
}

// Service errors.
var (
	ErrConferenceNameRequired = newError(ErrValidation, "conference 'name' field required")
	ErrSessionNameRequired    = newError(ErrValidation, "session 'name' field required")
	ErrSpeakerNameRequired    = newError(ErrValidation, "speaker 'name' field required")
	ErrInvalidKey             = newError(ErrValidation, "invalid key")
	ErrInvalidTeeShirtSize    = newError(ErrValidation, "invalid tee shirt size")
	ErrAlreadyWishlisted      = newError(ErrValidation, "session already in wishlist")
	ErrMaxBelowRegistered     = newError(ErrValidation, "maxAttendees is below the number of registered attendees")
	ErrEndBeforeStart         = newError(ErrValidation, "endDate must not be before startDate")

	ErrConferenceNotFound = newError(ErrNotFound, "no conference found")
	ErrSessionNotFound    = newError(ErrNotFound, "no session found")
	ErrSpeakerNotFound    = newError(ErrNotFound, "no speaker found")
	ErrNotWishlisted      = newError(ErrNotFound, "session not in wishlist")

	ErrNotOwner = newError(ErrForbidden, "only the owner can update the conference")

	ErrAlreadyRegistered     = newError(ErrConflict, "you have already registered for this conference")
	ErrNoSeatsAvailable      = newError(ErrConflict, "there are no seats available")
	ErrRegistrationContended = newError(ErrConflict, "registration is contended, try again")
)
