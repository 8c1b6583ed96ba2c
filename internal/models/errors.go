package models

import "errors"

// Domain errors shared across services. Handlers map these onto HTTP
// status codes with errors.Is.
var (
	// ErrValidation marks malformed or out-of-enum input. Nothing is
	// persisted when an update call fails validation.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks an unknown report or ticket id.
	ErrNotFound = errors.New("not found")

	// ErrRecognition marks a failed model invocation. Report submission
	// absorbs it into the manual_review path; ad-hoc recognition
	// surfaces it to the caller.
	ErrRecognition = errors.New("recognition failed")

	// ErrConflict marks a uniqueness violation, such as a taken
	// username or phone number.
	ErrConflict = errors.New("conflict")
)
