package service

import "errors"

var (
	// ErrNotFound reports an unknown action or event, or one owned by a
	// different user.
	ErrNotFound = errors.New("not found")

	// ErrConflict reports an action that already left the pending state. A
	// second execution attempt is rejected, never silently re-run.
	ErrConflict = errors.New("action already processed")

	// ErrValidation reports missing or malformed caller input.
	ErrValidation = errors.New("validation failed")
)
