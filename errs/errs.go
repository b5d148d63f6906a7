// Package errs defines the sentinel errors shared across the messaging core.
package errs

import "errors"

var (
	ErrEmptyText          = errors.New("message cannot be empty")
	ErrMissingReceiver    = errors.New("receiverId is required")
	ErrSelfMessage        = errors.New("sender and receiver must differ")
	ErrSenderMismatch     = errors.New("senderId does not match authenticated caller")
	ErrMissingCounterpart = errors.New("counterpart is required")
	ErrMissingToken       = errors.New("missing auth token")
	ErrInvalidToken       = errors.New("invalid auth token")
)
