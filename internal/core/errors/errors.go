// Package errors provides centralized error definitions for the application.
// Errors are organized by domain to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import "errors"

// Bot API errors.
var (
	// ErrAPIRequestFailed indicates the Bot API returned a non-ok envelope.
	ErrAPIRequestFailed = errors.New("api request failed")

	// ErrStickerSetInvalid indicates the Bot API rejected a sticker set name.
	ErrStickerSetInvalid = errors.New("sticker set invalid")
)

// Normalization errors.
var (
	// ErrMissingID indicates a payload fragment lacked its identifying field.
	ErrMissingID = errors.New("missing identifier")

	// ErrUnexpectedPayload indicates a payload fragment had an unexpected shape.
	ErrUnexpectedPayload = errors.New("unexpected payload")
)

// Lifecycle errors.
var (
	// ErrShuttingDown indicates the service no longer accepts new work.
	ErrShuttingDown = errors.New("shutting down")
)
