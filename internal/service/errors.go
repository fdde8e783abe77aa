package service

import (
	"errors"
	"fmt"
)

// Error categories. The API layer maps each to one HTTP status; the specific
// errors below wrap a category so callers can match on either.
var (
	ErrValidation      = errors.New("validation error")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrInvalidState    = errors.New("invalid state")
	ErrConflict        = errors.New("conflict")
)

var (
	ErrReelNotFound      = fmt.Errorf("%w: reel not found", ErrNotFound)
	ErrUserNotFound      = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrNotReelOwner      = fmt.Errorf("%w: only the reel's author may do this", ErrForbidden)
	ErrInvalidVisibility = fmt.Errorf("%w: visibility must be one of public, followers, private", ErrValidation)
	ErrPlaybackURLNeeded = fmt.Errorf("%w: playbackUrl is required", ErrValidation)
	ErrEmptyPayload      = fmt.Errorf("%w: upload payload decoded to zero bytes", ErrValidation)
	ErrMalformedPayload  = fmt.Errorf("%w: upload payload is not valid base64", ErrValidation)
	ErrUploadTooLarge    = fmt.Errorf("%w: upload exceeds the 40 MiB limit", ErrPayloadTooLarge)
	ErrConcurrentUpdate  = fmt.Errorf("%w: reel status changed concurrently", ErrInvalidState)
	ErrForeignStorageKey = fmt.Errorf("%w: storageKey must stay under the reel's own storage namespace", ErrValidation)
)

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
