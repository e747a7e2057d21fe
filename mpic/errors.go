package mpic

import "errors"

// Errors describing unusable answers from file lookups.
var (
	ErrFileNotFound     = errors.New("mpic: file not found")
	ErrFileClientStatus = errors.New("mpic: client error status")
	ErrFileServerStatus = errors.New("mpic: server error status")

	// ErrFileValueMissing marks a 2xx answer whose body lacks the value
	// being matched. The lookup skips such URLs instead of stopping at
	// them, so a catch-all page on one scheme cannot mask the challenge
	// served on another.
	ErrFileValueMissing = errors.New("mpic: match value missing from response body")
)
