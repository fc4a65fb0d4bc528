package services

import "errors"

// Report service errors
var (
	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionLimit    = errors.New("too many open sessions")

	// Upload errors
	ErrEmptyUpload       = errors.New("upload is empty")
	ErrUploadTooLarge    = errors.New("upload exceeds size limit")
	ErrUnsupportedFormat = errors.New("unsupported export format")

	// Query errors
	ErrInvalidQuery = errors.New("invalid query")
)
