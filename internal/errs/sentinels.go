// Package errs contains sentinel errors shared by the repository and service layers.
package errs

import "errors"

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrBulkLimitExceeded indicates a caller submitted more rows than a single bulk insert accepts.
	ErrBulkLimitExceeded = errors.New("bulk insert limit exceeded")

	// ErrInvalidEvent indicates a meal event that cannot be applied to daily stats.
	ErrInvalidEvent = errors.New("invalid meal event")
)
