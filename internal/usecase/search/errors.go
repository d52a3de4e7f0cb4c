package search

import "errors"

var (
	// ErrStoreUnavailable means the collection store cannot be reached.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrUserRequired means a per-user operation was called without a user id.
	ErrUserRequired = errors.New("user id required")
)
