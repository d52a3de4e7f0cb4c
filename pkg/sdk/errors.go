package unisearch

import (
	"errors"

	searchuc "github.com/kailas-cloud/unisearch/internal/usecase/search"
)

// Sentinel errors. Use errors.Is() to check.
var (
	// ErrStoreUnavailable means the collection store did not answer.
	ErrStoreUnavailable = searchuc.ErrStoreUnavailable
	// ErrUserRequired is returned by history calls without a user id.
	ErrUserRequired = searchuc.ErrUserRequired
	// ErrInvalidQuery wraps query validation failures.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrUnknownCollection is returned by Put for collections outside the registry.
	ErrUnknownCollection = errors.New("unknown collection")
)
