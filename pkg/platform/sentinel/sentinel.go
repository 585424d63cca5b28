package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Client storage, caches and the
// audit sinks return these (optionally wrapped) so services can translate them
// into domain errors.
//
// For validation errors use pkg/domain-errors directly.
var (
	// ErrNotFound: the key or record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable: storage or a remote dependency cannot be reached.
	ErrUnavailable = errors.New("unavailable")
)
