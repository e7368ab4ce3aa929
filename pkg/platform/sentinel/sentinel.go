package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and adapters return these
// (optionally wrapped) so callers can classify them without knowing the
// backend:
// - ErrNotFound: record does not exist
// - ErrConflict: write collided with an existing record
// - ErrInvalidState: record in wrong state for the requested operation
// - ErrUnavailable: backend not configured or temporarily unreachable
//
// For malformed input use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
