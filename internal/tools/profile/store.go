// Package profile persists verified customer profiles so repeat applicants
// can short-circuit a full compliance run.
package profile

import (
	"context"

	"kycgate/internal/tools"
)

// Store looks up and records verified profiles. A miss is reported as
// sentinel.ErrNotFound.
type Store interface {
	FindByIdentityNumber(ctx context.Context, identityNumber string) (*tools.ProfileRecord, error)
	Save(ctx context.Context, w tools.ProfileWrite) error
}
