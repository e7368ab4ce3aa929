package screening

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"kycgate/pkg/requestcontext"
)

// DefaultCaseIDPrefix prefixes minted case ids.
const DefaultCaseIDPrefix = "KYC"

// CaseIDs mints case ids of the form PREFIX-yyyymmdd-XXXXXXXX, where the
// suffix is 8 upper-case hex characters of fresh randomness. Ids are not
// checked against storage.
type CaseIDs struct {
	prefix string
	random func() (uuid.UUID, error)
}

func NewCaseIDs(prefix string) *CaseIDs {
	if prefix == "" {
		prefix = DefaultCaseIDPrefix
	}
	return &CaseIDs{prefix: prefix, random: uuid.NewRandom}
}

// Next mints an id dated by the request time in UTC.
func (g *CaseIDs) Next(ctx context.Context) (string, error) {
	u, err := g.random()
	if err != nil {
		return "", fmt.Errorf("mint case id: %w", err)
	}
	day := requestcontext.Now(ctx).UTC().Format("20060102")
	return fmt.Sprintf("%s-%s-%s", g.prefix, day, strings.ToUpper(hex.EncodeToString(u[:4]))), nil
}
