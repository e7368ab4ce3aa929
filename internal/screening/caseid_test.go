package screening

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycgate/pkg/requestcontext"
)

func TestCaseIDsNext(t *testing.T) {
	ctx := requestcontext.WithTime(context.Background(), time.Date(2026, 1, 2, 23, 30, 0, 0, time.FixedZone("WIB", 7*3600)))

	t.Run("format uses the UTC request date", func(t *testing.T) {
		g := &CaseIDs{prefix: "KYC", random: func() (uuid.UUID, error) {
			return uuid.MustParse("a1b2c3d4-0000-4000-8000-000000000000"), nil
		}}

		id, err := g.Next(ctx)

		require.NoError(t, err)
		assert.Equal(t, "KYC-20260102-A1B2C3D4", id)
	})

	t.Run("fresh ids differ", func(t *testing.T) {
		g := NewCaseIDs("")
		a, err := g.Next(ctx)
		require.NoError(t, err)
		b, err := g.Next(ctx)
		require.NoError(t, err)

		assert.Regexp(t, `^KYC-\d{8}-[0-9A-F]{8}$`, a)
		assert.NotEqual(t, a, b)
	})

	t.Run("custom prefix", func(t *testing.T) {
		id, err := NewCaseIDs("AML").Next(ctx)

		require.NoError(t, err)
		assert.Regexp(t, `^AML-20260102-[0-9A-F]{8}$`, id)
	})

	t.Run("randomness failure", func(t *testing.T) {
		g := &CaseIDs{prefix: "KYC", random: func() (uuid.UUID, error) {
			return uuid.Nil, errors.New("no entropy")
		}}

		_, err := g.Next(ctx)

		assert.ErrorContains(t, err, "mint case id")
	})
}
