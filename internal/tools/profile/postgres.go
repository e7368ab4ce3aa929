package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"kycgate/internal/tools"
	"kycgate/pkg/platform/sentinel"
	txcontext "kycgate/pkg/platform/tx"
)

var schema = []string{`
CREATE TABLE IF NOT EXISTS customer_profiles (
	id               TEXT PRIMARY KEY,
	identity_number  TEXT NOT NULL UNIQUE,
	customer_id      TEXT NOT NULL,
	name             TEXT NOT NULL,
	risk_score       INTEGER NOT NULL,
	last_case_id     TEXT NOT NULL,
	last_decision_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS customer_profiles_customer_id_idx ON customer_profiles (customer_id)`,
}

const findQuery = `
SELECT id, name, risk_score, last_decision_at
FROM customer_profiles
WHERE identity_number = $1
LIMIT 1`

const upsertQuery = `
INSERT INTO customer_profiles (id, identity_number, customer_id, name, risk_score, last_case_id, last_decision_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (identity_number) DO UPDATE SET
	customer_id = EXCLUDED.customer_id,
	name = EXCLUDED.name,
	risk_score = EXCLUDED.risk_score,
	last_case_id = EXCLUDED.last_case_id,
	last_decision_at = EXCLUDED.last_decision_at`

// PostgresStore persists profiles in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed profile store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the profile table and its indexes when missing, all
// in one transaction.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	err := txcontext.Run(ctx, s.db, func(ctx context.Context) error {
		exec := txcontext.ExecerFrom(ctx, s.db)
		for _, stmt := range schema {
			if _, err := exec.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ensure profile schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByIdentityNumber(ctx context.Context, identityNumber string) (*tools.ProfileRecord, error) {
	var (
		rec       tools.ProfileRecord
		decidedAt time.Time
	)
	err := txcontext.ExecerFrom(ctx, s.db).QueryRowContext(ctx, findQuery, identityNumber).
		Scan(&rec.ID, &rec.Name, &rec.RiskScore, &decidedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	rec.LastDecisionAt = decidedAt.UTC()
	return &rec, nil
}

func (s *PostgresStore) Save(ctx context.Context, w tools.ProfileWrite) error {
	if w.IdentityNumber == "" {
		return fmt.Errorf("save profile: identity number is required")
	}
	_, err := txcontext.ExecerFrom(ctx, s.db).ExecContext(ctx, upsertQuery,
		uuid.NewString(),
		w.IdentityNumber,
		w.CustomerID,
		w.Name,
		w.RiskScore,
		w.CaseID,
		w.DecidedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}
