package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"unifiedinbox/pkg/metrics"
)

type MetadataRepository struct {
	db *pgxpool.Pool
}

func NewMetadataRepository(db *pgxpool.Pool) *MetadataRepository {
	return &MetadataRepository{db: db}
}

// Upsert stores the categorization of one email. Redelivered events
// overwrite the previous result, so the call is idempotent per email.
func (r *MetadataRepository) Upsert(
	ctx context.Context,
	emailID int,
	category string,
	confidence float64,
	reason string,
) error {
	start := time.Now()
	defer func() {
		metrics.RecordDBQueryDuration("upsert", "emails_metadata", time.Since(start))
	}()

	query := `
        INSERT INTO emails_metadata (email_id, category, confidence, reason, status, created_at)
        VALUES ($1, $2, $3, $4, 'success', NOW())
        ON CONFLICT (email_id) DO UPDATE
        SET category = EXCLUDED.category,
            confidence = EXCLUDED.confidence,
            reason = EXCLUDED.reason,
            status = 'success',
            created_at = NOW()
    `
	_, err := r.db.Exec(ctx, query, emailID, category, confidence, reason)
	return err
}

// Ping reports whether the database is reachable.
func (r *MetadataRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
