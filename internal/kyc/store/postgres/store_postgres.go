package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"brokerage/internal/document"
	"brokerage/internal/kyc"
	"brokerage/internal/platform/postgres"
	"brokerage/pkg/domain"
	"brokerage/pkg/platform/sentinel"
)

// PostgresStore persists KYC records in kyc_records.
type PostgresStore struct {
	db *sql.DB
}

func New(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Latest(ctx context.Context, identity domain.Identity) (*kyc.Record, error) {
	var (
		record    kyc.Record
		documents []byte
		submitted sql.NullTime
		reviewed  sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, documents, status, submitted_at, reviewed_at, created_at, updated_at
		FROM kyc_records
		WHERE identity = $1
		ORDER BY submitted_at DESC NULLS LAST, created_at DESC
		LIMIT 1
	`, identity.String()).Scan(&record.ID, &documents, &record.Status, &submitted, &reviewed, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find latest kyc record: %w", postgres.Classify(err))
	}
	record.Identity = identity
	record.Documents = map[document.Role]document.Location{}
	if len(documents) > 0 {
		if err := json.Unmarshal(documents, &record.Documents); err != nil {
			return nil, fmt.Errorf("unmarshal kyc documents: %w", err)
		}
	}
	if submitted.Valid {
		t := submitted.Time
		record.SubmittedAt = &t
	}
	if reviewed.Valid {
		t := reviewed.Time
		record.ReviewedAt = &t
	}
	return &record, nil
}

func (s *PostgresStore) Save(ctx context.Context, record *kyc.Record) error {
	documents, err := json.Marshal(record.Documents)
	if err != nil {
		return fmt.Errorf("marshal kyc documents: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kyc_records (id, identity, documents, status, submitted_at, reviewed_at, created_at, updated_at)
		VALUES ($1, $2, $3::jsonb, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			documents = EXCLUDED.documents,
			status = EXCLUDED.status,
			submitted_at = EXCLUDED.submitted_at,
			reviewed_at = EXCLUDED.reviewed_at,
			updated_at = EXCLUDED.updated_at
	`, record.ID, record.Identity.String(), documents, record.Status,
		nullTime(record.SubmittedAt), nullTime(record.ReviewedAt), record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save kyc record: %w", postgres.Classify(err))
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
