package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"brokerage/internal/platform/postgres"
	"brokerage/internal/transaction"
)

// PostgresStore inserts transactions. The payment_mode column is an enum, so
// an encoding it does not know fails with sentinel.ErrRejected via Classify.
type PostgresStore struct {
	db *sql.DB
}

func New(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, record *transaction.Record) error {
	var mode, bucket, path, url, reference sql.NullString
	if record.PaymentMode != nil {
		mode = sql.NullString{String: *record.PaymentMode, Valid: true}
	}
	if record.Proof != nil {
		bucket = sql.NullString{String: record.Proof.Bucket, Valid: true}
		path = sql.NullString{String: record.Proof.Path, Valid: true}
		url = sql.NullString{String: record.Proof.URL, Valid: true}
	}
	if record.Reference != "" {
		reference = sql.NullString{String: record.Reference, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (
			id, identity, kind, amount, currency, payment_mode,
			proof_bucket, proof_path, proof_url, reference, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, record.ID, record.Identity.String(), string(record.Kind), record.Amount, record.Currency, mode,
		bucket, path, url, reference, record.Status, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", postgres.Classify(err))
	}
	return nil
}
