package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"brokerage/internal/identity"
	"brokerage/internal/platform/postgres"
	"brokerage/pkg/domain"
	"brokerage/pkg/platform/sentinel"
)

// PostgresStore persists credentials in the credentials table.
type PostgresStore struct {
	db *sql.DB
}

func New(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email domain.Email) (*identity.Credential, error) {
	var credential identity.Credential
	var id, mail string
	err := s.db.QueryRowContext(ctx, `
		SELECT identity, email, secret_hash, created_at
		FROM credentials
		WHERE email = $1
	`, email.String()).Scan(&id, &mail, &credential.SecretHash, &credential.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find credential: %w", postgres.Classify(err))
	}
	credential.Identity = domain.Identity(id)
	credential.Email = domain.Email(mail)
	return &credential, nil
}

func (s *PostgresStore) Insert(ctx context.Context, credential *identity.Credential) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (identity, email, secret_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`, credential.Identity.String(), credential.Email.String(), credential.SecretHash, credential.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert credential: %w", postgres.Classify(err))
	}
	return nil
}
