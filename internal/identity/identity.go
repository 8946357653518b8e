// Package identity mints and verifies the opaque identifiers that anchor a
// registration. The onboarding pipeline only depends on Provider; Local is the
// bcrypt-backed implementation used when no external provider is wired.
package identity

import (
	"context"
	"errors"
	"time"

	"brokerage/pkg/domain"
)

//go:generate mockgen -source=identity.go -destination=mocks/mocks.go -package=mocks Provider

var (
	// ErrAlreadyExists is returned by Create when the email already has credentials.
	ErrAlreadyExists = errors.New("identity already exists")
	// ErrInvalidCredentials is returned by Verify for an unknown email or a wrong secret.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Provider is the identity collaborator seen by the onboarding pipeline.
type Provider interface {
	Create(ctx context.Context, email domain.Email, secret string) (domain.Identity, error)
	Verify(ctx context.Context, email domain.Email, secret string) (domain.Identity, error)
}

// Credential is a stored email/secret pair bound to one identity.
type Credential struct {
	Identity   domain.Identity
	Email      domain.Email
	SecretHash string
	CreatedAt  time.Time
}

// CredentialStore persists credentials keyed by normalized email.
// FindByEmail returns sentinel.ErrNotFound when absent; Insert returns
// sentinel.ErrConflict when the email or identity is taken.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email domain.Email) (*Credential, error)
	Insert(ctx context.Context, credential *Credential) error
}
