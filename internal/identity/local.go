package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"brokerage/internal/platform/logger"
	"brokerage/pkg/domain"
	dErrors "brokerage/pkg/domain-errors"
	"brokerage/pkg/platform/sentinel"
	"brokerage/pkg/requestcontext"
)

// Local is a Provider backed by bcrypt hashes in a CredentialStore.
type Local struct {
	store     CredentialStore
	cost      int
	minSecret int
	logger    *slog.Logger
}

type LocalOption func(*Local)

func WithLogger(logger *slog.Logger) LocalOption {
	return func(l *Local) {
		l.logger = logger
	}
}

// WithCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func WithCost(cost int) LocalOption {
	return func(l *Local) {
		l.cost = cost
	}
}

// WithMinSecretLength rejects secrets shorter than n bytes. By default any
// non-empty secret is accepted.
func WithMinSecretLength(n int) LocalOption {
	return func(l *Local) {
		if n > 1 {
			l.minSecret = n
		}
	}
}

func NewLocal(store CredentialStore, opts ...LocalOption) (*Local, error) {
	if store == nil {
		return nil, errors.New("credential store is required")
	}
	l := &Local{store: store, cost: bcrypt.DefaultCost, minSecret: 1, logger: logger.Discard()}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Create mints a new identity for email. It never reuses an identity: a second
// call for the same email fails with ErrAlreadyExists.
func (l *Local) Create(ctx context.Context, email domain.Email, secret string) (domain.Identity, error) {
	hash, err := l.hash(secret)
	if err != nil {
		return "", err
	}

	_, err = l.store.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return "", ErrAlreadyExists
	case errors.Is(err, sentinel.ErrNotFound):
	default:
		return "", fmt.Errorf("lookup credential: %w", err)
	}

	credential := &Credential{
		Identity:   domain.Identity(uuid.NewString()),
		Email:      email,
		SecretHash: hash,
		CreatedAt:  requestcontext.Now(ctx),
	}
	if err := l.store.Insert(ctx, credential); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return "", ErrAlreadyExists
		}
		return "", fmt.Errorf("insert credential: %w", err)
	}
	l.logger.InfoContext(ctx, "identity minted", "identity", credential.Identity)
	return credential.Identity, nil
}

// Verify returns the identity bound to email when secret matches.
func (l *Local) Verify(ctx context.Context, email domain.Email, secret string) (domain.Identity, error) {
	credential, err := l.store.FindByEmail(ctx, email)
	if errors.Is(err, sentinel.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("lookup credential: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(credential.SecretHash), []byte(secret)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("could not verify secret: %w", err)
	}
	return credential.Identity, nil
}

func (l *Local) hash(secret string) (string, error) {
	if secret == "" {
		return "", dErrors.New(dErrors.CodeValidation, "secret is required")
	}
	if len(secret) < l.minSecret {
		return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("secret must be at least %d characters", l.minSecret))
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), l.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeValidation, "secret is too long")
		}
		return "", fmt.Errorf("could not hash secret: %w", err)
	}
	return string(hashed), nil
}
