package profile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"brokerage/internal/platform/logger"
	"brokerage/pkg/domain"
	dErrors "brokerage/pkg/domain-errors"
	"brokerage/pkg/platform/sentinel"
	"brokerage/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store

// Store persists profile rows. Implementations return sentinel.ErrNotFound when
// no row exists and sentinel.ErrConflict when Insert races an existing row.
type Store interface {
	FindByIdentity(ctx context.Context, identity domain.Identity) (*Record, error)
	Insert(ctx context.Context, record *Record) error
	UpdateFields(ctx context.Context, identity domain.Identity, fields Fields, updatedAt time.Time) error
}

// Service writes profile fields stage by stage without clobbering fields
// owned by other stages.
type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("profile store is required")
	}
	svc := &Service{store: store, logger: logger.Discard()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// UpsertFields writes a non-empty partial field map for an existing identity.
// Only the supplied keys are touched; calling it twice with the same fields is
// a no-op update.
//
// Errors: CodeValidation for bad input, CodePersistenceFailure wrapping the
// store error otherwise.
func (s *Service) UpsertFields(ctx context.Context, identity domain.Identity, fields Fields) error {
	if len(fields) == 0 {
		return dErrors.New(dErrors.CodeValidation, "profile fields must not be empty")
	}
	return s.upsert(ctx, identity, fields)
}

// Ensure behaves like UpsertFields but accepts an empty field map, in which
// case it only guarantees the row exists.
func (s *Service) Ensure(ctx context.Context, identity domain.Identity, fields Fields) error {
	return s.upsert(ctx, identity, fields)
}

// Get returns the profile row for identity.
func (s *Service) Get(ctx context.Context, identity domain.Identity) (*Record, error) {
	record, err := s.store.FindByIdentity(ctx, identity)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "profile not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistenceFailure, "failed to load profile")
	}
	return record, nil
}

func (s *Service) upsert(ctx context.Context, identity domain.Identity, fields Fields) error {
	if identity.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "identity is required")
	}
	if err := ValidateFields(fields); err != nil {
		return err
	}
	now := requestcontext.Now(ctx)

	_, err := s.store.FindByIdentity(ctx, identity)
	switch {
	case err == nil:
		return s.update(ctx, identity, fields, now)
	case errors.Is(err, sentinel.ErrNotFound):
	default:
		return dErrors.Wrap(err, dErrors.CodePersistenceFailure, "failed to load profile")
	}

	record := &Record{
		Identity:  identity,
		Fields:    Merge(nil, fields),
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.store.Insert(ctx, record)
	if errors.Is(err, sentinel.ErrConflict) {
		// Another session inserted first; last write wins on the supplied keys.
		s.logger.WarnContext(ctx, "profile insert raced, updating instead", "identity", identity)
		return s.update(ctx, identity, fields, now)
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistenceFailure, "failed to create profile")
	}
	s.logger.InfoContext(ctx, "profile created", "identity", identity, "fields", len(fields))
	return nil
}

func (s *Service) update(ctx context.Context, identity domain.Identity, fields Fields, now time.Time) error {
	if err := s.store.UpdateFields(ctx, identity, fields, now); err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistenceFailure, "failed to update profile")
	}
	return nil
}
