package kyc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"brokerage/internal/document"
	"brokerage/internal/events"
	"brokerage/internal/platform/logger"
	"brokerage/internal/platform/metrics"
	"brokerage/pkg/domain"
	dErrors "brokerage/pkg/domain-errors"
	"brokerage/pkg/platform/sentinel"
	"brokerage/pkg/requestcontext"
)

// Store persists KYC records. Latest returns the most recently submitted
// record for an identity (unsubmitted records after submitted ones, newest
// first) or sentinel.ErrNotFound. Save inserts or replaces by record ID.
type Store interface {
	Latest(ctx context.Context, identity domain.Identity) (*Record, error)
	Save(ctx context.Context, record *Record) error
}

type Service struct {
	store     Store
	publisher events.Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithPublisher emits kyc.submitted and kyc.reviewed events.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("kyc store is required")
	}
	svc := &Service{store: store, logger: logger.Discard()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// RecordDocument attaches a document location to the identity's record,
// creating it in progress when none exists. A rejected record is reopened;
// a submitted or verified one is frozen.
func (s *Service) RecordDocument(ctx context.Context, identity domain.Identity, role document.Role, loc document.Location) (*Record, error) {
	if identity.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "identity is required")
	}
	now := requestcontext.Now(ctx)

	record, err := s.latest(ctx, identity)
	if err != nil {
		return nil, err
	}
	switch record.State() {
	case StateUnset:
		record = &Record{
			ID:        uuid.New(),
			Identity:  identity,
			Documents: map[document.Role]document.Location{},
			CreatedAt: now,
		}
		s.metrics.ObserveKYCTransition(string(StateInProgress))
	case StateRejected:
		record.SubmittedAt = nil
		record.ReviewedAt = nil
		s.metrics.ObserveKYCTransition(string(StateInProgress))
	case StateSubmitted, StateVerified:
		return nil, dErrors.New(dErrors.CodeInvalidState, "kyc documents cannot change after submission")
	}
	if record.Documents == nil {
		record.Documents = map[document.Role]document.Location{}
	}
	record.Status = string(StateInProgress)
	record.Documents[role] = loc
	record.UpdatedAt = now

	if err := s.save(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Submit moves an in-progress record to submitted. Submitting twice is a
// no-op; a record without any prior document step is a sequence error.
func (s *Service) Submit(ctx context.Context, identity domain.Identity) (*Record, error) {
	record, err := s.latest(ctx, identity)
	if err != nil {
		return nil, err
	}
	switch record.State() {
	case StateUnset:
		return nil, dErrors.New(dErrors.CodeSequence, "kyc documents must be uploaded before submission")
	case StateSubmitted:
		return record, nil
	case StateVerified, StateRejected:
		return nil, dErrors.New(dErrors.CodeInvalidState, fmt.Sprintf("kyc already %s", record.State()))
	}

	now := requestcontext.Now(ctx)
	record.Status = string(StateSubmitted)
	record.SubmittedAt = &now
	record.UpdatedAt = now
	if err := s.save(ctx, record); err != nil {
		return nil, err
	}
	s.metrics.ObserveKYCTransition(string(StateSubmitted))
	s.publish(ctx, events.New(ctx, events.TypeKYCSubmitted, identity, map[string]string{
		"kyc_id":    record.ID.String(),
		"documents": fmt.Sprint(len(record.Documents)),
	}))
	return record, nil
}

// Review records an external reviewer's decision on a submitted record.
func (s *Service) Review(ctx context.Context, identity domain.Identity, decision State) (*Record, error) {
	if decision != StateVerified && decision != StateRejected {
		return nil, dErrors.New(dErrors.CodeValidation, "decision must be verified or rejected")
	}
	record, err := s.latest(ctx, identity)
	if err != nil {
		return nil, err
	}
	if record.State() == StateUnset {
		return nil, dErrors.New(dErrors.CodeNotFound, "kyc record not found")
	}
	if record.State() != StateSubmitted {
		return nil, dErrors.New(dErrors.CodeInvalidState, fmt.Sprintf("kyc is %s, not submitted", record.State()))
	}

	now := requestcontext.Now(ctx)
	record.Status = string(decision)
	record.ReviewedAt = &now
	record.UpdatedAt = now
	if err := s.save(ctx, record); err != nil {
		return nil, err
	}
	s.metrics.ObserveKYCTransition(string(decision))
	s.publish(ctx, events.New(ctx, events.TypeKYCReviewed, identity, map[string]string{
		"kyc_id":   record.ID.String(),
		"decision": string(decision),
	}))
	return record, nil
}

// State returns the derived state of the identity's latest record.
func (s *Service) State(ctx context.Context, identity domain.Identity) (State, error) {
	record, err := s.latest(ctx, identity)
	if err != nil {
		return "", err
	}
	return record.State(), nil
}

// Latest returns the identity's latest record or CodeNotFound.
func (s *Service) Latest(ctx context.Context, identity domain.Identity) (*Record, error) {
	record, err := s.latest(ctx, identity)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "kyc record not found")
	}
	return record, nil
}

// VisibleStatus never fails: a missing record or a store error reads as
// unverified.
func (s *Service) VisibleStatus(ctx context.Context, identity domain.Identity) string {
	record, err := s.store.Latest(ctx, identity)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "kyc status lookup failed", "identity", identity, "error", err)
		}
		return VisibleUnverified
	}
	return VisibleStatus(record.Status)
}

// latest returns nil without error when the identity has no record.
func (s *Service) latest(ctx context.Context, identity domain.Identity) (*Record, error) {
	record, err := s.store.Latest(ctx, identity)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistenceFailure, "failed to load kyc record")
	}
	return record, nil
}

func (s *Service) save(ctx context.Context, record *Record) error {
	if err := s.store.Save(ctx, record); err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistenceFailure, "failed to save kyc record")
	}
	return nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event", "event_type", event.Type, "error", err)
	}
}
