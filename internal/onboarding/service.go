// Package onboarding drives a registration session from identity bootstrap
// through finalize.
//
// Stage 1 mints the identity and binds it to the session. Later stages stage
// their payload per (session, identity, stage); the basic profile and personal
// details stages also write through to the durable profile. Finalize folds all
// staged fragments into the profile and clears them.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"brokerage/internal/events"
	"brokerage/internal/identity"
	"brokerage/internal/platform/logger"
	"brokerage/internal/platform/metrics"
	"brokerage/internal/staging"
	"brokerage/pkg/domain"
	dErrors "brokerage/pkg/domain-errors"
	"brokerage/pkg/platform/sentinel"
)

const tracerName = "brokerage/internal/onboarding"

// Result is returned by every orchestrator call, successful or not.
type Result struct {
	Success  bool              `json:"success"`
	Message  string            `json:"message"`
	Identity domain.Identity   `json:"identity,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
	Details  map[string]string `json:"details,omitempty"`
}

type Service struct {
	staging    staging.Store
	identities identity.Provider
	profiles   ProfileWriter
	documents  DocumentIngester
	kyc        KYCTracker
	publisher  events.Publisher
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
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

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func New(
	stagingStore staging.Store,
	identities identity.Provider,
	profiles ProfileWriter,
	documents DocumentIngester,
	kycTracker KYCTracker,
	opts ...Option,
) (*Service, error) {
	switch {
	case stagingStore == nil:
		return nil, errors.New("staging store is required")
	case identities == nil:
		return nil, errors.New("identity provider is required")
	case profiles == nil:
		return nil, errors.New("profile writer is required")
	case documents == nil:
		return nil, errors.New("document ingester is required")
	case kycTracker == nil:
		return nil, errors.New("kyc tracker is required")
	}
	svc := &Service{
		staging:    stagingStore,
		identities: identities,
		profiles:   profiles,
		documents:  documents,
		kyc:        kycTracker,
		logger:     logger.Discard(),
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// SessionIdentity returns the identity bound to session, or a SequenceError
// when stage 1 (or a re-authentication) has not happened in it.
func (s *Service) SessionIdentity(ctx context.Context, session domain.SessionID) (domain.Identity, error) {
	binding, err := s.binding(ctx, session)
	if err != nil {
		return "", err
	}
	return binding.Identity, nil
}

// EndSession drops everything staged for session, including its identity
// binding. Durable profile data is untouched.
func (s *Service) EndSession(ctx context.Context, session domain.SessionID) (Result, error) {
	if err := s.staging.EndSession(ctx, session); err != nil {
		err = dErrors.Wrap(err, dErrors.CodePersistenceFailure, "failed to end session")
		return failure("session", "", err), err
	}
	return Result{Success: true, Message: "session ended"}, nil
}

func (s *Service) binding(ctx context.Context, session domain.SessionID) (staging.Binding, error) {
	binding, err := s.staging.Identity(ctx, session)
	if errors.Is(err, sentinel.ErrNotFound) {
		return staging.Binding{}, dErrors.New(dErrors.CodeSequence, "identity registration must be completed first")
	}
	if err != nil {
		return staging.Binding{}, dErrors.Wrap(err, dErrors.CodePersistenceFailure, "failed to load session")
	}
	return binding, nil
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	ctx, span := s.tracer.Start(ctx, "onboarding."+name, trace.WithAttributes(attrs...))
	return ctx, span, time.Now()
}

// finish closes the span and records the stage outcome.
func (s *Service) finish(span trace.Span, stage string, started time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = string(dErrors.CodeOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, dErrors.MessageOf(err))
	}
	s.metrics.ObserveStage(stage, outcome, time.Since(started).Seconds())
	span.End()
}

func (s *Service) publish(ctx context.Context, eventType events.Type, id domain.Identity, attrs map[string]string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.New(ctx, eventType, id, attrs)); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event",
			"event_type", eventType, "identity", id, "error", err)
	}
}

// failure builds the Result for a failed call. The message is scoped to the
// stage so the caller can show it next to the right screen.
func failure(stage string, id domain.Identity, err error) Result {
	return Result{
		Success:  false,
		Message:  fmt.Sprintf("%s: %s", stage, dErrors.MessageOf(err)),
		Identity: id,
	}
}
