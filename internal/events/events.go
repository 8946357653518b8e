// Package events publishes onboarding lifecycle events. Publishing is
// best-effort: callers log failures and never fail a stage because of them.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"brokerage/pkg/domain"
	"brokerage/pkg/requestcontext"
)

// Type names an event.
type Type string

const (
	TypeIdentityCreated    Type = "onboarding.identity_created"
	TypeStageSaved         Type = "onboarding.stage_saved"
	TypeDocumentIngested   Type = "onboarding.document_ingested"
	TypeFinalized          Type = "onboarding.finalized"
	TypeKYCSubmitted       Type = "kyc.submitted"
	TypeKYCReviewed        Type = "kyc.reviewed"
	TypeTransactionCreated Type = "transaction.created"
)

// Event is the envelope written to the event stream. Attributes never carry
// raw profile field values, only identifiers and outcomes.
type Event struct {
	ID         string            `json:"event_id"`
	Type       Type              `json:"event_type"`
	Version    int               `json:"event_version"`
	Identity   domain.Identity   `json:"identity"`
	Timestamp  time.Time         `json:"timestamp"`
	RequestID  string            `json:"request_id,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// New builds an event stamped with the request time and correlation ID.
func New(ctx context.Context, eventType Type, identity domain.Identity, attrs map[string]string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Version:    1,
		Identity:   identity,
		Timestamp:  requestcontext.Now(ctx).UTC(),
		RequestID:  requestcontext.RequestID(ctx),
		Attributes: attrs,
	}
}

// Publisher delivers events to a sink.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// LogPublisher writes events to the structured log. Used when no broker is
// configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	p.logger.InfoContext(ctx, "event",
		"event_id", event.ID,
		"event_type", event.Type,
		"identity", event.Identity,
		"attributes", event.Attributes,
	)
	return nil
}

// Recorder keeps published events in memory for tests.
type Recorder struct {
	Events []Event
	Err    error
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	if r.Err != nil {
		return r.Err
	}
	r.Events = append(r.Events, event)
	return nil
}

// Types lists recorded event types in order.
func (r *Recorder) Types() []Type {
	out := make([]Type, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.Type
	}
	return out
}
