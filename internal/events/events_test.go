package events

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brokerage/pkg/domain"
	"brokerage/pkg/requestcontext"
)

func TestNew(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 30, 0, 0, time.FixedZone("IST", 19800))
	ctx := requestcontext.WithTime(context.Background(), now)
	ctx = requestcontext.WithRequestID(ctx, "req-42")

	event := New(ctx, TypeStageSaved, domain.Identity("id-1"), map[string]string{"stage": "2"})

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, 1, event.Version)
	assert.Equal(t, now.UTC(), event.Timestamp)
	assert.Equal(t, "req-42", event.RequestID)
	assert.Equal(t, "2", event.Attributes["stage"])
}

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	rec := &Recorder{}
	require.NoError(t, rec.Publish(ctx, New(ctx, TypeIdentityCreated, "id-1", nil)))
	require.NoError(t, rec.Publish(ctx, New(ctx, TypeFinalized, "id-1", nil)))
	assert.Equal(t, []Type{TypeIdentityCreated, TypeFinalized}, rec.Types())

	rec.Err = errors.New("broker down")
	assert.Error(t, rec.Publish(ctx, New(ctx, TypeKYCSubmitted, "id-1", nil)))
	assert.Len(t, rec.Events, 2)
}

func TestLogPublisherNeverFails(t *testing.T) {
	p := NewLogPublisher(slog.New(slog.DiscardHandler))
	ctx := context.Background()
	assert.NoError(t, p.Publish(ctx, New(ctx, TypeTransactionCreated, "id-1", nil)))
}
