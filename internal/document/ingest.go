package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"brokerage/internal/platform/logger"
	"brokerage/internal/platform/metrics"
	"brokerage/pkg/domain"
	dErrors "brokerage/pkg/domain-errors"
	"brokerage/pkg/platform/trial"
	"brokerage/pkg/requestcontext"
)

const defaultMaxBytes = 10 << 20

// Ingester uploads documents to the first bucket that accepts them.
type Ingester struct {
	store    ObjectStore
	buckets  []string
	maxBytes int64
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Ingester)

func WithLogger(logger *slog.Logger) Option {
	return func(i *Ingester) {
		i.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(i *Ingester) {
		i.metrics = m
	}
}

// WithMaxBytes caps upload size. Non-positive values keep the default.
func WithMaxBytes(n int64) Option {
	return func(i *Ingester) {
		if n > 0 {
			i.maxBytes = n
		}
	}
}

func New(store ObjectStore, buckets []string, opts ...Option) (*Ingester, error) {
	if store == nil {
		return nil, errors.New("object store is required")
	}
	if len(buckets) == 0 {
		return nil, errors.New("at least one bucket is required")
	}
	i := &Ingester{
		store:    store,
		buckets:  append([]string(nil), buckets...),
		maxBytes: defaultMaxBytes,
		logger:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Ingest uploads file under <identity>/<role>/<unix-millis>_<name>.
//
// Errors: CodeValidation for bad input, CodeUploadFailure when no bucket took
// the write. The upload failure wraps a *trial.DiagnosticError naming every
// bucket tried. Whether a failure blocks the caller is the caller's decision.
func (i *Ingester) Ingest(ctx context.Context, identity domain.Identity, role Role, file File) (Location, error) {
	if identity.IsZero() {
		return Location{}, dErrors.New(dErrors.CodeValidation, "identity is required")
	}
	if !knownRoles[role] {
		return Location{}, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown document role %q", role))
	}
	if len(file.Data) == 0 {
		return Location{}, dErrors.New(dErrors.CodeValidation, "file is empty")
	}
	if int64(len(file.Data)) > i.maxBytes {
		return Location{}, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("file exceeds %d bytes", i.maxBytes))
	}

	contentType := file.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(file.Data)
	}
	path := ObjectPath(identity, role, requestcontext.Now(ctx).UnixMilli(), file.Name)

	outcome, err := trial.TryInOrder(ctx, i.buckets,
		func(ctx context.Context, bucket string) (Location, error) {
			if err := i.store.Put(ctx, bucket, path, file.Data, contentType); err != nil {
				return Location{}, err
			}
			return Location{Bucket: bucket, Path: path, URL: i.store.PublicURL(bucket, path)}, nil
		},
		trial.Unavailable[Location]("no bucket accepted the document"),
		trial.WithOperation("document_placement"),
		trial.WithObserver(func(ev trial.Event) {
			if ev.Fallback {
				return
			}
			i.metrics.ObserveTrialAttempt("document_placement", ev.Err == nil)
			if ev.Err != nil {
				i.logger.DebugContext(ctx, "bucket rejected document",
					"bucket", ev.Candidate, "role", role, "error", ev.Err)
			}
		}),
	)
	if err != nil {
		i.metrics.ObserveDocument(role.String(), false)
		i.logger.WarnContext(ctx, "document upload failed",
			"identity", identity, "role", role, "error", err)
		return Location{}, dErrors.Wrap(err, dErrors.CodeUploadFailure, fmt.Sprintf("could not store %s document", role))
	}

	i.metrics.ObserveDocument(role.String(), true)
	i.logger.InfoContext(ctx, "document stored",
		"identity", identity, "role", role, "bucket", outcome.Value.Bucket, "attempts", len(outcome.Failed)+1)
	return outcome.Value, nil
}

// ObjectPath builds the storage path for an upload.
func ObjectPath(identity domain.Identity, role Role, unixMillis int64, name string) string {
	return identity.String() + "/" + role.String() + "/" + strconv.FormatInt(unixMillis, 10) + "_" + SanitizeName(name)
}

// SanitizeName replaces every rune outside [A-Za-z0-9.] with '_'. An empty
// name becomes "file".
func SanitizeName(name string) string {
	if name == "" {
		return "file"
	}
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
