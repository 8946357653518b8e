package transaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"brokerage/internal/document"
	"brokerage/internal/events"
	"brokerage/internal/platform/logger"
	"brokerage/internal/platform/metrics"
	"brokerage/pkg/domain"
	dErrors "brokerage/pkg/domain-errors"
	"brokerage/pkg/platform/trial"
	"brokerage/pkg/requestcontext"
)

const paymentModeOperation = "payment_mode"

// Store inserts transaction rows. A payment mode encoding the store does not
// accept must fail with an error wrapping sentinel.ErrRejected.
type Store interface {
	Insert(ctx context.Context, record *Record) error
}

// ProofUploader stores payment proofs.
type ProofUploader interface {
	Ingest(ctx context.Context, identity domain.Identity, role document.Role, file document.File) (document.Location, error)
}

type Service struct {
	store     Store
	uploader  ProofUploader
	aliases   map[string][]string
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

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithModeAliases sets the store-specific encodings tried after the derived
// ones, keyed by lower-case logical mode.
func WithModeAliases(aliases map[string][]string) Option {
	return func(s *Service) {
		s.aliases = aliases
	}
}

func New(store Store, uploader ProofUploader, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("transaction store is required")
	}
	if uploader == nil {
		return nil, errors.New("proof uploader is required")
	}
	svc := &Service{store: store, uploader: uploader, logger: logger.Discard()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// SubmitDeposit records a deposit request. A proof that cannot be stored does
// not block the deposit; it is reported as a warning instead.
func (s *Service) SubmitDeposit(ctx context.Context, identity domain.Identity, req Request, proof *document.File) (*Submission, error) {
	if err := validate(identity, req); err != nil {
		return nil, err
	}
	var (
		location *document.Location
		warnings []string
	)
	if proof != nil {
		loc, err := s.uploader.Ingest(ctx, identity, document.RoleTransactionProof, *proof)
		if err != nil {
			s.logger.WarnContext(ctx, "deposit proof upload failed", "identity", identity, "error", err)
			warnings = append(warnings, "payment proof could not be stored; deposit recorded without proof")
		} else {
			location = &loc
		}
	}
	sub, err := s.submit(ctx, identity, KindDeposit, req, location)
	if err != nil {
		return nil, err
	}
	sub.Warnings = append(warnings, sub.Warnings...)
	return sub, nil
}

// SubmitWithdrawal records a withdrawal request.
func (s *Service) SubmitWithdrawal(ctx context.Context, identity domain.Identity, req Request) (*Submission, error) {
	if err := validate(identity, req); err != nil {
		return nil, err
	}
	return s.submit(ctx, identity, KindWithdrawal, req, nil)
}

// submit tries each payment mode encoding in turn and, when none is accepted,
// inserts the row without a mode.
func (s *Service) submit(ctx context.Context, identity domain.Identity, kind Kind, req Request, proof *document.Location) (*Submission, error) {
	base := Record{
		ID:        uuid.New(),
		Identity:  identity,
		Kind:      kind,
		Amount:    req.Amount,
		Currency:  strings.ToUpper(strings.TrimSpace(req.Currency)),
		Proof:     proof,
		Reference: strings.TrimSpace(req.Reference),
		Status:    StatusPending,
		CreatedAt: requestcontext.Now(ctx),
	}
	insert := func(ctx context.Context, mode *string) (*Record, error) {
		record := base
		record.PaymentMode = mode
		if err := s.store.Insert(ctx, &record); err != nil {
			return nil, err
		}
		return &record, nil
	}

	candidates := EncodingCandidates(req.PaymentMode, s.aliases)
	outcome, err := trial.TryInOrder(ctx, candidates,
		func(ctx context.Context, encoding string) (*Record, error) {
			return insert(ctx, &encoding)
		},
		func(ctx context.Context) (*Record, error) {
			return insert(ctx, nil)
		},
		trial.WithOperation(paymentModeOperation),
		trial.WithObserver(func(ev trial.Event) {
			if !ev.Fallback {
				s.metrics.ObserveTrialAttempt(paymentModeOperation, ev.Err == nil)
			}
		}),
	)
	if err != nil {
		s.logger.ErrorContext(ctx, "transaction could not be persisted",
			"identity", identity, "kind", kind, "encodings", candidates, "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeEncodingExhausted, exhaustedMessage(candidates))
	}

	record := outcome.Value
	sub := &Submission{Record: record, UsedFallback: outcome.UsedFallback}
	mode := "none"
	if outcome.UsedFallback {
		if len(candidates) > 0 {
			sub.Warnings = append(sub.Warnings, fmt.Sprintf("payment mode %q was not recorded", req.PaymentMode))
		}
	} else {
		mode = outcome.Candidate
	}

	s.metrics.ObserveTransaction(string(kind), mode)
	s.logger.InfoContext(ctx, "transaction created",
		"identity", identity, "kind", kind, "transaction_id", record.ID, "payment_mode", mode, "attempts", len(outcome.Failed)+1)
	s.publish(ctx, events.New(ctx, events.TypeTransactionCreated, identity, map[string]string{
		"transaction_id": record.ID.String(),
		"kind":           string(kind),
		"amount":         record.Amount.String(),
		"currency":       record.Currency,
		"payment_mode":   mode,
	}))
	return sub, nil
}

func exhaustedMessage(candidates []string) string {
	if len(candidates) == 0 {
		return "could not persist transaction"
	}
	return "could not persist transaction; payment mode encodings tried: " + strings.Join(candidates, ", ")
}

func validate(identity domain.Identity, req Request) error {
	if identity.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "identity is required")
	}
	if !req.Amount.IsPositive() {
		return dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}
	if !isCurrencyCode(strings.TrimSpace(req.Currency)) {
		return dErrors.New(dErrors.CodeValidation, "currency must be a 3-letter code")
	}
	return nil
}

func isCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event", "event_type", event.Type, "error", err)
	}
}
