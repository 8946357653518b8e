// Package httptransport exposes the onboarding and funding services over HTTP.
// Handlers decode, delegate and encode; they hold no business rules.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"brokerage/internal/document"
	"brokerage/internal/onboarding"
	"brokerage/internal/platform/middleware"
	ratelimitmw "brokerage/internal/ratelimit/middleware"
	"brokerage/internal/ratelimit/models"
	"brokerage/internal/transaction"
	"brokerage/pkg/domain"
	dErrors "brokerage/pkg/domain-errors"
	"brokerage/pkg/platform/httputil"
)

// Onboarding is the registration orchestrator.
type Onboarding interface {
	BootstrapIdentity(ctx context.Context, session domain.SessionID, email, secret string) (onboarding.Result, error)
	Reauthenticate(ctx context.Context, session domain.SessionID, email, secret string) (onboarding.Result, error)
	SaveStage(ctx context.Context, session domain.SessionID, stage onboarding.Stage, payload map[string]any) (onboarding.Result, error)
	IngestDocument(ctx context.Context, session domain.SessionID, role document.Role, file document.File) (onboarding.Result, error)
	SubmitKYC(ctx context.Context, session domain.SessionID) (onboarding.Result, error)
	KYCStatus(ctx context.Context, id domain.Identity) (onboarding.Result, error)
	Finalize(ctx context.Context, session domain.SessionID) (onboarding.Result, error)
	EndSession(ctx context.Context, session domain.SessionID) (onboarding.Result, error)
	SessionIdentity(ctx context.Context, session domain.SessionID) (domain.Identity, error)
}

// Transactions records deposit and withdrawal requests.
type Transactions interface {
	SubmitDeposit(ctx context.Context, identity domain.Identity, req transaction.Request, proof *document.File) (*transaction.Submission, error)
	SubmitWithdrawal(ctx context.Context, identity domain.Identity, req transaction.Request) (*transaction.Submission, error)
}

// SessionIssuer signs registration-session tokens.
type SessionIssuer interface {
	IssueSessionToken(session domain.SessionID) (string, time.Time, error)
}

type Handler struct {
	onboarding     Onboarding
	transactions   Transactions
	sessions       SessionIssuer
	validator      middleware.SessionValidator
	logger         *slog.Logger
	maxUploadBytes int64
	rateLimiter    *ratelimitmw.Middleware
}

type Option func(*Handler)

// WithRateLimiter throttles the identity and login routes.
func WithRateLimiter(m *ratelimitmw.Middleware) Option {
	return func(h *Handler) {
		h.rateLimiter = m
	}
}

func New(
	onboarding Onboarding,
	transactions Transactions,
	sessions SessionIssuer,
	validator middleware.SessionValidator,
	logger *slog.Logger,
	maxUploadBytes int64,
	opts ...Option,
) *Handler {
	h := &Handler{
		onboarding:     onboarding,
		transactions:   transactions,
		sessions:       sessions,
		validator:      validator,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the onboarding and transaction routes.
func (h *Handler) Register(r chi.Router) {
	requireSession := middleware.RequireSession(h.validator, h.logger)

	r.Route("/onboarding", func(r chi.Router) {
		r.With(h.rateLimit(models.ClassIdentity)).Post("/identity", h.handleBootstrapIdentity)
		r.With(h.rateLimit(models.ClassLogin)).Post("/login", h.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(requireSession)
			r.Put("/stages/{stage}", h.handleSaveStage)
			r.Post("/documents/{role}", h.handleIngestDocument)
			r.Post("/kyc/submit", h.handleSubmitKYC)
			r.Get("/kyc/status", h.handleKYCStatus)
			r.Post("/finalize", h.handleFinalize)
			r.Delete("/session", h.handleEndSession)
		})
	})

	r.Route("/transactions", func(r chi.Router) {
		r.Use(requireSession)
		r.Post("/deposits", h.handleDeposit)
		r.Post("/withdrawals", h.handleWithdrawal)
	})
}

func (h *Handler) rateLimit(class models.EndpointClass) func(http.Handler) http.Handler {
	if h.rateLimiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return h.rateLimiter.RateLimit(class)
}

// resultResponse is onboarding.Result plus the error code on failure.
type resultResponse struct {
	onboarding.Result
	Error string `json:"error,omitempty"`
}

func writeResult(w http.ResponseWriter, status int, res onboarding.Result, err error) {
	if err != nil {
		code := dErrors.CodeOf(err)
		if code == dErrors.CodeInternal {
			res.Message = "internal error"
		}
		httputil.WriteJSON(w, httputil.StatusFor(code), resultResponse{Result: res, Error: string(code)})
		return
	}
	httputil.WriteJSON(w, status, resultResponse{Result: res})
}

// sessionFromContext returns the session RequireSession stored.
func (h *Handler) sessionFromContext(w http.ResponseWriter, r *http.Request) (domain.SessionID, bool) {
	session, ok := middleware.GetSessionID(r.Context())
	if !ok || session.IsNil() {
		h.logger.ErrorContext(r.Context(), "session missing from context despite auth middleware")
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "session context error"))
		return domain.SessionID{}, false
	}
	return session, true
}
