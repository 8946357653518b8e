package httptransport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"brokerage/internal/document"
	"brokerage/internal/onboarding"
	"brokerage/internal/platform/middleware"
	"brokerage/pkg/domain"
	dErrors "brokerage/pkg/domain-errors"
	"brokerage/pkg/platform/httputil"
	"brokerage/pkg/requestcontext"
)

// CredentialsRequest is the body of the identity and login calls.
type CredentialsRequest struct {
	Email  string `json:"email"`
	Secret string `json:"secret"`
}

func (r *CredentialsRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if r.Secret == "" {
		return dErrors.New(dErrors.CodeValidation, "secret is required")
	}
	return nil
}

// handleBootstrapIdentity runs stage 1. A caller without a session token gets
// a fresh session; the token is returned in the session header.
func (h *Handler) handleBootstrapIdentity(w http.ResponseWriter, r *http.Request) {
	h.handleCredentials(w, r, http.StatusCreated, h.onboarding.BootstrapIdentity)
}

// handleLogin binds an existing identity to the session.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	h.handleCredentials(w, r, http.StatusOK, h.onboarding.Reauthenticate)
}

type credentialsCall func(ctx context.Context, session domain.SessionID, email, secret string) (onboarding.Result, error)

func (h *Handler) handleCredentials(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	call credentialsCall,
) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	session, ok := h.optionalSession(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CredentialsRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := call(ctx, session, req.Email, req.Secret)
	if err != nil {
		h.logger.WarnContext(ctx, "credential call failed",
			"request_id", requestID,
			"code", dErrors.CodeOf(err),
		)
		writeResult(w, status, res, err)
		return
	}

	token, _, err := h.sessions.IssueSessionToken(session)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue session token", "request_id", requestID, "error", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue session token"))
		return
	}
	w.Header().Set(middleware.SessionHeader, token)
	writeResult(w, status, res, nil)
}

// optionalSession resumes the caller's session when a token is supplied and
// mints a new one otherwise. A supplied but invalid token is rejected.
func (h *Handler) optionalSession(w http.ResponseWriter, r *http.Request) (domain.SessionID, bool) {
	token := strings.TrimSpace(r.Header.Get(middleware.SessionHeader))
	if token == "" {
		return domain.NewSessionID(), true
	}
	session, err := h.validator.ValidateSession(token)
	if err != nil {
		httputil.WriteError(w, err)
		return domain.SessionID{}, false
	}
	return session, true
}

func (h *Handler) handleSaveStage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, ok := h.sessionFromContext(w, r)
	if !ok {
		return
	}
	stage, err := onboarding.ParseStage(chi.URLParam(r, "stage"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	payload, ok := httputil.DecodeAndPrepare[map[string]any](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	res, err := h.onboarding.SaveStage(ctx, session, stage, *payload)
	writeResult(w, http.StatusOK, res, err)
}

func (h *Handler) handleIngestDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, ok := h.sessionFromContext(w, r)
	if !ok {
		return
	}
	role, err := document.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	file, err := h.readUpload(r, "file")
	if err != nil {
		h.logger.WarnContext(ctx, "invalid document upload",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if file == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "file is required"))
		return
	}
	res, err := h.onboarding.IngestDocument(ctx, session, role, *file)
	writeResult(w, http.StatusCreated, res, err)
}

func (h *Handler) handleSubmitKYC(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessionFromContext(w, r)
	if !ok {
		return
	}
	res, err := h.onboarding.SubmitKYC(r.Context(), session)
	writeResult(w, http.StatusOK, res, err)
}

func (h *Handler) handleKYCStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, ok := h.sessionFromContext(w, r)
	if !ok {
		return
	}
	id, err := h.onboarding.SessionIdentity(ctx, session)
	if err != nil {
		writeResult(w, http.StatusOK, onboarding.Result{Message: dErrors.MessageOf(err)}, err)
		return
	}
	res, err := h.onboarding.KYCStatus(ctx, id)
	writeResult(w, http.StatusOK, res, err)
}

func (h *Handler) handleFinalize(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessionFromContext(w, r)
	if !ok {
		return
	}
	res, err := h.onboarding.Finalize(r.Context(), session)
	writeResult(w, http.StatusOK, res, err)
}

func (h *Handler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.sessionFromContext(w, r)
	if !ok {
		return
	}
	res, err := h.onboarding.EndSession(r.Context(), session)
	writeResult(w, http.StatusOK, res, err)
}

// readUpload reads the named multipart file. It returns nil, nil when the
// request carries no such part.
func (h *Handler) readUpload(r *http.Request, field string) (*document.File, error) {
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid multipart form")
	}
	part, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid upload")
	}
	defer part.Close()

	data, err := io.ReadAll(io.LimitReader(part, h.maxUploadBytes+1))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "failed to read upload")
	}
	return &document.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
