package httptransport

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"brokerage/internal/document"
	"brokerage/internal/transaction"
	"brokerage/pkg/domain"
	dErrors "brokerage/pkg/domain-errors"
	"brokerage/pkg/platform/httputil"
	"brokerage/pkg/requestcontext"
)

// TransactionRequest is the JSON body for deposits and withdrawals. Deposits
// with a proof are sent as multipart forms with the same field names and a
// "proof" file part.
type TransactionRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	PaymentMode string          `json:"payment_mode"`
	Reference   string          `json:"reference,omitempty"`
}

func (r TransactionRequest) toDomain() transaction.Request {
	return transaction.Request{
		Amount:      r.Amount,
		Currency:    r.Currency,
		PaymentMode: r.PaymentMode,
		Reference:   r.Reference,
	}
}

// TransactionResponse describes the stored request. PaymentMode is null when
// the row was recorded without a mode.
type TransactionResponse struct {
	ID           string             `json:"id"`
	Kind         transaction.Kind   `json:"kind"`
	Amount       string             `json:"amount"`
	Currency     string             `json:"currency"`
	PaymentMode  *string            `json:"payment_mode"`
	Proof        *document.Location `json:"proof,omitempty"`
	Reference    string             `json:"reference,omitempty"`
	Status       string             `json:"status"`
	CreatedAt    time.Time          `json:"created_at"`
	UsedFallback bool               `json:"used_fallback"`
	Warnings     []string           `json:"warnings,omitempty"`
}

func toTransactionResponse(sub *transaction.Submission) TransactionResponse {
	rec := sub.Record
	return TransactionResponse{
		ID:           rec.ID.String(),
		Kind:         rec.Kind,
		Amount:       rec.Amount.String(),
		Currency:     rec.Currency,
		PaymentMode:  rec.PaymentMode,
		Proof:        rec.Proof,
		Reference:    rec.Reference,
		Status:       rec.Status,
		CreatedAt:    rec.CreatedAt,
		UsedFallback: sub.UsedFallback,
		Warnings:     sub.Warnings,
	}
}

func (h *Handler) handleDeposit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.transactionIdentity(w, r)
	if !ok {
		return
	}

	var (
		req   *TransactionRequest
		proof *document.File
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, err := h.readUpload(r, "proof")
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		req, err = transactionFromForm(r)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		proof = file
	} else {
		req, ok = httputil.DecodeAndPrepare[TransactionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
		if !ok {
			return
		}
	}

	sub, err := h.transactions.SubmitDeposit(ctx, id, req.toDomain(), proof)
	if err != nil {
		h.logTransactionFailure(r, transaction.KindDeposit, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toTransactionResponse(sub))
}

func (h *Handler) handleWithdrawal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.transactionIdentity(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[TransactionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	sub, err := h.transactions.SubmitWithdrawal(ctx, id, req.toDomain())
	if err != nil {
		h.logTransactionFailure(r, transaction.KindWithdrawal, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toTransactionResponse(sub))
}

// transactionIdentity resolves the identity bound to the caller's session.
func (h *Handler) transactionIdentity(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	session, ok := h.sessionFromContext(w, r)
	if !ok {
		return "", false
	}
	id, err := h.onboarding.SessionIdentity(r.Context(), session)
	if err != nil {
		httputil.WriteError(w, err)
		return "", false
	}
	return id, true
}

func transactionFromForm(r *http.Request) (*TransactionRequest, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(r.FormValue("amount")))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "amount must be a decimal number")
	}
	return &TransactionRequest{
		Amount:      amount,
		Currency:    r.FormValue("currency"),
		PaymentMode: r.FormValue("payment_mode"),
		Reference:   r.FormValue("reference"),
	}, nil
}

func (h *Handler) logTransactionFailure(r *http.Request, kind transaction.Kind, err error) {
	ctx := r.Context()
	log := h.logger.WarnContext
	if dErrors.CodeOf(err) == dErrors.CodeEncodingExhausted || dErrors.CodeOf(err) == dErrors.CodeInternal {
		log = h.logger.ErrorContext
	}
	log(ctx, "transaction request failed",
		"request_id", requestcontext.RequestID(ctx),
		"kind", kind,
		"code", dErrors.CodeOf(err),
		"error", err,
	)
}
