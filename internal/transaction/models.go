package transaction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"brokerage/internal/document"
	"brokerage/pkg/domain"
)

// Kind is the direction of a funds movement.
type Kind string

const (
	KindDeposit    Kind = "deposit"
	KindWithdrawal Kind = "withdrawal"
)

// StatusPending is the status every new request starts in. Approval and
// settlement happen outside this service.
const StatusPending = "pending"

// Request is a caller's funds-movement request. PaymentMode is the logical
// mode as the user picked it (for example "upi").
type Request struct {
	Amount      decimal.Decimal
	Currency    string
	PaymentMode string
	Reference   string
}

// Record is one persisted transaction row. PaymentMode holds the encoding the
// store accepted, or nil when the row was written without one.
type Record struct {
	ID          uuid.UUID
	Identity    domain.Identity
	Kind        Kind
	Amount      decimal.Decimal
	Currency    string
	PaymentMode *string
	Proof       *document.Location
	Reference   string
	Status      string
	CreatedAt   time.Time
}

// Submission is the result of a successful request.
type Submission struct {
	Record       *Record
	UsedFallback bool
	Warnings     []string
}
