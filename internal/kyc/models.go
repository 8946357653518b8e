package kyc

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"brokerage/internal/document"
	"brokerage/pkg/domain"
)

// State is the derived lifecycle position of a KYC record.
type State string

const (
	StateUnset      State = "unset"
	StateInProgress State = "in_progress"
	StateSubmitted  State = "submitted"
	StateVerified   State = "verified"
	StateRejected   State = "rejected"
)

// Visible statuses shown on dashboards.
const (
	VisibleVerified   = "verified"
	VisibleUnverified = "unverified"
)

// Record is the KYC row for an identity. Status is stored raw because
// reviewers outside this service write it; use State to interpret it.
type Record struct {
	ID          uuid.UUID
	Identity    domain.Identity
	Documents   map[document.Role]document.Location
	Status      string
	SubmittedAt *time.Time
	ReviewedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// State interprets the record. Verified and rejected come from the raw status;
// otherwise the submission timestamp alone decides between submitted and in
// progress.
func (r *Record) State() State {
	if r == nil {
		return StateUnset
	}
	switch State(normalize(r.Status)) {
	case StateVerified:
		return StateVerified
	case StateRejected:
		return StateRejected
	}
	if r.SubmittedAt != nil {
		return StateSubmitted
	}
	return StateInProgress
}

// HasDocument reports whether a document for role has been recorded.
// Locked reports whether the record no longer accepts documents.
func (r *Record) Locked() bool {
	switch r.State() {
	case StateSubmitted, StateVerified:
		return true
	}
	return false
}

func (r *Record) HasDocument(role document.Role) bool {
	if r == nil {
		return false
	}
	_, ok := r.Documents[role]
	return ok
}

func (r *Record) clone() *Record {
	cp := *r
	cp.Documents = make(map[document.Role]document.Location, len(r.Documents))
	for k, v := range r.Documents {
		cp.Documents[k] = v
	}
	if r.SubmittedAt != nil {
		t := *r.SubmittedAt
		cp.SubmittedAt = &t
	}
	if r.ReviewedAt != nil {
		t := *r.ReviewedAt
		cp.ReviewedAt = &t
	}
	return &cp
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	return r.clone()
}

// VisibleStatus maps a raw status to what dashboards show. Only a status that
// reads "verified" after trimming and lower-casing counts as verified.
func VisibleStatus(raw string) string {
	if normalize(raw) == VisibleVerified {
		return VisibleVerified
	}
	return VisibleUnverified
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
