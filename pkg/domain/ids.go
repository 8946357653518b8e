package domain

import (
	"strings"
	"unicode"

	"github.com/asaskevich/govalidator"
	"github.com/google/uuid"

	dErrors "brokerage/pkg/domain-errors"
)

const maxIdentityLength = 128

// Identity is the opaque, stable key the identity provider mints for one
// registrant. It is never an email; the two are distinct types so a value is
// classified once at the trust boundary and never re-sniffed downstream.
type Identity string

// ParseIdentity constructs an Identity from external input.
//
// Errors: returns CodeValidation when the value is empty, too long, or contains
// whitespace or control characters.
func ParseIdentity(s string) (Identity, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "identity cannot be empty")
	}
	if len(s) > maxIdentityLength {
		return "", dErrors.New(dErrors.CodeValidation, "identity is too long")
	}
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) || r == '/' {
			return "", dErrors.New(dErrors.CodeValidation, "identity contains invalid characters")
		}
	}
	return Identity(s), nil
}

func (i Identity) String() string {
	return string(i)
}

func (i Identity) IsZero() bool {
	return i == ""
}

// Email is a normalized (trimmed, lower-cased) email address.
type Email string

// ParseEmail normalizes and validates an email address.
func ParseEmail(s string) (Email, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if normalized == "" {
		return "", dErrors.New(dErrors.CodeValidation, "email cannot be empty")
	}
	if !govalidator.IsEmail(normalized) {
		return "", dErrors.New(dErrors.CodeValidation, "email is not valid")
	}
	return Email(normalized), nil
}

func (e Email) String() string {
	return string(e)
}

// SessionID names one registration session.
type SessionID uuid.UUID

// NewSessionID mints a random session ID.
func NewSessionID() SessionID {
	return SessionID(uuid.New())
}

// ParseSessionID parses a session ID, rejecting malformed and nil UUIDs.
func ParseSessionID(s string) (SessionID, error) {
	if s == "" {
		return SessionID{}, dErrors.New(dErrors.CodeValidation, "session id cannot be empty")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return SessionID{}, dErrors.New(dErrors.CodeValidation, "invalid session id format")
	}
	if parsed == uuid.Nil {
		return SessionID{}, dErrors.New(dErrors.CodeValidation, "session id cannot be nil")
	}
	return SessionID(parsed), nil
}

func (s SessionID) String() string {
	return uuid.UUID(s).String()
}

func (s SessionID) IsNil() bool {
	return uuid.UUID(s) == uuid.Nil
}
