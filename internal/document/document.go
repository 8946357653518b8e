// Package document places uploaded KYC artifacts in the object store.
//
// The bucket that accepts a given upload is not known ahead of time, so
// placement walks the configured bucket list in priority order and keeps the
// first bucket that takes the write.
package document

import (
	"context"
	"fmt"
	"strings"

	dErrors "brokerage/pkg/domain-errors"
)

//go:generate mockgen -source=document.go -destination=mocks/mocks.go -package=mocks ObjectStore

// ObjectStore is a named-bucket blob store.
type ObjectStore interface {
	Put(ctx context.Context, bucket, path string, data []byte, contentType string) error
	PublicURL(bucket, path string) string
}

// Role names what a document proves.
type Role string

const (
	RolePrimaryIdentity  Role = "primary_identity"
	RoleAddressProof     Role = "address_proof"
	RoleBankStatement    Role = "bank_statement"
	RolePhoto            Role = "photo"
	RoleTransactionProof Role = "transaction_proof"
)

var knownRoles = map[Role]bool{
	RolePrimaryIdentity:  true,
	RoleAddressProof:     true,
	RoleBankStatement:    true,
	RolePhoto:            true,
	RoleTransactionProof: true,
}

// ParseRole accepts the wire name of a known role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !knownRoles[r] {
		return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown document role %q", s))
	}
	return r, nil
}

func (r Role) String() string {
	return string(r)
}

// File is an upload as received from the caller. ContentType may be empty.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Location is where a document was placed.
type Location struct {
	Bucket string `json:"bucket"`
	Path   string `json:"path"`
	URL    string `json:"url"`
}

// IsZero reports whether no placement happened.
func (l Location) IsZero() bool {
	return l.Bucket == "" && l.Path == ""
}
