package profile

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"brokerage/pkg/domain"
	dErrors "brokerage/pkg/domain-errors"
)

// Fields is a partial set of profile values keyed by snake_case field name.
type Fields map[string]any

// Record is the durable profile row. There is at most one per identity;
// partial population is expected while registration is in progress.
type Record struct {
	Identity  domain.Identity
	Fields    Fields
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Well-known profile fields. Any other valid key is kept alongside them.
const (
	FieldEmail            = "email"
	FieldFirstName        = "first_name"
	FieldOnboardingStatus = "onboarding_status"
	FieldCompletedAt      = "completed_at"
)

// OnboardingCompleted is the onboarding_status value written by finalize.
const OnboardingCompleted = "completed"

var fieldKeyPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

// reservedKeys are managed by the store and cannot be written as fields.
var reservedKeys = map[string]bool{
	"identity":   true,
	"extra":      true,
	"created_at": true,
	"updated_at": true,
}

// ValidateFields checks keys are snake_case identifiers and values are scalars.
func ValidateFields(fields Fields) error {
	for key, value := range fields {
		if !fieldKeyPattern.MatchString(key) {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("invalid field name %q", key))
		}
		if reservedKeys[key] {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("field %q is managed by the system", key))
		}
		if !isScalar(value) {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("field %q must be a scalar value", key))
		}
	}
	return nil
}

func isScalar(v any) bool {
	switch v.(type) {
	case nil, string, bool, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}

// Merge returns a copy of base with every key of overlay applied on top.
func Merge(base, overlay Fields) Fields {
	out := make(Fields, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}
