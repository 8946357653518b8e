package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "brokerage/pkg/domain-errors"
)

// TestParseIdentity_Invariants validates the parsing invariant:
// "identities are non-empty opaque tokens without whitespace or path separators"
func TestParseIdentity_Invariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"empty", "", true},
		{"whitespace", "abc def", true},
		{"path separator", "../etc/passwd", true},
		{"null byte", "abc\x00def", true},
		{"oversized", strings.Repeat("a", 1000), true},
		{"uuid", uuid.NewString(), false},
		{"provider token", "usr_2f9KxQ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIdentity(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestParseEmail(t *testing.T) {
	t.Run("normalizes case and whitespace", func(t *testing.T) {
		email, err := ParseEmail("  Jo.Doe@Example.COM ")
		require.NoError(t, err)
		assert.Equal(t, Email("jo.doe@example.com"), email)
	})

	t.Run("rejects malformed addresses", func(t *testing.T) {
		for _, input := range []string{"", "   ", "not-an-email", "a@", "@x.com"} {
			_, err := ParseEmail(input)
			require.Error(t, err, input)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		}
	})
}

func TestParseSessionID(t *testing.T) {
	t.Run("rejects empty, malformed and nil", func(t *testing.T) {
		for _, input := range []string{"", "session-1", uuid.Nil.String()} {
			_, err := ParseSessionID(input)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		}
	})

	t.Run("round-trips a minted id", func(t *testing.T) {
		minted := NewSessionID()
		parsed, err := ParseSessionID(minted.String())
		require.NoError(t, err)
		assert.Equal(t, minted, parsed)
		assert.False(t, parsed.IsNil())
	})
}
