package objectstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanPath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "id-1/primary_identity/1_a.pdf", want: "id-1/primary_identity/1_a.pdf"},
		{in: "a//b/./c", want: "a/b/c"},
		{in: "", wantErr: true},
		{in: "/etc/passwd", wantErr: true},
		{in: "../escape", wantErr: true},
		{in: "a/../../escape", wantErr: true},
		{in: "a\\b", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := CleanPath(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPath)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPublicURLEscapesSegments(t *testing.T) {
	got := PublicURL("http://localhost:8080/objects/", "kyc-documents", "id 1/photo/1_a.png")
	assert.Equal(t, "http://localhost:8080/objects/kyc-documents/id%201/photo/1_a.png", got)
}
