package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{name: "unset bucket list stays nil", input: nil, want: nil},
		{
			name:  "bucket list from env with padding and repeats",
			input: []string{" kyc-documents", "documents ", "kyc-documents", ""},
			want:  []string{"kyc-documents", "documents"},
		},
		{
			name:  "payment mode casings stay distinct",
			input: []string{"upi", "Upi", "UPI", "UPI"},
			want:  []string{"upi", "Upi", "UPI"},
		},
		{
			name:  "alias repeating a generated casing",
			input: []string{"UPI", "Upi", "UPI", " UPI_Payment "},
			want:  []string{"UPI", "Upi", "UPI_Payment"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DedupeAndTrim(tt.input))
		})
	}
}

func TestDedupeAndTrimLower(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{name: "no brokers", input: nil, want: nil},
		{
			name:  "broker hosts differing only in case",
			input: []string{"Kafka-1:9092", "kafka-1:9092 ", "kafka-2:9092", " "},
			want:  []string{"kafka-1:9092", "kafka-2:9092"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DedupeAndTrimLower(tt.input))
		})
	}
}
