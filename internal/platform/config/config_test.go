package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, 2*time.Hour, cfg.Staging.SessionTTL)
	assert.Equal(t, []string{"kyc-documents", "documents", "uploads"}, cfg.Documents.Buckets)
	assert.Equal(t, []string{"UPI_Payment"}, cfg.Payments.ModeAliases()["upi"])
	assert.Equal(t, 5, cfg.RateLimit.LoginRequests)
	assert.Equal(t, 1, cfg.Session.MinSecretLength)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
}

func TestLoad_NormalizesLists(t *testing.T) {
	t.Setenv("DOCUMENT_BUCKETS", "primary, primary,secondary")
	t.Setenv("KAFKA_BROKERS", "K1:9092,k1:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"primary", "secondary"}, cfg.Documents.Buckets)
	assert.Equal(t, []string{"k1:9092"}, cfg.Kafka.Brokers)
}

func TestLoad_RejectsEmptyBuckets(t *testing.T) {
	t.Setenv("DOCUMENT_BUCKETS", " , ")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("DOCUMENT_BUCKETS", "primary,secondary")
	t.Setenv("PAYMENT_MODE_ALIASES", "UPI=UPI_Payment|UPI Payment;wallet=E_Wallet")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"primary", "secondary"}, cfg.Documents.Buckets)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	aliases := cfg.Payments.ModeAliases()
	assert.Equal(t, []string{"UPI_Payment", "UPI Payment"}, aliases["upi"])
	assert.Equal(t, []string{"E_Wallet"}, aliases["wallet"])
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "mysql")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_DRIVER")
}

func TestLoad_RequestTimeoutMustFitWriteTimeout(t *testing.T) {
	t.Setenv("SERVER_REQUEST_TIMEOUT", "2m")

	_, err := Load()
	require.ErrorContains(t, err, "SERVER_REQUEST_TIMEOUT")
}
