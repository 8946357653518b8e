package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brokerage/internal/document"
	"brokerage/internal/kyc"
	kycmemory "brokerage/internal/kyc/store/memory"
	"brokerage/pkg/domain"
	"brokerage/pkg/testutil"
)

func memoryBackend(store kyc.Store) backend {
	return backend{
		migrate: func(context.Context) error { return nil },
		kyc: func(context.Context) (kyc.Store, func(), error) {
			return store, func() {}, nil
		},
	}
}

func execute(t *testing.T, b backend, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(b)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func submitted(t *testing.T, store kyc.Store, id domain.Identity) {
	t.Helper()
	ctx := testutil.ContextAt(testutil.FixedTime)
	svc, err := kyc.New(store)
	require.NoError(t, err)
	_, err = svc.RecordDocument(ctx, id, document.RolePrimaryIdentity, document.Location{Bucket: "documents", Path: "p"})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, id)
	require.NoError(t, err)
}

func TestKYCReview(t *testing.T) {
	store := kycmemory.New()
	id := domain.Identity("9a4f1c2e-0000-4000-8000-000000000001")
	submitted(t, store, id)

	out, err := execute(t, memoryBackend(store), "kyc", "status", id.String())
	require.NoError(t, err)
	assert.Contains(t, out, "state:     submitted")
	assert.Contains(t, out, "visible:   unverified")

	out, err = execute(t, memoryBackend(store), "kyc", "review", id.String(), "--decision", "verified")
	require.NoError(t, err)
	assert.Contains(t, out, "is now verified")

	out, err = execute(t, memoryBackend(store), "kyc", "status", id.String())
	require.NoError(t, err)
	assert.Contains(t, out, "visible:   verified")
}

func TestKYCReviewRejectsBadDecision(t *testing.T) {
	store := kycmemory.New()
	id := domain.Identity("9a4f1c2e-0000-4000-8000-000000000002")
	submitted(t, store, id)

	_, err := execute(t, memoryBackend(store), "kyc", "review", id.String(), "--decision", "maybe")
	require.Error(t, err)
}

func TestKYCStatusUnknownIdentity(t *testing.T) {
	out, err := execute(t, memoryBackend(kycmemory.New()), "kyc", "status", "9a4f1c2e-0000-4000-8000-000000000003")
	require.NoError(t, err)
	assert.Contains(t, out, "state:     unset")
}

func TestMigrate(t *testing.T) {
	out, err := execute(t, memoryBackend(kycmemory.New()), "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema applied")
}
