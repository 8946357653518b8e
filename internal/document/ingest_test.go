package document_test

import (
	"errors"
	"strconv"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"brokerage/internal/document"
	"brokerage/internal/document/mocks"
	"brokerage/internal/objectstore/memory"
	"brokerage/internal/platform/metrics"
	"brokerage/pkg/domain"
	dErrors "brokerage/pkg/domain-errors"
	"brokerage/pkg/platform/trial"
	bdd "brokerage/pkg/testutil"
)

var buckets = []string{"kyc-documents", "documents", "uploads"}

func TestIngestPlacesInFirstAcceptingBucket(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockObjectStore(ctrl)
	ingester, err := document.New(store, buckets)
	require.NoError(t, err)

	ctx := bdd.ContextAt(bdd.FixedTime)
	millis := strconv.FormatInt(bdd.FixedTime.UnixMilli(), 10)
	wantPath := "id-1/primary_identity/" + millis + "_my_passport.pdf"
	data := []byte("%PDF-1.7 passport")

	gomock.InOrder(
		store.EXPECT().Put(ctx, "kyc-documents", wantPath, data, "application/pdf").Return(errors.New("bucket not found")),
		store.EXPECT().Put(ctx, "documents", wantPath, data, "application/pdf").Return(nil),
		store.EXPECT().PublicURL("documents", wantPath).Return("https://cdn/documents/" + wantPath),
	)

	loc, err := ingester.Ingest(ctx, "id-1", document.RolePrimaryIdentity, document.File{
		Name: "my passport.pdf",
		Data: data,
	})
	require.NoError(t, err)
	assert.Equal(t, document.Location{Bucket: "documents", Path: wantPath, URL: "https://cdn/documents/" + wantPath}, loc)
}

func TestIngestAllBucketsFail(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	store := memory.New("mem://objects")
	ingester, err := document.New(store, buckets, document.WithMetrics(m))
	require.NoError(t, err)

	_, err = ingester.Ingest(bdd.ContextAt(bdd.FixedTime), "id-1", document.RolePhoto, document.File{Name: "me.png", Data: []byte("png")})

	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUploadFailure))
	var diag *trial.DiagnosticError
	require.ErrorAs(t, err, &diag)
	assert.Equal(t, buckets, diag.Candidates())
	assert.ErrorIs(t, err, trial.ErrUnavailable)
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, float64(3), testutil.ToFloat64(m.TrialAttempts.WithLabelValues("document_placement", "rejected")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DocumentsIngested.WithLabelValues("photo", "failed")))
}

func TestIngestValidation(t *testing.T) {
	ingester, err := document.New(memory.New("mem://objects", "documents"), []string{"documents"}, document.WithMaxBytes(4))
	require.NoError(t, err)
	ctx := bdd.ContextAt(bdd.FixedTime)

	tests := []struct {
		name     string
		identity string
		role     document.Role
		file     document.File
	}{
		{name: "missing identity", role: document.RolePhoto, file: document.File{Data: []byte("a")}},
		{name: "unknown role", identity: "id-1", role: "selfie_video", file: document.File{Data: []byte("a")}},
		{name: "empty file", identity: "id-1", role: document.RolePhoto},
		{name: "oversized file", identity: "id-1", role: document.RolePhoto, file: document.File{Data: []byte("12345")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ingester.Ingest(ctx, domainIdentity(tt.identity), tt.role, tt.file)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func TestIngestStoresDetectedContentType(t *testing.T) {
	store := memory.New("mem://objects", "uploads")
	ingester, err := document.New(store, buckets)
	require.NoError(t, err)

	bdd.Given(t, "only the last bucket exists", func(t *testing.T) {
		loc, err := ingester.Ingest(bdd.ContextAt(bdd.FixedTime), "id-1", document.RoleAddressProof, document.File{Name: "", Data: []byte("plain text bill")})
		require.NoError(t, err)

		bdd.Then(t, "the document lands there with a sniffed type", func(t *testing.T) {
			assert.Equal(t, "uploads", loc.Bucket)
			obj, ok := store.Object("uploads", loc.Path)
			require.True(t, ok)
			assert.Equal(t, "text/plain; charset=utf-8", obj.ContentType)
			assert.Contains(t, loc.Path, "_file")
		})
	})
}

func TestSanitizeName(t *testing.T) {
	tests := map[string]string{
		"":                "file",
		"passport.pdf":    "passport.pdf",
		"my passport.pdf": "my_passport.pdf",
		"../../etc":       ".._.._etc",
		"résumé.png":      "r_sum_.png",
		"a-b_c":           "a_b_c",
	}
	for in, want := range tests {
		assert.Equal(t, want, document.SanitizeName(in), in)
	}
}

func TestParseRole(t *testing.T) {
	role, err := document.ParseRole(" Primary_Identity ")
	require.NoError(t, err)
	assert.Equal(t, document.RolePrimaryIdentity, role)

	_, err = document.ParseRole("selfie")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func domainIdentity(s string) domain.Identity {
	return domain.Identity(s)
}
