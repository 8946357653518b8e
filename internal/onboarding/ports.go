package onboarding

import (
	"context"

	"brokerage/internal/document"
	"brokerage/internal/kyc"
	"brokerage/internal/profile"
	"brokerage/pkg/domain"
)

// ProfileWriter is the durable profile collaborator.
type ProfileWriter interface {
	UpsertFields(ctx context.Context, identity domain.Identity, fields profile.Fields) error
	Get(ctx context.Context, identity domain.Identity) (*profile.Record, error)
}

// DocumentIngester places uploaded documents.
type DocumentIngester interface {
	Ingest(ctx context.Context, identity domain.Identity, role document.Role, file document.File) (document.Location, error)
}

// KYCTracker tracks the identity's KYC record.
type KYCTracker interface {
	RecordDocument(ctx context.Context, identity domain.Identity, role document.Role, loc document.Location) (*kyc.Record, error)
	Latest(ctx context.Context, identity domain.Identity) (*kyc.Record, error)
	Submit(ctx context.Context, identity domain.Identity) (*kyc.Record, error)
	VisibleStatus(ctx context.Context, identity domain.Identity) string
}
