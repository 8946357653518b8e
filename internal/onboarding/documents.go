package onboarding

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"brokerage/internal/document"
	"brokerage/internal/events"
	"brokerage/pkg/domain"
	dErrors "brokerage/pkg/domain-errors"
)

// IngestDocument uploads a KYC document, records it on the KYC record and
// stages its location under the role's stage. Nothing is uploaded once the
// KYC record is submitted or verified. Only the primary identity
// document blocks on failure; other roles succeed with a warning.
func (s *Service) IngestDocument(ctx context.Context, session domain.SessionID, role document.Role, file document.File) (res Result, err error) {
	ctx, span, started := s.startSpan(ctx, "IngestDocument",
		attribute.String("session", session.String()), attribute.String("role", role.String()))
	defer func() { s.finish(span, "document_"+role.String(), started, err) }()

	scope := "document " + role.String()
	rule, ok := documentRules[role]
	if !ok {
		err = dErrors.New(dErrors.CodeValidation, fmt.Sprintf("role %q is not collected during onboarding", role))
		return failure(scope, "", err), err
	}
	binding, err := s.binding(ctx, session)
	if err != nil {
		return failure(scope, "", err), err
	}
	id := binding.Identity

	current, err := s.kyc.Latest(ctx, id)
	if err != nil && !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return failure(scope, id, err), err
	}
	if current.Locked() {
		err = dErrors.New(dErrors.CodeInvalidState, "kyc documents cannot change after submission")
		return failure(scope, id, err), err
	}

	loc, err := s.documents.Ingest(ctx, id, role, file)
	if err != nil {
		if rule.mandatory {
			return failure(scope, id, err), err
		}
		s.logger.WarnContext(ctx, "optional document skipped", "identity", id, "role", role, "error", err)
		return Result{
			Success:  true,
			Message:  scope + " skipped",
			Identity: id,
			Warnings: []string{fmt.Sprintf("%s could not be stored; you can upload it later", role)},
		}, nil
	}

	var warnings []string
	if _, err = s.kyc.RecordDocument(ctx, id, role, loc); err != nil {
		if rule.mandatory {
			return failure(scope, id, err), err
		}
		s.logger.WarnContext(ctx, "optional document not recorded on kyc", "identity", id, "role", role, "error", err)
		warnings = append(warnings, fmt.Sprintf("%s was stored but not attached to your KYC record", role))
		err = nil
	}

	fragment, err := s.stagedFragment(ctx, session, id, rule.stage)
	if err != nil {
		return failure(scope, id, err), err
	}
	fragment[documentKey(role)] = map[string]any{
		"bucket": loc.Bucket,
		"path":   loc.Path,
		"url":    loc.URL,
	}
	if err = s.staging.Put(ctx, session, id, rule.stage.Key(), fragment); err != nil {
		err = dErrors.Wrap(err, dErrors.CodePersistenceFailure, "failed to stage document reference")
		return failure(scope, id, err), err
	}

	s.publish(ctx, events.TypeDocumentIngested, id, map[string]string{
		"role":   role.String(),
		"bucket": loc.Bucket,
	})
	return Result{
		Success:  true,
		Message:  scope + " stored",
		Identity: id,
		Warnings: warnings,
		Details:  map[string]string{"bucket": loc.Bucket, "path": loc.Path, "url": loc.URL},
	}, nil
}

// SubmitKYC submits the identity's KYC record for review. The primary
// identity document must have been recorded first.
func (s *Service) SubmitKYC(ctx context.Context, session domain.SessionID) (res Result, err error) {
	ctx, span, started := s.startSpan(ctx, "SubmitKYC", attribute.String("session", session.String()))
	defer func() { s.finish(span, "kyc_submit", started, err) }()

	binding, err := s.binding(ctx, session)
	if err != nil {
		return failure("kyc", "", err), err
	}
	id := binding.Identity

	record, err := s.kyc.Latest(ctx, id)
	if err != nil && !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return failure("kyc", id, err), err
	}
	if !record.HasDocument(document.RolePrimaryIdentity) {
		err = dErrors.New(dErrors.CodeSequence, "primary identity document must be uploaded before submission")
		return failure("kyc", id, err), err
	}
	record, err = s.kyc.Submit(ctx, id)
	if err != nil {
		return failure("kyc", id, err), err
	}
	return Result{
		Success:  true,
		Message:  "kyc submitted",
		Identity: id,
		Details:  map[string]string{"kyc_state": string(record.State())},
	}, nil
}

// KYCStatus reports "verified" or "unverified" for dashboards.
func (s *Service) KYCStatus(ctx context.Context, id domain.Identity) (Result, error) {
	if id.IsZero() {
		err := dErrors.New(dErrors.CodeValidation, "identity is required")
		return failure("kyc status", "", err), err
	}
	status := s.kyc.VisibleStatus(ctx, id)
	return Result{
		Success:  true,
		Message:  status,
		Identity: id,
		Details:  map[string]string{"kyc_status": status},
	}, nil
}
