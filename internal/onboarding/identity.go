package onboarding

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"brokerage/internal/events"
	"brokerage/internal/identity"
	"brokerage/internal/staging"
	"brokerage/pkg/domain"
	dErrors "brokerage/pkg/domain-errors"
	"brokerage/pkg/requestcontext"
)

// BootstrapIdentity is stage 1 and the only place an identity is minted. An
// email that already has an identity fails closed with IdentityConflict; the
// caller should offer Reauthenticate instead.
func (s *Service) BootstrapIdentity(ctx context.Context, session domain.SessionID, rawEmail, secret string) (res Result, err error) {
	ctx, span, started := s.startSpan(ctx, "BootstrapIdentity", attribute.String("session", session.String()))
	defer func() { s.finish(span, StageIdentity.String(), started, err) }()

	email, err := domain.ParseEmail(rawEmail)
	if err != nil {
		return failure(StageIdentity.String(), "", err), err
	}

	id, err := s.identities.Create(ctx, email, secret)
	if err != nil {
		err = translateProviderError(err)
		return failure(StageIdentity.String(), "", err), err
	}
	if err = s.staging.BindIdentity(ctx, session, staging.Binding{Identity: id, Email: email}); err != nil {
		err = dErrors.Wrap(err, dErrors.CodePersistenceFailure, "failed to bind identity to session")
		return failure(StageIdentity.String(), id, err), err
	}

	s.metrics.IncrementIdentitiesCreated()
	s.logger.InfoContext(ctx, "identity created", "identity", id, "session", session)
	s.publish(ctx, events.TypeIdentityCreated, id, map[string]string{
		"device": identity.DeviceLabel(requestcontext.UserAgent(ctx)),
	})
	return Result{Success: true, Message: "identity created", Identity: id}, nil
}

// Reauthenticate binds an existing identity to the session after verifying
// its credentials. It is the "log in instead" path after an IdentityConflict.
func (s *Service) Reauthenticate(ctx context.Context, session domain.SessionID, rawEmail, secret string) (res Result, err error) {
	ctx, span, started := s.startSpan(ctx, "Reauthenticate", attribute.String("session", session.String()))
	defer func() { s.finish(span, "login", started, err) }()

	email, err := domain.ParseEmail(rawEmail)
	if err != nil {
		return failure("login", "", err), err
	}
	id, err := s.identities.Verify(ctx, email, secret)
	if err != nil {
		err = translateProviderError(err)
		return failure("login", "", err), err
	}
	if err = s.staging.BindIdentity(ctx, session, staging.Binding{Identity: id, Email: email}); err != nil {
		err = dErrors.Wrap(err, dErrors.CodePersistenceFailure, "failed to bind identity to session")
		return failure("login", id, err), err
	}
	s.logger.InfoContext(ctx, "identity re-authenticated", "identity", id, "session", session)
	return Result{Success: true, Message: "logged in", Identity: id}, nil
}

func translateProviderError(err error) error {
	switch {
	case errors.Is(err, identity.ErrAlreadyExists):
		return dErrors.Wrap(err, dErrors.CodeIdentityConflict, "an account already exists for this email; log in instead")
	case errors.Is(err, identity.ErrInvalidCredentials):
		return dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid email or secret")
	case dErrors.HasCode(err, dErrors.CodeValidation):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodePersistenceFailure, "identity provider unavailable")
	}
}
