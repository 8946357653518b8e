package onboarding

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"brokerage/internal/events"
	"brokerage/internal/profile"
	"brokerage/pkg/domain"
	dErrors "brokerage/pkg/domain-errors"
	"brokerage/pkg/requestcontext"
)

// Finalize folds staged fragments 2..7 into the profile in stage order (later
// stages win on key collisions), marks onboarding completed and clears the
// staged fragments. The session binding survives, so running it again finds
// nothing staged and leaves an already completed profile as it is.
func (s *Service) Finalize(ctx context.Context, session domain.SessionID) (res Result, err error) {
	ctx, span, started := s.startSpan(ctx, "Finalize", attribute.String("session", session.String()))
	defer func() { s.finish(span, "finalize", started, err) }()

	binding, err := s.binding(ctx, session)
	if err != nil {
		return failure("finalize", "", err), err
	}
	id := binding.Identity

	merged := profile.Fields{}
	staged := 0
	for _, stage := range stagedStages {
		fragment, ferr := s.stagedFragment(ctx, session, id, stage)
		if ferr != nil {
			err = ferr
			return failure("finalize", id, err), err
		}
		if len(fragment) > 0 {
			staged++
		}
		for k, v := range fragment {
			if isDocumentKey(k) {
				continue
			}
			merged[k] = v
		}
	}

	if staged == 0 && s.alreadyCompleted(ctx, id) {
		return Result{Success: true, Message: "onboarding already completed", Identity: id}, nil
	}

	if binding.Email != "" {
		merged[profile.FieldEmail] = binding.Email.String()
	}
	merged[profile.FieldOnboardingStatus] = profile.OnboardingCompleted
	merged[profile.FieldCompletedAt] = requestcontext.Now(ctx).UTC().Format(time.RFC3339)

	if err = s.profiles.UpsertFields(ctx, id, merged); err != nil {
		return failure("finalize", id, err), err
	}

	var warnings []string
	if cerr := s.staging.Clear(ctx, session, id); cerr != nil {
		s.logger.WarnContext(ctx, "failed to clear staged data", "identity", id, "error", cerr)
		warnings = append(warnings, "staged data could not be cleared; it will expire with the session")
	}

	s.metrics.IncrementFinalize()
	s.logger.InfoContext(ctx, "onboarding finalized", "identity", id, "fields", len(merged), "stages", staged)
	s.publish(ctx, events.TypeFinalized, id, map[string]string{
		"stages": strconv.Itoa(staged),
	})
	return Result{Success: true, Message: "onboarding completed", Identity: id, Warnings: warnings}, nil
}

func (s *Service) alreadyCompleted(ctx context.Context, id domain.Identity) bool {
	record, err := s.profiles.Get(ctx, id)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			s.logger.WarnContext(ctx, "profile lookup failed during finalize", "identity", id, "error", err)
		}
		return false
	}
	return record.Fields[profile.FieldOnboardingStatus] == profile.OnboardingCompleted
}
