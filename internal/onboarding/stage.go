package onboarding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"brokerage/internal/events"
	"brokerage/internal/profile"
	"brokerage/internal/staging"
	"brokerage/pkg/domain"
	dErrors "brokerage/pkg/domain-errors"
	"brokerage/pkg/platform/sentinel"
)

// SaveStage stores the payload of stages 2 to 7. A session without an
// identity is a SequenceError and nothing is written. Write-through stages
// update the profile before staging; a failed profile write fails the stage.
func (s *Service) SaveStage(ctx context.Context, session domain.SessionID, stage Stage, payload map[string]any) (res Result, err error) {
	ctx, span, started := s.startSpan(ctx, "SaveStage",
		attribute.String("session", session.String()), attribute.String("stage", stage.String()))
	defer func() { s.finish(span, stage.String(), started, err) }()

	spec, ok := stageSpecs[stage]
	if !ok || stage == StageIdentity {
		err = dErrors.New(dErrors.CodeValidation, fmt.Sprintf("stage %d does not take a payload", stage))
		return failure(stage.String(), "", err), err
	}
	binding, err := s.binding(ctx, session)
	if err != nil {
		return failure(stage.String(), "", err), err
	}
	id := binding.Identity

	fields := profile.Fields(payload)
	if err = validatePayload(spec, fields); err != nil {
		return failure(stage.String(), id, err), err
	}

	if spec.writeThrough {
		write := profile.Merge(nil, fields)
		if stage == StageBasicProfile && binding.Email != "" {
			write[profile.FieldEmail] = binding.Email.String()
		}
		if err = s.profiles.UpsertFields(ctx, id, write); err != nil {
			return failure(stage.String(), id, err), err
		}
	}

	fragment, err := s.stagedFragment(ctx, session, id, stage)
	if err != nil {
		return failure(stage.String(), id, err), err
	}
	next := staging.Fragment{}
	for k, v := range fragment {
		if isDocumentKey(k) {
			next[k] = v
		}
	}
	for k, v := range payload {
		next[k] = v
	}
	if err = s.staging.Put(ctx, session, id, stage.Key(), next); err != nil {
		err = dErrors.Wrap(err, dErrors.CodePersistenceFailure, "failed to stage data")
		return failure(stage.String(), id, err), err
	}

	s.logger.InfoContext(ctx, "stage saved", "identity", id, "stage", stage.String(), "write_through", spec.writeThrough)
	s.publish(ctx, events.TypeStageSaved, id, map[string]string{
		"stage":         stage.String(),
		"write_through": fmt.Sprint(spec.writeThrough),
	})
	return Result{Success: true, Message: stage.String() + " saved", Identity: id}, nil
}

func validatePayload(spec stageSpec, fields profile.Fields) error {
	if len(fields) == 0 {
		return dErrors.New(dErrors.CodeValidation, "payload must not be empty")
	}
	for _, key := range spec.required {
		v, ok := fields[key]
		if !ok || v == nil || (isString(v) && strings.TrimSpace(v.(string)) == "") {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s is required", key))
		}
	}
	for key := range fields {
		if isDocumentKey(key) {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("field %q is managed by document upload", key))
		}
	}
	return profile.ValidateFields(fields)
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

// stagedFragment returns the stage's fragment or an empty one.
func (s *Service) stagedFragment(ctx context.Context, session domain.SessionID, id domain.Identity, stage Stage) (staging.Fragment, error) {
	fragment, err := s.staging.Get(ctx, session, id, stage.Key())
	if errors.Is(err, sentinel.ErrNotFound) {
		return staging.Fragment{}, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistenceFailure, "failed to read staged data")
	}
	return fragment, nil
}
