// Package staging holds partially-entered registration data for the lifetime
// of one session. Fragments are opaque: the store performs no validation.
//
// Entries are scoped by (session, identity, stage). A new session starts with
// an empty store; nothing is shared across sessions, so no locking beyond the
// implementation's own is required.
package staging

import (
	"context"

	"brokerage/pkg/domain"
)

// StageKey names the stage a fragment belongs to.
type StageKey string

// Fragment is an untyped key/value payload captured by one stage.
type Fragment map[string]any

// Clone returns a shallow copy so callers cannot mutate stored fragments.
func (f Fragment) Clone() Fragment {
	if f == nil {
		return nil
	}
	out := make(Fragment, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Binding records which identity stage 1 minted (or re-authenticated) in a session.
type Binding struct {
	Identity domain.Identity `json:"identity"`
	Email    domain.Email    `json:"email"`
}

// Store is the session-scoped key/value cache.
//
// Get and Identity return sentinel.ErrNotFound when nothing is stored.
// Clear removes every fragment for the identity but keeps the session binding,
// so a re-run of finalize still finds its identity. EndSession drops everything.
type Store interface {
	BindIdentity(ctx context.Context, session domain.SessionID, binding Binding) error
	Identity(ctx context.Context, session domain.SessionID) (Binding, error)
	Put(ctx context.Context, session domain.SessionID, identity domain.Identity, stage StageKey, fragment Fragment) error
	Get(ctx context.Context, session domain.SessionID, identity domain.Identity, stage StageKey) (Fragment, error)
	Clear(ctx context.Context, session domain.SessionID, identity domain.Identity) error
	EndSession(ctx context.Context, session domain.SessionID) error
}
