package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"brokerage/pkg/domain"
	dErrors "brokerage/pkg/domain-errors"
	"brokerage/pkg/platform/httputil"
	"brokerage/pkg/requestcontext"
)

// SessionHeader carries the signed registration-session token.
const SessionHeader = "X-Registration-Session"

// SessionValidator validates a session token and returns the session it names.
type SessionValidator interface {
	ValidateSession(token string) (domain.SessionID, error)
}

type contextKeySessionID struct{}

// GetSessionID retrieves the registration session from the context.
func GetSessionID(ctx context.Context) (domain.SessionID, bool) {
	session, ok := ctx.Value(contextKeySessionID{}).(domain.SessionID)
	return session, ok
}

// WithSessionID stores a registration session in ctx. Handler tests use it to
// bypass RequireSession.
func WithSessionID(ctx context.Context, session domain.SessionID) context.Context {
	return context.WithValue(ctx, contextKeySessionID{}, session)
}

// RequireSession rejects requests without a valid session token. The token is
// read from SessionHeader, or from a Bearer Authorization header.
func RequireSession(validator SessionValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := sessionToken(r)
			if token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing session token",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing registration session"))
				return
			}
			session, err := validator.ValidateSession(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid session token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSessionID(ctx, session)))
		})
	}
}

func sessionToken(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get(SessionHeader)); token != "" {
		return token
	}
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}
