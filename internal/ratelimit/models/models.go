// Package models holds the rate limit types shared by the bucket stores and
// the HTTP middleware.
package models

import (
	"fmt"
	"time"
)

// EndpointClass groups routes that share one limit.
type EndpointClass string

const (
	// ClassIdentity covers identity creation (stage 1).
	ClassIdentity EndpointClass = "identity"
	// ClassLogin covers credential verification.
	ClassLogin EndpointClass = "login"
)

// Limit is a request budget per sliding window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// RateLimitResult is the outcome of one check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter is whole seconds until a denied caller may retry.
	RetryAfter int
}

// BucketKey scopes a counter to an endpoint class and client.
func BucketKey(class EndpointClass, client string) string {
	return fmt.Sprintf("ratelimit:%s:%s", class, client)
}
