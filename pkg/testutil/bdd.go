package testutil

import (
	"context"
	"testing"
	"time"

	"brokerage/pkg/requestcontext"
)

// Given, When, and Then helpers keep test descriptions readable without pulling
// in a heavy BDD framework.
func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Given "+desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("When "+desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Then "+desc, fn)
}

// FixedTime is the clock most service tests pin requests to.
var FixedTime = time.Date(2025, time.March, 14, 9, 30, 0, 0, time.UTC)

// ContextAt returns a background context whose request time is t.
func ContextAt(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}
