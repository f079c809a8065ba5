// Package test contains helpers shared by unit tests.
package test

import (
	"context"
	"testing"

	"github.com/ridge/redchat/tlog"
	"time"
)

// Context returns a new testing context carrying a test logger.
//
// Code relying on tlog.Get should be tested with it.
func Context(t *testing.T) context.Context {
	ctx := context.Background()
	return tlog.WithLogger(ctx, tlog.NewForTesting(t))
}

// ContextWithTimeout is a version of Context with a timeout.
//
// If the timeout expires, the test context is closed with
// context.DeadlineExceeded.
func ContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(Context(t), timeout)
	t.Cleanup(cancel)
	return ctx
}
