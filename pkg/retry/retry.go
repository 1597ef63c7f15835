// Package retry implements the bounded polling used by every register
// handshake in the bring-up core.
//
// A poll evaluates a condition at most Budget.Attempts times, pausing
// Budget.Interval between evaluations. When Budget.Timeout is non-zero
// the whole poll also runs under a monotonic deadline. No poll can block
// forever: exhaustion of either limit surfaces as [pkg.ErrTimeout].
package retry

import (
	"context"
	"time"

	"github.com/efficientgo/core/errors"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/ardnew/softxhci/pkg"
)

// Default poll limits, matching the iteration ceiling of the register
// handshakes on hardware without a timer service.
const (
	DefaultAttempts = 1000
	DefaultInterval = time.Microsecond
)

// Budget bounds a single poll.
type Budget struct {
	// Attempts is the maximum number of condition evaluations.
	Attempts int

	// Interval is the pause between evaluations.
	Interval time.Duration

	// Timeout is an optional wall-clock ceiling; zero disables it.
	Timeout time.Duration
}

// DefaultBudget returns the default poll budget.
func DefaultBudget() Budget {
	return Budget{Attempts: DefaultAttempts, Interval: DefaultInterval}
}

// Valid reports whether the budget allows at least one evaluation.
func (b Budget) Valid() bool {
	return b.Attempts > 0 && b.Interval >= 0 && b.Timeout >= 0
}

// Until evaluates cond until it returns true or the budget is exhausted.
//
// It returns nil on success, an error wrapping [pkg.ErrTimeout] when the
// budget runs out, and the context error when ctx is cancelled by the
// caller. The condition is always evaluated at least once.
func Until(ctx context.Context, b Budget, cond func() bool) error {
	if !b.Valid() {
		return errors.Wrapf(pkg.ErrInvalidParameter, "poll budget %+v", b)
	}

	pollCtx := ctx
	if b.Timeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, b.Timeout)
		defer cancel()
	}

	backoff := wait.Backoff{
		Duration: b.Interval,
		Factor:   1,
		Steps:    b.Attempts,
	}

	err := wait.ExponentialBackoffWithContext(pollCtx, backoff,
		func(context.Context) (bool, error) { return cond(), nil })

	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case wait.Interrupted(err):
		return errors.Wrapf(pkg.ErrTimeout, "after %d attempts", b.Attempts)
	default:
		return err
	}
}

// Count is like Until but also reports how many times cond was evaluated.
func Count(ctx context.Context, b Budget, cond func() bool) (int, error) {
	n := 0
	err := Until(ctx, b, func() bool {
		n++
		return cond()
	})
	return n, err
}
