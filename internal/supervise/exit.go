package supervise

import (
	"context"

	"github.com/SmritiSatyan/garden/internal/proc"
)

// WaitForExit returns once h has terminated, immediately if it already has.
// It does not judge the outcome; the only error is a KindCanceled error when
// ctx ends first.
func WaitForExit(ctx context.Context, h proc.Handle) (err error) {
	select {
	case <-h.Exited():
		return nil
	default:
	}

	ctx, span := startSpan(ctx, "supervise.WaitForExit", h)
	defer func() { finish(ctx, span, "wait_for_exit", err) }()

	select {
	case <-h.Exited():
		return nil
	case <-ctx.Done():
		return canceled(ctx)
	}
}
