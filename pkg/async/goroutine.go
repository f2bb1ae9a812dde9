package async

import (
	"context"
	"time"

	"github.com/platinummonkey/reflector/pkg/observability"
)

// SafeGo runs fn in a goroutine with a timeout, panic recovery and error
// logging. A zero timeout only inherits the parent deadline.
//
//	async.SafeGo(ctx, logger, 30*time.Second, "schema reload", func(ctx context.Context) error {
//	    return reloader.Reload(ctx)
//	})
func SafeGo(parentCtx context.Context, logger *observability.Logger, timeout time.Duration, taskName string, fn func(context.Context) error) {
	go func() {
		ctx, cancel := withOptionalTimeout(parentCtx, timeout)
		defer cancel()
		defer observability.RecoverPanic(logger, taskName)

		if err := fn(ctx); err != nil {
			logger.WithError(err).WithField("task", taskName).Error("Background task failed")
		}
	}()
}

// Run calls fn synchronously and turns a panic into an error. It is meant
// for long-running loops started from an errgroup.
func Run(ctx context.Context, logger *observability.Logger, taskName string, fn func(context.Context) error) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		logger.WithField("panic", r).WithField("task", taskName).Error("PANIC recovered")
		err = observability.MustRecover(r)
	}()
	return fn(ctx)
}

func withOptionalTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
