// Package schedule runs background maintenance on cron expressions.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"go.uber.org/zap"
)

// Validate reports whether expr is a usable cron expression.
func Validate(expr string) error {
	if !gronx.New().IsValid(expr) {
		return fmt.Errorf("invalid schedule %q", expr)
	}
	return nil
}

// Run calls fn at every tick of expr until ctx is done. Errors from fn are
// logged and do not stop the loop.
func Run(ctx context.Context, expr string, log *zap.Logger, fn func(context.Context) error) error {
	if err := Validate(expr); err != nil {
		return err
	}
	if log == nil {
		log = zap.NewNop()
	}
	for {
		next, err := gronx.NextTickAfter(expr, time.Now(), false)
		if err != nil {
			return fmt.Errorf("next tick for %q: %w", expr, err)
		}
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		if err := fn(ctx); err != nil {
			log.Warn("scheduled run failed", zap.String("schedule", expr), zap.Error(err))
		}
	}
}
