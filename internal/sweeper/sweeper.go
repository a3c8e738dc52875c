// Package sweeper runs the periodic reservation expiry pass.
package sweeper

import (
	"context"
	"time"

	"github.com/iliyamo/library-seat-reservation/internal/logger"
)

// Run calls sweep every interval until ctx is cancelled.  A failed pass is
// logged and the next tick tries again.
func Run(ctx context.Context, interval time.Duration, log *logger.Logger, sweep func(context.Context) error) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sweep(ctx); err != nil && ctx.Err() == nil {
				log.Error("expiry sweep failed", "error", err)
			}
		}
	}
}
