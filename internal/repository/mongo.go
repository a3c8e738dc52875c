package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

const (
	// SeatsCollection holds one document per seat keyed by seat id.
	SeatsCollection = "seats"
	// NoncesCollection holds one document per issued one-time token.
	NoncesCollection = "usedTokens"
)

// withTimeout bounds ctx by timeout unless it already carries an earlier
// deadline.  Session contexts are returned unchanged.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	if timeout <= 0 {
		return ctx, func() {}
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		return context.WithDeadline(ctx, deadline)
	}
	return context.WithTimeout(ctx, timeout)
}
