package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// staleCartStore is implemented by cart stores that can drop abandoned carts.
type staleCartStore interface {
	DeleteStale(ctx context.Context, maxAge time.Duration) (int64, error)
}

// sweepCarts deletes carts untouched for maxAge every interval until ctx is
// cancelled.
func sweepCarts(ctx context.Context, lg *zap.Logger, store staleCartStore, maxAge, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepOnce(ctx, lg, store, maxAge)
		}
	}
}

func sweepOnce(ctx context.Context, lg *zap.Logger, store staleCartStore, maxAge time.Duration) {
	n, err := store.DeleteStale(ctx, maxAge)
	if err != nil {
		if ctx.Err() == nil {
			lg.Warn("Stale cart sweep failed", zap.Error(err))
		}
		return
	}
	if n > 0 {
		lg.Info("Deleted stale carts", zap.Int64("count", n), zap.Duration("max_age", maxAge))
	}
}
