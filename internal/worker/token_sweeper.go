package worker

import (
	"context"
	"time"

	"dayplanner/internal/logger"

	"go.uber.org/zap"
)

type TokenStore interface {
	DeleteExpiredTokens(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

// TokenSweeper periodically deletes expired one-time sign-in, recovery and
// verification tokens so the table does not grow without bound.
type TokenSweeper struct {
	store     TokenStore
	interval  time.Duration
	batchSize int
}

func NewTokenSweeper(store TokenStore, interval *time.Duration, batchSize *int) *TokenSweeper {
	var intervalToSet time.Duration
	if interval == nil {
		intervalToSet = 10 * time.Minute
	} else {
		intervalToSet = *interval
	}

	var batchToSet int
	if batchSize == nil {
		batchToSet = 500
	} else {
		batchToSet = *batchSize
	}
	return &TokenSweeper{
		store:     store,
		interval:  intervalToSet,
		batchSize: batchToSet,
	}
}

func (w *TokenSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logger.Info("Worker: sweeping expired tokens", zap.Time("started_at", time.Now()))
			w.Sweep(ctx)
		case <-ctx.Done():
			logger.Info("Worker: token sweeper stopping")
			return
		}
	}
}

func (w *TokenSweeper) Sweep(ctx context.Context) {
	start := time.Now()

	deleted, err := w.store.DeleteExpiredTokens(ctx, time.Now(), w.batchSize)
	if err != nil {
		logger.Warn("Worker: sweep failed", zap.Error(err))
		return
	}

	logger.Info("Worker: sweep finished",
		zap.Duration("ms", time.Since(start)),
		zap.Int64("deleted", deleted),
	)
}
