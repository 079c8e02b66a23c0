package worker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"dayplanner/internal/logger"
	"dayplanner/internal/worker"

	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	logger.Init(true)
	m.Run()
}

type stubTokenStore struct {
	calls   int
	limit   int
	deleted int64
	err     error
}

func (s *stubTokenStore) DeleteExpiredTokens(_ context.Context, cutoff time.Time, limit int) (int64, error) {
	s.calls++
	s.limit = limit
	return s.deleted, s.err
}

func TestTokenSweeper_Sweep(t *testing.T) {
	store := &stubTokenStore{deleted: 3}
	sweeper := worker.NewTokenSweeper(store, nil, nil)

	sweeper.Sweep(context.Background())

	assert.Equal(t, 1, store.calls)
	assert.Equal(t, 500, store.limit)
}

func TestTokenSweeper_SweepErrorDoesNotPanic(t *testing.T) {
	store := &stubTokenStore{err: errors.New("connection refused")}
	sweeper := worker.NewTokenSweeper(store, nil, nil)

	sweeper.Sweep(context.Background())

	assert.Equal(t, 1, store.calls)
}

func TestTokenSweeper_StartStopsOnCancel(t *testing.T) {
	store := &stubTokenStore{}
	interval := 5 * time.Millisecond
	sweeper := worker.NewTokenSweeper(store, &interval, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Start(ctx)
		close(done)
	}()

	time.Sleep(25 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}

	assert.Greater(t, store.calls, 0)
}
