package sweeper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/library-seat-reservation/internal/logger"
)

func TestRunTicksUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	done := make(chan struct{})

	go func() {
		Run(ctx, 5*time.Millisecond, logger.Nop(), func(context.Context) error {
			if calls.Add(1) == 2 {
				return errors.New("store down")
			}
			return nil
		})
		close(done)
	}()

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunDisabled(t *testing.T) {
	called := false
	Run(context.Background(), 0, logger.Nop(), func(context.Context) error {
		called = true
		return nil
	})
	assert.False(t, called)
}
