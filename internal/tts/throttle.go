package tts

import (
	"context"
	"sync"
	"time"

	"github.com/backearth1/MiniMax-TTS-Translation/internal/config"
	apihttp "github.com/backearth1/MiniMax-TTS-Translation/internal/http"
)

// Throttle spaces calls at least interval apart. The lock is held while
// waiting so concurrent callers queue up in arrival order.
type Throttle struct {
	interval time.Duration

	mu   sync.Mutex
	last time.Time
}

// NewThrottle creates a throttle with the given minimum spacing.
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{interval: interval}
}

var sharedThrottle = NewThrottle(config.TTSRequestInterval)

// SharedThrottle returns the process-wide throttle used by every MiniMax client.
func SharedThrottle() *Throttle {
	return sharedThrottle
}

// Wait blocks until the interval since the previous call has elapsed.
func (t *Throttle) Wait(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if wait := t.interval - time.Since(t.last); wait > 0 && !t.last.IsZero() {
		if err := apihttp.Sleep(ctx, wait); err != nil {
			return err
		}
	}
	t.last = time.Now()
	return nil
}
