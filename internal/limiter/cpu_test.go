package limiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/backearth1/MiniMax-TTS-Translation/internal/config"
)

func TestAcquireRelease(t *testing.T) {
	ctx := context.Background()
	for i := 0; i < config.MaxConcurrentFFmpeg; i++ {
		if err := AcquireFFmpegSlot(ctx); err != nil {
			t.Fatalf("AcquireFFmpegSlot() error = %v", err)
		}
	}
	if InUse() != config.MaxConcurrentFFmpeg {
		t.Errorf("InUse() = %d, want %d", InUse(), config.MaxConcurrentFFmpeg)
	}

	timeout, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := AcquireFFmpegSlot(timeout); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("AcquireFFmpegSlot() on full semaphore error = %v, want deadline exceeded", err)
	}

	for i := 0; i < config.MaxConcurrentFFmpeg; i++ {
		ReleaseFFmpegSlot()
	}
	if InUse() != 0 {
		t.Errorf("InUse() after release = %d, want 0", InUse())
	}
}
