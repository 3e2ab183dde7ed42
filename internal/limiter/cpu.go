// Package limiter provides process-wide limits for CPU-heavy work.
package limiter

import (
	"context"

	"github.com/backearth1/MiniMax-TTS-Translation/internal/config"
)

// ffmpegSemaphore caps concurrent ffmpeg processes across all projects.
// Batch generation decodes every clip through ffmpeg for silence trimming,
// so several concurrent projects would otherwise fork dozens of processes.
var ffmpegSemaphore = make(chan struct{}, config.MaxConcurrentFFmpeg)

// AcquireFFmpegSlot blocks until a slot is free or ctx is done.
func AcquireFFmpegSlot(ctx context.Context) error {
	select {
	case ffmpegSemaphore <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ReleaseFFmpegSlot frees a slot taken by AcquireFFmpegSlot.
func ReleaseFFmpegSlot() {
	<-ffmpegSemaphore
}

// InUse returns the number of slots currently held.
func InUse() int {
	return len(ffmpegSemaphore)
}
