package media

import (
	"context"
	"time"

	"github.com/backearth1/MiniMax-TTS-Translation/internal/config"
)

// TrimOptions control leading/trailing silence removal.
type TrimOptions struct {
	Chunk       time.Duration // scan granularity
	Threshold   float64       // dBFS; chunks at or below are silent
	MinDuration time.Duration // floor on the trimmed length
	MinEstimate time.Duration // floor on the fallback estimate
	Bitrate     int           // bits per second, for the fallback estimate
}

// DefaultTrimOptions returns the settings used for synthesized speech.
func DefaultTrimOptions() TrimOptions {
	return TrimOptions{
		Chunk:       config.SilenceChunk,
		Threshold:   config.SilenceThresholdDBFS,
		MinDuration: config.MinTrimmedDuration,
		MinEstimate: config.MinEstimatedDuration,
		Bitrate:     config.AudioBitrate,
	}
}

// TrimResult is the outcome of TrimSilence.
type TrimResult struct {
	Audio     []byte
	Duration  time.Duration
	Estimated bool  // decoding failed; Audio is the input and Duration a guess
	LeadMs    int64 // silence removed at the start
	TrailMs   int64 // silence removed at the end
}

// TrimSilence strips leading and trailing silence from encoded audio and
// re-encodes the rest. When the audio cannot be decoded the input is returned
// unchanged with a duration estimated from its size.
func TrimSilence(ctx context.Context, codec Codec, data []byte, opts TrimOptions) TrimResult {
	clip, err := codec.Decode(ctx, data)
	if err != nil || clip.SampleRate == 0 {
		return TrimResult{Audio: data, Duration: EstimateDuration(len(data), opts), Estimated: true}
	}

	total := clip.Millis()
	chunk := opts.Chunk.Milliseconds()
	if chunk <= 0 {
		chunk = 50
	}

	start := int64(0)
	for i := int64(0); i < total; i += chunk {
		if clip.DBFS(i, i+chunk) > opts.Threshold {
			start = i
			break
		}
	}

	end := total
	for i := total - chunk; i > 0; i -= chunk {
		if clip.DBFS(i, i+chunk) > opts.Threshold {
			end = min(i+chunk, total)
			break
		}
	}

	var trimmed *Clip
	if end > start {
		trimmed = clip.Slice(start, end)
	} else {
		trimmed = clip.Slice(0, 0)
	}
	if floor := opts.MinDuration.Milliseconds(); trimmed.Millis() < floor {
		trimmed = clip.Slice(0, floor)
	}

	encoded, err := codec.Encode(ctx, trimmed)
	if err != nil {
		return TrimResult{Audio: data, Duration: EstimateDuration(len(data), opts), Estimated: true}
	}

	kept := trimmed.Millis()
	return TrimResult{
		Audio:    encoded,
		Duration: time.Duration(kept) * time.Millisecond,
		LeadMs:   start,
		TrailMs:  max(total-start-kept, 0),
	}
}

// EstimateDuration guesses the playback length of size bytes of constant
// bitrate audio, never returning less than opts.MinEstimate.
func EstimateDuration(size int, opts TrimOptions) time.Duration {
	bitrate := opts.Bitrate
	if bitrate <= 0 {
		bitrate = config.AudioBitrate
	}
	ms := int64(size) * 8 * 1000 / int64(bitrate)
	d := time.Duration(ms) * time.Millisecond
	if d < opts.MinEstimate {
		return opts.MinEstimate
	}
	return d
}
