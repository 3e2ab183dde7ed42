// Package tts provides the speech synthesis contract and the MiniMax client.
package tts

import (
	"context"
	"time"
)

// Failure classifies why a synthesis produced no audio.
type Failure string

const (
	FailureNone        Failure = ""
	FailureRateLimited Failure = "rate_limited"
	FailureTransport   Failure = "transport"
	FailureAPI         Failure = "api"
	FailureDownload    Failure = "download"
	FailureEncoding    Failure = "encoding"
	FailureCancelled   Failure = "cancelled"
)

// Request describes one synthesis call.
type Request struct {
	Text     string
	Voice    string
	Model    string
	Language string
	Emotion  string // sent only when it is a concrete emotion
	Speed    float64
}

// Result is the outcome of Synthesize. Remote failures are reported here
// rather than as an error return so batch callers can keep going.
type Result struct {
	Audio         []byte // encoded audio, nil on failure
	DurationMs    int64  // playback length after silence trimming
	APIDurationMs int64  // length reported by the service, diagnostics only
	TraceID       string
	AudioURL      string
	Mock          bool
	Failure       Failure
	Err           error
}

// OK reports whether the result carries audio.
func (r Result) OK() bool {
	return len(r.Audio) > 0
}

// Duration returns DurationMs as a time.Duration.
func (r Result) Duration() time.Duration {
	return time.Duration(r.DurationMs) * time.Millisecond
}

// Synthesizer turns text into speech.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) Result
}

// SynthesizerFunc adapts a function to Synthesizer.
type SynthesizerFunc func(ctx context.Context, req Request) Result

// Synthesize calls f(ctx, req).
func (f SynthesizerFunc) Synthesize(ctx context.Context, req Request) Result {
	return f(ctx, req)
}
