package tts

import (
	"context"
	"unicode/utf8"

	"github.com/backearth1/MiniMax-TTS-Translation/internal/config"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/media"
)

// MockDurationMs is the length of the placeholder clip produced without
// credentials: 80ms per character, at least 300ms, divided by speed.
func MockDurationMs(text string, speed float64) int64 {
	if speed <= 0 {
		speed = 1
	}
	perChar := config.MockCharDuration.Milliseconds()
	ms := max(int64(utf8.RuneCountInString(text))*perChar, config.MockMinDuration.Milliseconds())
	return int64(float64(ms) / speed)
}

// Mock synthesizes silent clips whose length follows MockDurationMs. It is
// used when no credentials are configured so the rest of the pipeline can run.
type Mock struct {
	codec      media.Codec
	sampleRate int
}

// NewMock returns a mock synthesizer encoding through codec.
func NewMock(codec media.Codec, sampleRate int) *Mock {
	if sampleRate <= 0 {
		sampleRate = config.AudioSampleRate
	}
	return &Mock{codec: codec, sampleRate: sampleRate}
}

// Synthesize returns a silent clip.
func (m *Mock) Synthesize(ctx context.Context, req Request) Result {
	ms := MockDurationMs(req.Text, req.Speed)
	data, err := m.codec.Encode(ctx, media.NewSilence(m.sampleRate, ms))
	if err != nil {
		return Result{Mock: true, Failure: FailureEncoding, Err: err}
	}
	return Result{Audio: data, DurationMs: ms, APIDurationMs: ms, Mock: true}
}
