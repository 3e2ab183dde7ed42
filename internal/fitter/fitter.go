// Package fitter searches for a speech speed and text length whose
// synthesized audio fits a subtitle window.
package fitter

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/backearth1/MiniMax-TTS-Translation/internal/config"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/logger"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/media"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/text"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/translation"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/tts"
)

var (
	// ErrInvalidWindow is reported for segments whose end is not after their start.
	ErrInvalidWindow = errors.New("segment window is empty")
	// ErrEmptyText is reported for segments with nothing to say.
	ErrEmptyText = errors.New("segment has no text")
)

// Outcome buckets a fitted segment for the batch summary.
type Outcome string

const (
	OutcomeNormal               Outcome = "normal"
	OutcomeSpeedOptimized       Outcome = "speed_optimized"
	OutcomeTranslationOptimized Outcome = "translation_optimized"
	OutcomeFailedSilent         Outcome = "failed_silent"
)

// Policy bounds the search.
type Policy struct {
	MaxAttempts    int       // synthesis calls before the escalation schedule jumps to MaxSpeed
	MaxShortenings int       // shortening requests per segment
	RatioThreshold float64   // duration/target at or below which audio fits
	MinSpeed       float64
	MaxSpeed       float64
	SpeedSteps     []float64 // offsets added to the ratio on successive escalations
	PostBudgetStep float64   // speed increment once MaxAttempts is spent
}

// DefaultPolicy is used for both single-segment and batch generation.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    config.FitMaxAttempts,
		MaxShortenings: config.FitMaxShortenings,
		RatioThreshold: config.FitRatioThreshold,
		MinSpeed:       config.MinSpeed,
		MaxSpeed:       config.MaxSpeed,
		SpeedSteps:     []float64{0, 0.2, 0.4},
		PostBudgetStep: config.PostBudgetSpeedStep,
	}
}

// Request describes one segment to fit.
type Request struct {
	Label       string // used in progress events, e.g. "segment 3"
	Text        string // source text
	Translation string // preferred over Text when present; only a translation can be shortened
	TargetMs    int64
	Voice       string
	Model       string
	Language    string
	Emotion     string
	Speed       float64
	Glossary    translation.Glossary
}

// Attempt records one synthesis call.
type Attempt struct {
	Number     int         `json:"number"`
	Speed      float64     `json:"speed"`
	DurationMs int64       `json:"duration_ms"`
	Ratio      float64     `json:"ratio"`
	TraceID    string      `json:"trace_id,omitempty"`
	Failure    tts.Failure `json:"failure,omitempty"`
	Shortened  bool        `json:"shortened,omitempty"` // text was shortened before this call
}

// Result is the fitted audio for a segment.
type Result struct {
	Slot        media.AudioSlot
	DurationMs  int64
	Speed       float64
	TraceID     string
	AudioURL    string
	Text        string // text that was finally spoken
	Shortened   bool   // Text is a shortened translation
	Outcome     Outcome
	Attempts    []Attempt
	Shortenings int
	Err         error
}

// Fitter runs the fit search against a synthesizer and an optional translator.
type Fitter struct {
	synth      tts.Synthesizer
	translator translation.Translator
	policy     Policy
	sink       logger.Sink
}

// New creates a fitter. translator may be nil, which disables shortening.
func New(synth tts.Synthesizer, translator translation.Translator, policy Policy, sink logger.Sink) *Fitter {
	if sink == nil {
		sink = logger.Discard
	}
	return &Fitter{synth: synth, translator: translator, policy: policy, sink: sink}
}

// Fit synthesizes req until the audio fits req.TargetMs.
//
// The first call uses the segment's own speed. When audio runs long and a
// translation is present, one shortening is requested; a strictly shorter
// result is adopted and retried at the same speed. Otherwise speed escalates
// along the policy schedule: ratio, ratio+0.2, ratio+0.4, then MaxSpeed, with
// MaxSpeed forced for the last budgeted attempt. Audio still too long at
// MaxSpeed becomes silence. Calls that return no audio are retried with the
// same parameters until the budget is spent, then also become silence.
func (f *Fitter) Fit(ctx context.Context, req Request) Result {
	p := f.policy
	speed := f.clamp(req.Speed)
	spoken := strings.TrimSpace(req.Translation)
	hasTranslation := spoken != ""
	if !hasTranslation {
		spoken = strings.TrimSpace(req.Text)
	}

	res := Result{Speed: speed, Text: spoken}
	if req.TargetMs <= 0 {
		return f.silence(req, res, "", ErrInvalidWindow)
	}
	if spoken == "" {
		return f.silence(req, res, "", ErrEmptyText)
	}

	step := 0
	shortenedNext := false
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res
		}

		logger.Notify(f.sink, logger.EventInfo, req.Label+" attempt", "%d: speed %.1f, target %dms", attempt, speed, req.TargetMs)
		out := f.synth.Synthesize(ctx, tts.Request{
			Text:     spoken,
			Voice:    req.Voice,
			Model:    req.Model,
			Language: req.Language,
			Emotion:  req.Emotion,
			Speed:    speed,
		})

		rec := Attempt{Number: attempt, Speed: speed, DurationMs: out.DurationMs, TraceID: out.TraceID, Failure: out.Failure, Shortened: shortenedNext}
		shortenedNext = false

		if !out.OK() {
			res.Attempts = append(res.Attempts, rec)
			if out.Failure == tts.FailureCancelled && ctx.Err() != nil {
				res.Err = ctx.Err()
				return res
			}
			logger.Notify(f.sink, logger.EventError, req.Label+" no audio", "attempt %d: %v, trace %s", attempt, out.Err, traceOrNone(out.TraceID))
			if attempt >= p.MaxAttempts {
				return f.silence(req, res, out.TraceID, fmt.Errorf("no audio after %d attempts: %w", attempt, out.Err))
			}
			continue
		}

		ratio := float64(out.DurationMs) / float64(req.TargetMs)
		rec.Ratio = ratio
		res.Attempts = append(res.Attempts, rec)
		logger.Notify(f.sink, logger.EventInfo, req.Label+" duration", "speech %dms, window %dms, ratio %.2f, trace %s", out.DurationMs, req.TargetMs, ratio, traceOrNone(out.TraceID))

		if ratio <= p.RatioThreshold {
			res.Slot = media.Real(out.Audio)
			res.DurationMs = out.DurationMs
			res.Speed = speed
			res.TraceID = out.TraceID
			res.AudioURL = out.AudioURL
			res.Outcome = f.successOutcome(res)
			logger.Notify(f.sink, logger.EventSuccess, req.Label+" fits", "speed %.1f, ratio %.2f (%s)", speed, ratio, res.Outcome)
			return res
		}

		if hasTranslation && f.translator != nil && res.Shortenings < p.MaxShortenings {
			res.Shortenings++
			if shorter, ok := f.shorten(ctx, req, spoken, out.DurationMs); ok {
				spoken = shorter
				res.Text = shorter
				res.Shortened = true
				shortenedNext = true
				continue
			}
		}

		if speed >= p.MaxSpeed {
			logger.Notify(f.sink, logger.EventError, req.Label+" too long", "ratio %.2f at speed %.1f, using silence", ratio, speed)
			return f.silence(req, res, "", nil)
		}

		next := f.nextSpeed(speed, ratio, step, attempt)
		step++
		logger.Notify(f.sink, logger.EventWarning, req.Label+" speeding up", "speed %.1f -> %.1f, ratio %.2f", speed, next, ratio)
		speed = next
		res.Speed = speed
	}
}

// nextSpeed picks the speed for the attempt after attempt. The result is
// clamped, rounded to one decimal and always above current.
func (f *Fitter) nextSpeed(current, ratio float64, step, attempt int) float64 {
	p := f.policy
	var next float64
	switch {
	case attempt >= p.MaxAttempts:
		next = current + p.PostBudgetStep
	case attempt+1 >= p.MaxAttempts || step >= len(p.SpeedSteps):
		next = p.MaxSpeed
	default:
		next = ratio + p.SpeedSteps[step]
	}

	next = f.clamp(next)
	if next <= current {
		next = math.Min(round1(current+0.1), p.MaxSpeed)
	}
	return next
}

func (f *Fitter) shorten(ctx context.Context, req Request, current string, currentMs int64) (string, bool) {
	out := f.translator.Shorten(ctx, translation.ShortenRequest{
		Original:  req.Text,
		Current:   current,
		Language:  req.Language,
		CurrentMs: currentMs,
		TargetMs:  req.TargetMs,
		Glossary:  req.Glossary,
	})
	if !out.OK() {
		logger.Notify(f.sink, logger.EventWarning, req.Label+" shortening failed", "%v, falling back to speed", out.Err)
		return "", false
	}

	before, after := text.CharCount(current), text.CharCount(out.Text)
	if after >= before {
		logger.Notify(f.sink, logger.EventWarning, req.Label+" shortening discarded", "%d -> %d characters", before, after)
		return "", false
	}
	logger.Notify(f.sink, logger.EventInfo, req.Label+" translation shortened", "%d -> %d characters: %s", before, after, text.Preview(out.Text, 40))
	return out.Text, true
}

func (f *Fitter) silence(req Request, res Result, traceID string, err error) Result {
	res.Slot = media.Silence()
	res.DurationMs = max(req.TargetMs, 0)
	res.TraceID = traceID
	res.Outcome = OutcomeFailedSilent
	res.Err = err
	return res
}

func (f *Fitter) successOutcome(res Result) Outcome {
	switch {
	case res.Shortened:
		return OutcomeTranslationOptimized
	case res.Speed > f.policy.MinSpeed:
		return OutcomeSpeedOptimized
	default:
		return OutcomeNormal
	}
}

func (f *Fitter) clamp(speed float64) float64 {
	if speed < f.policy.MinSpeed || math.IsNaN(speed) {
		speed = f.policy.MinSpeed
	}
	if speed > f.policy.MaxSpeed {
		speed = f.policy.MaxSpeed
	}
	return round1(speed)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func traceOrNone(id string) string {
	if id == "" {
		return "none"
	}
	return id
}
