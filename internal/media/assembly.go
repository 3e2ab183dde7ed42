package media

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/backearth1/MiniMax-TTS-Translation/internal/config"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/logger"
)

// Descriptor places one audio slot on the timeline.
type Descriptor struct {
	StartMs int64
	EndMs   int64
	Slot    AudioSlot
	Label   string // shown in progress events
}

// Report summarizes one assembly.
type Report struct {
	Placed       int   `json:"placed"`
	Silenced     int   `json:"silenced"`
	DecodeErrors int   `json:"decode_errors"`
	Truncated    int   `json:"truncated"`
	Padded       int   `json:"padded"`
	Clipped      int   `json:"clipped"` // windows that overlapped the previous one
	Skipped      int   `json:"skipped"`
	GapsFilled   int   `json:"gaps_filled"`
	GapMs        int64 `json:"gap_ms"`
	LengthMs     int64 `json:"length_ms"`
}

// DurationProber reports the playback length of a file in seconds.
type DurationProber interface {
	GetDuration(ctx context.Context, path string) (float64, error)
}

// ErrNothingToAssemble is returned when no descriptor has a positive window.
var ErrNothingToAssemble = errors.New("no audio segments to assemble")

// TimelineAssembler renders segment audio onto a single track where every
// segment occupies exactly [StartMs, EndMs).
type TimelineAssembler struct {
	codec      Codec
	sampleRate int
	sink       logger.Sink
	prober     DurationProber
}

// NewTimelineAssembler creates an assembler that decodes and encodes with
// codec and mixes at sampleRate.
func NewTimelineAssembler(codec Codec, sampleRate int) *TimelineAssembler {
	if sampleRate <= 0 {
		sampleRate = config.AudioSampleRate
	}
	return &TimelineAssembler{codec: codec, sampleRate: sampleRate, sink: logger.Discard}
}

// SetSink routes progress events to s.
func (a *TimelineAssembler) SetSink(s logger.Sink) {
	if s == nil {
		s = logger.Discard
	}
	a.sink = s
}

// SetProber enables a post-write length check.
func (a *TimelineAssembler) SetProber(p DurationProber) {
	a.prober = p
}

// Build renders descs into one clip. Descriptors are processed in start
// order (stable for equal starts). Gaps become silence, silence slots and
// undecodable audio fill their window with silence, and real audio is
// truncated or padded to its window. A window that starts before the end of
// the previous one is clipped to start there. Sample offsets are computed
// from absolute milliseconds, so rounding never accumulates.
func (a *TimelineAssembler) Build(ctx context.Context, descs []Descriptor) (*Clip, Report, error) {
	var report Report

	sorted := make([]Descriptor, len(descs))
	copy(sorted, descs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StartMs < sorted[j].StartMs })

	var total int64
	for _, d := range sorted {
		if d.EndMs > d.StartMs && d.EndMs > total {
			total = d.EndMs
		}
	}
	if total == 0 {
		return nil, report, ErrNothingToAssemble
	}

	out := NewSilence(a.sampleRate, total)
	var cursor int64

	for _, d := range sorted {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}
		if d.EndMs <= d.StartMs {
			report.Skipped++
			continue
		}

		start := d.StartMs
		if start < cursor {
			start = cursor
			report.Clipped++
			logger.Notify(a.sink, logger.EventWarning, "Overlapping segment", "%s starts at %dms, before previous end %dms", d.Label, d.StartMs, cursor)
			if start >= d.EndMs {
				report.Skipped++
				continue
			}
		}
		if start > cursor {
			report.GapsFilled++
			report.GapMs += start - cursor
			logger.Notify(a.sink, logger.EventInfo, "Adding silence", "at %dms for %dms", cursor, start-cursor)
		}
		cursor = d.EndMs
		window := d.EndMs - start

		if !d.Slot.IsReal() {
			report.Silenced++
			logger.Notify(a.sink, logger.EventWarning, "Silent segment", "%s: %dms of silence", d.Label, window)
			continue
		}

		clip, err := a.codec.Decode(ctx, d.Slot.Data)
		if err != nil {
			report.DecodeErrors++
			report.Silenced++
			logger.Notify(a.sink, logger.EventError, "Audio decode failed", "%s: %v, using silence", d.Label, err)
			continue
		}
		if clip.SampleRate != a.sampleRate {
			clip = clip.Resample(a.sampleRate)
		}

		from := samplesFor(a.sampleRate, start)
		to := samplesFor(a.sampleRate, d.EndMs)
		n := copy(out.Samples[from:to], clip.Samples)
		switch {
		case len(clip.Samples) > to-from:
			report.Truncated++
			logger.Notify(a.sink, logger.EventInfo, "Audio truncated", "%s: %dms to %dms", d.Label, clip.Millis(), window)
		case n < to-from:
			report.Padded++
			logger.Notify(a.sink, logger.EventInfo, "Audio padded", "%s: %dms to %dms", d.Label, clip.Millis(), window)
		}
		report.Placed++
	}

	report.LengthMs = out.Millis()
	return out, report, nil
}

// Assemble builds the timeline and writes it to outputPath in the codec's
// format, returning the written path.
func (a *TimelineAssembler) Assemble(ctx context.Context, descs []Descriptor, outputPath string) (string, Report, error) {
	logger.Notify(a.sink, logger.EventInfo, "Building timeline", "%d segments", len(descs))

	clip, report, err := a.Build(ctx, descs)
	if err != nil {
		return "", report, err
	}

	data, err := a.codec.Encode(ctx, clip)
	if err != nil {
		return "", report, fmt.Errorf("failed to encode merged audio: %w", err)
	}
	if err := ensureDir(outputPath); err != nil {
		return "", report, err
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return "", report, fmt.Errorf("failed to write %s: %w", filepath.Base(outputPath), err)
	}

	if a.prober != nil {
		if seconds, err := a.prober.GetDuration(ctx, outputPath); err == nil {
			got := time.Duration(seconds * float64(time.Second))
			want := time.Duration(report.LengthMs) * time.Millisecond
			if math.Abs(float64(got-want)) > float64(2*config.AudioDurationTolerance) {
				logger.Notify(a.sink, logger.EventWarning, "Length mismatch", "expected %v, file is %v", want, got)
			}
		}
	}

	logger.Notify(a.sink, logger.EventSuccess, "Audio exported", "%s, %dms", filepath.Base(outputPath), report.LengthMs)
	return outputPath, report, nil
}
