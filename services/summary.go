package services

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/backearth1/MiniMax-TTS-Translation/internal/config"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/fitter"
)

// Summary reports a batch generation run. Segment numbers are 1-based
// positions in the project.
type Summary struct {
	Total       int `json:"total_segments"`
	Successful  int `json:"successful_segments"` // segments whose result was recorded, silence included
	Failed      int `json:"failed_segments"`     // segments started but left unchanged
	Accelerated int `json:"accelerated_segments"`
	MaxSpeed    int `json:"max_speed_segments"`

	Normal               []int    `json:"normal_segments"`
	SpeedOptimized       []int    `json:"speed_optimized_segments"`
	TranslationOptimized []int    `json:"translation_optimized_segments"`
	FailedSilent         []int    `json:"failed_silent_segments"`
	SpeedAdjustments     []string `json:"speed_adjustments"`

	Interrupted bool `json:"interrupted"`
	Completed   bool `json:"completed"`
}

func newSummary(total int) Summary {
	return Summary{
		Total:                total,
		Normal:               []int{},
		SpeedOptimized:       []int{},
		TranslationOptimized: []int{},
		FailedSilent:         []int{},
		SpeedAdjustments:     []string{},
	}
}

// record buckets the fit result of segment n.
func (s *Summary) record(n int, res fitter.Result) {
	s.Successful++
	switch res.Outcome {
	case fitter.OutcomeNormal:
		s.Normal = append(s.Normal, n)
	case fitter.OutcomeSpeedOptimized:
		s.SpeedOptimized = append(s.SpeedOptimized, n)
	case fitter.OutcomeTranslationOptimized:
		s.TranslationOptimized = append(s.TranslationOptimized, n)
	case fitter.OutcomeFailedSilent:
		s.FailedSilent = append(s.FailedSilent, n)
	}

	if res.Speed > config.MinSpeed {
		s.Accelerated++
		if res.Speed >= config.MaxSpeed {
			s.MaxSpeed++
		}
		if res.Outcome == fitter.OutcomeFailedSilent {
			s.SpeedAdjustments = append(s.SpeedAdjustments, fmt.Sprintf("segment %d: speed-up failed, simplify the text", n))
		} else {
			s.SpeedAdjustments = append(s.SpeedAdjustments, fmt.Sprintf("segment %d: speed=%.1f", n, res.Speed))
		}
	}
}

// Lines renders the summary as the closing progress messages of a batch.
func (s Summary) Lines() []string {
	lines := []string{fmt.Sprintf("succeeded %d, failed %d of %d", s.Successful, s.Failed, s.Total)}
	add := func(label string, ns []int) {
		if len(ns) == 0 {
			return
		}
		lines = append(lines, fmt.Sprintf("%s (%d): %s", label, len(ns), joinInts(ns)))
	}
	add("silent", s.FailedSilent)
	add("translation optimized", s.TranslationOptimized)
	add("speed optimized", s.SpeedOptimized)
	add("normal", s.Normal)
	if s.MaxSpeed > 0 {
		lines = append(lines, fmt.Sprintf("at maximum speed: %d", s.MaxSpeed))
	}
	if s.Interrupted {
		lines = append(lines, "interrupted before the last segment")
	}
	return lines
}

func joinInts(ns []int) string {
	return strings.Join(lo.Map(ns, func(n int, _ int) string { return fmt.Sprint(n) }), ", ")
}
