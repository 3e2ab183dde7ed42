// Package services orchestrates dubbing runs over a project: batch and
// single-segment speech generation, translation, text adjustment and the
// final merge.
package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/backearth1/MiniMax-TTS-Translation/internal/config"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/fitter"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/jobs"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/logger"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/media"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/subtitle"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/text"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/translation"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/worker"
	"github.com/backearth1/MiniMax-TTS-Translation/models"
)

var (
	// ErrNoTranslation is returned when an adjustment targets a segment
	// that has not been translated.
	ErrNoTranslation = errors.New("segment has no translation")
	// ErrNoLanguage is returned when a translation has no target language.
	ErrNoLanguage = errors.New("target language is required")
)

// Options are the per-run settings. Zero values fall back to the config.
type Options struct {
	Language       string // language boost sent with synthesis
	TargetLanguage string // translation target
	Model          string
	Translate      bool // ProcessFile translates before generating
	Sink           logger.Sink
	// OnSegment is called after a segment's result has been written into
	// it, e.g. to persist progress of a long batch.
	OnSegment func(*models.Segment)

	speakers []models.CustomSpeaker // custom voices, snapshot taken by resolve
}

// TranslationSummary reports a batch translation run.
type TranslationSummary struct {
	Total       int   `json:"total_segments"`
	Translated  int   `json:"translated_segments"`
	Failed      []int `json:"failed_segments"`
	Skipped     int   `json:"skipped_segments"`
	Interrupted bool  `json:"interrupted"`
}

// Dubber runs the dubbing operations against one set of providers.
type Dubber struct {
	cfg       *models.Config
	providers *Providers
	policy    fitter.Policy
	glossary  translation.Glossary
	delay     time.Duration // pause between translation calls
	speakers  *SpeakerManager
}

// NewDubber creates a dubber using the default fit policy.
func NewDubber(cfg *models.Config, providers *Providers) *Dubber {
	return &Dubber{
		cfg:       cfg,
		providers: providers,
		policy:    fitter.DefaultPolicy(),
		glossary:  translation.ParseGlossary(cfg.Dubbing.Glossary),
		delay:     config.TranslationDelay,
	}
}

// SetPolicy replaces the fit policy for later runs.
func (d *Dubber) SetPolicy(p fitter.Policy) {
	d.policy = p
}

// SetSpeakers makes custom speaker voices available to later runs.
func (d *Dubber) SetSpeakers(m *SpeakerManager) {
	d.speakers = m
}

func (d *Dubber) resolve(opts Options) Options {
	if d.speakers != nil {
		opts.speakers = d.speakers.List()
	}
	if opts.Sink == nil {
		opts.Sink = logger.Discard
	}
	if opts.Language == "" {
		opts.Language = d.cfg.Dubbing.Language
	}
	if opts.TargetLanguage == "" {
		opts.TargetLanguage = d.cfg.Dubbing.TargetLanguage
	}
	opts.TargetLanguage = text.GetLanguageName(opts.TargetLanguage)
	if opts.Model == "" {
		opts.Model = d.cfg.MiniMax.TTSModel
	}
	return opts
}

func (d *Dubber) newFitter(opts Options) *fitter.Fitter {
	return fitter.New(d.providers.NewSynthesizer(opts.Sink), d.providers.NewTextService(opts.Sink), d.policy, opts.Sink)
}

func (d *Dubber) fitRequest(seg *models.Segment, opts Options) fitter.Request {
	return fitter.Request{
		Label:       fmt.Sprintf("Segment %d", seg.Index),
		Text:        seg.Text,
		Translation: seg.TranslatedText,
		TargetMs:    seg.TargetMs(),
		Voice:       d.cfg.VoiceFor(seg.Speaker, opts.speakers),
		Model:       opts.Model,
		Language:    opts.Language,
		Emotion:     seg.Emotion,
		Speed:       seg.Speed,
		Glossary:    d.glossary.Relevant(seg.Text),
	}
}

// applyFit writes a fit result into seg. A result without an outcome was
// cut short by cancellation and leaves seg untouched.
func applyFit(seg *models.Segment, res fitter.Result) bool {
	if res.Outcome == "" {
		return false
	}
	seg.Audio = res.Slot
	seg.AudioDurationMs = res.DurationMs
	seg.Speed = res.Speed
	seg.TraceID = res.TraceID
	seg.AudioURL = res.AudioURL
	if res.Shortened {
		seg.TranslatedText = res.Text
	}
	seg.UpdatedAt = time.Now()
	return true
}

// GenerateAll fits every segment of p in order. The handle is checked before
// each segment; on cancellation the segments already finished keep their
// audio and the summary is marked interrupted.
func (d *Dubber) GenerateAll(ctx context.Context, h *jobs.Handle, p *models.Project, opts Options) Summary {
	opts = d.resolve(opts)
	total := len(p.Segments)
	sum := newSummary(total)
	fit := d.newFitter(opts)

	logger.Notify(opts.Sink, logger.EventInfo, "Batch speech generation", "%d segments", total)
	for i, seg := range p.Segments {
		if h.Cancelled() || ctx.Err() != nil {
			sum.Interrupted = true
			logger.Notify(opts.Sink, logger.EventWarning, "Generation interrupted", "stopped after %d of %d segments", i, total)
			break
		}
		h.Progress(i, total, config.ProgressSynthesizeStart, config.ProgressSynthesizeEnd, fmt.Sprintf("Segment %d/%d", i+1, total))

		res := fit.Fit(ctx, d.fitRequest(seg, opts))
		if !applyFit(seg, res) {
			sum.Failed++
			sum.Interrupted = true
			break
		}
		sum.record(i+1, res)
		if opts.OnSegment != nil {
			opts.OnSegment(seg)
		}
		logger.Notify(opts.Sink, logger.EventSuccess, fmt.Sprintf("Segment %d/%d done", i+1, total),
			"speed %.1f, %s, trace %s", res.Speed, res.Outcome, traceOrNone(res.TraceID))
	}

	sum.Completed = !sum.Interrupted
	if sum.Completed {
		h.Progress(total, total, config.ProgressSynthesizeStart, config.ProgressSynthesizeEnd, "Speech generated")
	}
	for _, line := range sum.Lines() {
		logger.Notify(opts.Sink, logger.EventInfo, "Batch summary", "%s", line)
	}
	return sum
}

// GenerateOne fits a single segment with the same policy as GenerateAll.
func (d *Dubber) GenerateOne(ctx context.Context, p *models.Project, segmentID string, opts Options) (*models.Segment, fitter.Result, error) {
	seg, _, err := p.FindSegment(segmentID)
	if err != nil {
		return nil, fitter.Result{}, err
	}
	opts = d.resolve(opts)

	res := d.newFitter(opts).Fit(ctx, d.fitRequest(seg, opts))
	if !applyFit(seg, res) {
		return seg, res, fmt.Errorf("generate segment %d: %w", seg.Index, res.Err)
	}
	if opts.OnSegment != nil {
		opts.OnSegment(seg)
	}
	return seg, res, nil
}

// TranslateAll translates the source text of every segment into the target
// language on a bounded worker pool with a pause between calls. Failed
// segments keep their previous translation.
func (d *Dubber) TranslateAll(ctx context.Context, h *jobs.Handle, p *models.Project, opts Options) (TranslationSummary, error) {
	opts = d.resolve(opts)
	if opts.TargetLanguage == "" {
		return TranslationSummary{}, ErrNoLanguage
	}
	svc := d.providers.NewTextService(opts.Sink)
	total := len(p.Segments)
	sum := TranslationSummary{Total: total, Failed: []int{}}

	logger.Notify(opts.Sink, logger.EventInfo, "Batch translation", "%d segments to %s", total, opts.TargetLanguage)
	results := worker.ProcessAll(ctx, p.Segments, worker.Options{
		Workers: config.DynamicWorkerCount("translation-api"),
		Delay:   d.delay,
		Stop:    h.Cancelled,
	}, func(ctx context.Context, job worker.Job[*models.Segment]) (string, error) {
		seg := job.Data
		if strings.TrimSpace(seg.Text) == "" {
			return "", nil
		}
		return translateText(ctx, svc, seg.Text, opts.TargetLanguage)
	}, func(done, total int) {
		h.Progress(done, total, config.ProgressTranslateStart, config.ProgressTranslateEnd, fmt.Sprintf("Translated %d/%d", done, total))
	})

	for i, r := range results {
		seg := p.Segments[i]
		switch {
		case errors.Is(r.Err, worker.ErrSkipped):
			sum.Skipped++
			sum.Interrupted = true
		case r.Err != nil:
			sum.Failed = append(sum.Failed, seg.Index)
			logger.Notify(opts.Sink, logger.EventError, fmt.Sprintf("Segment %d translation failed", seg.Index), "%v", r.Err)
		case r.Value == "":
			sum.Skipped++
		default:
			if err := setTranslation(seg, r.Value); err == nil {
				sum.Translated++
				if opts.OnSegment != nil {
					opts.OnSegment(seg)
				}
			}
		}
	}

	logger.Notify(opts.Sink, logger.EventSuccess, "Translation finished", "translated %d, failed %d, skipped %d", sum.Translated, len(sum.Failed), sum.Skipped)
	return sum, nil
}

// TranslateOne translates a single segment.
func (d *Dubber) TranslateOne(ctx context.Context, p *models.Project, segmentID string, opts Options) (*models.Segment, error) {
	seg, _, err := p.FindSegment(segmentID)
	if err != nil {
		return nil, err
	}
	opts = d.resolve(opts)
	if opts.TargetLanguage == "" {
		return nil, ErrNoLanguage
	}

	out, err := translateText(ctx, d.providers.NewTextService(opts.Sink), seg.Text, opts.TargetLanguage)
	if err != nil {
		return nil, fmt.Errorf("translate segment %d: %w", seg.Index, err)
	}
	if err := setTranslation(seg, out); err != nil {
		return nil, err
	}
	if opts.OnSegment != nil {
		opts.OnSegment(seg)
	}
	return seg, nil
}

// Adjust asks for a shorter or longer rendering of the segment's
// translation and stores it, dropping audio generated for the old text.
func (d *Dubber) Adjust(ctx context.Context, p *models.Project, segmentID string, mode translation.Mode, opts Options) (*models.Segment, error) {
	seg, _, err := p.FindSegment(segmentID)
	if err != nil {
		return nil, err
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("unknown adjustment mode %q", mode)
	}
	if strings.TrimSpace(seg.TranslatedText) == "" {
		return nil, ErrNoTranslation
	}
	opts = d.resolve(opts)

	out := d.providers.NewTextService(opts.Sink).Adjust(ctx, translation.AdjustRequest{
		Original: seg.Text,
		Current:  seg.TranslatedText,
		Language: opts.TargetLanguage,
		Mode:     mode,
		Glossary: d.glossary.Relevant(seg.Text),
	})
	if !out.OK() {
		return nil, fmt.Errorf("adjust segment %d: %w", seg.Index, resultErr(out))
	}
	before := text.CharCount(seg.TranslatedText)
	if err := setTranslation(seg, out.Text); err != nil {
		return nil, err
	}
	logger.Notify(opts.Sink, logger.EventSuccess, fmt.Sprintf("Segment %d adjusted", seg.Index), "%s: %d -> %d characters", mode, before, text.CharCount(seg.TranslatedText))
	if opts.OnSegment != nil {
		opts.OnSegment(seg)
	}
	return seg, nil
}

// Descriptors places every segment on the timeline. Segments without audio
// become silence of their window.
func Descriptors(p *models.Project) []media.Descriptor {
	descs := make([]media.Descriptor, 0, len(p.Segments))
	for _, seg := range p.Segments {
		start, err1 := seg.StartMs()
		end, err2 := seg.EndMs()
		if err1 != nil || err2 != nil {
			continue
		}
		slot := seg.Audio
		if slot.IsNone() {
			slot = media.Silence()
		}
		descs = append(descs, media.Descriptor{StartMs: start, EndMs: end, Slot: slot, Label: fmt.Sprintf("segment %d", seg.Index)})
	}
	return descs
}

// Merge renders the project's audio onto one track at outputPath.
func (d *Dubber) Merge(ctx context.Context, p *models.Project, outputPath string, opts Options) (string, media.Report, error) {
	opts = d.resolve(opts)
	asm := media.NewTimelineAssembler(d.providers.Codec, d.providers.SampleRate)
	asm.SetSink(opts.Sink)
	if d.providers.Prober != nil {
		asm.SetProber(d.providers.Prober)
	}
	return asm.Assemble(ctx, Descriptors(p), outputPath)
}

// MergedFilename names the merged track of p.
func (d *Dubber) MergedFilename(p *models.Project) string {
	id := p.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("dubbed_%s_%s.%s", id, time.Now().Format("20060102_150405"), d.providers.Codec.Format())
}

// ProcessResult is the outcome of ProcessFile.
type ProcessResult struct {
	Project     *models.Project     `json:"-"`
	Translation *TranslationSummary `json:"translation,omitempty"`
	Summary     Summary             `json:"summary"`
	OutputPath  string              `json:"output_path,omitempty"`
	Report      media.Report        `json:"report"`
}

// NewProject parses subtitle content into a project whose segments start at
// the configured default speed.
func (d *Dubber) NewProject(content, filename, clientID string) (*models.Project, error) {
	records, err := subtitle.ParseString(content)
	if err != nil {
		return nil, err
	}
	p, err := models.NewProjectFromRecords(filename, clientID, records)
	if err != nil {
		return nil, err
	}
	if speed := d.cfg.Dubbing.DefaultSpeed; speed >= config.MinSpeed && speed <= config.MaxSpeed {
		for _, seg := range p.Segments {
			seg.Speed = speed
		}
	}
	return p, nil
}

// ProcessFile dubs a subtitle file end to end: parse, translate when
// opts.Translate is set, generate and merge into outputDir. An interrupted
// run returns the project without merging.
func (d *Dubber) ProcessFile(ctx context.Context, h *jobs.Handle, content, filename, clientID, outputDir string, opts Options) (ProcessResult, error) {
	opts = d.resolve(opts)
	var out ProcessResult

	p, err := d.NewProject(content, filename, clientID)
	if err != nil {
		return out, err
	}
	out.Project = p
	h.Report(config.ProgressParseEnd, fmt.Sprintf("Parsed %d segments", len(p.Segments)))
	logger.Notify(opts.Sink, logger.EventSuccess, "Subtitle parsed", "%s: %d segments, speakers %s", filename, len(p.Segments), strings.Join(p.Speakers(), ", "))

	if opts.Translate {
		ts, err := d.TranslateAll(ctx, h, p, opts)
		if err != nil {
			return out, err
		}
		out.Translation = &ts
	}

	out.Summary = d.GenerateAll(ctx, h, p, opts)
	if out.Summary.Interrupted {
		return out, nil
	}

	path, report, err := d.Merge(ctx, p, filepath.Join(outputDir, d.MergedFilename(p)), opts)
	if err != nil {
		return out, fmt.Errorf("merge audio: %w", err)
	}
	h.Report(config.ProgressMergeEnd, "Audio merged")
	out.OutputPath, out.Report = path, report
	return out, nil
}

func translateText(ctx context.Context, svc translation.Translator, src, language string) (string, error) {
	res := svc.Translate(ctx, text.Preprocess(src), language)
	if !res.OK() {
		return "", resultErr(res)
	}
	return res.Text, nil
}

func resultErr(res translation.Result) error {
	if res.Err != nil {
		return res.Err
	}
	return fmt.Errorf("translation failed: %s", res.Failure)
}

func setTranslation(seg *models.Segment, translated string) error {
	return models.SegmentUpdate{TranslatedText: &translated}.Apply(seg)
}

func traceOrNone(id string) string {
	if id == "" {
		return "none"
	}
	return id
}
