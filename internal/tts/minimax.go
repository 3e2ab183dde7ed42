package tts

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"

	"github.com/backearth1/MiniMax-TTS-Translation/internal/config"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/emotion"
	apihttp "github.com/backearth1/MiniMax-TTS-Translation/internal/http"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/logger"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/media"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/text"
)

// MiniMax status codes that mean "slow down".
const (
	codeRateLimited    = 1002
	codeQuotaThrottled = 1039
)

// Options tune the MiniMax client.
type Options struct {
	Model            string
	Language         string
	SampleRate       int
	Bitrate          int
	Format           string
	MaxAttempts      int
	RetryDelay       time.Duration
	DownloadAttempts int
	DownloadDelay    time.Duration
	Trim             media.TrimOptions
}

// DefaultOptions returns the production settings.
func DefaultOptions() Options {
	return Options{
		Model:            config.DefaultTTSModel,
		Language:         "auto",
		SampleRate:       config.AudioSampleRate,
		Bitrate:          config.AudioBitrate,
		Format:           config.AudioFormat,
		MaxAttempts:      config.TTSMaxAttempts,
		RetryDelay:       config.TTSRetryDelayBase,
		DownloadAttempts: config.TTSDownloadAttempts,
		DownloadDelay:    config.TTSDownloadDelay,
		Trim:             media.DefaultTrimOptions(),
	}
}

// APIError is a non-zero base_resp status.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("minimax error %d: %s", e.Code, e.Message)
}

type baseResp struct {
	StatusCode int    `json:"status_code"`
	StatusMsg  string `json:"status_msg"`
}

type voiceSetting struct {
	VoiceID string  `json:"voice_id"`
	Speed   float64 `json:"speed"`
	Emotion string  `json:"emotion,omitempty"`
}

type audioSetting struct {
	SampleRate int    `json:"sample_rate"`
	Bitrate    int    `json:"bitrate"`
	Format     string `json:"format"`
}

type t2aRequest struct {
	GroupID       string       `json:"group_id"`
	Text          string       `json:"text"`
	Model         string       `json:"model"`
	VoiceSetting  voiceSetting `json:"voice_setting"`
	AudioSetting  audioSetting `json:"audio_setting"`
	LanguageBoost string       `json:"language_boost"`
	OutputFormat  string       `json:"output_format"`
}

type t2aResponse struct {
	Data struct {
		Audio string `json:"audio"`
	} `json:"data"`
	ExtraInfo struct {
		AudioLength     int64 `json:"audio_length"`
		AudioSize       int64 `json:"audio_size"`
		UsageCharacters int   `json:"usage_characters"`
	} `json:"extra_info"`
	TraceID  string   `json:"trace_id"`
	BaseResp baseResp `json:"base_resp"`
}

// t2aCall is what one successful API call yields before download.
type t2aCall struct {
	audioURL string
	apiMs    int64
	traceID  string
}

// MiniMax synthesizes speech with the MiniMax t2a_v2 endpoint.
type MiniMax struct {
	client   *resty.Client
	opts     Options
	creds    config.Credentials
	throttle *Throttle
	codec    media.Codec
	mock     *Mock
	sink     logger.Sink
}

// NewMiniMax creates a client. Without valid credentials every call returns
// a mock clip.
func NewMiniMax(client *resty.Client, opts Options, creds config.Credentials, throttle *Throttle, codec media.Codec) *MiniMax {
	if client == nil {
		client = apihttp.NewDefaultClient()
	}
	if throttle == nil {
		throttle = SharedThrottle()
	}
	return &MiniMax{
		client:   client,
		opts:     opts,
		creds:    creds,
		throttle: throttle,
		codec:    codec,
		mock:     NewMock(codec, opts.SampleRate),
		sink:     logger.Discard,
	}
}

// SetSink routes progress events to s.
func (m *MiniMax) SetSink(s logger.Sink) {
	if s == nil {
		s = logger.Discard
	}
	m.sink = s
}

// Synthesize implements Synthesizer.
func (m *MiniMax) Synthesize(ctx context.Context, req Request) Result {
	if !m.creds.Valid() {
		logger.Notify(m.sink, logger.EventWarning, "No API credentials", "using placeholder audio")
		return m.mock.Synthesize(ctx, req)
	}

	if err := m.throttle.Wait(ctx); err != nil {
		return Result{Failure: FailureCancelled, Err: err}
	}

	payload := m.buildPayload(req)
	logger.Notify(m.sink, logger.EventInfo, "Generating speech", "text: %s, voice: %s, speed: %.1f", text.Preview(req.Text, 30), payload.VoiceSetting.VoiceID, req.Speed)

	var lastTrace string
	call, err := apihttp.RetryWithContext(ctx, apihttp.RetryConfig{
		MaxAttempts:   m.opts.MaxAttempts,
		InitialDelay:  m.opts.RetryDelay,
		BackoffFactor: 2,
		ShouldRetry:   isRateLimited,
		OnRetry: func(next int, delay time.Duration, err error) {
			logger.Notify(m.sink, logger.EventWarning, "Rate limited", "retry %d in %v: %v", next, delay, err)
		},
	}, func(int) (t2aCall, error) {
		c, err := m.post(ctx, payload)
		if c.traceID != "" {
			lastTrace = c.traceID
		}
		return c, err
	})
	if err != nil {
		failure := FailureAPI
		switch {
		case ctx.Err() != nil:
			failure = FailureCancelled
		case isRateLimited(err):
			failure = FailureRateLimited
		case !isAPIError(err):
			failure = FailureTransport
		}
		logger.Notify(m.sink, logger.EventError, "Speech generation failed", "%v", err)
		return Result{TraceID: lastTrace, Failure: failure, Err: err}
	}

	logger.Notify(m.sink, logger.EventSuccess, "Speech generated", "api length %dms, trace %s", call.apiMs, call.traceID)

	raw, err := m.download(ctx, call.audioURL)
	if err != nil {
		logger.Notify(m.sink, logger.EventError, "Audio download failed", "%v", err)
		return Result{TraceID: call.traceID, AudioURL: call.audioURL, APIDurationMs: call.apiMs, Failure: FailureDownload, Err: err}
	}

	trimmed := media.TrimSilence(ctx, m.codec, raw, m.opts.Trim)
	if trimmed.Estimated {
		logger.Notify(m.sink, logger.EventWarning, "Audio analysis failed", "estimated %v from size", trimmed.Duration)
	} else {
		logger.Notify(m.sink, logger.EventInfo, "Silence trimmed", "lead %dms, trail %dms, speech %v", trimmed.LeadMs, trimmed.TrailMs, trimmed.Duration)
	}

	return Result{
		Audio:         trimmed.Audio,
		DurationMs:    trimmed.Duration.Milliseconds(),
		APIDurationMs: call.apiMs,
		TraceID:       call.traceID,
		AudioURL:      call.audioURL,
	}
}

func (m *MiniMax) buildPayload(req Request) t2aRequest {
	model := req.Model
	if model == "" {
		model = m.opts.Model
	}
	language := req.Language
	if language == "" {
		language = m.opts.Language
	}
	voice := req.Voice
	if voice == "" {
		voice = config.DefaultVoice
	}
	speed := req.Speed
	if speed <= 0 {
		speed = config.MinSpeed
	}

	vs := voiceSetting{VoiceID: voice, Speed: speed}
	if emotion.IsSupported(req.Emotion) {
		vs.Emotion = emotion.Normalize(req.Emotion)
	}

	return t2aRequest{
		GroupID:      m.creds.GroupID,
		Text:         req.Text,
		Model:        model,
		VoiceSetting: vs,
		AudioSetting: audioSetting{
			SampleRate: m.opts.SampleRate,
			Bitrate:    m.opts.Bitrate,
			Format:     m.opts.Format,
		},
		LanguageBoost: language,
		OutputFormat:  "url",
	}
}

// post performs one t2a_v2 call.
func (m *MiniMax) post(ctx context.Context, payload t2aRequest) (t2aCall, error) {
	resp, err := m.client.R().
		SetContext(ctx).
		SetAuthToken(m.creds.APIKey).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(m.creds.BaseURL() + config.TTSPath)
	if err != nil {
		return t2aCall{}, fmt.Errorf("t2a request failed: %w", err)
	}

	call := t2aCall{traceID: resp.Header().Get("Trace-Id")}
	if resp.StatusCode() != http.StatusOK {
		return call, &apihttp.StatusError{Code: resp.StatusCode(), Body: resp.String()}
	}

	var out t2aResponse
	if err := sonic.Unmarshal(resp.Body(), &out); err != nil {
		return call, fmt.Errorf("invalid t2a response: %w", err)
	}
	if call.traceID == "" {
		call.traceID = out.TraceID
	}
	if out.BaseResp.StatusCode != 0 {
		return call, &APIError{Code: out.BaseResp.StatusCode, Message: out.BaseResp.StatusMsg}
	}
	if out.Data.Audio == "" {
		return call, &APIError{Code: -1, Message: "response has no audio url"}
	}

	call.audioURL = out.Data.Audio
	call.apiMs = out.ExtraInfo.AudioLength
	return call, nil
}

// download fetches the generated audio, retrying at a fixed interval.
func (m *MiniMax) download(ctx context.Context, url string) ([]byte, error) {
	return apihttp.RetryWithContext(ctx, apihttp.RetryConfig{
		MaxAttempts:   m.opts.DownloadAttempts,
		InitialDelay:  m.opts.DownloadDelay,
		BackoffFactor: 1,
		OnRetry: func(next int, _ time.Duration, err error) {
			logger.Notify(m.sink, logger.EventWarning, "Retrying download", "attempt %d: %v", next, err)
		},
	}, func(int) ([]byte, error) {
		resp, err := m.client.R().SetContext(ctx).Get(url)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() != http.StatusOK {
			return nil, &apihttp.StatusError{Code: resp.StatusCode(), Body: resp.String()}
		}
		if len(resp.Body()) == 0 {
			return nil, errors.New("empty audio body")
		}
		return resp.Body(), nil
	})
}

// isRateLimited reports whether err is worth retrying after a backoff.
func isRateLimited(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == codeRateLimited || apiErr.Code == codeQuotaThrottled ||
			strings.Contains(strings.ToLower(apiErr.Message), "rate limit")
	}
	var statusErr *apihttp.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests
	}
	return false
}

func isAPIError(err error) bool {
	var apiErr *APIError
	var statusErr *apihttp.StatusError
	return errors.As(err, &apiErr) || errors.As(err, &statusErr)
}
