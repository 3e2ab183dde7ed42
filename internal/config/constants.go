// Package config provides centralized constants for the dubbing backend.
package config

import (
	"runtime"
	"time"
)

// Job progress boundaries (0-100%)
const (
	ProgressParseEnd        = 5
	ProgressTranslateStart  = 5
	ProgressTranslateEnd    = 30
	ProgressSynthesizeStart = 30
	ProgressSynthesizeEnd   = 90
	ProgressMergeStart      = 90
	ProgressMergeEnd        = 100
)

// Duration fitting policy
const (
	FitMaxAttempts      = 4
	FitMaxShortenings   = 1
	FitRatioThreshold   = 1.0
	MinSpeed            = 1.0
	MaxSpeed            = 2.0
	PostBudgetSpeedStep = 0.2
)

// TTS request settings
const (
	TTSRequestInterval  = time.Second // minimum spacing between any two TTS calls in the process
	TTSMaxAttempts      = 4           // first call + 3 rate-limit retries
	TTSRetryDelayBase   = 2 * time.Second
	TTSDownloadAttempts = 3
	TTSDownloadDelay    = 2 * time.Second
	TTSTimeout          = 30 * time.Second
	MockCharDuration    = 80 * time.Millisecond
	MockMinDuration     = 300 * time.Millisecond
)

// Translation settings
const (
	TranslationModel       = "MiniMax-Text-01"
	TranslationTemperature = 0.01
	TranslationTopP        = 0.95
	TranslationTimeout     = 30 * time.Second
	TranslationDelay       = 2 * time.Second
	TranslationMaxAttempts = 3
	WorkersTranslation     = 1
	ShortenRatio           = 0.8
	LengthenRatio          = 1.2
	CharBudgetTolerance    = 2
)

// Audio settings
const (
	AudioSampleRate        = 32000
	AudioBitrate           = 128000
	AudioFormat            = "mp3"
	SilenceChunk           = 50 * time.Millisecond
	SilenceThresholdDBFS   = -50.0
	MinTrimmedDuration     = 100 * time.Millisecond
	MinEstimatedDuration   = 500 * time.Millisecond
	AudioDurationTolerance = 50 * time.Millisecond
)

// Project limits
const (
	MaxSegmentsPerProject = 100
	DefaultPageSize       = 20
	MaxUploadSize         = 10 << 20
	ProcessLogLimit       = 500
)

// HTTP client settings
const (
	HTTPTimeout             = 2 * time.Minute
	HTTPMaxIdleConns        = 10
	HTTPMaxIdleConnsPerHost = 10
	HTTPIdleConnTimeout     = 90 * time.Second
	HTTPUserAgent           = "minimax-dubber/1.0"
)

// MiniMax API
const (
	EndpointDomestic = "https://api.minimaxi.com"
	EndpointOverseas = "https://api.minimax.io"
	TTSPath          = "/v1/t2a_v2"
	ChatPath         = "/v1/text/chatcompletion_v2"
	DefaultTTSModel  = "speech-02-hd"
	DefaultLanguage  = "Chinese"
)

// Speakers and voices
const (
	DefaultSpeaker = "SPEAKER_00"
	DefaultVoice   = "ai_her_04"

	// Custom speakers are numbered after the built-in SPEAKER_00..05.
	FirstCustomSpeaker = 6
	LastCustomSpeaker  = 99
)

// Job retention
const (
	JanitorSchedule = "@every 10m"
	JobRetention    = time.Hour
	OutputRetention = 24 * time.Hour
)

// Global resource limits
const (
	// MaxConcurrentFFmpeg limits concurrent ffmpeg processes across all projects.
	MaxConcurrentFFmpeg = 4
	ExecTimeoutFFmpeg   = 10 * time.Minute
)

// DefaultVoiceMapping is the speaker label to voice id table used when a
// project does not override it.
var DefaultVoiceMapping = map[string]string{
	"SPEAKER_00": "ai_her_04",
	"SPEAKER_01": "wumei_yujie",
	"SPEAKER_02": "uk_oldwoman4",
	"SPEAKER_03": "female-chengshu",
	"SPEAKER_04": "Serene_Elder",
	"SPEAKER_05": "Serene_Elder",
}

// DynamicWorkerCount returns the worker count for a task type based on CPU cores.
func DynamicWorkerCount(taskType string) int {
	cpus := runtime.NumCPU()

	switch taskType {
	case "ffmpeg":
		return minInt(cpus, MaxConcurrentFFmpeg)
	case "translation-api":
		// the remote API rate limits aggressively; keep it serial by default
		return WorkersTranslation
	default:
		return cpus
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
