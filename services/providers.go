package services

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/backearth1/MiniMax-TTS-Translation/internal/config"
	apihttp "github.com/backearth1/MiniMax-TTS-Translation/internal/http"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/logger"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/media"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/translation"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/tts"
	"github.com/backearth1/MiniMax-TTS-Translation/models"
)

// TextService translates, shortens and resizes text.
type TextService interface {
	translation.Translator
	translation.Adjuster
}

// Providers builds the remote clients for one run. The factories receive the
// sink of the client that started the run, so progress events land in that
// client's log.
type Providers struct {
	Codec      media.Codec
	SampleRate int
	Prober     media.DurationProber // nil when ffmpeg is unavailable

	NewSynthesizer func(sink logger.Sink) tts.Synthesizer
	NewTextService func(sink logger.Sink) TextService
}

// NewProviders wires the MiniMax clients from cfg. Audio goes through ffmpeg
// when it is installed; without it speech is requested and written as WAV.
func NewProviders(cfg *models.Config) *Providers {
	rate := cfg.Dubbing.SampleRate
	client := apihttp.NewDefaultClient()
	creds := cfg.Credentials()
	glossary := translation.ParseGlossary(cfg.Dubbing.Glossary)

	codec, prober := selectCodec(cfg)

	opts := tts.DefaultOptions()
	opts.SampleRate = rate
	opts.Bitrate = cfg.Dubbing.Bitrate
	opts.Format = codec.Format()
	if cfg.MiniMax.TTSModel != "" {
		opts.Model = cfg.MiniMax.TTSModel
	}
	throttle := tts.SharedThrottle()

	return &Providers{
		Codec:      codec,
		SampleRate: rate,
		Prober:     prober,
		NewSynthesizer: func(sink logger.Sink) tts.Synthesizer {
			m := tts.NewMiniMax(client, opts, creds, throttle, codec)
			m.SetSink(sink)
			return m
		},
		NewTextService: func(sink logger.Sink) TextService {
			return newTextService(client, creds, glossary, sink)
		},
	}
}

func newTextService(client *resty.Client, creds config.Credentials, glossary translation.Glossary, sink logger.Sink) TextService {
	m := translation.NewMiniMax(client, creds)
	m.SetGlossary(glossary)
	m.SetSink(sink)
	return m
}

func selectCodec(cfg *models.Config) (media.Codec, media.DurationProber) {
	path := cfg.Dubbing.FFmpegPath
	if path == "" {
		path = findExecutable("ffmpeg")
	}
	svc := media.NewFFmpegServiceWithPath(path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := svc.CheckInstalled(ctx); err != nil {
		logger.Warn("ffmpeg unavailable, writing WAV output: %v", err)
		return media.NewWAVCodec(), nil
	}
	return media.NewFFmpegCodec(svc, cfg.Dubbing.SampleRate, cfg.Dubbing.Format, cfg.Dubbing.Bitrate), svc
}
