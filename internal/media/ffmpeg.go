package media

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/backearth1/MiniMax-TTS-Translation/internal/config"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/limiter"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/logger"
)

// FFmpegService wraps ffmpeg and ffprobe for decoding, encoding and probing.
type FFmpegService struct {
	ffmpegPath  string
	ffprobePath string
	cache       *DurationCache
}

// NewFFmpegService creates a service with auto-detected binary paths.
func NewFFmpegService() *FFmpegService {
	paths := []string{
		"/opt/homebrew/bin/ffmpeg",
		"/usr/local/bin/ffmpeg",
		"/usr/bin/ffmpeg",
	}

	ffmpegPath := "ffmpeg"
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			ffmpegPath = p
			break
		}
	}
	return NewFFmpegServiceWithPath(ffmpegPath)
}

// NewFFmpegServiceWithPath creates a service using the given ffmpeg binary.
// ffprobe is expected next to it.
func NewFFmpegServiceWithPath(path string) *FFmpegService {
	return &FFmpegService{
		ffmpegPath:  path,
		ffprobePath: strings.Replace(path, "ffmpeg", "ffprobe", 1),
		cache:       NewDurationCache(),
	}
}

// CheckInstalled verifies ffmpeg is available.
func (s *FFmpegService) CheckInstalled(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, s.ffmpegPath, "-version")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg not found at %s: %w", s.ffmpegPath, err)
	}
	return nil
}

// GetPath returns the ffmpeg executable path.
func (s *FFmpegService) GetPath() string {
	return s.ffmpegPath
}

// DecodePCM decodes any container ffmpeg understands into mono s16le at
// sampleRate.
func (s *FFmpegService) DecodePCM(ctx context.Context, data []byte, sampleRate int) (*Clip, error) {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", "1",
		"pipe:1",
	}
	out, err := s.pipe(ctx, args, data, "decode")
	if err != nil {
		return nil, err
	}

	samples := make([]int16, len(out)/2)
	if err := binary.Read(bytes.NewReader(out[:len(samples)*2]), binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("ffmpeg decode produced unreadable PCM: %w", err)
	}
	return &Clip{SampleRate: sampleRate, Samples: samples}, nil
}

// EncodeAudio encodes a clip into format ("mp3" or "wav").
func (s *FFmpegService) EncodeAudio(ctx context.Context, clip *Clip, format string, bitrate int) ([]byte, error) {
	var raw bytes.Buffer
	if err := binary.Write(&raw, binary.LittleEndian, clip.Samples); err != nil {
		return nil, fmt.Errorf("failed to serialize PCM: %w", err)
	}

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "s16le",
		"-ar", strconv.Itoa(clip.SampleRate),
		"-ac", "1",
		"-i", "pipe:0",
	}
	switch format {
	case "mp3":
		args = append(args, "-acodec", "libmp3lame", "-b:a", fmt.Sprintf("%dk", bitrate/1000), "-f", "mp3")
	case "wav":
		args = append(args, "-acodec", "pcm_s16le", "-f", "wav")
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
	args = append(args, "pipe:1")

	return s.pipe(ctx, args, raw.Bytes(), "encode "+format)
}

// GetDuration returns the duration of a media file in seconds.
// Results are cached to avoid repeated ffprobe calls.
func (s *FFmpegService) GetDuration(ctx context.Context, mediaPath string) (float64, error) {
	if duration, ok := s.cache.Get(mediaPath); ok {
		return duration, nil
	}

	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		mediaPath,
	}

	cmd := exec.CommandContext(ctx, s.ffprobePath, args...)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	var duration float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(output)), "%f", &duration); err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}

	s.cache.Set(mediaPath, duration)
	return duration, nil
}

// Forget drops a cached duration, e.g. after the file was rewritten.
func (s *FFmpegService) Forget(mediaPath string) {
	s.cache.Remove(mediaPath)
}

// pipe runs ffmpeg with stdin/stdout attached, holding an ffmpeg slot.
func (s *FFmpegService) pipe(ctx context.Context, args []string, input []byte, operation string) ([]byte, error) {
	if err := limiter.AcquireFFmpegSlot(ctx); err != nil {
		return nil, err
	}
	defer limiter.ReleaseFFmpegSlot()

	ctx, cancel := context.WithTimeout(ctx, config.ExecTimeoutFFmpeg)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.ffmpegPath, args...)
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("FFmpeg: %s (%d bytes in)", operation, len(input))
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg %s failed: %w\nOutput: %s", operation, err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// ensureDir creates the parent directory for a file path.
func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// FFmpegCodec is a Codec backed by ffmpeg. It decodes anything ffmpeg can
// read, resampling to SampleRate, and encodes to Output.
type FFmpegCodec struct {
	svc        *FFmpegService
	SampleRate int
	Output     string
	Bitrate    int
}

// NewFFmpegCodec returns a codec producing output at the given rate and format.
func NewFFmpegCodec(svc *FFmpegService, sampleRate int, format string, bitrate int) *FFmpegCodec {
	if format == "" {
		format = config.AudioFormat
	}
	if bitrate <= 0 {
		bitrate = config.AudioBitrate
	}
	return &FFmpegCodec{svc: svc, SampleRate: sampleRate, Output: format, Bitrate: bitrate}
}

func (c *FFmpegCodec) Decode(ctx context.Context, data []byte) (*Clip, error) {
	return c.svc.DecodePCM(ctx, data, c.SampleRate)
}

func (c *FFmpegCodec) Encode(ctx context.Context, clip *Clip) ([]byte, error) {
	return c.svc.EncodeAudio(ctx, clip, c.Output, c.Bitrate)
}

func (c *FFmpegCodec) Format() string { return c.Output }
