package models

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/backearth1/MiniMax-TTS-Translation/internal/config"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/logger"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/text"
)

// Environment variables that override the credentials in the config file.
const (
	EnvGroupID = "MINIMAX_GROUP_ID"
	EnvAPIKey  = "MINIMAX_API_KEY"
)

type Server struct {
	Bind      string `toml:"bind"`
	DataDir   string `toml:"data_dir"`   // sqlite database and lock file
	OutputDir string `toml:"output_dir"` // merged audio, served under /outputs
}

type MiniMax struct {
	GroupID  string `toml:"group_id"`
	APIKey   string `toml:"api_key"`
	Endpoint string `toml:"endpoint"` // domestic, overseas or a base URL
	TTSModel string `toml:"tts_model"`
}

type Dubbing struct {
	Language       string  `toml:"language"`        // language_boost sent to TTS
	TargetLanguage string  `toml:"target_language"` // translation target
	SampleRate     int     `toml:"sample_rate"`
	Bitrate        int     `toml:"bitrate"`
	Format         string  `toml:"format"` // mp3 or wav
	FFmpegPath     string  `toml:"ffmpeg_path"`
	DefaultSpeed   float64 `toml:"default_speed"`
	Glossary       string  `toml:"glossary"` // "source=target" pairs
}

type Logging struct {
	Format string `toml:"format"` // console, json or auto
	Level  string `toml:"level"`
	File   string `toml:"file"`
}

// Config holds application settings.
//
//   - Server: HTTP bind address and storage directories
//   - MiniMax: API credentials and endpoint
//   - Dubbing: synthesis and output defaults
//   - Voices: speaker label to voice id
//   - Logging: log format and level
type Config struct {
	Server  Server            `toml:"server"`
	MiniMax MiniMax           `toml:"minimax"`
	Dubbing Dubbing           `toml:"dubbing"`
	Voices  map[string]string `toml:"voices"`
	Logging Logging           `toml:"logging"`
}

// DefaultConfigPath is where Load looks when no path is given.
const DefaultConfigPath = "~/.config/minimax-dubber/config.toml"

func DefaultConfig() *Config {
	voices := make(map[string]string, len(config.DefaultVoiceMapping))
	for k, v := range config.DefaultVoiceMapping {
		voices[k] = v
	}
	return &Config{
		Server: Server{
			Bind:      "127.0.0.1:8000",
			DataDir:   "~/.local/share/minimax-dubber",
			OutputDir: "~/.local/share/minimax-dubber/outputs",
		},
		MiniMax: MiniMax{
			Endpoint: "domestic",
			TTSModel: config.DefaultTTSModel,
		},
		Dubbing: Dubbing{
			Language:       config.DefaultLanguage,
			TargetLanguage: "English",
			SampleRate:     config.AudioSampleRate,
			Bitrate:        config.AudioBitrate,
			Format:         config.AudioFormat,
			DefaultSpeed:   config.MinSpeed,
		},
		Voices: voices,
		Logging: Logging{
			Format: "auto",
			Level:  "info",
		},
	}
}

// LoadConfig reads path (or DefaultConfigPath when empty), applies
// environment overrides, expands paths and validates the result. A missing
// file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = DefaultConfigPath
	}
	resolved, err := expandPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(resolved)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvGroupID)); v != "" {
		c.MiniMax.GroupID = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAPIKey)); v != "" {
		c.MiniMax.APIKey = v
	}
}

func (c *Config) normalize() error {
	var err error
	if c.Server.DataDir, err = expandPath(c.Server.DataDir); err != nil {
		return fmt.Errorf("server.data_dir: %w", err)
	}
	if c.Server.OutputDir, err = expandPath(c.Server.OutputDir); err != nil {
		return fmt.Errorf("server.output_dir: %w", err)
	}
	if c.Logging.File, err = expandPath(c.Logging.File); err != nil {
		return fmt.Errorf("logging.file: %w", err)
	}
	c.Dubbing.Format = strings.ToLower(strings.TrimSpace(c.Dubbing.Format))
	if c.Voices == nil {
		c.Voices = map[string]string{}
	}
	return nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Bind) == "" {
		return errors.New("server.bind is required")
	}
	if c.Dubbing.SampleRate <= 0 {
		return fmt.Errorf("dubbing.sample_rate must be positive, got %d", c.Dubbing.SampleRate)
	}
	if c.Dubbing.Bitrate <= 0 {
		return fmt.Errorf("dubbing.bitrate must be positive, got %d", c.Dubbing.Bitrate)
	}
	switch c.Dubbing.Format {
	case "mp3", "wav":
	default:
		return fmt.Errorf("dubbing.format must be mp3 or wav, got %q", c.Dubbing.Format)
	}
	if c.Dubbing.DefaultSpeed < config.MinSpeed || c.Dubbing.DefaultSpeed > config.MaxSpeed {
		return fmt.Errorf("dubbing.default_speed: %w", ErrInvalidSpeed)
	}
	if !text.IsSupportedLanguage(c.Dubbing.TargetLanguage) {
		return fmt.Errorf("dubbing.target_language %q is not supported", c.Dubbing.TargetLanguage)
	}
	return nil
}

// Save writes the config as TOML with user-only permissions.
func (c *Config) Save(path string) error {
	resolved, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(resolved, data, 0o600)
}

// Credentials returns the MiniMax account settings.
func (c *Config) Credentials() config.Credentials {
	return config.Credentials{
		GroupID:  strings.TrimSpace(c.MiniMax.GroupID),
		APIKey:   strings.TrimSpace(c.MiniMax.APIKey),
		Endpoint: c.MiniMax.Endpoint,
	}
}

// VoiceFor maps a speaker label to a voice id, falling back to the default
// voice. Custom speakers take precedence over the configured voices.
func (c *Config) VoiceFor(speaker string, custom []CustomSpeaker) string {
	for _, s := range custom {
		if s.Name == speaker && s.VoiceID != "" {
			return s.VoiceID
		}
	}
	if v, ok := c.Voices[speaker]; ok && v != "" {
		return v
	}
	return config.DefaultVoice
}

// LoggerOptions converts the logging section.
func (c *Config) LoggerOptions() logger.Options {
	return logger.Options{Level: c.Logging.Level, Format: c.Logging.Format, File: c.Logging.File}
}

// DatabasePath is the sqlite file inside the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Server.DataDir, "dubber.db")
}

// LockPath guards the data directory against a second server.
func (c *Config) LockPath() string {
	return filepath.Join(c.Server.DataDir, "dubber.lock")
}

// EnsureDirectories creates the data and output directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Server.DataDir, c.Server.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}
