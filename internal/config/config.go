package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	DefaultTranscriptionEndpoint = "https://api.mistral.ai/v1/audio/transcriptions"
	DefaultChatBaseURL           = "https://api.mistral.ai/v1/"

	DefaultTranscriptionModel = "voxtral-mini-2507"
	LargeTranscriptionModel   = "voxtral-large-latest"
	DefaultChatModel          = "mistral-small-latest"
	LargeChatModel            = "mistral-large-latest"

	// APIKeyEnv is the variable the API key is read from.
	APIKeyEnv = "MISTRAL_API_KEY"
	// LogLevelEnv optionally overrides LOG_LEVEL.
	LogLevelEnv = "LOG_LEVEL"
)

// ErrMissingAPIKey is returned when a network call would be made without a key.
var ErrMissingAPIKey = errors.New(APIKeyEnv + " is not configured; set it in the environment or in the .env file")

// Config holds configurable parameters.
type Config struct {
	APIKey                  string  `json:"MISTRAL_API_KEY"`
	TranscriptionEndpoint   string  `json:"TRANSCRIPTION_ENDPOINT"`
	ChatBaseURL             string  `json:"CHAT_BASE_URL"`
	TranscriptionModel      string  `json:"TRANSCRIPTION_MODEL"`
	LargeTranscriptionModel string  `json:"LARGE_TRANSCRIPTION_MODEL"`
	ChatModel               string  `json:"CHAT_MODEL"`
	LargeChatModel          string  `json:"LARGE_CHAT_MODEL"`
	LargeModel              bool    `json:"LARGE_MODEL"`
	Language                string  `json:"LANGUAGE"`
	TEXTPath                string  `json:"TEXT_PATH"`
	Recorder                string  `json:"RECORDER"`
	Device                  string  `json:"DEVICE"`
	Channels                int     `json:"CHANNELS"`
	SAMPLING_RATE           int     `json:"SAMPLING_RATE"`
	SampleFormat            string  `json:"SAMPLE_FORMAT"`
	CODECS                  string  `json:"CODECS"`
	CONTAINER               string  `json:"CONTAINER"`
	BIT_RATE                int     `json:"BIT_RATE"`
	ConfirmAfterSeconds     float64 `json:"CONFIRM_AFTER_SECONDS"`
	RequestTimeout          int     `json:"REQUEST_TIMEOUT"`
	MaxRetry                int     `json:"MAX_RETRY"`
	RetryBaseDelay          float64 `json:"RETRY_BASE_DELAY"`
	EnableHTTP2             bool    `json:"ENABLE_HTTP2"`
	VerifySSL               bool    `json:"VERIFY_SSL"`
	CacheDir                string  `json:"CACHE_DIR"`
	KeepCache               bool    `json:"KEEP_CACHE"`
	Notification            bool    `json:"NOTIFICATION"`
	LogLevel                string  `json:"LOG_LEVEL"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		APIKey:                  "",
		TranscriptionEndpoint:   DefaultTranscriptionEndpoint,
		ChatBaseURL:             DefaultChatBaseURL,
		TranscriptionModel:      DefaultTranscriptionModel,
		LargeTranscriptionModel: LargeTranscriptionModel,
		ChatModel:               DefaultChatModel,
		LargeChatModel:          LargeChatModel,
		LargeModel:              false,
		Language:                "",
		TEXTPath:                "text",
		Recorder:                "arecord",
		Device:                  "default",
		Channels:                1,
		SAMPLING_RATE:           16000,
		SampleFormat:            "S16_LE",
		CODECS:                  "pcm_s16le",
		CONTAINER:               "wav",
		BIT_RATE:                64,
		ConfirmAfterSeconds:     30,
		RequestTimeout:          60,
		MaxRetry:                1,
		RetryBaseDelay:          0.5,
		EnableHTTP2:             true,
		VerifySSL:               true,
		CacheDir:                "",
		KeepCache:               false,
		Notification:            false,
		LogLevel:                "info",
	}
}

// Load loads config from JSON file if provided.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg, nil
}

// SaveDefault writes a default config JSON to the provided path.
func SaveDefault(path string) error {
	cfg := DefaultConfig()
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0600)
}

// LoadEnv loads envFile (a missing file is not an error) without overriding
// variables already set in the process, then applies the environment to cfg.
func LoadEnv(cfg *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	if v := strings.TrimSpace(os.Getenv(APIKeyEnv)); v != "" {
		cfg.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv(LogLevelEnv)); v != "" {
		cfg.LogLevel = v
	}
	return nil
}

// RequireAPIKey reports ErrMissingAPIKey when no key is configured.
func (c Config) RequireAPIKey() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// TranscriptionModelName returns the speech model selected by LargeModel.
func (c Config) TranscriptionModelName() string {
	if c.LargeModel {
		return c.LargeTranscriptionModel
	}
	return c.TranscriptionModel
}

// ChatModelName returns the chat model selected by LargeModel.
func (c Config) ChatModelName() string {
	if c.LargeModel {
		return c.LargeChatModel
	}
	return c.ChatModel
}

// Validate verifies config fields and returns an error if any value is invalid.
func Validate(cfg *Config) error {
	if cfg.TranscriptionEndpoint == "" {
		return fmt.Errorf("invalid TRANSCRIPTION_ENDPOINT: empty")
	}
	if cfg.ChatBaseURL == "" {
		return fmt.Errorf("invalid CHAT_BASE_URL: empty")
	}
	if cfg.TranscriptionModelName() == "" || cfg.ChatModelName() == "" {
		return fmt.Errorf("invalid model configuration: model names must not be empty")
	}
	if cfg.Recorder == "" {
		return fmt.Errorf("invalid RECORDER: empty")
	}
	if cfg.Channels < 1 || cfg.Channels > 8 {
		return fmt.Errorf("invalid CHANNELS: %d (allowed 1..8)", cfg.Channels)
	}
	if cfg.SAMPLING_RATE <= 0 {
		return fmt.Errorf("invalid SAMPLING_RATE: %d (must be > 0)", cfg.SAMPLING_RATE)
	}
	if cfg.BIT_RATE <= 0 {
		return fmt.Errorf("invalid BIT_RATE: %d (must be > 0)", cfg.BIT_RATE)
	}
	if _, ok := containerExts[strings.ToLower(cfg.CONTAINER)]; !ok {
		return fmt.Errorf("invalid CONTAINER: %s (allowed: WAV, OGG, OPUS, MP3, FLAC, M4A, WEBM)", cfg.CONTAINER)
	}
	if enc, _ := Encoder(cfg.CODECS, ContainerExt(cfg.CONTAINER)); enc == "" {
		return fmt.Errorf("invalid CODECS: %s (allowed: OPUS, LIBOPUS, VORBIS, LIBVORBIS, MP3, AAC, FLAC, PCM, PCM_S16LE)", cfg.CODECS)
	}
	if cfg.ConfirmAfterSeconds < 0 {
		return fmt.Errorf("invalid CONFIRM_AFTER_SECONDS: %v (must be >= 0)", cfg.ConfirmAfterSeconds)
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("invalid REQUEST_TIMEOUT: %d (must be > 0)", cfg.RequestTimeout)
	}
	if cfg.MaxRetry < 1 {
		return fmt.Errorf("invalid MAX_RETRY: %d (must be >= 1)", cfg.MaxRetry)
	}
	if cfg.RetryBaseDelay < 0 {
		return fmt.Errorf("invalid RETRY_BASE_DELAY: %v (must be >= 0)", cfg.RetryBaseDelay)
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	return nil
}

// InitCacheDir validates/creates the configured cache directory.
// It mutates cfg.CacheDir to an absolute path or clears it on failure.
func InitCacheDir(cfg *Config, log logrus.FieldLogger) {
	if cfg.CacheDir == "" {
		return
	}
	abs, err := filepath.Abs(cfg.CacheDir)
	if err != nil {
		log.Warnf("cache-dir path invalid '%s': %v; falling back to the temp dir", cfg.CacheDir, err)
		cfg.CacheDir = ""
		return
	}
	info, err := os.Stat(abs)
	switch {
	case err == nil && !info.IsDir():
		log.Warnf("cache-dir '%s' exists but is not a directory; falling back to the temp dir", abs)
		cfg.CacheDir = ""
	case err == nil:
		cfg.CacheDir = abs
		log.Debugf("using existing cache-dir: %s", abs)
	case os.IsNotExist(err):
		if err := os.MkdirAll(abs, 0755); err != nil {
			log.Warnf("cannot create cache-dir '%s': %v; falling back to the temp dir", abs, err)
			cfg.CacheDir = ""
			return
		}
		cfg.CacheDir = abs
		log.Infof("created cache-dir: %s", abs)
	default:
		log.Warnf("cannot access cache-dir '%s': %v; falling back to the temp dir", abs, err)
		cfg.CacheDir = ""
	}
}

// TempDir returns the directory to use for temporary files: the cache dir when
// set, otherwise a per-user directory under the system temp dir.
func TempDir(cfg *Config) string {
	if cfg.CacheDir != "" {
		return cfg.CacheDir
	}
	return filepath.Join(os.TempDir(), "transcribe-cli-"+strconv.Itoa(os.Getuid()))
}

var containerExts = map[string]string{
	"wav":  "wav",
	"ogg":  "ogg",
	"opus": "opus",
	"mp3":  "mp3",
	"flac": "flac",
	"m4a":  "m4a",
	"webm": "webm",
}

// ContainerExt maps container names to file extensions (lowercase).
func ContainerExt(container string) string {
	if ext, ok := containerExts[strings.ToLower(container)]; ok {
		return ext
	}
	return "wav"
}

// NeedsConversion reports whether the recorded WAV must be re-encoded before upload.
func NeedsConversion(cfg *Config) bool {
	return ContainerExt(cfg.CONTAINER) != "wav"
}

// Encoder resolves the ffmpeg encoder for a codec name and reports whether it
// takes a bitrate. An empty name, or the default PCM codec paired with a non-WAV
// container, picks the container's usual encoder. Unknown names yield "".
func Encoder(codec, container string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(codec))
	if key == "" || (key == "pcm_s16le" && container != "wav") {
		key = map[string]string{
			"ogg":  "opus",
			"opus": "opus",
			"webm": "opus",
			"mp3":  "mp3",
			"flac": "flac",
			"m4a":  "aac",
			"wav":  "pcm_s16le",
		}[container]
	}
	switch key {
	case "opus", "libopus":
		return "libopus", true
	case "vorbis", "libvorbis":
		return "libvorbis", true
	case "mp3":
		return "libmp3lame", true
	case "aac":
		return "aac", true
	case "flac":
		return "flac", false
	case "pcm", "pcm_s16le":
		return "pcm_s16le", false
	}
	return "", false
}
