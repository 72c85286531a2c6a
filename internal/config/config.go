// Package config loads voiceorder settings with viper.
//
// Values come from, in increasing priority: defaults, the YAML config file
// (~/.config/voiceorder/config.yaml or --config), and VOICEORDER_* environment
// variables (dots become underscores, e.g. VOICEORDER_STT_API_KEY).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the environment variable prefix.
const EnvPrefix = "VOICEORDER"

// Config is the full application configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Server   ServerConfig   `mapstructure:"server"`
	Capture  CaptureConfig  `mapstructure:"capture"`
	STT      STTConfig      `mapstructure:"stt"`
	Intent   IntentConfig   `mapstructure:"intent"`
	TTS      TTSConfig      `mapstructure:"tts"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type ServerConfig struct {
	Port      int    `mapstructure:"port"`
	StaticDir string `mapstructure:"static_dir"`
}

// CaptureConfig selects the microphone backend.
type CaptureConfig struct {
	MinDuration time.Duration `mapstructure:"min_duration"`
	Backend     string        `mapstructure:"backend"`
	SampleRate  int           `mapstructure:"sample_rate"`
	Device      string        `mapstructure:"device"`
}

type STTConfig struct {
	Provider        string        `mapstructure:"provider"`
	URL             string        `mapstructure:"url"`
	APIKey          string        `mapstructure:"api_key"`
	Language        string        `mapstructure:"language"`
	MaxPayloadBytes int           `mapstructure:"max_payload_bytes"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

type IntentConfig struct {
	Provider  string        `mapstructure:"provider"`
	URL       string        `mapstructure:"url"`
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type TTSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Provider string `mapstructure:"provider"`
	URL      string `mapstructure:"url"`
	APIKey   string `mapstructure:"api_key"`
	Voice    string `mapstructure:"voice"`
}

// CatalogConfig points at the menu. DB wins over Path when both are set.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
	DB   string `mapstructure:"db"`
}

type PipelineConfig struct {
	RateLimitRetries int           `mapstructure:"rate_limit_retries"`
	RetryDelay       time.Duration `mapstructure:"retry_delay"`
}

// Provider names accepted by Validate.
var (
	sttProviders     = []string{"http", "google", "mock"}
	intentProviders  = []string{"http", "openai", "anthropic", "mock"}
	ttsProviders     = []string{"openai", "http", "mock"}
	captureBackends  = []string{"auto", "exec", "mock"}
	errInvalidConfig = errors.New("config: invalid")
)

// Dir returns the default config directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "voiceorder")
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.static_dir", "")

	v.SetDefault("capture.min_duration", time.Second)
	v.SetDefault("capture.backend", "auto")
	v.SetDefault("capture.sample_rate", 16000)
	v.SetDefault("capture.device", "")

	v.SetDefault("stt.provider", "http")
	v.SetDefault("stt.url", "")
	v.SetDefault("stt.api_key", "")
	v.SetDefault("stt.language", "zh-CN")
	v.SetDefault("stt.max_payload_bytes", 5<<20)
	v.SetDefault("stt.timeout", 30*time.Second)

	v.SetDefault("intent.provider", "http")
	v.SetDefault("intent.url", "")
	v.SetDefault("intent.api_key", "")
	v.SetDefault("intent.model", "")
	v.SetDefault("intent.max_tokens", 1024)
	v.SetDefault("intent.timeout", 30*time.Second)

	v.SetDefault("tts.enabled", false)
	v.SetDefault("tts.provider", "openai")
	v.SetDefault("tts.url", "")
	v.SetDefault("tts.api_key", "")
	v.SetDefault("tts.voice", "")

	v.SetDefault("catalog.path", "menu.yaml")
	v.SetDefault("catalog.db", "")

	v.SetDefault("pipeline.rate_limit_retries", 2)
	v.SetDefault("pipeline.retry_delay", 500*time.Millisecond)
}

// Load reads configuration into a Config. An empty file means the default
// location; a missing default file is not an error.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(Dir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects unknown providers and non-positive limits.
func (c *Config) Validate() error {
	var errs []error
	check := func(field, value string, allowed []string) {
		for _, a := range allowed {
			if value == a {
				return
			}
		}
		errs = append(errs, fmt.Errorf("%s %q not one of %s", field, value, strings.Join(allowed, ", ")))
	}

	check("stt.provider", c.STT.Provider, sttProviders)
	check("intent.provider", c.Intent.Provider, intentProviders)
	check("capture.backend", c.Capture.Backend, captureBackends)
	if c.TTS.Enabled {
		// A comma-separated list is a fallback order.
		for _, name := range strings.Split(c.TTS.Provider, ",") {
			check("tts.provider", strings.TrimSpace(name), ttsProviders)
		}
	}

	if c.Capture.MinDuration <= 0 {
		errs = append(errs, fmt.Errorf("capture.min_duration must be positive"))
	}
	if c.Capture.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("capture.sample_rate must be positive"))
	}
	if c.STT.MaxPayloadBytes <= 0 {
		errs = append(errs, fmt.Errorf("stt.max_payload_bytes must be positive"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Pipeline.RateLimitRetries < 0 {
		errs = append(errs, fmt.Errorf("pipeline.rate_limit_retries must not be negative"))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", errInvalidConfig, errors.Join(errs...))
}

// IsInvalid reports whether err came from Validate.
func IsInvalid(err error) bool {
	return errors.Is(err, errInvalidConfig)
}
