// Package coachline loads and validates service configuration.
package coachline

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/coachline/coachline/pkg/analysis"
	"github.com/coachline/coachline/pkg/bridge"
	"github.com/coachline/coachline/pkg/stt"
)

type Config struct {
	Environment string         `mapstructure:"environment"`
	LogLevel    string         `mapstructure:"log_level"`
	LogFormat   string         `mapstructure:"log_format"`
	Bridge      bridge.Config  `mapstructure:"bridge"`
	Speech      SpeechConfig   `mapstructure:"speech"`
	Coach       CoachConfig    `mapstructure:"coach"`
	Store       ProviderConfig `mapstructure:"store"`
	Analyzer    ProviderConfig `mapstructure:"analyzer"`
}

// ProviderConfig selects an implementation plus free-form settings,
// decoded by the wiring layer.
type ProviderConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type SpeechConfig struct {
	URL                string            `mapstructure:"url"`
	APIKey             string            `mapstructure:"api_key"`
	Model              string            `mapstructure:"model"`
	Language           string            `mapstructure:"language"`
	StaffSpeaker       int               `mapstructure:"staff_speaker"`
	MaxConnectAttempts int               `mapstructure:"max_connect_attempts"`
	ConnectBackoffMS   int               `mapstructure:"connect_backoff_ms"`
	Params             map[string]string `mapstructure:"params"`
}

// SessionConfig maps the speech section onto a session config.
func (c SpeechConfig) SessionConfig() stt.Config {
	return stt.Config{
		URL:                c.URL,
		APIKey:             c.APIKey,
		Model:              c.Model,
		Language:           c.Language,
		StaffSpeaker:       c.StaffSpeaker,
		MaxConnectAttempts: c.MaxConnectAttempts,
		ConnectBackoff:     time.Duration(c.ConnectBackoffMS) * time.Millisecond,
		Params:             c.Params,
	}
}

type CoachConfig struct {
	QuietMS           int `mapstructure:"quiet_ms"`
	GuardMS           int `mapstructure:"guard_ms"`
	AnalysisTimeoutMS int `mapstructure:"analysis_timeout_ms"`
}

// RunnerConfig maps the coach section onto runner debounce windows.
func (c CoachConfig) RunnerConfig() analysis.Config {
	return analysis.Config{
		Quiet:   time.Duration(c.QuietMS) * time.Millisecond,
		Guard:   time.Duration(c.GuardMS) * time.Millisecond,
		Timeout: time.Duration(c.AnalysisTimeoutMS) * time.Millisecond,
	}
}

func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("bridge.addr", ":8080")
	v.SetDefault("bridge.voice_path", "/voice")
	v.SetDefault("bridge.stream_path", "/stream")
	v.SetDefault("speech.url", "wss://api.deepgram.com/v1/listen")
	v.SetDefault("speech.model", "nova-2-phonecall")
	v.SetDefault("speech.language", "en-US")
	v.SetDefault("speech.staff_speaker", 0)
	v.SetDefault("speech.max_connect_attempts", 5)
	v.SetDefault("speech.connect_backoff_ms", 250)
	v.SetDefault("coach.quiet_ms", 3000)
	v.SetDefault("coach.guard_ms", 500)
	v.SetDefault("coach.analysis_timeout_ms", 15000)
	v.SetDefault("store.provider", "memory")
	v.SetDefault("analyzer.provider", "openai")

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	expandEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Store.Provider) == "" {
		return fmt.Errorf("store.provider is required")
	}
	if strings.TrimSpace(c.Analyzer.Provider) == "" {
		return fmt.Errorf("analyzer.provider is required")
	}
	if strings.TrimSpace(c.Speech.URL) == "" {
		return fmt.Errorf("speech.url is required")
	}
	if c.Coach.GuardMS >= c.Coach.QuietMS {
		return fmt.Errorf("coach.guard_ms must be smaller than coach.quiet_ms")
	}
	return nil
}

// expandEnv resolves ${VAR} references in string fields, so secrets stay
// out of config files.
func expandEnv(cfg *Config) {
	cfg.Speech.APIKey = os.ExpandEnv(cfg.Speech.APIKey)
	cfg.Speech.URL = os.ExpandEnv(cfg.Speech.URL)
	cfg.Bridge.AuthToken = os.ExpandEnv(cfg.Bridge.AuthToken)
	cfg.Bridge.PublicURL = os.ExpandEnv(cfg.Bridge.PublicURL)
	cfg.Store.Settings = expandSettings(cfg.Store.Settings)
	cfg.Analyzer.Settings = expandSettings(cfg.Analyzer.Settings)
	for k, val := range cfg.Speech.Params {
		cfg.Speech.Params[k] = os.ExpandEnv(val)
	}
}

func expandSettings(settings map[string]any) map[string]any {
	for k, v := range settings {
		if s, ok := v.(string); ok {
			settings[k] = os.ExpandEnv(s)
		}
	}
	return settings
}
