// Package config loads voicecalc settings.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// environment variables. The result is checked against an embedded CUE
// schema before use.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// TTS providers.
const (
	ProviderGoogle = "google"
	ProviderGemini = "gemini"
	ProviderNone   = "none"
)

// Config is the full application configuration.
type Config struct {
	Addr  string `yaml:"addr" json:"addr" env:"VOICECALC_ADDR"`
	Debug bool   `yaml:"debug" json:"debug" env:"DEBUG"`

	// Port overrides the port of Addr when set.
	Port int `yaml:"-" json:"-" env:"PORT"`

	DB      DBConfig      `yaml:"db" json:"db"`
	History HistoryConfig `yaml:"history" json:"history"`
	Audio   AudioConfig   `yaml:"audio" json:"audio"`
	TTS     TTSConfig     `yaml:"tts" json:"tts"`
	Phrases PhrasesConfig `yaml:"phrases" json:"phrases"`
	Static  StaticConfig  `yaml:"static" json:"static"`
	Log     LogConfig     `yaml:"log" json:"log"`
	OTel    OTelConfig    `yaml:"otel" json:"otel"`
}

type DBConfig struct {
	Path   string `yaml:"path" json:"path" env:"VOICECALC_DB_PATH"`
	Driver string `yaml:"driver" json:"driver" env:"VOICECALC_DB_DRIVER"`
}

type HistoryConfig struct {
	MaxEntries int `yaml:"max_entries" json:"max_entries" env:"VOICECALC_HISTORY_MAX_ENTRIES"`
}

type AudioConfig struct {
	Dir              string `yaml:"dir" json:"dir" env:"VOICECALC_AUDIO_DIR"`
	MaxFiles         int    `yaml:"max_files" json:"max_files" env:"VOICECALC_AUDIO_MAX_FILES"`
	CleanupThreshold int    `yaml:"cleanup_threshold" json:"cleanup_threshold" env:"VOICECALC_AUDIO_CLEANUP_THRESHOLD"`
}

type TTSConfig struct {
	Provider     string `yaml:"provider" json:"provider" env:"VOICECALC_TTS_PROVIDER"`
	Lang         string `yaml:"lang" json:"lang" env:"VOICECALC_TTS_LANG"`
	Slow         bool   `yaml:"slow" json:"slow" env:"VOICECALC_TTS_SLOW"`
	GoogleURL    string `yaml:"google_url" json:"google_url" env:"VOICECALC_TTS_GOOGLE_URL"`
	GeminiModel  string `yaml:"gemini_model" json:"gemini_model" env:"VOICECALC_TTS_GEMINI_MODEL"`
	GeminiVoice  string `yaml:"gemini_voice" json:"gemini_voice" env:"VOICECALC_TTS_GEMINI_VOICE"`
	GeminiAPIKey string `yaml:"gemini_api_key" json:"gemini_api_key" env:"GEMINI_API_KEY"`
}

// PhrasesConfig points at an optional phrase override file. When set the
// file is watched and reloaded on change.
type PhrasesConfig struct {
	File string `yaml:"file" json:"file" env:"VOICECALC_PHRASES_FILE"`
}

// StaticConfig points at a directory of UI assets. Empty serves the
// embedded page.
type StaticConfig struct {
	Dir string `yaml:"dir" json:"dir" env:"VOICECALC_STATIC_DIR"`
}

type LogConfig struct {
	Format string `yaml:"format" json:"format" env:"VOICECALC_LOG_FORMAT"`
}

type OTelConfig struct {
	Endpoint    string `yaml:"endpoint" json:"endpoint" env:"VOICECALC_OTEL_ENDPOINT"`
	ServiceName string `yaml:"service_name" json:"service_name" env:"VOICECALC_OTEL_SERVICE_NAME"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr: ":5000",
		DB: DBConfig{
			Path:   "history/history.db",
			Driver: "sqlite3",
		},
		History: HistoryConfig{MaxEntries: 50},
		Audio: AudioConfig{
			Dir:              "static/voice",
			MaxFiles:         100,
			CleanupThreshold: 80,
		},
		TTS: TTSConfig{
			Provider:  ProviderGoogle,
			Lang:      "en",
			GoogleURL: "https://translate.google.com/translate_tts",
		},
		Log:  LogConfig{Format: "json"},
		OTel: OTelConfig{ServiceName: "voicecalc"},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is non-empty) and the environment, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()
		if err := decodeYAML(f, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.Port != 0 {
		cfg.Addr = fmt.Sprintf(":%d", cfg.Port)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeYAML(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks cfg against the embedded schema.
func Validate(cfg Config) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	v := schema.Unify(ctx.Encode(cfg))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %s", cueerrors.Details(err, nil))
	}
	return nil
}

// Redacted returns a copy of c with secrets masked.
func (c Config) Redacted() Config {
	if c.TTS.GeminiAPIKey != "" {
		c.TTS.GeminiAPIKey = "********"
	}
	return c
}

// YAML renders cfg as YAML with secrets masked.
func (c Config) YAML() ([]byte, error) {
	c = c.Redacted()
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}
