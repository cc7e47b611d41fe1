// Package config loads gotmt settings from the environment, optionally
// layered over a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Provider names.
const (
	ProviderHuggingFace = "huggingface"
	ProviderOpenAI      = "openai"
	ProviderMock        = "mock"
)

// Backend names for the cache and the event log.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds every runtime setting. Precedence, lowest first: envDefault
// tags, the YAML file, environment variables.
type Config struct {
	DatabaseURL        string        `env:"DATABASE_URL"         envDefault:"sqlite://gotmt.db" yaml:"database_url"`
	SlowQueryThreshold time.Duration `env:"DB_SLOW_QUERY_THRESHOLD" envDefault:"200ms"       yaml:"db_slow_query_threshold"`
	Port               int           `env:"PORT"                 envDefault:"5000"              yaml:"port"`

	LogLevel  string `env:"LOG_LEVEL"   envDefault:"info" yaml:"log_level"`
	LogFormat string `env:"LOG_FORMAT"  envDefault:"text" yaml:"log_format"`
	LogColor  bool   `env:"LOG_COLORED" envDefault:"true" yaml:"log_colored"`

	SourceLang string `env:"SOURCE_LANG" envDefault:"en" yaml:"source_lang"`

	Provider          string        `env:"PROVIDER"                envDefault:"huggingface"                     yaml:"provider"`
	HuggingFaceAPIKey string        `env:"HUGGINGFACE_API_KEY"                                                  yaml:"huggingface_api_key"`
	HFModel           string        `env:"HF_MODEL_ID"             envDefault:"facebook/nllb-200-distilled-600M" yaml:"hf_model_id"`
	HFAPIURL          string        `env:"HF_API_URL"              envDefault:"https://api-inference.huggingface.co" yaml:"hf_api_url"`
	OpenAIAPIKey      string        `env:"OPENAI_API_KEY"                                                       yaml:"openai_api_key"`
	OpenAIModel       string        `env:"OPENAI_MODEL"            envDefault:"gpt-4o-mini"                     yaml:"openai_model"`
	OpenAIBaseURL     string        `env:"OPENAI_BASE_URL"                                                      yaml:"openai_base_url"`
	ProviderTimeout   time.Duration `env:"PROVIDER_TIMEOUT"        envDefault:"15s"                             yaml:"provider_timeout"`
	ProviderRateLimit int           `env:"PROVIDER_RATE_LIMIT_RPM" envDefault:"0"                               yaml:"provider_rate_limit_rpm"`

	FanoutParallelism  int `env:"FANOUT_PARALLELISM"  envDefault:"4" yaml:"fanout_parallelism"`
	PropagationWorkers int `env:"PROPAGATION_WORKERS" envDefault:"4" yaml:"propagation_workers"`

	CacheBackend  string        `env:"CACHE_BACKEND"  envDefault:"memory" yaml:"cache_backend"`
	CacheTTL      time.Duration `env:"CACHE_TTL"      envDefault:"1h"     yaml:"cache_ttl"`
	CacheSnapshot string        `env:"CACHE_SNAPSHOT"                     yaml:"cache_snapshot"`
	RedisURL      string        `env:"REDIS_URL"      envDefault:"redis://localhost:6379/0" yaml:"redis_url"`

	EventsBackend      string        `env:"EVENTS_BACKEND"       envDefault:"memory"       yaml:"events_backend"`
	EventsCapacity     int           `env:"EVENTS_CAPACITY"      envDefault:"300"          yaml:"events_capacity"`
	EventsStream       string        `env:"EVENTS_STREAM"        envDefault:"gotmt:events" yaml:"events_stream"`
	NATSURL            string        `env:"NATS_URL"                                       yaml:"nats_url"`
	NATSSubject        string        `env:"NATS_SUBJECT"         envDefault:"gotmt.events" yaml:"nats_subject"`
	StreamPollInterval time.Duration `env:"STREAM_POLL_INTERVAL" envDefault:"1s"           yaml:"stream_poll_interval"`
}

// Load reads configuration from the environment layered over the YAML file at
// path. An empty path skips the file.
func Load(path string) (Config, error) {
	return load(path, nil)
}

// load is Load with an explicit environment; nil means the process
// environment.
func load(path string, environ map[string]string) (Config, error) {
	// Defaults only.
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Environment: map[string]string{}})
	if err != nil {
		return Config{}, fmt.Errorf("applying defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	// Environment variables only; defaults must not overwrite file values.
	err = env.ParseWithOptions(&cfg, env.Options{
		Environment:         environ,
		DefaultValueTagName: "envDefaultUnused",
	})
	if err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}

	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	cfg.CacheBackend = strings.ToLower(strings.TrimSpace(cfg.CacheBackend))
	cfg.EventsBackend = strings.ToLower(strings.TrimSpace(cfg.EventsBackend))

	return cfg, nil
}

// Validate checks enumerations, ranges and keys the chosen provider needs.
func (c Config) Validate() error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}

	switch c.Provider {
	case ProviderHuggingFace:
		if c.HuggingFaceAPIKey == "" {
			errs = append(errs, errors.New("HUGGINGFACE_API_KEY is required for the huggingface provider"))
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai provider"))
		}
	case ProviderMock:
	default:
		errs = append(errs, fmt.Errorf("unknown PROVIDER %q", c.Provider))
	}

	backends := []string{BackendMemory, BackendRedis}
	if !slices.Contains(backends, c.CacheBackend) {
		errs = append(errs, fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend))
	}
	if !slices.Contains(backends, c.EventsBackend) {
		errs = append(errs, fmt.Errorf("unknown EVENTS_BACKEND %q", c.EventsBackend))
	}
	if (c.CacheBackend == BackendRedis || c.EventsBackend == BackendRedis) && c.RedisURL == "" {
		errs = append(errs, errors.New("REDIS_URL is required for redis backends"))
	}

	if c.ProviderTimeout <= 0 {
		errs = append(errs, errors.New("PROVIDER_TIMEOUT must be positive"))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, errors.New("CACHE_TTL must be positive"))
	}
	if c.FanoutParallelism < 1 {
		errs = append(errs, errors.New("FANOUT_PARALLELISM must be at least 1"))
	}
	if c.PropagationWorkers < 1 {
		errs = append(errs, errors.New("PROPAGATION_WORKERS must be at least 1"))
	}
	if c.EventsCapacity < 1 {
		errs = append(errs, errors.New("EVENTS_CAPACITY must be at least 1"))
	}
	if c.StreamPollInterval <= 0 {
		errs = append(errs, errors.New("STREAM_POLL_INTERVAL must be positive"))
	}
	if c.SlowQueryThreshold < 0 {
		errs = append(errs, errors.New("DB_SLOW_QUERY_THRESHOLD must not be negative"))
	}
	if c.ProviderRateLimit < 0 {
		errs = append(errs, errors.New("PROVIDER_RATE_LIMIT_RPM must not be negative"))
	}

	return errors.Join(errs...)
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
