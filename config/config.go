// Package config loads careergraph settings from a YAML file and CAREERGRAPH_*
// environment variables, and builds the store, logger and pipeline options
// they describe.
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/smallnest/careergraph/career"
	"github.com/smallnest/careergraph/graph"
	"github.com/smallnest/careergraph/log"
	"github.com/smallnest/careergraph/store"
	"github.com/smallnest/careergraph/store/file"
	"github.com/smallnest/careergraph/store/memory"
	"github.com/smallnest/careergraph/store/postgres"
	"github.com/smallnest/careergraph/store/redis"
	"github.com/smallnest/careergraph/store/sqlite"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CAREERGRAPH_"

// Store backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSqlite   = "sqlite"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

// StoreConfig selects and configures the checkpoint store.
type StoreConfig struct {
	Backend string `yaml:"backend"`
	// Path is the directory of the file backend or the database of sqlite.
	Path     string `yaml:"path"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// DSN is the postgres connection string.
	DSN    string        `yaml:"dsn"`
	Prefix string        `yaml:"prefix"`
	Table  string        `yaml:"table"`
	TTL    time.Duration `yaml:"ttl"`
}

// OpenAIConfig enables the model backed alternative suggester.
type OpenAIConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
	Retries int           `yaml:"retries"`
}

// Config is the full careergraph configuration.
type Config struct {
	LogLevel       string       `yaml:"log_level"`
	MaxConcurrency int          `yaml:"max_concurrency"`
	Store          StoreConfig  `yaml:"store"`
	OpenAI         OpenAIConfig `yaml:"openai"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Store: StoreConfig{
			Backend: BackendMemory,
			TTL:     24 * time.Hour,
		},
		OpenAI: OpenAIConfig{
			Timeout: 30 * time.Second,
			Retries: 2,
		},
	}
}

// Load reads path, when not empty, over the defaults and then applies the
// environment. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"LOG_LEVEL":       &c.LogLevel,
		"STORE_BACKEND":   &c.Store.Backend,
		"STORE_PATH":      &c.Store.Path,
		"STORE_ADDR":      &c.Store.Addr,
		"STORE_PASSWORD":  &c.Store.Password,
		"STORE_DSN":       &c.Store.DSN,
		"STORE_PREFIX":    &c.Store.Prefix,
		"STORE_TABLE":     &c.Store.Table,
		"OPENAI_API_KEY":  &c.OpenAI.APIKey,
		"OPENAI_BASE_URL": &c.OpenAI.BaseURL,
		"OPENAI_MODEL":    &c.OpenAI.Model,
	}
	for name, dst := range strs {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"MAX_CONCURRENCY": &c.MaxConcurrency,
		"STORE_DB":        &c.Store.DB,
		"OPENAI_RETRIES":  &c.OpenAI.Retries,
	}
	for name, dst := range ints {
		if v, ok := lookup(EnvPrefix + name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%w: %s%s: %v", ErrInvalidConfig, EnvPrefix, name, err)
			}
			*dst = n
		}
	}

	durations := map[string]*time.Duration{
		"STORE_TTL":      &c.Store.TTL,
		"OPENAI_TIMEOUT": &c.OpenAI.Timeout,
	}
	for name, dst := range durations {
		if v, ok := lookup(EnvPrefix + name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%w: %s%s: %v", ErrInvalidConfig, EnvPrefix, name, err)
			}
			*dst = d
		}
	}
	return nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %v", ErrInvalidConfig, err)
	}
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("%w: max_concurrency must not be negative", ErrInvalidConfig)
	}
	if c.Store.TTL < 0 {
		return fmt.Errorf("%w: store.ttl must not be negative", ErrInvalidConfig)
	}
	if c.OpenAI.Timeout < 0 || c.OpenAI.Retries < 0 {
		return fmt.Errorf("%w: openai timeout and retries must not be negative", ErrInvalidConfig)
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendFile, BackendSqlite:
		if c.Store.Path == "" {
			return fmt.Errorf("%w: store.path is required for the %s backend", ErrInvalidConfig, c.Store.Backend)
		}
	case BackendRedis:
		if c.Store.Addr == "" {
			return fmt.Errorf("%w: store.addr is required for the redis backend", ErrInvalidConfig)
		}
	case BackendPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("%w: store.dsn is required for the postgres backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, c.Store.Backend)
	}
	return nil
}

// OpenStore opens the configured checkpoint store. The returned function
// releases its connections.
func (c *Config) OpenStore(ctx context.Context) (store.CheckpointStore, func() error, error) {
	noop := func() error { return nil }
	s := c.Store
	switch s.Backend {
	case BackendMemory:
		return memory.NewMemoryCheckpointStore(memory.WithTTL(s.TTL)), noop, nil
	case BackendFile:
		st, err := file.NewFileCheckpointStore(s.Path, s.TTL)
		if err != nil {
			return nil, nil, err
		}
		return st, noop, nil
	case BackendRedis:
		st := redis.NewRedisCheckpointStore(redis.RedisOptions{
			Addr:     s.Addr,
			Password: s.Password,
			DB:       s.DB,
			Prefix:   s.Prefix,
			TTL:      s.TTL,
		})
		if err := st.Ping(ctx); err != nil {
			_ = st.Close()
			return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", s.Addr, err)
		}
		return st, st.Close, nil
	case BackendPostgres:
		st, err := postgres.NewPostgresCheckpointStore(ctx, postgres.PostgresOptions{
			ConnString: s.DSN,
			TableName:  s.Table,
			TTL:        s.TTL,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := st.InitSchema(ctx); err != nil {
			st.Close()
			return nil, nil, err
		}
		return st, func() error { st.Close(); return nil }, nil
	case BackendSqlite:
		st, err := sqlite.NewSqliteCheckpointStore(sqlite.SqliteOptions{
			Path:      s.Path,
			TableName: s.Table,
			TTL:       s.TTL,
		})
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, s.Backend)
	}
}

// Logger returns a golog backed logger at the configured level.
func (c *Config) Logger(out io.Writer) log.Logger {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		level = log.LogLevelInfo
	}
	return log.NewGologLoggerWithLevel(out, level)
}

// Suggester returns the OpenAI suggester when an API key is set.
func (c *Config) Suggester() (career.Suggester, bool) {
	if c.OpenAI.APIKey == "" {
		return nil, false
	}
	return career.NewOpenAISuggester(c.OpenAI.APIKey, c.OpenAI.BaseURL, c.OpenAI.Model), true
}

// PipelineOptions translates the configuration into career options.
func (c *Config) PipelineOptions(logger log.Logger) []career.Option {
	opts := []career.Option{career.WithLogger(logger)}
	if c.MaxConcurrency > 0 {
		opts = append(opts, career.WithCompileOptions(graph.WithMaxConcurrency(c.MaxConcurrency)))
	}
	if s, ok := c.Suggester(); ok {
		opts = append(opts, career.WithSuggester(s), career.WithSuggesterTimeout(c.OpenAI.Timeout))
		if c.OpenAI.Retries > 0 {
			retry := graph.DefaultRetryConfig()
			retry.MaxAttempts = c.OpenAI.Retries + 1
			opts = append(opts, career.WithSuggesterRetry(retry))
		}
	}
	return opts
}
