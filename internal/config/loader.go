// Package config loads service configuration from built-in defaults, an
// optional YAML file and the environment, in that order of precedence.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
)

// EnvPrefix prefixes every configuration environment variable.
const EnvPrefix = "BROCHUREBOT_"

const maxConfigFileSize = 1024 * 1024

//go:embed defaults.yaml
var defaultsYAML []byte

// legacyEnv maps the unprefixed variables used by existing deployments.
// Prefixed variables win over these.
var legacyEnv = map[string]string{
	"PORT":         "server.port",
	"RUN_MODE":     "server.mode",
	"DATABASE_URL": "database.url",
	"REDIS_URL":    "redis.url",
	"JWT_SECRET":   "auth.session_secret",
	"LOG_LEVEL":    "log.level",
}

// LoadDotEnv reads KEY=VALUE pairs from the given files (default ".env")
// into the process environment. Missing files are ignored. Variables that
// are already set are not overridden.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load builds the configuration. path is an optional YAML file; an empty
// path skips the file layer.
//
// Environment variables are the prefix followed by section and key, for
// example BROCHUREBOT_SERVER_BASE_URL sets server.base_url.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider(defaultsYAML), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	for name, key := range legacyEnv {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			if err := k.Set(key, v); err != nil {
				return nil, fmt.Errorf("failed to apply %s: %w", name, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envKey maps BROCHUREBOT_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// ErrUnsupportedMode is returned for a run mode the configuration cannot serve.
var ErrUnsupportedMode = errors.New("unsupported mode")

// CheckMode reports whether the process can run in mode with the configured
// vector backend. chromem lives in process memory, so the API and the worker
// must share one process.
func (c *Config) CheckMode(mode string) error {
	switch mode {
	case ModeAPI, ModeWorker, ModeAll:
	default:
		return fmt.Errorf("%w %q (use api, worker or all)", ErrUnsupportedMode, mode)
	}
	if c.Vector.Backend == BackendChromem && mode != ModeAll {
		return fmt.Errorf("%w: vector.backend chromem requires mode %q, got %q", ErrUnsupportedMode, ModeAll, mode)
	}
	return nil
}

// Validate checks value ranges and cross-field constraints.
func (c *Config) Validate() error {
	var errs []error

	if err := c.CheckMode(c.Server.Mode); err != nil {
		errs = append(errs, fmt.Errorf("server.mode: %w", err))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Server.BaseURL == "" {
		errs = append(errs, errors.New("server.base_url is required"))
	}
	if c.Server.RateLimit <= 0 || c.Server.RateBurst <= 0 {
		errs = append(errs, errors.New("server.rate_limit and server.rate_burst must be positive"))
	}

	if c.Database.URL == "" {
		errs = append(errs, errors.New("database.url is required"))
	}
	if c.Database.SealKey != "" && len(c.Database.SealKey) != 64 {
		errs = append(errs, errors.New("database.seal_key must be 32 bytes hex encoded"))
	}

	if c.Auth.SessionSecret == "" {
		errs = append(errs, errors.New("auth.session_secret is required"))
	}
	if c.Auth.ShareSecret == "" {
		errs = append(errs, errors.New("auth.share_secret is required"))
	}
	if c.Auth.SessionTTL <= 0 || c.Auth.ShareTTL <= 0 {
		errs = append(errs, errors.New("auth.session_ttl and auth.share_ttl must be positive"))
	}

	for _, p := range []struct{ key, value string }{
		{"ai.embedding_provider", c.AI.EmbeddingProvider},
		{"ai.llm_provider", c.AI.LLMProvider},
	} {
		if p.value != "" && !domain.AIProvider(strings.ToLower(p.value)).IsValid() {
			errs = append(errs, fmt.Errorf("%s: unknown provider %q", p.key, p.value))
		}
	}
	if c.AI.EmbeddingProvider != "" && c.AI.EmbeddingDimensions <= 0 {
		errs = append(errs, errors.New("ai.embedding_dimensions must be positive"))
	}
	if c.AI.LLMTemperature < 0 || c.AI.LLMTemperature > 2 {
		errs = append(errs, fmt.Errorf("ai.llm_temperature out of range: %v", c.AI.LLMTemperature))
	}

	switch c.Vector.Backend {
	case BackendQdrant, BackendChromem, BackendVespa:
	default:
		errs = append(errs, fmt.Errorf("vector.backend must be qdrant, chromem or vespa, got %q", c.Vector.Backend))
	}
	if c.VectorDimensions() <= 0 {
		errs = append(errs, errors.New("vector dimensions must be positive"))
	}
	if c.Vector.Dimensions > 0 && c.AI.EmbeddingDimensions > 0 && c.Vector.Dimensions != c.AI.EmbeddingDimensions {
		errs = append(errs, fmt.Errorf("%w: vector.dimensions %d, ai.embedding_dimensions %d",
			domain.ErrDimensionMismatch, c.Vector.Dimensions, c.AI.EmbeddingDimensions))
	}

	if c.Ingest.ChunkSize <= 0 {
		errs = append(errs, errors.New("ingest.chunk_size must be positive"))
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		errs = append(errs, errors.New("ingest.chunk_overlap must be smaller than ingest.chunk_size"))
	}
	if c.Ingest.BatchSize <= 0 || c.Ingest.MaxAttempts <= 0 {
		errs = append(errs, errors.New("ingest.batch_size and ingest.max_attempts must be positive"))
	}
	if c.Ingest.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("ingest.max_upload_bytes must be positive"))
	}

	if c.Worker.Concurrency <= 0 {
		errs = append(errs, errors.New("worker.concurrency must be positive"))
	}

	return errors.Join(errs...)
}
