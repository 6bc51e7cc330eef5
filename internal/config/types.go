package config

import (
	"strings"
	"time"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
)

// Run modes
const (
	ModeAPI    = "api"
	ModeWorker = "worker"
	ModeAll    = "all"
)

// Vector backends
const (
	BackendQdrant  = "qdrant"
	BackendChromem = "chromem"
	BackendVespa   = "vespa"
)

// Config is the complete service configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`
	Auth     AuthConfig     `koanf:"auth"`
	AI       AIConfig       `koanf:"ai"`
	Vector   VectorConfig   `koanf:"vector"`
	Ingest   IngestConfig   `koanf:"ingest"`
	Worker   WorkerConfig   `koanf:"worker"`
	Log      LogConfig      `koanf:"log"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Mode    string `koanf:"mode"`
	Port    int    `koanf:"port"`
	BaseURL string `koanf:"base_url"`
	// CORSOrigins is a comma separated allow list, "*" allows any origin
	CORSOrigins string `koanf:"cors_origins"`
	// RateLimit is public chat requests per second per share token
	RateLimit       float64       `koanf:"rate_limit"`
	RateBurst       int           `koanf:"rate_burst"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// AllowedOrigins splits CORSOrigins.
func (s ServerConfig) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(s.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// DatabaseConfig configures Postgres.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	// SealKey is a hex AES key for raw uploads and stored share tokens
	SealKey string `koanf:"seal_key"`
}

// RedisConfig configures Redis. An empty URL selects the Postgres
// fallbacks for sessions, locks and the task queue.
type RedisConfig struct {
	URL string `koanf:"url"`
}

// Enabled reports whether a Redis URL is set.
func (r RedisConfig) Enabled() bool { return r.URL != "" }

// AuthConfig configures operator sessions and share tokens.
type AuthConfig struct {
	SessionSecret      string        `koanf:"session_secret"`
	SessionTTL         time.Duration `koanf:"session_ttl"`
	ShareSecret        string        `koanf:"share_secret"`
	ShareTTL           time.Duration `koanf:"share_ttl"`
	RevokeOnRegenerate bool          `koanf:"revoke_on_regenerate"`
	BcryptCost         int           `koanf:"bcrypt_cost"`
}

// AIConfig configures the embedding and language model providers.
type AIConfig struct {
	EmbeddingProvider   string  `koanf:"embedding_provider"`
	EmbeddingModel      string  `koanf:"embedding_model"`
	EmbeddingAPIKey     string  `koanf:"embedding_api_key"`
	EmbeddingBaseURL    string  `koanf:"embedding_base_url"`
	EmbeddingDimensions int     `koanf:"embedding_dimensions"`
	LLMProvider         string  `koanf:"llm_provider"`
	LLMModel            string  `koanf:"llm_model"`
	LLMAPIKey           string  `koanf:"llm_api_key"`
	LLMBaseURL          string  `koanf:"llm_base_url"`
	LLMTemperature      float64 `koanf:"llm_temperature"`
}

// EmbeddingSettings converts the section into domain settings.
func (a AIConfig) EmbeddingSettings() *domain.EmbeddingSettings {
	return &domain.EmbeddingSettings{
		Provider:   domain.AIProvider(strings.ToLower(a.EmbeddingProvider)),
		Model:      a.EmbeddingModel,
		APIKey:     a.EmbeddingAPIKey,
		BaseURL:    a.EmbeddingBaseURL,
		Dimensions: a.EmbeddingDimensions,
	}
}

// LLMSettings converts the section into domain settings.
func (a AIConfig) LLMSettings() *domain.LLMSettings {
	return &domain.LLMSettings{
		Provider:    domain.AIProvider(strings.ToLower(a.LLMProvider)),
		Model:       a.LLMModel,
		APIKey:      a.LLMAPIKey,
		BaseURL:     a.LLMBaseURL,
		Temperature: a.LLMTemperature,
	}
}

// VectorConfig selects and configures the vector index.
type VectorConfig struct {
	Backend string `koanf:"backend"`
	// Dimensions of stored vectors; 0 follows ai.embedding_dimensions
	Dimensions      int    `koanf:"dimensions"`
	Collection      string `koanf:"collection"`
	QdrantHost      string `koanf:"qdrant_host"`
	QdrantPort      int    `koanf:"qdrant_port"`
	QdrantAPIKey    string `koanf:"qdrant_api_key"`
	QdrantTLS       bool   `koanf:"qdrant_tls"`
	ChromemPath     string `koanf:"chromem_path"`
	ChromemCompress bool   `koanf:"chromem_compress"`
	VespaURL        string `koanf:"vespa_url"`
	VespaConfigURL  string `koanf:"vespa_config_url"`
}

// IngestConfig tunes the ingestion pipeline.
type IngestConfig struct {
	ChunkSize      int           `koanf:"chunk_size"`
	ChunkOverlap   int           `koanf:"chunk_overlap"`
	MinChunk       int           `koanf:"min_chunk"`
	BatchSize      int           `koanf:"batch_size"`
	MaxAttempts    int           `koanf:"max_attempts"`
	Backoff        time.Duration `koanf:"backoff"`
	MaxUploadBytes int64         `koanf:"max_upload_bytes"`
	MaxPages       int           `koanf:"max_pages"`
	StuckAfter     time.Duration `koanf:"stuck_after"`
	LockTTL        time.Duration `koanf:"lock_ttl"`
}

// WorkerConfig configures the task consumer.
type WorkerConfig struct {
	Concurrency    int           `koanf:"concurrency"`
	DequeueTimeout int           `koanf:"dequeue_timeout"`
	SweepInterval  time.Duration `koanf:"sweep_interval"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// VectorDimensions returns the index vector size.
func (c *Config) VectorDimensions() int {
	if c.Vector.Dimensions > 0 {
		return c.Vector.Dimensions
	}
	return c.AI.EmbeddingDimensions
}

// SessionBackend names the session and lock backend.
func (c *Config) SessionBackend() string {
	if c.Redis.Enabled() {
		return "redis"
	}
	return "postgres"
}
