package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/code-sleuth/ike-tube/internal/manager/chunkers"
	"github.com/code-sleuth/ike-tube/internal/manager/embedders"
	"github.com/code-sleuth/ike-tube/pkg/util"
)

var (
	ErrYouTubeKeyRequired   = errors.New("YOUTUBE_API_KEY environment variable is required")
	ErrOpenAIKeyRequired    = errors.New("OPENAI_API_KEY environment variable is required")
	ErrAnthropicKeyRequired = errors.New("ANTHROPIC_API_KEY environment variable is required")
	ErrTogetherKeyRequired  = errors.New("TOGETHER_API_KEY environment variable is required")
	ErrUnknownGenerator     = errors.New("unknown generation provider")
	ErrInvalidChunkWindow   = errors.New("CHUNK_OVERLAP must be non-negative and smaller than CHUNK_WORDS")
)

const (
	GeneratorAnthropic = "anthropic"
	GeneratorOpenAI    = "openai"

	// RedisMemory selects the in-process counter store instead of Redis.
	RedisMemory = "memory"
)

// Config carries every tunable of the ingestion and query pipeline.
type Config struct {
	DatabaseURL   string
	DatabaseToken string
	RedisURL      string

	YouTubeAPIKey    string
	YouTubeQPS       float64
	CaptionsProxyURL string
	CaptionLanguage  string
	MaxVideos        int

	OpenAIAPIKey   string
	OpenAIBaseURL  string
	TogetherAPIKey string
	EmbeddingModel string

	GenerationProvider  string
	AnthropicAPIKey     string
	GenerationModel     string
	GenerationMaxTokens int

	ChunkStrategy string
	ChunkWords    int
	ChunkOverlap  int

	TopK               int
	HistoryTokenBudget int

	RetryMaxAttempts int
	RetryBaseDelay   time.Duration

	IngestRateLimit int
	AskRateLimit    int
	RateLimitWindow time.Duration
	IdempotencyTTL  time.Duration

	HTTPAddr       string
	TrustedProxies []string
	Stage          string
}

// Load reads the configuration from the environment, applying defaults.
func Load() *Config {
	return &Config{
		DatabaseURL:   util.GetStringFromEnv("TURSO_DATABASE_URL", ""),
		DatabaseToken: util.GetStringFromEnv("TURSO_AUTH_TOKEN", ""),
		RedisURL:      util.GetStringFromEnv("REDIS_URL", "redis://localhost:6379/0"),

		YouTubeAPIKey:    util.GetStringFromEnv("YOUTUBE_API_KEY", ""),
		YouTubeQPS:       util.GetFloatFromEnv("YOUTUBE_QPS", 5),
		CaptionsProxyURL: util.GetStringFromEnv("CAPTIONS_PROXY_URL", ""),
		CaptionLanguage:  util.GetStringFromEnv("CAPTION_LANGUAGE", "en"),
		MaxVideos:        util.GetIntFromEnv("MAX_VIDEOS", 10),

		OpenAIAPIKey:   util.GetStringFromEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  util.GetStringFromEnv("OPENAI_BASE_URL", ""),
		TogetherAPIKey: util.GetStringFromEnv("TOGETHER_API_KEY", ""),
		EmbeddingModel: util.GetStringFromEnv("EMBEDDING_MODEL", "text-embedding-3-small"),

		GenerationProvider:  strings.ToLower(util.GetStringFromEnv("GENERATION_PROVIDER", GeneratorAnthropic)),
		AnthropicAPIKey:     util.GetStringFromEnv("ANTHROPIC_API_KEY", ""),
		GenerationModel:     util.GetStringFromEnv("GENERATION_MODEL", ""),
		GenerationMaxTokens: util.GetIntFromEnv("GENERATION_MAX_TOKENS", 1024),

		ChunkStrategy: strings.ToLower(util.GetStringFromEnv("CHUNK_STRATEGY", "word")),
		ChunkWords:    util.GetIntFromEnv("CHUNK_WORDS", 500),
		ChunkOverlap:  util.GetIntFromEnv("CHUNK_OVERLAP", 50),

		TopK:               util.GetIntFromEnv("TOP_K", 5),
		HistoryTokenBudget: util.GetIntFromEnv("HISTORY_TOKEN_BUDGET", 4000),

		RetryMaxAttempts: util.GetIntFromEnv("RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelay:   util.GetDurationFromEnv("RETRY_BASE_DELAY", 500*time.Millisecond),

		IngestRateLimit: util.GetIntFromEnv("INGEST_RATE_LIMIT", 5),
		AskRateLimit:    util.GetIntFromEnv("ASK_RATE_LIMIT", 20),
		RateLimitWindow: util.GetDurationFromEnv("RATE_LIMIT_WINDOW", 60*time.Second),
		IdempotencyTTL:  util.GetDurationFromEnv("IDEMPOTENCY_TTL", 120*time.Second),

		HTTPAddr:       util.GetStringFromEnv("HTTP_ADDR", ":8080"),
		TrustedProxies: splitList(util.GetStringFromEnv("TRUSTED_PROXIES", "")),
		Stage:          util.GetStringFromEnv("STAGE", ""),
	}
}

// ValidateIngestion checks the settings needed to fetch and embed a channel.
func (c *Config) ValidateIngestion() error {
	if c.YouTubeAPIKey == "" {
		return ErrYouTubeKeyRequired
	}
	if err := chunkers.ValidateWindow(c.ChunkWords, c.ChunkOverlap); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidChunkWindow, err)
	}
	return c.validateEmbedding()
}

// ValidateQuery checks the settings needed to answer a question.
func (c *Config) ValidateQuery() error {
	if err := c.validateEmbedding(); err != nil {
		return err
	}
	switch c.GenerationProvider {
	case GeneratorAnthropic:
		if c.AnthropicAPIKey == "" {
			return ErrAnthropicKeyRequired
		}
	case GeneratorOpenAI:
		if c.OpenAIAPIKey == "" {
			return ErrOpenAIKeyRequired
		}
	default:
		return ErrUnknownGenerator
	}
	return nil
}

func (c *Config) validateEmbedding() error {
	if c.UsesTogetherAI() {
		if c.TogetherAPIKey == "" {
			return ErrTogetherKeyRequired
		}
		return nil
	}
	if c.OpenAIAPIKey == "" {
		return ErrOpenAIKeyRequired
	}
	return nil
}

// UsesTogetherAI reports whether the embedding model is served by Together AI.
func (c *Config) UsesTogetherAI() bool {
	return embedders.IsTogetherAIModel(c.EmbeddingModel)
}

// RateLimitWindowSeconds returns the rate limit window in whole seconds, never below one.
func (c *Config) RateLimitWindowSeconds() int {
	seconds := int(c.RateLimitWindow / time.Second)
	if seconds < 1 {
		return 1
	}
	return seconds
}

// splitList parses a comma-separated list, dropping blank entries.
func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
