package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	// Document analysis (Azure Form Recognizer style service)
	DocIntelEndpoint string `mapstructure:"DOCINTEL_ENDPOINT"`
	DocIntelKey      string `mapstructure:"DOCINTEL_KEY"`

	// Text generation (OpenRouter-compatible chat completions API)
	OpenRouterBaseURL string `mapstructure:"OPENROUTER_BASE_URL"`
	OpenRouterAPIKey  string `mapstructure:"OPENROUTER_API_KEY"`
	IngestModel       string `mapstructure:"INGEST_MODEL"`
	ChatModel         string `mapstructure:"CHAT_MODEL"`
	LabChatModel      string `mapstructure:"LAB_CHAT_MODEL"`

	// Embedding inference server
	EmbedURL string `mapstructure:"EMBED_URL"`
	EmbedDim int    `mapstructure:"EMBED_DIM"`

	// Vector index
	VectorIndexHost string `mapstructure:"VECTOR_INDEX_HOST"`
	VectorIndexKey  string `mapstructure:"VECTOR_INDEX_KEY"`

	// Report file storage
	MediaDir string `mapstructure:"MEDIA_DIR"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1")
	v.SetDefault("INGEST_MODEL", "mistralai/mistral-7b-instruct")
	v.SetDefault("CHAT_MODEL", "mistralai/mistral-7b-instruct")
	v.SetDefault("LAB_CHAT_MODEL", "google/gemma-3-27b-it:free")
	v.SetDefault("EMBED_DIM", 384)
	v.SetDefault("MEDIA_DIR", "media")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("DOCINTEL_ENDPOINT")
	v.BindEnv("DOCINTEL_KEY")
	v.BindEnv("OPENROUTER_BASE_URL")
	v.BindEnv("OPENROUTER_API_KEY")
	v.BindEnv("INGEST_MODEL")
	v.BindEnv("CHAT_MODEL")
	v.BindEnv("LAB_CHAT_MODEL")
	v.BindEnv("EMBED_URL")
	v.BindEnv("EMBED_DIM")
	v.BindEnv("VECTOR_INDEX_HOST")
	v.BindEnv("VECTOR_INDEX_KEY")
	v.BindEnv("MEDIA_DIR")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to run. Credentials for the
// external document-analysis, generation, embedding and vector-index services
// are checked by the respective client constructors so that a missing
// credential fails before any network call is attempted.
func (c *Config) Validate() error {
	if c.EmbedDim <= 0 {
		return fmt.Errorf("EMBED_DIM must be positive, got %d", c.EmbedDim)
	}
	if c.MediaDir == "" {
		return fmt.Errorf("MEDIA_DIR must not be empty")
	}
	return nil
}
