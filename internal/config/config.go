package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/smartfarm/advisor/internal/core"
	"github.com/smartfarm/advisor/internal/logx"
)

const maxLLMRetries = 5

// Config is the server process configuration, sourced from environment
// variables (and a local .env file when present).
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"development"`

	Server ServerConfig
	LLM    LLMConfig
}

type ServerConfig struct {
	Port               string        `envconfig:"PORT" default:"3001"`
	AllowedOrigins     []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	UploadMaxBytes     int64         `envconfig:"UPLOAD_MAX_BYTES" default:"10485760"`
	RateLimitPerMinute int           `envconfig:"AI_RATE_LIMIT_PER_MINUTE" default:"60"`
	ReadTimeout        time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout       time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"3m"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

type LLMConfig struct {
	Provider   string        `envconfig:"LLM_PROVIDER" default:"gemini"`
	Timeout    time.Duration `envconfig:"LLM_TIMEOUT" default:"30s"`
	MaxRetries int           `envconfig:"LLM_MAX_RETRIES" default:"2"`

	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	GoogleAPIKey string `envconfig:"GOOGLE_API_KEY"`
	GeminiModel  string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`

	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel   string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`
}

// Load reads .env (if any) and processes the environment into a Config.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logx.Warn().Err(err).Msg("could not load .env file")
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process environment config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func (c Config) Env() core.Environment {
	return core.ParseEnvironment(c.Environment)
}

// GeminiKey prefers GEMINI_API_KEY and falls back to GOOGLE_API_KEY.
func (c LLMConfig) GeminiKey() string {
	if c.GeminiAPIKey != "" {
		return c.GeminiAPIKey
	}
	return c.GoogleAPIKey
}

func (c *Config) normalize() {
	if c.LLM.MaxRetries < 0 {
		c.LLM.MaxRetries = 0
	}
	if c.LLM.MaxRetries > maxLLMRetries {
		c.LLM.MaxRetries = maxLLMRetries
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = 30 * time.Second
	}
	if c.Server.UploadMaxBytes <= 0 {
		c.Server.UploadMaxBytes = 10 << 20
	}
	if c.Server.RateLimitPerMinute < 0 {
		c.Server.RateLimitPerMinute = 0
	}
}
