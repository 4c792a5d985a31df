package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/smartfarm/advisor/internal/offline"
)

// ClientConfig configures the CLI: where the API lives and where the
// offline queue is kept between runs.
type ClientConfig struct {
	Environment string        `envconfig:"APP_ENV" default:"development"`
	BaseURL     string        `envconfig:"SMARTFARM_BASE_URL" default:"http://localhost:3001"`
	Timeout     time.Duration `envconfig:"SMARTFARM_TIMEOUT" default:"60s"`
	Output      string        `envconfig:"SMARTFARM_OUTPUT" default:"human"`

	Queue QueueConfig
}

type QueueConfig struct {
	File        string        `envconfig:"SMARTFARM_QUEUE_FILE"`
	RedisURL    string        `envconfig:"SMARTFARM_QUEUE_REDIS_URL"`
	RedisKey    string        `envconfig:"SMARTFARM_QUEUE_REDIS_KEY" default:"smartfarm-offline-queue"`
	MaxAttempts int           `envconfig:"SMARTFARM_QUEUE_MAX_ATTEMPTS" default:"0"`
	BaseDelay   time.Duration `envconfig:"SMARTFARM_QUEUE_BASE_DELAY" default:"0s"`
	MaxDelay    time.Duration `envconfig:"SMARTFARM_QUEUE_MAX_DELAY" default:"0s"`
	Concurrency int           `envconfig:"SMARTFARM_QUEUE_CONCURRENCY" default:"4"`
}

// LoadClient processes the environment into a ClientConfig. An unset queue
// file resolves to offline-queue.json under the user config directory.
func LoadClient() (ClientConfig, error) {
	var cfg ClientConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return ClientConfig{}, fmt.Errorf("process client config: %w", err)
	}
	if cfg.Queue.File == "" {
		cfg.Queue.File = defaultQueueFile()
	}
	if cfg.Queue.MaxAttempts < 0 {
		cfg.Queue.MaxAttempts = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return cfg, nil
}

func (q QueueConfig) RetryPolicy() offline.RetryPolicy {
	return offline.RetryPolicy{
		MaxAttempts: q.MaxAttempts,
		BaseDelay:   q.BaseDelay,
		MaxDelay:    q.MaxDelay,
	}
}

func defaultQueueFile() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "smartfarm", "offline-queue.json")
}
