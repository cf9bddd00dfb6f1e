package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"local"`
	PostgresDSN string `env:"POSTGRES_DSN,required"`
	BotToken    string `env:"BOT_TOKEN,required"`
	BotName     string `env:"BOT_NAME"`

	APIBaseURL  string        `env:"API_BASE_URL" envDefault:"https://api.telegram.org"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`
	SendRateRPS float64       `env:"SEND_RATE_RPS" envDefault:"1"`

	PollInterval     time.Duration `env:"POLL_INTERVAL" envDefault:"2s"`
	DownloadInterval time.Duration `env:"DOWNLOAD_INTERVAL" envDefault:"1s"`

	FilesDir       string `env:"FILES_DIR" envDefault:"./files"`
	StickerSetsDir string `env:"STICKER_SETS_DIR" envDefault:"./sticker_sets"`

	HealthPort    int           `env:"HEALTH_PORT" envDefault:"8080"`
	ShutdownGrace time.Duration `env:"SHUTDOWN_GRACE" envDefault:"30s"`

	DBMaxConnections    int32         `env:"DB_MAX_CONNECTIONS" envDefault:"4"`
	DBMinConnections    int32         `env:"DB_MIN_CONNECTIONS" envDefault:"1"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	return cfg, nil
}
