// Package config загружает конфигурацию deck из переменных окружения.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/shaiso/Deck/internal/source"
)

// Источники manifest.
const (
	ManifestSourceFile     = "file"
	ManifestSourcePostgres = "postgres"
)

// Deck — параметры runtime.
type Deck struct {
	Mode string `env:"MODE, default=mock"`

	// Manifest и Fixtures — пути к файлам. Пустые — встроенный api2pdf deck.
	Manifest string `env:"MANIFEST"`
	Fixtures string `env:"FIXTURES"`

	// ManifestSource — откуда брать manifest: file или postgres.
	ManifestSource string `env:"MANIFEST_SOURCE, default=file"`

	// Name — имя deck в Postgres.
	Name string `env:"NAME"`

	MockLatency time.Duration `env:"MOCK_LATENCY, default=750ms"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT, default=0s"`

	APIAddr string `env:"API_ADDR, default=:8080"`
}

// Config — конфигурация deck-api.
type Config struct {
	Deck Deck `env:",prefix=DECK_"`

	DatabaseURL string `env:"DB_URL"`
	RabbitMQURL string `env:"RABBITMQ_URL"`

	LogLevel  string `env:"LOG_LEVEL, default=INFO"`
	LogFormat string `env:"LOG_FORMAT, default=json"`
}

// SourceMode возвращает режим источника ответов.
func (c *Config) SourceMode() (source.Mode, error) {
	return source.ParseMode(c.Deck.Mode)
}

// Load читает конфигурацию из окружения процесса.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith читает конфигурацию через указанный lookuper.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	})
	if err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if _, err := c.SourceMode(); err != nil {
		return err
	}

	switch c.Deck.ManifestSource {
	case ManifestSourceFile:
	case ManifestSourcePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DB_URL is required for manifest source %q", c.Deck.ManifestSource)
		}
		if c.Deck.Name == "" {
			return fmt.Errorf("DECK_NAME is required for manifest source %q", c.Deck.ManifestSource)
		}
	default:
		return fmt.Errorf("unknown manifest source %q", c.Deck.ManifestSource)
	}

	if c.Deck.MockLatency < 0 || c.Deck.HTTPTimeout < 0 {
		return fmt.Errorf("durations must not be negative")
	}

	return nil
}
