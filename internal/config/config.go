// Package config содержит логику чтения конфигурации сервиса
// бонусных баллов.
package config

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса бонусных баллов.
type Config struct {
	RunAddress    string        `env:"RUN_ADDRESS"`
	ShopifySecret string        `env:"SHOPIFY_SECRET"`
	AccessToken   string        `env:"SHOPIFY_ACCESS_TOKEN"`
	ShopName      string        `env:"SHOP_NAME"`
	AuditLogPath  string        `env:"AUDIT_LOG_PATH"`
	RedisAddr     string        `env:"REDIS_ADDR"`
	DedupTTL      time.Duration `env:"DEDUP_TTL"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных
// окружения. Значения из окружения имеют приоритет.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envAuditLogPath := cfg.AuditLogPath

	flag.StringVar(&cfg.RunAddress, "a", "localhost:3000", "address and port for HTTP server")
	flag.StringVar(&cfg.AuditLogPath, "l", "webhook-log.txt", "path to the audit log file")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envAuditLogPath != "" {
		cfg.AuditLogPath = envAuditLogPath
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:3000"
	}
	if cfg.AuditLogPath == "" {
		cfg.AuditLogPath = "webhook-log.txt"
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = 24 * time.Hour
	}

	return cfg, nil
}

// Validate проверяет, что заданы обязательные учётные данные Shopify.
// Без них сервис не может ни проверять подписи, ни ходить в Admin API,
// поэтому отсутствие любого из них — ошибка запуска, а не запроса.
func (c *Config) Validate() error {
	var missing []string
	if c.ShopifySecret == "" {
		missing = append(missing, "SHOPIFY_SECRET")
	}
	if c.AccessToken == "" {
		missing = append(missing, "SHOPIFY_ACCESS_TOKEN")
	}
	if c.ShopName == "" {
		missing = append(missing, "SHOP_NAME")
	}

	if len(missing) > 0 {
		return errors.New("missing required configuration: " + strings.Join(missing, ", "))
	}
	return nil
}
