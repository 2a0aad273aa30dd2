package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envPrefix is the prefix for environment variable overrides, e.g.
// PG_DATABASE__URL overrides database.url.
const envPrefix = "PG_"

// defaults are applied before the config file and environment are read.
var defaults = map[string]interface{}{
	"server.host":                "0.0.0.0",
	"server.port":                "8080",
	"server.metrics_port":        "9090",
	"server.read_timeout":        "10s",
	"server.read_header_timeout": "5s",
	"server.write_timeout":       "30s",
	"server.idle_timeout":        "120s",
	"server.shutdown_timeout":    "30s",
	"log.level":                  "info",
	"log.format":                 "json",
	"database.max_open_conns":    25,
	"database.max_idle_conns":    5,
	"database.conn_max_lifetime": "30m",
	"database.connect_timeout":   "30s",
	"database.connect_attempts":  5,
	"database.migrate":           true,
	"scheduler.tick":             "10s",
	"scheduler.workers":          10,
	"scheduler.batch_limit":      500,
	"probe.user_agent":           "pulsegarden-monitor/1.0",
	"probe.ssl_timeout":          "10s",
	"probe.max_body_kb":          512,
	"notifications.send_timeout": "15s",

	"notifications.email.smtp_port":     587,
	"notifications.telegram.rate_limit": 20.0,
}

// Load reads configuration from the given YAML file (optional) and the
// environment, validates it, and returns the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("set default %s: %w", key, err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// Double underscore separates nesting levels so keys that contain
	// underscores survive: PG_SERVER__METRICS_PORT -> server.metrics_port.
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration for invalid or missing values.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			fields := make([]string, 0, len(validationErrors))
			for _, fe := range validationErrors {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("validate config: %w", err)
	}

	if c.Scheduler.Tick < time.Second {
		return fmt.Errorf("invalid config: scheduler.tick must be at least 1s")
	}

	return nil
}
