// Package config provides application configuration loading and validation.
package config

import "time"

// Config is the root application configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Log           LogConfig           `koanf:"log"`
	Database      DatabaseConfig      `koanf:"database"`
	Scheduler     SchedulerConfig     `koanf:"scheduler"`
	Probe         ProbeConfig         `koanf:"probe"`
	Notifications NotificationsConfig `koanf:"notifications"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port" validate:"required"`
	MetricsPort       string        `koanf:"metrics_port" validate:"required"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
}

// LogConfig contains logging configuration.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// DatabaseConfig contains PostgreSQL connection configuration.
type DatabaseConfig struct {
	URL             string        `koanf:"url" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"min=1"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	ConnectAttempts int           `koanf:"connect_attempts" validate:"min=1"`
	Migrate         bool          `koanf:"migrate"`
}

// SchedulerConfig contains check scheduling configuration.
type SchedulerConfig struct {
	Tick       time.Duration `koanf:"tick" validate:"required"`
	Workers    int           `koanf:"workers" validate:"min=1"`
	BatchLimit int           `koanf:"batch_limit" validate:"min=1"`
}

// ProbeConfig contains probe executor configuration.
type ProbeConfig struct {
	UserAgent  string        `koanf:"user_agent"`
	SSLTimeout time.Duration `koanf:"ssl_timeout" validate:"required"`
	MaxBodyKB  int           `koanf:"max_body_kb" validate:"min=1"`
}

// NotificationsConfig contains alert dispatch configuration.
type NotificationsConfig struct {
	SendTimeout time.Duration  `koanf:"send_timeout" validate:"required"`
	Email       EmailConfig    `koanf:"email"`
	Telegram    TelegramConfig `koanf:"telegram"`
	WhatsApp    WhatsAppConfig `koanf:"whatsapp"`
}

// EmailConfig contains SMTP sender configuration.
type EmailConfig struct {
	Enabled      bool   `koanf:"enabled"`
	SMTPHost     string `koanf:"smtp_host"`
	SMTPPort     int    `koanf:"smtp_port"`
	SMTPUser     string `koanf:"smtp_user"`
	SMTPPassword string `koanf:"smtp_password"`
	FromAddress  string `koanf:"from_address"`
}

// TelegramConfig contains telegram bot sender configuration.
type TelegramConfig struct {
	Enabled   bool    `koanf:"enabled"`
	BotToken  string  `koanf:"bot_token"`
	RateLimit float64 `koanf:"rate_limit"`
}

// WhatsAppConfig contains whatsapp gateway sender configuration.
type WhatsAppConfig struct {
	Enabled bool   `koanf:"enabled"`
	APIURL  string `koanf:"api_url"`
	APIKey  string `koanf:"api_key"`
}
