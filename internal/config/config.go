// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"newsletter/internal/secret"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the service.
type Config struct {
	Application ApplicationConfig `envPrefix:"APP_"`
	Database    DatabaseConfig    `envPrefix:"DATABASE_"`
	Redis       RedisConfig       `envPrefix:"REDIS_"`
	EmailClient EmailClientConfig `envPrefix:"EMAIL_CLIENT_"`
	Telemetry   TelemetryConfig   `envPrefix:"OTEL_"`
}

type ApplicationConfig struct {
	Port            int           `env:"PORT" envDefault:"8000"`
	BaseURL         string        `env:"BASE_URL" envDefault:"http://127.0.0.1:8000"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"json"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	// Subscription requests allowed per minute, with the same burst.
	SubscribeRatePerMinute int `env:"SUBSCRIBE_RATE_PER_MINUTE" envDefault:"60"`
	// Comma separated browser origins allowed to call the API.
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
}

type DatabaseConfig struct {
	Host            string        `env:"HOST" envDefault:"localhost"`
	Port            int           `env:"PORT" envDefault:"5432"`
	Username        string        `env:"USER" envDefault:"postgres"`
	Password        secret.String `env:"PASSWORD"`
	Name            string        `env:"NAME" envDefault:"newsletter"`
	SSLMode         string        `env:"SSLMODE" envDefault:"disable"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"30m"`
	MigrateOnStart  bool          `env:"MIGRATE_ON_START" envDefault:"false"`
}

type RedisConfig struct {
	Addr     string        `env:"ADDR" envDefault:"localhost:6379"`
	Password secret.String `env:"PASSWORD"`
	DB       int           `env:"DB" envDefault:"0"`
	TokenTTL time.Duration `env:"TOKEN_TTL" envDefault:"72h"`
}

type EmailClientConfig struct {
	BaseURL            string        `env:"BASE_URL,required"`
	SenderEmail        string        `env:"SENDER_EMAIL,required"`
	AuthorizationToken secret.String `env:"AUTHORIZATION_TOKEN,required"`
	Timeout            time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

type TelemetryConfig struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"newsletter"`
	Endpoint    string `env:"EXPORTER_OTLP_ENDPOINT"`
	Insecure    bool   `env:"EXPORTER_OTLP_INSECURE" envDefault:"true"`
}

// Load reads the optional .env files and then the environment.
// A missing default .env file is not an error.
func Load(files ...string) (*Config, error) {
	if err := loadEnvFiles(files); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDatabase reads only the DATABASE_ group, for tools that need nothing
// else.
func LoadDatabase(files ...string) (*DatabaseConfig, error) {
	if err := loadEnvFiles(files); err != nil {
		return nil, err
	}

	cfg := &DatabaseConfig{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "DATABASE_"}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		_ = godotenv.Load()
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	var errs []error
	if c.Application.Port <= 0 || c.Application.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT out of range: %d", c.Application.Port))
	}
	if _, err := url.ParseRequestURI(c.Application.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("APP_BASE_URL: %w", err))
	}
	if c.Application.SubscribeRatePerMinute <= 0 {
		errs = append(errs, errors.New("APP_SUBSCRIBE_RATE_PER_MINUTE must be positive"))
	}
	if _, err := url.ParseRequestURI(c.EmailClient.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("EMAIL_CLIENT_BASE_URL: %w", err))
	}
	if c.EmailClient.AuthorizationToken.IsEmpty() {
		errs = append(errs, errors.New("EMAIL_CLIENT_AUTHORIZATION_TOKEN must not be empty"))
	}
	if c.EmailClient.Timeout <= 0 {
		errs = append(errs, errors.New("EMAIL_CLIENT_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

// ConnectionString returns the lib/pq connection URL.
func (d DatabaseConfig) ConnectionString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.Username, d.Password.Expose()),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}
