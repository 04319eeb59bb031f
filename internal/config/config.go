package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds everything the server needs at startup.
type Config struct {
	AppPort        string
	Env            string
	LogLevel       string
	DatabaseDriver string
	DatabaseDSN    string
	JWTSecret      string
	BcryptCost     int
	UploadDir      string
	BaseURL        string
	CookieSecure   bool
	RabbitMQURL    string
	RedisURL       string
	ResendAPIKey   string
	MailFrom       string
}

// IsDevelopment reports whether the server runs with development defaults.
func (c Config) IsDevelopment() bool {
	return c.Env == "" || c.Env == "development"
}

// Load reads an optional .env file and then the process environment.
// DATABASE_DSN and JWT_SECRET are required.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromViper(viper.New())
}

// FromViper builds a Config from v, applying defaults and env bindings.
func FromViper(v *viper.Viper) (Config, error) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_DRIVER", "postgres")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("UPLOAD_DIR", "./uploads")
	v.SetDefault("BASE_URL", "http://localhost:8080")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("MAIL_FROM", "Katalog <no-reply@katalog.local>")
	v.AutomaticEnv()
	// DB_URL is the name older deployments use for the connection string.
	if err := v.BindEnv("DATABASE_DSN", "DATABASE_DSN", "DB_URL"); err != nil {
		return Config{}, fmt.Errorf("failed to bind DATABASE_DSN: %w", err)
	}

	cfg := Config{
		AppPort:        v.GetString("APP_PORT"),
		Env:            strings.ToLower(v.GetString("APP_ENV")),
		LogLevel:       v.GetString("LOG_LEVEL"),
		DatabaseDriver: strings.ToLower(v.GetString("DATABASE_DRIVER")),
		DatabaseDSN:    v.GetString("DATABASE_DSN"),
		JWTSecret:      v.GetString("JWT_SECRET"),
		BcryptCost:     v.GetInt("BCRYPT_COST"),
		UploadDir:      v.GetString("UPLOAD_DIR"),
		BaseURL:        strings.TrimRight(v.GetString("BASE_URL"), "/"),
		CookieSecure:   v.GetBool("COOKIE_SECURE"),
		RabbitMQURL:    v.GetString("RABBITMQ_URL"),
		RedisURL:       v.GetString("REDIS_URL"),
		ResendAPIKey:   v.GetString("RESEND_API_KEY"),
		MailFrom:       v.GetString("MAIL_FROM"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks required settings.
func (c Config) Validate() error {
	var missing []string
	if c.DatabaseDSN == "" {
		missing = append(missing, "DATABASE_DSN")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	return nil
}
