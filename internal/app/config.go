package app

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/secretsanta-backend/internal/data/db"
	"github.com/yungbote/secretsanta-backend/internal/modules/draw"
	"github.com/yungbote/secretsanta-backend/internal/observability"
	"github.com/yungbote/secretsanta-backend/internal/platform/contentcheck"
	"github.com/yungbote/secretsanta-backend/internal/platform/envutil"
)

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Channel  string        `yaml:"channel"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
}

type DrawConfig struct {
	AttemptBudget int `yaml:"attempt_budget"`
}

type ChatConfig struct {
	MaxMessageRunes int `yaml:"max_message_runes"`
}

type Config struct {
	Env             string        `yaml:"env"`
	HTTPAddr        string        `yaml:"http_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	DB              db.Config     `yaml:"db"`
	JWTSecretKey    string        `yaml:"jwt_secret_key"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	// EncryptionKey is base64 of 32 bytes. It seals chat content at rest and
	// seeds santa pseudonyms.
	EncryptionKey string                      `yaml:"encryption_key"`
	Redis         RedisConfig                 `yaml:"redis"`
	Draw          DrawConfig                  `yaml:"draw"`
	Chat          ChatConfig                  `yaml:"chat"`
	OTel          observability.OtelConfig    `yaml:"otel"`
	Metrics       observability.MetricsConfig `yaml:"metrics"`

	sealKey []byte
}

func defaultConfig() Config {
	return Config{
		Env:             "development",
		HTTPAddr:        ":8080",
		ShutdownTimeout: 15 * time.Second,
		DB: db.Config{
			Driver:  db.DriverPostgres,
			Host:    "localhost",
			Port:    "5432",
			User:    "postgres",
			Name:    "secretsanta",
			SSLMode: "disable",
		},
		JWTSecretKey:   "defaultsecret",
		AccessTokenTTL: time.Hour,
		Redis: RedisConfig{
			Channel: "secretsanta:relay",
			LockTTL: 30 * time.Second,
		},
		Draw: DrawConfig{AttemptBudget: draw.DefaultAttemptBudget},
		Chat: ChatConfig{MaxMessageRunes: contentcheck.DefaultMaxRunes},
		OTel: observability.OtelConfig{
			ServiceName: "secretsanta-backend",
			SampleRatio: 1,
		},
		Metrics: observability.MetricsConfig{ScrapeInterval: 15 * time.Second},
	}
}

// LoadConfig layers defaults, the optional YAML file named by
// SANTA_CONFIG_PATH and then environment variables.
func LoadConfig() (Config, error) {
	cfg := defaultConfig()
	if path := envutil.String("SANTA_CONFIG_PATH", ""); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Env = envutil.String("APP_ENV", cfg.Env)
	cfg.HTTPAddr = envutil.String("HTTP_ADDR", cfg.HTTPAddr)
	if port := envutil.String("PORT", ""); port != "" {
		cfg.HTTPAddr = ":" + port
	}
	cfg.ShutdownTimeout = envutil.Duration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)

	cfg.DB.Driver = envutil.String("DB_DRIVER", cfg.DB.Driver)
	cfg.DB.Host = envutil.String("POSTGRES_HOST", cfg.DB.Host)
	cfg.DB.Port = envutil.String("POSTGRES_PORT", cfg.DB.Port)
	cfg.DB.User = envutil.String("POSTGRES_USER", cfg.DB.User)
	cfg.DB.Password = envutil.String("POSTGRES_PASSWORD", cfg.DB.Password)
	cfg.DB.Name = envutil.String("POSTGRES_NAME", cfg.DB.Name)
	cfg.DB.SSLMode = envutil.String("POSTGRES_SSLMODE", cfg.DB.SSLMode)
	cfg.DB.SQLitePath = envutil.String("SQLITE_PATH", cfg.DB.SQLitePath)

	cfg.JWTSecretKey = envutil.String("JWT_SECRET_KEY", cfg.JWTSecretKey)
	cfg.AccessTokenTTL = envutil.Duration("ACCESS_TOKEN_TTL", cfg.AccessTokenTTL)
	cfg.CORSOrigins = envutil.List("CORS_ORIGINS", cfg.CORSOrigins)
	cfg.EncryptionKey = envutil.String("SANTA_ENCRYPTION_KEY", cfg.EncryptionKey)

	cfg.Redis.Addr = envutil.String("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = envutil.String("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = envutil.Int("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.Channel = envutil.String("REDIS_CHANNEL", cfg.Redis.Channel)
	cfg.Redis.LockTTL = envutil.Duration("REDIS_LOCK_TTL", cfg.Redis.LockTTL)

	cfg.Draw.AttemptBudget = envutil.Int("DRAW_ATTEMPT_BUDGET", cfg.Draw.AttemptBudget)
	cfg.Chat.MaxMessageRunes = envutil.Int("CHAT_MAX_MESSAGE_RUNES", cfg.Chat.MaxMessageRunes)

	cfg.OTel.Enabled = envutil.Bool("OTEL_ENABLED", cfg.OTel.Enabled)
	cfg.OTel.ServiceName = envutil.String("OTEL_SERVICE_NAME", cfg.OTel.ServiceName)
	cfg.OTel.Endpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTel.Endpoint)
	cfg.OTel.Exporter = envutil.String("OTEL_EXPORTER", cfg.OTel.Exporter)
	cfg.OTel.Insecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", cfg.OTel.Insecure)
	cfg.OTel.SampleRatio = envutil.Float("OTEL_SAMPLE_RATIO", cfg.OTel.SampleRatio)
	cfg.OTel.Version = envutil.String("APP_VERSION", cfg.OTel.Version)
	if raw := envutil.String("OTEL_EXPORTER_OTLP_HEADERS", ""); raw != "" {
		cfg.OTel.Headers = observability.ParseHeaders(raw)
	}
	cfg.OTel.Environment = cfg.Env

	cfg.Metrics.Enabled = envutil.Bool("METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Metrics.ScrapeInterval = envutil.Duration("METRICS_SCRAPE_INTERVAL", cfg.Metrics.ScrapeInterval)
}

func (c *Config) validate() error {
	var errs []error
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(c.EncryptionKey))
	switch {
	case c.EncryptionKey == "":
		errs = append(errs, errors.New("SANTA_ENCRYPTION_KEY is required"))
	case err != nil:
		errs = append(errs, fmt.Errorf("encryption key: %w", err))
	case len(key) != 32:
		errs = append(errs, fmt.Errorf("encryption key must decode to 32 bytes, got %d", len(key)))
	default:
		c.sealKey = key
	}
	if c.Draw.AttemptBudget < 1 {
		errs = append(errs, fmt.Errorf("draw attempt budget must be >= 1, got %d", c.Draw.AttemptBudget))
	}
	if c.Chat.MaxMessageRunes < 1 {
		errs = append(errs, fmt.Errorf("chat max message runes must be >= 1, got %d", c.Chat.MaxMessageRunes))
	}
	if c.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("access token ttl must be positive"))
	}
	if isProduction(c.Env) && c.JWTSecretKey == defaultConfig().JWTSecretKey {
		errs = append(errs, errors.New("JWT_SECRET_KEY must be set in production"))
	}
	return errors.Join(errs...)
}

// SealKey is the decoded EncryptionKey; valid after LoadConfig.
func (c Config) SealKey() []byte { return c.sealKey }

func isProduction(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "prod", "production":
		return true
	}
	return false
}
