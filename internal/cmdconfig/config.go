// Package cmdconfig loads settings for the commands under cmd/ from an
// optional config file and ACCOUNTS_* environment variables.
package cmdconfig

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment key, so BASE_URL is read from
// ACCOUNTS_BASE_URL.
const EnvPrefix = "ACCOUNTS"

type Config struct {
	LogLevel string `mapstructure:"LOG_LEVEL"`
	BaseURL  string `mapstructure:"BASE_URL"`

	// Store selects the backend: mongo, redis or memory.
	Store         string `mapstructure:"STORE"`
	MongoURI      string `mapstructure:"MONGODB_URI"`
	MongoDatabase string `mapstructure:"MONGODB_DATABASE"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisPrefix   string `mapstructure:"REDIS_PREFIX"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUser     string `mapstructure:"SMTP_USER"`
	SMTPPass     string `mapstructure:"SMTP_PASS"`
	MailFrom     string `mapstructure:"MAIL_FROM"`
	SMTPMaxConns int    `mapstructure:"SMTP_MAX_CONNS"`

	JanitorInterval time.Duration `mapstructure:"JANITOR_INTERVAL"`
	JanitorTimeout  time.Duration `mapstructure:"JANITOR_TIMEOUT"`
	StoreTimeout    time.Duration `mapstructure:"STORE_TIMEOUT"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("BASE_URL", "")
	v.SetDefault("STORE", "mongo")
	v.SetDefault("MONGODB_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGODB_DATABASE", "accounts")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_PREFIX", "acct")
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASS", "")
	v.SetDefault("MAIL_FROM", "")
	v.SetDefault("SMTP_MAX_CONNS", 4)
	v.SetDefault("JANITOR_INTERVAL", time.Hour)
	v.SetDefault("JANITOR_TIMEOUT", time.Minute)
	v.SetDefault("STORE_TIMEOUT", 10*time.Second)
}

// Load reads path when it is not empty and overlays the environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))

	switch cfg.Store {
	case "mongo", "redis", "memory":
	default:
		return nil, fmt.Errorf("unknown STORE %q", cfg.Store)
	}
	return &cfg, nil
}
