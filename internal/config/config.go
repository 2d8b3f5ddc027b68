package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values for the client and the sandbox.
type Config struct {
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Backend.
	APIURL     string        `mapstructure:"API_URL"`
	APITimeout time.Duration `mapstructure:"API_TIMEOUT"`
	LiveURL    string        `mapstructure:"LIVE_URL"`

	// Session storage: "file" or "redis".
	SessionStore    string `mapstructure:"SESSION_STORE"`
	SessionFile     string `mapstructure:"SESSION_FILE"`
	RedisAddr       string `mapstructure:"REDIS_ADDR"`
	RedisPassword   string `mapstructure:"REDIS_PASSWORD"`
	RedisDB         int    `mapstructure:"REDIS_DB"`
	RedisSessionKey string `mapstructure:"REDIS_SESSION_KEY"`

	// Sandbox backend.
	Port              string   `mapstructure:"PORT"`
	DatabaseURL       string   `mapstructure:"DATABASE_URL"`
	KafkaBrokers      []string `mapstructure:"KAFKA_BROKERS"`
	JWTSecret         string   `mapstructure:"JWT_SECRET"`
	StripeKey         string   `mapstructure:"STRIPE_KEY"`
	PaymentSuccessURL string   `mapstructure:"PAYMENT_SUCCESS_URL"`
	PaymentCancelURL  string   `mapstructure:"PAYMENT_CANCEL_URL"`
}

// IsProduction reports whether ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Load reads config.yaml from the current directory or ./config (plus any
// extra paths), then lets environment variables override it.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.AutomaticEnv()

	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("API_URL", "http://localhost:8080/api")
	v.SetDefault("API_TIMEOUT", 20*time.Second)
	v.SetDefault("LIVE_URL", "ws://localhost:8080/ws")
	v.SetDefault("SESSION_STORE", "file")
	v.SetDefault("SESSION_FILE", defaultSessionFile())
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_SESSION_KEY", "permisconnect:session")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("STRIPE_KEY", "")
	v.SetDefault("PAYMENT_SUCCESS_URL", "http://localhost:8080/payments/success")
	v.SetDefault("PAYMENT_CANCEL_URL", "http://localhost:8080/payments/cancel")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.KafkaBrokers = splitList(cfg.KafkaBrokers)
	return &cfg, nil
}

// env values arrive as one comma separated string
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "session.json"
	}
	return filepath.Join(home, ".permisconnect", "session.json")
}
