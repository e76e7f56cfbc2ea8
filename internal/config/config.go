package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Provider  ProviderConfig
	Poll      PollConfig
	R2        R2Config
}

type ServerConfig struct {
	Port      string
	Env       string
	LogLevel  string
	ApiDomain string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	AnalyzePerMin  int
	ProducePerHour int
	MixdownPerHour int
	EmailPerHour   int
}

// ProviderConfig points at the hosted-function provider that runs structure
// analysis, vocal cleanup, mixing, and song generation.
type ProviderConfig struct {
	BaseURL    string
	ServiceKey string
	Timeout    int // seconds
}

// PollConfig bounds every external-job poll loop: one attempt every
// IntervalSeconds, at most MaxAttempts attempts.
type PollConfig struct {
	IntervalSeconds int
	MaxAttempts     int
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("JWT_SECRET")
	readSecret("PROVIDER_SERVICE_KEY")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("server.api_domain", "API_DOMAIN")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	_ = viper.BindEnv("provider.base_url", "PROVIDER_BASE_URL")
	_ = viper.BindEnv("provider.service_key", "PROVIDER_SERVICE_KEY")
	_ = viper.BindEnv("provider.timeout", "PROVIDER_TIMEOUT")
	_ = viper.BindEnv("poll.interval_seconds", "POLL_INTERVAL_SECONDS")
	_ = viper.BindEnv("poll.max_attempts", "POLL_MAX_ATTEMPTS")
	_ = viper.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = viper.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = viper.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = viper.BindEnv("r2.public_url", "R2_PUBLIC_URL")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("ratelimit.analyze_per_min", 10)
	viper.SetDefault("ratelimit.produce_per_hour", 10)
	viper.SetDefault("ratelimit.mixdown_per_hour", 20)
	viper.SetDefault("ratelimit.email_per_hour", 10)

	// Provider defaults
	viper.SetDefault("provider.timeout", 120)

	// Poll defaults: 5s × 120 attempts = 10 minutes worst case per stage
	viper.SetDefault("poll.interval_seconds", 5)
	viper.SetDefault("poll.max_attempts", 120)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:      viper.GetString("server.port"),
			Env:       viper.GetString("server.env"),
			LogLevel:  viper.GetString("server.log_level"),
			ApiDomain: viper.GetString("server.api_domain"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		RateLimit: RateLimitConfig{
			AnalyzePerMin:  viper.GetInt("ratelimit.analyze_per_min"),
			ProducePerHour: viper.GetInt("ratelimit.produce_per_hour"),
			MixdownPerHour: viper.GetInt("ratelimit.mixdown_per_hour"),
			EmailPerHour:   viper.GetInt("ratelimit.email_per_hour"),
		},
		Provider: ProviderConfig{
			BaseURL:    viper.GetString("provider.base_url"),
			ServiceKey: viper.GetString("provider.service_key"),
			Timeout:    viper.GetInt("provider.timeout"),
		},
		Poll: PollConfig{
			IntervalSeconds: viper.GetInt("poll.interval_seconds"),
			MaxAttempts:     viper.GetInt("poll.max_attempts"),
		},
		R2: R2Config{
			AccountID:       viper.GetString("r2.account_id"),
			AccessKeyID:     viper.GetString("r2.access_key_id"),
			SecretAccessKey: viper.GetString("r2.secret_access_key"),
			BucketName:      viper.GetString("r2.bucket_name"),
			PublicURL:       viper.GetString("r2.public_url"),
		},
	}

	return cfg, nil
}
