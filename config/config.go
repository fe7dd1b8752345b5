package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const devJWTSecret = "dev_secret_change_me"

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Cart     CartConfig
	Kafka    KafkaConfig
	Log      LogConfig
	Feeds    FeedConfig
}

type ServerConfig struct {
	Port            string
	Mode            string
	CORSOrigins     []string
	UseHTTPS        bool
	TLSCertFile     string
	TLSKeyFile      string
	RequestTimeout  time.Duration
	RateLimitMax    int
	RateLimitWindow time.Duration
}

type DatabaseConfig struct {
	URL string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	// DevSecret is true when JWT_SECRET was not set and the built-in secret is used.
	DevSecret bool
}

type CartConfig struct {
	Secret    string
	TokenTTL  time.Duration
	TokenName string
}

type KafkaConfig struct {
	Brokers        []string
	TopicPurchases string
}

type LogConfig struct {
	Level string
	File  string
}

type FeedConfig struct {
	CacheTTL time.Duration
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present.
func Load() *Config {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	devSecret := jwtSecret == ""
	if devSecret {
		jwtSecret = devJWTSecret
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Mode:            getEnv("GIN_MODE", "debug"),
			CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
			UseHTTPS:        getEnv("USE_HTTPS", "false") == "true",
			TLSCertFile:     getEnv("TLS_CERT_FILE", ""),
			TLSKeyFile:      getEnv("TLS_KEY_FILE", ""),
			RequestTimeout:  getDuration("REQUEST_TIMEOUT", 10*time.Second),
			RateLimitMax:    getInt("RATE_LIMIT_MAX", 30),
			RateLimitWindow: getDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", "host=localhost port=5432 user=postgres dbname=gamestore password=postgres sslmode=disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_URL", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			JWTSecret: jwtSecret,
			TokenTTL:  getDuration("JWT_TTL", 5*time.Hour),
			DevSecret: devSecret,
		},
		Cart: CartConfig{
			Secret:    getEnv("CART_SECRET", jwtSecret),
			TokenTTL:  getDuration("CART_TOKEN_TTL", 30*24*time.Hour),
			TokenName: getEnv("CART_TOKEN_NAME", "cart_items"),
		},
		Kafka: KafkaConfig{
			Brokers:        splitList(getEnv("KAFKA_BROKERS", "")),
			TopicPurchases: getEnv("KAFKA_TOPIC_PURCHASES", "purchase-events"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", "logs/app.log"),
		},
		Feeds: FeedConfig{
			CacheTTL: getDuration("FEED_CACHE_TTL", time.Minute),
		},
	}

	return cfg
}

// IsRelease reports whether gin runs in release mode.
func (c *Config) IsRelease() bool {
	return c.Server.Mode == "release"
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return v
}

// getDuration accepts Go durations ("90s", "5h") or a plain number of seconds.
func getDuration(key string, defaultVal time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
