package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Booking   BookingConfig
	Reclaimer ReclaimerConfig
	Catalog   CatalogConfig
	Kafka     KafkaConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ServiceToken string
}

type PostgresConfig struct {
	User           string
	Password       string
	Name           string
	Host           string
	Port           int
	SSLMode        string
	MaxConns       int32
	MigrateOnStart bool
}

// RedisConfig is optional: with an empty Addr the service runs without
// cache, pub/sub, rate limiting and idempotency keys.
type RedisConfig struct {
	Addr               string
	Password           string
	DB                 int
	RateLimitPerMinute int
}

type BookingConfig struct {
	HoldDuration time.Duration
	StoreTimeout time.Duration
}

type ReclaimerConfig struct {
	Interval      time.Duration
	PurgeInterval time.Duration
	Retention     time.Duration
}

type CatalogConfig struct {
	URL     string
	Timeout time.Duration
}

// KafkaConfig is optional: with no brokers lifecycle events are not published.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type LogConfig struct {
	Level  string
	Format string
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	var (
		cfg Config
		err error
	)

	cfg.Server.Host = getEnv("SERVER_HOST", "localhost")
	if cfg.Server.Port, err = getInt("SERVER_PORT", 8080); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	cfg.Server.ServiceToken = os.Getenv("SERVICE_TOKEN")

	cfg.Postgres.Host = getEnv("POSTGRES_HOST", "localhost")
	if cfg.Postgres.Port, err = getInt("POSTGRES_PORT", 5432); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for _, req := range []struct {
		name string
		dst  *string
	}{
		{"POSTGRES_USER", &cfg.Postgres.User},
		{"POSTGRES_PASSWORD", &cfg.Postgres.Password},
		{"POSTGRES_DB", &cfg.Postgres.Name},
	} {
		if *req.dst = os.Getenv(req.name); *req.dst == "" {
			return nil, fmt.Errorf("%s: missing %s", op, req.name)
		}
	}
	cfg.Postgres.SSLMode = getEnv("POSTGRES_SSLMODE", "disable")
	maxConns, err := getInt("POSTGRES_MAX_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	cfg.Postgres.MaxConns = int32(maxConns)
	if cfg.Postgres.MigrateOnStart, err = getBool("MIGRATE_ON_START", false); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cfg.Redis.Addr = os.Getenv("REDIS_ADDR")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	if cfg.Redis.DB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cfg.Redis.RateLimitPerMinute, err = getInt("RATE_LIMIT_PER_MINUTE", 10); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	durations := []struct {
		name string
		def  time.Duration
		dst  *time.Duration
	}{
		{"BOOKING_HOLD_DURATION", 10 * time.Minute, &cfg.Booking.HoldDuration},
		{"STORE_TIMEOUT", 5 * time.Second, &cfg.Booking.StoreTimeout},
		{"RECLAIM_INTERVAL", time.Minute, &cfg.Reclaimer.Interval},
		{"PURGE_INTERVAL", time.Hour, &cfg.Reclaimer.PurgeInterval},
		{"EXPIRED_RETENTION", 24 * time.Hour, &cfg.Reclaimer.Retention},
		{"CATALOG_TIMEOUT", 5 * time.Second, &cfg.Catalog.Timeout},
	}
	for _, d := range durations {
		if *d.dst, err = getDuration(d.name, d.def); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	cfg.Catalog.URL = strings.TrimRight(getEnv("CATALOG_URL", "http://localhost:8081"), "/")

	for _, b := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			cfg.Kafka.Brokers = append(cfg.Kafka.Brokers, b)
		}
	}
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", "booking-events")

	cfg.Log.Level = strings.ToLower(getEnv("LOG_LEVEL", "info"))
	cfg.Log.Format = strings.ToLower(getEnv("LOG_FORMAT", "text"))

	return &cfg, nil
}

func getEnv(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func getInt(name string, def int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}

func getBool(name string, def bool) (bool, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}

// getDuration accepts Go durations ("90s", "10m") and bare integers as seconds.
func getDuration(name string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(s); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", name, s)
	}
	return d, nil
}
