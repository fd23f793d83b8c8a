package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	strutil "auditflow/pkg/platform/strings"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the full application configuration assembled at startup.
type Config struct {
	Server   Server
	Log      Log
	Database Database
	Redis    RedisConfig
	Session  Session
	Security Security
	Kafka    Kafka
	Seed     bool
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	Env            string
	RequestTimeout time.Duration
	BodyLimit      int64
	MetricsEnabled bool
}

// Production reports whether the server runs under the production flag.
func (s Server) Production() bool {
	return s.Env == EnvProduction
}

type Log struct {
	Level string
	JSON  bool
}

type Database struct {
	Driver string
	URL    string
}

// RedisConfig is empty when sessions are kept in process memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Session struct {
	TTL        time.Duration
	CookieName string
	Secure     bool
}

type Security struct {
	BcryptCost int
}

type Kafka struct {
	Brokers     []string
	NotifyTopic string
}

// Load reads optional .env files and then the process environment.
// Variables already set in the environment win over file values.
func Load() (Config, error) {
	env := getenv("APP_ENV", EnvDevelopment)
	// Later files only fill keys the earlier ones left unset.
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env." + env)
	_ = godotenv.Load(".env")
	return FromEnv()
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	var errs []string
	fail := func(key string, err error) {
		errs = append(errs, fmt.Sprintf("%s: %v", key, err))
	}

	env := getenv("APP_ENV", EnvDevelopment)
	if env != EnvDevelopment && env != EnvProduction {
		fail("APP_ENV", fmt.Errorf("must be %q or %q, got %q", EnvDevelopment, EnvProduction, env))
	}

	cfg := Config{
		Server: Server{
			Addr: getenv("APP_ADDR", ":3000"),
			Env:  env,
		},
		Log: Log{
			Level: strings.ToLower(getenv("LOG_LEVEL", "info")),
			JSON:  env == EnvProduction,
		},
		Database: Database{
			Driver: strings.ToLower(getenv("DATABASE_DRIVER", DriverSQLite)),
			URL:    getenv("DATABASE_URL", "data/audit_system.db"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Session: Session{
			CookieName: getenv("SESSION_COOKIE_NAME", "audit_session"),
			Secure:     env == EnvProduction,
		},
		Kafka: Kafka{
			Brokers:     strutil.SplitList(os.Getenv("KAFKA_BROKERS"), ","),
			NotifyTopic: getenv("KAFKA_NOTIFY_TOPIC", "audit.notifications"),
		},
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		fail("LOG_LEVEL", fmt.Errorf("unknown level %q", cfg.Log.Level))
	}

	switch cfg.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		fail("DATABASE_DRIVER", fmt.Errorf("unsupported driver %q", cfg.Database.Driver))
	}

	var err error
	if cfg.Session.TTL, err = durationEnv("SESSION_TTL", 24*time.Hour); err != nil {
		fail("SESSION_TTL", err)
	}
	if cfg.Server.RequestTimeout, err = durationEnv("REQUEST_TIMEOUT", 30*time.Second); err != nil {
		fail("REQUEST_TIMEOUT", err)
	}
	limit, err := intEnv("REQUEST_BODY_LIMIT", 10*1024)
	if err != nil || limit <= 0 {
		fail("REQUEST_BODY_LIMIT", fmt.Errorf("must be a positive byte count"))
	}
	cfg.Server.BodyLimit = int64(limit)

	if cfg.Security.BcryptCost, err = intEnv("BCRYPT_COST", bcrypt.DefaultCost); err != nil {
		fail("BCRYPT_COST", err)
	} else if cfg.Security.BcryptCost < bcrypt.MinCost || cfg.Security.BcryptCost > bcrypt.MaxCost {
		fail("BCRYPT_COST", fmt.Errorf("must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}

	if cfg.Seed, err = boolEnv("SEED_DEFAULT_USERS", false); err != nil {
		fail("SEED_DEFAULT_USERS", err)
	}
	if cfg.Server.MetricsEnabled, err = boolEnv("METRICS_ENABLED", true); err != nil {
		fail("METRICS_ENABLED", err)
	}

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive")
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func boolEnv(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseBool(v)
}
