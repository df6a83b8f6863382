package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	SLA          SLAConfig
	Risk         RiskConfig
	Engine       EngineConfig
	Sweep        SweepConfig
	Integration  IntegrationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr               string
	Password           string
	DB                 int
	PoolSize           int
	DialTimeoutSeconds int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines bearer token verification parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// NotificationConfig holds outbound notification endpoints.
type NotificationConfig struct {
	EmailFrom      string
	WebhookURL     string
	MeetingBaseURL string
	TimeoutSeconds int
	QueueSize      int
}

// SLAWindowMinutes is the ack/resolve window for one priority.
type SLAWindowMinutes struct {
	Ack     int
	Resolve int
}

// SLAConfig is the priority to SLA window table.
type SLAConfig struct {
	// PolicyFile optionally points at a YAML table that overrides the windows below.
	PolicyFile string
	Critical   SLAWindowMinutes
	High       SLAWindowMinutes
	Medium     SLAWindowMinutes
	Low        SLAWindowMinutes
}

// RiskConfig configures the external risk-scoring oracle.
type RiskConfig struct {
	OracleURL      string
	APIKey         string
	TimeoutSeconds int
	RatePerSecond  float64
}

// EngineConfig bounds lifecycle engine calls.
type EngineConfig struct {
	StoreTimeoutSeconds int
	IDMaxAttempts       int
}

// SweepConfig drives the periodic SLA breach sweep.
type SweepConfig struct {
	Enabled         bool
	IntervalSeconds int
	BatchSize       int
}

// IntegrationConfig configures incident intake from third-party channels.
type IntegrationConfig struct {
	SharedSecret         string
	DefaultAssigneeEmail string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	ratePerSecond, err := strconv.ParseFloat(getEnv("RISK_RATE_PER_SECOND", "5"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RISK_RATE_PER_SECOND: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "incident-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:               getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:           os.Getenv("REDIS_PASSWORD"),
			DB:                 redisDB,
			PoolSize:           getEnvAsInt("REDIS_POOL_SIZE", 10),
			DialTimeoutSeconds: getEnvAsInt("REDIS_DIAL_TIMEOUT_SECONDS", 3),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		Notification: NotificationConfig{
			EmailFrom:      getEnv("NOTIFY_EMAIL_FROM", "incidents@example.com"),
			WebhookURL:     getEnv("NOTIFY_WEBHOOK_URL", ""),
			MeetingBaseURL: getEnv("MEETING_BASE_URL", "https://meet.example.com/war-room"),
			TimeoutSeconds: getEnvAsInt("NOTIFY_TIMEOUT_SECONDS", 5),
			QueueSize:      getEnvAsInt("NOTIFY_QUEUE_SIZE", 256),
		},
		SLA: SLAConfig{
			PolicyFile: os.Getenv("SLA_POLICY_FILE"),
			Critical:   slaWindowFromEnv("CRITICAL", 15, 240),
			High:       slaWindowFromEnv("HIGH", 30, 480),
			Medium:     slaWindowFromEnv("MEDIUM", 60, 1440),
			Low:        slaWindowFromEnv("LOW", 240, 4320),
		},
		Risk: RiskConfig{
			OracleURL:      getEnv("RISK_ORACLE_URL", ""),
			APIKey:         os.Getenv("RISK_ORACLE_API_KEY"),
			TimeoutSeconds: getEnvAsInt("RISK_TIMEOUT_SECONDS", 3),
			RatePerSecond:  ratePerSecond,
		},
		Engine: EngineConfig{
			StoreTimeoutSeconds: getEnvAsInt("STORE_TIMEOUT_SECONDS", 5),
			IDMaxAttempts:       getEnvAsInt("TICKET_ID_MAX_ATTEMPTS", 5),
		},
		Sweep: SweepConfig{
			Enabled:         getEnvAsBool("SWEEP_ENABLED", true),
			IntervalSeconds: getEnvAsInt("SWEEP_INTERVAL_SECONDS", 60),
			BatchSize:       getEnvAsInt("SWEEP_BATCH_SIZE", 200),
		},
		Integration: IntegrationConfig{
			SharedSecret:         os.Getenv("INTEGRATION_SECRET"),
			DefaultAssigneeEmail: os.Getenv("DEFAULT_ASSIGNEE_EMAIL"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	return seconds(a.RequestTimeoutSeconds)
}

// DialTimeout bounds connection setup and the startup ping.
func (r RedisConfig) DialTimeout() time.Duration {
	return seconds(r.DialTimeoutSeconds)
}

// Timeout bounds a single risk oracle call.
func (r RiskConfig) Timeout() time.Duration {
	return seconds(r.TimeoutSeconds)
}

// StoreTimeout bounds a single store round trip issued by the engine.
func (e EngineConfig) StoreTimeout() time.Duration {
	return seconds(e.StoreTimeoutSeconds)
}

// Interval returns the sweep period.
func (s SweepConfig) Interval() time.Duration {
	return seconds(s.IntervalSeconds)
}

// Timeout bounds outbound notification calls.
func (n NotificationConfig) Timeout() time.Duration {
	return seconds(n.TimeoutSeconds)
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

func slaWindowFromEnv(priority string, ackDefault, resolveDefault int) SLAWindowMinutes {
	return SLAWindowMinutes{
		Ack:     getEnvAsInt("SLA_"+priority+"_ACK_MINUTES", ackDefault),
		Resolve: getEnvAsInt("SLA_"+priority+"_RESOLVE_MINUTES", resolveDefault),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
