package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Session expiry policies. "keep" leaves expired rows in storage, "lazy" deletes
// an expired row when a reader observes it, "sweep" purges them on a ticker.
const (
	ExpiryPolicyKeep  = "keep"
	ExpiryPolicyLazy  = "lazy"
	ExpiryPolicySweep = "sweep"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Discord  DiscordConfig
	Tasks    TasksConfig
	Events   EventsConfig
	Metrics  MetricsConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	TrustedProxies []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
}

type AuthConfig struct {
	StateSecret     string
	StateTTL        time.Duration
	SessionTTL      time.Duration
	ExpiryPolicy    string
	SweepInterval   time.Duration // zero disables the background sweeper
	LastSeenTimeout time.Duration
	TouchLastSeen   bool
	LoginRateLimit  int

	// AllowedDiscordIDs is the set of external identities permitted to sign in.
	AllowedDiscordIDs []string
	// AdminDiscordIDs receive the admin role when their user row is first created.
	AdminDiscordIDs []string
}

type DiscordConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	APIBaseURL   string
}

type TasksConfig struct {
	StrictTransitions bool
}

type EventsConfig struct {
	AMQPURL string // empty disables publishing
	Queue   string
}

type MetricsConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	stateSecret := getEnv("STATE_SECRET", "")
	if stateSecret == "" {
		return nil, fmt.Errorf("STATE_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: loadDatabaseConfig(),
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			TrustedProxies: getEnvAsList("TRUSTED_PROXIES"),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			RequestTimeout: getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 30*time.Second),
		},
		Auth: AuthConfig{
			StateSecret:       stateSecret,
			StateTTL:          getEnvAsDuration("OAUTH_STATE_TTL", 10*time.Minute),
			SessionTTL:        getEnvAsDuration("SESSION_TTL", 7*24*time.Hour),
			ExpiryPolicy:      strings.ToLower(getEnv("SESSION_EXPIRY_POLICY", ExpiryPolicyKeep)),
			SweepInterval:     getEnvAsDuration("SESSION_SWEEP_INTERVAL", 0),
			LastSeenTimeout:   getEnvAsDuration("LAST_SEEN_TIMEOUT", 2*time.Second),
			TouchLastSeen:     getEnvAsBool("TOUCH_LAST_SEEN", true),
			LoginRateLimit:    getEnvAsInt("LOGIN_RATE_LIMIT", 5),
			AllowedDiscordIDs: getEnvAsList("ALLOWED_DISCORD_IDS"),
			AdminDiscordIDs:   getEnvAsList("ADMIN_DISCORD_IDS"),
		},
		Discord: DiscordConfig{
			ClientID:     getEnv("DISCORD_CLIENT_ID", ""),
			ClientSecret: getEnv("DISCORD_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("DISCORD_REDIRECT_URL", ""),
			AuthURL:      getEnv("DISCORD_AUTH_URL", "https://discord.com/oauth2/authorize"),
			TokenURL:     getEnv("DISCORD_TOKEN_URL", "https://discord.com/api/oauth2/token"),
			APIBaseURL:   getEnv("DISCORD_API_BASE_URL", "https://discord.com/api"),
		},
		Tasks: TasksConfig{
			StrictTransitions: getEnvAsBool("TASK_STRICT_TRANSITIONS", false),
		},
		Events: EventsConfig{
			AMQPURL: getEnv("AMQP_URL", ""),
			Queue:   getEnv("AMQP_TASK_QUEUE", "task-events"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvAsBool("METRICS_ENABLED", true),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateStateSecret(stateSecret, env); err != nil {
		return nil, err
	}

	switch cfg.Auth.ExpiryPolicy {
	case ExpiryPolicyKeep, ExpiryPolicyLazy:
	case ExpiryPolicySweep:
		if cfg.Auth.SweepInterval <= 0 {
			cfg.Auth.SweepInterval = 1 * time.Hour
		}
	default:
		return nil, fmt.Errorf("SESSION_EXPIRY_POLICY must be one of keep, lazy, sweep (got %q)", cfg.Auth.ExpiryPolicy)
	}

	if cfg.Auth.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive")
	}

	return cfg, nil
}

// LoadDatabase reads only the database settings, for commands that do not serve
func LoadDatabase() (*DatabaseConfig, error) {
	_ = godotenv.Load()

	cfg := loadDatabaseConfig()
	if cfg.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	return &cfg, nil
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:              getEnv("DB_HOST", "localhost"),
		Port:              getEnvAsInt("DB_PORT", 5432),
		User:              getEnv("DB_USER", "postgres"),
		Password:          getEnv("DB_PASSWORD", ""),
		Name:              getEnv("DB_NAME", "littlespace"),
		SSLMode:           getEnv("DB_SSLMODE", "disable"),
		MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 10)),
		MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 2)),
		MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
		MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
		HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
	}
}

// validateStateSecret enforces minimum strength for the OAuth state signing key
func validateStateSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("STATE_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("STATE_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

// getEnvAsList splits a comma-separated variable, dropping blanks
func getEnvAsList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return []string{}
	}

	items := make([]string, 0)
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		return getEnvAsList("ALLOWED_ORIGINS")
	}

	// Development: web client and Expo dev servers
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:8081",
		"http://localhost:19006",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:8081",
		"http://127.0.0.1:19006",
	}
}
