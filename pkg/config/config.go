package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	OAuth    OAuthConfig
	JWT      JWTConfig
	Storage  StorageConfig
	SendGrid SendGridConfig
	Notes    NotesConfig
	Lease    LeaseConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	AllowedOrigins  []string
	ShutdownTimeout int
	PortalURL       string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host        string
	Port        string
	User        string
	Password    string
	Name        string
	SSLMode     string
	MaxConns    int
	MinConns    int
	AutoMigrate bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// OAuthConfig holds OAuth configuration
type OAuthConfig struct {
	Google GoogleOAuthConfig
}

// GoogleOAuthConfig holds Google OAuth configuration. RedirectURL serves the
// dashboard sign-in, IntegrationRedirectURL the Drive/Calendar consent flow.
type GoogleOAuthConfig struct {
	ClientID               string
	ClientSecret           string
	RedirectURL            string
	IntegrationRedirectURL string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// StorageConfig holds storage configuration
type StorageConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
	Enabled         bool
}

// SendGridConfig is populated by envconfig with the SENDGRID prefix.
type SendGridConfig struct {
	APIKey    string `envconfig:"API_KEY"`
	FromEmail string `envconfig:"FROM_EMAIL" default:"notifications@seedbridge.vc"`
	FromName  string `envconfig:"FROM_NAME" default:"Seedbridge CRM"`
	TeamEmail string `envconfig:"TEAM_EMAIL" default:"team@seedbridge.vc"`
}

// NotesConfig is populated by envconfig with the NOTES prefix.
type NotesConfig struct {
	SchedulerEnabled  bool          `envconfig:"SCHEDULER_ENABLED" default:"true"`
	SweepInterval     time.Duration `envconfig:"SWEEP_INTERVAL" default:"10m"`
	SweepTimeout      time.Duration `envconfig:"SWEEP_TIMEOUT" default:"9m"`
	DeadlineMargin    time.Duration `envconfig:"SWEEP_DEADLINE_MARGIN" default:"30s"`
	Lookback          time.Duration `envconfig:"LOOKBACK" default:"24h"`
	MaxMatchAttempts  int           `envconfig:"MAX_MATCH_ATTEMPTS" default:"6"`
	RetryMax          int           `envconfig:"RETRY_MAX" default:"5"`
	RetryMaxBackoff   time.Duration `envconfig:"RETRY_MAX_BACKOFF" default:"32s"`
	NameMarker        string        `envconfig:"NAME_MARKER" default:"Notes by Gemini"`
	PageSize          int64         `envconfig:"PAGE_SIZE" default:"50"`
	RequestsPerSecond float64       `envconfig:"REQUESTS_PER_SECOND" default:"8"`
	TeamDomains       []string      `envconfig:"TEAM_DOMAINS" default:"seedbridge.vc"`
}

// LeaseConfig is populated by envconfig with the LEASE prefix.
type LeaseConfig struct {
	Backend string        `envconfig:"BACKEND" default:"redis"`
	TTL     time.Duration `envconfig:"TTL" default:"15m"`
	Dir     string        `envconfig:"DIR" default:"/tmp"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Host:            getEnv("HOST", "0.0.0.0"),
			Environment:     getEnv("ENVIRONMENT", "development"),
			AllowedOrigins:  strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:3000"), ","),
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", 10),
			PortalURL:       getEnv("PORTAL_URL", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnv("DB_PORT", "5432"),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", "postgres"),
			Name:        getEnv("DB_NAME", "crm_portal"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			MaxConns:    getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:    getEnvAsInt("DB_MIN_CONNS", 5),
			AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		OAuth: OAuthConfig{
			Google: GoogleOAuthConfig{
				ClientID:               getEnv("GOOGLE_CLIENT_ID", ""),
				ClientSecret:           getEnv("GOOGLE_CLIENT_SECRET", ""),
				RedirectURL:            getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/v1/auth/google/callback"),
				IntegrationRedirectURL: getEnv("GOOGLE_INTEGRATION_REDIRECT_URL", "http://localhost:3000/settings/integrations/google"),
			},
		},
		JWT: JWTConfig{
			AccessSecret:  getEnv("JWT_ACCESS_SECRET", "your-access-secret-change-in-production"),
			RefreshSecret: getEnv("JWT_REFRESH_SECRET", "your-refresh-secret-change-in-production"),
			AccessExpiry:  getEnvAsDuration("JWT_ACCESS_EXPIRY", "15m"),
			RefreshExpiry: getEnvAsDuration("JWT_REFRESH_EXPIRY", "168h"),
		},
		Storage: StorageConfig{
			Endpoint:        getEnv("STORAGE_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
			SecretAccessKey: getEnv("STORAGE_SECRET_KEY", "minioadmin"),
			BucketName:      getEnv("STORAGE_BUCKET", "crm-notes"),
			UseSSL:          getEnvAsBool("STORAGE_USE_SSL", false),
			Enabled:         getEnvAsBool("STORAGE_ENABLED", true),
		},
	}

	if err := envconfig.Process("SENDGRID", &config.SendGrid); err != nil {
		return nil, fmt.Errorf("failed to load sendgrid config: %w", err)
	}
	if err := envconfig.Process("NOTES", &config.Notes); err != nil {
		return nil, fmt.Errorf("failed to load notes config: %w", err)
	}
	if err := envconfig.Process("LEASE", &config.Lease); err != nil {
		return nil, fmt.Errorf("failed to load lease config: %w", err)
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.OAuth.Google.ClientID == "" {
		return fmt.Errorf("GOOGLE_CLIENT_ID is required")
	}
	if c.OAuth.Google.ClientSecret == "" {
		return fmt.Errorf("GOOGLE_CLIENT_SECRET is required")
	}
	if c.Notes.MaxMatchAttempts < 1 {
		return fmt.Errorf("NOTES_MAX_MATCH_ATTEMPTS must be at least 1")
	}
	if c.Notes.RetryMax < 1 {
		return fmt.Errorf("NOTES_RETRY_MAX must be at least 1")
	}
	if c.Notes.SweepTimeout <= c.Notes.DeadlineMargin {
		return fmt.Errorf("NOTES_SWEEP_TIMEOUT must exceed NOTES_SWEEP_DEADLINE_MARGIN")
	}
	// The lease must outlive the longest sweep or a second instance can start one.
	if c.Lease.TTL <= c.Notes.SweepTimeout {
		return fmt.Errorf("LEASE_TTL (%s) must exceed NOTES_SWEEP_TIMEOUT (%s)", c.Lease.TTL, c.Notes.SweepTimeout)
	}
	switch c.Lease.Backend {
	case "redis", "file":
	default:
		return fmt.Errorf("LEASE_BACKEND must be redis or file, got %q", c.Lease.Backend)
	}
	return nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}
