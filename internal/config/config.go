// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	JWTSecret      string `mapstructure:"JWT_SECRET"`
	Port           string `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"`
	LogLevel       string `mapstructure:"LOG_LEVEL"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags   string `mapstructure:"FEATURE_FLAGS"`

	// Primary store
	DBDriver                      string `mapstructure:"DB_DRIVER"`
	DatabaseURL                   string `mapstructure:"DATABASE_URL"`
	DBHost                        string `mapstructure:"DB_HOST"`
	DBPort                        string `mapstructure:"DB_PORT"`
	DBUser                        string `mapstructure:"DB_USER"`
	DBPassword                    string `mapstructure:"DB_PASSWORD"`
	DBName                        string `mapstructure:"DB_NAME"`
	DBSSLMode                     string `mapstructure:"DB_SSLMODE"`
	DBReadHost                    string `mapstructure:"DB_READ_HOST"`
	DBReadPort                    string `mapstructure:"DB_READ_PORT"`
	DBReadUser                    string `mapstructure:"DB_READ_USER"`
	DBReadPassword                string `mapstructure:"DB_READ_PASSWORD"`
	DBMaxOpenConns                int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns                int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes      int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	DBSchemaMode                  string `mapstructure:"DB_SCHEMA_MODE"`
	DBAutoMigrateAllowDestructive bool   `mapstructure:"DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE"`

	// Secondary store (Supabase PostgREST)
	SupabaseURL            string `mapstructure:"SUPABASE_URL"`
	SupabaseServiceKey     string `mapstructure:"SUPABASE_SERVICE_KEY"`
	SupabaseTimeoutSeconds int    `mapstructure:"SUPABASE_TIMEOUT_SECONDS"`

	// In-memory store
	MemoryStoreCapacity int    `mapstructure:"MEMORY_STORE_CAPACITY"`
	MockWriteKindsRaw   string `mapstructure:"MOCK_WRITE_KINDS"`

	RedisURL string `mapstructure:"REDIS_URL"`

	// Search index
	AlgoliaAppID  string `mapstructure:"ALGOLIA_APP_ID"`
	AlgoliaAPIKey string `mapstructure:"ALGOLIA_API_KEY"`
	AlgoliaIndex  string `mapstructure:"ALGOLIA_INDEX"`

	// AI agents
	AIProvider       string `mapstructure:"AI_PROVIDER"`
	AnthropicAPIKey  string `mapstructure:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey     string `mapstructure:"OPENAI_API_KEY"`
	AIModel          string `mapstructure:"AI_MODEL"`
	AITimeoutSeconds int    `mapstructure:"AI_TIMEOUT_SECONDS"`
	AIEnrichPages    bool   `mapstructure:"AI_ENRICH_PAGES"`

	// Notifications
	SMTPHost        string `mapstructure:"SMTP_HOST"`
	SMTPPort        int    `mapstructure:"SMTP_PORT"`
	SMTPUsername    string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword    string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom        string `mapstructure:"SMTP_FROM"`
	AdminEmails     string `mapstructure:"ADMIN_EMAILS"`
	SlackWebhookURL string `mapstructure:"SLACK_WEBHOOK_URL"`
	KafkaBrokers    string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic      string `mapstructure:"KAFKA_TOPIC"`

	MapsAPIKey string `mapstructure:"MAPS_API_KEY"`
	SiteURL    string `mapstructure:"SITE_URL"`

	// Scheduled jobs
	CronEnabled    bool   `mapstructure:"CRON_ENABLED"`
	ExpirySchedule string `mapstructure:"EXPIRY_SCHEDULE"`

	// Tracing
	TracingExporter string `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint    string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	// Development bootstrap account
	DevRootUsername string `mapstructure:"DEV_ROOT_USERNAME"`
	DevRootEmail    string `mapstructure:"DEV_ROOT_EMAIL"`
	DevRootPassword string `mapstructure:"DEV_ROOT_PASSWORD"`
}

// LoadConfig loads application configuration from .env, config files and environment variables.
func LoadConfig() (*Config, error) {
	loadDotEnv()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func loadDotEnv() {
	path := os.Getenv("DOTENV_PATH")
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		log.Printf("WARNING: failed to load %s: %v", path, err)
	}
}

func setDefaults() {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173")
	viper.SetDefault("FEATURE_FLAGS", "ai_agents=on,search_index=on,admin_feed=on")

	viper.SetDefault("DB_DRIVER", "postgres")
	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "tech_atlas")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_READ_HOST", "")
	viper.SetDefault("DB_READ_PORT", "5432")
	viper.SetDefault("DB_READ_USER", "user")
	viper.SetDefault("DB_READ_PASSWORD", "password")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)
	viper.SetDefault("DB_SCHEMA_MODE", "hybrid")
	viper.SetDefault("DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE", false)

	viper.SetDefault("SUPABASE_URL", "")
	viper.SetDefault("SUPABASE_SERVICE_KEY", "")
	viper.SetDefault("SUPABASE_TIMEOUT_SECONDS", 10)
	viper.SetDefault("MEMORY_STORE_CAPACITY", 1000)
	viper.SetDefault("MOCK_WRITE_KINDS", "")

	viper.SetDefault("REDIS_URL", "localhost:6379")

	viper.SetDefault("ALGOLIA_APP_ID", "")
	viper.SetDefault("ALGOLIA_API_KEY", "")
	viper.SetDefault("ALGOLIA_INDEX", "tech_atlas")

	viper.SetDefault("AI_PROVIDER", "anthropic")
	viper.SetDefault("ANTHROPIC_API_KEY", "")
	viper.SetDefault("OPENAI_API_KEY", "")
	viper.SetDefault("AI_MODEL", "")
	viper.SetDefault("AI_TIMEOUT_SECONDS", 60)
	viper.SetDefault("AI_ENRICH_PAGES", true)

	viper.SetDefault("SMTP_HOST", "")
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("SMTP_USERNAME", "")
	viper.SetDefault("SMTP_PASSWORD", "")
	viper.SetDefault("SMTP_FROM", "Tech Atlas <noreply@techatlas.ug>")
	viper.SetDefault("ADMIN_EMAILS", "")
	viper.SetDefault("SLACK_WEBHOOK_URL", "")
	viper.SetDefault("KAFKA_BROKERS", "")
	viper.SetDefault("KAFKA_TOPIC", "techatlas.content")
	viper.SetDefault("MAPS_API_KEY", "")
	viper.SetDefault("SITE_URL", "http://localhost:5173")

	viper.SetDefault("CRON_ENABLED", true)
	viper.SetDefault("EXPIRY_SCHEDULE", "0 0 * * * *")

	viper.SetDefault("TRACING_EXPORTER", "")
	viper.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	viper.SetDefault("DEV_ROOT_USERNAME", "atlas_root")
	viper.SetDefault("DEV_ROOT_EMAIL", "root@techatlas.local")
	viper.SetDefault("DEV_ROOT_PASSWORD", "")
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.AIProvider = strings.ToLower(strings.TrimSpace(c.AIProvider))
	c.SupabaseURL = strings.TrimRight(strings.TrimSpace(c.SupabaseURL), "/")
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.DBDriver {
	case "", "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.AIProvider {
	case "", "anthropic", "openai":
	default:
		return fmt.Errorf("unsupported AI_PROVIDER %q", c.AIProvider)
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DatabaseURL == "" && c.driver() != "sqlite" {
			if c.DBPassword == "password" || c.DBPassword == "" {
				return errors.New("a strong DB_PASSWORD is required in production")
			}
			if c.driver() == "postgres" && (c.DBSSLMode == "disable" || c.DBSSLMode == "") {
				return errors.New("DB_SSLMODE must not be 'disable' in production")
			}
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}

// IsProduction reports whether the service runs with production safeguards.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

func (c *Config) driver() string {
	if c.DBDriver == "" {
		return "postgres"
	}
	return c.DBDriver
}

// Driver returns the configured primary database dialect.
func (c *Config) Driver() string {
	return c.driver()
}

// DSN builds the primary database connection string for the configured driver.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	switch c.driver() {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
	case "sqlite":
		if c.DBName == "" {
			return "file::memory:?cache=shared"
		}
		return c.DBName
	default:
		sslMode := c.DBSSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, sslMode)
	}
}

// ReadDSN returns the replica connection string, or "" when no replica is configured.
func (c *Config) ReadDSN() string {
	if c.DBReadHost == "" || c.driver() != "postgres" {
		return ""
	}
	sslMode := c.DBSSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBReadHost, c.DBReadPort, c.DBReadUser, c.DBReadPassword, c.DBName, sslMode)
}

// SupabaseEnabled reports whether the secondary REST store can be used.
func (c *Config) SupabaseEnabled() bool {
	return c.SupabaseURL != "" && c.SupabaseServiceKey != ""
}

// SupabaseTimeout bounds each request to the secondary store.
func (c *Config) SupabaseTimeout() time.Duration {
	return secondsOr(c.SupabaseTimeoutSeconds, 10)
}

// AIKey returns the API key for the configured provider.
func (c *Config) AIKey() string {
	if c.AIProvider == "openai" {
		return c.OpenAIAPIKey
	}
	return c.AnthropicAPIKey
}

// AIEnabled reports whether the configured provider has a key.
func (c *Config) AIEnabled() bool {
	return c.AIKey() != ""
}

// AITimeout bounds a single model call.
func (c *Config) AITimeout() time.Duration {
	return secondsOr(c.AITimeoutSeconds, 60)
}

// AlgoliaEnabled reports whether search index sync is configured.
func (c *Config) AlgoliaEnabled() bool {
	return c.AlgoliaAppID != "" && c.AlgoliaAPIKey != ""
}

// SMTPEnabled reports whether moderation emails can be sent.
func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != ""
}

// MockWriteKinds returns the kinds that answer a failed create with an
// unpersisted record. ok is false when the registry defaults apply.
func (c *Config) MockWriteKinds() (kinds map[string]bool, ok bool) {
	raw := strings.TrimSpace(c.MockWriteKindsRaw)
	if raw == "" {
		return nil, false
	}
	kinds = map[string]bool{}
	if strings.EqualFold(raw, "none") {
		return kinds, true
	}
	for _, k := range SplitList(raw) {
		kinds[strings.ToLower(k)] = true
	}
	return kinds, true
}

// SplitList splits a comma separated setting, dropping blanks.
func SplitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func secondsOr(v, fallback int) time.Duration {
	if v <= 0 {
		v = fallback
	}
	return time.Duration(v) * time.Second
}
