package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/juggajay/site-proof-sub006/internal/secrets"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Storage   StorageConfig
	Secrets   SecretsConfig
	Logging   LoggingConfig
	Server    ServerConfig
	CORS      CORSConfig
	Security  SecurityConfig
	RateLimit RateLimitConfig
	Outbox    OutboxConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Port        int
}

type DatabaseConfig struct {
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
}

// AuthConfig configures bearer token verification. Tokens are HS256 signed
// with JWTSecret; the subject claim carries the user id.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	Audience  string
	// TokenTTL is the lifetime of issued tokens in minutes
	TokenTTL int
	// ClockSkew is the leeway applied to exp/nbf checks in seconds
	ClockSkew int
}

type StorageConfig struct {
	Mode                  string
	LocalBasePath         string
	CloudConnectionString string
	CloudContainer        string
	MaxUploadSizeMB       int64
}

type SecretsConfig struct {
	// Source determines where secrets are loaded from: "environment", "vault", or "auto"
	// "auto" uses environment in development, vault in staging/production
	Source       string
	KeyVaultName string
	CacheEnabled bool
	CacheTTL     int // seconds
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	ReadTimeout    int
	WriteTimeout   int
	RequestTimeout int
	EnableSwagger  bool
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	// AllowedOrigins is a list of allowed origins for CORS requests
	// Use "*" to allow all origins (not recommended for production)
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	// MaxAge is the max age (in seconds) for preflight cache
	MaxAge int
}

// SecurityConfig holds security header configuration
type SecurityConfig struct {
	EnableHSTS            bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	HSTSPreload           bool
	ContentSecurityPolicy string
	// FrameOptions sets the X-Frame-Options header (DENY, SAMEORIGIN, or empty to disable)
	FrameOptions       string
	ContentTypeNosniff bool
	XSSProtection      string
	ReferrerPolicy     string
	PermissionsPolicy  string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled bool
	// RequestsPerMinute applies per IP to unauthenticated requests
	RequestsPerMinute int
	// RequestsPerMinuteAuth applies per user to authenticated requests
	RequestsPerMinuteAuth int
	BurstSize             int
	WhitelistIPs          []string
	WhitelistPaths        []string
}

// OutboxConfig drives the notification dispatcher and purge jobs
type OutboxConfig struct {
	Enabled bool
	// DispatchCron is a robfig/cron expression with a seconds field
	DispatchCron string
	// PurgeCron may be empty to disable purging
	PurgeCron   string
	BatchSize   int
	MaxAttempts int
	// RetentionDays is how long read, delivered notifications are kept
	RetentionDays int
	// Timeout bounds a single dispatch or purge run in seconds
	Timeout int
}

// ConnectionString builds PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// ReadTimeoutDuration returns read timeout as duration
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns write timeout as duration
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// RequestTimeoutDuration returns request timeout as duration
func (s *ServerConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(s.RequestTimeout) * time.Second
}

// ConnMaxLifetimeDuration returns connection max lifetime as duration
func (d *DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(d.ConnMaxLifetime) * time.Second
}

// TokenTTLDuration returns the token lifetime as duration
func (a *AuthConfig) TokenTTLDuration() time.Duration {
	return time.Duration(a.TokenTTL) * time.Minute
}

// ClockSkewDuration returns the validation leeway as duration
func (a *AuthConfig) ClockSkewDuration() time.Duration {
	return time.Duration(a.ClockSkew) * time.Second
}

// RetentionDuration returns the purge horizon as duration
func (o *OutboxConfig) RetentionDuration() time.Duration {
	return time.Duration(o.RetentionDays) * 24 * time.Hour
}

// TimeoutDuration returns the per-run timeout as duration
func (o *OutboxConfig) TimeoutDuration() time.Duration {
	return time.Duration(o.Timeout) * time.Second
}

// Validate reports configuration that would leave the API unusable
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwtSecret is required")
	}
	if c.App.Environment == "production" && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwtSecret must be at least 32 bytes in production")
	}
	if c.Outbox.Enabled && c.Outbox.DispatchCron == "" {
		return fmt.Errorf("outbox.dispatchCron is required when the outbox is enabled")
	}
	return nil
}

// Load loads configuration from file and environment variables
// This is a basic load that doesn't fetch secrets from vault
// Use LoadWithSecrets for full secret resolution
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override config file
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = v.GetString("JWT_SECRET")
	}
	if cfg.Secrets.KeyVaultName == "" {
		cfg.Secrets.KeyVaultName = v.GetString("AZURE_KEY_VAULT_NAME")
	}

	return &cfg, nil
}

// LoadWithSecrets loads configuration and overlays deployment secrets. With the
// environment source nothing is fetched: Load already read the env vars.
func LoadWithSecrets(ctx context.Context, logger *zap.Logger) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	source := secrets.EffectiveSource(secrets.Source(cfg.Secrets.Source), cfg.App.Environment, cfg.Secrets.KeyVaultName)
	if source == secrets.SourceEnvironment {
		logger.Info("secrets read from environment", zap.String("environment", cfg.App.Environment))
		return cfg, nil
	}
	if cfg.Secrets.KeyVaultName == "" {
		return nil, errors.New("secrets.keyVaultName (AZURE_KEY_VAULT_NAME) is required for the vault source")
	}

	ttl := time.Duration(cfg.Secrets.CacheTTL) * time.Second
	if !cfg.Secrets.CacheEnabled {
		ttl = -1
	}
	resolver, err := secrets.NewResolver(secrets.ResolverConfig{
		Source:      source,
		VaultName:   cfg.Secrets.KeyVaultName,
		Environment: cfg.App.Environment,
		CacheTTL:    ttl,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secrets: %w", err)
	}
	if err := applySecrets(ctx, cfg, resolver); err != nil {
		return nil, err
	}

	logger.Info("secrets loaded from Key Vault", zap.String("key_vault_name", cfg.Secrets.KeyVaultName))
	return cfg, nil
}

// secretBinding maps a vault secret onto a config field; env overrides it
type secretBinding struct {
	secret string
	env    string
	apply  func(*Config, string)
}

var secretBindings = []secretBinding{
	{"POSTGRES-MAIN-HOST", "DATABASE_HOST", func(c *Config, v string) { c.Database.Host = v }},
	{"POSTGRES-MAIN-USER", "DATABASE_USER", func(c *Config, v string) { c.Database.User = v }},
	{"POSTGRES-MAIN-PASSWORD", "DATABASE_PASSWORD", func(c *Config, v string) { c.Database.Password = v }},
	{"jwt-signing-secret", "JWT_SECRET", func(c *Config, v string) { c.Auth.JWTSecret = v }},
	{"storage-connection-string", "STORAGE_CLOUDCONNECTIONSTRING", func(c *Config, v string) { c.Storage.CloudConnectionString = v }},
}

type secretResolver interface {
	Resolve(ctx context.Context, secretName, envName string) (string, error)
}

// applySecrets fills every bound field. An absent secret keeps the loaded
// value; any other lookup failure aborts startup.
func applySecrets(ctx context.Context, cfg *Config, r secretResolver) error {
	for _, b := range secretBindings {
		v, err := r.Resolve(ctx, b.secret, b.env)
		switch {
		case errors.Is(err, secrets.ErrNotFound):
			continue
		case err != nil:
			return fmt.Errorf("failed to resolve secret %s: %w", b.secret, err)
		case v != "":
			b.apply(cfg, v)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "SiteProof Quality API")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.port", 8080)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "siteproof")
	v.SetDefault("database.user", "siteproof")
	v.SetDefault("database.password", "siteproof")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", 300)

	v.SetDefault("auth.issuer", "siteproof")
	v.SetDefault("auth.audience", "siteproof-api")
	v.SetDefault("auth.tokenTTL", 60*12)
	v.SetDefault("auth.clockSkew", 30)

	v.SetDefault("secrets.source", "auto")
	v.SetDefault("secrets.cacheEnabled", true)
	v.SetDefault("secrets.cacheTTL", 300)

	v.SetDefault("storage.mode", "local")
	v.SetDefault("storage.localBasePath", "./storage")
	v.SetDefault("storage.cloudContainer", "drawings")
	v.SetDefault("storage.maxUploadSizeMB", 50)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)
	v.SetDefault("server.requestTimeout", 60)
	v.SetDefault("server.enableSwagger", true)

	// CORS is restrictive by default
	v.SetDefault("cors.allowedOrigins", []string{})
	v.SetDefault("cors.allowedMethods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowedHeaders", []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"})
	v.SetDefault("cors.exposedHeaders", []string{"Location", "X-Request-ID"})
	v.SetDefault("cors.allowCredentials", true)
	v.SetDefault("cors.maxAge", 300)

	v.SetDefault("security.enableHSTS", false) // enable in production behind HTTPS
	v.SetDefault("security.hstsMaxAge", 31536000)
	v.SetDefault("security.hstsIncludeSubdomains", true)
	v.SetDefault("security.hstsPreload", false)
	v.SetDefault("security.contentSecurityPolicy", "default-src 'self'")
	v.SetDefault("security.frameOptions", "DENY")
	v.SetDefault("security.contentTypeNosniff", true)
	v.SetDefault("security.xssProtection", "1; mode=block")
	v.SetDefault("security.referrerPolicy", "strict-origin-when-cross-origin")
	v.SetDefault("security.permissionsPolicy", "geolocation=(), microphone=(), camera=()")

	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requestsPerMinute", 60)
	v.SetDefault("rateLimit.requestsPerMinuteAuth", 240)
	v.SetDefault("rateLimit.burstSize", 10)
	v.SetDefault("rateLimit.whitelistIPs", []string{"127.0.0.1", "::1"})
	v.SetDefault("rateLimit.whitelistPaths", []string{"/health", "/health/db", "/health/ready"})

	v.SetDefault("outbox.enabled", true)
	v.SetDefault("outbox.dispatchCron", "*/15 * * * * *")
	v.SetDefault("outbox.purgeCron", "0 30 3 * * *")
	v.SetDefault("outbox.batchSize", 100)
	v.SetDefault("outbox.maxAttempts", 5)
	v.SetDefault("outbox.retentionDays", 30)
	v.SetDefault("outbox.timeout", 60)
}
