// Package config handles loading and validation of application
// configuration from environment variables.
package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/roamfund/roamfund-backend/logger"
	"github.com/roamfund/roamfund-backend/types"
	"github.com/spf13/viper"
)

// Environment represents the application's running environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"

	minJWTLength    = 32
	minSecretLength = 8
)

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Environment    Environment `mapstructure:"ENVIRONMENT"`
	Port           string      `mapstructure:"PORT"`
	AllowedOrigins []string    `mapstructure:"ALLOWED_ORIGINS"`
	Version        string      `mapstructure:"VERSION"`
	JwtSecretKey   string      `mapstructure:"JWT_SECRET_KEY"`
}

// DatabaseConfig holds PostgreSQL connection details.
type DatabaseConfig struct {
	Host         string `mapstructure:"HOST"`
	Port         int    `mapstructure:"PORT"`
	User         string `mapstructure:"USER"`
	Password     string `mapstructure:"PASSWORD"`
	Name         string `mapstructure:"NAME"`
	SSLMode      string `mapstructure:"SSL_MODE"`
	MaxOpenConns int    `mapstructure:"MAX_OPEN_CONNS"`
}

// URL returns a postgres:// connection URL suitable for golang-migrate
// and other URL-based tools.
func (c *DatabaseConfig) URL() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		sslmode,
	)
}

// ConnString returns a key-value DSN for pgxpool.
func (c *DatabaseConfig) ConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// RedisConfig holds Redis connection details for rate limiting.
type RedisConfig struct {
	Address  string `mapstructure:"ADDRESS"`
	Password string `mapstructure:"PASSWORD"`
	DB       int    `mapstructure:"DB"`
	UseTLS   bool   `mapstructure:"USE_TLS"`
}

// StripeConfig holds credentials for the card-intent gateway.
type StripeConfig struct {
	SecretKey string `mapstructure:"SECRET_KEY"`
	APIBase   string `mapstructure:"API_BASE"`
}

// RazorpayConfig holds credentials for the order-style gateway.
type RazorpayConfig struct {
	KeyID     string `mapstructure:"KEY_ID"`
	KeySecret string `mapstructure:"KEY_SECRET"`
	APIBase   string `mapstructure:"API_BASE"`
}

// PaymentConfig aggregates gateway credentials and call limits.
type PaymentConfig struct {
	Stripe         StripeConfig   `mapstructure:"STRIPE"`
	Razorpay       RazorpayConfig `mapstructure:"RAZORPAY"`
	TimeoutSeconds int            `mapstructure:"TIMEOUT_SECONDS"`
}

// LedgerConfig holds the business policy knobs of the settlement core.
type LedgerConfig struct {
	// Currency is the single currency every wallet operates in.
	Currency string `mapstructure:"CURRENCY"`
	// PaymentCutoffHours closes share payments this many hours before the
	// trip starts.
	PaymentCutoffHours int `mapstructure:"PAYMENT_CUTOFF_HOURS"`
	// SplitExcessPolicy decides where ceiling-split rounding excess goes
	// once an expense settles: "donate" or "forgive".
	SplitExcessPolicy types.SplitExcessPolicy `mapstructure:"SPLIT_EXCESS_POLICY"`
}

// RateLimitConfig holds limits for the payment-confirmation endpoints.
type RateLimitConfig struct {
	ConfirmRequestsPerMinute int `mapstructure:"CONFIRM_REQUESTS_PER_MINUTE"`
	WindowSeconds            int `mapstructure:"WINDOW_SECONDS"`
}

// Config aggregates all application configuration sections.
type Config struct {
	Server    ServerConfig    `mapstructure:"SERVER"`
	Database  DatabaseConfig  `mapstructure:"DATABASE"`
	Redis     RedisConfig     `mapstructure:"REDIS"`
	Payment   PaymentConfig   `mapstructure:"PAYMENT"`
	Ledger    LedgerConfig    `mapstructure:"LEDGER"`
	RateLimit RateLimitConfig `mapstructure:"RATE_LIMIT"`
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == EnvDevelopment
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

func bindEnvVars(v *viper.Viper, bindings [][2]string) error {
	for _, b := range bindings {
		if err := v.BindEnv(b[0], b[1]); err != nil {
			return fmt.Errorf("failed to bind %s: %w", b[0], err)
		}
	}
	return nil
}

// LoadConfig loads configuration from environment variables using Viper,
// applies defaults, unmarshals into Config, and validates it.
func LoadConfig() (*Config, error) {
	v := viper.New()
	log := logger.GetLogger()

	v.SetDefault("SERVER.ENVIRONMENT", EnvDevelopment)
	v.SetDefault("SERVER.PORT", "8080")
	v.SetDefault("SERVER.ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("SERVER.VERSION", "dev")
	v.SetDefault("DATABASE.HOST", "localhost")
	v.SetDefault("DATABASE.PORT", 5432)
	v.SetDefault("DATABASE.USER", "postgres")
	v.SetDefault("DATABASE.PASSWORD", "")
	v.SetDefault("DATABASE.NAME", "roamfund_dev")
	v.SetDefault("DATABASE.SSL_MODE", "disable")
	v.SetDefault("DATABASE.MAX_OPEN_CONNS", 10)
	v.SetDefault("REDIS.ADDRESS", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)
	v.SetDefault("REDIS.USE_TLS", false)
	v.SetDefault("PAYMENT.STRIPE.API_BASE", "https://api.stripe.com")
	v.SetDefault("PAYMENT.RAZORPAY.API_BASE", "https://api.razorpay.com")
	v.SetDefault("PAYMENT.TIMEOUT_SECONDS", 15)
	v.SetDefault("LEDGER.CURRENCY", "USD")
	v.SetDefault("LEDGER.PAYMENT_CUTOFF_HOURS", 48)
	v.SetDefault("LEDGER.SPLIT_EXCESS_POLICY", string(types.SplitExcessDonate))
	v.SetDefault("RATE_LIMIT.CONFIRM_REQUESTS_PER_MINUTE", 30)
	v.SetDefault("RATE_LIMIT.WINDOW_SECONDS", 60)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envBindings := [][2]string{
		{"SERVER.ENVIRONMENT", "SERVER_ENVIRONMENT"},
		{"SERVER.PORT", "PORT"},
		{"SERVER.ALLOWED_ORIGINS", "ALLOWED_ORIGINS"},
		{"SERVER.JWT_SECRET_KEY", "JWT_SECRET_KEY"},
		{"SERVER.VERSION", "VERSION"},
		{"DATABASE.HOST", "DB_HOST"},
		{"DATABASE.PORT", "DB_PORT"},
		{"DATABASE.USER", "DB_USER"},
		{"DATABASE.PASSWORD", "DB_PASSWORD"},
		{"DATABASE.NAME", "DB_NAME"},
		{"DATABASE.SSL_MODE", "DB_SSL_MODE"},
		{"REDIS.ADDRESS", "REDIS_ADDRESS"},
		{"REDIS.PASSWORD", "REDIS_PASSWORD"},
		{"REDIS.DB", "REDIS_DB"},
		{"REDIS.USE_TLS", "REDIS_USE_TLS"},
		{"PAYMENT.STRIPE.SECRET_KEY", "STRIPE_SECRET_KEY"},
		{"PAYMENT.STRIPE.API_BASE", "STRIPE_API_BASE"},
		{"PAYMENT.RAZORPAY.KEY_ID", "RAZORPAY_KEY_ID"},
		{"PAYMENT.RAZORPAY.KEY_SECRET", "RAZORPAY_KEY_SECRET"},
		{"PAYMENT.RAZORPAY.API_BASE", "RAZORPAY_API_BASE"},
		{"PAYMENT.TIMEOUT_SECONDS", "PAYMENT_TIMEOUT_SECONDS"},
		{"LEDGER.CURRENCY", "LEDGER_CURRENCY"},
		{"LEDGER.PAYMENT_CUTOFF_HOURS", "LEDGER_PAYMENT_CUTOFF_HOURS"},
		{"LEDGER.SPLIT_EXCESS_POLICY", "LEDGER_SPLIT_EXCESS_POLICY"},
		{"RATE_LIMIT.CONFIRM_REQUESTS_PER_MINUTE", "RATE_LIMIT_CONFIRM_REQUESTS_PER_MINUTE"},
		{"RATE_LIMIT.WINDOW_SECONDS", "RATE_LIMIT_WINDOW_SECONDS"},
	}

	if err := bindEnvVars(v, envBindings); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal failed: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	log.Infow("Configuration loaded",
		"environment", cfg.Server.Environment,
		"server_port", cfg.Server.Port,
		"db_host", cfg.Database.Host,
		"currency", cfg.Ledger.Currency,
		"split_excess_policy", cfg.Ledger.SplitExcessPolicy,
		"stripe_key", logger.MaskSensitiveString(cfg.Payment.Stripe.SecretKey, 3, 2),
		"razorpay_key_id", logger.MaskSensitiveString(cfg.Payment.Razorpay.KeyID, 3, 2),
	)

	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if cfg.Database.Host == "" || cfg.Database.Name == "" {
		return fmt.Errorf("database host and name are required")
	}
	if !cfg.Ledger.SplitExcessPolicy.Valid() {
		return fmt.Errorf("invalid split excess policy: %s", cfg.Ledger.SplitExcessPolicy)
	}
	if len(cfg.Ledger.Currency) != 3 {
		return fmt.Errorf("ledger currency must be a 3-letter ISO code, got %q", cfg.Ledger.Currency)
	}
	if cfg.Ledger.PaymentCutoffHours < 0 {
		return fmt.Errorf("payment cutoff hours cannot be negative")
	}

	// Secrets are only mandatory in production so local development and
	// tests can run without gateway accounts.
	if cfg.IsProduction() {
		if len(cfg.Server.JwtSecretKey) < minJWTLength {
			return fmt.Errorf("JWT secret key must be at least %d characters in production", minJWTLength)
		}
		if len(cfg.Payment.Stripe.SecretKey) < minSecretLength {
			return fmt.Errorf("stripe secret key is required in production")
		}
		if len(cfg.Payment.Razorpay.KeySecret) < minSecretLength {
			return fmt.Errorf("razorpay key secret is required in production")
		}
	}

	return nil
}
