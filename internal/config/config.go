package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	HTTP          HTTPConfig          `yaml:"http"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	JWT           JWTConfig           `yaml:"jwt"`
	Security      SecurityConfig      `yaml:"security"`
	Payment       PaymentConfig       `yaml:"payment"`
	Billing       BillingConfig       `yaml:"billing"`
	Sessions      SessionsConfig      `yaml:"sessions"`
	Notifications NotificationsConfig `yaml:"notifications"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Log           LogConfig           `yaml:"log"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
}

// ServerConfig contains gRPC server settings
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// HTTPConfig is the ops listener serving health and metrics
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"` // "postgres" or "memory"
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// JWTConfig contains JWT token settings
type JWTConfig struct {
	Secret            string `yaml:"secret"`
	AccessTokenExpiry int    `yaml:"access_token_expiry_minutes"`
}

// SecurityConfig holds the bcrypt hash of the key trusted callers present on EndSession.
type SecurityConfig struct {
	ServiceKeyHash string `yaml:"service_key_hash"`
}

// PaymentConfig points at the payment gateway used to verify recharges
type PaymentConfig struct {
	BaseURL     string        `yaml:"base_url"`
	KeyID       string        `yaml:"key_id"`
	KeySecret   string        `yaml:"key_secret"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
	Backoff     time.Duration `yaml:"backoff"`
}

// BillingConfig contains settlement settings. Money values are decimal strings.
type BillingConfig struct {
	PlatformUserID         string            `yaml:"platform_user_id"`
	DefaultAstrologerRatio string            `yaml:"default_astrologer_ratio"`
	ServiceRatios          map[string]string `yaml:"service_ratios"`
	OverdraftPolicy        string            `yaml:"overdraft_policy"` // "allow" or "floor"
	BalanceFloor           string            `yaml:"balance_floor"`
	LowBalanceThreshold    string            `yaml:"low_balance_threshold"`
	EndOnEmptyWallet       bool              `yaml:"end_on_empty_wallet"`
	PendingRechargeTTL     time.Duration     `yaml:"pending_recharge_ttl"`

	defaultRatio  decimal.Decimal
	serviceRatios map[string]decimal.Decimal
	balanceFloor  decimal.Decimal
	lowBalance    decimal.Decimal
}

// SessionsConfig bounds how long a session may sit in a non-terminal status
type SessionsConfig struct {
	RingTimeout time.Duration `yaml:"ring_timeout"`
	MaxDuration time.Duration `yaml:"max_duration"`
}

// NotificationsConfig selects the delivery queue and the channels fanned out to
type NotificationsConfig struct {
	Queue      string         `yaml:"queue"` // "memory" or "redis"
	Workers    int            `yaml:"workers"`
	BufferSize int            `yaml:"buffer_size"`
	MaxRetries int            `yaml:"max_retries"`
	Channels   []string       `yaml:"channels"` // "inapp", "push", "email", "log"
	Firebase   FirebaseConfig `yaml:"firebase"`
	SMTP       SMTPConfig     `yaml:"smtp"`
}

type FirebaseConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	ProjectID       string `yaml:"project_id"`
}

// SMTPConfig contains email service settings
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// RateLimitConfig is applied per caller on the gRPC surface
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// SchedulerConfig contains cron schedule settings (with seconds)
type SchedulerConfig struct {
	// Enabled runs the jobs inside the server process instead of cmd/cronjob.
	Enabled                  bool   `yaml:"enabled"`
	ExpireUnansweredSessions string `yaml:"expire_unanswered_sessions"`
	BillActiveSessions       string `yaml:"bill_active_sessions"`
	CloseAbandonedSessions   string `yaml:"close_abandoned_sessions"`
	ExpirePendingRecharges   string `yaml:"expire_pending_recharges"`
}

// Load reads configuration from a YAML file. A .env file in the working
// directory, when present, is loaded into the environment first.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies environment overrides and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func envString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*dst = n
		}
	}
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	envString("DB_DRIVER", &c.Database.Driver)
	envString("DB_HOST", &c.Database.Host)
	envInt("DB_PORT", &c.Database.Port)
	envString("DB_USER", &c.Database.User)
	envString("DB_PASSWORD", &c.Database.Password)
	envString("DB_NAME", &c.Database.Database)
	envString("DB_SSL_MODE", &c.Database.SSLMode)

	envString("REDIS_ADDR", &c.Redis.Addr)
	envString("REDIS_PASSWORD", &c.Redis.Password)

	envString("JWT_SECRET", &c.JWT.Secret)
	envString("SERVICE_KEY_HASH", &c.Security.ServiceKeyHash)

	envString("PAYMENT_BASE_URL", &c.Payment.BaseURL)
	envString("PAYMENT_KEY_ID", &c.Payment.KeyID)
	envString("PAYMENT_KEY_SECRET", &c.Payment.KeySecret)

	envString("SMTP_HOST", &c.Notifications.SMTP.Host)
	envInt("SMTP_PORT", &c.Notifications.SMTP.Port)
	envString("SMTP_USER", &c.Notifications.SMTP.User)
	envString("SMTP_PASSWORD", &c.Notifications.SMTP.Password)
	envString("SMTP_FROM", &c.Notifications.SMTP.From)
	envString("FIREBASE_CREDENTIALS_FILE", &c.Notifications.Firebase.CredentialsFile)

	envString("SERVER_HOST", &c.Server.Host)
	envInt("SERVER_PORT", &c.Server.Port)
	envInt("HTTP_PORT", &c.HTTP.Port)

	envString("OVERDRAFT_POLICY", &c.Billing.OverdraftPolicy)

	envString("LOG_LEVEL", &c.Log.Level)
	envString("LOG_FORMAT", &c.Log.Format)
}

// Validate checks the configuration and fills in defaults
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 9090
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http port: %d", c.HTTP.Port)
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.AccessTokenExpiry == 0 {
		c.JWT.AccessTokenExpiry = 60
	}

	if c.Payment.Timeout == 0 {
		c.Payment.Timeout = 5 * time.Second
	}
	if c.Payment.MaxAttempts == 0 {
		c.Payment.MaxAttempts = 3
	}
	if c.Payment.Backoff == 0 {
		c.Payment.Backoff = 200 * time.Millisecond
	}

	if err := c.Billing.validate(); err != nil {
		return err
	}

	if c.Sessions.RingTimeout == 0 {
		c.Sessions.RingTimeout = 2 * time.Minute
	}
	if c.Sessions.MaxDuration == 0 {
		c.Sessions.MaxDuration = 4 * time.Hour
	}

	if err := c.validateNotifications(); err != nil {
		return err
	}

	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 20
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 40
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.Scheduler.ExpireUnansweredSessions == "" {
		c.Scheduler.ExpireUnansweredSessions = "0 * * * * *" // every minute
	}
	if c.Scheduler.BillActiveSessions == "" {
		c.Scheduler.BillActiveSessions = "0 * * * * *" // every minute
	}
	if c.Scheduler.CloseAbandonedSessions == "" {
		c.Scheduler.CloseAbandonedSessions = "0 */5 * * * *" // every 5 minutes
	}
	if c.Scheduler.ExpirePendingRecharges == "" {
		c.Scheduler.ExpirePendingRecharges = "0 0 * * * *" // hourly
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case "":
		c.Database.Driver = "postgres"
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown database driver: %s", c.Database.Driver)
	}
	if c.Database.Driver == "memory" {
		return nil
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 30 * time.Minute
	}
	return nil
}

func (b *BillingConfig) validate() error {
	parse := func(field, val, def string) (decimal.Decimal, error) {
		if val == "" {
			val = def
		}
		d, err := decimal.NewFromString(val)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid billing.%s %q: %w", field, val, err)
		}
		return d, nil
	}

	if b.PlatformUserID == "" {
		b.PlatformUserID = "platform"
	}

	var err error
	if b.defaultRatio, err = parse("default_astrologer_ratio", b.DefaultAstrologerRatio, "0.80"); err != nil {
		return err
	}
	if !ratioInRange(b.defaultRatio) {
		return fmt.Errorf("billing.default_astrologer_ratio must be within [0, 1]")
	}
	b.serviceRatios = make(map[string]decimal.Decimal, len(b.ServiceRatios))
	for svc, raw := range b.ServiceRatios {
		r, err := parse("service_ratios."+svc, raw, "")
		if err != nil {
			return err
		}
		if !ratioInRange(r) {
			return fmt.Errorf("billing.service_ratios.%s must be within [0, 1]", svc)
		}
		b.serviceRatios[svc] = r
	}

	switch b.OverdraftPolicy {
	case "":
		b.OverdraftPolicy = "allow"
	case "allow", "floor":
	default:
		return fmt.Errorf("unknown billing.overdraft_policy: %s", b.OverdraftPolicy)
	}
	if b.balanceFloor, err = parse("balance_floor", b.BalanceFloor, "0"); err != nil {
		return err
	}
	if b.lowBalance, err = parse("low_balance_threshold", b.LowBalanceThreshold, "50"); err != nil {
		return err
	}
	if b.PendingRechargeTTL == 0 {
		b.PendingRechargeTTL = 24 * time.Hour
	}
	return nil
}

func ratioInRange(r decimal.Decimal) bool {
	return !r.IsNegative() && r.LessThanOrEqual(decimal.NewFromInt(1))
}

func (b *BillingConfig) DefaultRatio() decimal.Decimal                 { return b.defaultRatio }
func (b *BillingConfig) ServiceRatioTable() map[string]decimal.Decimal { return b.serviceRatios }
func (b *BillingConfig) Floor() decimal.Decimal                        { return b.balanceFloor }
func (b *BillingConfig) LowBalance() decimal.Decimal                   { return b.lowBalance }

func (c *Config) validateNotifications() error {
	n := &c.Notifications
	switch n.Queue {
	case "":
		n.Queue = "memory"
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis address is required for the redis notification queue")
		}
	default:
		return fmt.Errorf("unknown notifications.queue: %s", n.Queue)
	}
	if n.Workers == 0 {
		n.Workers = 4
	}
	if n.BufferSize == 0 {
		n.BufferSize = 256
	}
	if n.MaxRetries == 0 {
		n.MaxRetries = 3
	}
	if len(n.Channels) == 0 {
		n.Channels = []string{"inapp", "log"}
	}
	for _, ch := range n.Channels {
		switch ch {
		case "inapp", "log":
		case "push":
			if n.Firebase.CredentialsFile == "" {
				return fmt.Errorf("firebase credentials file is required for push notifications")
			}
		case "email":
			if n.SMTP.Host == "" {
				return fmt.Errorf("SMTP host is required for email notifications")
			}
			if n.SMTP.Port <= 0 || n.SMTP.Port > 65535 {
				return fmt.Errorf("invalid SMTP port: %d", n.SMTP.Port)
			}
		default:
			return fmt.Errorf("unknown notification channel: %s", ch)
		}
	}
	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the gRPC server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetHTTPAddress returns the ops HTTP address
func (c *Config) GetHTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.HTTP.Port)
}
