package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aussiebroadwan/bakeboard/internal/admin/domain"
	"github.com/aussiebroadwan/bakeboard/internal/admin/notify"
	"github.com/aussiebroadwan/bakeboard/pkg/httpx"
	"github.com/aussiebroadwan/bakeboard/pkg/jwtx"
	"github.com/spf13/viper"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Env       string `mapstructure:"env"`        // dev, staging, prod (default: dev)
	LogLevel  string `mapstructure:"log_level"`  // debug, info, warn, error (default: info)
	LogFormat string `mapstructure:"log_format"` // json, text (default: json)
	LogFile   string `mapstructure:"log_file"`   // Optional: rotated copy of the log

	Port                int           `mapstructure:"port"`                  // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration `mapstructure:"shutdown_grace_period"` // Graceful shutdown timeout (default: 10s)
	EnableMetrics       bool          `mapstructure:"enable_metrics"`        // Serve /metrics (default: true)
	EnableSwagger       bool          `mapstructure:"enable_swagger"`        // Serve /swagger/ (default: true)

	Database DatabaseConfig `mapstructure:"database"`
	RedisURL string         `mapstructure:"redis_url"` // Optional: shared attempt counter

	JWTSecret  string `mapstructure:"jwt_secret"` // Required: HS256 secret, at least 32 bytes
	JWTIssuer  string `mapstructure:"jwt_issuer"` // Expected issuer claim (default: bakeboard-admin)
	PepperFile string `mapstructure:"pepper_file"`

	InvitationValidity   time.Duration `mapstructure:"invitation_validity"`   // Default window (default: 7 days)
	InvitationRetention  time.Duration `mapstructure:"invitation_retention"`  // Purge expired invitations after (0 keeps them)
	RegistrationBaseURL  string        `mapstructure:"registration_base_url"` // Base of the links in invitation emails
	PhoneRegion          string        `mapstructure:"phone_region"`          // Region for numbers without a country code
	SequenceAttempts     int           `mapstructure:"sequence_attempts"`     // Candidates tried per number (default: 10)
	HousekeepingInterval time.Duration `mapstructure:"housekeeping_interval"` // Default: 1h

	SMTP      SMTPConfig      `mapstructure:"smtp"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite or postgres (default: sqlite)
	File   string `mapstructure:"file"`   // sqlite path (default: admin.db)
	URL    string `mapstructure:"url"`    // postgres DSN
}

// SMTPConfig enables email delivery when Host is set; otherwise notices are
// only logged.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type NotifyConfig struct {
	Workers  int           `mapstructure:"workers"`
	Capacity int           `mapstructure:"capacity"`
	Attempts uint          `mapstructure:"attempts"`
	Delay    time.Duration `mapstructure:"delay"`
}

type RateLimitConfig struct {
	Strict   RateLimitProfile `mapstructure:"strict"`
	Moderate RateLimitProfile `mapstructure:"moderate"`
	Lenient  RateLimitProfile `mapstructure:"lenient"`
}

// RateLimitProfile overrides one httpx profile. Zero fields keep the default.
type RateLimitProfile struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
	Burst    int           `mapstructure:"burst"`
}

func (p RateLimitProfile) apply(base httpx.RateLimitConfig) httpx.RateLimitConfig {
	return base.Merge(httpx.RateLimitConfig{
		RequestsPerWindow: p.Requests,
		Window:            p.Window,
		Burst:             p.Burst,
	})
}

// Limits returns the httpx profiles with any configured overrides applied.
func (c RateLimitConfig) Limits() httpx.Limits {
	d := httpx.DefaultLimits()
	return httpx.Limits{
		Strict:   c.Strict.apply(d.Strict),
		Moderate: c.Moderate.apply(d.Moderate),
		Lenient:  c.Lenient.apply(d.Lenient),
	}
}

func (c NotifyConfig) queue() notify.QueueConfig {
	return notify.QueueConfig{
		Workers:  c.Workers,
		Capacity: c.Capacity,
		Attempts: c.Attempts,
		Delay:    c.Delay,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("log_file", "")

	v.SetDefault("port", 8080)
	v.SetDefault("shutdown_grace_period", 10*time.Second)
	v.SetDefault("enable_metrics", true)
	v.SetDefault("enable_swagger", true)

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.file", "admin.db")
	v.SetDefault("database.url", "")
	v.SetDefault("redis_url", "")

	v.SetDefault("jwt_secret", "")
	v.SetDefault("jwt_issuer", "bakeboard-admin")
	v.SetDefault("pepper_file", "pepper")

	v.SetDefault("invitation_validity", domain.DefaultValidity)
	v.SetDefault("invitation_retention", time.Duration(0))
	v.SetDefault("registration_base_url", "http://localhost:8080")
	v.SetDefault("phone_region", "AU")
	v.SetDefault("sequence_attempts", 10)
	v.SetDefault("housekeeping_interval", time.Hour)

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")

	v.SetDefault("notify.workers", 4)
	v.SetDefault("notify.capacity", 256)
	v.SetDefault("notify.attempts", 3)
	v.SetDefault("notify.delay", 500*time.Millisecond)

	for _, p := range []string{"strict", "moderate", "lenient"} {
		v.SetDefault("ratelimit."+p+".requests", 0)
		v.SetDefault("ratelimit."+p+".window", time.Duration(0))
		v.SetDefault("ratelimit."+p+".burst", 0)
	}
}

// LoadConfig reads defaults, then the YAML file named by CONFIG_FILE if any,
// then the environment. Nested keys map to env names with underscores,
// e.g. database.url is DATABASE_URL.
func LoadConfig() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.File == "" {
			errs = append(errs, errors.New("DATABASE_FILE is required for sqlite"))
		}
	case DriverPostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER %q is not supported", c.Database.Driver))
	}

	if len(c.JWTSecret) < jwtx.MinSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", jwtx.MinSecretLength))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d is out of range", c.Port))
	}
	if c.InvitationValidity <= 0 || c.InvitationValidity > 90*24*time.Hour {
		errs = append(errs, errors.New("INVITATION_VALIDITY must be positive and at most 90 days"))
	}
	if c.InvitationRetention < 0 {
		errs = append(errs, errors.New("INVITATION_RETENTION must not be negative"))
	}
	if c.SMTP.Host != "" && c.SMTP.From == "" {
		errs = append(errs, errors.New("SMTP_FROM is required when SMTP_HOST is set"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
