package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/warp/hr-engine/calendar"
	"github.com/warp/hr-engine/leave"
	"github.com/warp/hr-engine/notify"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// ConfigurationError is the fatal startup error for a bad setting.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration %s: %s", e.Key, e.Reason)
}

type Config struct {
	Env  string
	Port int

	Database DatabaseConfig
	CORS     CORSConfig
	Log      LogConfig
	Leave    LeaveConfig
	Email    EmailConfig
	Rollover RolloverConfig
}

type DatabaseConfig struct {
	Driver string
	DSN    string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// LeaveConfig holds the entitlement and calendar rules.
type LeaveConfig struct {
	TimeZone           string
	MaxCarryOver       decimal.Decimal
	DayLeaveValues     string
	AllowOversubscribe bool
	DefaultHour        int
	FreeDays           string
	AdminGroup         string
	AdminEmails        []string
	MaxSpanDays        int
}

type EmailConfig struct {
	Enabled  bool
	From     string
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	UseTLS   bool
}

// RolloverConfig drives the background year opener.
type RolloverConfig struct {
	Enabled       bool
	CheckInterval time.Duration
}

// Load reads .env (when present) and the environment, then validates.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{
		Env:  v.GetString("ENV"),
		Port: v.GetInt("PORT"),
		Database: DatabaseConfig{
			Driver: v.GetString("DB_DRIVER"),
			DSN:    v.GetString("DB_DSN"),
		},
		CORS: CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Email: EmailConfig{
			Enabled:  v.GetBool("EMAIL_ENABLED"),
			From:     v.GetString("EMAIL_FROM"),
			SMTPHost: v.GetString("SMTP_HOST"),
			SMTPPort: v.GetInt("SMTP_PORT"),
			SMTPUser: v.GetString("SMTP_USER"),
			SMTPPass: v.GetString("SMTP_PASSWORD"),
			UseTLS:   v.GetBool("SMTP_USE_TLS"),
		},
		Rollover: RolloverConfig{
			Enabled: v.GetBool("ENABLE_ROLLOVER"),
		},
	}

	interval, err := parseDuration(v.GetString("ROLLOVER_CHECK_INTERVAL"), time.Hour)
	if err != nil {
		return nil, &ConfigurationError{Key: "ROLLOVER_CHECK_INTERVAL", Reason: err.Error()}
	}
	cfg.Rollover.CheckInterval = interval

	maxCarry, err := decimal.NewFromString(strings.TrimSpace(v.GetString("SSHR_MAX_CARRY_OVER")))
	if err != nil {
		return nil, &ConfigurationError{Key: "SSHR_MAX_CARRY_OVER", Reason: err.Error()}
	}
	cfg.Leave = LeaveConfig{
		TimeZone:           v.GetString("TIME_ZONE"),
		MaxCarryOver:       maxCarry,
		DayLeaveValues:     v.GetString("SSHR_DAY_LEAVE_VALUES"),
		AllowOversubscribe: v.GetBool("SSHR_ALLOW_OVERSUBSCRIBE"),
		DefaultHour:        v.GetInt("SSHR_DEFAULT_TIME"),
		FreeDays:           v.GetString("SSHR_FREE_DAYS"),
		AdminGroup:         v.GetString("SSHR_ADMIN_USER_GROUP_NAME"),
		AdminEmails:        splitAndTrim(v.GetString("HR_ADMIN_EMAILS")),
		MaxSpanDays:        v.GetInt("SSHR_MAX_SPAN_DAYS"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("DB_DRIVER", "sqlite3")
	v.SetDefault("DB_DSN", "hr.db")

	v.SetDefault("TIME_ZONE", "UTC")
	v.SetDefault("SSHR_MAX_CARRY_OVER", "10")
	v.SetDefault("SSHR_DAY_LEAVE_VALUES", "1=1,2=1,3=1,4=1,5=1,6=0,7=0")
	v.SetDefault("SSHR_ALLOW_OVERSUBSCRIBE", true)
	v.SetDefault("SSHR_DEFAULT_TIME", 7)
	v.SetDefault("SSHR_FREE_DAYS", "")
	v.SetDefault("SSHR_ADMIN_USER_GROUP_NAME", "hr-admins")
	v.SetDefault("HR_ADMIN_EMAILS", "")
	v.SetDefault("SSHR_MAX_SPAN_DAYS", calendar.DefaultMaxSpanDays)

	v.SetDefault("EMAIL_ENABLED", false)
	v.SetDefault("EMAIL_FROM", "hr@localhost")
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_USE_TLS", true)

	v.SetDefault("ENABLE_ROLLOVER", true)
	v.SetDefault("ROLLOVER_CHECK_INTERVAL", "1h")
}

// Validate fails on the first bad setting.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return &ConfigurationError{Key: "DB_DRIVER", Reason: fmt.Sprintf("unsupported driver %q", c.Database.Driver)}
	}
	if _, err := time.LoadLocation(c.Leave.TimeZone); err != nil {
		return &ConfigurationError{Key: "TIME_ZONE", Reason: err.Error()}
	}
	if c.Leave.MaxCarryOver.IsNegative() {
		return &ConfigurationError{Key: "SSHR_MAX_CARRY_OVER", Reason: "must not be negative"}
	}
	if c.Leave.DefaultHour < 0 || c.Leave.DefaultHour > 23 {
		return &ConfigurationError{Key: "SSHR_DEFAULT_TIME", Reason: "must be an hour between 0 and 23"}
	}
	values, err := ParseWeekdayValues(c.Leave.DayLeaveValues)
	if err != nil {
		return &ConfigurationError{Key: "SSHR_DAY_LEAVE_VALUES", Reason: err.Error()}
	}
	if err := values.Validate(); err != nil {
		return &ConfigurationError{Key: "SSHR_DAY_LEAVE_VALUES", Reason: err.Error()}
	}
	if _, err := calendar.ParseRecurringDays(c.Leave.FreeDays); err != nil {
		return &ConfigurationError{Key: "SSHR_FREE_DAYS", Reason: err.Error()}
	}
	if c.Rollover.Enabled && c.Rollover.CheckInterval <= 0 {
		return &ConfigurationError{Key: "ROLLOVER_CHECK_INTERVAL", Reason: "must be positive"}
	}
	return nil
}

// Location is the configured time zone. Call after Validate.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Leave.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CalendarRules builds the day-counting rules.
func (c *Config) CalendarRules() (calendar.Rules, error) {
	values, err := ParseWeekdayValues(c.Leave.DayLeaveValues)
	if err != nil {
		return calendar.Rules{}, &ConfigurationError{Key: "SSHR_DAY_LEAVE_VALUES", Reason: err.Error()}
	}
	return calendar.NewRules(c.Location(), values, c.Leave.MaxSpanDays)
}

// LeavePolicy builds the entitlement policy.
func (c *Config) LeavePolicy() leave.Policy {
	return leave.Policy{
		MaxCarryOver:       c.Leave.MaxCarryOver,
		AllowOversubscribe: c.Leave.AllowOversubscribe,
	}
}

// FreeDayTemplate parses SSHR_FREE_DAYS.
func (c *Config) FreeDayTemplate() ([]calendar.RecurringDay, error) {
	return calendar.ParseRecurringDays(c.Leave.FreeDays)
}

// SMTP converts the email settings for notify.NewMailer.
func (c *Config) SMTP() notify.SMTPConfig {
	return notify.SMTPConfig{
		Enabled:  c.Email.Enabled,
		Host:     c.Email.SMTPHost,
		Port:     c.Email.SMTPPort,
		User:     c.Email.SMTPUser,
		Password: c.Email.SMTPPass,
		UseTLS:   c.Email.UseTLS,
	}
}

// ParseWeekdayValues parses "1=1,2=1,...,7=0" keyed by ISO weekday. Keys
// outside 1..7 and repeated keys are errors.
func ParseWeekdayValues(raw string) (calendar.WeekdayValues, error) {
	out := make(calendar.WeekdayValues, 7)
	for _, part := range splitAndTrim(raw) {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("%q: want weekday=value", part)
		}
		day, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			return nil, fmt.Errorf("%q: %w", part, err)
		}
		if day < 1 || day > 7 {
			return nil, fmt.Errorf("%q: weekday must be between 1 and 7", part)
		}
		if _, dup := out[day]; dup {
			return nil, fmt.Errorf("%q: weekday %d given twice", part, day)
		}
		d, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("%q: %w", part, err)
		}
		out[day] = d
	}
	return out, nil
}

// isMissingFile covers SetConfigFile, which reports a plain not-exist error.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	return time.ParseDuration(strings.TrimSpace(raw))
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
