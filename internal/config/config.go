package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	Database   DatabaseConfig
	JWT        JWTConfig
	App        AppConfig
	Storage    StorageConfig
	Office     OfficeConfig
	Attendance AttendanceConfig
	Session    SessionConfig
	Cron       CronConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration time.Duration
}

// AppConfig holds application configuration
type AppConfig struct {
	Port               int
	Env                string
	LogLevel           string
	Timezone           *time.Location
	CORSAllowedOrigins []string
}

// StorageConfig selects the repository driver and where screenshots live.
type StorageConfig struct {
	Driver   string
	BasePath string
}

// OfficeConfig is the reference point for remote classification.
type OfficeConfig struct {
	Latitude              float64
	Longitude             float64
	RemoteThresholdMeters float64
}

type AttendanceConfig struct {
	NightLateGrace time.Duration
	CheckoutGrace  time.Duration
	HalfDayHours   float64
}

type SessionConfig struct {
	ScreenshotCeiling int
	StaleAfter        time.Duration
}

type CronConfig struct {
	Interval time.Duration
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var p parser
	config := &Config{}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     p.getInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "hris_timekeeping"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: int32(p.getInt("DB_MAX_CONNS", 25)),
	}

	config.App = AppConfig{
		Port:               p.getInt("APP_PORT", 8080),
		Env:                getEnv("APP_ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Timezone:           p.getLocation("APP_TIMEZONE", "UTC"),
		CORSAllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS"),
	}

	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: p.getDuration("JWT_ACCESS_EXPIRATION_TIME", time.Hour),
	}

	config.Storage = StorageConfig{
		Driver:   getEnv("STORAGE_DRIVER", StorageDriverPostgres),
		BasePath: getEnv("FILE_STORAGE_PATH", "./uploads"),
	}

	config.Office = OfficeConfig{
		Latitude:              p.getFloat("OFFICE_LATITUDE", 0),
		Longitude:             p.getFloat("OFFICE_LONGITUDE", 0),
		RemoteThresholdMeters: p.getFloat("REMOTE_THRESHOLD_METERS", 5000),
	}

	config.Attendance = AttendanceConfig{
		NightLateGrace: p.getDuration("NIGHT_LATE_GRACE", 30*time.Minute),
		CheckoutGrace:  p.getDuration("CHECKOUT_GRACE", 2*time.Hour),
		HalfDayHours:   p.getFloat("HALF_DAY_HOURS", 4),
	}

	config.Session = SessionConfig{
		ScreenshotCeiling: p.getInt("SCREENSHOT_CEILING", 2000),
		StaleAfter:        p.getDuration("SESSION_STALE_AFTER", 12*time.Hour),
	}

	config.Cron = CronConfig{
		Interval: p.getDuration("CRON_INTERVAL", 15*time.Minute),
	}

	if p.err != nil {
		return nil, p.err
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	switch c.Storage.Driver {
	case StorageDriverPostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q", StorageDriverPostgres, StorageDriverMemory)
	}
	if c.Office.Latitude < -90 || c.Office.Latitude > 90 {
		return fmt.Errorf("OFFICE_LATITUDE must be between -90 and 90")
	}
	if c.Office.Longitude < -180 || c.Office.Longitude > 180 {
		return fmt.Errorf("OFFICE_LONGITUDE must be between -180 and 180")
	}
	if c.Session.ScreenshotCeiling <= 0 {
		return fmt.Errorf("SCREENSHOT_CEILING must be positive")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.App.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// parser records the first malformed variable so Load can report it once.
type parser struct {
	err error
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
}

func (p *parser) getInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		p.fail(key, value, err)
		return fallback
	}
	return n
}

func (p *parser) getFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		p.fail(key, value, err)
		return fallback
	}
	return f
}

func (p *parser) getDuration(key string, fallback time.Duration) time.Duration {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		p.fail(key, value, err)
		return fallback
	}
	return d
}

func (p *parser) getLocation(key, fallback string) *time.Location {
	value := getEnv(key, fallback)
	loc, err := time.LoadLocation(value)
	if err != nil {
		p.fail(key, value, err)
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
