package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Scheduler SchedulerConfig
	Roster    RosterConfig
	Export    ExportConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulerConfig governs the monthly roster generation engine.
type SchedulerConfig struct {
	// Weekdays lists the recurring service days as two-letter rrule codes
	// (MO..SU). Defaults to TU,SA,SU: midweek culto, EBD, Sunday culto.
	Weekdays []string
	// PairLookbackMonths is how many prior months of EBD pair history are
	// excluded when forming a new professor pair. Minimum 1.
	PairLookbackMonths int
	// AllowRoomFallback permits assigning a fixed-room professor outside
	// their room when a specific-room slot has no other candidate.
	AllowRoomFallback bool
}

// RosterConfig tunes the read side of the roster API.
type RosterConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// ExportConfig gates the PDF/WhatsApp export endpoints.
type ExportConfig struct {
	Enabled bool
	Title   string
}

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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 30*24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	lookback := v.GetInt("SCHEDULER_PAIR_LOOKBACK_MONTHS")
	if lookback < 1 {
		lookback = 1
	}
	cfg.Scheduler = SchedulerConfig{
		Weekdays:           splitAndTrim(v.GetString("SCHEDULER_WEEKDAYS")),
		PairLookbackMonths: lookback,
		AllowRoomFallback:  v.GetBool("SCHEDULER_ALLOW_ROOM_FALLBACK"),
	}

	cfg.Roster = RosterConfig{
		CacheEnabled: v.GetBool("ROSTER_CACHE_ENABLED"),
		CacheTTL:     parseDuration(v.GetString("ROSTER_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Export = ExportConfig{
		Enabled: v.GetBool("ENABLE_EXPORT"),
		Title:   v.GetString("EXPORT_TITLE"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "escala")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "720h")
	v.SetDefault("JWT_ISSUER", "escala-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SCHEDULER_WEEKDAYS", "TU,SA,SU")
	v.SetDefault("SCHEDULER_PAIR_LOOKBACK_MONTHS", 1)
	v.SetDefault("SCHEDULER_ALLOW_ROOM_FALLBACK", false)

	v.SetDefault("ROSTER_CACHE_ENABLED", false)
	v.SetDefault("ROSTER_CACHE_TTL", "10m")

	v.SetDefault("ENABLE_EXPORT", true)
	v.SetDefault("EXPORT_TITLE", "Escala de Voluntários")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
