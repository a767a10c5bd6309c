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

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Allocation AllocationConfig
	Import     ImportConfig
	Tickets    TicketConfig
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

// AllocationConfig tunes seat allocation and the visibility sweep.
// RevealLead is how long before exam start a student's seat becomes
// visible; SweepInterval is the polling cadence of the background sweep.
type AllocationConfig struct {
	SeatsPerHall  int
	RevealLead    time.Duration
	SweepInterval time.Duration
	SweepEnabled  bool
	CacheTTL      time.Duration
}

// ImportConfig bounds bulk file uploads.
type ImportConfig struct {
	MaxUploadBytes int64
}

// TicketConfig controls hall ticket PDF generation and download links.
type TicketConfig struct {
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	WorkerConcurrency int
	WorkerRetries     int
	CollegeName       string
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
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	seatsPerHall := v.GetInt("SEATS_PER_HALL")
	if seatsPerHall <= 0 {
		seatsPerHall = 50
	}
	cfg.Allocation = AllocationConfig{
		SeatsPerHall:  seatsPerHall,
		RevealLead:    parseDuration(v.GetString("SEAT_REVEAL_LEAD"), 3*time.Hour),
		SweepInterval: parseDuration(v.GetString("SEAT_SWEEP_INTERVAL"), time.Minute),
		SweepEnabled:  v.GetBool("SEAT_SWEEP_ENABLED"),
		CacheTTL:      parseDuration(v.GetString("SEAT_CACHE_TTL"), time.Minute),
	}

	maxUpload := v.GetInt64("IMPORT_MAX_UPLOAD_SIZE")
	if maxUpload <= 0 {
		maxUpload = 5 * 1024 * 1024
	}
	cfg.Import = ImportConfig{MaxUploadBytes: maxUpload}

	cfg.Tickets = TicketConfig{
		StorageDir:        v.GetString("TICKETS_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("TICKETS_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("TICKETS_SIGNED_URL_TTL"), 24*time.Hour),
		WorkerConcurrency: v.GetInt("TICKETS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("TICKETS_WORKER_RETRIES"),
		CollegeName:       v.GetString("TICKETS_COLLEGE_NAME"),
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
	v.SetDefault("DB_NAME", "examdesk")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "examdesk-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SEATS_PER_HALL", 50)
	v.SetDefault("SEAT_REVEAL_LEAD", "3h")
	v.SetDefault("SEAT_SWEEP_INTERVAL", "1m")
	v.SetDefault("SEAT_SWEEP_ENABLED", true)
	v.SetDefault("SEAT_CACHE_TTL", "1m")

	v.SetDefault("IMPORT_MAX_UPLOAD_SIZE", 5*1024*1024)

	v.SetDefault("TICKETS_STORAGE_DIR", "./tickets")
	v.SetDefault("TICKETS_SIGNED_URL_SECRET", "dev_tickets_secret")
	v.SetDefault("TICKETS_SIGNED_URL_TTL", "24h")
	v.SetDefault("TICKETS_WORKER_CONCURRENCY", 1)
	v.SetDefault("TICKETS_WORKER_RETRIES", 3)
	v.SetDefault("TICKETS_COLLEGE_NAME", "Office of the Controller of Examinations")
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
