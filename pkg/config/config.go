package config

import (
	"errors"
	"io/fs"
	"strconv"
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
	Metrics   MetricsConfig
	Scheduler SchedulerConfig
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
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds the verification side of the token contract. Tokens are issued elsewhere.
type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// SchedulerLimits mirrors the engine's per-teacher and per-subject caps.
type SchedulerLimits struct {
	MaxConsecutive  int
	MaxDailyLoad    int
	MaxSubjectDaily int
}

// SchedulerConfig tunes timetable generation and the batch worker.
type SchedulerConfig struct {
	Enabled          bool
	ProposalTTL      time.Duration
	DefaultStrategy  string
	Timeout          time.Duration
	PopulationSize   int
	Generations      int
	MutationRate     float64
	Seed             int64
	Days             []int
	PeriodsPerDay    int
	BreakPeriods     []int
	FillFreePeriods  bool
	FallbackToGreedy bool
	Limits           SchedulerLimits

	BatchWorkers     int
	BatchBuffer      int
	BatchRetries     int
	BatchConcurrency int
	BatchStatusTTL   time.Duration
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
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
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
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Metrics = MetricsConfig{
		Enabled: v.GetBool("ENABLE_METRICS"),
		Path:    v.GetString("METRICS_PATH"),
	}

	cfg.Scheduler = SchedulerConfig{
		Enabled:          v.GetBool("ENABLE_SCHEDULER"),
		ProposalTTL:      parseDuration(v.GetString("SCHEDULER_PROPOSAL_TTL"), 30*time.Minute),
		DefaultStrategy:  v.GetString("SCHEDULER_DEFAULT_STRATEGY"),
		Timeout:          parseDuration(v.GetString("SCHEDULER_TIMEOUT"), 5*time.Second),
		PopulationSize:   v.GetInt("SCHEDULER_POPULATION_SIZE"),
		Generations:      v.GetInt("SCHEDULER_GENERATIONS"),
		MutationRate:     v.GetFloat64("SCHEDULER_MUTATION_RATE"),
		Seed:             v.GetInt64("SCHEDULER_SEED"),
		Days:             splitInts(v.GetString("SCHEDULER_DAYS")),
		PeriodsPerDay:    v.GetInt("SCHEDULER_PERIODS_PER_DAY"),
		BreakPeriods:     splitInts(v.GetString("SCHEDULER_BREAK_PERIODS")),
		FillFreePeriods:  v.GetBool("SCHEDULER_FILL_FREE_PERIODS"),
		FallbackToGreedy: v.GetBool("SCHEDULER_FALLBACK_TO_GREEDY"),
		Limits: SchedulerLimits{
			MaxConsecutive:  v.GetInt("SCHEDULER_MAX_CONSECUTIVE"),
			MaxDailyLoad:    v.GetInt("SCHEDULER_MAX_DAILY_LOAD"),
			MaxSubjectDaily: v.GetInt("SCHEDULER_MAX_SUBJECT_DAILY"),
		},
		BatchWorkers:     v.GetInt("SCHEDULER_BATCH_WORKERS"),
		BatchBuffer:      v.GetInt("SCHEDULER_BATCH_BUFFER"),
		BatchRetries:     v.GetInt("SCHEDULER_BATCH_RETRIES"),
		BatchConcurrency: v.GetInt("SCHEDULER_BATCH_CONCURRENCY"),
		BatchStatusTTL:   parseDuration(v.GetString("SCHEDULER_BATCH_STATUS_TTL"), 24*time.Hour),
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
	v.SetDefault("DB_NAME", "sma_timetable")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_REDIS", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_METRICS", true)
	v.SetDefault("METRICS_PATH", "/metrics")

	v.SetDefault("ENABLE_SCHEDULER", true)
	v.SetDefault("SCHEDULER_PROPOSAL_TTL", "30m")
	v.SetDefault("SCHEDULER_DEFAULT_STRATEGY", "greedy")
	v.SetDefault("SCHEDULER_TIMEOUT", "5s")
	v.SetDefault("SCHEDULER_POPULATION_SIZE", 30)
	v.SetDefault("SCHEDULER_GENERATIONS", 80)
	v.SetDefault("SCHEDULER_MUTATION_RATE", 0.15)
	v.SetDefault("SCHEDULER_SEED", 0)
	v.SetDefault("SCHEDULER_DAYS", "1,2,3,4,5")
	v.SetDefault("SCHEDULER_PERIODS_PER_DAY", 8)
	v.SetDefault("SCHEDULER_BREAK_PERIODS", "")
	v.SetDefault("SCHEDULER_FILL_FREE_PERIODS", false)
	v.SetDefault("SCHEDULER_FALLBACK_TO_GREEDY", false)
	v.SetDefault("SCHEDULER_MAX_CONSECUTIVE", 2)
	v.SetDefault("SCHEDULER_MAX_DAILY_LOAD", 6)
	v.SetDefault("SCHEDULER_MAX_SUBJECT_DAILY", 3)
	v.SetDefault("SCHEDULER_BATCH_WORKERS", 1)
	v.SetDefault("SCHEDULER_BATCH_BUFFER", 16)
	v.SetDefault("SCHEDULER_BATCH_RETRIES", 1)
	v.SetDefault("SCHEDULER_BATCH_CONCURRENCY", 4)
	v.SetDefault("SCHEDULER_BATCH_STATUS_TTL", "24h")
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

// splitInts parses a comma separated integer list, skipping malformed entries.
func splitInts(raw string) []int {
	parts := splitAndTrim(raw)
	if len(parts) == 0 {
		return nil
	}
	result := make([]int, 0, len(parts))
	for _, part := range parts {
		value, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		result = append(result, value)
	}
	return result
}
