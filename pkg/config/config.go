package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Legacy store drivers.
const (
	LegacyDriverMemory = "memory"
	LegacyDriverFile   = "file"
	LegacyDriverRedis  = "redis"
)

type Config struct {
	Env string

	Database  DatabaseConfig
	Legacy    LegacyConfig
	Migration MigrationConfig
	Export    ExportConfig
	Metrics   MetricsConfig
	Log       LogConfig
}

type DatabaseConfig struct {
	Path         string
	MaxOpenConns int
	BusyTimeout  time.Duration
}

// LegacyConfig selects the flat key-value store the records were kept in
// before the relational store existed.
type LegacyConfig struct {
	Driver    string
	FilePath  string
	KeyPrefix string
	Redis     RedisConfig
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// MigrationConfig tunes the one-shot legacy import.
type MigrationConfig struct {
	// PurgeLegacy is on unless MIGRATION_PURGE_LEGACY=false.
	PurgeLegacy bool
	BackupDir   string
	KeepKeys    []string
}

// ExportConfig controls where rendered exports land.
type ExportConfig struct {
	Dir       string
	Format    string
	Retention time.Duration
}

type MetricsConfig struct {
	TextfilePath string
}

type LogConfig struct {
	Level  string
	Format string
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

	cfg.Database = DatabaseConfig{
		Path:         v.GetString("DB_PATH"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		BusyTimeout:  parseDuration(v.GetString("DB_BUSY_TIMEOUT"), 5*time.Second),
	}

	cfg.Legacy = LegacyConfig{
		Driver:    strings.ToLower(v.GetString("LEGACY_DRIVER")),
		FilePath:  v.GetString("LEGACY_FILE_PATH"),
		KeyPrefix: v.GetString("LEGACY_KEY_PREFIX"),
		Redis: RedisConfig{
			Host:     v.GetString("LEGACY_REDIS_HOST"),
			Port:     v.GetInt("LEGACY_REDIS_PORT"),
			Password: v.GetString("LEGACY_REDIS_PASSWORD"),
			DB:       v.GetInt("LEGACY_REDIS_DB"),
		},
	}

	cfg.Migration = MigrationConfig{
		PurgeLegacy: v.GetBool("MIGRATION_PURGE_LEGACY"),
		BackupDir:   v.GetString("MIGRATION_BACKUP_DIR"),
		KeepKeys:    splitAndTrim(v.GetString("MIGRATION_KEEP_KEYS")),
	}

	cfg.Export = ExportConfig{
		Dir:       v.GetString("EXPORT_DIR"),
		Format:    strings.ToLower(v.GetString("EXPORT_FORMAT")),
		Retention: parseDuration(v.GetString("EXPORT_RETENTION"), 30*24*time.Hour),
	}

	cfg.Metrics = MetricsConfig{
		TextfilePath: v.GetString("METRICS_TEXTFILE"),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)

	v.SetDefault("DB_PATH", "./data/records.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", 1)
	v.SetDefault("DB_BUSY_TIMEOUT", "5s")

	v.SetDefault("LEGACY_DRIVER", LegacyDriverFile)
	v.SetDefault("LEGACY_FILE_PATH", "./data/legacy.json")
	v.SetDefault("LEGACY_KEY_PREFIX", "")
	v.SetDefault("LEGACY_REDIS_HOST", "localhost")
	v.SetDefault("LEGACY_REDIS_PORT", 6379)
	v.SetDefault("LEGACY_REDIS_PASSWORD", "")
	v.SetDefault("LEGACY_REDIS_DB", 0)

	v.SetDefault("MIGRATION_PURGE_LEGACY", true)
	v.SetDefault("MIGRATION_BACKUP_DIR", "./backups")
	v.SetDefault("MIGRATION_KEEP_KEYS", "sidebarHidden,activeYearId")

	v.SetDefault("EXPORT_DIR", "./exports")
	v.SetDefault("EXPORT_FORMAT", "json")
	v.SetDefault("EXPORT_RETENTION", "720h")

	v.SetDefault("METRICS_TEXTFILE", "")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
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
