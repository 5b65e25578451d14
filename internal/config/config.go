package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/rehberci/backupd/internal/domain"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Source   SourceConfig   `mapstructure:"source"`
	Store    StoreConfig    `mapstructure:"store"`
	Artifact ArtifactConfig `mapstructure:"artifact"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Server   ServerConfig   `mapstructure:"server"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

// SourceConfig points at the application database. Tables is the allow-list:
// the only collections a schedule or manual trigger may snapshot.
type SourceConfig struct {
	Path   string   `mapstructure:"path"`
	Tables []string `mapstructure:"tables"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type ArtifactConfig struct {
	Backend       string        `mapstructure:"backend"` // "local" or "s3"
	UploadTimeout time.Duration `mapstructure:"upload_timeout"`
	SignedURLTTL  time.Duration `mapstructure:"signed_url_ttl"`
	Local         LocalConfig   `mapstructure:"local"`
	S3            S3Config      `mapstructure:"s3"`
}

type LocalConfig struct {
	Path string `mapstructure:"path"`
}

type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
	Endpoint  string `mapstructure:"endpoint"`
}

// ScheduleConfig seeds the persisted schedule singleton on first start. After
// that the database copy is authoritative and these values are ignored.
type ScheduleConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Frequency      string   `mapstructure:"frequency"`
	TimeOfDay      string   `mapstructure:"time_of_day"`
	DayOfWeek      int      `mapstructure:"day_of_week"`
	DayOfMonth     int      `mapstructure:"day_of_month"`
	RetentionCount int      `mapstructure:"retention_count"`
	Tables         []string `mapstructure:"tables"`
}

type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("app.name", "backupd")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("store.path", "data/backupd.db")
	v.SetDefault("artifact.backend", "local")
	v.SetDefault("artifact.local.path", "data/artifacts")
	v.SetDefault("artifact.upload_timeout", "2m")
	v.SetDefault("artifact.signed_url_ttl", "15m")
	v.SetDefault("schedule.enabled", false)
	v.SetDefault("schedule.frequency", "daily")
	v.SetDefault("schedule.time_of_day", "03:00:00")
	v.SetDefault("schedule.day_of_week", 1)
	v.SetDefault("schedule.day_of_month", 1)
	v.SetDefault("schedule.retention_count", 10)
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.addr", ":8080")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Source.Path == "" {
		return fmt.Errorf("source.path is required")
	}
	if len(c.Source.Tables) == 0 {
		return fmt.Errorf("source.tables must list at least one table")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}

	switch c.Artifact.Backend {
	case "local":
		if c.Artifact.Local.Path == "" {
			return fmt.Errorf("artifact.local.path is required")
		}
	case "s3":
		if c.Artifact.S3.Region == "" {
			return fmt.Errorf("artifact.s3.region is required")
		}
		if c.Artifact.S3.Bucket == "" {
			return fmt.Errorf("artifact.s3.bucket is required")
		}
	default:
		return fmt.Errorf("unknown artifact backend: %s", c.Artifact.Backend)
	}

	if c.Artifact.UploadTimeout <= 0 {
		return fmt.Errorf("artifact.upload_timeout must be positive")
	}

	if _, err := c.DefaultSchedule(); err != nil {
		return err
	}

	if c.Server.Enabled && c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required when the server is enabled")
	}

	return nil
}

// DefaultSchedule converts the seed section into a domain schedule. Tables
// default to the full source allow-list when not set explicitly.
func (c *Config) DefaultSchedule() (domain.Schedule, error) {
	tod, err := domain.ParseTimeOfDay(c.Schedule.TimeOfDay)
	if err != nil {
		return domain.Schedule{}, fmt.Errorf("schedule.time_of_day: %w", err)
	}

	tables := c.Schedule.Tables
	if len(tables) == 0 {
		tables = c.Source.Tables
	}
	tables, err = domain.ValidateTables(tables, c.Source.Tables)
	if err != nil {
		return domain.Schedule{}, fmt.Errorf("schedule.tables: %w", err)
	}

	s := domain.Schedule{
		Enabled:        c.Schedule.Enabled,
		Frequency:      domain.Frequency(c.Schedule.Frequency),
		TimeOfDay:      tod,
		DayOfWeek:      c.Schedule.DayOfWeek,
		DayOfMonth:     c.Schedule.DayOfMonth,
		Tables:         tables,
		RetentionCount: c.Schedule.RetentionCount,
	}
	if err := s.Validate(); err != nil {
		return domain.Schedule{}, fmt.Errorf("schedule: %w", err)
	}
	return s, nil
}
