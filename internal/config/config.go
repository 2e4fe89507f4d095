package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const ConfigPathEnvVar = "CONFIG_PATH"

var DefaultConfigPaths = []string{"config.yaml", "config.yml"}

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Auth      AuthConfig      `koanf:"auth"`
	SMTP      SMTPConfig      `koanf:"smtp"`
	Log       LogConfig       `koanf:"log"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Reports   ReportsConfig   `koanf:"reports"`
}

type ServerConfig struct {
	Port        string `koanf:"port"`
	Env         string `koanf:"env"`
	FrontendURL string `koanf:"frontend_url"`
}

type DatabaseConfig struct {
	URL           string `koanf:"url"`
	MigrationsDir string `koanf:"migrations_dir"`
}

type RedisConfig struct {
	URL string `koanf:"url"`
}

type AuthConfig struct {
	JWTSecret string `koanf:"jwt_secret"`
}

type SMTPConfig struct {
	Host string `koanf:"host"`
	Port string `koanf:"port"`
	User string `koanf:"user"`
	Pass string `koanf:"pass"`
	From string `koanf:"from"`
	// RatePerSecond paces outgoing email sends.
	RatePerSecond float64 `koanf:"rate_per_second"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type SchedulerConfig struct {
	Enabled              bool          `koanf:"enabled"`
	FocusMonitorInterval time.Duration `koanf:"focus_monitor_interval"`
	DispatchInterval     time.Duration `koanf:"dispatch_interval"`
	DispatchBatch        int           `koanf:"dispatch_batch"`
	TickTimeout          time.Duration `koanf:"tick_timeout"`
}

type ReportsConfig struct {
	WeeklyGoalHours     float64 `koanf:"weekly_goal_hours"`
	InstructorMinCohort int     `koanf:"instructor_min_cohort"`
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:        "8080",
			Env:         "development",
			FrontendURL: "http://localhost:5173",
		},
		Database: DatabaseConfig{MigrationsDir: "migrations"},
		SMTP: SMTPConfig{
			Port:          "587",
			From:          "noreply@studypulse.app",
			RatePerSecond: 5,
		},
		Log: LogConfig{Level: "info", Format: "json"},
		Scheduler: SchedulerConfig{
			Enabled:              true,
			FocusMonitorInterval: 2 * time.Minute,
			DispatchInterval:     time.Minute,
			DispatchBatch:        100,
			TickTimeout:          90 * time.Second,
		},
		Reports: ReportsConfig{
			WeeklyGoalHours:     10,
			InstructorMinCohort: 5,
		},
	}
}

// envMappings maps environment variable names (lowercased) to koanf paths.
var envMappings = map[string]string{
	"port":                           "server.port",
	"env":                            "server.env",
	"frontend_url":                   "server.frontend_url",
	"database_url":                   "database.url",
	"migrations_dir":                 "database.migrations_dir",
	"redis_url":                      "redis.url",
	"jwt_secret":                     "auth.jwt_secret",
	"smtp_host":                      "smtp.host",
	"smtp_port":                      "smtp.port",
	"smtp_user":                      "smtp.user",
	"smtp_pass":                      "smtp.pass",
	"smtp_from":                      "smtp.from",
	"email_rate_per_second":          "smtp.rate_per_second",
	"log_level":                      "log.level",
	"log_format":                     "log.format",
	"scheduler_enabled":              "scheduler.enabled",
	"focus_monitor_interval":         "scheduler.focus_monitor_interval",
	"notification_dispatch_interval": "scheduler.dispatch_interval",
	"notification_dispatch_batch":    "scheduler.dispatch_batch",
	"tick_timeout":                   "scheduler.tick_timeout",
	"weekly_goal_hours":              "reports.weekly_goal_hours",
	"instructor_min_cohort":          "reports.instructor_min_cohort",
}

// envTransformFunc returns "" for variables we don't own so koanf skips them.
func envTransformFunc(key string) string {
	if path, ok := envMappings[strings.ToLower(key)]; ok {
		return path
	}
	return ""
}

// Load layers defaults, an optional YAML file and the environment (highest
// priority), then validates the result.
func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Redis.URL == "" {
		missing = append(missing, "REDIS_URL")
	}
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	s := c.Scheduler
	if s.FocusMonitorInterval <= 0 || s.DispatchInterval <= 0 || s.TickTimeout <= 0 {
		return fmt.Errorf("scheduler intervals and tick timeout must be positive")
	}
	if s.DispatchBatch < 1 {
		return fmt.Errorf("NOTIFICATION_DISPATCH_BATCH must be at least 1, got %d", s.DispatchBatch)
	}
	if c.Reports.InstructorMinCohort < 1 {
		return fmt.Errorf("INSTRUCTOR_MIN_COHORT must be at least 1, got %d", c.Reports.InstructorMinCohort)
	}
	if c.Reports.WeeklyGoalHours <= 0 {
		return fmt.Errorf("WEEKLY_GOAL_HOURS must be positive")
	}
	if c.SMTP.RatePerSecond <= 0 {
		return fmt.Errorf("EMAIL_RATE_PER_SECOND must be positive")
	}
	return nil
}

// IsDevelopment reports whether the server runs in local development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}
