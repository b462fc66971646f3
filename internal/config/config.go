// YAML config loader with CUE validation integration
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"drivesim/internal/telemetry"
)

// Duration wraps time.Duration so YAML can carry values like "500ms".
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Storage selects where telemetry and alerts get persisted. Empty fields
// disable the corresponding sink; the in-memory store is always present.
type Storage struct {
	PostgresURL      string `yaml:"postgres_url"`
	RedisAddr        string `yaml:"redis_addr"`
	RedisPassword    string `yaml:"redis_password"`
	RedisDB          int    `yaml:"redis_db"`
	GreptimeEndpoint string `yaml:"greptime_endpoint"`
	GreptimeDatabase string `yaml:"greptime_database"`
	TelemetryFile    string `yaml:"telemetry_file"`
	AlertFile        string `yaml:"alert_file"`
}

// Config is the root configuration for the telemetry server.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	AdminAddr  string `yaml:"admin_addr"`
	LogLevel   string `yaml:"log_level"`

	TickInterval   Duration `yaml:"tick_interval"`
	AlertCooldown  Duration `yaml:"alert_cooldown"`
	SweepInterval  Duration `yaml:"sweep_interval"`
	StaleThreshold Duration `yaml:"stale_threshold"`

	// StopWhenUnwatched stops a session's simulation once its last
	// subscriber disconnects.
	StopWhenUnwatched bool `yaml:"stop_when_unwatched"`

	OriginLat float64 `yaml:"origin_lat"`
	OriginLng float64 `yaml:"origin_lng"`

	Motion  telemetry.MotionParams `yaml:"motion"`
	Storage Storage                `yaml:"storage"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		ListenAddr:        ":8080",
		AdminAddr:         ":8081",
		LogLevel:          "info",
		TickInterval:      Duration(time.Second),
		AlertCooldown:     Duration(5 * time.Second),
		SweepInterval:     Duration(30 * time.Second),
		StaleThreshold:    Duration(60 * time.Second),
		StopWhenUnwatched: true,
		OriginLat:         40.7128,
		OriginLng:         -74.0060,
		Motion:            telemetry.DefaultMotionParams(),
	}
}

// Load loads YAML config and validates it against a CUE schema. Unset
// fields keep their defaults; environment variables override storage
// endpoints last.
func Load(configPath, cueSchemaPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if cueSchemaPath != "" {
			if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
				return nil, err
			}
		}
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv layers environment overrides on top of the file, so deploys
// can inject credentials without editing YAML.
func (c *Config) applyEnv() {
	if v := os.Getenv("DRIVESIM_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("DRIVESIM_POSTGRES_URL"); v != "" {
		c.Storage.PostgresURL = v
	}
	if v := os.Getenv("DRIVESIM_REDIS_ADDR"); v != "" {
		c.Storage.RedisAddr = v
	}
	if v := os.Getenv("DRIVESIM_REDIS_PASSWORD"); v != "" {
		c.Storage.RedisPassword = v
	}
	if v := os.Getenv("DRIVESIM_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.Storage.RedisDB = db
		}
	}
	if v := os.Getenv("DRIVESIM_GREPTIME_ENDPOINT"); v != "" {
		c.Storage.GreptimeEndpoint = v
	}
	if v := os.Getenv("DRIVESIM_GREPTIME_DATABASE"); v != "" {
		c.Storage.GreptimeDatabase = v
	}
}

func (c *Config) check() error {
	if c.TickInterval.Std() <= 0 {
		return fmt.Errorf("tick_interval must be positive, got %s", c.TickInterval.Std())
	}
	if c.AlertCooldown.Std() < 0 {
		return fmt.Errorf("alert_cooldown must not be negative, got %s", c.AlertCooldown.Std())
	}
	if c.Motion.SpeedMin >= c.Motion.SpeedMax {
		return fmt.Errorf("motion speed bounds invalid: min %.1f >= max %.1f", c.Motion.SpeedMin, c.Motion.SpeedMax)
	}
	if c.Motion.ObstacleMin >= c.Motion.ObstacleMax {
		return fmt.Errorf("motion obstacle bounds invalid: min %.1f >= max %.1f", c.Motion.ObstacleMin, c.Motion.ObstacleMax)
	}
	return nil
}
