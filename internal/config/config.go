package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix prefixes every environment override, e.g. PORTFOLIO_SERVER_PORT.
const EnvPrefix = "PORTFOLIO"

// AppConfig is the application configuration.
type AppConfig struct {
	Server   ServerConfig   `toml:"server" envconfig:"SERVER"`
	Data     DataConfig     `toml:"data" envconfig:"DATA"`
	Insights InsightsConfig `toml:"insights" envconfig:"INSIGHTS"`
	Logging  LoggingConfig  `toml:"logging" envconfig:"LOGGING"`
	Tracking TrackingConfig `toml:"tracking" envconfig:"TRACKING"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port            int      `toml:"port" envconfig:"PORT"`
	Mode            string   `toml:"mode" envconfig:"GIN_MODE"`
	ReadTimeout     Duration `toml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    Duration `toml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	ShutdownTimeout Duration `toml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// DataConfig locates the admissions export and the tracking database.
type DataConfig struct {
	CSVPath string `toml:"csv_path" envconfig:"CSV_PATH"`
	DBPath  string `toml:"db_path" envconfig:"DB_PATH"`
}

// InsightsConfig holds the dashboard defaults.
type InsightsConfig struct {
	MinWishes   int `toml:"min_wishes" envconfig:"MIN_WISHES"`
	PairsN      int `toml:"pairs_n" envconfig:"PAIRS_N"`
	TrendsN     int `toml:"trends_n" envconfig:"TRENDS_N"`
	FormationsN int `toml:"formations_n" envconfig:"FORMATIONS_N"`
	TotalsN     int `toml:"totals_n" envconfig:"TOTALS_N"`
}

// LoggingConfig configures slog.
type LoggingConfig struct {
	Level  string `toml:"level" envconfig:"LEVEL"`
	Format string `toml:"format" envconfig:"FORMAT"`
}

// TrackingConfig configures privacy-conscious view tracking.
type TrackingConfig struct {
	Enabled       bool `toml:"enabled" envconfig:"ENABLED"`
	RetentionDays int  `toml:"retention_days" envconfig:"RETENTION_DAYS"`

	// ExposeRecent lists individual views (hashed address, user agent) in
	// the public stats payload. Aggregates are always served.
	ExposeRecent bool `toml:"expose_recent" envconfig:"EXPOSE_RECENT"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:            8080,
			Mode:            "release",
			ReadTimeout:     Duration(15 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Data: DataConfig{
			CSVPath: "database.csv",
			DBPath:  "data/portfolio.db",
		},
		Insights: InsightsConfig{
			MinWishes:   1000,
			PairsN:      10,
			TrendsN:     10,
			FormationsN: 10,
			TotalsN:     15,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracking: TrackingConfig{
			Enabled:       true,
			RetentionDays: 365,
		},
	}
}

// Load builds the configuration from defaults, an optional TOML file and
// PORTFOLIO_* environment variables, in that order of precedence (last wins).
// The file path comes from PORTFOLIO_CONFIG, falling back to config.toml.
//
// envconfig also falls back to the bare tag name, so the PORT and GIN_MODE
// variables set by hosting platforms apply when no PORTFOLIO_* key is set.
func Load() (*AppConfig, error) {
	path := os.Getenv(EnvPrefix + "_CONFIG")
	if path == "" {
		path = "config.toml"
	}
	return LoadFile(path)
}

// LoadFile is Load with an explicit TOML path. A missing file is not an error.
func LoadFile(path string) (*AppConfig, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("server.mode %q must be debug, release or test", c.Server.Mode))
	}
	if c.Data.CSVPath == "" {
		errs = append(errs, errors.New("data.csv_path is empty"))
	}
	if c.Tracking.Enabled && c.Data.DBPath == "" {
		errs = append(errs, errors.New("data.db_path is empty while tracking is enabled"))
	}
	if c.Insights.MinWishes < 0 {
		errs = append(errs, fmt.Errorf("insights.min_wishes %d is negative", c.Insights.MinWishes))
	}
	for name, n := range map[string]int{
		"insights.pairs_n":      c.Insights.PairsN,
		"insights.trends_n":     c.Insights.TrendsN,
		"insights.formations_n": c.Insights.FormationsN,
		"insights.totals_n":     c.Insights.TotalsN,
	} {
		if n <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, n))
		}
	}
	if c.Tracking.RetentionDays < 0 {
		errs = append(errs, fmt.Errorf("tracking.retention_days %d is negative", c.Tracking.RetentionDays))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Duration is a time.Duration written as "15s" in TOML and the environment.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}
