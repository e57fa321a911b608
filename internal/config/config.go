package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Transport TransportConfig `yaml:"transport"`
	Log       LogConfig       `yaml:"log"`
	Data      DataConfig      `yaml:"data"`
	Chart     ChartConfig     `yaml:"chart"`
	Window    WindowConfig    `yaml:"window"`
	Auth      AuthConfig      `yaml:"auth"`
	Identity  IdentityConfig  `yaml:"identity"`
	Catalog   CatalogConfig   `yaml:"catalog"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type TransportConfig struct {
	// Mode is "http" or "stdio".
	Mode string `yaml:"mode"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

type DataConfig struct {
	Dir string `yaml:"dir"`
}

type ChartConfig struct {
	InitialWeekID     int  `yaml:"initial_week_id"`
	MaxVotesPerUser   int  `yaml:"max_votes_per_user"`
	TopN              int  `yaml:"top_n"`
	MaxWeeksInChart   int  `yaml:"max_weeks_in_chart"`
	ArchiveOnRollover bool `yaml:"archive_on_rollover"`
}

type WindowConfig struct {
	Weekday  string `yaml:"weekday"`
	Time     string `yaml:"time"`
	Timezone string `yaml:"timezone"`
}

type AuthConfig struct {
	AdminToken string `yaml:"admin_token"`
}

type IdentityConfig struct {
	BotToken        string        `yaml:"bot_token"`
	MaxAge          time.Duration `yaml:"max_age"`
	AllowUnverified bool          `yaml:"allow_unverified"`
}

type CatalogConfig struct {
	BaseURL       string        `yaml:"base_url"`
	Timeout       time.Duration `yaml:"timeout"`
	RatePerSecond float64       `yaml:"rate_per_second"`
	Country       string        `yaml:"country"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Transport: TransportConfig{
			Mode: "http",
		},
		Log: LogConfig{
			Level: "info",
		},
		Data: DataConfig{
			Dir: "data",
		},
		Chart: ChartConfig{
			InitialWeekID:     1,
			MaxVotesPerUser:   10,
			TopN:              20,
			MaxWeeksInChart:   10,
			ArchiveOnRollover: true,
		},
		Window: WindowConfig{
			Weekday:  "saturday",
			Time:     "18:00",
			Timezone: "Europe/Moscow",
		},
		Identity: IdentityConfig{
			MaxAge: 24 * time.Hour,
		},
		Catalog: CatalogConfig{
			BaseURL:       "https://itunes.apple.com",
			Timeout:       10 * time.Second,
			RatePerSecond: 2,
			Country:       "US",
		},
	}
}

// Load reads configuration from an optional .env file, an optional YAML
// file and environment variables, in that order of precedence (lowest first).
func Load() (Config, error) {
	envFile := os.Getenv("HITPARADE_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	cfg := Default()

	if path := os.Getenv("HITPARADE_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports settings that cannot work. A missing admin token is
// allowed; admin calls fail at request time instead.
func (c Config) Validate() error {
	switch c.Transport.Mode {
	case "http", "stdio":
	default:
		return fmt.Errorf("invalid transport mode %q", c.Transport.Mode)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if strings.TrimSpace(c.Data.Dir) == "" {
		return errors.New("data dir is required")
	}
	if c.Chart.InitialWeekID < 1 {
		return fmt.Errorf("invalid initial week id %d", c.Chart.InitialWeekID)
	}
	if c.Chart.MaxVotesPerUser < 1 {
		return fmt.Errorf("invalid max votes per user %d", c.Chart.MaxVotesPerUser)
	}
	if c.Chart.TopN < 1 || c.Chart.MaxWeeksInChart < 1 {
		return errors.New("top_n and max_weeks_in_chart must be positive")
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Server.Host, "HITPARADE_SERVER_HOST")
	if err := setInt(&cfg.Server.Port, "HITPARADE_SERVER_PORT"); err != nil {
		return err
	}
	setString(&cfg.Transport.Mode, "HITPARADE_TRANSPORT_MODE")
	setString(&cfg.Log.Level, "HITPARADE_LOG_LEVEL")
	setString(&cfg.Log.Path, "HITPARADE_LOG_PATH")
	setString(&cfg.Data.Dir, "HITPARADE_DATA_DIR")

	if err := setInt(&cfg.Chart.InitialWeekID, "CURRENT_WEEK_ID"); err != nil {
		return err
	}
	if err := setInt(&cfg.Chart.InitialWeekID, "HITPARADE_INITIAL_WEEK_ID"); err != nil {
		return err
	}
	if err := setInt(&cfg.Chart.MaxVotesPerUser, "HITPARADE_MAX_VOTES_PER_USER"); err != nil {
		return err
	}
	if err := setInt(&cfg.Chart.TopN, "HITPARADE_TOP_N"); err != nil {
		return err
	}
	if err := setInt(&cfg.Chart.MaxWeeksInChart, "HITPARADE_MAX_WEEKS_IN_CHART"); err != nil {
		return err
	}
	if err := setBool(&cfg.Chart.ArchiveOnRollover, "HITPARADE_ARCHIVE_ON_ROLLOVER"); err != nil {
		return err
	}

	setString(&cfg.Window.Weekday, "HITPARADE_WINDOW_WEEKDAY")
	setString(&cfg.Window.Time, "HITPARADE_WINDOW_TIME")
	setString(&cfg.Window.Timezone, "HITPARADE_WINDOW_TIMEZONE")

	setString(&cfg.Auth.AdminToken, "ADMIN_TOKEN")
	setString(&cfg.Auth.AdminToken, "HITPARADE_ADMIN_TOKEN")

	setString(&cfg.Identity.BotToken, "HITPARADE_BOT_TOKEN")
	if err := setDuration(&cfg.Identity.MaxAge, "HITPARADE_IDENTITY_MAX_AGE"); err != nil {
		return err
	}
	if err := setBool(&cfg.Identity.AllowUnverified, "HITPARADE_ALLOW_UNVERIFIED"); err != nil {
		return err
	}

	setString(&cfg.Catalog.BaseURL, "HITPARADE_CATALOG_BASE_URL")
	setString(&cfg.Catalog.Country, "HITPARADE_CATALOG_COUNTRY")
	if err := setDuration(&cfg.Catalog.Timeout, "HITPARADE_CATALOG_TIMEOUT"); err != nil {
		return err
	}
	if v := os.Getenv("HITPARADE_CATALOG_RATE_PER_SECOND"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid HITPARADE_CATALOG_RATE_PER_SECOND: %w", err)
		}
		cfg.Catalog.RatePerSecond = rate
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
