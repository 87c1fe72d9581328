package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig
	Log      LogConfig
	UI       UIConfig
	Layout   LayoutConfig
	Chart    ChartConfig
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string
}

// LogConfig controls the zap logger. The TUI owns stdout, so logs go to a file.
type LogConfig struct {
	Path  string
	Level string
}

// UIConfig holds presentation settings.
type UIConfig struct {
	DateFormat     string `mapstructure:"date_format" yaml:"date_format"`
	CurrencySymbol string `mapstructure:"currency_symbol" yaml:"currency_symbol"`
	Timezone       string
}

// LayoutConfig holds the dashboard layout. TransitionMS is the one place the
// sidebar animation length is defined.
type LayoutConfig struct {
	TransitionMS     int  `mapstructure:"transition_ms" yaml:"transition_ms"`
	SidebarWidth     int  `mapstructure:"sidebar_width" yaml:"sidebar_width"`
	CollapsedWidth   int  `mapstructure:"collapsed_width" yaml:"collapsed_width"`
	SidebarCollapsed bool `mapstructure:"sidebar_collapsed" yaml:"sidebar_collapsed"`
}

// TransitionDuration is the sidebar transition length shared by the state
// store timer and the width animation.
func (l LayoutConfig) TransitionDuration() time.Duration {
	if l.TransitionMS <= 0 {
		return 300 * time.Millisecond
	}
	return time.Duration(l.TransitionMS) * time.Millisecond
}

// ChartConfig holds resize debounce intervals for the chart panel.
type ChartConfig struct {
	IdleDebounceMS       int `mapstructure:"idle_debounce_ms" yaml:"idle_debounce_ms"`
	TransitionDebounceMS int `mapstructure:"transition_debounce_ms" yaml:"transition_debounce_ms"`
}

func (c ChartConfig) IdleDebounce() time.Duration {
	return time.Duration(c.IdleDebounceMS) * time.Millisecond
}

func (c ChartConfig) TransitionDebounce() time.Duration {
	return time.Duration(c.TransitionDebounceMS) * time.Millisecond
}

func dataDir() string {
	return filepath.Join(os.Getenv("HOME"), ".local", "share", "pnljournal")
}

// Path returns the config file location, honouring PNLJOURNAL_CONFIG.
func Path() string {
	if p := os.Getenv("PNLJOURNAL_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "pnljournal", "config.toml")
}

// Load reads configuration from file and env. Env var overrides use prefix
// PNLJOURNAL_. A .env file in the working directory is loaded first.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()

	// default values
	v.SetDefault("database.path", filepath.Join(dataDir(), "pnljournal.db"))
	v.SetDefault("log.path", filepath.Join(dataDir(), "pnljournal.log"))
	v.SetDefault("log.level", "info")
	v.SetDefault("ui.date_format", "2006-01-02")
	v.SetDefault("ui.currency_symbol", "$")
	v.SetDefault("ui.timezone", "Local")
	v.SetDefault("layout.transition_ms", 300)
	v.SetDefault("layout.sidebar_width", 24)
	v.SetDefault("layout.collapsed_width", 4)
	v.SetDefault("layout.sidebar_collapsed", false)
	v.SetDefault("chart.idle_debounce_ms", 100)
	v.SetDefault("chart.transition_debounce_ms", 500)

	v.SetConfigType("toml")
	v.SetConfigFile(Path())

	v.SetEnvPrefix("PNLJOURNAL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	if err := v.ReadInConfig(); err != nil && !isMissing(err) {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

func isMissing(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

// Location resolves UI.Timezone, falling back to the local zone.
func (c Config) Location() (*time.Location, error) {
	if c.UI.Timezone == "" || c.UI.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.UI.Timezone)
	if err != nil {
		return time.Local, fmt.Errorf("load timezone %q: %w", c.UI.Timezone, err)
	}
	return loc, nil
}

// Save writes the provided config to disk, creating the config directory if needed.
func Save(cfg Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("database.path", cfg.Database.Path)
	v.Set("log.path", cfg.Log.Path)
	v.Set("log.level", cfg.Log.Level)
	v.Set("ui.date_format", cfg.UI.DateFormat)
	v.Set("ui.currency_symbol", cfg.UI.CurrencySymbol)
	v.Set("ui.timezone", cfg.UI.Timezone)
	v.Set("layout.transition_ms", cfg.Layout.TransitionMS)
	v.Set("layout.sidebar_width", cfg.Layout.SidebarWidth)
	v.Set("layout.collapsed_width", cfg.Layout.CollapsedWidth)
	v.Set("layout.sidebar_collapsed", cfg.Layout.SidebarCollapsed)
	v.Set("chart.idle_debounce_ms", cfg.Chart.IdleDebounceMS)
	v.Set("chart.transition_debounce_ms", cfg.Chart.TransitionDebounceMS)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
