// Package config loads oxy-motion settings from YAML, an optional .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings.
const (
	EnvDataDir  = "OXY_MOTION_DATA_DIR"
	EnvLogLevel = "OXY_MOTION_LOG_LEVEL"
	EnvAddr     = "OXY_MOTION_ADDR"
)

// Config holds the full oxy-motion configuration.
type Config struct {
	DataDir      string        `yaml:"data_dir"`
	DefaultFile  string        `yaml:"default_file"`
	MotionsURL   string        `yaml:"motions_url"` // when set, motions are fetched over HTTP instead of from DataDir
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	FetchWorkers int           `yaml:"fetch_workers"`
	LogLevel     string        `yaml:"log_level"`  // debug | info | warn | error
	LogFormat    string        `yaml:"log_format"` // text | json
	Server       ServerConfig  `yaml:"server"`
	Viewer       ViewerConfig  `yaml:"viewer"`
}

// ServerConfig configures the HTTP motion file server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// ViewerConfig configures the desktop viewer.
type ViewerConfig struct {
	Title      string  `yaml:"title"`
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	FPS        float64 `yaml:"fps"`
	FrameLimit float64 `yaml:"frame_limit"`
	VSync      bool    `yaml:"vsync"`
	MSAA       bool    `yaml:"msaa"`
	Profiling  bool    `yaml:"profiling"`
}

// DefaultConfig returns the settings used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		DataDir:      ".",
		DefaultFile:  "motions.json",
		FetchTimeout: 30 * time.Second,
		LogLevel:     "info",
		LogFormat:    "text",
		Server: ServerConfig{
			Addr: ":8080",
		},
		Viewer: ViewerConfig{
			Title:  "oxy-motion",
			Width:  1280,
			Height: 720,
			FPS:    20,
			VSync:  true,
			MSAA:   true,
		},
	}
}

// LoadConfig reads a YAML config file over DefaultConfig, then applies environment overrides.
// An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, cfg.Validate()
}

// LoadEnv loads a .env file into the process environment. A missing file is not an error.
// Variables already set are left alone.
func LoadEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
}

// applyDefaults fills zero values a partial file may have cleared.
func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.DataDir == "" {
		c.DataDir = d.DataDir
	}
	if c.DefaultFile == "" {
		c.DefaultFile = d.DefaultFile
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = d.FetchTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = d.LogFormat
	}
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Viewer.Title == "" {
		c.Viewer.Title = d.Viewer.Title
	}
	if c.Viewer.Width == 0 {
		c.Viewer.Width = d.Viewer.Width
	}
	if c.Viewer.Height == 0 {
		c.Viewer.Height = d.Viewer.Height
	}
	if c.Viewer.FPS == 0 {
		c.Viewer.FPS = d.Viewer.FPS
	}
}

// Validate checks that values are sane.
func (c *Config) Validate() error {
	if c.FetchTimeout < 0 {
		return fmt.Errorf("fetch_timeout must be >= 0")
	}
	if c.FetchWorkers < 0 {
		return fmt.Errorf("fetch_workers must be >= 0")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log_format %q (use text or json)", c.LogFormat)
	}
	if c.Viewer.Width < 0 || c.Viewer.Height < 0 {
		return fmt.Errorf("viewer size must be >= 0")
	}
	if c.Viewer.FPS < 0 {
		return fmt.Errorf("viewer.fps must be > 0")
	}
	if c.Viewer.FrameLimit < 0 {
		return fmt.Errorf("viewer.frame_limit must be >= 0")
	}
	if c.MotionsURL != "" && !strings.HasPrefix(c.MotionsURL, "http://") && !strings.HasPrefix(c.MotionsURL, "https://") {
		return fmt.Errorf("motions_url must be an http(s) URL, got %q", c.MotionsURL)
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unsupported log_level %q", name)
}

// NewLogger builds the process logger described by the config.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	lvl, _ := ParseLevel(c.LogLevel)
	opts := &slog.HandlerOptions{Level: lvl}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
