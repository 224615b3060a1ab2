// Package config holds handauth settings. Values come from defaults, then
// the YAML config file, then the environment, then command-line flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const (
	AppName           = "handauth"
	DefaultConfigFile = "config.yaml"

	DefaultServerURL  = "http://127.0.0.1:5000"
	DefaultListenAddr = "127.0.0.1:8085"
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"

	DefaultCameraWidth  = 640
	DefaultCameraHeight = 480
	DefaultFacingMode   = "user"
	DefaultJPEGQuality  = 0.95

	ServerEnv = "HANDAUTH_SERVER"
)

var (
	ErrConfigNotFound    = errors.New("configuration file not found")
	ErrInvalidServerURL  = errors.New("invalid server url: must be an absolute http or https url")
	ErrInvalidTimeout    = errors.New("invalid timeout: must be non-negative")
	ErrInvalidResolution = errors.New("invalid camera resolution: width and height must be positive")
	ErrInvalidQuality    = errors.New("invalid jpeg quality: must be in (0, 1]")
	ErrInvalidLogLevel   = errors.New("invalid log level: use debug, info, warn or error")
	ErrInvalidLogFormat  = errors.New("invalid log format: use text or json")
)

type Camera struct {
	Device     int     `yaml:"device"`
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	FacingMode string  `yaml:"facingMode"`
	Quality    float64 `yaml:"quality"`
	// Still replaces the live camera with an image file.
	Still string `yaml:"still,omitempty"`
	// ClearFrameOnStop drops the captured frame when the camera stops.
	ClearFrameOnStop bool `yaml:"clearFrameOnStop"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file,omitempty"`
}

type Session struct {
	// Persist keeps the server session cookie between runs.
	Persist       bool   `yaml:"persist"`
	Dir           string `yaml:"dir,omitempty"`
	MasterKeyFile string `yaml:"masterKeyFile,omitempty"`
}

type Config struct {
	Server string `yaml:"server"`
	// Timeout bounds each request. Zero disables it.
	Timeout time.Duration `yaml:"timeout"`
	Listen  string        `yaml:"listen"`
	// CADir holds extra PEM certificates trusted for the server.
	CADir   string  `yaml:"caDir,omitempty"`
	Camera  Camera  `yaml:"camera"`
	Log     Log     `yaml:"log"`
	Session Session `yaml:"session"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: DefaultServerURL,
		Listen: DefaultListenAddr,
		Camera: Camera{
			Width:      DefaultCameraWidth,
			Height:     DefaultCameraHeight,
			FacingMode: DefaultFacingMode,
			Quality:    DefaultJPEGQuality,
		},
		Log: Log{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Session: Session{
			Persist: true,
			Dir:     filepath.Join(XDGDataDir(), "sessions"),
		},
	}
}

func XDGConfigDir() string { return filepath.Join(xdg.ConfigHome, AppName) }
func XDGDataDir() string   { return filepath.Join(xdg.DataHome, AppName) }

// DefaultPath is where the config file lives when --config is not given.
func DefaultPath() string { return filepath.Join(XDGConfigDir(), DefaultConfigFile) }

// Load starts from Default, overlays the file at path and the environment.
// An empty path tries DefaultPath and tolerates its absence; an explicit
// path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if err := cfg.loadFile(path); err != nil {
		if !errors.Is(err, ErrConfigNotFound) || explicit {
			return nil, err
		}
	}

	if s := os.Getenv(ServerEnv); s != "" {
		cfg.Server = s
	}
	cfg.Server = strings.TrimRight(cfg.Server, "/")
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // user-selected config path
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// Validate returns the first problem found.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidServerURL
	}
	if c.Timeout < 0 {
		return ErrInvalidTimeout
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return ErrInvalidResolution
	}
	if c.Camera.Quality <= 0 || c.Camera.Quality > 1 {
		return ErrInvalidQuality
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return ErrInvalidLogFormat
	}
	return nil
}

// Write saves c as YAML at path, creating parent directories.
func (c *Config) Write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
