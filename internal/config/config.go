package config

import (
	"os"
	"time"

	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"
)

const (
	BackendText   = "text"
	BackendSQLite = "sqlite"
)

type Config struct {
	BaseURL    string `yaml:"base_url"`
	LogLevel   string `yaml:"log_level"`
	MaxRetries int    `yaml:"max_retries"`
	Storage    `yaml:"storage"`
	HTTPServer `yaml:"http_server"`
}

type Storage struct {
	Backend          string        `yaml:"backend"`
	Path             string        `yaml:"path"`
	DSN              string        `yaml:"dsn"`
	AutosaveInterval time.Duration `yaml:"autosave_interval"`
}

var defaultStorage = Storage{
	Backend: BackendText,
	Path:    "url_mappings.txt",
	DSN:     "file:linkshortener.sqlite?_journal_mode=wal",
}

// HTTPServer configures the optional HTTP front end. An empty Addr disables it.
type HTTPServer struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

var defaultHTTPServer = HTTPServer{
	ReadTimeout:  5 * time.Second,
	WriteTimeout: 10 * time.Second,
	IdleTimeout:  time.Minute,
}

// Load reads the YAML config file at path on top of the defaults.
// An empty path returns the defaults.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	var cfg Config
	setDefaults(&cfg)

	if path == "" {
		return &cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Errorf("%s: failed to open config file: %w", op, err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, xerrors.Errorf("%s: failed to decode config file: %w", op, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, xerrors.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendText:
		if c.Storage.Path == "" {
			return xerrors.Errorf("storage.path must be set for the %q backend", BackendText)
		}
	case BackendSQLite:
		if c.Storage.DSN == "" {
			return xerrors.Errorf("storage.dsn must be set for the %q backend", BackendSQLite)
		}
	default:
		return xerrors.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if c.MaxRetries < 0 {
		return xerrors.Errorf("max_retries must not be negative, got %d", c.MaxRetries)
	}
	if c.Storage.AutosaveInterval < 0 {
		return xerrors.Errorf("storage.autosave_interval must not be negative, got %s", c.Storage.AutosaveInterval)
	}

	return nil
}

func setDefaults(cfg *Config) {
	cfg.BaseURL = "http://short.ly/"
	cfg.LogLevel = "info"
	cfg.MaxRetries = 16
	cfg.Storage = defaultStorage
	cfg.HTTPServer = defaultHTTPServer
}
