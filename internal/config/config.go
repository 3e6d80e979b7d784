package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config captures the settings the feeder engine reads at startup.
type Config struct {
	APIBase     string
	APIToken    string
	StateDir    string
	PollWait    time.Duration
	RequestRate float64
	AdminBind   string // empty disables the admin server
	LogLevel    string
}

const (
	defaultConfigPath  = "~/.config/feeder/config.toml"
	defaultStateDir    = "~/.local/state/feeder"
	defaultAPIBase     = "http://127.0.0.1:8088"
	defaultPollWait    = 25 * time.Second
	defaultRequestRate = 10
	defaultLogLevel    = "info"
)

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return defaultConfigPath
}

func defaults() Config {
	return Config{
		APIBase:     defaultAPIBase,
		StateDir:    mustExpand(defaultStateDir),
		PollWait:    defaultPollWait,
		RequestRate: defaultRequestRate,
		LogLevel:    defaultLogLevel,
	}
}

// Load locates and parses the feeder config, falling back to defaults when
// the file is missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := defaults()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		APIBase     string  `toml:"api_base"`
		APIToken    string  `toml:"api_token"`
		StateDir    string  `toml:"state_dir"`
		PollWait    string  `toml:"poll_wait"`
		RequestRate float64 `toml:"request_rate"`
		AdminBind   string  `toml:"admin_bind"`
		LogLevel    string  `toml:"log_level"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.APIBase); v != "" {
		cfg.APIBase = v
	}
	cfg.APIToken = strings.TrimSpace(raw.APIToken)
	if v := strings.TrimSpace(raw.StateDir); v != "" {
		cfg.StateDir = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.PollWait); v != "" {
		wait, err := time.ParseDuration(v)
		if err != nil || wait <= 0 {
			return Config{}, fmt.Errorf("parse config: poll_wait %q is not a positive duration", v)
		}
		cfg.PollWait = wait
	}
	if raw.RequestRate > 0 {
		cfg.RequestRate = raw.RequestRate
	}
	cfg.AdminBind = strings.TrimSpace(raw.AdminBind)
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	return cfg, nil
}

// SnapshotDir returns the directory holding the reservation snapshot.
func (c Config) SnapshotDir() string {
	if strings.TrimSpace(c.StateDir) == "" {
		return mustExpand(defaultStateDir)
	}
	return c.StateDir
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
