// Package prefs handles feeder user preferences persistence.
// Preferences are stored in ~/.config/feeder/prefs.toml.
package prefs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	toml "github.com/pelletier/go-toml/v2"
)

// Filter narrows the point list by category.
type Filter string

const (
	FilterAll  Filter = "all"
	FilterCats Filter = "cats"
	FilterDogs Filter = "dogs"
)

// Valid reports whether f is a known filter.
func (f Filter) Valid() bool {
	switch f {
	case FilterAll, FilterCats, FilterDogs:
		return true
	}
	return false
}

// Next cycles all → cats → dogs → all.
func (f Filter) Next() Filter {
	switch f {
	case FilterAll:
		return FilterCats
	case FilterCats:
		return FilterDogs
	default:
		return FilterAll
	}
}

// Prefs holds user preferences for feeder.
type Prefs struct {
	DeviceID string `toml:"device_id"`
	Filter   Filter `toml:"filter"`
	Theme    string `toml:"theme"`
}

const (
	defaultPrefsPath = "~/.config/feeder/prefs.toml"
	defaultTheme     = "Nightfox"
)

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

func defaults() Prefs {
	return Prefs{Filter: FilterAll, Theme: defaultTheme}
}

// Load reads preferences from the given path, falling back to defaults if
// missing or unreadable. DeviceID is left empty when none was stored; see
// EnsureDeviceID.
func Load(path string) (Prefs, error) {
	prefs := defaults()

	resolved, err := resolvePath(path)
	if err != nil {
		return prefs, nil
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return prefs, nil
		}
		return prefs, nil // Graceful degradation
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return prefs, nil // Graceful degradation
	}

	if err := toml.Unmarshal(bytes, &prefs); err != nil {
		return defaults(), nil // Graceful degradation
	}

	prefs.DeviceID = strings.TrimSpace(prefs.DeviceID)
	if !prefs.Filter.Valid() {
		prefs.Filter = FilterAll
	}
	if strings.TrimSpace(prefs.Theme) == "" {
		prefs.Theme = defaultTheme
	}
	return prefs, nil
}

// EnsureDeviceID assigns a fresh device ID when p has none and saves the
// result. It reports whether a new ID was generated.
func EnsureDeviceID(path string, p *Prefs) (bool, error) {
	if _, err := uuid.Parse(p.DeviceID); err == nil {
		return false, nil
	}
	p.DeviceID = uuid.NewString()
	if err := Save(path, *p); err != nil {
		return true, fmt.Errorf("save device id: %w", err)
	}
	return true, nil
}

// Save writes preferences to the given path, creating directories as needed.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	bytes, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	if err := os.WriteFile(resolved, bytes, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}

	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultPrefsPath)
	}
	return expandPath(path)
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
