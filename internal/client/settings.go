package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	DefaultCredits = 10
	ThemeLight     = "light"
	ThemeDark      = "dark"
)

// ErrNoCredits is returned when a conversion is attempted with zero credits.
var ErrNoCredits = errors.New("no credits left")

type Settings struct {
	Credits int    `json:"userCredits"`
	Theme   string `json:"theme"`
}

func defaultSettings() Settings {
	return Settings{Credits: DefaultCredits, Theme: ThemeLight}
}

// SettingsStore persists Settings as a JSON file.
type SettingsStore struct {
	mu   sync.Mutex
	path string
	cur  Settings
}

// DefaultSettingsPath is settings.json under the user config directory.
func DefaultSettingsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "imageai", "settings.json"), nil
}

func NewSettingsStore(path string) *SettingsStore {
	return &SettingsStore{path: path, cur: defaultSettings()}
}

// Load reads the file. A missing or unreadable file yields the defaults.
func (s *SettingsStore) Load() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.cur = defaultSettings()
		return s.cur, nil
	}
	if err != nil {
		return s.cur, fmt.Errorf("read settings: %w", err)
	}
	st := defaultSettings()
	if err := json.Unmarshal(b, &st); err != nil {
		s.cur = defaultSettings()
		return s.cur, fmt.Errorf("parse settings: %w", err)
	}
	if st.Credits < 0 {
		st.Credits = 0
	}
	if st.Theme != ThemeDark {
		st.Theme = ThemeLight
	}
	s.cur = st
	return s.cur, nil
}

func (s *SettingsStore) Current() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

func (s *SettingsStore) Save(st Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(st)
}

func (s *SettingsStore) saveLocked(st Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	s.cur = st
	return nil
}

// Decrement spends one credit and saves. It refuses at zero.
func (s *SettingsStore) Decrement() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur.Credits <= 0 {
		return 0, ErrNoCredits
	}
	next := s.cur
	next.Credits--
	if err := s.saveLocked(next); err != nil {
		return s.cur.Credits, err
	}
	return next.Credits, nil
}

// ToggleTheme flips between light and dark and saves.
func (s *SettingsStore) ToggleTheme() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.cur
	if next.Theme == ThemeDark {
		next.Theme = ThemeLight
	} else {
		next.Theme = ThemeDark
	}
	if err := s.saveLocked(next); err != nil {
		return s.cur.Theme, err
	}
	return next.Theme, nil
}
