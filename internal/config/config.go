// Package config provides JSON-based application settings.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const settingsFile = "settings.json"

// Settings holds everything persisted between sessions. Loading merges
// the file over defaults, so missing or unknown fields never break
// startup.
type Settings struct {
	OutputFolder    string  `json:"output_folder"`
	SaveFileType    string  `json:"save_file_type"`
	SaveFileQuality int     `json:"save_file_quality"`
	SaveMask        bool    `json:"save_mask"`
	BGMode          string  `json:"bg_mode"`
	BGCustomColor   string  `json:"bg_custom_color"`
	EnableShadow    bool    `json:"enable_shadow"`
	ShadowOpacity   float64 `json:"shadow_opacity"`
	ShadowRadius    int     `json:"shadow_radius"`
	ShadowX         int     `json:"shadow_x"`
	ShadowY         int     `json:"shadow_y"`
	SoftenRadius    int     `json:"soften_radius"`
	LastPromptModel string  `json:"last_prompt_model"`
	LastWholeModel  string  `json:"last_whole_model"`
	ModelDir        string  `json:"model_dir"`
	WindowWidth     int     `json:"window_width"`
	WindowHeight    int     `json:"window_height"`

	path string
}

// Defaults returns the settings used when no file exists.
func Defaults() *Settings {
	return &Settings{
		SaveFileType:    "png",
		SaveFileQuality: 90,
		BGMode:          "transparent",
		BGCustomColor:   "#0000FF",
		ShadowOpacity:   0.5,
		ShadowRadius:    10,
		ShadowX:         50,
		ShadowY:         50,
		ModelDir:        "models",
		WindowWidth:     1400,
		WindowHeight:    900,
	}
}

// Load reads settings from ~/.config/cutout-studio/settings.json. A
// missing or corrupt file yields the defaults; startup never blocks on
// configuration.
func Load() *Settings {
	s := Defaults()
	s.path = defaultPath()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return s
	}
	if err := json.Unmarshal(data, s); err != nil {
		// Corrupt file: keep defaults.
		return Defaults().withPath(s.path)
	}
	return s
}

// Save writes the settings to disk, creating the config directory as
// needed.
func (s *Settings) Save() error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	return os.WriteFile(s.path, data, 0o644)
}

func (s *Settings) withPath(path string) *Settings {
	s.path = path
	return s
}

// SetPath overrides the on-disk location, mainly for tests.
func (s *Settings) SetPath(path string) { s.path = path }

// LoadFrom reads settings from an explicit path with the same fallback
// behavior as Load.
func LoadFrom(path string) *Settings {
	s := Defaults()
	s.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	if err := json.Unmarshal(data, s); err != nil {
		return Defaults().withPath(path)
	}
	return s
}

func defaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, "cutout-studio", settingsFile)
}
