// ============================================================================
// VoxNote - Chunked Dictation Service
// ============================================================================
//
// Package:     dictation
// Description: Settings persistence for the dictation client
// License:     MIT
// ============================================================================

package dictation

import (
	"encoding/json"
	"os"
	"path/filepath"
)

const (
	// MinSliceLengthMs is the shortest allowed slice length
	MinSliceLengthMs = 5000

	// MaxSliceLengthMs is the longest allowed slice length
	MaxSliceLengthMs = 120000

	// DefaultSliceLengthMs is used when no setting is stored
	DefaultSliceLengthMs = 15000
)

// Settings holds persistent dictation client settings
type Settings struct {
	ServerURL     string `json:"server_url"`
	SliceLengthMs int    `json:"slice_length_ms"`
	InputDevice   string `json:"input_device"`
	AuthToken     string `json:"auth_token,omitempty"`
}

// DefaultSettings returns the defaults for a fresh installation
func DefaultSettings() Settings {
	return Settings{
		ServerURL:     "http://localhost:8080",
		SliceLengthMs: DefaultSliceLengthMs,
	}
}

// ClampSliceLength forces a slice length into the supported range.
// Slices shorter than the minimum give the recognizer too little context,
// longer ones delay feedback and risk upload timeouts.
func ClampSliceLength(ms int) int {
	if ms < MinSliceLengthMs {
		return MinSliceLengthMs
	}
	if ms > MaxSliceLengthMs {
		return MaxSliceLengthMs
	}
	return ms
}

// settingsPath returns the path to the settings file
func settingsPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	configDir := filepath.Join(homeDir, ".config", "voxnote")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}

	return filepath.Join(configDir, "dictate.json"), nil
}

// LoadSettings reads the persisted settings, falling back to defaults for
// missing fields or a missing file
func LoadSettings() (Settings, error) {
	settings := DefaultSettings()

	path, err := settingsPath()
	if err != nil {
		return settings, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil // No settings file yet, use defaults
		}
		return settings, err
	}

	var stored Settings
	if err := json.Unmarshal(data, &stored); err != nil {
		return settings, err
	}

	if stored.ServerURL != "" {
		settings.ServerURL = stored.ServerURL
	}
	if stored.SliceLengthMs > 0 {
		settings.SliceLengthMs = ClampSliceLength(stored.SliceLengthMs)
	}
	if stored.InputDevice != "" {
		settings.InputDevice = stored.InputDevice
	}
	if stored.AuthToken != "" {
		settings.AuthToken = stored.AuthToken
	}

	return settings, nil
}

// SaveSettings persists settings for the next run
func SaveSettings(settings Settings) error {
	path, err := settingsPath()
	if err != nil {
		return err
	}

	settings.SliceLengthMs = ClampSliceLength(settings.SliceLengthMs)

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
