package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/swipswaps/DockerOCR/layout"
)

const (
	configDir    = "config"
	settingsFile = "settings.json"
)

// Settings holds the tunables that can be changed at runtime through /api/settings.
type Settings struct {
	Layout layout.Config `json:"layout"`
}

var errInvalidSettings = errors.New("invalid settings")

var (
	settings      = Settings{Layout: layout.DefaultConfig()}
	settingsMutex sync.RWMutex
)

// currentLayoutConfig returns a copy of the active layout configuration.
func currentLayoutConfig() layout.Config {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settings.Layout
}

// saveSettings saves the current settings to the settings.json file.
func saveSettings() error {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	return saveSettingsLocked()
}

// saveSettingsLocked performs the actual saving without locking the mutex.
// This is to be called from functions that already hold the lock.
func saveSettingsLocked() error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(configDir, settingsFile), data, 0644)
}

// updateLayoutSettings validates and persists a new layout configuration.
func updateLayoutSettings(config layout.Config) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("%w: %v", errInvalidSettings, err)
	}
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	previous := settings.Layout
	settings.Layout = config
	if err := saveSettingsLocked(); err != nil {
		settings.Layout = previous
		return err
	}
	return nil
}

// loadSettings loads the settings from settings.json, creating it with defaults if it doesn't exist or is corrupt.
func loadSettings() {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settingsPath := filepath.Join(configDir, settingsFile)
	data, err := os.ReadFile(settingsPath)

	loadDefaultSettings := func() {
		settings = Settings{Layout: layout.DefaultConfig()}
	}

	if err != nil {
		if os.IsNotExist(err) {
			log.Infof("Settings file not found at %s, creating with default values.", settingsPath)
			loadDefaultSettings()
			if err := saveSettingsLocked(); err != nil {
				log.Fatalf("Failed to create default settings file: %v", err)
			}
		} else {
			log.Warnf("Failed to read settings file: %v. Loading default settings.", err)
			loadDefaultSettings()
		}
		return
	}

	// Start from defaults so keys missing from an older file keep sane values
	loaded := Settings{Layout: layout.DefaultConfig()}
	if err := json.Unmarshal(data, &loaded); err != nil {
		log.Warnf("Failed to parse settings file, please check its format. Loading default settings. Error: %v", err)
		loadDefaultSettings()
		return
	}
	if err := loaded.Layout.Validate(); err != nil {
		log.Warnf("Invalid layout settings in %s: %v. Loading default settings.", settingsPath, err)
		loadDefaultSettings()
		return
	}
	settings = loaded

	log.Info("Successfully loaded settings from settings.json")
}
