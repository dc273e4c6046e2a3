package models

import (
	"fmt"
	"strconv"
	"time"

	"github.com/julianstephens/dietline/internal/constants"
)

// Settings represents application-wide settings
type Settings struct {
	APIBaseURL           string `json:"api_base_url"`           // base URL of the order service, e.g. "https://shop.example/api"
	Timezone             string `json:"timezone"`               // IANA timezone name, or "Local" for system timezone
	StageIntervalSec     int    `json:"stage_interval_sec"`     // how often the delivery stage is re-derived
	CountdownIntervalSec int    `json:"countdown_interval_sec"` // countdown refresh cadence
	NotificationsEnabled bool   `json:"notifications_enabled"`
}

// DefaultSettings returns the settings a fresh store is seeded with.
func DefaultSettings() Settings {
	return Settings{
		APIBaseURL:           constants.DefaultAPIBaseURL,
		Timezone:             constants.DefaultTimezone,
		StageIntervalSec:     constants.DefaultStageIntervalSec,
		CountdownIntervalSec: constants.DefaultCountdownIntervalSec,
		NotificationsEnabled: constants.DefaultNotificationsEnabled,
	}
}

func (s Settings) Validate() error {
	if s.APIBaseURL == "" {
		return fmt.Errorf("api_base_url must not be empty")
	}
	if s.StageIntervalSec <= 0 {
		return fmt.Errorf("stage_interval_sec must be positive, got %d", s.StageIntervalSec)
	}
	if s.CountdownIntervalSec <= 0 {
		return fmt.Errorf("countdown_interval_sec must be positive, got %d", s.CountdownIntervalSec)
	}
	if s.Timezone != "" && s.Timezone != "Local" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", s.Timezone, err)
		}
	}
	return nil
}

func (s Settings) StageInterval() time.Duration {
	if s.StageIntervalSec <= 0 {
		return constants.DefaultStageInterval
	}
	return time.Duration(s.StageIntervalSec) * time.Second
}

func (s Settings) CountdownInterval() time.Duration {
	if s.CountdownIntervalSec <= 0 {
		return constants.DefaultCountdownInterval
	}
	return time.Duration(s.CountdownIntervalSec) * time.Second
}

// MapToSettings converts a map of key-value pairs to a Settings struct.
// Keys that are absent keep their zero value; call ApplyDefaultSettings after.
func MapToSettings(data map[string]string) (Settings, error) {
	settings := Settings{}

	for key, value := range data {
		switch key {
		case constants.SettingAPIBaseURL:
			settings.APIBaseURL = value
		case constants.SettingTimezone:
			settings.Timezone = value
		case constants.SettingStageIntervalSec:
			n, err := strconv.Atoi(value)
			if err != nil {
				return Settings{}, fmt.Errorf("parsing stage_interval_sec: %w", err)
			}
			settings.StageIntervalSec = n
		case constants.SettingCountdownIntervalSec:
			n, err := strconv.Atoi(value)
			if err != nil {
				return Settings{}, fmt.Errorf("parsing countdown_interval_sec: %w", err)
			}
			settings.CountdownIntervalSec = n
		case constants.SettingNotificationsEnabled:
			settings.NotificationsEnabled = value == "true"
		}
	}
	return settings, nil
}

// SettingsToMap converts a Settings struct to a map of key-value pairs.
func SettingsToMap(settings Settings) map[string]string {
	return map[string]string{
		constants.SettingAPIBaseURL:           settings.APIBaseURL,
		constants.SettingTimezone:             settings.Timezone,
		constants.SettingStageIntervalSec:     strconv.Itoa(settings.StageIntervalSec),
		constants.SettingCountdownIntervalSec: strconv.Itoa(settings.CountdownIntervalSec),
		constants.SettingNotificationsEnabled: strconv.FormatBool(settings.NotificationsEnabled),
	}
}

// ApplyDefaultSettings applies default values to missing settings.
func ApplyDefaultSettings(settings *Settings) {
	if settings.APIBaseURL == "" {
		settings.APIBaseURL = constants.DefaultAPIBaseURL
	}
	if settings.Timezone == "" {
		settings.Timezone = constants.DefaultTimezone
	}
	if settings.StageIntervalSec == 0 {
		settings.StageIntervalSec = constants.DefaultStageIntervalSec
	}
	if settings.CountdownIntervalSec == 0 {
		settings.CountdownIntervalSec = constants.DefaultCountdownIntervalSec
	}
}
