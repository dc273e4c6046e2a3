package constants

const (
	SettingAPIBaseURL           = "api_base_url"
	SettingTimezone             = "timezone"
	SettingStageIntervalSec     = "stage_interval_sec"
	SettingCountdownIntervalSec = "countdown_interval_sec"
	SettingNotificationsEnabled = "notifications_enabled"

	// Default Settings Values
	DefaultAPIBaseURL           = "http://localhost:5000/api"
	DefaultTimezone             = "Local" // Use system local timezone by default
	DefaultStageIntervalSec     = 30
	DefaultCountdownIntervalSec = 1
	DefaultNotificationsEnabled = true
)
