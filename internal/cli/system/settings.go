package system

import (
	"fmt"

	"github.com/julianstephens/dietline/internal/cli"
	"github.com/julianstephens/dietline/internal/models"
)

type SettingsCmd struct {
	List bool `help:"List current settings."`

	APIURL               *string `name:"api-url" help:"Base URL of the order service."`
	Timezone             *string `help:"IANA timezone used to read delivery times, or Local."`
	StageInterval        *int    `help:"Seconds between delivery stage evaluations."`
	CountdownInterval    *int    `help:"Seconds between countdown refreshes."`
	NotificationsEnabled *bool   `help:"Enable or disable tray notifications."`
}

func (c *SettingsCmd) Run(ctx *cli.Context) error {
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	models.ApplyDefaultSettings(&settings)
	out := ctx.Stdout()

	updated := false
	if c.APIURL != nil {
		settings.APIBaseURL = *c.APIURL
		updated = true
	}
	if c.Timezone != nil {
		settings.Timezone = *c.Timezone
		updated = true
	}
	if c.StageInterval != nil {
		settings.StageIntervalSec = *c.StageInterval
		updated = true
	}
	if c.CountdownInterval != nil {
		settings.CountdownIntervalSec = *c.CountdownInterval
		updated = true
	}
	if c.NotificationsEnabled != nil {
		settings.NotificationsEnabled = *c.NotificationsEnabled
		updated = true
	}

	if updated {
		if err := settings.Validate(); err != nil {
			return err
		}
		if err := ctx.Store.SaveSettings(settings); err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}
		fmt.Fprintln(out, "Settings updated successfully.")
	}

	if c.List || !updated {
		effective := ctx.Config.Apply(settings)
		fmt.Fprintln(out, "Current Settings:")
		fmt.Fprintf(out, "  Order Service URL:     %s\n", effective.APIBaseURL)
		fmt.Fprintf(out, "  Timezone:              %s\n", effective.Timezone)
		fmt.Fprintf(out, "  Stage Interval:        %ds\n", settings.StageIntervalSec)
		fmt.Fprintf(out, "  Countdown Interval:    %ds\n", settings.CountdownIntervalSec)
		fmt.Fprintf(out, "  Notifications Enabled: %v\n", settings.NotificationsEnabled)
		if effective != settings {
			fmt.Fprintln(out, "\n  (values overridden by the environment are shown as in effect)")
		}
	}
	return nil
}
