package system

import (
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/julianstephens/dietline/internal/cli"
	"github.com/julianstephens/dietline/internal/keyring"
	"github.com/julianstephens/dietline/internal/models"
	"github.com/julianstephens/dietline/internal/notifier"
	"github.com/julianstephens/dietline/internal/utils"
)

// trayRunningFunc is swapped in tests.
var trayRunningFunc = notifier.TrayRunning

type DoctorCmd struct{}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	out := ctx.Stdout()
	fmt.Fprintln(out, "Running diagnostics...")
	fmt.Fprintln(out)

	hasError := false
	fail := func(name string, err error) {
		if err != nil {
			fmt.Fprintf(out, "❌ %s: FAIL\n", name)
			fmt.Fprintf(out, "   Error: %v\n", err)
			hasError = true
			return
		}
		fmt.Fprintf(out, "✓ %s: OK\n", name)
	}

	dbErr := checkDBReachable(ctx)
	fail("Database reachable", dbErr)

	var settings models.Settings
	if dbErr == nil {
		fail("Schema version", checkSchema(ctx))

		var err error
		settings, err = ctx.Settings()
		if err == nil {
			err = settings.Validate()
		}
		fail("Settings valid", err)
		if err == nil {
			fail("Timezone", checkTimezone(settings))
			fail("Order service URL", checkAPIURL(settings.APIBaseURL))
		}
	} else {
		skip(out, "Schema version")
		skip(out, "Settings valid")
	}

	warn(out, "API token", checkAPIToken(ctx))
	if dbErr == nil && settings.NotificationsEnabled {
		warn(out, "Tray notifier", trayRunningFunc())
	}

	fmt.Fprintln(out)
	if hasError {
		fmt.Fprintln(out, "Diagnostics completed with errors.")
		return errors.New("one or more health checks failed")
	}
	fmt.Fprintln(out, "All diagnostics passed!")
	return nil
}

func skip(out io.Writer, name string) {
	fmt.Fprintf(out, "⊘ %s: SKIPPED (database not reachable)\n", name)
}

func warn(out io.Writer, name string, err error) {
	if err != nil {
		fmt.Fprintf(out, "⚠ %s: WARNING\n", name)
		fmt.Fprintf(out, "   %v\n", err)
		return
	}
	fmt.Fprintf(out, "✓ %s: OK\n", name)
}

func checkDBReachable(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}
	if _, err := ctx.Store.GetSettings(); err != nil {
		return fmt.Errorf("failed to query database: %w", err)
	}
	return nil
}

func checkSchema(ctx *cli.Context) error {
	st, err := ctx.Store.MigrationStatus()
	if err != nil {
		return err
	}
	if !st.UpToDate() {
		return fmt.Errorf("migrations incomplete: current version %d, latest version %d (run 'dietline migrate')", st.Current, st.Latest)
	}
	return nil
}

func checkTimezone(s models.Settings) error {
	_, err := utils.LoadLocation(s.Timezone)
	return err
}

func checkAPIURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL %q has no host", raw)
	}
	return nil
}

func checkAPIToken(ctx *cli.Context) error {
	if ctx.Config.APIToken != "" {
		return nil
	}
	_, err := keyring.GetAPIToken()
	if errors.Is(err, keyring.ErrNotFound) {
		return errors.New("no API token configured; requests are sent unauthenticated (use 'dietline token set')")
	}
	return err
}
