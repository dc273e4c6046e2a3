package system

import (
	"fmt"

	"github.com/julianstephens/dietline/internal/cli"
)

type MigrateCmd struct {
	DryRun bool `help:"List pending migrations without applying them."`
}

func (c *MigrateCmd) Run(ctx *cli.Context) error {
	out := ctx.Stdout()

	st, err := ctx.Store.MigrationStatus()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if st.UpToDate() {
		fmt.Fprintf(out, "No migrations to apply. Database is up to date (version %d).\n", st.Current)
		return nil
	}

	fmt.Fprintf(out, "Schema version %d, latest %d. Pending:\n", st.Current, st.Latest)
	for _, m := range st.Pending {
		fmt.Fprintf(out, "  %03d_%s\n", m.Version, m.Name)
	}
	if c.DryRun {
		return nil
	}

	if mgr, err := backupManager(ctx); err == nil && st.Current > 0 {
		path, err := mgr.Create()
		if err != nil {
			return fmt.Errorf("failed to back up database before migrating: %w", err)
		}
		fmt.Fprintf(out, "Backed up database to %s\n", path)
	}

	// Init applies whatever is pending and seeds settings added since.
	if err := ctx.Store.Init(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	fmt.Fprintf(out, "\nSuccessfully applied %d migration(s).\n", len(st.Pending))
	return nil
}
