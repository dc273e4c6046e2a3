package system

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/dietline/internal/backup"
	"github.com/julianstephens/dietline/internal/cli"
	"github.com/julianstephens/dietline/internal/storage/sqlite"
)

var errBackupUnsupported = errors.New("backups are only supported for SQLite storage; use pg_dump for PostgreSQL")

// confirmRestoreFunc asks before the database is replaced.
var confirmRestoreFunc = func(from string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title("Replace the current database?").
		Description(fmt.Sprintf("Restore from %s. Stop any running 'dietline serve' or 'watch' first.", from)).
		Affirmative("Restore").
		Negative("Cancel").
		Value(&ok).
		Run()
	return ok, err
}

func backupManager(ctx *cli.Context) (*backup.Manager, error) {
	if _, ok := ctx.Store.(*sqlite.Store); !ok {
		return nil, errBackupUnsupported
	}
	return backup.NewManager(ctx.Store.GetConfigPath()), nil
}

type BackupCreateCmd struct{}

func (c *BackupCreateCmd) Run(ctx *cli.Context) error {
	mgr, err := backupManager(ctx)
	if err != nil {
		return err
	}
	path, err := mgr.Create()
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}
	fmt.Fprintf(ctx.Stdout(), "✓ Backup created: %s\n", filepath.Base(path))
	return nil
}

type BackupListCmd struct{}

func (c *BackupListCmd) Run(ctx *cli.Context) error {
	mgr, err := backupManager(ctx)
	if err != nil {
		return err
	}
	backups, err := mgr.List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}

	out := ctx.Stdout()
	if len(backups) == 0 {
		fmt.Fprintln(out, "No backups found.")
		fmt.Fprintf(out, "Backups are stored in: %s\n", mgr.Dir())
		return nil
	}

	fmt.Fprintf(out, "Available backups (%d total, keeping most recent %d):\n\n", len(backups), backup.MaxBackups)
	for _, b := range backups {
		fmt.Fprintf(out, "  %s  %s  (%.1f KB)\n",
			b.Timestamp.Local().Format("2006-01-02 15:04:05"), filepath.Base(b.Path), float64(b.Size)/1024.0)
	}
	fmt.Fprintf(out, "\nBackup directory: %s\n", mgr.Dir())
	return nil
}

type BackupRestoreCmd struct {
	File string `arg:"" help:"Path or filename of the backup to restore."`
	Yes  bool   `short:"y" help:"Skip the confirmation prompt."`
}

func (c *BackupRestoreCmd) Run(ctx *cli.Context) error {
	mgr, err := backupManager(ctx)
	if err != nil {
		return err
	}
	path, err := resolveBackup(mgr, c.File)
	if err != nil {
		return err
	}

	out := ctx.Stdout()
	if !c.Yes {
		ok, err := confirmRestoreFunc(path)
		if err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				fmt.Fprintln(out, "Restore cancelled.")
				return nil
			}
			return err
		}
		if !ok {
			fmt.Fprintln(out, "Restore cancelled.")
			return nil
		}
	}

	if err := ctx.Store.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	previous, err := mgr.Restore(path)
	if err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}
	if previous != "" {
		fmt.Fprintf(out, "Previous database saved as %s\n", filepath.Base(previous))
	}
	fmt.Fprintln(out, "✓ Database restored successfully!")
	return nil
}

// resolveBackup accepts an absolute path, a path relative to the working
// directory or a bare filename inside the backup directory.
func resolveBackup(mgr *backup.Manager, file string) (string, error) {
	if filepath.IsAbs(file) {
		if _, err := os.Stat(file); err != nil {
			return "", fmt.Errorf("backup file not found: %s", file)
		}
		return file, nil
	}
	if _, err := os.Stat(file); err == nil {
		return filepath.Abs(file)
	}
	inDir := filepath.Join(mgr.Dir(), file)
	if _, err := os.Stat(inDir); err == nil {
		return inDir, nil
	}
	return "", fmt.Errorf("backup file not found: tried current directory and %s", mgr.Dir())
}
