package system

import (
	"errors"
	"fmt"
	"os"

	"github.com/julianstephens/dietline/internal/cli"
	"github.com/julianstephens/dietline/internal/storage/postgres"
)

type InitCmd struct {
	Force bool `help:"Force reset by deleting the existing database before initialization."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	out := ctx.Stdout()
	if c.Force {
		dbPath := ctx.Store.GetConfigPath()
		if _, ok := ctx.Store.(*postgres.Store); ok {
			return errors.New("--force is only supported for SQLite storage; drop the PostgreSQL schema manually")
		}
		if _, err := os.Stat(dbPath); err == nil {
			if err := ctx.Store.Close(); err != nil {
				return fmt.Errorf("failed to close existing database: %w", err)
			}
			if err := os.Remove(dbPath); err != nil {
				return fmt.Errorf("failed to delete existing database: %w", err)
			}
			fmt.Fprintf(out, "Deleted existing database at: %s\n", dbPath)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing database: %w", err)
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Initialized dietline storage at: %s\n", ctx.Store.GetConfigPath())
	return nil
}
