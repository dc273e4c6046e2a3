package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/dietline/internal/cli"
	"github.com/julianstephens/dietline/internal/cli/orders"
	"github.com/julianstephens/dietline/internal/cli/system"
	"github.com/julianstephens/dietline/internal/config"
	"github.com/julianstephens/dietline/internal/constants"
	apperrors "github.com/julianstephens/dietline/internal/errors"
	"github.com/julianstephens/dietline/internal/keyring"
	"github.com/julianstephens/dietline/internal/logger"
	"github.com/julianstephens/dietline/internal/orderapi"
	"github.com/julianstephens/dietline/internal/storage"
	"github.com/julianstephens/dietline/internal/storage/postgres"
	"github.com/julianstephens/dietline/internal/storage/sqlite"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string   `help:"Database file path or PostgreSQL connection string. Credentials must NOT be embedded; use .pgpass, PGPASSWORD or 'dietline keyring set'." default:"${config_path}"`
	Debug   bool     `help:"Log debug output to stderr."`
	EnvFile []string `name:"env-file" help:"Read environment overrides from these files." default:".env"`

	Init     system.InitCmd     `cmd:"" help:"Initialize dietline storage."`
	Migrate  system.MigrateCmd  `cmd:"" help:"Run database migrations."`
	Doctor   system.DoctorCmd   `cmd:"" help:"Run health checks and diagnostics."`
	Settings system.SettingsCmd `cmd:"" help:"Manage application settings."`
	Backup   struct {
		Create  system.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    system.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore system.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage database backups."`
	Token struct {
		Set    system.TokenSetCmd    `cmd:"" help:"Store the order service token in the OS keyring."`
		Get    system.TokenGetCmd    `cmd:"" help:"Show the stored order service token."`
		Delete system.TokenDeleteCmd `cmd:"" help:"Remove the stored order service token."`
	} `cmd:"" help:"Manage the order service API token."`
	Keyring struct {
		Set    system.KeyringSetCmd    `cmd:"" help:"Store a PostgreSQL connection string in the OS keyring."`
		Get    system.KeyringGetCmd    `cmd:"" help:"Show the stored connection string with the password masked."`
		Delete system.KeyringDeleteCmd `cmd:"" help:"Remove the stored connection string."`
		Status system.KeyringStatusCmd `cmd:"" help:"Check keyring availability." default:"1"`
	} `cmd:"" help:"Manage credentials in the OS keyring."`
	Orders struct {
		Track   orders.TrackCmd   `cmd:"" help:"Start tracking an order."`
		Untrack orders.UntrackCmd `cmd:"" help:"Stop tracking an order."`
		List    orders.ListCmd    `cmd:"" help:"List tracked orders." default:"1"`
		Status  orders.StatusCmd  `cmd:"" help:"Show the current delivery status of an order."`
		History orders.HistoryCmd `cmd:"" help:"Show recorded status and stage changes."`
		Cancel  orders.CancelCmd  `cmd:"" help:"Cancel an order."`
	} `cmd:"" help:"Manage meal orders."`
	Watch orders.WatchCmd `cmd:"" help:"Watch orders with a live countdown." default:"1"`
	Serve orders.ServeCmd `cmd:"" help:"Track every order in the background and serve their status over HTTP."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Meal delivery tracker with live countdowns"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":     constants.Version,
			"config_path": constants.DefaultConfigPath,
		},
	)

	registerHints()

	cfg, err := config.Load(CLI.EnvFile...)
	if err != nil {
		apperrors.Fatal(err)
	}

	store, err := newStore(CLI.Config, cfg)
	if err != nil {
		apperrors.Fatal(err)
	}
	defer store.Close()

	if err := logger.Init(logger.Config{
		Debug:      CLI.Debug,
		ConfigDir:  logDir(store),
		Foreground: ctx.Command() == "serve",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}

	appCtx := &cli.Context{
		Store:  store,
		Config: cfg,
	}

	// init manages its own storage; everything else needs an initialized store.
	if ctx.Command() != "init" {
		if err := store.Load(); err != nil {
			apperrors.Fatal(err)
		}
	}

	if err := ctx.Run(appCtx); err != nil {
		store.Close()
		apperrors.Fatal(err)
	}
}

// newStore picks PostgreSQL when the --config value, the environment or
// the keyring supplies a connection string, and SQLite otherwise.
func newStore(configValue string, cfg config.Config) (storage.Provider, error) {
	connStr := ""
	switch {
	case postgres.IsConnString(configValue):
		connStr = configValue
	case cfg.DBConnection != "":
		connStr = cfg.DBConnection
	default:
		if s, err := keyring.GetConnectionString(); err == nil {
			connStr = s
		} else if !errors.Is(err, keyring.ErrNotFound) {
			logger.Debug("Keyring unavailable for connection string", "error", err)
		}
	}

	if connStr == "" {
		return sqlite.NewStore(expandHome(configValue)), nil
	}

	if err := postgres.ValidateConnString(connStr); err != nil {
		// A password is tolerated only when it came from the keyring or the
		// environment, never from the command line.
		if !errors.Is(err, postgres.ErrEmbeddedCredentials) || connStr == configValue {
			return nil, err
		}
	}
	return postgres.New(connStr), nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

func logDir(store storage.Provider) string {
	if _, ok := store.(*sqlite.Store); ok {
		return filepath.Dir(store.GetConfigPath())
	}
	return filepath.Dir(expandHome(constants.DefaultConfigPath))
}

func registerHints() {
	apperrors.RegisterHint(storage.ErrNotInitialized, "run 'dietline init' to create the database")
	apperrors.RegisterHint(postgres.ErrEmbeddedCredentials,
		"store the connection string with 'dietline keyring set', use ~/.pgpass, or export "+config.EnvDBConnection)
	apperrors.RegisterHint(orderapi.ErrUnauthorized, "store a token with 'dietline token set' or export "+config.EnvAPIToken)
}
