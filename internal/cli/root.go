package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"nxttask/internal/config"
	"nxttask/internal/format"
	"nxttask/internal/logging"
	"nxttask/internal/store"

	"github.com/spf13/cobra"
)

type App struct {
	DBPath     string
	EnvFile    string
	LogLevel   string
	Email      string
	Password   string
	PrettyJSON bool
	Format     string

	cfg config.Config
	l   logging.Logger
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "nxttask",
		Short:        "Nxttask team task manager (web server, CLI and TUI)",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Create the schema and an account, then serve the web UI
  nxttask migrate
  nxttask users add --email alex@example.com --password secret1 --name "Alex Johnson" --confirmed
  nxttask serve

  # Scriptable commands act as the account given by --email/--password
  NXTTASK_EMAIL=alex@example.com NXTTASK_PASSWORD=secret1 nxttask tasks list --filter overdue

  # Interactive task list
  nxttask tui
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.load(cmd.ErrOrStderr())
	}

	cmd.PersistentFlags().StringVar(&app.DBPath, "db", envOr("NXTTASK_DB", ""), "Path to the SQLite database (default: $HOME/.nxttask/nxttask.db)")
	cmd.PersistentFlags().StringVar(&app.EnvFile, "env-file", envOr("NXTTASK_ENV_FILE", ".env"), "Env file read for settings not present in the environment")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", "", "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&app.Email, "email", envOr("NXTTASK_EMAIL", ""), "Account email for task commands")
	cmd.PersistentFlags().StringVar(&app.Password, "password", envOr("NXTTASK_PASSWORD", ""), "Account password for task commands")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("NXTTASK_FORMAT", "json"), "Output format (json|yaml)")

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newMigrateCmd(app))
	cmd.AddCommand(newUsersCmd(app))
	cmd.AddCommand(newTasksCmd(app))
	cmd.AddCommand(newTUICmd(app))
	cmd.AddCommand(newDoctorCmd(app))

	return cmd
}

// load resolves the config once flags are parsed. Flags win over the
// environment and the env file.
func (app *App) load(stderr io.Writer) error {
	cfg, err := config.Load(app.EnvFile)
	if err != nil {
		return err
	}
	if v := strings.TrimSpace(app.DBPath); v != "" {
		cfg.DatabaseURL = v
	}
	if v := strings.TrimSpace(app.LogLevel); v != "" {
		cfg.LogLevel = v
	}
	app.cfg = cfg
	app.l = logging.New(logging.Options{Writer: stderr, Level: cfg.LogLevel})
	return nil
}

// openDB opens and migrates the database. The token secret comes from the
// config, else from jwt.key next to the database.
func openDB(app *App) (*store.DB, error) {
	secret := []byte(app.cfg.JWTSecret)
	if len(secret) == 0 {
		var err error
		secret, err = store.LoadOrCreateSecret(filepath.Join(filepath.Dir(app.cfg.DatabaseURL), "jwt.key"))
		if err != nil {
			return nil, fmt.Errorf("token secret: %w", err)
		}
	}
	db, err := store.Open(app.cfg.DatabaseURL, store.Options{
		Secret:      secret,
		SessionTTL:  app.cfg.SessionTTL,
		AutoConfirm: app.cfg.AutoConfirm,
		Logger:      app.l,
	})
	if err != nil {
		return nil, err
	}
	if _, err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
