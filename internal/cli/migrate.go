package cli

import (
	"nxttask/internal/store"

	"github.com/spf13/cobra"
)

func newMigrateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := []byte(app.cfg.JWTSecret)
			if len(secret) == 0 {
				// Migrating needs no tokens; avoid creating a key file as a side effect.
				secret = []byte("migrate")
			}
			db, err := store.Open(app.cfg.DatabaseURL, store.Options{Secret: secret, Logger: app.l})
			if err != nil {
				return writeErr(cmd, err)
			}
			defer db.Close() //nolint:errcheck

			version, err := db.Migrate()
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"db":      app.cfg.DatabaseURL,
					"version": version,
				},
			})
		},
	}
}
