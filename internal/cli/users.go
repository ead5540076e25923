package cli

import (
	"errors"
	"fmt"
	"strings"

	"nxttask/internal/model"
	"nxttask/internal/session"

	"github.com/spf13/cobra"
)

func newUsersCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage accounts (admin)",
	}
	cmd.AddCommand(newUsersAddCmd(app))
	cmd.AddCommand(newUsersConfirmCmd(app))
	cmd.AddCommand(newUsersRoleCmd(app))
	cmd.AddCommand(newUsersListCmd(app))
	return cmd
}

func newUsersAddCmd(app *App) *cobra.Command {
	var name string
	var confirmed bool
	var role string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an account",
		Example: strings.TrimSpace(`
nxttask users add --email alex@example.com --password secret1 --name "Alex Johnson" --confirmed
nxttask users add --email boss@example.com --password secret1 --name "Morgan Boss" --confirmed --role manager
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			form := session.SignUpForm{
				FullName:        strings.TrimSpace(name),
				Email:           strings.TrimSpace(app.Email),
				Password:        app.Password,
				ConfirmPassword: app.Password,
			}
			if err := form.Validate(); err != nil {
				return writeErr(cmd, err)
			}
			r, ok := model.ParseRole(role)
			if !ok {
				return writeErr(cmd, fmt.Errorf("invalid role: %q (expected team_member|manager)", role))
			}

			db, err := openDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer db.Close() //nolint:errcheck

			ctx := cmd.Context()
			u, err := db.SignUp(ctx, form.Email, form.Password, form.FullName, confirmed)
			if err != nil {
				return writeErr(cmd, err)
			}
			p, err := db.SetRole(ctx, u.Email, r)
			if err != nil {
				return writeErr(cmd, err)
			}

			hints := []string{}
			if !confirmed && !app.cfg.AutoConfirm {
				hints = append(hints, "nxttask users confirm --email "+u.Email)
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"id":        u.ID,
					"email":     u.Email,
					"fullName":  form.FullName,
					"role":      p.Role,
					"confirmed": confirmed,
				},
				"_hints": hints,
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Full name")
	cmd.Flags().BoolVar(&confirmed, "confirmed", false, "Skip email verification")
	cmd.Flags().StringVar(&role, "role", string(model.RoleTeamMember), "Role (team_member|manager)")
	return cmd
}

func newUsersConfirmCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "confirm",
		Short: "Mark the account given by --email as verified",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email := strings.TrimSpace(app.Email)
			if email == "" {
				return writeErr(cmd, errors.New("missing --email"))
			}
			db, err := openDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer db.Close() //nolint:errcheck

			if err := db.ConfirmEmail(cmd.Context(), email); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"email": email, "confirmed": true}})
		},
	}
}

func newUsersRoleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "role <team_member|manager>",
		Short:   "Set the role of the account given by --email",
		Example: "nxttask users role manager --email boss@example.com",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email := strings.TrimSpace(app.Email)
			if email == "" {
				return writeErr(cmd, errors.New("missing --email"))
			}
			r, ok := model.ParseRole(args[0])
			if !ok {
				return writeErr(cmd, fmt.Errorf("invalid role: %q (expected team_member|manager)", args[0]))
			}
			db, err := openDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer db.Close() //nolint:errcheck

			p, err := db.SetRole(cmd.Context(), email, r)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"email": p.Email, "role": p.Role}})
		},
	}
}

func newUsersListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer db.Close() //nolint:errcheck

			users, err := db.Users(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": users})
		},
	}
}
