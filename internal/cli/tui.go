package cli

import (
	"nxttask/internal/tui"

	"github.com/spf13/cobra"
)

func newTUICmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Interactive task list for the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := signIn(ctx, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.close(ctx)

			return tui.Run(ctx, tui.Options{
				Tasks:   s.tasks,
				History: s.repo,
				Session: s.session,
				Notices: s.notices,
				Logger:  s.l,
			})
		},
	}
}
