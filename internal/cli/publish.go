package cli

import (
	"fmt"
	"strings"
	"time"

	"nxttask/internal/model"
	"nxttask/internal/publish"
	"nxttask/internal/tasks"

	"github.com/spf13/cobra"
)

func newTasksPublishCmd(app *App) *cobra.Command {
	var (
		to             string
		filter         string
		tags           []string
		title          string
		includeHistory bool
		overwrite      bool
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Write tasks as Markdown (index.md plus one page per task)",
		Example: strings.TrimSpace(`
nxttask tasks publish --to ./export
nxttask tasks publish --to ./export --filter mine --history --overwrite
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, ok := tasks.ParseFilter(filter)
			if !ok {
				return writeErr(cmd, fmt.Errorf("invalid --filter: %q (expected all|mine|overdue|completed)", filter))
			}
			ctx := cmd.Context()
			s, err := signIn(ctx, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.close(ctx)
			if err := s.load(ctx); err != nil {
				return writeErr(cmd, err)
			}

			if strings.TrimSpace(title) == "" {
				title = f.Label()
			}
			res, err := publish.WriteTasks(ctx, s.tasks.Filter(f, tags), to, publish.WriteOptions{
				Title:     title,
				Overwrite: overwrite,
				History:   s.repo,
				RenderOptions: publish.RenderOptions{
					Today:          model.Today(time.Now()),
					IncludeHistory: includeHistory,
					Location:       time.Local,
				},
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": res})
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Output directory (required)")
	cmd.Flags().StringVar(&filter, "filter", "all", "Filter (all|mine|overdue|completed)")
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "Only tasks carrying any of these tags (repeatable)")
	cmd.Flags().StringVar(&title, "title", "", "Index title (default: the filter name)")
	cmd.Flags().BoolVar(&includeHistory, "history", false, "Include each task's priority history")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing files")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
