package cli

import (
	"fmt"
	"strings"

	"nxttask/internal/apperr"
	"nxttask/internal/model"
	"nxttask/internal/tasks"
	"nxttask/internal/tui"

	"github.com/spf13/cobra"
)

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List and change tasks as the signed-in account",
		Long: strings.TrimSpace(`
Task commands sign in with --email/--password (or NXTTASK_EMAIL/NXTTASK_PASSWORD)
and apply the same rules as the web UI: completing a task sets its priority to
"completed", reopening restores the previous priority, and every priority change
is recorded in the task's history.
`),
	}
	cmd.AddCommand(newTasksListCmd(app))
	cmd.AddCommand(newTasksAddCmd(app))
	cmd.AddCommand(newTasksToggleCmd(app))
	cmd.AddCommand(newTasksEditCmd(app))
	cmd.AddCommand(newTasksHistoryCmd(app))
	cmd.AddCommand(newTasksShowCmd(app))
	cmd.AddCommand(newTasksPublishCmd(app))
	return cmd
}

func newTasksListCmd(app *App) *cobra.Command {
	var filter string
	var tags []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, newest first",
		Example: strings.TrimSpace(`
nxttask tasks list
nxttask tasks list --filter overdue
nxttask tasks list --tag work --tag urgent
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
			return writeOut(cmd, app, map[string]any{"data": s.tasks.Filter(f, tags)})
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "all", "Filter (all|mine|overdue|completed)")
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "Only tasks carrying any of these tags (repeatable)")
	return cmd
}

func newTasksAddCmd(app *App) *cobra.Command {
	var draft model.TaskDraft
	var priority string

	cmd := &cobra.Command{
		Use:     "add <title>",
		Short:   "Create a task (priority defaults to medium, due date to today)",
		Example: `nxttask tasks add "Prepare presentation" --priority high --due 2025-05-20 --tag work`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			draft.Title = args[0]
			draft.Priority = model.Priority(strings.TrimSpace(priority))

			ctx := cmd.Context()
			s, err := signIn(ctx, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.close(ctx)
			if err := s.load(ctx); err != nil {
				return writeErr(cmd, err)
			}
			t, err := s.tasks.Create(ctx, draft)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": t})
		},
	}
	cmd.Flags().StringVar(&draft.Description, "description", "", "Description (markdown)")
	cmd.Flags().StringVar(&priority, "priority", "", "Priority (low|medium|high)")
	cmd.Flags().StringVar(&draft.DueDate, "due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&draft.AssignedTo, "assign", "", "Assignee display name")
	cmd.Flags().StringArrayVar(&draft.Tags, "tag", nil, "Tag (repeatable, or comma separated)")
	return cmd
}

func newTasksToggleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <task-id>",
		Short: "Complete an open task, or reopen a completed one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := signIn(ctx, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.close(ctx)
			if err := s.load(ctx); err != nil {
				return writeErr(cmd, err)
			}
			t, ok, err := s.tasks.ToggleCompletion(ctx, args[0])
			if !ok {
				return writeErr(cmd, apperr.NotFoundError{Kind: "task", ID: args[0]})
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": t})
		},
	}
}

func newTasksEditCmd(app *App) *cobra.Command {
	var (
		title, description, priority, due, assign string
		tags                                      []string
		completed                                 bool
	)

	cmd := &cobra.Command{
		Use:     "edit <task-id>",
		Short:   "Change the given fields of a task",
		Example: `nxttask tasks edit 3f0c... --priority high --tag work,urgent`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := signIn(ctx, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.close(ctx)
			if err := s.load(ctx); err != nil {
				return writeErr(cmd, err)
			}
			t, ok := s.tasks.Get(args[0])
			if !ok {
				return writeErr(cmd, apperr.NotFoundError{Kind: "task", ID: args[0]})
			}

			flags := cmd.Flags()
			if flags.Changed("title") {
				t.Title = title
			}
			if flags.Changed("description") {
				t.Description = description
			}
			if flags.Changed("priority") {
				t.Priority = model.Priority(strings.TrimSpace(priority))
			}
			if flags.Changed("due") {
				t.DueDate = due
			}
			if flags.Changed("assign") {
				t.AssignedTo = assign
			}
			if flags.Changed("tag") {
				t.Tags = tags
			}
			if flags.Changed("completed") {
				t.Completed = completed
			}

			saved, _, err := s.tasks.Edit(ctx, t)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": saved})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Title")
	cmd.Flags().StringVar(&description, "description", "", "Description (markdown)")
	cmd.Flags().StringVar(&priority, "priority", "", "Priority (low|medium|high|completed)")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD, empty to clear)")
	cmd.Flags().StringVar(&assign, "assign", "", "Assignee display name (empty to clear)")
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "Replace the tags (repeatable, or comma separated)")
	cmd.Flags().BoolVar(&completed, "completed", false, "Completion state")
	return cmd
}

type historyLine struct {
	From model.Priority `json:"from" yaml:"from"`
	To   model.Priority `json:"to" yaml:"to"`
	At   string         `json:"at" yaml:"at"`
}

func newTasksHistoryCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "history <task-id>",
		Short: "Show the priority changes of a task, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := signIn(ctx, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.close(ctx)

			v := tasks.NewHistoryViewer(s.repo)
			v.Open(args[0])
			defer v.Close()
			entries, _, err := v.Entries(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}

			lines := make([]historyLine, 0, len(entries))
			for _, e := range entries {
				lines = append(lines, historyLine{
					From: e.PreviousPriority,
					To:   e.NewPriority,
					At:   e.CreatedAt.Local().Format(tasks.HistoryTimeLayout),
				})
			}
			hints := []string{}
			if len(lines) == 0 {
				hints = append(hints, tasks.HistoryEmptyText)
			}
			return writeOut(cmd, app, map[string]any{"data": lines, "_hints": hints})
		},
	}
}

func newTasksShowCmd(app *App) *cobra.Command {
	var width int

	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task rendered for the terminal (pass --format for structured output)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := signIn(ctx, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.close(ctx)
			if err := s.load(ctx); err != nil {
				return writeErr(cmd, err)
			}
			t, ok := s.tasks.Get(args[0])
			if !ok {
				return writeErr(cmd, apperr.NotFoundError{Kind: "task", ID: args[0]})
			}
			if cmd.Flags().Changed("format") || cmd.Flags().Changed("pretty") {
				return writeOut(cmd, app, map[string]any{"data": t})
			}
			fmt.Fprintln(cmd.OutOrStdout(), tui.RenderMarkdown(tui.TaskMarkdown(t), width))
			return nil
		},
	}
	cmd.Flags().IntVar(&width, "width", 80, "Wrap width")
	return cmd
}
