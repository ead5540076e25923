package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"nxttask/internal/backend/backendtest"
	"nxttask/internal/model"
	"nxttask/internal/notice"
	"nxttask/internal/taskdata"
	"nxttask/internal/tasks"
)

var fixedNow = time.Date(2025, 5, 17, 10, 0, 0, 0, time.Local)

type fixture struct {
	svc  *backendtest.Service
	orch *tasks.Orchestrator
	feed *notice.Feed
	m    *appModel
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	lipgloss.SetColorProfile(termenv.Ascii)
	t.Setenv("NXTTASK_TUI_MD_STYLE", "dark")

	svc := backendtest.NewService()
	svc.AddUser("alex@example.com", "secret1", "Alex Johnson", model.RoleTeamMember)
	client := svc.NewClient()
	ctx := context.Background()
	if _, err := client.SignInWithPassword(ctx, "alex@example.com", "secret1"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	repo := taskdata.New(client, nil)
	feed := notice.NewFeed(50)
	orch := tasks.New(repo, tasks.Options{
		Notices: feed,
		Now:     func() time.Time { return fixedNow },
		Actor:   func() string { return "Alex Johnson" },
	})

	f := &fixture{svc: svc, orch: orch, feed: feed}
	f.m = newAppModel(ctx, Options{
		Tasks:   orch,
		History: repo,
		Notices: feed,
		Now:     func() time.Time { return fixedNow },
	})
	t.Cleanup(f.m.close)
	f.m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return f
}

func (f *fixture) press(t *testing.T, k string) tea.Cmd {
	t.Helper()
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "space":
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	_, cmd := f.m.Update(msg)
	return cmd
}

// run executes a command that is known not to block and feeds its message back.
func (f *fixture) run(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatalf("expected a command")
	}
	f.m.Update(cmd())
	f.m.Update(changedMsg{})
}

func (f *fixture) load(t *testing.T) {
	t.Helper()
	f.run(t, f.m.loadCmd())
}

func (f *fixture) seed(t *testing.T, drafts ...model.TaskDraft) {
	t.Helper()
	for _, d := range drafts {
		if _, err := f.orch.Create(context.Background(), d); err != nil {
			t.Fatalf("Create(%q): %v", d.Title, err)
		}
	}
	f.m.Update(changedMsg{})
}

func (f *fixture) view() string {
	return xansi.Strip(f.m.View())
}

func TestInitialLoadShowsTasks(t *testing.T) {
	f := newFixture(t)
	if !f.m.loading {
		t.Fatalf("expected the model to start loading")
	}
	if !strings.Contains(f.view(), "Loading tasks") {
		t.Fatalf("expected a loading view, got:\n%s", f.view())
	}

	f.load(t)
	if f.m.loading {
		t.Fatalf("expected loading to finish")
	}
	view := f.view()
	for _, want := range []string{"Nxttask", "Sat May 17, 2025", "All Tasks (0)", "No tasks found"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestQuickAddCreatesTask(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	f.press(t, "a")
	if f.m.mode != modeAdd {
		t.Fatalf("expected add mode, got %v", f.m.mode)
	}
	f.m.input.SetValue("Write report #work !high @2025-05-20")
	f.run(t, f.press(t, "enter"))

	if f.m.mode != modeList {
		t.Fatalf("expected list mode after enter, got %v", f.m.mode)
	}
	got := f.orch.Tasks()
	if len(got) != 1 {
		t.Fatalf("expected one task, got %+v", got)
	}
	task := got[0]
	if task.Title != "Write report" || task.Priority != model.PriorityHigh || task.DueDate != "2025-05-20" {
		t.Fatalf("unexpected task %+v", task)
	}
	if len(task.Tags) != 1 || task.Tags[0] != "work" {
		t.Fatalf("unexpected tags %v", task.Tags)
	}

	view := f.view()
	for _, want := range []string{"[ ] Write report", "HIGH", "due 2025-05-20", "#work"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestQuickAddValidationShowsStatus(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	f.press(t, "a")
	f.m.input.SetValue("#onlytags")
	f.run(t, f.press(t, "enter"))

	if n := len(f.orch.Tasks()); n != 0 {
		t.Fatalf("expected no task to be created, got %d", n)
	}
	if f.m.statusKind != notice.KindError || f.m.status != "Title is required" {
		t.Fatalf("unexpected status %q (%v)", f.m.status, f.m.statusKind)
	}
	if n := f.svc.Calls(backendtest.OpInsertTask); n != 0 {
		t.Fatalf("expected no insert, got %d", n)
	}
}

func TestEscCancelsInput(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	f.press(t, "a")
	f.m.input.SetValue("Never saved")
	if cmd := f.press(t, "esc"); cmd != nil {
		t.Fatalf("expected no command on esc")
	}
	if f.m.mode != modeList || f.m.input.Value() != "" {
		t.Fatalf("expected input to reset, mode=%v value=%q", f.m.mode, f.m.input.Value())
	}
	if n := len(f.orch.Tasks()); n != 0 {
		t.Fatalf("expected nothing created, got %d", n)
	}
}

func TestToggleCompletesAndReopens(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	f.seed(t, model.TaskDraft{Title: "Call client", Priority: model.PriorityLow})

	f.run(t, f.press(t, "space"))
	task, _ := f.m.selected()
	if !task.Completed || task.Priority != model.PriorityCompleted {
		t.Fatalf("expected completed task, got %+v", task)
	}
	if !strings.Contains(f.view(), "[x] Call client") {
		t.Fatalf("expected checked row:\n%s", f.view())
	}

	f.run(t, f.press(t, "x"))
	task, _ = f.m.selected()
	if task.Completed || task.Priority != model.PriorityLow {
		t.Fatalf("expected reopened task with its old priority, got %+v", task)
	}
}

func TestPriorityKeyCyclesAndRefusesCompleted(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	f.seed(t, model.TaskDraft{Title: "Review budget", Priority: model.PriorityMedium})

	f.run(t, f.press(t, "p"))
	task, _ := f.m.selected()
	if task.Priority != model.PriorityHigh {
		t.Fatalf("expected high, got %s", task.Priority)
	}

	f.run(t, f.press(t, "space"))
	if cmd := f.press(t, "p"); cmd != nil {
		t.Fatalf("expected no mutation for a completed task")
	}
	if f.m.status != "Reopen the task to change its priority" {
		t.Fatalf("unexpected status %q", f.m.status)
	}
}

func TestHistoryOverlay(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	f.seed(t, model.TaskDraft{Title: "Ship release", Priority: model.PriorityHigh})

	f.press(t, "h")
	if f.m.mode != modeHistory {
		t.Fatalf("expected history mode")
	}
	f.m.Update(f.m.historyCmd(f.m.historyTask.ID)())
	if !strings.Contains(f.view(), tasks.HistoryEmptyText) {
		t.Fatalf("expected empty history:\n%s", f.view())
	}
	f.press(t, "esc")
	if f.m.mode != modeList || f.m.viewer.Active() {
		t.Fatalf("expected history to close")
	}

	f.run(t, f.press(t, "space"))
	f.orch.Wait()

	f.m.Update(historyMsg{taskID: "stale"})
	cmd := f.press(t, "h")
	f.m.Update(cmd())
	view := f.view()
	if !strings.Contains(view, "Priority History: Ship release") || !strings.Contains(view, "High → Completed") {
		t.Fatalf("unexpected history view:\n%s", view)
	}
	if len(f.m.historyRows) != 1 {
		t.Fatalf("expected one entry, got %+v", f.m.historyRows)
	}
}

func TestFilterTabsAndTags(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	f.seed(t,
		model.TaskDraft{Title: "Old report", DueDate: "2025-05-01", Tags: []string{"work"}},
		model.TaskDraft{Title: "Mine today", AssignedTo: "Alex Johnson", Tags: []string{"home"}},
	)

	if got := len(f.m.list.Items()); got != 2 {
		t.Fatalf("expected 2 rows, got %d", got)
	}
	f.press(t, "tab")
	if f.m.filter != tasks.FilterMine || len(f.m.list.Items()) != 1 {
		t.Fatalf("expected mine filter with 1 row, got %s/%d", f.m.filter, len(f.m.list.Items()))
	}
	f.press(t, "tab")
	if f.m.filter != tasks.FilterOverdue {
		t.Fatalf("expected overdue filter, got %s", f.m.filter)
	}
	if task, _ := f.m.selected(); task.Title != "Old report" {
		t.Fatalf("expected the overdue task, got %+v", task)
	}
	if !strings.Contains(f.view(), "overdue 2025-05-01") {
		t.Fatalf("expected overdue marker:\n%s", f.view())
	}

	f.press(t, "tab")
	f.press(t, "tab")
	if f.m.filter != tasks.FilterAll {
		t.Fatalf("expected filters to wrap, got %s", f.m.filter)
	}

	f.press(t, "t")
	f.m.input.SetValue("HOME, nothing")
	f.press(t, "enter")
	if len(f.m.tags) != 2 || f.m.tags[0] != "home" {
		t.Fatalf("unexpected tags %v", f.m.tags)
	}
	if task, _ := f.m.selected(); len(f.m.list.Items()) != 1 || task.Title != "Mine today" {
		t.Fatalf("expected the tagged task only, got %d rows", len(f.m.list.Items()))
	}
	if !strings.Contains(f.view(), "tags: #home #nothing") {
		t.Fatalf("expected the tag line:\n%s", f.view())
	}

	f.press(t, "esc")
	if len(f.m.tags) != 0 || len(f.m.list.Items()) != 2 {
		t.Fatalf("expected esc to clear tags")
	}
}

func TestNoticesReachStatusLine(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	f.feed.Notify(notice.KindSuccess, "All synced")
	f.m.Update(waitForNotice(f.m.notices)())
	if f.m.status != "All synced" || f.m.statusKind != notice.KindSuccess {
		t.Fatalf("unexpected status %q", f.m.status)
	}
	if !strings.Contains(f.view(), "All synced") {
		t.Fatalf("expected status in view:\n%s", f.view())
	}
}

func TestDetailView(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	f.seed(t, model.TaskDraft{Title: "Plan offsite", Description: "Book the venue."})

	f.press(t, "enter")
	if f.m.mode != modeDetail {
		t.Fatalf("expected detail mode")
	}
	view := f.view()
	if !strings.Contains(view, "Plan offsite") || !strings.Contains(view, "Book the venue.") {
		t.Fatalf("unexpected detail view:\n%s", view)
	}
	f.press(t, "esc")
	if f.m.mode != modeList {
		t.Fatalf("expected list mode")
	}
}

func TestQuitKey(t *testing.T) {
	f := newFixture(t)
	cmd := f.press(t, "q")
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}

func TestParseQuickAdd(t *testing.T) {
	cases := []struct {
		in   string
		want model.TaskDraft
	}{
		{"Buy milk", model.TaskDraft{Title: "Buy milk"}},
		{"Pay rent !high @2025-06-01", model.TaskDraft{Title: "Pay rent", Priority: model.PriorityHigh, DueDate: "2025-06-01"}},
		{"Fix #bug #urgent now", model.TaskDraft{Title: "Fix now", Tags: []string{"bug", "urgent"}}},
		{"Done !completed", model.TaskDraft{Title: "Done !completed"}},
		{"Meet @tomorrow", model.TaskDraft{Title: "Meet @tomorrow"}},
		{"# ! @", model.TaskDraft{Title: "# ! @"}},
	}
	for _, tc := range cases {
		got := parseQuickAdd(tc.in)
		if got.Title != tc.want.Title || got.Priority != tc.want.Priority || got.DueDate != tc.want.DueDate ||
			strings.Join(got.Tags, ",") != strings.Join(tc.want.Tags, ",") {
			t.Fatalf("parseQuickAdd(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestCycleFilter(t *testing.T) {
	if got := cycleFilter(tasks.FilterAll, -1); got != tasks.FilterCompleted {
		t.Fatalf("expected wrap to completed, got %s", got)
	}
	if got := cycleFilter(tasks.FilterCompleted, 1); got != tasks.FilterAll {
		t.Fatalf("expected wrap to all, got %s", got)
	}
	if got := cycleFilter(tasks.Filter("bogus"), 1); got != tasks.FilterAll {
		t.Fatalf("expected unknown filter to reset, got %s", got)
	}
}

func TestNextPriority(t *testing.T) {
	cases := map[model.Priority]model.Priority{
		model.PriorityLow:       model.PriorityMedium,
		model.PriorityMedium:    model.PriorityHigh,
		model.PriorityHigh:      model.PriorityLow,
		model.PriorityCompleted: model.PriorityLow,
	}
	for in, want := range cases {
		if got := nextPriority(in); got != want {
			t.Fatalf("nextPriority(%s) = %s, want %s", in, got, want)
		}
	}
}
