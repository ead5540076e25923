package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"nxttask/internal/apperr"
	"nxttask/internal/logging"
	"nxttask/internal/model"
	"nxttask/internal/notice"
	"nxttask/internal/session"
	"nxttask/internal/tasks"
)

type Options struct {
	Tasks   *tasks.Orchestrator
	History tasks.HistoryLister
	Session *session.Store
	Notices *notice.Feed
	Logger  logging.Logger
	Now     func() time.Time
}

type mode int

const (
	modeList mode = iota
	modeAdd
	modeTags
	modeDetail
	modeHistory
)

const (
	headerLines = 3
	footerLines = 3
)

type (
	loadedMsg  struct{ err error }
	changedMsg struct{}
	noticeMsg  struct{ n notice.Notice }
	doneMsg    struct{ err error }
	historyMsg struct {
		taskID  string
		entries []model.PriorityChangeLogEntry
		err     error
	}
)

type appModel struct {
	ctx  context.Context
	opts Options
	keys keyMap
	help help.Model

	list  list.Model
	input textinput.Model

	mode    mode
	filter  tasks.Filter
	tags    []string
	loading bool

	width  int
	height int

	status     string
	statusKind notice.Kind

	viewer      *tasks.HistoryViewer
	historyTask model.Task
	historyRows []model.PriorityChangeLogEntry
	historyErr  string

	changes <-chan struct{}
	notices chan notice.Notice
	cancels []func()
}

func newAppModel(ctx context.Context, opts Options) *appModel {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	l := list.New(nil, taskDelegate{}, 80, 20)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetShowPagination(true)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	in := textinput.New()
	in.CharLimit = 200

	m := &appModel{
		ctx:     ctx,
		opts:    opts,
		keys:    defaultKeyMap(),
		help:    help.New(),
		list:    l,
		input:   in,
		filter:  tasks.FilterAll,
		loading: !opts.Tasks.Loaded(),
		viewer:  tasks.NewHistoryViewer(opts.History),
		width:   80,
		height:  24,
	}

	changes, cancel := opts.Tasks.Subscribe()
	m.changes = changes
	m.cancels = append(m.cancels, cancel)
	if opts.Notices != nil {
		ch, cancel := opts.Notices.Subscribe()
		m.notices = ch
		m.cancels = append(m.cancels, cancel)
	}
	m.refresh()
	return m
}

func (m *appModel) close() {
	for _, cancel := range m.cancels {
		cancel()
	}
	m.cancels = nil
	m.viewer.Close()
}

func (m *appModel) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForChange(m.changes), waitForNotice(m.notices)}
	if m.loading {
		cmds = append(cmds, m.loadCmd())
	}
	return tea.Batch(cmds...)
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return changedMsg{}
	}
}

func waitForNotice(ch chan notice.Notice) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return noticeMsg{n: n}
	}
}

func (m *appModel) loadCmd() tea.Cmd {
	orch, ctx := m.opts.Tasks, m.ctx
	return func() tea.Msg {
		return loadedMsg{err: orch.Load(ctx)}
	}
}

func (m *appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.list.SetSize(msg.Width, max(1, msg.Height-headerLines-footerLines))
		return m, nil

	case loadedMsg:
		m.loading = false
		m.refresh()
		return m, nil

	case changedMsg:
		m.refresh()
		return m, waitForChange(m.changes)

	case noticeMsg:
		m.status, m.statusKind = msg.n.Message, msg.n.Kind
		return m, waitForNotice(m.notices)

	case doneMsg:
		var valErr apperr.ValidationError
		if errors.As(msg.err, &valErr) {
			m.status, m.statusKind = valErr.Message, notice.KindError
		}
		return m, nil

	case historyMsg:
		if msg.taskID != m.historyTask.ID {
			return m, nil
		}
		m.historyRows = msg.entries
		m.historyErr = ""
		if msg.err != nil {
			m.historyErr = "Failed to load history: " + apperr.Message(msg.err)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeAdd, modeTags:
			return m.updateInput(msg)
		case modeDetail, modeHistory:
			return m.updateOverlay(msg)
		default:
			return m.updateList(msg)
		}
	}
	return m, nil
}

func (m *appModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.Add):
		m.startInput(modeAdd, "Title  #tag !high @2025-05-20", "")
		return m, textinput.Blink
	case key.Matches(msg, m.keys.Tags):
		m.startInput(modeTags, "work, urgent", strings.Join(m.tags, ", "))
		return m, textinput.Blink
	case key.Matches(msg, m.keys.NextFilter):
		m.filter = cycleFilter(m.filter, 1)
		m.refresh()
		return m, nil
	case key.Matches(msg, m.keys.PrevFilter):
		m.filter = cycleFilter(m.filter, -1)
		m.refresh()
		return m, nil
	case key.Matches(msg, m.keys.Reload):
		m.loading = true
		return m, m.loadCmd()
	case key.Matches(msg, m.keys.Back):
		if len(m.tags) > 0 {
			m.tags = nil
			m.refresh()
		}
		return m, nil
	}

	sel, ok := m.selected()
	switch {
	case key.Matches(msg, m.keys.Toggle):
		if !ok {
			return m, nil
		}
		return m, m.mutate(func(ctx context.Context, o *tasks.Orchestrator) error {
			_, _, err := o.ToggleCompletion(ctx, sel.ID)
			return err
		})
	case key.Matches(msg, m.keys.Priority):
		if !ok {
			return m, nil
		}
		if sel.Completed {
			m.status, m.statusKind = "Reopen the task to change its priority", notice.KindInfo
			return m, nil
		}
		next := sel
		next.Priority = nextPriority(sel.Priority)
		return m, m.mutate(func(ctx context.Context, o *tasks.Orchestrator) error {
			_, _, err := o.Edit(ctx, next)
			return err
		})
	case key.Matches(msg, m.keys.Open):
		if ok {
			m.mode = modeDetail
		}
		return m, nil
	case key.Matches(msg, m.keys.History):
		if !ok {
			return m, nil
		}
		m.mode = modeHistory
		m.historyTask = sel
		m.historyRows = nil
		m.historyErr = ""
		m.viewer.Open(sel.ID)
		return m, m.historyCmd(sel.ID)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *appModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.stopInput()
		return m, nil
	case tea.KeyEnter:
		value := m.input.Value()
		was := m.mode
		m.stopInput()
		if was == modeTags {
			m.tags = model.NormalizeTags([]string{value})
			m.refresh()
			return m, nil
		}
		draft := parseQuickAdd(value)
		return m, m.mutate(func(ctx context.Context, o *tasks.Orchestrator) error {
			_, err := o.Create(ctx, draft)
			return err
		})
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *appModel) updateOverlay(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Open):
		if m.mode == modeHistory {
			m.viewer.Close()
		}
		m.mode = modeList
	}
	return m, nil
}

func (m *appModel) startInput(md mode, placeholder, value string) {
	m.mode = md
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
}

func (m *appModel) stopInput() {
	m.mode = modeList
	m.input.Blur()
	m.input.Reset()
}

func (m *appModel) mutate(fn func(ctx context.Context, o *tasks.Orchestrator) error) tea.Cmd {
	orch, ctx := m.opts.Tasks, m.ctx
	return func() tea.Msg {
		return doneMsg{err: fn(ctx, orch)}
	}
}

func (m *appModel) historyCmd(taskID string) tea.Cmd {
	viewer, ctx := m.viewer, m.ctx
	return func() tea.Msg {
		entries, _, err := viewer.Entries(ctx)
		return historyMsg{taskID: taskID, entries: entries, err: err}
	}
}

func (m *appModel) selected() (model.Task, bool) {
	it, ok := m.list.SelectedItem().(taskItem)
	if !ok {
		return model.Task{}, false
	}
	return it.task, true
}

// refresh rebuilds the rows from the collection, keeping the selected task.
func (m *appModel) refresh() {
	keep := ""
	if sel, ok := m.selected(); ok {
		keep = sel.ID
	}
	today := model.Today(m.opts.Now())
	rows := m.opts.Tasks.Filter(m.filter, m.tags)
	items := make([]list.Item, 0, len(rows))
	idx := 0
	for i, t := range rows {
		if t.ID == keep {
			idx = i
		}
		items = append(items, taskItem{task: t, overdue: t.Overdue(today)})
	}
	m.list.SetItems(items)
	if len(items) > 0 {
		m.list.Select(idx)
	}
	if m.mode == modeDetail {
		if _, ok := m.selected(); !ok {
			m.mode = modeList
		}
	}
}

func cycleFilter(f tasks.Filter, step int) tasks.Filter {
	n := len(tasks.Filters)
	for i, cur := range tasks.Filters {
		if cur == f {
			return tasks.Filters[((i+step)%n+n)%n]
		}
	}
	return tasks.FilterAll
}

func nextPriority(p model.Priority) model.Priority {
	switch p {
	case model.PriorityLow:
		return model.PriorityMedium
	case model.PriorityMedium:
		return model.PriorityHigh
	default:
		return model.PriorityLow
	}
}

// parseQuickAdd reads "Title words #tag !priority @YYYY-MM-DD". Unrecognised
// tokens stay in the title; validation happens on create.
func parseQuickAdd(s string) model.TaskDraft {
	var d model.TaskDraft
	var title []string
	for _, w := range strings.Fields(s) {
		switch {
		case len(w) > 1 && w[0] == '#':
			d.Tags = append(d.Tags, w[1:])
		case len(w) > 1 && w[0] == '!':
			if p, ok := model.ParsePriority(w[1:]); ok && p.Substantive() {
				d.Priority = p
				continue
			}
			title = append(title, w)
		case len(w) > 1 && w[0] == '@' && model.ValidDate(w[1:]):
			d.DueDate = w[1:]
		default:
			title = append(title, w)
		}
	}
	d.Title = strings.Join(title, " ")
	return d
}

func (m *appModel) View() string {
	switch m.mode {
	case modeDetail:
		return m.viewDetail()
	case modeHistory:
		return m.viewHistory()
	}

	var b strings.Builder
	b.WriteString(m.viewHeader() + "\n")
	b.WriteString(m.viewTabs() + "\n")
	if len(m.tags) > 0 {
		b.WriteString(styleMuted().Render("tags: #"+strings.Join(m.tags, " #")+"  (esc clears)") + "\n")
	} else {
		b.WriteString("\n")
	}

	switch {
	case m.loading:
		b.WriteString(styleMuted().Render("Loading tasks…") + "\n")
	case len(m.list.Items()) == 0:
		empty := "No tasks found"
		if len(m.tags) > 0 {
			empty = "No tasks match the selected tags"
		}
		b.WriteString(styleMuted().Render(empty) + "\n")
	default:
		b.WriteString(m.list.View() + "\n")
	}

	switch m.mode {
	case modeAdd:
		b.WriteString("New task: " + m.input.View() + "\n")
	case modeTags:
		b.WriteString("Tags: " + m.input.View() + "\n")
	default:
		b.WriteString(m.viewStatus() + "\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *appModel) viewHeader() string {
	name := ""
	if m.opts.Session != nil {
		name = m.opts.Session.Snapshot().DisplayName()
	}
	left := styleHeader().Render("Nxttask")
	if name != "" {
		left += styleMuted().Render(" · " + name)
	}
	today := m.opts.Now().Format("Mon Jan 2, 2006")
	return joinLeftRight(left, styleMuted().Render(today), m.width)
}

func (m *appModel) viewTabs() string {
	parts := make([]string, 0, len(tasks.Filters))
	for _, f := range tasks.Filters {
		label := fmt.Sprintf("%s (%d)", f.Label(), len(m.opts.Tasks.Filter(f, m.tags)))
		parts = append(parts, styleTab(f == m.filter).Render(label))
	}
	return strings.Join(parts, "   ")
}

func (m *appModel) viewStatus() string {
	if m.status == "" {
		return ""
	}
	return styleNotice(m.statusKind).Render(m.status)
}

func (m *appModel) viewDetail() string {
	t, ok := m.selected()
	if !ok {
		return ""
	}
	body := renderMarkdown(TaskMarkdown(t), m.width)
	return lipgloss.JoinVertical(lipgloss.Left, body, "", styleMuted().Render("esc back · q quit"))
}

func (m *appModel) viewHistory() string {
	var b strings.Builder
	b.WriteString(styleHeader().Render("Priority History: "+m.historyTask.Title) + "\n\n")
	switch {
	case m.historyErr != "":
		b.WriteString(styleNotice(notice.KindError).Render(m.historyErr) + "\n")
	case len(m.historyRows) == 0:
		b.WriteString(styleMuted().Render(tasks.HistoryEmptyText) + "\n")
	default:
		loc := m.opts.Now().Location()
		for _, e := range m.historyRows {
			change := stylePriority(e.PreviousPriority).Render(e.PreviousPriority.Label()) +
				" → " + stylePriority(e.NewPriority).Render(e.NewPriority.Label())
			at := styleMuted().Render(e.CreatedAt.In(loc).Format(tasks.HistoryTimeLayout))
			b.WriteString(joinLeftRight(change, at, m.width) + "\n")
		}
	}
	b.WriteString("\n" + styleMuted().Render("esc back · q quit"))
	return b.String()
}

// TaskMarkdown is the markdown document describing t, as shown in the detail
// view and by `nxttask tasks show`.
func TaskMarkdown(t model.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", t.Title)
	fmt.Fprintf(&b, "- **Priority:** %s\n", t.Priority.Label())
	if t.DueDate != "" {
		fmt.Fprintf(&b, "- **Due:** %s\n", t.DueDate)
	}
	if t.AssignedTo != "" {
		fmt.Fprintf(&b, "- **Assigned to:** %s\n", t.AssignedTo)
	}
	if len(t.Tags) > 0 {
		fmt.Fprintf(&b, "- **Tags:** #%s\n", strings.Join(t.Tags, " #"))
	}
	fmt.Fprintf(&b, "- **ID:** `%s`\n", t.ID)
	if d := strings.TrimSpace(t.Description); d != "" {
		b.WriteString("\n" + d + "\n")
	}
	return b.String()
}
