package web

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"nxttask/internal/apperr"
	"nxttask/internal/model"
	"nxttask/internal/tasks"
)

type listQuery struct {
	Filter tasks.Filter
	Tags   []string
}

func parseListQuery(q url.Values) listQuery {
	f, ok := tasks.ParseFilter(q.Get("filter"))
	if !ok {
		f = tasks.FilterAll
	}
	return listQuery{Filter: f, Tags: model.NormalizeTags(q["tag"])}
}

// URL is the tasks page for the query. Empty parts are left out.
func (q listQuery) URL(path string) string {
	v := url.Values{}
	if q.Filter != "" && q.Filter != tasks.FilterAll {
		v.Set("filter", string(q.Filter))
	}
	for _, t := range q.Tags {
		v.Add("tag", t)
	}
	if len(v) == 0 {
		return path
	}
	return path + "?" + v.Encode()
}

func (q listQuery) withFilter(f tasks.Filter) listQuery {
	q.Filter = f
	return q
}

// toggleTag adds tag to the selection, or removes it when already selected.
func (q listQuery) toggleTag(tag string) listQuery {
	out := make([]string, 0, len(q.Tags)+1)
	found := false
	for _, t := range q.Tags {
		if t == tag {
			found = true
			continue
		}
		out = append(out, t)
	}
	if !found {
		out = append(out, tag)
	}
	q.Tags = out
	return q
}

type taskRowVM struct {
	model.Task
	Overdue       bool
	PriorityClass string
	Description   template.HTML
}

type taskListVM struct {
	Rows      []taskRowVM
	Loaded    bool
	EmptyText string
	ReturnURL string
}

type filterTabVM struct {
	Label  string
	URL    string
	Active bool
	Count  int
}

type tagChipVM struct {
	Tag    string
	URL    string
	Active bool
}

type taskFormVM struct {
	ID          string
	Title       string
	Description string
	Priority    string
	DueDate     string
	AssignedTo  string
	Tags        string
	Completed   bool
}

type tasksVM struct {
	Base        baseVM
	Query       listQuery
	Tabs        []filterTabVM
	Chips       []tagChipVM
	List        taskListVM
	StreamURL   string
	Form        taskFormVM
	Errors      map[string]string
	Priorities  []model.Priority
	Suggestions []string
	Today       string
}

func taskRow(t model.Task, today string) taskRowVM {
	return taskRowVM{
		Task:          t,
		Overdue:       t.Overdue(today),
		PriorityClass: "priority-" + string(t.Priority),
		Description:   renderMarkdownHTML(t.Description),
	}
}

func (s *Server) taskList(c *browserClient, q listQuery) taskListVM {
	today := model.Today(s.cfg.Now())
	list := c.tasks.Filter(q.Filter, q.Tags)
	vm := taskListVM{
		Rows:      make([]taskRowVM, 0, len(list)),
		Loaded:    c.tasks.Loaded(),
		ReturnURL: q.URL("/tasks"),
		EmptyText: "No tasks found",
	}
	if len(q.Tags) > 0 {
		vm.EmptyText = "No tasks match the selected tags"
	}
	for _, t := range list {
		vm.Rows = append(vm.Rows, taskRow(t, today))
	}
	return vm
}

func (s *Server) tasksPage(c *browserClient, q listQuery) tasksVM {
	vm := tasksVM{
		Base:        s.base(c, "Tasks", "tasks"),
		Query:       q,
		List:        s.taskList(c, q),
		StreamURL:   q.URL("/tasks/events"),
		Priorities:  []model.Priority{model.PriorityLow, model.PriorityMedium, model.PriorityHigh},
		Suggestions: model.TagSuggestions,
		Today:       model.Today(s.cfg.Now()),
		Form:        taskFormVM{Priority: string(model.PriorityMedium)},
	}
	for _, f := range tasks.Filters {
		vm.Tabs = append(vm.Tabs, filterTabVM{
			Label:  f.Label(),
			URL:    q.withFilter(f).URL("/tasks"),
			Active: f == q.Filter,
			Count:  len(c.tasks.Filter(f, q.Tags)),
		})
	}
	selected := map[string]bool{}
	for _, t := range q.Tags {
		selected[t] = true
	}
	for _, tag := range model.NormalizeTags(append(c.tasks.Tags(), q.Tags...)) {
		vm.Chips = append(vm.Chips, tagChipVM{Tag: tag, URL: q.toggleTag(tag).URL("/tasks"), Active: selected[tag]})
	}
	return vm
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request, c *browserClient) {
	c.ensureLoaded(r.Context())
	s.writeHTMLTemplate(w, "tasks.html", s.tasksPage(c, parseListQuery(r.URL.Query())))
}

func (s *Server) handleTaskCreate(w http.ResponseWriter, r *http.Request, c *browserClient) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	c.ensureLoaded(r.Context())
	form := readTaskForm(r.PostForm)
	q := parseListQuery(returnQuery(r.PostForm.Get("return")))

	_, err := c.tasks.Create(r.Context(), model.TaskDraft{
		Title:       form.Title,
		Description: form.Description,
		Priority:    model.Priority(form.Priority),
		DueDate:     form.DueDate,
		AssignedTo:  form.AssignedTo,
		Tags:        []string{form.Tags},
	})
	if err != nil {
		vm := s.tasksPage(c, q)
		vm.Form = form
		vm.Errors = fieldErrors(err)
		status := http.StatusUnprocessableEntity
		var valErr apperr.ValidationError
		if !errors.As(err, &valErr) {
			status = http.StatusBadGateway
		}
		s.writeHTMLTemplateStatus(w, status, "tasks.html", vm)
		return
	}
	http.Redirect(w, r, q.URL("/tasks"), http.StatusSeeOther)
}

func (s *Server) handleTaskToggle(w http.ResponseWriter, r *http.Request, c *browserClient) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	c.ensureLoaded(r.Context())
	// Failures surface as notices on the next page.
	_, _, _ = c.tasks.ToggleCompletion(r.Context(), r.PathValue("id"))
	http.Redirect(w, r, safeReturnPath(r.PostForm.Get("return")), http.StatusSeeOther)
}

type taskEditVM struct {
	Base       baseVM
	Form       taskFormVM
	Errors     map[string]string
	Priorities []model.Priority
}

func (s *Server) handleTaskEditGet(w http.ResponseWriter, r *http.Request, c *browserClient) {
	c.ensureLoaded(r.Context())
	t, ok := c.tasks.Get(r.PathValue("id"))
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	s.writeHTMLTemplate(w, "task_edit.html", taskEditVM{
		Base:       s.base(c, "Edit Task", "tasks"),
		Form:       formFromTask(t),
		Priorities: allPriorities(),
	})
}

func (s *Server) handleTaskEditPost(w http.ResponseWriter, r *http.Request, c *browserClient) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	c.ensureLoaded(r.Context())
	id := r.PathValue("id")
	prev, ok := c.tasks.Get(id)
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	form := readTaskForm(r.PostForm)
	form.ID = id

	edited := prev
	edited.Title = form.Title
	edited.Description = form.Description
	edited.Priority = model.Priority(form.Priority)
	edited.DueDate = form.DueDate
	edited.AssignedTo = form.AssignedTo
	edited.Tags = []string{form.Tags}
	edited.Completed = form.Completed

	_, found, err := c.tasks.Edit(r.Context(), edited)
	if !found {
		s.handleNotFound(w, r)
		return
	}
	if err != nil {
		status := http.StatusUnprocessableEntity
		var valErr apperr.ValidationError
		if !errors.As(err, &valErr) {
			status = http.StatusBadGateway
		}
		vm := taskEditVM{Base: s.base(c, "Edit Task", "tasks"), Form: form, Errors: fieldErrors(err), Priorities: allPriorities()}
		s.writeHTMLTemplateStatus(w, status, "task_edit.html", vm)
		return
	}
	http.Redirect(w, r, "/tasks", http.StatusSeeOther)
}

type historyRowVM struct {
	From model.Priority
	To   model.Priority
	At   string
}

type taskHistoryVM struct {
	Base      baseVM
	Task      model.Task
	Rows      []historyRowVM
	EmptyText string
	Error     string
}

func (s *Server) handleTaskHistory(w http.ResponseWriter, r *http.Request, c *browserClient) {
	c.ensureLoaded(r.Context())
	t, ok := c.tasks.Get(r.PathValue("id"))
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	viewer := tasks.NewHistoryViewer(c.repo)
	viewer.Open(t.ID)
	defer viewer.Close()

	vm := taskHistoryVM{Base: s.base(c, "Priority History", "tasks"), Task: t, EmptyText: tasks.HistoryEmptyText}
	entries, _, err := viewer.Entries(r.Context())
	if err != nil {
		s.l.Warn("loading priority history", "taskId", t.ID, "error", err)
		vm.Error = "Failed to load history: " + apperr.Message(err)
	}
	for _, e := range entries {
		vm.Rows = append(vm.Rows, historyRowVM{
			From: e.PreviousPriority,
			To:   e.NewPriority,
			At:   e.CreatedAt.In(s.cfg.Now().Location()).Format(tasks.HistoryTimeLayout),
		})
	}
	s.writeHTMLTemplate(w, "task_history.html", vm)
}

func readTaskForm(v url.Values) taskFormVM {
	return taskFormVM{
		Title:       strings.TrimSpace(v.Get("title")),
		Description: strings.TrimSpace(v.Get("description")),
		Priority:    strings.TrimSpace(v.Get("priority")),
		DueDate:     strings.TrimSpace(v.Get("dueDate")),
		AssignedTo:  strings.TrimSpace(v.Get("assignedTo")),
		Tags:        strings.Join(v["tags"], ","),
		Completed:   v.Get("completed") != "",
	}
}

func formFromTask(t model.Task) taskFormVM {
	return taskFormVM{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    string(t.Priority),
		DueDate:     t.DueDate,
		AssignedTo:  t.AssignedTo,
		Tags:        strings.Join(t.Tags, ", "),
		Completed:   t.Completed,
	}
}

func allPriorities() []model.Priority {
	return []model.Priority{model.PriorityLow, model.PriorityMedium, model.PriorityHigh, model.PriorityCompleted}
}

// returnQuery extracts the query of a /tasks return path.
func returnQuery(ret string) url.Values {
	u, err := url.Parse(safeReturnPath(ret))
	if err != nil || u.Path != "/tasks" {
		return url.Values{}
	}
	return u.Query()
}
