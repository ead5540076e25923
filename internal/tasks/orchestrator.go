// Package tasks owns the in-memory task collection of one view: it runs the
// create, toggle and edit flows against the data-access layer, derives filtered
// subsets and records priority changes in the audit log.
package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"nxttask/internal/apperr"
	"nxttask/internal/logging"
	"nxttask/internal/model"
	"nxttask/internal/mutate"
	"nxttask/internal/notice"
)

const logWriteTimeout = 10 * time.Second

// Repo is the data-access surface the orchestrator needs. taskdata.Repo implements it.
type Repo interface {
	FetchAll(ctx context.Context) ([]model.Task, error)
	Create(ctx context.Context, t model.Task) (model.Task, error)
	Update(ctx context.Context, t model.Task) (model.Task, error)
	LogPriorityChange(ctx context.Context, e model.PriorityChangeLogEntry) (model.PriorityChangeLogEntry, error)
	ListHistory(ctx context.Context, taskID string) ([]model.PriorityChangeLogEntry, error)
}

// Options configures an Orchestrator. Zero values get working defaults.
type Options struct {
	Logger  logging.Logger
	Notices notice.Sink
	// Now is the clock used for "today". Defaults to time.Now.
	Now func() time.Time
	// Actor returns the display name "mine" matches against.
	Actor func() string
}

// Orchestrator owns the task collection of one view. It is safe for
// concurrent use.
type Orchestrator struct {
	repo    Repo
	l       logging.Logger
	notices notice.Sink
	now     func() time.Time
	actor   func() string

	mu     sync.Mutex
	tasks  []model.Task
	loaded bool
	// prior holds the priority a task had before it was completed.
	prior map[string]model.Priority
	subs  map[chan struct{}]struct{}

	// Audit writes leave in the order the changes happened.
	logMu      sync.Mutex
	logQueue   []logWrite
	logRunning bool
	wg         sync.WaitGroup
}

type logWrite struct {
	ctx   context.Context
	entry model.PriorityChangeLogEntry
}

// New returns an orchestrator with an empty, unloaded collection.
func New(repo Repo, opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Notices == nil {
		opts.Notices = notice.Discard
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Actor == nil {
		opts.Actor = func() string { return "" }
	}
	return &Orchestrator{
		repo:    repo,
		l:       opts.Logger,
		notices: opts.Notices,
		now:     opts.Now,
		actor:   opts.Actor,
		prior:   map[string]model.Priority{},
		subs:    map[chan struct{}]struct{}{},
	}
}

// Load replaces the collection with the backend's tasks, newest first.
func (o *Orchestrator) Load(ctx context.Context) error {
	list, err := o.repo.FetchAll(ctx)
	if err != nil {
		o.notices.Notify(notice.KindError, "Failed to load tasks: "+apperr.Message(err))
		return err
	}
	o.mu.Lock()
	o.tasks = list
	o.loaded = true
	o.changedLocked()
	o.mu.Unlock()
	return nil
}

// Reset drops the collection, e.g. after sign-out.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	o.tasks = nil
	o.loaded = false
	o.prior = map[string]model.Priority{}
	o.changedLocked()
	o.mu.Unlock()
}

// Loaded reports whether Load has succeeded at least once.
func (o *Orchestrator) Loaded() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.loaded
}

// Tasks returns a copy of the collection.
func (o *Orchestrator) Tasks() []model.Task {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]model.Task(nil), o.tasks...)
}

// Get returns the task with id from the collection.
func (o *Orchestrator) Get(id string) (model.Task, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	i := o.indexLocked(id)
	if i < 0 {
		return model.Task{}, false
	}
	return o.tasks[i], true
}

// Create applies draft defaults, persists the task and prepends the stored
// record. Validation errors are returned without contacting the backend.
func (o *Orchestrator) Create(ctx context.Context, draft model.TaskDraft) (model.Task, error) {
	t, err := mutate.NewTask(draft, model.Today(o.now()))
	if err != nil {
		return model.Task{}, err
	}
	saved, err := o.repo.Create(ctx, t)
	if err != nil {
		o.notices.Notify(notice.KindError, "Failed to create task: "+apperr.Message(err))
		return model.Task{}, err
	}

	o.mu.Lock()
	o.tasks = append([]model.Task{saved}, o.tasks...)
	o.changedLocked()
	o.mu.Unlock()

	o.notices.Notify(notice.KindSuccess, fmt.Sprintf("Task %q created", saved.Title))
	return saved, nil
}

// ToggleCompletion flips the completion of the task with id. ok is false when
// the id is not in the collection; nothing is sent to the backend then.
func (o *Orchestrator) ToggleCompletion(ctx context.Context, id string) (task model.Task, ok bool, err error) {
	prev, ok := o.Get(id)
	if !ok {
		o.l.Debug("toggle of unknown task ignored", "id", id)
		return model.Task{}, false, nil
	}
	remembered := o.remembered(ctx, prev)
	res := mutate.ToggleCompletion(prev, remembered)

	saved, err := o.repo.Update(ctx, res.Task)
	if err != nil {
		o.notices.Notify(notice.KindError, "Failed to update task: "+apperr.Message(err))
		return prev, true, err
	}
	o.apply(saved, res)

	if saved.Completed {
		o.notices.Notify(notice.KindSuccess, fmt.Sprintf("Task %q marked as completed", saved.Title))
	} else {
		o.notices.Notify(notice.KindSuccess, fmt.Sprintf("Task %q reopened", saved.Title))
	}
	if res.Changed {
		o.logChange(ctx, saved, res.From, res.To)
	}
	return saved, true, nil
}

// Edit persists the full edited record. The pre-edit snapshot is the task with
// the same id in the collection; ok is false when there is none.
func (o *Orchestrator) Edit(ctx context.Context, edited model.Task) (task model.Task, ok bool, err error) {
	prev, ok := o.Get(edited.ID)
	if !ok {
		o.l.Debug("edit of unknown task ignored", "id", edited.ID)
		return model.Task{}, false, nil
	}
	res, err := mutate.ApplyEdit(prev, edited, o.remembered(ctx, prev))
	if err != nil {
		return prev, true, err
	}
	saved, err := o.repo.Update(ctx, res.Task)
	if err != nil {
		o.notices.Notify(notice.KindError, "Failed to update task: "+apperr.Message(err))
		return prev, true, err
	}
	o.apply(saved, res)

	o.notices.Notify(notice.KindSuccess, fmt.Sprintf("Task %q updated", saved.Title))
	if res.Changed {
		o.logChange(ctx, saved, res.From, res.To)
	}
	return saved, true, nil
}

// Filter derives a subset of the current collection. See Apply.
func (o *Orchestrator) Filter(f Filter, tags []string) []model.Task {
	return Apply(o.Tasks(), f, tags, model.Today(o.now()), o.actor())
}

// Tags returns every tag used in the collection, in first-seen order.
func (o *Orchestrator) Tags() []string {
	var all []string
	for _, t := range o.Tasks() {
		all = append(all, t.Tags...)
	}
	return model.NormalizeTags(all)
}

// Subscribe returns a channel signalled after every change of the collection.
// Signals coalesce; readers should re-read Tasks.
func (o *Orchestrator) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	o.mu.Lock()
	o.subs[ch] = struct{}{}
	o.mu.Unlock()
	return ch, func() {
		o.mu.Lock()
		if _, ok := o.subs[ch]; ok {
			delete(o.subs, ch)
			close(ch)
		}
		o.mu.Unlock()
	}
}

// Wait blocks until pending audit log writes have finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// apply replaces the task with the stored record. Responses are applied by id,
// so a response for a task that is no longer present is dropped.
func (o *Orchestrator) apply(saved model.Task, res mutate.Result) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch {
	case saved.Completed && res.From.Substantive():
		o.prior[saved.ID] = res.From
	case !saved.Completed:
		delete(o.prior, saved.ID)
	}
	if i := o.indexLocked(saved.ID); i >= 0 {
		o.tasks[i] = saved
		o.changedLocked()
	}
}

// remembered is the priority t had before completion: the in-memory value, or
// the latest "-> completed" entry of its queued or stored history when the task
// was completed before this collection was loaded.
func (o *Orchestrator) remembered(ctx context.Context, t model.Task) model.Priority {
	o.mu.Lock()
	p, ok := o.prior[t.ID]
	o.mu.Unlock()
	if ok || !t.Completed {
		return p
	}
	if p, ok := o.pendingCompletion(t.ID); ok {
		return p
	}
	entries, err := o.repo.ListHistory(ctx, t.ID)
	if err != nil {
		o.l.Warn("looking up priority before completion", "id", t.ID, "error", err)
		return ""
	}
	for _, e := range entries {
		if e.NewPriority == model.PriorityCompleted {
			return e.PreviousPriority
		}
	}
	return ""
}

// logChange queues an audit entry without blocking the caller. Entries are
// written one at a time in queue order. A failed write is logged and otherwise
// ignored; the task update stands.
func (o *Orchestrator) logChange(ctx context.Context, t model.Task, from, to model.Priority) {
	w := logWrite{
		ctx: context.WithoutCancel(ctx),
		entry: model.PriorityChangeLogEntry{
			TaskID:           t.ID,
			TaskTitle:        t.Title,
			PreviousPriority: from,
			NewPriority:      to,
		},
	}
	o.wg.Add(1)
	o.logMu.Lock()
	o.logQueue = append(o.logQueue, w)
	start := !o.logRunning
	o.logRunning = true
	o.logMu.Unlock()
	if start {
		go o.drainLogs()
	}
}

// pendingCompletion looks for a queued "-> completed" entry of taskID, newest first.
func (o *Orchestrator) pendingCompletion(taskID string) (model.Priority, bool) {
	o.logMu.Lock()
	defer o.logMu.Unlock()
	for i := len(o.logQueue) - 1; i >= 0; i-- {
		e := o.logQueue[i].entry
		if e.TaskID == taskID && e.NewPriority == model.PriorityCompleted {
			return e.PreviousPriority, true
		}
	}
	return "", false
}

// drainLogs writes the head of the queue and only then pops it, so an entry in
// flight is still visible to pendingCompletion.
func (o *Orchestrator) drainLogs() {
	for {
		o.logMu.Lock()
		if len(o.logQueue) == 0 {
			o.logRunning = false
			o.logMu.Unlock()
			return
		}
		w := o.logQueue[0]
		o.logMu.Unlock()

		o.writeLog(w)

		o.logMu.Lock()
		o.logQueue = o.logQueue[1:]
		o.logMu.Unlock()
		o.wg.Done()
	}
}

func (o *Orchestrator) writeLog(w logWrite) {
	ctx, cancel := context.WithTimeout(w.ctx, logWriteTimeout)
	defer cancel()
	e := w.entry
	if _, err := o.repo.LogPriorityChange(ctx, e); err != nil {
		o.l.Warn("writing priority change", "taskId", e.TaskID, "from", e.PreviousPriority, "to", e.NewPriority, "error", err)
	}
}

func (o *Orchestrator) indexLocked(id string) int {
	for i := range o.tasks {
		if o.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (o *Orchestrator) changedLocked() {
	for ch := range o.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
