package web

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"nxttask/internal/perm"
	"nxttask/internal/session"

	"github.com/starfederation/datastar-go/datastar"
)

const sseKeepAlive = 25 * time.Second

// handleTaskEvents streams the task list of one filter/tag view: the list is
// re-rendered on every collection change and notices arrive as toasts.
func (s *Server) handleTaskEvents(w http.ResponseWriter, r *http.Request, c *browserClient) {
	q := parseListQuery(r.URL.Query())
	c.ensureLoaded(r.Context())

	changes, cancelTasks := c.tasks.Subscribe()
	defer cancelTasks()
	notes, cancelNotes := c.notices.Subscribe()
	defer cancelNotes()
	snaps, cancelSnaps := c.session.Subscribe()
	defer cancelSnaps()

	sse := datastar.NewSSE(w, r)
	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()

	patchList := func() {
		html, err := s.renderTemplate("task_list", s.taskList(c, q))
		if err != nil {
			_ = sse.ExecuteScript(fmt.Sprintf(`console.error(%q)`, err.Error()))
			return
		}
		if strings.TrimSpace(html) == "" {
			return
		}
		_ = sse.PatchElements(html, datastar.WithSelector("#task-list"), datastar.WithMode(datastar.ElementPatchModeOuter))
	}
	// The page may have been rendered before the last change.
	patchList()
	for _, n := range c.takeNotices() {
		if html, err := s.renderTemplate("toast", n); err == nil {
			_ = sse.PatchElements(html, datastar.WithSelector("#toasts"), datastar.WithMode(datastar.ElementPatchModeAppend))
		}
	}

	for {
		select {
		case <-sse.Context().Done():
			return
		case <-keepAlive.C:
			_ = sse.PatchSignals([]byte(`{}`))
		case <-changes:
			patchList()
		case n, ok := <-notes:
			if !ok {
				return
			}
			if !c.claim(n) {
				continue
			}
			html, err := s.renderTemplate("toast", n)
			if err != nil {
				_ = sse.ExecuteScript(fmt.Sprintf(`console.error(%q)`, err.Error()))
				continue
			}
			_ = sse.PatchElements(html, datastar.WithSelector("#toasts"), datastar.WithMode(datastar.ElementPatchModeAppend))
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			if snap.Phase == session.PhaseSignedOut {
				_ = sse.ExecuteScript(fmt.Sprintf(`window.location.assign(%q)`, perm.LoginPath))
				return
			}
		}
	}
}
