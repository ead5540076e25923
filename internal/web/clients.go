package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"nxttask/internal/backend"
	"nxttask/internal/notice"
	"nxttask/internal/session"
	"nxttask/internal/taskdata"
	"nxttask/internal/tasks"

	"github.com/google/uuid"
)

const (
	clientCookieName = "nxttask_client"
	tokenCookieName  = "nxttask_token"
	clientCookieTTL  = 30 * 24 * time.Hour
	noticeBacklog    = 20
	loadTimeout      = 15 * time.Second
)

// browserClient is everything one browser owns: its backend connection,
// session store, task collection and notices.
type browserClient struct {
	id      string
	backend backend.Client
	repo    *taskdata.Repo
	session *session.Store
	tasks   *tasks.Orchestrator
	notices *notice.Feed
	cancel  func()

	loadMu sync.Mutex

	mu       sync.Mutex
	lastSeen time.Time
	shown    int
}

func (c *browserClient) touch(now time.Time) {
	c.mu.Lock()
	c.lastSeen = now
	c.mu.Unlock()
}

func (c *browserClient) idleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}

// takeNotices returns the notices not rendered yet and marks them shown.
func (c *browserClient) takeNotices() []notice.Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.notices.Since(c.shown)
	if len(out) > 0 {
		c.shown = out[len(out)-1].ID
	}
	return out
}

// claim marks n shown and reports whether it had not been shown before.
func (c *browserClient) claim(n notice.Notice) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n.ID <= c.shown {
		return false
	}
	c.shown = n.ID
	return true
}

// settle waits up to timeout for a loading session to settle and returns the
// latest snapshot, which is still loading when the wait timed out.
func (c *browserClient) settle(ctx context.Context, timeout time.Duration) session.Snapshot {
	snap := c.session.Snapshot()
	if !snap.IsLoading {
		return snap
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	snap, _ = c.session.WaitSettled(ctx)
	return snap
}

// ensureLoaded fetches the collection once per sign-in. A failed load is
// retried by the next request.
func (c *browserClient) ensureLoaded(ctx context.Context) {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()
	if c.tasks.Loaded() {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()
	_ = c.tasks.Load(ctx)
}

func (c *browserClient) close() {
	c.cancel()
	c.session.Close()
	c.tasks.Wait()
}

type clientRegistry struct {
	srv *Server

	mu      sync.Mutex
	clients map[string]*browserClient
}

func newClientRegistry(srv *Server) *clientRegistry {
	return &clientRegistry{srv: srv, clients: map[string]*browserClient{}}
}

// get returns the client of the requesting browser, creating one (and the
// cookie naming it) when the request carries no known client id.
func (reg *clientRegistry) get(w http.ResponseWriter, r *http.Request) *browserClient {
	now := reg.srv.cfg.Now()
	id := ""
	if ck, err := r.Cookie(clientCookieName); err == nil {
		if sp, err := verifyToken(reg.srv.cfg.CookieSecret, ck.Value, now); err == nil && sp.Typ == "client" {
			id = sp.Sub
		}
	}

	reg.mu.Lock()
	if c, ok := reg.clients[id]; ok && id != "" {
		reg.mu.Unlock()
		c.touch(now)
		return c
	}
	reg.mu.Unlock()

	if id == "" {
		id = uuid.NewString()
	}
	token := ""
	if ck, err := r.Cookie(tokenCookieName); err == nil {
		token = ck.Value
	}

	c := reg.srv.newBrowserClient(id, token)
	reg.mu.Lock()
	if existing, ok := reg.clients[id]; ok {
		// Another request of the same browser won the race.
		reg.mu.Unlock()
		c.close()
		existing.touch(now)
		return existing
	}
	reg.clients[id] = c
	reg.mu.Unlock()
	c.touch(now)

	if v, err := newClientToken(reg.srv.cfg.CookieSecret, id, now, clientCookieTTL); err == nil {
		http.SetCookie(w, &http.Cookie{
			Name:     clientCookieName,
			Value:    v,
			Path:     "/",
			MaxAge:   int(clientCookieTTL.Seconds()),
			HttpOnly: true,
			Secure:   reg.srv.cfg.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	} else {
		reg.srv.l.Error("signing client cookie", "error", err)
	}
	return c
}

func (reg *clientRegistry) len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.clients)
}

// sweep closes clients idle for longer than IdleTTL.
func (reg *clientRegistry) sweep(now time.Time) int {
	var stale []*browserClient
	reg.mu.Lock()
	for id, c := range reg.clients {
		if now.Sub(c.idleSince()) > reg.srv.cfg.IdleTTL {
			stale = append(stale, c)
			delete(reg.clients, id)
		}
	}
	reg.mu.Unlock()
	for _, c := range stale {
		c.close()
	}
	if len(stale) > 0 {
		reg.srv.l.Debug("swept idle clients", "count", len(stale))
	}
	return len(stale)
}

func (reg *clientRegistry) sweepLoop(done <-chan struct{}) {
	t := time.NewTicker(reg.srv.cfg.IdleTTL / 2)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			reg.sweep(reg.srv.cfg.Now())
		}
	}
}

func (reg *clientRegistry) closeAll() {
	reg.mu.Lock()
	all := reg.clients
	reg.clients = map[string]*browserClient{}
	reg.mu.Unlock()
	for _, c := range all {
		c.close()
	}
}

func (s *Server) newBrowserClient(id, token string) *browserClient {
	bc := s.cfg.NewClient(token)
	feed := notice.NewFeed(noticeBacklog)
	l := s.l
	repo := taskdata.New(bc, l)
	st := session.NewStore(bc, repo, session.Options{
		Logger:         l,
		Notices:        feed,
		SignOutTimeout: s.cfg.SignOutTimeout,
	})
	orch := tasks.New(repo, tasks.Options{
		Logger:  l,
		Notices: feed,
		Now:     s.cfg.Now,
		Actor:   func() string { return st.Snapshot().DisplayName() },
	})

	// Follow the session: a signed-out browser must not keep the previous
	// user's collection.
	snaps, cancel := st.Subscribe()
	go func() {
		for snap := range snaps {
			if snap.Phase == session.PhaseSignedOut && orch.Loaded() {
				orch.Reset()
			}
		}
	}()
	go st.Start(context.Background())

	return &browserClient{
		id:      id,
		backend: bc,
		repo:    repo,
		session: st,
		tasks:   orch,
		notices: feed,
		cancel:  cancel,
	}
}
