package web

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"nxttask/internal/backend"
	"nxttask/internal/logging"
	"nxttask/internal/model"
	"nxttask/internal/notice"

	"github.com/CAFxX/httpcompression"
)

//go:embed templates/*.html static/*.css
var assetsFS embed.FS

const (
	defaultIdleTTL       = 30 * time.Minute
	defaultSettleTimeout = 2 * time.Second
)

type ServerConfig struct {
	Addr string
	// NewClient opens a backend connection for one browser. A non-empty token
	// restores a session issued earlier.
	NewClient func(token string) backend.Client
	// CookieSecret signs the client-id cookie.
	CookieSecret []byte

	SignOutTimeout time.Duration
	// IdleTTL is how long a browser's client is kept without requests.
	IdleTTL time.Duration
	// SettleTimeout bounds how long a request waits for a loading session.
	SettleTimeout time.Duration
	SecureCookies bool

	Logger logging.Logger
	Now    func() time.Time
}

type Server struct {
	cfg      ServerConfig
	tmpl     *template.Template
	l        logging.Logger
	compress func(http.Handler) http.Handler

	clients *clientRegistry
	chat    *chatHub

	closeOnce sync.Once
	done      chan struct{}
}

func NewServer(cfg ServerConfig) (*Server, error) {
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	if cfg.Addr == "" {
		return nil, errors.New("web: addr is empty")
	}
	if cfg.NewClient == nil {
		return nil, errors.New("web: backend client factory is nil")
	}
	if len(cfg.CookieSecret) == 0 {
		return nil, errors.New("web: cookie secret is empty")
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = defaultIdleTTL
	}
	if cfg.SettleTimeout <= 0 {
		cfg.SettleTimeout = defaultSettleTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	tmpl, err := template.New("base").Funcs(template.FuncMap{
		"trim":          strings.TrimSpace,
		"markdown":      renderMarkdownHTML,
		"priorityLabel": func(p model.Priority) string { return p.Label() },
		"noticeClass":   noticeClass,
		"join":          strings.Join,
	}).ParseFS(assetsFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	compress, err := httpcompression.DefaultAdapter()
	if err != nil {
		return nil, fmt.Errorf("web: compression: %w", err)
	}

	srv := &Server{
		cfg:      cfg,
		tmpl:     tmpl,
		l:        cfg.Logger,
		compress: compress,
		chat:     newChatHub(cfg.Now),
		done:     make(chan struct{}),
	}
	srv.clients = newClientRegistry(srv)
	go srv.clients.sweepLoop(srv.done)
	return srv, nil
}

func (s *Server) Addr() string { return s.cfg.Addr }

// Close stops the idle sweeper and releases every browser client.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.clients.closeAll()
	})
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /static/app.css", s.handleAppCSS)
	mux.HandleFunc("GET /auth", s.handleAuthGet)
	mux.HandleFunc("POST /auth/login", s.handleLoginPost)
	mux.HandleFunc("POST /auth/signup", s.handleSignUpPost)
	mux.HandleFunc("POST /auth/logout", s.handleLogoutPost)

	mux.Handle("GET /{$}", s.protect("", s.handleDashboard))
	mux.Handle("GET /tasks", s.protect("", s.handleTasks))
	mux.Handle("POST /tasks", s.protect("", s.handleTaskCreate))
	mux.Handle("GET /tasks/events", s.protect("", s.handleTaskEvents))
	mux.Handle("POST /tasks/{id}/toggle", s.protect("", s.handleTaskToggle))
	mux.Handle("GET /tasks/{id}/edit", s.protect("", s.handleTaskEditGet))
	mux.Handle("POST /tasks/{id}/edit", s.protect("", s.handleTaskEditPost))
	mux.Handle("GET /tasks/{id}/history", s.protect("", s.handleTaskHistory))
	mux.Handle("GET /calendar", s.protect("", s.handleCalendar))
	mux.Handle("GET /daily-plan", s.protect("", s.handleDailyPlan))
	mux.Handle("GET /messages", s.protect("", s.handleMessages))
	mux.Handle("GET /messages/ws", s.protect("", s.handleChatWS))
	mux.Handle("GET /team", s.protect("", s.handleTeam))
	mux.Handle("GET /team/manage", s.protect(model.RoleManager, s.handleTeamManage))
	mux.Handle("POST /team/manage/{id}/role", s.protect(model.RoleManager, s.handleTeamRolePost))
	mux.HandleFunc("/", s.handleNotFound)

	compressed := s.compress(mux)
	return s.logRequests(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Streams flush per event; compressing them would buffer.
		if r.URL.Path == "/tasks/events" || r.URL.Path == "/messages/ws" {
			mux.ServeHTTP(w, r)
			return
		}
		compressed.ServeHTTP(w, r)
	}))
}

func (s *Server) handleAppCSS(w http.ResponseWriter, r *http.Request) {
	b, err := assetsFS.ReadFile("static/app.css")
	if err != nil || len(b) == 0 {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.l.Warn("route not found", "method", r.Method, "path", r.URL.Path)
	s.writeHTMLTemplateStatus(w, http.StatusNotFound, "not_found.html", struct{ Path string }{Path: r.URL.Path})
}

func (s *Server) renderTemplate(name string, data any) (string, error) {
	var b strings.Builder
	if err := s.tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (s *Server) writeHTMLTemplate(w http.ResponseWriter, name string, data any) {
	s.writeHTMLTemplateStatus(w, http.StatusOK, name, data)
}

func (s *Server) writeHTMLTemplateStatus(w http.ResponseWriter, status int, name string, data any) {
	html, err := s.renderTemplate(name, data)
	if err != nil {
		s.l.Error("render template", "template", name, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, html)
}

func noticeClass(k notice.Kind) string {
	switch k {
	case notice.KindError:
		return "toast toast-error"
	case notice.KindSuccess:
		return "toast toast-success"
	default:
		return "toast"
	}
}
