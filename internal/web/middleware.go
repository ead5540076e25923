package web

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"net/url"
	"time"

	"nxttask/internal/model"
	"nxttask/internal/perm"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("web: response does not support hijacking")
	}
	if r.status == 0 {
		r.status = http.StatusSwitchingProtocols
	}
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		s.l.Info("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}

type clientHandler func(w http.ResponseWriter, r *http.Request, c *browserClient)

// protect resolves the browser's client and runs the route guard before next.
// A session that is still loading gets SettleTimeout to settle; after that the
// loading page is shown.
func (s *Server) protect(role model.Role, next clientHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := s.clients.get(w, r)
		snap := c.settle(r.Context(), s.cfg.SettleTimeout)

		requested := ""
		if r.Method == http.MethodGet {
			requested = r.URL.RequestURI()
		}
		d := perm.Guard(snap, role, requested)
		switch d.Outcome {
		case perm.Pending:
			s.writeHTMLTemplate(w, "loading.html", struct{ Path string }{Path: r.URL.RequestURI()})
		case perm.RedirectLogin:
			loc := d.Location
			if d.From != "" && d.From != perm.HomePath {
				loc += "?from=" + url.QueryEscape(d.From)
			}
			http.Redirect(w, r, loc, http.StatusSeeOther)
		case perm.RedirectHome:
			s.l.Debug("role required", "path", r.URL.Path, "role", role, "actual", snap.Role())
			http.Redirect(w, r, d.Location, http.StatusSeeOther)
		default:
			next(w, r, c)
		}
	})
}
