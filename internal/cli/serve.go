package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"nxttask/internal/backend"
	"nxttask/internal/store"
	"nxttask/internal/web"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(app *App) *cobra.Command {
	var addr string
	var open bool
	var secure bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web UI",
		Long: strings.TrimSpace(`
Serve the Nxttask web UI from a local HTTP server.

Each browser gets its own session, signed in with the accounts created by
` + "`nxttask users add`" + ` or the sign-up form. The task list updates live.
`),
		Example: strings.TrimSpace(`
# Serve on localhost
nxttask serve --addr 127.0.0.1:3335

# Serve on every interface without opening a browser
nxttask serve --addr :3335 --open=false
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			listenAddr := strings.TrimSpace(addr)
			if listenAddr == "" {
				listenAddr = app.cfg.Addr
			}
			if listenAddr == "" {
				return writeErr(cmd, errors.New("serve: missing --addr"))
			}

			db, err := openDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer db.Close() //nolint:errcheck

			cookieSecret, err := store.LoadOrCreateSecret(filepath.Join(filepath.Dir(app.cfg.DatabaseURL), "cookie.key"))
			if err != nil {
				return writeErr(cmd, fmt.Errorf("cookie secret: %w", err))
			}

			srv, err := web.NewServer(web.ServerConfig{
				Addr:           listenAddr,
				NewClient:      func(token string) backend.Client { return db.NewClient(token) },
				CookieSecret:   cookieSecret,
				SignOutTimeout: app.cfg.SignOutTimeout,
				SecureCookies:  secure,
				Logger:         app.l,
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			defer srv.Close()

			ln, err := net.Listen("tcp", listenAddr)
			if err != nil {
				return writeErr(cmd, err)
			}

			actualAddr := ln.Addr().String()
			url := "http://" + actualAddr + "/"

			opened := false
			openErr := ""
			if open {
				if err := openPath(url); err != nil {
					openErr = err.Error()
				} else {
					opened = true
				}
			}

			hints := []string{}
			if !opened {
				hints = append(hints, "open "+url)
			}

			_ = writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"addr":      actualAddr,
					"url":       url,
					"db":        app.cfg.DatabaseURL,
					"opened":    opened,
					"openError": openErr,
					"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
				},
				"_hints": hints,
			})
			app.l.Info("nxttask web running", "url", url)
			if openErr != "" {
				app.l.Warn("failed to open browser", "error", openErr)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go pruneSessions(ctx, db, app)

			hs := &http.Server{Handler: srv.Handler(), ReadHeaderTimeout: 10 * time.Second}
			errCh := make(chan error, 1)
			go func() { errCh <- hs.Serve(ln) }()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return writeErr(cmd, err)
			case <-ctx.Done():
			}

			app.l.Info("shutting down")
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			// Live event streams and sockets never finish on their own.
			srv.Close()
			if err := hs.Shutdown(sctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return writeErr(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Bind address (host:port or :port; default from NXTTASK_ADDR or 127.0.0.1:3335)")
	cmd.Flags().BoolVar(&open, "open", true, "Open the UI in your default browser")
	cmd.Flags().BoolVar(&secure, "secure-cookies", false, "Mark cookies Secure (serve behind HTTPS)")
	return cmd
}

// pruneSessions drops expired sessions hourly until ctx ends.
func pruneSessions(ctx context.Context, db *store.DB, app *App) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := db.PruneSessions(ctx, time.Now())
			if err != nil {
				app.l.Warn("pruning sessions", "error", err)
				continue
			}
			if n > 0 {
				app.l.Debug("pruned sessions", "count", n)
			}
		}
	}
}

func openPath(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("empty path")
	}
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", path).Run()
	case "windows":
		return exec.Command("cmd", "/c", "start", "", path).Run()
	default:
		return exec.Command("xdg-open", path).Run()
	}
}
