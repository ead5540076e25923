package web

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"nxttask/internal/apperr"
	"nxttask/internal/notice"
	"nxttask/internal/perm"
	"nxttask/internal/session"
)

type signedPayload struct {
	Exp int64  `json:"exp"`
	Sub string `json:"sub"`           // client id
	Typ string `json:"typ,omitempty"` // "client"
	N   string `json:"n,omitempty"`   // nonce
}

func signToken(secret []byte, payload signedPayload) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	p := base64.RawURLEncoding.EncodeToString(b)
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write([]byte(p))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return p + "." + sig, nil
}

func verifyToken(secret []byte, token string, now time.Time) (signedPayload, error) {
	token = strings.TrimSpace(token)
	p, sig, ok := strings.Cut(token, ".")
	if !ok || strings.Contains(sig, ".") {
		return signedPayload{}, errors.New("invalid token format")
	}

	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write([]byte(p))
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil || !hmac.Equal(mac.Sum(nil), got) {
		return signedPayload{}, errors.New("invalid token signature")
	}

	raw, err := base64.RawURLEncoding.DecodeString(p)
	if err != nil {
		return signedPayload{}, errors.New("invalid token payload")
	}
	var sp signedPayload
	if err := json.Unmarshal(raw, &sp); err != nil {
		return signedPayload{}, errors.New("invalid token payload")
	}
	if sp.Exp == 0 {
		return signedPayload{}, errors.New("token missing exp")
	}
	if now.Unix() > sp.Exp {
		return signedPayload{}, errors.New("token expired")
	}
	if strings.TrimSpace(sp.Sub) == "" {
		return signedPayload{}, errors.New("token missing sub")
	}
	return sp, nil
}

func newNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func newClientToken(secret []byte, clientID string, now time.Time, ttl time.Duration) (string, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return "", errors.New("missing client id")
	}
	n, err := newNonce()
	if err != nil {
		return "", err
	}
	return signToken(secret, signedPayload{
		Typ: "client",
		Sub: clientID,
		N:   n,
		Exp: now.Add(ttl).Unix(),
	})
}

// safeReturnPath keeps post-login redirects on this site and off the auth pages.
func safeReturnPath(from string) string {
	from = strings.TrimSpace(from)
	if !strings.HasPrefix(from, "/") || strings.HasPrefix(from, "//") || strings.HasPrefix(from, "/\\") {
		return perm.HomePath
	}
	if from == perm.LoginPath || strings.HasPrefix(from, perm.LoginPath+"/") || strings.HasPrefix(from, perm.LoginPath+"?") {
		return perm.HomePath
	}
	return from
}

type authVM struct {
	View    string // login|signup
	From    string
	Email   string
	Name    string
	Errors  map[string]string
	Notices []notice.Notice
}

func (s *Server) renderAuth(w http.ResponseWriter, status int, c *browserClient, vm authVM) {
	vm.Notices = c.takeNotices()
	if vm.View != "signup" {
		vm.View = "login"
	}
	s.writeHTMLTemplateStatus(w, status, "auth.html", vm)
}

func (s *Server) handleAuthGet(w http.ResponseWriter, r *http.Request) {
	c := s.clients.get(w, r)
	snap := c.settle(r.Context(), s.cfg.SettleTimeout)

	from := r.URL.Query().Get("from")
	if snap.IsAuthenticated {
		http.Redirect(w, r, safeReturnPath(from), http.StatusSeeOther)
		return
	}
	s.renderAuth(w, http.StatusOK, c, authVM{View: r.URL.Query().Get("view"), From: from})
}

func (s *Server) handleLoginPost(w http.ResponseWriter, r *http.Request) {
	c := s.clients.get(w, r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	form := session.LoginForm{
		Email:    strings.TrimSpace(r.PostForm.Get("email")),
		Password: r.PostForm.Get("password"),
	}
	from := r.PostForm.Get("from")
	vm := authVM{View: "login", From: from, Email: form.Email}

	if err := form.Validate(); err != nil {
		vm.Errors = fieldErrors(err)
		s.renderAuth(w, http.StatusUnprocessableEntity, c, vm)
		return
	}
	c.settle(r.Context(), s.cfg.SettleTimeout)
	if err := c.session.SignIn(r.Context(), form.Email, form.Password); err != nil {
		s.renderAuth(w, http.StatusUnauthorized, c, vm)
		return
	}

	s.setTokenCookie(w, c.backend.AccessToken())
	http.Redirect(w, r, safeReturnPath(from), http.StatusSeeOther)
}

func (s *Server) handleSignUpPost(w http.ResponseWriter, r *http.Request) {
	c := s.clients.get(w, r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	form := session.SignUpForm{
		FullName:        strings.TrimSpace(r.PostForm.Get("fullName")),
		Email:           strings.TrimSpace(r.PostForm.Get("email")),
		Password:        r.PostForm.Get("password"),
		ConfirmPassword: r.PostForm.Get("confirmPassword"),
	}
	vm := authVM{View: "signup", Email: form.Email, Name: form.FullName}

	if err := form.Validate(); err != nil {
		vm.Errors = fieldErrors(err)
		s.renderAuth(w, http.StatusUnprocessableEntity, c, vm)
		return
	}
	c.settle(r.Context(), s.cfg.SettleTimeout)
	if err := c.session.SignUp(r.Context(), form.Email, form.Password, form.FullName); err != nil {
		s.renderAuth(w, http.StatusUnprocessableEntity, c, vm)
		return
	}
	// The account needs email verification; back to the login view.
	http.Redirect(w, r, perm.LoginPath, http.StatusSeeOther)
}

func (s *Server) handleLogoutPost(w http.ResponseWriter, r *http.Request) {
	c := s.clients.get(w, r)
	c.settle(r.Context(), s.cfg.SettleTimeout)
	if err := c.session.SignOut(r.Context()); err != nil {
		s.l.Warn("sign out", "client", c.id, "error", err)
	}
	c.tasks.Reset()
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, perm.LoginPath, http.StatusSeeOther)
}

func (s *Server) setTokenCookie(w http.ResponseWriter, token string) {
	if token == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(clientCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func fieldErrors(err error) map[string]string {
	var valErr apperr.ValidationError
	if errors.As(err, &valErr) {
		return map[string]string{valErr.Field: valErr.Message}
	}
	return map[string]string{"form": apperr.Message(err)}
}
