package web

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"nxttask/internal/model"
	"nxttask/internal/tasks"
)

func TestListQueryURL(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "", want: "/tasks"},
		{raw: "filter=all", want: "/tasks"},
		{raw: "filter=bogus", want: "/tasks"},
		{raw: "filter=mine", want: "/tasks?filter=mine"},
		{raw: "tag=Work&tag=work&tag=urgent", want: "/tasks?tag=work&tag=urgent"},
		{raw: "filter=completed&tag=meeting", want: "/tasks?filter=completed&tag=meeting"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			v, err := url.ParseQuery(tt.raw)
			if err != nil {
				t.Fatal(err)
			}
			if got := parseListQuery(v).URL("/tasks"); got != tt.want {
				t.Fatalf("URL = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestListQueryToggleTag(t *testing.T) {
	q := listQuery{Filter: tasks.FilterAll, Tags: []string{"work"}}

	on := q.toggleTag("urgent")
	if got := on.URL("/tasks"); got != "/tasks?tag=work&tag=urgent" {
		t.Fatalf("add tag: %q", got)
	}
	off := on.toggleTag("work")
	if got := off.URL("/tasks"); got != "/tasks?tag=urgent" {
		t.Fatalf("remove tag: %q", got)
	}
	if len(q.Tags) != 1 || q.Tags[0] != "work" {
		t.Fatalf("toggleTag must not modify the receiver: %v", q.Tags)
	}
}

func TestCalendarWeeks(t *testing.T) {
	first := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	byDate := map[string][]model.Task{
		"2025-05-20": {{ID: "a", Title: "Review", Priority: model.PriorityHigh, DueDate: "2025-05-20"}},
		"2025-04-28": {{ID: "b", Title: "Spill-over", Priority: model.PriorityLow, DueDate: "2025-04-28"}},
	}
	weeks, scheduled := calendarWeeks(first, "2025-05-17", byDate)

	if len(weeks) != 5 {
		t.Fatalf("weeks = %d, want 5", len(weeks))
	}
	for i, w := range weeks {
		if len(w) != 7 {
			t.Fatalf("week %d has %d days", i, len(w))
		}
	}
	if got := weeks[0][0]; got.Date != "2025-04-27" || got.InMonth {
		t.Fatalf("first cell = %+v", got)
	}
	if got := weeks[0][4]; got.Date != "2025-05-01" || !got.InMonth {
		t.Fatalf("May 1st should be a Thursday, got %+v", got)
	}
	if got := weeks[4][6]; got.Date != "2025-05-31" {
		t.Fatalf("last cell = %+v", got)
	}
	if scheduled != 1 {
		t.Fatalf("scheduled = %d, want 1 (outside days do not count)", scheduled)
	}

	var today int
	for _, w := range weeks {
		for _, d := range w {
			if d.Today {
				today++
				if d.Date != "2025-05-17" {
					t.Fatalf("today marked on %s", d.Date)
				}
			}
		}
	}
	if today != 1 {
		t.Fatalf("today marked %d times", today)
	}
}

func TestSignedTokens(t *testing.T) {
	secret := []byte("k1")
	now := time.Unix(1_700_000_000, 0)

	tok, err := newClientToken(secret, "client-1", now, time.Hour)
	if err != nil {
		t.Fatalf("newClientToken: %v", err)
	}
	sp, err := verifyToken(secret, tok, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("verifyToken: %v", err)
	}
	if sp.Sub != "client-1" || sp.Typ != "client" {
		t.Fatalf("payload = %+v", sp)
	}

	tests := []struct {
		name   string
		secret []byte
		token  string
		now    time.Time
	}{
		{name: "expired", secret: secret, token: tok, now: now.Add(2 * time.Hour)},
		{name: "wrong secret", secret: []byte("k2"), token: tok, now: now},
		{name: "tampered", secret: secret, token: "x" + tok, now: now},
		{name: "no signature", secret: secret, token: "abc", now: now},
		{name: "extra segment", secret: secret, token: tok + ".x", now: now},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := verifyToken(tt.secret, tt.token, tt.now); err == nil {
				t.Fatalf("expected error")
			}
		})
	}

	if _, err := newClientToken(secret, "  ", now, time.Hour); err == nil {
		t.Fatalf("expected error for empty client id")
	}
}

func TestSafeReturnPath(t *testing.T) {
	tests := map[string]string{
		"":                   "/",
		"/tasks?filter=mine": "/tasks?filter=mine",
		"https://evil.test":  "/",
		"//evil.test":        "/",
		"/\\evil.test":       "/",
		"/auth":              "/",
		"/auth?from=/x":      "/",
		"/auth/login":        "/",
		"/authors":           "/authors",
		" /calendar ":        "/calendar",
	}
	for in, want := range tests {
		if got := safeReturnPath(in); got != want {
			t.Fatalf("safeReturnPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestChatHubFanoutAndCap(t *testing.T) {
	now := time.Date(2025, 5, 17, 14, 5, 0, 0, time.UTC)
	h := newChatHub(func() time.Time { return now })

	if got := len(h.History("team-standup")); got != len(standupSeed) {
		t.Fatalf("seeded history = %d", got)
	}

	ch, cancel := h.Subscribe("design-team")
	defer cancel()
	other, cancelOther := h.Subscribe("project-x")
	defer cancelOther()

	m := h.Post(chatMessage{Channel: "design-team", Author: "Alex", Text: "hi"})
	if m.Time != "2:05 PM" {
		t.Fatalf("time = %q", m.Time)
	}
	select {
	case got := <-ch:
		if got.Text != "hi" {
			t.Fatalf("got %+v", got)
		}
	default:
		t.Fatalf("subscriber did not receive the message")
	}
	select {
	case got := <-other:
		t.Fatalf("other channel received %+v", got)
	default:
	}

	for i := 0; i < chatHistoryMax+5; i++ {
		h.Post(chatMessage{Channel: "weekly-report", Text: fmt.Sprint(i)})
	}
	hist := h.History("weekly-report")
	if len(hist) != chatHistoryMax {
		t.Fatalf("history = %d, want %d", len(hist), chatHistoryMax)
	}
	if hist[0].Text != "5" {
		t.Fatalf("oldest kept = %q", hist[0].Text)
	}
}

func TestInitials(t *testing.T) {
	tests := map[string]string{
		"Alex Johnson":   "AJ",
		"sarah":          "S",
		"Mary Ann Smith": "MA",
		"":               "",
	}
	for in, want := range tests {
		if got := initials(in); got != want {
			t.Fatalf("initials(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSweepDropsIdleClients(t *testing.T) {
	e := newTestEnv(t)

	rec := httptest.NewRecorder()
	e.srv.clients.get(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if e.srv.clients.len() != 1 {
		t.Fatalf("expected one client")
	}

	if n := e.srv.clients.sweep(fixedNow.Add(time.Minute)); n != 0 {
		t.Fatalf("fresh client swept")
	}
	if n := e.srv.clients.sweep(fixedNow.Add(e.srv.cfg.IdleTTL + time.Minute)); n != 1 {
		t.Fatalf("idle client kept")
	}
	if e.srv.clients.len() != 0 {
		t.Fatalf("registry not empty")
	}
}

func TestClientCookieReusesClient(t *testing.T) {
	e := newTestEnv(t)

	rec := httptest.NewRecorder()
	first := e.srv.clients.get(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("expected client cookie")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	if again := e.srv.clients.get(httptest.NewRecorder(), req); again != first {
		t.Fatalf("signed cookie should resolve to the same client")
	}

	forged := httptest.NewRequest(http.MethodGet, "/", nil)
	forged.AddCookie(&http.Cookie{Name: clientCookieName, Value: "bogus.sig"})
	if other := e.srv.clients.get(httptest.NewRecorder(), forged); other == first {
		t.Fatalf("forged cookie must not resolve to an existing client")
	}
}
