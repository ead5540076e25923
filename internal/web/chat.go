package web

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
)

const (
	chatHistoryMax   = 100
	chatTextMax      = 2000
	chatWriteTimeout = 10 * time.Second
	chatTimeLayout   = "3:04 PM"
)

type chatMessage struct {
	Channel  string `json:"channel"`
	Author   string `json:"author"`
	Initials string `json:"initials"`
	Time     string `json:"time"`
	Text     string `json:"text"`
}

// chatHub keeps recent messages per channel in memory and fans new ones out
// to every connected socket of that channel.
type chatHub struct {
	now func() time.Time

	mu      sync.Mutex
	history map[string][]chatMessage
	subs    map[string]map[chan chatMessage]struct{}
}

func newChatHub(now func() time.Time) *chatHub {
	return &chatHub{
		now:     now,
		history: map[string][]chatMessage{"team-standup": seedChannel("team-standup", standupSeed)},
		subs:    map[string]map[chan chatMessage]struct{}{},
	}
}

func seedChannel(channel string, msgs []chatMessage) []chatMessage {
	out := make([]chatMessage, len(msgs))
	for i, m := range msgs {
		m.Channel = channel
		out[i] = m
	}
	return out
}

func (h *chatHub) History(channel string) []chatMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]chatMessage(nil), h.history[channel]...)
}

// Post stamps and stores m, then delivers it to subscribers of its channel.
// Subscribers that fall behind miss messages.
func (h *chatHub) Post(m chatMessage) chatMessage {
	m.Time = h.now().Format(chatTimeLayout)
	h.mu.Lock()
	defer h.mu.Unlock()
	hist := append(h.history[m.Channel], m)
	if len(hist) > chatHistoryMax {
		hist = hist[len(hist)-chatHistoryMax:]
	}
	h.history[m.Channel] = hist
	for ch := range h.subs[m.Channel] {
		select {
		case ch <- m:
		default:
		}
	}
	return m
}

func (h *chatHub) Subscribe(channel string) (chan chatMessage, func()) {
	ch := make(chan chatMessage, 16)
	h.mu.Lock()
	if h.subs[channel] == nil {
		h.subs[channel] = map[chan chatMessage]struct{}{}
	}
	h.subs[channel][ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		if _, ok := h.subs[channel][ch]; ok {
			delete(h.subs[channel], ch)
			close(ch)
		}
		h.mu.Unlock()
	}
}

var chatUpgrader = websocket.Upgrader{
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 4 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin == "" {
			return true
		}
		return strings.HasSuffix(origin, "://"+strings.TrimSpace(r.Host))
	},
}

type chatInbound struct {
	Text string `json:"text"`
}

func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request, c *browserClient) {
	channel, ok := findChannel(r.URL.Query().Get("channel"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	conn, err := chatUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.l.Warn("chat upgrade", "error", err)
		return
	}
	defer conn.Close()

	author := c.session.Snapshot().DisplayName()
	msgs, cancel := s.chat.Subscribe(channel.ID)
	defer cancel()

	ctx, stop := context.WithCancel(r.Context())
	defer stop()

	go func() {
		defer stop()
		for {
			var in chatInbound
			if err := conn.ReadJSON(&in); err != nil {
				return
			}
			text := strings.TrimSpace(in.Text)
			if text == "" {
				continue
			}
			if utf8.RuneCountInString(text) > chatTextMax {
				text = string([]rune(text)[:chatTextMax])
			}
			s.chat.Post(chatMessage{Channel: channel.ID, Author: author, Initials: initials(author), Text: text})
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-msgs:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(chatWriteTimeout))
			if err := conn.WriteJSON(m); err != nil {
				return
			}
		}
	}
}

// initials is up to two leading letters of name's words.
func initials(name string) string {
	out := make([]rune, 0, 2)
	for _, w := range strings.Fields(name) {
		r, _ := utf8.DecodeRuneInString(w)
		out = append(out, []rune(strings.ToUpper(string(r)))...)
		if len(out) >= 2 {
			break
		}
	}
	return string(out)
}
