// Package notice carries transient, non-blocking user notices (toasts).
package notice

import (
	"sync"
	"time"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

type Notice struct {
	ID      int       `json:"id"`
	Kind    Kind      `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

type Sink interface {
	Notify(kind Kind, message string)
}

// Discard is a Sink that drops notices.
var Discard Sink = discard{}

type discard struct{}

func (discard) Notify(Kind, string) {}

// Feed keeps the most recent notices and fans them out to subscribers.
// Slow subscribers miss notices rather than block the sender.
type Feed struct {
	mu     sync.Mutex
	seq    int
	recent []Notice
	max    int
	subs   map[chan Notice]struct{}
	now    func() time.Time
}

func NewFeed(max int) *Feed {
	if max <= 0 {
		max = 20
	}
	return &Feed{max: max, subs: map[chan Notice]struct{}{}, now: time.Now}
}

func (f *Feed) Notify(kind Kind, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	n := Notice{ID: f.seq, Kind: kind, Message: message, At: f.now()}
	f.recent = append(f.recent, n)
	if len(f.recent) > f.max {
		f.recent = f.recent[len(f.recent)-f.max:]
	}
	for ch := range f.subs {
		select {
		case ch <- n:
		default:
		}
	}
}

// Recent returns up to the last max notices, oldest first.
func (f *Feed) Recent() []Notice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Notice(nil), f.recent...)
}

// Since returns the notices with an ID greater than id.
func (f *Feed) Since(id int) []Notice {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Notice
	for _, n := range f.recent {
		if n.ID > id {
			out = append(out, n)
		}
	}
	return out
}

func (f *Feed) Subscribe() (ch chan Notice, cancel func()) {
	ch = make(chan Notice, 8)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()
	return ch, func() {
		f.mu.Lock()
		if _, ok := f.subs[ch]; ok {
			delete(f.subs, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
}
