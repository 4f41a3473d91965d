// Package bridge talks to a slide document rendered in an isolated
// viewport. The host can only send two fire-and-forget messages: RESET and
// REVEAL(id).
package bridge

import (
	"sync"
)

type MessageType string

const (
	TypeReset  MessageType = "RESET"
	TypeReveal MessageType = "REVEAL"
)

// Message is the payload delivered to the embedded document.
type Message struct {
	Type MessageType `json:"type"`
	ID   string      `json:"id,omitempty"`
}

func Reset() Message { return Message{Type: TypeReset} }
func Reveal(id string) Message { return Message{Type: TypeReveal, ID: id} }
func (m Message) String() string { return string(m.Type) + idSuffix(m.ID) }

func idSuffix(id string) string {
	if id == "" {
		return ""
	}
	return "(" + id + ")"
}

// Channel delivers messages to one embedded document. Delivery is not
// acknowledged; an error only means the message was not handed off.
type Channel interface {
	Send(msg Message) error
}

// Viewport tracks the load lifecycle of one embedded document. Until the
// document reports it has loaded every message is dropped, not queued.
type Viewport struct {
	ch      Channel
	loaded  bool
	sent    int
	dropped int
	lastErr error
}

func NewViewport(ch Channel) *Viewport {
	return &Viewport{ch: ch}
}

func (v *Viewport) Loaded() bool { return v.loaded }

// MarkLoaded records the load event and sends the initial RESET.
func (v *Viewport) MarkLoaded() {
	v.loaded = true
	v.send(Reset())
}

// Sync rebuilds the reveal state from scratch: RESET, then one REVEAL per
// due step in order.
func (v *Viewport) Sync(due []string) {
	v.send(Reset())
	for _, id := range due {
		v.send(Reveal(id))
	}
}

func (v *Viewport) send(msg Message) {
	if !v.loaded || v.ch == nil {
		v.dropped++
		return
	}
	if err := v.ch.Send(msg); err != nil {
		v.lastErr = err
		v.dropped++
		return
	}
	v.sent++
}

// Stats reports how many messages were handed to the channel and how many
// were dropped, plus the last send error.
func (v *Viewport) Stats() (sent, dropped int, lastErr error) {
	return v.sent, v.dropped, v.lastErr
}

// Recorder is an in-memory Channel that keeps every message it receives.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) Send(msg Message) error {
	r.mu.Lock()
	r.messages = append(r.messages, msg)
	r.mu.Unlock()
	return nil
}

// Messages returns a copy of everything received so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Take returns and clears the received messages.
func (r *Recorder) Take() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.messages
	r.messages = nil
	return out
}
