package csi

import (
	"context"
	"sync"

	"github.com/waddle-im/waddle/stanza"
)

// DefaultMaxBuffered bounds how many non-urgent stanzas are held while a
// client is inactive, oldest-dropped-first beyond the bound so a long
// background period can't grow memory without limit.
const DefaultMaxBuffered = 256

// Urgent reports whether a stanza must be delivered immediately even while
// the client has signaled inactive: presence, IQs, and message stanzas
// carrying a body or an encrypted payload are urgent; bare chat-state
// notifications and receipts are not.
func Urgent(st stanza.Stanza) bool {
	msg, ok := st.(*stanza.Message)
	if !ok {
		return true
	}
	if msg.Body != "" {
		return true
	}
	for _, ext := range msg.Extensions {
		if ext.XMLName.Local == "encrypted" {
			return true
		}
	}
	return false
}

// Flusher delivers a buffered stanza once CSI goes active again.
type Flusher interface {
	Deliver(ctx context.Context, st stanza.Stanza) error
}

// Buffer holds non-urgent stanzas while a connection is CSI-inactive,
// flushing them in order once the client signals active again.
type Buffer struct {
	mu     sync.Mutex
	active bool
	queue  []stanza.Stanza
	max    int
}

// NewBuffer creates a Buffer with the default bound.
func NewBuffer() *Buffer {
	return &Buffer{active: true, max: DefaultMaxBuffered}
}

// SetActive toggles CSI state; going active returns the buffered backlog
// for the caller to flush (oldest first), and clears the buffer.
func (b *Buffer) SetActive(active bool) []stanza.Stanza {
	b.mu.Lock()
	defer b.mu.Unlock()
	wasInactive := !b.active
	b.active = active
	if active && wasInactive {
		out := b.queue
		b.queue = nil
		return out
	}
	return nil
}

// Observe classifies a stanza: urgent stanzas and anything while active
// pass through unbuffered; otherwise it's queued (dropping the oldest
// once the bound is reached) and the caller should not deliver it yet.
func (b *Buffer) Observe(st stanza.Stanza) (deliverNow bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active || Urgent(st) {
		return true
	}
	if len(b.queue) >= b.max {
		b.queue = b.queue[1:]
	}
	b.queue = append(b.queue, st)
	return false
}
