// Package routing maintains the process-wide index of bound full JIDs and
// delivers stanzas to them, implementing the bare-JID fan-out rules of
// RFC 6121 §8.5.2 for stanzas addressed without a resource.
package routing

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/waddle-im/waddle/jid"
	"github.com/waddle-im/waddle/stanza"
)

// ErrNotBound is returned by Unbind for an unrecognized token.
var ErrNotBound = errors.New("routing: token not bound")

// Mailbox receives stanzas addressed to a single full JID. Deliver must not
// block; an implementation backed by a network connection should buffer or
// drop rather than stall the registry.
type Mailbox interface {
	Deliver(ctx context.Context, st stanza.Stanza) error
}

// MailboxFunc adapts a function to a Mailbox.
type MailboxFunc func(ctx context.Context, st stanza.Stanza) error

// Deliver calls f(ctx, st).
func (f MailboxFunc) Deliver(ctx context.Context, st stanza.Stanza) error { return f(ctx, st) }

// Token identifies a single binding, returned by Bind and required by Unbind.
type Token uint64

// PresenceRecord is the last known presence priority and availability for a
// bound resource, used to compute RFC 6121 §8.5.2 fan-out.
type PresenceRecord struct {
	Priority  int8
	Available bool
}

type binding struct {
	full     jid.JID
	mailbox  Mailbox
	presence PresenceRecord
}

// Registry is the process-wide full-JID to mailbox index.
type Registry struct {
	mu       sync.RWMutex
	next     Token
	byToken  map[Token]*binding
	byBare   map[string]map[Token]*binding
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		byToken: make(map[Token]*binding),
		byBare:  make(map[string]map[Token]*binding),
	}
}

// Bind registers a mailbox under a full JID and returns a token identifying
// the binding. The same bare JID may have multiple bound resources.
func (r *Registry) Bind(full jid.JID, mailbox Mailbox) Token {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.next++
	tok := r.next
	b := &binding{full: full, mailbox: mailbox}
	r.byToken[tok] = b

	bare := full.Bare().String()
	if r.byBare[bare] == nil {
		r.byBare[bare] = make(map[Token]*binding)
	}
	r.byBare[bare][tok] = b
	return tok
}

// Unbind removes a previously bound mailbox.
func (r *Registry) Unbind(tok Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.byToken[tok]
	if !ok {
		return ErrNotBound
	}
	delete(r.byToken, tok)

	bare := b.full.Bare().String()
	if set := r.byBare[bare]; set != nil {
		delete(set, tok)
		if len(set) == 0 {
			delete(r.byBare, bare)
		}
	}
	return nil
}

// UpdatePresence records the latest availability/priority for a bound
// resource, consulted by DeliverBare for RFC 6121 §8.5.2 fan-out.
func (r *Registry) UpdatePresence(tok Token, p PresenceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byToken[tok]
	if !ok {
		return ErrNotBound
	}
	b.presence = p
	return nil
}

// Deliver sends a stanza to the single resource bound under a full JID. It
// reports whether any mailbox was found and the delivery error, if any.
func (r *Registry) Deliver(ctx context.Context, full jid.JID, st stanza.Stanza) (bool, error) {
	r.mu.RLock()
	var target Mailbox
	for _, b := range r.byToken {
		if b.full.Equal(full) {
			target = b.mailbox
			break
		}
	}
	r.mu.RUnlock()

	if target == nil {
		return false, nil
	}
	return true, target.Deliver(ctx, st)
}

// DeliverBare fans a stanza addressed to a bare JID out to bound resources
// per RFC 6121 §8.5.2: deliver to every available resource with the
// highest non-negative priority; if none has non-negative priority, the
// stanza is not delivered to any (caller falls back to offline storage).
// Directed-presence and message-to-all-resources semantics are left to the
// caller, which may choose to fan out to every available resource
// regardless of priority by passing allowNegative true.
func (r *Registry) DeliverBare(ctx context.Context, bare jid.JID, st stanza.Stanza, allowAll bool) (int, error) {
	r.mu.RLock()
	set := r.byBare[bare.Bare().String()]
	bindings := make([]*binding, 0, len(set))
	for _, b := range set {
		bindings = append(bindings, b)
	}
	r.mu.RUnlock()

	if len(bindings) == 0 {
		return 0, nil
	}

	if allowAll {
		var firstErr error
		delivered := 0
		for _, b := range bindings {
			if !b.presence.Available {
				continue
			}
			if err := b.mailbox.Deliver(ctx, st); err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			delivered++
		}
		return delivered, firstErr
	}

	sort.Slice(bindings, func(i, j int) bool {
		return bindings[i].presence.Priority > bindings[j].presence.Priority
	})

	var top int8 = -128
	for _, b := range bindings {
		if b.presence.Available && b.presence.Priority > top {
			top = b.presence.Priority
		}
	}
	if top < 0 {
		return 0, nil
	}

	var firstErr error
	delivered := 0
	for _, b := range bindings {
		if !b.presence.Available || b.presence.Priority != top {
			continue
		}
		if err := b.mailbox.Deliver(ctx, st); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		delivered++
	}
	return delivered, firstErr
}

// ResourcesOf returns the full JIDs currently bound under a bare JID.
func (r *Registry) ResourcesOf(bare jid.JID) []jid.JID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.byBare[bare.Bare().String()]
	out := make([]jid.JID, 0, len(set))
	for _, b := range set {
		out = append(out, b.full)
	}
	return out
}

// Len reports the number of currently bound resources, for diagnostics.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byToken)
}
