// Package pipeline runs a stanza through an ordered chain of processors,
// each free to let it continue, consume it, or reject it outright.
package pipeline

import (
	"context"
	"sort"
	"sync"

	"github.com/waddle-im/waddle/jid"
	"github.com/waddle-im/waddle/stanza"
)

// Verdict is the outcome a Processor returns for a stanza it examined.
type Verdict int

const (
	// Continue passes the stanza to the next processor in priority order.
	Continue Verdict = iota
	// Consumed stops the chain; the stanza was fully handled.
	Consumed
	// Rejected stops the chain and signals the stanza must be bounced to
	// its sender as a stanza-level error.
	Rejected
)

// Identity describes the connection a stanza arrived on or is being sent to.
type Identity struct {
	Local  jid.JID
	Remote jid.JID
	// Server reports whether this connection is a server role (s2s) rather
	// than a bound client (c2s).
	Server bool
}

// Features is the set of negotiated stream features relevant downstream,
// e.g. whether Stream Management is enabled on this connection.
type Features struct {
	StreamManagement bool
	Carbons          bool
	CSI              bool
}

// Publisher emits pipeline-observable events, e.g. for the debug tap or an
// MAM archive ingest step. Implementations must not block.
type Publisher interface {
	Publish(ctx context.Context, event string, st stanza.Stanza)
}

// PublisherFunc adapts a function to a Publisher.
type PublisherFunc func(ctx context.Context, event string, st stanza.Stanza)

// Publish calls f(ctx, event, st).
func (f PublisherFunc) Publish(ctx context.Context, event string, st stanza.Stanza) {
	f(ctx, event, st)
}

// NopPublisher discards every event.
var NopPublisher Publisher = PublisherFunc(func(context.Context, string, stanza.Stanza) {})

// Context carries everything a Processor needs beyond the stanza itself.
// It is built once per connection and reused across stanzas; processors
// must treat it as read-only except through its exported methods.
type Context struct {
	Identity  Identity
	Features  Features
	Publisher Publisher

	mu   sync.RWMutex
	vals map[string]any
}

// NewContext builds a pipeline Context for a connection.
func NewContext(id Identity, feat Features, pub Publisher) *Context {
	if pub == nil {
		pub = NopPublisher
	}
	return &Context{Identity: id, Features: feat, Publisher: pub, vals: make(map[string]any)}
}

// Set stores a value under key, for processors later in the chain to read.
func (c *Context) Set(key string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals[key] = v
}

// Value retrieves a value stored earlier in the chain.
func (c *Context) Value(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.vals[key]
	return v, ok
}

// RejectError carries the stanza-error condition a Rejected verdict bounces
// back to the sender.
type RejectError struct {
	Condition string
	Text      string
}

func (e *RejectError) Error() string { return "pipeline: rejected: " + e.Condition }

// Processor examines a stanza moving through the pipeline, inbound (off the
// wire, pre-routing) or outbound (post-routing, pre-delivery).
type Processor interface {
	// Name identifies the processor for logging and debug taps.
	Name() string
	// Priority orders processors ascending; lower runs first.
	Priority() int
	// ProcessInbound examines a stanza read from the connection.
	ProcessInbound(ctx context.Context, pc *Context, st stanza.Stanza) (Verdict, error)
	// ProcessOutbound examines a stanza about to be delivered to the
	// connection.
	ProcessOutbound(ctx context.Context, pc *Context, st stanza.Stanza) (Verdict, error)
}

// Base provides no-op ProcessInbound/ProcessOutbound implementations so a
// Processor need only override the direction it cares about.
type Base struct{}

// ProcessInbound default: continue.
func (Base) ProcessInbound(context.Context, *Context, stanza.Stanza) (Verdict, error) {
	return Continue, nil
}

// ProcessOutbound default: continue.
func (Base) ProcessOutbound(context.Context, *Context, stanza.Stanza) (Verdict, error) {
	return Continue, nil
}

// Pipeline holds an ordered, priority-sorted list of processors.
type Pipeline struct {
	mu         sync.RWMutex
	processors []Processor
	sorted     bool
}

// New creates an empty Pipeline.
func New() *Pipeline {
	return &Pipeline{}
}

// Use registers a processor. The pipeline re-sorts lazily on next run.
func (p *Pipeline) Use(proc Processor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processors = append(p.processors, proc)
	p.sorted = false
}

func (p *Pipeline) snapshot() []Processor {
	p.mu.Lock()
	if !p.sorted {
		sort.SliceStable(p.processors, func(i, j int) bool {
			return p.processors[i].Priority() < p.processors[j].Priority()
		})
		p.sorted = true
	}
	out := make([]Processor, len(p.processors))
	copy(out, p.processors)
	p.mu.Unlock()
	return out
}

// RunInbound runs a stanza read off the wire through every processor in
// priority order, stopping at the first Consumed or Rejected verdict.
func (p *Pipeline) RunInbound(ctx context.Context, pc *Context, st stanza.Stanza) (Verdict, error) {
	for _, proc := range p.snapshot() {
		v, err := proc.ProcessInbound(ctx, pc, st)
		if err != nil {
			return Rejected, err
		}
		if v != Continue {
			return v, nil
		}
	}
	return Continue, nil
}

// RunOutbound runs a stanza about to be delivered through every processor in
// priority order, stopping at the first Consumed or Rejected verdict.
func (p *Pipeline) RunOutbound(ctx context.Context, pc *Context, st stanza.Stanza) (Verdict, error) {
	for _, proc := range p.snapshot() {
		v, err := proc.ProcessOutbound(ctx, pc, st)
		if err != nil {
			return Rejected, err
		}
		if v != Continue {
			return v, nil
		}
	}
	return Continue, nil
}
