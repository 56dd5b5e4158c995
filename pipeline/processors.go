package pipeline

import (
	"context"

	"github.com/waddle-im/waddle/stanza"
)

// FromEnforcer rewrites or rejects a stanza's from attribute so a client
// can never spoof an identity other than its own bound full/bare JID.
type FromEnforcer struct{ Base }

// NewFromEnforcer creates the From-enforcement processor, priority 5.
func NewFromEnforcer() *FromEnforcer { return &FromEnforcer{} }

// Name identifies the processor.
func (*FromEnforcer) Name() string { return "from-enforcer" }

// Priority places this processor first in the inbound chain.
func (*FromEnforcer) Priority() int { return 5 }

// ProcessInbound stamps the stanza's from with the connection's bound
// identity, ignoring whatever the client supplied.
func (*FromEnforcer) ProcessInbound(_ context.Context, pc *Context, st stanza.Stanza) (Verdict, error) {
	if pc.Identity.Server {
		return Continue, nil
	}
	st.GetHeader().From = pc.Identity.Local
	return Continue, nil
}

// RoutingClass tags whether a stanza targets a local or remote domain, for
// later processors and the routing registry to act on without recomputing it.
type RoutingClass struct{ Base }

// NewRoutingClass creates the routing classifier, priority 10.
func NewRoutingClass(localDomains map[string]bool) *RoutingClass {
	return &RoutingClass{}
}

// Name identifies the processor.
func (*RoutingClass) Name() string { return "routing-classifier" }

// Priority places this processor early, before permission checks.
func (*RoutingClass) Priority() int { return 10 }

// ProcessInbound classifies the stanza's destination domain.
func (rc *RoutingClass) ProcessInbound(_ context.Context, pc *Context, st stanza.Stanza) (Verdict, error) {
	to := st.GetHeader().To
	pc.Set("routing.to", to)
	return Continue, nil
}

// PermissionGate is implemented by components (roster/blocking/MUC) that
// decide whether a stanza's sender may reach its intended recipient.
type PermissionGate interface {
	// Allow reports whether the stanza may proceed.
	Allow(ctx context.Context, pc *Context, st stanza.Stanza) (bool, *RejectError)
}

// Permission applies a PermissionGate at priority 20.
type Permission struct {
	Base
	Gate PermissionGate
}

// NewPermission creates the permission-gate processor, priority 20.
func NewPermission(gate PermissionGate) *Permission {
	return &Permission{Gate: gate}
}

// Name identifies the processor.
func (*Permission) Name() string { return "permission-gate" }

// Priority runs after routing classification, before content processors.
func (*Permission) Priority() int { return 20 }

// ProcessInbound consults the gate and rejects disallowed stanzas.
func (p *Permission) ProcessInbound(ctx context.Context, pc *Context, st stanza.Stanza) (Verdict, error) {
	if p.Gate == nil {
		return Continue, nil
	}
	ok, rej := p.Gate.Allow(ctx, pc, st)
	if ok {
		return Continue, nil
	}
	if rej == nil {
		rej = &RejectError{Condition: "not-allowed"}
	}
	return Rejected, rej
}

// ChatStateFilter is implemented by the chat-state extension to decide
// whether a message-only chat-state notification should be suppressed, e.g.
// by CSI buffering of non-urgent traffic.
type ChatStateFilter interface {
	Observe(ctx context.Context, pc *Context, st stanza.Stanza) (Verdict, error)
}

// ChatState applies a ChatStateFilter at priority 30.
type ChatState struct {
	Base
	Filter ChatStateFilter
}

// NewChatState creates the chat-state processor, priority 30.
func NewChatState(f ChatStateFilter) *ChatState { return &ChatState{Filter: f} }

// Name identifies the processor.
func (*ChatState) Name() string { return "chat-state" }

// Priority runs after permission checks, before extension handlers.
func (*ChatState) Priority() int { return 30 }

// ProcessInbound delegates to the configured filter, if any.
func (c *ChatState) ProcessInbound(ctx context.Context, pc *Context, st stanza.Stanza) (Verdict, error) {
	if c.Filter == nil {
		return Continue, nil
	}
	return c.Filter.Observe(ctx, pc, st)
}

// ReceiptObserver is implemented by the receipts/markers extensions to
// record delivery/read state without consuming the stanza.
type ReceiptObserver interface {
	Observe(ctx context.Context, pc *Context, st stanza.Stanza)
}

// Receipts applies a ReceiptObserver at priority 40.
type Receipts struct {
	Base
	Observer ReceiptObserver
}

// NewReceipts creates the receipts/markers processor, priority 40.
func NewReceipts(o ReceiptObserver) *Receipts { return &Receipts{Observer: o} }

// Name identifies the processor.
func (*Receipts) Name() string { return "receipts" }

// Priority runs after chat-state, before extension handlers.
func (*Receipts) Priority() int { return 40 }

// ProcessInbound notifies the observer and always continues; receipts never
// consume the stanza they ride along with.
func (r *Receipts) ProcessInbound(ctx context.Context, pc *Context, st stanza.Stanza) (Verdict, error) {
	if r.Observer != nil {
		r.Observer.Observe(ctx, pc, st)
	}
	return Continue, nil
}

// ExtensionHandler is implemented by each wire-format extension (MUC
// commands, PubSub IQs, blocking, bookmarks, vcard, ping, disco, ...) that
// wants first refusal on stanzas it recognizes.
type ExtensionHandler interface {
	// Handles reports whether this handler recognizes the stanza.
	Handles(st stanza.Stanza) bool
	// Handle processes a recognized stanza and reports its verdict.
	Handle(ctx context.Context, pc *Context, st stanza.Stanza) (Verdict, error)
}

// Extensions dispatches to the first matching ExtensionHandler, priority 50.
type Extensions struct {
	Base
	Handlers []ExtensionHandler
}

// NewExtensions creates the extension-dispatch processor, priority 50.
func NewExtensions(handlers ...ExtensionHandler) *Extensions {
	return &Extensions{Handlers: handlers}
}

// Name identifies the processor.
func (*Extensions) Name() string { return "extensions" }

// Priority runs after the ambient content processors, before archiving.
func (*Extensions) Priority() int { return 50 }

// ProcessInbound offers the stanza to each handler in registration order.
func (e *Extensions) ProcessInbound(ctx context.Context, pc *Context, st stanza.Stanza) (Verdict, error) {
	for _, h := range e.Handlers {
		if !h.Handles(st) {
			continue
		}
		return h.Handle(ctx, pc, st)
	}
	return Continue, nil
}

// ArchiveIngester is implemented by the MAM adapter to append eligible
// stanzas to the archive without affecting delivery.
type ArchiveIngester interface {
	Append(ctx context.Context, pc *Context, st stanza.Stanza)
}

// Archive applies an ArchiveIngester at priority 80.
type Archive struct {
	Base
	Ingester ArchiveIngester
}

// NewArchive creates the archive-ingest processor, priority 80.
func NewArchive(ing ArchiveIngester) *Archive { return &Archive{Ingester: ing} }

// Name identifies the processor.
func (*Archive) Name() string { return "archive-ingest" }

// Priority runs late, after every extension has had a chance to act.
func (*Archive) Priority() int { return 80 }

// ProcessInbound hands the stanza to the archive and always continues.
func (a *Archive) ProcessInbound(ctx context.Context, pc *Context, st stanza.Stanza) (Verdict, error) {
	if a.Ingester != nil {
		a.Ingester.Append(ctx, pc, st)
	}
	return Continue, nil
}

// ProcessOutbound archives outbound copies too, e.g. for carbons-style
// self-archiving of sent messages.
func (a *Archive) ProcessOutbound(ctx context.Context, pc *Context, st stanza.Stanza) (Verdict, error) {
	if a.Ingester != nil {
		a.Ingester.Append(ctx, pc, st)
	}
	return Continue, nil
}

// Dispatcher is implemented by the routing registry to perform final
// delivery once every earlier processor has let the stanza through.
type Dispatcher interface {
	Dispatch(ctx context.Context, pc *Context, st stanza.Stanza) error
}

// Dispatch applies a Dispatcher at priority 90 and always consumes.
type Dispatch struct {
	Base
	Target Dispatcher
}

// NewDispatch creates the dispatch processor, priority 90.
func NewDispatch(target Dispatcher) *Dispatch { return &Dispatch{Target: target} }

// Name identifies the processor.
func (*Dispatch) Name() string { return "dispatch" }

// Priority runs last but one, handing the stanza to the routing registry.
func (*Dispatch) Priority() int { return 90 }

// ProcessInbound dispatches the stanza and consumes it.
func (d *Dispatch) ProcessInbound(ctx context.Context, pc *Context, st stanza.Stanza) (Verdict, error) {
	if d.Target == nil {
		return Continue, nil
	}
	if err := d.Target.Dispatch(ctx, pc, st); err != nil {
		return Rejected, err
	}
	return Consumed, nil
}

// DebugTap observes every stanza that reaches the end of the chain without
// being consumed or rejected earlier, e.g. for a plain-text wire logger.
type DebugTap struct {
	Base
	Publisher Publisher
}

// NewDebugTap creates the debug-tap processor, priority 100.
func NewDebugTap(pub Publisher) *DebugTap { return &DebugTap{Publisher: pub} }

// Name identifies the processor.
func (*DebugTap) Name() string { return "debug-tap" }

// Priority places this processor last of all.
func (*DebugTap) Priority() int { return 100 }

// ProcessInbound publishes an observability event and continues.
func (d *DebugTap) ProcessInbound(ctx context.Context, pc *Context, st stanza.Stanza) (Verdict, error) {
	if d.Publisher != nil {
		d.Publisher.Publish(ctx, "stanza.unhandled", st)
	}
	return Continue, nil
}
