package xmpp

import (
	"fmt"
	"sync"
)

// Phase is the connection lifecycle phase from stream open through close.
// Phases are forward-only except into the terminal Closed phase, matching
// the state table in the protocol core specification: initial -> negotiating
// -> starttls -> tls-established -> authenticating -> authenticated -> bound,
// with closing/closed reachable from anywhere.
type Phase uint8

const (
	PhaseInitial Phase = iota
	PhaseNegotiating
	PhaseStartTLS
	PhaseTLSEstablished
	PhaseAuthenticating
	PhaseAuthenticated
	PhaseBound
	PhaseClosing
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseInitial:
		return "initial"
	case PhaseNegotiating:
		return "negotiating"
	case PhaseStartTLS:
		return "starttls"
	case PhaseTLSEstablished:
		return "tls-established"
	case PhaseAuthenticating:
		return "authenticating"
	case PhaseAuthenticated:
		return "authenticated"
	case PhaseBound:
		return "bound"
	case PhaseClosing:
		return "closing"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// phaseTransitions enumerates the permitted forward edges. A connection may
// also re-enter PhaseAuthenticated from PhaseBound after a stream restart
// following STARTTLS/SASL (RFC 6120 requires re-opening the stream after
// both), and may move to PhaseClosing/PhaseClosed from any non-terminal
// phase.
var phaseTransitions = map[Phase]map[Phase]bool{
	PhaseInitial:         {PhaseNegotiating: true},
	PhaseNegotiating:     {PhaseStartTLS: true, PhaseAuthenticating: true},
	PhaseStartTLS:        {PhaseTLSEstablished: true},
	PhaseTLSEstablished:  {PhaseAuthenticating: true},
	PhaseAuthenticating:  {PhaseAuthenticated: true},
	PhaseAuthenticated:   {PhaseBound: true, PhaseAuthenticating: true},
	PhaseBound:           {PhaseBound: true},
}

// PhaseGuard tracks and validates a connection's phase transitions. It is
// distinct from the SessionState bitmask: SessionState answers "which
// features have been negotiated", PhaseGuard answers "what is the
// connection allowed to do right now" and enforces monotonic progress.
type PhaseGuard struct {
	mu    sync.Mutex
	phase Phase
}

// NewPhaseGuard creates a guard starting at PhaseInitial.
func NewPhaseGuard() *PhaseGuard {
	return &PhaseGuard{phase: PhaseInitial}
}

// Phase returns the current phase.
func (g *PhaseGuard) Phase() Phase {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase
}

// Transition attempts to move the connection to the given phase. Any
// transition into PhaseClosing or PhaseClosed is always permitted (a
// connection can always be torn down); PhaseClosed is terminal and refuses
// every further transition, including to itself.
func (g *PhaseGuard) Transition(to Phase) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase == PhaseClosed {
		return fmt.Errorf("xmpp: connection already closed, cannot transition to %s", to)
	}
	if to == PhaseClosing || to == PhaseClosed {
		g.phase = to
		return nil
	}
	if allowed := phaseTransitions[g.phase]; allowed == nil || !allowed[to] {
		return fmt.Errorf("xmpp: illegal phase transition %s -> %s", g.phase, to)
	}
	g.phase = to
	return nil
}

// Permits reports whether a stanza/nonza of the given kind may be processed
// in the current phase, per the connection state machine's permitted-
// operation table. kind is one of: "stream-open", "starttls", "sasl",
// "bind", "stanza".
func (g *PhaseGuard) Permits(kind string) bool {
	g.mu.Lock()
	phase := g.phase
	g.mu.Unlock()

	switch kind {
	case "stream-open":
		return phase == PhaseInitial || phase == PhaseTLSEstablished || phase == PhaseAuthenticated
	case "starttls":
		return phase == PhaseNegotiating
	case "sasl":
		return phase == PhaseNegotiating || phase == PhaseAuthenticating
	case "bind":
		return phase == PhaseAuthenticated
	case "stanza":
		return phase == PhaseBound
	default:
		return false
	}
}
