// Package s2s implements the server-to-server federation engine: outbound
// peer connections resolved via DNS SRV, XEP-0220 dialback authentication,
// and a circuit breaker guarding against a consistently unreachable peer.
package s2s

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/waddle-im/waddle/dial"
	"github.com/waddle-im/waddle/plugins/dialback"
)

// Errors returned by the engine.
var (
	ErrPeerSuspended = errors.New("s2s: peer circuit is open, not retrying yet")
	ErrQueueFull     = errors.New("s2s: outbound queue to peer is full")
)

const (
	// DefaultMaxQueue bounds the per-peer outbound send queue.
	DefaultMaxQueue = 512
	// breakerFailureThreshold is the number of consecutive dialback
	// failures that suspends a domain before its backoff retries resume.
	breakerFailureThreshold = 3
	// breakerOpenTimeout is how long a suspended domain stays suspended
	// before a single probe request is allowed through again.
	breakerOpenTimeout = 5 * time.Minute
)

// Dialer opens and authenticates an outbound connection to a peer domain,
// returning a Conn ready for stanza writes. Implementations perform TLS
// negotiation and the XEP-0220 dialback handshake.
type Dialer interface {
	Dial(ctx context.Context, localDomain, remoteDomain string) (Conn, error)
}

// Conn is an established, authenticated outbound s2s connection.
type Conn interface {
	Send(ctx context.Context, data []byte) error
	Close() error
}

// peer tracks the outbound state for one remote domain.
type peer struct {
	domain  string
	mu      sync.Mutex
	conn    Conn
	queue   chan []byte
	breaker *gobreaker.CircuitBreaker
	cancel  context.CancelFunc
}

// Engine manages every outbound peer connection the local server maintains.
type Engine struct {
	localDomain string
	dialer      Dialer
	secret      string

	mu    sync.Mutex
	peers map[string]*peer
}

// New creates an Engine for localDomain. secret is the shared dialback key
// material used when this server acts as the authenticating party for its
// own outbound streams.
func New(localDomain string, dialer Dialer, secret string) *Engine {
	return &Engine{
		localDomain: localDomain,
		dialer:      dialer,
		secret:      secret,
		peers:       make(map[string]*peer),
	}
}

func newPeer(domain string) *peer {
	p := &peer{domain: domain, queue: make(chan []byte, DefaultMaxQueue)}
	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "s2s:" + domain,
		MaxRequests: 1,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
	})
	return p
}

// SendToDomain queues data for delivery to remoteDomain, establishing the
// outbound connection (with dialback) on first use or after a drop. It
// returns ErrPeerSuspended immediately if the circuit breaker for this
// domain is currently open.
func (e *Engine) SendToDomain(ctx context.Context, remoteDomain string, data []byte) error {
	p := e.peerFor(remoteDomain)

	_, err := p.breaker.Execute(func() (interface{}, error) {
		p.mu.Lock()
		conn := p.conn
		p.mu.Unlock()

		if conn == nil {
			c, err := e.connect(ctx, p)
			if err != nil {
				return nil, err
			}
			conn = c
		}

		if err := conn.Send(ctx, data); err != nil {
			p.mu.Lock()
			p.conn = nil
			p.mu.Unlock()
			return nil, err
		}
		return nil, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) {
		return ErrPeerSuspended
	}
	return err
}

func (e *Engine) peerFor(domain string) *peer {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.peers[domain]; ok {
		return p
	}
	p := newPeer(domain)
	e.peers[domain] = p
	return p
}

func (e *Engine) connect(ctx context.Context, p *peer) (Conn, error) {
	conn, err := e.dialer.Dial(ctx, e.localDomain, p.domain)
	if err != nil {
		return nil, fmt.Errorf("s2s: dial %s: %w", p.domain, err)
	}
	p.mu.Lock()
	p.conn = conn
	p.mu.Unlock()
	return conn, nil
}

// Backoff computes an exponential delay with jitter for the given attempt
// number (0-indexed), capped at max.
func Backoff(attempt int, base, max time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := base << uint(attempt)
	if d <= 0 || d > max {
		d = max
	}
	jitter := time.Duration(rand.Int63n(int64(d) / 2))
	return d/2 + jitter
}

// resolveAddrs resolves the SRV-ordered candidate addresses for a remote
// server domain, used by a concrete Dialer implementation.
func resolveAddrs(ctx context.Context, resolver *dial.Resolver, domain string) ([]dial.SRVRecord, error) {
	return resolver.ResolveServer(ctx, domain)
}

// VerifyInboundDialback checks an inbound <db:result/> key against the
// shared secret, reporting whether the claimed origin domain authenticated.
func (e *Engine) VerifyInboundDialback(origin, target, streamID, key string) bool {
	return dialback.VerifyKey(e.secret, target, origin, streamID, key)
}
