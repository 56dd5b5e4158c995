// Package sm implements XEP-0198 Stream Management: an unacknowledged
// outbound queue bounded in size, a wrap-safe sequence counter, and
// session resumption across a transient connection loss.
package sm

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/xml"
	"sync"
	"time"

	"github.com/waddle-im/waddle/internal/ns"
	"github.com/waddle-im/waddle/plugin"
)

const Name = "sm"

// DefaultMaxUnacked bounds the outbound unacked queue; once full, the
// oldest unacked stanza is dropped to make room (drop-oldest-keep-alive,
// per the resolved overflow policy), so a desynchronized peer never grows
// the queue unbounded.
const DefaultMaxUnacked = 256

// DefaultResumeGrace is how long a detached session (connection gone, no
// resume yet) is retained before it is discarded outright.
const DefaultResumeGrace = 2 * time.Minute

type Enable struct {
	XMLName xml.Name `xml:"urn:xmpp:sm:3 enable"`
	Resume  bool     `xml:"resume,attr,omitempty"`
}

type Enabled struct {
	XMLName  xml.Name `xml:"urn:xmpp:sm:3 enabled"`
	ID       string   `xml:"id,attr,omitempty"`
	Resume   bool     `xml:"resume,attr,omitempty"`
	Max      int      `xml:"max,attr,omitempty"`
	Location string   `xml:"location,attr,omitempty"`
}

type Resume struct {
	XMLName xml.Name `xml:"urn:xmpp:sm:3 resume"`
	H       uint32   `xml:"h,attr"`
	PrevID  string   `xml:"previd,attr"`
}

type Resumed struct {
	XMLName xml.Name `xml:"urn:xmpp:sm:3 resumed"`
	H       uint32   `xml:"h,attr"`
	PrevID  string   `xml:"previd,attr"`
}

type Failed struct {
	XMLName   xml.Name `xml:"urn:xmpp:sm:3 failed"`
	Condition struct {
		XMLName xml.Name
	} `xml:",omitempty"`
}

// NewFailed builds a <failed/> element carrying the given RFC 6120 §4.9.3
// stream-error-style condition name in the stanzas namespace.
func NewFailed(condition string) *Failed {
	f := &Failed{}
	f.Condition.XMLName = xml.Name{Space: ns.Stanzas, Local: condition}
	return f
}

type Ack struct {
	XMLName xml.Name `xml:"urn:xmpp:sm:3 a"`
	H       uint32   `xml:"h,attr"`
}

type Request struct {
	XMLName xml.Name `xml:"urn:xmpp:sm:3 r"`
}

// seqBefore reports whether a comes before b on the wrapping mod-2^32
// counter space, per RFC 6120-style wraparound arithmetic: treats the
// difference as a signed 32-bit quantity, so a counter that has wrapped
// around still compares correctly against one that hasn't.
func seqBefore(a, b uint32) bool {
	return int32(b-a) > 0
}

// unacked is one outbound stanza still awaiting acknowledgment, identified
// by the outbound counter value it was sent under.
type unacked struct {
	seq  uint32
	data []byte
}

// Queue tracks one connection's Stream Management counters and unacked
// outbound buffer. It is not safe for concurrent use from multiple
// goroutines without the caller holding an external lock, mirroring the
// rest of the package's per-connection plugin instances.
type Queue struct {
	mu       sync.Mutex
	inbound  uint32
	outbound uint32
	unacked  []unacked
	max      int

	id         string
	resumable  bool
	detachedAt time.Time
}

// NewQueue creates a Queue with the default overflow bound.
func NewQueue() *Queue {
	return &Queue{max: DefaultMaxUnacked}
}

// GenerateResumeID creates a random resumption identifier.
func GenerateResumeID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Enable marks the session as having Stream Management active and, if
// requested, resumable under the returned id.
func (q *Queue) Enable(resume bool) *Enabled {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.resumable = resume
	enabled := &Enabled{Max: int(DefaultResumeGrace.Seconds())}
	if resume {
		q.id = GenerateResumeID()
		enabled.ID = q.id
		enabled.Resume = true
	}
	return enabled
}

// ResumeID returns the resumption identifier, or "" if the session was
// never enabled with resume=true.
func (q *Queue) ResumeID() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.id
}

// InboundCount returns the number of stanzas received and counted so far.
func (q *Queue) InboundCount() uint32 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.inbound
}

// OutboundCount returns the number of stanzas sent and counted so far.
func (q *Queue) OutboundCount() uint32 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.outbound
}

// CountInbound records receipt of one countable stanza from the peer.
func (q *Queue) CountInbound() uint32 {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.inbound++
	return q.inbound
}

// Enqueue records an outbound stanza as sent-but-unacked. If the unacked
// buffer is already at its bound, the oldest unacked entry is dropped to
// make room: a desynchronized or dead peer never grows this queue without
// limit, at the cost of that oldest stanza being unrecoverable on resume.
func (q *Queue) Enqueue(data []byte) uint32 {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.outbound++
	if len(q.unacked) >= q.max {
		q.unacked = q.unacked[1:]
	}
	q.unacked = append(q.unacked, unacked{seq: q.outbound, data: data})
	return q.outbound
}

// Ack processes a peer's acknowledgment of h stanzas having been received,
// discarding every unacked entry whose sequence is not after h.
func (q *Queue) Ack(h uint32) {
	q.mu.Lock()
	defer q.mu.Unlock()
	i := 0
	for ; i < len(q.unacked); i++ {
		if seqBefore(h, q.unacked[i].seq) {
			break
		}
	}
	q.unacked = q.unacked[i:]
}

// Unacked returns the stanzas still awaiting acknowledgment, oldest first,
// for replay onto a resumed connection.
func (q *Queue) Unacked() [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([][]byte, len(q.unacked))
	for i, u := range q.unacked {
		out[i] = u.data
	}
	return out
}

// PruneAcked discards unacked entries the peer's Resume.H already confirms,
// mirroring Ack but taking the counter from a <resume/> element.
func (q *Queue) PruneAcked(h uint32) {
	q.Ack(h)
}

// Detach marks the queue as belonging to a connection that just dropped,
// starting the resumption grace window.
func (q *Queue) Detach() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.detachedAt = time.Now()
}

// Expired reports whether a detached queue has sat past its grace window
// and should be discarded outright.
func (q *Queue) Expired(grace time.Duration) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.detachedAt.IsZero() {
		return false
	}
	return time.Since(q.detachedAt) > grace
}

// Plugin adapts Queue to the plugin.Plugin lifecycle interface.
type Plugin struct {
	Queue
	params plugin.InitParams
}

// New creates a Plugin with a fresh Queue.
func New() *Plugin {
	return &Plugin{Queue: Queue{max: DefaultMaxUnacked}}
}

func (p *Plugin) Name() string    { return Name }
func (p *Plugin) Version() string { return "2.0.0" }
func (p *Plugin) Initialize(_ context.Context, params plugin.InitParams) error {
	p.params = params
	return nil
}
func (p *Plugin) Close() error           { return nil }
func (p *Plugin) Dependencies() []string { return nil }

func init() { _ = ns.SM }
