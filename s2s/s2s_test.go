package s2s

import (
	"context"
	"errors"
	"testing"

	"github.com/waddle-im/waddle/plugins/dialback"
)

type fakeConn struct {
	sent    [][]byte
	failNext bool
}

func (c *fakeConn) Send(_ context.Context, data []byte) error {
	if c.failNext {
		return errors.New("send failed")
	}
	c.sent = append(c.sent, data)
	return nil
}

func (c *fakeConn) Close() error { return nil }

type fakeDialer struct {
	conn    *fakeConn
	dialErr error
	dials   int
}

func (d *fakeDialer) Dial(context.Context, string, string) (Conn, error) {
	d.dials++
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	return d.conn, nil
}

func TestSendToDomainDialsOnce(t *testing.T) {
	t.Parallel()
	conn := &fakeConn{}
	dialer := &fakeDialer{conn: conn}
	e := New("example.com", dialer, "secret")

	for i := 0; i < 3; i++ {
		if err := e.SendToDomain(context.Background(), "peer.example.org", []byte("stanza")); err != nil {
			t.Fatalf("SendToDomain: %v", err)
		}
	}
	if dialer.dials != 1 {
		t.Errorf("dials = %d, want 1 (connection reused)", dialer.dials)
	}
	if len(conn.sent) != 3 {
		t.Errorf("sent = %d, want 3", len(conn.sent))
	}
}

func TestCircuitOpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()
	dialer := &fakeDialer{dialErr: errors.New("unreachable")}
	e := New("example.com", dialer, "secret")

	var lastErr error
	for i := 0; i < breakerFailureThreshold+1; i++ {
		lastErr = e.SendToDomain(context.Background(), "down.example.org", []byte("x"))
	}
	if !errors.Is(lastErr, ErrPeerSuspended) {
		t.Errorf("after %d consecutive failures, err = %v, want ErrPeerSuspended", breakerFailureThreshold+1, lastErr)
	}
}

func TestVerifyInboundDialback(t *testing.T) {
	t.Parallel()
	e := New("example.com", &fakeDialer{}, "shared-secret")
	key := dialback.GenerateKey("shared-secret", "example.com", "peer.example.org", "stream-1")
	if !e.VerifyInboundDialback("peer.example.org", "example.com", "stream-1", key) {
		t.Error("VerifyInboundDialback should accept a correctly computed key")
	}
	if e.VerifyInboundDialback("peer.example.org", "example.com", "stream-1", "bogus") {
		t.Error("VerifyInboundDialback should reject a bogus key")
	}
}
