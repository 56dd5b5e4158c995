package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/waddle-im/waddle/jid"
	"github.com/waddle-im/waddle/routing"
	"github.com/waddle-im/waddle/stanza"
	xmppxml "github.com/waddle-im/waddle/xml"
)

func TestWriteStreamStartHeader(t *testing.T) {
	var buf bytes.Buffer
	writer := xmppxml.NewStreamWriter(&buf)

	if err := writeStreamStart(writer, "example.com"); err != nil {
		t.Fatalf("writeStreamStart failed: %v", err)
	}

	s := buf.String()
	if !strings.Contains(s, "<stream:stream") {
		t.Fatalf("expected stream prefix in header, got %q", s)
	}
	if strings.Count(s, "xmlns=") != 1 {
		t.Fatalf("expected exactly one default xmlns declaration, got %q", s)
	}
	if !strings.Contains(s, "xmlns='jabber:client'") {
		t.Fatalf("expected jabber:client namespace, got %q", s)
	}
	if !strings.Contains(s, "xmlns:stream='http://etherx.jabber.org/streams'") {
		t.Fatalf("expected stream namespace declaration, got %q", s)
	}
	if !strings.Contains(s, "id='") {
		t.Fatalf("expected stream id attribute, got %q", s)
	}
	if !strings.Contains(s, "xml:lang='en'") {
		t.Fatalf("expected xml:lang attribute, got %q", s)
	}
}

func TestDeliverToRoutesByFullAndBareJID(t *testing.T) {
	globalRouter = routing.New()
	to := jid.MustParse("juliet@example.com/balcony")
	delivered := 0
	tok := globalRouter.Bind(to, routing.MailboxFunc(func(ctx context.Context, st stanza.Stanza) error {
		delivered++
		return nil
	}))
	defer globalRouter.Unbind(tok)
	if err := globalRouter.UpdatePresence(tok, routing.PresenceRecord{Available: true, Priority: 0}); err != nil {
		t.Fatalf("UpdatePresence: %v", err)
	}

	msg := stanza.NewMessage(stanza.MessageChat)
	n, err := deliverTo(context.Background(), to, msg)
	if err != nil {
		t.Fatalf("deliverTo full jid: %v", err)
	}
	if n != 1 || delivered != 1 {
		t.Fatalf("deliverTo full jid delivered %d (want 1), counter=%d", n, delivered)
	}

	n, err = deliverTo(context.Background(), to.Bare(), msg)
	if err != nil {
		t.Fatalf("deliverTo bare jid: %v", err)
	}
	if n != 1 || delivered != 2 {
		t.Fatalf("deliverTo bare jid delivered %d (want 1), counter=%d", n, delivered)
	}
}

func TestDeliverToUnboundJIDReturnsZero(t *testing.T) {
	globalRouter = routing.New()
	msg := stanza.NewMessage(stanza.MessageChat)
	n, err := deliverTo(context.Background(), jid.MustParse("nobody@example.com"), msg)
	if err != nil {
		t.Fatalf("deliverTo: %v", err)
	}
	if n != 0 {
		t.Fatalf("deliverTo unbound jid delivered %d, want 0", n)
	}
}
