package pubsub

import (
	"context"
	"testing"

	"github.com/waddle-im/waddle/jid"
	"github.com/waddle-im/waddle/routing"
	"github.com/waddle-im/waddle/storage"
	"github.com/waddle-im/waddle/storage/memory"
)

type fakeAuthz struct{ inRoster bool }

func (f fakeAuthz) InRoster(context.Context, jid.JID, jid.JID) bool { return f.inRoster }

func newTestEngine(t *testing.T, authzAllows bool) *Engine {
	t.Helper()
	store := memory.New()
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return NewEngine(store.PubSubStore(), fakeAuthz{inRoster: authzAllows}, routing.New())
}

func TestEnsurePEPNodeUsesDefaultAccess(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, true)
	owner := jid.MustParse("juliet@example.com")

	n, err := e.EnsurePEPNode(context.Background(), owner, "urn:xmpp:bookmarks:1")
	if err != nil {
		t.Fatalf("EnsurePEPNode: %v", err)
	}
	if got := accessModel(n); got != AccessWhitelist {
		t.Errorf("access model = %q, want whitelist", got)
	}
}

func TestEnsurePEPNodeIdempotent(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, true)
	owner := jid.MustParse("juliet@example.com")

	n1, err := e.EnsurePEPNode(context.Background(), owner, "urn:xmpp:omemo:2:devices")
	if err != nil {
		t.Fatalf("EnsurePEPNode: %v", err)
	}
	n2, err := e.EnsurePEPNode(context.Background(), owner, "urn:xmpp:omemo:2:devices")
	if err != nil {
		t.Fatalf("EnsurePEPNode second call: %v", err)
	}
	if n1.NodeID != n2.NodeID {
		t.Errorf("node id changed across calls: %q vs %q", n1.NodeID, n2.NodeID)
	}
}

func TestSubscribeOpenAlwaysAllowed(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, false)
	owner := jid.MustParse("juliet@example.com")
	host := owner.Bare().String()

	if err := e.store.CreateNode(context.Background(), &storage.PubSubNode{
		Host: host, NodeID: "news", Creator: host,
		Config: map[string]string{"pubsub#access_model": AccessOpen},
	}); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}

	sub, err := e.Subscribe(context.Background(), host, "news", jid.MustParse("stranger@example.org"))
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if sub.State != "subscribed" {
		t.Errorf("state = %q, want subscribed", sub.State)
	}
}

func TestSubscribePresenceDeniedWithoutRoster(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, false)
	owner := jid.MustParse("juliet@example.com")
	host := owner.Bare().String()

	if err := e.store.CreateNode(context.Background(), &storage.PubSubNode{
		Host: host, NodeID: "mood", Creator: host,
		Config: map[string]string{"pubsub#access_model": AccessPresence},
	}); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}

	_, err := e.Subscribe(context.Background(), host, "mood", jid.MustParse("stranger@example.org"))
	if err != ErrNotSubscribed {
		t.Errorf("err = %v, want ErrNotSubscribed", err)
	}
}

func TestPublishEvictsOldestBeyondMaxItems(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, true)
	owner := jid.MustParse("juliet@example.com")
	host := owner.Bare().String()

	if err := e.store.CreateNode(context.Background(), &storage.PubSubNode{
		Host: host, NodeID: "status", Creator: host,
		Config: map[string]string{"pubsub#access_model": AccessOpen, "pubsub#max_items": "1"},
	}); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}

	if _, err := e.Publish(context.Background(), host, "status", owner, "item1", []byte("<a/>")); err != nil {
		t.Fatalf("Publish 1: %v", err)
	}
	if _, err := e.Publish(context.Background(), host, "status", owner, "item2", []byte("<b/>")); err != nil {
		t.Fatalf("Publish 2: %v", err)
	}

	items, err := e.store.GetItems(context.Background(), host, "status")
	if err != nil {
		t.Fatalf("GetItems: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1 (oldest evicted)", len(items))
	}
	if items[0].ItemID != "item2" {
		t.Errorf("surviving item = %q, want item2", items[0].ItemID)
	}
}
