package routing

import (
	"context"
	"testing"

	"github.com/waddle-im/waddle/jid"
	"github.com/waddle-im/waddle/stanza"
)

func recorder() (*[]stanza.Stanza, Mailbox) {
	var got []stanza.Stanza
	return &got, MailboxFunc(func(_ context.Context, st stanza.Stanza) error {
		got = append(got, st)
		return nil
	})
}

func TestBindDeliverUnbind(t *testing.T) {
	t.Parallel()
	r := New()
	full := jid.MustParse("juliet@example.com/balcony")
	got, mb := recorder()
	tok := r.Bind(full, mb)

	msg := stanza.NewMessage(stanza.MessageChat)
	ok, err := r.Deliver(context.Background(), full, msg)
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if !ok || len(*got) != 1 {
		t.Fatalf("delivered = %v, len = %d, want true, 1", ok, len(*got))
	}

	if err := r.Unbind(tok); err != nil {
		t.Fatalf("Unbind: %v", err)
	}
	ok, _ = r.Deliver(context.Background(), full, msg)
	if ok {
		t.Error("Deliver after Unbind should report no mailbox found")
	}
}

func TestUnbindUnknownToken(t *testing.T) {
	t.Parallel()
	r := New()
	if err := r.Unbind(Token(99)); err != ErrNotBound {
		t.Errorf("err = %v, want ErrNotBound", err)
	}
}

func TestDeliverBareHighestPriorityOnly(t *testing.T) {
	t.Parallel()
	r := New()
	bare := jid.MustParse("juliet@example.com")

	gotHigh, mbHigh := recorder()
	tokHigh := r.Bind(bare.WithResource("phone"), mbHigh)
	_ = r.UpdatePresence(tokHigh, PresenceRecord{Priority: 5, Available: true})

	gotLow, mbLow := recorder()
	tokLow := r.Bind(bare.WithResource("laptop"), mbLow)
	_ = r.UpdatePresence(tokLow, PresenceRecord{Priority: 1, Available: true})

	msg := stanza.NewMessage(stanza.MessageChat)
	n, err := r.DeliverBare(context.Background(), bare, msg, false)
	if err != nil {
		t.Fatalf("DeliverBare: %v", err)
	}
	if n != 1 {
		t.Fatalf("delivered = %d, want 1", n)
	}
	if len(*gotHigh) != 1 {
		t.Errorf("high-priority resource got %d deliveries, want 1", len(*gotHigh))
	}
	if len(*gotLow) != 0 {
		t.Errorf("low-priority resource got %d deliveries, want 0", len(*gotLow))
	}
}

func TestDeliverBareNoNonNegativePriority(t *testing.T) {
	t.Parallel()
	r := New()
	bare := jid.MustParse("juliet@example.com")
	_, mb := recorder()
	tok := r.Bind(bare.WithResource("laptop"), mb)
	_ = r.UpdatePresence(tok, PresenceRecord{Priority: -1, Available: true})

	msg := stanza.NewMessage(stanza.MessageChat)
	n, err := r.DeliverBare(context.Background(), bare, msg, false)
	if err != nil {
		t.Fatalf("DeliverBare: %v", err)
	}
	if n != 0 {
		t.Errorf("delivered = %d, want 0 (no non-negative priority resource)", n)
	}
}

func TestDeliverBareAllowAllIgnoresPriority(t *testing.T) {
	t.Parallel()
	r := New()
	bare := jid.MustParse("juliet@example.com")

	got1, mb1 := recorder()
	tok1 := r.Bind(bare.WithResource("phone"), mb1)
	_ = r.UpdatePresence(tok1, PresenceRecord{Priority: 5, Available: true})

	got2, mb2 := recorder()
	tok2 := r.Bind(bare.WithResource("laptop"), mb2)
	_ = r.UpdatePresence(tok2, PresenceRecord{Priority: -5, Available: true})

	msg := stanza.NewMessage(stanza.MessageChat)
	n, err := r.DeliverBare(context.Background(), bare, msg, true)
	if err != nil {
		t.Fatalf("DeliverBare: %v", err)
	}
	if n != 2 {
		t.Fatalf("delivered = %d, want 2", n)
	}
	if len(*got1) != 1 || len(*got2) != 1 {
		t.Errorf("got1=%d got2=%d, want 1,1", len(*got1), len(*got2))
	}
}

func TestResourcesOf(t *testing.T) {
	t.Parallel()
	r := New()
	bare := jid.MustParse("juliet@example.com")
	_, mb := recorder()
	r.Bind(bare.WithResource("phone"), mb)
	r.Bind(bare.WithResource("laptop"), mb)

	res := r.ResourcesOf(bare)
	if len(res) != 2 {
		t.Fatalf("ResourcesOf = %d entries, want 2", len(res))
	}
}
