package pipeline

import (
	"context"
	"testing"

	"github.com/waddle-im/waddle/jid"
	"github.com/waddle-im/waddle/stanza"
)

type recordingProcessor struct {
	Base
	name     string
	priority int
	verdict  Verdict
	order    *[]string
}

func (p *recordingProcessor) Name() string  { return p.name }
func (p *recordingProcessor) Priority() int { return p.priority }

func (p *recordingProcessor) ProcessInbound(_ context.Context, _ *Context, _ stanza.Stanza) (Verdict, error) {
	*p.order = append(*p.order, p.name)
	return p.verdict, nil
}

func TestPipelineOrdersByPriority(t *testing.T) {
	t.Parallel()
	var order []string
	pl := New()
	pl.Use(&recordingProcessor{name: "late", priority: 90, verdict: Continue, order: &order})
	pl.Use(&recordingProcessor{name: "early", priority: 5, verdict: Continue, order: &order})
	pl.Use(&recordingProcessor{name: "mid", priority: 30, verdict: Continue, order: &order})

	pc := NewContext(Identity{}, Features{}, nil)
	msg := stanza.NewMessage(stanza.MessageChat)
	if _, err := pl.RunInbound(context.Background(), pc, msg); err != nil {
		t.Fatalf("RunInbound: %v", err)
	}

	want := []string{"early", "mid", "late"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestPipelineStopsOnConsumed(t *testing.T) {
	t.Parallel()
	var order []string
	pl := New()
	pl.Use(&recordingProcessor{name: "first", priority: 5, verdict: Consumed, order: &order})
	pl.Use(&recordingProcessor{name: "second", priority: 10, verdict: Continue, order: &order})

	pc := NewContext(Identity{}, Features{}, nil)
	msg := stanza.NewMessage(stanza.MessageChat)
	v, err := pl.RunInbound(context.Background(), pc, msg)
	if err != nil {
		t.Fatalf("RunInbound: %v", err)
	}
	if v != Consumed {
		t.Errorf("verdict = %v, want Consumed", v)
	}
	if len(order) != 1 || order[0] != "first" {
		t.Errorf("order = %v, want [first]", order)
	}
}

func TestPipelineRejectedCarriesError(t *testing.T) {
	t.Parallel()
	pl := New()
	pl.Use(NewPermission(permFunc(func(context.Context, *Context, stanza.Stanza) (bool, *RejectError) {
		return false, &RejectError{Condition: "forbidden"}
	})))

	pc := NewContext(Identity{}, Features{}, nil)
	msg := stanza.NewMessage(stanza.MessageChat)
	v, err := pl.RunInbound(context.Background(), pc, msg)
	if v != Rejected {
		t.Errorf("verdict = %v, want Rejected", v)
	}
	var rerr *RejectError
	if err == nil {
		t.Fatal("expected error")
	} else if re, ok := err.(*RejectError); !ok {
		t.Fatalf("err = %T, want *RejectError", err)
	} else {
		rerr = re
	}
	if rerr.Condition != "forbidden" {
		t.Errorf("condition = %q, want forbidden", rerr.Condition)
	}
}

type permFunc func(context.Context, *Context, stanza.Stanza) (bool, *RejectError)

func (f permFunc) Allow(ctx context.Context, pc *Context, st stanza.Stanza) (bool, *RejectError) {
	return f(ctx, pc, st)
}

func TestFromEnforcerStampsLocalIdentity(t *testing.T) {
	t.Parallel()
	local := jid.MustParse("juliet@example.com/balcony")
	pc := NewContext(Identity{Local: local}, Features{}, nil)

	msg := stanza.NewMessage(stanza.MessageChat)
	msg.From = jid.MustParse("spoofed@evil.example")

	fe := NewFromEnforcer()
	if _, err := fe.ProcessInbound(context.Background(), pc, msg); err != nil {
		t.Fatalf("ProcessInbound: %v", err)
	}
	if msg.From.String() != local.String() {
		t.Errorf("From = %q, want %q", msg.From.String(), local.String())
	}
}

func TestContextValues(t *testing.T) {
	t.Parallel()
	pc := NewContext(Identity{}, Features{}, nil)
	if _, ok := pc.Value("missing"); ok {
		t.Error("Value for unset key should report false")
	}
	pc.Set("key", 42)
	v, ok := pc.Value("key")
	if !ok || v != 42 {
		t.Errorf("Value(key) = %v, %v, want 42, true", v, ok)
	}
}
