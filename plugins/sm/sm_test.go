package sm

import (
	"testing"
	"time"
)

func TestSeqBeforeHandlesWraparound(t *testing.T) {
	t.Parallel()
	cases := []struct {
		a, b uint32
		want bool
	}{
		{1, 2, true},
		{2, 1, false},
		{0xFFFFFFFF, 0, true},
		{0, 0xFFFFFFFF, false},
		{5, 5, false},
	}
	for _, c := range cases {
		if got := seqBefore(c.a, c.b); got != c.want {
			t.Errorf("seqBefore(%d, %d) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestEnqueueAck(t *testing.T) {
	t.Parallel()
	q := NewQueue()
	q.Enqueue([]byte("one"))
	q.Enqueue([]byte("two"))
	q.Enqueue([]byte("three"))

	if got := q.OutboundCount(); got != 3 {
		t.Fatalf("OutboundCount = %d, want 3", got)
	}

	q.Ack(2)
	remaining := q.Unacked()
	if len(remaining) != 1 {
		t.Fatalf("Unacked = %d entries, want 1", len(remaining))
	}
	if string(remaining[0]) != "three" {
		t.Errorf("Unacked[0] = %q, want %q", remaining[0], "three")
	}
}

func TestEnqueueOverflowDropsOldest(t *testing.T) {
	t.Parallel()
	q := NewQueue()
	q.max = 2
	q.Enqueue([]byte("one"))
	q.Enqueue([]byte("two"))
	q.Enqueue([]byte("three"))

	remaining := q.Unacked()
	if len(remaining) != 2 {
		t.Fatalf("Unacked = %d entries, want 2 (bounded)", len(remaining))
	}
	if string(remaining[0]) != "two" || string(remaining[1]) != "three" {
		t.Errorf("Unacked = %q, want [two three]", remaining)
	}
}

func TestCountInbound(t *testing.T) {
	t.Parallel()
	q := NewQueue()
	if q.CountInbound() != 1 {
		t.Error("first CountInbound should return 1")
	}
	if q.CountInbound() != 2 {
		t.Error("second CountInbound should return 2")
	}
}

func TestEnableWithResumeAssignsID(t *testing.T) {
	t.Parallel()
	q := NewQueue()
	enabled := q.Enable(true)
	if !enabled.Resume {
		t.Error("Enabled.Resume should be true")
	}
	if enabled.ID == "" {
		t.Error("Enabled.ID should be set when resume requested")
	}
	if q.ResumeID() != enabled.ID {
		t.Errorf("ResumeID() = %q, want %q", q.ResumeID(), enabled.ID)
	}
}

func TestEnableWithoutResumeAssignsNoID(t *testing.T) {
	t.Parallel()
	q := NewQueue()
	enabled := q.Enable(false)
	if enabled.ID != "" {
		t.Error("Enabled.ID should be empty without resume")
	}
}

func TestDetachExpiry(t *testing.T) {
	t.Parallel()
	q := NewQueue()
	if q.Expired(time.Minute) {
		t.Error("a never-detached queue should never be expired")
	}
	q.Detach()
	if q.Expired(time.Hour) {
		t.Error("should not be expired within the grace window")
	}
	if !q.Expired(-time.Second) {
		t.Error("should be expired once past the grace window")
	}
}
