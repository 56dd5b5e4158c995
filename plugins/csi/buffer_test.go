package csi

import (
	"testing"

	"github.com/waddle-im/waddle/stanza"
)

func TestUrgentClassification(t *testing.T) {
	t.Parallel()
	chatState := stanza.NewMessage(stanza.MessageChat)
	if Urgent(chatState) {
		t.Error("a body-less message should not be urgent")
	}
	withBody := stanza.NewMessage(stanza.MessageChat)
	withBody.Body = "hello"
	if !Urgent(withBody) {
		t.Error("a body-bearing message should be urgent")
	}
	iq := stanza.NewIQ(stanza.IQGet)
	if !Urgent(iq) {
		t.Error("non-message stanzas should always be urgent")
	}
}

func TestBufferQueuesWhileInactive(t *testing.T) {
	t.Parallel()
	b := NewBuffer()
	b.SetActive(false)

	chatState := stanza.NewMessage(stanza.MessageChat)
	if b.Observe(chatState) {
		t.Error("non-urgent stanza while inactive should not deliver immediately")
	}

	withBody := stanza.NewMessage(stanza.MessageChat)
	withBody.Body = "hi"
	if !b.Observe(withBody) {
		t.Error("urgent stanza should always deliver immediately, even while inactive")
	}
}

func TestBufferFlushesOnActive(t *testing.T) {
	t.Parallel()
	b := NewBuffer()
	b.SetActive(false)
	b.Observe(stanza.NewMessage(stanza.MessageChat))
	b.Observe(stanza.NewMessage(stanza.MessageChat))

	flushed := b.SetActive(true)
	if len(flushed) != 2 {
		t.Fatalf("flushed = %d, want 2", len(flushed))
	}
	// second activation with nothing queued should return nothing
	again := b.SetActive(true)
	if again != nil {
		t.Errorf("re-activating with no transition should return nil, got %v", again)
	}
}

func TestBufferOverflowDropsOldest(t *testing.T) {
	t.Parallel()
	b := NewBuffer()
	b.max = 2
	b.SetActive(false)
	first := stanza.NewMessage(stanza.MessageChat)
	first.Thread = "first"
	second := stanza.NewMessage(stanza.MessageChat)
	second.Thread = "second"
	third := stanza.NewMessage(stanza.MessageChat)
	third.Thread = "third"

	b.Observe(first)
	b.Observe(second)
	b.Observe(third)

	flushed := b.SetActive(true)
	if len(flushed) != 2 {
		t.Fatalf("flushed = %d, want 2 (bounded)", len(flushed))
	}
	m0 := flushed[0].(*stanza.Message)
	m1 := flushed[1].(*stanza.Message)
	if m0.Thread != "second" || m1.Thread != "third" {
		t.Errorf("flushed threads = %q, %q, want second, third", m0.Thread, m1.Thread)
	}
}
