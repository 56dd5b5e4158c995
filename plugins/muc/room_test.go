package muc

import (
	"context"
	"testing"

	"github.com/waddle-im/waddle/jid"
	"github.com/waddle-im/waddle/routing"
	"github.com/waddle-im/waddle/stanza"
)

func nopMailbox() (*int, routing.Mailbox) {
	count := 0
	return &count, routing.MailboxFunc(func(context.Context, stanza.Stanza) error {
		count++
		return nil
	})
}

func TestRoomJoinAssignsDefaultRole(t *testing.T) {
	t.Parallel()
	r := NewRoom(jid.MustParse("lounge@conference.example.com"), 10)
	defer r.Stop()

	_, mb := nopMailbox()
	occ, roster, err := r.Join(context.Background(), jid.MustParse("juliet@example.com/balcony"), "juliet", mb)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if occ.Affiliation != AffNone {
		t.Errorf("Affiliation = %q, want none", occ.Affiliation)
	}
	if occ.Role != RoleParticipant {
		t.Errorf("Role = %q, want participant", occ.Role)
	}
	if len(roster) != 1 {
		t.Errorf("roster = %d, want 1", len(roster))
	}
}

func TestRoomJoinNicknameConflict(t *testing.T) {
	t.Parallel()
	r := NewRoom(jid.MustParse("lounge@conference.example.com"), 10)
	defer r.Stop()

	_, mb := nopMailbox()
	if _, _, err := r.Join(context.Background(), jid.MustParse("juliet@example.com"), "romeo", mb); err != nil {
		t.Fatalf("first Join: %v", err)
	}
	if _, _, err := r.Join(context.Background(), jid.MustParse("paris@example.com"), "romeo", mb); err != ErrNicknameInUse {
		t.Errorf("err = %v, want ErrNicknameInUse", err)
	}
}

func TestRoomOutcastCannotJoin(t *testing.T) {
	t.Parallel()
	r := NewRoom(jid.MustParse("lounge@conference.example.com"), 10)
	defer r.Stop()

	owner := jid.MustParse("owner@example.com")
	outcast := jid.MustParse("tybalt@example.com")
	r.ApplyRelations(map[string]string{"owner@example.com": AffOwner})

	_, mb := nopMailbox()
	if _, _, err := r.Join(context.Background(), owner, "owner", mb); err != nil {
		t.Fatalf("owner Join: %v", err)
	}
	if err := r.SetAffiliation(owner, outcast, AffOutcast); err != nil {
		t.Fatalf("SetAffiliation: %v", err)
	}
	if _, _, err := r.Join(context.Background(), outcast, "tybalt", mb); err != ErrOutcast {
		t.Errorf("err = %v, want ErrOutcast", err)
	}
}

func TestMembersOnlyRejectsNonMember(t *testing.T) {
	t.Parallel()
	r := NewRoom(jid.MustParse("lounge@conference.example.com"), 10)
	defer r.Stop()
	r.MembersOnly = true

	_, mb := nopMailbox()
	if _, _, err := r.Join(context.Background(), jid.MustParse("stranger@example.com"), "stranger", mb); err != ErrMembersOnly {
		t.Errorf("err = %v, want ErrMembersOnly", err)
	}
}

func TestHighestAffiliationWinsRegardlessOfOrder(t *testing.T) {
	t.Parallel()
	r := NewRoom(jid.MustParse("lounge@conference.example.com"), 10)
	defer r.Stop()

	r.ApplyRelations(map[string]string{"juliet@example.com": AffMember})
	r.ApplyRelations(map[string]string{"juliet@example.com": AffOwner})
	r.ApplyRelations(map[string]string{"juliet@example.com": AffMember})

	if got := r.affiliationOfForTest("juliet@example.com"); got != AffOwner {
		t.Errorf("affiliation = %q, want owner (highest wins)", got)
	}
}

// affiliationOfForTest exposes affiliationOf through the actor for tests.
func (r *Room) affiliationOfForTest(bare string) string {
	var out string
	r.exec(func() { out = r.affiliationOf(bare) })
	return out
}

func TestBroadcastDeliversToAllOccupants(t *testing.T) {
	t.Parallel()
	r := NewRoom(jid.MustParse("lounge@conference.example.com"), 10)
	defer r.Stop()

	count1, mb1 := nopMailbox()
	count2, mb2 := nopMailbox()
	if _, _, err := r.Join(context.Background(), jid.MustParse("romeo@example.com"), "romeo", mb1); err != nil {
		t.Fatalf("Join romeo: %v", err)
	}
	if _, _, err := r.Join(context.Background(), jid.MustParse("juliet@example.com"), "juliet", mb2); err != nil {
		t.Fatalf("Join juliet: %v", err)
	}

	msg := stanza.NewMessage(stanza.MessageGroupchat)
	delivered := r.Broadcast(context.Background(), msg)
	if delivered != 2 {
		t.Errorf("delivered = %d, want 2", delivered)
	}
	if *count1 != 1 || *count2 != 1 {
		t.Errorf("count1=%d count2=%d, want 1,1", *count1, *count2)
	}
}

func TestHistoryBounded(t *testing.T) {
	t.Parallel()
	r := NewRoom(jid.MustParse("lounge@conference.example.com"), 2)
	defer r.Stop()

	r.AppendHistory("romeo", "one")
	r.AppendHistory("romeo", "two")
	r.AppendHistory("romeo", "three")

	h := r.History(10)
	if len(h) != 2 {
		t.Fatalf("History = %d entries, want 2 (bounded)", len(h))
	}
	if h[0].Body != "two" || h[1].Body != "three" {
		t.Errorf("History = %+v, want [two three]", h)
	}
}

func TestKickRequiresModerator(t *testing.T) {
	t.Parallel()
	r := NewRoom(jid.MustParse("lounge@conference.example.com"), 10)
	defer r.Stop()

	_, mb := nopMailbox()
	if _, _, err := r.Join(context.Background(), jid.MustParse("romeo@example.com"), "romeo", mb); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if _, _, err := r.Join(context.Background(), jid.MustParse("mercutio@example.com"), "mercutio", mb); err != nil {
		t.Fatalf("Join: %v", err)
	}

	if err := r.KickOccupant("mercutio", "romeo", "disruptive"); err != ErrNotModerator {
		t.Errorf("err = %v, want ErrNotModerator", err)
	}
}

func TestSelfPing(t *testing.T) {
	t.Parallel()
	r := NewRoom(jid.MustParse("lounge@conference.example.com"), 10)
	defer r.Stop()

	_, mb := nopMailbox()
	if _, _, err := r.Join(context.Background(), jid.MustParse("romeo@example.com"), "romeo", mb); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if err := r.SelfPing("romeo"); err != nil {
		t.Errorf("SelfPing for current occupant: %v", err)
	}
	if err := r.SelfPing("ghost"); err != ErrNotOccupant {
		t.Errorf("SelfPing for absent nick = %v, want ErrNotOccupant", err)
	}
}
