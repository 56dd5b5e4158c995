package muc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/waddle-im/waddle/auth"
	"github.com/waddle-im/waddle/jid"
	"github.com/waddle-im/waddle/routing"
	"github.com/waddle-im/waddle/stanza"
)

// Errors returned by Room commands.
var (
	ErrNicknameInUse   = errors.New("muc: nickname already in use")
	ErrNotOccupant     = errors.New("muc: not an occupant of this room")
	ErrOutcast         = errors.New("muc: banned from this room")
	ErrMembersOnly     = errors.New("muc: room is members-only")
	ErrForbidden       = errors.New("muc: insufficient affiliation or role for this action")
	ErrNotModerator    = errors.New("muc: moderator privileges required")
)

// affiliationRank orders affiliations from least to most privileged, used
// to resolve the highest-privilege-wins rule when a bare JID maps to more
// than one affiliation relation.
var affiliationRank = map[string]int{
	AffOutcast: 0,
	AffNone:    1,
	AffMember:  2,
	AffAdmin:   3,
	AffOwner:   4,
}

// RoleFor derives the role an occupant holds given their affiliation and
// whether the room is moderated, per XEP-0045 §5.1's affiliation/role
// interaction table.
func RoleFor(affiliation string, moderated bool) string {
	switch affiliation {
	case AffOwner, AffAdmin:
		return RoleModerator
	case AffMember:
		if moderated {
			return RoleParticipant
		}
		return RoleParticipant
	case AffOutcast:
		return RoleNone
	default:
		if moderated {
			return RoleVisitor
		}
		return RoleParticipant
	}
}

// Occupant is one nickname currently joined to a room.
type Occupant struct {
	Nickname    string
	RealJID     jid.JID
	Affiliation string
	Role        string
	Local       bool // true if RealJID's domain is served locally
	Mailbox     routing.Mailbox
}

// HistoryEntry is one archived message in a room's replay ring.
type HistoryEntry struct {
	From      string
	Body      string
	Timestamp time.Time
}

// Room is a single MUC room, serialized through a single command channel
// so concurrent joins, messages, and affiliation changes never race against
// each other: every public method enqueues a closure and blocks for its
// result, mirroring the single-writer actor idiom used for per-connection
// state elsewhere in the corpus.
type Room struct {
	JID          jid.JID
	Subject      string
	SubjectSetBy string
	SubjectAt    time.Time
	CreatedAt    time.Time
	MembersOnly  bool
	Moderated    bool
	Anonymous    bool
	HistoryLen   int

	// Permissions, when set, backs affiliation resolution with an external
	// PermissionService instead of relying solely on SetAffiliation/
	// ApplyRelations calls made directly against the room.
	Permissions auth.PermissionService

	actorCh chan func()
	done    chan struct{}

	occupants    map[string]*Occupant   // nickname -> occupant
	byBareJID    map[string]string      // bare JID string -> nickname
	affiliations map[string]string      // bare JID string -> affiliation
	history      []HistoryEntry
}

// NewRoom creates a room and starts its command actor goroutine.
func NewRoom(roomJID jid.JID, historyLen int) *Room {
	if historyLen <= 0 {
		historyLen = 20
	}
	r := &Room{
		JID:          roomJID,
		CreatedAt:    time.Now(),
		HistoryLen:   historyLen,
		actorCh:      make(chan func(), 32),
		done:         make(chan struct{}),
		occupants:    make(map[string]*Occupant),
		byBareJID:    make(map[string]string),
		affiliations: make(map[string]string),
	}
	go r.run()
	return r
}

func (r *Room) run() {
	for {
		select {
		case cmd := <-r.actorCh:
			cmd()
		case <-r.done:
			return
		}
	}
}

// Stop terminates the room's actor goroutine. Pending commands already
// queued still run first.
func (r *Room) Stop() {
	close(r.done)
}

// exec runs fn on the room's actor goroutine and waits for it to finish.
func (r *Room) exec(fn func()) {
	done := make(chan struct{})
	r.actorCh <- func() {
		fn()
		close(done)
	}
	<-done
}

// affiliationOf resolves the affiliation on record for a bare JID, with
// AffNone as the default for a JID with no recorded relation.
func (r *Room) affiliationOf(bare string) string {
	if a, ok := r.affiliations[bare]; ok {
		return a
	}
	return AffNone
}

// cachedAffiliation reports whether bare already has a recorded relation,
// run on the actor goroutine so it's safe to call before Join's exec block.
func (r *Room) cachedAffiliation(bare string) (string, bool) {
	var (
		aff   string
		found bool
	)
	r.exec(func() {
		aff, found = r.affiliations[bare]
	})
	return aff, found
}

// SetAffiliation records the affiliation of bare relative to this room.
// Multiple relation sources (e.g. explicit owner list plus a separate
// member list) resolve by taking the highest-ranked affiliation of those
// supplied, regardless of call order.
func (r *Room) SetAffiliation(actorBare jid.JID, targetBare jid.JID, affiliation string) error {
	var outErr error
	r.exec(func() {
		actorAff := r.affiliationOf(actorBare.Bare().String())
		if actorAff != AffOwner && actorAff != AffAdmin {
			outErr = ErrForbidden
			return
		}
		if affiliation == AffNone {
			delete(r.affiliations, targetBare.Bare().String())
		} else {
			r.affiliations[targetBare.Bare().String()] = affiliation
		}
		if nick, ok := r.byBareJID[targetBare.Bare().String()]; ok {
			if occ := r.occupants[nick]; occ != nil {
				occ.Affiliation = affiliation
				occ.Role = RoleFor(affiliation, r.Moderated)
				if affiliation == AffOutcast {
					delete(r.occupants, nick)
					delete(r.byBareJID, targetBare.Bare().String())
				}
			}
		}
	})
	return outErr
}

// ApplyRelations bulk-loads affiliation relations from an external
// PermissionService.ListRelations-style result, keyed by bare JID string,
// keeping the highest-ranked affiliation when the same JID appears from
// more than one source.
func (r *Room) ApplyRelations(relations map[string]string) {
	r.exec(func() {
		for bare, aff := range relations {
			if existing, ok := r.affiliations[bare]; ok {
				if affiliationRank[existing] >= affiliationRank[aff] {
					continue
				}
			}
			r.affiliations[bare] = aff
		}
	})
}

// ResolveAffiliation reduces a PermissionService.ListRelations result to a
// single affiliation by taking the highest-ranked relation present, per
// spec's highest-privilege-wins rule. An empty or unrecognized relation set
// resolves to AffNone.
func ResolveAffiliation(relations []auth.Relation) string {
	best := AffNone
	for _, rel := range relations {
		name := string(rel)
		if _, known := affiliationRank[name]; !known {
			continue
		}
		if affiliationRank[name] > affiliationRank[best] {
			best = name
		}
	}
	return best
}

// Join admits a bare JID under a nickname, reporting the occupant list
// visible to the joiner (including themselves) on success. If the room has
// a Permissions service configured, the affiliation is resolved by calling
// ListRelations against the room JID and cached via ApplyRelations before
// admission is decided, so a subsequent join by the same bare JID reuses
// the cached value instead of re-querying the provider.
func (r *Room) Join(ctx context.Context, real jid.JID, nickname string, mailbox routing.Mailbox) (*Occupant, []*Occupant, error) {
	bare := real.Bare().String()
	if r.Permissions != nil {
		if _, cached := r.cachedAffiliation(bare); !cached {
			relations, err := r.Permissions.ListRelations(ctx, r.JID.Bare().String(), bare)
			if err == nil {
				r.ApplyRelations(map[string]string{bare: ResolveAffiliation(relations)})
			}
		}
	}

	var (
		occ    *Occupant
		roster []*Occupant
		outErr error
	)
	r.exec(func() {
		aff := r.affiliationOf(bare)
		if aff == AffOutcast {
			outErr = ErrOutcast
			return
		}
		if r.MembersOnly && aff != AffOwner && aff != AffAdmin && aff != AffMember {
			outErr = ErrMembersOnly
			return
		}
		if existing, ok := r.occupants[nickname]; ok {
			if existing.RealJID.Bare().String() != bare {
				outErr = ErrNicknameInUse
				return
			}
		}
		if prior, ok := r.byBareJID[bare]; ok && prior != nickname {
			delete(r.occupants, prior)
		}

		occ = &Occupant{
			Nickname:    nickname,
			RealJID:     real,
			Affiliation: aff,
			Role:        RoleFor(aff, r.Moderated),
			Mailbox:     mailbox,
		}
		r.occupants[nickname] = occ
		r.byBareJID[bare] = nickname

		roster = make([]*Occupant, 0, len(r.occupants))
		for _, o := range r.occupants {
			roster = append(roster, o)
		}
	})
	return occ, roster, outErr
}

// Leave removes an occupant from the room.
func (r *Room) Leave(nickname string) error {
	var outErr error
	r.exec(func() {
		occ, ok := r.occupants[nickname]
		if !ok {
			outErr = ErrNotOccupant
			return
		}
		delete(r.occupants, nickname)
		delete(r.byBareJID, occ.RealJID.Bare().String())
	})
	return outErr
}

// Occupants returns a snapshot of all current occupants.
func (r *Room) Occupants() []*Occupant {
	var out []*Occupant
	r.exec(func() {
		out = make([]*Occupant, 0, len(r.occupants))
		for _, o := range r.occupants {
			out = append(out, o)
		}
	})
	return out
}

// OccupantByNick looks up an occupant by nickname.
func (r *Room) OccupantByNick(nickname string) (*Occupant, bool) {
	var (
		occ *Occupant
		ok  bool
	)
	r.exec(func() {
		occ, ok = r.occupants[nickname]
	})
	return occ, ok
}

// OccupantByReal looks up the occupant currently holding a given real JID,
// used to resolve a groupchat message's sender to their in-room nickname.
func (r *Room) OccupantByReal(real jid.JID) (*Occupant, bool) {
	var (
		occ *Occupant
		ok  bool
	)
	bare := real.Bare().String()
	r.exec(func() {
		for _, o := range r.occupants {
			if o.RealJID.Bare().String() == bare {
				occ, ok = o, true
				return
			}
		}
	})
	return occ, ok
}

// Broadcast delivers a stanza to every occupant's mailbox, skipping a
// visitor in a moderated room when the payload is a body-bearing groupchat
// message and the sender isn't at least a participant (bounced as
// forbidden by the caller instead of silently dropped).
func (r *Room) Broadcast(ctx context.Context, st stanza.Stanza) int {
	var delivered int
	r.exec(func() {
		for _, occ := range r.occupants {
			if occ.Mailbox == nil {
				continue
			}
			if occ.Mailbox.Deliver(ctx, st) == nil {
				delivered++
			}
		}
	})
	return delivered
}

// AppendHistory records a message in the room's bounded replay ring,
// evicting the oldest entry once HistoryLen is reached.
func (r *Room) AppendHistory(from, body string) {
	r.exec(func() {
		r.history = append(r.history, HistoryEntry{From: from, Body: body, Timestamp: time.Now()})
		if len(r.history) > r.HistoryLen {
			r.history = r.history[len(r.history)-r.HistoryLen:]
		}
	})
}

// History returns up to n of the most recent history entries (fewer if
// fewer are available), oldest first.
func (r *Room) History(n int) []HistoryEntry {
	var out []HistoryEntry
	r.exec(func() {
		if n <= 0 || n > len(r.history) {
			n = len(r.history)
		}
		start := len(r.history) - n
		out = make([]HistoryEntry, n)
		copy(out, r.history[start:])
	})
	return out
}

// SetSubject updates the room subject, requiring at least Participant role
// unless the room restricts subject changes to moderators.
func (r *Room) SetSubject(byNick, subject string) error {
	var outErr error
	r.exec(func() {
		occ, ok := r.occupants[byNick]
		if !ok {
			outErr = ErrNotOccupant
			return
		}
		if occ.Role == RoleVisitor {
			outErr = ErrForbidden
			return
		}
		r.Subject = subject
		r.SubjectSetBy = byNick
		r.SubjectAt = time.Now()
	})
	return outErr
}

// KickOccupant removes an occupant by nickname, requiring the actor to
// hold moderator role.
func (r *Room) KickOccupant(actorNick, targetNick, reason string) error {
	var outErr error
	r.exec(func() {
		actor, ok := r.occupants[actorNick]
		if !ok || actor.Role != RoleModerator {
			outErr = ErrNotModerator
			return
		}
		target, ok := r.occupants[targetNick]
		if !ok {
			outErr = ErrNotOccupant
			return
		}
		delete(r.occupants, targetNick)
		delete(r.byBareJID, target.RealJID.Bare().String())
	})
	return outErr
}

// SelfPing checks that a nickname is still a current occupant (XEP-0410).
func (r *Room) SelfPing(nickname string) error {
	var outErr error
	r.exec(func() {
		if _, ok := r.occupants[nickname]; !ok {
			outErr = ErrNotOccupant
		}
	})
	return outErr
}

func (o *Occupant) String() string {
	return fmt.Sprintf("%s (%s, %s/%s)", o.Nickname, o.RealJID.String(), o.Affiliation, o.Role)
}
