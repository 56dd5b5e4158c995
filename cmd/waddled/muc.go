package main

import (
	"context"
	"encoding/xml"
	"log"
	"strings"

	xmpp "github.com/waddle-im/waddle"
	"github.com/waddle-im/waddle/internal/ns"
	"github.com/waddle-im/waddle/jid"
	"github.com/waddle-im/waddle/plugins/muc"
	"github.com/waddle-im/waddle/stanza"
)

// mucDirectory is the process-wide live-room registry; rooms are created
// lazily on first join of a JID under the conference subdomain.
var mucDirectory = muc.NewDirectory()

var xmlNameMUCUser = xml.Name{Space: ns.MUCUser, Local: "x"}

// isMUCRoom reports whether to's domain is the server's conference
// subdomain, the XMPP convention (conference.example.com) this deployment
// follows instead of a configurable per-room registry lookup.
func isMUCRoom(to jid.JID, cfg Config) bool {
	return strings.HasPrefix(to.Domain(), "conference.") && strings.TrimPrefix(to.Domain(), "conference.") == cfg.Domain
}

// routeMUCPresence handles a presence stanza addressed to room@conference.domain/nickname,
// joining or leaving the room and broadcasting the resulting occupant roster,
// per XEP-0045 §7 (simplified: no password/history-request handling).
func routeMUCPresence(ctx context.Context, source *xmpp.Session, cfg Config, permSvc *storePermissionService, pres *stanza.Presence) bool {
	if !isMUCRoom(pres.To, cfg) || pres.To.Resource() == "" {
		return false
	}

	room := mucDirectory.GetOrCreate(pres.To, 50)
	if room.Permissions == nil && permSvc != nil {
		room.Permissions = permSvc
	}
	real := source.RemoteAddr()
	nickname := pres.To.Resource()

	if pres.Type == stanza.PresenceUnavailable {
		if err := room.Leave(nickname); err != nil && err != muc.ErrNotOccupant {
			log.Printf("muc leave error: %v", err)
		}
		left := stanza.NewPresence(stanza.PresenceUnavailable)
		left.From = pres.To
		left.To = real
		_ = source.Send(ctx, left)
		room.Broadcast(ctx, left)
		return true
	}

	occ, roster, err := room.Join(ctx, real, nickname, sessionMailbox(source))
	if err != nil {
		errPres := stanza.NewPresence(stanza.PresenceError)
		errPres.From = pres.To
		errPres.To = real
		switch err {
		case muc.ErrOutcast:
			errPres.Error = stanza.NewStanzaError(stanza.ErrorTypeAuth, stanza.ErrorForbidden, "banned from room")
		case muc.ErrMembersOnly:
			errPres.Error = stanza.NewStanzaError(stanza.ErrorTypeAuth, stanza.ErrorRegistrationRequired, "members-only room")
		case muc.ErrNicknameInUse:
			errPres.Error = stanza.NewStanzaError(stanza.ErrorTypeCancel, stanza.ErrorConflict, "nickname in use")
		default:
			errPres.Error = stanza.NewStanzaError(stanza.ErrorTypeCancel, stanza.ErrorInternalServerError, "join failed")
		}
		_ = source.Send(ctx, errPres)
		return true
	}

	for _, other := range roster {
		self := other.Nickname == occ.Nickname
		p := stanza.NewPresence("")
		p.From = jidWithResource(pres.To, other.Nickname)
		p.To = real
		p.Extensions = []stanza.Extension{mucUserItem(other.Affiliation, other.Role, self)}
		_ = source.Send(ctx, p)
	}

	announce := stanza.NewPresence("")
	announce.From = pres.To
	announce.Extensions = []stanza.Extension{mucUserItem(occ.Affiliation, occ.Role, false)}
	room.Broadcast(ctx, announce)
	return true
}

// routeMUCGroupchatMessage broadcasts a type='groupchat' message addressed
// to a joined room's bare JID to every occupant, relabeling From with the
// sender's in-room nickname per XEP-0045 §7.9. Returns false (unhandled) if
// the room doesn't exist or the sender isn't currently an occupant, so the
// caller falls back to ordinary point-to-point delivery.
func routeMUCGroupchatMessage(ctx context.Context, source *xmpp.Session, cfg Config, msg *stanza.Message) bool {
	if msg.Type != stanza.MessageGroupchat || !isMUCRoom(msg.To, cfg) {
		return false
	}
	room, ok := mucDirectory.Get(msg.To)
	if !ok {
		return false
	}
	occ, ok := room.OccupantByReal(source.RemoteAddr())
	if !ok {
		return false
	}
	out := *msg
	out.From = jidWithResource(msg.To, occ.Nickname)
	out.To = jid.JID{}
	room.AppendHistory(occ.Nickname, msg.Body)
	room.Broadcast(ctx, &out)
	return true
}

func jidWithResource(room jid.JID, resource string) jid.JID {
	full, err := jid.New(room.Local(), room.Domain(), resource)
	if err != nil {
		return room
	}
	return full
}

func mucUserItem(affiliation, role string, selfPresence bool) stanza.Extension {
	item, err := xml.Marshal(muc.UserItem{Affiliation: affiliation, Role: role})
	if err != nil {
		item = nil
	}
	inner := item
	if selfPresence {
		status, err := xml.Marshal(muc.Status{Code: 110})
		if err == nil {
			inner = append(inner, status...)
		}
	}
	return stanza.Extension{
		XMLName: xmlNameMUCUser,
		Inner:   inner,
	}
}
