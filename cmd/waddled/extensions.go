package main

import (
	"context"
	"encoding/xml"
	"log"
	"sync"

	xmpp "github.com/waddle-im/waddle"
	"github.com/waddle-im/waddle/internal/ns"
	"github.com/waddle-im/waddle/jid"
	"github.com/waddle-im/waddle/plugins/blocking"
	"github.com/waddle-im/waddle/plugins/carbons"
	"github.com/waddle-im/waddle/plugins/forward"
	"github.com/waddle-im/waddle/stanza"
	"github.com/waddle-im/waddle/storage"
)

// carbonsEnabled tracks which bound full JIDs have requested XEP-0280
// carbon copies, keyed by the JID's string form since that's also how
// routing.Registry.ResourcesOf reports live resources.
var carbonsEnabled sync.Map // string (full JID) -> struct{}

func isPingQuery(iq *stanza.IQ) bool {
	if iq.Type != stanza.IQGet {
		return false
	}
	var p struct {
		XMLName xml.Name `xml:"ping"`
	}
	if err := xml.Unmarshal(iq.Query, &p); err != nil {
		return false
	}
	return p.XMLName.Space == ns.Ping
}

// handlePingIQ answers an XEP-0199 ping with an empty result IQ.
func handlePingIQ(ctx context.Context, session *xmpp.Session, iq *stanza.IQ) error {
	return session.Send(ctx, iq.ResultIQ())
}

func blockingPayload(iq *stanza.IQ) (block bool, items []blocking.BlockItem, ok bool) {
	if iq.Type != stanza.IQSet {
		return false, nil, false
	}
	var b blocking.Block
	if err := xml.Unmarshal(iq.Query, &b); err == nil && b.XMLName.Space == ns.Blocking && b.XMLName.Local == "block" {
		return true, b.Items, true
	}
	var u blocking.Unblock
	if err := xml.Unmarshal(iq.Query, &u); err == nil && u.XMLName.Space == ns.Blocking && u.XMLName.Local == "unblock" {
		return false, u.Items, true
	}
	return false, nil, false
}

// handleBlockingIQ applies a block/unblock command against the configured
// storage.BlockingStore, replies with an empty result, and pushes the
// updated blocklist to the user's other bound resources per XEP-0191 §6.
func handleBlockingIQ(ctx context.Context, session *xmpp.Session, store storage.Storage, iq *stanza.IQ) error {
	if store == nil || store.BlockingStore() == nil {
		return session.Send(ctx, iq.ErrorIQ(stanza.NewStanzaError(stanza.ErrorTypeCancel, stanza.ErrorServiceUnavailable, "blocking not supported")))
	}
	block, items, ok := blockingPayload(iq)
	if !ok {
		return session.Send(ctx, iq.ErrorIQ(stanza.NewStanzaError(stanza.ErrorTypeModify, stanza.ErrorBadRequest, "invalid blocking payload")))
	}

	bs := store.BlockingStore()
	owner := session.RemoteAddr().Bare().String()
	for _, item := range items {
		var err error
		if block {
			err = bs.BlockJID(ctx, owner, item.JID)
		} else {
			err = bs.UnblockJID(ctx, owner, item.JID)
		}
		if err != nil {
			log.Printf("blocking update error for %s: %v", owner, err)
		}
	}

	if err := session.Send(ctx, iq.ResultIQ()); err != nil {
		return err
	}
	return pushBlocklist(ctx, bs, session.RemoteAddr())
}

// pushBlocklist sends a blocklist push to every session bound for owner's
// bare JID, as required whenever the list changes while a resource is
// online.
func pushBlocklist(ctx context.Context, bs storage.BlockingStore, owner jid.JID) error {
	jids, err := bs.GetBlockedJIDs(ctx, owner.Bare().String())
	if err != nil {
		return err
	}
	items := make([]blocking.BlockItem, 0, len(jids))
	for _, j := range jids {
		items = append(items, blocking.BlockItem{JID: j})
	}
	payload, err := xml.Marshal(blocking.BlockList{Items: items})
	if err != nil {
		return err
	}
	push := stanza.NewIQ(stanza.IQSet)
	push.Query = payload

	_, err = deliverTo(ctx, owner.Bare(), push)
	return err
}

// isBlockedTraffic reports whether the stanza between from and to should be
// silently dropped: either side has blocked the other, per XEP-0191 §3's
// silent-drop requirement (no error returned to the sender).
func isBlockedTraffic(ctx context.Context, store storage.Storage, from, to jid.JID) bool {
	if store == nil || store.BlockingStore() == nil || from.IsZero() || to.IsZero() {
		return false
	}
	bs := store.BlockingStore()
	fromBare, toBare := from.Bare().String(), to.Bare().String()
	if blocked, _ := bs.IsBlocked(ctx, toBare, fromBare); blocked {
		return true
	}
	if blocked, _ := bs.IsBlocked(ctx, fromBare, toBare); blocked {
		return true
	}
	return false
}

func isCarbonsQuery(iq *stanza.IQ) (enable bool, ok bool) {
	if iq.Type != stanza.IQSet {
		return false, false
	}
	var en carbons.Enable
	if err := xml.Unmarshal(iq.Query, &en); err == nil && en.XMLName.Space == ns.Carbons && en.XMLName.Local == "enable" {
		return true, true
	}
	var dis carbons.Disable
	if err := xml.Unmarshal(iq.Query, &dis); err == nil && dis.XMLName.Space == ns.Carbons && dis.XMLName.Local == "disable" {
		return false, true
	}
	return false, false
}

func handleCarbonsIQ(ctx context.Context, session *xmpp.Session, enable bool, iq *stanza.IQ) error {
	full := session.RemoteAddr().String()
	if enable {
		carbonsEnabled.Store(full, struct{}{})
	} else {
		carbonsEnabled.Delete(full)
	}
	return session.Send(ctx, iq.ResultIQ())
}

// forkCarbons delivers sent/received carbon copies of a routed chat message
// to every other carbons-enabled resource of the two parties, per XEP-0280
// §4: a "sent" copy to the sender's other resources, a "received" copy to
// the recipient's other resources. The stanza addressed by msg.To is still
// delivered separately by the caller.
func forkCarbons(ctx context.Context, msg *stanza.Message) {
	if msg.Type != stanza.MessageChat || msg.From.IsZero() || msg.To.IsZero() {
		return
	}
	forkWrapped(ctx, msg, msg.From, msg.From, carbons.Sent{}.XMLName)
	forkWrapped(ctx, msg, msg.To, msg.To, carbons.Received{}.XMLName)
}

// forkWrapped sends a carbon copy to every carbons-enabled resource of
// owner's bare JID, excluding the resource that is msg's own From/To full
// JID (the original already goes there directly).
func forkWrapped(ctx context.Context, msg *stanza.Message, owner jid.JID, skip jid.JID, wrapperName xml.Name) {
	wrapped, err := wrapForCarbon(msg, wrapperName)
	if err != nil {
		return
	}
	for _, full := range globalRouter.ResourcesOf(owner.Bare()) {
		if full.String() == skip.String() {
			continue
		}
		if _, enabled := carbonsEnabled.Load(full.String()); !enabled {
			continue
		}
		copyMsg := *wrapped
		copyMsg.To = full
		copyMsg.From = owner.Bare()
		if _, err := deliverTo(ctx, full, &copyMsg); err != nil {
			log.Printf("carbon deliver error to %s: %v", full, err)
		}
	}
}

func wrapForCarbon(msg *stanza.Message, wrapperName xml.Name) (*stanza.Message, error) {
	inner, err := xml.Marshal(msg)
	if err != nil {
		return nil, err
	}
	fwd, err := xml.Marshal(forward.Forwarded{Inner: inner})
	if err != nil {
		return nil, err
	}
	out := stanza.NewMessage(stanza.MessageChat)
	out.Extensions = []stanza.Extension{{XMLName: wrapperName, Inner: fwd}}
	return out, nil
}
