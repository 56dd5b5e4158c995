package pubsub

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/waddle-im/waddle/jid"
	"github.com/waddle-im/waddle/routing"
	"github.com/waddle-im/waddle/stanza"
	"github.com/waddle-im/waddle/storage"
)

// Access models, XEP-0060 §4.
const (
	AccessOpen      = "open"
	AccessPresence  = "presence"
	AccessRoster    = "roster"
	AccessWhitelist = "whitelist"
	AccessAuthorize = "authorize"
)

// Errors returned by Engine operations.
var (
	ErrNotSubscribed = errors.New("pubsub: not authorized to subscribe")
	ErrNotPublisher  = errors.New("pubsub: not authorized to publish")
	ErrNodeNotFound  = errors.New("pubsub: node not found")
)

// DefaultMaxItems bounds a node's item history absent explicit config.
const DefaultMaxItems = 1

// pepDefaults maps a PEP node name to the access model it is auto-created
// with, per the supplemented default-access table.
var pepDefaults = map[string]string{
	"storage:bookmarks":         AccessWhitelist,
	"urn:xmpp:bookmarks:1":      AccessWhitelist,
	"eu.siacs.conversations.axolotl.devicelist": AccessOpen,
	"urn:xmpp:omemo:2:devices":  AccessOpen,
}

// AuthorizationChecker decides whether a subscriber may subscribe to a node
// under the roster/presence access models, delegated to the roster plugin
// to avoid a circular import.
type AuthorizationChecker interface {
	// InRoster reports whether subscriber is in owner's roster with a
	// subscription that grants them presence.
	InRoster(ctx context.Context, owner, subscriber jid.JID) bool
}

// Engine implements the XEP-0060/XEP-0163 node semantics on top of a
// storage.PubSubStore: access-model-gated publish/subscribe, max-items
// eviction, and PEP auto-create-with-default-access.
type Engine struct {
	store  storage.PubSubStore
	authz  AuthorizationChecker
	router *routing.Registry
}

// NewEngine creates an Engine over the given store. authz and router may be
// nil, in which case presence/roster-gated access always denies and
// notifications are not fanned out.
func NewEngine(store storage.PubSubStore, authz AuthorizationChecker, router *routing.Registry) *Engine {
	return &Engine{store: store, authz: authz, router: router}
}

func accessModel(node *storage.PubSubNode) string {
	if node.Config == nil {
		return AccessPresence
	}
	if m, ok := node.Config["pubsub#access_model"]; ok && m != "" {
		return m
	}
	return AccessPresence
}

func maxItems(node *storage.PubSubNode) int {
	if node.Config == nil {
		return DefaultMaxItems
	}
	if _, ok := node.Config["pubsub#max_items"]; ok {
		// "max" sentinel means unbounded; callers needing a concrete bound
		// should treat 0 as unbounded.
		if node.Config["pubsub#max_items"] == "max" {
			return 0
		}
	}
	return DefaultMaxItems
}

// EnsurePEPNode auto-creates a PEP node under owner's bare JID with its
// default access model if it doesn't already exist.
func (e *Engine) EnsurePEPNode(ctx context.Context, owner jid.JID, node string) (*storage.PubSubNode, error) {
	host := owner.Bare().String()
	n, err := e.store.GetNode(ctx, host, node)
	if err == nil {
		return n, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	access := AccessPresence
	if a, ok := pepDefaults[node]; ok {
		access = a
	}
	n = &storage.PubSubNode{
		Host:    host,
		NodeID:  node,
		Type:    "leaf",
		Creator: host,
		Config:  map[string]string{"pubsub#access_model": access},
	}
	if err := e.store.CreateNode(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// authorized reports whether subscriber may subscribe to node per its
// access model.
func (e *Engine) authorized(ctx context.Context, node *storage.PubSubNode, owner, subscriber jid.JID) bool {
	switch accessModel(node) {
	case AccessOpen:
		return true
	case AccessWhitelist:
		if node.Config == nil {
			return false
		}
		return node.Config["whitelist:"+subscriber.Bare().String()] == "1"
	case AccessRoster, AccessPresence:
		if e.authz == nil {
			return false
		}
		return e.authz.InRoster(ctx, owner, subscriber)
	case AccessAuthorize:
		// Pending-approval flow: subscription enters "pending" state,
		// not immediately readable; treated as not-yet-authorized here.
		return false
	default:
		return false
	}
}

// Subscribe attempts to subscribe subscriber to host's node, honoring the
// node's access model.
func (e *Engine) Subscribe(ctx context.Context, host string, node string, subscriber jid.JID) (*storage.PubSubSubscription, error) {
	n, err := e.store.GetNode(ctx, host, node)
	if err != nil {
		return nil, ErrNodeNotFound
	}
	owner := n.Creator
	ownerJID, _ := jid.Parse(owner)
	state := "subscribed"
	if !e.authorized(ctx, n, ownerJID, subscriber) {
		if accessModel(n) == AccessAuthorize {
			state = "pending"
		} else {
			return nil, ErrNotSubscribed
		}
	}
	sub := &storage.PubSubSubscription{
		Host:   host,
		NodeID: node,
		JID:    subscriber.String(),
		SubID:  stanza.GenerateID(),
		State:  state,
	}
	if err := e.store.Subscribe(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Publish publishes an item, evicting the oldest item first once the
// node's max_items bound is exceeded, then notifies every subscriber whose
// access is currently granted.
func (e *Engine) Publish(ctx context.Context, host, node string, publisher jid.JID, itemID string, payload []byte) (*storage.PubSubItem, error) {
	n, err := e.store.GetNode(ctx, host, node)
	if err != nil {
		return nil, ErrNodeNotFound
	}
	if itemID == "" {
		itemID = stanza.GenerateID()
	}
	item := &storage.PubSubItem{
		Host:      host,
		NodeID:    node,
		ItemID:    itemID,
		Publisher: publisher.String(),
		Payload:   payload,
		CreatedAt: time.Now(),
	}
	if err := e.store.UpsertItem(ctx, item); err != nil {
		return nil, err
	}

	if bound := maxItems(n); bound > 0 {
		items, err := e.store.GetItems(ctx, host, node)
		if err == nil && len(items) > bound {
			sort.Slice(items, func(i, j int) bool {
				return items[i].CreatedAt.Before(items[j].CreatedAt)
			})
			for _, stale := range items[:len(items)-bound] {
				_ = e.store.DeleteItem(ctx, host, node, stale.ItemID)
			}
		}
	}

	e.notify(ctx, host, node, n, item)
	return item, nil
}

// notify fans a published item out to subscribers whose access is
// currently granted, skipping those who aren't.
func (e *Engine) notify(ctx context.Context, host, node string, n *storage.PubSubNode, item *storage.PubSubItem) {
	if e.router == nil {
		return
	}
	subs, err := e.store.GetSubscriptions(ctx, host, node)
	if err != nil {
		return
	}
	ownerJID, _ := jid.Parse(n.Creator)
	msg := stanza.NewMessage(stanza.MessageHeadline)
	msg.From = jid.MustParse(host)
	msg.Extensions = append(msg.Extensions, eventExtension(node, item))

	for _, sub := range subs {
		if sub.State != "subscribed" {
			continue
		}
		subJID, err := jid.Parse(sub.JID)
		if err != nil {
			continue
		}
		if !e.authorized(ctx, n, ownerJID, subJID) {
			continue
		}
		cp := *msg
		cp.To = subJID
		_, _ = e.router.DeliverBare(ctx, subJID.Bare(), &cp, true)
	}
}

// SendLastPublished delivers the most recent item on node to subscriber,
// used when a contact comes online and their caps advertise node+notify.
func (e *Engine) SendLastPublished(ctx context.Context, host, node string, subscriber jid.JID) error {
	items, err := e.store.GetItems(ctx, host, node)
	if err != nil || len(items) == 0 {
		return err
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	last := items[0]

	msg := stanza.NewMessage(stanza.MessageHeadline)
	msg.From = jid.MustParse(host)
	msg.To = subscriber
	msg.Extensions = append(msg.Extensions, eventExtension(node, last))

	if e.router == nil {
		return nil
	}
	_, err = e.router.DeliverBare(ctx, subscriber.Bare(), msg, true)
	return err
}
