package muc

import (
	"sync"

	"github.com/waddle-im/waddle/jid"
)

// Directory is the process-wide map of live rooms, keyed by room JID.
type Directory struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewDirectory creates an empty room directory.
func NewDirectory() *Directory {
	return &Directory{rooms: make(map[string]*Room)}
}

// GetOrCreate returns the room for roomJID, creating it (and starting its
// actor goroutine) if it doesn't already exist.
func (d *Directory) GetOrCreate(roomJID jid.JID, historyLen int) *Room {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := roomJID.Bare().String()
	if r, ok := d.rooms[key]; ok {
		return r
	}
	r := NewRoom(roomJID, historyLen)
	d.rooms[key] = r
	return r
}

// Get looks up a room without creating it.
func (d *Directory) Get(roomJID jid.JID) (*Room, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.rooms[roomJID.Bare().String()]
	return r, ok
}

// Destroy removes a room from the directory and stops its actor.
func (d *Directory) Destroy(roomJID jid.JID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := roomJID.Bare().String()
	if r, ok := d.rooms[key]; ok {
		r.Stop()
		delete(d.rooms, key)
	}
}

// List returns every room's JID currently tracked.
func (d *Directory) List() []jid.JID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]jid.JID, 0, len(d.rooms))
	for _, r := range d.rooms {
		out = append(out, r.JID)
	}
	return out
}
