package websocket

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sort"
	"sync"
)

// Member is anything the hub can deliver to
type Member interface {
	ID() string
	SessionID() string
	Send(data []byte) error
}

type group struct {
	members map[string]Member
	mu      sync.Mutex
	// removed is set once the group has emptied and left the hub
	removed bool
}

// Hub maintains the set of live members per session and fans events out.
// Each group has its own lock; Hub.mu guards only the group map.
type Hub struct {
	groups map[string]*group
	mu     sync.RWMutex
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		groups: make(map[string]*group),
	}
}

// Join adds m to the group named by its session ID, creating the group on
// first use.
func (h *Hub) Join(m Member) error {
	sessionID := m.SessionID()
	for {
		h.mu.Lock()
		g, ok := h.groups[sessionID]
		if !ok {
			g = &group{members: make(map[string]Member)}
			h.groups[sessionID] = g
		}
		h.mu.Unlock()

		g.mu.Lock()
		if g.removed {
			// Emptied between lookup and lock; look again
			g.mu.Unlock()
			continue
		}
		if _, exists := g.members[m.ID()]; exists {
			g.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrAlreadyJoined, m.ID())
		}
		g.members[m.ID()] = m
		count := len(g.members)
		g.mu.Unlock()

		log.Printf("[WS] client joined session=%s client=%s members=%d", sessionID, m.ID(), count)
		return nil
	}
}

// Leave removes m from its group. It reports whether m was a member, so
// calling it more than once is harmless.
func (h *Hub) Leave(m Member) bool {
	sessionID := m.SessionID()

	h.mu.RLock()
	g, ok := h.groups[sessionID]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	g.mu.Lock()
	if _, exists := g.members[m.ID()]; !exists {
		g.mu.Unlock()
		return false
	}
	delete(g.members, m.ID())
	count := len(g.members)
	empty := h.markIfEmpty(g)
	g.mu.Unlock()

	log.Printf("[WS] client left session=%s client=%s members=%d", sessionID, m.ID(), count)
	if empty {
		h.dropGroup(sessionID, g)
	}
	return true
}

// Broadcast encodes event once and queues it to every member of the
// session's group, the originator included. It returns how many members
// accepted the message. Members whose Send fails are removed and closed.
func (h *Hub) Broadcast(sessionID string, event OutboundEvent) (int, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal broadcast: %w", err)
	}
	return h.BroadcastRaw(sessionID, data), nil
}

// BroadcastRaw queues already encoded data to every member of a group
func (h *Hub) BroadcastRaw(sessionID string, data []byte) int {
	h.mu.RLock()
	g, ok := h.groups[sessionID]
	h.mu.RUnlock()
	if !ok {
		return 0
	}

	// The group lock is held for the whole fan-out so every member sees
	// broadcasts to this group in the same order.
	g.mu.Lock()
	delivered := 0
	var failed []Member
	for id, m := range g.members {
		if err := m.Send(data); err != nil {
			delete(g.members, id)
			failed = append(failed, m)
			continue
		}
		delivered++
	}
	empty := len(failed) > 0 && h.markIfEmpty(g)
	g.mu.Unlock()

	for _, m := range failed {
		log.Printf("[WS] dropping client session=%s client=%s", sessionID, m.ID())
		if c, ok := m.(io.Closer); ok {
			go c.Close()
		}
	}
	if empty {
		h.dropGroup(sessionID, g)
	}
	return delivered
}

// Members returns the IDs of a group's members in sorted order
func (h *Hub) Members(sessionID string) []string {
	h.mu.RLock()
	g, ok := h.groups[sessionID]
	h.mu.RUnlock()
	if !ok {
		return nil
	}

	g.mu.Lock()
	ids := make([]string, 0, len(g.members))
	for id := range g.members {
		ids = append(ids, id)
	}
	g.mu.Unlock()

	sort.Strings(ids)
	return ids
}

// Count returns the number of members in a group
func (h *Hub) Count(sessionID string) int {
	h.mu.RLock()
	g, ok := h.groups[sessionID]
	h.mu.RUnlock()
	if !ok {
		return 0
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.members)
}

// Stats returns the number of live groups and members across all of them
func (h *Hub) Stats() (groups, members int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	groups = len(h.groups)
	for _, g := range h.groups {
		g.mu.Lock()
		members += len(g.members)
		g.mu.Unlock()
	}
	return groups, members
}

// CloseAll closes every member that can be closed. Used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	var all []Member
	for _, g := range h.groups {
		g.mu.Lock()
		for _, m := range g.members {
			all = append(all, m)
		}
		g.mu.Unlock()
	}
	h.mu.RUnlock()

	for _, m := range all {
		if c, ok := m.(io.Closer); ok {
			c.Close()
		} else {
			h.Leave(m)
		}
	}
}

// markIfEmpty flags g as removed when it has no members. g.mu must be held.
func (h *Hub) markIfEmpty(g *group) bool {
	if len(g.members) > 0 {
		return false
	}
	g.removed = true
	return true
}

func (h *Hub) dropGroup(sessionID string, g *group) {
	h.mu.Lock()
	if h.groups[sessionID] == g {
		delete(h.groups, sessionID)
	}
	h.mu.Unlock()
}
