// Package client is a Go client for drawing rooms: the websocket session, the
// canvas reconciliation state and the chat history window.
package client

import (
	"sync"

	"github.com/SobhanSah00/iiit-bbsrDrawisly/api/wire"
	"github.com/oklog/ulid/v2"
)

// tempIDPrefix marks ids generated locally before the server assigns one
const tempIDPrefix = "tmp-"

// ApplyResult describes what ApplyRemote did with an element
type ApplyResult int

const (
	// Appended means the element was new and added at the end
	Appended ApplyResult = iota
	// Confirmed means a pending local element was replaced by its persisted form
	Confirmed
	// Ignored means the element was already present
	Ignored
)

func (r ApplyResult) String() string {
	switch r {
	case Appended:
		return "appended"
	case Confirmed:
		return "confirmed"
	case Ignored:
		return "ignored"
	default:
		return "unknown"
	}
}

type canvasEntry struct {
	el      wire.DrawElement
	pending bool
}

// Canvas is the ordered element list of one room. Local elements are shown
// immediately under a temporary id and swapped for the persisted element when
// the server echoes them back, so no element is ever rendered twice.
type Canvas struct {
	mu      sync.Mutex
	entries []canvasEntry
	// issued holds every temporary id this canvas generated
	issued map[string]struct{}
}

// NewCanvas creates an empty canvas
func NewCanvas() *Canvas {
	return &Canvas{issued: make(map[string]struct{})}
}

// Load replaces the confirmed state with persisted history, in persisted order.
// Elements already received live that the history does not contain yet are
// kept after it, followed by still-pending local elements.
func (c *Canvas) Load(history []wire.DrawElement) {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]struct{}, len(history))
	next := make([]canvasEntry, 0, len(history)+len(c.entries))
	for _, el := range history {
		if _, dup := seen[el.ID]; dup {
			continue
		}
		seen[el.ID] = struct{}{}
		el.ClientID = ""
		next = append(next, canvasEntry{el: el})
	}
	for _, e := range c.entries {
		if e.pending {
			continue
		}
		if _, dup := seen[e.el.ID]; !dup {
			seen[e.el.ID] = struct{}{}
			next = append(next, e)
		}
	}
	for _, e := range c.entries {
		if e.pending {
			next = append(next, e)
		}
	}
	c.entries = next
}

// AddLocal appends el optimistically under a fresh temporary id and returns
// the element to transmit
func (c *Canvas) AddLocal(el wire.DrawElement) wire.DrawElement {
	el.ID = tempIDPrefix + ulid.Make().String()
	el.ClientID = ""

	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued[el.ID] = struct{}{}
	c.entries = append(c.entries, canvasEntry{el: el, pending: true})
	return el
}

// Discard removes a pending element, for example when it could not be sent
func (c *Canvas) Discard(tempID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, e := range c.entries {
		if e.pending && e.el.ID == tempID {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return true
		}
	}
	return false
}

// ApplyRemote merges a draw broadcast into the canvas
func (c *Canvas) ApplyRemote(el wire.DrawElement) ApplyResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	clientID := el.ClientID
	el.ClientID = ""

	present := c.indexOfLocked(el.ID, false) >= 0
	if clientID != "" {
		if i := c.indexOfLocked(clientID, true); i >= 0 {
			if present {
				// History already delivered the persisted copy
				c.entries = append(c.entries[:i], c.entries[i+1:]...)
				return Ignored
			}
			c.entries[i] = canvasEntry{el: el}
			return Confirmed
		}
		if _, ours := c.issued[clientID]; ours {
			return Ignored
		}
	}
	if present {
		return Ignored
	}
	c.entries = append(c.entries, canvasEntry{el: el})
	return Appended
}

func (c *Canvas) indexOfLocked(id string, pending bool) int {
	for i, e := range c.entries {
		if e.pending == pending && e.el.ID == id {
			return i
		}
	}
	return -1
}

// Elements returns the current elements in render order
func (c *Canvas) Elements() []wire.DrawElement {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]wire.DrawElement, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.el
	}
	return out
}

// Pending returns the temporary ids still awaiting their echo
func (c *Canvas) Pending() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var ids []string
	for _, e := range c.entries {
		if e.pending {
			ids = append(ids, e.el.ID)
		}
	}
	return ids
}

// Len returns the number of elements
func (c *Canvas) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
