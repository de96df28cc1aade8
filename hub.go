package main

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

const defaultMailboxSize = 5

// hub fans formatted messages out to every registered mailbox. A mailbox
// that cannot take a message without blocking is evicted on the spot.
type hub struct {
	mu        sync.Mutex // protects mailboxes and closed; every send and close on a mailbox queue happens under it
	mailboxes mailboxes
	closed    bool

	size int
	m    *metrics
	log  *slog.Logger
}

type mailboxes map[uuid.UUID]*mailbox

func newHub(size int, m *metrics, log *slog.Logger) *hub {
	if size < 1 {
		size = defaultMailboxSize
	}
	return &hub{
		mailboxes: make(mailboxes),
		size:      size,
		m:         m,
		log:       log,
	}
}

// subscribe registers a new mailbox. Subscribing to a closed hub yields a
// mailbox that is already closed.
func (h *hub) subscribe() *mailbox {
	mb := newMailbox(h.size)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		mb.shut(closed)
		return mb
	}
	h.mailboxes[mb.id] = mb
	h.m.incr("hub.subscribers", 1)
	h.log.Debug("subscriber registered", "subscriber", mb.id, "subscribers", len(h.mailboxes))
	return mb
}

// unsubscribe removes a mailbox on behalf of its consumer. It is a no-op for
// mailboxes that were already evicted or closed.
func (h *hub) unsubscribe(mb *mailbox) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.mailboxes[mb.id]; !ok {
		return
	}
	h.remove(mb, closed)
	h.log.Debug("subscriber closed", "subscriber", mb.id, "subscribers", len(h.mailboxes))
}

// publish offers msg to every registered mailbox. It never blocks on a
// subscriber and never fails; full mailboxes are evicted.
func (h *hub) publish(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.m.mark("hub.publishes", 1)
	if len(h.mailboxes) == 0 {
		h.m.mark("hub.drops", 1)
		return
	}
	// Deleting from a map during range neither skips nor revisits the
	// remaining entries.
	for id, mb := range h.mailboxes {
		if mb.offer(msg) {
			h.m.mark("hub.deliveries", 1)
			continue
		}
		h.remove(mb, evicted)
		h.m.mark("hub.evictions", 1)
		h.log.Debug("subscriber evicted", "subscriber", id, "capacity", h.size)
	}
}

// close shuts every mailbox so that consumers drain and stop.
func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for _, mb := range h.mailboxes {
		h.remove(mb, closed)
	}
	h.log.Info("hub closed")
}

func (h *hub) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.mailboxes)
}

func (h *hub) remove(mb *mailbox, s mailboxState) {
	delete(h.mailboxes, mb.id)
	if mb.shut(s) {
		h.m.decr("hub.subscribers", 1)
	}
}
