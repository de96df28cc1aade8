package main

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/google/uuid"
)

var (
	errEvicted = errors.New("mailbox evicted: subscriber fell behind")
	errClosed  = errors.New("mailbox closed")
)

type mailboxState int32

const (
	active mailboxState = iota
	evicted
	closed
)

func (s mailboxState) String() string {
	switch s {
	case active:
		return "active"
	case evicted:
		return "evicted"
	case closed:
		return "closed"
	default:
		return "unknown"
	}
}

// mailbox is one subscriber's bounded queue of formatted messages. The hub
// is its only sender; exactly one goroutine reads it through next.
type mailbox struct {
	id    uuid.UUID
	queue chan string
	state atomic.Int32
}

func newMailbox(size int) *mailbox {
	return &mailbox{
		id:    uuid.New(),
		queue: make(chan string, size),
	}
}

// next blocks until a message is queued and returns it. Messages buffered
// before an eviction or close are still returned; after that next reports
// errEvicted or errClosed. Cancelling ctx interrupts the wait.
func (m *mailbox) next(ctx context.Context) (string, error) {
	select {
	case msg, ok := <-m.queue:
		if !ok {
			if m.status() == evicted {
				return "", errEvicted
			}
			return "", errClosed
		}
		return msg, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (m *mailbox) status() mailboxState {
	return mailboxState(m.state.Load())
}

// offer is a non-blocking enqueue. Caller must hold the hub lock.
func (m *mailbox) offer(msg string) bool {
	select {
	case m.queue <- msg:
		return true
	default:
		return false
	}
}

// shut moves an active mailbox into a terminal state and closes its queue.
// Caller must hold the hub lock.
func (m *mailbox) shut(s mailboxState) bool {
	if !m.state.CompareAndSwap(int32(active), int32(s)) {
		return false
	}
	close(m.queue)
	return true
}
