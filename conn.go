package main

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// connection streams one mailbox to a websocket client. The client side is
// read only to notice pongs and disconnects; its messages are discarded.
type connection struct {
	w   websocketManager
	h   *hub
	mb  *mailbox
	log *slog.Logger
}

func newConnection(ws *websocket.Conn, h *hub, log *slog.Logger) *connection {
	return &connection{
		w:   websocketInteractor{ws: ws},
		h:   h,
		log: log,
	}
}

func (c *connection) run(ctx context.Context) {
	c.mb = c.h.subscribe()
	c.log = c.log.With("subscriber", c.mb.id)
	c.h.m.incr("conn.websocket", 1)
	defer c.h.m.decr("conn.websocket", 1)

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.keepalive(ctx, pingPeriod)
	}()
	go func() {
		defer wg.Done()
		if err := c.writer(ctx); err != nil && !errors.Is(err, context.Canceled) {
			c.log.Debug("websocket writer stopped", "error", err)
		}
		// Unblocks the reader.
		c.w.wsClose()
	}()

	err := c.reader()
	c.log.Debug("websocket reader stopped", "error", err)
	cancel()
	c.h.unsubscribe(c.mb)
	wg.Wait()
	c.w.wsClose()
}

func (c *connection) reader() error {
	c.w.wsSetReadLimit()
	c.w.wsSetReadDeadline()
	c.w.wsSetPongHandler()
	for {
		if err := c.readMessage(); err != nil {
			return err
		}
	}
}

func (c *connection) readMessage() error {
	_, _, err := c.w.wsReadMessage()
	if err != nil {
		return err
	}
	c.h.m.incr("conn.recv", 1)
	return nil
}

// writer sends each message from the mailbox as one text frame. When the
// hub drops the mailbox the client gets a close frame saying why.
func (c *connection) writer(ctx context.Context) error {
	for {
		msg, err := c.mb.next(ctx)
		switch {
		case errors.Is(err, errEvicted):
			c.w.wsWriteClose(websocket.CloseTryAgainLater, "too slow")
			return err
		case errors.Is(err, errClosed):
			c.w.wsWriteClose(websocket.CloseGoingAway, "shutting down")
			return err
		case err != nil:
			return err
		}
		c.w.wsSetWriteDeadline()
		if err := c.w.wsWriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			return err
		}
		c.h.m.incr("conn.send", 1)
	}
}

func (c *connection) keepalive(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.w.wsPing(); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
