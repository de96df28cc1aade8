package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frame struct {
	messageType int
	payload     string
}

type mockWsInteractor struct {
	mu      sync.Mutex
	reads   chan error
	writes  []frame
	closeAt int
	pings   int
	closed  bool
	err     error
}

func newMockWs() *mockWsInteractor {
	return &mockWsInteractor{reads: make(chan error, 1)}
}

func (mq *mockWsInteractor) wsSetReadLimit() {}

func (mq *mockWsInteractor) wsSetReadDeadline() {}

func (mq *mockWsInteractor) wsSetPongHandler() {}

func (mq *mockWsInteractor) wsSetWriteDeadline() {}

func (mq *mockWsInteractor) wsReadMessage() (int, []byte, error) {
	err := <-mq.reads
	return websocket.TextMessage, []byte("ignored"), err
}

func (mq *mockWsInteractor) wsWriteMessage(messageType int, payload []byte) error {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	if mq.err != nil {
		return mq.err
	}
	mq.writes = append(mq.writes, frame{messageType, string(payload)})
	return nil
}

func (mq *mockWsInteractor) wsPing() error {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	mq.pings++
	return mq.err
}

func (mq *mockWsInteractor) wsWriteClose(code int, _ string) error {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	mq.closeAt = code
	return nil
}

func (mq *mockWsInteractor) wsClose() {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	if !mq.closed {
		mq.closed = true
		select {
		case mq.reads <- io.EOF:
		default:
		}
	}
}

func (mq *mockWsInteractor) frames() []frame {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	return append([]frame(nil), mq.writes...)
}

func newTestConnection(h *hub, w websocketManager) *connection {
	return &connection{
		w:   w,
		h:   h,
		mb:  h.subscribe(),
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestConnReadMessage(t *testing.T) {
	h := newTestHub(5)
	mock := newMockWs()
	conn := newTestConnection(h, mock)

	mock.reads <- nil
	require.NoError(t, conn.readMessage())
	assert.Equal(t, int64(1), metricCount(h.m, "conn.recv"))

	mock.reads <- errors.New("message read error")
	assert.Error(t, conn.readMessage())
	assert.Empty(t, conn.mb.queue, "client messages are never published")
}

func TestConnWriter(t *testing.T) {
	h := newTestHub(5)
	mock := newMockWs()
	conn := newTestConnection(h, mock)

	done := make(chan error, 1)
	go func() { done <- conn.writer(context.Background()) }()

	h.publish(format("bananas", "fruit"))
	h.publish(format("apples", ""))
	require.Eventually(t, func() bool { return len(mock.frames()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []frame{
		{websocket.TextMessage, "event: fruit\ndata: bananas\n\n"},
		{websocket.TextMessage, "data: apples\n\n"},
	}, mock.frames())

	h.unsubscribe(conn.mb)
	select {
	case err := <-done:
		assert.ErrorIs(t, err, errClosed)
	case <-time.After(time.Second):
		t.Fatal("writer did not stop")
	}
	assert.Equal(t, websocket.CloseGoingAway, mock.closeAt)
}

func TestConnWriterEvicted(t *testing.T) {
	h := newTestHub(1)
	mock := newMockWs()
	conn := newTestConnection(h, mock)

	h.publish("data: 1\n\n")
	h.publish("data: 2\n\n")
	require.Equal(t, evicted, conn.mb.status())

	err := conn.writer(context.Background())
	assert.ErrorIs(t, err, errEvicted)
	assert.Equal(t, []frame{{websocket.TextMessage, "data: 1\n\n"}}, mock.frames())
	assert.Equal(t, websocket.CloseTryAgainLater, mock.closeAt)
}

func TestConnWriterWriteError(t *testing.T) {
	h := newTestHub(5)
	mock := newMockWs()
	mock.err = errors.New("broken pipe")
	conn := newTestConnection(h, mock)

	h.publish("data: x\n\n")
	err := conn.writer(context.Background())
	assert.EqualError(t, err, "broken pipe")
}

func TestConnKeepalive(t *testing.T) {
	h := newTestHub(5)
	mock := newMockWs()
	conn := newTestConnection(h, mock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		conn.keepalive(ctx, 5*time.Millisecond)
		close(done)
	}()
	require.Eventually(t, func() bool {
		mock.mu.Lock()
		defer mock.mu.Unlock()
		return mock.pings >= 2
	}, time.Second, time.Millisecond)
	cancel()
	<-done
}

func TestConnRunUnsubscribesOnDisconnect(t *testing.T) {
	h := newTestHub(5)
	mock := newMockWs()
	conn := &connection{w: mock, h: h, log: slog.New(slog.NewTextHandler(io.Discard, nil))}

	done := make(chan struct{})
	go func() {
		conn.run(context.Background())
		close(done)
	}()
	require.Eventually(t, func() bool { return h.len() == 1 }, time.Second, time.Millisecond)

	h.publish("data: hi\n\n")
	require.Eventually(t, func() bool { return len(mock.frames()) == 1 }, time.Second, time.Millisecond)

	// Client goes away.
	mock.reads <- io.EOF
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run did not return")
	}
	assert.Equal(t, 0, h.len())
	assert.Equal(t, int64(0), metricCount(h.m, "conn.websocket"))
}
