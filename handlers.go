package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

func newHandler(h *hub, p *pinger, cfg config, log *slog.Logger) http.Handler {
	r := mux.NewRouter()

	// Event stream and websocket subscribers
	r.Path("/listen").Methods("GET").Handler(listenHandler{
		h:   h,
		ws:  wsHandler{h: h, upgrader: newUpgrader(cfg.Origin), log: log},
		log: log,
	})

	r.Path("/ping").Methods("GET").Handler(newPingHandler(p, h.m, cfg.PingRate))
	r.Path("/debug/metrics").Methods("GET").Handler(metricsHandler{m: h.m})
	r.Path("/chatroom").Methods("GET").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "Dummy text")
	})
	r.Path("/").Methods("GET").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, "<p>Hello, World!</p>")
	})

	return accessLog(log, handlers.CORS(
		handlers.AllowCredentials(),
		handlers.AllowedOriginValidator(originValidator(cfg.Origin)),
	)(r))
}

// originValidator accepts only origin, or any origin when it is empty.
func originValidator(origin string) handlers.OriginValidator {
	return func(o string) bool {
		if origin == "" {
			return o != ""
		}
		return o == origin
	}
}

// accessLog logs each finished request at debug level. Streams are logged
// when they end.
func accessLog(log *slog.Logger, next http.Handler) http.Handler {
	return handlers.CustomLoggingHandler(io.Discard, next, func(_ io.Writer, p handlers.LogFormatterParams) {
		log.Debug("request",
			"method", p.Request.Method,
			"path", p.URL.Path,
			"status", p.StatusCode,
			"size", p.Size,
			"remote", p.Request.RemoteAddr,
			"duration", time.Since(p.TimeStamp),
		)
	})
}

type listenHandler struct {
	h   *hub
	ws  wsHandler
	log *slog.Logger
}

// ServeHTTP hands websocket handshakes to the websocket transport and serves
// everything else as an event stream.
func (lh listenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		lh.ws.ServeHTTP(w, r)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		sendError(w, http.StatusInternalServerError, "Streaming unsupported.")
		return
	}

	mb := lh.h.subscribe()
	defer lh.h.unsubscribe(mb)
	lh.h.m.incr("conn.sse", 1)
	defer lh.h.m.decr("conn.sse", 1)
	log := lh.log.With("subscriber", mb.id, "remote", r.RemoteAddr)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		msg, err := mb.next(r.Context())
		if err != nil {
			log.Debug("event stream ended", "error", err)
			return
		}
		if _, err := io.WriteString(w, msg); err != nil {
			log.Debug("event stream write failed", "error", fmt.Errorf("write event: %w", err))
			return
		}
		flusher.Flush()
	}
}

type wsHandler struct {
	h        *hub
	upgrader *websocket.Upgrader
	log      *slog.Logger
}

func (wsh wsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := wsh.upgrader.Upgrade(w, r, nil)
	if err != nil {
		wsh.log.Debug("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}
	c := newConnection(ws, wsh.h, wsh.log)
	c.run(r.Context())
}

type pingHandler struct {
	p       *pinger
	m       *metrics
	limiter *rate.Limiter
}

// newPingHandler limits pings to perSecond, or not at all when it is zero.
func newPingHandler(p *pinger, m *metrics, perSecond float64) pingHandler {
	ph := pingHandler{p: p, m: m}
	if perSecond > 0 {
		burst := int(perSecond)
		if burst < 1 {
			burst = 1
		}
		ph.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
	return ph
}

func (ph pingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if ph.limiter != nil && !ph.limiter.Allow() {
		ph.m.mark("ping.limited", 1)
		sendError(w, http.StatusTooManyRequests, "Ping rate exceeded.")
		return
	}
	ph.p.ping()
	w.Header().Set("Content-Type", "application/json")
	io.WriteString(w, "{}\n")
}

type metricsHandler struct {
	m *metrics
}

func (mh metricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	mh.m.writeJSON(w)
}

func sendError(w http.ResponseWriter, status int, str string) {
	http.Error(w,
		fmt.Sprintf("Error: %s. %s", http.StatusText(status), str),
		status)
}
