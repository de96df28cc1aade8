// Package ssehub serves a broadcast hub over Server-Sent Events.
//
//	ssehub -addr=:8081
//
// Everything is as ephemeral as can be. An event is pushed to the clients
// connected at the time (if any) and then forgotten. Nothing is replayed to
// clients that reconnect.
//
// Subscribe by opening an event stream:
//
//	curl -N localhost:8081/listen
//
// A websocket opened on the same path receives the same events, one text
// frame per event.
//
//	ws://localhost:8081/listen
//
// Announce a pong event, stamped with the current time, to every subscriber:
//
//	curl localhost:8081/ping
//
// Each subscriber has a small mailbox (-mailbox-size, default 5). A client
// that falls so far behind that its mailbox is full when the next event
// arrives is dropped instead of slowing everyone else down.
//
// Counters and rates are served as JSON at /debug/metrics and written to
// stderr every -metrics.tick.
package main
