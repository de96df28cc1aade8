package main

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// pongLayout renders timestamps as month/day/year, hour:minute:second.
const pongLayout = "01/02/2006, 15:04:05"

func pongData(t time.Time) string {
	return "pong + " + t.Format(pongLayout)
}

// pinger announces a pong event on the hub at a fixed interval.
type pinger struct {
	h        *hub
	clock    clockwork.Clock
	interval time.Duration
	event    string
}

func newPinger(h *hub, clock clockwork.Clock, interval time.Duration, event string) *pinger {
	return &pinger{
		h:        h,
		clock:    clock,
		interval: interval,
		event:    event,
	}
}

// ping publishes one pong stamped with the current time.
func (p *pinger) ping() {
	p.h.publish(format(pongData(p.clock.Now()), p.event))
}

// run ticks until ctx is done. A non-positive interval disables it.
func (p *pinger) run(ctx context.Context) {
	if p.interval <= 0 {
		return
	}
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			p.ping()
		case <-ctx.Done():
			return
		}
	}
}
