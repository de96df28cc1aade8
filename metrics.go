package main

import (
	"context"
	"io"
	"time"

	gometrics "github.com/rcrowley/go-metrics"
)

const defaultMetricsTick = 60 * time.Second

type metrics struct {
	log  io.Writer
	reg  gometrics.Registry
	tick time.Duration
}

func newMetrics(reg gometrics.Registry, log io.Writer, tick time.Duration) *metrics {
	return &metrics{
		log:  log,
		reg:  reg,
		tick: tick,
	}
}

// run writes the registry as JSON every tick until ctx is done, then writes
// it one last time.
func (m *metrics) run(ctx context.Context) {
	defer m.writeOnce()
	if m.tick <= 0 {
		<-ctx.Done()
		return
	}
	t := time.NewTicker(m.tick)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			m.writeOnce()
		case <-ctx.Done():
			return
		}
	}
}

func (m *metrics) writeOnce() {
	gometrics.WriteJSONOnce(m.reg, m.log)
}

func (m *metrics) writeJSON(w io.Writer) {
	gometrics.WriteJSONOnce(m.reg, w)
}

func (m *metrics) incr(name string, i int64) {
	gometrics.GetOrRegisterCounter(name, m.reg).Inc(i)
}

func (m *metrics) decr(name string, i int64) {
	gometrics.GetOrRegisterCounter(name, m.reg).Dec(i)
}

func (m *metrics) mark(name string, i int64) {
	gometrics.GetOrRegisterMeter(name, m.reg).Mark(i)
}
