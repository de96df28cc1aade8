package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/facebookgo/httpdown"
	"github.com/jonboulle/clockwork"
	gometrics "github.com/rcrowley/go-metrics"
)

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "ssehub:", err)
		os.Exit(2)
	}
	log := newLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	if err := serve(cfg, log); err != nil {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// serve runs until SIGINT or SIGTERM. On shutdown the hub is closed first so
// every open stream ends before the server stops.
func serve(cfg config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := newMetrics(gometrics.DefaultRegistry, os.Stderr, cfg.MetricsTick)
	metricsDone := make(chan struct{})
	go func() {
		m.run(ctx)
		close(metricsDone)
	}()

	h := newHub(cfg.MailboxSize, m, log)
	p := newPinger(h, clockwork.NewRealClock(), cfg.PingInterval, cfg.EventName)
	go p.run(ctx)

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: newHandler(h, p, cfg, log),
	}
	hd := &httpdown.HTTP{
		StopTimeout: cfg.StopTimeout,
		KillTimeout: cfg.KillTimeout,
	}
	srv, err := hd.ListenAndServe(server)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}
	log.Info("listening", "addr", cfg.Addr, "mailbox_size", cfg.MailboxSize, "ping_interval", cfg.PingInterval)

	waitErr := make(chan error, 1)
	go func() { waitErr <- srv.Wait() }()

	select {
	case err = <-waitErr:
	case <-ctx.Done():
		log.Info("shutting down", "subscribers", h.len())
		h.close()
		err = srv.Stop()
	}
	stop()
	<-metricsDone
	return err
}
