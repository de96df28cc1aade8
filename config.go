package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type config struct {
	Addr         string        `env:"ADDR" envDefault:"127.0.0.1:8081"`
	StopTimeout  time.Duration `env:"STOP_TIMEOUT" envDefault:"10s"`
	KillTimeout  time.Duration `env:"KILL_TIMEOUT" envDefault:"1s"`
	Origin       string        `env:"ORIGIN"`
	MailboxSize  int           `env:"MAILBOX_SIZE" envDefault:"5"`
	EventName    string        `env:"EVENT" envDefault:"vijai"`
	PingInterval time.Duration `env:"PING_INTERVAL" envDefault:"0s"`
	PingRate     float64       `env:"PING_RATE" envDefault:"0"`
	MetricsTick  time.Duration `env:"METRICS_TICK" envDefault:"60s"`
	LogLevel     string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat    string        `env:"LOG_FORMAT" envDefault:"text"`
}

const envPrefix = "SSEHUB_"

// loadConfig reads .env (if any), then SSEHUB_* variables, then flags from
// args. Later sources override earlier ones.
func loadConfig(args []string) (config, error) {
	var cfg config
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}

	fl := flag.NewFlagSet("ssehub", flag.ContinueOnError)
	fl.StringVar(&cfg.Addr, "addr", cfg.Addr, "http service address")
	fl.DurationVar(&cfg.StopTimeout, "stop-timeout", cfg.StopTimeout, "stop timeout")
	fl.DurationVar(&cfg.KillTimeout, "kill-timeout", cfg.KillTimeout, "kill timeout")
	fl.StringVar(&cfg.Origin, "origin", cfg.Origin, "allowed scheme://host[:port] for websocket Origin and CORS; empty allows any")
	fl.IntVar(&cfg.MailboxSize, "mailbox-size", cfg.MailboxSize, "messages buffered per subscriber before it is dropped")
	fl.StringVar(&cfg.EventName, "event", cfg.EventName, "event name of pong messages")
	fl.DurationVar(&cfg.PingInterval, "ping-interval", cfg.PingInterval, "publish a pong every interval; 0 disables")
	fl.Float64Var(&cfg.PingRate, "ping-rate", cfg.PingRate, "max /ping requests per second; 0 is unlimited")
	fl.DurationVar(&cfg.MetricsTick, "metrics.tick", cfg.MetricsTick, "metrics: duration between reports")
	fl.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fl.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text or json")
	if err := fl.Parse(args); err != nil {
		return cfg, err
	}
	return cfg, cfg.validate()
}

func (c config) validate() error {
	if c.MailboxSize < 1 {
		return fmt.Errorf("mailbox size must be at least 1, got %d", c.MailboxSize)
	}
	if c.PingRate < 0 {
		return fmt.Errorf("ping rate must not be negative, got %v", c.PingRate)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}
