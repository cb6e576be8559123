package server

import (
	"context"
	"time"

	"github.com/kebairia/mcutil/internal/logger"
)

// restarter is the slice of Supervisor the watchdog needs.
type restarter interface {
	Running() bool
	Start(ctx context.Context) error
}

// Watchdog restarts the server when its session disappears. A failed restart
// attempt is logged and retried on the next tick; the loop ends only on
// cancellation.
type Watchdog struct {
	server   restarter
	interval time.Duration
	log      logger.Logger
}

// NewWatchdog returns a watchdog checking the server every interval.
func NewWatchdog(server restarter, interval time.Duration, log logger.Logger) *Watchdog {
	return &Watchdog{server: server, interval: interval, log: log}
}

// Run polls until ctx is cancelled. Cancellation is honored at the sleep
// boundary between ticks.
func (w *Watchdog) Run(ctx context.Context) error {
	w.log.Info("watchdog started", "interval", w.interval)
	for {
		if !w.server.Running() {
			w.log.Warn("server is down, attempting restart")
			if err := w.server.Start(ctx); err != nil {
				w.log.Error("restart attempt failed", "error", err)
			} else {
				w.log.Info("server restarted")
			}
		}
		select {
		case <-ctx.Done():
			w.log.Info("watchdog stopped")
			return nil
		case <-time.After(w.interval):
		}
	}
}
