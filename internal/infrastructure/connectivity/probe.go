package connectivity

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"RingsideSync/internal/ports"
)

const defaultInterval = 15 * time.Second

// Probe reports reachability by issuing a HEAD request against a well-known URL.
// Any HTTP response counts as online; transport failures count as offline.
type Probe struct {
	url    string
	client *http.Client
}

var _ ports.ConnectivityProbe = (*Probe)(nil)

// NewProbe returns a probe for url with the given per-request timeout.
func NewProbe(url string, timeout time.Duration) *Probe {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Probe{url: url, client: &http.Client{Timeout: timeout}}
}

// Online performs one probe.
func (p *Probe) Online(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return true
}

// StatusSink receives connectivity transitions.
type StatusSink interface {
	SetOnline(online bool)
}

// Watcher polls a probe and forwards every result to a sink.
type Watcher struct {
	probe    ports.ConnectivityProbe
	sink     StatusSink
	interval time.Duration
	logger   *slog.Logger
}

// NewWatcher wires a probe to a sink.
func NewWatcher(probe ports.ConnectivityProbe, sink StatusSink, interval time.Duration, logger *slog.Logger) *Watcher {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Watcher{probe: probe, sink: sink, interval: interval, logger: logger}
}

// Run probes immediately and then every interval until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	last := w.check(ctx, true)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			last = w.check(ctx, last)
		}
	}
}

func (w *Watcher) check(ctx context.Context, previous bool) bool {
	online := w.probe.Online(ctx)
	if ctx.Err() != nil {
		return previous
	}
	if online != previous && w.logger != nil {
		w.logger.Debug("probe result changed", "online", online)
	}
	w.sink.SetOnline(online)
	return online
}
