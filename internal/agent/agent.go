// Package agent ties the session, observers, gate, and sink together behind
// an idempotent Start/Stop lifecycle. It is deliberately thin: all capture
// logic lives in the observers and the gate.
package agent

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dgnsrekt/pagepulse/internal/cdp"
	"github.com/dgnsrekt/pagepulse/internal/config"
	"github.com/dgnsrekt/pagepulse/internal/dispatch"
	"github.com/dgnsrekt/pagepulse/internal/envinfo"
	"github.com/dgnsrekt/pagepulse/internal/observe"
)

// Status is the control API's view of the running agent.
type Status struct {
	Connected       bool   `json:"connected"`
	TabURL          string `json:"tab_url,omitempty"`
	ClicksActive    bool   `json:"clicks_active"`
	PageViewsActive bool   `json:"page_views_active"`
	EventsDelivered int    `json:"events_delivered"`
	TailClients     int    `json:"tail_clients"`
}

// TailCounter reports connected live-tail clients for the status view.
type TailCounter interface {
	ClientCount() int
}

// Agent owns the capture pipeline lifecycle.
type Agent struct {
	cfg     *config.Config
	session *cdp.Session
	gate    *dispatch.Gate
	clicks  *observe.ClickObserver
	views   *observe.PageViewObserver
	tail    TailCounter

	mu      sync.Mutex
	started bool
}

func New(cfg *config.Config, gate *dispatch.Gate, tail TailCounter) *Agent {
	session := cdp.NewSession(cfg)
	return &Agent{
		cfg:     cfg,
		session: session,
		gate:    gate,
		clicks:  observe.NewClickObserver(session),
		views:   observe.NewPageViewObserver(session, envinfo.New(session)),
		tail:    tail,
	}
}

// Start connects the session and starts the configured observers. Calling
// Start on a running agent is a no-op.
func (a *Agent) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return nil
	}

	if err := a.session.Connect(ctx); err != nil {
		return err
	}

	dispatcher := observe.Dispatcher(a.gate.Submit)
	a.clicks.SetDispatcher(dispatcher)
	a.views.SetDispatcher(dispatcher)

	if err := a.clicks.Start(a.cfg.Autocapture); err != nil {
		_ = a.session.Close()
		return err
	}
	if err := a.views.Start(a.cfg.Autocapture); err != nil {
		a.clicks.Stop()
		_ = a.session.Close()
		return err
	}

	a.gate.SetEnabled(true)
	a.started = true
	slog.Info("capture agent started",
		"clicks", a.cfg.Autocapture.Clicks,
		"page_views", a.cfg.Autocapture.PageViews,
		"sampling_rate", a.cfg.Autocapture.SamplingRate,
	)
	return nil
}

// Stop halts the observers, disables the gate, and detaches from the
// browser. Idempotent.
func (a *Agent) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started {
		return
	}

	a.views.Stop()
	a.clicks.Stop()
	a.gate.SetEnabled(false)
	_ = a.session.Close()
	a.started = false
	slog.Info("capture agent stopped", "events_delivered", a.gate.Count())
}

// Track forwards a custom event through the gate.
func (a *Agent) Track(category string, payload map[string]any) error {
	return a.gate.Track(category, payload)
}

// Status snapshots the agent's runtime state.
func (a *Agent) Status() Status {
	a.mu.Lock()
	started := a.started
	a.mu.Unlock()

	st := Status{
		Connected:       started && a.session.Ready(),
		ClicksActive:    a.clicks.Active(),
		PageViewsActive: a.views.Active(),
		EventsDelivered: a.gate.Count(),
	}
	if st.Connected {
		st.TabURL = a.session.TabURL()
	}
	if a.tail != nil {
		st.TailClients = a.tail.ClientCount()
	}
	return st
}

// Config returns the agent's capture policy for the control API.
func (a *Agent) Config() config.Autocapture {
	return a.cfg.Autocapture
}
