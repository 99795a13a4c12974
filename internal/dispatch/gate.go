// Package dispatch is the single admission-control point all event records
// pass through before transmission: sampling, the session event ceiling, id
// assignment, and the handoff to the sink adapter.
package dispatch

import (
	"context"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/pagepulse/internal/config"
	"github.com/dgnsrekt/pagepulse/internal/types"
)

// Sink receives gated event records for serialization and transmission.
type Sink interface {
	Deliver(ctx context.Context, rec types.EventRecord) error
}

const deliverTimeout = 10 * time.Second

// Gate applies the capture policy and is the single writer of record ids.
type Gate struct {
	cfg  config.Autocapture
	sink Sink

	mu      sync.Mutex
	enabled bool
	count   int
	draw    func() float64
	rng     *rand.Rand
}

func NewGate(cfg config.Autocapture, sink Sink) *Gate {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	g := &Gate{cfg: cfg, sink: sink, enabled: true, rng: rng}
	g.draw = rng.Float64
	return g
}

// SetDraw replaces the sampling draw, for deterministic tests.
func (g *Gate) SetDraw(draw func() float64) {
	g.mu.Lock()
	g.draw = draw
	g.mu.Unlock()
}

// SetEnabled toggles capture globally. A disabled gate drops everything
// silently.
func (g *Gate) SetEnabled(enabled bool) {
	g.mu.Lock()
	g.enabled = enabled
	g.mu.Unlock()
}

// Count returns how many records have been handed to the sink this session.
func (g *Gate) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.count
}

// Submit runs the admission checks and forwards the record. Checks
// short-circuit on first failure; rejected records are dropped silently,
// never queued or retried. Transport failures are logged and swallowed so
// the producing observer is never informed.
func (g *Gate) Submit(rec types.EventRecord) {
	g.mu.Lock()
	if !g.enabled {
		g.mu.Unlock()
		return
	}
	if !g.sampled() {
		g.mu.Unlock()
		if g.cfg.DebugLog {
			slog.Debug("event sampled out", "kind", rec.Kind)
		}
		return
	}
	if g.cfg.MaxEventsPerSession >= 0 && g.count >= g.cfg.MaxEventsPerSession {
		g.mu.Unlock()
		if g.cfg.DebugLog {
			slog.Debug("session event ceiling reached, event dropped", "kind", rec.Kind)
		}
		return
	}
	rec.ID = g.newEventID()
	g.count++
	g.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()
	if err := g.sink.Deliver(ctx, rec); err != nil {
		slog.Warn("event delivery failed, record dropped", "kind", rec.Kind, "event_id", rec.ID, "error", err)
	}
}

// Track is the public custom-event entry point. Unlike the capture pipeline
// it surfaces validation errors synchronously to the caller.
func (g *Gate) Track(category string, payload map[string]any) error {
	if strings.TrimSpace(category) == "" {
		return types.NewError(types.CodeValidation, "category must be a non-empty string", nil)
	}
	if payload == nil {
		return types.NewError(types.CodeValidation, "payload must be an object", nil)
	}

	data := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		data[k] = v
	}
	data["event_category"] = category

	g.Submit(types.EventRecord{
		Kind:        types.EventCustom,
		TimestampMS: time.Now().UnixMilli(),
		Data:        data,
	})
	return nil
}

// sampled draws against the configured rate. Caller holds the lock.
func (g *Gate) sampled() bool {
	rate := g.cfg.SamplingRate
	if rate >= 1 {
		return true
	}
	if rate <= 0 {
		return false
	}
	return g.draw() <= rate
}

// newEventID is time-based with a random suffix: unique enough within a
// session for collector-side dedup, collisions accepted as negligible.
// Caller holds the lock.
func (g *Gate) newEventID() string {
	const hexDigits = "0123456789abcdef"
	suffix := make([]byte, 8)
	for i := range suffix {
		suffix[i] = hexDigits[g.rng.Intn(len(hexDigits))]
	}
	return time.Now().UTC().Format("20060102T150405.000") + "-" + string(suffix)
}
