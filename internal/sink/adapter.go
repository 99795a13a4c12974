package sink

import (
	"context"
	"log/slog"

	"github.com/dgnsrekt/pagepulse/internal/types"
)

// Adapter implements the gate's Sink: it builds the envelope once and fans
// it out. The primary transport's error is returned to the gate (which logs
// and swallows it); side-channel failures are only logged here.
type Adapter struct {
	tags    Tags
	primary Transport
	side    []Transport
}

func NewAdapter(tags Tags, primary Transport, side ...Transport) *Adapter {
	return &Adapter{tags: tags, primary: primary, side: side}
}

func (a *Adapter) Deliver(ctx context.Context, rec types.EventRecord) error {
	env := BuildEnvelope(rec, a.tags)

	for _, t := range a.side {
		if t == nil {
			continue
		}
		if err := t.Send(ctx, env); err != nil {
			slog.Debug("side-channel send failed", "error", err)
		}
	}

	if a.primary == nil {
		return nil
	}
	return a.primary.Send(ctx, env)
}
