package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dgnsrekt/pagepulse/internal/config"
	"github.com/dgnsrekt/pagepulse/internal/types"
)

type captureSink struct {
	mu   sync.Mutex
	recs []types.EventRecord
	err  error
}

func (s *captureSink) Deliver(_ context.Context, rec types.EventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
	return s.err
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.recs)
}

func record() types.EventRecord {
	return types.EventRecord{Kind: types.EventClick, TimestampMS: 1}
}

func TestSubmitAssignsUniqueIDs(t *testing.T) {
	sink := &captureSink{}
	gate := NewGate(config.Autocapture{SamplingRate: 1, MaxEventsPerSession: -1}, sink)

	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		gate.Submit(record())
	}
	if sink.count() != 200 {
		t.Fatalf("delivered %d, want 200", sink.count())
	}
	for _, rec := range sink.recs {
		if rec.ID == "" {
			t.Fatalf("record without id")
		}
		if seen[rec.ID] {
			t.Fatalf("duplicate id %q", rec.ID)
		}
		seen[rec.ID] = true
	}
}

func TestSessionCeiling(t *testing.T) {
	t.Run("zero_ceiling_blocks_everything", func(t *testing.T) {
		sink := &captureSink{}
		gate := NewGate(config.Autocapture{SamplingRate: 1, MaxEventsPerSession: 0}, sink)
		for i := 0; i < 10; i++ {
			gate.Submit(record())
		}
		if sink.count() != 0 {
			t.Fatalf("expected zero deliveries, got %d", sink.count())
		}
	})

	t.Run("ceiling_caps_session", func(t *testing.T) {
		sink := &captureSink{}
		gate := NewGate(config.Autocapture{SamplingRate: 1, MaxEventsPerSession: 3}, sink)
		for i := 0; i < 10; i++ {
			gate.Submit(record())
		}
		if sink.count() != 3 {
			t.Fatalf("expected 3 deliveries, got %d", sink.count())
		}
		if gate.Count() != 3 {
			t.Fatalf("gate count = %d, want 3", gate.Count())
		}
	})

	t.Run("negative_means_no_ceiling", func(t *testing.T) {
		sink := &captureSink{}
		gate := NewGate(config.Autocapture{SamplingRate: 1, MaxEventsPerSession: -1}, sink)
		for i := 0; i < 50; i++ {
			gate.Submit(record())
		}
		if sink.count() != 50 {
			t.Fatalf("expected 50 deliveries, got %d", sink.count())
		}
	})
}

func TestSampling(t *testing.T) {
	t.Run("rate_one_always_accepts", func(t *testing.T) {
		sink := &captureSink{}
		gate := NewGate(config.Autocapture{SamplingRate: 1, MaxEventsPerSession: -1}, sink)
		gate.SetDraw(func() float64 { return 0.999999 })
		gate.Submit(record())
		if sink.count() != 1 {
			t.Fatalf("expected acceptance at rate 1")
		}
	})

	t.Run("rate_zero_always_rejects", func(t *testing.T) {
		sink := &captureSink{}
		gate := NewGate(config.Autocapture{SamplingRate: 0, MaxEventsPerSession: -1}, sink)
		gate.SetDraw(func() float64 { return 0 })
		gate.Submit(record())
		if sink.count() != 0 {
			t.Fatalf("expected rejection at rate 0")
		}
	})

	t.Run("accepts_iff_draw_at_or_below_rate", func(t *testing.T) {
		sink := &captureSink{}
		gate := NewGate(config.Autocapture{SamplingRate: 0.5, MaxEventsPerSession: -1}, sink)

		gate.SetDraw(func() float64 { return 0.5 })
		gate.Submit(record())
		gate.SetDraw(func() float64 { return 0.51 })
		gate.Submit(record())

		if sink.count() != 1 {
			t.Fatalf("expected exactly the <=rate draw accepted, got %d", sink.count())
		}
	})

	t.Run("accepted_fraction_converges", func(t *testing.T) {
		sink := &captureSink{}
		gate := NewGate(config.Autocapture{SamplingRate: 0.3, MaxEventsPerSession: -1}, sink)
		const n = 20000
		for i := 0; i < n; i++ {
			gate.Submit(record())
		}
		frac := float64(sink.count()) / n
		if frac < 0.27 || frac > 0.33 {
			t.Fatalf("accepted fraction %.3f outside [0.27, 0.33]", frac)
		}
	})
}

func TestDisabledGateDropsSilently(t *testing.T) {
	sink := &captureSink{}
	gate := NewGate(config.Autocapture{SamplingRate: 1, MaxEventsPerSession: -1}, sink)
	gate.SetEnabled(false)
	gate.Submit(record())
	if sink.count() != 0 || gate.Count() != 0 {
		t.Fatalf("disabled gate must drop without counting")
	}
}

func TestTransportErrorSwallowed(t *testing.T) {
	sink := &captureSink{err: errors.New("collector down")}
	gate := NewGate(config.Autocapture{SamplingRate: 1, MaxEventsPerSession: -1}, sink)
	gate.Submit(record()) // must not panic or propagate
	if gate.Count() != 1 {
		t.Fatalf("handoff must still count, got %d", gate.Count())
	}
}

func TestTrackValidation(t *testing.T) {
	sink := &captureSink{}
	gate := NewGate(config.Autocapture{SamplingRate: 1, MaxEventsPerSession: -1}, sink)

	t.Run("empty_category_rejected", func(t *testing.T) {
		for _, category := range []string{"", "   "} {
			err := gate.Track(category, map[string]any{"a": 1})
			var coded *types.CodedError
			if !errors.As(err, &coded) || coded.Code != types.CodeValidation {
				t.Fatalf("category %q: expected VALIDATION error, got %v", category, err)
			}
		}
		if sink.count() != 0 {
			t.Fatalf("rejected tracks must not reach the sink")
		}
	})

	t.Run("nil_payload_rejected", func(t *testing.T) {
		err := gate.Track("purchase", nil)
		var coded *types.CodedError
		if !errors.As(err, &coded) || coded.Code != types.CodeValidation {
			t.Fatalf("expected VALIDATION error for nil payload, got %v", err)
		}
		if sink.count() != 0 {
			t.Fatalf("rejected tracks must not reach the sink")
		}
	})

	t.Run("valid_track_flows_through", func(t *testing.T) {
		if err := gate.Track("purchase", map[string]any{"amount": 9.99}); err != nil {
			t.Fatalf("Track() error = %v", err)
		}
		if sink.count() != 1 {
			t.Fatalf("expected 1 delivery, got %d", sink.count())
		}
		rec := sink.recs[0]
		if rec.Kind != types.EventCustom {
			t.Fatalf("kind = %q", rec.Kind)
		}
		if rec.Data["amount"] != 9.99 {
			t.Fatalf("amount = %v", rec.Data["amount"])
		}
		if rec.Data["event_category"] != "purchase" {
			t.Fatalf("event_category = %v", rec.Data["event_category"])
		}
	})
}
