package livetail

import (
	"context"
	"testing"
	"time"

	"github.com/dgnsrekt/pagepulse/internal/sink"
)

func TestBrokerFanout(t *testing.T) {
	b := NewBroker()

	id1, ch1 := b.Subscribe()
	_, ch2 := b.Subscribe()
	if b.ClientCount() != 2 {
		t.Fatalf("client count = %d, want 2", b.ClientCount())
	}

	if err := b.Send(context.Background(), sink.Envelope{Schema: "s", Data: map[string]any{"event_id": "x"}}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	for _, ch := range []<-chan []byte{ch1, ch2} {
		select {
		case payload := <-ch:
			if len(payload) == 0 {
				t.Fatalf("empty payload")
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber did not receive payload")
		}
	}

	b.Unsubscribe(id1)
	if b.ClientCount() != 1 {
		t.Fatalf("client count after unsubscribe = %d, want 1", b.ClientCount())
	}
	if _, open := <-ch1; open {
		t.Fatalf("unsubscribed channel should be closed")
	}
}

func TestBrokerDropsForSlowConsumers(t *testing.T) {
	b := NewBroker()
	_, ch := b.Subscribe()

	for i := 0; i < subscriberBufSize+50; i++ {
		b.Publish([]byte("x"))
	}

	// The buffer holds at most subscriberBufSize payloads; the rest were
	// dropped rather than blocking the publisher.
	if got := len(ch); got != subscriberBufSize {
		t.Fatalf("buffered = %d, want %d", got, subscriberBufSize)
	}
}
