// Package livetail fans dispatched envelopes out to connected WebSocket
// clients for live debugging of the capture pipeline.
package livetail

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/dgnsrekt/pagepulse/internal/sink"
)

const subscriberBufSize = 256

// Broker fans out envelope payloads to all subscribed tail clients.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[int64]chan []byte
	nextID      atomic.Int64
}

func NewBroker() *Broker {
	return &Broker{subscribers: make(map[int64]chan []byte)}
}

// Subscribe registers a new client. The channel is buffered; slow consumers
// have payloads dropped.
func (b *Broker) Subscribe() (int64, <-chan []byte) {
	id := b.nextID.Add(1)
	ch := make(chan []byte, subscriberBufSize)
	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broker) Unsubscribe(id int64) {
	b.mu.Lock()
	ch, ok := b.subscribers[id]
	if ok {
		delete(b.subscribers, id)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish sends a payload to all subscribers. Non-blocking.
func (b *Broker) Publish(payload []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- payload:
		default:
		}
	}
}

// ClientCount returns the number of active subscribers.
func (b *Broker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Send implements the sink side-channel transport: envelopes are published
// to every tail client.
func (b *Broker) Send(_ context.Context, env sink.Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	b.Publish(payload)
	return nil
}
