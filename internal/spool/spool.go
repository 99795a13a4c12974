// Package spool keeps a local JSONL copy of every dispatched envelope for
// debugging and replay tooling. It is a side channel, not a delivery
// guarantee: a full buffer drops records with a warning.
package spool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgnsrekt/pagepulse/internal/sink"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Writer appends envelopes to a size-rotated events.jsonl asynchronously.
type Writer struct {
	writeCh chan sink.Envelope
	done    chan struct{}
	wg      sync.WaitGroup

	mu     sync.Mutex
	logger *lumberjack.Logger
	closed bool
}

func NewWriter(dir string, bufferSize, maxSizeMB int) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("spool: mkdir %s: %w", dir, err)
	}
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	if maxSizeMB <= 0 {
		maxSizeMB = 100
	}

	w := &Writer{
		writeCh: make(chan sink.Envelope, bufferSize),
		done:    make(chan struct{}),
		logger: &lumberjack.Logger{
			Filename:   filepath.Join(dir, "events.jsonl"),
			MaxSize:    maxSizeMB,
			MaxBackups: 5,
			Compress:   true,
		},
	}

	w.wg.Add(1)
	go w.writeLoop()
	return w, nil
}

// Send queues an envelope for async writing. Non-blocking: a full buffer
// drops the envelope.
func (w *Writer) Send(_ context.Context, env sink.Envelope) error {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return fmt.Errorf("spool is closed")
	}

	select {
	case w.writeCh <- env:
		return nil
	default:
		slog.Warn("spool buffer full, dropping envelope")
		return fmt.Errorf("spool buffer full")
	}
}

// Close shuts down the writer and flushes pending envelopes.
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.done)

	timeout := time.After(5 * time.Second)
	for {
		select {
		case env := <-w.writeCh:
			w.writeEnvelope(env)
		case <-timeout:
			slog.Warn("spool close timeout, some envelopes may be lost")
			goto done
		default:
			goto done
		}
	}

done:
	w.wg.Wait()
	return w.logger.Close()
}

func (w *Writer) writeLoop() {
	defer w.wg.Done()

	for {
		select {
		case env := <-w.writeCh:
			w.writeEnvelope(env)
		case <-w.done:
			return
		}
	}
}

func (w *Writer) writeEnvelope(env sink.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		slog.Error("failed to marshal spool envelope", "error", err)
		return
	}
	if _, err := w.logger.Write(append(data, '\n')); err != nil {
		slog.Error("spool write failed", "error", err)
	}
}
