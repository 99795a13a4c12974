package observe

import (
	"sync"
	"time"
)

// timerSet owns every pending timer an observer schedules, so Stop() can
// cancel all deferred work deterministically instead of relying on stale
// callbacks noticing they are orphaned.
type timerSet struct {
	mu     sync.Mutex
	nextID int64
	timers map[int64]*time.Timer
	closed bool
}

func newTimerSet() *timerSet {
	return &timerSet{timers: make(map[int64]*time.Timer)}
}

// After schedules fn once after d. A closed set drops the request.
func (ts *timerSet) After(d time.Duration, fn func()) {
	ts.mu.Lock()
	if ts.closed {
		ts.mu.Unlock()
		return
	}
	ts.nextID++
	id := ts.nextID
	timer := time.AfterFunc(d, func() {
		ts.mu.Lock()
		_, live := ts.timers[id]
		delete(ts.timers, id)
		ts.mu.Unlock()
		if live {
			fn()
		}
	})
	ts.timers[id] = timer
	ts.mu.Unlock()
}

// StopAll cancels every pending timer and rejects future schedules.
func (ts *timerSet) StopAll() {
	ts.mu.Lock()
	ts.closed = true
	for id, timer := range ts.timers {
		timer.Stop()
		delete(ts.timers, id)
	}
	ts.mu.Unlock()
}

// reset reopens the set after a StopAll so the observer can be restarted.
func (ts *timerSet) reset() {
	ts.mu.Lock()
	ts.closed = false
	ts.mu.Unlock()
}
