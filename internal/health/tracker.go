package health

import (
	"fmt"
	"sync"
	"time"
)

// offlineThreshold is the number of consecutive failed polls after which
// the feed counts as offline.
const offlineThreshold = 2

// Snapshot describes the change feed connection at a point in time.
type Snapshot struct {
	LastPoll            time.Time
	LastSuccess         time.Time
	LastError           error
	ConsecutiveFailures int
	// Cursor is the last sequence acknowledged by the feed.
	Cursor uint64
}

// IsOffline returns true when the feed has failed several polls in a row.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= offlineThreshold
}

// Tracker records change feed poll outcomes. The zero value is ready to use
// and reads the wall clock.
type Tracker struct {
	mu       sync.RWMutex
	snapshot Snapshot
	now      func() time.Time
}

// NewTracker returns a Tracker that reads time from now. A nil now uses
// time.Now.
func NewTracker(now func() time.Time) *Tracker {
	return &Tracker{now: now}
}

// Record stores the outcome of one poll. When err is non-nil the previous
// cursor and success time are kept and the failure is counted.
func (t *Tracker) Record(cursor uint64, err error) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	if t.now != nil {
		now = t.now()
	}
	t.snapshot.LastPoll = now
	if err != nil {
		t.snapshot.LastError = err
		t.snapshot.ConsecutiveFailures++
		return
	}
	t.snapshot.LastError = nil
	t.snapshot.LastSuccess = now
	t.snapshot.ConsecutiveFailures = 0
	t.snapshot.Cursor = cursor
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() Snapshot {
	if t == nil {
		return Snapshot{}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	snap := t.snapshot
	if t.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", t.snapshot.LastError)
	}
	return snap
}
