package reservation

import (
	"sync"
	"testing"
	"time"

	"github.com/five82/feeder/internal/clock"
)

func TestRemaining(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		want    time.Duration
	}{
		{"just started", 0, time.Hour},
		{"half way", 30 * time.Minute, 30 * time.Minute},
		{"one second left", 3599 * time.Second, time.Second},
		{"exactly over", time.Hour, 0},
		{"long over", 3 * time.Hour, 0},
		{"clock behind start", -time.Minute, time.Hour + time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Remaining(t0, time.Hour, t0.Add(tt.elapsed)); got != tt.want {
				t.Errorf("Remaining(elapsed %v) = %v, want %v", tt.elapsed, got, tt.want)
			}
		})
	}
}

type tickRecorder struct {
	mu    sync.Mutex
	ticks []time.Duration
}

func (r *tickRecorder) record(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks = append(r.ticks, d)
}

func (r *tickRecorder) last() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.ticks) == 0 {
		return -1
	}
	return r.ticks[len(r.ticks)-1]
}

func TestClock_TicksEverySecondAndExpiresOnce(t *testing.T) {
	src := clock.NewManual(t0)
	rec := &tickRecorder{}
	c := NewClock(src, rec.record)

	expired := 0
	c.Arm(t0, 5*time.Second, func() { expired++ })
	if rec.last() != 5*time.Second {
		t.Fatalf("initial tick = %v, want 5s", rec.last())
	}

	src.Advance(3 * time.Second)
	if rec.last() != 2*time.Second {
		t.Fatalf("tick after 3s = %v, want 2s", rec.last())
	}
	src.Advance(10 * time.Second)
	if expired != 1 {
		t.Fatalf("expired %d times, want 1", expired)
	}
	if rec.last() != 0 {
		t.Fatalf("final tick = %v, want 0", rec.last())
	}
	if c.Armed() || src.Pending() != 0 {
		t.Fatalf("clock still armed after expiry (pending %d)", src.Pending())
	}
}

func TestClock_DisarmAndRearmIgnoreOldGeneration(t *testing.T) {
	src := clock.NewManual(t0)
	c := NewClock(src, nil)

	first := 0
	c.Arm(t0, time.Minute, func() { first++ })
	c.Disarm()
	src.Advance(2 * time.Minute)
	if first != 0 {
		t.Fatalf("disarmed clock fired")
	}

	second, third := 0, 0
	c.Arm(src.Now(), time.Minute, func() { second++ })
	c.Arm(src.Now(), 2*time.Minute, func() { third++ })
	src.Advance(time.Minute + time.Second)
	if second != 0 {
		t.Fatalf("replaced arm fired")
	}
	src.Advance(time.Minute)
	if third != 1 {
		t.Fatalf("current arm fired %d times, want 1", third)
	}
}

func TestClock_ArmElapsedWindowFiresImmediately(t *testing.T) {
	src := clock.NewManual(t0)
	c := NewClock(src, nil)
	fired := false
	c.Arm(t0.Add(-2*time.Hour), time.Hour, func() { fired = true })
	if !fired || c.Armed() {
		t.Fatalf("fired=%v armed=%v, want immediate expiry", fired, c.Armed())
	}
}
