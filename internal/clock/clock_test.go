package clock

import (
	"testing"
	"time"
)

func TestManual_FiresInDeadlineOrder(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewManual(start)

	var order []string
	m.AfterFunc(3*time.Second, func() { order = append(order, "c") })
	m.AfterFunc(time.Second, func() { order = append(order, "a") })
	m.AfterFunc(2*time.Second, func() { order = append(order, "b") })

	m.Advance(2 * time.Second)
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("fired = %v, want [a b]", order)
	}
	if got := m.Now(); !got.Equal(start.Add(2 * time.Second)) {
		t.Fatalf("Now = %v, want %v", got, start.Add(2*time.Second))
	}

	m.Advance(time.Hour)
	if len(order) != 3 || order[2] != "c" {
		t.Fatalf("fired = %v, want [a b c]", order)
	}
}

func TestManual_StopPreventsFire(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	fired := false
	timer := m.AfterFunc(time.Second, func() { fired = true })

	if !timer.Stop() {
		t.Fatalf("Stop = false, want true for pending timer")
	}
	if timer.Stop() {
		t.Fatalf("second Stop = true, want false")
	}
	m.Advance(time.Minute)
	if fired {
		t.Fatalf("stopped timer fired")
	}
	if m.Pending() != 0 {
		t.Fatalf("Pending = %d, want 0", m.Pending())
	}
}

func TestManual_CallbackCanReschedule(t *testing.T) {
	m := NewManual(time.Unix(0, 0))
	ticks := 0
	var tick func()
	tick = func() {
		ticks++
		m.AfterFunc(time.Second, tick)
	}
	m.AfterFunc(time.Second, tick)

	m.Advance(5 * time.Second)
	if ticks != 5 {
		t.Fatalf("ticks = %d, want 5", ticks)
	}
	if m.Pending() != 1 {
		t.Fatalf("Pending = %d, want 1 rescheduled tick", m.Pending())
	}
}

func TestManual_NowInsideCallbackIsDeadline(t *testing.T) {
	start := time.Unix(100, 0)
	m := NewManual(start)
	var seen time.Time
	m.AfterFunc(10*time.Second, func() { seen = m.Now() })

	m.Advance(time.Minute)
	if !seen.Equal(start.Add(10 * time.Second)) {
		t.Fatalf("Now in callback = %v, want %v", seen, start.Add(10*time.Second))
	}
}
