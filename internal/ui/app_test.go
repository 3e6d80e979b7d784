package ui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/feeder/internal/details"
	"github.com/five82/feeder/internal/favorite"
	"github.com/five82/feeder/internal/health"
	"github.com/five82/feeder/internal/model"
	"github.com/five82/feeder/internal/prefs"
	"github.com/five82/feeder/internal/reconcile"
	"github.com/five82/feeder/internal/reservation"
)

type fakeEngine struct {
	mu       sync.Mutex
	points   map[string]model.FeedingPoint
	started  []string
	watched  map[string]int
	startErr error
	feed     health.Snapshot
}

func newFakeEngine(points ...model.FeedingPoint) *fakeEngine {
	e := &fakeEngine{points: make(map[string]model.FeedingPoint), watched: make(map[string]int)}
	for _, p := range points {
		e.points[p.ID] = p
	}
	return e
}

func stream[T any]() (<-chan T, func()) { return make(chan T), func() {} }

func (e *fakeEngine) PointsChanged() (<-chan []model.FeedingPoint, func()) {
	return stream[[]model.FeedingPoint]()
}
func (e *fakeEngine) FavoriteChanged() (<-chan string, func()) { return stream[string]() }
func (e *fakeEngine) ReservationStateChanged() (<-chan reservation.State, func()) {
	return stream[reservation.State]()
}
func (e *fakeEngine) Remaining() (<-chan time.Duration, func()) { return stream[time.Duration]() }
func (e *fakeEngine) Notices() (<-chan reservation.Notice, func()) {
	return stream[reservation.Notice]()
}
func (e *fakeEngine) FavoriteFailures() (<-chan favorite.Failure, func()) {
	return stream[favorite.Failure]()
}
func (e *fakeEngine) Bookability() (<-chan reconcile.Bookability, func()) {
	return stream[reconcile.Bookability]()
}

func (e *fakeEngine) Health() health.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.feed
}

func (e *fakeEngine) Point(id string) (model.FeedingPoint, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.points[id]
	return p, ok
}

func (e *fakeEngine) Watch(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.watched[id]++
}

func (e *fakeEngine) Unwatch(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.watched[id]--
}

func (e *fakeEngine) StartFeeding(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.started = append(e.started, id)
	return e.startErr
}

func (e *fakeEngine) FinishFeeding(context.Context, []string) error { return nil }
func (e *fakeEngine) CancelFeeding(context.Context) error           { return nil }

func (e *fakeEngine) ToggleFavorite(_ context.Context, id string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.points[id]
	p.IsFavorite = !p.IsFavorite
	e.points[id] = p
	return p.IsFavorite, nil
}

func (e *fakeEngine) Details(_ context.Context, id string) (details.View, error) {
	p, ok := e.Point(id)
	if !ok {
		return details.View{}, errors.New("unknown point")
	}
	return details.View{Point: p, Bookable: true}, nil
}

var testPoints = []model.FeedingPoint{
	{ID: "p1", Name: "Harbor", Category: model.CategoryCats, Status: model.StatusAvailable},
	{ID: "p2", Name: "Meadow", Category: model.CategoryDogs, Status: model.StatusAvailable},
	{ID: "p3", Name: "Station", Category: model.CategoryCats, Status: model.StatusReserved},
}

func newTestModel(t *testing.T, e *fakeEngine) Model {
	t.Helper()
	m := New(Options{
		Engine:    e,
		Prefs:     prefs.Prefs{Filter: prefs.FilterAll, Theme: "Slate"},
		PrefsPath: filepath.Join(t.TempDir(), "prefs.toml"),
	})
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	return update(t, m, pointsMsg(testPoints))
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_FilterCyclesAndPersists(t *testing.T) {
	m := newTestModel(t, newFakeEngine(testPoints...))

	m = update(t, m, keyPress("c"))
	if m.prefs.Filter != prefs.FilterCats {
		t.Fatalf("filter = %q, want cats", m.prefs.Filter)
	}
	visible := m.visiblePoints()
	if len(visible) != 2 || visible[0].ID != "p1" || visible[1].ID != "p3" {
		t.Fatalf("visible = %v, want p1 p3", visible)
	}

	saved, err := prefs.Load(m.prefsPath)
	if err != nil {
		t.Fatalf("load prefs: %v", err)
	}
	if saved.Filter != prefs.FilterCats || saved.Theme != "Slate" {
		t.Fatalf("saved prefs = %+v, want cats/Slate", saved)
	}

	m = update(t, m, keyPress("c"))
	m = update(t, m, keyPress("c"))
	if m.prefs.Filter != prefs.FilterAll || len(m.visiblePoints()) != 3 {
		t.Fatalf("filter after full cycle = %q with %d points", m.prefs.Filter, len(m.visiblePoints()))
	}
}

func TestModel_BookActsOnSelectedPoint(t *testing.T) {
	e := newFakeEngine(testPoints...)
	m := newTestModel(t, e)

	m = update(t, m, keyPress("j"))
	next, cmd := m.Update(keyPress("b"))
	m = next.(Model)
	if cmd == nil {
		t.Fatal("book returned no command")
	}
	m = update(t, m, cmd())

	if len(e.started) != 1 || e.started[0] != "p2" {
		t.Fatalf("started = %v, want [p2]", e.started)
	}
	if m.flash.text != "Feeding started" || m.flash.tone != details.ToneSuccess {
		t.Fatalf("flash = %+v, want success", m.flash)
	}
}

func TestModel_AlreadyBookedKeepsNotice(t *testing.T) {
	e := newFakeEngine(testPoints...)
	e.startErr = model.ErrAlreadyBooked
	m := newTestModel(t, e)

	m = update(t, m, noticeMsg(reservation.Notice{
		Kind:    reservation.NoticeAlreadyBooked,
		PointID: "p1",
		Message: "Another user has booked the feeding for this feeding point",
	}))
	_, cmd := m.Update(keyPress("b"))
	m = update(t, m, cmd())

	if !strings.HasPrefix(m.flash.text, "Another user") || m.flash.tone != details.ToneError {
		t.Fatalf("flash = %+v, want already booked notice", m.flash)
	}
}

func TestModel_NotPersistedNoticeOutlivesSuccess(t *testing.T) {
	m := newTestModel(t, newFakeEngine(testPoints...))

	m = update(t, m, noticeMsg(reservation.Notice{Kind: reservation.NoticeNotPersisted, PointID: "p1", Message: "not saved"}))
	m = update(t, m, actionMsg{action: "book"})
	if m.flash.text != "not saved" || m.flash.tone != details.ToneAttention {
		t.Fatalf("flash = %+v, want the not-saved notice kept", m.flash)
	}

	m = update(t, m, actionMsg{action: "finish", err: errors.New("boom")})
	if !strings.HasPrefix(m.flash.text, "finish failed") {
		t.Fatalf("flash = %+v, want failures to replace the notice", m.flash)
	}
}

func TestModel_DetailWatchesPoint(t *testing.T) {
	e := newFakeEngine(testPoints...)
	m := newTestModel(t, e)

	next, cmd := m.Update(keyPress("enter"))
	m = next.(Model)
	if m.screen != ScreenDetail || m.detailID != "p1" {
		t.Fatalf("screen = %v detail = %q, want detail of p1", m.screen, m.detailID)
	}
	if e.watched["p1"] != 1 {
		t.Fatalf("watch count = %d, want 1", e.watched["p1"])
	}
	m = update(t, m, cmd())
	if m.detail == nil || !m.detail.Bookable {
		t.Fatalf("detail = %+v, want bookable view", m.detail)
	}

	m = update(t, m, bookabilityMsg{PointID: "p1", Bookable: false})
	if m.detail.Bookable {
		t.Fatal("bookability change was not applied to the open detail")
	}
	m = update(t, m, bookabilityMsg{PointID: "p2", Bookable: true})
	if m.detail.Bookable {
		t.Fatal("bookability of another point changed the open detail")
	}

	m = update(t, m, keyPress("esc"))
	if m.screen != ScreenList || m.detailID != "" {
		t.Fatalf("after esc screen = %v detail = %q", m.screen, m.detailID)
	}
	if e.watched["p1"] != 0 {
		t.Fatalf("watch count after esc = %d, want 0", e.watched["p1"])
	}
}

func TestModel_StaleDetailResultIgnored(t *testing.T) {
	m := newTestModel(t, newFakeEngine(testPoints...))
	m = update(t, m, keyPress("enter"))

	m = update(t, m, detailsMsg{pointID: "p2", view: details.View{Point: testPoints[1]}})
	if m.detail != nil {
		t.Fatalf("detail = %+v, want nil for a result of another point", m.detail)
	}
}

func TestModel_FavoriteRefreshesRow(t *testing.T) {
	e := newFakeEngine(testPoints...)
	m := newTestModel(t, e)

	_, cmd := m.Update(keyPress("s"))
	m = update(t, m, cmd())
	m = update(t, m, favoriteMsg("p1"))

	if !m.points[0].IsFavorite {
		t.Fatal("favorite flag not refreshed from the engine")
	}
	if m.flash.text != "" {
		t.Fatalf("flash = %q, want none for a favorite toggle", m.flash.text)
	}

	m = update(t, m, failureMsg(favorite.Failure{PointID: "p1", Desired: true, Err: errors.New("boom")}))
	if m.flash.text != "Could not add Harbor to favorites" {
		t.Fatalf("flash = %q", m.flash.text)
	}
}

func TestModel_RemainingClearedWhenIdle(t *testing.T) {
	m := newTestModel(t, newFakeEngine(testPoints...))

	m = update(t, m, stateMsg(reservation.State{Kind: reservation.InProgress, PointID: "p1"}))
	m = update(t, m, remainingMsg(30*time.Minute))
	if got := m.reservationSummary(); !strings.Contains(got, "30:00") || !strings.Contains(got, "Harbor") {
		t.Fatalf("summary = %q, want Harbor 30:00", got)
	}

	m = update(t, m, stateMsg(reservation.State{Kind: reservation.Idle}))
	if m.remaining != 0 {
		t.Fatalf("remaining = %v, want 0 when idle", m.remaining)
	}
}

func TestModel_OfflineBadgeFollowsHealth(t *testing.T) {
	e := newFakeEngine(testPoints...)
	m := newTestModel(t, e)

	e.mu.Lock()
	e.feed = health.Snapshot{ConsecutiveFailures: 2}
	e.mu.Unlock()
	m = update(t, m, tickMsg(time.Now()))
	if !m.offline || !strings.Contains(m.renderHeader(), "offline") {
		t.Fatalf("header = %q, want offline badge", m.renderHeader())
	}

	e.mu.Lock()
	e.feed = health.Snapshot{Cursor: 7}
	e.mu.Unlock()
	m = update(t, m, tickMsg(time.Now()))
	if m.offline || strings.Contains(m.renderHeader(), "offline") {
		t.Fatalf("header = %q, want no offline badge", m.renderHeader())
	}
}

func TestModel_SelectionClampedOnShrink(t *testing.T) {
	m := newTestModel(t, newFakeEngine(testPoints...))
	m = update(t, m, keyPress("G"))
	if m.selected != 2 {
		t.Fatalf("selected = %d, want 2", m.selected)
	}
	m = update(t, m, pointsMsg(testPoints[:1]))
	if m.selected != 0 {
		t.Fatalf("selected = %d, want 0", m.selected)
	}
}

func TestActionFlash(t *testing.T) {
	tests := []struct {
		name string
		msg  actionMsg
		want flash
	}{
		{"finish", actionMsg{action: "finish"}, flash{text: "Feeding finished", tone: details.ToneSuccess}},
		{"cancel", actionMsg{action: "cancel"}, flash{text: "Feeding cancelled", tone: details.ToneAttention}},
		{"already booked", actionMsg{action: "book", err: model.ErrAlreadyBooked}, flash{}},
		{"rejected", actionMsg{action: "finish", err: &model.MutationRejectedError{Message: "nope"}}, flash{}},
		{"wrong state", actionMsg{action: "cancel", err: model.ErrNoReservation}, flash{text: "cancel failed: " + model.ErrNoReservation.Error(), tone: details.ToneError}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := actionFlash(tt.msg); got != tt.want {
				t.Fatalf("actionFlash = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNoticeFlash(t *testing.T) {
	if got := noticeFlash(reservation.Notice{Kind: reservation.NoticeTimerExpired, Message: "over"}); got.tone != details.ToneAttention {
		t.Fatalf("expired tone = %v, want attention", got.tone)
	}
	if got := noticeFlash(reservation.Notice{Kind: reservation.NoticeRejected, Message: "no"}); got.tone != details.ToneError || got.text != "no" {
		t.Fatalf("rejected flash = %+v", got)
	}
	if got := noticeFlash(reservation.Notice{Kind: reservation.NoticeNotPersisted, Message: "unsaved"}); got.tone != details.ToneAttention || !got.keep {
		t.Fatalf("not persisted flash = %+v, want sticky attention", got)
	}
}

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{time.Hour, "60:00"},
		{59*time.Minute + 59*time.Second, "59:59"},
		{time.Second, "00:01"},
		{0, "00:00"},
		{-time.Second, "00:00"},
	}
	for _, tt := range tests {
		if got := formatRemaining(tt.in); got != tt.want {
			t.Errorf("formatRemaining(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("Harbor", 10); got != "Harbor" {
		t.Fatalf("truncate short = %q", got)
	}
	if got := truncate("Harbor Street", 7); got != "Harbor…" {
		t.Fatalf("truncate long = %q", got)
	}
}
