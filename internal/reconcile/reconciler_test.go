package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/five82/feeder/internal/ledger"
	"github.com/five82/feeder/internal/model"
)

var t0 = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeRemote struct {
	mu       sync.Mutex
	bookable map[string]bool
	checkErr error
	checks   int
	list     []model.FeedingPoint
	listErr  error
}

func (f *fakeRemote) CanBook(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks++
	if f.checkErr != nil {
		return false, f.checkErr
	}
	return f.bookable[id], nil
}

func (f *fakeRemote) ListPoints(context.Context) ([]model.FeedingPoint, error) {
	return f.list, f.listErr
}

func (f *fakeRemote) checkCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checks
}

func point(id string, version int, status model.Status) model.FeedingPoint {
	return model.FeedingPoint{
		ID:              id,
		Name:            "Point " + id,
		Status:          status,
		StatusUpdatedAt: t0,
		UpdatedAt:       t0.Add(time.Duration(version) * time.Second),
	}
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for value")
	}
	var zero T
	return zero
}

func expectNone[T any](t *testing.T, ch <-chan T) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf("unexpected value: %v", v)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestReconciler_FavoriteOnlyDoesNotRefreshList(t *testing.T) {
	l := ledger.New()
	r := New(l, &fakeRemote{}, Options{})
	ctx := context.Background()

	r.Apply(ctx, model.ChangeEvent{Point: point("p1", 1, model.StatusAvailable)})

	points, cancelPoints := r.PointsChanged()
	defer cancelPoints()
	favs, cancelFavs := r.FavoriteChanged()
	defer cancelFavs()

	// Latest list is replayed on subscribe.
	if got := recv(t, points); len(got) != 1 {
		t.Fatalf("replayed list len = %d, want 1", len(got))
	}

	fav := point("p1", 2, model.StatusAvailable)
	fav.IsFavorite = true
	change := r.Apply(ctx, model.ChangeEvent{Point: fav})
	if change.Kind != model.ChangeFavoriteOnly {
		t.Fatalf("kind = %v, want favorite_only", change.Kind)
	}
	if id := recv(t, favs); id != "p1" {
		t.Fatalf("favorite id = %q, want p1", id)
	}
	expectNone(t, points)

	reserved := point("p1", 3, model.StatusReserved)
	reserved.IsFavorite = true
	r.Apply(ctx, model.ChangeEvent{Point: reserved})
	got := recv(t, points)
	if len(got) != 1 || got[0].Status != model.StatusReserved {
		t.Fatalf("list after status change = %+v, want reserved", got)
	}
	expectNone(t, favs)
}

func TestReconciler_StaleAndDeletedEvents(t *testing.T) {
	l := ledger.New()
	r := New(l, &fakeRemote{}, Options{})
	ctx := context.Background()

	r.Apply(ctx, model.ChangeEvent{Point: point("p1", 5, model.StatusBeingFed)})
	if c := r.Apply(ctx, model.ChangeEvent{Point: point("p1", 3, model.StatusAvailable)}); !c.Stale {
		t.Fatalf("older event = %+v, want stale", c)
	}
	if got, _ := l.Get("p1"); got.Status != model.StatusBeingFed {
		t.Fatalf("status = %v, want being-fed kept", got.Status)
	}

	c := r.Apply(ctx, model.ChangeEvent{Point: model.FeedingPoint{ID: "p1"}, Deleted: true})
	if c.Kind != model.ChangeSubstantive || l.Len() != 0 {
		t.Fatalf("delete = %+v, len %d; want substantive and empty ledger", c, l.Len())
	}
	if c := r.Apply(ctx, model.ChangeEvent{Point: model.FeedingPoint{ID: "p1"}, Deleted: true}); c.Kind != model.ChangeNone {
		t.Fatalf("second delete kind = %v, want none", c.Kind)
	}
	if c := r.Apply(ctx, model.ChangeEvent{Point: point("p1", 5, model.StatusBeingFed)}); !c.Stale || l.Len() != 0 {
		t.Fatalf("redelivered update after delete = %+v, len %d; want stale and empty ledger", c, l.Len())
	}
}

func TestReconciler_DeletedPointStaysDeleted(t *testing.T) {
	l := ledger.New()
	r := New(l, &fakeRemote{}, Options{})
	ctx := context.Background()

	update := model.ChangeEvent{Sequence: 1, Point: point("p1", 5, model.StatusAvailable)}
	r.Apply(ctx, update)
	r.Apply(ctx, model.ChangeEvent{Sequence: 2, Point: model.FeedingPoint{ID: "p1", UpdatedAt: t0.Add(6 * time.Second)}, Deleted: true})

	points, cancel := r.PointsChanged()
	defer cancel()
	if got := recv(t, points); len(got) != 0 {
		t.Fatalf("list after delete = %v, want empty", got)
	}

	if c := r.Apply(ctx, update); !c.Stale || c.Created {
		t.Fatalf("redelivered update = %+v, want stale", c)
	}
	if l.Len() != 0 {
		t.Fatalf("Len = %d, want 0 after redelivery", l.Len())
	}
	select {
	case got := <-points:
		t.Fatalf("redelivery republished the list: %v", got)
	default:
	}

	// A delete older than the cached copy is ignored.
	r.Apply(ctx, model.ChangeEvent{Sequence: 3, Point: point("p1", 8, model.StatusAvailable)})
	recv(t, points)
	if c := r.Apply(ctx, model.ChangeEvent{Sequence: 2, Point: model.FeedingPoint{ID: "p1", UpdatedAt: t0.Add(6 * time.Second)}, Deleted: true}); c.Kind != model.ChangeNone {
		t.Fatalf("stale delete kind = %v, want none", c.Kind)
	}
	if _, ok := l.Get("p1"); !ok {
		t.Fatal("stale delete removed a newer point")
	}
}

func TestReconciler_CanBookFailsClosed(t *testing.T) {
	remote := &fakeRemote{bookable: map[string]bool{"p1": true}}
	r := New(ledger.New(), remote, Options{})

	if ok, err := r.CanBook(context.Background(), "p1"); !ok || err != nil {
		t.Fatalf("CanBook(p1) = %v, %v; want true", ok, err)
	}
	remote.checkErr = errors.New("connection refused")
	ok, err := r.CanBook(context.Background(), "p1")
	if ok {
		t.Fatalf("CanBook with failing remote = true, want false")
	}
	if !model.IsRetryable(err) {
		t.Fatalf("CanBook error = %v, want a retryable network error", err)
	}
	if remote.checkCount() != 2 {
		t.Fatalf("checks = %d, want 2 (no retry)", remote.checkCount())
	}
}

func TestReconciler_WatchedPointsRecheckBookability(t *testing.T) {
	remote := &fakeRemote{bookable: map[string]bool{"p1": false}}
	r := New(ledger.New(), remote, Options{})
	ctx := context.Background()
	r.Apply(ctx, model.ChangeEvent{Point: point("p1", 1, model.StatusBeingFed)})

	ch, cancel := r.BookabilityChanged()
	defer cancel()

	r.Watch("p1")
	remote.mu.Lock()
	remote.bookable["p1"] = true
	remote.mu.Unlock()
	r.Apply(ctx, model.ChangeEvent{Point: point("p1", 2, model.StatusAvailable)})

	got := recv(t, ch)
	if got.PointID != "p1" || !got.Bookable {
		t.Fatalf("bookability = %+v, want p1 bookable", got)
	}

	r.Unwatch("p1")
	before := remote.checkCount()
	r.Apply(ctx, model.ChangeEvent{Point: point("p1", 3, model.StatusReserved)})
	expectNone(t, ch)
	if remote.checkCount() != before {
		t.Fatalf("unwatched point triggered a CanBook call")
	}
}

func TestReconciler_LoadSeedsLedger(t *testing.T) {
	remote := &fakeRemote{list: []model.FeedingPoint{
		point("a", 1, model.StatusAvailable),
		point("b", 1, model.StatusReserved),
	}}
	l := ledger.New()
	r := New(l, remote, Options{})
	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if l.Len() != 2 {
		t.Fatalf("ledger len = %d, want 2", l.Len())
	}

	remote.listErr = errors.New("boom")
	if err := r.Load(context.Background()); err == nil {
		t.Fatalf("Load with failing remote returned nil error")
	}
}

func TestReconciler_RunAppliesInOrderUntilClosed(t *testing.T) {
	l := ledger.New()
	r := New(l, &fakeRemote{}, Options{})
	events := make(chan model.ChangeEvent, 3)
	events <- model.ChangeEvent{Point: point("p1", 1, model.StatusAvailable)}
	events <- model.ChangeEvent{Point: point("p1", 2, model.StatusReserved)}
	events <- model.ChangeEvent{Point: point("p1", 3, model.StatusBeingFed)}
	close(events)

	if err := r.Run(context.Background(), events); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	got, _ := l.Get("p1")
	if got.Status != model.StatusBeingFed {
		t.Fatalf("status = %v, want being-fed", got.Status)
	}
}
