// Package favorite implements the optimistic favorite toggle.
//
// A toggle flips the cached flag at once and sends the mutation in the
// background. Mutations for one point run strictly in the order they were
// issued. When the last outstanding mutation for a point fails, the flag is
// rolled back to the last value the server confirmed and a Failure is
// published. A failure that is followed by a newer toggle is superseded and
// rolls nothing back.
package favorite

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/five82/feeder/internal/event"
	"github.com/five82/feeder/internal/logging"
	"github.com/five82/feeder/internal/metrics"
	"github.com/five82/feeder/internal/model"
)

const defaultTimeout = 10 * time.Second

// Remote sets the favorite flag on the server.
type Remote interface {
	SetFavorite(ctx context.Context, pointID string, favorite bool) error
}

// Cache is the point cache holding the favorite flag.
type Cache interface {
	Get(pointID string) (model.FeedingPoint, bool)
	SetFavorite(pointID string, favorite bool) (prev bool, ok bool)
}

// Failure reports a rolled back toggle.
type Failure struct {
	PointID string
	// Desired is the value the user asked for; the cache was restored to
	// !Desired.
	Desired bool
	Err     error
}

// Options configure a Toggle.
type Options struct {
	Logger  *slog.Logger
	Metrics metrics.Recorder
	// Notify is called with the point ID after every local flip or rollback.
	Notify  func(pointID string)
	Timeout time.Duration
}

type entry struct {
	pending   int
	confirmed bool
	tail      chan struct{}
}

// Toggle serializes favorite mutations per point.
type Toggle struct {
	remote  Remote
	cache   Cache
	logger  *slog.Logger
	metrics metrics.Recorder
	notify  func(string)
	timeout time.Duration

	failures *event.Broadcaster[Failure]

	mu      sync.Mutex
	entries map[string]*entry
	wg      sync.WaitGroup
}

// New builds a Toggle.
func New(remote Remote, cache Cache, opts Options) *Toggle {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	if opts.Notify == nil {
		opts.Notify = func(string) {}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Toggle{
		remote:   remote,
		cache:    cache,
		logger:   opts.Logger.With(slog.String("component", "favorite")),
		metrics:  opts.Metrics,
		notify:   opts.Notify,
		timeout:  opts.Timeout,
		failures: event.New[Failure](16),
		entries:  make(map[string]*entry),
	}
}

// Toggle flips the favorite flag of pointID and returns the new value. The
// remote mutation completes in the background.
func (t *Toggle) Toggle(ctx context.Context, pointID string) (bool, error) {
	t.mu.Lock()
	point, ok := t.cache.Get(pointID)
	if !ok {
		t.mu.Unlock()
		return false, fmt.Errorf("toggle favorite: unknown point %q", pointID)
	}
	next := !point.IsFavorite
	t.cache.SetFavorite(pointID, next)

	e, ok := t.entries[pointID]
	if !ok {
		e = &entry{confirmed: point.IsFavorite}
		t.entries[pointID] = e
	}
	e.pending++
	prev := e.tail
	done := make(chan struct{})
	e.tail = done
	t.wg.Add(1)
	t.mu.Unlock()

	t.notify(pointID)

	go t.send(context.WithoutCancel(ctx), pointID, next, e, prev, done)
	return next, nil
}

func (t *Toggle) send(ctx context.Context, pointID string, desired bool, e *entry, prev, done chan struct{}) {
	defer t.wg.Done()
	defer close(done)
	if prev != nil {
		<-prev
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	started := time.Now()
	err := t.remote.SetFavorite(ctx, pointID, desired)
	cancel()
	t.metrics.RecordRemoteLatency("set_favorite", time.Since(started))

	t.mu.Lock()
	e.pending--
	rollback := false
	var restored bool
	if err == nil {
		e.confirmed = desired
	} else if e.pending == 0 {
		restored = e.confirmed
		t.cache.SetFavorite(pointID, restored)
		// Nothing to report when the server already holds the last wish.
		rollback = restored != desired
	}
	if e.pending == 0 {
		delete(t.entries, pointID)
	}
	t.mu.Unlock()

	log := t.logger.With(slog.String("point_id", pointID), slog.Bool("desired", desired))
	switch {
	case err == nil:
		log.Debug("favorite confirmed")
	case rollback:
		log.Warn("favorite rolled back", slog.Bool("restored", restored), slog.String("error", err.Error()))
		t.metrics.RecordFavoriteRollback()
		t.notify(pointID)
		t.failures.Publish(Failure{PointID: pointID, Desired: desired, Err: err})
	default:
		log.Info("favorite failure superseded by newer toggle", slog.String("error", err.Error()))
	}
}

// Failures streams rolled back toggles.
func (t *Toggle) Failures() (<-chan Failure, func()) { return t.failures.Subscribe() }

// Wait blocks until every in-flight mutation has finished.
func (t *Toggle) Wait() { t.wg.Wait() }

// Close waits for in-flight mutations and closes the failure stream.
func (t *Toggle) Close() {
	t.Wait()
	t.failures.Close()
}
