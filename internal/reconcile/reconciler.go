package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/five82/feeder/internal/event"
	"github.com/five82/feeder/internal/ledger"
	"github.com/five82/feeder/internal/logging"
	"github.com/five82/feeder/internal/metrics"
	"github.com/five82/feeder/internal/model"
)

const defaultCheckTimeout = 5 * time.Second

// Remote is the part of the API the reconciler needs.
type Remote interface {
	CanBook(ctx context.Context, pointID string) (bool, error)
	ListPoints(ctx context.Context) ([]model.FeedingPoint, error)
}

// Bookability reports the result of a CanBook check for a watched point.
type Bookability struct {
	PointID  string
	Bookable bool
}

// Options configure a Reconciler.
type Options struct {
	Logger       *slog.Logger
	Metrics      metrics.Recorder
	CheckTimeout time.Duration
}

// Reconciler applies remote change events to the ledger and fans the
// resulting signals out to presentation subscribers.
type Reconciler struct {
	ledger       *ledger.Ledger
	remote       Remote
	logger       *slog.Logger
	metrics      metrics.Recorder
	checkTimeout time.Duration

	points      *event.Broadcaster[[]model.FeedingPoint]
	favorites   *event.Broadcaster[string]
	bookability *event.Broadcaster[Bookability]

	mu      sync.Mutex
	watched map[string]int
}

// New builds a Reconciler writing into l.
func New(l *ledger.Ledger, remote Remote, opts Options) *Reconciler {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	if opts.CheckTimeout <= 0 {
		opts.CheckTimeout = defaultCheckTimeout
	}
	return &Reconciler{
		ledger:       l,
		remote:       remote,
		logger:       opts.Logger.With(slog.String("component", "reconciler")),
		metrics:      opts.Metrics,
		checkTimeout: opts.CheckTimeout,
		points:       event.NewLatest[[]model.FeedingPoint](4),
		favorites:    event.New[string](64),
		bookability:  event.New[Bookability](16),
		watched:      make(map[string]int),
	}
}

// Load fetches the full point list and seeds the ledger. It publishes one
// PointsChanged value when anything was stored.
func (r *Reconciler) Load(ctx context.Context) error {
	started := time.Now()
	points, err := r.remote.ListPoints(ctx)
	r.metrics.RecordRemoteLatency("list_points", time.Since(started))
	if err != nil {
		return fmt.Errorf("load points: %w", err)
	}
	stored := r.ledger.ReplaceAll(points)
	r.metrics.SetPointsCached(r.ledger.Len())
	r.logger.Info("initial point list loaded",
		slog.Int("received", len(points)),
		slog.Int("stored", stored),
	)
	r.points.Publish(r.ledger.All())
	return nil
}

// Run applies events in delivery order until ctx is cancelled or events is
// closed.
func (r *Reconciler) Run(ctx context.Context, events <-chan model.ChangeEvent) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			r.Apply(ctx, ev)
		}
	}
}

// Apply reconciles a single event with the ledger and returns the
// classification of the resulting change.
func (r *Reconciler) Apply(ctx context.Context, ev model.ChangeEvent) ledger.Change {
	id := ev.Point.ID
	if ev.Deleted {
		if !r.ledger.Remove(id, ev.Point.UpdatedAt) {
			r.logger.Debug("delete ignored",
				slog.String("point_id", id),
				slog.Uint64("seq", ev.Sequence),
			)
			return ledger.Change{Delta: model.Delta{Kind: model.ChangeNone}}
		}
		r.logger.Info("point removed", slog.String("point_id", id))
		r.metrics.RecordChange(model.ChangeSubstantive.String())
		r.metrics.SetPointsCached(r.ledger.Len())
		r.points.Publish(r.ledger.All())
		return ledger.Change{Delta: model.Delta{Kind: model.ChangeSubstantive}}
	}

	change := r.ledger.Upsert(ev.Point)
	if change.Stale {
		r.metrics.RecordStaleEvent()
		r.logger.Debug("stale change dropped",
			slog.String("point_id", id),
			slog.Uint64("seq", ev.Sequence),
		)
		return change
	}
	r.metrics.RecordChange(change.Kind.String())

	switch change.Kind {
	case model.ChangeFavoriteOnly:
		r.favorites.Publish(id)
	case model.ChangeSubstantive:
		if change.Previous != nil && !change.Previous.Status.CanTransition(ev.Point.Status) {
			r.logger.Warn("unexpected status transition",
				slog.String("point_id", id),
				slog.String("from", string(change.Previous.Status)),
				slog.String("to", string(ev.Point.Status)),
			)
		}
		if change.Created {
			r.metrics.SetPointsCached(r.ledger.Len())
		}
		r.points.Publish(r.ledger.All())
		if r.isWatched(id) {
			bookable, _ := r.CanBook(ctx, id)
			r.bookability.Publish(Bookability{PointID: id, Bookable: bookable})
		}
	}
	return change
}

// CanBook asks the remote whether id can be booked. It fails closed: any
// failure reports false together with an error matching model.ErrNetwork,
// so callers can tell an unreachable server from a taken point. The check
// is not retried.
func (r *Reconciler) CanBook(ctx context.Context, pointID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.checkTimeout)
	defer cancel()

	started := time.Now()
	ok, err := r.remote.CanBook(ctx, pointID)
	r.metrics.RecordRemoteLatency("can_book", time.Since(started))
	if err != nil {
		r.logger.Warn("availability check failed",
			slog.String("point_id", pointID),
			slog.String("error", err.Error()),
		)
		if !errors.Is(err, model.ErrNetwork) {
			err = &model.NetworkError{Op: "check availability", Err: err}
		}
		return false, err
	}
	return ok, nil
}

// Watch marks a point as on screen. Substantive changes to watched points
// re-run CanBook and publish a Bookability value. Calls nest.
func (r *Reconciler) Watch(pointID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watched[pointID]++
}

// Unwatch undoes one Watch call.
func (r *Reconciler) Unwatch(pointID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.watched[pointID] <= 1 {
		delete(r.watched, pointID)
		return
	}
	r.watched[pointID]--
}

func (r *Reconciler) isWatched(pointID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.watched[pointID] > 0
}

// Get returns the cached copy of a point.
func (r *Reconciler) Get(pointID string) (model.FeedingPoint, bool) {
	return r.ledger.Get(pointID)
}

// NotifyFavorite publishes a favorite-only signal for a local flip.
func (r *Reconciler) NotifyFavorite(pointID string) {
	r.favorites.Publish(pointID)
}

// PointsChanged streams the full point list after each substantive change.
// New subscribers receive the latest list immediately.
func (r *Reconciler) PointsChanged() (<-chan []model.FeedingPoint, func()) {
	return r.points.Subscribe()
}

// FavoriteChanged streams IDs of points whose only change was the favorite
// flag.
func (r *Reconciler) FavoriteChanged() (<-chan string, func()) {
	return r.favorites.Subscribe()
}

// BookabilityChanged streams CanBook results for watched points.
func (r *Reconciler) BookabilityChanged() (<-chan Bookability, func()) {
	return r.bookability.Subscribe()
}

// Close closes every stream.
func (r *Reconciler) Close() {
	r.points.Close()
	r.favorites.Close()
	r.bookability.Close()
}
