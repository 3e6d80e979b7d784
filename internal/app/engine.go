package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/five82/feeder/internal/clock"
	"github.com/five82/feeder/internal/details"
	"github.com/five82/feeder/internal/favorite"
	"github.com/five82/feeder/internal/feedingapi"
	"github.com/five82/feeder/internal/health"
	"github.com/five82/feeder/internal/ledger"
	"github.com/five82/feeder/internal/logging"
	"github.com/five82/feeder/internal/metrics"
	"github.com/five82/feeder/internal/model"
	"github.com/five82/feeder/internal/reconcile"
	"github.com/five82/feeder/internal/reservation"
)

const eventBuffer = 64

// EngineOptions configure an Engine. Remote and Store are required.
type EngineOptions struct {
	Remote  feedingapi.Remote
	Store   reservation.SnapshotStore
	Clock   clock.Clock
	Logger  *slog.Logger
	Metrics metrics.Recorder
	// PollWait is the long-poll hold passed to the change feed.
	PollWait time.Duration
	// RetryBackoff is the first delay after a failed change poll.
	RetryBackoff time.Duration
}

// Engine owns the point cache, the reservation coordinator and the favorite
// toggle, and exposes their streams and intents to the presentation layer.
type Engine struct {
	logger     *slog.Logger
	ledger     *ledger.Ledger
	reconciler *reconcile.Reconciler
	stream     *reconcile.Stream
	coord      *reservation.Coordinator
	favorites  *favorite.Toggle
	details    *details.Service
	health     *health.Tracker
}

// NewEngine wires the engine components around one remote.
func NewEngine(opts EngineOptions) (*Engine, error) {
	if opts.Remote == nil {
		return nil, fmt.Errorf("new engine: remote is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("new engine: snapshot store is required")
	}
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}

	l := ledger.New()
	tracker := health.NewTracker(opts.Clock.Now)
	rec := reconcile.New(l, opts.Remote, reconcile.Options{
		Logger:  opts.Logger,
		Metrics: opts.Metrics,
	})
	e := &Engine{
		logger:     opts.Logger.With(slog.String("component", "engine")),
		ledger:     l,
		reconciler: rec,
		stream: reconcile.NewStream(opts.Remote, reconcile.StreamOptions{
			Logger:  opts.Logger,
			Metrics: opts.Metrics,
			Wait:    opts.PollWait,
			Backoff: opts.RetryBackoff,
			Health:  tracker,
		}),
		coord: reservation.NewCoordinator(opts.Remote, rec, rec, opts.Store, reservation.Options{
			Logger:  opts.Logger,
			Metrics: opts.Metrics,
			Clock:   opts.Clock,
		}),
		favorites: favorite.New(opts.Remote, l, favorite.Options{
			Logger:  opts.Logger,
			Metrics: opts.Metrics,
			Notify:  rec.NotifyFavorite,
		}),
		details: details.NewService(opts.Remote, rec, opts.Clock, opts.Logger),
		health:  tracker,
	}
	return e, nil
}

// Run starts the coordinator, recovers any unfinished reservation, loads
// the point list and then follows the change feed until ctx is cancelled.
// A failed initial load is logged; the change feed fills the cache once
// the server is reachable.
func (e *Engine) Run(ctx context.Context) error {
	defer e.close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.coord.Run(gctx) })

	if err := e.coord.Recover(gctx); err != nil {
		e.logger.Warn("recover reservation failed", slog.String("error", err.Error()))
	}
	if err := e.reconciler.Load(gctx); err != nil {
		e.logger.Warn("initial point load failed", slog.String("error", err.Error()))
	}

	events := make(chan model.ChangeEvent, eventBuffer)
	g.Go(func() error { return e.stream.Run(gctx, events) })
	g.Go(func() error { return e.reconciler.Run(gctx, events) })

	return g.Wait()
}

func (e *Engine) close() {
	e.favorites.Wait()
	e.favorites.Close()
	e.coord.Close()
	e.reconciler.Close()
}

// PointsChanged streams the full point list after every substantive
// change. A new subscriber receives the latest list immediately.
func (e *Engine) PointsChanged() (<-chan []model.FeedingPoint, func()) {
	return e.reconciler.PointsChanged()
}

// FavoriteChanged streams the ID of a point whose favorite flag changed.
func (e *Engine) FavoriteChanged() (<-chan string, func()) {
	return e.reconciler.FavoriteChanged()
}

// ReservationStateChanged streams reservation state transitions.
func (e *Engine) ReservationStateChanged() (<-chan reservation.State, func()) {
	return e.coord.StateChanged()
}

// Remaining streams the reservation countdown once per second.
func (e *Engine) Remaining() (<-chan time.Duration, func()) {
	return e.coord.Remaining()
}

// Notices streams user-facing reservation notices.
func (e *Engine) Notices() (<-chan reservation.Notice, func()) {
	return e.coord.Notices()
}

// FavoriteFailures streams rolled back favorite toggles.
func (e *Engine) FavoriteFailures() (<-chan favorite.Failure, func()) {
	return e.favorites.Failures()
}

// Bookability streams CanBook results for watched points.
func (e *Engine) Bookability() (<-chan reconcile.Bookability, func()) {
	return e.reconciler.BookabilityChanged()
}

// Watch marks pointID as on screen so substantive changes re-check its
// bookability. Every Watch must be paired with an Unwatch.
func (e *Engine) Watch(pointID string) { e.reconciler.Watch(pointID) }

// Unwatch reverses Watch.
func (e *Engine) Unwatch(pointID string) { e.reconciler.Unwatch(pointID) }

// StartFeeding books pointID for this device.
func (e *Engine) StartFeeding(ctx context.Context, pointID string) error {
	return e.coord.Start(ctx, pointID)
}

// FinishFeeding completes the active feeding with the uploaded media keys.
func (e *Engine) FinishFeeding(ctx context.Context, images []string) error {
	return e.coord.Finish(ctx, images)
}

// CancelFeeding releases the active reservation.
func (e *Engine) CancelFeeding(ctx context.Context) error {
	return e.coord.Cancel(ctx)
}

// ToggleFavorite flips the favorite flag of pointID and returns the new
// value. The server call completes in the background.
func (e *Engine) ToggleFavorite(ctx context.Context, pointID string) (bool, error) {
	return e.favorites.Toggle(ctx, pointID)
}

// RecoverUnfinished restores a persisted reservation. Run calls it once on
// startup.
func (e *Engine) RecoverUnfinished(ctx context.Context) error {
	return e.coord.Recover(ctx)
}

// Details composes the detail view of pointID.
func (e *Engine) Details(ctx context.Context, pointID string) (details.View, error) {
	return e.details.Details(ctx, pointID)
}

// Points returns the cached points ordered by name.
func (e *Engine) Points() []model.FeedingPoint { return e.ledger.All() }

// Point returns one cached point.
func (e *Engine) Point(pointID string) (model.FeedingPoint, bool) { return e.ledger.Get(pointID) }

// Reservation returns the current reservation state.
func (e *Engine) Reservation() reservation.State { return e.coord.State() }

// RemainingTime returns the current countdown value, zero when no timer is
// running.
func (e *Engine) RemainingTime() time.Duration {
	if e.coord.State().Kind == reservation.Idle {
		return 0
	}
	return e.coord.RemainingTime()
}

// Health reports the change feed connection.
func (e *Engine) Health() health.Snapshot { return e.health.Snapshot() }
