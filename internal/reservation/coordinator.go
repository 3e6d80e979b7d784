package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/five82/feeder/internal/clock"
	"github.com/five82/feeder/internal/event"
	"github.com/five82/feeder/internal/feedingapi"
	"github.com/five82/feeder/internal/ledger"
	"github.com/five82/feeder/internal/logging"
	"github.com/five82/feeder/internal/metrics"
	"github.com/five82/feeder/internal/model"
)

const defaultMutationTimeout = 15 * time.Second

// Remote is the booking boundary used by the coordinator.
type Remote interface {
	StartBooking(ctx context.Context, pointID string) (feedingapi.BookingID, error)
	FinishBooking(ctx context.Context, pointID string, images []string) error
	CancelBooking(ctx context.Context, pointID string) error
	FetchPoint(ctx context.Context, pointID string) (model.FeedingPoint, error)
}

// Availability answers the authoritative "can this point be booked" check.
// Implementations fail closed: on error they report false and return an
// error matching model.ErrNetwork.
type Availability interface {
	CanBook(ctx context.Context, pointID string) (bool, error)
}

// Points is the cache the coordinator reads locations from and feeds
// recovered points into.
type Points interface {
	Get(pointID string) (model.FeedingPoint, bool)
	Apply(ctx context.Context, ev model.ChangeEvent) ledger.Change
}

// Options configure a Coordinator.
type Options struct {
	Logger  *slog.Logger
	Metrics metrics.Recorder
	Clock   clock.Clock
	// Window defaults to model.ReservationWindow.
	Window time.Duration
	// MutationTimeout bounds each remote mutation.
	MutationTimeout time.Duration
}

type requestKind int

const (
	reqStart requestKind = iota
	reqFinish
	reqCancel
	reqRecover
	reqExpire
)

type request struct {
	kind    requestKind
	ctx     context.Context
	pointID string
	images  []string
	gen     uint64
	reply   chan error
}

// Coordinator drives the reservation state machine. All transitions run on
// the goroutine executing Run; the exported intent methods submit a request
// and wait for its outcome.
type Coordinator struct {
	remote  Remote
	avail   Availability
	points  Points
	store   SnapshotStore
	src     clock.Clock
	logger  *slog.Logger
	metrics metrics.Recorder
	window  time.Duration
	timeout time.Duration
	timer   *Clock

	requests chan request
	done     chan struct{}

	states    *event.Broadcaster[State]
	remaining *event.Broadcaster[time.Duration]
	notices   *event.Broadcaster[Notice]

	// Owned by the Run goroutine.
	state  State
	armGen uint64
}

// NewCoordinator wires a Coordinator. Call Run to start it.
func NewCoordinator(remote Remote, avail Availability, points Points, store SnapshotStore, opts Options) *Coordinator {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.Window <= 0 {
		opts.Window = model.ReservationWindow
	}
	if opts.MutationTimeout <= 0 {
		opts.MutationTimeout = defaultMutationTimeout
	}

	c := &Coordinator{
		remote:    remote,
		avail:     avail,
		points:    points,
		store:     store,
		src:       opts.Clock,
		logger:    opts.Logger.With(slog.String("component", "coordinator")),
		metrics:   opts.Metrics,
		window:    opts.Window,
		timeout:   opts.MutationTimeout,
		requests:  make(chan request),
		done:      make(chan struct{}),
		states:    event.NewLatest[State](8),
		remaining: event.NewLatest[time.Duration](1),
		notices:   event.New[Notice](16),
	}
	c.timer = NewClock(opts.Clock, c.remaining.Publish)
	c.states.Publish(State{Kind: Idle})
	return c
}

// Run processes intents and clock fires until ctx is cancelled. The
// reservation clock is disarmed on return; a stored snapshot is kept so the
// reservation can be recovered on the next start.
func (c *Coordinator) Run(ctx context.Context) error {
	defer close(c.done)
	defer c.timer.Disarm()

	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-c.requests:
			err := c.handle(req)
			if req.reply != nil {
				req.reply <- err
			}
		}
	}
}

// Start books pointID for this device.
func (c *Coordinator) Start(ctx context.Context, pointID string) error {
	return c.submit(ctx, request{kind: reqStart, pointID: pointID})
}

// Finish completes the active feeding with the uploaded image keys.
func (c *Coordinator) Finish(ctx context.Context, images []string) error {
	return c.submit(ctx, request{kind: reqFinish, images: images})
}

// Cancel abandons the active feeding.
func (c *Coordinator) Cancel(ctx context.Context) error {
	return c.submit(ctx, request{kind: reqCancel})
}

// Recover resumes a reservation stored by a previous run. An expired or
// unreadable snapshot is discarded silently.
func (c *Coordinator) Recover(ctx context.Context) error {
	return c.submit(ctx, request{kind: reqRecover})
}

// State returns the current state.
func (c *Coordinator) State() State {
	st, _ := c.states.Latest()
	return st
}

// StateChanged streams state transitions. The current state is replayed to
// new subscribers.
func (c *Coordinator) StateChanged() (<-chan State, func()) { return c.states.Subscribe() }

// Remaining streams the time left on the active reservation once per
// second, and zero when it ends.
func (c *Coordinator) Remaining() (<-chan time.Duration, func()) { return c.remaining.Subscribe() }

// RemainingTime returns the last published countdown value.
func (c *Coordinator) RemainingTime() time.Duration {
	d, _ := c.remaining.Latest()
	return d
}

// Notices streams user-facing messages in the order they were raised.
func (c *Coordinator) Notices() (<-chan Notice, func()) { return c.notices.Subscribe() }

// Close closes every stream. Call it after Run has returned.
func (c *Coordinator) Close() {
	c.states.Close()
	c.remaining.Close()
	c.notices.Close()
}

func (c *Coordinator) submit(ctx context.Context, req request) error {
	req.ctx = ctx
	req.reply = make(chan error, 1)
	select {
	case c.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return errors.New("coordinator stopped")
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		// The actor finishes the request regardless; only the wait ends.
		return ctx.Err()
	}
}

func (c *Coordinator) handle(req request) error {
	switch req.kind {
	case reqStart:
		return c.start(req.ctx, req.pointID)
	case reqFinish:
		return c.finish(req.ctx, req.images)
	case reqCancel:
		return c.cancel(req.ctx)
	case reqRecover:
		return c.recover(req.ctx)
	case reqExpire:
		c.expire(req.gen)
		return nil
	default:
		return fmt.Errorf("unknown request kind %d", req.kind)
	}
}

func (c *Coordinator) start(ctx context.Context, pointID string) error {
	if c.state.Kind != Idle {
		return model.ErrReservationActive
	}
	log := c.logger.With(slog.String("point_id", pointID))

	cctx, cancelCheck := c.mutationContext(ctx)
	bookable, err := c.avail.CanBook(cctx, pointID)
	cancelCheck()
	if err != nil {
		c.metrics.RecordBookingAttempt("network")
		log.Warn("availability check failed", slog.String("error", err.Error()))
		return fmt.Errorf("start booking: %w", err)
	}
	if !bookable {
		c.metrics.RecordBookingAttempt("already_booked")
		c.notify(NoticeAlreadyBooked, pointID, "")
		log.Info("point not bookable")
		return model.ErrAlreadyBooked
	}

	c.setState(State{Kind: Reserved, PointID: pointID})

	mctx, cancel := c.mutationContext(ctx)
	started := time.Now()
	bookingID, err := c.remote.StartBooking(mctx, pointID)
	cancel()
	c.metrics.RecordRemoteLatency("start_booking", time.Since(started))
	if err != nil {
		c.setState(State{Kind: Idle})
		c.metrics.RecordBookingAttempt(c.reportFailure(pointID, err))
		log.Warn("start booking failed", slog.String("error", err.Error()))
		return fmt.Errorf("start booking: %w", err)
	}

	startedAt := c.src.Now()
	snap := model.ReservationSnapshot{
		PointID:          pointID,
		FeedStartingDate: startedAt,
		BookingID:        string(bookingID),
	}
	if p, ok := c.points.Get(pointID); ok {
		snap.Location = p.Location
	}
	if err := c.store.Save(snap); err != nil {
		// The booking is live remotely; only crash recovery is lost.
		log.Error("persist reservation snapshot failed", slog.String("error", err.Error()))
		c.notify(NoticeNotPersisted, pointID, "")
	}

	c.metrics.RecordBookingAttempt("booked")
	c.setState(State{Kind: InProgress, PointID: pointID, StartedAt: startedAt, BookingID: snap.BookingID})
	c.arm(startedAt)
	log.Info("feeding started", slog.String("booking_id", snap.BookingID))
	return nil
}

func (c *Coordinator) finish(ctx context.Context, images []string) error {
	if c.state.Kind != InProgress {
		return model.ErrNoReservation
	}
	pointID := c.state.PointID

	mctx, cancel := c.mutationContext(ctx)
	started := time.Now()
	err := c.remote.FinishBooking(mctx, pointID, images)
	cancel()
	c.metrics.RecordRemoteLatency("finish_booking", time.Since(started))
	if err != nil {
		c.reportFailure(pointID, err)
		c.logger.Warn("finish booking failed",
			slog.String("point_id", pointID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("finish booking: %w", err)
	}

	c.end("finished")
	c.logger.Info("feeding finished", slog.String("point_id", pointID), slog.Int("images", len(images)))
	return nil
}

func (c *Coordinator) cancel(ctx context.Context) error {
	if c.state.Kind != InProgress {
		return model.ErrNoReservation
	}
	pointID := c.state.PointID

	mctx, cancel := c.mutationContext(ctx)
	started := time.Now()
	err := c.remote.CancelBooking(mctx, pointID)
	cancel()
	c.metrics.RecordRemoteLatency("cancel_booking", time.Since(started))
	if err != nil {
		c.reportFailure(pointID, err)
		c.logger.Warn("cancel booking failed",
			slog.String("point_id", pointID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("cancel booking: %w", err)
	}

	c.end("cancelled")
	c.logger.Info("feeding cancelled", slog.String("point_id", pointID))
	return nil
}

func (c *Coordinator) expire(gen uint64) {
	if gen != c.armGen || c.state.Kind != InProgress {
		return
	}
	pointID := c.state.PointID

	mctx, cancel := c.mutationContext(context.Background())
	err := c.remote.CancelBooking(mctx, pointID)
	cancel()
	if err != nil {
		// The server resets expired bookings on its own.
		c.logger.Warn("auto-cancel failed",
			slog.String("point_id", pointID),
			slog.String("error", err.Error()),
		)
	}

	c.end("expired")
	c.notify(NoticeTimerExpired, pointID, "")
	c.logger.Info("feeding timer expired", slog.String("point_id", pointID))
}

func (c *Coordinator) recover(ctx context.Context) error {
	if c.state.Kind != Idle {
		return nil
	}
	snap, err := c.store.Load()
	if err != nil {
		c.logger.Warn("discarding unreadable snapshot", slog.String("error", err.Error()))
		c.clearSnapshot()
		return nil
	}
	if snap == nil {
		return nil
	}
	log := c.logger.With(slog.String("point_id", snap.PointID))

	if err := c.checkSnapshot(*snap); err != nil {
		// No remote cancel: the server has already reset the point and a
		// cancel now could revert someone else's booking.
		log.Info("discarding expired reservation", slog.Time("started_at", snap.FeedStartingDate))
		c.clearSnapshot()
		return nil
	}

	c.setState(State{
		Kind:      InProgress,
		PointID:   snap.PointID,
		StartedAt: snap.FeedStartingDate,
		BookingID: snap.BookingID,
	})
	c.arm(snap.FeedStartingDate)
	log.Info("reservation recovered",
		slog.Duration("remaining", Remaining(snap.FeedStartingDate, c.window, c.src.Now())),
	)

	mctx, cancel := c.mutationContext(ctx)
	point, err := c.remote.FetchPoint(mctx, snap.PointID)
	cancel()
	if err != nil {
		log.Warn("refresh recovered point failed", slog.String("error", err.Error()))
		return nil
	}
	c.points.Apply(ctx, model.ChangeEvent{Point: point})
	return nil
}

func (c *Coordinator) checkSnapshot(snap model.ReservationSnapshot) error {
	if snap.Remaining(c.window, c.src.Now()) <= 0 {
		return model.ErrStaleSnapshot
	}
	return nil
}

func (c *Coordinator) arm(startedAt time.Time) {
	c.armGen++
	gen := c.armGen
	c.timer.Arm(startedAt, c.window, func() { c.fire(gen) })
}

// fire hands the expiry to the actor. It may be called from the actor
// itself when the window has already elapsed, so it never blocks.
func (c *Coordinator) fire(gen uint64) {
	go func() {
		select {
		case c.requests <- request{kind: reqExpire, gen: gen}:
		case <-c.done:
		}
	}()
}

func (c *Coordinator) end(reason string) {
	c.armGen++
	c.timer.Disarm()
	c.clearSnapshot()
	c.setState(State{Kind: Idle})
	c.remaining.Publish(0)
	c.metrics.RecordReservationEnded(reason)
}

func (c *Coordinator) clearSnapshot() {
	if err := c.store.Clear(); err != nil {
		c.logger.Error("clear reservation snapshot failed", slog.String("error", err.Error()))
	}
}

func (c *Coordinator) setState(st State) {
	c.state = st
	c.states.Publish(st)
}

func (c *Coordinator) notify(kind NoticeKind, pointID, message string) {
	c.notices.Publish(newNotice(kind, pointID, message, c.src.Now()))
}

// reportFailure raises the notice for a failed mutation and returns its
// outcome label.
func (c *Coordinator) reportFailure(pointID string, err error) string {
	var rejected *model.MutationRejectedError
	switch {
	case errors.Is(err, model.ErrAlreadyBooked):
		c.notify(NoticeAlreadyBooked, pointID, "")
		return "already_booked"
	case errors.As(err, &rejected):
		c.notify(NoticeRejected, pointID, rejected.Message)
		return "rejected"
	case errors.Is(err, model.ErrNetwork):
		return "network"
	default:
		return "error"
	}
}

// mutationContext detaches from caller cancellation so the actor always
// learns the outcome of a mutation it started.
func (c *Coordinator) mutationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
}
