// Package details composes everything the point detail view shows: the
// cached point, whether it can be booked now, a presentation status and
// the most recent feeders.
package details

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/five82/feeder/internal/clock"
	"github.com/five82/feeder/internal/logging"
	"github.com/five82/feeder/internal/model"
)

// HistoryLimit is how many feeders the detail view lists.
const HistoryLimit = 5

// Tone is the presentation weight of a status line.
type Tone int

const (
	ToneError Tone = iota
	ToneAttention
	ToneSuccess
)

func (t Tone) String() string {
	switch t {
	case ToneError:
		return "error"
	case ToneAttention:
		return "attention"
	case ToneSuccess:
		return "success"
	default:
		return fmt.Sprintf("tone(%d)", int(t))
	}
}

// Status is the line shown under the point name.
type Status struct {
	Tone Tone
	Text string
}

const (
	textStarved    = "There is no food"
	textInProgress = "Feeding in progress"
	textFed        = "Newly fed"
)

// StatusOf maps a point onto its presentation status. An available point
// whose last feeding happened within window counts as newly fed.
func StatusOf(p model.FeedingPoint, now time.Time, window time.Duration) Status {
	switch p.Status {
	case model.StatusReserved, model.StatusBeingFed:
		return Status{Tone: ToneAttention, Text: textInProgress}
	}
	if p.LastFeeder != nil && !p.LastFeeder.FedAt.IsZero() && now.Sub(p.LastFeeder.FedAt) < window {
		return Status{Tone: ToneSuccess, Text: textFed}
	}
	return Status{Tone: ToneError, Text: textStarved}
}

// LatestFeeders returns up to limit entries, newest first. The input is not
// modified.
func LatestFeeders(history []model.HistoryEntry, limit int) []model.HistoryEntry {
	sorted := make([]model.HistoryEntry, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt)
	})
	if limit >= 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// Remote fetches feeding history.
type Remote interface {
	FetchHistory(ctx context.Context, pointID string) ([]model.HistoryEntry, error)
}

// Points is the read side of the point cache plus the bookability check.
type Points interface {
	Get(pointID string) (model.FeedingPoint, bool)
	CanBook(ctx context.Context, pointID string) (bool, error)
}

// View is the composed detail of one point.
type View struct {
	Point    model.FeedingPoint
	Status   Status
	Bookable bool
	Feeders  []model.HistoryEntry
	// HistoryErr is set when the history could not be fetched; the rest of
	// the view is still valid.
	HistoryErr error
}

// Service builds detail views.
type Service struct {
	remote Remote
	points Points
	clock  clock.Clock
	window time.Duration
	logger *slog.Logger
}

// NewService returns a Service. A nil clock uses the system clock and a
// nil logger discards.
func NewService(remote Remote, points Points, clk clock.Clock, logger *slog.Logger) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{
		remote: remote,
		points: points,
		clock:  clk,
		window: model.ReservationWindow,
		logger: logger.With(slog.String("component", "details")),
	}
}

// Details composes the view for pointID.
func (s *Service) Details(ctx context.Context, pointID string) (View, error) {
	point, ok := s.points.Get(pointID)
	if !ok {
		return View{}, fmt.Errorf("point %q not cached", pointID)
	}
	// A failed check leaves the point shown as not bookable.
	bookable, _ := s.points.CanBook(ctx, pointID)
	view := View{
		Point:    point,
		Status:   StatusOf(point, s.clock.Now(), s.window),
		Bookable: bookable,
	}

	history, err := s.remote.FetchHistory(ctx, pointID)
	if err != nil {
		s.logger.Warn("fetch history failed",
			slog.String("point_id", pointID),
			slog.String("error", err.Error()),
		)
		view.HistoryErr = fmt.Errorf("fetch history: %w", err)
		return view, nil
	}
	view.Feeders = LatestFeeders(history, HistoryLimit)
	return view, nil
}
