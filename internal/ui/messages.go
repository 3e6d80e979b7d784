package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/feeder/internal/details"
	"github.com/five82/feeder/internal/favorite"
	"github.com/five82/feeder/internal/logtail"
	"github.com/five82/feeder/internal/model"
	"github.com/five82/feeder/internal/reconcile"
	"github.com/five82/feeder/internal/reservation"
)

const logTailLines = 500

type (
	pointsMsg      []model.FeedingPoint
	favoriteMsg    string
	stateMsg       reservation.State
	remainingMsg   time.Duration
	noticeMsg      reservation.Notice
	failureMsg     favorite.Failure
	bookabilityMsg reconcile.Bookability
	logLinesMsg    []string
	tickMsg        time.Time
	closedMsg      struct{}
)

type detailsMsg struct {
	pointID string
	view    details.View
	err     error
}

type actionMsg struct {
	action string
	err    error
}

// streams holds the engine subscriptions for the lifetime of the program.
type streams struct {
	points      <-chan []model.FeedingPoint
	favorites   <-chan string
	states      <-chan reservation.State
	remaining   <-chan time.Duration
	notices     <-chan reservation.Notice
	failures    <-chan favorite.Failure
	bookability <-chan reconcile.Bookability
	cancels     []func()
}

func subscribe(e Engine) *streams {
	s := &streams{}
	var cancel func()
	s.points, cancel = e.PointsChanged()
	s.cancels = append(s.cancels, cancel)
	s.favorites, cancel = e.FavoriteChanged()
	s.cancels = append(s.cancels, cancel)
	s.states, cancel = e.ReservationStateChanged()
	s.cancels = append(s.cancels, cancel)
	s.remaining, cancel = e.Remaining()
	s.cancels = append(s.cancels, cancel)
	s.notices, cancel = e.Notices()
	s.cancels = append(s.cancels, cancel)
	s.failures, cancel = e.FavoriteFailures()
	s.cancels = append(s.cancels, cancel)
	s.bookability, cancel = e.Bookability()
	s.cancels = append(s.cancels, cancel)
	return s
}

func (s *streams) close() {
	for _, cancel := range s.cancels {
		cancel()
	}
}

// listen waits for the next value on ch. A closed channel yields closedMsg
// and ends that subscription.
func listen[T any](ch <-chan T, wrap func(T) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		v, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return wrap(v)
	}
}

func (s *streams) listenAll() tea.Cmd {
	return tea.Batch(
		listen(s.points, func(v []model.FeedingPoint) tea.Msg { return pointsMsg(v) }),
		listen(s.favorites, func(v string) tea.Msg { return favoriteMsg(v) }),
		listen(s.states, func(v reservation.State) tea.Msg { return stateMsg(v) }),
		listen(s.remaining, func(v time.Duration) tea.Msg { return remainingMsg(v) }),
		listen(s.notices, func(v reservation.Notice) tea.Msg { return noticeMsg(v) }),
		listen(s.failures, func(v favorite.Failure) tea.Msg { return failureMsg(v) }),
		listen(s.bookability, func(v reconcile.Bookability) tea.Msg { return bookabilityMsg(v) }),
	)
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func readLogsCmd(path string) tea.Cmd {
	return func() tea.Msg {
		lines, err := logtail.Read(path, logTailLines)
		if err != nil {
			return logLinesMsg([]string{err.Error()})
		}
		return logLinesMsg(logtail.FormatLines(lines))
	}
}

func detailsCmd(ctx context.Context, e Engine, pointID string) tea.Cmd {
	return func() tea.Msg {
		view, err := e.Details(ctx, pointID)
		return detailsMsg{pointID: pointID, view: view, err: err}
	}
}

func actionCmd(ctx context.Context, action string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return actionMsg{action: action, err: fn(ctx)}
	}
}
