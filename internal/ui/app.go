package ui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/feeder/internal/details"
	"github.com/five82/feeder/internal/favorite"
	"github.com/five82/feeder/internal/health"
	"github.com/five82/feeder/internal/model"
	"github.com/five82/feeder/internal/prefs"
	"github.com/five82/feeder/internal/reconcile"
	"github.com/five82/feeder/internal/reservation"
)

// Engine is the part of the feeding engine the UI drives.
type Engine interface {
	PointsChanged() (<-chan []model.FeedingPoint, func())
	FavoriteChanged() (<-chan string, func())
	ReservationStateChanged() (<-chan reservation.State, func())
	Remaining() (<-chan time.Duration, func())
	Notices() (<-chan reservation.Notice, func())
	FavoriteFailures() (<-chan favorite.Failure, func())
	Bookability() (<-chan reconcile.Bookability, func())

	Point(pointID string) (model.FeedingPoint, bool)
	Watch(pointID string)
	Unwatch(pointID string)

	StartFeeding(ctx context.Context, pointID string) error
	FinishFeeding(ctx context.Context, images []string) error
	CancelFeeding(ctx context.Context) error
	ToggleFavorite(ctx context.Context, pointID string) (bool, error)
	Details(ctx context.Context, pointID string) (details.View, error)

	Health() health.Snapshot
}

// Screen is the active view.
type Screen int

const (
	ScreenList Screen = iota
	ScreenDetail
	ScreenLogs
)

const defaultRefresh = time.Second

// Options configures the UI.
type Options struct {
	Context   context.Context
	Engine    Engine
	Prefs     prefs.Prefs
	PrefsPath string
	// LogPath is the engine log shown in the log screen.
	LogPath string
	// RefreshEvery is the log screen refresh interval.
	RefreshEvery time.Duration
}

type flash struct {
	text string
	tone details.Tone
	// keep stops a success message from replacing this flash.
	keep bool
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx       context.Context
	engine    Engine
	streams   *streams
	prefs     prefs.Prefs
	prefsPath string
	logPath   string
	refresh   time.Duration

	keys   keyMap
	help   help.Model
	theme  Theme
	width  int
	height int
	ready  bool

	screen   Screen
	showHelp bool

	points   []model.FeedingPoint
	selected int

	reservation reservation.State
	remaining   time.Duration
	offline     bool

	detailID  string
	detail    *details.View
	detailErr error

	flash flash

	logViewport viewport.Model
	logFollow   bool
}

// New creates a new Bubble Tea model and subscribes to the engine streams.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	refresh := opts.RefreshEvery
	if refresh <= 0 {
		refresh = defaultRefresh
	}
	p := opts.Prefs
	if !p.Filter.Valid() {
		p.Filter = prefs.FilterAll
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	return Model{
		ctx:       ctx,
		engine:    opts.Engine,
		streams:   subscribe(opts.Engine),
		prefs:     p,
		prefsPath: prefsPath,
		logPath:   opts.LogPath,
		refresh:   refresh,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		theme:     GetTheme(p.Theme),
		logFollow: true,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.streams.listenAll(),
		tickCmd(m.refresh),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		if !m.ready {
			m.logViewport = viewport.New(msg.Width, m.bodyHeight())
		} else {
			m.logViewport.Width = msg.Width
			m.logViewport.Height = m.bodyHeight()
		}
		m.ready = true
		return m, nil

	case pointsMsg:
		m.points = msg
		m.clampSelection()
		return m, listen(m.streams.points, func(v []model.FeedingPoint) tea.Msg { return pointsMsg(v) })

	case favoriteMsg:
		m.refreshPoint(string(msg))
		return m, listen(m.streams.favorites, func(v string) tea.Msg { return favoriteMsg(v) })

	case stateMsg:
		m.reservation = reservation.State(msg)
		if m.reservation.Kind == reservation.Idle {
			m.remaining = 0
		}
		return m, listen(m.streams.states, func(v reservation.State) tea.Msg { return stateMsg(v) })

	case remainingMsg:
		m.remaining = time.Duration(msg)
		return m, listen(m.streams.remaining, func(v time.Duration) tea.Msg { return remainingMsg(v) })

	case noticeMsg:
		m.flash = noticeFlash(reservation.Notice(msg))
		return m, listen(m.streams.notices, func(v reservation.Notice) tea.Msg { return noticeMsg(v) })

	case failureMsg:
		m.flash = flash{text: m.favoriteFailureText(favorite.Failure(msg)), tone: details.ToneError}
		return m, listen(m.streams.failures, func(v favorite.Failure) tea.Msg { return failureMsg(v) })

	case bookabilityMsg:
		if m.detail != nil && m.detailID == msg.PointID {
			m.detail.Bookable = msg.Bookable
		}
		return m, listen(m.streams.bookability, func(v reconcile.Bookability) tea.Msg { return bookabilityMsg(v) })

	case detailsMsg:
		if msg.pointID != m.detailID {
			return m, nil
		}
		if msg.err != nil {
			m.detail = nil
			m.detailErr = msg.err
			return m, nil
		}
		view := msg.view
		m.detail = &view
		m.detailErr = nil
		return m, nil

	case actionMsg:
		if f := actionFlash(msg); f.text != "" && !(m.flash.keep && msg.err == nil) {
			m.flash = f
		}
		return m, nil

	case logLinesMsg:
		m.logViewport.SetContent(joinLines(msg))
		if m.logFollow {
			m.logViewport.GotoBottom()
		}
		return m, nil

	case tickMsg:
		m.offline = m.engine.Health().IsOffline()
		if m.screen == ScreenLogs && m.logPath != "" {
			return m, tea.Batch(readLogsCmd(m.logPath), tickCmd(m.refresh))
		}
		return m, tickCmd(m.refresh)

	case closedMsg:
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.closeDetail()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.prefs.Theme = m.theme.Name
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.ViewLogs):
		m.screen = ScreenLogs
		if m.logPath == "" {
			return m, nil
		}
		return m, readLogsCmd(m.logPath)

	case key.Matches(msg, m.keys.Escape):
		m.closeDetail()
		m.screen = ScreenList
		return m, nil

	case key.Matches(msg, m.keys.Book):
		pointID := m.currentPointID()
		if pointID == "" {
			return m, nil
		}
		return m, actionCmd(m.ctx, "book", func(ctx context.Context) error {
			return m.engine.StartFeeding(ctx, pointID)
		})

	case key.Matches(msg, m.keys.Finish):
		return m, actionCmd(m.ctx, "finish", func(ctx context.Context) error {
			return m.engine.FinishFeeding(ctx, nil)
		})

	case key.Matches(msg, m.keys.Cancel):
		return m, actionCmd(m.ctx, "cancel", func(ctx context.Context) error {
			return m.engine.CancelFeeding(ctx)
		})

	case key.Matches(msg, m.keys.Favorite):
		pointID := m.currentPointID()
		if pointID == "" {
			return m, nil
		}
		return m, actionCmd(m.ctx, "favorite", func(ctx context.Context) error {
			_, err := m.engine.ToggleFavorite(ctx, pointID)
			return err
		})
	}

	switch m.screen {
	case ScreenList:
		return m.handleListKey(msg)
	case ScreenLogs:
		return m.handleLogsKey(msg)
	}
	return m, nil
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	visible := m.visiblePoints()
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, m.keys.Down):
		if m.selected < len(visible)-1 {
			m.selected++
		}
	case key.Matches(msg, m.keys.Top):
		m.selected = 0
	case key.Matches(msg, m.keys.Bottom):
		m.selected = max(len(visible)-1, 0)
	case key.Matches(msg, m.keys.CycleFilter):
		m.prefs.Filter = m.prefs.Filter.Next()
		m.selected = 0
		m.savePrefs()
	case key.Matches(msg, m.keys.Open):
		if m.selected >= len(visible) {
			return m, nil
		}
		cmd := m.openDetail(visible[m.selected].ID)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ToggleFollow) {
		m.logFollow = !m.logFollow
		if m.logFollow {
			m.logViewport.GotoBottom()
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.logViewport, cmd = m.logViewport.Update(msg)
	return m, cmd
}

func (m *Model) openDetail(pointID string) tea.Cmd {
	m.closeDetail()
	m.detailID = pointID
	m.screen = ScreenDetail
	m.engine.Watch(pointID)
	return detailsCmd(m.ctx, m.engine, pointID)
}

func (m *Model) closeDetail() {
	if m.detailID == "" {
		return
	}
	m.engine.Unwatch(m.detailID)
	m.detailID = ""
	m.detail = nil
	m.detailErr = nil
}

// currentPointID is the point the feeding keys act on: the open detail, or
// the selected row.
func (m Model) currentPointID() string {
	if m.screen == ScreenDetail {
		return m.detailID
	}
	visible := m.visiblePoints()
	if m.screen != ScreenList || m.selected >= len(visible) {
		return ""
	}
	return visible[m.selected].ID
}

func (m Model) visiblePoints() []model.FeedingPoint {
	if m.prefs.Filter == prefs.FilterAll {
		return m.points
	}
	out := make([]model.FeedingPoint, 0, len(m.points))
	for _, p := range m.points {
		if string(p.Category) == string(m.prefs.Filter) {
			out = append(out, p)
		}
	}
	return out
}

func (m *Model) clampSelection() {
	n := len(m.visiblePoints())
	if m.selected >= n {
		m.selected = max(n-1, 0)
	}
}

// refreshPoint reloads one point after a favorite-only change. The list
// is not re-sorted.
func (m *Model) refreshPoint(pointID string) {
	p, ok := m.engine.Point(pointID)
	if !ok {
		return
	}
	for i := range m.points {
		if m.points[i].ID == pointID {
			// The slice is shared with other subscribers.
			points := slices.Clone(m.points)
			points[i] = p
			m.points = points
			break
		}
	}
	if m.detail != nil && m.detailID == pointID {
		m.detail.Point.IsFavorite = p.IsFavorite
	}
}

func (m Model) pointName(pointID string) string {
	if p, ok := m.engine.Point(pointID); ok && p.Name != "" {
		return p.Name
	}
	return pointID
}

func (m Model) favoriteFailureText(f favorite.Failure) string {
	verb := "remove"
	if f.Desired {
		verb = "add"
	}
	return fmt.Sprintf("Could not %s %s to favorites", verb, m.pointName(f.PointID))
}

func (m Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	_ = prefs.Save(m.prefsPath, m.prefs)
}

func noticeFlash(n reservation.Notice) flash {
	switch n.Kind {
	case reservation.NoticeTimerExpired:
		return flash{text: n.Message, tone: details.ToneAttention}
	case reservation.NoticeNotPersisted:
		return flash{text: n.Message, tone: details.ToneAttention, keep: true}
	default:
		return flash{text: n.Message, tone: details.ToneError}
	}
}

// actionFlash describes the outcome of an intent. Already-booked and
// rejected mutations arrive as notices, so they are not repeated here.
func actionFlash(msg actionMsg) flash {
	if msg.err == nil {
		switch msg.action {
		case "book":
			return flash{text: "Feeding started", tone: details.ToneSuccess}
		case "finish":
			return flash{text: "Feeding finished", tone: details.ToneSuccess}
		case "cancel":
			return flash{text: "Feeding cancelled", tone: details.ToneAttention}
		}
		return flash{}
	}
	var rejected *model.MutationRejectedError
	if errors.Is(msg.err, model.ErrAlreadyBooked) || errors.As(msg.err, &rejected) {
		return flash{}
	}
	return flash{text: fmt.Sprintf("%s failed: %v", msg.action, msg.err), tone: details.ToneError}
}

// Run starts the Bubble Tea program and blocks until the user quits or the
// context is cancelled.
func Run(opts Options) error {
	if opts.Engine == nil {
		return fmt.Errorf("ui requires an engine")
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	m := New(opts)
	defer m.streams.close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(opts.Context))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && opts.Context.Err() != nil {
		return nil
	}
	return err
}
