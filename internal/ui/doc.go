// Package ui provides the Bubble Tea terminal interface for feeder.
//
// # Overview
//
// The UI is a thin presentation layer over the engine. It never talks to
// the feeding API directly: every screen is rendered from values received
// on the engine streams, and every key press that changes something is
// turned into an engine intent.
//
// # Screens
//
//   - List: every cached feeding point with its favorite star, status badge
//     and status line, narrowed by the category filter (all, cats, dogs)
//   - Detail: one point with its description, bookability and the latest
//     feeders; opening it watches the point so bookability is re-checked on
//     every substantive change
//   - Log: the tail of the engine log, reformatted by logtail.Format and
//     refreshed once per second while visible
//
// The header always shows the reservation state. While a feeding is in
// progress it carries the point name and the mm:ss countdown from the
// Remaining stream. An "offline" badge appears next to the title while the
// engine reports the change feed as offline; it is re-read on every tick.
//
// # Streams
//
// New subscribes to all engine streams once. Each stream is read by its own
// tea.Cmd which is re-issued after every delivered value, so a busy stream
// never delays the others. Stream values map onto messages:
//
//	PointsChanged           → pointsMsg       replace the list
//	FavoriteChanged         → favoriteMsg     refresh one row in place
//	ReservationStateChanged → stateMsg        header state
//	Remaining               → remainingMsg    header countdown
//	Notices                 → noticeMsg       flash line
//	FavoriteFailures        → failureMsg      flash line
//	Bookability             → bookabilityMsg  open detail
//
// Intents run as commands and report back with an actionMsg. Already-booked
// and rejected outcomes are left to the notice that the coordinator raises
// for them.
//
// # Preferences
//
// The category filter and the theme are written back to the prefs file
// whenever they change, so the next start opens with the same view.
//
// # Key Bindings
//
//	j/k, g/G   move in the list or scroll the log
//	enter/esc  open or close point details
//	b f x      book, finish or cancel a feeding
//	s          toggle favorite
//	c          cycle category filter
//	l          engine log (space toggles follow)
//	T          cycle theme
//	h/?        help
//	q          quit
package ui
