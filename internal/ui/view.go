package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/feeder/internal/details"
	"github.com/five82/feeder/internal/model"
	"github.com/five82/feeder/internal/prefs"
	"github.com/five82/feeder/internal/reservation"
)

// header, flash line and help line
const chromeHeight = 3

func (m Model) bodyHeight() int {
	return max(m.height-chromeHeight, 1)
}

func (m Model) renderMain() string {
	var body string
	switch m.screen {
	case ScreenDetail:
		body = m.renderDetail()
	case ScreenLogs:
		body = m.logViewport.View()
	default:
		body = m.renderList()
	}
	body = lipgloss.NewStyle().Height(m.bodyHeight()).MaxHeight(m.bodyHeight()).Render(body)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderFlash(),
		m.theme.Styles().Footer.Width(m.width).Render(m.help.View(m.keys)),
	)
}

func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	left := styles.AccentText.Bold(true).Render("Feeder") + "  " +
		styles.MutedText.Render("category: "+filterLabel(m.prefs.Filter))
	if m.offline {
		left += "  " + styles.DangerText.Bold(true).Render("offline")
	}
	right := m.reservationSummary()

	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	return styles.Header.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) reservationSummary() string {
	styles := m.theme.Styles()
	switch m.reservation.Kind {
	case reservation.Reserved:
		return styles.WarningText.Render("Booking " + m.pointName(m.reservation.PointID) + "...")
	case reservation.InProgress:
		return styles.SuccessText.Render(fmt.Sprintf("Feeding %s  %s left",
			m.pointName(m.reservation.PointID), formatRemaining(m.remaining)))
	default:
		return styles.FaintText.Render("No active feeding")
	}
}

func (m Model) renderFlash() string {
	if m.flash.text == "" {
		return ""
	}
	return m.theme.Styles().ToneStyle(m.flash.tone).Render(m.flash.text)
}

func (m Model) renderList() string {
	styles := m.theme.Styles()
	visible := m.visiblePoints()
	if len(visible) == 0 {
		return styles.FaintText.Render("No feeding points")
	}

	now := time.Now()
	var b strings.Builder
	for i, p := range visible {
		star := " "
		if p.IsFavorite {
			star = "★"
		}
		status := details.StatusOf(p, now, model.ReservationWindow)
		row := fmt.Sprintf("%s %-28s ", star, truncate(p.Name, 28))
		if i == m.selected {
			row = styles.Selected.Render(row)
		}
		b.WriteString(row)
		b.WriteString(styles.StatusStyle(p.Status).Render(string(p.Status)))
		b.WriteString(" ")
		b.WriteString(styles.ToneStyle(status.Tone).Render(status.Text))
		if i < len(visible)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) renderDetail() string {
	styles := m.theme.Styles()
	if m.detailErr != nil {
		return styles.DangerText.Render(m.detailErr.Error())
	}
	if m.detail == nil {
		return styles.FaintText.Render("Loading " + m.pointName(m.detailID) + "...")
	}
	v := m.detail
	p := v.Point

	var b strings.Builder
	title := p.Name
	if p.IsFavorite {
		title += " ★"
	}
	b.WriteString(styles.Text.Bold(true).Render(title))
	b.WriteString("\n")
	b.WriteString(styles.ToneStyle(v.Status.Tone).Render(v.Status.Text))
	b.WriteString("\n\n")

	if p.Description != "" {
		b.WriteString(styles.Text.Render(p.Description))
		b.WriteString("\n\n")
	}
	b.WriteString(field(styles, "Category", string(p.Category)))
	b.WriteString(field(styles, "Status", string(p.Status)))
	b.WriteString(field(styles, "Location", fmt.Sprintf("%.5f, %.5f", p.Location.Lat, p.Location.Lon)))
	bookable := styles.DangerText.Render("no")
	if v.Bookable {
		bookable = styles.SuccessText.Render("yes")
	}
	b.WriteString(styles.MutedText.Width(12).Render("Bookable") + bookable + "\n\n")

	b.WriteString(styles.AccentText.Bold(true).Render("Latest feeders"))
	b.WriteString("\n")
	switch {
	case v.HistoryErr != nil:
		b.WriteString(styles.WarningText.Render("History unavailable: " + v.HistoryErr.Error()))
	case len(v.Feeders) == 0:
		b.WriteString(styles.FaintText.Render("Nobody has fed this point yet"))
	default:
		for _, h := range v.Feeders {
			fmt.Fprintf(&b, "%s  %s\n",
				styles.MutedText.Render(h.UpdatedAt.Local().Format("2006-01-02 15:04")),
				styles.Text.Render(h.UserName))
		}
	}
	return b.String()
}

func field(styles Styles, label, value string) string {
	if value == "" {
		value = "-"
	}
	return styles.MutedText.Width(12).Render(label) + styles.Text.Render(value) + "\n"
}

func filterLabel(f prefs.Filter) string {
	switch f {
	case prefs.FilterCats:
		return "Cats"
	case prefs.FilterDogs:
		return "Dogs"
	default:
		return "All"
	}
}

// formatRemaining renders a countdown as mm:ss.
func formatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
