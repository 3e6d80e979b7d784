package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/feeder/internal/details"
	"github.com/five82/feeder/internal/model"
)

// Theme is a named palette. Colors are hex strings.
type Theme struct {
	Name string

	Background    string
	Surface       string
	SelectionBg   string
	SelectionText string

	Text    string
	Muted   string
	Faint   string
	Accent  string
	Success string
	Warning string
	Danger  string

	StatusColors map[model.Status]string
}

// Styles contains pre-built Lipgloss styles for a theme.
type Styles struct {
	Text        lipgloss.Style
	MutedText   lipgloss.Style
	FaintText   lipgloss.Style
	AccentText  lipgloss.Style
	SuccessText lipgloss.Style
	WarningText lipgloss.Style
	DangerText  lipgloss.Style

	Header   lipgloss.Style
	Footer   lipgloss.Style
	Selected lipgloss.Style

	theme Theme
}

func fg(color string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

func bar(t Theme, text string) lipgloss.Style {
	return fg(text).Background(lipgloss.Color(t.Surface)).Padding(0, 1)
}

// Styles builds the Lipgloss styles for t.
func (t Theme) Styles() Styles {
	return Styles{
		Text:        fg(t.Text),
		MutedText:   fg(t.Muted),
		FaintText:   fg(t.Faint),
		AccentText:  fg(t.Accent),
		SuccessText: fg(t.Success).Bold(true),
		WarningText: fg(t.Warning),
		DangerText:  fg(t.Danger).Bold(true),

		Header:   bar(t, t.Text),
		Footer:   bar(t, t.Muted),
		Selected: fg(t.SelectionText).Background(lipgloss.Color(t.SelectionBg)),

		theme: t,
	}
}

// StatusStyle returns the badge style for a point status. Unknown statuses
// use the muted color.
func (s Styles) StatusStyle(status model.Status) lipgloss.Style {
	color, ok := s.theme.StatusColors[status]
	if !ok {
		color = s.theme.Muted
	}
	return fg(s.theme.Background).Background(lipgloss.Color(color)).Padding(0, 1)
}

// ToneStyle returns the text style for a status tone.
func (s Styles) ToneStyle(tone details.Tone) lipgloss.Style {
	switch tone {
	case details.ToneError:
		return fg(s.theme.Danger)
	case details.ToneAttention:
		return fg(s.theme.Warning)
	case details.ToneSuccess:
		return fg(s.theme.Success)
	default:
		return fg(s.theme.Muted)
	}
}

// palette lists, in order: background, surface, selection background,
// selection text, text, muted, faint, accent, success, warning, danger and
// the available, reserved and being-fed badge colors.
type palette [14]string

func (p palette) theme(name string) Theme {
	return Theme{
		Name:          name,
		Background:    p[0],
		Surface:       p[1],
		SelectionBg:   p[2],
		SelectionText: p[3],
		Text:          p[4],
		Muted:         p[5],
		Faint:         p[6],
		Accent:        p[7],
		Success:       p[8],
		Warning:       p[9],
		Danger:        p[10],
		StatusColors: map[model.Status]string{
			model.StatusAvailable: p[11],
			model.StatusReserved:  p[12],
			model.StatusBeingFed:  p[13],
		},
	}
}

var themeOrder = []string{"Nightfox", "Kanagawa", "Slate"}

var palettes = map[string]palette{
	// https://github.com/EdenEast/nightfox.nvim
	"Nightfox": {
		"#131a24", "#192330", "#2b3b51", "#cdcecf",
		"#cdcecf", "#738091", "#71839b", "#719cd6",
		"#81b29a", "#dbc074", "#c94f6d",
		"#81b29a", "#dbc074", "#9d79d6",
	},
	// https://github.com/rebelot/kanagawa.nvim
	"Kanagawa": {
		"#16161D", "#1F1F28", "#2D4F67", "#DCD7BA",
		"#DCD7BA", "#C8C093", "#727169", "#7E9CD8",
		"#98BB6C", "#E6C384", "#E46876",
		"#98BB6C", "#E6C384", "#957FB8",
	},
	// Tailwind slate and sky
	"Slate": {
		"#020617", "#0f172a", "#0284c7", "#f8fafc",
		"#f1f5f9", "#94a3b8", "#64748b", "#38bdf8",
		"#22c55e", "#f59e0b", "#ef4444",
		"#16a34a", "#f59e0b", "#06b6d4",
	},
}

// GetTheme returns the named theme, or Nightfox when the name is unknown.
func GetTheme(name string) Theme {
	p, ok := palettes[name]
	if !ok {
		name = themeOrder[0]
		p = palettes[name]
	}
	return p.theme(name)
}

// NextTheme returns the theme after current in the cycle.
func NextTheme(current string) string {
	for i, name := range themeOrder {
		if name == current {
			return themeOrder[(i+1)%len(themeOrder)]
		}
	}
	return themeOrder[0]
}

// ThemeNames returns the available theme names in cycle order.
func ThemeNames() []string {
	return append([]string(nil), themeOrder...)
}
