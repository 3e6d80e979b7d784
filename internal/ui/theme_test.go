package ui

import (
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/feeder/internal/details"
	"github.com/five82/feeder/internal/model"
)

func TestThemeNames(t *testing.T) {
	names := ThemeNames()
	if len(names) != 3 {
		t.Fatalf("ThemeNames() returned %d names, want 3", len(names))
	}
	if names[0] != "Nightfox" || names[1] != "Kanagawa" || names[2] != "Slate" {
		t.Fatalf("ThemeNames() = %v, want [Nightfox Kanagawa Slate]", names)
	}
}

func TestNextTheme(t *testing.T) {
	tests := map[string]string{
		"Nightfox": "Kanagawa",
		"Kanagawa": "Slate",
		"Slate":    "Nightfox",
		"Unknown":  "Nightfox",
	}
	for in, want := range tests {
		if got := NextTheme(in); got != want {
			t.Fatalf("NextTheme(%s) = %q, want %q", in, got, want)
		}
	}
}

func TestGetTheme(t *testing.T) {
	if got := GetTheme("Slate").Name; got != "Slate" {
		t.Fatalf("GetTheme(Slate).Name = %q, want Slate", got)
	}
	if got := GetTheme("Unknown").Name; got != "Nightfox" {
		t.Fatalf("GetTheme(Unknown).Name = %q, want Nightfox (fallback)", got)
	}
}

func TestStylesColorLookups(t *testing.T) {
	th := GetTheme("Nightfox")
	styles := th.Styles()

	if got := styles.StatusStyle(model.StatusReserved).GetBackground(); got != lipgloss.Color(th.StatusColors[model.StatusReserved]) {
		t.Fatalf("StatusStyle(reserved) background = %v, want %v", got, th.StatusColors[model.StatusReserved])
	}
	if got := styles.StatusStyle("unknown").GetBackground(); got != lipgloss.Color(th.Muted) {
		t.Fatalf("StatusStyle(unknown) background = %v, want muted %v", got, th.Muted)
	}

	tones := map[details.Tone]string{
		details.ToneError:     th.Danger,
		details.ToneAttention: th.Warning,
		details.ToneSuccess:   th.Success,
	}
	for tone, want := range tones {
		if got := styles.ToneStyle(tone).GetForeground(); got != lipgloss.Color(want) {
			t.Fatalf("ToneStyle(%v) = %v, want %v", tone, got, want)
		}
	}
}

func TestThemesCoverEveryStatus(t *testing.T) {
	for _, name := range ThemeNames() {
		th := GetTheme(name)
		for _, s := range []model.Status{model.StatusAvailable, model.StatusReserved, model.StatusBeingFed} {
			if th.StatusColors[s] == "" {
				t.Fatalf("theme %s has no color for %s", name, s)
			}
		}
	}
}
