package tui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

// Faint text on light terminals is often illegible.
func faintIfDark(st lipgloss.Style) lipgloss.Style {
	if lipgloss.HasDarkBackground() {
		return st.Faint(true)
	}
	return st
}

var (
	colorMuted        lipgloss.TerminalColor = ac("240", "243")
	colorChromeFg     lipgloss.TerminalColor = ac("240", "245")
	colorAccent       lipgloss.TerminalColor = ac("27", "62")
	colorAccentFg     lipgloss.TerminalColor = ac("255", "235")
	colorSelectedBg   lipgloss.TerminalColor = ac("#e9e9e9", "#262626")
	colorSelectedFg   lipgloss.TerminalColor = ac("235", "255")
	colorControlBg    lipgloss.TerminalColor = ac("252", "235")
	colorSurfaceBg    lipgloss.TerminalColor = ac("255", "235")
	colorSurfaceFg    lipgloss.TerminalColor = ac("235", "252")
	colorFlashErrorBg lipgloss.TerminalColor = ac("196", "160")
)

func styleMuted() lipgloss.Style {
	return faintIfDark(lipgloss.NewStyle().Foreground(colorMuted))
}

func styleHeader() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(colorChromeFg)
}

func styleTabActive() lipgloss.Style {
	return lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(colorAccentFg).Background(colorAccent)
}

func styleTab() lipgloss.Style {
	return lipgloss.NewStyle().Padding(0, 1).Foreground(colorSurfaceFg).Background(colorControlBg)
}

func styleFlash(isErr bool) lipgloss.Style {
	if isErr {
		return lipgloss.NewStyle().Padding(0, 1).Foreground(colorAccentFg).Background(colorFlashErrorBg)
	}
	return styleMuted()
}

// applyColorProfilePreference sets Lip Gloss's color profile for the TUI.
//
// termenv.EnvColorProfile honors CLICOLOR, which can disable colors in a TUI,
// so only NO_COLOR and the notty theme force plain output here.
func applyColorProfilePreference(theme string) {
	if strings.EqualFold(strings.TrimSpace(theme), "notty") || strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}

	profile := termenv.ColorProfile()

	// Some terminals under-report; trust TERM/COLORTERM when they claim more.
	term := strings.ToLower(strings.TrimSpace(os.Getenv("TERM")))
	colorterm := strings.ToLower(strings.TrimSpace(os.Getenv("COLORTERM")))
	if strings.Contains(colorterm, "truecolor") || strings.Contains(colorterm, "24bit") {
		if profile != termenv.Ascii {
			profile = termenv.TrueColor
		}
	} else if strings.Contains(term, "256color") {
		if profile == termenv.Ascii || profile == termenv.ANSI {
			profile = termenv.ANSI256
		}
	}

	lipgloss.SetColorProfile(profile)
}

// applyThemePreference pins background detection when the theme is explicit.
func applyThemePreference(theme string) {
	switch strings.ToLower(strings.TrimSpace(theme)) {
	case "light":
		lipgloss.SetHasDarkBackground(false)
	case "dark":
		lipgloss.SetHasDarkBackground(true)
	}
}
