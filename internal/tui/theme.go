package tui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"nxttask/internal/model"
	"nxttask/internal/notice"
)

// The task list must stay readable on light and dark terminals, so colors are
// adaptive and "faint" is only applied on dark backgrounds.

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

func faintIfDark(st lipgloss.Style) lipgloss.Style {
	if lipgloss.HasDarkBackground() {
		return st.Faint(true)
	}
	return st
}

var (
	colorMuted      = ac("240", "243")
	colorSurfaceFg  = ac("235", "252")
	colorControlBg  = ac("252", "235")
	colorSelectedBg = ac("#e9e9e9", "#262626")
	colorSelectedFg = ac("235", "255")
	colorAccent     = ac("27", "62")
	colorError      = ac("160", "203")
	colorSuccess    = ac("28", "78")

	colorPriorityHigh      = ac("160", "203")
	colorPriorityMedium    = ac("130", "214")
	colorPriorityLow       = ac("28", "78")
	colorPriorityCompleted = ac("240", "243")
)

func styleMuted() lipgloss.Style {
	return faintIfDark(lipgloss.NewStyle().Foreground(colorMuted))
}

func styleHeader() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(colorSurfaceFg)
}

func styleSelected() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorSelectedFg).Background(colorSelectedBg).Bold(true)
}

func styleTab(active bool) lipgloss.Style {
	if active {
		return lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Underline(true)
	}
	return styleMuted()
}

func stylePriority(p model.Priority) lipgloss.Style {
	st := lipgloss.NewStyle().Bold(true)
	switch p {
	case model.PriorityHigh:
		return st.Foreground(colorPriorityHigh)
	case model.PriorityMedium:
		return st.Foreground(colorPriorityMedium)
	case model.PriorityLow:
		return st.Foreground(colorPriorityLow)
	default:
		return st.Foreground(colorPriorityCompleted)
	}
}

func styleNotice(k notice.Kind) lipgloss.Style {
	switch k {
	case notice.KindError:
		return lipgloss.NewStyle().Foreground(colorError).Bold(true)
	case notice.KindSuccess:
		return lipgloss.NewStyle().Foreground(colorSuccess)
	default:
		return styleMuted()
	}
}

// applyColorProfilePreference honors NO_COLOR and otherwise trusts the
// terminal. termenv.EnvColorProfile also reads CLICOLOR, which would disable
// colors in the TUI when piping other commands.
func applyColorProfilePreference() {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	profile := termenv.ColorProfile()
	colorterm := strings.ToLower(os.Getenv("COLORTERM"))
	term := strings.ToLower(os.Getenv("TERM"))
	switch {
	case strings.Contains(colorterm, "truecolor") || strings.Contains(colorterm, "24bit"):
		if profile != termenv.Ascii {
			profile = termenv.TrueColor
		}
	case strings.Contains(term, "256color"):
		if profile == termenv.Ascii || profile == termenv.ANSI {
			profile = termenv.ANSI256
		}
	}
	lipgloss.SetColorProfile(profile)
}

// applyThemePreference picks the adaptive palette variant.
//
// Priority:
// 1) NXTTASK_TUI_THEME=light|dark|auto
// 2) COLORFGBG heuristic ("fg;bg", bg >= 7 is a light background)
func applyThemePreference() {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("NXTTASK_TUI_THEME"))) {
	case "light":
		lipgloss.SetHasDarkBackground(false)
		return
	case "dark":
		lipgloss.SetHasDarkBackground(true)
		return
	}
	if bg, ok := colorFGBGBackground(); ok {
		lipgloss.SetHasDarkBackground(bg < 7)
	}
}

// colorFGBGBackground reads the background index from COLORFGBG.
func colorFGBGBackground() (int, bool) {
	v := strings.TrimSpace(os.Getenv("COLORFGBG"))
	if v == "" {
		return 0, false
	}
	parts := strings.Split(v, ";")
	bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1]))
	if err != nil || bg < 0 {
		return 0, false
	}
	return bg, true
}
