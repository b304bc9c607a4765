// Package ui renders classified output for the terminal.
// Colors follow the pipedream palette with light/dark mode support.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	// Light Mode Colors
	LightForeground = lipgloss.Color("#1b1b1b")
	LightPrimary    = lipgloss.Color("#6a3d8f") // Plum
	LightMuted      = lipgloss.Color("#8c8c8c")
	LightBorder     = lipgloss.Color("#d0d0d0")

	// Dark Mode Colors
	DarkForeground = lipgloss.Color("#f2f2f2")
	DarkPrimary    = lipgloss.Color("#c9a0dc") // Lavender
	DarkMuted      = lipgloss.Color("#6b6b6b")
	DarkBorder     = lipgloss.Color("#3a3a3a")

	// Semantic Colors (same in both modes)
	Destructive = lipgloss.Color("#b00020")
	Success     = lipgloss.Color("#8BC34A")
)

// Theme holds the current color scheme
type Theme struct {
	Name       string
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	IsDark     bool
}

// LightTheme returns the light mode theme
func LightTheme() Theme {
	return Theme{
		Name:       "light",
		Foreground: LightForeground,
		Primary:    LightPrimary,
		Muted:      LightMuted,
		Border:     LightBorder,
	}
}

// DarkTheme returns the dark mode theme
func DarkTheme() Theme {
	return Theme{
		Name:       "dark",
		Foreground: DarkForeground,
		Primary:    DarkPrimary,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		IsDark:     true,
	}
}

// ThemeByName maps a config theme name to a Theme. Unknown names get the
// dark theme.
func ThemeByName(name string) Theme {
	if strings.EqualFold(name, "light") {
		return LightTheme()
	}
	return DarkTheme()
}

// Styles holds all the styled components
type Styles struct {
	Theme Theme

	// Text
	Title lipgloss.Style
	Body  lipgloss.Style
	Muted lipgloss.Style
	Bold  lipgloss.Style

	// Output
	Emphasis lipgloss.Style // table headers, record keys
	Shadow   lipgloss.Style // Nothing placeholders
	Error    lipgloss.Style

	// Interactive
	Prompt    lipgloss.Style
	UserInput lipgloss.Style
	Footer    lipgloss.Style
	Divider   lipgloss.Style
}

// NewStyles creates a new Styles instance with the given theme
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,

		Title: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		Body: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Bold: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Bold(true),

		Emphasis: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		Shadow: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Italic(true),

		Error: lipgloss.NewStyle().
			Foreground(Destructive).
			Bold(true),

		Prompt: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		UserInput: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Footer: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 1),

		Divider: lipgloss.NewStyle().
			Foreground(theme.Border),
	}
}

// DefaultStyles returns styles with the dark theme
func DefaultStyles() Styles {
	return NewStyles(DarkTheme())
}

// RenderDivider returns a horizontal divider
func (s Styles) RenderDivider(width int) string {
	if width < 1 {
		width = 1
	}
	return s.Divider.Render(strings.Repeat("─", width))
}
