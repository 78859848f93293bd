package tui

import "github.com/charmbracelet/lipgloss"

// Command glyphs in the outline; they carry meaning without color.
const (
	GlyphIdle    = "○"
	GlyphRunning = "▶"
	GlyphDone    = "✓"
	GlyphFailed  = "✗"
	GlyphStopped = "■"
)

var (
	colorGreen  = lipgloss.Color("42")
	colorRed    = lipgloss.Color("196")
	colorYellow = lipgloss.Color("214")
	colorBlue   = lipgloss.Color("39")
	colorCyan   = lipgloss.Color("51")
	colorDim    = lipgloss.Color("240")
	colorWhite  = lipgloss.Color("255")
)

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorCyan).
	Padding(0, 1)

var tickBadgeStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("0")).
	Background(colorYellow).
	Padding(0, 1)

// --- Outline styles ---

var (
	rowNormal  = lipgloss.NewStyle().Foreground(colorWhite)
	rowRunning = lipgloss.NewStyle().Bold(true).Foreground(colorYellow)
	rowArm     = lipgloss.NewStyle().Foreground(colorBlue)
	rowLine    = lipgloss.NewStyle().Foreground(colorDim)
)

// --- Panel styles ---

var (
	panelBorder = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim)
	panelTitle  = lipgloss.NewStyle().Bold(true).Foreground(colorCyan).Padding(0, 1)
)

// --- Status styles ---

var (
	statusPassedStyle  = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	statusFailedStyle  = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	statusRunningStyle = lipgloss.NewStyle().Foreground(colorYellow)
)

// --- Key bar styles ---

var (
	keyStyle     = lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
	keyDescStyle = lipgloss.NewStyle().Foreground(colorDim)
)

var spinnerStyle = lipgloss.NewStyle().
	Foreground(colorYellow)
