package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Standard ANSI colors - works with any terminal colorscheme
var (
	ColorFg        = lipgloss.AdaptiveColor{Light: "0", Dark: "15"}
	ColorGreen     = lipgloss.Color("2")
	ColorRed       = lipgloss.Color("1")
	ColorYellow    = lipgloss.Color("3")
	ColorCyan      = lipgloss.Color("6")
	ColorPurple    = lipgloss.Color("5")
	ColorDim       = lipgloss.Color("8")
	ColorBorder    = lipgloss.Color("8")
	ColorBorderAct = lipgloss.Color("5")
)

// Device presence indicators
const (
	StatusPresent = "●"
	StatusAbsent  = "○"
)

// Spinner frames (braille pattern)
var SpinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Base styles
var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorFg).
			Bold(true).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorDim).
			Padding(0, 1)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	ActivePanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorBorderAct).
				Padding(0, 1)

	TitleStyle = lipgloss.NewStyle().
			Foreground(ColorPurple).
			Bold(true)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(ColorFg).
			Background(ColorPurple).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(ColorDim)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	InfoStyle = lipgloss.NewStyle().
			Foreground(ColorCyan)

	AccentStyle = lipgloss.NewStyle().
			Foreground(ColorPurple)

	KeyHintStyle = lipgloss.NewStyle().
			Foreground(ColorCyan).
			Bold(true)
)

// Progress bar characters
const (
	ProgressFull  = "█"
	ProgressEmpty = "░"
)

// Tree characters
const (
	TreeBranch = "├"
	TreeLast   = "└"
)

// RenderProgressBar renders a progress bar with the given percentage
func RenderProgressBar(percent int, width int) string {
	if width < 10 {
		width = 10
	}
	percent = max(0, min(percent, 100))

	barWidth := width - 7 // percentage text and padding
	filled := (percent * barWidth) / 100

	bar := strings.Repeat(ProgressFull, filled) + strings.Repeat(ProgressEmpty, barWidth-filled)

	return lipgloss.JoinHorizontal(lipgloss.Center,
		bar,
		DimStyle.Render(fmt.Sprintf(" %3d%%", percent)),
	)
}

// placeBox centers a rendered box inside a width x height area.
func placeBox(box string, boxWidth, width, height int) string {
	topPadding := max(0, (height-lipgloss.Height(box))/2)
	leftPadding := max(0, (width-boxWidth-4)/2)

	var lines []string
	for i := 0; i < topPadding; i++ {
		lines = append(lines, "")
	}
	for _, line := range strings.Split(box, "\n") {
		lines = append(lines, strings.Repeat(" ", leftPadding)+line)
	}

	return strings.Join(lines, "\n")
}
