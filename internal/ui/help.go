package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// HelpOverlay renders the help screen
type HelpOverlay struct {
	width  int
	height int
}

// NewHelpOverlay creates a new help overlay
func NewHelpOverlay() *HelpOverlay {
	return &HelpOverlay{}
}

// SetSize sets overlay dimensions
func (h *HelpOverlay) SetSize(width, height int) {
	h.width = width
	h.height = height
}

// View renders the help overlay
func (h *HelpOverlay) View() string {
	boxWidth := min(50, h.width-10)

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorPurple).
		Padding(1, 2).
		Width(boxWidth).
		Render(h.buildContent())

	return placeBox(box, boxWidth, h.width, h.height)
}

func (h *HelpOverlay) buildContent() string {
	var lines []string

	lines = append(lines, TitleStyle.Render("KEYBINDINGS"))
	lines = append(lines, "")

	lines = append(lines, AccentStyle.Render("Navigation"))
	lines = append(lines, DimStyle.Render(strings.Repeat("─", 40)))
	lines = append(lines, h.keyLine("↑ / k", "Previous device"))
	lines = append(lines, h.keyLine("↓ / j", "Next device"))
	lines = append(lines, h.keyLine("Tab", "Switch panel"))
	lines = append(lines, h.keyLine("1 / 2 / 3", "Jump to panel"))
	lines = append(lines, "")

	lines = append(lines, AccentStyle.Render("Actions"))
	lines = append(lines, DimStyle.Render(strings.Repeat("─", 40)))
	lines = append(lines, h.keyLine("o", "Open image"))
	lines = append(lines, h.keyLine("w / Enter", "Write image to device"))
	lines = append(lines, h.keyLine("v", "Toggle verification"))
	lines = append(lines, h.keyLine("c", "Checksum image"))
	lines = append(lines, h.keyLine("e", "Eject device"))
	lines = append(lines, "")

	lines = append(lines, AccentStyle.Render("General"))
	lines = append(lines, DimStyle.Render(strings.Repeat("─", 40)))
	lines = append(lines, h.keyLine("?", "Toggle this help"))
	lines = append(lines, h.keyLine("Esc", "Cancel / Back"))
	lines = append(lines, h.keyLine("q", "Quit"))

	return strings.Join(lines, "\n")
}

func (h *HelpOverlay) keyLine(key, desc string) string {
	return lipgloss.NewStyle().Foreground(ColorCyan).Width(14).Render(key) + desc
}
