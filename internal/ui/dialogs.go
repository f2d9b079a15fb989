package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dhavalsavalia/imgflash/internal/device"
)

// DialogOption represents a dialog button
type DialogOption int

const (
	DialogConfirm DialogOption = iota
	DialogCancel
)

// ConfirmDialog renders a confirmation dialog
type ConfirmDialog struct {
	title    string
	message  []string
	selected DialogOption
	width    int
	height   int
}

// NewConfirmDialog creates a new confirmation dialog
func NewConfirmDialog(title string, message []string) *ConfirmDialog {
	return &ConfirmDialog{
		title:    title,
		message:  message,
		selected: DialogCancel,
	}
}

// WriteDialog asks before overwriting a device.
func WriteDialog(imageName string, dev device.BlockDevice, verify bool) *ConfirmDialog {
	message := []string{
		"Write " + imageName + " to",
		"  " + dev.Name + " (" + dev.SizeHuman + ")",
		"  " + dev.Path,
		"",
		"All data on this device",
		"will be erased.",
	}
	if verify {
		message = append(message, "", DimStyle.Render("The write will be verified."))
	}
	return NewConfirmDialog("ERASE DEVICE", message)
}

// SetSize sets dialog dimensions
func (d *ConfirmDialog) SetSize(width, height int) {
	d.width = width
	d.height = height
}

// MoveLeft moves selection left (to confirm)
func (d *ConfirmDialog) MoveLeft() {
	d.selected = DialogConfirm
}

// MoveRight moves selection right (to cancel)
func (d *ConfirmDialog) MoveRight() {
	d.selected = DialogCancel
}

// Selected returns the selected option
func (d *ConfirmDialog) Selected() DialogOption {
	return d.selected
}

// View renders the dialog
func (d *ConfirmDialog) View() string {
	var lines []string

	lines = append(lines, WarningStyle.Render("⚠  "+d.title))
	lines = append(lines, "")
	lines = append(lines, d.message...)
	lines = append(lines, "")

	confirmStyle := lipgloss.NewStyle().Padding(0, 2)
	cancelStyle := lipgloss.NewStyle().Padding(0, 2)

	if d.selected == DialogConfirm {
		confirmStyle = confirmStyle.Background(ColorRed).Foreground(lipgloss.Color("0"))
	}
	if d.selected == DialogCancel {
		cancelStyle = cancelStyle.Background(ColorPurple).Foreground(lipgloss.Color("0"))
	}

	buttons := lipgloss.JoinHorizontal(lipgloss.Center,
		confirmStyle.Render("Write"),
		"  ",
		cancelStyle.Render("Cancel"),
	)
	lines = append(lines, buttons)

	boxWidth := min(44, d.width-10)

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorYellow).
		Padding(1, 2).
		Width(boxWidth).
		Render(strings.Join(lines, "\n"))

	return placeBox(box, boxWidth, d.width, d.height)
}

// PathDialog reads an image path from the keyboard
type PathDialog struct {
	width  int
	height int
	value  []rune
}

// NewPathDialog creates a path prompt prefilled with initial
func NewPathDialog(initial string) *PathDialog {
	return &PathDialog{value: []rune(initial)}
}

// SetSize sets dialog dimensions
func (d *PathDialog) SetSize(width, height int) {
	d.width = width
	d.height = height
}

// Insert appends typed characters
func (d *PathDialog) Insert(runes []rune) {
	d.value = append(d.value, runes...)
}

// Backspace removes the last character
func (d *PathDialog) Backspace() {
	if len(d.value) > 0 {
		d.value = d.value[:len(d.value)-1]
	}
}

// Value returns the entered path with surrounding whitespace and quotes removed
func (d *PathDialog) Value() string {
	return strings.Trim(strings.TrimSpace(string(d.value)), `"'`)
}

// View renders the prompt
func (d *PathDialog) View() string {
	boxWidth := min(60, d.width-10)

	input := string(d.value)
	if visible := boxWidth - 8; visible > 0 && len(d.value) > visible {
		input = "…" + string(d.value[len(d.value)-visible+1:])
	}

	lines := []string{
		AccentStyle.Render("OPEN IMAGE"),
		"",
		"> " + input + AccentStyle.Render("_"),
		"",
		DimStyle.Render("  [enter] Open   [esc] Cancel"),
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorPurple).
		Padding(1, 2).
		Width(boxWidth).
		Render(strings.Join(lines, "\n"))

	return placeBox(box, boxWidth, d.width, d.height)
}
