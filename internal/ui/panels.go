package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/dhavalsavalia/imgflash/internal/device"
	"github.com/dhavalsavalia/imgflash/internal/image"
	"github.com/dhavalsavalia/imgflash/internal/writer"
)

// Panel identifiers
type Panel int

const (
	PanelDevices Panel = iota
	PanelStatus
	PanelLog
)

func (p Panel) String() string {
	switch p {
	case PanelDevices:
		return "Devices"
	case PanelStatus:
		return "Status"
	case PanelLog:
		return "Log"
	default:
		return "Unknown"
	}
}

// LogEntry represents a log message
type LogEntry struct {
	Time    time.Time
	Message string
	Level   LogLevel
}

// LogLevel for log entries
type LogLevel int

const (
	LogInfo LogLevel = iota
	LogSuccess
	LogWarning
	LogError
)

// DevicePanel renders the removable device list
type DevicePanel struct {
	devices  []device.BlockDevice
	selected int
	height   int
	width    int
}

// NewDevicePanel creates a new device panel
func NewDevicePanel() *DevicePanel {
	return &DevicePanel{}
}

// SetDevices replaces the list, keeping the selection on the same path
// when that device is still present.
func (p *DevicePanel) SetDevices(devices []device.BlockDevice) {
	current := ""
	if sel := p.Selected(); sel != nil {
		current = sel.Path
	}

	p.devices = devices
	p.selected = 0
	for i, d := range devices {
		if d.Path == current {
			p.selected = i
			break
		}
	}
}

// Devices returns the listed devices
func (p *DevicePanel) Devices() []device.BlockDevice {
	return p.devices
}

// Selected returns the selected device
func (p *DevicePanel) Selected() *device.BlockDevice {
	if len(p.devices) == 0 {
		return nil
	}
	return &p.devices[p.selected]
}

// MoveUp moves selection up
func (p *DevicePanel) MoveUp() {
	if p.selected > 0 {
		p.selected--
	}
}

// MoveDown moves selection down
func (p *DevicePanel) MoveDown() {
	if p.selected < len(p.devices)-1 {
		p.selected++
	}
}

// SetSize sets the panel dimensions
func (p *DevicePanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// View renders the device panel content
func (p *DevicePanel) View() string {
	if len(p.devices) == 0 {
		return DimStyle.Render("  No removable devices")
	}

	var lines []string
	for i, d := range p.devices {
		prefix := "  "
		if i == p.selected {
			prefix = "> "
		}

		line := prefix + d.Name + " " + DimStyle.Render(d.SizeHuman)
		if i == p.selected {
			line = SelectedStyle.Render(prefix+d.Name) + " " + DimStyle.Render(d.SizeHuman)
		}
		lines = append(lines, line)

		// Details for the selected device
		if i == p.selected {
			details := []string{d.Path}
			if len(d.MountPoints) > 0 {
				details = append(details, strings.Join(d.MountPoints, ", "))
			} else {
				details = append(details, "not mounted")
			}
			for j, text := range details {
				treeChr := TreeBranch
				if j == len(details)-1 {
					treeChr = TreeLast
				}
				lines = append(lines, DimStyle.Render(fmt.Sprintf("  %s %s", treeChr, text)))
			}
		}
	}

	return strings.Join(lines, "\n")
}

// IdleInfo is what the status panel shows between operations.
type IdleInfo struct {
	Image      *image.FileInfo
	Validation *image.Validation
	Device     *device.BlockDevice
	Verify     bool
	Algorithm  string
	Checksum   string
}

// StatusPanel renders the status/operation display
type StatusPanel struct {
	width  int
	height int
}

// NewStatusPanel creates a new status panel
func NewStatusPanel() *StatusPanel {
	return &StatusPanel{}
}

// SetSize sets the panel dimensions
func (p *StatusPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// ViewIdle renders idle state
func (p *StatusPanel) ViewIdle(info IdleInfo) string {
	var lines []string

	boxWidth := p.width - 8
	if boxWidth < 20 {
		boxWidth = 20
	}

	if info.Image == nil {
		lines = append(lines, "")
		lines = append(lines, centerText("SELECT AN IMAGE", boxWidth))
		lines = append(lines, "")
		lines = append(lines, centerText("Press O to open an image file", boxWidth))
		return strings.Join(lines, "\n")
	}

	lines = append(lines, "")
	lines = append(lines, DimStyle.Render("Image:  ")+info.Image.Name+" "+DimStyle.Render(info.Image.SizeHuman))

	if v := info.Validation; v != nil {
		format := v.Format
		if v.IsValid {
			format = SuccessStyle.Render(format)
		} else {
			format = ErrorStyle.Render(format)
		}
		lines = append(lines, DimStyle.Render("Format: ")+format)
		for _, e := range v.Errors {
			lines = append(lines, ErrorStyle.Render("  ✗ "+e))
		}
		for _, w := range v.Warnings {
			lines = append(lines, WarningStyle.Render("  ! "+w))
		}
	}

	if info.Checksum != "" {
		lines = append(lines, DimStyle.Render(info.Algorithm+": ")+truncate(info.Checksum, p.width-len(info.Algorithm)-6))
	}

	lines = append(lines, "")
	if info.Device != nil {
		lines = append(lines, DimStyle.Render("Target: ")+info.Device.Name+" "+DimStyle.Render(info.Device.Path))
	} else {
		lines = append(lines, DimStyle.Render("Target: ")+WarningStyle.Render("insert a removable device"))
	}

	verify := "off"
	if info.Verify {
		verify = "on"
	}
	lines = append(lines, DimStyle.Render("Verify: ")+verify)

	return strings.Join(lines, "\n")
}

// ViewChecksum renders a running checksum
func (p *StatusPanel) ViewChecksum(algorithm string, percent int, filename string) string {
	var lines []string

	spinner := SpinnerFrames[(time.Now().UnixMilli()/100)%int64(len(SpinnerFrames))]

	lines = append(lines, "")
	lines = append(lines, AccentStyle.Render(spinner+" "+strings.ToUpper(algorithm)))
	lines = append(lines, "")
	lines = append(lines, RenderProgressBar(percent, p.width-10))
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("Hashing: %s", filename))

	return strings.Join(lines, "\n")
}

// ViewWriting renders a write or verify pass in progress
func (p *StatusPanel) ViewWriting(progress writer.Progress, filename, target string, verify bool) string {
	var lines []string

	spinner := SpinnerFrames[(time.Now().UnixMilli()/100)%int64(len(SpinnerFrames))]

	title := "WRITING"
	if progress.Phase == writer.PhaseVerifying {
		title = "VERIFYING"
	}

	lines = append(lines, "")
	lines = append(lines, AccentStyle.Render(spinner+" "+title+" "+strings.ToUpper(target)))
	lines = append(lines, "")
	lines = append(lines, RenderProgressBar(int(progress.Percent()), p.width-10))
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("%s / %s",
		humanize.IBytes(progress.BytesWritten), humanize.IBytes(progress.TotalBytes)))
	if progress.SpeedBps > 0 {
		lines = append(lines, DimStyle.Render(fmt.Sprintf("%s/s, %s left",
			humanize.IBytes(progress.SpeedBps),
			(time.Duration(progress.EtaSeconds)*time.Second).String())))
	}
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("Image: %s", filename))

	// Phase checklist
	lines = append(lines, "")
	steps := []writer.Phase{writer.PhaseWriting}
	if verify {
		steps = append(steps, writer.PhaseVerifying)
	}
	for _, step := range steps {
		icon := "[ ]"
		style := DimStyle
		switch {
		case step == progress.Phase:
			icon = "[>]"
			style = AccentStyle
		case step == writer.PhaseWriting && progress.Phase == writer.PhaseVerifying:
			icon = "[x]"
			style = SuccessStyle
		}
		lines = append(lines, style.Render(icon+" "+phaseLabel(step)))
	}

	return strings.Join(lines, "\n")
}

func phaseLabel(p writer.Phase) string {
	if p == writer.PhaseVerifying {
		return "Verify"
	}
	return "Write"
}

// ViewComplete renders completion summary
func (p *StatusPanel) ViewComplete(duration time.Duration, steps []string) string {
	var lines []string

	lines = append(lines, "")
	lines = append(lines, SuccessStyle.Render("WRITE COMPLETE"))
	lines = append(lines, "")

	for _, step := range steps {
		lines = append(lines, SuccessStyle.Render("  [x] "+step))
	}

	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("  Duration: %s", duration.Round(time.Second)))
	lines = append(lines, "")
	lines = append(lines, DimStyle.Render("It is now safe to remove the device."))

	return strings.Join(lines, "\n")
}

// LogPanel renders the log output
type LogPanel struct {
	entries []LogEntry
	width   int
	height  int
}

// NewLogPanel creates a new log panel
func NewLogPanel() *LogPanel {
	return &LogPanel{}
}

// Add adds a log entry
func (p *LogPanel) Add(level LogLevel, msg string) {
	p.entries = append(p.entries, LogEntry{
		Time:    time.Now(),
		Message: msg,
		Level:   level,
	})
	// Keep last N entries
	maxEntries := 50
	if len(p.entries) > maxEntries {
		p.entries = p.entries[len(p.entries)-maxEntries:]
	}
}

// Entries returns the retained entries, oldest first
func (p *LogPanel) Entries() []LogEntry {
	return p.entries
}

// SetSize sets the panel dimensions
func (p *LogPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// View renders the log panel content
func (p *LogPanel) View() string {
	if len(p.entries) == 0 {
		return DimStyle.Render("  No log entries")
	}

	maxVisible := p.height - 2
	if maxVisible < 1 {
		maxVisible = 10
	}

	start := 0
	if len(p.entries) > maxVisible {
		start = len(p.entries) - maxVisible
	}

	var lines []string
	for _, entry := range p.entries[start:] {
		timestamp := DimStyle.Render(entry.Time.Format("15:04:05"))

		var msgStyle lipgloss.Style
		switch entry.Level {
		case LogSuccess:
			msgStyle = SuccessStyle
		case LogWarning:
			msgStyle = WarningStyle
		case LogError:
			msgStyle = ErrorStyle
		default:
			msgStyle = lipgloss.NewStyle().Foreground(ColorFg)
		}

		lines = append(lines, timestamp+"  "+msgStyle.Render(truncate(entry.Message, p.width-12)))
	}

	return strings.Join(lines, "\n")
}

// Helper functions
func centerText(text string, width int) string {
	textLen := lipgloss.Width(text)
	if textLen >= width {
		return text
	}
	padding := (width - textLen) / 2
	return strings.Repeat(" ", padding) + text
}

func truncate(s string, max int) string {
	if max <= 3 || len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
