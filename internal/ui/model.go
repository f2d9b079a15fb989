package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/dhavalsavalia/imgflash/internal/config"
	"github.com/dhavalsavalia/imgflash/internal/device"
	"github.com/dhavalsavalia/imgflash/internal/flasher"
	"github.com/dhavalsavalia/imgflash/internal/history"
	"github.com/dhavalsavalia/imgflash/internal/image"
	"github.com/dhavalsavalia/imgflash/internal/writer"
)

// AppState represents the application state
type AppState int

const (
	StateIdle AppState = iota
	StateChecksum
	StateWriting
	StateComplete
)

// Options carries the collaborators of a Model.
type Options struct {
	// Provider defaults to the platform provider.
	Provider  device.Provider
	History   *history.Store
	ImagePath string
}

// Model is the main bubbletea model
type Model struct {
	// Dimensions
	width  int
	height int

	// State
	state         AppState
	activePanel   Panel
	showHelp      bool
	showDialog    bool
	showPathInput bool
	verify        bool

	// Panels
	devicePanel *DevicePanel
	statusPanel *StatusPanel
	logPanel    *LogPanel

	// Overlays
	helpOverlay   *HelpOverlay
	confirmDialog *ConfirmDialog
	pathDialog    *PathDialog

	cfg     *config.Config
	flasher *flasher.Flasher
	watcher *device.Watcher

	// Device watching
	watchCtx    context.Context
	watchCancel context.CancelFunc
	snapshots   <-chan device.Snapshot
	watchErr    string

	// Selected image
	imagePath  string
	image      *image.FileInfo
	validation *image.Validation
	checksum   string

	// Progress channels live as long as the model; the emitters only
	// ever send to them without blocking.
	writeProgress    chan writer.Progress
	checksumProgress chan int

	// Operation state
	opCancel        context.CancelFunc
	lastProgress    writer.Progress
	checksumPercent int
	writeTarget     device.BlockDevice
	startTime       time.Time
	completedSteps  []string
}

// NewModel creates a new model from config
func NewModel(cfg *config.Config, opts Options) *Model {
	provider := opts.Provider
	if provider == nil {
		provider = device.New()
	}

	m := &Model{
		cfg:              cfg,
		state:            StateIdle,
		activePanel:      PanelDevices,
		verify:           cfg.Write.Verify,
		devicePanel:      NewDevicePanel(),
		statusPanel:      NewStatusPanel(),
		logPanel:         NewLogPanel(),
		helpOverlay:      NewHelpOverlay(),
		watcher:          device.NewWatcher(device.NewService(provider)),
		imagePath:        opts.ImagePath,
		writeProgress:    make(chan writer.Progress, 16),
		checksumProgress: make(chan int, 16),
	}

	flOpts := []flasher.Option{
		flasher.WithEmitter(flasher.EmitterFunc(m.emit)),
		flasher.WithWriteOptions(flasher.WriteOptions{AutoEject: cfg.Write.AutoEject}),
		flasher.WithEngineOptions(writer.WithBlockSize(int(cfg.Write.BlockSize))),
	}
	if opts.History != nil {
		flOpts = append(flOpts, flasher.WithHistory(opts.History))
	}
	m.flasher = flasher.New(provider, flOpts...)

	return m
}

// emit forwards write progress to the UI, dropping events the UI has
// not caught up with.
func (m *Model) emit(event string, payload any) error {
	p, ok := payload.(writer.Progress)
	if !ok {
		return fmt.Errorf("unexpected %s payload %T", event, payload)
	}
	select {
	case m.writeProgress <- p:
	default:
	}
	return nil
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	m.logPanel.Add(LogInfo, "Started")

	if m.imagePath != "" {
		m.selectImage(m.imagePath)
	}

	return m.startWatching()
}

// Close stops background device polling and any running operation.
func (m *Model) Close() {
	if m.opCancel != nil {
		m.opCancel()
	}
	if m.watchCancel != nil {
		m.watchCancel()
	}
}

// startWatching starts the device polling loop
func (m *Model) startWatching() tea.Cmd {
	if m.watchCancel != nil {
		m.watchCancel()
	}

	m.watchCtx, m.watchCancel = context.WithCancel(context.Background())
	m.snapshots = m.watcher.Watch(m.watchCtx, time.Duration(m.cfg.Device.PollInterval))

	return m.listenForNextSnapshot()
}

// snapshotMsg wraps device snapshots
type snapshotMsg struct {
	snapshot device.Snapshot
}

// tickMsg for spinner animation
type tickMsg struct{}

// writeProgressMsg carries one progress event of the write in flight
type writeProgressMsg struct {
	progress writer.Progress
	done     <-chan struct{}
}

// writeCompleteMsg for write completion
type writeCompleteMsg struct {
	err error
}

// checksumProgressMsg carries hashing progress in percent
type checksumProgressMsg struct {
	percent int
	done    <-chan struct{}
}

// checksumCompleteMsg for checksum completion
type checksumCompleteMsg struct {
	algorithm string
	sum       string
	err       error
}

// ejectCompleteMsg for eject completion
type ejectCompleteMsg struct {
	device device.BlockDevice
	err    error
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updatePanelSizes()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case snapshotMsg:
		m.applySnapshot(msg.snapshot)
		return m, m.listenForNextSnapshot()

	case writeProgressMsg:
		if m.state != StateWriting {
			return m, nil
		}
		m.lastProgress = msg.progress
		return m, m.listenForWriteProgress(msg.done)

	case writeCompleteMsg:
		m.opCancel = nil
		if msg.err != nil {
			m.logPanel.Add(LogError, "Write failed: "+msg.err.Error())
			m.state = StateIdle
			return m, nil
		}
		m.completedSteps = []string{
			fmt.Sprintf("Wrote %s to %s", humanize.IBytes(m.lastProgress.TotalBytes), m.writeTarget.Name),
		}
		if m.verify {
			m.completedSteps = append(m.completedSteps, "Verified")
		}
		if m.cfg.Write.AutoEject {
			m.completedSteps = append(m.completedSteps, "Ejected")
		}
		m.logPanel.Add(LogSuccess, "Write complete")
		m.state = StateComplete
		return m, nil

	case checksumProgressMsg:
		if m.state != StateChecksum {
			return m, nil
		}
		m.checksumPercent = msg.percent
		return m, m.listenForChecksumProgress(msg.done)

	case checksumCompleteMsg:
		m.opCancel = nil
		m.state = StateIdle
		if msg.err != nil {
			m.logPanel.Add(LogError, "Checksum failed: "+msg.err.Error())
			return m, nil
		}
		m.checksum = msg.sum
		m.logPanel.Add(LogSuccess, msg.algorithm+": "+msg.sum)
		return m, nil

	case ejectCompleteMsg:
		if msg.err != nil {
			m.logPanel.Add(LogError, "Eject failed: "+msg.err.Error())
		} else {
			m.logPanel.Add(LogSuccess, "Ejected "+msg.device.Name)
		}
		return m, nil

	case tickMsg:
		if m.state != StateWriting && m.state != StateChecksum {
			return m, nil
		}
		return m, tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
			return tickMsg{}
		})
	}

	return m, nil
}

// applySnapshot updates the device list and logs arrivals and removals.
func (m *Model) applySnapshot(snap device.Snapshot) {
	if snap.Err != nil {
		if msg := snap.Err.Error(); msg != m.watchErr {
			m.watchErr = msg
			m.logPanel.Add(LogError, "Device scan failed: "+msg)
		}
		return
	}
	m.watchErr = ""

	before := map[string]bool{}
	for _, d := range m.devicePanel.Devices() {
		before[d.Path] = true
	}
	after := map[string]bool{}
	for _, d := range snap.Devices {
		after[d.Path] = true
		if !before[d.Path] {
			m.logPanel.Add(LogInfo, "Device added: "+d.Name+" ("+d.SizeHuman+")")
		}
	}
	for _, d := range m.devicePanel.Devices() {
		if !after[d.Path] {
			m.logPanel.Add(LogWarning, "Device removed: "+d.Name)
		}
	}

	m.devicePanel.SetDevices(snap.Devices)
	m.revalidate()
}

// listenForNextSnapshot continues listening on the existing snapshot channel
func (m *Model) listenForNextSnapshot() tea.Cmd {
	snapshots := m.snapshots
	return func() tea.Msg {
		if snapshots == nil {
			return nil
		}
		snap, ok := <-snapshots
		if !ok {
			return nil
		}
		return snapshotMsg{snapshot: snap}
	}
}

// listenForWriteProgress waits for the next progress event until done is closed
func (m *Model) listenForWriteProgress(done <-chan struct{}) tea.Cmd {
	progress := m.writeProgress
	return func() tea.Msg {
		select {
		case p := <-progress:
			return writeProgressMsg{progress: p, done: done}
		case <-done:
			return nil
		}
	}
}

// listenForChecksumProgress waits for the next hashing update until done is closed
func (m *Model) listenForChecksumProgress(done <-chan struct{}) tea.Cmd {
	progress := m.checksumProgress
	return func() tea.Msg {
		select {
		case p := <-progress:
			return checksumProgressMsg{percent: p, done: done}
		case <-done:
			return nil
		}
	}
}

// selectImage loads metadata for path and validates it against the selected device.
func (m *Model) selectImage(path string) {
	info, err := m.flasher.GetFileInfo(path)
	if err != nil {
		m.logPanel.Add(LogError, "Cannot open image: "+err.Error())
		return
	}

	m.imagePath = path
	m.image = &info
	m.checksum = ""
	m.logPanel.Add(LogInfo, "Image: "+info.Name+" ("+info.SizeHuman+")")

	m.revalidate()
	if m.validation != nil {
		for _, w := range m.validation.Warnings {
			m.logPanel.Add(LogWarning, w)
		}
	}
}

// revalidate re-checks the selected image against the selected device.
func (m *Model) revalidate() {
	if m.image == nil {
		return
	}

	var deviceSize *uint64
	if dev := m.devicePanel.Selected(); dev != nil {
		size := dev.Size
		deviceSize = &size
	}

	v, err := m.flasher.ValidateImage(m.imagePath, deviceSize)
	if err != nil {
		m.logPanel.Add(LogError, "Validation failed: "+err.Error())
		m.validation = nil
		return
	}
	m.validation = &v
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showPathInput {
		return m.handlePathKey(msg)
	}

	// Global keys
	switch msg.String() {
	case "ctrl+c":
		m.Close()
		return m, tea.Quit
	case "q":
		if !m.showDialog && (m.state == StateIdle || m.state == StateComplete) {
			m.Close()
			return m, tea.Quit
		}
	case "?":
		if m.state == StateIdle {
			m.showHelp = !m.showHelp
		}
		return m, nil
	case "esc":
		if m.showHelp {
			m.showHelp = false
			return m, nil
		}
		if m.showDialog {
			m.showDialog = false
			m.confirmDialog = nil
			return m, nil
		}
		if (m.state == StateWriting || m.state == StateChecksum) && m.opCancel != nil {
			m.opCancel()
			m.logPanel.Add(LogWarning, "Cancelling...")
			return m, nil
		}
		if m.state == StateComplete {
			m.state = StateIdle
			return m, nil
		}
	}

	// Dialog handling
	if m.showDialog && m.confirmDialog != nil {
		switch msg.String() {
		case "left", "h":
			m.confirmDialog.MoveLeft()
		case "right", "l":
			m.confirmDialog.MoveRight()
		case "enter":
			confirmed := m.confirmDialog.Selected() == DialogConfirm
			m.showDialog = false
			m.confirmDialog = nil
			if confirmed {
				return m.startWrite()
			}
			m.logPanel.Add(LogInfo, "Write cancelled")
		}
		return m, nil
	}

	if m.showHelp {
		return m, nil
	}

	switch m.state {
	case StateIdle:
		return m.handleIdleKey(msg)
	case StateComplete:
		if msg.String() == "enter" {
			m.state = StateIdle
		}
	}

	return m, nil
}

func (m *Model) handlePathKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.showPathInput = false
		m.pathDialog = nil
	case tea.KeyEnter:
		path := m.pathDialog.Value()
		m.showPathInput = false
		m.pathDialog = nil
		if path != "" {
			m.selectImage(path)
		}
	case tea.KeyBackspace:
		m.pathDialog.Backspace()
	case tea.KeySpace:
		m.pathDialog.Insert([]rune{' '})
	case tea.KeyRunes:
		m.pathDialog.Insert(msg.Runes)
	}
	return m, nil
}

func (m *Model) handleIdleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.activePanel == PanelDevices {
			m.devicePanel.MoveUp()
			m.revalidate()
		}
	case "down", "j":
		if m.activePanel == PanelDevices {
			m.devicePanel.MoveDown()
			m.revalidate()
		}
	case "tab":
		m.activePanel = (m.activePanel + 1) % 3
	case "shift+tab":
		m.activePanel = (m.activePanel + 2) % 3
	case "1":
		m.activePanel = PanelDevices
	case "2":
		m.activePanel = PanelStatus
	case "3":
		m.activePanel = PanelLog
	case "o":
		m.pathDialog = NewPathDialog(m.imagePath)
		m.pathDialog.SetSize(m.width, m.height)
		m.showPathInput = true
	case "v":
		m.verify = !m.verify
		if m.verify {
			m.logPanel.Add(LogInfo, "Verification enabled")
		} else {
			m.logPanel.Add(LogWarning, "Verification disabled")
		}
	case "c":
		return m.startChecksum()
	case "e":
		return m.startEject()
	case "w", "enter":
		return m.prepareWrite()
	}
	return m, nil
}

func (m *Model) prepareWrite() (tea.Model, tea.Cmd) {
	if m.image == nil {
		m.logPanel.Add(LogError, "No image selected")
		return m, nil
	}
	dev := m.devicePanel.Selected()
	if dev == nil {
		m.logPanel.Add(LogError, "No device selected")
		return m, nil
	}
	if m.validation != nil && !m.validation.IsValid {
		for _, e := range m.validation.Errors {
			m.logPanel.Add(LogError, e)
		}
		return m, nil
	}

	m.confirmDialog = WriteDialog(m.image.Name, *dev, m.verify)
	m.confirmDialog.SetSize(m.width, m.height)
	m.showDialog = true
	return m, nil
}

// startWrite begins writing the selected image to the selected device
func (m *Model) startWrite() (tea.Model, tea.Cmd) {
	dev := m.devicePanel.Selected()
	if m.image == nil || dev == nil {
		return m, nil
	}

	// Drop events left over from an earlier write
	for len(m.writeProgress) > 0 {
		<-m.writeProgress
	}

	m.state = StateWriting
	m.writeTarget = *dev
	m.startTime = time.Now()
	m.lastProgress = writer.Progress{Phase: writer.PhaseWriting, TotalBytes: m.image.Size}
	m.completedSteps = nil
	m.logPanel.Add(LogInfo, "Writing "+m.image.Name+" to "+dev.Name+"...")

	ctx, cancel := context.WithCancel(context.Background())
	m.opCancel = cancel

	fl := m.flasher
	imagePath, devicePath, verify := m.imagePath, dev.Path, m.verify
	done := make(chan struct{})

	write := func() tea.Msg {
		defer cancel()
		err := fl.WriteImage(ctx, imagePath, devicePath, verify)
		close(done)
		return writeCompleteMsg{err: err}
	}

	tick := tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg{}
	})

	return m, tea.Batch(write, m.listenForWriteProgress(done), tick)
}

// startChecksum hashes the selected image with the configured algorithm
func (m *Model) startChecksum() (tea.Model, tea.Cmd) {
	if m.image == nil {
		m.logPanel.Add(LogError, "No image selected")
		return m, nil
	}

	for len(m.checksumProgress) > 0 {
		<-m.checksumProgress
	}

	m.state = StateChecksum
	m.checksumPercent = 0

	ctx, cancel := context.WithCancel(context.Background())
	m.opCancel = cancel

	fl := m.flasher
	path, algorithm := m.imagePath, m.cfg.Checksum.Algorithm
	progress := m.checksumProgress
	done := make(chan struct{})

	run := func() tea.Msg {
		defer cancel()
		sum, err := fl.CalculateChecksumWithProgress(ctx, path, algorithm, func(processed, total uint64) {
			if total == 0 {
				return
			}
			select {
			case progress <- int(processed * 100 / total):
			default:
			}
		})
		close(done)
		return checksumCompleteMsg{algorithm: algorithm, sum: sum, err: err}
	}

	tick := tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg{}
	})

	return m, tea.Batch(run, m.listenForChecksumProgress(done), tick)
}

// startEject ejects the selected device
func (m *Model) startEject() (tea.Model, tea.Cmd) {
	dev := m.devicePanel.Selected()
	if dev == nil {
		m.logPanel.Add(LogError, "No device selected")
		return m, nil
	}

	target := *dev
	fl := m.flasher
	m.logPanel.Add(LogInfo, "Ejecting "+target.Name+"...")

	return m, func() tea.Msg {
		return ejectCompleteMsg{device: target, err: fl.EjectDevice(context.Background(), target.Path)}
	}
}

func (m *Model) updatePanelSizes() {
	contentHeight := m.height - 4

	leftWidth := m.width * 30 / 100
	centerWidth := m.width * 40 / 100
	rightWidth := m.width - leftWidth - centerWidth - 6

	m.devicePanel.SetSize(leftWidth, contentHeight)
	m.statusPanel.SetSize(centerWidth, contentHeight)
	m.logPanel.SetSize(rightWidth, contentHeight)
	m.helpOverlay.SetSize(m.width, m.height)
	if m.confirmDialog != nil {
		m.confirmDialog.SetSize(m.width, m.height)
	}
	if m.pathDialog != nil {
		m.pathDialog.SetSize(m.width, m.height)
	}
}

// View renders the UI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	// Overlays
	if m.showHelp {
		return m.helpOverlay.View()
	}
	if m.showPathInput && m.pathDialog != nil {
		return m.pathDialog.View()
	}
	if m.showDialog && m.confirmDialog != nil {
		return m.confirmDialog.View()
	}

	var s strings.Builder
	s.WriteString(m.renderHeader())
	s.WriteString("\n")
	s.WriteString(m.renderPanels())
	s.WriteString("\n")
	s.WriteString(m.renderFooter())
	return s.String()
}

func (m *Model) renderHeader() string {
	title := TitleStyle.Render("IMGFLASH")

	count := len(m.devicePanel.Devices())
	var status string
	switch {
	case m.watchErr != "":
		status = ErrorStyle.Render(StatusAbsent) + " Device scan failing"
	case count == 0:
		status = DimStyle.Render(StatusAbsent) + " No devices"
	default:
		status = SuccessStyle.Render(StatusPresent) + " " + humanize.Comma(int64(count)) + " device(s)"
	}

	rightPart := status
	if m.image != nil {
		rightPart = DimStyle.Render(m.image.Name) + "   " + status
	}

	spacing := max(1, m.width-lipgloss.Width(title)-lipgloss.Width(rightPart)-2)

	headerStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(m.width - 2)

	return headerStyle.Render(title + strings.Repeat(" ", spacing) + rightPart)
}

func (m *Model) renderPanels() string {
	leftWidth := m.width * 30 / 100
	centerWidth := m.width * 40 / 100
	rightWidth := m.width - leftWidth - centerWidth - 6

	contentHeight := m.height - 6

	panel := func(p Panel, width int, content string) string {
		style := PanelStyle
		if m.activePanel == p {
			style = ActivePanelStyle
		}
		return style.Width(width).Height(contentHeight).
			Render(AccentStyle.Render(" "+p.String()+" ") + "\n\n" + content)
	}

	var statusContent string
	switch m.state {
	case StateIdle:
		statusContent = m.statusPanel.ViewIdle(IdleInfo{
			Image:      m.image,
			Validation: m.validation,
			Device:     m.devicePanel.Selected(),
			Verify:     m.verify,
			Algorithm:  m.cfg.Checksum.Algorithm,
			Checksum:   m.checksum,
		})
	case StateChecksum:
		statusContent = m.statusPanel.ViewChecksum(m.cfg.Checksum.Algorithm, m.checksumPercent, m.image.Name)
	case StateWriting:
		statusContent = m.statusPanel.ViewWriting(m.lastProgress, m.image.Name, m.writeTarget.Name, m.verify)
	case StateComplete:
		statusContent = m.statusPanel.ViewComplete(time.Since(m.startTime), m.completedSteps)
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		panel(PanelDevices, leftWidth, m.devicePanel.View()),
		panel(PanelStatus, centerWidth, statusContent),
		panel(PanelLog, rightWidth, m.logPanel.View()),
	)
}

func (m *Model) renderFooter() string {
	var hints []string

	switch m.state {
	case StateIdle:
		hints = []string{"j/k Navigate", "o Open", "w Write", "v Verify", "c Checksum", "e Eject", "q Quit"}
	case StateChecksum:
		hints = []string{"Hashing...", "Esc Cancel"}
	case StateWriting:
		hints = []string{"Writing... Do not remove the device", "Esc Cancel"}
	case StateComplete:
		hints = []string{"Enter Continue", "q Quit"}
	}

	left := DimStyle.Render(strings.Join(hints, "   "))
	right := DimStyle.Render("? Help")

	spacing := max(1, m.width-lipgloss.Width(left)-lipgloss.Width(right)-2)

	return " " + left + strings.Repeat(" ", spacing) + right
}
