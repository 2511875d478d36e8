// Package tui is the interactive terminal surface for buildbench.
//
// It follows the bubbletea model/update/view loop. Every tick polls the
// session for new progress so builds never block the interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"buildbench/internal/build"
	"buildbench/internal/presets"
	"buildbench/internal/progress"
	"buildbench/internal/selection"
	"buildbench/internal/workspace"
)

const pollInterval = 100 * time.Millisecond

// Controller is the coordinating context the interface drives.
type Controller interface {
	Rescan(ctx context.Context) error
	Programs() []workspace.Program
	Toggle(program, feature string) (bool, error)
	ClearSelection()
	OutputDir() string
	SetOutputDir(dir string)
	Busy() bool
	Build(mode build.Mode) (string, error)
	RunPreset(p presets.Preset) (string, error)
	Presets() []presets.Preset
	SavePreset(name string) (presets.Preset, bool, error)
	Poll() []progress.Message
}

// VersionFunc reports the toolchain version shown in the header.
type VersionFunc func(ctx context.Context) (string, error)

type pane int

const (
	panePrograms pane = iota
	paneFeatures
	panePresets
	paneCount
)

type prompt int

const (
	promptNone prompt = iota
	promptOutputDir
	promptPresetName
)

type tickMsg time.Time

type versionMsg struct {
	version string
	err     error
}

type rescanMsg struct {
	err error
}

// Model is the root bubbletea model.
type Model struct {
	ctrl      Controller
	versionFn VersionFunc
	root      string

	programs []workspace.Program
	presets  []presets.Preset
	log      []progress.Message

	focus         pane
	programCursor int
	featureCursor int
	presetCursor  int

	prompt  prompt
	input   textinput.Model
	logView viewport.Model

	version string
	status  string
	err     error

	width  int
	height int
}

// Option customizes a Model.
type Option func(*Model)

// WithVersion shows the toolchain version reported by fn.
func WithVersion(fn VersionFunc) Option {
	return func(m *Model) {
		m.versionFn = fn
	}
}

// WithRoot shows the workspace root in the header.
func WithRoot(root string) Option {
	return func(m *Model) {
		m.root = root
	}
}

// New builds a model over ctrl. The controller should already be scanned.
func New(ctrl Controller, opts ...Option) *Model {
	input := textinput.New()
	input.CharLimit = 256
	input.Width = 50

	m := &Model{
		ctrl:    ctrl,
		input:   input,
		logView: viewport.New(80, 10),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.refresh()
	return m
}

// Run starts the interface and blocks until the operator quits.
func Run(ctx context.Context, ctrl Controller, opts ...Option) error {
	_, err := tea.NewProgram(New(ctrl, opts...), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init starts polling and fetches the toolchain version.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tick()}
	if m.versionFn != nil {
		fn := m.versionFn
		cmds = append(cmds, func() tea.Msg {
			v, err := fn(context.Background())
			return versionMsg{version: v, err: err}
		})
	}
	return tea.Batch(cmds...)
}

func (m *Model) refresh() {
	m.programs = m.ctrl.Programs()
	m.presets = m.ctrl.Presets()
	m.programCursor = clamp(m.programCursor, len(m.programs))
	m.presetCursor = clamp(m.presetCursor, len(m.presets))
	m.featureCursor = clamp(m.featureCursor, len(m.currentFeatures()))
}

func clamp(cursor, n int) int {
	if n == 0 || cursor < 0 {
		return 0
	}
	if cursor >= n {
		return n - 1
	}
	return cursor
}

func (m *Model) currentProgram() *workspace.Program {
	if m.programCursor < len(m.programs) {
		return &m.programs[m.programCursor]
	}
	return nil
}

func (m *Model) currentFeatures() []workspace.Feature {
	if p := m.currentProgram(); p != nil {
		return p.Features
	}
	return nil
}

// Update handles one message.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.logView.Width = max(20, msg.Width-4)
		m.logView.Height = max(3, msg.Height/3)
		return m, nil

	case tickMsg:
		m.drain()
		return m, tick()

	case versionMsg:
		if msg.err == nil {
			m.version = msg.version
		}
		return m, nil

	case rescanMsg:
		m.err = msg.err
		if msg.err == nil {
			m.status = "Workspace rescanned."
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if m.prompt != promptNone {
			return m.updatePrompt(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m *Model) drain() {
	msgs := m.ctrl.Poll()
	if len(msgs) == 0 {
		return
	}
	m.log = append(m.log, msgs...)
	lines := make([]string, len(m.log))
	for i, msg := range m.log {
		lines[i] = renderMessage(msg)
	}
	m.logView.SetContent(strings.Join(lines, "\n"))
	m.logView.GotoBottom()
	for _, msg := range msgs {
		if msg.Kind == progress.KindNotice || msg.Kind == progress.KindError {
			m.presets = m.ctrl.Presets()
		}
	}
}

func (m *Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Up):
		m.move(-1)
	case key.Matches(msg, keys.Down):
		m.move(1)
	case key.Matches(msg, keys.NextPane):
		m.focus = (m.focus + 1) % paneCount
	case key.Matches(msg, keys.PrevPane):
		m.focus = (m.focus + paneCount - 1) % paneCount
	case key.Matches(msg, keys.Toggle):
		m.activate()
	case key.Matches(msg, keys.Build):
		m.startBuild(build.ModeSelective)
	case key.Matches(msg, keys.BuildAll):
		m.startBuild(build.ModeAll)
	case key.Matches(msg, keys.BuildForced):
		m.startBuild(build.ModeAllForced)
	case key.Matches(msg, keys.SavePreset):
		return m, m.openPrompt(promptPresetName, "preset name", "")
	case key.Matches(msg, keys.OutputDir):
		return m, m.openPrompt(promptOutputDir, "output directory (empty clears)", m.ctrl.OutputDir())
	case key.Matches(msg, keys.Rescan):
		ctrl := m.ctrl
		return m, func() tea.Msg {
			return rescanMsg{err: ctrl.Rescan(context.Background())}
		}
	case key.Matches(msg, keys.ClearSel):
		m.ctrl.ClearSelection()
		m.refresh()
	}
	return m, nil
}

func (m *Model) move(delta int) {
	switch m.focus {
	case panePrograms:
		m.programCursor = clamp(m.programCursor+delta, len(m.programs))
		m.featureCursor = 0
	case paneFeatures:
		m.featureCursor = clamp(m.featureCursor+delta, len(m.currentFeatures()))
	case panePresets:
		m.presetCursor = clamp(m.presetCursor+delta, len(m.presets))
	}
}

func (m *Model) activate() {
	switch m.focus {
	case panePrograms:
		m.focus = paneFeatures
	case paneFeatures:
		p := m.currentProgram()
		features := m.currentFeatures()
		if p == nil || m.featureCursor >= len(features) {
			return
		}
		if _, err := m.ctrl.Toggle(p.Name, features[m.featureCursor].Name); err != nil {
			m.err = err
			return
		}
		m.err = nil
		m.refresh()
	case panePresets:
		if m.presetCursor >= len(m.presets) {
			return
		}
		p := m.presets[m.presetCursor]
		if _, err := m.ctrl.RunPreset(p); err == nil {
			m.status = fmt.Sprintf("Preset %q started.", p.Name)
		}
	}
}

func (m *Model) startBuild(mode build.Mode) {
	if _, err := m.ctrl.Build(mode); err == nil {
		m.status = mode.Label() + " build started."
	}
}

func (m *Model) openPrompt(kind prompt, placeholder, value string) tea.Cmd {
	m.prompt = kind
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) closePrompt() {
	m.prompt = promptNone
	m.input.Blur()
	m.input.SetValue("")
}

func (m *Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.closePrompt()
		return m, nil
	case tea.KeyEnter:
		value := m.input.Value()
		kind := m.prompt
		m.closePrompt()
		switch kind {
		case promptOutputDir:
			m.ctrl.SetOutputDir(value)
			if dir := m.ctrl.OutputDir(); dir != "" {
				m.status = "Output directory: " + dir
			} else {
				m.status = "Output directory cleared."
			}
		case promptPresetName:
			// Outcome arrives as a progress message on the next tick.
			_, _, _ = m.ctrl.SavePreset(value)
			m.presets = m.ctrl.Presets()
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the interface.
func (m *Model) View() string {
	header := m.renderHeader()
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderPane(panePrograms, "Programs", m.programLines()),
		m.renderPane(paneFeatures, "Features", m.featureLines()),
		m.renderPane(panePresets, "Presets", m.presetLines()),
	)

	sections := []string{header, body}
	if preview := selection.Preview(m.programs); len(preview) > 0 {
		sections = append(sections, mutedStyle.Render("Will build: ")+strings.Join(preview, "; "))
	}
	if m.prompt != promptNone {
		sections = append(sections, m.input.View())
	}
	sections = append(sections, paneStyle.Width(max(20, m.width-2)).Render(m.logView.View()))
	if m.err != nil {
		sections = append(sections, errorStyle.Render(m.err.Error()))
	} else if m.status != "" {
		sections = append(sections, mutedStyle.Render(m.status))
	}
	sections = append(sections, m.renderHelp())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderHeader() string {
	parts := []string{titleStyle.Render("buildbench")}
	if m.root != "" {
		parts = append(parts, mutedStyle.Render(m.root))
	}
	if m.version != "" {
		parts = append(parts, mutedStyle.Render("toolchain "+m.version))
	}
	if dir := m.ctrl.OutputDir(); dir != "" {
		parts = append(parts, mutedStyle.Render("-> "+dir))
	}
	if m.ctrl.Busy() {
		parts = append(parts, busyStyle.Render("building..."))
	}
	return strings.Join(parts, "  ")
}

func (m *Model) renderPane(p pane, title string, lines []string) string {
	style := paneStyle
	if m.focus == p {
		style = focusedPaneStyle
	}
	width := 24
	if m.width > 0 {
		width = max(20, m.width/3-4)
	}
	content := titleStyle.Render(title) + "\n" + strings.Join(lines, "\n")
	return style.Width(width).Render(content)
}

func (m *Model) programLines() []string {
	if len(m.programs) == 0 {
		return []string{mutedStyle.Render("no programs found")}
	}
	lines := make([]string, len(m.programs))
	for i := range m.programs {
		p := &m.programs[i]
		label := p.Name
		if n := len(p.SelectedFeatures()); n > 0 {
			label = fmt.Sprintf("%s (%d)", label, n)
		}
		lines[i] = m.cursorLine(m.focus == panePrograms, i == m.programCursor, label)
	}
	return lines
}

func (m *Model) featureLines() []string {
	p := m.currentProgram()
	if p == nil {
		return nil
	}
	if len(p.Features) == 0 {
		return []string{mutedStyle.Render("no features")}
	}
	lines := make([]string, len(p.Features))
	for i, f := range p.Features {
		box := "[ ]"
		if p.IsSelected(f.Name) {
			box = "[x]"
		}
		label := box + " " + f.Name
		if len(f.SubFeatures) > 0 {
			label += mutedStyle.Render(" (" + strings.Join(f.SubFeatures, ", ") + ")")
		}
		lines[i] = m.cursorLine(m.focus == paneFeatures, i == m.featureCursor, label)
	}
	return lines
}

func (m *Model) presetLines() []string {
	if len(m.presets) == 0 {
		return []string{mutedStyle.Render("no presets saved")}
	}
	lines := make([]string, 0, len(m.presets)+2)
	for i, p := range m.presets {
		lines = append(lines, m.cursorLine(m.focus == panePresets, i == m.presetCursor, p.Name))
	}
	if m.focus == panePresets && m.presetCursor < len(m.presets) {
		lines = append(lines, "", mutedStyle.Render(presets.Describe(m.presets[m.presetCursor])))
	}
	return lines
}

func (m *Model) cursorLine(focused, selected bool, label string) string {
	if !selected {
		return "  " + label
	}
	if focused {
		return cursorStyle.Render("> ") + label
	}
	return mutedStyle.Render("> ") + label
}

func (m *Model) renderHelp() string {
	bindings := keys.help()
	parts := make([]string, len(bindings))
	for i, b := range bindings {
		h := b.Help()
		parts[i] = h.Key + " " + h.Desc
	}
	return mutedStyle.Render(strings.Join(parts, " · "))
}
