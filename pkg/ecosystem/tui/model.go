// Package tui implements the watch view: a Bubble Tea app that ticks a
// mission engine on a timer and shows which commands are running.
package tui

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/ormasoftchile/missionseq/pkg/diagram"
	"github.com/ormasoftchile/missionseq/pkg/kernel/command"
	"github.com/ormasoftchile/missionseq/pkg/kernel/engine"
)

const (
	minInterval = 10 * time.Millisecond
	maxInterval = 2 * time.Second
	logSize     = 8
)

// Model is the Bubble Tea model for missionseq watch.
type Model struct {
	name        string
	description string
	eng         *engine.Engine
	rows        []diagram.Row
	log         *eventLog

	interval time.Duration
	paused   bool
	showVars bool
	gen      int // invalidates pending tickMsgs after pause or restart

	spinner spinner.Model
	outline viewport.Model
	ready   bool
	width   int
	height  int
}

// NewModel creates a watch model that runs seq with cfg, one tick every
// interval. cfg.Observer is replaced by the view's event log and a nil
// cfg.Stdout discards Report output.
func NewModel(name, description string, seq *command.Sequence, cfg engine.RunConfig, interval time.Duration) Model {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	if cfg.Stdout == nil {
		cfg.Stdout = io.Discard
	}
	log := &eventLog{}
	cfg.Observer = log
	eng := engine.New(seq, cfg)
	log.eng = eng

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return Model{
		name:        name,
		description: description,
		eng:         eng,
		rows:        diagram.Outline(seq),
		log:         log,
		interval:    interval,
		spinner:     sp,
	}
}

// Engine returns the engine the view drives.
func (m Model) Engine() *engine.Engine { return m.eng }

// --- Messages ---

// tickMsg asks the model to run one engine tick.
type tickMsg struct{ gen int }

func (m Model) scheduleTick() tea.Cmd {
	gen := m.gen
	return tea.Tick(m.interval, func(time.Time) tea.Msg { return tickMsg{gen: gen} })
}

// Init starts the spinner and the tick timer.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.scheduleTick())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case tickMsg:
		if msg.gen != m.gen || m.paused || m.eng.Done() {
			return m, nil
		}
		m.eng.Step()
		m.refresh()
		if m.eng.Done() {
			return m, nil
		}
		return m, m.scheduleTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case matchKey(msg, keys.Quit):
		if !m.eng.Done() {
			m.eng.Abort()
		}
		return m, tea.Quit

	case matchKey(msg, keys.Pause):
		if m.eng.Done() {
			return m, nil
		}
		m.paused = !m.paused
		m.gen++
		if !m.paused {
			return m, m.scheduleTick()
		}

	case matchKey(msg, keys.Step):
		if !m.eng.Done() {
			m.paused = true
			m.gen++
			m.eng.Step()
			m.refresh()
		}

	case matchKey(msg, keys.Restart):
		m.eng.Restart()
		m.log.reset()
		m.gen++
		m.refresh()
		if !m.paused {
			return m, m.scheduleTick()
		}

	case matchKey(msg, keys.Faster):
		m.interval = max(m.interval/2, minInterval)

	case matchKey(msg, keys.Slower):
		m.interval = min(m.interval*2, maxInterval)

	case matchKey(msg, keys.Vars):
		m.showVars = !m.showVars

	case matchKey(msg, keys.PgUp):
		m.outline.HalfViewUp()

	case matchKey(msg, keys.PgDown):
		m.outline.HalfViewDown()

	default:
		var cmd tea.Cmd
		m.outline, cmd = m.outline.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) resize() {
	h := m.height - 12
	if h < 3 {
		h = 3
	}
	w := m.width - 4
	if w < 20 {
		w = 20
	}
	if !m.ready {
		m.outline = viewport.New(w, h)
		m.ready = true
	} else {
		m.outline.Width = w
		m.outline.Height = h
	}
	m.refresh()
}

func (m *Model) refresh() {
	if m.ready {
		m.outline.SetContent(m.renderOutline())
	}
}

// renderOutline draws one line per outline row, highlighting the commands
// on the running path.
func (m Model) renderOutline() string {
	width := 0
	for _, r := range m.rows {
		if w := runewidth.StringWidth(strings.Repeat("  ", r.Depth) + r.Text); w > width {
			width = w
		}
	}

	var b strings.Builder
	for _, r := range m.rows {
		text := strings.Repeat("  ", r.Depth) + r.Text
		if r.Node == command.NoNode {
			b.WriteString("  " + rowArm.Render(text) + "\n")
			continue
		}
		pad := strings.Repeat(" ", width-runewidth.StringWidth(text))
		line := rowLine.Render(fmt.Sprintf(" :%d", r.Line))
		if m.eng.Running(r.Node) {
			b.WriteString(rowRunning.Render(GlyphRunning+" "+text) + pad + line + "\n")
		} else {
			b.WriteString("  " + rowNormal.Render(text) + pad + line + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("missionseq watch: "+m.name) + " " +
		tickBadgeStyle.Render(fmt.Sprintf("tick %d", m.eng.Tick())) + "\n")
	if m.description != "" {
		b.WriteString(RenderMarkdown(m.description, max(m.width-4, 0)) + "\n")
	}
	b.WriteString("\n")

	if m.ready {
		b.WriteString(panelBorder.Render(m.outline.View()))
	} else {
		b.WriteString(panelBorder.Render(m.renderOutline()))
	}
	b.WriteString("\n")
	b.WriteString(m.statusLine() + "\n")

	if m.showVars {
		b.WriteString(panelTitle.Render("Variables") + "\n")
		b.WriteString(renderVars(m.eng.Vars()) + "\n")
	}

	if lines := m.recent(); len(lines) > 0 {
		b.WriteString(panelTitle.Render("Events") + "\n")
		for _, l := range lines {
			b.WriteString("  " + keyDescStyle.Render(l) + "\n")
		}
	}

	b.WriteString("\n " + keyBarText(m.paused, m.eng.Done()))
	return b.String()
}

func (m Model) statusLine() string {
	r := m.eng.Result()
	switch {
	case r == nil && m.paused:
		return statusRunningStyle.Render(fmt.Sprintf("  paused at tick %d", m.eng.Tick()))
	case r == nil:
		return "  " + m.spinner.View() + statusRunningStyle.Render(fmt.Sprintf(" running, %s per tick", m.interval))
	case r.Error != nil:
		return statusFailedStyle.Render(fmt.Sprintf("  %s %s after %d ticks: %v", GlyphFailed, r.Status, r.Ticks, r.Error))
	case r.Status == engine.StatusStopped:
		return statusFailedStyle.Render(fmt.Sprintf("  %s stopped after %d ticks", GlyphStopped, r.Ticks))
	default:
		return statusPassedStyle.Render(fmt.Sprintf("  %s %s after %d ticks", GlyphDone, r.Status, r.Ticks))
	}
}

// recent merges the last branch events and Report lines.
func (m Model) recent() []string {
	lines := append([]string(nil), m.log.lines...)
	for _, out := range m.eng.Outputs() {
		lines = append(lines, "report: "+out)
	}
	if len(lines) > logSize {
		lines = lines[len(lines)-logSize:]
	}
	return lines
}

func renderVars(vars map[string]any) string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var rows []string
	for _, k := range keys {
		rows = append(rows, fmt.Sprintf("  %s = %v", k, vars[k]))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// eventLog records branch selections and exits for the Events panel.
type eventLog struct {
	eng   *engine.Engine
	lines []string
}

func (l *eventLog) add(format string, args ...any) {
	l.lines = append(l.lines, fmt.Sprintf("tick %d: ", l.eng.Tick())+fmt.Sprintf(format, args...))
	if len(l.lines) > logSize {
		l.lines = l.lines[len(l.lines)-logSize:]
	}
}

func (l *eventLog) reset() { l.lines = nil }

func (l *eventLog) CommandStarted(command.Command) {}
func (l *eventLog) Snapshot(command.Snapshot)      {}

func (l *eventLog) BranchSelected(c command.Container, branch int) {
	if branch == command.NoBranch {
		l.add("%s skipped", c.Name())
		return
	}
	l.add("%s → branch %d", c.Name(), branch)
}

func (l *eventLog) BranchExited(c command.Container, branch int) {
	l.add("%s ← branch %d", c.Name(), branch)
}
