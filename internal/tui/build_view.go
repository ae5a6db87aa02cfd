// internal/tui/build_view.go
//
// Live build progress. The pool runs in a goroutine and reports each stage
// change as an EventMsg; a DoneMsg carries the combined build error and ends
// the program.

package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/dfxcore/internal/pool"
)

// ErrInterrupted is returned when the user quits before the build finishes.
var ErrInterrupted = errors.New("tui: build interrupted")

var (
	titleStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	labelStyleDone    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	labelStyleFailed  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	labelStyleRunning = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	labelStyleSkipped = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
	labelStyleDefault = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC"))
	detailTextStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
	footerStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

// EventMsg forwards a pool event into the program.
type EventMsg pool.Event

// DoneMsg ends the program with the build result.
type DoneMsg struct {
	Err error
}

type canisterRow struct {
	name   string
	stage  pool.Stage
	detail string
}

// BuildModel renders one row per canister.
type BuildModel struct {
	network string
	rows    []canisterRow
	index   map[string]int
	spinner spinner.Model
	width   int
	done    bool
	err     error
}

// NewBuildModel lists names in the order they were loaded.
func NewBuildModel(network string, names []string) BuildModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = labelStyleRunning
	m := BuildModel{network: network, index: map[string]int{}, spinner: s}
	for _, name := range names {
		m.index[name] = len(m.rows)
		m.rows = append(m.rows, canisterRow{name: name})
	}
	return m
}

func (m BuildModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m BuildModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case EventMsg:
		m.apply(pool.Event(msg))
		return m, nil
	case DoneMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if !m.done {
				m.err = ErrInterrupted
			}
			return m, tea.Quit
		}
		return m, nil
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *BuildModel) apply(ev pool.Event) {
	idx, ok := m.index[ev.Canister]
	if !ok {
		m.index[ev.Canister] = len(m.rows)
		m.rows = append(m.rows, canisterRow{name: ev.Canister})
		idx = len(m.rows) - 1
	}
	row := &m.rows[idx]
	row.stage = ev.Stage
	switch ev.Stage {
	case pool.StageFailed:
		if ev.Err != nil {
			row.detail = firstLine(ev.Err.Error())
		}
	case pool.StageSkipped:
		row.detail = ev.Reason
	case pool.StageDone:
		row.detail = ev.Output.WasmPath
	default:
		row.detail = ""
	}
}

func (m BuildModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Building canisters on %s", m.network)))
	b.WriteString("\n\n")
	for _, row := range m.rows {
		b.WriteString(m.renderRow(row))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(footerStyle.Render(m.footer()))
	b.WriteString("\n")
	if m.width > 0 {
		return lipgloss.NewStyle().Width(m.width).Render(b.String())
	}
	return b.String()
}

func (m BuildModel) renderRow(row canisterRow) string {
	var marker string
	var style lipgloss.Style
	switch row.stage {
	case "":
		marker, style = " ", labelStyleDefault
	case pool.StageDone:
		marker, style = "✓", labelStyleDone
	case pool.StageFailed:
		marker, style = "✗", labelStyleFailed
	case pool.StageSkipped:
		marker, style = "-", labelStyleSkipped
	default:
		marker, style = m.spinner.View(), labelStyleRunning
	}
	label := "waiting"
	if row.stage != "" {
		label = string(row.stage)
	}
	line := fmt.Sprintf("%s %-20s %s", marker, row.name, style.Render(label))
	if row.detail != "" {
		line += " " + detailTextStyle.Render(row.detail)
	}
	return line
}

func (m BuildModel) footer() string {
	var built, failed, skipped int
	for _, row := range m.rows {
		switch row.stage {
		case pool.StageDone:
			built++
		case pool.StageFailed:
			failed++
		case pool.StageSkipped:
			skipped++
		}
	}
	summary := fmt.Sprintf("%d built, %d failed, %d skipped", built, failed, skipped)
	if !m.done {
		summary += " · q to abort"
	}
	return summary
}

// Err returns the build result once the program has ended.
func (m BuildModel) Err() error { return m.err }

// Run shows progress while build runs in the background. build receives
// the observer to hand to the pool.
func Run(network string, names []string, build func(pool.Observer) error, opts ...tea.ProgramOption) error {
	p := tea.NewProgram(NewBuildModel(network, names), opts...)
	go func() {
		err := build(func(ev pool.Event) { p.Send(EventMsg(ev)) })
		p.Send(DoneMsg{Err: err})
	}()
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	model, ok := final.(BuildModel)
	if !ok {
		return fmt.Errorf("tui: unexpected final model %T", final)
	}
	return model.Err()
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
