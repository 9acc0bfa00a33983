// Package ui renders fixture progress in the terminal.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"hugotest/internal/suite"
)

// maxRows bounds the fixture list; finished fixtures scroll off first.
const maxRows = 12

type progressModel struct {
	title      string
	events     <-chan suite.Event
	spinner    spinner.Model
	prog       progress.Model
	items      []fileItem
	index      map[string]int
	stageLabel string
	width      int
	done       bool
}

type fileItem struct {
	path   string
	label  string
	status suite.Status
	stage  suite.Stage
}

type eventMsg suite.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model fed by events. files are the
// absolute fixture paths; labels shown are relative to root. The model
// quits when events is closed.
func NewProgressModel(title, root string, files []string, events <-chan suite.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	items := make([]fileItem, 0, len(files))
	index := make(map[string]int, len(files))
	for i, file := range files {
		items = append(items, fileItem{path: file, label: relLabel(root, file), status: suite.StatusQueued})
		index[file] = i
	}
	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   items,
		index:   index,
		width:   80,
	}
}

func relLabel(root, file string) string {
	if root == "" {
		return file
	}
	if rel, ok := strings.CutPrefix(file, strings.TrimRight(root, "/\\")+"/"); ok {
		return rel
	}
	return file
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(suite.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		pm, cmd := m.prog.Update(msg)
		m.prog = pm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	if m.stageLabel != "" {
		header = fmt.Sprintf("%s (%s)", header, m.stageLabel)
	}
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	statusWidth := 12
	nameWidth := max(m.width-statusWidth-4, 20)
	for _, item := range m.visible() {
		status := statusText(item)
		line := fmt.Sprintf("  %s %s", styleStatus(item.status).Render(fmt.Sprintf("%12s", status)), truncate(item.label, nameWidth))
		b.WriteString(line)
		b.WriteString("\n")
	}
	if hidden := len(m.items) - len(m.visible()); hidden > 0 {
		fmt.Fprintf(&b, "  %12s %d more\n", "", hidden)
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	return b.String()
}

// visible returns working and failed fixtures first, then queued ones,
// then finished ones, capped at maxRows.
func (m *progressModel) visible() []fileItem {
	var working, queued, finished []fileItem
	for _, it := range m.items {
		switch it.status {
		case suite.StatusWorking, suite.StatusError:
			working = append(working, it)
		case suite.StatusQueued:
			queued = append(queued, it)
		default:
			finished = append(finished, it)
		}
	}
	out := append(append(working, queued...), finished...)
	if len(out) > maxRows {
		out = out[:maxRows]
	}
	return out
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev suite.Event) tea.Cmd {
	if ev.File == "" {
		m.stageLabel = stageLabel(ev.Stage, ev.Status)
		return nil
	}
	idx, ok := m.index[ev.File]
	if !ok {
		return nil
	}
	m.items[idx].status = ev.Status
	m.items[idx].stage = ev.Stage

	total := 0.0
	for _, item := range m.items {
		total += fraction(item)
	}
	return m.prog.SetPercent(total / float64(len(m.items)))
}

func fraction(it fileItem) float64 {
	switch it.status {
	case suite.StatusDone, suite.StatusCached, suite.StatusSkipped, suite.StatusError:
		return 1
	case suite.StatusWorking:
		return 0.5
	}
	return 0
}

func statusText(it fileItem) string {
	if it.status == suite.StatusWorking {
		return stageVerb(it.stage)
	}
	return string(it.status)
}

func stageLabel(stage suite.Stage, status suite.Status) string {
	switch status {
	case suite.StatusWorking:
		return stageVerb(stage)
	case suite.StatusError:
		return string(stage) + " failed"
	}
	return string(stage) + " " + string(status)
}

func stageVerb(stage suite.Stage) string {
	switch stage {
	case suite.StageDiscover:
		return "discovering"
	case suite.StageBuild:
		return "building"
	case suite.StageParse:
		return "parsing"
	case suite.StageExtract:
		return "extracting"
	case suite.StageCorrelate:
		return "correlating"
	case suite.StageMaterialize:
		return "materializing"
	}
	return "working"
}

func styleStatus(status suite.Status) lipgloss.Style {
	switch status {
	case suite.StatusDone, suite.StatusCached:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case suite.StatusError:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case suite.StatusWorking:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	case suite.StatusSkipped:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
