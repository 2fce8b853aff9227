package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"codespice/internal/driver"
)

// visibleRows caps the file list; a directory scan shows the most recent files.
const visibleRows = 12

const labelWidth = 12

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	faintStyle = lipgloss.NewStyle().Faint(true)

	labelColors = map[string]lipgloss.Color{
		"done":      "2",
		"cached":    "4",
		"error":     "1",
		"walking":   "6",
		"loading":   "6",
		"analyzing": "6",
	}
)

// row is one file line of the view. weight is its share of the bar, 0..1.
type row struct {
	path   string
	label  string
	weight float64
	diags  int
	final  bool
}

// tally counts finished files across the run.
type tally struct {
	finished    int
	cached      int
	failed      int
	diagnostics int
}

func (t *tally) add(status driver.Status, diags int) {
	t.finished++
	t.diagnostics += diags
	switch status {
	case driver.StatusCached:
		t.cached++
	case driver.StatusError:
		t.failed++
	}
}

type progressModel struct {
	tally

	title      string
	events     <-chan driver.Event
	spinner    spinner.Model
	bar        progress.Model
	items      []row
	byPath     map[string]int
	stageLabel string
	width      int
	done       bool
}

type eventMsg driver.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders driver progress.
// Files appear as the walk queues them; the model quits when events closes.
func NewProgressModel(title string, events <-chan driver.Event) tea.Model {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 76

	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		bar:     bar,
		byPath:  make(map[string]int),
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitEvent)
}

// waitEvent blocks on the driver channel; a closed channel ends the run.
func (m *progressModel) waitEvent() tea.Msg {
	ev, ok := <-m.events
	if !ok {
		return doneMsg{}
	}
	return eventMsg(ev)
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case eventMsg:
		cmd = tea.Batch(m.observe(driver.Event(msg)), m.waitEvent)
	case doneMsg:
		m.done = true
		cmd = tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			cmd = tea.Quit
		}
	case spinner.TickMsg:
		if !m.done {
			m.spinner, cmd = m.spinner.Update(msg)
		}
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.bar.Width = msg.Width - 4
		}
	case progress.FrameMsg:
		var next tea.Model
		next, cmd = m.bar.Update(msg)
		m.bar = next.(progress.Model)
	}
	return m, cmd
}

// observe folds one driver event into the model and animates the bar.
func (m *progressModel) observe(ev driver.Event) tea.Cmd {
	label := labelFor(ev.Stage, ev.Status)
	if ev.File == "" {
		if label != "" {
			m.stageLabel = label
		}
		return nil
	}

	idx, seen := m.byPath[ev.File]
	if !seen {
		idx = len(m.items)
		m.byPath[ev.File] = idx
		m.items = append(m.items, row{path: ev.File, label: "queued"})
	}
	r := &m.items[idx]
	if label != "" {
		r.label = label
		r.weight = weightOf(ev.Stage, ev.Status)
	}
	if isFinal(ev.Status) && !r.final {
		r.final = true
		r.weight = 1
		r.diags = ev.Diagnostics
		m.add(ev.Status, ev.Diagnostics)
	}
	return m.bar.SetPercent(m.percent())
}

func (m *progressModel) percent() float64 {
	if len(m.items) == 0 {
		return 0
	}
	var sum float64
	for _, r := range m.items {
		sum += r.weight
	}
	return sum / float64(len(m.items))
}

func (m *progressModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.header()))
	b.WriteString("\n\n")
	m.writeRows(&b)
	fmt.Fprintf(&b, "\n  %d/%d files, %d cached, %d failed, %d diagnostics\n",
		m.finished, len(m.items), m.cached, m.failed, m.diagnostics)
	if m.done {
		b.WriteString(m.bar.ViewAs(1))
	} else {
		b.WriteString(m.bar.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *progressModel) header() string {
	h := m.title
	if m.stageLabel != "" {
		h += " (" + m.stageLabel + ")"
	}
	if m.done {
		return "done: " + h
	}
	return m.spinner.View() + " " + h
}

func (m *progressModel) writeRows(b *strings.Builder) {
	nameWidth := max(m.width-labelWidth-16, 20)
	rows := m.items
	if hidden := len(rows) - visibleRows; hidden > 0 {
		fmt.Fprintf(b, "  %s\n", faintStyle.Render(fmt.Sprintf("… %d more", hidden)))
		rows = rows[hidden:]
	}
	for _, r := range rows {
		label := lipgloss.NewStyle().Foreground(colorOf(r.label)).Render(fmt.Sprintf("%*s", labelWidth, r.label))
		fmt.Fprintf(b, "  %s %s", label, truncate(r.path, nameWidth))
		if r.final && r.diags > 0 {
			fmt.Fprintf(b, "  %d diag", r.diags)
		}
		b.WriteString("\n")
	}
}

func colorOf(label string) lipgloss.Color {
	if c, ok := labelColors[label]; ok {
		return c
	}
	return "7"
}

func isFinal(status driver.Status) bool {
	return status == driver.StatusDone || status == driver.StatusCached || status == driver.StatusError
}

// weightOf estimates how far along a working file is.
func weightOf(stage driver.Stage, status driver.Status) float64 {
	if status != driver.StatusWorking {
		return 0
	}
	switch stage {
	case driver.StageLoad:
		return 0.2
	case driver.StageAnalyze:
		return 0.6
	}
	return 0
}

func labelFor(stage driver.Stage, status driver.Status) string {
	switch status {
	case driver.StatusQueued:
		return "queued"
	case driver.StatusDone:
		return "done"
	case driver.StatusCached:
		return "cached"
	case driver.StatusError:
		return "error"
	case driver.StatusWorking:
		switch stage {
		case driver.StageWalk:
			return "walking"
		case driver.StageLoad:
			return "loading"
		case driver.StageAnalyze:
			return "analyzing"
		}
	}
	return ""
}

// truncate shortens value to width display cells, marking the cut with "...".
func truncate(value string, width int) string {
	switch {
	case width <= 0 || runewidth.StringWidth(value) <= width:
		return value
	case width <= 3:
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
