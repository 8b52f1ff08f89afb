package tui

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/stageplan/internal/plan"
	"github.com/alexisbeaulieu97/stageplan/internal/step"
)

// chrome is the number of lines View spends outside the step list.
const chrome = 8

// Model is the Bubbletea state of the interactive plan browser.
type Model struct {
	plan     *plan.Plan
	level    map[*step.Step]int
	index    map[*step.Step]int
	list     viewport.Model
	cursor   int
	detail   bool
	ready    bool
	quitting bool
}

// NewModel creates a browser over p. levels may be nil.
func NewModel(p *plan.Plan, levels [][]*step.Step) Model {
	m := Model{
		plan:   p,
		level:  make(map[*step.Step]int),
		index:  make(map[*step.Step]int),
		list:   viewport.New(80, 20),
		detail: true,
	}

	for i, lvl := range levels {
		for _, s := range lvl {
			m.level[s] = i + 1
		}
	}
	for i, s := range m.steps() {
		m.index[s] = i
	}
	m.refresh()

	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Selected returns the step under the cursor.
func (m Model) Selected() *step.Step {
	steps := m.steps()
	if len(steps) == 0 {
		return nil
	}
	return steps[m.cursor]
}

// Quitting reports whether the user asked to leave.
func (m Model) Quitting() bool {
	return m.quitting
}

func (m Model) steps() []*step.Step {
	if m.plan == nil {
		return nil
	}
	return m.plan.Steps
}

func (m *Model) move(delta int) {
	n := len(m.steps())
	if n == 0 {
		return
	}
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= n {
		m.cursor = n - 1
	}
	m.refresh()

	if m.cursor < m.list.YOffset {
		m.list.SetYOffset(m.cursor)
	} else if m.cursor >= m.list.YOffset+m.list.Height {
		m.list.SetYOffset(m.cursor - m.list.Height + 1)
	}
}

func (m *Model) resize(width, height int) {
	m.list.Width = width
	m.list.Height = max(height-chrome, 3)
	m.ready = true
	m.refresh()
}

func (m *Model) refresh() {
	m.list.SetContent(m.renderList())
}
