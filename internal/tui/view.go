package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/alexisbeaulieu97/stageplan/internal/step"
)

// View renders the current state of the model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	root := "(none)"
	if m.plan != nil {
		root = string(m.plan.Root)
	}

	sections := []string{
		titleStyle.Render(fmt.Sprintf("stageplan • %s • %d steps", root, len(m.steps()))),
		m.list.View(),
	}

	if m.detail {
		if s := m.Selected(); s != nil {
			sections = append(sections, sectionStyle.Render("Step"), detailStyle.Render(m.renderDetail(s)))
		}
	}

	sections = append(sections, helpStyle.Render("↑/↓ move • enter toggle details • q quit"))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderList() string {
	steps := m.steps()
	if len(steps) == 0 {
		return edgeStyle.Render("  nothing to do")
	}

	lines := make([]string, len(steps))
	for i, s := range steps {
		marker := "  "
		label := fmt.Sprintf("%3d %-7s %s", i+1, s.Kind, s.Desc)
		if i == m.cursor {
			marker = cursorStyle.Render("▸ ")
			label = cursorStyle.Render(label)
		}
		if lvl, ok := m.level[s]; ok {
			label += " " + levelStyle.Render(fmt.Sprintf("L%d", lvl))
		}
		lines[i] = marker + label
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderDetail(s *step.Step) string {
	lines := []string{s.String()}
	if len(s.OnSuccess) > 0 {
		lines = append(lines, edgeStyle.Render("after: "+m.refs(s.OnSuccess)))
	}
	if len(s.OnFail) > 0 {
		lines = append(lines, failureStyle.Render("on failure of: "+m.refs(s.OnFail)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) refs(steps []*step.Step) string {
	parts := make([]string, len(steps))
	for i, s := range steps {
		parts[i] = fmt.Sprintf("#%d %s", m.index[s]+1, s.Desc)
	}
	return strings.Join(parts, ", ")
}
