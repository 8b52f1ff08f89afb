package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/stageplan/internal/plan"
	"github.com/alexisbeaulieu97/stageplan/internal/step"
)

func samplePlan() (*plan.Plan, [][]*step.Step) {
	a := &step.Step{Kind: step.KindStateApply, Desc: "ready", State: "ceph.setup", Target: "*"}
	b := &step.Step{Kind: step.KindRunnerCall, Desc: "restart", Fun: "state.orch", OnSuccess: []*step.Step{a}}
	c := &step.Step{Kind: step.KindBuiltin, Desc: "cleanup", Fun: "cmd.run", Args: map[string]any{"nokey": "true"}, OnFail: []*step.Step{b}}

	p := &plan.Plan{Root: "ceph.stage.0", StagesOnly: true, Steps: []*step.Step{a, b, c}}
	return p, [][]*step.Step{{a}, {b}, {c}}
}

func press(m Model, msg tea.KeyMsg) Model {
	updated, _ := m.Update(msg)
	return updated.(Model)
}

func TestUpdateMovesCursor(t *testing.T) {
	m := NewModel(samplePlan())
	require.Equal(t, "ready", m.Selected().Desc)

	m = press(m, tea.KeyMsg{Type: tea.KeyDown})
	require.Equal(t, "restart", m.Selected().Desc)

	m = press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	m = press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	require.Equal(t, "cleanup", m.Selected().Desc)

	m = press(m, tea.KeyMsg{Type: tea.KeyUp})
	require.Equal(t, "restart", m.Selected().Desc)

	m = press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'g'}})
	require.Equal(t, "ready", m.Selected().Desc)
}

func TestUpdateTogglesDetail(t *testing.T) {
	m := NewModel(samplePlan())
	m = press(m, tea.KeyMsg{Type: tea.KeyDown})
	require.Contains(t, m.View(), "SaltRunner(desc: restart, fun: state.orch)")
	require.Contains(t, m.View(), "after: #1 ready")

	m = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotContains(t, m.View(), "SaltRunner(")
}

func TestUpdateHandlesWindowSize(t *testing.T) {
	m := NewModel(samplePlan())
	updated, cmd := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	require.Nil(t, cmd)
	m = updated.(Model)
	require.True(t, m.ready)
	require.Equal(t, 22, m.list.Height)
	require.Equal(t, 100, m.list.Width)
}

func TestUpdateQuits(t *testing.T) {
	m := NewModel(samplePlan())
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	m = updated.(Model)
	require.True(t, m.Quitting())
	require.Empty(t, m.View())
}

func TestViewShowsPlan(t *testing.T) {
	m := NewModel(samplePlan())
	view := m.View()
	require.Contains(t, view, "ceph.stage.0")
	require.Contains(t, view, "3 steps")
	require.Contains(t, view, "cleanup")
	require.Contains(t, view, "L3")
}

func TestEmptyPlan(t *testing.T) {
	m := NewModel(&plan.Plan{Root: "ceph.stage.9"}, nil)
	require.Nil(t, m.Selected())
	m = press(m, tea.KeyMsg{Type: tea.KeyDown})
	require.Contains(t, m.View(), "nothing to do")
}
