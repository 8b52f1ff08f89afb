package plan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/stageplan/internal/step"
	planerrors "github.com/alexisbeaulieu97/stageplan/pkg/errors"
)

func mustStep(t *testing.T, desc, fun string, args any) *step.Step {
	t.Helper()
	s, err := step.New(desc, fun, args)
	require.NoError(t, err)
	return s
}

func TestLinkDirectives(t *testing.T) {
	t.Parallel()

	a := mustStep(t, "A", step.FunStateApply, []any{map[string]any{"sls": "ceph.a"}})
	b := mustStep(t, "B", step.FunRunnerCall, []any{
		map[string]any{"name": "state.orch"},
		map[string]any{"require": []any{map[string]any{"salt": "A"}}},
	})
	c := mustStep(t, "C", "cmd.run", []any{
		map[string]any{"name": "echo failed"},
		map[string]any{"onfail": []any{map[string]any{"salt": "B"}}},
		map[string]any{"watch": "A"},
	})
	d := mustStep(t, "D", "file.managed", map[string]any{
		"onchanges": []any{"C", map[string]any{"salt": "A"}},
	})

	steps := []*step.Step{a, b, c, d}
	require.NoError(t, Link(steps))

	require.Empty(t, a.OnSuccess)
	require.Equal(t, []*step.Step{a}, b.OnSuccess)
	require.Equal(t, []*step.Step{a}, c.OnSuccess)
	require.Equal(t, []*step.Step{b}, c.OnFail)
	require.Equal(t, []*step.Step{c, a}, d.OnSuccess)
	require.Empty(t, d.OnFail)
}

func TestLinkUnresolvedRequisite(t *testing.T) {
	t.Parallel()

	b := mustStep(t, "B", step.FunRunnerCall, []any{
		map[string]any{"name": "state.orch"},
		map[string]any{"require": []any{map[string]any{"salt": "missing"}}},
	})

	err := Link([]*step.Step{b})

	var reqErr *planerrors.RequisiteError
	require.ErrorAs(t, err, &reqErr)
	require.Equal(t, "B", reqErr.Step)
	require.Equal(t, DirectiveRequire, reqErr.Directive)
	require.Equal(t, "salt", reqErr.Module)
	require.Equal(t, "missing", reqErr.Name)
}

func TestLinkIgnoresEmptyDirectives(t *testing.T) {
	t.Parallel()

	s := mustStep(t, "S", "cmd.run", map[string]any{
		"require":   []any{},
		"watch":     "",
		"onchanges": nil,
		"onfail":    false,
	})

	require.NoError(t, Link([]*step.Step{s}))
	require.Empty(t, s.OnSuccess)
	require.Empty(t, s.OnFail)
}

func TestLinkMalformedArguments(t *testing.T) {
	t.Parallel()

	s := &step.Step{Kind: step.KindRunnerCall, Desc: "S", Args: "oops"}

	var argErr *planerrors.ArgumentError
	require.ErrorAs(t, Link([]*step.Step{s}), &argErr)
}

func TestSearch(t *testing.T) {
	t.Parallel()

	state := mustStep(t, "apply", step.FunStateApply, []any{map[string]any{"sls": "ceph.mon"}})
	runner := mustStep(t, "orch", step.FunRunnerCall, []any{map[string]any{"name": "state.orch"}})
	function := mustStep(t, "sync", "salt.function", map[string]any{"name": "saltutil.sync_all"})
	cmd := mustStep(t, "restart", "cmd.run", map[string]any{"name": "systemctl restart ceph"})
	dupe := mustStep(t, "apply", "cmd.run", nil)
	steps := []*step.Step{state, runner, function, cmd, dupe}

	tests := []struct {
		name   string
		module string
		target string
		want   *step.Step
	}{
		{name: "salt hint matches state by desc", module: "salt", target: "apply", want: state},
		{name: "salt hint matches runner by name arg", module: "salt", target: "state.orch", want: runner},
		{name: "salt hint matches salt functions", module: "salt", target: "sync", want: function},
		{name: "module hint matches by prefix", module: "cmd", target: "restart", want: cmd},
		{name: "module hint matches name argument", module: "cmd", target: "systemctl restart ceph", want: cmd},
		{name: "module hint skips state steps", module: "cmd", target: "apply", want: dupe},
		{name: "module hint mismatch", module: "pkg", target: "restart", want: nil},
		{name: "no hint takes first match", module: "", target: "apply", want: state},
		{name: "no hint by name argument", module: "", target: "saltutil.sync_all", want: function},
		{name: "unknown name", module: "", target: "nothing", want: nil},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Search(steps, tt.module, tt.target)
			require.NoError(t, err)
			require.Same(t, tt.want, got)
		})
	}
}

func TestReferencesFlattenMappings(t *testing.T) {
	t.Parallel()

	refs := references([]any{
		map[string]any{"salt": "b", "cmd": "a"},
		42,
	})

	require.Equal(t, []reference{
		{module: "cmd", name: "a"},
		{module: "salt", name: "b"},
		{name: "42"},
	}, refs)
}
