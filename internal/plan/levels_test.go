package plan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/stageplan/internal/step"
	planerrors "github.com/alexisbeaulieu97/stageplan/pkg/errors"
)

func TestLevels(t *testing.T) {
	t.Parallel()

	a := &step.Step{Desc: "a"}
	b := &step.Step{Desc: "b"}
	c := &step.Step{Desc: "c", OnSuccess: []*step.Step{a}}
	d := &step.Step{Desc: "d", OnSuccess: []*step.Step{a}, OnFail: []*step.Step{c}}
	e := &step.Step{Desc: "e", OnSuccess: []*step.Step{b}}

	levels, err := Levels([]*step.Step{a, b, c, d, e})
	require.NoError(t, err)
	require.Len(t, levels, 3)
	require.Equal(t, []string{"a", "b"}, descs(levels[0]))
	require.Equal(t, []string{"c", "e"}, descs(levels[1]))
	require.Equal(t, []string{"d"}, descs(levels[2]))
}

func TestLevelsEmpty(t *testing.T) {
	t.Parallel()

	levels, err := Levels(nil)
	require.NoError(t, err)
	require.Empty(t, levels)
}

func TestLevelsCycle(t *testing.T) {
	t.Parallel()

	a := &step.Step{Desc: "a"}
	b := &step.Step{Desc: "b", OnSuccess: []*step.Step{a}}
	a.OnSuccess = []*step.Step{b}

	_, err := Levels([]*step.Step{a, b})

	var validationErr *planerrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestLevelsForeignDependency(t *testing.T) {
	t.Parallel()

	outside := &step.Step{Desc: "outside"}
	a := &step.Step{Desc: "a", OnSuccess: []*step.Step{outside}}

	_, err := Levels([]*step.Step{a})
	require.Error(t, err)
}
