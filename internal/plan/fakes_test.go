package plan

import (
	"context"
	"fmt"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/stageplan/internal/metrics"
	"github.com/alexisbeaulieu97/stageplan/internal/render"
	"github.com/alexisbeaulieu97/stageplan/internal/stage"
	"github.com/alexisbeaulieu97/stageplan/internal/step"
	planerrors "github.com/alexisbeaulieu97/stageplan/pkg/errors"
)

// tree is an in-memory state tree: stage documents keyed by ID plus the set
// of composite (directory) stages.
type tree struct {
	composite map[stage.ID]bool
	docs      map[stage.ID]string
	renders   map[string]int
}

func newTree(docs map[stage.ID]string, composite ...stage.ID) *tree {
	t := &tree{
		composite: make(map[stage.ID]bool),
		docs:      docs,
		renders:   make(map[string]int),
	}
	for _, id := range composite {
		t.composite[id] = true
	}
	return t
}

func (t *tree) IsComposite(id stage.ID) bool {
	return t.composite[id]
}

func (t *tree) Locate(id stage.ID) (string, error) {
	if _, ok := t.docs[id]; !ok {
		return "", planerrors.NewNotFoundError(string(id), id.Path()+".sls")
	}
	if t.composite[id] {
		return id.Path() + "/init.sls", nil
	}
	return id.Path() + ".sls", nil
}

func (t *tree) Render(ctx context.Context, path string) (render.Mapping, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for id, doc := range t.docs {
		if path == id.Path()+".sls" || path == id.Path()+"/init.sls" {
			t.renders[path]++
			return render.Decode(path, []byte(doc))
		}
	}
	return nil, fmt.Errorf("no document for %s", path)
}

func (t *tree) totalRenders() int {
	total := 0
	for _, n := range t.renders {
		total += n
	}
	return total
}

func descs(steps []*step.Step) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.Desc
	}
	return out
}

func find(t *testing.T, steps []*step.Step, desc string) *step.Step {
	t.Helper()
	for _, s := range steps {
		if s.Desc == desc {
			return s
		}
	}
	require.Failf(t, "step not found", "no step %q in %v", desc, descs(steps))
	return nil
}

// errCache fails every read and records writes.
type errCache struct {
	puts int
}

func (c *errCache) Get(context.Context, stage.ID, bool) ([]*step.Step, bool, error) {
	return nil, false, fmt.Errorf("disk on fire")
}

func (c *errCache) Put(context.Context, stage.ID, bool, []*step.Step) error {
	c.puts++
	return nil
}

func (c *errCache) Clear(context.Context, stage.ID) error {
	return nil
}

func counterValue(t *testing.T, rec *metrics.Recorder, name string) float64 {
	t.Helper()
	families, err := rec.Registry().Gather()
	require.NoError(t, err)

	total := 0.0
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			total += counter(m)
		}
	}
	return total
}

func counter(m *dto.Metric) float64 {
	if m.GetCounter() == nil {
		return 0
	}
	return m.GetCounter().GetValue()
}
