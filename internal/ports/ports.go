package ports

import (
	"context"

	"github.com/alexisbeaulieu97/stageplan/internal/render"
	"github.com/alexisbeaulieu97/stageplan/internal/stage"
	"github.com/alexisbeaulieu97/stageplan/internal/step"
)

// Locator resolves stage identifiers against the state tree. IsComposite
// drives relative include resolution; Locate returns the source file and
// fails with a NotFoundError when neither the directory form nor the leaf
// form exists.
type Locator interface {
	stage.Namespace
	Locate(id stage.ID) (string, error)
}

// Renderer turns a stage source file into its ordered top-level
// declarations. Implementations must not write to standard output.
type Renderer interface {
	Render(ctx context.Context, path string) (render.Mapping, error)
}

// PlanCache persists expanded, not yet linked, step sequences keyed by
// (stage, stagesOnly). Get must hand out steps that are not shared with
// any other caller. Clear with an empty id drops every entry; otherwise it
// drops both stagesOnly variants of id.
type PlanCache interface {
	Get(ctx context.Context, id stage.ID, stagesOnly bool) ([]*step.Step, bool, error)
	Put(ctx context.Context, id stage.ID, stagesOnly bool, steps []*step.Step) error
	Clear(ctx context.Context, id stage.ID) error
}
