package plan

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/alexisbeaulieu97/stageplan/internal/logger"
	"github.com/alexisbeaulieu97/stageplan/internal/metrics"
	"github.com/alexisbeaulieu97/stageplan/internal/ports"
	"github.com/alexisbeaulieu97/stageplan/internal/render"
	"github.com/alexisbeaulieu97/stageplan/internal/stage"
	"github.com/alexisbeaulieu97/stageplan/internal/step"
	planerrors "github.com/alexisbeaulieu97/stageplan/pkg/errors"
)

// DefaultStageNamespace prefixes the identifiers of top-level stages.
const DefaultStageNamespace = "ceph.stage"

const includeKey = "include"

// Options selects how a plan is built.
type Options struct {
	// StagesOnly skips every stage outside the stage namespace.
	StagesOnly bool
	// UseCache reads and writes expanded stages through the PlanCache.
	UseCache bool
}

// DefaultOptions filters to top-level stages and uses the cache.
func DefaultOptions() Options {
	return Options{StagesOnly: true, UseCache: true}
}

// Plan is the flat, linked sequence of steps reachable from Root, in
// depth-first declaration order.
type Plan struct {
	Root       stage.ID
	StagesOnly bool
	Steps      []*step.Step
}

// Len returns the number of steps.
func (p *Plan) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Steps)
}

// Builder expands stages into plans.
type Builder struct {
	locator   ports.Locator
	renderer  ports.Renderer
	cache     ports.PlanCache
	log       *logger.Logger
	metrics   *metrics.Recorder
	namespace string
}

// Option customises a Builder.
type Option func(*Builder)

// WithCache enables caching of expanded stages.
func WithCache(c ports.PlanCache) Option {
	return func(b *Builder) { b.cache = c }
}

// WithLogger attaches a logger.
func WithLogger(l *logger.Logger) Option {
	return func(b *Builder) { b.log = l }
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m *metrics.Recorder) Option {
	return func(b *Builder) { b.metrics = m }
}

// WithStageNamespace overrides DefaultStageNamespace.
func WithStageNamespace(ns string) Option {
	return func(b *Builder) {
		if ns != "" {
			b.namespace = ns
		}
	}
}

// NewBuilder creates a Builder. Without WithCache, Options.UseCache has no
// effect.
func NewBuilder(locator ports.Locator, renderer ports.Renderer, opts ...Option) *Builder {
	b := &Builder{
		locator:   locator,
		renderer:  renderer,
		namespace: DefaultStageNamespace,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build expands root and links the requisites of the resulting steps. No
// partial plan is returned on failure.
func (b *Builder) Build(ctx context.Context, root stage.ID, opts Options) (*Plan, error) {
	start := time.Now()

	w := &walker{
		b:      b,
		opts:   opts,
		memo:   make(map[stage.ID][]*step.Step),
		active: make(map[stage.ID]bool),
	}
	steps, err := w.expand(ctx, root)
	if err == nil {
		err = Link(steps)
	}
	b.metrics.Build(time.Since(start), len(steps), err)
	if err != nil {
		b.log.WithFields(map[string]any{"stage": string(root)}).Error(err, "plan build failed")
		return nil, err
	}

	b.log.WithFields(map[string]any{
		"stage":       string(root),
		"steps":       len(steps),
		"stages_only": opts.StagesOnly,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("plan built")

	return &Plan{Root: root, StagesOnly: opts.StagesOnly, Steps: steps}, nil
}

// ClearCache drops cached expansions of id, or all of them when id is
// empty.
func (b *Builder) ClearCache(ctx context.Context, id stage.ID) error {
	if b.cache == nil {
		return nil
	}
	b.log.WithFields(map[string]any{"stage": string(id)}).Info("cleaning cache")
	return b.cache.Clear(ctx, id)
}

// walker carries the state of one Build call. memo avoids rendering a
// stage twice when several include paths reach it; every reuse hands out
// clones so the plan never holds the same step twice. Options are fixed
// for a walker, so memo is keyed by stage alone.
type walker struct {
	b      *Builder
	opts   Options
	memo   map[stage.ID][]*step.Step
	active map[stage.ID]bool
	path   []string
}

func (w *walker) expand(ctx context.Context, id stage.ID) ([]*step.Step, error) {
	if w.opts.StagesOnly && !id.HasPrefix(w.b.namespace) {
		return nil, nil
	}

	if w.active[id] {
		return nil, planerrors.NewIncludeCycleError(w.cycle(id))
	}

	if seen, ok := w.memo[id]; ok {
		return cloneAll(seen), nil
	}

	log := w.b.log.WithFields(map[string]any{"stage": string(id)})

	if steps, ok := w.cached(ctx, id, log); ok {
		w.memo[id] = steps
		return steps, nil
	}

	w.active[id] = true
	w.path = append(w.path, string(id))
	defer func() {
		delete(w.active, id)
		w.path = w.path[:len(w.path)-1]
	}()

	path, err := w.b.locator.Locate(id)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := w.b.renderer.Render(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("render stage %s: %w", id, err)
	}
	w.b.metrics.Render()
	log.WithFields(map[string]any{"path": path}).Info("parsing stage file")

	var result []*step.Step
	for _, entry := range doc {
		if entry.Key == includeKey {
			refs, err := includeRefs(id, entry.Value)
			if err != nil {
				return nil, err
			}
			for _, ref := range refs {
				log.WithFields(map[string]any{"include": ref}).Debug("handling include")
				child, err := stage.ResolveInclude(w.b.locator, id, ref)
				if err != nil {
					return nil, err
				}
				sub, err := w.expand(ctx, child)
				if err != nil {
					return nil, err
				}
				result = append(result, sub...)
			}
			continue
		}

		body, ok := stepBody(entry.Value)
		if !ok {
			log.WithFields(map[string]any{"key": entry.Key}).Debug("skipping non-step declaration")
			continue
		}
		for _, fn := range body {
			log.WithFields(map[string]any{"desc": entry.Key, "fun": fn.Key}).Debug("parsing step")
			s, err := step.New(entry.Key, fn.Key, fn.Value)
			if err != nil {
				return nil, err
			}
			result = append(result, s)

			if s.Kind != step.KindStateApply {
				continue
			}
			if s.State == "" {
				return nil, planerrors.NewArgumentError(s.Desc, "salt.state step has no sls argument")
			}
			sub, err := w.expand(ctx, stage.ID(s.State))
			if err != nil {
				return nil, err
			}
			result = append(result, sub...)
		}
	}

	w.memo[id] = result
	w.store(ctx, id, result, log)
	return result, nil
}

func (w *walker) cycle(id stage.ID) []string {
	start := 0
	for i, p := range w.path {
		if p == string(id) {
			start = i
			break
		}
	}
	out := append([]string(nil), w.path[start:]...)
	return append(out, string(id))
}

// cached consults the PlanCache. Read failures fall back to a full
// expansion.
func (w *walker) cached(ctx context.Context, id stage.ID, log *logger.Logger) ([]*step.Step, bool) {
	if !w.opts.UseCache || w.b.cache == nil {
		return nil, false
	}

	steps, ok, err := w.b.cache.Get(ctx, id, w.opts.StagesOnly)
	if err != nil {
		w.b.metrics.CacheError("get")
		log.Warn(err, "cache entry unreadable, recomputing")
		return nil, false
	}
	if !ok {
		w.b.metrics.CacheMiss()
		return nil, false
	}

	w.b.metrics.CacheHit()
	log.Info("stage found in cache")
	return steps, true
}

func (w *walker) store(ctx context.Context, id stage.ID, steps []*step.Step, log *logger.Logger) {
	if !w.opts.UseCache || w.b.cache == nil {
		return
	}
	if err := w.b.cache.Put(ctx, id, w.opts.StagesOnly, steps); err != nil {
		w.b.metrics.CacheError("put")
		log.Warn(err, "cache write failed")
	}
}

func includeRefs(id stage.ID, value any) ([]string, error) {
	items, ok := value.([]any)
	if !ok {
		if value == nil {
			return nil, nil
		}
		return nil, planerrors.NewArgumentError(string(id), fmt.Sprintf("include must be a list, got %T", value))
	}

	refs := make([]string, 0, len(items))
	for _, item := range items {
		ref, ok := item.(string)
		if !ok {
			return nil, planerrors.NewArgumentError(string(id), fmt.Sprintf("include entries must be stage names, got %T", item))
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// stepBody returns the function declarations of a step in declaration
// order. Plain maps are accepted for hand-built documents and ordered by
// key.
func stepBody(value any) (render.Mapping, bool) {
	switch body := value.(type) {
	case render.Mapping:
		return body, true
	case map[string]any:
		keys := make([]string, 0, len(body))
		for k := range body {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(render.Mapping, 0, len(keys))
		for _, k := range keys {
			out = append(out, render.Entry{Key: k, Value: body[k]})
		}
		return out, true
	default:
		return nil, false
	}
}

func cloneAll(steps []*step.Step) []*step.Step {
	out := make([]*step.Step, len(steps))
	for i, s := range steps {
		out[i] = s.Clone()
	}
	return out
}
