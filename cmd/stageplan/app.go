package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/alexisbeaulieu97/stageplan/internal/cache"
	"github.com/alexisbeaulieu97/stageplan/internal/config"
	"github.com/alexisbeaulieu97/stageplan/internal/logger"
	"github.com/alexisbeaulieu97/stageplan/internal/metrics"
	"github.com/alexisbeaulieu97/stageplan/internal/plan"
	"github.com/alexisbeaulieu97/stageplan/internal/ports"
	"github.com/alexisbeaulieu97/stageplan/internal/render"
	"github.com/alexisbeaulieu97/stageplan/internal/stage"
)

// app bundles the services one command invocation needs.
type app struct {
	cfg     *config.Settings
	log     *logger.Logger
	metrics *metrics.Recorder
	builder *plan.Builder
	closers []io.Closer
}

func newApp(cmd *cobra.Command, flags *rootFlags) (*app, error) {
	cfg := config.Default()
	if strings.TrimSpace(flags.configPath) != "" {
		loaded, err := config.Load(flags.configPath)
		if err != nil {
			return nil, newCommandError("load settings", flags.configPath, err, "Check the settings file syntax and values.")
		}
		cfg = loaded
	}

	level := cfg.Log.Level
	if flags.verbose {
		level = "debug"
	}
	base, err := logger.New(logger.Options{
		Level:         level,
		HumanReadable: cfg.Log.Human || isTerminal(cmd.ErrOrStderr()),
		Writer:        cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	log := base.WithFields(map[string]any{"run_id": uuid.NewString()})

	a := &app{cfg: cfg, log: log, metrics: metrics.New()}

	var renderer ports.Renderer
	switch cfg.Render.Mode {
	case config.RenderCommand:
		renderer = render.NewCommandRenderer(cfg.Render.Command)
	default:
		renderer = render.NewYAMLRenderer(cfg.Render.Vars)
	}

	opts := []plan.Option{
		plan.WithLogger(log),
		plan.WithMetrics(a.metrics),
		plan.WithStageNamespace(cfg.StageNamespace),
	}

	store, err := a.openCache()
	if err != nil {
		return nil, newCommandError("open plan cache", cfg.Cache.Backend, err, "Check the cache settings or use backend: none.")
	}
	if store != nil {
		opts = append(opts, plan.WithCache(store))
	}

	a.builder = plan.NewBuilder(stage.NewFSLocator(cfg.BaseDir), renderer, opts...)
	return a, nil
}

func (a *app) openCache() (ports.PlanCache, error) {
	switch a.cfg.Cache.Backend {
	case config.BackendNone:
		return nil, nil
	case config.BackendMemory:
		return cache.NewMemoryStore(), nil
	case config.BackendSQLite:
		store, err := cache.OpenSQLite(a.cfg.Cache.SQLitePath, a.cfg.Cache.Prefix)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store)
		return store, nil
	default:
		return cache.NewFileStore(a.cfg.Cache.Dir, a.cfg.Cache.Prefix)
	}
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.log.Warn(err, "closing resource")
		}
	}
}

func isTerminal(w any) bool {
	if file, ok := w.(*os.File); ok {
		return term.IsTerminal(int(file.Fd()))
	}
	return false
}

func newCommandError(operation, context string, cause error, suggestion string) error {
	return &commandError{operation: operation, context: context, cause: cause, suggestion: suggestion}
}

type commandError struct {
	operation  string
	context    string
	cause      error
	suggestion string
}

func (e *commandError) Error() string {
	return fmt.Sprintf("Failed to %s: %s\n\nError: %v\n\nSuggestion: %s", e.operation, e.context, e.cause, e.suggestion)
}

func (e *commandError) Unwrap() error {
	return e.cause
}
