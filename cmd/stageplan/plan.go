package main

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/stageplan/internal/plan"
	"github.com/alexisbeaulieu97/stageplan/internal/report"
	"github.com/alexisbeaulieu97/stageplan/internal/stage"
	"github.com/alexisbeaulieu97/stageplan/internal/step"
	"github.com/alexisbeaulieu97/stageplan/internal/tui"
)

type planOptions struct {
	all         bool
	noCache     bool
	output      string
	levels      bool
	interactive bool
	metricsFile string
}

var runBrowser = func(m tui.Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func newPlanCmd(root *rootFlags) *cobra.Command {
	opts := &planOptions{}

	cmd := &cobra.Command{
		Use:   "plan <stage>",
		Short: "Expand a stage into its ordered, linked step plan",
		Example: `  stageplan plan ceph.stage.0
  stageplan plan ceph.stage.3 --all -o json
  stageplan plan ceph.stage.4 --levels`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, root, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.all, "all", false, "Follow states outside the stage namespace")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "Ignore and do not update the plan cache")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "text", "Output format: text, json or yaml")
	cmd.Flags().BoolVar(&opts.levels, "levels", false, "Group steps into dependency levels")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "Browse the plan interactively")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "Write build metrics in Prometheus text format to this file")

	return cmd
}

func runPlan(cmd *cobra.Command, root *rootFlags, opts *planOptions, stageID string) error {
	format, err := report.ParseFormat(opts.output)
	if err != nil {
		return err
	}

	id := stage.ID(strings.TrimSpace(stageID))
	if id == "" {
		return fmt.Errorf("stage identifier is required")
	}

	if opts.interactive && !isTerminal(cmd.OutOrStdout()) {
		return newCommandError("browse plan", string(id), fmt.Errorf("standard output is not a terminal"), "Drop -i or run from an interactive terminal.")
	}

	a, err := newApp(cmd, root)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	p, err := a.builder.Build(ctx, id, plan.Options{StagesOnly: !opts.all, UseCache: !opts.noCache})
	if err != nil {
		return newCommandError("build plan", string(id), err, "Check the stage files under "+a.cfg.BaseDir+".")
	}

	if opts.metricsFile != "" {
		if err := a.metrics.WriteTextfile(opts.metricsFile); err != nil {
			a.log.Warn(err, "writing metrics file")
		}
	}

	var levels [][]*step.Step
	if opts.levels || opts.interactive {
		levels, err = plan.Levels(p.Steps)
		if err != nil {
			return err
		}
	}

	if opts.interactive {
		return runBrowser(tui.NewModel(p, levels))
	}

	return report.Write(cmd.OutOrStdout(), p, report.Options{
		Format: format,
		Levels: levels,
		Color:  isTerminal(cmd.OutOrStdout()),
	})
}
