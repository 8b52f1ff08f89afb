package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/stageplan/internal/stage"
)

func newCacheCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the plan cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear [stage]",
		Short: "Drop cached plans for one stage, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id stage.ID
			if len(args) == 1 {
				id = stage.ID(args[0])
			}
			return runCacheClear(cmd, root, id)
		},
	})

	return cmd
}

func runCacheClear(cmd *cobra.Command, root *rootFlags, id stage.ID) error {
	a, err := newApp(cmd, root)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := a.builder.ClearCache(ctx, id); err != nil {
		return newCommandError("clear cache", a.cfg.Cache.Backend, err, "Check permissions on the cache location.")
	}

	if id == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "Cleared all cached plans.")
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared cached plans for %s.\n", id)
	}
	return nil
}
