package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cargoport/internal/config"
	"cargoport/internal/daemonrun"
	"cargoport/internal/logging"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "List periodic jobs and their schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(config.JobKinds()))
			for _, kind := range config.JobKinds() {
				rows = append(rows, []string{string(kind), cfg.JobPeriod(kind).String(), yesNo(cfg.JobEnabled(kind))})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]column{
				{Header: "Job"},
				{Header: "Period", Right: true},
				{Header: "Enabled"},
			}, rows))
			return nil
		},
	}

	jobsCmd.AddCommand(newJobsRunCommand(ctx))
	return jobsCmd
}

func newJobsRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run <job>",
		Short: "Run one tick of a job immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			kind, err := config.ParseJobKind(args[0])
			if err != nil {
				return err
			}
			if !cfg.JobEnabled(kind) {
				return fmt.Errorf("job %s is disabled in configuration", kind)
			}

			logger, err := logging.NewFromConfig(cfg, logging.Overrides{Outputs: []string{"stderr"}})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			rt, err := daemonrun.Build(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer rt.Store.Close()

			if err := rt.Scheduler.RunOnce(cmd.Context(), kind); err != nil {
				return fmt.Errorf("%s failed: %w", kind, err)
			}
			for _, stats := range rt.Scheduler.Snapshot() {
				if stats.Kind == kind {
					fmt.Fprintf(cmd.OutOrStdout(), "%s completed in %s\n", kind, stats.LastDuration)
				}
			}
			return nil
		},
	}
}
