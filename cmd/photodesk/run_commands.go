package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"photodesk/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run every enabled phase once (the cron entry point)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRun(cmd, ctx, workflow.Options{Command: "run"})
		},
	}
}

func newOrganizeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "organize",
		Short: "Move intake photos into customer folders using the calendar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRun(cmd, ctx, workflow.Options{
				Command: "organize",
				Phases:  []workflow.Phase{workflow.PhaseOrganize},
				Force:   true,
			})
		},
	}
}

func newSyncCalendarCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-calendar",
		Short: "Register upcoming calendar bookings in the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRun(cmd, ctx, workflow.Options{
				Command: "sync-calendar",
				Phases:  []workflow.Phase{workflow.PhaseCalendarSync},
				Force:   true,
			})
		},
	}
}

func newDeliverCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "deliver [basic|premium|all]",
		Short:     "Deliver photo packages for pending ledger rows",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"basic", "premium", "all"},
		RunE: func(cmd *cobra.Command, args []string) error {
			tier, phases, err := deliveryTier(args)
			if err != nil {
				return err
			}
			return executeRun(cmd, ctx, workflow.Options{
				Command: "deliver " + tier,
				Phases:  phases,
				Force:   true,
			})
		},
	}
}

// deliveryTier normalises the optional tier argument and maps it to phases.
func deliveryTier(args []string) (string, []workflow.Phase, error) {
	tier := "all"
	if len(args) == 1 {
		tier = strings.ToLower(strings.TrimSpace(args[0]))
	}
	phases, err := deliveryPhases(tier)
	return tier, phases, err
}

func deliveryPhases(tier string) ([]workflow.Phase, error) {
	switch tier {
	case "basic":
		return []workflow.Phase{workflow.PhaseDeliverBasic}, nil
	case "premium":
		return []workflow.Phase{workflow.PhaseDeliverPremium}, nil
	case "all", "":
		return []workflow.Phase{workflow.PhaseDeliverBasic, workflow.PhaseDeliverPremium}, nil
	default:
		return nil, fmt.Errorf("unknown delivery tier %q (want basic, premium or all)", tier)
	}
}

func newStorageCommand(ctx *commandContext) *cobra.Command {
	storageCmd := &cobra.Command{
		Use:   "storage",
		Short: "Object storage maintenance",
	}
	storageCmd.AddCommand(&cobra.Command{
		Use:   "cleanup",
		Short: "Delete delivery archives past storage.retention_days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRun(cmd, ctx, workflow.Options{
				Command: "storage cleanup",
				Phases:  []workflow.Phase{workflow.PhaseStorageCleanup},
				Force:   true,
			})
		},
	})
	return storageCmd
}

func executeRun(cmd *cobra.Command, ctx *commandContext, opts workflow.Options) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}

	comps, closeFn, err := workflow.Build(cmd.Context(), cfg, logger, opts.Phases)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeFn(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "close resources: %v\n", err)
		}
	}()

	report, runErr := workflow.NewRunner(cfg, comps, logger).Run(cmd.Context(), opts)
	printReport(cmd.OutOrStdout(), report)
	return runErr
}
