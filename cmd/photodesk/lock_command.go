package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"photodesk/internal/logging"
	"photodesk/internal/runlock"
	"photodesk/internal/shootdate"
)

func newLockCommand(ctx *commandContext) *cobra.Command {
	lockCmd := &cobra.Command{
		Use:   "lock",
		Short: "Inspect the run lock",
	}
	lockCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show whether a run currently holds the lock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			lock, err := runlock.New(cfg, logging.NewNop())
			if err != nil {
				return err
			}
			if closer, ok := lock.(interface{ Close() error }); ok {
				defer closer.Close()
			}
			status, err := lock.Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("lock status: %w", err)
			}

			out := cmd.OutOrStdout()
			if !status.Held {
				fmt.Fprintf(out, "Run lock (%s) is free\n", status.Backend)
				return nil
			}
			rows := [][]string{
				{"Backend", status.Backend},
				{"Holder", status.Holder.Hostname},
				{"PID", strconv.Itoa(status.Holder.PID)},
				{"Since", formatTimestamp(status.Holder.Since, shootdate.Location)},
			}
			switch status.Backend {
			case "file":
				rows = append(rows, []string{"Process alive", yesNo(status.Alive)})
			case "redis":
				rows = append(rows, []string{"Expires in", formatDuration(status.TTL.Round(time.Second))})
			}
			fmt.Fprintln(out, "Run lock is held")
			fmt.Fprintln(out, renderTable(out, []string{"Field", "Value"}, rows, nil))
			return nil
		},
	})
	return lockCmd
}
