package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"photodesk/internal/journal"
	"photodesk/internal/shootdate"
)

const runLookupWindow = 500

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var runID string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs, or the jobs of one run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := journal.Open(cfg.HistoryPath())
			if err != nil {
				return fmt.Errorf("open run journal: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if strings.TrimSpace(runID) == "" {
				runs, err := store.RecentRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				fmt.Fprintln(out, renderTable(out, runHeaders, runRows(runs), runAligns))
				fmt.Fprintln(out, plural(len(runs), "run"))
				return nil
			}

			id, err := resolveRunID(cmd, store, runID)
			if err != nil {
				return err
			}
			jobs, err := store.Jobs(cmd.Context(), id)
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Fprintf(out, "Run %s recorded no delivery jobs\n", shortID(id))
				return nil
			}
			fmt.Fprintln(out, renderTable(out, jobHeaders, jobRows(jobs), jobAligns))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	cmd.Flags().StringVar(&runID, "run", "", "Show the jobs of the run with this id (or id prefix)")
	return cmd
}

var (
	runHeaders = []string{"Run", "Command", "Status", "Started", "Duration", "Moved", "Registered", "Delivered", "Deleted", "Error"}
	runAligns  = []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft}
	jobHeaders = []string{"Customer", "Shoot date", "Tier", "Type", "Row", "Status", "Fallback", "Result"}
	jobAligns  = []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft}
)

func runRows(runs []journal.RunSummary) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		errText := run.ErrorKind
		if run.ErrorMessage != "" {
			errText = truncate(run.ErrorMessage, 60)
		}
		rows = append(rows, []string{
			shortID(run.ID),
			run.Command,
			run.Status,
			formatTimestamp(run.StartedAt, shootdate.Location),
			formatDuration(run.Duration()),
			strconv.Itoa(run.FilesMoved),
			strconv.Itoa(run.RowsRegistered),
			fmt.Sprintf("%d/%d", run.JobsDelivered, run.JobsTotal),
			strconv.Itoa(run.ObjectsDeleted),
			errText,
		})
	}
	return rows
}

func jobRows(jobs []journal.Job) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		result := job.DownloadURL
		if job.ErrorMessage != "" {
			result = truncate(job.ErrorMessage, 60)
		}
		fallback := job.Fallback
		if fallback == "" {
			fallback = "-"
		}
		rows = append(rows, []string{
			job.Customer,
			job.ShootDate,
			job.Tier,
			job.Type,
			strconv.Itoa(job.Row),
			job.Status,
			fallback,
			result,
		})
	}
	return rows
}

func resolveRunID(cmd *cobra.Command, store *journal.Store, prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	runs, err := store.RecentRuns(cmd.Context(), runLookupWindow)
	if err != nil {
		return "", err
	}
	var matches []string
	for _, run := range runs {
		if run.ID == prefix {
			return run.ID, nil
		}
		if strings.HasPrefix(run.ID, prefix) {
			matches = append(matches, run.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no run matches %q", prefix)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("run id %q is ambiguous (%d matches)", prefix, len(matches))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
