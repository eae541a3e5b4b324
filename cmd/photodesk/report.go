package main

import (
	"fmt"
	"io"
	"strings"

	"photodesk/internal/delivery"
	"photodesk/internal/workflow"
)

func printReport(out io.Writer, report workflow.Report) {
	if report.Skipped {
		fmt.Fprintln(out, "Another run holds the lock; nothing to do")
		return
	}
	if report.RunID == "" {
		return
	}
	fmt.Fprintf(out, "Run %s %s in %s\n", shortID(report.RunID), report.Status, formatDuration(report.FinishedAt.Sub(report.StartedAt)))
	if len(report.Ran) == 0 {
		fmt.Fprintln(out, "No phases enabled")
		return
	}

	rows := make([][]string, 0, len(report.Ran))
	for _, phase := range report.Ran {
		status := "ok"
		detail := phaseDetail(report, phase)
		if err := report.Failure(phase); err != nil {
			status = "failed"
			detail = err.Error()
		}
		rows = append(rows, []string{string(phase), status, detail})
	}
	fmt.Fprintln(out, renderTable(out, []string{"Phase", "Status", "Detail"}, rows, nil))

	for _, jobs := range [][]delivery.Job{report.Basic.Jobs, report.Premium.Jobs} {
		for _, job := range jobs {
			if job.Delivered() {
				continue
			}
			fmt.Fprintf(out, "  skipped %s %s (%s): %s\n", job.Row.CustomerName, job.Label(), job.Status, jobReason(job))
		}
	}
}

func phaseDetail(report workflow.Report, phase workflow.Phase) string {
	switch phase {
	case workflow.PhaseOrganize:
		o := report.Organize
		return fmt.Sprintf("%d bookings, moved %d originals and %d exports, %d failed",
			len(o.Folders), o.OriginalMoved, o.ExportMoved, o.Failed)
	case workflow.PhaseCalendarSync:
		s := report.Sync
		return fmt.Sprintf("registered %d, duplicates %d, failed %d", s.Total(), s.Duplicates, s.Failed)
	case workflow.PhaseDeliverBasic:
		return summaryDetail(report.Basic)
	case workflow.PhaseDeliverPremium:
		return summaryDetail(report.Premium)
	case workflow.PhaseStorageCleanup:
		c := report.Cleanup
		return fmt.Sprintf("deleted %d of %d objects, %d failed", c.Deleted, c.Scanned, c.Failed)
	default:
		return ""
	}
}

func summaryDetail(s delivery.Summary) string {
	return fmt.Sprintf("delivered %d of %d pending, %d skipped", s.Delivered, s.Pending, s.Skipped)
}

func jobReason(job delivery.Job) string {
	if job.Err != nil {
		return job.Err.Error()
	}
	return strings.ReplaceAll(string(job.Status), "_", " ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
