package delivery

import (
	"photodesk/internal/calendar"
	"photodesk/internal/folder"
	"photodesk/internal/ledger"
)

// Status is a job's position in the delivery state machine.
type Status string

const (
	StatusPending          Status = "pending"
	StatusFolderResolved   Status = "folder_resolved"
	StatusFolderNotFound   Status = "folder_not_found"
	StatusValidationFailed Status = "validation_failed"
	StatusValidated        Status = "validated"
	StatusPackaged         Status = "packaged"
	StatusUploaded         Status = "uploaded"
	StatusPublished        Status = "published"
	StatusRecorded         Status = "recorded"
	StatusNotified         Status = "notified"
	StatusFailed           Status = "failed"
)

// Job is one delivery attempt for a ledger row.
type Job struct {
	ID           string
	Row          ledger.Row
	Tier         calendar.Tier
	Type         folder.Type
	SourceFolder string
	Fallback     folder.Fallback
	Photos       int
	Archive      string
	ObjectKey    string
	DownloadURL  string
	Status       Status
	// Err is set when the job stopped before the ledger was written, or when
	// the ledger write itself failed.
	Err error
}

// Delivered reports whether the download URL reached the ledger.
func (j Job) Delivered() bool {
	return j.Status == StatusRecorded || j.Status == StatusNotified
}

// Label returns the log label for the job, e.g. "베이직" or "프리미엄 2차".
func (j Job) Label() string {
	switch j.Row.Stage {
	case ledger.AwaitingFirst:
		return calendar.Premium.Label() + " 1차"
	case ledger.AwaitingSecond:
		return calendar.Premium.Label() + " 2차"
	default:
		return calendar.Basic.Label()
	}
}

// Summary reports one phase.
type Summary struct {
	Pending   int
	Delivered int
	Skipped   int
	Jobs      []Job
}

func (s *Summary) add(job Job) {
	s.Jobs = append(s.Jobs, job)
	if job.Delivered() {
		s.Delivered++
	} else {
		s.Skipped++
	}
}

func newJob(row ledger.Row) Job {
	job := Job{Row: row, Tier: calendar.Basic, Type: folder.Original, Status: StatusPending}
	switch row.Stage {
	case ledger.AwaitingFirst:
		job.Tier = calendar.Premium
	case ledger.AwaitingSecond:
		job.Tier = calendar.Premium
		job.Type = folder.Retouched
	}
	return job
}
