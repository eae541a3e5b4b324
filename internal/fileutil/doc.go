// Package fileutil holds file copy and move helpers shared by the organizer
// and delivery stages.
package fileutil
