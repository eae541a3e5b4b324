// Package timewindow assigns intake photo files to calendar appointments by
// timestamp and moves them into the appointment's customer folder.
//
// Appointments are processed most recent start first and a file is claimed
// by the first window that contains it, so with back-to-back bookings whose
// buffered windows overlap the later booking wins. Assignment is pure; Mover
// performs the filesystem side effects and isolates failures per file.
package timewindow
