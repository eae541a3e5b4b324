// Package delivery sends finished photo sets to customers.
//
// Each pending ledger row becomes a Job that walks a fixed state machine:
// resolve the source folder, check it holds photos, validate capture dates,
// package a zip, upload it, publish a download page, write the page URL into
// the ledger, then notify the operator. A job stops at the first failing
// step and the row stays unmarked, so the next run retries it. The temporary
// archive is removed whatever the outcome.
//
// One row's failure never stops the next row. Only a ledger read failure at
// the start of a phase is returned to the caller.
package delivery
