// Command photodesk runs the studio back-office automation: intake
// organisation, ledger registration, photo delivery and storage retention.
//
// A cron entry usually calls `photodesk run`; the other subcommands run a
// single phase or inspect state (history, lock status, configuration).
package main
