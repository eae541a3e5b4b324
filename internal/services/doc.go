// Package services defines shared utilities consumed by the workflow phases
// and their external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers, phase names, customer names
//     and delivery job identifiers for logging.
//   - Structured error markers plus the Wrap helper that let callers decide
//     whether a failure stays contained at file or row level or widens to the
//     whole phase.
//
// Use these helpers when wiring new phase logic so operational behaviour
// (error handling, observability, retries) stays uniform across a run.
package services
