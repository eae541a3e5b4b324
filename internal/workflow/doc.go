// Package workflow drives one photodesk run end to end.
//
// A Runner takes the run lock, opens a journal entry, prunes old logs and
// then executes the requested phases in a fixed order: intake organisation,
// calendar registration, basic delivery, premium delivery and storage
// retention. Phase failures are contained: the phase is aborted, the
// operator is alerted and the remaining phases still run. A panic or a
// catastrophic error aborts the whole run. The lock is always released.
//
// Build wires the production collaborators from configuration. Phases whose
// configuration is incomplete are recorded as unavailable and fail with a
// configuration error when requested, so an operator can run organisation
// alone before storage credentials exist.
package workflow
