// Package config loads, normalizes, and validates photodesk configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PHOTODESK_PUBLISH_API_KEY and PHOTODESK_SHEETS_TOKEN. The Config type
// centralizes every knob a run needs: the photo roots on the NAS, the
// calendar feed, the ledger backend, object storage and the notification
// channels.
//
// Structural problems (bad enum values, non-positive timeouts) fail Load.
// Missing credentials do not: the Ready helpers report them per phase so the
// workflow can abort only the phase that depends on them and alert the
// operator.
package config
