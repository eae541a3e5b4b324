// Package runlock keeps two photodesk runs from overlapping.
//
// The file backend takes an advisory flock on a host-local path and records
// the holder PID beside it; the redis backend uses SET NX with a TTL so runs
// on different hosts sharing one photo volume exclude each other. Acquire
// never blocks: a held lock reports false and the caller exits quietly.
package runlock
