// Package daemon runs the driveline background service: a single-flight
// cycle scheduler, the HTTP control API, and single-instance enforcement via
// a lock file. The daemon owns no queue semantics of its own; it only decides
// when cycles run and exposes the store over HTTP.
package daemon
