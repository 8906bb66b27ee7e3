// Package orchestrator drives one batch orchestration cycle: reclaim stale
// locks, poke the discovery scrapers, drain a bounded window of the queue
// through the workflow executor, and collect depth metrics. Each phase is
// fault-isolated so one failing collaborator never starves the others, and
// the runner keeps no state between cycles; the store is the single source
// of truth.
package orchestrator
