// Package workflow executes selected processors against claimed queue items
// and writes terminal state back through the store.
//
// Two dispatch shapes exist. Batch: one downstream call covers many items
// and its per-item results decide each item's fate. Per-item: each item runs
// its own ordered steps under a bounded fan-out, where a critical step
// failure aborts the item and a non-critical failure only records a warning.
package workflow
