// Package queue persists discovered listing work items and implements the
// claim/reclaim/finalize contract the orchestrator depends on.
//
// The production deployment fronts a managed Postgres exposing the same
// operations as stored procedures; this package is the embedded equivalent,
// with ClaimBatch executing as one atomic statement so concurrent claimers
// can never receive the same item.
package queue
