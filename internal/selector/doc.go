// Package selector routes queue items to downstream processors. Routing is
// pure and total: every item maps to exactly one processor kind, with
// unrecognized or unparseable URLs falling through to the generic extractor
// so nothing can stall in pending for lack of a route.
package selector
