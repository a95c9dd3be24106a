// Package syncer drives incremental table runs.
//
// A run walks one table from its cursor to the last closed trading day,
// fetching, normalizing and writing one trading-day unit at a time, and
// persists the cursor only after a unit's writes commit. On abort the cursor
// stays at the last committed unit, so the next run resumes exactly where
// this one stopped. Retention pruning happens once, after the fetch phase.
package syncer
