// Package calendar answers trading-day questions from the locally synced
// trade_cal table.
//
// All lookups go to the database on every call. Cutoffs derived from a stale
// in-process cache could under-retain data, so nothing here is cached across
// runs.
package calendar
