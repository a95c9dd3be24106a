// Package database provides connection pool management for the storage
// clusters.
//
// The deployment uses one master cluster (reference tables, calendars,
// cursor state) plus N shard clusters holding the minute-bar table. Shard
// pool order matches the shard router's index space.
package database
