// Package shard maps security identifiers to physical shard targets.
//
// Routing must be stable across process restarts and across language
// implementations: historical minute bars were written under this exact
// hash, so changing it would strand rows on unreachable shards.
package shard
