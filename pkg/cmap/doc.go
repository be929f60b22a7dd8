// Package cmap provides a concurrent-safe sharded map.
//
// It uses sharding to reduce lock contention between the request path
// and the response-routing path, which touch disjoint connection keys
// most of the time. Per-shard locking also gives the atomic Pop and
// Upsert primitives the connection registry relies on.
package cmap
