// Package cmap provides a concurrent-safe sharded map.
//
// Keys are spread over independently locked shards, so lookups from many
// request goroutines rarely contend. The HTTP rate limiter keeps one token
// bucket per client address in it.
package cmap
