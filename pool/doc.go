// Package pool fans a batch of soup.Pair executions out across a fixed
// number of worker goroutines and aggregates their per-category counters.
//
// Pool implements soup.Dispatcher structurally; soup never imports this
// package, so there is no import cycle between the two.
package pool
