// Package driver ties configuration, the soup, and the execution pool
// together into a tick loop: select a batch of pairs, dispatch it,
// mutate, advance the epoch, and periodically sample complexity and
// diversity metrics for anything observing the run.
package driver
