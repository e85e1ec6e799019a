// Package history appends per-batch aggregate counters to a DuckDB file
// for after-the-fact analytical queries — trend of category counts over
// epochs, distribution of halt reasons, and so on. This is pure
// bookkeeping with no influence on simulation outcomes. Appends run
// synchronously on the driver's goroutine from its per-tick callback, so a
// tick waits until its row is written.
package history
