// Package soup owns the primordial-soup byte buffer: a large linear
// []byte partitioned into equally sized regions. It implements region
// pair selection, single-pair execution (concatenate → interpret →
// gated write-back), and per-region mutation — the population manager
// that sits between the interpreter and the execution pool.
//
// Soup never runs an interpreter call itself on the hot path beyond a
// single RunPair; fanning a batch of pairs out across workers is the
// execution pool's job (package pool), which this package only talks to
// through the Dispatcher interface so the two packages don't need to
// import each other both ways.
package soup
