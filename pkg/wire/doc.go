// Package wire implements the little-endian binary record layout for the
// interpreter's external entry points: execute_tape, execute_pair, and
// execute_batch. Nothing in this repository's own tick loop uses it — the
// driver, soup, and pool packages talk to each other through plain Go
// structs — but a non-Go caller (the out-of-scope visualization layer, a
// WASM build, a recorded trace) crosses this exact byte boundary, so it is
// implemented as a real, round-trippable entry point rather than left as a
// paper contract. See DESIGN.md for the grounding of this encoding.
package wire
