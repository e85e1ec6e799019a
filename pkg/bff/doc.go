// Package bff implements the BFF (Brainfuck Friends) interpreter: a
// two-head, ten-opcode language that runs on a fixed-length byte tape.
//
// BFF has no call stack, no variables, and no types beyond the byte. A
// program is just the tape itself — instructions and data share the same
// bytes, so execution can mutate the program as it runs. Two heads read
// and write the tape:
//
//   - head0 is the primary head: arithmetic and loop conditions act on
//     tape[head0].
//   - head1 is the copy partner: '.' and ',' move bytes between the heads.
//
// The instruction pointer walks the tape left to right and never wraps;
// running off either end of the tape halts execution. Both heads wrap
// modulo the tape length. Everything that isn't one of the ten opcodes is
// a no-op that still costs one step, so arbitrary soup bytes are always
// legal (if usually inert) programs.
//
// Execute never allocates after entry and never panics: every outcome,
// including hitting the step cap or an unmatched bracket, is a normal
// return distinguished by HaltReason.
package bff
