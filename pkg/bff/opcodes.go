package bff

// Opcode is one of the ten bytes the interpreter gives meaning to. Every
// other byte value is a no-op that still advances the instruction pointer.
type Opcode = byte

const (
	// ========================================================================
	// Head movement
	// ========================================================================

	OpHead0Dec Opcode = '<' // 0x3C - head0 = (head0 - 1) mod L
	OpHead0Inc Opcode = '>' // 0x3E - head0 = (head0 + 1) mod L
	OpHead1Dec Opcode = '{' // 0x7B - head1 = (head1 - 1) mod L
	OpHead1Inc Opcode = '}' // 0x7D - head1 = (head1 + 1) mod L

	// ========================================================================
	// Arithmetic on tape[head0]
	// ========================================================================

	OpDec Opcode = '-' // 0x2D - tape[head0]--  (mod 256)
	OpInc Opcode = '+' // 0x2B - tape[head0]++  (mod 256)

	// ========================================================================
	// Copy between heads
	// ========================================================================

	OpCopyToHead1 Opcode = '.' // 0x2E - tape[head1] = tape[head0]
	OpCopyToHead0 Opcode = ',' // 0x2C - tape[head0] = tape[head1]

	// ========================================================================
	// Bounded, non-wrapping bracket loop
	// ========================================================================

	OpLoopOpen  Opcode = '[' // 0x5B - if tape[head0]==0, jump past matching ']'
	OpLoopClose Opcode = ']' // 0x5D - if tape[head0]!=0, jump back to matching '['
)

// isOpcode reports whether b is one of the ten bytes above.
func isOpcode(b byte) bool {
	switch b {
	case OpHead0Dec, OpHead0Inc, OpHead1Dec, OpHead1Inc,
		OpDec, OpInc, OpCopyToHead1, OpCopyToHead0, OpLoopOpen, OpLoopClose:
		return true
	default:
		return false
	}
}

// opcodeTable is a dense byte->bool lookup, filled once at init, so the
// interpreter's fast pre-check (HasInstructions) tests each byte with one
// table lookup instead of ten comparisons. Execute's dispatch loop switches
// on the byte value directly and does not consult this table.
var opcodeTable [256]bool

func init() {
	for b := 0; b < 256; b++ {
		opcodeTable[b] = isOpcode(byte(b))
	}
}

// HasInstructions reports whether data contains at least one BFF opcode
// byte. A tape with none is guaranteed to be a no-op walk to the end, so
// callers use this as a cheap short-circuit before paying for execution.
func HasInstructions(data []byte) bool {
	for _, b := range data {
		if opcodeTable[b] {
			return true
		}
	}
	return false
}
