package cpu

import (
	"fmt"
)

// Flags holds the machine condition flags. They are overwritten only by
// CMP or by a flag-setting (S suffixed) data operation, and otherwise
// carry forward unchanged.
type Flags struct {
	N bool // Negative: bit 31 of the last result.
	Z bool // Zero: the last result was zero.
	C bool // Carry out of the last addition, or NOT borrow of the last subtraction.
	V bool // Signed overflow of the last addition or subtraction.
}

// Reset clears all flags.
func (fl *Flags) Reset() {
	*fl = Flags{}
}

// SetNZ updates the Negative and Zero flags from a result, leaving Carry
// and Overflow untouched. Used by logical, shift, and multiply results.
func (fl *Flags) SetNZ(result uint32) {
	fl.N = (result >> 31) != 0
	fl.Z = result == 0
}

// SetAdd updates all flags from the addition a + b = result.
func (fl *Flags) SetAdd(a, b, result uint32) {
	fl.SetNZ(result)
	fl.C = (uint64(a) + uint64(b)) > 0xffffffff
	aSign := (a >> 31) != 0
	bSign := (b >> 31) != 0
	rSign := (result >> 31) != 0
	fl.V = (aSign == bSign) && (aSign != rSign)
}

// SetSub updates all flags from the subtraction a - b = result. Carry is
// set when no borrow occurs.
func (fl *Flags) SetSub(a, b, result uint32) {
	fl.SetNZ(result)
	fl.C = a >= b
	aSign := (a >> 31) != 0
	bSign := (b >> 31) != 0
	rSign := (result >> 31) != 0
	fl.V = (aSign != bSign) && (aSign != rSign)
}

// Passes reports whether an instruction carrying the given predicate
// executes under the current flags.
func (fl Flags) Passes(cond Cond) bool {
	switch cond {
	case COND_EQ:
		return fl.Z
	case COND_NE:
		return !fl.Z
	case COND_CS:
		return fl.C
	case COND_CC:
		return !fl.C
	case COND_MI:
		return fl.N
	case COND_PL:
		return !fl.N
	case COND_VS:
		return fl.V
	case COND_VC:
		return !fl.V
	case COND_HI:
		return fl.C && !fl.Z
	case COND_LS:
		return !fl.C || fl.Z
	case COND_GE:
		return fl.N == fl.V
	case COND_LT:
		return fl.N != fl.V
	case COND_GT:
		return !fl.Z && (fl.N == fl.V)
	case COND_LE:
		return fl.Z || (fl.N != fl.V)
	case COND_NV:
		return false
	}

	// COND_AL and any out-of-range value execute unconditionally.
	return true
}

// String returns the flags as a compact NZCV string, upper case when set.
func (fl Flags) String() (out string) {
	bit := func(set bool, name string) string {
		if set {
			return name
		}
		return "-"
	}

	return fmt.Sprintf("%v%v%v%v",
		bit(fl.N, "N"), bit(fl.Z, "Z"), bit(fl.C, "C"), bit(fl.V, "V"))
}
