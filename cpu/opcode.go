package cpu

import (
	"fmt"
)

// Cond is an execution predicate, the 4-bit condition field of an
// instruction word. An instruction whose predicate fails is a no-op
// for that cycle; the program counter still advances.
type Cond int

//go:generate go tool stringer -linecomment -type=Cond
const (
	COND_EQ = Cond(0)  // EQ
	COND_NE = Cond(1)  // NE
	COND_CS = Cond(2)  // CS
	COND_CC = Cond(3)  // CC
	COND_MI = Cond(4)  // MI
	COND_PL = Cond(5)  // PL
	COND_VS = Cond(6)  // VS
	COND_VC = Cond(7)  // VC
	COND_HI = Cond(8)  // HI
	COND_LS = Cond(9)  // LS
	COND_GE = Cond(10) // GE
	COND_LT = Cond(11) // LT
	COND_GT = Cond(12) // GT
	COND_LE = Cond(13) // LE
	COND_AL = Cond(14) // AL
	COND_NV = Cond(15) // NV
)

// Op is an operation type.
type Op int

//go:generate go tool stringer -linecomment -type=Op
const (
	OP_MOV = Op(0)  // MOV
	OP_LDR = Op(1)  // LDR
	OP_STR = Op(2)  // STR
	OP_ADD = Op(3)  // ADD
	OP_SUB = Op(4)  // SUB
	OP_MUL = Op(5)  // MUL
	OP_CMP = Op(6)  // CMP
	OP_AND = Op(7)  // AND
	OP_ORR = Op(8)  // ORR
	OP_LSL = Op(9)  // LSL
	OP_LSR = Op(10) // LSR
	OP_ASR = Op(11) // ASR
	OP_ROR = Op(12) // ROR
	OP_B   = Op(13) // B
	OP_BL  = Op(14) // BL
)

// ShiftType is a barrel-shifter operation applied to a register operand.
type ShiftType int

//go:generate go tool stringer -linecomment -type=ShiftType
const (
	SHIFT_LSL = ShiftType(0) // LSL
	SHIFT_LSR = ShiftType(1) // LSR
	SHIFT_ASR = ShiftType(2) // ASR
	SHIFT_ROR = ShiftType(3) // ROR
)

// Operand is the flexible second operand of an instruction: either an
// immediate value, or a register passed through the barrel shifter with
// an immediate or register-specified shift amount.
type Operand struct {
	Imm    bool      // Immediate operand; Value holds it.
	Value  uint32    // Immediate value.
	Rm     int       // Operand register.
	Shift  ShiftType // Shift applied to Rm.
	Amount uint32    // Immediate shift amount.
	RegAmt bool      // Shift amount comes from register Rs.
	Rs     int       // Shift amount register.
}

// Imm creates an immediate operand.
func Imm(value uint32) Operand {
	return Operand{Imm: true, Value: value}
}

// Reg creates an unshifted register operand.
func Reg(rm int) Operand {
	return Operand{Rm: rm}
}

// RegShift creates a register operand shifted by an immediate amount.
func RegShift(rm int, shift ShiftType, amount uint32) Operand {
	return Operand{Rm: rm, Shift: shift, Amount: amount}
}

// RegShiftReg creates a register operand shifted by the amount held in Rs.
func RegShiftReg(rm int, shift ShiftType, rs int) Operand {
	return Operand{Rm: rm, Shift: shift, RegAmt: true, Rs: rs}
}

// Instruction is a single decoded instruction. The predicate is carried
// alongside the operation so that condition checking stays orthogonal to
// effect application.
type Instruction struct {
	Cond     Cond    // Execution predicate.
	Op       Op      // Operation.
	SetFlags bool    // Update flags from the result (the S suffix).
	Rd       int     // Destination register (source register for STR).
	Rn       int     // First operand / addressing base register.
	Op2      Operand // Second operand.
	Offset   uint32  // Byte offset for LDR/STR addressing.
	Target   int     // Branch target instruction index.
}

// MakeInstData creates a data-processing instruction (MOV, ADD, SUB, MUL,
// AND, ORR). MUL treats rn as the first factor and op2 as the second.
func MakeInstData(cond Cond, op Op, setflags bool, rd, rn int, op2 Operand) Instruction {
	return Instruction{Cond: cond, Op: op, SetFlags: setflags, Rd: rd, Rn: rn, Op2: op2}
}

// MakeInstCmp creates a compare instruction. CMP always sets flags and
// writes no destination register.
func MakeInstCmp(cond Cond, rn int, op2 Operand) Instruction {
	return Instruction{Cond: cond, Op: OP_CMP, SetFlags: true, Rn: rn, Op2: op2}
}

// MakeInstShift creates a standalone shift instruction (LSL, LSR, ASR,
// ROR): rd is replaced with rm run through the barrel shifter.
func MakeInstShift(cond Cond, op Op, setflags bool, rd, rm int, amount uint32) Instruction {
	var shift ShiftType
	switch op {
	case OP_LSL:
		shift = SHIFT_LSL
	case OP_LSR:
		shift = SHIFT_LSR
	case OP_ASR:
		shift = SHIFT_ASR
	case OP_ROR:
		shift = SHIFT_ROR
	}
	return Instruction{Cond: cond, Op: op, SetFlags: setflags, Rd: rd,
		Op2: RegShift(rm, shift, amount)}
}

// MakeInstLoadImm creates the `LDR rd, =value` pseudo instruction: the
// destination register is loaded with the immediate directly.
func MakeInstLoadImm(cond Cond, rd int, value uint32) Instruction {
	return Instruction{Cond: cond, Op: OP_LDR, Rd: rd, Op2: Imm(value)}
}

// MakeInstMem creates a load or store instruction addressing the word at
// [rn + offset].
func MakeInstMem(cond Cond, op Op, rd, rn int, offset uint32) Instruction {
	return Instruction{Cond: cond, Op: op, Rd: rd, Rn: rn, Offset: offset}
}

// MakeInstBranch creates a branch to an absolute instruction index. A
// branch targeting its own index is the halt idiom.
func MakeInstBranch(cond Cond, link bool, target int) Instruction {
	op := OP_B
	if link {
		op = OP_BL
	}
	return Instruction{Cond: cond, Op: op, Target: target}
}

// Mnemonic returns the operation name with its condition and S suffixes.
func (code Instruction) Mnemonic() (mn string) {
	mn = code.Op.String()
	if code.Cond != COND_AL {
		mn += code.Cond.String()
	}
	if code.SetFlags && code.Op != OP_CMP {
		mn += "S"
	}
	return
}

// String returns the assembly language representation of this instruction.
func (code Instruction) String() (out string) {
	mn := code.Mnemonic()

	switch code.Op {
	case OP_B, OP_BL:
		out = fmt.Sprintf("%v %v", mn, code.Target)
	case OP_LDR:
		if code.Op2.Imm {
			out = fmt.Sprintf("%v r%d, =%#x", mn, code.Rd, code.Op2.Value)
		} else {
			out = fmt.Sprintf("%v r%d, [r%d, #%#x]", mn, code.Rd, code.Rn, code.Offset)
		}
	case OP_STR:
		out = fmt.Sprintf("%v r%d, [r%d, #%#x]", mn, code.Rd, code.Rn, code.Offset)
	case OP_CMP:
		out = fmt.Sprintf("%v r%d, %v", mn, code.Rn, code.Op2)
	case OP_MOV, OP_LSL, OP_LSR, OP_ASR, OP_ROR:
		out = fmt.Sprintf("%v r%d, %v", mn, code.Rd, code.Op2)
	default:
		out = fmt.Sprintf("%v r%d, r%d, %v", mn, code.Rd, code.Rn, code.Op2)
	}

	return
}

// String returns the assembly language representation of the operand.
func (op2 Operand) String() (out string) {
	if op2.Imm {
		return fmt.Sprintf("#%#x", op2.Value)
	}

	out = fmt.Sprintf("r%d", op2.Rm)
	switch {
	case op2.RegAmt:
		out += fmt.Sprintf(", %v r%d", op2.Shift, op2.Rs)
	case op2.Amount != 0:
		out += fmt.Sprintf(", %v #%d", op2.Shift, op2.Amount)
	}

	return
}
