package cpu

import (
	"math/bits"
)

// Instruction word encoding, the inverse of DecodeWord.

// dpBits maps operations onto the 4-bit data-processing opcode field.
// Standalone shifts encode as MOV of a shifted register.
var dpBits = map[Op]uint32{
	OP_AND: 0b0000,
	OP_SUB: 0b0010,
	OP_ADD: 0b0100,
	OP_CMP: 0b1010,
	OP_ORR: 0b1100,
	OP_MOV: 0b1101,
	OP_LSL: 0b1101,
	OP_LSR: 0b1101,
	OP_ASR: 0b1101,
	OP_ROR: 0b1101,
	OP_LDR: 0b1101, // LDR rd, =imm pseudo only
}

// encodeImm searches for an 8-bit value and even rotation producing the
// immediate. Values with no such encoding are rejected.
func encodeImm(value uint32) (field uint32, err error) {
	for rot := uint32(0); rot < 16; rot++ {
		imm8 := bits.RotateLeft32(value, int(2*rot))
		if imm8 <= 0xff {
			field = (rot << 8) | imm8
			return
		}
	}

	err = ErrImmediateRange
	return
}

// encodeOperand encodes the second operand into bits 11-0, reporting
// whether the I (immediate) bit must be set.
func encodeOperand(op2 Operand) (field uint32, immediate bool, err error) {
	if op2.Imm {
		immediate = true
		field, err = encodeImm(op2.Value)
		return
	}

	field = uint32(op2.Rm) & 0xf
	shift := uint32(op2.Shift) & 0b11
	if op2.RegAmt {
		field |= (uint32(op2.Rs)&0xf)<<8 | shift<<5 | 1<<4
	} else {
		field |= (op2.Amount&0x1f)<<7 | shift<<5
	}

	return
}

// Encode encodes the instruction into a 32-bit word, given its own
// instruction index (branch offsets are index-relative).
func (code Instruction) Encode(ip int) (word uint32, err error) {
	word = uint32(code.Cond&0xf) << 28

	switch code.Op {
	case OP_B, OP_BL:
		offset := code.Target - ip - 2
		if offset < -0x800000 || offset > 0x7fffff {
			err = ErrBranchRange
			return
		}
		word |= 0b101 << 25
		if code.Op == OP_BL {
			word |= 1 << 24
		}
		word |= uint32(offset) & 0xffffff

	case OP_MUL:
		if code.Op2.Imm || code.Op2.Amount != 0 || code.Op2.RegAmt {
			err = ErrImmediateRange
			return
		}
		if code.SetFlags {
			word |= 1 << 20
		}
		word |= uint32(code.Rd&0xf) << 16
		word |= uint32(code.Op2.Rm&0xf) << 8
		word |= 0b1001 << 4
		word |= uint32(code.Rn & 0xf)

	case OP_LDR, OP_STR:
		if code.Op == OP_LDR && code.Op2.Imm {
			// LDR rd, =imm carries no load: encode as MOV immediate.
			var field uint32
			field, err = encodeImm(code.Op2.Value)
			if err != nil {
				return
			}
			word |= 1<<25 | dpBits[OP_MOV]<<21 | uint32(code.Rd&0xf)<<12 | field
			return
		}
		if code.Offset > 0xfff {
			err = ErrImmediateRange
			return
		}
		word |= 0b01 << 26
		word |= 1<<24 | 1<<23 // pre-indexed, offset added
		if code.Op == OP_LDR {
			word |= 1 << 20
		}
		word |= uint32(code.Rn&0xf) << 16
		word |= uint32(code.Rd&0xf) << 12
		word |= code.Offset

	default:
		field, ok := dpBits[code.Op]
		if !ok {
			err = ErrOpInvalid
			return
		}

		var op2bits uint32
		var immediate bool
		op2bits, immediate, err = encodeOperand(code.Op2)
		if err != nil {
			return
		}

		word |= field << 21
		if immediate {
			word |= 1 << 25
		}
		if code.SetFlags || code.Op == OP_CMP {
			word |= 1 << 20
		}
		// Standalone shifts and MOV leave the rn field zero.
		switch code.Op {
		case OP_ADD, OP_SUB, OP_AND, OP_ORR, OP_CMP:
			word |= uint32(code.Rn&0xf) << 16
		}
		word |= uint32(code.Rd&0xf) << 12
		word |= op2bits
	}

	return
}
