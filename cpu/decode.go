package cpu

import (
	"encoding/binary"
	"math/bits"
)

// Instruction word decoding. Words are 32-bit, big-endian in the binary
// stream. Branch offsets follow the pipeline convention: the stored
// offset is relative to the instruction's own index plus two, so the
// self-branch halt idiom encodes as offset -2.

// DecodeWord decodes a single instruction word located at instruction
// index ip.
func DecodeWord(ip int, word uint32) (code Instruction, err error) {
	cond := Cond((word >> 28) & 0xf)

	// Multiply has a distinct pattern and is checked before the generic
	// data-processing format: bits 27-24 are 0000 and bits 7-4 are 1001.
	if (word>>24)&0xf == 0b0000 && (word>>4)&0xf == 0b1001 {
		code = Instruction{
			Cond:     cond,
			Op:       OP_MUL,
			SetFlags: (word>>20)&1 != 0,
			Rd:       int((word >> 16) & 0xf),
			Rn:       int(word & 0xf),
			Op2:      Reg(int((word >> 8) & 0xf)),
		}
		return
	}

	switch {
	// Data processing: bits 27-26 are 00.
	case (word>>26)&0b11 == 0b00:
		code, err = decodeDataProcessing(cond, word)

	// Load/store word: bits 27-26 are 01.
	case (word>>26)&0b11 == 0b01:
		op := OP_STR
		if (word>>20)&1 != 0 {
			op = OP_LDR
		}
		code = MakeInstMem(cond, op,
			int((word>>12)&0xf), int((word>>16)&0xf), word&0xfff)

	// Branch: bits 27-25 are 101.
	case (word>>25)&0b111 == 0b101:
		offset := int32(word & 0xffffff)
		if offset&(1<<23) != 0 {
			offset |= ^int32(0xffffff)
		}
		link := (word>>24)&1 != 0
		code = MakeInstBranch(cond, link, ip+2+int(offset))

	default:
		err = ErrWord(word)
	}

	return
}

// dpOps maps the 4-bit data-processing opcode field to operations. Only
// the subset this machine implements is present.
var dpOps = map[uint32]Op{
	0b0000: OP_AND,
	0b0010: OP_SUB,
	0b0100: OP_ADD,
	0b1010: OP_CMP,
	0b1100: OP_ORR,
	0b1101: OP_MOV,
}

// decodeDataProcessing decodes the data-processing format, including the
// standalone shift encodings (MOV of a shifted register with rn = r0).
func decodeDataProcessing(cond Cond, word uint32) (code Instruction, err error) {
	opField := (word >> 21) & 0xf
	op, ok := dpOps[opField]
	if !ok {
		err = ErrWord(word)
		return
	}

	setflags := (word>>20)&1 != 0
	rn := int((word >> 16) & 0xf)
	rd := int((word >> 12) & 0xf)

	var op2 Operand
	if (word>>25)&1 != 0 {
		// Immediate operand: 8 bits rotated right by twice the 4-bit
		// rotate field.
		rot := int((word >> 8) & 0xf)
		op2 = Imm(bits.RotateLeft32(word&0xff, -2*rot))
	} else {
		rm := int(word & 0xf)
		shift := ShiftType((word >> 5) & 0b11)
		if (word>>4)&1 == 0 {
			op2 = RegShift(rm, shift, (word>>7)&0x1f)
		} else {
			op2 = RegShiftReg(rm, shift, int((word>>8)&0xf))
		}

		// MOV of a shifted register with a zero rn field is the
		// standalone shift encoding.
		if op == OP_MOV && rn == 0 {
			switch shift {
			case SHIFT_LSL:
				op = OP_LSL
			case SHIFT_LSR:
				op = OP_LSR
			case SHIFT_ASR:
				op = OP_ASR
			case SHIFT_ROR:
				op = OP_ROR
			}
		}
	}

	if op == OP_CMP {
		code = MakeInstCmp(cond, rn, op2)
		return
	}

	code = MakeInstData(cond, op, setflags, rd, rn, op2)
	return
}

// DecodeWords decodes a sequence of instruction words.
func DecodeWords(words []uint32) (text []Instruction, err error) {
	text = make([]Instruction, 0, len(words))
	for ip, word := range words {
		var code Instruction
		code, err = DecodeWord(ip, word)
		if err != nil {
			return
		}
		text = append(text, code)
	}

	return
}

// DecodeBinary decodes a raw big-endian binary instruction stream. A
// trailing partial word is ignored, matching a stream padded by its
// producer.
func DecodeBinary(data []byte) (text []Instruction, err error) {
	words := make([]uint32, 0, len(data)/4)
	for n := 0; n+4 <= len(data); n += 4 {
		words = append(words, binary.BigEndian.Uint32(data[n:]))
	}

	return DecodeWords(words)
}
