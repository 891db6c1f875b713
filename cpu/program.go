package cpu

import (
	"encoding/binary"
	"iter"
)

// Program is an assembled listing: one Opcode record per source line that
// generated code, carrying the source words for diagnostics.
type Program struct {
	Opcodes []Opcode
}

// Opcode represents a line of assembled code with its source location and
// generated instructions.
type Opcode struct {
	LineNo    int
	Ip        int
	Words     []string
	Codes     []Instruction
	LinkLabel string
}

type Debug struct {
	*Opcode
	Index int
}

// Debug returns the source opcode covering an instruction index.
func (prog *Program) Debug(ip int) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if ip >= op.Ip && ip < op.Ip+len(op.Codes) {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  ip - op.Ip,
			}
			break
		}
	}

	return
}

// Codes iterates over all generated instructions with their indexes.
func (prog *Program) Codes() iter.Seq2[int, Instruction] {
	return func(yield func(ip int, code Instruction) bool) {
		for _, op := range prog.Opcodes {
			for n, code := range op.Codes {
				if !yield(op.Ip+n, code) {
					return
				}
			}
		}
	}
}

// Text flattens the program into the instruction sequence the machine
// loads.
func (prog *Program) Text() (text []Instruction) {
	for _, code := range prog.Codes() {
		text = append(text, code)
	}

	return
}

// Binary encodes the program into instruction words.
func (prog *Program) Binary() (words []uint32, err error) {
	for ip, code := range prog.Codes() {
		var word uint32
		word, err = code.Encode(ip)
		if err != nil {
			return
		}
		words = append(words, word)
	}

	return
}

// Bytes encodes the program into a raw big-endian binary stream.
func (prog *Program) Bytes() (data []byte, err error) {
	words, err := prog.Binary()
	if err != nil {
		return
	}

	data = make([]byte, 4*len(words))
	for n, word := range words {
		binary.BigEndian.PutUint32(data[4*n:], word)
	}

	return
}
