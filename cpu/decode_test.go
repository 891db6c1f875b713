package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// testWords is a 15 instruction sample covering every decodable format:
// immediates, loads and stores, register arithmetic, multiply, compare,
// predicated instructions, and the shifted-register encodings.
var testWords = []uint32{
	0xE3A00010, // MOV r0, #0x10
	0xE5901100, // LDR r1, [r0, #0x100]
	0xE5812000, // STR r2, [r1]
	0xE0813002, // ADD r3, r1, r2
	0xE0424003, // SUB r4, r2, r3
	0xE0050194, // MUL r5, r4, r1
	0xE1500005, // CMP r0, r5
	0xE0006005, // AND r6, r0, r5
	0xE1807005, // ORR r7, r0, r5
	0x10400005, // SUBNE r0, r0, r5
	0x00876008, // ADDEQ r6, r7, r8
	0xE1A01100, // LSL r1, r0, #2
	0xE1A02120, // LSR r2, r0, #2
	0xE1A14260, // MOV r4, r0, ROR #4
	0xE1A003E0, // ROR r0, r0, #7
}

func TestDecodeWord(t *testing.T) {
	assert := assert.New(t)

	expects := []Instruction{
		MakeInstData(COND_AL, OP_MOV, false, 0, 0, Imm(0x10)),
		MakeInstMem(COND_AL, OP_LDR, 1, 0, 0x100),
		MakeInstMem(COND_AL, OP_STR, 2, 1, 0),
		MakeInstData(COND_AL, OP_ADD, false, 3, 1, Reg(2)),
		MakeInstData(COND_AL, OP_SUB, false, 4, 2, Reg(3)),
		MakeInstData(COND_AL, OP_MUL, false, 5, 4, Reg(1)),
		MakeInstCmp(COND_AL, 0, Reg(5)),
		MakeInstData(COND_AL, OP_AND, false, 6, 0, Reg(5)),
		MakeInstData(COND_AL, OP_ORR, false, 7, 0, Reg(5)),
		MakeInstData(COND_NE, OP_SUB, false, 0, 0, Reg(5)),
		MakeInstData(COND_EQ, OP_ADD, false, 6, 7, Reg(8)),
		MakeInstShift(COND_AL, OP_LSL, false, 1, 0, 2),
		MakeInstShift(COND_AL, OP_LSR, false, 2, 0, 2),
		MakeInstData(COND_AL, OP_MOV, false, 4, 1, RegShift(0, SHIFT_ROR, 4)),
		MakeInstShift(COND_AL, OP_ROR, false, 0, 0, 7),
	}

	text, err := DecodeWords(testWords)
	assert.NoError(err)
	assert.Equal(len(expects), len(text))

	for n, code := range text {
		assert.Equal(expects[n], code, "%d: %08X", n, testWords[n])
	}
}

func TestDecodeBranch(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name    string
		ip      int
		word    uint32
		expects Instruction
	}){
		// Offsets are relative to the instruction's index plus two.
		{"halt_idiom", 5, 0xEAFFFFFE, MakeInstBranch(COND_AL, false, 5)},
		{"forward", 0, 0xEA000002, MakeInstBranch(COND_AL, false, 4)},
		{"backward", 10, 0xEAFFFFF4, MakeInstBranch(COND_AL, false, 0)},
		{"link", 3, 0xEB000000, MakeInstBranch(COND_AL, true, 5)},
		{"cond_ne", 2, 0x1AFFFFFD, MakeInstBranch(COND_NE, false, 1)},
	}

	for _, entry := range table {
		code, err := DecodeWord(entry.ip, entry.word)
		assert.NoError(err, entry.name)
		assert.Equal(entry.expects, code, entry.name)
	}
}

func TestDecodeInvalid(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name string
		word uint32
	}){
		{"coprocessor", 0xEC000000},
		{"swi", 0xEF000000},
		{"dp_unsupported", 0xE1E00001}, // MVN
	}

	for _, entry := range table {
		_, err := DecodeWord(0, entry.word)
		assert.ErrorIs(err, ErrWord(entry.word), entry.name)
	}
}

func TestDecodeBinary(t *testing.T) {
	assert := assert.New(t)

	data := []byte{
		0xE3, 0xA0, 0x00, 0x10, // big-endian MOV r0, #0x10
		0xE1, 0xA0, 0x11, 0x00,
		0xDE, 0xAD, // trailing partial word is ignored
	}

	text, err := DecodeBinary(data)
	assert.NoError(err)
	assert.Equal(2, len(text))
	assert.Equal(MakeInstData(COND_AL, OP_MOV, false, 0, 0, Imm(0x10)), text[0])
}

// TestDecodeExecute runs the decoded sample program and checks the final
// machine state against a hand-computed trace.
func TestDecodeExecute(t *testing.T) {
	assert := assert.New(t)

	text, err := DecodeWords(testWords)
	assert.NoError(err)

	cpu := NewCpu(MEM_SIZE)
	err = cpu.Load(text)
	assert.NoError(err)

	// Seed state; most of it is overwritten by the program.
	cpu.Register[0] = 0x10
	cpu.Register[1] = 0x20
	cpu.Register[2] = 0x05
	cpu.Register[3] = 0x02
	cpu.Register[4] = 0x0A
	cpu.Register[5] = 0x03
	cpu.Register[7] = 0x0F
	cpu.Register[8] = 0x0F

	for {
		err = cpu.Tick()
		if err == ErrPcEnd {
			break
		}
		if !assert.NoError(err) {
			t.Log(cpu.String())
			t.FailNow()
		}
	}

	assert.Equal(uint32(0x20000000), cpu.Register[0])
	assert.Equal(uint32(0x40), cpu.Register[1])
	assert.Equal(uint32(0x04), cpu.Register[2])
	assert.Equal(uint32(0x05), cpu.Register[3])
	assert.Equal(uint32(0x01), cpu.Register[4])
	assert.Equal(uint32(0x00), cpu.Register[5])
	assert.Equal(uint32(0x00), cpu.Register[6])
	assert.Equal(uint32(0x10), cpu.Register[7])
	assert.Equal(uint32(0x0F), cpu.Register[8])

	// Flags from CMP r0, r5 with 0x10 > 0.
	assert.Equal(Flags{C: true}, cpu.Flags)

	// STR r2, [r1] wrote 5 to address 0.
	assert.Equal([]byte{0x05, 0x00, 0x00, 0x00}, cpu.Mem.Data[0:4])

	assert.Equal(len(text), cpu.Pc)
	assert.Equal(len(text), cpu.Ticks)
	assert.Equal(STATE_RUNNING, cpu.State)
}

// TestEncodeWord checks that encoding the decoded sample reproduces the
// original words. Word 13 is the one exception: its redundant rn field is
// not regenerated, which does not change its meaning.
func TestEncodeWord(t *testing.T) {
	assert := assert.New(t)

	text, err := DecodeWords(testWords)
	assert.NoError(err)

	for ip, code := range text {
		word, err := code.Encode(ip)
		assert.NoError(err, ip)

		expects := testWords[ip]
		if ip == 13 {
			expects &= ^uint32(0xf << 16)
		}
		assert.Equal(expects, word, "%d: %v", ip, code)
	}
}

func TestEncodeImmediate(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name  string
		value uint32
		ok    bool
	}){
		{"zero", 0, true},
		{"byte", 0xff, true},
		{"rotated", 0x10000, true},
		{"top_nibble", 0xf0000000, true},
		{"wide", 0x101, false},
		{"wrapped", 0x80000001, true}, // imm8 6, rotate field 1
		{"odd_rotation", 0x102, false},
	}

	for _, entry := range table {
		code := MakeInstLoadImm(COND_AL, 0, entry.value)
		word, err := code.Encode(0)
		if !entry.ok {
			assert.ErrorIs(err, ErrImmediateRange, entry.name)
			continue
		}
		assert.NoError(err, entry.name)

		// The encoded word must decode back to the same value.
		back, err := DecodeWord(0, word)
		assert.NoError(err, entry.name)
		assert.Equal(Imm(entry.value), back.Op2, entry.name)
	}
}

func TestEncodeBranchRange(t *testing.T) {
	assert := assert.New(t)

	_, err := MakeInstBranch(COND_AL, false, 0x900000).Encode(0)
	assert.ErrorIs(err, ErrBranchRange)

	word, err := MakeInstBranch(COND_AL, false, 7).Encode(7)
	assert.NoError(err)
	assert.Equal(uint32(0xEAFFFFFE), word)
}
