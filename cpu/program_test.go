package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// doRunText runs a text to completion and returns the final machine.
func doRunText(text []Instruction, t *testing.T) (cpu *Cpu) {
	assert := assert.New(t)

	cpu = NewCpu(MEM_SIZE)
	assert.NoError(cpu.Load(text))

	for cpu.State == STATE_RUNNING {
		err := cpu.Tick()
		if err == ErrPcEnd {
			break
		}
		if !assert.NoError(err) {
			t.Log(cpu.String())
			t.FailNow()
		}
	}

	return
}

func TestProgramBinary(t *testing.T) {
	assert := assert.New(t)

	prog := doParse([]string{
		"LDR r0, =0x4000",
		"MOV r1, #0",
		"MOV r2, #10",
		"loop:",
		"  ADD r1, r1, r2",
		"  STR r1, [r0]",
		"  SUBS r2, r2, #1",
		"  BNE loop",
		"done: B done",
	}, t)

	words, err := prog.Binary()
	assert.NoError(err)
	assert.Equal(8, len(words))

	// The encoded words decode into a program with identical behavior.
	text, err := DecodeWords(words)
	assert.NoError(err)

	direct := doRunText(prog.Text(), t)
	decoded := doRunText(text, t)

	assert.Equal(direct.Register, decoded.Register)
	assert.Equal(direct.Flags, decoded.Flags)
	assert.Equal(direct.Pc, decoded.Pc)
	assert.Equal(direct.State, decoded.State)
	assert.Equal(direct.Mem.Data, decoded.Mem.Data)

	// 10+9+...+1 stored at 0x4000; the loop ends with a self-branch.
	assert.Equal(uint32(55), direct.Register[1])
	value, err := direct.Mem.LoadWord(0x4000)
	assert.NoError(err)
	assert.Equal(uint32(55), value)
	assert.Equal(STATE_HALTED, direct.State)
}

func TestProgramBytes(t *testing.T) {
	assert := assert.New(t)

	prog := doParse([]string{
		"MOV r0, #0x10",
		"spin: B spin",
	}, t)

	data, err := prog.Bytes()
	assert.NoError(err)

	// Big-endian stream: MOV r0, #0x10 then the self-branch.
	assert.Equal([]byte{
		0xE3, 0xA0, 0x00, 0x10,
		0xEA, 0xFF, 0xFF, 0xFE,
	}, data)

	text, err := DecodeBinary(data)
	assert.NoError(err)
	assert.Equal(prog.Text(), text)
}

func TestProgramEncodeErrors(t *testing.T) {
	assert := assert.New(t)

	// LDR rd, =imm encodes as a MOV immediate, so values outside the
	// rotated 8-bit immediate range cannot be emitted as binary.
	prog := doParse([]string{"LDR r0, =0x12345678"}, t)
	_, err := prog.Binary()
	assert.ErrorIs(err, ErrImmediateRange)

	prog = doParse([]string{"LDR r0, [r1, #0x1234]"}, t)
	_, err = prog.Binary()
	assert.ErrorIs(err, ErrImmediateRange)
}

func TestProgramDebug(t *testing.T) {
	assert := assert.New(t)

	prog := doParse([]string{
		"MOV r0, #1",
		"MOV r1, #2",
		"MOV r2, #3",
	}, t)

	for ip := range 3 {
		dbg := prog.Debug(ip)
		assert.Equal(ip+1, dbg.LineNo, ip)
		assert.Equal(0, dbg.Index, ip)
	}

	// Out of range indexes return an empty Debug.
	dbg := prog.Debug(99)
	assert.Nil(dbg.Opcode)
}
