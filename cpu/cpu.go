package cpu

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"
	"math/bits"
)

const (
	REG_COUNT = 16 // Number of general-purpose registers.
	REG_LINK  = 14 // Link register written by BL.
)

// State is the machine execution state.
type State int

//go:generate go tool stringer -linecomment -type=State
const (
	STATE_RUNNING = State(0) // running
	STATE_HALTED  = State(1) // halted
)

var _cpu_defines = map[string]string{
	"REG_COUNT": fmt.Sprintf("%v", REG_COUNT),
	"REG_LINK":  fmt.Sprintf("%v", REG_LINK),
	"MEM_SIZE":  fmt.Sprintf("%#x", MEM_SIZE),
}

// Cpu is the register machine: a fixed register bank, flat memory,
// condition flags, and a program counter indexing the instruction text.
// Executing an instruction is a pure function of the prior state and the
// instruction itself.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Register [REG_COUNT]uint32 // Register bank, zeroed at reset.
	Mem      *Memory           // Flat byte-addressable memory.
	Flags    Flags             // Condition flags.
	Pc       int               // Index of the next instruction.
	State    State             // Running until the halt idiom is reached.

	Text []Instruction // Loaded instruction sequence.

	Ticks int // Executed instruction counter.
}

// NewCpu creates a new CPU with a specifically sized memory.
func NewCpu(memSize uint) (cpu *Cpu) {
	cpu = &Cpu{
		Mem: NewMemory(memSize),
	}

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	for n, val := range cpu.Register {
		text += fmt.Sprintf("  r%-2d: %04X_%04X\n", n, val>>16, val&0xffff)
	}
	text += fmt.Sprintf("   pc: %v\n", cpu.Pc)
	text += fmt.Sprintf("flags: %v\n", cpu.Flags)
	text += fmt.Sprintf("state: %v\n", cpu.State)

	return
}

// Reset clears the registers, memory, and flags, and restarts execution
// at instruction index 0. The loaded text is kept.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	clear(cpu.Register[:])
	cpu.Mem.Reset()
	cpu.Flags.Reset()
	cpu.Pc = 0
	cpu.State = STATE_RUNNING
	cpu.Ticks = 0
}

// Load validates an instruction sequence and installs it as the machine
// text. Register identifiers and branch targets are checked here so a bad
// program is rejected before any of it runs.
func (cpu *Cpu) Load(text []Instruction) (err error) {
	for n, code := range text {
		err = cpu.validate(n, code, len(text))
		if err != nil {
			err = errors.Join(ErrInstruction(code), err)
			return
		}
	}

	cpu.Text = text
	cpu.Reset()

	return
}

// validate checks the static fields of one instruction at index ip.
func (cpu *Cpu) validate(ip int, code Instruction, textLen int) (err error) {
	regOk := func(reg int) bool { return reg >= 0 && reg < REG_COUNT }

	switch code.Op {
	case OP_B, OP_BL:
		// Branching exactly one past the end is running off the text,
		// which is ordinary completion.
		if code.Target < 0 || code.Target > textLen {
			return ErrPcRange
		}
		return
	case OP_CMP:
		if !regOk(code.Rn) {
			return ErrRegisterInvalid
		}
	case OP_LDR, OP_STR:
		if !regOk(code.Rd) || (!code.Op2.Imm && !regOk(code.Rn)) {
			return ErrRegisterInvalid
		}
		return
	case OP_MOV, OP_LSL, OP_LSR, OP_ASR, OP_ROR:
		if !regOk(code.Rd) {
			return ErrRegisterInvalid
		}
	case OP_ADD, OP_SUB, OP_MUL, OP_AND, OP_ORR:
		if !regOk(code.Rd) || !regOk(code.Rn) {
			return ErrRegisterInvalid
		}
	default:
		return ErrOpInvalid
	}

	if !code.Op2.Imm {
		if !regOk(code.Op2.Rm) {
			return ErrRegisterInvalid
		}
		if code.Op2.RegAmt && !regOk(code.Op2.Rs) {
			return ErrRegisterInvalid
		}
	}

	return
}

// FetchCode fetches the next instruction to execute.
func (cpu *Cpu) FetchCode() (code Instruction, err error) {
	if cpu.State == STATE_HALTED {
		err = ErrHalted
		return
	}

	switch {
	case cpu.Pc == len(cpu.Text):
		err = ErrPcEnd
	case cpu.Pc < 0 || cpu.Pc > len(cpu.Text):
		err = ErrPcRange
	default:
		code = cpu.Text[cpu.Pc]
	}

	return
}

// Tick executes a single instruction cycle.
func (cpu *Cpu) Tick() (err error) {
	code, err := cpu.FetchCode()
	if err != nil {
		return
	}

	err = cpu.Execute(code)
	if err != nil {
		return
	}

	cpu.Ticks += 1

	return
}

// Execute executes a single decoded instruction: predicate check, effect
// application, flag update, program counter advance. A failing predicate
// turns the cycle into a no-op that still advances the program counter.
func (cpu *Cpu) Execute(code Instruction) (err error) {
	defer func() {
		if err != nil {
			err = errors.Join(ErrInstruction(code), err)
		}
	}()
	if cpu.Verbose {
		log.Printf("%03x: %v", cpu.Pc, code)
	}

	next_pc := cpu.Pc + 1

	if !cpu.Flags.Passes(code.Cond) {
		cpu.Pc = next_pc
		return
	}

	switch code.Op {
	case OP_B, OP_BL:
		if code.Target == cpu.Pc {
			// The halt idiom: a branch targeting its own index.
			cpu.State = STATE_HALTED
			return
		}
		if code.Op == OP_BL {
			err = cpu.regSet(REG_LINK, uint32(next_pc))
			if err != nil {
				return
			}
		}
		next_pc = code.Target

	case OP_LDR:
		if code.Op2.Imm {
			err = cpu.regSet(code.Rd, code.Op2.Value)
		} else {
			var base, value uint32
			base, err = cpu.regValue(code.Rn)
			if err != nil {
				return
			}
			value, err = cpu.Mem.LoadWord(base + code.Offset)
			if err != nil {
				return
			}
			err = cpu.regSet(code.Rd, value)
		}
		if err != nil {
			return
		}

	case OP_STR:
		var base, value uint32
		base, err = cpu.regValue(code.Rn)
		if err != nil {
			return
		}
		value, err = cpu.regValue(code.Rd)
		if err != nil {
			return
		}
		err = cpu.Mem.StoreWord(base+code.Offset, value)
		if err != nil {
			return
		}

	case OP_CMP:
		var a, b uint32
		a, err = cpu.regValue(code.Rn)
		if err != nil {
			return
		}
		b, err = cpu.operand(code.Op2)
		if err != nil {
			return
		}
		cpu.Flags.SetSub(a, b, a-b)

	case OP_MOV, OP_LSL, OP_LSR, OP_ASR, OP_ROR:
		var value uint32
		value, err = cpu.operand(code.Op2)
		if err != nil {
			return
		}
		err = cpu.regSet(code.Rd, value)
		if err != nil {
			return
		}
		if code.SetFlags {
			cpu.Flags.SetNZ(value)
		}

	case OP_ADD, OP_SUB, OP_MUL, OP_AND, OP_ORR:
		var a, b uint32
		a, err = cpu.regValue(code.Rn)
		if err != nil {
			return
		}
		b, err = cpu.operand(code.Op2)
		if err != nil {
			return
		}

		var result uint32
		switch code.Op {
		case OP_ADD:
			result = a + b
		case OP_SUB:
			result = a - b
		case OP_MUL:
			result = a * b
		case OP_AND:
			result = a & b
		case OP_ORR:
			result = a | b
		}

		err = cpu.regSet(code.Rd, result)
		if err != nil {
			return
		}

		if code.SetFlags {
			switch code.Op {
			case OP_ADD:
				cpu.Flags.SetAdd(a, b, result)
			case OP_SUB:
				cpu.Flags.SetSub(a, b, result)
			default:
				cpu.Flags.SetNZ(result)
			}
		}

	default:
		err = ErrOpInvalid
		return
	}

	cpu.Pc = next_pc

	return
}

// regValue reads a register, rejecting out-of-range identifiers.
func (cpu *Cpu) regValue(reg int) (value uint32, err error) {
	if reg < 0 || reg >= len(cpu.Register) {
		err = ErrRegisterInvalid
		return
	}

	value = cpu.Register[reg]
	return
}

// regSet writes a register, rejecting out-of-range identifiers.
func (cpu *Cpu) regSet(reg int, value uint32) (err error) {
	if reg < 0 || reg >= len(cpu.Register) {
		err = ErrRegisterInvalid
		return
	}

	cpu.Register[reg] = value
	return
}

// operand evaluates the second operand: an immediate, or a register run
// through the barrel shifter. Shift amounts are taken modulo 32.
func (cpu *Cpu) operand(op2 Operand) (value uint32, err error) {
	if op2.Imm {
		value = op2.Value
		return
	}

	value, err = cpu.regValue(op2.Rm)
	if err != nil {
		return
	}

	amount := op2.Amount
	if op2.RegAmt {
		amount, err = cpu.regValue(op2.Rs)
		if err != nil {
			return
		}
	}
	amount &= 0x1f

	switch op2.Shift {
	case SHIFT_LSL:
		value <<= amount
	case SHIFT_LSR:
		value >>= amount
	case SHIFT_ASR:
		value = uint32(int32(value) >> amount)
	case SHIFT_ROR:
		value = bits.RotateLeft32(value, -int(amount))
	}

	return
}
