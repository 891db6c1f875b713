// Package emulator drives a cpu.Cpu through a complete program run,
// mapping machine state back to source lines and bounding execution with
// a step budget.
package emulator

import (
	"errors"
	"fmt"
	"iter"
	"maps"

	"github.com/uarm/uarm/cpu"
	"github.com/uarm/uarm/internal"
)

const (
	STEP_LIMIT = 65536 // Default step budget for a single run.
)

var _emulator_defines = map[string]string{
	"STEP_LIMIT": fmt.Sprintf("%v", STEP_LIMIT),
}

// Emulator state: CPU plus the program listing it is running.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently running program listing.

	StepLimit int // Maximum instruction cycles per Run; 0 means STEP_LIMIT.
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Cpu:       cpu.NewCpu(cpu.MEM_SIZE),
		Program:   &cpu.Program{},
		StepLimit: STEP_LIMIT,
	}

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
	)
}

// Reset loads the program text into the CPU and restarts execution.
func (emu *Emulator) Reset() (err error) {
	emu.Cpu.Verbose = emu.Verbose

	err = emu.Cpu.Load(emu.Program.Text())
	if err != nil {
		return
	}

	return
}

// LineNo returns the current line number for the executing opcode.
func (emu *Emulator) LineNo() int {
	for _, op := range emu.Program.Opcodes {
		if emu.Cpu.Pc >= op.Ip && emu.Cpu.Pc < (op.Ip+len(op.Codes)) {
			return op.LineNo
		}
	}

	return 0
}

// Tick performs a single tick of the emulator. It reports done when the
// machine halts or runs off the end of the text.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{LineNo: lineno, Err: err}
		}
	}()

	err = emu.Cpu.Tick()
	if errors.Is(err, cpu.ErrPcEnd) {
		err = nil
		done = true
		return
	}
	if err != nil {
		return
	}

	done = emu.Cpu.State == cpu.STATE_HALTED

	return
}

// Run resets the emulator and executes until the program halts, runs off
// the end of its text, or exhausts the step budget.
func (emu *Emulator) Run() (err error) {
	err = emu.Reset()
	if err != nil {
		return
	}

	limit := emu.StepLimit
	if limit <= 0 {
		limit = STEP_LIMIT
	}

	for {
		var done bool
		done, err = emu.Tick()
		if err != nil || done {
			return
		}
		if emu.Cpu.Ticks >= limit {
			err = &ErrRuntime{LineNo: emu.LineNo(), Err: ErrStepLimit}
			return
		}
	}
}
