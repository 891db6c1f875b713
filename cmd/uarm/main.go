package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/olekukonko/tablewriter"

	"github.com/uarm/uarm/cpu"
	"github.com/uarm/uarm/emulator"
)

// dumpState prints the register bank, flags, and machine state as a table.
func dumpState(emu *emulator.Emulator) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Register", "Value"})

	for n, value := range emu.Cpu.Register {
		table.Append([]string{fmt.Sprintf("r%d", n), fmt.Sprintf("0x%08x", value)})
	}
	table.Append([]string{"pc", fmt.Sprintf("%d", emu.Cpu.Pc)})
	table.Append([]string{"flags", emu.Cpu.Flags.String()})
	table.Append([]string{"state", emu.Cpu.State.String()})
	table.Append([]string{"ticks", fmt.Sprintf("%d", emu.Cpu.Ticks)})

	table.Render()
}

func main() {
	var compile string
	var binary string
	var output string
	var limit int
	var verbose bool

	flag.StringVar(&compile, "c", "", ".s assembly file to compile and run")
	flag.StringVar(&binary, "b", "", ".bin instruction stream to run")
	flag.StringVar(&output, "o", "", "save the encoded instruction stream, do not execute")
	flag.IntVar(&limit, "n", emulator.STEP_LIMIT, "step limit")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}
	if len(compile) != 0 && len(binary) != 0 {
		log.Fatalf("%v: -c and -b are mutually exclusive", os.Args[0])
	}

	emu := emulator.NewEmulator()
	emu.Verbose = verbose
	emu.StepLimit = limit

	prog := &cpu.Program{}

	// Compile a new instruction stream.
	if len(compile) != 0 {
		inf, err := os.Open(compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		defer inf.Close()

		asm := &cpu.Assembler{}
		for attr, value := range emu.Defines() {
			asm.Predefine(attr, value)
		}
		prog, err = asm.Parse(inf)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
	}

	// Load a raw instruction stream.
	if len(binary) != 0 {
		data, err := os.ReadFile(binary)
		if err != nil {
			log.Fatalf("%v: %v", binary, err)
		}

		text, err := cpu.DecodeBinary(data)
		if err != nil {
			log.Fatalf("%v: %v", binary, err)
		}
		for ip, code := range text {
			prog.Opcodes = append(prog.Opcodes, cpu.Opcode{
				LineNo: ip + 1,
				Ip:     ip,
				Words:  []string{code.String()},
				Codes:  []cpu.Instruction{code},
			})
		}
	}

	if len(output) != 0 {
		data, err := prog.Bytes()
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
		err = os.WriteFile(output, data, 0o644)
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
		return
	}

	emu.Program = prog

	err := emu.Run()
	if err != nil {
		log.Fatal(err)
	}

	dumpState(emu)
}
