package cpu

import (
	"errors"

	"github.com/uarm/uarm/translate"
)

var f = translate.From

var (
	// Machine errors
	ErrHalted          = errors.New(f("halted"))
	ErrPcEnd           = errors.New(f("end of text"))
	ErrPcRange         = errors.New(f("pc out of range"))
	ErrRegisterInvalid = errors.New(f("register invalid"))
	ErrAddressRange    = errors.New(f("address out of range"))
	ErrOpInvalid       = errors.New(f("operation invalid"))

	// Word encode/decode errors
	ErrImmediateRange = errors.New(f("immediate not encodable"))
	ErrBranchRange    = errors.New(f("branch out of range"))

	// Assembler errors
	ErrEquateSyntax       = errors.New(f(".equ syntax"))
	ErrEquateDuplicate    = errors.New(f(".equ duplicated"))
	ErrLabelDuplicate     = errors.New(f("label duplicated"))
	ErrMacroSyntax        = errors.New(f(".macro syntax"))
	ErrMacroNesting       = errors.New(f(".macro in .macro prohibited"))
	ErrMacroDuplicate     = errors.New(f(".macro duplicated"))
	ErrMacroLonely        = errors.New(f(".macro without .endm"))
	ErrMacroLonelyEndm    = errors.New(f(".endm without .macro"))
	ErrOpcodeExtraArgs    = errors.New(f("excessive arguments"))
	ErrOperandMissing     = errors.New(f("operand missing"))
	ErrOpcodeInvalid      = errors.New(f("opcode invalid"))
	ErrShiftInvalid       = errors.New(f("shift invalid"))
	ErrInstructionInvalid = errors.New(f("instruction invalid"))
)

type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

// ErrInstruction wraps the instruction a runtime error occurred on.
type ErrInstruction Instruction

func (ei ErrInstruction) Error() string {
	return f("bad instruction %v", Instruction(ei).String())
}

func (ei ErrInstruction) Is(err error) (ok bool) {
	_, ok = err.(ErrInstruction)
	return
}

// ErrWord is an instruction word that could not be decoded.
type ErrWord uint32

func (ew ErrWord) Error() string {
	return f("cannot decode word 0x%08x", uint32(ew))
}

func (ew ErrWord) Is(err error) (ok bool) {
	_, ok = err.(ErrWord)
	return
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseRegister string

func (err ErrParseRegister) Error() string {
	return f("'%v' is not a register", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

type ErrMacro struct {
	Macro string
	Line  int
	Err   error
}

func (err ErrMacro) Error() string {
	return f("macro %v line %v %v", err.Macro, err.Line, err.Err.Error())
}

func (err ErrMacro) Unwrap() error {
	return err.Err
}
