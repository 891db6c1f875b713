package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO":    "0",
	"REG_COUNT": fmt.Sprintf("%#v", REG_COUNT),
	"REG_LINK":  fmt.Sprintf("%#v", REG_LINK),
	"MEM_SIZE":  fmt.Sprintf("%#v", MEM_SIZE),
}

// Assembler is a single pass macro assembler for the μARM instruction set.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Opcode  []Opcode // List of generated opcodes.

	predefine map[string]string   // Predefines
	Label     map[string]int      // Map of branch labels to instruction indexes.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.
	expanded  int                 // Macro invocations seen, for unique '@' labels.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// regMap maps register names to register numbers.
var regMap = func() map[string]int {
	m := make(map[string]int, REG_COUNT+3)
	for n := range REG_COUNT {
		m[fmt.Sprintf("r%d", n)] = n
	}
	m["lr"] = REG_LINK
	m["sp"] = 13
	m["pc"] = 15
	return m
}()

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value uint32, err error) {
	invert := false
	if word[0] == '~' {
		invert = true
		word = word[1:]
	}
	v64, err := strconv.ParseInt(word, 0, 33)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	if v64 <= 0xffffffff && v64 >= -int64(0x80000000) {
		if v64 < 0 {
			value = uint32(0xffffffff + (v64 + 1))
		} else {
			value = uint32(v64)
		}
	}

	if invert {
		value = ^value
	}

	return
}

// register returns the register number for a word.
func (asm *Assembler) register(word string) (reg int, err error) {
	reg, ok := regMap[strings.ToLower(word)]
	if !ok {
		err = ErrParseRegister(word)
	}
	return
}

// immediate returns the value of a word with an optional '#' prefix.
func (asm *Assembler) immediate(word string) (value uint32, err error) {
	word = strings.TrimPrefix(word, "#")
	if len(word) == 0 {
		err = ErrOperandMissing
		return
	}
	return asm.valueOf(word)
}

// shiftMap maps barrel shift mnemonics.
var shiftMap = map[string]ShiftType{
	"LSL": SHIFT_LSL,
	"LSR": SHIFT_LSR,
	"ASR": SHIFT_ASR,
	"ROR": SHIFT_ROR,
}

// operand parses the flexible second operand: an immediate, a register,
// or a register with a barrel shift suffix ("r2, LSL #4" or "r2, LSL r3").
func (asm *Assembler) operand(words []string) (op2 Operand, err error) {
	if len(words) == 0 {
		err = ErrOperandMissing
		return
	}

	if words[0][0] == '#' {
		if len(words) > 1 {
			err = ErrOpcodeExtraArgs
			return
		}
		var value uint32
		value, err = asm.immediate(words[0])
		if err != nil {
			return
		}
		op2 = Imm(value)
		return
	}

	rm, err := asm.register(words[0])
	if err != nil {
		return
	}

	switch len(words) {
	case 1:
		op2 = Reg(rm)
	case 3:
		shift, ok := shiftMap[strings.ToUpper(words[1])]
		if !ok {
			err = ErrShiftInvalid
			return
		}
		if words[2][0] == '#' {
			var amount uint32
			amount, err = asm.immediate(words[2])
			if err != nil {
				return
			}
			op2 = RegShift(rm, shift, amount)
		} else {
			var rs int
			rs, err = asm.register(words[2])
			if err != nil {
				return
			}
			op2 = RegShiftReg(rm, shift, rs)
		}
	default:
		err = ErrOpcodeExtraArgs
	}

	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value uint32, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var value32 uint32
		value32, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[key] = starlark.MakeInt(int(value32))
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = uint32(st_int64)
	return
}

// operandSplit turns operand punctuation into word separators.
var operandSplit = strings.NewReplacer(",", " ", "[", " ", "]", " ")

// parseLine parses a single line as an opcode.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do $() evaluations
	re := regexp.MustCompile(`\$\([^\$]*\)`)
	line = re.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%#v", value)
	})
	if err != nil {
		return
	}

	line = operandSplit.Replace(line)
	words = slices.DeleteFunc(strings.Split(line, " "), func(a string) bool { return len(a) == 0 })

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if len(words) > 0 && words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		if len(word) == 0 {
			continue
		}

		// Check for equates, also behind '#' and '=' prefixes.
		prefix := ""
		if word[0] == '#' || word[0] == '=' {
			prefix = word[:1]
			word = word[1:]
		}
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = prefix + equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		if asm.Label == nil {
			asm.Label = make(map[string]int, 16)
		}
		asm.Label[label] = asm.currentIp()
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		name := words[0]

		args := words[1:]
		if len(args) != len(macro.Args) {
			err = ErrMacroSyntax
			return
		}
		// Turn args into equs
		old_equate := maps.Clone(asm.Equate)
		for n, arg := range macro.Args {
			asm.Equate[arg] = words[1+n]
		}
		defer func() { asm.Equate = old_equate }()

		// '@' labels are made unique per invocation, not per macro, so
		// the same macro can expand more than once.
		asm.expanded += 1
		unique := fmt.Sprintf("%v_%v_", name, asm.expanded)

		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = strings.ReplaceAll(line, "@", unique)
			words, err = asm.parseLine(line, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}

			err = asm.parseWords(words, macro.LineNo+n)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}
		}

		words = nil
		return
	}

	return
}

// currentIp gets the current instruction index.
func (asm *Assembler) currentIp() int {
	if len(asm.Opcode) == 0 {
		return 0
	}

	last := asm.Opcode[len(asm.Opcode)-1]

	return last.Ip + len(last.Codes)
}

// Parse parses an input stream into a Program containing opcodes.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {

	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	clear(asm.Label)
	asm.Opcode = asm.Opcode[:0]
	if asm.Macro == nil {
		asm.Macro = make(map[string](*Macro))
	}
	clear(asm.Macro)
	asm.expanded = 0
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		text_comment := strings.Split(text, ";")
		line = strings.TrimSpace(text_comment[0])
		all_words := strings.Split(line, " ")

		var words []string
		for _, single := range all_words {
			if len(single) > 0 {
				words = append(words, single)
			}
		}

		// .macro NAME arg...
		if len(words) > 0 && words[0] == ".macro" {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
			}
			if len(words) > 2 {
				macro.Args = words[2:]
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && words[0] == ".endm" {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	// Final linking of branch labels.
	for n := range asm.Opcode {
		op := &asm.Opcode[n]

		if len(op.LinkLabel) == 0 {
			continue
		}
		label := op.LinkLabel
		ip, ok := asm.Label[label]
		if !ok {
			err = ErrLabelMissing(label)
			return
		}
		if len(op.Codes) < 1 {
			log.Fatalf("Unable to link label '%s' to line %d: %v", label, op.LineNo, op.Words)
		}
		linked := &op.Codes[len(op.Codes)-1]
		linked.Target = ip
	}

	prog = &Program{
		Opcodes: slices.Clone(asm.Opcode),
	}

	return
}

// opNames lists mnemonic bases longest-prefix first, so that "BLS"
// backtracks from BL to B with the LS condition.
var opNames = []struct {
	Name string
	Op   Op
}{
	{"MOV", OP_MOV},
	{"LDR", OP_LDR},
	{"STR", OP_STR},
	{"ADD", OP_ADD},
	{"SUB", OP_SUB},
	{"MUL", OP_MUL},
	{"CMP", OP_CMP},
	{"AND", OP_AND},
	{"ORR", OP_ORR},
	{"LSL", OP_LSL},
	{"LSR", OP_LSR},
	{"ASR", OP_ASR},
	{"ROR", OP_ROR},
	{"BL", OP_BL},
	{"B", OP_B},
}

// condMap maps condition suffixes.
var condMap = map[string]Cond{
	"EQ": COND_EQ,
	"NE": COND_NE,
	"CS": COND_CS,
	"CC": COND_CC,
	"MI": COND_MI,
	"PL": COND_PL,
	"VS": COND_VS,
	"VC": COND_VC,
	"HI": COND_HI,
	"LS": COND_LS,
	"GE": COND_GE,
	"LT": COND_LT,
	"GT": COND_GT,
	"LE": COND_LE,
	"AL": COND_AL,
}

// parseMnemonic splits a mnemonic into base operation, condition suffix
// and S suffix. Suffix order is op, condition, S.
func parseMnemonic(word string) (op Op, cond Cond, setflags bool, err error) {
	mn := strings.ToUpper(word)

	for _, entry := range opNames {
		rest, ok := strings.CutPrefix(mn, entry.Name)
		if !ok {
			continue
		}

		cond = COND_AL
		setflags = false
		if len(rest) >= 2 {
			if c, is_cond := condMap[rest[:2]]; is_cond {
				cond = c
				rest = rest[2:]
			}
		}
		if rest == "S" && entry.Op != OP_B && entry.Op != OP_BL {
			setflags = true
			rest = ""
		}
		if rest != "" {
			// Not a valid suffix for this base; try a shorter one.
			continue
		}

		op = entry.Op
		if op == OP_CMP {
			setflags = true
		}
		return
	}

	err = ErrOpcodeInvalid
	return
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var codes []Instruction
	var label string

	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := words

	defer func() {
		if len(codes) == 0 {
			return
		}
		opcode := Opcode{LineNo: lineno, Ip: asm.currentIp(), Words: initial_words, Codes: codes, LinkLabel: label}
		asm.Opcode = append(asm.Opcode, opcode)
	}()

	op, cond, setflags, err := parseMnemonic(words[0])
	if err != nil {
		return
	}
	args := words[1:]

	switch op {
	case OP_B, OP_BL:
		if len(args) < 1 {
			err = ErrOperandMissing
			return
		}
		if len(args) > 1 {
			err = ErrOpcodeExtraArgs
			return
		}
		target, num_err := asm.valueOf(args[0])
		if num_err == nil {
			codes = append(codes, MakeInstBranch(cond, op == OP_BL, int(target)))
		} else {
			codes = append(codes, MakeInstBranch(cond, op == OP_BL, 0))
			label = args[0]
		}

	case OP_LDR, OP_STR:
		if len(args) < 2 {
			err = ErrOperandMissing
			return
		}
		var rd int
		rd, err = asm.register(args[0])
		if err != nil {
			return
		}
		if op == OP_LDR && args[1][0] == '=' {
			// LDR rd, =value pseudo instruction.
			if len(args) > 2 {
				err = ErrOpcodeExtraArgs
				return
			}
			var value uint32
			value, err = asm.valueOf(args[1][1:])
			if err != nil {
				return
			}
			codes = append(codes, MakeInstLoadImm(cond, rd, value))
			return
		}
		var rn int
		rn, err = asm.register(args[1])
		if err != nil {
			return
		}
		var offset uint32
		if len(args) > 3 {
			err = ErrOpcodeExtraArgs
			return
		}
		if len(args) == 3 {
			offset, err = asm.immediate(args[2])
			if err != nil {
				return
			}
		}
		codes = append(codes, MakeInstMem(cond, op, rd, rn, offset))

	case OP_CMP:
		if len(args) < 2 {
			err = ErrOperandMissing
			return
		}
		var rn int
		rn, err = asm.register(args[0])
		if err != nil {
			return
		}
		var op2 Operand
		op2, err = asm.operand(args[1:])
		if err != nil {
			return
		}
		codes = append(codes, MakeInstCmp(cond, rn, op2))

	case OP_MOV:
		if len(args) < 2 {
			err = ErrOperandMissing
			return
		}
		var rd int
		rd, err = asm.register(args[0])
		if err != nil {
			return
		}
		var op2 Operand
		op2, err = asm.operand(args[1:])
		if err != nil {
			return
		}
		codes = append(codes, MakeInstData(cond, OP_MOV, setflags, rd, 0, op2))

	case OP_LSL, OP_LSR, OP_ASR, OP_ROR:
		// "LSL rd, rm, #n", "LSL rd, rm, rs", or "ROR rd, #n" with rm=rd.
		if len(args) < 2 {
			err = ErrOperandMissing
			return
		}
		if len(args) > 3 {
			err = ErrOpcodeExtraArgs
			return
		}
		var rd int
		rd, err = asm.register(args[0])
		if err != nil {
			return
		}
		rm := rd
		amtWord := args[1]
		if len(args) == 3 {
			rm, err = asm.register(args[1])
			if err != nil {
				return
			}
			amtWord = args[2]
		}
		if amtWord[0] == '#' {
			var amount uint32
			amount, err = asm.immediate(amtWord)
			if err != nil {
				return
			}
			codes = append(codes, MakeInstShift(cond, op, setflags, rd, rm, amount))
		} else {
			var rs int
			rs, err = asm.register(amtWord)
			if err != nil {
				return
			}
			shift := shiftMap[op.String()]
			codes = append(codes, MakeInstData(cond, op, setflags, rd, 0,
				RegShiftReg(rm, shift, rs)))
		}

	case OP_ADD, OP_SUB, OP_MUL, OP_AND, OP_ORR:
		if len(args) < 3 {
			err = ErrOperandMissing
			return
		}
		var rd, rn int
		rd, err = asm.register(args[0])
		if err != nil {
			return
		}
		rn, err = asm.register(args[1])
		if err != nil {
			return
		}
		var op2 Operand
		op2, err = asm.operand(args[2:])
		if err != nil {
			return
		}
		if op == OP_MUL && op2.Imm {
			// MUL takes register factors only.
			err = ErrInstructionInvalid
			return
		}
		codes = append(codes, MakeInstData(cond, op, setflags, rd, rn, op2))

	default:
		err = ErrInstructionInvalid
		return
	}

	return
}
