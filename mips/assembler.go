// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package mips

import (
	"bufio"
	"fmt"
	"io"
	"iter"
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

// Assembler is a single pass macro assembler for the guest ISA.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Origin  uint32   // Address of the first opcode, unless moved by .org.
	Opcode  []Opcode // List of generated opcodes.

	predefine map[string]string   // Predefines
	Label     map[string]uint32   // Map of labels to guest addresses.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.

	origin  uint32 // Origin of the program being assembled.
	address uint32 // Address of the next opcode.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// PredefineAll adds every define of an iterator as an equate.
func (asm *Assembler) PredefineAll(defines iter.Seq2[string, string]) {
	for equ, value := range defines {
		asm.Predefine(equ, value)
	}
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO": "0",
	"PC":     "0x0",
}

var registerNames = map[string]int{
	"zero": 0, "at": 1, "v0": 2, "v1": 3,
	"a0": 4, "a1": 5, "a2": 6, "a3": 7,
	"t0": 8, "t1": 9, "t2": 10, "t3": 11,
	"t4": 12, "t5": 13, "t6": 14, "t7": 15,
	"s0": 16, "s1": 17, "s2": 18, "s3": 19,
	"s4": 20, "s5": 21, "s6": 22, "s7": 23,
	"t8": 24, "t9": 25, "k0": 26, "k1": 27,
	"gp": 28, "sp": 29, "fp": 30, "s8": 30,
	"ra": 31,
}

// register parses rN, $N, or an ABI register name.
func register(word string) (reg int, err error) {
	name := strings.TrimPrefix(word, "$")
	reg, ok := registerNames[name]
	if ok {
		return
	}
	name = strings.TrimPrefix(name, "r")
	n, perr := strconv.Atoi(name)
	if perr != nil || n < 0 || n > 31 {
		err = fmt.Errorf("%w: %v", ErrRegisterInvalid, word)
		return
	}
	reg = n
	return
}

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value uint32, err error) {
	if equate, ok := asm.Equate[word]; ok {
		word = equate
	}
	if len(word) == 0 {
		err = ErrParseNumber(word)
		return
	}

	invert := false
	if word[0] == '~' {
		invert = true
		word = word[1:]
	}

	v64, err := strconv.ParseInt(word, 0, 64)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}
	if v64 > 0xffff_ffff || v64 < -0x8000_0000 {
		err = fmt.Errorf("%w: %v", ErrImmediateRange, word)
		return
	}

	value = uint32(v64)
	if invert {
		value = ^value
	}

	return
}

// signed16 checks that value is a sign extendable 16-bit immediate.
func signed16(value uint32) (imm uint32, err error) {
	if int32(value) < -0x8000 || int32(value) > 0x7fff {
		err = fmt.Errorf("%w: %#x", ErrImmediateRange, value)
		return
	}
	imm = value & 0xffff
	return
}

// unsigned16 checks that value is a zero extendable 16-bit immediate.
func unsigned16(value uint32) (imm uint32, err error) {
	if value > 0xffff {
		err = fmt.Errorf("%w: %#x", ErrImmediateRange, value)
		return
	}
	imm = value
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value uint32, err error) {
	thread := starlark.Thread{Name: "asm"}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		value32, verr := asm.valueOf(str)
		if verr != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[key] = starlark.MakeInt64(int64(value32))
	}
	for key, addr := range asm.Label {
		pred[key] = starlark.MakeInt64(int64(addr))
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrParseExpression(expr), err)
		return
	}
	st_int, ok := dict["rc"].(starlark.Int)
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

var (
	charRegexp  = regexp.MustCompile(`'\\?[^']'`)
	parenRegexp = regexp.MustCompile(`\$\([^\$]*\)`)
	memRegexp   = regexp.MustCompile(`^([^()]*)\(([^()]+)\)$`)
)

// expand replaces character literals and $(...) expressions, and
// splits the line into words.
func (asm *Assembler) expand(line string, lineno int) (words []string, err error) {
	asm.Equate["LINENO"] = strconv.Itoa(lineno)
	asm.Equate["PC"] = fmt.Sprintf("%#x", asm.address)

	line = charRegexp.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			switch str[1:] {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "t":
				str = "\t"
			case "0":
				str = "\000"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return strconv.Itoa(int(str[0]))
	})

	line = parenRegexp.ReplaceAllStringFunc(line, func(str string) string {
		value, perr := asm.parenEval(str[2 : len(str)-1])
		if perr != nil && err == nil {
			err = perr
		}
		return fmt.Sprintf("%#x", value)
	})
	if err != nil {
		return
	}

	words = strings.Fields(strings.ReplaceAll(line, ",", " "))
	return
}

// assembleLine expands, labels, and encodes one source line.
func (asm *Assembler) assembleLine(line string, lineno int) (err error) {
	words, err := asm.expand(line, lineno)
	if err != nil || len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
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
		return
	}

	for n, word := range words {
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}
		asm.Label[label] = asm.address
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	macro, ok := asm.Macro[words[0]]
	if ok {
		err = asm.expandMacro(words[0], macro, words[1:])
		return
	}

	err = asm.parseWords(words, lineno)
	return
}

// expandMacro assembles the lines of a macro, with its arguments
// bound as equates. '@' in a macro line is replaced by a prefix unique
// to the expansion.
func (asm *Assembler) expandMacro(name string, macro *Macro, args []string) (err error) {
	if len(args) != len(macro.Args) {
		err = ErrMacroSyntax
		return
	}

	saved := maps.Clone(asm.Equate)
	defer func() { asm.Equate = saved }()
	for n, arg := range macro.Args {
		asm.Equate[arg] = args[n]
	}

	unique := fmt.Sprintf("%v_%x_", name, asm.address)
	for n, line := range macro.Lines {
		lineno := macro.LineNo + n
		line = strings.ReplaceAll(line, "@", unique)
		err = asm.assembleLine(line, lineno)
		if err != nil {
			err = &ErrMacro{Macro: name, Line: lineno, Err: err}
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
			return
		}
	}

	return
}

// Parse parses an input stream into a linked Program.
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

	asm.Opcode = asm.Opcode[:0]
	asm.Label = make(map[string]uint32, 16)
	asm.Macro = make(map[string](*Macro))
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}
	asm.origin = asm.Origin
	asm.address = asm.Origin

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("asm: %v: %v\n", lineno, text)
		}

		line, _, _ = strings.Cut(text, ";")
		line, _, _ = strings.Cut(line, "#")
		line = strings.TrimSpace(line)
		words := strings.Fields(line)

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
			macro = &Macro{LineNo: lineno + 1}
			if len(words) > 2 {
				macro.Args = strings.Fields(strings.ReplaceAll(strings.Join(words[2:], " "), ",", " "))
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

		err = asm.assembleLine(line, lineno)
		if err != nil {
			return
		}
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	err = asm.link()
	if err != nil {
		return
	}

	prog = &Program{
		Origin:  asm.origin,
		Opcodes: slices.Clone(asm.Opcode),
	}

	return
}

// link resolves label references.
func (asm *Assembler) link() (err error) {
	for n := range asm.Opcode {
		op := &asm.Opcode[n]
		if op.Link == LINK_NONE {
			continue
		}

		target, ok := asm.Label[op.LinkLabel]
		if !ok {
			err = ErrLabelMissing(op.LinkLabel)
			return
		}

		switch op.Link {
		case LINK_BRANCH:
			var offset uint32
			offset, err = branchOffset(op.Address, target)
			if err != nil {
				return
			}
			op.Codes[0] |= Instruction(offset)
		case LINK_JUMP:
			if (target & 0xf000_0000) != ((op.Address + 4) & 0xf000_0000) {
				err = ErrJumpRange
				return
			}
			op.Codes[0] |= Instruction((target >> 2) & 0x03ff_ffff)
		case LINK_ADDRESS:
			op.Codes[0] |= Instruction(target >> 16)
			op.Codes[1] |= Instruction(target & 0xffff)
		}
	}
	return
}

// branchOffset computes the encoded offset of a branch at pc to target.
func branchOffset(pc, target uint32) (offset uint32, err error) {
	delta := int64(target) - int64(pc+4)
	if delta%4 != 0 || delta < -0x20000 || delta > 0x1fffc {
		err = fmt.Errorf("%w: 0x%08x", ErrBranchRange, target)
		return
	}
	offset = uint32(delta>>2) & 0xffff
	return
}
