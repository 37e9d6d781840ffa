// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package mips

import (
	"fmt"
)

type format int

const (
	fmtRRR     format = iota // rd, rs, rt
	fmtShift                 // rd, rt, sa
	fmtShiftV                // rd, rt, rs
	fmtRs                    // rs
	fmtRd                    // rd
	fmtRsRt                  // rs, rt
	fmtJalr                  // [rd,] rs
	fmtCode                  // [code]
	fmtImmS                  // rt, rs, signed imm
	fmtImmU                  // rt, rs, unsigned imm
	fmtLui                   // rt, imm
	fmtMem                   // rt, offset(rs)
	fmtBranch2               // rs, rt, target
	fmtBranch1               // rs, target
	fmtJump                  // target
)

type encoding struct {
	format format
	op     uint32 // Primary opcode.
	funct  uint32 // SPECIAL funct, or REGIMM rt.
}

var encodings = map[string]encoding{
	"sll":     {fmtShift, OP_SPECIAL, FUNCT_SLL},
	"srl":     {fmtShift, OP_SPECIAL, FUNCT_SRL},
	"sra":     {fmtShift, OP_SPECIAL, FUNCT_SRA},
	"sllv":    {fmtShiftV, OP_SPECIAL, FUNCT_SLLV},
	"srlv":    {fmtShiftV, OP_SPECIAL, FUNCT_SRLV},
	"srav":    {fmtShiftV, OP_SPECIAL, FUNCT_SRAV},
	"jr":      {fmtRs, OP_SPECIAL, FUNCT_JR},
	"jalr":    {fmtJalr, OP_SPECIAL, FUNCT_JALR},
	"syscall": {fmtCode, OP_SPECIAL, FUNCT_SYSCALL},
	"break":   {fmtCode, OP_SPECIAL, FUNCT_BREAK},
	"mfhi":    {fmtRd, OP_SPECIAL, FUNCT_MFHI},
	"mthi":    {fmtRs, OP_SPECIAL, FUNCT_MTHI},
	"mflo":    {fmtRd, OP_SPECIAL, FUNCT_MFLO},
	"mtlo":    {fmtRs, OP_SPECIAL, FUNCT_MTLO},
	"mult":    {fmtRsRt, OP_SPECIAL, FUNCT_MULT},
	"multu":   {fmtRsRt, OP_SPECIAL, FUNCT_MULTU},
	"div":     {fmtRsRt, OP_SPECIAL, FUNCT_DIV},
	"divu":    {fmtRsRt, OP_SPECIAL, FUNCT_DIVU},
	"add":     {fmtRRR, OP_SPECIAL, FUNCT_ADD},
	"addu":    {fmtRRR, OP_SPECIAL, FUNCT_ADDU},
	"sub":     {fmtRRR, OP_SPECIAL, FUNCT_SUB},
	"subu":    {fmtRRR, OP_SPECIAL, FUNCT_SUBU},
	"and":     {fmtRRR, OP_SPECIAL, FUNCT_AND},
	"or":      {fmtRRR, OP_SPECIAL, FUNCT_OR},
	"xor":     {fmtRRR, OP_SPECIAL, FUNCT_XOR},
	"nor":     {fmtRRR, OP_SPECIAL, FUNCT_NOR},
	"slt":     {fmtRRR, OP_SPECIAL, FUNCT_SLT},
	"sltu":    {fmtRRR, OP_SPECIAL, FUNCT_SLTU},
	"bltz":    {fmtBranch1, OP_REGIMM, REGIMM_BLTZ},
	"bgez":    {fmtBranch1, OP_REGIMM, REGIMM_BGEZ},
	"bltzal":  {fmtBranch1, OP_REGIMM, REGIMM_BLTZAL},
	"bgezal":  {fmtBranch1, OP_REGIMM, REGIMM_BGEZAL},
	"j":       {fmtJump, OP_J, 0},
	"jal":     {fmtJump, OP_JAL, 0},
	"beq":     {fmtBranch2, OP_BEQ, 0},
	"bne":     {fmtBranch2, OP_BNE, 0},
	"blez":    {fmtBranch1, OP_BLEZ, 0},
	"bgtz":    {fmtBranch1, OP_BGTZ, 0},
	"addi":    {fmtImmS, OP_ADDI, 0},
	"addiu":   {fmtImmS, OP_ADDIU, 0},
	"slti":    {fmtImmS, OP_SLTI, 0},
	"sltiu":   {fmtImmS, OP_SLTIU, 0},
	"andi":    {fmtImmU, OP_ANDI, 0},
	"ori":     {fmtImmU, OP_ORI, 0},
	"xori":    {fmtImmU, OP_XORI, 0},
	"lui":     {fmtLui, OP_LUI, 0},
	"lb":      {fmtMem, OP_LB, 0},
	"lh":      {fmtMem, OP_LH, 0},
	"lw":      {fmtMem, OP_LW, 0},
	"lbu":     {fmtMem, OP_LBU, 0},
	"lhu":     {fmtMem, OP_LHU, 0},
	"sb":      {fmtMem, OP_SB, 0},
	"sh":      {fmtMem, OP_SH, 0},
	"sw":      {fmtMem, OP_SW, 0},
}

// operands is the expected operand count for each format, as (min, max).
var operands = map[format][2]int{
	fmtRRR:     {3, 3},
	fmtShift:   {3, 3},
	fmtShiftV:  {3, 3},
	fmtRs:      {1, 1},
	fmtRd:      {1, 1},
	fmtRsRt:    {2, 2},
	fmtJalr:    {1, 2},
	fmtCode:    {0, 1},
	fmtImmS:    {3, 3},
	fmtImmU:    {3, 3},
	fmtLui:     {2, 2},
	fmtMem:     {2, 2},
	fmtBranch2: {3, 3},
	fmtBranch1: {2, 2},
	fmtJump:    {1, 1},
}

// pseudo rewrites pseudo instructions into real ones.
func pseudo(words []string) []string {
	switch {
	case len(words) == 1 && words[0] == "nop":
		return []string{"sll", "r0", "r0", "0"}
	case len(words) == 3 && words[0] == "move":
		return []string{"addu", words[1], words[2], "r0"}
	case len(words) == 2 && words[0] == "b":
		return []string{"beq", "r0", "r0", words[1]}
	case len(words) == 3 && words[0] == "beqz":
		return []string{"beq", words[1], "r0", words[2]}
	case len(words) == 3 && words[0] == "bnez":
		return []string{"bne", words[1], "r0", words[2]}
	case len(words) == 3 && words[0] == "negu":
		return []string{"subu", words[1], "r0", words[2]}
	case len(words) == 3 && words[0] == "not":
		return []string{"nor", words[1], words[2], "r0"}
	}
	return words
}

// memOperand parses offset(base).
func (asm *Assembler) memOperand(word string) (offset uint32, base int, err error) {
	match := memRegexp.FindStringSubmatch(word)
	if match == nil {
		err = fmt.Errorf("%w: %v", ErrOpcodeMissing, word)
		return
	}
	if len(match[1]) > 0 {
		var value uint32
		value, err = asm.valueOf(match[1])
		if err != nil {
			return
		}
		offset, err = signed16(value)
		if err != nil {
			return
		}
	}
	base, err = register(match[2])
	return
}

// emit appends an opcode at the current address.
func (asm *Assembler) emit(lineno int, words []string, label string, link LinkKind, codes ...Instruction) {
	opcode := Opcode{
		LineNo:    lineno,
		Address:   asm.address,
		Words:     words,
		Codes:     codes,
		LinkLabel: label,
		Link:      link,
	}
	asm.Opcode = append(asm.Opcode, opcode)
	asm.address += 4 * uint32(len(codes))
}

// directive handles the dot directives other than .equ and .macro.
func (asm *Assembler) directive(words []string, lineno int) (err error) {
	switch words[0] {
	case ".org":
		if len(words) != 2 {
			err = ErrOrgSyntax
			return
		}
		var addr uint32
		addr, err = asm.valueOf(words[1])
		if err != nil {
			return
		}
		if addr%4 != 0 {
			err = ErrOrgSyntax
			return
		}
		if len(asm.Opcode) == 0 {
			asm.origin = addr
		} else if addr < asm.address {
			err = ErrOrgBackwards
			return
		}
		asm.address = addr
	case ".word":
		if len(words) < 2 {
			err = ErrOpcodeMissing
			return
		}
		codes := make([]Instruction, 0, len(words)-1)
		for _, word := range words[1:] {
			var value uint32
			value, err = asm.valueOf(word)
			if err != nil {
				return
			}
			codes = append(codes, Instruction(value))
		}
		asm.emit(lineno, words, "", LINK_NONE, codes...)
	default:
		err = ErrInstructionUnknown
	}
	return
}

// loadImmediate encodes li/la.
func (asm *Assembler) loadImmediate(words []string, lineno int) (err error) {
	if len(words) < 3 {
		err = ErrOpcodeMissing
		return
	}
	if len(words) > 3 {
		err = ErrOpcodeExtraArgs
		return
	}

	rt, err := register(words[1])
	if err != nil {
		return
	}

	value, verr := asm.valueOf(words[2])
	if verr != nil {
		if words[0] != "la" {
			err = verr
			return
		}
		asm.emit(lineno, words, words[2], LINK_ADDRESS,
			MakeI(OP_LUI, rt, REG_ZERO, 0),
			MakeI(OP_ORI, rt, rt, 0))
		return
	}

	switch {
	case words[0] == "la":
		asm.emit(lineno, words, "", LINK_NONE,
			MakeI(OP_LUI, rt, REG_ZERO, value>>16),
			MakeI(OP_ORI, rt, rt, value&0xffff))
	case int32(value) >= -0x8000 && int32(value) <= 0x7fff:
		asm.emit(lineno, words, "", LINK_NONE, MakeI(OP_ADDIU, rt, REG_ZERO, value))
	case value <= 0xffff:
		asm.emit(lineno, words, "", LINK_NONE, MakeI(OP_ORI, rt, REG_ZERO, value))
	case value&0xffff == 0:
		asm.emit(lineno, words, "", LINK_NONE, MakeI(OP_LUI, rt, REG_ZERO, value>>16))
	default:
		asm.emit(lineno, words, "", LINK_NONE,
			MakeI(OP_LUI, rt, REG_ZERO, value>>16),
			MakeI(OP_ORI, rt, rt, value&0xffff))
	}
	return
}

// parseWords encodes the words of a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	if len(words) == 0 {
		return
	}

	if words[0][0] == '.' {
		err = asm.directive(words, lineno)
		return
	}

	if words[0] == "li" || words[0] == "la" {
		err = asm.loadImmediate(words, lineno)
		return
	}

	initial_words := words
	words = pseudo(words)

	enc, ok := encodings[words[0]]
	if !ok {
		err = fmt.Errorf("%w: %v", ErrInstructionUnknown, words[0])
		return
	}

	args := words[1:]
	limits := operands[enc.format]
	if len(args) < limits[0] {
		err = ErrOpcodeMissing
		return
	}
	if len(args) > limits[1] {
		err = ErrOpcodeExtraArgs
		return
	}

	regs := func(names ...string) (nums []int, err error) {
		for _, name := range names {
			var reg int
			reg, err = register(name)
			if err != nil {
				return
			}
			nums = append(nums, reg)
		}
		return
	}

	var code Instruction
	var label string
	link := LINK_NONE

	switch enc.format {
	case fmtRRR:
		var r []int
		r, err = regs(args...)
		if err != nil {
			return
		}
		code = MakeR(enc.funct, r[0], r[1], r[2], 0)
	case fmtShift:
		var r []int
		r, err = regs(args[:2]...)
		if err != nil {
			return
		}
		var sa uint32
		sa, err = asm.valueOf(args[2])
		if err != nil {
			return
		}
		if sa > 31 {
			err = ErrImmediateRange
			return
		}
		code = MakeR(enc.funct, r[0], 0, r[1], sa)
	case fmtShiftV:
		var r []int
		r, err = regs(args...)
		if err != nil {
			return
		}
		code = MakeR(enc.funct, r[0], r[2], r[1], 0)
	case fmtRs:
		var r []int
		r, err = regs(args...)
		if err != nil {
			return
		}
		code = MakeR(enc.funct, 0, r[0], 0, 0)
	case fmtRd:
		var r []int
		r, err = regs(args...)
		if err != nil {
			return
		}
		code = MakeR(enc.funct, r[0], 0, 0, 0)
	case fmtRsRt:
		var r []int
		r, err = regs(args...)
		if err != nil {
			return
		}
		code = MakeR(enc.funct, 0, r[0], r[1], 0)
	case fmtJalr:
		var r []int
		r, err = regs(args...)
		if err != nil {
			return
		}
		if len(r) == 1 {
			r = []int{REG_RA, r[0]}
		}
		code = MakeR(enc.funct, r[0], r[1], 0, 0)
	case fmtCode:
		var value uint32
		if len(args) == 1 {
			value, err = asm.valueOf(args[0])
			if err != nil {
				return
			}
			if value > 0xf_ffff {
				err = ErrImmediateRange
				return
			}
		}
		if enc.funct == FUNCT_SYSCALL {
			code = MakeSyscall(value)
		} else {
			code = MakeBreak(value)
		}
	case fmtImmS, fmtImmU:
		var r []int
		r, err = regs(args[:2]...)
		if err != nil {
			return
		}
		var value uint32
		value, err = asm.valueOf(args[2])
		if err != nil {
			return
		}
		if enc.format == fmtImmS {
			value, err = signed16(value)
		} else {
			value, err = unsigned16(value)
		}
		if err != nil {
			return
		}
		code = MakeI(enc.op, r[0], r[1], value)
	case fmtLui:
		var rt int
		rt, err = register(args[0])
		if err != nil {
			return
		}
		var value uint32
		value, err = asm.valueOf(args[1])
		if err != nil {
			return
		}
		value, err = unsigned16(value)
		if err != nil {
			return
		}
		code = MakeI(enc.op, rt, REG_ZERO, value)
	case fmtMem:
		var rt, base int
		rt, err = register(args[0])
		if err != nil {
			return
		}
		var offset uint32
		offset, base, err = asm.memOperand(args[1])
		if err != nil {
			return
		}
		code = MakeI(enc.op, rt, base, offset)
	case fmtBranch2, fmtBranch1:
		var r []int
		r, err = regs(args[:len(args)-1]...)
		if err != nil {
			return
		}
		rs, rt := r[0], 0
		if enc.format == fmtBranch2 {
			rt = r[1]
		} else {
			rt = int(enc.funct)
		}
		code = MakeI(enc.op, rt, rs, 0)
		target := args[len(args)-1]
		addr, verr := asm.valueOf(target)
		if verr != nil {
			label, link = target, LINK_BRANCH
		} else {
			var offset uint32
			offset, err = branchOffset(asm.address, addr)
			if err != nil {
				return
			}
			code |= Instruction(offset)
		}
	case fmtJump:
		code = MakeJ(enc.op, 0)
		addr, verr := asm.valueOf(args[0])
		if verr != nil {
			label, link = args[0], LINK_JUMP
		} else {
			if (addr & 0xf000_0000) != ((asm.address + 4) & 0xf000_0000) {
				err = ErrJumpRange
				return
			}
			code = MakeJ(enc.op, addr)
		}
	}

	asm.emit(lineno, initial_words, label, link, code)
	return
}
