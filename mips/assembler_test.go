package mips

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func doAssemble(t *testing.T, origin uint32, program []string) (prog *Program) {
	asm := &Assembler{Origin: origin}
	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	if err != nil {
		t.Fatal(err)
	}
	return
}

func codesOf(prog *Program) (codes []Instruction) {
	for _, code := range prog.Codes() {
		codes = append(codes, code)
	}
	return
}

func TestAssembler(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	prog, err := asm.Parse(strings.NewReader(""))
	assert.NoError(err)
	assert.Equal(0, len(prog.Opcodes))
	assert.Equal("0", asm.Equate["LINENO"])
}

func TestAssemblerEncoding(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"addiu r1, r0, 5",     // 0x1000
		"lui $2, 0x1234",      // 0x1004
		"or v1, at, v0",       // 0x1008
		"sll t0, t1, 3",       // 0x100c
		"srav t0, t1, t2",     // 0x1010
		"lw a0, 16(sp)",       // 0x1014
		"sb a1, -1(a0)",       // 0x1018
		"mult a0, a1",         // 0x101c
		"mflo s0",             // 0x1020
		"jalr t9",             // 0x1024
		"syscall 0xbeef",      // 0x1028
		"break",               // 0x102c
		"nop",                 // 0x1030
		"move s1, s0",         // 0x1034
		"andi t0, t0, 0xff00", // 0x1038
	}

	prog := doAssemble(t, 0x1000, program)

	expected := []Instruction{
		MakeI(OP_ADDIU, 1, 0, 5),
		MakeI(OP_LUI, 2, 0, 0x1234),
		MakeR(FUNCT_OR, 3, 1, 2, 0),
		MakeR(FUNCT_SLL, 8, 0, 9, 3),
		MakeR(FUNCT_SRAV, 8, 10, 9, 0),
		MakeI(OP_LW, 4, 29, 16),
		MakeI(OP_SB, 5, 4, 0xffff),
		MakeR(FUNCT_MULT, 0, 4, 5, 0),
		MakeR(FUNCT_MFLO, 16, 0, 0, 0),
		MakeR(FUNCT_JALR, 31, 25, 0, 0),
		MakeSyscall(0xbeef),
		MakeBreak(0),
		NOP,
		MakeR(FUNCT_ADDU, 17, 16, 0, 0),
		MakeI(OP_ANDI, 8, 8, 0xff00),
	}

	assert.Equal(expected, codesOf(prog))
	assert.Equal(uint32(0x1000), prog.Origin)
	assert.Equal(uint32(0x103c), prog.End())
	assert.Equal(4*len(expected), len(prog.Binary()))
	assert.Equal([]byte{0x05, 0x00, 0x01, 0x24}, prog.Binary()[:4])

	dbg := prog.Debug(0x1008)
	assert.Equal(3, dbg.LineNo)
	assert.Equal(0, dbg.Index)
	assert.Equal([]string{"or", "v1", "at", "v0"}, dbg.Words)
}

func TestAssemblerLabels(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		"start:  li   t0, 3",          // 0x1000
		"loop:   addiu t0, t0, -1",    // 0x1004
		"        bnez t0, loop",       // 0x1008
		"        nop",                 // 0x100c
		"        jal  done",           // 0x1010
		"        la   a0, data",       // 0x1014, 0x1018
		"        b    start",          // 0x101c
		"        nop",                 // 0x1020
		"done:   jr   ra",             // 0x1024
		"        nop",                 // 0x1028
		"data:   .word 0x12345678, 7", // 0x102c
	}

	prog := doAssemble(t, 0x1000, program)

	expected := []Instruction{
		MakeI(OP_ADDIU, 8, 0, 3),
		MakeI(OP_ADDIU, 8, 8, 0xffff),
		MakeBranch(OP_BNE, 8, 0, 0x1008, 0x1004),
		NOP,
		MakeJ(OP_JAL, 0x1024),
		MakeI(OP_LUI, 4, 0, 0),
		MakeI(OP_ORI, 4, 4, 0x102c),
		MakeBranch(OP_BEQ, 0, 0, 0x101c, 0x1000),
		NOP,
		MakeR(FUNCT_JR, 0, 31, 0, 0),
		NOP,
		Instruction(0x12345678),
		Instruction(7),
	}

	assert.Equal(expected, codesOf(prog))
	assert.Equal(LINK_BRANCH, prog.Opcodes[2].Link)
	assert.Equal("loop", prog.Opcodes[2].LinkLabel)
}

func TestAssemblerExpressions(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{Origin: 0x8800000}
	asm.Predefine("SYSCALL_EXIT", "0x1000")
	asm.Predefine("COUNTER", "t1")

	program := []string{
		".equ SIZE 16",
		"li COUNTER, $(SIZE * 4 + 1)",
		"addiu a0, r0, 'A'",
		"li v0, 0x12345678",
		"li v1, 0x10000",
		"syscall SYSCALL_EXIT",
		"addiu t2, r0, $(PC & 0xff)",
	}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(err)

	expected := []Instruction{
		MakeI(OP_ADDIU, 9, 0, 65),
		MakeI(OP_ADDIU, 4, 0, 65),
		MakeI(OP_LUI, 2, 0, 0x1234),
		MakeI(OP_ORI, 2, 2, 0x5678),
		MakeI(OP_LUI, 3, 0, 1),
		MakeSyscall(0x1000),
		MakeI(OP_ADDIU, 10, 0, 0x18),
	}
	assert.Equal(expected, codesOf(prog))
}

func TestAssemblerMacro(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		".macro inc REG",
		"addiu REG, REG, 1",
		".endm",
		".macro spin REG",
		"@top: addiu REG, REG, -1",
		"bgtz REG, @top",
		"nop",
		".endm",
		"inc a0",
		"spin a0",
		"spin a1",
	}

	prog := doAssemble(t, 0, program)

	expected := []Instruction{
		MakeI(OP_ADDIU, 4, 4, 1),
		MakeI(OP_ADDIU, 4, 4, 0xffff),
		MakeBranch(OP_BGTZ, 4, 0, 0x8, 0x4),
		NOP,
		MakeI(OP_ADDIU, 5, 5, 0xffff),
		MakeBranch(OP_BGTZ, 5, 0, 0x14, 0x10),
		NOP,
	}
	assert.Equal(expected, codesOf(prog))
}

func TestAssemblerOrg(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		".org 0x2000",
		"j 0x2010",
		"nop",
		".org 0x2010",
		"j 0x2000",
	}

	prog := doAssemble(t, 0x1000, program)
	assert.Equal(uint32(0x2000), prog.Origin)
	assert.Equal(uint32(0x2014), prog.End())

	bin := prog.Binary()
	assert.Equal(0x14, len(bin))
	assert.Equal([]byte{0, 0, 0, 0}, bin[8:12])
}

func TestAssemblerErrors(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		line string
		err  error
	}{
		{"frob r1", ErrInstructionUnknown},
		{"addiu r1, r0", ErrOpcodeMissing},
		{"addiu r1, r0, 1, 2", ErrOpcodeExtraArgs},
		{"addiu r32, r0, 1", ErrRegisterInvalid},
		{"addiu r1, r0, 0x8000", ErrImmediateRange},
		{"ori r1, r0, 0x10000", ErrImmediateRange},
		{"sll r1, r1, 32", ErrImmediateRange},
		{"lw r1, 4[r2]", ErrOpcodeMissing},
		{"beq r1, r2, nowhere", ErrLabelMissing("nowhere")},
		{"j 0x10000000", ErrJumpRange},
		{"a: nop\na: nop", ErrLabelDuplicate},
		{".equ A 1\n.equ A 2", ErrEquateDuplicate},
		{".equ A", ErrEquateSyntax},
		{".macro m\nnop", ErrMacroLonely},
		{".endm", ErrMacroLonelyEndm},
		{".macro m\n.macro n", ErrMacroNesting},
		{"nop\n.org 0", ErrOrgBackwards},
		{"li r1, $(1 +)", ErrParseExpression("1 +")},
	}

	for _, entry := range table {
		asm := &Assembler{}
		_, err := asm.Parse(strings.NewReader(entry.line))
		assert.ErrorIs(err, entry.err, entry.line)
		var syntax *ErrSyntax
		assert.ErrorAs(err, &syntax, entry.line)
	}
}
