package jit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/dynarec/mips"
)

func TestCompileFallthrough(t *testing.T) {
	assert := assert.New(t)

	r := newRig(t, 0, 3)
	r.code(t, 0x1000,
		mips.MakeI(mips.OP_ADDIU, 1, 0, 1),      // addiu r1, r0, 1
		mips.MakeI(mips.OP_ADDIU, 2, 0, 2),      // addiu r2, r0, 2
		mips.MakeR(mips.FUNCT_ADDU, 3, 1, 2, 0), // addu r3, r1, r2
		mips.MakeI(mips.OP_ADDIU, 4, 0, 4),      // addiu r4, r0, 4
	)

	unit, err := r.compiler.Compile(0x1000)
	assert.NoError(err)
	assert.Equal(uint32(0x1000), unit.Entry)
	assert.Equal(uint32(0x100c), unit.End)
	assert.Equal(3, unit.Instructions)
	assert.Equal(3, unit.Cycles)
	assert.Equal(Exit{Kind: EXIT_FALLTHROUGH, Next: 0x100c}, unit.Exit)
	assert.Equal([]LinkSite{{Offset: 26, Target: 0x100c}}, unit.Sites)
	assert.False(unit.Valid())

	assert.True(r.mem.IsExecutable(0x1000, 4))
}

func TestCompileIdempotent(t *testing.T) {
	assert := assert.New(t)

	r := newRig(t, 0, 0)
	r.code(t, 0x1000,
		mips.MakeI(mips.OP_ADDIU, 1, 0, 1),                 // addiu r1, r0, 1
		mips.MakeI(mips.OP_SW, 1, 0, 0x2000),               // sw r1, 0x2000(r0)
		mips.MakeBranch(mips.OP_BNE, 1, 0, 0x1008, 0x1000), // bne r1, r0, 0x1000
		mips.MakeI(mips.OP_LW, 2, 0, 0x2000),               // lw r2, 0x2000(r0)
	)

	a, err := r.compiler.Compile(0x1000)
	assert.NoError(err)
	b, err := r.compiler.Compile(0x1000)
	assert.NoError(err)

	assert.Equal(a.code, b.code)
	assert.Equal(a.Sites, b.Sites)
	assert.Equal(a.Digest, b.Digest)
	assert.Equal(a.Exit, b.Exit)
	assert.Equal(Exit{Kind: EXIT_BRANCH, Next: 0x1010, Taken: 0x1000}, a.Exit)
	assert.Equal(4, a.Instructions)
	assert.Equal(uint32(0x1010), a.End)
}

func TestCompileEnds(t *testing.T) {
	table := map[string]struct {
		code   []mips.Instruction
		refuse []uint32
		exit   Exit
		count  int
	}{
		"syscall": {
			code: []mips.Instruction{
				mips.MakeI(mips.OP_ADDIU, 1, 0, 1),
				mips.MakeSyscall(0x1001),
			},
			exit:  Exit{Kind: EXIT_SYSCALL, Next: 0x1008, Syscall: 0x1001},
			count: 2,
		},
		"jump": {
			code: []mips.Instruction{
				mips.MakeJ(mips.OP_J, 0x2000),
				mips.NOP,
			},
			exit:  Exit{Kind: EXIT_JUMP, Next: 0x2000},
			count: 2,
		},
		"jump-reg": {
			code: []mips.Instruction{
				mips.MakeR(mips.FUNCT_JR, 0, mips.REG_RA, 0, 0),
				mips.NOP,
			},
			exit:  Exit{Kind: EXIT_JUMP_REG},
			count: 2,
		},
		"untranslatable": {
			code: []mips.Instruction{
				mips.MakeI(mips.OP_ADDIU, 1, 0, 1),
				mips.MakeR(mips.FUNCT_DIV, 0, 1, 2, 0),
			},
			exit:  Exit{Kind: EXIT_INTERPRET, Next: 0x1004},
			count: 1,
		},
		"refused": {
			code: []mips.Instruction{
				mips.MakeI(mips.OP_ADDIU, 1, 0, 1),
			},
			refuse: []uint32{0x1000},
			exit:   Exit{Kind: EXIT_INTERPRET, Next: 0x1000},
			count:  0,
		},
		"invalid": {
			code: []mips.Instruction{
				mips.MakeI(mips.OP_ADDIU, 1, 0, 1),
				mips.Instruction(0xfc00_0000),
			},
			exit:  Exit{Kind: EXIT_INTERPRET, Next: 0x1004},
			count: 1,
		},
		"delay-refused": {
			code: []mips.Instruction{
				mips.MakeI(mips.OP_ADDIU, 1, 0, 1),
				mips.MakeJ(mips.OP_JAL, 0x2000),
				mips.MakeI(mips.OP_ADDIU, 2, 0, 2),
			},
			refuse: []uint32{0x1008},
			exit:   Exit{Kind: EXIT_INTERPRET, Next: 0x1004},
			count:  1,
		},
		"delay-branch": {
			code: []mips.Instruction{
				mips.MakeJ(mips.OP_J, 0x2000),
				mips.MakeJ(mips.OP_J, 0x3000),
			},
			exit:  Exit{Kind: EXIT_INTERPRET, Next: 0x1000},
			count: 0,
		},
	}

	for name, test := range table {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			r := newRig(t, 0, 0)
			r.code(t, 0x1000, test.code...)
			for _, addr := range test.refuse {
				r.translator.refuse[addr] = true
			}

			unit, err := r.compiler.Compile(0x1000)
			assert.NoError(err)
			assert.Equal(test.exit, unit.Exit)
			assert.Equal(test.count, unit.Instructions)

			end := 0x1000 + 4*uint32(max(1, test.count))
			assert.Equal(end, unit.End)
		})
	}
}

func TestCompileCapBranch(t *testing.T) {
	assert := assert.New(t)

	r := newRig(t, 0, 2)
	r.code(t, 0x1000,
		mips.MakeI(mips.OP_ADDIU, 1, 0, 1), // addiu r1, r0, 1
		mips.MakeJ(mips.OP_J, 0x2000),      // j 0x2000
		mips.MakeI(mips.OP_ADDIU, 2, 0, 2), // addiu r2, r0, 2
	)

	// The jump and its delay slot would overrun the cap.
	first, err := r.compiler.Compile(0x1000)
	assert.NoError(err)
	assert.Equal(1, first.Instructions)
	assert.Equal(Exit{Kind: EXIT_FALLTHROUGH, Next: 0x1004}, first.Exit)
	assert.Equal(uint32(0x1004), first.End)

	second, err := r.compiler.Compile(0x1004)
	assert.NoError(err)
	assert.Equal(2, second.Instructions)
	assert.Equal(Exit{Kind: EXIT_JUMP, Next: 0x2000}, second.Exit)
	assert.Equal(uint32(0x100c), second.End)

	// An empty unit always takes the pair.
	r.compiler.MaxBlockLength = 1
	third, err := r.compiler.Compile(0x1004)
	assert.NoError(err)
	assert.Equal(2, third.Instructions)
	assert.Equal(Exit{Kind: EXIT_JUMP, Next: 0x2000}, third.Exit)
}

func TestCompileSites(t *testing.T) {
	assert := assert.New(t)

	r := newRig(t, 0, 0)
	r.code(t, 0x1000,
		mips.MakeBranch(mips.OP_BEQ, 1, 2, 0x1000, 0x1800), // beq r1, r2, 0x1800
		mips.NOP,
	)

	unit, err := r.compiler.Compile(0x1000)
	assert.NoError(err)

	var targets []uint32
	for _, site := range unit.Sites {
		targets = append(targets, site.Target)
	}
	assert.Equal([]uint32{0x1800, 0x1008}, targets)

	// Every site is an unlinked exit.
	ops := map[int]string{}
	for offset, text := range Disassemble(unit.code) {
		ops[offset] = text
	}
	for _, site := range unit.Sites {
		_, ok := ops[site.Offset]
		assert.True(ok)
		assert.Equal(byte(HOP_EXIT_TO), unit.code[site.Offset])
	}
	assert.Len(ops, 6)
}
