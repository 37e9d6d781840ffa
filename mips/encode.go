// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package mips

// MakeR encodes a SPECIAL register format instruction.
func MakeR(funct uint32, rd, rs, rt int, sa uint32) Instruction {
	return Instruction(OP_SPECIAL<<26 |
		uint32(rs&0x1f)<<21 |
		uint32(rt&0x1f)<<16 |
		uint32(rd&0x1f)<<11 |
		(sa&0x1f)<<6 |
		funct&0x3f)
}

// MakeI encodes an immediate format instruction.
func MakeI(op uint32, rt, rs int, imm uint32) Instruction {
	return Instruction((op&0x3f)<<26 |
		uint32(rs&0x1f)<<21 |
		uint32(rt&0x1f)<<16 |
		imm&0xffff)
}

// MakeJ encodes a J/JAL to an absolute target in the current 256MiB region.
func MakeJ(op uint32, target uint32) Instruction {
	return Instruction((op&0x3f)<<26 | (target>>2)&0x03ff_ffff)
}

// MakeBranch encodes a PC relative branch at pc to target.
func MakeBranch(op uint32, rs, rt int, pc, target uint32) Instruction {
	return MakeI(op, rt, rs, ((target-(pc+4))>>2)&0xffff)
}

// MakeSyscall encodes the syscall gateway marker for a syscall id.
func MakeSyscall(code uint32) Instruction {
	return Instruction((code&0xf_ffff)<<6 | FUNCT_SYSCALL)
}

// MakeBreak encodes a BREAK with a code.
func MakeBreak(code uint32) Instruction {
	return Instruction((code&0xf_ffff)<<6 | FUNCT_BREAK)
}

// NOP is sll r0, r0, 0.
const NOP = Instruction(0)
