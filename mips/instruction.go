// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package mips

// Primary opcode field values.
const (
	OP_SPECIAL = 0x00
	OP_REGIMM  = 0x01
	OP_J       = 0x02
	OP_JAL     = 0x03
	OP_BEQ     = 0x04
	OP_BNE     = 0x05
	OP_BLEZ    = 0x06
	OP_BGTZ    = 0x07
	OP_ADDI    = 0x08
	OP_ADDIU   = 0x09
	OP_SLTI    = 0x0a
	OP_SLTIU   = 0x0b
	OP_ANDI    = 0x0c
	OP_ORI     = 0x0d
	OP_XORI    = 0x0e
	OP_LUI     = 0x0f
	OP_LB      = 0x20
	OP_LH      = 0x21
	OP_LW      = 0x23
	OP_LBU     = 0x24
	OP_LHU     = 0x25
	OP_SB      = 0x28
	OP_SH      = 0x29
	OP_SW      = 0x2b
)

// SPECIAL function field values.
const (
	FUNCT_SLL     = 0x00
	FUNCT_SRL     = 0x02
	FUNCT_SRA     = 0x03
	FUNCT_SLLV    = 0x04
	FUNCT_SRLV    = 0x06
	FUNCT_SRAV    = 0x07
	FUNCT_JR      = 0x08
	FUNCT_JALR    = 0x09
	FUNCT_SYSCALL = 0x0c
	FUNCT_BREAK   = 0x0d
	FUNCT_MFHI    = 0x10
	FUNCT_MTHI    = 0x11
	FUNCT_MFLO    = 0x12
	FUNCT_MTLO    = 0x13
	FUNCT_MULT    = 0x18
	FUNCT_MULTU   = 0x19
	FUNCT_DIV     = 0x1a
	FUNCT_DIVU    = 0x1b
	FUNCT_ADD     = 0x20
	FUNCT_ADDU    = 0x21
	FUNCT_SUB     = 0x22
	FUNCT_SUBU    = 0x23
	FUNCT_AND     = 0x24
	FUNCT_OR      = 0x25
	FUNCT_XOR     = 0x26
	FUNCT_NOR     = 0x27
	FUNCT_SLT     = 0x2a
	FUNCT_SLTU    = 0x2b
)

// REGIMM rt field values.
const (
	REGIMM_BLTZ   = 0x00
	REGIMM_BGEZ   = 0x01
	REGIMM_BLTZAL = 0x10
	REGIMM_BGEZAL = 0x11
)

// Register numbers with a fixed role.
const (
	REG_ZERO = 0
	REG_V0   = 2
	REG_V1   = 3
	REG_A0   = 4
	REG_A1   = 5
	REG_A2   = 6
	REG_S0   = 16
	REG_S1   = 17
	REG_SP   = 29
	REG_RA   = 31
)

// Instruction is a raw 32-bit guest instruction word.
type Instruction uint32

// Op is the primary opcode.
func (inst Instruction) Op() uint32 { return uint32(inst) >> 26 }

// Rs is the first source register.
func (inst Instruction) Rs() int { return int(inst>>21) & 0x1f }

// Rt is the second source, or immediate destination, register.
func (inst Instruction) Rt() int { return int(inst>>16) & 0x1f }

// Rd is the register-format destination register.
func (inst Instruction) Rd() int { return int(inst>>11) & 0x1f }

// Sa is the shift amount.
func (inst Instruction) Sa() uint32 { return uint32(inst>>6) & 0x1f }

// Funct is the SPECIAL function field.
func (inst Instruction) Funct() uint32 { return uint32(inst) & 0x3f }

// Imm is the zero extended 16-bit immediate.
func (inst Instruction) Imm() uint32 { return uint32(inst) & 0xffff }

// SImm is the sign extended 16-bit immediate.
func (inst Instruction) SImm() int32 { return int32(int16(inst)) }

// Target is the 26-bit jump target field.
func (inst Instruction) Target() uint32 { return uint32(inst) & 0x03ff_ffff }

// Code is the 20-bit SYSCALL/BREAK code field.
func (inst Instruction) Code() uint32 { return (uint32(inst) >> 6) & 0xf_ffff }

// BranchTarget is the destination of a PC relative branch at pc.
func (inst Instruction) BranchTarget(pc uint32) uint32 {
	return pc + 4 + uint32(inst.SImm()<<2)
}

// JumpTarget is the destination of a J/JAL at pc.
func (inst Instruction) JumpTarget(pc uint32) uint32 {
	return ((pc + 4) & 0xf000_0000) | (inst.Target() << 2)
}

// IsSyscall is true for the syscall gateway marker.
func (inst Instruction) IsSyscall() bool {
	return inst.Op() == OP_SPECIAL && inst.Funct() == FUNCT_SYSCALL
}
