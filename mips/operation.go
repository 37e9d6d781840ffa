// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package mips

// Class groups instructions by how the recompiler treats them.
//
//go:generate go tool stringer -linecomment -type=Class,AluOp,CompareOp,MemOp,MulDivOp,HiLoOp -output operation_string.go
type Class int

const (
	CLASS_INVALID  Class = iota // invalid
	CLASS_ALU                   // alu
	CLASS_LOAD                  // load
	CLASS_STORE                 // store
	CLASS_MULDIV                // muldiv
	CLASS_HILO                  // hilo
	CLASS_BRANCH                // branch
	CLASS_JUMP                  // jump
	CLASS_JUMP_REG              // jump-reg
	CLASS_SYSCALL               // syscall
	CLASS_BREAK                 // break
)

// AluOp is a two operand integer operation.
type AluOp int

const (
	ALU_ADDU AluOp = iota // addu
	ALU_SUBU              // subu
	ALU_AND               // and
	ALU_OR                // or
	ALU_XOR               // xor
	ALU_NOR               // nor
	ALU_SLT               // slt
	ALU_SLTU              // sltu
	ALU_SLL               // sll
	ALU_SRL               // srl
	ALU_SRA               // sra
)

// CompareOp is a branch condition.
type CompareOp int

const (
	CMP_EQ  CompareOp = iota // eq
	CMP_NE                   // ne
	CMP_LEZ                  // lez
	CMP_GTZ                  // gtz
	CMP_LTZ                  // ltz
	CMP_GEZ                  // gez
)

// MemOp is a load or store width and extension.
type MemOp int

const (
	MEM_BYTE   MemOp = iota // byte
	MEM_HALF                // half
	MEM_WORD                // word
	MEM_BYTE_U              // byte-unsigned
	MEM_HALF_U              // half-unsigned
)

// MulDivOp is a HI/LO producing operation.
type MulDivOp int

const (
	MULDIV_MULT  MulDivOp = iota // mult
	MULDIV_MULTU                 // multu
	MULDIV_DIV                   // div
	MULDIV_DIVU                  // divu
)

// HiLoOp moves between the HI/LO pair and a general register.
type HiLoOp int

const (
	HILO_MFHI HiLoOp = iota // mfhi
	HILO_MTHI               // mthi
	HILO_MFLO               // mflo
	HILO_MTLO               // mtlo
)

// Operation is the decoded form of an Instruction.
//
// For CLASS_ALU, Dst = Alu(A, B or Imm). Shifts take the value from A
// and the amount from B or Imm.
// For CLASS_LOAD/CLASS_STORE, the address is A + Imm, Dst is loaded and
// B is stored.
// For the delayed classes, Dst receives the return address (r0 when
// the instruction does not link).
type Operation struct {
	Class  Class
	Alu    AluOp
	Cmp    CompareOp
	Mem    MemOp
	MulDiv MulDivOp
	HiLo   HiLoOp
	Dst    int
	A      int
	B      int
	Imm    uint32
	UseImm bool
	Code   uint32
	Cycles int
}

// Delayed is true for instructions followed by a delay slot.
func (op *Operation) Delayed() bool {
	switch op.Class {
	case CLASS_BRANCH, CLASS_JUMP, CLASS_JUMP_REG:
		return true
	}
	return false
}

var specialAlu = map[uint32]AluOp{
	FUNCT_ADD:  ALU_ADDU,
	FUNCT_ADDU: ALU_ADDU,
	FUNCT_SUB:  ALU_SUBU,
	FUNCT_SUBU: ALU_SUBU,
	FUNCT_AND:  ALU_AND,
	FUNCT_OR:   ALU_OR,
	FUNCT_XOR:  ALU_XOR,
	FUNCT_NOR:  ALU_NOR,
	FUNCT_SLT:  ALU_SLT,
	FUNCT_SLTU: ALU_SLTU,
}

var specialShift = map[uint32]AluOp{
	FUNCT_SLL:  ALU_SLL,
	FUNCT_SRL:  ALU_SRL,
	FUNCT_SRA:  ALU_SRA,
	FUNCT_SLLV: ALU_SLL,
	FUNCT_SRLV: ALU_SRL,
	FUNCT_SRAV: ALU_SRA,
}

var specialMulDiv = map[uint32]MulDivOp{
	FUNCT_MULT:  MULDIV_MULT,
	FUNCT_MULTU: MULDIV_MULTU,
	FUNCT_DIV:   MULDIV_DIV,
	FUNCT_DIVU:  MULDIV_DIVU,
}

var specialHiLo = map[uint32]HiLoOp{
	FUNCT_MFHI: HILO_MFHI,
	FUNCT_MTHI: HILO_MTHI,
	FUNCT_MFLO: HILO_MFLO,
	FUNCT_MTLO: HILO_MTLO,
}

var immAlu = map[uint32]AluOp{
	OP_ADDI:  ALU_ADDU,
	OP_ADDIU: ALU_ADDU,
	OP_SLTI:  ALU_SLT,
	OP_SLTIU: ALU_SLTU,
	OP_ANDI:  ALU_AND,
	OP_ORI:   ALU_OR,
	OP_XORI:  ALU_XOR,
}

var loadMem = map[uint32]MemOp{
	OP_LB:  MEM_BYTE,
	OP_LH:  MEM_HALF,
	OP_LW:  MEM_WORD,
	OP_LBU: MEM_BYTE_U,
	OP_LHU: MEM_HALF_U,
}

var storeMem = map[uint32]MemOp{
	OP_SB: MEM_BYTE,
	OP_SH: MEM_HALF,
	OP_SW: MEM_WORD,
}

var branchCmp = map[uint32]CompareOp{
	OP_BEQ:  CMP_EQ,
	OP_BNE:  CMP_NE,
	OP_BLEZ: CMP_LEZ,
	OP_BGTZ: CMP_GTZ,
}

// Cycle costs shared by the interpreter and the recompiler.
const (
	CYCLES_DEFAULT = 1
	CYCLES_MULT    = 4
	CYCLES_DIV     = 36
)

// Decode an instruction word.
func Decode(inst Instruction) (op Operation, err error) {
	op.Cycles = CYCLES_DEFAULT

	switch inst.Op() {
	case OP_SPECIAL:
		funct := inst.Funct()
		if alu, ok := specialAlu[funct]; ok {
			op.Class = CLASS_ALU
			op.Alu = alu
			op.Dst, op.A, op.B = inst.Rd(), inst.Rs(), inst.Rt()
			return
		}
		if alu, ok := specialShift[funct]; ok {
			op.Class = CLASS_ALU
			op.Alu = alu
			op.Dst, op.A = inst.Rd(), inst.Rt()
			if funct&0x4 != 0 {
				op.B = inst.Rs()
			} else {
				op.Imm, op.UseImm = inst.Sa(), true
			}
			return
		}
		if md, ok := specialMulDiv[funct]; ok {
			op.Class = CLASS_MULDIV
			op.MulDiv = md
			op.A, op.B = inst.Rs(), inst.Rt()
			if md == MULDIV_DIV || md == MULDIV_DIVU {
				op.Cycles = CYCLES_DIV
			} else {
				op.Cycles = CYCLES_MULT
			}
			return
		}
		if hl, ok := specialHiLo[funct]; ok {
			op.Class = CLASS_HILO
			op.HiLo = hl
			if hl == HILO_MFHI || hl == HILO_MFLO {
				op.Dst = inst.Rd()
			} else {
				op.A = inst.Rs()
			}
			return
		}
		switch funct {
		case FUNCT_JR:
			op.Class = CLASS_JUMP_REG
			op.A = inst.Rs()
			return
		case FUNCT_JALR:
			op.Class = CLASS_JUMP_REG
			op.A, op.Dst = inst.Rs(), inst.Rd()
			return
		case FUNCT_SYSCALL:
			op.Class = CLASS_SYSCALL
			op.Code = inst.Code()
			return
		case FUNCT_BREAK:
			op.Class = CLASS_BREAK
			op.Code = inst.Code()
			return
		}
	case OP_REGIMM:
		op.Class = CLASS_BRANCH
		op.A = inst.Rs()
		switch inst.Rt() {
		case REGIMM_BLTZ:
			op.Cmp = CMP_LTZ
			return
		case REGIMM_BGEZ:
			op.Cmp = CMP_GEZ
			return
		case REGIMM_BLTZAL:
			op.Cmp, op.Dst = CMP_LTZ, REG_RA
			return
		case REGIMM_BGEZAL:
			op.Cmp, op.Dst = CMP_GEZ, REG_RA
			return
		}
		op = Operation{}
	case OP_J:
		op.Class = CLASS_JUMP
		return
	case OP_JAL:
		op.Class = CLASS_JUMP
		op.Dst = REG_RA
		return
	case OP_LUI:
		op.Class = CLASS_ALU
		op.Alu = ALU_OR
		op.Dst, op.A = inst.Rt(), REG_ZERO
		op.Imm, op.UseImm = inst.Imm()<<16, true
		return
	default:
		code := inst.Op()
		if cmp, ok := branchCmp[code]; ok {
			op.Class = CLASS_BRANCH
			op.Cmp = cmp
			op.A, op.B = inst.Rs(), inst.Rt()
			return
		}
		if alu, ok := immAlu[code]; ok {
			op.Class = CLASS_ALU
			op.Alu = alu
			op.Dst, op.A = inst.Rt(), inst.Rs()
			op.UseImm = true
			switch code {
			case OP_ANDI, OP_ORI, OP_XORI:
				op.Imm = inst.Imm()
			default:
				op.Imm = uint32(inst.SImm())
			}
			return
		}
		if mem, ok := loadMem[code]; ok {
			op.Class = CLASS_LOAD
			op.Mem = mem
			op.Dst, op.A = inst.Rt(), inst.Rs()
			op.Imm = uint32(inst.SImm())
			return
		}
		if mem, ok := storeMem[code]; ok {
			op.Class = CLASS_STORE
			op.Mem = mem
			op.B, op.A = inst.Rt(), inst.Rs()
			op.Imm = uint32(inst.SImm())
			return
		}
	}

	op = Operation{Class: CLASS_INVALID}
	err = ErrInvalidInstruction(inst)
	return
}
