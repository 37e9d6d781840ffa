// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package mips

import (
	"fmt"
	"log"
)

// TrapKind is the reason an instruction stopped guest execution.
type TrapKind int

const (
	TRAP_NONE    TrapKind = iota // No trap.
	TRAP_SYSCALL                 // Syscall gateway marker.
)

// Trap is raised by Step when a syscall is executed.
type Trap struct {
	Kind    TrapKind
	Code    uint32 // Syscall code field.
	Address uint32 // Address of the syscall instruction.
}

// Cpu is the guest register file, shared by the interpreter and
// compiled code.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Pc  uint32     // Program counter.
	Gpr [32]uint32 // General purpose registers. Writes to r0 are discarded.
	Hi  uint32     // Multiply/divide high result.
	Lo  uint32     // Multiply/divide low result.
}

// Reset clears all registers.
func (cpu *Cpu) Reset() {
	verbose := cpu.Verbose
	*cpu = Cpu{Verbose: verbose}
}

// SetGpr writes a general purpose register.
func (cpu *Cpu) SetGpr(reg int, value uint32) {
	if reg != REG_ZERO {
		cpu.Gpr[reg] = value
	}
}

// String returns a register dump.
func (cpu *Cpu) String() (text string) {
	text = fmt.Sprintf("pc=%08x hi=%08x lo=%08x", cpu.Pc, cpu.Hi, cpu.Lo)
	for n, value := range cpu.Gpr {
		if n%8 == 0 {
			text += "\n"
		} else {
			text += " "
		}
		text += fmt.Sprintf("r%-2d=%08x", n, value)
	}
	return
}

// Execute performs a non-delayed operation. Only the ALU, memory and
// HI/LO classes are accepted.
func (cpu *Cpu) Execute(bus Bus, op *Operation) (err error) {
	switch op.Class {
	case CLASS_ALU:
		b := op.Imm
		if !op.UseImm {
			b = cpu.Gpr[op.B]
		}
		cpu.SetGpr(op.Dst, Alu(op.Alu, cpu.Gpr[op.A], b))
	case CLASS_LOAD:
		var value uint32
		value, err = Load(bus, op.Mem, cpu.Gpr[op.A]+op.Imm)
		if err != nil {
			return
		}
		cpu.SetGpr(op.Dst, value)
	case CLASS_STORE:
		err = Store(bus, op.Mem, cpu.Gpr[op.A]+op.Imm, cpu.Gpr[op.B])
	case CLASS_MULDIV:
		cpu.Hi, cpu.Lo = MulDiv(op.MulDiv, cpu.Gpr[op.A], cpu.Gpr[op.B])
	case CLASS_HILO:
		cpu.MoveHiLo(op.HiLo, op.Dst, op.A)
	case CLASS_BREAK:
		err = ErrBreak
	default:
		err = ErrDelaySlot
	}
	return
}

// MoveHiLo performs an MFHI/MFLO into dst, or MTHI/MTLO from src.
func (cpu *Cpu) MoveHiLo(op HiLoOp, dst int, src int) {
	switch op {
	case HILO_MFHI:
		cpu.SetGpr(dst, cpu.Hi)
	case HILO_MFLO:
		cpu.SetGpr(dst, cpu.Lo)
	case HILO_MTHI:
		cpu.Hi = cpu.Gpr[src]
	case HILO_MTLO:
		cpu.Lo = cpu.Gpr[src]
	}
}

// Step interprets the instruction at Pc. A branch or jump executes
// together with its delay slot. On error, Pc is left at the faulting
// instruction (the branch, for a faulting delay slot) and no cycles
// are consumed.
func (cpu *Cpu) Step(bus Bus) (cycles int, trap Trap, err error) {
	pc := cpu.Pc

	defer func() {
		if err != nil {
			cycles = 0
			err = &ErrFault{Pc: pc, Err: err}
		}
	}()

	word, err := bus.ReadExecutable(pc)
	if err != nil {
		return
	}

	inst := Instruction(word)
	op, err := Decode(inst)
	if err != nil {
		return
	}

	if cpu.Verbose {
		log.Printf("mips: %08x: %08x %v", pc, word, op.Class)
	}

	cycles = op.Cycles

	switch op.Class {
	case CLASS_SYSCALL:
		trap = Trap{Kind: TRAP_SYSCALL, Code: op.Code, Address: pc}
		cpu.Pc = pc + 4
		return
	case CLASS_BRANCH, CLASS_JUMP, CLASS_JUMP_REG:
		taken := true
		var target uint32
		switch op.Class {
		case CLASS_BRANCH:
			taken = Compare(op.Cmp, cpu.Gpr[op.A], cpu.Gpr[op.B])
			target = inst.BranchTarget(pc)
		case CLASS_JUMP:
			target = inst.JumpTarget(pc)
		case CLASS_JUMP_REG:
			target = cpu.Gpr[op.A]
		}
		cpu.SetGpr(op.Dst, pc+8)

		var delay_word uint32
		delay_word, err = bus.ReadExecutable(pc + 4)
		if err != nil {
			return
		}
		var delay Operation
		delay, err = Decode(Instruction(delay_word))
		if err != nil {
			return
		}
		if delay.Delayed() || delay.Class == CLASS_SYSCALL {
			err = ErrDelaySlot
			return
		}
		err = cpu.Execute(bus, &delay)
		if err != nil {
			return
		}

		cycles += delay.Cycles
		if taken {
			cpu.Pc = target
		} else {
			cpu.Pc = pc + 8
		}
		return
	}

	err = cpu.Execute(bus, &op)
	if err != nil {
		return
	}

	cpu.Pc = pc + 4
	return
}
