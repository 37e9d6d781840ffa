// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package jit

import (
	"github.com/ezrec/dynarec/mips"
)

// Reason a unit returned to the dispatcher.
type Reason int

const (
	REASON_NEXT      Reason = iota // next
	REASON_DOWNCOUNT               // downcount
	REASON_INTERPRET               // interpret
	REASON_SYSCALL                 // syscall
	REASON_FAULT                   // fault
)

// Downcounter is the cycle budget compiled code charges against.
type Downcounter interface {
	Advance(cycles int)
	Remaining() int
}

// Result of running compiled code.
type Result struct {
	Reason  Reason
	Pc      uint32 // Next guest address, or the faulting instruction.
	Syscall uint32
	Err     error // A *mips.ErrFault for REASON_FAULT.
}

// Executor runs host code from a block cache against a guest CPU.
type Executor struct {
	Cache *BlockCache
	Cpu   *mips.Cpu
	Bus   mips.Bus
	Clock Downcounter

	Entries     uint64 // Units entered, including native jumps.
	NativeJumps uint64 // Exits that bypassed the dispatcher.
}

// NewExecutor creates an executor.
func NewExecutor(cache *BlockCache, cpu *mips.Cpu, bus mips.Bus, clock Downcounter) *Executor {
	return &Executor{
		Cache: cache,
		Cpu:   cpu,
		Bus:   bus,
		Clock: clock,
	}
}

// Run host code from a resident unit, following native jumps, until
// control returns to the dispatcher.
func (ex *Executor) Run(unit *Unit) (res Result) {
	code := ex.Cache.arena.code()
	cpu := ex.Cpu
	gpr := &cpu.Gpr

	var cond bool
	var target uint32

	fault := func(pc uint32, err error) Result {
		return Result{Reason: REASON_FAULT, Pc: pc, Err: &mips.ErrFault{Pc: pc, Err: err}}
	}

	for ip := unit.Offset; ; {
		if ip < 0 || ip >= len(code) {
			return fault(cpu.Pc, &ErrHostOp{Offset: ip})
		}
		op := hostOp(code[ip])
		size := op.size()
		if size == 0 || ip+size > len(code) {
			return fault(cpu.Pc, &ErrHostOp{Offset: ip, Op: uint8(op)})
		}
		b := code[ip+1 : ip+size]

		switch op {
		case HOP_CHECK_DOWNCOUNT:
			ex.Entries++
			cpu.Pc = le32(b)
			if ex.Clock.Remaining() <= 0 {
				return Result{Reason: REASON_DOWNCOUNT, Pc: cpu.Pc}
			}
		case HOP_ALU:
			cpu.SetGpr(int(b[1]&31), mips.Alu(mips.AluOp(b[0]), gpr[b[2]&31], gpr[b[3]&31]))
		case HOP_ALU_IMM:
			cpu.SetGpr(int(b[1]&31), mips.Alu(mips.AluOp(b[0]), gpr[b[2]&31], le32(b[3:])))
		case HOP_LOAD:
			addr := gpr[b[2]&31] + le32(b[3:])
			value, err := mips.Load(ex.Bus, mips.MemOp(b[0]), addr)
			if err != nil {
				ex.Clock.Advance(int(le32(b[11:])))
				cpu.Pc = le32(b[7:])
				return fault(cpu.Pc, err)
			}
			cpu.SetGpr(int(b[1]&31), value)
		case HOP_STORE:
			generation := ex.Cache.Generation()
			addr := gpr[b[2]&31] + le32(b[3:])
			err := mips.Store(ex.Bus, mips.MemOp(b[0]), addr, gpr[b[1]&31])
			pc := le32(b[7:])
			if err != nil {
				ex.Clock.Advance(int(le32(b[11:])))
				cpu.Pc = pc
				return fault(pc, err)
			}
			if b[19] != 0 && ex.Cache.Generation() != generation {
				// Compiled code was invalidated; resume after the store.
				ex.Clock.Advance(int(le32(b[15:])))
				cpu.Pc = pc + 4
				return Result{Reason: REASON_NEXT, Pc: cpu.Pc}
			}
		case HOP_MULDIV:
			cpu.Hi, cpu.Lo = mips.MulDiv(mips.MulDivOp(b[0]), gpr[b[1]&31], gpr[b[2]&31])
		case HOP_HILO:
			cpu.MoveHiLo(mips.HiLoOp(b[0]), int(b[1]&31), int(b[2]&31))
		case HOP_LATCH_COND:
			cond = mips.Compare(mips.CompareOp(b[0]), gpr[b[1]&31], gpr[b[2]&31])
		case HOP_LATCH_REG:
			target = gpr[b[0]&31]
		case HOP_SKIP_UNLESS:
			if !cond {
				ip += le16(b)
			}
		case HOP_EXIT:
			ex.Clock.Advance(int(le32(b[1:])))
			cpu.Pc = le32(b[5:])
			return Result{Reason: Reason(b[0]), Pc: cpu.Pc, Syscall: le32(b[9:])}
		case HOP_EXIT_REG:
			ex.Clock.Advance(int(le32(b)))
			cpu.Pc = target
			return Result{Reason: REASON_NEXT, Pc: cpu.Pc}
		case HOP_EXIT_TO:
			ex.Clock.Advance(int(le32(b)))
			cpu.Pc = le32(b[4:])
			return Result{Reason: REASON_NEXT, Pc: cpu.Pc}
		case HOP_JUMP_NATIVE:
			ex.Clock.Advance(int(le32(b)))
			cpu.Pc = le32(b[4:])
			ex.NativeJumps++
			ip = int(le32(b[8:]))
			continue
		}

		ip += size
	}
}
