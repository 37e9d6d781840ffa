// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package jit

import (
	"encoding/binary"

	"github.com/ezrec/dynarec/mips"
)

// Emitter accumulates the host code of a unit under compilation.
//
// A Translator only uses the exported methods; each emits the host
// code of one guest operation, attributed to the guest instruction the
// compiler is currently translating.
type Emitter struct {
	code  []byte
	sites []LinkSite

	pc     uint32 // Guest address to report on a fault.
	before int    // Cycles consumed before the current instruction.
	cycles int    // Cycles consumed after the current instruction.
	delay  bool   // Current instruction is in a delay slot.
}

// Mark is a rollback point.
type Mark struct {
	code  int
	sites int
}

// Len of the emitted code.
func (e *Emitter) Len() int {
	return len(e.code)
}

// Bytes returns the emitted code.
func (e *Emitter) Bytes() []byte {
	return e.code
}

// Pc returns the guest address of the instruction being translated.
func (e *Emitter) Pc() uint32 {
	return e.pc
}

// InDelaySlot is true when translating a delay slot.
func (e *Emitter) InDelaySlot() bool {
	return e.delay
}

// Mark the current position.
func (e *Emitter) Mark() Mark {
	return Mark{code: len(e.code), sites: len(e.sites)}
}

// Rollback to a previous mark.
func (e *Emitter) Rollback(mark Mark) {
	e.code = e.code[:mark.code]
	e.sites = e.sites[:mark.sites]
}

func (e *Emitter) op(op hostOp, args ...byte) {
	e.code = append(e.code, byte(op))
	e.code = append(e.code, args...)
}

func (e *Emitter) u16(value int) {
	e.code = binary.LittleEndian.AppendUint16(e.code, uint16(value))
}

func (e *Emitter) u32(value uint32) {
	e.code = binary.LittleEndian.AppendUint32(e.code, value)
}

func (e *Emitter) flag(value bool) {
	if value {
		e.code = append(e.code, 1)
	} else {
		e.code = append(e.code, 0)
	}
}

// Alu emits dst = a <op> b.
func (e *Emitter) Alu(op mips.AluOp, dst, a, b int) {
	e.op(HOP_ALU, byte(op), byte(dst), byte(a), byte(b))
}

// AluImm emits dst = a <op> imm.
func (e *Emitter) AluImm(op mips.AluOp, dst, a int, imm uint32) {
	e.op(HOP_ALU_IMM, byte(op), byte(dst), byte(a))
	e.u32(imm)
}

// LoadImm emits dst = value.
func (e *Emitter) LoadImm(dst int, value uint32) {
	e.AluImm(mips.ALU_OR, dst, mips.REG_ZERO, value)
}

// Load emits dst = [base + offset].
func (e *Emitter) Load(op mips.MemOp, dst, base int, offset uint32) {
	e.op(HOP_LOAD, byte(op), byte(dst), byte(base))
	e.u32(offset)
	e.u32(e.pc)
	e.u32(uint32(e.before))
}

// Store emits [base + offset] = src.
//
// Outside of a delay slot, a store that invalidates compiled code
// leaves the unit and resumes at the next instruction.
func (e *Emitter) Store(op mips.MemOp, src, base int, offset uint32) {
	e.op(HOP_STORE, byte(op), byte(src), byte(base))
	e.u32(offset)
	e.u32(e.pc)
	e.u32(uint32(e.before))
	e.u32(uint32(e.cycles))
	e.flag(!e.delay)
}

// MulDiv emits HI, LO = a <op> b.
func (e *Emitter) MulDiv(op mips.MulDivOp, a, b int) {
	e.op(HOP_MULDIV, byte(op), byte(a), byte(b))
}

// HiLo emits a move to or from HI/LO.
func (e *Emitter) HiLo(op mips.HiLoOp, dst, src int) {
	e.op(HOP_HILO, byte(op), byte(dst), byte(src))
}

// begin attributes the following code to a guest instruction.
func (e *Emitter) begin(pc uint32, before int, cycles int, delay bool) {
	e.pc = pc
	e.before = before
	e.cycles = cycles
	e.delay = delay
}

func (e *Emitter) checkDowncount(entry uint32) {
	e.op(HOP_CHECK_DOWNCOUNT)
	e.u32(entry)
}

func (e *Emitter) latchCond(cmp mips.CompareOp, a, b int) {
	e.op(HOP_LATCH_COND, byte(cmp), byte(a), byte(b))
}

func (e *Emitter) latchReg(a int) {
	e.op(HOP_LATCH_REG, byte(a))
}

// skipUnless emits a forward skip taken when the latched condition is
// false, returning the location to patch.
func (e *Emitter) skipUnless() (at int) {
	at = len(e.code)
	e.op(HOP_SKIP_UNLESS)
	e.u16(0)
	return
}

// patchSkip lands a skipUnless at the current position.
func (e *Emitter) patchSkip(at int) {
	skip := len(e.code) - (at + HOP_SKIP_UNLESS.size())
	binary.LittleEndian.PutUint16(e.code[at+1:], uint16(skip))
}

func (e *Emitter) exit(reason Reason, cycles int, next uint32, arg uint32) {
	e.op(HOP_EXIT, byte(reason))
	e.u32(uint32(cycles))
	e.u32(next)
	e.u32(arg)
}

func (e *Emitter) exitReg(cycles int) {
	e.op(HOP_EXIT_REG)
	e.u32(uint32(cycles))
}

// exitTo emits a link site to a guest address.
func (e *Emitter) exitTo(cycles int, target uint32) {
	e.sites = append(e.sites, LinkSite{Offset: len(e.code), Target: target})
	e.op(HOP_EXIT_TO)
	e.u32(uint32(cycles))
	e.u32(target)
	e.u32(0)
}
