// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package jit

import (
	"errors"
	"log"

	"github.com/ezrec/dynarec/mips"
)

const (
	DEFAULT_MAX_BLOCK_LENGTH = 128 // Default instruction cap of a unit.
)

// Translator emits host code for a single non-delayed guest operation,
// or returns ErrNotTranslatable. A translator must not emit any code
// when it refuses an operation.
type Translator interface {
	TryEmit(e *Emitter, inst mips.Instruction, addr uint32) error
}

// Fetcher reads guest instructions, marking their pages executable.
type Fetcher interface {
	ReadExecutable(addr uint32) (uint32, error)
}

// Compiler builds units from guest code.
type Compiler struct {
	Verbose        bool
	MaxBlockLength int
	Memory         Fetcher
	Translator     Translator
}

// NewCompiler creates a compiler.
func NewCompiler(memory Fetcher, translator Translator, maxBlockLength int) *Compiler {
	if maxBlockLength <= 0 {
		maxBlockLength = DEFAULT_MAX_BLOCK_LENGTH
	}
	return &Compiler{
		MaxBlockLength: maxBlockLength,
		Memory:         memory,
		Translator:     translator,
	}
}

// block is the state of a unit under compilation.
type block struct {
	e      *Emitter
	pc     uint32
	cycles int
	words  []uint32
	exit   Exit
}

// interpret ends the block with a hand off to the interpreter at pc.
func (b *block) interpret(pc uint32) {
	b.e.exit(REASON_INTERPRET, b.cycles, pc, 0)
	b.exit = Exit{Kind: EXIT_INTERPRET, Next: pc}
}

// fallThrough ends the block at the current pc.
func (b *block) fallThrough() {
	b.e.exitTo(b.cycles, b.pc)
	b.exit = Exit{Kind: EXIT_FALLTHROUGH, Next: b.pc}
}

// Compile the guest block beginning at entry. A block ends after a
// branch or jump and its delay slot, at a syscall, at the first
// instruction that cannot be translated, or at the instruction cap.
func (cc *Compiler) Compile(entry uint32) (unit *Unit, err error) {
	limit := cc.MaxBlockLength
	if limit <= 0 {
		limit = DEFAULT_MAX_BLOCK_LENGTH
	}

	b := &block{
		e:  &Emitter{},
		pc: entry,
	}
	b.e.checkDowncount(entry)

	for done := false; !done; {
		if len(b.words) >= limit {
			b.fallThrough()
			break
		}

		word, ferr := cc.Memory.ReadExecutable(b.pc)
		if ferr != nil {
			b.interpret(b.pc)
			break
		}
		inst := mips.Instruction(word)
		op, derr := mips.Decode(inst)
		if derr != nil {
			b.interpret(b.pc)
			break
		}

		switch {
		case op.Class == mips.CLASS_SYSCALL:
			b.words = append(b.words, word)
			b.cycles += op.Cycles
			b.e.exit(REASON_SYSCALL, b.cycles, b.pc+4, op.Code)
			b.exit = Exit{Kind: EXIT_SYSCALL, Next: b.pc + 4, Syscall: op.Code}
			done = true
		case op.Delayed():
			// A branch and its delay slot stay in one unit, so the pair
			// starts a new unit when it would overrun the cap. An empty
			// unit always takes the pair.
			if len(b.words) > 0 && len(b.words)+2 > limit {
				b.fallThrough()
				done = true
				break
			}
			var ok bool
			ok, err = cc.compileBranch(b, inst, &op)
			if err != nil {
				return
			}
			if !ok {
				b.interpret(b.pc)
			}
			done = true
		default:
			mark := b.e.Mark()
			b.e.begin(b.pc, b.cycles, b.cycles+op.Cycles, false)
			err = cc.Translator.TryEmit(b.e, inst, b.pc)
			if errors.Is(err, ErrNotTranslatable) {
				err = nil
				b.e.Rollback(mark)
				b.interpret(b.pc)
				done = true
				break
			}
			if err != nil {
				return
			}
			b.words = append(b.words, word)
			b.cycles += op.Cycles
			b.pc += 4
		}
	}

	end := entry + uint32(len(b.words))*4
	if len(b.words) == 0 {
		end = entry + 4
	}

	unit = &Unit{
		Entry:        entry,
		End:          end,
		Exit:         b.exit,
		Sites:        b.e.sites,
		Instructions: len(b.words),
		Cycles:       b.cycles,
		Digest:       digest(b.words),
		code:         b.e.code,
	}

	if cc.Verbose {
		log.Printf("jit: compile %v: %d bytes", unit, len(unit.code))
	}
	return
}

// compileBranch translates a branch or jump and its delay slot.
// Returns false, with nothing emitted, if the pair must be interpreted.
func (cc *Compiler) compileBranch(b *block, inst mips.Instruction, op *mips.Operation) (ok bool, err error) {
	pc := b.pc

	delay_word, err := cc.Memory.ReadExecutable(pc + 4)
	if err != nil {
		err = nil
		return
	}
	delay_inst := mips.Instruction(delay_word)
	delay, err := mips.Decode(delay_inst)
	if err != nil {
		err = nil
		return
	}
	if delay.Delayed() || delay.Class == mips.CLASS_SYSCALL {
		return
	}

	total := b.cycles + op.Cycles + delay.Cycles
	mark := b.e.Mark()

	switch op.Class {
	case mips.CLASS_BRANCH:
		b.e.latchCond(op.Cmp, op.A, op.B)
	case mips.CLASS_JUMP_REG:
		b.e.latchReg(op.A)
	}
	if op.Dst != mips.REG_ZERO {
		b.e.LoadImm(op.Dst, pc+8)
	}

	// A faulting delay slot reports the branch.
	b.e.begin(pc, b.cycles, total, true)
	err = cc.Translator.TryEmit(b.e, delay_inst, pc+4)
	if errors.Is(err, ErrNotTranslatable) {
		err = nil
		b.e.Rollback(mark)
		return
	}
	if err != nil {
		return
	}

	b.words = append(b.words, uint32(inst), delay_word)
	b.cycles = total

	switch op.Class {
	case mips.CLASS_JUMP:
		target := inst.JumpTarget(pc)
		b.e.exitTo(total, target)
		b.exit = Exit{Kind: EXIT_JUMP, Next: target}
	case mips.CLASS_BRANCH:
		taken := inst.BranchTarget(pc)
		skip := b.e.skipUnless()
		b.e.exitTo(total, taken)
		b.e.patchSkip(skip)
		b.e.exitTo(total, pc+8)
		b.exit = Exit{Kind: EXIT_BRANCH, Next: pc + 8, Taken: taken}
	case mips.CLASS_JUMP_REG:
		b.e.exitReg(total)
		b.exit = Exit{Kind: EXIT_JUMP_REG}
	}

	ok = true
	return
}
