// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package codegen translates guest MIPS operations into host code.
package codegen

import (
	"github.com/ezrec/dynarec/jit"
	"github.com/ezrec/dynarec/mips"
)

// Translator is the reference per-instruction translator. It handles
// the integer, memory, multiply and HI/LO classes, and leaves division
// and breakpoints to the interpreter.
type Translator struct {
	// Refuse, if set, declines additional instructions.
	Refuse func(inst mips.Instruction, addr uint32) bool
}

var _ jit.Translator = (*Translator)(nil)

// TryEmit emits the host code for a single guest instruction.
func (tr *Translator) TryEmit(e *jit.Emitter, inst mips.Instruction, addr uint32) (err error) {
	if tr.Refuse != nil && tr.Refuse(inst, addr) {
		err = jit.ErrNotTranslatable
		return
	}

	op, err := mips.Decode(inst)
	if err != nil {
		err = jit.ErrNotTranslatable
		return
	}

	switch op.Class {
	case mips.CLASS_ALU:
		if op.Dst == mips.REG_ZERO {
			// Writes to r0 have no effect.
			return
		}
		if op.UseImm {
			e.AluImm(op.Alu, op.Dst, op.A, op.Imm)
		} else {
			e.Alu(op.Alu, op.Dst, op.A, op.B)
		}
	case mips.CLASS_LOAD:
		e.Load(op.Mem, op.Dst, op.A, op.Imm)
	case mips.CLASS_STORE:
		e.Store(op.Mem, op.B, op.A, op.Imm)
	case mips.CLASS_MULDIV:
		switch op.MulDiv {
		case mips.MULDIV_MULT, mips.MULDIV_MULTU:
			e.MulDiv(op.MulDiv, op.A, op.B)
		default:
			err = jit.ErrNotTranslatable
		}
	case mips.CLASS_HILO:
		e.HiLo(op.HiLo, op.Dst, op.A)
	default:
		err = jit.ErrNotTranslatable
	}

	return
}
