// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package mips

import (
	"encoding/binary"
	"iter"
)

// LinkKind selects how a label reference is patched into an opcode.
type LinkKind int

const (
	LINK_NONE    LinkKind = iota // No label reference.
	LINK_BRANCH                  // 16-bit PC relative offset in Codes[0].
	LINK_JUMP                    // 26-bit region target in Codes[0].
	LINK_ADDRESS                 // lui/ori pair in Codes[0] and Codes[1].
)

// Opcode is one assembled source line.
type Opcode struct {
	LineNo    int           // Source line number.
	Address   uint32        // Guest address of Codes[0].
	Words     []string      // Source words, after expansion.
	Codes     []Instruction // Generated instruction words.
	LinkLabel string        // Label to link, if any.
	Link      LinkKind      // How to link LinkLabel.
}

// Program is an assembled, linked, guest image.
type Program struct {
	Origin  uint32
	Opcodes []Opcode
}

// Debug is the source line of a guest address.
type Debug struct {
	*Opcode
	Index int
}

// Debug finds the opcode that generated addr.
func (prog *Program) Debug(addr uint32) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if addr >= op.Address && addr < op.Address+4*uint32(len(op.Codes)) {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  int(addr-op.Address) / 4,
			}
			break
		}
	}

	return
}

// Codes iterates over every instruction and its address.
func (prog *Program) Codes() iter.Seq2[uint32, Instruction] {
	return func(yield func(addr uint32, code Instruction) bool) {
		for _, op := range prog.Opcodes {
			for n, code := range op.Codes {
				if !yield(op.Address+4*uint32(n), code) {
					return
				}
			}
		}
	}
}

// End is the address following the last instruction.
func (prog *Program) End() (end uint32) {
	end = prog.Origin
	for addr := range prog.Codes() {
		if addr+4 > end {
			end = addr + 4
		}
	}
	return
}

// Binary is the little-endian image from Origin to End. Gaps left by
// .org are zero (NOP) filled.
func (prog *Program) Binary() (bin []byte) {
	bin = make([]byte, prog.End()-prog.Origin)
	for addr, code := range prog.Codes() {
		binary.LittleEndian.PutUint32(bin[addr-prog.Origin:], uint32(code))
	}
	return
}
