// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package jit

import (
	"encoding/binary"
	"fmt"
	"iter"

	"github.com/ezrec/dynarec/mips"
)

// hostOp is a host code operation. Host code is a position independent
// byte stream; every operand is little endian and every jump is an
// absolute arena offset.
type hostOp uint8

const (
	HOP_INVALID         hostOp = iota
	HOP_CHECK_DOWNCOUNT        // entry u32
	HOP_ALU                    // alu u8, dst u8, a u8, b u8
	HOP_ALU_IMM                // alu u8, dst u8, a u8, imm u32
	HOP_LOAD                   // mem u8, dst u8, base u8, offset u32, pc u32, before u32
	HOP_STORE                  // mem u8, src u8, base u8, offset u32, pc u32, before u32, cycles u32, resume u8
	HOP_MULDIV                 // op u8, a u8, b u8
	HOP_HILO                   // op u8, dst u8, src u8
	HOP_LATCH_COND             // cmp u8, a u8, b u8
	HOP_LATCH_REG              // a u8
	HOP_SKIP_UNLESS            // skip u16
	HOP_EXIT                   // reason u8, cycles u32, next u32, arg u32
	HOP_EXIT_REG               // cycles u32
	HOP_EXIT_TO                // cycles u32, target u32, native u32
	HOP_JUMP_NATIVE            // cycles u32, target u32, native u32
	hop_count
)

// Link sites are an EXIT_TO that patches in place to a JUMP_NATIVE
// of identical length.
const (
	LINK_SITE_SIZE   = 13
	linkNativeOffset = 9
)

var hostOpSize = [hop_count]int{
	HOP_CHECK_DOWNCOUNT: 5,
	HOP_ALU:             5,
	HOP_ALU_IMM:         8,
	HOP_LOAD:            16,
	HOP_STORE:           21,
	HOP_MULDIV:          4,
	HOP_HILO:            4,
	HOP_LATCH_COND:      4,
	HOP_LATCH_REG:       2,
	HOP_SKIP_UNLESS:     3,
	HOP_EXIT:            14,
	HOP_EXIT_REG:        5,
	HOP_EXIT_TO:         LINK_SITE_SIZE,
	HOP_JUMP_NATIVE:     LINK_SITE_SIZE,
}

var hostOpName = [hop_count]string{
	HOP_CHECK_DOWNCOUNT: "check",
	HOP_ALU:             "alu",
	HOP_ALU_IMM:         "alui",
	HOP_LOAD:            "load",
	HOP_STORE:           "store",
	HOP_MULDIV:          "muldiv",
	HOP_HILO:            "hilo",
	HOP_LATCH_COND:      "latch",
	HOP_LATCH_REG:       "latchr",
	HOP_SKIP_UNLESS:     "skip",
	HOP_EXIT:            "exit",
	HOP_EXIT_REG:        "exitr",
	HOP_EXIT_TO:         "exitto",
	HOP_JUMP_NATIVE:     "native",
}

// size of a host op, or 0 if invalid.
func (op hostOp) size() int {
	if op >= hop_count {
		return 0
	}
	return hostOpSize[op]
}

func (op hostOp) String() string {
	if op == HOP_INVALID || op >= hop_count {
		return fmt.Sprintf("hostOp(%d)", uint8(op))
	}
	return hostOpName[op]
}

func le16(code []byte) int {
	return int(binary.LittleEndian.Uint16(code))
}

func le32(code []byte) uint32 {
	return binary.LittleEndian.Uint32(code)
}

// disassemble a single host op.
func disassemble(code []byte) (text string, size int) {
	op := hostOp(code[0])
	size = op.size()
	if size == 0 || size > len(code) {
		text = fmt.Sprintf(".byte 0x%02x", code[0])
		size = 1
		return
	}

	b := code[1:]
	switch op {
	case HOP_CHECK_DOWNCOUNT:
		text = fmt.Sprintf("%v %08x", op, le32(b))
	case HOP_ALU:
		text = fmt.Sprintf("%v.%v r%d, r%d, r%d", op, mips.AluOp(b[0]), b[1], b[2], b[3])
	case HOP_ALU_IMM:
		text = fmt.Sprintf("%v.%v r%d, r%d, 0x%x", op, mips.AluOp(b[0]), b[1], b[2], le32(b[3:]))
	case HOP_LOAD:
		text = fmt.Sprintf("%v.%v r%d, 0x%x(r%d) @%08x +%d", op, mips.MemOp(b[0]), b[1], le32(b[3:]), b[2], le32(b[7:]), le32(b[11:]))
	case HOP_STORE:
		text = fmt.Sprintf("%v.%v r%d, 0x%x(r%d) @%08x +%d/%d", op, mips.MemOp(b[0]), b[1], le32(b[3:]), b[2], le32(b[7:]), le32(b[11:]), le32(b[15:]))
		if b[19] != 0 {
			text += " resume"
		}
	case HOP_MULDIV:
		text = fmt.Sprintf("%v.%v r%d, r%d", op, mips.MulDivOp(b[0]), b[1], b[2])
	case HOP_HILO:
		text = fmt.Sprintf("%v.%v r%d, r%d", op, mips.HiLoOp(b[0]), b[1], b[2])
	case HOP_LATCH_COND:
		text = fmt.Sprintf("%v.%v r%d, r%d", op, mips.CompareOp(b[0]), b[1], b[2])
	case HOP_LATCH_REG:
		text = fmt.Sprintf("%v r%d", op, b[0])
	case HOP_SKIP_UNLESS:
		text = fmt.Sprintf("%v +%d", op, le16(b))
	case HOP_EXIT:
		text = fmt.Sprintf("%v.%v +%d %08x 0x%x", op, Reason(b[0]), le32(b[1:]), le32(b[5:]), le32(b[9:]))
	case HOP_EXIT_REG:
		text = fmt.Sprintf("%v +%d", op, le32(b))
	case HOP_EXIT_TO:
		text = fmt.Sprintf("%v +%d %08x", op, le32(b), le32(b[4:]))
	case HOP_JUMP_NATIVE:
		text = fmt.Sprintf("%v +%d %08x [%d]", op, le32(b), le32(b[4:]), le32(b[8:]))
	}
	return
}

// Disassemble host code, yielding the offset and text of each op.
func Disassemble(code []byte) iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		for offset := 0; offset < len(code); {
			text, size := disassemble(code[offset:])
			if !yield(offset, text) {
				return
			}
			offset += size
		}
	}
}
