// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package mips

// Bus is the guest memory seen by the interpreter and compiled code.
type Bus interface {
	ReadExecutable(addr uint32) (uint32, error)
	Read8(addr uint32) (uint8, error)
	Read16(addr uint32) (uint16, error)
	Read32(addr uint32) (uint32, error)
	Write8(addr uint32, value uint8) error
	Write16(addr uint32, value uint16) error
	Write32(addr uint32, value uint32) error
}

// Alu computes a two operand integer operation.
func Alu(op AluOp, a, b uint32) (value uint32) {
	switch op {
	case ALU_ADDU:
		value = a + b
	case ALU_SUBU:
		value = a - b
	case ALU_AND:
		value = a & b
	case ALU_OR:
		value = a | b
	case ALU_XOR:
		value = a ^ b
	case ALU_NOR:
		value = ^(a | b)
	case ALU_SLT:
		if int32(a) < int32(b) {
			value = 1
		}
	case ALU_SLTU:
		if a < b {
			value = 1
		}
	case ALU_SLL:
		value = a << (b & 0x1f)
	case ALU_SRL:
		value = a >> (b & 0x1f)
	case ALU_SRA:
		value = uint32(int32(a) >> (b & 0x1f))
	}
	return
}

// Compare evaluates a branch condition.
func Compare(op CompareOp, a, b uint32) bool {
	switch op {
	case CMP_EQ:
		return a == b
	case CMP_NE:
		return a != b
	case CMP_LEZ:
		return int32(a) <= 0
	case CMP_GTZ:
		return int32(a) > 0
	case CMP_LTZ:
		return int32(a) < 0
	case CMP_GEZ:
		return int32(a) >= 0
	}
	return false
}

// MulDiv computes the HI/LO result of a multiply or divide.
// Division by zero leaves the dividend in HI, and all ones (or one,
// for negative signed dividends) in LO.
func MulDiv(op MulDivOp, a, b uint32) (hi, lo uint32) {
	switch op {
	case MULDIV_MULT:
		product := int64(int32(a)) * int64(int32(b))
		hi, lo = uint32(uint64(product)>>32), uint32(product)
	case MULDIV_MULTU:
		product := uint64(a) * uint64(b)
		hi, lo = uint32(product>>32), uint32(product)
	case MULDIV_DIV:
		sa, sb := int32(a), int32(b)
		switch {
		case sb == 0:
			hi = a
			if sa < 0 {
				lo = 1
			} else {
				lo = 0xffff_ffff
			}
		case sa == -0x8000_0000 && sb == -1:
			hi, lo = 0, a
		default:
			hi, lo = uint32(sa%sb), uint32(sa/sb)
		}
	case MULDIV_DIVU:
		if b == 0 {
			hi, lo = a, 0xffff_ffff
		} else {
			hi, lo = a%b, a/b
		}
	}
	return
}

// Load reads a value from the bus, extended to 32 bits.
func Load(bus Bus, op MemOp, addr uint32) (value uint32, err error) {
	switch op {
	case MEM_BYTE:
		var b uint8
		b, err = bus.Read8(addr)
		value = uint32(int32(int8(b)))
	case MEM_BYTE_U:
		var b uint8
		b, err = bus.Read8(addr)
		value = uint32(b)
	case MEM_HALF:
		var h uint16
		h, err = bus.Read16(addr)
		value = uint32(int32(int16(h)))
	case MEM_HALF_U:
		var h uint16
		h, err = bus.Read16(addr)
		value = uint32(h)
	case MEM_WORD:
		value, err = bus.Read32(addr)
	}
	if err != nil {
		value = 0
	}
	return
}

// Store writes the low bits of value to the bus.
func Store(bus Bus, op MemOp, addr uint32, value uint32) (err error) {
	switch op {
	case MEM_BYTE, MEM_BYTE_U:
		err = bus.Write8(addr, uint8(value))
	case MEM_HALF, MEM_HALF_U:
		err = bus.Write16(addr, uint16(value))
	case MEM_WORD:
		err = bus.Write32(addr, value)
	}
	return
}
