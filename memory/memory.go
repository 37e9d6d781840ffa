// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package memory models the little-endian guest address space, and
// tracks which pages have been fetched as code so that writes to them
// can be reported to the recompiler.
package memory

import (
	"encoding/binary"
	"fmt"
	"iter"
	"maps"
	"math"
	"slices"
)

const (
	DEFAULT_BASE = 0x0800_0000 // Default start of guest memory.
	DEFAULT_SIZE = 0x0200_0000 // Default size of guest memory.
	USER_BASE    = 0x0880_0000 // Default load address of user code.

	PAGE_SHIFT = 12              // Granularity of executable tracking.
	PAGE_SIZE  = 1 << PAGE_SHIFT // Size of an executable tracking page.
)

// WriteHook is called with the half open range [lo, hi) of a write
// that touched a page previously fetched as code.
type WriteHook func(lo, hi uint32)

// Memory is a flat window of guest memory starting at Base.
type Memory struct {
	Base uint32 // Guest address of the first byte.

	data  []byte
	exec  []uint64 // Bitmap of pages fetched as code.
	hooks []WriteHook
}

// New creates a zero filled guest memory window.
func New(base, size uint32) (mem *Memory, err error) {
	if size == 0 || size%PAGE_SIZE != 0 || uint64(base)+uint64(size) > 1<<32 {
		err = fmt.Errorf("%w: base 0x%08x size 0x%x", ErrSize, base, size)
		return
	}

	pages := size >> PAGE_SHIFT
	mem = &Memory{
		Base: base,
		data: make([]byte, size),
		exec: make([]uint64, (pages+63)/64),
	}

	return
}

// Defines returns an iter of assembler defines describing the memory window.
func (mem *Memory) Defines() iter.Seq2[string, string] {
	return maps.All(map[string]string{
		"MEMORY_BASE": fmt.Sprintf("0x%x", mem.Base),
		"MEMORY_SIZE": fmt.Sprintf("0x%x", mem.Size()),
		"MEMORY_END":  fmt.Sprintf("0x%x", uint64(mem.Base)+uint64(mem.Size())),
	})
}

// Size returns the size of the window in bytes.
func (mem *Memory) Size() uint32 {
	return uint32(len(mem.data))
}

// Contains is true if [addr, addr+size) lies inside the window.
func (mem *Memory) Contains(addr uint32, size uint32) bool {
	if addr < mem.Base {
		return false
	}
	return uint64(addr-mem.Base)+uint64(size) <= uint64(len(mem.data))
}

// OnWrite registers a hook for writes to executable pages.
func (mem *Memory) OnWrite(hook WriteHook) {
	mem.hooks = append(mem.hooks, hook)
}

// Reset zero fills memory and forgets which pages held code. If any
// page held code, the hooks are called over the whole window.
func (mem *Memory) Reset() {
	if slices.ContainsFunc(mem.exec, func(bits uint64) bool { return bits != 0 }) {
		hi := mem.Base + mem.Size()
		if hi < mem.Base {
			hi = math.MaxUint32
		}
		mem.Invalidate(mem.Base, hi)
	}
	clear(mem.data)
	clear(mem.exec)
}

func (mem *Memory) offset(addr uint32, size int) (off uint32, err error) {
	if size > 1 && addr%uint32(size) != 0 {
		err = &ErrAccess{Address: addr, Size: size, Err: ErrMisaligned}
		return
	}
	if !mem.Contains(addr, uint32(size)) {
		err = &ErrAccess{Address: addr, Size: size, Err: ErrOutOfRange}
		return
	}
	off = addr - mem.Base
	return
}

func (mem *Memory) markExecutable(off uint32) {
	page := off >> PAGE_SHIFT
	mem.exec[page/64] |= 1 << (page % 64)
}

func (mem *Memory) pageExecutable(page uint32) bool {
	return mem.exec[page/64]&(1<<(page%64)) != 0
}

// IsExecutable is true if any page of [addr, addr+size) was fetched as code.
func (mem *Memory) IsExecutable(addr uint32, size uint32) bool {
	if size == 0 || !mem.Contains(addr, size) {
		return false
	}
	first := (addr - mem.Base) >> PAGE_SHIFT
	last := (addr - mem.Base + size - 1) >> PAGE_SHIFT
	for page := first; page <= last; page++ {
		if mem.pageExecutable(page) {
			return true
		}
	}
	return false
}

// written notifies the hooks if the written range holds code.
func (mem *Memory) written(addr uint32, size uint32) {
	if len(mem.hooks) == 0 || !mem.IsExecutable(addr, size) {
		return
	}
	mem.Invalidate(addr, addr+size)
}

// Invalidate reports [lo, hi) to every write hook unconditionally.
// Use it after modifying memory through Slice.
func (mem *Memory) Invalidate(lo, hi uint32) {
	for _, hook := range mem.hooks {
		hook(lo, hi)
	}
}

// ReadExecutable fetches an instruction word, and marks its page as code.
func (mem *Memory) ReadExecutable(addr uint32) (word uint32, err error) {
	off, err := mem.offset(addr, 4)
	if err != nil {
		return
	}
	mem.markExecutable(off)
	word = binary.LittleEndian.Uint32(mem.data[off:])
	return
}

// Read8 reads a byte.
func (mem *Memory) Read8(addr uint32) (value uint8, err error) {
	off, err := mem.offset(addr, 1)
	if err != nil {
		return
	}
	value = mem.data[off]
	return
}

// Read16 reads an aligned half word.
func (mem *Memory) Read16(addr uint32) (value uint16, err error) {
	off, err := mem.offset(addr, 2)
	if err != nil {
		return
	}
	value = binary.LittleEndian.Uint16(mem.data[off:])
	return
}

// Read32 reads an aligned word.
func (mem *Memory) Read32(addr uint32) (value uint32, err error) {
	off, err := mem.offset(addr, 4)
	if err != nil {
		return
	}
	value = binary.LittleEndian.Uint32(mem.data[off:])
	return
}

// Write8 writes a byte.
func (mem *Memory) Write8(addr uint32, value uint8) (err error) {
	off, err := mem.offset(addr, 1)
	if err != nil {
		return
	}
	mem.data[off] = value
	mem.written(addr, 1)
	return
}

// Write16 writes an aligned half word.
func (mem *Memory) Write16(addr uint32, value uint16) (err error) {
	off, err := mem.offset(addr, 2)
	if err != nil {
		return
	}
	binary.LittleEndian.PutUint16(mem.data[off:], value)
	mem.written(addr, 2)
	return
}

// Write32 writes an aligned word.
func (mem *Memory) Write32(addr uint32, value uint32) (err error) {
	off, err := mem.offset(addr, 4)
	if err != nil {
		return
	}
	binary.LittleEndian.PutUint32(mem.data[off:], value)
	mem.written(addr, 4)
	return
}

// Copy writes a block of host data into guest memory, as a DMA
// transfer would.
func (mem *Memory) Copy(addr uint32, data []byte) (err error) {
	if len(data) == 0 {
		return
	}
	if !mem.Contains(addr, uint32(len(data))) {
		err = &ErrAccess{Address: addr, Size: len(data), Err: ErrOutOfRange}
		return
	}
	copy(mem.data[addr-mem.Base:], data)
	mem.written(addr, uint32(len(data)))
	return
}

// Slice returns the host view of [addr, addr+size). Writes through the
// slice are not tracked; call Invalidate afterwards.
func (mem *Memory) Slice(addr uint32, size uint32) (data []byte, err error) {
	if !mem.Contains(addr, size) {
		err = &ErrAccess{Address: addr, Size: int(size), Err: ErrOutOfRange}
		return
	}
	off := addr - mem.Base
	data = mem.data[off : off+size : off+size]
	return
}
