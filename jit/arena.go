// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package jit

import (
	"fmt"
)

const (
	DEFAULT_ARENA_SIZE = 4 * 1024 * 1024 // Default host code arena size.
)

// Arena is the bounded, append-only region holding all host code.
// Every write is bounds checked against the committed region.
type Arena struct {
	buf     []byte
	used    int
	release func([]byte) error
}

// NewArena allocates an arena of size bytes.
func NewArena(size int) (arena *Arena, err error) {
	if size <= 0 {
		size = DEFAULT_ARENA_SIZE
	}

	buf, release, err := mapArena(size)
	if err != nil {
		err = fmt.Errorf("arena: %w", err)
		return
	}

	arena = &Arena{
		buf:     buf,
		release: release,
	}
	return
}

// Fits is true if size more bytes can be appended.
func (arena *Arena) Fits(size int) bool {
	return size >= 0 && arena.used+size <= len(arena.buf)
}

// Append commits code to the arena, and returns its offset.
func (arena *Arena) Append(code []byte) (offset int, err error) {
	if arena.buf == nil {
		err = ErrArenaClosed
		return
	}
	if !arena.Fits(len(code)) {
		err = fmt.Errorf("%w: need %d, have %d", ErrCapacityExceeded, len(code), len(arena.buf)-arena.used)
		return
	}
	offset = arena.used
	copy(arena.buf[offset:], code)
	arena.used += len(code)
	return
}

// Patch overwrites committed code.
func (arena *Arena) Patch(offset int, data []byte) (err error) {
	if offset < 0 || offset+len(data) > arena.used {
		err = fmt.Errorf("%w: patch %d bytes at %d", ErrArenaBounds, len(data), offset)
		return
	}
	copy(arena.buf[offset:], data)
	return
}

// Bytes returns a copy of committed code.
func (arena *Arena) Bytes(offset, size int) (data []byte, err error) {
	if offset < 0 || size < 0 || offset+size > arena.used {
		err = fmt.Errorf("%w: read %d bytes at %d", ErrArenaBounds, size, offset)
		return
	}
	data = make([]byte, size)
	copy(data, arena.buf[offset:])
	return
}

// Reset discards all code.
func (arena *Arena) Reset() {
	clear(arena.buf[:arena.used])
	arena.used = 0
}

// Used returns the committed size.
func (arena *Arena) Used() int {
	return arena.used
}

// Capacity returns the total size.
func (arena *Arena) Capacity() int {
	return len(arena.buf)
}

// Close releases the arena memory.
func (arena *Arena) Close() (err error) {
	if arena.buf == nil {
		return
	}
	if arena.release != nil {
		err = arena.release(arena.buf)
	}
	arena.buf = nil
	arena.used = 0
	return
}

// code is the committed region seen by the executor.
func (arena *Arena) code() []byte {
	return arena.buf[:arena.used]
}
