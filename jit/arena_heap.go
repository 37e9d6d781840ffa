// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package jit

// mapArena backs the arena with heap memory.
func mapArena(size int) (buf []byte, release func([]byte) error, err error) {
	buf = make([]byte, size)
	return
}
