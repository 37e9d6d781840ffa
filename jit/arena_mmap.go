// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package jit

import (
	"golang.org/x/sys/unix"
)

// mapArena backs the arena with an anonymous private mapping, so that
// a released arena is returned to the host immediately.
func mapArena(size int) (buf []byte, release func([]byte) error, err error) {
	buf, err = unix.Mmap(
		-1, 0,
		size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON,
	)
	if err != nil {
		return
	}
	release = unix.Munmap
	return
}
