// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package io provides host I/O devices for the emulator.
package io

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"maps"

	"github.com/ezrec/dynarec/memory"
)

const (
	DMA_MAX = 0x1_0000 // Largest single transfer, in bytes.
)

// Dma moves blocks of bytes between host streams and guest memory. Input
// feeds Fetch, and Output receives Store.
type Dma struct {
	Input  io.Reader
	Output io.Writer
	Memory *memory.Memory

	Fetched int64 // Bytes moved into guest memory.
	Stored  int64 // Bytes moved out of guest memory.
}

// Defines returns an iter of defines for the device.
func (dma *Dma) Defines() iter.Seq2[string, string] {
	return maps.All(map[string]string{
		"DMA_MAX": fmt.Sprintf("0x%x", DMA_MAX),
	})
}

func checkSize(size uint32) (err error) {
	if size > DMA_MAX {
		err = fmt.Errorf("%w: 0x%x", ErrDmaSize, size)
	}
	return
}

// Fetch reads up to size bytes from Input into guest memory at addr. The
// write goes through Memory.Copy, so compiled code over the range is
// invalidated. A short count with a nil error means Input ran dry. Nothing
// is read from Input if the range is outside guest memory.
func (dma *Dma) Fetch(addr uint32, size uint32) (n int, err error) {
	err = checkSize(size)
	if err != nil {
		return
	}
	if dma.Input == nil {
		err = fmt.Errorf("%w: input", ErrDmaDisconnected)
		return
	}

	if !dma.Memory.Contains(addr, size) {
		err = &memory.ErrAccess{Address: addr, Size: int(size), Err: memory.ErrOutOfRange}
		return
	}

	buf := make([]byte, size)
	n, err = io.ReadFull(dma.Input, buf)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		err = nil
	}
	if err != nil {
		return
	}

	err = dma.Memory.Copy(addr, buf[:n])
	if err != nil {
		n = 0
		return
	}
	dma.Fetched += int64(n)
	return
}

// Store writes size bytes of guest memory at addr to Output.
func (dma *Dma) Store(addr uint32, size uint32) (n int, err error) {
	err = checkSize(size)
	if err != nil {
		return
	}
	if dma.Output == nil {
		err = fmt.Errorf("%w: output", ErrDmaDisconnected)
		return
	}

	data, err := dma.Memory.Slice(addr, size)
	if err != nil {
		return
	}

	n, err = dma.Output.Write(data)
	dma.Stored += int64(n)
	return
}
