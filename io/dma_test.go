package io

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/dynarec/memory"
)

func newDma(t *testing.T) (dma *Dma, mem *memory.Memory) {
	mem, err := memory.New(0x1000, 0x2000)
	if err != nil {
		t.Fatal(err)
	}
	dma = &Dma{Memory: mem}
	return
}

func TestDma_Fetch(t *testing.T) {
	assert := assert.New(t)

	dma, mem := newDma(t)
	dma.Input = strings.NewReader("hello")

	n, err := dma.Fetch(0x1100, 4)
	assert.NoError(err)
	assert.Equal(4, n)

	word, err := mem.Read32(0x1100)
	assert.NoError(err)
	assert.Equal(uint32(0x6c6c6568), word)

	// Short read at end of input.
	n, err = dma.Fetch(0x1200, 4)
	assert.NoError(err)
	assert.Equal(1, n)
	b, _ := mem.Read8(0x1200)
	assert.Equal(uint8('o'), b)

	n, err = dma.Fetch(0x1200, 4)
	assert.NoError(err)
	assert.Equal(0, n)

	assert.Equal(int64(5), dma.Fetched)
}

func TestDma_FetchInvalidates(t *testing.T) {
	assert := assert.New(t)

	dma, mem := newDma(t)
	dma.Input = bytes.NewReader([]byte{1, 2, 3, 4})

	var lo, hi uint32
	mem.OnWrite(func(l, h uint32) {
		lo, hi = l, h
	})
	_, err := mem.ReadExecutable(0x1000)
	assert.NoError(err)

	n, err := dma.Fetch(0x1000, 4)
	assert.NoError(err)
	assert.Equal(4, n)
	assert.Equal(uint32(0x1000), lo)
	assert.Equal(uint32(0x1004), hi)
}

func TestDma_Store(t *testing.T) {
	assert := assert.New(t)

	dma, mem := newDma(t)
	var out bytes.Buffer
	dma.Output = &out

	assert.NoError(mem.Write32(0x1010, 0x64636261))

	n, err := dma.Store(0x1010, 4)
	assert.NoError(err)
	assert.Equal(4, n)
	assert.Equal("abcd", out.String())
	assert.Equal(int64(4), dma.Stored)
}

func TestDma_Errors(t *testing.T) {
	assert := assert.New(t)

	dma, mem := newDma(t)

	_, err := dma.Fetch(0x1000, 4)
	assert.ErrorIs(err, ErrDmaDisconnected)
	_, err = dma.Store(0x1000, 4)
	assert.ErrorIs(err, ErrDmaDisconnected)

	dma.Input = strings.NewReader("data")
	dma.Output = &bytes.Buffer{}

	_, err = dma.Fetch(0x1000, DMA_MAX+1)
	assert.ErrorIs(err, ErrDmaSize)

	_, err = dma.Fetch(0x2ffe, 4)
	assert.ErrorIs(err, memory.ErrOutOfRange)

	// A rejected fetch leaves the input unread.
	n, err := dma.Fetch(0x1000, 4)
	assert.NoError(err)
	assert.Equal(4, n)
	assert.Equal(int64(4), dma.Fetched)
	word, err := mem.Read32(0x1000)
	assert.NoError(err)
	assert.Equal(uint32(0x61746164), word)

	_, err = dma.Store(0x2ffe, 4)
	assert.ErrorIs(err, memory.ErrOutOfRange)

	defines := map[string]string{}
	for k, v := range dma.Defines() {
		defines[k] = v
	}
	assert.Equal("0x10000", defines["DMA_MAX"])
}
