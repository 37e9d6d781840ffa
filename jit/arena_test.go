package jit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArena(t *testing.T) {
	assert := assert.New(t)

	arena, err := NewArena(16)
	assert.NoError(err)
	defer arena.Close()

	assert.Equal(16, arena.Capacity())
	assert.True(arena.Fits(16))
	assert.False(arena.Fits(17))

	offset, err := arena.Append([]byte{1, 2, 3, 4})
	assert.NoError(err)
	assert.Equal(0, offset)

	offset, err = arena.Append([]byte{5, 6, 7, 8})
	assert.NoError(err)
	assert.Equal(4, offset)
	assert.Equal(8, arena.Used())

	_, err = arena.Append(make([]byte, 9))
	assert.ErrorIs(err, ErrCapacityExceeded)
	assert.Equal(8, arena.Used())

	assert.NoError(arena.Patch(6, []byte{0xaa, 0xbb}))
	assert.ErrorIs(arena.Patch(7, []byte{0, 0}), ErrArenaBounds)
	assert.ErrorIs(arena.Patch(-1, []byte{0}), ErrArenaBounds)

	data, err := arena.Bytes(4, 4)
	assert.NoError(err)
	assert.Equal([]byte{5, 6, 0xaa, 0xbb}, data)

	_, err = arena.Bytes(4, 5)
	assert.ErrorIs(err, ErrArenaBounds)

	arena.Reset()
	assert.Equal(0, arena.Used())
	assert.ErrorIs(arena.Patch(0, []byte{0}), ErrArenaBounds)

	offset, err = arena.Append(make([]byte, 16))
	assert.NoError(err)
	assert.Equal(0, offset)

	assert.NoError(arena.Close())
	_, err = arena.Append([]byte{0})
	assert.ErrorIs(err, ErrArenaClosed)
	assert.NoError(arena.Close())
}

func TestArenaDefaultSize(t *testing.T) {
	assert := assert.New(t)

	arena, err := NewArena(0)
	assert.NoError(err)
	defer arena.Close()

	assert.Equal(DEFAULT_ARENA_SIZE, arena.Capacity())
}
