package config

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/dynarec/memory"
)

func TestDefault(t *testing.T) {
	assert := assert.New(t)

	cfg := Default()
	assert.NoError(cfg.Validate())
	assert.Equal(uint32(memory.USER_BASE), cfg.Memory.UserBase)
	assert.Equal(CORE_JIT, cfg.Jit.Core)
	assert.True(cfg.Jit.Linking)
}

func TestDecode(t *testing.T) {
	assert := assert.New(t)

	text := `
verbose = true

[memory]
base = 0x0
size = 0x10000
user_base = 0x1000

[jit]
core = "interpreter"
linking = false

[timing]
max_slice = 500
`
	cfg, err := Decode(strings.NewReader(text))
	assert.NoError(err)

	expected := Default()
	expected.Verbose = true
	expected.Memory = Memory{Base: 0, Size: 0x10000, UserBase: 0x1000}
	expected.Jit.Core = CORE_INTERPRETER
	expected.Jit.Linking = false
	expected.Timing.MaxSlice = 500
	assert.Equal(expected, cfg)
}

func TestDecodeErrors(t *testing.T) {
	table := map[string]string{
		"unknown-key": "[jit]\nturbo = true\n",
		"syntax":      "[jit\n",
		"core":        "[jit]\ncore = \"fast\"\n",
		"size":        "[memory]\nsize = 0x1001\n",
		"user-base":   "[memory]\nuser_base = 0x100\n",
		"window":      "[memory]\nbase = 0xffff0000\nsize = 0x20000\nuser_base = 0xffff0000\n",
		"slice":       "[timing]\nmax_slice = 0\n",
		"block-ticks": "[timing]\nblock_ticks = -1\n",
		"arena":       "[jit]\narena_size = 0\n",
		"length":      "[jit]\nmax_block_length = 0\n",
	}

	for name, text := range table {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			cfg, err := Decode(strings.NewReader(text))
			assert.ErrorIs(err, ErrConfig)
			assert.Nil(cfg)
		})
	}
}

func TestSaveLoad(t *testing.T) {
	assert := assert.New(t)

	cfg := Default()
	cfg.Jit.MaxBlockLength = 3
	cfg.Timing.BlockTicks = 1234

	path := filepath.Join(t.TempDir(), "dynarec.toml")
	assert.NoError(cfg.Save(path))

	loaded, err := Load(path)
	assert.NoError(err)
	assert.Equal(cfg, loaded)

	var buf bytes.Buffer
	assert.NoError(cfg.Encode(&buf))
	decoded, err := Decode(&buf)
	assert.NoError(err)
	assert.Equal(cfg, decoded)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(err)
}
