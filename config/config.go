// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package config holds the emulator configuration, stored as TOML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/ezrec/dynarec/jit"
	"github.com/ezrec/dynarec/memory"
	"github.com/ezrec/dynarec/timing"
	"github.com/ezrec/dynarec/translate"
)

var f = translate.From

var (
	ErrConfig = errors.New(f("invalid configuration"))
)

// Execution engine names.
const (
	CORE_JIT         = "jit"
	CORE_INTERPRETER = "interpreter"
)

const (
	DEFAULT_BLOCK_TICKS = 1_000_000 // Default guest ticks per run slice.
)

// Memory is the guest memory window.
type Memory struct {
	Base     uint32 `toml:"base"`
	Size     uint32 `toml:"size"`
	UserBase uint32 `toml:"user_base"` // Load and entry address of programs.
}

// Jit configures the recompiler.
type Jit struct {
	Core           string `toml:"core"` // "jit" or "interpreter"
	ArenaSize      int    `toml:"arena_size"`
	MaxBlockLength int    `toml:"max_block_length"`
	Linking        bool   `toml:"linking"`
}

// Timing configures the guest clock.
type Timing struct {
	MaxSlice   int   `toml:"max_slice"`
	BlockTicks int64 `toml:"block_ticks"` // Guest ticks per harness run slice.
}

// Config is the complete emulator configuration.
type Config struct {
	Verbose bool   `toml:"verbose"`
	Memory  Memory `toml:"memory"`
	Jit     Jit    `toml:"jit"`
	Timing  Timing `toml:"timing"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Memory: Memory{
			Base:     memory.DEFAULT_BASE,
			Size:     memory.DEFAULT_SIZE,
			UserBase: memory.USER_BASE,
		},
		Jit: Jit{
			Core:           CORE_JIT,
			ArenaSize:      jit.DEFAULT_ARENA_SIZE,
			MaxBlockLength: jit.DEFAULT_MAX_BLOCK_LENGTH,
			Linking:        true,
		},
		Timing: Timing{
			MaxSlice:   timing.DEFAULT_MAX_SLICE,
			BlockTicks: DEFAULT_BLOCK_TICKS,
		},
	}
}

// Decode a configuration from TOML. Missing keys keep their default
// values; unknown keys are an error.
func Decode(r io.Reader) (cfg *Config, err error) {
	cfg = Default()

	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	err = dec.Decode(cfg)
	if err != nil {
		cfg = nil
		err = fmt.Errorf("%w: %w", ErrConfig, err)
		return
	}

	err = cfg.Validate()
	if err != nil {
		cfg = nil
	}
	return
}

// Load a configuration file.
func Load(path string) (cfg *Config, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	cfg, err = Decode(bytes.NewReader(data))
	if err != nil {
		err = fmt.Errorf("%v: %w", path, err)
	}
	return
}

// Encode the configuration as TOML.
func (cfg *Config) Encode(w io.Writer) (err error) {
	err = toml.NewEncoder(w).Encode(cfg)
	return
}

// Save the configuration to a file.
func (cfg *Config) Save(path string) (err error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return
	}

	err = os.WriteFile(path, data, 0644)
	return
}

// Validate checks that the configuration describes a usable emulator.
func (cfg *Config) Validate() (err error) {
	mem := &cfg.Memory
	switch {
	case mem.Size == 0 || mem.Size%memory.PAGE_SIZE != 0:
		err = fmt.Errorf("%w: memory.size 0x%x is not a multiple of 0x%x", ErrConfig, mem.Size, memory.PAGE_SIZE)
	case uint64(mem.Base)+uint64(mem.Size) > 1<<32:
		err = fmt.Errorf("%w: memory window 0x%x+0x%x exceeds 32 bits", ErrConfig, mem.Base, mem.Size)
	case mem.UserBase < mem.Base || mem.UserBase-mem.Base >= mem.Size:
		err = fmt.Errorf("%w: memory.user_base 0x%x outside the memory window", ErrConfig, mem.UserBase)
	case cfg.Jit.Core != CORE_JIT && cfg.Jit.Core != CORE_INTERPRETER:
		err = fmt.Errorf("%w: jit.core %q", ErrConfig, cfg.Jit.Core)
	case cfg.Jit.ArenaSize <= 0:
		err = fmt.Errorf("%w: jit.arena_size %v", ErrConfig, cfg.Jit.ArenaSize)
	case cfg.Jit.MaxBlockLength <= 0:
		err = fmt.Errorf("%w: jit.max_block_length %v", ErrConfig, cfg.Jit.MaxBlockLength)
	case cfg.Timing.MaxSlice <= 0:
		err = fmt.Errorf("%w: timing.max_slice %v", ErrConfig, cfg.Timing.MaxSlice)
	case cfg.Timing.BlockTicks <= 0:
		err = fmt.Errorf("%w: timing.block_ticks %v", ErrConfig, cfg.Timing.BlockTicks)
	}
	return
}
