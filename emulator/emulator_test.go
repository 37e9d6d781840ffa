package emulator

import (
	"bytes"
	"context"
	"encoding/binary"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/dynarec/config"
	"github.com/ezrec/dynarec/core"
	"github.com/ezrec/dynarec/mips"
)

var modes = map[string]string{
	"interpreter": config.CORE_INTERPRETER,
	"jit":         config.CORE_JIT,
}

func newEmulator(t *testing.T, engine string) (emu *Emulator) {
	cfg := config.Default()
	cfg.Memory = config.Memory{Base: 0, Size: 0x10000, UserBase: 0x1000}
	cfg.Jit.Core = engine
	cfg.Jit.ArenaSize = 0x10000
	cfg.Timing.BlockTicks = 1000

	emu, err := NewEmulator(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { emu.Close() })
	return
}

func doRun(t *testing.T, emu *Emulator, program []string) {
	prog, err := emu.Assemble(strings.NewReader(strings.Join(program, "\n")))
	if err != nil {
		t.Fatal(err)
	}
	err = emu.Load(prog)
	if err != nil {
		t.Fatal(err)
	}
	err = emu.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
}

func TestEmulator(t *testing.T) {
	assert := assert.New(t)

	emu, err := NewEmulator(nil)
	assert.NoError(err)
	defer emu.Close()

	assert.False(emu.Verbose)
	assert.Equal(core.CORE_JIT, emu.Core.Mode())
	assert.Equal(core.CORE_IDLE, emu.Core.State())

	defines := map[string]string{}
	for k, v := range emu.Defines() {
		defines[k] = v
	}
	assert.Equal("0x8800000", defines["USER_BASE"])
	assert.Equal("0x8000000", defines["MEMORY_BASE"])
	assert.Equal("0x1000", defines["Harness_Terminate"])
	assert.Equal("0x1001", defines["Harness_Putchar"])
	assert.Equal("0x10000", defines["DMA_MAX"])

	id, ok := emu.Core.Gateway.LookupNid(HARNESS_MODULE, NID_TERMINATE)
	assert.True(ok)
	assert.Equal(uint32(0x1000), id)
}

func TestEmulatorConfig(t *testing.T) {
	assert := assert.New(t)

	cfg := config.Default()
	cfg.Jit.Core = "fast"
	emu, err := NewEmulator(cfg)
	assert.ErrorIs(err, config.ErrConfig)
	assert.Nil(emu)

	cfg = config.Default()
	cfg.Jit.Core = config.CORE_INTERPRETER
	cfg.Jit.Linking = false
	emu, err = NewEmulator(cfg)
	assert.NoError(err)
	defer emu.Close()
	assert.Equal(core.CORE_INTERPRETER, emu.Core.Mode())
	assert.False(emu.Core.Cache.Linking)
}

func TestEmulatorRun(t *testing.T) {
	program := []string{
		"li t0, 10",
		"li v1, 0",
		"loop: addu v1, v1, t0",
		"addiu t0, t0, -1",
		"bnez t0, loop",
		"nop",
		"li a0, 'O'",
		"syscall Harness_Putchar",
		"li a0, 'K'",
		"syscall Harness_Putchar",
		"syscall Harness_Terminate",
		"break",
	}

	for name, engine := range modes {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			emu := newEmulator(t, engine)
			console := &bytes.Buffer{}
			emu.Console = console

			doRun(t, emu, program)

			assert.Equal(core.CORE_POWERDOWN, emu.Core.State())
			assert.Equal(uint32(55), emu.Core.Cpu.Gpr[mips.REG_V1])
			assert.Equal("OK", console.String())
			assert.Equal(12, emu.LineNo())
			assert.Greater(emu.Ticks(), int64(0))
		})
	}
}

func TestEmulatorDma(t *testing.T) {
	program := []string{
		"li s0, 2",
		"patch: li v1, 1",
		"addiu s0, s0, -1",
		"beqz s0, done",
		"nop",
		"la a0, patch",
		"li a1, 4",
		"syscall Harness_Fetch",
		"move s1, v0",
		"li a0, 0x2000",
		"li a1, 4",
		"syscall Harness_Fetch",
		"li a1, 8",
		"syscall Harness_Store",
		"b patch",
		"nop",
		"done: syscall Harness_Terminate",
	}

	for name, engine := range modes {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			emu := newEmulator(t, engine)

			input := binary.LittleEndian.AppendUint32(nil, uint32(mips.MakeI(mips.OP_ADDIU, mips.REG_V1, 0, 2)))
			input = append(input, "data"...)
			emu.Dma.Input = bytes.NewReader(input)
			output := &bytes.Buffer{}
			emu.Dma.Output = output

			doRun(t, emu, program)

			assert.Equal(uint32(2), emu.Core.Cpu.Gpr[mips.REG_V1])
			assert.Equal(uint32(4), emu.Core.Cpu.Gpr[mips.REG_S1])
			assert.Equal(uint32(8), emu.Core.Cpu.Gpr[mips.REG_V0])
			assert.Equal("data\x00\x00\x00\x00", output.String())
			assert.Equal(int64(8), emu.Dma.Fetched)
			assert.Equal(int64(8), emu.Dma.Stored)
		})
	}
}

func TestEmulatorRuntimeError(t *testing.T) {
	program := []string{
		"nop",
		"syscall 0xbeef",
	}

	for name, engine := range modes {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			emu := newEmulator(t, engine)
			prog, err := emu.Assemble(strings.NewReader(strings.Join(program, "\n")))
			assert.NoError(err)
			assert.NoError(emu.Load(prog))

			err = emu.Run(context.Background())
			var rt *ErrRuntime
			assert.ErrorAs(err, &rt)
			assert.Equal(uint32(0x1008), rt.Address)
			assert.Equal(0, rt.LineNo)
			assert.Equal(core.CORE_POWERDOWN, emu.Core.State())
		})
	}
}

func TestEmulatorCancel(t *testing.T) {
	assert := assert.New(t)

	emu := newEmulator(t, config.CORE_JIT)
	prog, err := emu.Assemble(strings.NewReader("spin: b spin\nnop\n"))
	assert.NoError(err)
	assert.NoError(emu.Load(prog))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = emu.Run(ctx)
	assert.ErrorIs(err, context.Canceled)
	assert.Equal(core.CORE_RUNNING, emu.Core.State())
}

func TestEmulatorBenchmark(t *testing.T) {
	assert := assert.New(t)

	emu := newEmulator(t, config.CORE_JIT)
	prog, err := emu.Assemble(strings.NewReader(strings.Join([]string{
		"addiu t0, t0, 1",
		"syscall Harness_Terminate",
	}, "\n")))
	assert.NoError(err)
	assert.NoError(emu.Load(prog))

	speed, err := emu.Benchmark(core.CORE_INTERPRETER, time.Millisecond)
	assert.NoError(err)
	assert.Greater(speed, 0.0)
	assert.Equal(core.CORE_JIT, emu.Core.Mode())
	assert.Equal(0, emu.Core.Cache.Len())

	speed, err = emu.Benchmark(core.CORE_JIT, time.Millisecond)
	assert.NoError(err)
	assert.Greater(speed, 0.0)
	assert.Equal(uint64(1), emu.Core.Stats().Compiles)

	var dump bytes.Buffer
	assert.NoError(emu.Dump(&dump))
	assert.Contains(dump.String(), "check 00001000")
}
