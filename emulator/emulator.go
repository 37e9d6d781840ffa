// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package emulator wires guest memory, timing, the syscall gateway and
// the execution core into a runnable guest session.
package emulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log"
	"maps"
	"time"

	"github.com/ezrec/dynarec/codegen"
	"github.com/ezrec/dynarec/config"
	"github.com/ezrec/dynarec/core"
	"github.com/ezrec/dynarec/hle"
	"github.com/ezrec/dynarec/internal"
	hio "github.com/ezrec/dynarec/io"
	"github.com/ezrec/dynarec/jit"
	"github.com/ezrec/dynarec/memory"
	"github.com/ezrec/dynarec/mips"
	"github.com/ezrec/dynarec/timing"
)

const (
	HARNESS_MODULE = "Harness" // HLE module of the emulator harness.

	NID_TERMINATE = 0x1234BEEF // Harness.Terminate
	NID_PUTCHAR   = 0x50757463 // Harness.Putchar
	NID_FETCH     = 0x46657463 // Harness.Fetch
	NID_STORE     = 0x53746f72 // Harness.Store
	NID_TICKS     = 0x5469636b // Harness.Ticks

	DUMP_CUTOFF = 25 // Host ops shown by Dump.
)

// Emulator state. Memory + timing + syscalls + execution core + DMA.
type Emulator struct {
	Verbose    bool          // If set, enables verbose logging.
	*core.Core               // Reference to the execution core.
	Config     config.Config // Configuration the emulator was built from.
	Program    *mips.Program // Currently loaded program listing.

	Console io.Writer // Harness.Putchar output.
	Dma     hio.Dma   // Harness.Fetch and Harness.Store device.
}

// NewEmulator creates a new emulator. A nil cfg selects config.Default().
func NewEmulator(cfg *config.Config) (emu *Emulator, err error) {
	if cfg == nil {
		cfg = config.Default()
	}
	err = cfg.Validate()
	if err != nil {
		return
	}

	mem, err := memory.New(cfg.Memory.Base, cfg.Memory.Size)
	if err != nil {
		return
	}

	emu = &Emulator{
		Verbose: cfg.Verbose,
		Config:  *cfg,
		Program: &mips.Program{Origin: cfg.Memory.UserBase},
		Console: io.Discard,
	}
	emu.Dma.Memory = mem

	gw := hle.NewGateway()
	gw.Verbose = cfg.Verbose
	_, err = gw.RegisterModule(HARNESS_MODULE, emu.harness())
	if err != nil {
		emu = nil
		return
	}

	mode := core.CORE_JIT
	if cfg.Jit.Core == config.CORE_INTERPRETER {
		mode = core.CORE_INTERPRETER
	}

	emu.Core, err = core.NewCore(mem, timing.NewTiming(cfg.Timing.MaxSlice), gw, &codegen.Translator{}, core.Options{
		Mode:           mode,
		EntryAddress:   cfg.Memory.UserBase,
		ArenaSize:      cfg.Jit.ArenaSize,
		MaxBlockLength: cfg.Jit.MaxBlockLength,
		NoLinking:      !cfg.Jit.Linking,
	})
	if err != nil {
		emu = nil
		return
	}
	emu.setVerbose(cfg.Verbose)

	return
}

func (emu *Emulator) setVerbose(verbose bool) {
	emu.Core.Verbose = verbose
	emu.Core.Cache.Verbose = verbose
	emu.Core.Compiler.Verbose = verbose
	emu.Core.Gateway.Verbose = verbose
}

// harness is the function table of the Harness HLE module.
func (emu *Emulator) harness() []hle.Function {
	return []hle.Function{
		{Nid: NID_TERMINATE, Name: "Terminate", Handler: func(call *hle.Call) error {
			call.PowerDown()
			return nil
		}},
		{Nid: NID_PUTCHAR, Name: "Putchar", Handler: func(call *hle.Call) (err error) {
			_, err = emu.Console.Write([]byte{byte(call.Arg(0))})
			return
		}},
		{Nid: NID_FETCH, Name: "Fetch", Handler: func(call *hle.Call) (err error) {
			n, err := emu.Dma.Fetch(call.Arg(0), call.Arg(1))
			call.SetReturn(uint32(n))
			return
		}},
		{Nid: NID_STORE, Name: "Store", Handler: func(call *hle.Call) (err error) {
			n, err := emu.Dma.Store(call.Arg(0), call.Arg(1))
			call.SetReturn(uint32(n))
			return
		}},
		{Nid: NID_TICKS, Name: "Ticks", Handler: func(call *hle.Call) error {
			call.SetReturn(uint32(call.Timing.Now()))
			return nil
		}},
	}
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(map[string]string{
		"USER_BASE": fmt.Sprintf("0x%x", emu.Config.Memory.UserBase),
	}),
		emu.Core.Memory.Defines(),
		emu.Core.Gateway.Defines(),
		emu.Dma.Defines(),
	)
}

// Assemble a program at the user base, with the emulator defines
// predefined.
func (emu *Emulator) Assemble(input io.Reader) (prog *mips.Program, err error) {
	asm := &mips.Assembler{
		Verbose: emu.Verbose,
		Origin:  emu.Config.Memory.UserBase,
	}
	asm.PredefineAll(emu.Defines())
	prog, err = asm.Parse(input)
	return
}

// Close the emulator
func (emu *Emulator) Close() (err error) {
	err = emu.Core.Close()
	return
}

// Load a program, and reset the emulator to run it.
func (emu *Emulator) Load(prog *mips.Program) (err error) {
	emu.Program = prog
	err = emu.Reset()
	return
}

// Reset the emulator: the core is idled, memory is cleared and the
// program image is copied in, then the core is started at its origin.
func (emu *Emulator) Reset() (err error) {
	emu.setVerbose(emu.Verbose)

	emu.Core.Reset()
	emu.Core.Memory.Reset()
	emu.Dma.Fetched = 0
	emu.Dma.Stored = 0

	err = emu.Core.Memory.Copy(emu.Program.Origin, emu.Program.Binary())
	if err != nil {
		return
	}

	emu.Core.EntryAddress = emu.Program.Origin
	err = emu.Core.Start()
	return
}

// Ticks returns the guest clock since a reset.
func (emu *Emulator) Ticks() int64 {
	return emu.Core.Timing.Now()
}

// LineNo returns the source line number of the current Pc.
func (emu *Emulator) LineNo() int {
	dbg := emu.Program.Debug(emu.Core.Cpu.Pc)
	if dbg.Opcode == nil {
		return 0
	}
	return dbg.LineNo
}

// runtimeError locates a guest error in the program source.
func (emu *Emulator) runtimeError(err error) error {
	var guest *core.ErrGuest
	if !errors.As(err, &guest) {
		return err
	}
	rt := &ErrRuntime{Address: guest.Pc, Err: err}
	dbg := emu.Program.Debug(guest.Pc)
	if dbg.Opcode != nil {
		rt.LineNo = dbg.LineNo
	}
	return rt
}

// Run the session until the guest powers down, a guest error occurs,
// or ctx is done. The guest clock advances by Config.Timing.BlockTicks
// between checks of ctx.
func (emu *Emulator) Run(ctx context.Context) (err error) {
	for emu.Core.State() == core.CORE_RUNNING {
		err = ctx.Err()
		if err != nil {
			return
		}
		err = emu.Core.RunLoopUntil(emu.Core.Timing.Now() + emu.Config.Timing.BlockTicks)
		if err != nil {
			err = emu.runtimeError(err)
			return
		}
	}
	return
}

// Benchmark runs the loaded program repeatedly with an execution engine
// for at least duration, and returns runs per second. Compiled code is
// kept between runs, and the program image is not reloaded.
func (emu *Emulator) Benchmark(mode core.Mode, duration time.Duration) (speed float64, err error) {
	prev := emu.Core.Mode()
	emu.Core.SetMode(mode)
	defer emu.Core.SetMode(prev)

	total := 0
	start := time.Now()
	for total == 0 || time.Since(start) < duration {
		emu.Core.Restart()
		err = emu.Run(context.Background())
		if err != nil {
			return
		}
		total++
	}
	elapsed := time.Since(start)

	speed = float64(total) / elapsed.Seconds()
	if emu.Verbose {
		log.Printf("emulator: %v: %v runs in %v", mode, total, elapsed)
	}
	return
}

// Dump writes the host code of the first compiled unit, up to
// DUMP_CUTOFF ops, to w.
func (emu *Emulator) Dump(w io.Writer) (err error) {
	var first *jit.Unit
	for unit := range emu.Core.Cache.Units() {
		if first == nil || unit.Offset < first.Offset {
			first = unit
		}
	}
	if first == nil {
		return
	}

	code, err := emu.Core.Cache.Code(first)
	if err != nil {
		return
	}

	_, err = fmt.Fprintf(w, "%v:\n", first)
	if err != nil {
		return
	}

	lines := 0
	for offset, text := range jit.Disassemble(code) {
		if lines == DUMP_CUTOFF {
			_, err = fmt.Fprintf(w, "...\n")
			return
		}
		_, err = fmt.Fprintf(w, "%04x: %v\n", offset, text)
		if err != nil {
			return
		}
		lines++
	}
	return
}
