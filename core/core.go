// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package core is the execution dispatcher: it runs guest code through the
// recompiler or the interpreter, services timing events and syscalls, and
// keeps compiled code coherent with guest memory.
package core

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/ezrec/dynarec/hle"
	"github.com/ezrec/dynarec/jit"
	"github.com/ezrec/dynarec/memory"
	"github.com/ezrec/dynarec/mips"
	"github.com/ezrec/dynarec/timing"
)

// State of the guest session.
//
//go:generate go tool stringer -linecomment -type=State,Mode -output core_string.go
type State int32

const (
	CORE_IDLE      State = iota // idle
	CORE_RUNNING                // running
	CORE_POWERDOWN              // powerdown
)

// Mode selects the execution engine.
type Mode int32

const (
	CORE_INTERPRETER Mode = iota // interpreter
	CORE_JIT                     // jit
)

// Options configure a Core.
type Options struct {
	Mode           Mode
	EntryAddress   uint32
	ArenaSize      int  // Host code arena size, in bytes.
	MaxBlockLength int  // Instruction cap of a compiled unit.
	NoLinking      bool // Disable direct unit to unit jumps.
}

// Stats of the dispatcher.
type Stats struct {
	Dispatches  uint64 // Compiled units run from the dispatcher.
	Compiles    uint64
	Interpreted uint64 // Instructions stepped by the interpreter.
	Syscalls    uint64
	Entries     uint64 // Compiled unit entries, including native jumps.
	NativeJumps uint64
	Cache       jit.Stats
}

type span struct {
	lo, hi uint32
}

// Core runs a guest session.
type Core struct {
	Verbose      bool   // Set to enable verbose logging.
	EntryAddress uint32 // Guest address Start begins at.

	Cpu      *mips.Cpu
	Memory   *memory.Memory
	Timing   *timing.Timing
	Gateway  *hle.Gateway
	Cache    *jit.BlockCache
	Compiler *jit.Compiler
	Executor *jit.Executor

	state atomic.Int32
	mode  atomic.Int32
	err   error
	stats Stats

	requestMutex sync.Mutex
	requests     []span
}

// NewCore creates an idle core over guest memory. Every write to code
// in memory invalidates the units compiled from it.
func NewCore(mem *memory.Memory, tm *timing.Timing, gw *hle.Gateway, translator jit.Translator, opts Options) (core *Core, err error) {
	arena, err := jit.NewArena(opts.ArenaSize)
	if err != nil {
		return
	}

	cpu := &mips.Cpu{}
	cache := jit.NewBlockCache(arena)
	cache.Linking = !opts.NoLinking

	core = &Core{
		EntryAddress: opts.EntryAddress,
		Cpu:          cpu,
		Memory:       mem,
		Timing:       tm,
		Gateway:      gw,
		Cache:        cache,
		Compiler:     jit.NewCompiler(mem, translator, opts.MaxBlockLength),
		Executor:     jit.NewExecutor(cache, cpu, mem, tm),
	}
	core.SetMode(opts.Mode)

	mem.OnWrite(func(lo, hi uint32) {
		core.Cache.InvalidateRange(lo, hi)
	})

	return
}

// Close releases the host code arena.
func (core *Core) Close() (err error) {
	core.Cache.Clear()
	err = core.Cache.Arena().Close()
	return
}

// State returns the session state.
func (core *Core) State() State {
	return State(core.state.Load())
}

// Mode returns the execution engine.
func (core *Core) Mode() Mode {
	return Mode(core.mode.Load())
}

// SetMode switches the execution engine. It takes effect at the next
// dispatch.
func (core *Core) SetMode(mode Mode) {
	core.mode.Store(int32(mode))
}

// Err returns the error that stopped the session, if any.
func (core *Core) Err() error {
	return core.err
}

// Stats returns a snapshot of the dispatcher counters.
func (core *Core) Stats() (stats Stats) {
	stats = core.stats
	stats.Entries = core.Executor.Entries
	stats.NativeJumps = core.Executor.NativeJumps
	stats.Cache = core.Cache.Stats()
	return
}

// Start the session at EntryAddress.
func (core *Core) Start() (err error) {
	if !core.state.CompareAndSwap(int32(CORE_IDLE), int32(CORE_RUNNING)) {
		err = fmt.Errorf("%w: %v", ErrNotIdle, core.State())
		return
	}
	core.Cpu.Pc = core.EntryAddress
	core.err = nil

	if core.Verbose {
		log.Printf("core: start %08x (%v)", core.EntryAddress, core.Mode())
	}
	return
}

// Restart runs the session again from EntryAddress, in any state.
// Compiled code, registers and the guest clock are kept.
func (core *Core) Restart() {
	core.Cpu.Pc = core.EntryAddress
	core.err = nil
	core.state.Store(int32(CORE_RUNNING))
}

// PowerDown stops the session at the next dispatch. Safe to call from
// any goroutine.
func (core *Core) PowerDown() {
	core.state.Store(int32(CORE_POWERDOWN))
}

// Reset returns the session to idle, discarding all compiled code, CPU
// state and scheduled events.
func (core *Core) Reset() {
	core.requestMutex.Lock()
	core.requests = nil
	core.requestMutex.Unlock()

	core.Cache.Clear()
	core.Cpu.Reset()
	core.Timing.Reset()
	core.Executor.Entries = 0
	core.Executor.NativeJumps = 0
	core.stats = Stats{}
	core.err = nil
	core.state.Store(int32(CORE_IDLE))
}

// RequestInvalidate schedules invalidation of compiled code covering
// [lo, hi). Safe to call from any goroutine; it is applied between
// dispatches.
func (core *Core) RequestInvalidate(lo, hi uint32) {
	core.requestMutex.Lock()
	core.requests = append(core.requests, span{lo: lo, hi: hi})
	core.requestMutex.Unlock()
}

func (core *Core) drainRequests() {
	core.requestMutex.Lock()
	requests := core.requests
	core.requests = nil
	core.requestMutex.Unlock()

	for _, req := range requests {
		core.Cache.InvalidateRange(req.lo, req.hi)
	}
}

// fatal stops the session on a guest error.
func (core *Core) fatal(err error) error {
	core.err = &ErrGuest{Pc: core.Cpu.Pc, Err: err}
	core.PowerDown()

	if core.Verbose {
		log.Printf("core: %v", core.err)
	}
	return core.err
}

// RunLoopUntil runs the session until the guest clock reaches ticks, or
// the session stops. A guest fatal error stops the session, and is
// returned.
func (core *Core) RunLoopUntil(ticks int64) (err error) {
	for core.State() == CORE_RUNNING && core.Timing.Now() < ticks {
		core.drainRequests()

		if core.Timing.Downcount <= 0 {
			core.Timing.ProcessEvents()
			continue
		}

		switch core.Mode() {
		case CORE_JIT:
			err = core.dispatch()
		default:
			err = core.interpret()
		}
		if err != nil {
			err = core.fatal(err)
			return
		}
	}

	return
}

// interpret a single instruction, and its delay slot.
func (core *Core) interpret() (err error) {
	cycles, trap, err := core.Cpu.Step(core.Memory)
	if err != nil {
		return
	}
	core.stats.Interpreted++
	core.Timing.Advance(cycles)

	if trap.Kind == mips.TRAP_SYSCALL {
		err = core.syscall(trap.Code, trap.Address)
	}
	return
}

// resolve the unit at pc, compiling it on a miss.
func (core *Core) resolve(pc uint32) (unit *jit.Unit, err error) {
	unit = core.Cache.Lookup(pc)
	if unit != nil {
		return
	}

	unit, err = core.Compiler.Compile(pc)
	if err != nil {
		return
	}
	core.stats.Compiles++

	err = core.Cache.Insert(unit)
	if errors.Is(err, jit.ErrCapacityExceeded) {
		if core.Verbose {
			log.Printf("core: %v, flushing", err)
		}
		core.Cache.Clear()
		err = core.Cache.Insert(unit)
		if errors.Is(err, jit.ErrCapacityExceeded) {
			err = fmt.Errorf("%w: %w", jit.ErrArenaTooSmall, err)
		}
	}
	return
}

// dispatch a compiled unit at Pc.
func (core *Core) dispatch() (err error) {
	unit, err := core.resolve(core.Cpu.Pc)
	if err != nil {
		return
	}

	core.stats.Dispatches++
	res := core.Executor.Run(unit)

	switch res.Reason {
	case jit.REASON_NEXT, jit.REASON_DOWNCOUNT:
	case jit.REASON_INTERPRET:
		// Leave the budget check to the loop.
		if core.Timing.Remaining() > 0 {
			err = core.interpret()
		}
	case jit.REASON_SYSCALL:
		err = core.syscall(res.Syscall, res.Pc-4)
	case jit.REASON_FAULT:
		err = res.Err
	}
	return
}

// syscall invokes the gateway for the syscall instruction at addr. Pc
// is already past it.
func (core *Core) syscall(id uint32, addr uint32) (err error) {
	core.stats.Syscalls++

	call := &hle.Call{
		Id:      id,
		Address: addr,
		Return:  core.Cpu.Pc,
		Next:    core.Cpu.Pc,
		Cpu:     core.Cpu,
		Memory:  core.Memory,
		Timing:  core.Timing,
	}

	err = core.Gateway.Invoke(call)
	if err != nil {
		return
	}

	core.Cpu.Pc = call.Next
	if call.PowerDownRequested() {
		if core.Verbose {
			log.Printf("core: powerdown at %08x", addr)
		}
		core.PowerDown()
	}
	return
}
