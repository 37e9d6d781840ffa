// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package hle is the syscall gateway: the registry of host functions
// that a guest reaches through the syscall instruction.
package hle

import (
	"fmt"
	"iter"
	"log"
	"strings"

	"github.com/ezrec/dynarec/internal"
	"github.com/ezrec/dynarec/memory"
	"github.com/ezrec/dynarec/mips"
	"github.com/ezrec/dynarec/timing"
)

const (
	MODULE_SHIFT = 12                       // Module index position in a syscall id.
	FUNCTION_MAX = 1 << MODULE_SHIFT        // Functions per module.
	MODULE_MAX   = 1 << (20 - MODULE_SHIFT) // Modules per gateway.
)

// Call is the state handed to a syscall handler.
type Call struct {
	Id      uint32 // Syscall id.
	Address uint32 // Address of the syscall instruction.
	Return  uint32 // Address following the syscall instruction.
	Next    uint32 // Address to resume at. Starts as Return.

	Cpu    *mips.Cpu
	Memory *memory.Memory
	Timing *timing.Timing

	powerDown bool
}

// PowerDown requests that the guest session stop after this call.
func (call *Call) PowerDown() {
	call.powerDown = true
}

// PowerDownRequested is true if the handler called PowerDown.
func (call *Call) PowerDownRequested() bool {
	return call.powerDown
}

// Redirect resumes the guest at addr instead of Return.
func (call *Call) Redirect(addr uint32) {
	call.Next = addr
}

// Arg returns argument register a0+n.
func (call *Call) Arg(n int) uint32 {
	return call.Cpu.Gpr[mips.REG_A0+n]
}

// SetReturn sets the v0 return register.
func (call *Call) SetReturn(value uint32) {
	call.Cpu.SetGpr(mips.REG_V0, value)
}

// Handler is a host function.
type Handler func(call *Call) error

// Function is an entry in an HLE module table.
type Function struct {
	Nid     uint32 // Numeric identifier of the function within its module.
	Name    string
	Handler Handler
}

type syscall struct {
	name    string
	nid     uint32
	handler Handler
}

// Gateway dispatches syscalls by id.
type Gateway struct {
	Verbose bool // Set to enable verbose logging.

	syscalls map[uint32]syscall
	names    map[string]uint32
	modules  []string
}

// NewGateway creates an empty gateway.
func NewGateway() (gw *Gateway) {
	gw = &Gateway{
		syscalls: map[uint32]syscall{},
		names:    map[string]uint32{},
	}
	return
}

// Register binds a handler to a raw syscall id.
func (gw *Gateway) Register(id uint32, name string, handler Handler) (err error) {
	if id > 0xf_ffff {
		err = fmt.Errorf("%w: 0x%x", ErrSyscallRange, id)
		return
	}
	if _, ok := gw.syscalls[id]; ok {
		err = fmt.Errorf("%w: 0x%05x", ErrSyscallDuplicate, id)
		return
	}
	gw.syscalls[id] = syscall{name: name, handler: handler}
	if len(name) != 0 {
		gw.names[name] = id
	}
	return
}

// RegisterModule registers a table of functions. Function n of the
// module gets the syscall id (module << MODULE_SHIFT) | n, where module
// counts from one in registration order.
func (gw *Gateway) RegisterModule(name string, funcs []Function) (module int, err error) {
	for _, known := range gw.modules {
		if known == name {
			err = fmt.Errorf("%w: %v", ErrModuleDuplicate, name)
			return
		}
	}
	module = len(gw.modules) + 1
	if module >= MODULE_MAX || len(funcs) > FUNCTION_MAX {
		err = fmt.Errorf("%w: %v", ErrModuleFull, name)
		return
	}

	base := uint32(module) << MODULE_SHIFT
	for n := range funcs {
		if _, ok := gw.syscalls[base|uint32(n)]; ok {
			err = fmt.Errorf("%w: 0x%05x", ErrSyscallDuplicate, base|uint32(n))
			return
		}
	}

	gw.modules = append(gw.modules, name)
	for n, fn := range funcs {
		id := base | uint32(n)
		full := name + "." + fn.Name
		gw.syscalls[id] = syscall{name: full, nid: fn.Nid, handler: fn.Handler}
		gw.names[full] = id
		if gw.Verbose {
			log.Printf("hle: %v (nid 0x%08x) = syscall 0x%05x", full, fn.Nid, id)
		}
	}
	return
}

// Lookup finds the syscall id of a "Module.Function" name.
func (gw *Gateway) Lookup(name string) (id uint32, ok bool) {
	id, ok = gw.names[name]
	return
}

// LookupNid finds the syscall id of a module function by its nid.
func (gw *Gateway) LookupNid(module string, nid uint32) (id uint32, ok bool) {
	prefix := module + "."
	for id, sc := range gw.syscalls {
		if sc.nid == nid && strings.HasPrefix(sc.name, prefix) {
			return id, true
		}
	}
	return
}

// Name returns the registered name of a syscall id.
func (gw *Gateway) Name(id uint32) string {
	return gw.syscalls[id].name
}

// MakeSyscall encodes the syscall instruction of a module function.
func (gw *Gateway) MakeSyscall(module, function string) (inst mips.Instruction, err error) {
	id, ok := gw.Lookup(module + "." + function)
	if !ok {
		err = fmt.Errorf("%w: %v.%v", ErrFunctionUnknown, module, function)
		return
	}
	inst = mips.MakeSyscall(id)
	return
}

// Defines returns an iter of assembler defines, one per named syscall,
// as "Module_Function" = id.
func (gw *Gateway) Defines() iter.Seq2[string, string] {
	defines := map[string]string{}
	for name, id := range gw.names {
		defines[strings.ReplaceAll(name, ".", "_")] = fmt.Sprintf("0x%x", id)
	}
	return internal.IterSorted(defines)
}

// Invoke runs the handler of call.Id.
func (gw *Gateway) Invoke(call *Call) (err error) {
	sc, ok := gw.syscalls[call.Id]
	if !ok || sc.handler == nil {
		err = &ErrSyscall{Id: call.Id, Address: call.Address, Err: ErrUnknownSyscall}
		return
	}

	if gw.Verbose {
		log.Printf("hle: 0x%08x: syscall 0x%05x %v", call.Address, call.Id, sc.name)
	}

	err = sc.handler(call)
	if err != nil {
		err = &ErrSyscall{Id: call.Id, Name: sc.name, Address: call.Address, Err: err}
		return
	}

	return
}
