// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package hle

import (
	"errors"

	"github.com/ezrec/dynarec/translate"
)

var f = translate.From

var (
	ErrUnknownSyscall   = errors.New(f("unknown syscall"))
	ErrSyscallDuplicate = errors.New(f("syscall already registered"))
	ErrSyscallRange     = errors.New(f("syscall id out of range"))
	ErrModuleDuplicate  = errors.New(f("module already registered"))
	ErrModuleFull       = errors.New(f("too many modules"))
	ErrFunctionUnknown  = errors.New(f("function unknown"))
)

// ErrSyscall locates a failed syscall.
type ErrSyscall struct {
	Id      uint32
	Name    string
	Address uint32
	Err     error
}

func (err *ErrSyscall) Error() string {
	if len(err.Name) != 0 {
		return f("syscall 0x%05x (%v) at 0x%08x: %v", err.Id, err.Name, err.Address, err.Err)
	}
	return f("syscall 0x%05x at 0x%08x: %v", err.Id, err.Address, err.Err)
}

func (err *ErrSyscall) Unwrap() error {
	return err.Err
}
