// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package memory

import (
	"errors"

	"github.com/ezrec/dynarec/translate"
)

var f = translate.From

var (
	ErrOutOfRange = errors.New(f("address out of range"))
	ErrMisaligned = errors.New(f("misaligned access"))
	ErrSize       = errors.New(f("invalid memory size"))
)

// ErrAccess reports the guest address of a failed memory access.
type ErrAccess struct {
	Address uint32
	Size    int
	Err     error
}

func (err *ErrAccess) Error() string {
	return f("access %d bytes at 0x%08x: %v", err.Size, err.Address, err.Err)
}

func (err *ErrAccess) Unwrap() error {
	return err.Err
}
