// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"github.com/ezrec/dynarec/translate"
)

var f = translate.From

// ErrRuntime indicates the source location of a guest runtime error.
type ErrRuntime struct {
	Address uint32
	LineNo  int
	Err     error
}

func (err *ErrRuntime) Error() string {
	if err.LineNo == 0 {
		return f("0x%08x %v", err.Address, err.Err)
	}
	return f("line %d (0x%08x) %v", err.LineNo, err.Address, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}
