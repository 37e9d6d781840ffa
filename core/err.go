// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package core

import (
	"errors"

	"github.com/ezrec/dynarec/translate"
)

var f = translate.From

var (
	ErrNotIdle = errors.New(f("core not idle"))
)

// ErrGuest is a guest fatal error, with the guest address at which
// execution stopped.
type ErrGuest struct {
	Pc  uint32
	Err error
}

func (err *ErrGuest) Error() string {
	return f("guest %08x: %v", err.Pc, err.Err)
}

func (err *ErrGuest) Unwrap() error {
	return err.Err
}
