// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package jit

import (
	"errors"

	"github.com/ezrec/dynarec/translate"
)

var f = translate.From

var (
	// Translation errors
	ErrNotTranslatable = errors.New(f("not translatable"))

	// Arena errors
	ErrCapacityExceeded = errors.New(f("arena capacity exceeded"))
	ErrArenaTooSmall    = errors.New(f("arena too small for a single block"))
	ErrArenaBounds      = errors.New(f("arena access out of bounds"))
	ErrArenaClosed      = errors.New(f("arena closed"))

	// Execution errors
	ErrHostCode = errors.New(f("corrupt host code"))
)

// ErrHostOp locates corrupt host code in the arena.
type ErrHostOp struct {
	Offset int
	Op     uint8
}

func (err *ErrHostOp) Error() string {
	return f("host op 0x%02x at arena offset %d", err.Op, err.Offset)
}

func (err *ErrHostOp) Unwrap() error {
	return ErrHostCode
}
