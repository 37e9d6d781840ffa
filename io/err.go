// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package io

import (
	"errors"

	"github.com/ezrec/dynarec/translate"
)

var f = translate.From

var (
	// DMA errors
	ErrDmaSize         = errors.New(f("dma transfer too large"))
	ErrDmaDisconnected = errors.New(f("dma stream not connected"))
)
