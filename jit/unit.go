// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package jit

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// ExitKind is how control leaves a unit.
//
//go:generate go tool stringer -linecomment -type=ExitKind,Reason -output unit_string.go
type ExitKind int

const (
	EXIT_FALLTHROUGH ExitKind = iota // fallthrough
	EXIT_JUMP                        // jump
	EXIT_BRANCH                      // branch
	EXIT_JUMP_REG                    // jump-reg
	EXIT_SYSCALL                     // syscall
	EXIT_INTERPRET                   // interpret
)

// Exit describes a unit's terminal control transfer.
type Exit struct {
	Kind    ExitKind
	Next    uint32 // Fallthrough, jump target, not-taken or resume address.
	Taken   uint32 // Taken target of EXIT_BRANCH.
	Syscall uint32 // Code of EXIT_SYSCALL.
}

// LinkSite is a patchable exit to a statically known guest address.
type LinkSite struct {
	Offset int // Offset of the site in the unit's code.
	Target uint32
	Linked bool
}

// Unit is a compiled guest block.
type Unit struct {
	Entry        uint32
	End          uint32 // One past the last guest byte covered.
	Exit         Exit
	Sites        []LinkSite
	Instructions int
	Cycles       int
	Offset       int // Arena offset, once inserted.
	Size         int
	Digest       [blake2b.Size256]byte

	code  []byte
	valid bool
}

// Valid is true while the unit is resident in a cache.
func (unit *Unit) Valid() bool {
	return unit.valid
}

// Overlaps is true if the unit covers any of [lo, hi).
func (unit *Unit) Overlaps(lo, hi uint32) bool {
	return unit.Entry < hi && lo < unit.End
}

func (unit *Unit) String() string {
	return fmt.Sprintf("unit %08x-%08x (%d, %v)", unit.Entry, unit.End, unit.Instructions, unit.Exit.Kind)
}

// digest of the guest instruction words covered by a unit.
func digest(words []uint32) [blake2b.Size256]byte {
	data := make([]byte, 0, len(words)*4)
	for _, word := range words {
		data = binary.LittleEndian.AppendUint32(data, word)
	}
	return blake2b.Sum256(data)
}
