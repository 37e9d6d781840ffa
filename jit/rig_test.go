package jit

import (
	"errors"
	"testing"

	"github.com/ezrec/dynarec/memory"
	"github.com/ezrec/dynarec/mips"
)

// testTranslator handles the ALU and memory classes.
type testTranslator struct {
	refuse map[uint32]bool
}

func (tt *testTranslator) TryEmit(e *Emitter, inst mips.Instruction, addr uint32) error {
	if tt.refuse[addr] {
		return ErrNotTranslatable
	}

	op, err := mips.Decode(inst)
	if err != nil {
		return ErrNotTranslatable
	}

	switch op.Class {
	case mips.CLASS_ALU:
		if op.UseImm {
			e.AluImm(op.Alu, op.Dst, op.A, op.Imm)
		} else {
			e.Alu(op.Alu, op.Dst, op.A, op.B)
		}
	case mips.CLASS_LOAD:
		e.Load(op.Mem, op.Dst, op.A, op.Imm)
	case mips.CLASS_STORE:
		e.Store(op.Mem, op.B, op.A, op.Imm)
	default:
		return ErrNotTranslatable
	}
	return nil
}

type testClock struct {
	downcount int
}

func (clock *testClock) Advance(cycles int) { clock.downcount -= cycles }
func (clock *testClock) Remaining() int     { return clock.downcount }

type rig struct {
	mem        *memory.Memory
	cpu        *mips.Cpu
	clock      *testClock
	translator *testTranslator
	cache      *BlockCache
	compiler   *Compiler
	ex         *Executor
}

func newRig(t *testing.T, arenaSize int, maxBlockLength int) (r *rig) {
	mem, err := memory.New(0, 0x10000)
	if err != nil {
		t.Fatal(err)
	}

	arena, err := NewArena(arenaSize)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { arena.Close() })

	r = &rig{
		mem:        mem,
		cpu:        &mips.Cpu{},
		clock:      &testClock{downcount: 1000},
		translator: &testTranslator{refuse: map[uint32]bool{}},
		cache:      NewBlockCache(arena),
	}
	mem.OnWrite(func(lo, hi uint32) { r.cache.InvalidateRange(lo, hi) })
	r.compiler = NewCompiler(mem, r.translator, maxBlockLength)
	r.ex = NewExecutor(r.cache, r.cpu, mem, r.clock)
	return
}

func (r *rig) code(t *testing.T, addr uint32, insts ...mips.Instruction) {
	for n, inst := range insts {
		err := r.mem.Write32(addr+4*uint32(n), uint32(inst))
		if err != nil {
			t.Fatal(err)
		}
	}
}

// unit returns the resident unit at entry, compiling it if needed.
func (r *rig) unit(t *testing.T, entry uint32) (unit *Unit) {
	unit = r.cache.Lookup(entry)
	if unit != nil {
		return
	}
	unit, err := r.compiler.Compile(entry)
	if err != nil {
		t.Fatal(err)
	}
	err = r.cache.Insert(unit)
	if err != nil {
		t.Fatal(err)
	}
	return
}

// run the unit at the current Pc.
func (r *rig) run(t *testing.T) (res Result) {
	res = r.ex.Run(r.unit(t, r.cpu.Pc))
	return
}

// fault unwraps the guest cause of a REASON_FAULT result.
func fault(res Result) (pc uint32, err error) {
	var mf *mips.ErrFault
	if errors.As(res.Err, &mf) {
		pc, err = mf.Pc, mf.Err
	}
	return
}
