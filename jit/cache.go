// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package jit

import (
	"cmp"
	"fmt"
	"iter"
	"log"
	"slices"
	"sync"
	"sync/atomic"

	"golang.org/x/crypto/blake2b"
)

// Source provides the guest bytes a unit was compiled from.
type Source interface {
	Slice(addr uint32, size uint32) ([]byte, error)
}

// Stats of a block cache.
type Stats struct {
	Lookups     uint64
	Hits        uint64
	Inserts     uint64
	Invalidated uint64 // Units removed by invalidation.
	Clears      uint64
	Links       uint64
	Unlinks     uint64
	Units       int
	ArenaUsed   int
	ArenaSize   int
}

// siteRef names a link site of a unit.
type siteRef struct {
	unit *Unit
	site int
}

// BlockCache maps guest entry addresses to resident units, and owns
// the arena holding their code.
type BlockCache struct {
	Verbose bool
	Linking bool // Patch exits directly to resident targets.

	mutex   sync.Mutex
	arena   *Arena
	units   map[uint32]*Unit
	ranges  []*Unit // Resident units, by entry address.
	maxSpan uint32

	pending map[uint32][]siteRef // Unlinked sites, by target address.
	linked  map[uint32][]siteRef // Linked sites, by target address.

	generation atomic.Uint64
	stats      Stats
}

// NewBlockCache creates an empty cache over an arena.
func NewBlockCache(arena *Arena) (cache *BlockCache) {
	cache = &BlockCache{
		Linking: true,
		arena:   arena,
		units:   map[uint32]*Unit{},
		pending: map[uint32][]siteRef{},
		linked:  map[uint32][]siteRef{},
	}
	return
}

// Arena returns the cache's host code arena.
func (cache *BlockCache) Arena() *Arena {
	return cache.arena
}

// Generation changes every time resident units are removed.
func (cache *BlockCache) Generation() uint64 {
	return cache.generation.Load()
}

// Lookup the resident unit beginning at entry.
func (cache *BlockCache) Lookup(entry uint32) (unit *Unit) {
	cache.mutex.Lock()
	defer cache.mutex.Unlock()

	cache.stats.Lookups++
	unit = cache.units[entry]
	if unit != nil {
		cache.stats.Hits++
	}
	return
}

// Insert commits a compiled unit's code to the arena, and makes it
// resident. Resident units overlapping it are invalidated.
// Returns ErrCapacityExceeded if the arena cannot hold it.
func (cache *BlockCache) Insert(unit *Unit) (err error) {
	cache.mutex.Lock()
	defer cache.mutex.Unlock()

	if !cache.arena.Fits(len(unit.code)) {
		err = fmt.Errorf("%w: unit %08x", ErrCapacityExceeded, unit.Entry)
		return
	}

	victims := cache.overlapping(unit.Entry, unit.End)
	if old, ok := cache.units[unit.Entry]; ok && !slices.Contains(victims, old) {
		victims = append(victims, old)
	}
	cache.removeLocked(victims)

	offset, err := cache.arena.Append(unit.code)
	if err != nil {
		return
	}

	unit.Offset = offset
	unit.Size = len(unit.code)
	unit.valid = true

	cache.units[unit.Entry] = unit
	index, _ := slices.BinarySearchFunc(cache.ranges, unit.Entry, compareEntry)
	cache.ranges = slices.Insert(cache.ranges, index, unit)
	cache.maxSpan = max(cache.maxSpan, unit.End-unit.Entry)
	cache.stats.Inserts++

	if cache.Verbose {
		log.Printf("jit: insert %v @%d+%d", unit, unit.Offset, unit.Size)
	}

	cache.linkLocked(unit)
	cache.resolveLocked(unit)
	return
}

func compareEntry(unit *Unit, entry uint32) int {
	return cmp.Compare(unit.Entry, entry)
}

// overlapping returns the resident units covering any of [lo, hi).
func (cache *BlockCache) overlapping(lo, hi uint32) (found []*Unit) {
	if hi <= lo {
		return
	}

	var start uint32
	if lo > cache.maxSpan {
		start = lo - cache.maxSpan
	}

	index, _ := slices.BinarySearchFunc(cache.ranges, start, compareEntry)
	for _, unit := range cache.ranges[index:] {
		if unit.Entry >= hi {
			break
		}
		if unit.Overlaps(lo, hi) {
			found = append(found, unit)
		}
	}
	return
}

// InvalidateRange removes every resident unit covering any of [lo, hi),
// returning the number removed.
func (cache *BlockCache) InvalidateRange(lo, hi uint32) (count int) {
	cache.mutex.Lock()
	defer cache.mutex.Unlock()

	victims := cache.overlapping(lo, hi)
	cache.removeLocked(victims)
	cache.stats.Invalidated += uint64(len(victims))

	if cache.Verbose && len(victims) > 0 {
		log.Printf("jit: invalidate %08x-%08x: %d units", lo, hi, len(victims))
	}

	count = len(victims)
	return
}

// removeLocked drops units from the lookup structures, and reverts
// every link site that jumps into them. Their arena bytes remain
// until the next Clear.
func (cache *BlockCache) removeLocked(victims []*Unit) {
	if len(victims) == 0 {
		return
	}

	for _, unit := range victims {
		unit.valid = false
		delete(cache.units, unit.Entry)
		index, found := slices.BinarySearchFunc(cache.ranges, unit.Entry, compareEntry)
		if found {
			cache.ranges = slices.Delete(cache.ranges, index, index+1)
		}
	}

	// Sites owned by a removed unit.
	for _, unit := range victims {
		for n := range unit.Sites {
			ref := siteRef{unit: unit, site: n}
			target := unit.Sites[n].Target
			if unit.Sites[n].Linked {
				cache.unpatchLocked(ref)
				cache.linked[target] = dropRef(cache.linked[target], ref)
				if len(cache.linked[target]) == 0 {
					delete(cache.linked, target)
				}
			} else {
				cache.pending[target] = dropRef(cache.pending[target], ref)
				if len(cache.pending[target]) == 0 {
					delete(cache.pending, target)
				}
			}
		}
	}

	// Sites jumping into a removed unit.
	for _, unit := range victims {
		refs := cache.linked[unit.Entry]
		delete(cache.linked, unit.Entry)
		for _, ref := range refs {
			cache.unpatchLocked(ref)
			if ref.unit.valid {
				cache.pending[unit.Entry] = append(cache.pending[unit.Entry], ref)
			}
		}
	}

	cache.generation.Add(1)
}

func dropRef(refs []siteRef, ref siteRef) []siteRef {
	return slices.DeleteFunc(refs, func(r siteRef) bool { return r == ref })
}

// Clear discards every unit, and resets the arena.
func (cache *BlockCache) Clear() {
	cache.mutex.Lock()
	defer cache.mutex.Unlock()

	for _, unit := range cache.ranges {
		unit.valid = false
	}

	clear(cache.units)
	clear(cache.pending)
	clear(cache.linked)
	cache.ranges = nil
	cache.maxSpan = 0
	cache.arena.Reset()
	cache.stats.Clears++
	cache.generation.Add(1)

	if cache.Verbose {
		log.Printf("jit: clear")
	}
}

// Units yields the resident units, by entry address.
func (cache *BlockCache) Units() iter.Seq[*Unit] {
	cache.mutex.Lock()
	units := slices.Clone(cache.ranges)
	cache.mutex.Unlock()

	return slices.Values(units)
}

// Len is the number of resident units.
func (cache *BlockCache) Len() int {
	cache.mutex.Lock()
	defer cache.mutex.Unlock()

	return len(cache.units)
}

// Code returns a copy of a resident unit's host code.
func (cache *BlockCache) Code(unit *Unit) (code []byte, err error) {
	cache.mutex.Lock()
	defer cache.mutex.Unlock()

	if !unit.valid {
		err = fmt.Errorf("%w: %v not resident", ErrArenaBounds, unit)
		return
	}
	code, err = cache.arena.Bytes(unit.Offset, unit.Size)
	return
}

// Verify returns the resident units whose guest bytes no longer match
// the bytes they were compiled from.
func (cache *BlockCache) Verify(source Source) (stale []*Unit) {
	for unit := range cache.Units() {
		size := uint32(unit.Instructions * 4)
		if size == 0 {
			continue
		}
		data, err := source.Slice(unit.Entry, size)
		if err != nil || blake2b.Sum256(data) != unit.Digest {
			stale = append(stale, unit)
		}
	}
	return
}

// Stats returns a snapshot of the cache counters.
func (cache *BlockCache) Stats() (stats Stats) {
	cache.mutex.Lock()
	defer cache.mutex.Unlock()

	stats = cache.stats
	stats.Units = len(cache.units)
	stats.ArenaUsed = cache.arena.Used()
	stats.ArenaSize = cache.arena.Capacity()
	return
}
