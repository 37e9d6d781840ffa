// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package jit

import (
	"encoding/binary"
	"log"
	"slices"
)

// TryLink patches every unlinked site of a resident unit whose target
// is resident. Sites with absent targets are remembered, and linked
// when their target is inserted. Returns the number of sites patched.
func (cache *BlockCache) TryLink(unit *Unit) (linked int) {
	cache.mutex.Lock()
	defer cache.mutex.Unlock()

	linked = cache.linkLocked(unit)
	return
}

func (cache *BlockCache) linkLocked(unit *Unit) (linked int) {
	if !cache.Linking || !unit.valid {
		return
	}

	for n := range unit.Sites {
		site := &unit.Sites[n]
		if site.Linked {
			continue
		}
		ref := siteRef{unit: unit, site: n}
		target, ok := cache.units[site.Target]
		if !ok {
			if !slices.Contains(cache.pending[site.Target], ref) {
				cache.pending[site.Target] = append(cache.pending[site.Target], ref)
			}
			continue
		}
		if cache.patchLocked(ref, target) {
			cache.pending[site.Target] = dropRef(cache.pending[site.Target], ref)
			linked++
		}
	}

	return
}

// resolveLocked links the pending sites targeting a new unit.
func (cache *BlockCache) resolveLocked(target *Unit) {
	if !cache.Linking {
		return
	}

	refs := cache.pending[target.Entry]
	delete(cache.pending, target.Entry)
	for _, ref := range refs {
		if !ref.unit.valid || ref.unit.Sites[ref.site].Linked {
			continue
		}
		if ref.unit == target {
			// Self loops were linked by linkLocked.
			continue
		}
		cache.patchLocked(ref, target)
	}
}

// patchLocked rewrites a site into a native jump to target.
func (cache *BlockCache) patchLocked(ref siteRef, target *Unit) bool {
	site := &ref.unit.Sites[ref.site]
	at := ref.unit.Offset + site.Offset

	var native [4]byte
	binary.LittleEndian.PutUint32(native[:], uint32(target.Offset))
	err := cache.arena.Patch(at+linkNativeOffset, native[:])
	if err == nil {
		err = cache.arena.Patch(at, []byte{byte(HOP_JUMP_NATIVE)})
	}
	if err != nil {
		log.Printf("jit: link %v site %d: %v", ref.unit, ref.site, err)
		return false
	}

	site.Linked = true
	cache.linked[target.Entry] = append(cache.linked[target.Entry], ref)
	cache.stats.Links++

	if cache.Verbose {
		log.Printf("jit: link %08x+%d -> %08x @%d", ref.unit.Entry, site.Offset, target.Entry, target.Offset)
	}
	return true
}

// unpatchLocked reverts a site to an exit to the dispatcher.
func (cache *BlockCache) unpatchLocked(ref siteRef) {
	site := &ref.unit.Sites[ref.site]
	at := ref.unit.Offset + site.Offset

	var native [4]byte
	err := cache.arena.Patch(at, []byte{byte(HOP_EXIT_TO)})
	if err == nil {
		err = cache.arena.Patch(at+linkNativeOffset, native[:])
	}
	if err != nil {
		log.Printf("jit: unlink %v site %d: %v", ref.unit, ref.site, err)
	}

	site.Linked = false
	cache.stats.Unlinks++
}
