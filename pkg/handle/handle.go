// Copyright (c) 2025 ludicrypt
//
// This file is part of supacrypt-core.
//
// Licensed under the MIT License.
// See LICENSE file or visit https://opensource.org/license/mit

// Package handle implements the opaque handle table that tracks
// provider, key, and hash objects on behalf of the host layer.
//
// The host only ever sees integer Handle values. Internally each handle
// is a slot index paired with a generation counter, so a handle that
// outlives its object is detected as stale instead of resolving to
// whatever object later reused the slot. Ownership is explicit: key and
// hash handles are created under a provider handle, and retiring the
// provider cascades to everything it owns.
package handle

import (
	"fmt"
	"sync"

	"github.com/ludicrypt/supacrypt-core/pkg/hosterr"
)

// Handle is the opaque token handed to the host. Zero is never a valid
// handle.
type Handle uint64

// Kind discriminates the object classes a handle may reference.
type Kind uint8

const (
	// KindProvider references a provider context.
	KindProvider Kind = iota + 1
	// KindKey references a key object.
	KindKey
	// KindHash references a hash object.
	KindHash
)

// String implements fmt.Stringer for diagnostics.
func (k Kind) String() string {
	switch k {
	case KindProvider:
		return "provider"
	case KindKey:
		return "key"
	case KindHash:
		return "hash"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

type slot struct {
	gen     uint32
	kind    Kind
	payload any
	parent  Handle
	live    bool
}

// Table issues, validates, and retires handles. All methods are safe for
// concurrent use; each operation is individually atomic with respect to
// the table, so racing operations on the same handle fail
// deterministically rather than corrupting state.
type Table struct {
	mu       sync.RWMutex
	slots    map[uint32]*slot
	children map[Handle][]Handle
	next     uint32
	free     []uint32
}

// NewTable creates an empty handle table.
func NewTable() *Table {
	return &Table{
		slots:    make(map[uint32]*slot),
		children: make(map[Handle][]Handle),
	}
}

func compose(index, gen uint32) Handle {
	return Handle(uint64(gen)<<32 | uint64(index))
}

func split(h Handle) (index, gen uint32) {
	return uint32(h), uint32(h >> 32)
}

// Create allocates a slot for payload and returns its handle. Key and
// hash handles must name their owning provider handle; provider handles
// pass parent zero. The returned handle is unique among all live
// handles; a retired slot is only reused with a bumped generation.
func (t *Table) Create(kind Kind, payload any, parent Handle) (Handle, error) {
	if kind != KindProvider && kind != KindKey && kind != KindHash {
		return 0, fmt.Errorf("%w: unknown handle kind %d", hosterr.ErrInvalidParameter, kind)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if kind == KindProvider {
		if parent != 0 {
			return 0, fmt.Errorf("%w: provider handles have no parent", hosterr.ErrInvalidParameter)
		}
	} else {
		if _, err := t.lookup(parent, KindProvider); err != nil {
			return 0, err
		}
	}

	var index uint32
	var gen uint32
	if n := len(t.free); n > 0 {
		index = t.free[n-1]
		t.free = t.free[:n-1]
		gen = t.slots[index].gen + 1
	} else {
		t.next++
		index = t.next
		gen = 1
	}

	t.slots[index] = &slot{gen: gen, kind: kind, payload: payload, parent: parent, live: true}
	h := compose(index, gen)
	if parent != 0 {
		t.children[parent] = append(t.children[parent], h)
	}
	return h, nil
}

// lookup resolves a handle under the caller's lock.
func (t *Table) lookup(h Handle, kind Kind) (*slot, error) {
	index, gen := split(h)
	s, ok := t.slots[index]
	if !ok || !s.live || s.gen != gen {
		return nil, fmt.Errorf("%w: 0x%016X", hosterr.ErrInvalidHandle, uint64(h))
	}
	if s.kind != kind {
		return nil, fmt.Errorf("%w: 0x%016X is a %s handle, want %s",
			hosterr.ErrInvalidHandle, uint64(h), s.kind, kind)
	}
	return s, nil
}

// Resolve returns the payload behind h if it is live and of the
// expected kind, and ErrInvalidHandle otherwise.
func (t *Table) Resolve(h Handle, kind Kind) (any, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, err := t.lookup(h, kind)
	if err != nil {
		return nil, err
	}
	return s.payload, nil
}

// Owner returns the provider handle owning a key or hash handle.
func (t *Table) Owner(h Handle) (Handle, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	index, gen := split(h)
	s, ok := t.slots[index]
	if !ok || !s.live || s.gen != gen {
		return 0, fmt.Errorf("%w: 0x%016X", hosterr.ErrInvalidHandle, uint64(h))
	}
	return s.parent, nil
}

// Retire removes h from the table. Retiring a provider handle first
// retires every key and hash handle it owns. Retiring an already
// retired or unknown handle fails with ErrInvalidHandle; it never
// panics. Retirement is purely local: callers that must tear down
// backend state do so before retiring the handle.
func (t *Table) Retire(h Handle) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.retireLocked(h)
}

func (t *Table) retireLocked(h Handle) error {
	index, gen := split(h)
	s, ok := t.slots[index]
	if !ok || !s.live || s.gen != gen {
		return fmt.Errorf("%w: 0x%016X", hosterr.ErrInvalidHandle, uint64(h))
	}

	for _, child := range t.children[h] {
		// Children may already be individually retired; that is not an error
		// during a cascade.
		ci, cg := split(child)
		if cs, ok := t.slots[ci]; ok && cs.live && cs.gen == cg {
			_ = t.retireLocked(child)
		}
	}
	delete(t.children, h)

	if s.parent != 0 {
		t.children[s.parent] = removeHandle(t.children[s.parent], h)
	}

	s.live = false
	s.payload = nil
	t.free = append(t.free, index)
	return nil
}

func removeHandle(hs []Handle, h Handle) []Handle {
	for i, v := range hs {
		if v == h {
			return append(hs[:i], hs[i+1:]...)
		}
	}
	return hs
}

// Children returns the live handles owned by a provider handle.
func (t *Table) Children(h Handle) []Handle {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Handle, len(t.children[h]))
	copy(out, t.children[h])
	return out
}

// Len reports the number of live handles of all kinds.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, s := range t.slots {
		if s.live {
			n++
		}
	}
	return n
}
