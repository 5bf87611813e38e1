// Copyright (c) 2025 ludicrypt
//
// This file is part of supacrypt-core.
//
// Licensed under the MIT License.
// See LICENSE file or visit https://opensource.org/license/mit

package provider

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ludicrypt/supacrypt-core/pkg/hosterr"
)

// contextObject is the payload behind a provider handle. It names the
// container the context operates on; all remote state lives behind the
// container name on the backend.
type contextObject struct {
	SessionID uuid.UUID
	Container string
	Flags     uint32

	// VerifyOnly contexts are ephemeral: no container operations, only
	// hashing and signature verification against imported public keys.
	VerifyOnly bool
}

// keyObject is the payload behind a key handle. The key material itself
// never leaves the backend; the object records the backend identifier
// and enough metadata to answer parameter queries locally.
//
// All fields except the permission mask are fixed at creation. The mask
// is guarded so concurrent same-handle parameter calls cannot tear it.
type keyObject struct {
	BackendKeyID string
	Algorithm    Algorithm
	KeySpec      uint32
	KeyBits      uint32
	Exportable   bool
	PublicKey    []byte

	mu          sync.Mutex
	Permissions uint32
}

// permissions reads the permission mask.
func (k *keyObject) permissions() uint32 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.Permissions
}

// setPermissions replaces the permission mask.
func (k *keyObject) setPermissions(v uint32) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.Permissions = v
}

// clone returns an independent copy sharing no mutable state.
func (k *keyObject) clone() *keyObject {
	k.mu.Lock()
	defer k.mu.Unlock()
	return &keyObject{
		BackendKeyID: k.BackendKeyID,
		Algorithm:    k.Algorithm,
		KeySpec:      k.KeySpec,
		KeyBits:      k.KeyBits,
		Exportable:   k.Exportable,
		PublicKey:    append([]byte(nil), k.PublicKey...),
		Permissions:  k.Permissions,
	}
}

// hashObject is the payload behind a hash handle. Input is buffered
// locally and shipped to the backend in one ComputeHash call at
// finalization, so partial updates cost no round trips.
//
// The mutex serializes same-handle operations: concurrent HashData
// calls append atomically, and a finalize racing a write leaves one of
// the two with a deterministic already-finalized failure rather than a
// torn buffer. finalizeHash holds the lock across its backend call.
type hashObject struct {
	Algorithm Algorithm

	// KeyID is set for keyed digests (HMAC).
	KeyID string

	mu        sync.Mutex
	buf       []byte
	finalized bool
	value     []byte

	// external marks a digest installed by the caller rather than
	// computed from buffered input. Sign and verify need the original
	// input and reject external digests.
	external bool
}

// write appends data to the pending input. Fails once finalized.
func (h *hashObject) write(data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.finalized {
		return hosterr.WithCode(hosterr.CodeBadHash,
			fmt.Errorf("%w: hash already finalized", hosterr.ErrInvalidParameter))
	}
	h.buf = append(h.buf, data...)
	return nil
}

// setValue installs a precomputed digest, finalizing the object.
func (h *hashObject) setValue(digest []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.finalized {
		return hosterr.WithCode(hosterr.CodeBadHash,
			fmt.Errorf("%w: hash already finalized", hosterr.ErrInvalidParameter))
	}
	h.value = append([]byte(nil), digest...)
	h.finalized = true
	h.external = true
	return nil
}

// input returns a copy of the pending input and the external flag, for
// remote calls that must not hold the object lock across the wire.
func (h *hashObject) input() ([]byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]byte(nil), h.buf...), h.external
}

// clone returns an independent copy sharing no buffers.
func (h *hashObject) clone() *hashObject {
	h.mu.Lock()
	defer h.mu.Unlock()
	dup := &hashObject{
		Algorithm: h.Algorithm,
		KeyID:     h.KeyID,
		finalized: h.finalized,
		external:  h.external,
	}
	dup.buf = append([]byte(nil), h.buf...)
	dup.value = append([]byte(nil), h.value...)
	return dup
}
