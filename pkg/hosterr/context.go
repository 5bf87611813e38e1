// Copyright (c) 2025 ludicrypt
//
// This file is part of supacrypt-core.
//
// Licensed under the MIT License.
// See LICENSE file or visit https://opensource.org/license/mit

package hosterr

import (
	"fmt"
	"sync"
)

// Origin identifies which layer produced a failure.
type Origin string

const (
	// OriginHandle marks failures detected by handle validation.
	OriginHandle Origin = "handle"
	// OriginGateway marks failures detected by the gateway before any
	// network activity (parameter validation, breaker rejection).
	OriginGateway Origin = "gateway"
	// OriginTransport marks gRPC-level failures.
	OriginTransport Origin = "transport"
	// OriginBackend marks failures the backend reported in-band.
	OriginBackend Origin = "backend"
)

// ErrorContext is the retrievable record behind the host's
// get-last-error pattern: the host sees a boolean failure, then reads
// this for the code and description.
type ErrorContext struct {
	Code    Code
	Message string
	Detail  string
	Origin  Origin
}

// String renders the context for logs.
func (c ErrorContext) String() string {
	if c.Detail == "" {
		return fmt.Sprintf("0x%08X (%s): %s", uint32(c.Code), c.Origin, c.Message)
	}
	return fmt.Sprintf("0x%08X (%s): %s: %s", uint32(c.Code), c.Origin, c.Message, c.Detail)
}

// Store holds the most recent ErrorContext. It is an explicitly
// constructed component rather than ambient thread-local state so tests
// can instantiate independent stores; semantics are last-write-wins.
type Store struct {
	mu   sync.RWMutex
	last ErrorContext
	set  bool
}

// NewStore creates an empty last-error store.
func NewStore() *Store {
	return &Store{}
}

// Set records ctx as the most recent failure.
func (s *Store) Set(ctx ErrorContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = ctx
	s.set = true
}

// SetFromError classifies err and records the resulting context.
// A nil err clears the store instead.
func (s *Store) SetFromError(origin Origin, err error) {
	if err == nil {
		s.Clear()
		return
	}
	code := CodeOf(err)
	s.Set(ErrorContext{
		Code:    code,
		Message: Description(code),
		Detail:  err.Error(),
		Origin:  origin,
	})
}

// Last returns the most recent context and whether one has been set
// since the last Clear.
func (s *Store) Last() (ErrorContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.set
}

// Clear resets the store to its empty state.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = ErrorContext{}
	s.set = false
}
