// Copyright (c) 2025 ludicrypt
//
// This file is part of supacrypt-core.
//
// Licensed under the MIT License.
// See LICENSE file or visit https://opensource.org/license/mit

// Package hosterr implements the three-domain error taxonomy that sits
// between the host interface, the gRPC transport, and the Supacrypt
// backend.
//
// The three vocabularies are:
//
//   - host status codes (Code): the fixed numeric error space the host
//     layer reads back after a failed operation,
//   - transport status (gRPC codes.Code): cancelled, unavailable,
//     deadline-exceeded, and friends,
//   - backend domain errors (backendv1.ErrorCode): key-not-found,
//     algorithm-unsupported, quota-exceeded, and friends.
//
// Every translation in this package is pure and total: inputs with no
// specific mapping fall back to a defined generic code, never to an
// untranslated value. The package also defines the error kinds the rest
// of supacrypt-core classifies failures with (ErrInvalidHandle,
// ErrPoolExhausted, ErrCircuitOpen, ...) and the last-error Store the
// gateway records an ErrorContext into before returning failure.
package hosterr
