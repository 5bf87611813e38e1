// Copyright (c) 2025 ludicrypt
//
// This file is part of supacrypt-core.
//
// Licensed under the MIT License.
// See LICENSE file or visit https://opensource.org/license/mit

// Package backendv1 defines the version 1 wire contract between
// supacrypt-core and the Supacrypt backend service.
//
// The contract is carried over gRPC with JSON-encoded message bodies.
// Messages are plain Go structs registered with grpc-go through a custom
// codec (see codec.go); clients select it per call with
// grpc.CallContentSubtype(CodecName). This keeps the module free of
// generated code while preserving gRPC transport semantics: status codes,
// deadlines, and per-call metadata all behave exactly as they would with
// protobuf bodies.
//
// Backend-domain failures are reported in-band through the Error field
// present on every response envelope, using the ErrorCode vocabulary in
// errors.go. Transport-level failures surface as gRPC status errors and
// never carry an ErrorCode.
package backendv1
