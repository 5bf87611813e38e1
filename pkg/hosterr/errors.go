// Copyright (c) 2025 ludicrypt
//
// This file is part of supacrypt-core.
//
// Licensed under the MIT License.
// See LICENSE file or visit https://opensource.org/license/mit

package hosterr

import "errors"

// Error kinds. Every failure supacrypt-core reports wraps exactly one of
// these sentinels; callers classify with errors.Is and translate to a
// host code with CodeOf.
var (
	// ErrInvalidHandle indicates an unknown, retired, or wrong-kind handle.
	ErrInvalidHandle = errors.New("supacrypt: invalid handle")

	// ErrInvalidParameter indicates a malformed or unsupported parameter.
	ErrInvalidParameter = errors.New("supacrypt: invalid parameter")

	// ErrInsufficientBuffer indicates the caller's buffer is smaller than
	// the data to return; the required size accompanies the failure.
	ErrInsufficientBuffer = errors.New("supacrypt: insufficient buffer")

	// ErrPoolExhausted indicates no pooled connection became available
	// within the connect timeout.
	ErrPoolExhausted = errors.New("supacrypt: connection pool exhausted")

	// ErrConnect indicates channel establishment failed (DNS, TCP refused,
	// TLS handshake).
	ErrConnect = errors.New("supacrypt: backend connection failed")

	// ErrDeadlineExceeded indicates the remote call exceeded the request
	// timeout.
	ErrDeadlineExceeded = errors.New("supacrypt: request deadline exceeded")

	// ErrCircuitOpen indicates the circuit breaker rejected the call before
	// any network activity.
	ErrCircuitOpen = errors.New("supacrypt: circuit breaker open")

	// ErrBackendRejected indicates the backend processed the request and
	// refused it; the wrapped chain carries the *backendv1.BackendError
	// with the domain reason.
	ErrBackendRejected = errors.New("supacrypt: backend rejected request")

	// ErrInternal is the catch-all for untranslatable conditions.
	ErrInternal = errors.New("supacrypt: internal error")
)

// kindCodes maps each error kind to its default host code. Backend
// rejections are refined further by TranslateBackendToHost.
var kindCodes = []struct {
	kind error
	code Code
}{
	{ErrInvalidHandle, CodeBadHandle},
	{ErrInvalidParameter, CodeBadParameter},
	{ErrInsufficientBuffer, CodeMoreData},
	{ErrPoolExhausted, CodeInternalError},
	{ErrConnect, CodeInternalError},
	{ErrDeadlineExceeded, CodeInternalError},
	{ErrCircuitOpen, CodeInternalError},
	{ErrBackendRejected, CodeInternalError},
	{ErrInternal, CodeInternalError},
}

// CodeOf resolves the host code for any error produced by this module.
// A nil error maps to CodeSuccess; anything unclassified maps to
// CodeInternalError.
func CodeOf(err error) Code {
	if err == nil {
		return CodeSuccess
	}
	var coded *codedError
	if errors.As(err, &coded) {
		return coded.code
	}
	if be := backendErrorIn(err); be != nil {
		return TranslateBackendToHost(be.Code)
	}
	for _, kc := range kindCodes {
		if errors.Is(err, kc.kind) {
			return kc.code
		}
	}
	return CodeInternalError
}
