// Copyright (c) 2025 ludicrypt
//
// This file is part of supacrypt-core.
//
// Licensed under the MIT License.
// See LICENSE file or visit https://opensource.org/license/mit

package hosterr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"github.com/ludicrypt/supacrypt-core/api/backendv1"
)

func TestTranslateTransportToHostTotal(t *testing.T) {
	// Every defined gRPC code must map to some host code, never zero for
	// a failure.
	for c := codes.OK; c <= codes.Unauthenticated; c++ {
		hc := TranslateTransportToHost(c)
		if c == codes.OK {
			assert.Equal(t, CodeSuccess, hc)
			continue
		}
		assert.NotEqual(t, CodeSuccess, hc, "code %v must not map to success", c)
	}
}

func TestTranslateTransportToHostUnknownCode(t *testing.T) {
	assert.Equal(t, CodeInternalError, TranslateTransportToHost(codes.Code(999)))
}

func TestTranslateBackendToHostTotal(t *testing.T) {
	for _, bc := range backendv1.Codes() {
		hc := TranslateBackendToHost(bc)
		assert.NotEqual(t, CodeSuccess, hc, "backend code %q must not map to success", bc)
	}
	assert.Equal(t, CodeInternalError, TranslateBackendToHost(backendv1.ErrorCode("NO_SUCH_CODE")))
}

func TestTranslateBackendToHostSpecific(t *testing.T) {
	tests := []struct {
		backend backendv1.ErrorCode
		host    Code
	}{
		{backendv1.ErrorCodeKeyNotFound, CodeNoKey},
		{backendv1.ErrorCodeKeyExists, CodeKeyExists},
		{backendv1.ErrorCodeContainerNotFound, CodeBadContainer},
		{backendv1.ErrorCodeAlgorithmUnsupported, CodeBadAlgorithm},
		{backendv1.ErrorCodeSignatureInvalid, CodeBadSignature},
		{backendv1.ErrorCodePermissionDenied, CodePermissionDenied},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.host, TranslateBackendToHost(tt.backend), "backend code %q", tt.backend)
	}
}

func TestTranslateHostToBackendTotal(t *testing.T) {
	for _, hc := range AllCodes() {
		bc := TranslateHostToBackend(hc)
		assert.NotEmpty(t, bc, "host code 0x%08X must map somewhere", uint32(hc))
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, CodeSuccess},
		{"invalid handle", fmt.Errorf("%w: 0xdead", ErrInvalidHandle), CodeBadHandle},
		{"invalid parameter", ErrInvalidParameter, CodeBadParameter},
		{"insufficient buffer", fmt.Errorf("%w: need 32", ErrInsufficientBuffer), CodeMoreData},
		{"pool exhausted", ErrPoolExhausted, CodeInternalError},
		{"circuit open", ErrCircuitOpen, CodeInternalError},
		{"deadline", ErrDeadlineExceeded, CodeInternalError},
		{"unclassified", errors.New("who knows"), CodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestCodeOfBackendError(t *testing.T) {
	be := &backendv1.BackendError{Code: backendv1.ErrorCodeKeyNotFound, Message: "gone"}
	err := fmt.Errorf("%w: %w", ErrBackendRejected, be)
	assert.Equal(t, CodeNoKey, CodeOf(err))
}

func TestCodeOfExplicitCode(t *testing.T) {
	err := WithCode(CodeBadSignature, fmt.Errorf("%w: mismatch", ErrInvalidParameter))
	// The explicit annotation wins over the kind default.
	assert.Equal(t, CodeBadSignature, CodeOf(err))
	assert.True(t, errors.Is(err, ErrInvalidParameter))
}

func TestWithCodeNil(t *testing.T) {
	assert.NoError(t, WithCode(CodeBadSignature, nil))
}

func TestDescriptionNeverEmpty(t *testing.T) {
	for _, c := range AllCodes() {
		assert.NotEmpty(t, Description(c))
	}
	assert.NotEmpty(t, Description(Code(0xDEADBEEF)))
}

func TestStoreLastWriteWins(t *testing.T) {
	s := NewStore()

	_, ok := s.Last()
	assert.False(t, ok)

	s.SetFromError(OriginHandle, fmt.Errorf("%w: 0x1", ErrInvalidHandle))
	s.SetFromError(OriginBackend, fmt.Errorf("%w: nope", ErrBackendRejected))

	ec, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, CodeInternalError, ec.Code)
	assert.Equal(t, OriginBackend, ec.Origin)

	s.Clear()
	_, ok = s.Last()
	assert.False(t, ok)
}

func TestStoreSetFromNilClears(t *testing.T) {
	s := NewStore()
	s.SetFromError(OriginGateway, ErrInternal)
	s.SetFromError(OriginGateway, nil)
	_, ok := s.Last()
	assert.False(t, ok)
}

func TestErrorContextString(t *testing.T) {
	ec := ErrorContext{Code: CodeBadHandle, Message: "invalid handle", Origin: OriginHandle}
	assert.Contains(t, ec.String(), "0x8009000B")
	assert.Contains(t, ec.String(), "handle")
}
