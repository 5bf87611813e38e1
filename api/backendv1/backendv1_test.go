// Copyright (c) 2025 ludicrypt
//
// This file is part of supacrypt-core.
//
// Licensed under the MIT License.
// See LICENSE file or visit https://opensource.org/license/mit

package backendv1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"
)

func TestCodecRegistered(t *testing.T) {
	c := encoding.GetCodec(CodecName)
	require.NotNil(t, c, "json codec must self-register")
	assert.Equal(t, CodecName, c.Name())
}

func TestCodecRoundTrip(t *testing.T) {
	c := encoding.GetCodec(CodecName)
	require.NotNil(t, c)

	in := &SignDataRequest{
		KeyID:         "key-1",
		Data:          []byte{0x01, 0x02, 0x03},
		HashAlgorithm: "sha256",
	}
	raw, err := c.Marshal(in)
	require.NoError(t, err)

	var out SignDataRequest
	require.NoError(t, c.Unmarshal(raw, &out))
	assert.Equal(t, in.KeyID, out.KeyID)
	assert.Equal(t, in.Data, out.Data)
	assert.Equal(t, in.HashAlgorithm, out.HashAlgorithm)
}

func TestCodecErrorEnvelope(t *testing.T) {
	c := encoding.GetCodec(CodecName)
	require.NotNil(t, c)

	in := &GetKeyResponse{
		Error: &BackendError{Code: ErrorCodeKeyNotFound, Message: "no such key"},
	}
	raw, err := c.Marshal(in)
	require.NoError(t, err)

	var out GetKeyResponse
	require.NoError(t, c.Unmarshal(raw, &out))
	require.NotNil(t, out.Error)
	assert.Equal(t, ErrorCodeKeyNotFound, out.Error.Code)

	// A clean response omits the envelope entirely.
	raw, err = c.Marshal(&GetKeyResponse{KeyID: "k"})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "error")
}

func TestBackendErrorMessage(t *testing.T) {
	e := &BackendError{Code: ErrorCodeContainerNotFound, Message: "container gone"}
	assert.Contains(t, e.Error(), "CONTAINER_NOT_FOUND")
	assert.Contains(t, e.Error(), "container gone")

	bare := &BackendError{Code: ErrorCodeInternal}
	assert.Contains(t, bare.Error(), "INTERNAL")
}

func TestCodesListsEveryConstant(t *testing.T) {
	seen := make(map[ErrorCode]bool)
	for _, c := range Codes() {
		assert.False(t, seen[c], "duplicate code %q", c)
		seen[c] = true
	}
	assert.True(t, seen[ErrorCodeUnspecified])
	assert.True(t, seen[ErrorCodeInternal])
	assert.Len(t, seen, 11)
}

func TestMethodNamesQualified(t *testing.T) {
	assert.Equal(t, "/supacrypt.v1.SupacryptService/SignData", MethodSignData)
	assert.Len(t, ServiceDesc.Methods, 14)
	assert.Equal(t, ServiceName, ServiceDesc.ServiceName)
}
