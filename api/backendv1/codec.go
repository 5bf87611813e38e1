// Copyright (c) 2025 ludicrypt
//
// This file is part of supacrypt-core.
//
// Licensed under the MIT License.
// See LICENSE file or visit https://opensource.org/license/mit

package backendv1

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// CodecName is the content-subtype under which the JSON codec is
// registered. Callers pass grpc.CallContentSubtype(CodecName) on every
// RPC so both peers negotiate "application/grpc+json".
const CodecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec marshals RPC message bodies as JSON. It satisfies
// grpc-go's encoding.Codec interface.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("backendv1: marshal %T: %w", v, err)
	}
	return b, nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("backendv1: unmarshal %T: %w", v, err)
	}
	return nil
}

func (jsonCodec) Name() string { return CodecName }
