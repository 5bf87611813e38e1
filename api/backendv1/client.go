// Copyright (c) 2025 ludicrypt
//
// This file is part of supacrypt-core.
//
// Licensed under the MIT License.
// See LICENSE file or visit https://opensource.org/license/mit

package backendv1

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "supacrypt.v1.SupacryptService"

// Fully qualified method names, usable with grpc.ClientConn.Invoke and
// in interceptor match lists.
const (
	MethodHealth          = "/" + ServiceName + "/Health"
	MethodGenerateKey     = "/" + ServiceName + "/GenerateKey"
	MethodGetKey          = "/" + ServiceName + "/GetKey"
	MethodListKeys        = "/" + ServiceName + "/ListKeys"
	MethodDeleteKey       = "/" + ServiceName + "/DeleteKey"
	MethodSignData        = "/" + ServiceName + "/SignData"
	MethodVerifySignature = "/" + ServiceName + "/VerifySignature"
	MethodEncryptData     = "/" + ServiceName + "/EncryptData"
	MethodDecryptData     = "/" + ServiceName + "/DecryptData"
	MethodComputeHash     = "/" + ServiceName + "/ComputeHash"
	MethodDeriveKey       = "/" + ServiceName + "/DeriveKey"
	MethodImportKey       = "/" + ServiceName + "/ImportKey"
	MethodExportKey       = "/" + ServiceName + "/ExportKey"
	MethodGenerateRandom  = "/" + ServiceName + "/GenerateRandom"
)

// BackendClient is the typed client surface of the Supacrypt backend
// service. All methods are unary and honor context deadlines.
type BackendClient interface {
	Health(ctx context.Context, in *HealthRequest) (*HealthResponse, error)
	GenerateKey(ctx context.Context, in *GenerateKeyRequest) (*GenerateKeyResponse, error)
	GetKey(ctx context.Context, in *GetKeyRequest) (*GetKeyResponse, error)
	ListKeys(ctx context.Context, in *ListKeysRequest) (*ListKeysResponse, error)
	DeleteKey(ctx context.Context, in *DeleteKeyRequest) (*DeleteKeyResponse, error)
	SignData(ctx context.Context, in *SignDataRequest) (*SignDataResponse, error)
	VerifySignature(ctx context.Context, in *VerifySignatureRequest) (*VerifySignatureResponse, error)
	EncryptData(ctx context.Context, in *EncryptDataRequest) (*EncryptDataResponse, error)
	DecryptData(ctx context.Context, in *DecryptDataRequest) (*DecryptDataResponse, error)
	ComputeHash(ctx context.Context, in *ComputeHashRequest) (*ComputeHashResponse, error)
	DeriveKey(ctx context.Context, in *DeriveKeyRequest) (*DeriveKeyResponse, error)
	ImportKey(ctx context.Context, in *ImportKeyRequest) (*ImportKeyResponse, error)
	ExportKey(ctx context.Context, in *ExportKeyRequest) (*ExportKeyResponse, error)
	GenerateRandom(ctx context.Context, in *GenerateRandomRequest) (*GenerateRandomResponse, error)
}

type backendClient struct {
	cc grpc.ClientConnInterface
}

// NewBackendClient wraps a gRPC connection with the typed service surface.
func NewBackendClient(cc grpc.ClientConnInterface) BackendClient {
	return &backendClient{cc: cc}
}

func invoke[T any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any) (*T, error) {
	out := new(T)
	if err := cc.Invoke(ctx, method, in, out, grpc.CallContentSubtype(CodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *backendClient) Health(ctx context.Context, in *HealthRequest) (*HealthResponse, error) {
	return invoke[HealthResponse](ctx, c.cc, MethodHealth, in)
}

func (c *backendClient) GenerateKey(ctx context.Context, in *GenerateKeyRequest) (*GenerateKeyResponse, error) {
	return invoke[GenerateKeyResponse](ctx, c.cc, MethodGenerateKey, in)
}

func (c *backendClient) GetKey(ctx context.Context, in *GetKeyRequest) (*GetKeyResponse, error) {
	return invoke[GetKeyResponse](ctx, c.cc, MethodGetKey, in)
}

func (c *backendClient) ListKeys(ctx context.Context, in *ListKeysRequest) (*ListKeysResponse, error) {
	return invoke[ListKeysResponse](ctx, c.cc, MethodListKeys, in)
}

func (c *backendClient) DeleteKey(ctx context.Context, in *DeleteKeyRequest) (*DeleteKeyResponse, error) {
	return invoke[DeleteKeyResponse](ctx, c.cc, MethodDeleteKey, in)
}

func (c *backendClient) SignData(ctx context.Context, in *SignDataRequest) (*SignDataResponse, error) {
	return invoke[SignDataResponse](ctx, c.cc, MethodSignData, in)
}

func (c *backendClient) VerifySignature(ctx context.Context, in *VerifySignatureRequest) (*VerifySignatureResponse, error) {
	return invoke[VerifySignatureResponse](ctx, c.cc, MethodVerifySignature, in)
}

func (c *backendClient) EncryptData(ctx context.Context, in *EncryptDataRequest) (*EncryptDataResponse, error) {
	return invoke[EncryptDataResponse](ctx, c.cc, MethodEncryptData, in)
}

func (c *backendClient) DecryptData(ctx context.Context, in *DecryptDataRequest) (*DecryptDataResponse, error) {
	return invoke[DecryptDataResponse](ctx, c.cc, MethodDecryptData, in)
}

func (c *backendClient) ComputeHash(ctx context.Context, in *ComputeHashRequest) (*ComputeHashResponse, error) {
	return invoke[ComputeHashResponse](ctx, c.cc, MethodComputeHash, in)
}

func (c *backendClient) DeriveKey(ctx context.Context, in *DeriveKeyRequest) (*DeriveKeyResponse, error) {
	return invoke[DeriveKeyResponse](ctx, c.cc, MethodDeriveKey, in)
}

func (c *backendClient) ImportKey(ctx context.Context, in *ImportKeyRequest) (*ImportKeyResponse, error) {
	return invoke[ImportKeyResponse](ctx, c.cc, MethodImportKey, in)
}

func (c *backendClient) ExportKey(ctx context.Context, in *ExportKeyRequest) (*ExportKeyResponse, error) {
	return invoke[ExportKeyResponse](ctx, c.cc, MethodExportKey, in)
}

func (c *backendClient) GenerateRandom(ctx context.Context, in *GenerateRandomRequest) (*GenerateRandomResponse, error) {
	return invoke[GenerateRandomResponse](ctx, c.cc, MethodGenerateRandom, in)
}
