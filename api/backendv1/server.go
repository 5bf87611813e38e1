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

// BackendServer is the server-side counterpart of BackendClient.
// supacrypt-core itself only runs implementations of this in tests, but
// the descriptor is part of the public contract so backends written in
// Go can register against it.
type BackendServer interface {
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

// RegisterBackendServer registers srv with a gRPC server.
func RegisterBackendServer(s grpc.ServiceRegistrar, srv BackendServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// unary adapts a typed service method to grpc-go's untyped handler shape.
func unary[Req, Resp any](call func(BackendServer, context.Context, *Req) (*Resp, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BackendServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(BackendServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc is the gRPC service descriptor for the Supacrypt backend.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BackendServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Health", Handler: unary(BackendServer.Health)},
		{MethodName: "GenerateKey", Handler: unary(BackendServer.GenerateKey)},
		{MethodName: "GetKey", Handler: unary(BackendServer.GetKey)},
		{MethodName: "ListKeys", Handler: unary(BackendServer.ListKeys)},
		{MethodName: "DeleteKey", Handler: unary(BackendServer.DeleteKey)},
		{MethodName: "SignData", Handler: unary(BackendServer.SignData)},
		{MethodName: "VerifySignature", Handler: unary(BackendServer.VerifySignature)},
		{MethodName: "EncryptData", Handler: unary(BackendServer.EncryptData)},
		{MethodName: "DecryptData", Handler: unary(BackendServer.DecryptData)},
		{MethodName: "ComputeHash", Handler: unary(BackendServer.ComputeHash)},
		{MethodName: "DeriveKey", Handler: unary(BackendServer.DeriveKey)},
		{MethodName: "ImportKey", Handler: unary(BackendServer.ImportKey)},
		{MethodName: "ExportKey", Handler: unary(BackendServer.ExportKey)},
		{MethodName: "GenerateRandom", Handler: unary(BackendServer.GenerateRandom)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "supacrypt/v1/supacrypt.yaml",
}
