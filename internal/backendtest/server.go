// Copyright (c) 2025 ludicrypt
//
// This file is part of supacrypt-core.
//
// Licensed under the MIT License.
// See LICENSE file or visit https://opensource.org/license/mit

package backendtest

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/ludicrypt/supacrypt-core/api/backendv1"
)

const bufSize = 1 << 20

// Server runs a Backend on an in-process bufconn listener.
type Server struct {
	Backend *Backend

	grpcSrv *grpc.Server
	lis     *bufconn.Listener
}

// Start launches an in-process backend. Callers must Stop it.
func Start() *Server {
	s := &Server{
		Backend: New(),
		grpcSrv: grpc.NewServer(),
		lis:     bufconn.Listen(bufSize),
	}
	backendv1.RegisterBackendServer(s.grpcSrv, s.Backend)
	go func() { _ = s.grpcSrv.Serve(s.lis) }()
	return s
}

// Dialer returns a pool-compatible dialer connected to this server.
func (s *Server) Dialer() func(ctx context.Context) (*grpc.ClientConn, error) {
	return func(_ context.Context) (*grpc.ClientConn, error) {
		return grpc.NewClient("passthrough:///bufconn",
			grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
				return s.lis.DialContext(ctx)
			}),
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		)
	}
}

// Stop shuts the server down.
func (s *Server) Stop() {
	s.grpcSrv.Stop()
	_ = s.lis.Close()
}
