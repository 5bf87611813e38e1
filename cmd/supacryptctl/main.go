// Copyright (c) 2025 ludicrypt
//
// This file is part of supacrypt-core.
//
// Licensed under the MIT License.
// See LICENSE file or visit https://opensource.org/license/mit

// supacryptctl is the operator CLI for supacrypt-core: backend health
// checks, a sign/verify round-trip, and client-side status. The --demo
// flag runs every command against an in-process fake backend, so the
// full stack can be exercised without a deployment.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ludicrypt/supacrypt-core/internal/backendtest"
	"github.com/ludicrypt/supacrypt-core/pkg/config"
	"github.com/ludicrypt/supacrypt-core/pkg/logging"
	"github.com/ludicrypt/supacrypt-core/pkg/provider"
)

var (
	flagConfig  string
	flagAddress string
	flagDebug   bool
	flagDemo    bool
	flagTimeout time.Duration
)

func main() {
	root := &cobra.Command{
		Use:           "supacryptctl",
		Short:         "Operator tooling for the supacrypt client core",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "path to YAML config")
	root.PersistentFlags().StringVar(&flagAddress, "address", "", "backend address override")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&flagDemo, "demo", false, "run against an in-process fake backend")
	root.PersistentFlags().DurationVar(&flagTimeout, "timeout", 30*time.Second, "overall command timeout")

	root.AddCommand(healthCmd(), roundtripCmd(), statusCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup builds the provider from flags and config. The returned cleanup
// closes the provider and, in demo mode, the fake backend.
func setup() (*provider.Provider, func(), error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, nil, err
	}
	if flagAddress != "" {
		cfg.Backend.Address = flagAddress
	}
	if flagDebug {
		cfg.Logging.Debug = true
	}

	log := logging.NewLogger(cfg.Logging.Debug)
	opts := []provider.Option{provider.WithLogger(log)}

	var srv *backendtest.Server
	if flagDemo {
		cfg.Backend.TLS.Enabled = false
		srv = backendtest.Start()
		opts = append(opts, provider.WithDialer(srv.Dialer()))
	}

	p, err := provider.New(cfg, opts...)
	if err != nil {
		if srv != nil {
			srv.Stop()
		}
		return nil, nil, err
	}
	cleanup := func() {
		_ = p.Close()
		if srv != nil {
			srv.Stop()
		}
	}
	return p, cleanup, nil
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe the backend through the gated client path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
			defer cancel()

			version, err := p.Health(ctx)
			if err != nil {
				return describeFailure(p, err)
			}
			fmt.Printf("backend healthy (version %s)\n", version)
			return nil
		},
	}
}

func roundtripCmd() *cobra.Command {
	var container string
	cmd := &cobra.Command{
		Use:   "roundtrip",
		Short: "Generate a signature key, sign a message, and verify it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
			defer cancel()

			hProv, err := p.AcquireContext(ctx, container, provider.FlagNewKeyset)
			if err != nil {
				return describeFailure(p, err)
			}
			defer func() { _ = p.ReleaseContext(hProv) }()

			if _, err := p.GenKey(ctx, hProv, provider.AlgRSASignature, 0); err != nil {
				return describeFailure(p, err)
			}
			fmt.Println("generated signature key")

			hHash, err := p.CreateHash(ctx, hProv, provider.AlgSHA256, 0)
			if err != nil {
				return describeFailure(p, err)
			}
			msg := []byte("supacryptctl round-trip probe")
			if err := p.HashData(hHash, msg); err != nil {
				return describeFailure(p, err)
			}

			sigLen, err := p.SignHash(ctx, hHash, provider.KeySpecSignature, nil)
			if err != nil {
				return describeFailure(p, err)
			}
			sig := make([]byte, sigLen)
			if _, err := p.SignHash(ctx, hHash, provider.KeySpecSignature, sig); err != nil {
				return describeFailure(p, err)
			}
			fmt.Printf("signed %d bytes of input (%d byte signature)\n", len(msg), len(sig))

			hKey, err := p.GetUserKey(ctx, hProv, provider.KeySpecSignature)
			if err != nil {
				return describeFailure(p, err)
			}
			hVerify, err := p.CreateHash(ctx, hProv, provider.AlgSHA256, 0)
			if err != nil {
				return describeFailure(p, err)
			}
			if err := p.HashData(hVerify, msg); err != nil {
				return describeFailure(p, err)
			}
			if err := p.VerifySignature(ctx, hVerify, hKey, sig); err != nil {
				return describeFailure(p, err)
			}
			fmt.Println("signature verified")
			return nil
		},
	}
	cmd.Flags().StringVar(&container, "container", "supacryptctl-demo", "key container name")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show client-side request counters, pool, and breaker state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
			defer cancel()

			// Drive one request so the snapshot reflects a live channel.
			if _, err := p.Health(ctx); err != nil {
				fmt.Fprintln(os.Stderr, "warning: health probe failed:", err)
			}

			s := p.Stats()
			fmt.Printf("requests:  %d (ok %d, failed %d, rejected %d)\n",
				s.Requests, s.Succeeded, s.Failed, s.Rejected)
			fmt.Printf("breaker:   %s\n", s.BreakerState)
			fmt.Printf("pool:      %d max, %d idle, %d in use\n",
				s.Pool.MaxConnections, s.Pool.Idle, s.Pool.InUse)
			fmt.Printf("handles:   %d live\n", s.LiveHandles)
			return nil
		},
	}
}

// describeFailure augments err with the last-error context the host
// would read.
func describeFailure(p *provider.Provider, err error) error {
	if ec, ok := p.LastError(); ok {
		return fmt.Errorf("%w (last error: %s)", err, ec.String())
	}
	return err
}
