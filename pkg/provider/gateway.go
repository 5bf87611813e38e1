// Copyright (c) 2025 ludicrypt
//
// This file is part of supacrypt-core.
//
// Licensed under the MIT License.
// See LICENSE file or visit https://opensource.org/license/mit

package provider

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/ludicrypt/supacrypt-core/api/backendv1"
	"github.com/ludicrypt/supacrypt-core/pkg/breaker"
	"github.com/ludicrypt/supacrypt-core/pkg/config"
	"github.com/ludicrypt/supacrypt-core/pkg/hosterr"
	"github.com/ludicrypt/supacrypt-core/pkg/logging"
	"github.com/ludicrypt/supacrypt-core/pkg/metrics"
	"github.com/ludicrypt/supacrypt-core/pkg/pool"
	"github.com/ludicrypt/supacrypt-core/pkg/ratelimit"
)

// gateway is the single path to the backend. Every remote operation
// flows through invoke: throttle, breaker admission, pool checkout,
// request deadline, then error translation and breaker feedback. No
// other code in the module touches a gRPC connection.
type gateway struct {
	cfg     *config.Config
	pool    *pool.Pool
	breaker *breaker.Breaker
	limiter *ratelimit.Limiter
	log     *logging.Logger
	stats   callStats
}

// newGateway builds the gateway stack from config. The custom dialer
// parameter overrides the address-based dialer; tests use it to point
// the pool at an in-process backend.
func newGateway(cfg *config.Config, log *logging.Logger, dial pool.Dialer) (*gateway, error) {
	if dial == nil {
		var err error
		dial, err = backendDialer(cfg)
		if err != nil {
			return nil, err
		}
	}

	g := &gateway{
		cfg: cfg,
		log: log,
		breaker: breaker.New(breaker.Config{
			FailureThreshold: cfg.Breaker.FailureThreshold,
			Cooldown:         cfg.Breaker.Cooldown.Std(),
			HalfOpenMaxCalls: cfg.Breaker.HalfOpenMaxCalls,
			SuccessThreshold: cfg.Breaker.SuccessThreshold,
		}, log),
		limiter: ratelimit.New(&ratelimit.Config{
			Enabled:           cfg.RateLimit.Enabled,
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}),
		pool: pool.New(pool.Config{
			MaxConnections: cfg.Pool.MaxConnections,
			IdleTimeout:    cfg.Pool.IdleTimeout.Std(),
			ConnectTimeout: cfg.Pool.ConnectTimeout.Std(),
		}, dial, log),
	}
	return g, nil
}

// backendDialer builds the production dialer from the configured
// address and TLS settings.
func backendDialer(cfg *config.Config) (pool.Dialer, error) {
	creds, err := transportCredentials(&cfg.Backend.TLS)
	if err != nil {
		return nil, err
	}
	addr := cfg.Backend.Address
	return func(ctx context.Context) (*grpc.ClientConn, error) {
		cc, err := grpc.NewClient(addr, grpc.WithTransportCredentials(creds))
		if err != nil {
			return nil, err
		}
		// Force the channel out of idle so connection failures surface
		// here rather than on the first call.
		cc.Connect()
		return cc, nil
	}, nil
}

// transportCredentials assembles channel credentials from TLS config.
func transportCredentials(tc *config.TLSConfig) (credentials.TransportCredentials, error) {
	if !tc.Enabled {
		return insecure.NewCredentials(), nil
	}

	tlsCfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ServerName:         tc.ServerName,
		InsecureSkipVerify: tc.InsecureSkipVerify,
	}
	if tc.CAFile != "" {
		pem, err := os.ReadFile(tc.CAFile)
		if err != nil {
			return nil, fmt.Errorf("%w: read CA file: %v", hosterr.ErrConnect, err)
		}
		roots := x509.NewCertPool()
		if !roots.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("%w: no certificates in %s", hosterr.ErrConnect, tc.CAFile)
		}
		tlsCfg.RootCAs = roots
	}
	if tc.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(tc.CertFile, tc.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("%w: load client keypair: %v", hosterr.ErrConnect, err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}
	return credentials.NewTLS(tlsCfg), nil
}

// invoke runs one remote operation through the full resilience stack.
// fn receives a typed client bound to a checked-out connection and a
// context carrying the request deadline.
func (g *gateway) invoke(ctx context.Context, op string, fn func(ctx context.Context, c backendv1.BackendClient) error) error {
	start := time.Now()
	err := g.invokeOnce(ctx, fn)
	metrics.RecordOperation(op, start, errKind(err))
	return err
}

// invokeIdempotent is invoke plus a bounded retry for operations safe
// to repeat. Only transient transport failures are retried; domain
// rejections and local failures return immediately.
func (g *gateway) invokeIdempotent(ctx context.Context, op string, fn func(ctx context.Context, c backendv1.BackendClient) error) error {
	start := time.Now()

	var err error
	if !g.cfg.Retry.Enabled {
		err = g.invokeOnce(ctx, fn)
	} else {
		policy := backoff.WithContext(backoff.WithMaxRetries(
			backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(g.cfg.Retry.InitialInterval.Std()),
			),
			uint64(g.cfg.Retry.MaxAttempts-1),
		), ctx)
		err = backoff.Retry(func() error {
			callErr := g.invokeOnce(ctx, fn)
			if callErr == nil || !retryable(callErr) {
				return backoff.Permanent(callErr)
			}
			g.log.Debug("gateway: retrying transient failure", "op", op, "error", callErr.Error())
			return callErr
		}, policy)
		// backoff.Permanent(nil) comes back as nil already; unwrap the
		// permanent marker for real errors.
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
	}

	metrics.RecordOperation(op, start, errKind(err))
	return err
}

// invokeOnce is the untimed single-attempt path shared by invoke and
// invokeIdempotent.
func (g *gateway) invokeOnce(ctx context.Context, fn func(ctx context.Context, c backendv1.BackendClient) error) error {
	g.stats.requests.Add(1)
	if err := g.limiter.Allow(); err != nil {
		g.stats.rejected.Add(1)
		return err
	}
	if err := g.breaker.Allow(); err != nil {
		g.stats.rejected.Add(1)
		return err
	}

	conn, err := g.pool.Acquire(ctx)
	if err != nil {
		g.stats.failed.Add(1)
		// A dial failure speaks to backend health. Pool exhaustion and
		// caller cancellation are local: the call never reached the
		// backend, so the breaker sees neither a success nor a failure.
		if errors.Is(err, hosterr.ErrConnect) {
			g.breaker.OnFailure()
		} else {
			g.breaker.Cancel()
		}
		return err
	}
	defer conn.Release()

	callCtx := ctx
	if t := g.cfg.Pool.RequestTimeout.Std(); t > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	err = translateCallError(fn(callCtx, backendv1.NewBackendClient(conn.ClientConn())))
	if infrastructureFailure(err) {
		g.breaker.OnFailure()
	} else {
		g.breaker.OnSuccess()
	}
	if err != nil {
		g.stats.failed.Add(1)
	} else {
		g.stats.succeeded.Add(1)
	}
	return err
}

// translateCallError maps a raw call error into the taxonomy. Backend
// envelope errors arrive already typed and pass through; gRPC status
// errors get a sentinel kind plus an explicit host code.
func translateCallError(err error) error {
	if err == nil {
		return nil
	}
	var be *backendv1.BackendError
	if errors.As(err, &be) {
		return err
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %v", hosterr.ErrInternal, err)
	}
	code := hosterr.TranslateTransportToHost(st.Code())
	switch st.Code() {
	case codes.DeadlineExceeded:
		return hosterr.WithCode(code, fmt.Errorf("%w: %s", hosterr.ErrDeadlineExceeded, st.Message()))
	case codes.Unavailable:
		return hosterr.WithCode(code, fmt.Errorf("%w: %s", hosterr.ErrConnect, st.Message()))
	default:
		return hosterr.WithCode(code, fmt.Errorf("%w: %s: %s",
			hosterr.ErrBackendRejected, st.Code(), st.Message()))
	}
}

// envelope converts a response's in-band error into a taxonomy error.
func envelope(be *backendv1.BackendError) error {
	if be == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", hosterr.ErrBackendRejected, be)
}

// infrastructureFailure reports whether err should count against the
// circuit breaker. Domain rejections are successful round trips.
func infrastructureFailure(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, hosterr.ErrDeadlineExceeded) || errors.Is(err, hosterr.ErrConnect)
}

// retryable reports whether err is a transient transport condition an
// idempotent operation may retry.
func retryable(err error) bool {
	return errors.Is(err, hosterr.ErrConnect) || errors.Is(err, hosterr.ErrDeadlineExceeded)
}

// errKind names err's taxonomy kind for metrics labels.
func errKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, hosterr.ErrInvalidHandle):
		return "invalid_handle"
	case errors.Is(err, hosterr.ErrInvalidParameter):
		return "invalid_parameter"
	case errors.Is(err, hosterr.ErrInsufficientBuffer):
		return "insufficient_buffer"
	case errors.Is(err, hosterr.ErrPoolExhausted):
		return "pool_exhausted"
	case errors.Is(err, hosterr.ErrConnect):
		return "connect"
	case errors.Is(err, hosterr.ErrDeadlineExceeded):
		return "deadline"
	case errors.Is(err, hosterr.ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, hosterr.ErrBackendRejected):
		return "backend_rejected"
	default:
		return "internal"
	}
}

// Close releases the gateway's pooled connections.
func (g *gateway) Close() error {
	return g.pool.Close()
}
