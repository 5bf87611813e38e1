// Copyright (c) 2025 ludicrypt
//
// This file is part of supacrypt-core.
//
// Licensed under the MIT License.
// See LICENSE file or visit https://opensource.org/license/mit

// Package provider implements the host-facing operation surface: an
// opaque-handle object model over provider contexts, keys, and hash
// objects, with every remote operation routed through a gated backend
// gateway (rate limit, circuit breaker, connection pool, request
// deadline, error translation).
//
// The package does not export the host ABI itself. Host entry points
// are thin wrappers that call into a Provider, convert the error to a
// boolean, and read the last-error store for the status code.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ludicrypt/supacrypt-core/api/backendv1"
	"github.com/ludicrypt/supacrypt-core/pkg/config"
	"github.com/ludicrypt/supacrypt-core/pkg/handle"
	"github.com/ludicrypt/supacrypt-core/pkg/hosterr"
	"github.com/ludicrypt/supacrypt-core/pkg/logging"
	"github.com/ludicrypt/supacrypt-core/pkg/pool"
)

// Provider is the top-level object the host layer instantiates once
// per process. All methods are safe for concurrent use.
type Provider struct {
	cfg     *config.Config
	log     *logging.Logger
	table   *handle.Table
	gw      *gateway
	lastErr *hosterr.Store
}

// Option customizes Provider construction.
type Option func(*options)

type options struct {
	log  *logging.Logger
	dial pool.Dialer
}

// WithLogger overrides the provider's logger.
func WithLogger(log *logging.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithDialer overrides the backend dialer. Tests use this to point the
// pool at an in-process backend.
func WithDialer(dial pool.Dialer) Option {
	return func(o *options) { o.dial = dial }
}

// New builds a Provider from config.
func New(cfg *config.Config, opts ...Option) (*Provider, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logging.NewLogger(cfg.Logging.Debug)
	}

	gw, err := newGateway(cfg, o.log, o.dial)
	if err != nil {
		return nil, err
	}
	return &Provider{
		cfg:     cfg,
		log:     o.log,
		table:   handle.NewTable(),
		gw:      gw,
		lastErr: hosterr.NewStore(),
	}, nil
}

// Close releases pooled connections. Live handles become invalid.
func (p *Provider) Close() error {
	return p.gw.Close()
}

// LastError returns the most recent failure context, if any. This backs
// the host's boolean-plus-get-last-error contract. The store is shared
// by every caller of this Provider with last-write-wins semantics, so
// hosts running concurrent operations should derive status codes from
// the returned error via hosterr.CodeOf rather than from this store.
func (p *Provider) LastError() (hosterr.ErrorContext, bool) {
	return p.lastErr.Last()
}

// ClearLastError resets the last-error store.
func (p *Provider) ClearLastError() {
	p.lastErr.Clear()
}

// fail records err in the last-error store and passes it through.
func (p *Provider) fail(err error) error {
	if err != nil {
		p.lastErr.SetFromError(originOf(err), err)
	}
	return err
}

// originOf classifies which layer produced err.
func originOf(err error) hosterr.Origin {
	switch {
	case errors.Is(err, hosterr.ErrInvalidHandle):
		return hosterr.OriginHandle
	case errors.Is(err, hosterr.ErrBackendRejected):
		return hosterr.OriginBackend
	case errors.Is(err, hosterr.ErrConnect),
		errors.Is(err, hosterr.ErrDeadlineExceeded),
		errors.Is(err, hosterr.ErrPoolExhausted):
		return hosterr.OriginTransport
	default:
		return hosterr.OriginGateway
	}
}

// resolveContext returns the context object behind a provider handle.
func (p *Provider) resolveContext(h handle.Handle) (*contextObject, error) {
	v, err := p.table.Resolve(h, handle.KindProvider)
	if err != nil {
		return nil, err
	}
	return v.(*contextObject), nil
}

// resolveKey returns the key object behind a key handle.
func (p *Provider) resolveKey(h handle.Handle) (*keyObject, error) {
	v, err := p.table.Resolve(h, handle.KindKey)
	if err != nil {
		return nil, err
	}
	return v.(*keyObject), nil
}

// resolveHash returns the hash object behind a hash handle.
func (p *Provider) resolveHash(h handle.Handle) (*hashObject, error) {
	v, err := p.table.Resolve(h, handle.KindHash)
	if err != nil {
		return nil, err
	}
	return v.(*hashObject), nil
}

// AcquireContext opens a provider context over a key container and
// returns its handle.
//
// FlagVerifyContext opens an ephemeral context with no container; the
// container name must be empty. FlagNewKeyset requires the container to
// not exist yet. FlagDeleteKeyset destroys the container's keys on the
// backend and returns handle zero: there is no context to release
// afterwards. A plain acquire requires the container to exist.
func (p *Provider) AcquireContext(ctx context.Context, container string, flags uint32) (handle.Handle, error) {
	h, err := p.acquireContext(ctx, container, flags)
	return h, p.fail(err)
}

func (p *Provider) acquireContext(ctx context.Context, container string, flags uint32) (handle.Handle, error) {
	if flags&^contextFlagMask != 0 {
		return 0, hosterr.WithCode(hosterr.CodeBadFlags,
			fmt.Errorf("%w: flags 0x%08X", hosterr.ErrInvalidParameter, flags))
	}
	verify := flags&FlagVerifyContext == FlagVerifyContext
	if verify && container != "" {
		return 0, hosterr.WithCode(hosterr.CodeBadFlags,
			fmt.Errorf("%w: verify-context acquire takes no container", hosterr.ErrInvalidParameter))
	}
	if !verify && container == "" {
		return 0, fmt.Errorf("%w: container name required", hosterr.ErrInvalidParameter)
	}

	if verify {
		return p.table.Create(handle.KindProvider, &contextObject{
			SessionID:  uuid.New(),
			Flags:      flags,
			VerifyOnly: true,
		}, 0)
	}

	if flags&FlagDeleteKeyset != 0 {
		if err := p.deleteKeyset(ctx, container); err != nil {
			return 0, err
		}
		return 0, nil
	}

	exists, err := p.containerExists(ctx, container)
	if err != nil {
		return 0, err
	}
	if flags&FlagNewKeyset != 0 {
		if exists {
			return 0, hosterr.WithCode(hosterr.CodeKeyExists,
				fmt.Errorf("%w: container %q already exists", hosterr.ErrInvalidParameter, container))
		}
	} else if !exists {
		return 0, hosterr.WithCode(hosterr.CodeBadContainer,
			fmt.Errorf("%w: container %q does not exist", hosterr.ErrInvalidParameter, container))
	}

	p.log.Debug("acquired context", "container", container, "flags", fmt.Sprintf("0x%08X", flags))
	return p.table.Create(handle.KindProvider, &contextObject{
		SessionID: uuid.New(),
		Container: container,
		Flags:     flags,
	}, 0)
}

// containerExists probes the backend for a container. The backend has
// no dedicated existence call; an empty-or-populated ListKeys means the
// container is there, CONTAINER_NOT_FOUND means it is not.
func (p *Provider) containerExists(ctx context.Context, container string) (bool, error) {
	err := p.gw.invokeIdempotent(ctx, "list_keys", func(ctx context.Context, c backendv1.BackendClient) error {
		resp, err := c.ListKeys(ctx, &backendv1.ListKeysRequest{Container: container})
		if err != nil {
			return err
		}
		return envelope(resp.Error)
	})
	if err == nil {
		return true, nil
	}
	var be *backendv1.BackendError
	if errors.As(err, &be) && be.Code == backendv1.ErrorCodeContainerNotFound {
		return false, nil
	}
	return false, err
}

// deleteKeyset removes every key in a container.
func (p *Provider) deleteKeyset(ctx context.Context, container string) error {
	var keys []backendv1.KeyInfo
	err := p.gw.invokeIdempotent(ctx, "list_keys", func(ctx context.Context, c backendv1.BackendClient) error {
		resp, err := c.ListKeys(ctx, &backendv1.ListKeysRequest{Container: container})
		if err != nil {
			return err
		}
		if err := envelope(resp.Error); err != nil {
			return err
		}
		keys = resp.Keys
		return nil
	})
	if err != nil {
		var be *backendv1.BackendError
		if errors.As(err, &be) && be.Code == backendv1.ErrorCodeContainerNotFound {
			return hosterr.WithCode(hosterr.CodeBadContainer,
				fmt.Errorf("%w: container %q does not exist", hosterr.ErrInvalidParameter, container))
		}
		return err
	}
	for _, k := range keys {
		keyID := k.KeyID
		err := p.gw.invoke(ctx, "delete_key", func(ctx context.Context, c backendv1.BackendClient) error {
			resp, err := c.DeleteKey(ctx, &backendv1.DeleteKeyRequest{KeyID: keyID})
			if err != nil {
				return err
			}
			return envelope(resp.Error)
		})
		if err != nil {
			return err
		}
	}
	p.log.Info("deleted keyset", "container", container, "keys", len(keys))
	return nil
}

// ReleaseContext retires a provider handle. Every key and hash handle
// created under it is retired with it. Backend container state is not
// touched.
func (p *Provider) ReleaseContext(h handle.Handle) error {
	if _, err := p.resolveContext(h); err != nil {
		return p.fail(err)
	}
	return p.fail(p.table.Retire(h))
}

// GenKey generates a key pair (or session key) on the backend and
// returns its handle. alg may be a real algorithm identifier or one of
// the KeySpec* role aliases, which generate the container's RSA key for
// that role. The upper 16 bits of flags carry the key size in bits;
// zero picks the algorithm default.
func (p *Provider) GenKey(ctx context.Context, hProv handle.Handle, alg Algorithm, flags uint32) (handle.Handle, error) {
	h, err := p.genKey(ctx, hProv, alg, flags)
	return h, p.fail(err)
}

func (p *Provider) genKey(ctx context.Context, hProv handle.Handle, alg Algorithm, flags uint32) (handle.Handle, error) {
	pc, err := p.resolveContext(hProv)
	if err != nil {
		return 0, err
	}
	if pc.VerifyOnly {
		return 0, hosterr.WithCode(hosterr.CodePermissionDenied,
			fmt.Errorf("%w: verify-context cannot generate keys", hosterr.ErrInvalidParameter))
	}
	if low := flags & 0xFFFF; low&^keyFlagMask != 0 {
		return 0, hosterr.WithCode(hosterr.CodeBadFlags,
			fmt.Errorf("%w: key flags 0x%04X", hosterr.ErrInvalidParameter, low))
	}

	// Role aliases select the container's RSA key pair.
	keySpec := KeySpecExchange
	switch alg {
	case Algorithm(KeySpecExchange):
		alg = AlgRSAKeyExchange
	case Algorithm(KeySpecSignature):
		alg = AlgRSASignature
		keySpec = KeySpecSignature
	case AlgRSASignature:
		keySpec = KeySpecSignature
	}

	info, err := alg.info()
	if err != nil {
		return 0, err
	}
	if info.hash {
		return 0, hosterr.WithCode(hosterr.CodeBadAlgorithm,
			fmt.Errorf("%w: %s is not a key algorithm", hosterr.ErrInvalidParameter, alg))
	}

	bits := flags >> 16
	if bits == 0 {
		bits = info.keyBits
	}
	exportable := flags&FlagExportable != 0

	spec, err := keySpecWireName(keySpec)
	if err != nil {
		return 0, err
	}

	var resp *backendv1.GenerateKeyResponse
	err = p.gw.invoke(ctx, "generate_key", func(ctx context.Context, c backendv1.BackendClient) error {
		r, err := c.GenerateKey(ctx, &backendv1.GenerateKeyRequest{
			Container:  pc.Container,
			KeySpec:    spec,
			Algorithm:  info.wire,
			KeyBits:    bits,
			Exportable: exportable,
		})
		if err != nil {
			return err
		}
		if err := envelope(r.Error); err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return 0, err
	}

	key := &keyObject{
		BackendKeyID: resp.KeyID,
		Algorithm:    alg,
		KeySpec:      keySpec,
		KeyBits:      resp.KeyBits,
		Exportable:   exportable,
		PublicKey:    resp.PublicKey,
	}
	if key.KeyBits == 0 {
		key.KeyBits = bits
	}
	if exportable {
		key.Permissions = PermExport
	}
	p.log.Debug("generated key", "container", pc.Container, "alg", alg.String(), "bits", key.KeyBits)
	return p.table.Create(handle.KindKey, key, hProv)
}

// GetUserKey returns a handle to the container's existing key for the
// given role (KeySpecExchange or KeySpecSignature).
func (p *Provider) GetUserKey(ctx context.Context, hProv handle.Handle, keySpec uint32) (handle.Handle, error) {
	h, err := p.getUserKey(ctx, hProv, keySpec)
	return h, p.fail(err)
}

func (p *Provider) getUserKey(ctx context.Context, hProv handle.Handle, keySpec uint32) (handle.Handle, error) {
	pc, err := p.resolveContext(hProv)
	if err != nil {
		return 0, err
	}
	if pc.VerifyOnly {
		return 0, hosterr.WithCode(hosterr.CodeNoKey,
			fmt.Errorf("%w: verify-context has no container keys", hosterr.ErrInvalidParameter))
	}
	spec, err := keySpecWireName(keySpec)
	if err != nil {
		return 0, err
	}

	var resp *backendv1.GetKeyResponse
	err = p.gw.invokeIdempotent(ctx, "get_key", func(ctx context.Context, c backendv1.BackendClient) error {
		r, err := c.GetKey(ctx, &backendv1.GetKeyRequest{Container: pc.Container, KeySpec: spec})
		if err != nil {
			return err
		}
		if err := envelope(r.Error); err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return 0, err
	}

	alg := AlgRSAKeyExchange
	if keySpec == KeySpecSignature {
		alg = AlgRSASignature
	}
	return p.table.Create(handle.KindKey, &keyObject{
		BackendKeyID: resp.KeyID,
		Algorithm:    alg,
		KeySpec:      keySpec,
		KeyBits:      resp.KeyBits,
		PublicKey:    resp.PublicKey,
	}, hProv)
}

// DestroyKey retires a key handle. Session keys (derived or imported
// material with no container role) are also deleted on the backend;
// container keys persist and are only removed by a delete-keyset
// acquire.
func (p *Provider) DestroyKey(ctx context.Context, hKey handle.Handle) error {
	return p.fail(p.destroyKey(ctx, hKey))
}

func (p *Provider) destroyKey(ctx context.Context, hKey handle.Handle) error {
	key, err := p.resolveKey(hKey)
	if err != nil {
		return err
	}
	if key.KeySpec == 0 && key.BackendKeyID != "" {
		err := p.gw.invoke(ctx, "delete_key", func(ctx context.Context, c backendv1.BackendClient) error {
			resp, err := c.DeleteKey(ctx, &backendv1.DeleteKeyRequest{KeyID: key.BackendKeyID})
			if err != nil {
				return err
			}
			return envelope(resp.Error)
		})
		if err != nil {
			return err
		}
	}
	return p.table.Retire(hKey)
}

// DuplicateKey creates an independent handle to the same backend key.
func (p *Provider) DuplicateKey(hKey handle.Handle) (handle.Handle, error) {
	h, err := p.duplicateKey(hKey)
	return h, p.fail(err)
}

func (p *Provider) duplicateKey(hKey handle.Handle) (handle.Handle, error) {
	key, err := p.resolveKey(hKey)
	if err != nil {
		return 0, err
	}
	owner, err := p.table.Owner(hKey)
	if err != nil {
		return 0, err
	}
	return p.table.Create(handle.KindKey, key.clone(), owner)
}

// ImportKey imports a key blob into the provider's container and
// returns its handle. Private blobs become persistent exchange keys;
// other blob types import as session keys.
func (p *Provider) ImportKey(ctx context.Context, hProv handle.Handle, blobType uint32, blob []byte, flags uint32) (handle.Handle, error) {
	h, err := p.importKey(ctx, hProv, blobType, blob, flags)
	return h, p.fail(err)
}

func (p *Provider) importKey(ctx context.Context, hProv handle.Handle, blobType uint32, blob []byte, flags uint32) (handle.Handle, error) {
	pc, err := p.resolveContext(hProv)
	if err != nil {
		return 0, err
	}
	if len(blob) == 0 {
		return 0, hosterr.WithCode(hosterr.CodeBadData,
			fmt.Errorf("%w: empty key blob", hosterr.ErrInvalidParameter))
	}
	wire, err := blobWireName(blobType)
	if err != nil {
		return 0, err
	}
	keySpec := uint32(0)
	spec := backendv1.KeySpecExchange
	if blobType == BlobPrivate {
		keySpec = KeySpecExchange
	}

	var resp *backendv1.ImportKeyResponse
	err = p.gw.invoke(ctx, "import_key", func(ctx context.Context, c backendv1.BackendClient) error {
		r, err := c.ImportKey(ctx, &backendv1.ImportKeyRequest{
			Container: pc.Container,
			KeySpec:   spec,
			BlobType:  wire,
			Blob:      blob,
		})
		if err != nil {
			return err
		}
		if err := envelope(r.Error); err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return 0, err
	}

	key := &keyObject{
		BackendKeyID: resp.KeyID,
		Algorithm:    algorithmFromWire(resp.Algorithm),
		KeySpec:      keySpec,
		KeyBits:      resp.KeyBits,
		Exportable:   flags&FlagExportable != 0,
	}
	if key.Exportable {
		key.Permissions = PermExport
	}
	return p.table.Create(handle.KindKey, key, hProv)
}

// ExportKey exports a key as a wrapped blob using the size-query
// convention: a nil buf returns the required size, a short buf fails
// with the insufficient-buffer code and the required size.
func (p *Provider) ExportKey(ctx context.Context, hKey handle.Handle, blobType uint32, buf []byte) (int, error) {
	n, err := p.exportKey(ctx, hKey, blobType, buf)
	return n, p.fail(err)
}

func (p *Provider) exportKey(ctx context.Context, hKey handle.Handle, blobType uint32, buf []byte) (int, error) {
	key, err := p.resolveKey(hKey)
	if err != nil {
		return 0, err
	}
	wire, err := blobWireName(blobType)
	if err != nil {
		return 0, err
	}
	if blobType != BlobPublicKey && !key.Exportable {
		return 0, hosterr.WithCode(hosterr.CodeBadKey,
			fmt.Errorf("%w: key is not exportable", hosterr.ErrInvalidParameter))
	}

	var blob []byte
	err = p.gw.invokeIdempotent(ctx, "export_key", func(ctx context.Context, c backendv1.BackendClient) error {
		r, err := c.ExportKey(ctx, &backendv1.ExportKeyRequest{KeyID: key.BackendKeyID, BlobType: wire})
		if err != nil {
			return err
		}
		if err := envelope(r.Error); err != nil {
			return err
		}
		blob = r.Blob
		return nil
	})
	if err != nil {
		return 0, err
	}
	return sizeQuery(buf, blob)
}

// DeriveKey derives a session key from the state of a hash object. The
// hash is finalized first if it is not already.
func (p *Provider) DeriveKey(ctx context.Context, hProv handle.Handle, alg Algorithm, hBaseHash handle.Handle, flags uint32) (handle.Handle, error) {
	h, err := p.deriveKey(ctx, hProv, alg, hBaseHash, flags)
	return h, p.fail(err)
}

func (p *Provider) deriveKey(ctx context.Context, hProv handle.Handle, alg Algorithm, hBaseHash handle.Handle, flags uint32) (handle.Handle, error) {
	pc, err := p.resolveContext(hProv)
	if err != nil {
		return 0, err
	}
	hash, err := p.resolveHash(hBaseHash)
	if err != nil {
		return 0, err
	}
	info, err := alg.info()
	if err != nil {
		return 0, err
	}
	if !info.symmetric {
		return 0, hosterr.WithCode(hosterr.CodeBadAlgorithm,
			fmt.Errorf("%w: %s cannot be derived", hosterr.ErrInvalidParameter, alg))
	}

	digest, err := p.finalizeHash(ctx, hash)
	if err != nil {
		return 0, err
	}

	var resp *backendv1.DeriveKeyResponse
	err = p.gw.invoke(ctx, "derive_key", func(ctx context.Context, c backendv1.BackendClient) error {
		r, err := c.DeriveKey(ctx, &backendv1.DeriveKeyRequest{
			Container: pc.Container,
			Algorithm: info.wire,
			KeyBits:   info.keyBits,
			BaseData:  digest,
		})
		if err != nil {
			return err
		}
		if err := envelope(r.Error); err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return 0, err
	}

	key := &keyObject{
		BackendKeyID: resp.KeyID,
		Algorithm:    alg,
		KeyBits:      resp.KeyBits,
		Exportable:   flags&FlagExportable != 0,
	}
	if key.Exportable {
		key.Permissions = PermExport
	}
	return p.table.Create(handle.KindKey, key, hProv)
}

// GenRandom fills buf with backend-provided randomness.
func (p *Provider) GenRandom(ctx context.Context, hProv handle.Handle, buf []byte) error {
	return p.fail(p.genRandom(ctx, hProv, buf))
}

func (p *Provider) genRandom(ctx context.Context, hProv handle.Handle, buf []byte) error {
	if _, err := p.resolveContext(hProv); err != nil {
		return err
	}
	if len(buf) == 0 {
		return hosterr.WithCode(hosterr.CodeBadLength,
			fmt.Errorf("%w: zero-length random request", hosterr.ErrInvalidParameter))
	}
	return p.gw.invoke(ctx, "gen_random", func(ctx context.Context, c backendv1.BackendClient) error {
		r, err := c.GenerateRandom(ctx, &backendv1.GenerateRandomRequest{Length: uint32(len(buf))})
		if err != nil {
			return err
		}
		if err := envelope(r.Error); err != nil {
			return err
		}
		if len(r.Data) != len(buf) {
			return fmt.Errorf("%w: backend returned %d random bytes, want %d",
				hosterr.ErrInternal, len(r.Data), len(buf))
		}
		copy(buf, r.Data)
		return nil
	})
}

// Health probes the backend through the gated path.
func (p *Provider) Health(ctx context.Context) (string, error) {
	var version string
	err := p.gw.invokeIdempotent(ctx, "health", func(ctx context.Context, c backendv1.BackendClient) error {
		r, err := c.Health(ctx, &backendv1.HealthRequest{})
		if err != nil {
			return err
		}
		if err := envelope(r.Error); err != nil {
			return err
		}
		version = r.Version
		return nil
	})
	return version, p.fail(err)
}

// algorithmFromWire maps a backend wire name back to a host identifier.
// Unknown names come back as zero, which parameter queries render as an
// unknown algorithm rather than failing the import.
func algorithmFromWire(wire string) Algorithm {
	switch wire {
	case "rsa":
		return AlgRSAKeyExchange
	case "ecdsa-p256":
		return AlgECDSA
	case "aes-128":
		return AlgAES128
	case "aes-192":
		return AlgAES192
	case "aes-256":
		return AlgAES256
	default:
		return 0
	}
}
