// Copyright (c) 2025 ludicrypt
//
// This file is part of supacrypt-core.
//
// Licensed under the MIT License.
// See LICENSE file or visit https://opensource.org/license/mit

// Package backendtest provides an in-process Supacrypt backend for
// package tests and the CLI demo mode. Keys live in memory and the
// cryptography is real stdlib crypto, so sign/verify and
// encrypt/decrypt round-trips behave like a production backend. The
// backend also supports failure and latency injection for exercising
// the resilience stack.
package backendtest

import (
	"context"
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/hmac"
	"crypto/md5"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509"
	"fmt"
	"hash"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ludicrypt/supacrypt-core/api/backendv1"
)

// Version reported by the Health call.
const Version = "backendtest/1.0"

// storedKey is one key at rest.
type storedKey struct {
	id         string
	container  string
	keySpec    string
	algorithm  string
	bits       uint32
	exportable bool

	rsaKey *rsa.PrivateKey
	ecKey  *ecdsa.PrivateKey
	symKey []byte

	// public-only entries hold imported verification keys
	rsaPub *rsa.PublicKey
	ecPub  *ecdsa.PublicKey
}

// Backend implements backendv1.BackendServer in memory.
type Backend struct {
	mu         sync.Mutex
	keys       map[string]*storedKey
	containers map[string]bool

	calls   atomic.Int64
	latency atomic.Int64

	injectMu   sync.Mutex
	injectLeft int
	injectCode codes.Code
}

// New creates an empty backend.
func New() *Backend {
	return &Backend{
		keys:       make(map[string]*storedKey),
		containers: make(map[string]bool),
	}
}

// Calls reports how many requests reached the backend, injected
// failures included. Tests use it to prove fail-fast paths made no
// network call.
func (b *Backend) Calls() int64 {
	return b.calls.Load()
}

// FailNext makes the next n calls fail with the given transport code.
func (b *Backend) FailNext(n int, code codes.Code) {
	b.injectMu.Lock()
	defer b.injectMu.Unlock()
	b.injectLeft = n
	b.injectCode = code
}

// SetLatency delays every subsequent call by d.
func (b *Backend) SetLatency(d time.Duration) {
	b.latency.Store(int64(d))
}

// CreateContainer pre-seeds an empty container, so tests can acquire a
// context without generating a key first.
func (b *Backend) CreateContainer(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.containers[name] = true
}

// gate counts the call and applies injected latency and failures.
func (b *Backend) gate(ctx context.Context) error {
	b.calls.Add(1)

	if d := time.Duration(b.latency.Load()); d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return status.FromContextError(ctx.Err()).Err()
		}
	}

	b.injectMu.Lock()
	defer b.injectMu.Unlock()
	if b.injectLeft > 0 {
		b.injectLeft--
		return status.Error(b.injectCode, "injected failure")
	}
	return nil
}

func domainErr(code backendv1.ErrorCode, format string, args ...any) *backendv1.BackendError {
	return &backendv1.BackendError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Health implements backendv1.BackendServer.
func (b *Backend) Health(ctx context.Context, _ *backendv1.HealthRequest) (*backendv1.HealthResponse, error) {
	if err := b.gate(ctx); err != nil {
		return nil, err
	}
	return &backendv1.HealthResponse{Status: "ok", Version: Version}, nil
}

// GenerateKey implements backendv1.BackendServer.
func (b *Backend) GenerateKey(ctx context.Context, in *backendv1.GenerateKeyRequest) (*backendv1.GenerateKeyResponse, error) {
	if err := b.gate(ctx); err != nil {
		return nil, err
	}

	key := &storedKey{
		id:         uuid.NewString(),
		container:  in.Container,
		keySpec:    in.KeySpec,
		algorithm:  in.Algorithm,
		bits:       in.KeyBits,
		exportable: in.Exportable,
	}

	var pubDER []byte
	switch in.Algorithm {
	case "rsa":
		bits := int(in.KeyBits)
		if bits == 0 {
			bits = 2048
			key.bits = 2048
		}
		priv, err := rsa.GenerateKey(rand.Reader, bits)
		if err != nil {
			return nil, status.Errorf(codes.Internal, "rsa generate: %v", err)
		}
		key.rsaKey = priv
		pubDER, _ = x509.MarshalPKIXPublicKey(&priv.PublicKey)
	case "ecdsa-p256":
		priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return nil, status.Errorf(codes.Internal, "ecdsa generate: %v", err)
		}
		key.ecKey = priv
		key.bits = 256
		pubDER, _ = x509.MarshalPKIXPublicKey(&priv.PublicKey)
	case "aes-128", "aes-192", "aes-256":
		bits := symBits(in.Algorithm)
		key.bits = bits
		key.symKey = make([]byte, bits/8)
		if _, err := rand.Read(key.symKey); err != nil {
			return nil, status.Errorf(codes.Internal, "aes generate: %v", err)
		}
	default:
		return &backendv1.GenerateKeyResponse{
			Error: domainErr(backendv1.ErrorCodeAlgorithmUnsupported, "algorithm %q", in.Algorithm),
		}, nil
	}

	b.mu.Lock()
	// One key per role; a second generate for the same role replaces it,
	// matching container semantics.
	for id, k := range b.keys {
		if k.container == in.Container && k.keySpec == in.KeySpec && in.KeySpec != "" && k.symKey == nil {
			delete(b.keys, id)
		}
	}
	b.keys[key.id] = key
	b.containers[in.Container] = true
	b.mu.Unlock()

	return &backendv1.GenerateKeyResponse{
		KeyID:     key.id,
		Algorithm: key.algorithm,
		KeyBits:   key.bits,
		PublicKey: pubDER,
	}, nil
}

// GetKey implements backendv1.BackendServer.
func (b *Backend) GetKey(ctx context.Context, in *backendv1.GetKeyRequest) (*backendv1.GetKeyResponse, error) {
	if err := b.gate(ctx); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.containers[in.Container] {
		return &backendv1.GetKeyResponse{
			Error: domainErr(backendv1.ErrorCodeContainerNotFound, "container %q", in.Container),
		}, nil
	}
	for _, k := range b.keys {
		if k.container == in.Container && k.keySpec == in.KeySpec {
			var pubDER []byte
			if k.rsaKey != nil {
				pubDER, _ = x509.MarshalPKIXPublicKey(&k.rsaKey.PublicKey)
			} else if k.ecKey != nil {
				pubDER, _ = x509.MarshalPKIXPublicKey(&k.ecKey.PublicKey)
			}
			return &backendv1.GetKeyResponse{
				KeyID:     k.id,
				Algorithm: k.algorithm,
				KeyBits:   k.bits,
				KeySpec:   k.keySpec,
				PublicKey: pubDER,
			}, nil
		}
	}
	return &backendv1.GetKeyResponse{
		Error: domainErr(backendv1.ErrorCodeKeyNotFound, "no %s key in container %q", in.KeySpec, in.Container),
	}, nil
}

// ListKeys implements backendv1.BackendServer.
func (b *Backend) ListKeys(ctx context.Context, in *backendv1.ListKeysRequest) (*backendv1.ListKeysResponse, error) {
	if err := b.gate(ctx); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.containers[in.Container] {
		return &backendv1.ListKeysResponse{
			Error: domainErr(backendv1.ErrorCodeContainerNotFound, "container %q", in.Container),
		}, nil
	}
	var infos []backendv1.KeyInfo
	for _, k := range b.keys {
		if k.container == in.Container {
			infos = append(infos, backendv1.KeyInfo{
				KeyID:     k.id,
				KeySpec:   k.keySpec,
				Algorithm: k.algorithm,
				KeyBits:   k.bits,
			})
		}
	}
	return &backendv1.ListKeysResponse{Keys: infos}, nil
}

// DeleteKey implements backendv1.BackendServer.
func (b *Backend) DeleteKey(ctx context.Context, in *backendv1.DeleteKeyRequest) (*backendv1.DeleteKeyResponse, error) {
	if err := b.gate(ctx); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.keys[in.KeyID]; !ok {
		return &backendv1.DeleteKeyResponse{
			Error: domainErr(backendv1.ErrorCodeKeyNotFound, "key %q", in.KeyID),
		}, nil
	}
	delete(b.keys, in.KeyID)
	return &backendv1.DeleteKeyResponse{}, nil
}

// SignData implements backendv1.BackendServer.
func (b *Backend) SignData(ctx context.Context, in *backendv1.SignDataRequest) (*backendv1.SignDataResponse, error) {
	if err := b.gate(ctx); err != nil {
		return nil, err
	}

	k, berr := b.lookup(in.KeyID)
	if berr != nil {
		return &backendv1.SignDataResponse{Error: berr}, nil
	}
	digest, hashAlg, berr := digestOf(in.HashAlgorithm, in.Data, nil)
	if berr != nil {
		return &backendv1.SignDataResponse{Error: berr}, nil
	}

	switch {
	case k.rsaKey != nil:
		sig, err := rsa.SignPKCS1v15(rand.Reader, k.rsaKey, hashAlg, digest)
		if err != nil {
			return nil, status.Errorf(codes.Internal, "rsa sign: %v", err)
		}
		return &backendv1.SignDataResponse{Signature: sig}, nil
	case k.ecKey != nil:
		sig, err := ecdsa.SignASN1(rand.Reader, k.ecKey, digest)
		if err != nil {
			return nil, status.Errorf(codes.Internal, "ecdsa sign: %v", err)
		}
		return &backendv1.SignDataResponse{Signature: sig}, nil
	default:
		return &backendv1.SignDataResponse{
			Error: domainErr(backendv1.ErrorCodeInvalidArgument, "key %q cannot sign", in.KeyID),
		}, nil
	}
}

// VerifySignature implements backendv1.BackendServer.
func (b *Backend) VerifySignature(ctx context.Context, in *backendv1.VerifySignatureRequest) (*backendv1.VerifySignatureResponse, error) {
	if err := b.gate(ctx); err != nil {
		return nil, err
	}

	k, berr := b.lookup(in.KeyID)
	if berr != nil {
		return &backendv1.VerifySignatureResponse{Error: berr}, nil
	}
	digest, hashAlg, berr := digestOf(in.HashAlgorithm, in.Data, nil)
	if berr != nil {
		return &backendv1.VerifySignatureResponse{Error: berr}, nil
	}

	var ok bool
	switch {
	case k.rsaKey != nil:
		ok = rsa.VerifyPKCS1v15(&k.rsaKey.PublicKey, hashAlg, digest, in.Signature) == nil
	case k.rsaPub != nil:
		ok = rsa.VerifyPKCS1v15(k.rsaPub, hashAlg, digest, in.Signature) == nil
	case k.ecKey != nil:
		ok = ecdsa.VerifyASN1(&k.ecKey.PublicKey, digest, in.Signature)
	case k.ecPub != nil:
		ok = ecdsa.VerifyASN1(k.ecPub, digest, in.Signature)
	default:
		return &backendv1.VerifySignatureResponse{
			Error: domainErr(backendv1.ErrorCodeInvalidArgument, "key %q cannot verify", in.KeyID),
		}, nil
	}
	if !ok {
		return &backendv1.VerifySignatureResponse{
			Valid: false,
			Error: domainErr(backendv1.ErrorCodeSignatureInvalid, "signature mismatch"),
		}, nil
	}
	return &backendv1.VerifySignatureResponse{Valid: true}, nil
}

// EncryptData implements backendv1.BackendServer.
func (b *Backend) EncryptData(ctx context.Context, in *backendv1.EncryptDataRequest) (*backendv1.EncryptDataResponse, error) {
	if err := b.gate(ctx); err != nil {
		return nil, err
	}

	k, berr := b.lookup(in.KeyID)
	if berr != nil {
		return &backendv1.EncryptDataResponse{Error: berr}, nil
	}
	switch {
	case k.symKey != nil:
		out, err := sealAESGCM(k.symKey, in.Data)
		if err != nil {
			return nil, status.Errorf(codes.Internal, "encrypt: %v", err)
		}
		return &backendv1.EncryptDataResponse{Ciphertext: out}, nil
	case k.rsaKey != nil:
		out, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, &k.rsaKey.PublicKey, in.Data, nil)
		if err != nil {
			return &backendv1.EncryptDataResponse{
				Error: domainErr(backendv1.ErrorCodeInvalidArgument, "rsa encrypt: %v", err),
			}, nil
		}
		return &backendv1.EncryptDataResponse{Ciphertext: out}, nil
	default:
		return &backendv1.EncryptDataResponse{
			Error: domainErr(backendv1.ErrorCodeInvalidArgument, "key %q cannot encrypt", in.KeyID),
		}, nil
	}
}

// DecryptData implements backendv1.BackendServer.
func (b *Backend) DecryptData(ctx context.Context, in *backendv1.DecryptDataRequest) (*backendv1.DecryptDataResponse, error) {
	if err := b.gate(ctx); err != nil {
		return nil, err
	}

	k, berr := b.lookup(in.KeyID)
	if berr != nil {
		return &backendv1.DecryptDataResponse{Error: berr}, nil
	}
	switch {
	case k.symKey != nil:
		out, err := openAESGCM(k.symKey, in.Data)
		if err != nil {
			return &backendv1.DecryptDataResponse{
				Error: domainErr(backendv1.ErrorCodeInvalidArgument, "decrypt: %v", err),
			}, nil
		}
		return &backendv1.DecryptDataResponse{Plaintext: out}, nil
	case k.rsaKey != nil:
		out, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, k.rsaKey, in.Data, nil)
		if err != nil {
			return &backendv1.DecryptDataResponse{
				Error: domainErr(backendv1.ErrorCodeInvalidArgument, "rsa decrypt: %v", err),
			}, nil
		}
		return &backendv1.DecryptDataResponse{Plaintext: out}, nil
	default:
		return &backendv1.DecryptDataResponse{
			Error: domainErr(backendv1.ErrorCodeInvalidArgument, "key %q cannot decrypt", in.KeyID),
		}, nil
	}
}

// ComputeHash implements backendv1.BackendServer.
func (b *Backend) ComputeHash(ctx context.Context, in *backendv1.ComputeHashRequest) (*backendv1.ComputeHashResponse, error) {
	if err := b.gate(ctx); err != nil {
		return nil, err
	}

	var hmacKey []byte
	if in.KeyID != "" {
		k, berr := b.lookup(in.KeyID)
		if berr != nil {
			return &backendv1.ComputeHashResponse{Error: berr}, nil
		}
		if k.symKey == nil {
			return &backendv1.ComputeHashResponse{
				Error: domainErr(backendv1.ErrorCodeInvalidArgument, "key %q is not a MAC key", in.KeyID),
			}, nil
		}
		hmacKey = k.symKey
	}

	digest, _, berr := digestOf(in.Algorithm, in.Data, hmacKey)
	if berr != nil {
		return &backendv1.ComputeHashResponse{Error: berr}, nil
	}
	return &backendv1.ComputeHashResponse{Digest: digest}, nil
}

// DeriveKey implements backendv1.BackendServer.
func (b *Backend) DeriveKey(ctx context.Context, in *backendv1.DeriveKeyRequest) (*backendv1.DeriveKeyResponse, error) {
	if err := b.gate(ctx); err != nil {
		return nil, err
	}

	bits := symBits(in.Algorithm)
	if bits == 0 {
		return &backendv1.DeriveKeyResponse{
			Error: domainErr(backendv1.ErrorCodeAlgorithmUnsupported, "algorithm %q", in.Algorithm),
		}, nil
	}
	if len(in.BaseData) == 0 {
		return &backendv1.DeriveKeyResponse{
			Error: domainErr(backendv1.ErrorCodeInvalidArgument, "empty base data"),
		}, nil
	}

	// Stretch the base digest to the key size.
	material := sha512.Sum512(in.BaseData)
	key := &storedKey{
		id:        uuid.NewString(),
		container: in.Container,
		algorithm: in.Algorithm,
		bits:      bits,
		symKey:    append([]byte(nil), material[:bits/8]...),
	}

	b.mu.Lock()
	b.keys[key.id] = key
	b.containers[in.Container] = true
	b.mu.Unlock()

	return &backendv1.DeriveKeyResponse{KeyID: key.id, Algorithm: key.algorithm, KeyBits: bits}, nil
}

// ImportKey implements backendv1.BackendServer.
func (b *Backend) ImportKey(ctx context.Context, in *backendv1.ImportKeyRequest) (*backendv1.ImportKeyResponse, error) {
	if err := b.gate(ctx); err != nil {
		return nil, err
	}

	key := &storedKey{
		id:         uuid.NewString(),
		container:  in.Container,
		exportable: true,
	}
	switch in.BlobType {
	case "plaintext", "simple":
		if n := len(in.Blob); n != 16 && n != 24 && n != 32 {
			return &backendv1.ImportKeyResponse{
				Error: domainErr(backendv1.ErrorCodeInvalidArgument, "bad symmetric key length %d", len(in.Blob)),
			}, nil
		}
		key.symKey = append([]byte(nil), in.Blob...)
		key.bits = uint32(len(in.Blob) * 8)
		key.algorithm = fmt.Sprintf("aes-%d", key.bits)
	case "public":
		pub, err := x509.ParsePKIXPublicKey(in.Blob)
		if err != nil {
			return &backendv1.ImportKeyResponse{
				Error: domainErr(backendv1.ErrorCodeInvalidArgument, "bad public key: %v", err),
			}, nil
		}
		switch pk := pub.(type) {
		case *rsa.PublicKey:
			key.rsaPub = pk
			key.algorithm = "rsa"
			key.bits = uint32(pk.N.BitLen())
		case *ecdsa.PublicKey:
			key.ecPub = pk
			key.algorithm = "ecdsa-p256"
			key.bits = 256
		default:
			return &backendv1.ImportKeyResponse{
				Error: domainErr(backendv1.ErrorCodeInvalidArgument, "unsupported public key type %T", pub),
			}, nil
		}
		key.exportable = false
	default:
		return &backendv1.ImportKeyResponse{
			Error: domainErr(backendv1.ErrorCodeInvalidArgument, "blob type %q", in.BlobType),
		}, nil
	}

	b.mu.Lock()
	b.keys[key.id] = key
	b.containers[in.Container] = true
	b.mu.Unlock()

	return &backendv1.ImportKeyResponse{
		KeyID:     key.id,
		Algorithm: key.algorithm,
		KeyBits:   key.bits,
		KeySpec:   in.KeySpec,
	}, nil
}

// ExportKey implements backendv1.BackendServer.
func (b *Backend) ExportKey(ctx context.Context, in *backendv1.ExportKeyRequest) (*backendv1.ExportKeyResponse, error) {
	if err := b.gate(ctx); err != nil {
		return nil, err
	}

	k, berr := b.lookup(in.KeyID)
	if berr != nil {
		return &backendv1.ExportKeyResponse{Error: berr}, nil
	}

	switch in.BlobType {
	case "public":
		var pub any
		switch {
		case k.rsaKey != nil:
			pub = &k.rsaKey.PublicKey
		case k.ecKey != nil:
			pub = &k.ecKey.PublicKey
		case k.rsaPub != nil:
			pub = k.rsaPub
		case k.ecPub != nil:
			pub = k.ecPub
		default:
			return &backendv1.ExportKeyResponse{
				Error: domainErr(backendv1.ErrorCodeInvalidArgument, "key %q has no public part", in.KeyID),
			}, nil
		}
		der, err := x509.MarshalPKIXPublicKey(pub)
		if err != nil {
			return nil, status.Errorf(codes.Internal, "marshal public key: %v", err)
		}
		return &backendv1.ExportKeyResponse{BlobType: in.BlobType, Blob: der}, nil
	case "plaintext", "simple":
		if !k.exportable {
			return &backendv1.ExportKeyResponse{
				Error: domainErr(backendv1.ErrorCodeKeyNotExportable, "key %q", in.KeyID),
			}, nil
		}
		if k.symKey == nil {
			return &backendv1.ExportKeyResponse{
				Error: domainErr(backendv1.ErrorCodeInvalidArgument, "key %q is not symmetric", in.KeyID),
			}, nil
		}
		return &backendv1.ExportKeyResponse{BlobType: in.BlobType, Blob: append([]byte(nil), k.symKey...)}, nil
	default:
		return &backendv1.ExportKeyResponse{
			Error: domainErr(backendv1.ErrorCodeInvalidArgument, "blob type %q", in.BlobType),
		}, nil
	}
}

// GenerateRandom implements backendv1.BackendServer.
func (b *Backend) GenerateRandom(ctx context.Context, in *backendv1.GenerateRandomRequest) (*backendv1.GenerateRandomResponse, error) {
	if err := b.gate(ctx); err != nil {
		return nil, err
	}

	if in.Length == 0 || in.Length > 1<<20 {
		return &backendv1.GenerateRandomResponse{
			Error: domainErr(backendv1.ErrorCodeInvalidArgument, "length %d out of range", in.Length),
		}, nil
	}
	out := make([]byte, in.Length)
	if _, err := rand.Read(out); err != nil {
		return nil, status.Errorf(codes.Internal, "rand: %v", err)
	}
	return &backendv1.GenerateRandomResponse{Data: out}, nil
}

func (b *Backend) lookup(keyID string) (*storedKey, *backendv1.BackendError) {
	b.mu.Lock()
	defer b.mu.Unlock()
	k, ok := b.keys[keyID]
	if !ok {
		return nil, domainErr(backendv1.ErrorCodeKeyNotFound, "key %q", keyID)
	}
	return k, nil
}

// digestOf hashes data with the named algorithm. hmacKey keys the
// digest for hmac algorithms and is ignored otherwise.
func digestOf(name string, data, hmacKey []byte) ([]byte, crypto.Hash, *backendv1.BackendError) {
	var newHash func() hash.Hash
	var ch crypto.Hash
	switch name {
	case "md5":
		newHash, ch = md5.New, crypto.MD5
	case "sha1":
		newHash, ch = sha1.New, crypto.SHA1
	case "sha256":
		newHash, ch = sha256.New, crypto.SHA256
	case "sha384":
		newHash, ch = sha512.New384, crypto.SHA384
	case "sha512":
		newHash, ch = sha512.New, crypto.SHA512
	case "hmac-sha256":
		if hmacKey == nil {
			return nil, 0, domainErr(backendv1.ErrorCodeInvalidArgument, "hmac-sha256 requires a key")
		}
		mac := hmac.New(sha256.New, hmacKey)
		mac.Write(data)
		return mac.Sum(nil), crypto.SHA256, nil
	default:
		return nil, 0, domainErr(backendv1.ErrorCodeAlgorithmUnsupported, "hash %q", name)
	}
	h := newHash()
	h.Write(data)
	return h.Sum(nil), ch, nil
}

func symBits(algorithm string) uint32 {
	switch algorithm {
	case "aes-128":
		return 128
	case "aes-192":
		return 192
	case "aes-256":
		return 256
	default:
		return 0
	}
}

// sealAESGCM encrypts with a random nonce prepended to the ciphertext.
func sealAESGCM(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func openAESGCM(key, sealed []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, fmt.Errorf("ciphertext shorter than nonce")
	}
	nonce, ct := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ct, nil)
}
