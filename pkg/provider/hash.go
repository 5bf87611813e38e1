// Copyright (c) 2025 ludicrypt
//
// This file is part of supacrypt-core.
//
// Licensed under the MIT License.
// See LICENSE file or visit https://opensource.org/license/mit

package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/ludicrypt/supacrypt-core/api/backendv1"
	"github.com/ludicrypt/supacrypt-core/pkg/handle"
	"github.com/ludicrypt/supacrypt-core/pkg/hosterr"
)

// CreateHash creates a hash object under a provider context. Keyed
// algorithms (HMAC) require a key handle; plain digests pass zero.
// Input is buffered locally and digested by the backend in one call
// when the hash is finalized.
func (p *Provider) CreateHash(ctx context.Context, hProv handle.Handle, alg Algorithm, hKey handle.Handle) (handle.Handle, error) {
	h, err := p.createHash(ctx, hProv, alg, hKey)
	return h, p.fail(err)
}

func (p *Provider) createHash(_ context.Context, hProv handle.Handle, alg Algorithm, hKey handle.Handle) (handle.Handle, error) {
	if _, err := p.resolveContext(hProv); err != nil {
		return 0, err
	}
	info, err := alg.info()
	if err != nil {
		return 0, err
	}
	if !info.hash {
		return 0, hosterr.WithCode(hosterr.CodeBadAlgorithm,
			fmt.Errorf("%w: %s is not a hash algorithm", hosterr.ErrInvalidParameter, alg))
	}

	keyed := alg == AlgHMACSHA256
	if keyed && hKey == 0 {
		return 0, hosterr.WithCode(hosterr.CodeBadKey,
			fmt.Errorf("%w: %s requires a key", hosterr.ErrInvalidParameter, alg))
	}
	if !keyed && hKey != 0 {
		return 0, hosterr.WithCode(hosterr.CodeBadKey,
			fmt.Errorf("%w: %s takes no key", hosterr.ErrInvalidParameter, alg))
	}

	hash := &hashObject{Algorithm: alg}
	if keyed {
		key, err := p.resolveKey(hKey)
		if err != nil {
			return 0, err
		}
		hash.KeyID = key.BackendKeyID
	}
	return p.table.Create(handle.KindHash, hash, hProv)
}

// HashData appends data to a hash object's pending input. Fails once
// the hash has been finalized.
func (p *Provider) HashData(hHash handle.Handle, data []byte) error {
	return p.fail(p.hashData(hHash, data))
}

func (p *Provider) hashData(hHash handle.Handle, data []byte) error {
	hash, err := p.resolveHash(hHash)
	if err != nil {
		return err
	}
	return hash.write(data)
}

// HashSessionKey feeds a key's backend token into a hash object, so
// derived-key schedules can bind to key identity without exposing key
// material.
func (p *Provider) HashSessionKey(hHash, hKey handle.Handle) error {
	return p.fail(p.hashSessionKey(hHash, hKey))
}

func (p *Provider) hashSessionKey(hHash, hKey handle.Handle) error {
	hash, err := p.resolveHash(hHash)
	if err != nil {
		return err
	}
	key, err := p.resolveKey(hKey)
	if err != nil {
		return err
	}
	return hash.write([]byte(key.BackendKeyID))
}

// DestroyHash retires a hash handle. Hash state is purely local; no
// backend call is made.
func (p *Provider) DestroyHash(hHash handle.Handle) error {
	if _, err := p.resolveHash(hHash); err != nil {
		return p.fail(err)
	}
	return p.fail(p.table.Retire(hHash))
}

// DuplicateHash copies a hash object's full state under a fresh handle.
func (p *Provider) DuplicateHash(hHash handle.Handle) (handle.Handle, error) {
	h, err := p.duplicateHash(hHash)
	return h, p.fail(err)
}

func (p *Provider) duplicateHash(hHash handle.Handle) (handle.Handle, error) {
	hash, err := p.resolveHash(hHash)
	if err != nil {
		return 0, err
	}
	owner, err := p.table.Owner(hHash)
	if err != nil {
		return 0, err
	}
	return p.table.Create(handle.KindHash, hash.clone(), owner)
}

// finalizeHash returns the hash object's digest, computing it on the
// backend first if needed. Finalization is one-way; further HashData
// calls fail afterwards. The object lock is held across the backend
// call, so concurrent finalizes of one handle compute once and a
// racing write fails with the already-finalized code.
func (p *Provider) finalizeHash(ctx context.Context, hash *hashObject) ([]byte, error) {
	hash.mu.Lock()
	defer hash.mu.Unlock()
	if hash.finalized {
		return hash.value, nil
	}
	info, err := hash.Algorithm.info()
	if err != nil {
		return nil, err
	}

	var digest []byte
	err = p.gw.invoke(ctx, "compute_hash", func(ctx context.Context, c backendv1.BackendClient) error {
		r, err := c.ComputeHash(ctx, &backendv1.ComputeHashRequest{
			Algorithm: info.wire,
			Data:      hash.buf,
			KeyID:     hash.KeyID,
		})
		if err != nil {
			return err
		}
		if err := envelope(r.Error); err != nil {
			return err
		}
		digest = r.Digest
		return nil
	})
	if err != nil {
		return nil, err
	}

	hash.value = digest
	hash.finalized = true
	return digest, nil
}

// SignHash signs a hash object's buffered input with the container key
// for the given role. The result uses the size-query convention. An
// externally installed digest cannot be signed: the backend hashes the
// original input itself.
func (p *Provider) SignHash(ctx context.Context, hHash handle.Handle, keySpec uint32, buf []byte) (int, error) {
	n, err := p.signHash(ctx, hHash, keySpec, buf)
	return n, p.fail(err)
}

func (p *Provider) signHash(ctx context.Context, hHash handle.Handle, keySpec uint32, buf []byte) (int, error) {
	hash, err := p.resolveHash(hHash)
	if err != nil {
		return 0, err
	}
	input, external := hash.input()
	if external {
		return 0, hosterr.WithCode(hosterr.CodeBadHash,
			fmt.Errorf("%w: cannot sign an externally set hash value", hosterr.ErrInvalidParameter))
	}
	owner, err := p.table.Owner(hHash)
	if err != nil {
		return 0, err
	}
	hKey, err := p.getUserKey(ctx, owner, keySpec)
	if err != nil {
		return 0, err
	}
	defer func() { _ = p.table.Retire(hKey) }()
	key, err := p.resolveKey(hKey)
	if err != nil {
		return 0, err
	}
	info, err := hash.Algorithm.info()
	if err != nil {
		return 0, err
	}

	var signature []byte
	err = p.gw.invoke(ctx, "sign_data", func(ctx context.Context, c backendv1.BackendClient) error {
		r, err := c.SignData(ctx, &backendv1.SignDataRequest{
			KeyID:         key.BackendKeyID,
			Data:          input,
			HashAlgorithm: info.wire,
		})
		if err != nil {
			return err
		}
		if err := envelope(r.Error); err != nil {
			return err
		}
		signature = r.Signature
		return nil
	})
	if err != nil {
		return 0, err
	}
	return sizeQuery(buf, signature)
}

// VerifySignature checks signature over a hash object's buffered input
// against a public key handle. A checked-and-wrong signature fails with
// the bad-signature code, distinct from transport failure.
func (p *Provider) VerifySignature(ctx context.Context, hHash, hPubKey handle.Handle, signature []byte) error {
	return p.fail(p.verifySignature(ctx, hHash, hPubKey, signature))
}

func (p *Provider) verifySignature(ctx context.Context, hHash, hPubKey handle.Handle, signature []byte) error {
	hash, err := p.resolveHash(hHash)
	if err != nil {
		return err
	}
	input, external := hash.input()
	if external {
		return hosterr.WithCode(hosterr.CodeBadHash,
			fmt.Errorf("%w: cannot verify against an externally set hash value", hosterr.ErrInvalidParameter))
	}
	key, err := p.resolveKey(hPubKey)
	if err != nil {
		return err
	}
	if len(signature) == 0 {
		return hosterr.WithCode(hosterr.CodeBadSignature,
			fmt.Errorf("%w: empty signature", hosterr.ErrInvalidParameter))
	}
	info, err := hash.Algorithm.info()
	if err != nil {
		return err
	}

	var valid bool
	err = p.gw.invoke(ctx, "verify_signature", func(ctx context.Context, c backendv1.BackendClient) error {
		r, err := c.VerifySignature(ctx, &backendv1.VerifySignatureRequest{
			KeyID:         key.BackendKeyID,
			Data:          input,
			Signature:     signature,
			HashAlgorithm: info.wire,
		})
		if err != nil {
			return err
		}
		if err := envelope(r.Error); err != nil {
			return err
		}
		valid = r.Valid
		return nil
	})
	if err != nil {
		var be *backendv1.BackendError
		if errors.As(err, &be) && be.Code == backendv1.ErrorCodeSignatureInvalid {
			return hosterr.WithCode(hosterr.CodeBadSignature, err)
		}
		return err
	}
	if !valid {
		return hosterr.WithCode(hosterr.CodeBadSignature,
			fmt.Errorf("%w: signature mismatch", hosterr.ErrInvalidParameter))
	}
	return nil
}

// Encrypt encrypts data with a key through the gated path. When hHash
// is nonzero the plaintext is also fed into that hash object, so a
// caller can encrypt and digest in one pass. final marks the last block
// of a multi-part operation.
func (p *Provider) Encrypt(ctx context.Context, hKey, hHash handle.Handle, final bool, data []byte) ([]byte, error) {
	out, err := p.encrypt(ctx, hKey, hHash, final, data)
	return out, p.fail(err)
}

func (p *Provider) encrypt(ctx context.Context, hKey, hHash handle.Handle, final bool, data []byte) ([]byte, error) {
	key, err := p.resolveKey(hKey)
	if err != nil {
		return nil, err
	}
	if hHash != 0 {
		hash, err := p.resolveHash(hHash)
		if err != nil {
			return nil, err
		}
		if err := hash.write(data); err != nil {
			return nil, err
		}
	}

	var ciphertext []byte
	err = p.gw.invoke(ctx, "encrypt", func(ctx context.Context, c backendv1.BackendClient) error {
		r, err := c.EncryptData(ctx, &backendv1.EncryptDataRequest{
			KeyID: key.BackendKeyID,
			Data:  data,
			Final: final,
		})
		if err != nil {
			return err
		}
		if err := envelope(r.Error); err != nil {
			return err
		}
		ciphertext = r.Ciphertext
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ciphertext, nil
}

// Decrypt decrypts data with a key through the gated path. When hHash
// is nonzero the recovered plaintext is fed into that hash object.
func (p *Provider) Decrypt(ctx context.Context, hKey, hHash handle.Handle, final bool, data []byte) ([]byte, error) {
	out, err := p.decrypt(ctx, hKey, hHash, final, data)
	return out, p.fail(err)
}

func (p *Provider) decrypt(ctx context.Context, hKey, hHash handle.Handle, final bool, data []byte) ([]byte, error) {
	key, err := p.resolveKey(hKey)
	if err != nil {
		return nil, err
	}

	var plaintext []byte
	err = p.gw.invoke(ctx, "decrypt", func(ctx context.Context, c backendv1.BackendClient) error {
		r, err := c.DecryptData(ctx, &backendv1.DecryptDataRequest{
			KeyID: key.BackendKeyID,
			Data:  data,
			Final: final,
		})
		if err != nil {
			return err
		}
		if err := envelope(r.Error); err != nil {
			return err
		}
		plaintext = r.Plaintext
		return nil
	})
	if err != nil {
		return nil, err
	}

	if hHash != 0 {
		hash, err := p.resolveHash(hHash)
		if err != nil {
			return nil, err
		}
		if err := hash.write(plaintext); err != nil {
			return nil, err
		}
	}
	return plaintext, nil
}
