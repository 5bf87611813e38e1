// Copyright (c) 2025 ludicrypt
//
// This file is part of supacrypt-core.
//
// Licensed under the MIT License.
// See LICENSE file or visit https://opensource.org/license/mit

package provider

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/ludicrypt/supacrypt-core/pkg/handle"
	"github.com/ludicrypt/supacrypt-core/pkg/hosterr"
)

// Provider parameters.
const (
	ParamProvName            uint32 = 4
	ParamProvVersion         uint32 = 5
	ParamProvContainer       uint32 = 6
	ParamProvType            uint32 = 16
	ParamProvUniqueContainer uint32 = 36
)

// Key parameters.
const (
	ParamKeyPermissions uint32 = 6
	ParamKeyAlgID       uint32 = 7
	ParamKeyBlockLen    uint32 = 8
	ParamKeyLen         uint32 = 9
)

// Hash parameters.
const (
	ParamHashAlgID uint32 = 1
	ParamHashValue uint32 = 2
	ParamHashSize  uint32 = 4
)

// Key permission bits.
const (
	PermExport uint32 = 0x0004
)

// Provider identity reported through the parameter surface.
const (
	providerName    = "Supacrypt Cryptographic Provider"
	providerType    = 24 // RSA with AES support
	providerVersion = 0x0100
)

// sizeQuery implements the host's two-call buffer convention: a nil dst
// returns the required size with no copy, a short dst fails with the
// insufficient-buffer code, and an adequate dst receives the data.
func sizeQuery(dst, data []byte) (int, error) {
	if dst == nil {
		return len(data), nil
	}
	if len(dst) < len(data) {
		return len(data), hosterr.WithCode(hosterr.CodeMoreData,
			fmt.Errorf("%w: need %d bytes, have %d", hosterr.ErrInsufficientBuffer, len(data), len(dst)))
	}
	copy(dst, data)
	return len(data), nil
}

// u32le renders a numeric parameter in the host's wire shape.
func u32le(v uint32) []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, v)
	return out
}

// GetProvParam reads a provider parameter using the size-query
// convention. All provider parameters are served locally.
func (p *Provider) GetProvParam(hProv handle.Handle, param uint32, buf []byte) (int, error) {
	n, err := p.getProvParam(hProv, param, buf)
	return n, p.fail(err)
}

func (p *Provider) getProvParam(hProv handle.Handle, param uint32, buf []byte) (int, error) {
	pc, err := p.resolveContext(hProv)
	if err != nil {
		return 0, err
	}
	switch param {
	case ParamProvName:
		return sizeQuery(buf, append([]byte(providerName), 0))
	case ParamProvVersion:
		return sizeQuery(buf, u32le(providerVersion))
	case ParamProvType:
		return sizeQuery(buf, u32le(providerType))
	case ParamProvContainer:
		return sizeQuery(buf, append([]byte(pc.Container), 0))
	case ParamProvUniqueContainer:
		return sizeQuery(buf, append([]byte(pc.SessionID.String()), 0))
	default:
		return 0, hosterr.WithCode(hosterr.CodeBadParameter,
			fmt.Errorf("%w: provider parameter %d", hosterr.ErrInvalidParameter, param))
	}
}

// SetProvParam rejects every parameter: provider identity is fixed and
// container binding is set at acquire time.
func (p *Provider) SetProvParam(hProv handle.Handle, param uint32, _ []byte) error {
	if _, err := p.resolveContext(hProv); err != nil {
		return p.fail(err)
	}
	return p.fail(hosterr.WithCode(hosterr.CodeNotSupported,
		fmt.Errorf("%w: provider parameter %d is read-only", hosterr.ErrInvalidParameter, param)))
}

// GetKeyParam reads a key parameter using the size-query convention.
// Key metadata is tracked locally; no backend call is made.
func (p *Provider) GetKeyParam(hKey handle.Handle, param uint32, buf []byte) (int, error) {
	n, err := p.getKeyParam(hKey, param, buf)
	return n, p.fail(err)
}

func (p *Provider) getKeyParam(hKey handle.Handle, param uint32, buf []byte) (int, error) {
	key, err := p.resolveKey(hKey)
	if err != nil {
		return 0, err
	}
	switch param {
	case ParamKeyAlgID:
		return sizeQuery(buf, u32le(uint32(key.Algorithm)))
	case ParamKeyLen:
		return sizeQuery(buf, u32le(key.KeyBits))
	case ParamKeyBlockLen:
		if key.Algorithm.IsSymmetric() {
			return sizeQuery(buf, u32le(128))
		}
		return sizeQuery(buf, u32le(key.KeyBits))
	case ParamKeyPermissions:
		return sizeQuery(buf, u32le(key.permissions()))
	default:
		return 0, hosterr.WithCode(hosterr.CodeBadParameter,
			fmt.Errorf("%w: key parameter %d", hosterr.ErrInvalidParameter, param))
	}
}

// SetKeyParam writes a key parameter. Only the permission mask is
// writable, and export permission cannot be granted after creation.
func (p *Provider) SetKeyParam(hKey handle.Handle, param uint32, value []byte) error {
	return p.fail(p.setKeyParam(hKey, param, value))
}

func (p *Provider) setKeyParam(hKey handle.Handle, param uint32, value []byte) error {
	key, err := p.resolveKey(hKey)
	if err != nil {
		return err
	}
	switch param {
	case ParamKeyPermissions:
		if len(value) != 4 {
			return hosterr.WithCode(hosterr.CodeBadLength,
				fmt.Errorf("%w: permissions value must be 4 bytes", hosterr.ErrInvalidParameter))
		}
		perms := binary.LittleEndian.Uint32(value)
		if perms&PermExport != 0 && !key.Exportable {
			return hosterr.WithCode(hosterr.CodePermissionDenied,
				fmt.Errorf("%w: key was not created exportable", hosterr.ErrInvalidParameter))
		}
		key.setPermissions(perms)
		return nil
	default:
		return hosterr.WithCode(hosterr.CodeBadParameter,
			fmt.Errorf("%w: key parameter %d", hosterr.ErrInvalidParameter, param))
	}
}

// GetHashParam reads a hash parameter using the size-query convention.
// Reading the hash value finalizes the hash: the buffered input is
// digested by the backend and further HashData calls fail.
func (p *Provider) GetHashParam(ctx context.Context, hHash handle.Handle, param uint32, buf []byte) (int, error) {
	n, err := p.getHashParam(ctx, hHash, param, buf)
	return n, p.fail(err)
}

func (p *Provider) getHashParam(ctx context.Context, hHash handle.Handle, param uint32, buf []byte) (int, error) {
	hash, err := p.resolveHash(hHash)
	if err != nil {
		return 0, err
	}
	info, err := hash.Algorithm.info()
	if err != nil {
		return 0, err
	}
	switch param {
	case ParamHashAlgID:
		return sizeQuery(buf, u32le(uint32(hash.Algorithm)))
	case ParamHashSize:
		return sizeQuery(buf, u32le(uint32(info.digestSize)))
	case ParamHashValue:
		digest, err := p.finalizeHash(ctx, hash)
		if err != nil {
			return 0, err
		}
		return sizeQuery(buf, digest)
	default:
		return 0, hosterr.WithCode(hosterr.CodeBadParameter,
			fmt.Errorf("%w: hash parameter %d", hosterr.ErrInvalidParameter, param))
	}
}

// SetHashParam writes a hash parameter. Installing a hash value
// finalizes the object with a caller-provided digest; such a digest can
// be read back but not signed, since signing needs the original input.
func (p *Provider) SetHashParam(hHash handle.Handle, param uint32, value []byte) error {
	return p.fail(p.setHashParam(hHash, param, value))
}

func (p *Provider) setHashParam(hHash handle.Handle, param uint32, value []byte) error {
	hash, err := p.resolveHash(hHash)
	if err != nil {
		return err
	}
	switch param {
	case ParamHashValue:
		info, err := hash.Algorithm.info()
		if err != nil {
			return err
		}
		if len(value) != info.digestSize {
			return hosterr.WithCode(hosterr.CodeBadLength,
				fmt.Errorf("%w: %s digest is %d bytes, got %d",
					hosterr.ErrInvalidParameter, hash.Algorithm, info.digestSize, len(value)))
		}
		return hash.setValue(value)
	default:
		return hosterr.WithCode(hosterr.CodeBadParameter,
			fmt.Errorf("%w: hash parameter %d", hosterr.ErrInvalidParameter, param))
	}
}
