// Copyright (c) 2025 ludicrypt
//
// This file is part of supacrypt-core.
//
// Licensed under the MIT License.
// See LICENSE file or visit https://opensource.org/license/mit

package provider

import (
	"fmt"

	"github.com/ludicrypt/supacrypt-core/api/backendv1"
	"github.com/ludicrypt/supacrypt-core/pkg/hosterr"
)

// Algorithm is a host algorithm identifier. The numeric values are the
// host interface's native identifier space and must not be renumbered.
type Algorithm uint32

const (
	// Hash algorithms.
	AlgMD5        Algorithm = 0x00008003
	AlgSHA1       Algorithm = 0x00008004
	AlgSHA256     Algorithm = 0x0000800C
	AlgSHA384     Algorithm = 0x0000800D
	AlgSHA512     Algorithm = 0x0000800E
	AlgHMACSHA256 Algorithm = 0x00008009

	// Asymmetric key algorithms.
	AlgRSAKeyExchange Algorithm = 0x0000A400
	AlgRSASignature   Algorithm = 0x00002400
	AlgECDSA          Algorithm = 0x00002203

	// Symmetric key algorithms.
	AlgAES128 Algorithm = 0x0000660E
	AlgAES192 Algorithm = 0x0000660F
	AlgAES256 Algorithm = 0x00006610
)

// algInfo carries everything the provider knows about one algorithm.
type algInfo struct {
	name       string
	wire       string
	hash       bool
	symmetric  bool
	digestSize int
	keyBits    uint32
}

var algorithms = map[Algorithm]algInfo{
	AlgMD5:            {name: "MD5", wire: "md5", hash: true, digestSize: 16},
	AlgSHA1:           {name: "SHA1", wire: "sha1", hash: true, digestSize: 20},
	AlgSHA256:         {name: "SHA256", wire: "sha256", hash: true, digestSize: 32},
	AlgSHA384:         {name: "SHA384", wire: "sha384", hash: true, digestSize: 48},
	AlgSHA512:         {name: "SHA512", wire: "sha512", hash: true, digestSize: 64},
	AlgHMACSHA256:     {name: "HMAC-SHA256", wire: "hmac-sha256", hash: true, digestSize: 32},
	AlgRSAKeyExchange: {name: "RSA-KEYX", wire: "rsa", keyBits: 2048},
	AlgRSASignature:   {name: "RSA-SIGN", wire: "rsa", keyBits: 2048},
	AlgECDSA:          {name: "ECDSA-P256", wire: "ecdsa-p256", keyBits: 256},
	AlgAES128:         {name: "AES-128", wire: "aes-128", symmetric: true, keyBits: 128},
	AlgAES192:         {name: "AES-192", wire: "aes-192", symmetric: true, keyBits: 192},
	AlgAES256:         {name: "AES-256", wire: "aes-256", symmetric: true, keyBits: 256},
}

// String implements fmt.Stringer.
func (a Algorithm) String() string {
	if info, ok := algorithms[a]; ok {
		return info.name
	}
	return fmt.Sprintf("alg(0x%08X)", uint32(a))
}

// info resolves the algorithm or fails with a bad-algorithm code.
func (a Algorithm) info() (algInfo, error) {
	info, ok := algorithms[a]
	if !ok {
		return algInfo{}, hosterr.WithCode(hosterr.CodeBadAlgorithm,
			fmt.Errorf("%w: algorithm 0x%08X", hosterr.ErrInvalidParameter, uint32(a)))
	}
	return info, nil
}

// IsHash reports whether a names a digest algorithm.
func (a Algorithm) IsHash() bool {
	info, ok := algorithms[a]
	return ok && info.hash
}

// IsSymmetric reports whether a names a symmetric cipher.
func (a Algorithm) IsSymmetric() bool {
	info, ok := algorithms[a]
	return ok && info.symmetric
}

// Key specifications naming a key's role inside a container.
const (
	KeySpecExchange  uint32 = 1
	KeySpecSignature uint32 = 2
)

// Context acquisition flags.
const (
	FlagVerifyContext uint32 = 0xF0000000
	FlagNewKeyset     uint32 = 0x00000008
	FlagDeleteKeyset  uint32 = 0x00000010
	FlagMachineKeyset uint32 = 0x00000020
	FlagSilent        uint32 = 0x00000040
)

// Key generation and import flags. The upper 16 bits of the flags word
// carry the requested key size in bits.
const (
	FlagExportable uint32 = 0x00000001
)

// contextFlagMask covers every acquisition flag the provider accepts.
const contextFlagMask = FlagVerifyContext | FlagNewKeyset | FlagDeleteKeyset |
	FlagMachineKeyset | FlagSilent

// keyFlagMask covers the lower-half key generation flags the provider
// accepts; the upper 16 bits are the key size and always pass.
const keyFlagMask = FlagExportable

// Key blob types for import and export.
const (
	BlobSimple    uint32 = 0x1
	BlobPublicKey uint32 = 0x6
	BlobPrivate   uint32 = 0x7
	BlobPlaintext uint32 = 0x8
)

// blobWireNames maps blob types to the backend's wire names.
var blobWireNames = map[uint32]string{
	BlobSimple:    "simple",
	BlobPublicKey: "public",
	BlobPrivate:   "private",
	BlobPlaintext: "plaintext",
}

func blobWireName(blobType uint32) (string, error) {
	name, ok := blobWireNames[blobType]
	if !ok {
		return "", hosterr.WithCode(hosterr.CodeBadFlags,
			fmt.Errorf("%w: blob type 0x%X", hosterr.ErrInvalidParameter, blobType))
	}
	return name, nil
}

// keySpecWireName maps a host key specification to the backend's wire name.
func keySpecWireName(keySpec uint32) (string, error) {
	switch keySpec {
	case KeySpecExchange:
		return backendv1.KeySpecExchange, nil
	case KeySpecSignature:
		return backendv1.KeySpecSignature, nil
	default:
		return "", hosterr.WithCode(hosterr.CodeBadFlags,
			fmt.Errorf("%w: key spec %d", hosterr.ErrInvalidParameter, keySpec))
	}
}
