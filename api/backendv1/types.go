// Copyright (c) 2025 ludicrypt
//
// This file is part of supacrypt-core.
//
// Licensed under the MIT License.
// See LICENSE file or visit https://opensource.org/license/mit

package backendv1

// Wire names for key specifications.
const (
	KeySpecExchange  = "exchange"
	KeySpecSignature = "signature"
)

// HealthRequest asks the backend for its liveness and version.
type HealthRequest struct{}

// HealthResponse reports backend status.
type HealthResponse struct {
	Error   *BackendError `json:"error,omitempty"`
	Status  string        `json:"status"`
	Version string        `json:"version,omitempty"`
}

// GenerateKeyRequest asks the backend to create a key pair inside a
// container. KeyBits of zero lets the backend pick its default size.
type GenerateKeyRequest struct {
	Container  string `json:"container"`
	KeySpec    string `json:"key_spec"`
	Algorithm  string `json:"algorithm"`
	KeyBits    uint32 `json:"key_bits,omitempty"`
	Exportable bool   `json:"exportable,omitempty"`
}

// GenerateKeyResponse returns the backend-assigned key identifier.
type GenerateKeyResponse struct {
	Error     *BackendError `json:"error,omitempty"`
	KeyID     string        `json:"key_id"`
	Algorithm string        `json:"algorithm"`
	KeyBits   uint32        `json:"key_bits"`
	PublicKey []byte        `json:"public_key,omitempty"`
}

// GetKeyRequest resolves the key filling a given role in a container.
type GetKeyRequest struct {
	Container string `json:"container"`
	KeySpec   string `json:"key_spec"`
}

// GetKeyResponse describes an existing key.
type GetKeyResponse struct {
	Error     *BackendError `json:"error,omitempty"`
	KeyID     string        `json:"key_id"`
	Algorithm string        `json:"algorithm"`
	KeyBits   uint32        `json:"key_bits"`
	KeySpec   string        `json:"key_spec"`
	PublicKey []byte        `json:"public_key,omitempty"`
}

// ListKeysRequest lists every key in a container.
type ListKeysRequest struct {
	Container string `json:"container"`
}

// KeyInfo is one entry in a ListKeysResponse.
type KeyInfo struct {
	KeyID     string `json:"key_id"`
	KeySpec   string `json:"key_spec"`
	Algorithm string `json:"algorithm"`
	KeyBits   uint32 `json:"key_bits"`
}

// ListKeysResponse enumerates a container's keys.
type ListKeysResponse struct {
	Error *BackendError `json:"error,omitempty"`
	Keys  []KeyInfo     `json:"keys"`
}

// DeleteKeyRequest destroys a key on the backend.
type DeleteKeyRequest struct {
	KeyID string `json:"key_id"`
}

// DeleteKeyResponse acknowledges key destruction.
type DeleteKeyResponse struct {
	Error *BackendError `json:"error,omitempty"`
}

// SignDataRequest signs data with a backend key. The backend hashes the
// data itself with HashAlgorithm before signing.
type SignDataRequest struct {
	KeyID         string `json:"key_id"`
	Data          []byte `json:"data"`
	HashAlgorithm string `json:"hash_algorithm"`
}

// SignDataResponse carries the produced signature.
type SignDataResponse struct {
	Error     *BackendError `json:"error,omitempty"`
	Signature []byte        `json:"signature"`
}

// VerifySignatureRequest checks a signature against data.
type VerifySignatureRequest struct {
	KeyID         string `json:"key_id"`
	Data          []byte `json:"data"`
	Signature     []byte `json:"signature"`
	HashAlgorithm string `json:"hash_algorithm"`
}

// VerifySignatureResponse reports the verification outcome. An invalid
// signature arrives as Error=SIGNATURE_INVALID with Valid=false, so the
// caller can distinguish "checked and wrong" from transport failure.
type VerifySignatureResponse struct {
	Error *BackendError `json:"error,omitempty"`
	Valid bool          `json:"valid"`
}

// EncryptDataRequest encrypts a block of data with a backend key.
type EncryptDataRequest struct {
	KeyID string `json:"key_id"`
	Data  []byte `json:"data"`
	Final bool   `json:"final"`
}

// EncryptDataResponse carries the ciphertext.
type EncryptDataResponse struct {
	Error      *BackendError `json:"error,omitempty"`
	Ciphertext []byte        `json:"ciphertext"`
}

// DecryptDataRequest decrypts a block of data with a backend key.
type DecryptDataRequest struct {
	KeyID string `json:"key_id"`
	Data  []byte `json:"data"`
	Final bool   `json:"final"`
}

// DecryptDataResponse carries the plaintext.
type DecryptDataResponse struct {
	Error     *BackendError `json:"error,omitempty"`
	Plaintext []byte        `json:"plaintext"`
}

// ComputeHashRequest asks the backend to digest data. KeyID is set only
// for keyed algorithms (HMAC).
type ComputeHashRequest struct {
	Algorithm string `json:"algorithm"`
	Data      []byte `json:"data"`
	KeyID     string `json:"key_id,omitempty"`
}

// ComputeHashResponse carries the digest.
type ComputeHashResponse struct {
	Error  *BackendError `json:"error,omitempty"`
	Digest []byte        `json:"digest"`
}

// DeriveKeyRequest derives a symmetric key from digest material.
type DeriveKeyRequest struct {
	Container string `json:"container"`
	Algorithm string `json:"algorithm"`
	KeyBits   uint32 `json:"key_bits,omitempty"`
	BaseData  []byte `json:"base_data"`
}

// DeriveKeyResponse returns the derived key's identifier.
type DeriveKeyResponse struct {
	Error     *BackendError `json:"error,omitempty"`
	KeyID     string        `json:"key_id"`
	Algorithm string        `json:"algorithm"`
	KeyBits   uint32        `json:"key_bits"`
}

// ImportKeyRequest imports wrapped key material into a container.
type ImportKeyRequest struct {
	Container string `json:"container"`
	KeySpec   string `json:"key_spec"`
	BlobType  string `json:"blob_type"`
	Blob      []byte `json:"blob"`
}

// ImportKeyResponse describes the imported key.
type ImportKeyResponse struct {
	Error     *BackendError `json:"error,omitempty"`
	KeyID     string        `json:"key_id"`
	Algorithm string        `json:"algorithm"`
	KeyBits   uint32        `json:"key_bits"`
	KeySpec   string        `json:"key_spec"`
}

// ExportKeyRequest exports a key as a wrapped blob.
type ExportKeyRequest struct {
	KeyID    string `json:"key_id"`
	BlobType string `json:"blob_type"`
}

// ExportKeyResponse carries the exported blob.
type ExportKeyResponse struct {
	Error    *BackendError `json:"error,omitempty"`
	BlobType string        `json:"blob_type"`
	Blob     []byte        `json:"blob"`
}

// GenerateRandomRequest asks the backend for random bytes.
type GenerateRandomRequest struct {
	Length uint32 `json:"length"`
}

// GenerateRandomResponse carries the random bytes.
type GenerateRandomResponse struct {
	Error *BackendError `json:"error,omitempty"`
	Data  []byte        `json:"data"`
}
