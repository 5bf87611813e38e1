// Copyright (c) 2025 ludicrypt
//
// This file is part of supacrypt-core.
//
// Licensed under the MIT License.
// See LICENSE file or visit https://opensource.org/license/mit

package backendv1

import "fmt"

// ErrorCode is the backend's application-level error vocabulary. It is
// independent of gRPC status codes: a response can arrive with
// codes.OK at the transport layer and still carry a non-empty
// ErrorCode in its envelope.
type ErrorCode string

const (
	// ErrorCodeUnspecified is the zero value; treat as an internal failure.
	ErrorCodeUnspecified ErrorCode = ""

	// ErrorCodeKeyNotFound indicates the referenced key does not exist.
	ErrorCodeKeyNotFound ErrorCode = "KEY_NOT_FOUND"

	// ErrorCodeKeyExists indicates a key with the same identifier already exists.
	ErrorCodeKeyExists ErrorCode = "KEY_EXISTS"

	// ErrorCodeContainerNotFound indicates the key container does not exist.
	ErrorCodeContainerNotFound ErrorCode = "CONTAINER_NOT_FOUND"

	// ErrorCodeAlgorithmUnsupported indicates the backend cannot service the
	// requested algorithm or key size.
	ErrorCodeAlgorithmUnsupported ErrorCode = "ALGORITHM_UNSUPPORTED"

	// ErrorCodeInvalidArgument indicates a malformed or out-of-range request field.
	ErrorCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// ErrorCodeSignatureInvalid indicates signature verification failed.
	ErrorCodeSignatureInvalid ErrorCode = "SIGNATURE_INVALID"

	// ErrorCodePermissionDenied indicates the caller is not authorized for the
	// key or operation.
	ErrorCodePermissionDenied ErrorCode = "PERMISSION_DENIED"

	// ErrorCodeQuotaExceeded indicates the tenant exceeded its operation quota.
	ErrorCodeQuotaExceeded ErrorCode = "QUOTA_EXCEEDED"

	// ErrorCodeKeyNotExportable indicates the key's policy forbids export.
	ErrorCodeKeyNotExportable ErrorCode = "KEY_NOT_EXPORTABLE"

	// ErrorCodeInternal indicates an unclassified backend failure.
	ErrorCodeInternal ErrorCode = "INTERNAL"
)

// Codes lists every defined backend error code. Translation tables are
// tested for totality against this slice.
func Codes() []ErrorCode {
	return []ErrorCode{
		ErrorCodeUnspecified,
		ErrorCodeKeyNotFound,
		ErrorCodeKeyExists,
		ErrorCodeContainerNotFound,
		ErrorCodeAlgorithmUnsupported,
		ErrorCodeInvalidArgument,
		ErrorCodeSignatureInvalid,
		ErrorCodePermissionDenied,
		ErrorCodeQuotaExceeded,
		ErrorCodeKeyNotExportable,
		ErrorCodeInternal,
	}
}

// BackendError is the in-band failure envelope attached to responses.
type BackendError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message,omitempty"`
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend error %s", e.Code)
	}
	return fmt.Sprintf("backend error %s: %s", e.Code, e.Message)
}
