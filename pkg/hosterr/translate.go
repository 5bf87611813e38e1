// Copyright (c) 2025 ludicrypt
//
// This file is part of supacrypt-core.
//
// Licensed under the MIT License.
// See LICENSE file or visit https://opensource.org/license/mit

package hosterr

import (
	"errors"

	"google.golang.org/grpc/codes"

	"github.com/ludicrypt/supacrypt-core/api/backendv1"
)

// transportCodes maps gRPC status codes to host codes. Anything absent
// falls back to CodeInternalError.
var transportCodes = map[codes.Code]Code{
	codes.OK:                 CodeSuccess,
	codes.InvalidArgument:    CodeBadParameter,
	codes.NotFound:           CodeNoKey,
	codes.AlreadyExists:      CodeKeyExists,
	codes.PermissionDenied:   CodePermissionDenied,
	codes.Unauthenticated:    CodePermissionDenied,
	codes.Unimplemented:      CodeNotSupported,
	codes.OutOfRange:         CodeBadLength,
	codes.DeadlineExceeded:   CodeInternalError,
	codes.Canceled:           CodeInternalError,
	codes.Unavailable:        CodeInternalError,
	codes.ResourceExhausted:  CodeInternalError,
	codes.FailedPrecondition: CodeInternalError,
	codes.Aborted:            CodeInternalError,
	codes.DataLoss:           CodeInternalError,
	codes.Internal:           CodeInternalError,
	codes.Unknown:            CodeInternalError,
}

// TranslateTransportToHost maps a gRPC status code to the host's error
// space. Total: unmapped codes become CodeInternalError.
func TranslateTransportToHost(c codes.Code) Code {
	if hc, ok := transportCodes[c]; ok {
		return hc
	}
	return CodeInternalError
}

// backendCodes maps backend domain errors to host codes. Anything absent
// falls back to CodeInternalError.
var backendCodes = map[backendv1.ErrorCode]Code{
	backendv1.ErrorCodeKeyNotFound:          CodeNoKey,
	backendv1.ErrorCodeKeyExists:            CodeKeyExists,
	backendv1.ErrorCodeContainerNotFound:    CodeBadContainer,
	backendv1.ErrorCodeAlgorithmUnsupported: CodeBadAlgorithm,
	backendv1.ErrorCodeInvalidArgument:      CodeBadParameter,
	backendv1.ErrorCodeSignatureInvalid:     CodeBadSignature,
	backendv1.ErrorCodePermissionDenied:     CodePermissionDenied,
	backendv1.ErrorCodeQuotaExceeded:        CodeInternalError,
	backendv1.ErrorCodeKeyNotExportable:     CodeBadKey,
	backendv1.ErrorCodeInternal:             CodeInternalError,
}

// TranslateBackendToHost maps a backend domain error to the host's
// error space. Total: unmapped codes become CodeInternalError.
func TranslateBackendToHost(c backendv1.ErrorCode) Code {
	if hc, ok := backendCodes[c]; ok {
		return hc
	}
	return CodeInternalError
}

// hostToBackend is the inverse mapping used when a request needs to echo
// expected error semantics back to the backend. It is deliberately lossy:
// several host codes collapse onto INVALID_ARGUMENT, and transport-only
// conditions have no backend equivalent and collapse onto INTERNAL.
var hostToBackend = map[Code]backendv1.ErrorCode{
	CodeNoKey:            backendv1.ErrorCodeKeyNotFound,
	CodeKeyExists:        backendv1.ErrorCodeKeyExists,
	CodeBadContainer:     backendv1.ErrorCodeContainerNotFound,
	CodeBadAlgorithm:     backendv1.ErrorCodeAlgorithmUnsupported,
	CodeBadSignature:     backendv1.ErrorCodeSignatureInvalid,
	CodePermissionDenied: backendv1.ErrorCodePermissionDenied,
	CodeBadKey:           backendv1.ErrorCodeKeyNotExportable,
	CodeBadParameter:     backendv1.ErrorCodeInvalidArgument,
	CodeBadFlags:         backendv1.ErrorCodeInvalidArgument,
	CodeBadLength:        backendv1.ErrorCodeInvalidArgument,
	CodeBadData:          backendv1.ErrorCodeInvalidArgument,
}

// TranslateHostToBackend maps a host code to the closest backend domain
// error. Total: unmapped codes become INTERNAL.
func TranslateHostToBackend(c Code) backendv1.ErrorCode {
	if bc, ok := hostToBackend[c]; ok {
		return bc
	}
	return backendv1.ErrorCodeInternal
}

// backendErrorIn extracts a backend error envelope from a wrapped chain.
func backendErrorIn(err error) *backendv1.BackendError {
	var be *backendv1.BackendError
	if errors.As(err, &be) {
		return be
	}
	return nil
}
