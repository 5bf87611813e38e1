// Copyright (c) 2025 ludicrypt
//
// This file is part of supacrypt-core.
//
// Licensed under the MIT License.
// See LICENSE file or visit https://opensource.org/license/mit

package hosterr

import "fmt"

// Code is a host status code. The numeric values are the host
// interface's native error space and must not be renumbered; the host
// compares them against its own constants.
type Code uint32

const (
	// CodeSuccess is the zero value; operations that succeed never set a code.
	CodeSuccess Code = 0x00000000

	// CodeBadParameter reports a malformed or unsupported parameter.
	CodeBadParameter Code = 0x80090014

	// CodeProviderFail reports that the provider layer itself failed to
	// initialize or is unusable.
	CodeProviderFail Code = 0x8009001D

	// CodeNoKey reports that the referenced key does not exist.
	CodeNoKey Code = 0x8009000D

	// CodeBadKey reports an unusable key or a key-specification mismatch.
	CodeBadKey Code = 0x80090003

	// CodeBadAlgorithm reports an unknown or unsupported algorithm identifier.
	CodeBadAlgorithm Code = 0x80090008

	// CodeBadFlags reports unsupported operation flags.
	CodeBadFlags Code = 0x80090009

	// CodeBadContainer reports a missing or inaccessible key container.
	CodeBadContainer Code = 0x80090016

	// CodeBadSignature reports a signature that failed verification.
	CodeBadSignature Code = 0x80090006

	// CodeBadHash reports an unusable hash object or digest.
	CodeBadHash Code = 0x80090002

	// CodeBadData reports malformed input data.
	CodeBadData Code = 0x80090005

	// CodeBadLength reports an out-of-range length.
	CodeBadLength Code = 0x80090004

	// CodeMoreData reports that the caller's buffer is too small; the
	// required size has been returned in its place.
	CodeMoreData Code = 0x000000EA

	// CodeNotSupported reports an operation the provider does not implement.
	CodeNotSupported Code = 0x80090029

	// CodePermissionDenied reports an authorization failure.
	CodePermissionDenied Code = 0x80090010

	// CodeKeyExists reports a key or container collision.
	CodeKeyExists Code = 0x8009000F

	// CodeBadHandle reports an unknown, retired, or wrong-kind handle.
	CodeBadHandle Code = 0x8009000B

	// CodeInternalError is the generic failure code for everything the
	// taxonomy cannot map more specifically, network faults included.
	CodeInternalError Code = 0x80090020
)

// codeDescriptions backs Description. Keep in sync with the constants above.
var codeDescriptions = map[Code]string{
	CodeSuccess:          "operation completed successfully",
	CodeBadParameter:     "invalid parameter",
	CodeProviderFail:     "provider failure",
	CodeNoKey:            "key does not exist",
	CodeBadKey:           "bad key",
	CodeBadAlgorithm:     "unknown or unsupported algorithm",
	CodeBadFlags:         "invalid flags",
	CodeBadContainer:     "key container does not exist or is inaccessible",
	CodeBadSignature:     "invalid signature",
	CodeBadHash:          "bad hash object",
	CodeBadData:          "bad data",
	CodeBadLength:        "bad length",
	CodeMoreData:         "buffer too small, more data available",
	CodeNotSupported:     "operation not supported",
	CodePermissionDenied: "permission denied",
	CodeKeyExists:        "key already exists",
	CodeBadHandle:        "invalid handle",
	CodeInternalError:    "internal error",
}

// Description returns a human-readable description for a host code.
// Unknown codes get a generic description rather than an empty string,
// so the host's get-last-error pattern always yields usable text.
func Description(c Code) string {
	if d, ok := codeDescriptions[c]; ok {
		return d
	}
	return fmt.Sprintf("unknown error 0x%08X", uint32(c))
}

// AllCodes lists every defined host code. Used by totality tests.
func AllCodes() []Code {
	codes := make([]Code, 0, len(codeDescriptions))
	for c := range codeDescriptions {
		codes = append(codes, c)
	}
	return codes
}
