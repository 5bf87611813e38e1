// Copyright (c) 2025 ludicrypt
//
// This file is part of supacrypt-core.
//
// Licensed under the MIT License.
// See LICENSE file or visit https://opensource.org/license/mit

package hosterr

// codedError pins an explicit host code onto a wrapped error. The
// gateway uses it for transport failures, where the gRPC status code
// carries more specificity than the sentinel kind alone.
type codedError struct {
	code Code
	err  error
}

// WithCode returns err annotated with an explicit host code. CodeOf
// resolves the annotation ahead of the kind-based defaults. A nil err
// returns nil.
func WithCode(code Code, err error) error {
	if err == nil {
		return nil
	}
	return &codedError{code: code, err: err}
}

func (e *codedError) Error() string { return e.err.Error() }

func (e *codedError) Unwrap() error { return e.err }
