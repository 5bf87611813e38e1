// Copyright (c) 2025 ludicrypt
//
// This file is part of supacrypt-core.
//
// Licensed under the MIT License.
// See LICENSE file or visit https://opensource.org/license/mit

package handle

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludicrypt/supacrypt-core/pkg/hosterr"
)

func TestCreateResolveRetire(t *testing.T) {
	tbl := NewTable()

	hProv, err := tbl.Create(KindProvider, "ctx", 0)
	require.NoError(t, err)
	assert.NotZero(t, hProv)

	v, err := tbl.Resolve(hProv, KindProvider)
	require.NoError(t, err)
	assert.Equal(t, "ctx", v)

	require.NoError(t, tbl.Retire(hProv))

	_, err = tbl.Resolve(hProv, KindProvider)
	assert.ErrorIs(t, err, hosterr.ErrInvalidHandle)
}

func TestResolveWrongKind(t *testing.T) {
	tbl := NewTable()
	hProv, err := tbl.Create(KindProvider, nil, 0)
	require.NoError(t, err)

	_, err = tbl.Resolve(hProv, KindKey)
	assert.ErrorIs(t, err, hosterr.ErrInvalidHandle)
}

func TestCreateRequiresLiveProviderParent(t *testing.T) {
	tbl := NewTable()

	_, err := tbl.Create(KindKey, nil, 0)
	assert.ErrorIs(t, err, hosterr.ErrInvalidHandle)

	hProv, err := tbl.Create(KindProvider, nil, 0)
	require.NoError(t, err)
	require.NoError(t, tbl.Retire(hProv))

	_, err = tbl.Create(KindKey, nil, hProv)
	assert.ErrorIs(t, err, hosterr.ErrInvalidHandle)
}

func TestProviderHandleHasNoParent(t *testing.T) {
	tbl := NewTable()
	hProv, err := tbl.Create(KindProvider, nil, 0)
	require.NoError(t, err)

	_, err = tbl.Create(KindProvider, nil, hProv)
	assert.ErrorIs(t, err, hosterr.ErrInvalidParameter)
}

func TestRetireCascades(t *testing.T) {
	tbl := NewTable()
	hProv, err := tbl.Create(KindProvider, nil, 0)
	require.NoError(t, err)
	hKey, err := tbl.Create(KindKey, nil, hProv)
	require.NoError(t, err)
	hHash, err := tbl.Create(KindHash, nil, hProv)
	require.NoError(t, err)

	require.NoError(t, tbl.Retire(hProv))

	_, err = tbl.Resolve(hKey, KindKey)
	assert.ErrorIs(t, err, hosterr.ErrInvalidHandle)
	_, err = tbl.Resolve(hHash, KindHash)
	assert.ErrorIs(t, err, hosterr.ErrInvalidHandle)
	assert.Zero(t, tbl.Len())
}

func TestRetireChildThenProvider(t *testing.T) {
	tbl := NewTable()
	hProv, err := tbl.Create(KindProvider, nil, 0)
	require.NoError(t, err)
	hKey, err := tbl.Create(KindKey, nil, hProv)
	require.NoError(t, err)

	require.NoError(t, tbl.Retire(hKey))
	// Cascade must tolerate the already retired child.
	require.NoError(t, tbl.Retire(hProv))
	assert.Zero(t, tbl.Len())
}

func TestDoubleRetireFails(t *testing.T) {
	tbl := NewTable()
	h, err := tbl.Create(KindProvider, nil, 0)
	require.NoError(t, err)
	require.NoError(t, tbl.Retire(h))

	err = tbl.Retire(h)
	assert.ErrorIs(t, err, hosterr.ErrInvalidHandle)
}

func TestStaleGenerationDetected(t *testing.T) {
	tbl := NewTable()
	h1, err := tbl.Create(KindProvider, "first", 0)
	require.NoError(t, err)
	require.NoError(t, tbl.Retire(h1))

	// The slot is reused; the stale handle must not resolve to the new
	// occupant.
	h2, err := tbl.Create(KindProvider, "second", 0)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)

	_, err = tbl.Resolve(h1, KindProvider)
	assert.ErrorIs(t, err, hosterr.ErrInvalidHandle)

	v, err := tbl.Resolve(h2, KindProvider)
	require.NoError(t, err)
	assert.Equal(t, "second", v)
}

func TestOwnerAndChildren(t *testing.T) {
	tbl := NewTable()
	hProv, err := tbl.Create(KindProvider, nil, 0)
	require.NoError(t, err)
	hKey, err := tbl.Create(KindKey, nil, hProv)
	require.NoError(t, err)

	owner, err := tbl.Owner(hKey)
	require.NoError(t, err)
	assert.Equal(t, hProv, owner)

	children := tbl.Children(hProv)
	assert.Equal(t, []Handle{hKey}, children)

	require.NoError(t, tbl.Retire(hKey))
	assert.Empty(t, tbl.Children(hProv))
}

func TestUnknownKindRejected(t *testing.T) {
	tbl := NewTable()
	_, err := tbl.Create(Kind(99), nil, 0)
	assert.ErrorIs(t, err, hosterr.ErrInvalidParameter)
}

func TestConcurrentCreateRetire(t *testing.T) {
	tbl := NewTable()
	hProv, err := tbl.Create(KindProvider, nil, 0)
	require.NoError(t, err)

	const workers = 16
	const perWorker = 100

	var wg sync.WaitGroup
	errCh := make(chan error, workers*perWorker)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				h, err := tbl.Create(KindKey, j, hProv)
				if err != nil {
					errCh <- err
					continue
				}
				if _, err := tbl.Resolve(h, KindKey); err != nil {
					errCh <- err
				}
				if err := tbl.Retire(h); err != nil {
					errCh <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("concurrent operation failed: %v", err)
	}
	assert.Equal(t, 1, tbl.Len())
}

func TestRacingRetireIsDeterministic(t *testing.T) {
	tbl := NewTable()
	hProv, err := tbl.Create(KindProvider, nil, 0)
	require.NoError(t, err)
	hKey, err := tbl.Create(KindKey, nil, hProv)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			results[slot] = tbl.Retire(hKey)
		}(i)
	}
	wg.Wait()

	// Exactly one retire wins; the other observes a dead handle.
	var failures int
	for _, err := range results {
		if err != nil {
			assert.True(t, errors.Is(err, hosterr.ErrInvalidHandle))
			failures++
		}
	}
	assert.Equal(t, 1, failures)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "provider", KindProvider.String())
	assert.Equal(t, "key", KindKey.String())
	assert.Equal(t, "hash", KindHash.String())
	assert.Contains(t, Kind(42).String(), "42")
}
