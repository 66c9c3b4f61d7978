// Sage
// Copyright (c) Sage contributors
// SPDX-License-Identifier: Apache-2.0

package respool_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagesim/sage/respool"
)

func TestTryAcquireFailsWhenInsufficientAndNoOverbook(t *testing.T) {
	p := respool.New(respool.Config{Capacity: 5})

	req, ok := p.TryAcquire(3)
	require.True(t, ok)
	require.NotNil(t, req)

	_, ok = p.TryAcquire(3)
	assert.False(t, ok, "only 2 remain and overbook is zero")
}

func TestTryAcquireSucceedsWithinOverbook(t *testing.T) {
	p := respool.New(respool.Config{Capacity: 2, Overbook: 3})

	_, ok := p.TryAcquire(4)
	assert.True(t, ok, "4 - 2 = 2 of overbook used, within the 3 permitted")

	_, ok = p.TryAcquire(2)
	assert.False(t, ok, "would need 2 more of overbook than the 1 remaining")
}

func TestAcquireGrantsFIFOAsCapacityFrees(t *testing.T) {
	p := respool.New(respool.Config{Capacity: 1})

	first, err := p.Acquire(context.Background(), 1)
	require.NoError(t, err)

	type result struct {
		order int
		req   *respool.Request
	}
	results := make(chan result, 2)
	go func() {
		req, err := p.Acquire(context.Background(), 1)
		require.NoError(t, err)
		results <- result{order: 1, req: req}
	}()
	time.Sleep(10 * time.Millisecond) // let the first waiter enqueue before the second

	go func() {
		req, err := p.Acquire(context.Background(), 1)
		require.NoError(t, err)
		results <- result{order: 2, req: req}
	}()
	time.Sleep(10 * time.Millisecond)

	require.NoError(t, p.Release(first))
	r1 := <-results
	assert.Equal(t, 1, r1.order, "the earlier-queued waiter must be granted first")

	require.NoError(t, p.Release(r1.req))
	r2 := <-results
	assert.Equal(t, 2, r2.order)
	require.NoError(t, p.Release(r2.req))
}

func TestAcquireUnblocksOnContextCancel(t *testing.T) {
	p := respool.New(respool.Config{Capacity: 1})
	_, err := p.Acquire(context.Background(), 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := p.Acquire(ctx, 1)
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("Acquire did not unblock after context cancellation")
	}
}

func TestAbortOfAGrantedRequestFails(t *testing.T) {
	p := respool.New(respool.Config{Capacity: 1})
	req, err := p.Acquire(context.Background(), 1)
	require.NoError(t, err)
	require.NoError(t, p.Release(req))

	req.SetAbortHandler(func() {})
	assert.Error(t, p.Abort(req), "a granted request cannot be aborted")
}

func TestCloseUnblocksEveryWaiter(t *testing.T) {
	p := respool.New(respool.Config{Capacity: 1})
	_, err := p.Acquire(context.Background(), 1)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := p.Acquire(context.Background(), 1)
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	p.Close()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("Close did not unblock the waiting Acquire")
	}
}
