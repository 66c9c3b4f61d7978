// Sage
// Copyright (c) Sage contributors
// SPDX-License-Identifier: Apache-2.0

package respool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAbortRemovesAQueuedWaiterAndFiresItsHandler lives in-package so it
// can reach into the waiter queue directly, since a still-queued Request
// is never returned to a caller blocked in Acquire.
func TestAbortRemovesAQueuedWaiterAndFiresItsHandler(t *testing.T) {
	p := New(Config{Capacity: 1})
	p.available = 0 // simulate the pool already being fully claimed

	req := &Request{id: 1, amount: 1, granted: nil}
	p.mu.Lock()
	p.waiters = append(p.waiters, req)
	p.mu.Unlock()

	var fired bool
	req.SetAbortHandler(func() { fired = true })

	require.NoError(t, p.Abort(req))
	assert.True(t, fired)
	assert.Empty(t, p.waiters)

	assert.Error(t, p.Abort(req), "aborting an already-aborted request should fail")
}
