// Sage
// Copyright (c) Sage contributors
// SPDX-License-Identifier: Apache-2.0

package graph

import "sync"

// GraphContext is a per-execution associative map from opaque keys to
// opaque values. All execution-time state (satisfaction counters,
// channel bookkeeping, branching state) lives exclusively here; the
// static graph is never mutated during execution. Values stored under
// one GraphContext are never visible from another — each execution gets
// a fresh, isolated context.
type GraphContext struct {
	mu   sync.Mutex
	data map[interface{}]interface{}
}

// NewGraphContext builds an empty, isolated execution context.
func NewGraphContext() *GraphContext {
	return &GraphContext{data: make(map[interface{}]interface{})}
}

// Get returns the value stored under key and whether it was present.
func (c *GraphContext) Get(key interface{}) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok
}

// Set stores value under key, overwriting any previous value.
func (c *GraphContext) Set(key, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
}

// Delete removes key from the context, if present.
func (c *GraphContext) Delete(key interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}
