// Sage
// Copyright (c) Sage contributors
// SPDX-License-Identifier: Apache-2.0

// Package semaphore contains the counting semaphore exec.Engine uses to
// cap how many edge delegates may run concurrently (Config.MaxInFlight).
package semaphore

import (
	"fmt"

	"github.com/sagesim/sage/util"
)

// Semaphore is a counting semaphore. It must be initialized before use.
// An Engine holds at most one, sized by Config.MaxInFlight, and acquires
// one resource per runEdge call via P before invoking a delegate,
// releasing it via V once the delegate signals completion.
type Semaphore struct {
	C      chan struct{}
	closed chan struct{}

	closeOnce util.EasyOnce
}

// NewSemaphore creates a new semaphore.
func NewSemaphore(size int) *Semaphore {
	obj := &Semaphore{}
	obj.Init(size)
	return obj
}

// Init initializes the semaphore.
func (obj *Semaphore) Init(size int) {
	obj.C = make(chan struct{}, size)
	obj.closed = make(chan struct{})
	obj.closeOnce = util.EasyOnce{Func: func() { close(obj.closed) }}
}

// Close shuts down the semaphore and releases all the locks. Safe to
// call more than once: an Engine may close its semaphore from both a
// successful and an erroring shutdown path, and the second call must be
// a no-op rather than a panic on an already-closed channel.
func (obj *Semaphore) Close() {
	// TODO: we could return an error if any semaphores were killed, but
	// it's not particularly useful to know that for this application...
	obj.closeOnce.Done()
}

// P acquires n resources.
func (obj *Semaphore) P(n int) error {
	for i := 0; i < n; i++ {
		select {
		case obj.C <- struct{}{}: // acquire one
		case <-obj.closed: // exit signal
			return fmt.Errorf("closed")
		}
	}
	return nil
}

// V releases n resources.
func (obj *Semaphore) V(n int) error {
	for i := 0; i < n; i++ {
		select {
		case <-obj.C: // release one
		// TODO: is the closed signal needed if unlocks should always pass?
		case <-obj.closed: // exit signal
			return fmt.Errorf("closed")
		// TODO: is it true you shouldn't call a release before a lock?
		default: // trying to release something that isn't locked
			panic("semaphore: V > P")
		}
	}
	return nil
}
