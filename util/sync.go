// Sage
// Copyright (c) Sage contributors
// SPDX-License-Identifier: Apache-2.0

package util

import (
	"sync"
)

// EasyAck wraps a close-once channel signal behind a simple interface.
// respool.Pool hands one of these to every queued Request: TryAcquire
// fires it immediately, Acquire's waiter fires it once tryDrainLocked
// reaches the front of the queue, and the caller blocks on Wait until
// either happens.
type EasyAck struct {
	done chan struct{}
}

// NewEasyAck builds the object. This must be called before use.
func NewEasyAck() *EasyAck {
	return &EasyAck{
		done: make(chan struct{}),
	}
}

// Ack sends the acknowledgment message. This can only be called once.
func (obj *EasyAck) Ack() {
	close(obj.done)
}

// Wait returns a channel that you can wait on for the ack message.
func (obj *EasyAck) Wait() <-chan struct{} {
	return obj.done
}

// EasyOnce wraps sync.Once so the run-once function can be registered at
// declaration time instead of at the call site. util/semaphore.Semaphore
// uses this to make Close idempotent: an Engine that closes its
// concurrency-limiting semaphore on both a successful and an erroring
// shutdown path must not panic on the second close.
type EasyOnce struct {
	Func func()

	once *sync.Once
}

// Done runs the function which was defined in `Func` a maximum of once. Please
// note that this is not currently thread-safe. Wrap calls to this with a mutex.
func (obj *EasyOnce) Done() {
	if obj.once == nil {
		// we must initialize it!
		obj.once = &sync.Once{}
	}
	if obj.Func != nil {
		obj.once.Do(obj.Func)
	}
}

// EasyExit builds a close switch and signal that may be triggered and
// observed from many goroutines safely. respool.Pool holds one as its
// closer: every Acquire wires the exit signal into its own context via
// ContextWithCloser, so a single Pool.Close unblocks every waiter at
// once, the way a graph context's teardown must unblock every
// outstanding Acquire issued under it.
type EasyExit struct {
	mutex *sync.Mutex
	exit  chan struct{}
	once  *sync.Once
	err   error
}

// NewEasyExit builds an easy exit struct.
func NewEasyExit() *EasyExit {
	return &EasyExit{
		mutex: &sync.Mutex{},
		exit:  make(chan struct{}),
		once:  &sync.Once{},
	}
}

// Done triggers the exit signal. It associates an error condition with it too.
// This is thread-safe.
func (obj *EasyExit) Done(err error) {
	obj.mutex.Lock()
	defer obj.mutex.Unlock()
	if obj.once == nil { // redundant
		// we must initialize it!
		obj.once = &sync.Once{}
	}
	if err != nil {
		// TODO: we could add a mutex, and turn this into a multierr
		obj.err = err
	}
	obj.once.Do(func() { close(obj.exit) })
}

// Signal returns the channel that we watch for the exit signal on. It will
// close to signal us when triggered by Exit().
func (obj *EasyExit) Signal() <-chan struct{} {
	return obj.exit
}

// Error returns the error condition associated with the Done signal. It blocks
// until Done is called at least once. It then returns any of the errors or nil.
// It is only guaranteed to at least return the error from the first Done error.
func (obj *EasyExit) Error() error {
	<-obj.exit
	return obj.err
}
