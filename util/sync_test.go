// Sage
// Copyright (c) Sage contributors
// SPDX-License-Identifier: Apache-2.0

package util_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sagesim/sage/util"
)

// TestEasyAckWaitUnblocksOnceAcked exercises the respool.Request.granted
// pattern: TryAcquire builds an EasyAck and Acks it immediately, and the
// caller's Wait must observe that without blocking.
func TestEasyAckWaitUnblocksOnceAcked(t *testing.T) {
	ack := util.NewEasyAck()
	ack.Ack()

	select {
	case <-ack.Wait():
	case <-time.After(time.Second):
		t.Fatal("Wait did not observe an already-sent Ack")
	}
}

// TestEasyAckWaitBlocksUntilAcked exercises the Acquire pattern: a
// waiter's EasyAck must not appear acked before tryDrainLocked reaches
// it.
func TestEasyAckWaitBlocksUntilAcked(t *testing.T) {
	ack := util.NewEasyAck()
	select {
	case <-ack.Wait():
		t.Fatal("Wait fired before Ack was ever called")
	default:
	}

	ack.Ack()
	select {
	case <-ack.Wait():
	case <-time.After(time.Second):
		t.Fatal("Wait did not observe Ack after it was called")
	}
}

// TestEasyExitSignalsEveryWaiter covers the Pool.Close fan-out: one Done
// call must close Signal() for every goroutine watching it, and Error
// must return the error recorded by the first Done call.
func TestEasyExitSignalsEveryWaiter(t *testing.T) {
	exit := util.NewEasyExit()

	const waiters = 8
	results := make(chan bool, waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			select {
			case <-exit.Signal():
				results <- true
			case <-time.After(time.Second):
				results <- false
			}
		}()
	}

	exit.Done(assertErr)
	for i := 0; i < waiters; i++ {
		assert.True(t, <-results, "every waiter must observe the exit signal")
	}
	assert.Equal(t, assertErr, exit.Error())
}

// TestEasyExitDoneIsIdempotent covers Pool.Close being safe to call from
// more than one shutdown path.
func TestEasyExitDoneIsIdempotent(t *testing.T) {
	exit := util.NewEasyExit()
	assert.NotPanics(t, func() {
		exit.Done(nil)
		exit.Done(assertErr)
	})
	assert.Equal(t, assertErr, exit.Error(), "a non-nil error from a later Done call is still recorded")
}

// TestEasyOnceRunsFuncExactlyOnce covers the idempotent-Close guard
// util/semaphore.Semaphore builds on top of EasyOnce.
func TestEasyOnceRunsFuncExactlyOnce(t *testing.T) {
	var runs int
	once := util.EasyOnce{Func: func() { runs++ }}

	once.Done()
	once.Done()
	once.Done()

	assert.Equal(t, 1, runs)
}

var assertErr = errTestEasyExit("pool closed")

type errTestEasyExit string

func (e errTestEasyExit) Error() string { return string(e) }
