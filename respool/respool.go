// Sage
// Copyright (c) Sage contributors
// SPDX-License-Identifier: Apache-2.0

// Package respool implements the shared-resource policy of spec §5: a
// single resource manager per pool, requests served FIFO from a waiter
// queue, an optional overbook scalar letting the pool go negative to
// service an otherwise-blocked request, and abort handlers fired
// synchronously on the abort path. It extends
// util/semaphore.Semaphore's plain counting P/V pair with the waiter
// queue and overbook scalar a semaphore alone cannot express, and
// optionally rate-limits how fast the waiter queue drains using
// golang.org/x/time/rate, the same limiter type purpleidea/mgmt's
// engine/graph/actions.go uses to throttle watch/checkapply retries.
package respool

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/sagesim/sage/sageerr"
	"github.com/sagesim/sage/util"
)

// Config is the immutable configuration a Pool is built from, replacing
// the global mutable statics the design notes call out.
type Config struct {
	// Capacity is the pool's nominal size.
	Capacity float64
	// Overbook is the permitted negative excursion below zero used to
	// service an otherwise-blocked request. Zero means no overbook.
	Overbook float64
	// Limiter, if non-nil, rate-limits how fast queued waiters are
	// drained.
	Limiter *rate.Limiter
}

// Request is a single outstanding claim against a Pool.
type Request struct {
	id      int64
	amount  float64
	granted *util.EasyAck
	aborted bool
	abortFn func()
	mu      sync.Mutex
}

// SetAbortHandler installs f to run synchronously if this request is
// aborted while still queued.
func (r *Request) SetAbortHandler(f func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.abortFn = f
}

// Pool is a single resource manager serving Acquire/Release requests
// FIFO, per the shared-resource policy.
type Pool struct {
	cfg Config

	mu        sync.Mutex
	available float64
	waiters   []*Request
	nextID    int64

	closer *util.EasyExit
}

// New builds a Pool from cfg.
func New(cfg Config) *Pool {
	return &Pool{cfg: cfg, available: cfg.Capacity, closer: util.NewEasyExit()}
}

// Close shuts the pool down: every Acquire currently blocked (and every
// future one) unblocks with a ResourceContentionError, the same way a
// graph context is torn down when its owning execution ends.
func (p *Pool) Close() {
	p.closer.Done(nil)
}

// TryAcquire attempts to claim amount without blocking. It returns a
// granted Request and true on success, or (nil, false) if the pool
// cannot currently service the request even counting overbook.
func (p *Pool) TryAcquire(amount float64) (*Request, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.waiters) == 0 && p.available-amount >= -p.cfg.Overbook {
		p.available -= amount
		p.nextID++
		ack := util.NewEasyAck()
		ack.Ack()
		return &Request{id: p.nextID, amount: amount, granted: ack}, true
	}
	return nil, false
}

// Acquire blocks, queueing FIFO, until amount can be serviced (allowing
// for overbook) or ctx is canceled. The returned Request must be
// released with Pool.Release once the caller is done with the resource.
// If ctx carries a WaitGroup (see util.CtxWithWg), the call registers
// against it for its full duration, letting a caller that fans Acquire
// out across goroutines wait for all of them to settle with one
// wg.Wait() instead of collecting a channel per call.
func (p *Pool) Acquire(ctx context.Context, amount float64) (*Request, error) {
	ctx, cancel := util.ContextWithCloser(ctx, p.closer.Signal())
	defer cancel()

	if wg := util.WgFromCtx(ctx); wg != nil {
		wg.Add(1)
		defer wg.Done()
	}

	p.mu.Lock()
	p.nextID++
	req := &Request{id: p.nextID, amount: amount, granted: util.NewEasyAck()}
	p.waiters = append(p.waiters, req)
	p.tryDrainLocked()
	p.mu.Unlock()

	select {
	case <-req.granted.Wait():
		return req, nil
	case <-ctx.Done():
		p.Abort(req)
		return nil, sageerr.NewResourceContentionError("acquire", ctx.Err())
	}
}

// tryDrainLocked grants waiters from the front of the queue as long as
// the pool (counting overbook) can service them. Called only while
// holding p.mu.
func (p *Pool) tryDrainLocked() {
	for len(p.waiters) > 0 {
		if p.cfg.Limiter != nil && !p.cfg.Limiter.Allow() {
			return
		}
		head := p.waiters[0]
		if p.available-head.amount < -p.cfg.Overbook {
			return // FIFO: a blocked head blocks everyone behind it
		}
		p.available -= head.amount
		p.waiters = p.waiters[1:]
		head.granted.Ack()
	}
}

// Release returns req's amount to the pool and attempts to drain queued
// waiters.
func (p *Pool) Release(req *Request) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	select {
	case <-req.granted.Wait():
	default:
		return sageerr.NewResourceContentionError("release", nil)
	}
	if req.aborted {
		return sageerr.NewResourceContentionError("release: unreserve called with a non-matching request", nil)
	}
	p.available += req.amount
	p.tryDrainLocked()
	return nil
}

// Abort cancels req while it is still queued, firing its abort handler
// synchronously. Aborting a request that has already been granted is a
// ResourceContentionError: the caller should Release instead.
func (p *Pool) Abort(req *Request) error {
	p.mu.Lock()
	idx := -1
	for i, w := range p.waiters {
		if w == req {
			idx = i
			break
		}
	}
	if idx < 0 {
		p.mu.Unlock()
		return sageerr.NewResourceContentionError("abort: request aborted while terminal (suspend-blocked)", nil)
	}
	p.waiters = append(p.waiters[:idx], p.waiters[idx+1:]...)
	req.aborted = true
	p.mu.Unlock()

	req.mu.Lock()
	fn := req.abortFn
	req.mu.Unlock()
	if fn != nil {
		fn()
	}
	return nil
}
