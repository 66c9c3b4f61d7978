// Sage
// Copyright (c) Sage contributors
// SPDX-License-Identifier: Apache-2.0

package exec

import (
	"github.com/sagesim/sage/executive"
	"github.com/sagesim/sage/graph"
	"github.com/sagesim/sage/sageerr"
)

type joinWaitersKey struct{ edge graph.EdgeID }

func (e *Engine) registerJoinWaiter(ctx *graph.GraphContext, edge graph.EdgeID, cb func()) {
	key := joinWaitersKey{edge: edge}
	raw, _ := ctx.Get(key)
	waiters, _ := raw.([]func())
	waiters = append(waiters, cb)
	ctx.Set(key, waiters)
}

func (e *Engine) firePendingJoins(ctx *graph.GraphContext, edge graph.EdgeID) {
	key := joinWaitersKey{edge: edge}
	raw, ok := ctx.Get(key)
	if !ok {
		return
	}
	waiters, _ := raw.([]func())
	ctx.Delete(key)
	for _, cb := range waiters {
		cb()
	}
}

// resumeReceiver adapts a suspended controller's Resume call to
// executive.Receiver, so Join and Yield can hand their wakeup to the
// executive's event queue instead of calling Resume inline.
type resumeReceiver struct {
	target executive.EventController
}

// Fire implements executive.Receiver.
func (r *resumeReceiver) Fire(ctrl executive.EventController) error {
	return r.target.Resume()
}

func (e *Engine) currentSuspendableController() (executive.EventController, error) {
	if e.ex.CurrentEventKind() != executive.Detachable {
		return nil, sageerr.NewIllegalContext("suspension primitive called outside a Detachable event")
	}
	ctrl := e.ex.CurrentEventController()
	if ctrl == nil {
		return nil, sageerr.NewIllegalContext("suspension primitive called with no current event controller")
	}
	return ctrl, nil
}

// Join suspends the currently firing edge's event until otherEdge emits
// its EdgeFinishing observation, then resumes at the next-scheduled
// event time, per spec §5. Calling Join outside a Detachable event
// context fails with IllegalContext.
func (e *Engine) Join(ctx *graph.GraphContext, otherEdge graph.EdgeID) error {
	ctrl, err := e.currentSuspendableController()
	if err != nil {
		return err
	}
	if e.inflight != nil {
		e.inflight.Inc()
	}
	e.registerJoinWaiter(ctx, otherEdge, func() {
		if e.inflight != nil {
			e.inflight.Dec()
		}
		r := &resumeReceiver{target: ctrl}
		if err := e.ex.RequestEvent(r, e.ex.Now(), e.ex.CurrentPriority(), nil, executive.Synchronous); err != nil {
			e.logf("exec: Join resume scheduling failed: %v", err)
		}
	})
	return ctrl.Suspend()
}

// Yield suspends the currently firing edge's event and re-schedules it
// at the same simulated time, letting peer edges scheduled at that
// instant run first, per spec §5. Calling Yield outside a Detachable
// event context fails with IllegalContext.
func (e *Engine) Yield(ctx *graph.GraphContext) error {
	ctrl, err := e.currentSuspendableController()
	if err != nil {
		return err
	}
	r := &resumeReceiver{target: ctrl}
	if err := e.ex.RequestEvent(r, e.ex.Now(), e.ex.CurrentPriority(), nil, executive.Synchronous); err != nil {
		return err
	}
	return ctrl.Suspend()
}
