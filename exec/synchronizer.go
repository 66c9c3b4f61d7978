// Sage
// Copyright (c) Sage contributors
// SPDX-License-Identifier: Apache-2.0

package exec

import (
	"github.com/sagesim/sage/executive"
	"github.com/sagesim/sage/graph"
)

type syncReadyKey struct{ sync *graph.Synchronizer }

// notifySynchronizerReady implements spec §4.2's "Vertex synchronizer"
// rule: when any member reports ready, the synchronizer records it; once
// every member has reported, each member's _FireVertex is scheduled as
// an independent event on the executive at the current simulated
// instant and priority. Independent scheduling (rather than firing
// inline) lets one member suspend without blocking the others.
func (e *Engine) notifySynchronizerReady(ctx *graph.GraphContext, sync *graph.Synchronizer, v *graph.Vertex) error {
	key := syncReadyKey{sync: sync}
	raw, _ := ctx.Get(key)
	ready, _ := raw.(map[graph.VertexID]bool)
	if ready == nil {
		ready = make(map[graph.VertexID]bool)
	}
	ready[v.ID()] = true
	ctx.Set(key, ready)

	for _, id := range sync.Members() {
		if !ready[id] {
			return nil
		}
	}
	ctx.Delete(key)

	t := e.ex.Now()
	p := e.ex.CurrentPriority()
	for _, id := range sync.Members() {
		member, ok := e.g.Vertex(id)
		if !ok {
			continue
		}
		r := &vertexFireReceiver{engine: e, ctx: ctx, vertex: member}
		if err := e.ex.RequestEvent(r, t, p, nil, executive.Detachable); err != nil {
			return err
		}
	}
	return nil
}

// vertexFireReceiver adapts a scheduled vertex firing to
// executive.Receiver, so the Firing Engine can hand a synchronizer's
// simultaneous member firings to the executive's event queue instead of
// calling them inline.
type vertexFireReceiver struct {
	engine *Engine
	ctx    *graph.GraphContext
	vertex *graph.Vertex
}

// Fire implements executive.Receiver.
func (r *vertexFireReceiver) Fire(ctrl executive.EventController) error {
	return r.engine.firingVertex(r.ctx, r.vertex)
}
