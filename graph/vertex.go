// Sage
// Copyright (c) Sage contributors
// SPDX-License-Identifier: Apache-2.0

package graph

import "github.com/sagesim/sage/sageerr"

// FireTrigger is the replaceable callback invoked when a Vertex is asked
// to fire. The default trigger either notifies the vertex's synchronizer
// (if any) or calls straight through to the engine's internal firing
// routine; application code may install its own to intercept firing, for
// example to add tracing or to veto a fire under some external
// condition. ctx is the GraphContext of the execution in progress.
type FireTrigger func(ctx *GraphContext, v *Vertex) error

// EdgeFiringManager decides, for a vertex, which of its outbound edges
// actually fire once it is triggered. The two built-in implementations
// are CountedBranchManager and ConditionalBranchManager; a vertex with
// no manager fires every successor edge directly, in stored order.
type EdgeFiringManager interface {
	// Start is called each time the owning vertex fires, before any edge
	// is offered, letting the manager seed per-context bookkeeping.
	Start(ctx *GraphContext) error
	// FireIfAppropriate is offered the principal edge first (for a Pre
	// vertex) and then every successor edge of the firing vertex, in
	// stored order, and decides whether to fire it now.
	FireIfAppropriate(ctx *GraphContext, e *Edge) error
}

// EdgeReceiptManager decides, for a vertex, when enough pre-edges have
// signaled satisfaction for the vertex itself to fire. The built-in
// MultiChannelEdgeReceiptManager groups signals by channel; a vertex
// with no manager uses the default rule: fire once every pre-edge has
// signaled exactly once.
type EdgeReceiptManager interface {
	// PreEdgeSatisfied is called when e (a pre-edge of the owning
	// vertex) completes. ready is true if the vertex should fire now.
	PreEdgeSatisfied(ctx *GraphContext, e *Edge) (ready bool, err error)
}

// Vertex gates firing: a Pre vertex waits for its predecessor edges to
// signal satisfaction, a Post vertex waits for its own edge's execution
// delegate to complete. Every Vertex is owned by exactly one principal
// Edge and is created and destroyed alongside it.
type Vertex struct {
	id        VertexID
	role      VertexRole
	principal EdgeID
	g         *Graph

	preEdges  []EdgeID // predecessor edges, duplicate-free, insertion order
	postEdges []EdgeID // successor edges, duplicate-free, insertion order

	synchronizer *Synchronizer

	firingManager  EdgeFiringManager
	receiptManager EdgeReceiptManager
	trigger        FireTrigger
}

// ID returns the vertex's stable identity.
func (v *Vertex) ID() VertexID { return v.id }

// Role returns whether this is the Pre or Post vertex of its principal edge.
func (v *Vertex) Role() VertexRole { return v.role }

// Principal returns the ID of the edge that owns this vertex.
func (v *Vertex) Principal() EdgeID { return v.principal }

// PreEdges returns the vertex's predecessor edge IDs in insertion order.
// The returned slice is a copy; callers must not rely on aliasing.
func (v *Vertex) PreEdges() []EdgeID { return append([]EdgeID(nil), v.preEdges...) }

// PostEdges returns the vertex's successor edge IDs in insertion order.
func (v *Vertex) PostEdges() []EdgeID { return append([]EdgeID(nil), v.postEdges...) }

// Synchronizer returns the vertex's synchronizer, or nil if unsynchronized.
func (v *Vertex) Synchronizer() *Synchronizer { return v.synchronizer }

// FiringManager returns the vertex's edge-firing manager, or nil.
func (v *Vertex) FiringManager() EdgeFiringManager { return v.firingManager }

// SetFiringManager installs m as this vertex's edge-firing manager. A nil
// manager restores the default (fire every successor directly).
func (v *Vertex) SetFiringManager(m EdgeFiringManager) { v.firingManager = m }

// ReceiptManager returns the vertex's edge-receipt manager, or nil.
func (v *Vertex) ReceiptManager() EdgeReceiptManager { return v.receiptManager }

// SetReceiptManager installs m as this vertex's edge-receipt manager. A
// nil manager restores the default rule (fire when every pre-edge has
// signaled exactly once).
func (v *Vertex) SetReceiptManager(m EdgeReceiptManager) { v.receiptManager = m }

// Trigger returns the vertex's fire-trigger, or nil if the default applies.
func (v *Vertex) Trigger() FireTrigger { return v.trigger }

// SetTrigger replaces the vertex's fire-trigger callback.
func (v *Vertex) SetTrigger(t FireTrigger) { v.trigger = t }

func containsEdge(list []EdgeID, id EdgeID) bool {
	for _, e := range list {
		if e == id {
			return true
		}
	}
	return false
}

func removeEdge(list []EdgeID, id EdgeID) []EdgeID {
	out := make([]EdgeID, 0, len(list))
	for _, e := range list {
		if e != id {
			out = append(out, e)
		}
	}
	return out
}

// addPreEdge appends e to v's predecessor list, rejecting a duplicate and
// emitting AddPreEdge. Called only while holding g.mu.
func (v *Vertex) addPreEdge(e EdgeID, propagated bool) error {
	if containsEdge(v.preEdges, e) {
		return sageerr.NewGraphStructureError("AddPreEdge: duplicate", nil)
	}
	v.preEdges = append(v.preEdges, e)
	v.g.emit(StructureChange{Kind: AddPreEdge, Vertex: v.id, Edge: e, Propagated: propagated})
	return nil
}

func (v *Vertex) removePreEdge(e EdgeID, propagated bool) {
	if !containsEdge(v.preEdges, e) {
		return
	}
	v.preEdges = removeEdge(v.preEdges, e)
	v.g.emit(StructureChange{Kind: RemovePreEdge, Vertex: v.id, Edge: e, Propagated: propagated})
}

func (v *Vertex) addPostEdge(e EdgeID, propagated bool) error {
	if containsEdge(v.postEdges, e) {
		return sageerr.NewGraphStructureError("AddPostEdge: duplicate", nil)
	}
	v.postEdges = append(v.postEdges, e)
	v.g.emit(StructureChange{Kind: AddPostEdge, Vertex: v.id, Edge: e, Propagated: propagated})
	return nil
}

func (v *Vertex) removePostEdge(e EdgeID, propagated bool) {
	if !containsEdge(v.postEdges, e) {
		return
	}
	v.postEdges = removeEdge(v.postEdges, e)
	v.g.emit(StructureChange{Kind: RemovePostEdge, Vertex: v.id, Edge: e, Propagated: propagated})
}
