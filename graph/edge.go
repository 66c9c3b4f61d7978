// Sage
// Copyright (c) Sage contributors
// SPDX-License-Identifier: Apache-2.0

package graph

import "github.com/sagesim/sage/sageerr"

// Channel is an identifier a firing manager uses to group outbound
// branches of a vertex. NullChannel is the singleton default every edge
// carries unless the caller sets one explicitly.
type Channel string

// NullChannel is the sentinel channel marker every new edge defaults to.
const NullChannel Channel = ""

// ExecutionDelegate is the application-code callback an Edge runs once
// its pre-vertex is satisfied. It receives the GraphContext of the
// active execution and a completion function the delegate must call
// (possibly asynchronously, after suspending via Join/Yield) to signal
// that the edge has finished running. An edge with no delegate signals
// completion immediately.
type ExecutionDelegate func(ctx *GraphContext, e *Edge, done func(error)) error

// Edge is an executional path between two vertices, potentially with
// application-code and child structure. Every Edge owns exactly the two
// Vertex values created alongside it; those vertices are never shared
// with any other edge.
type Edge struct {
	id EdgeID
	g  *Graph

	pre  *Vertex
	post *Vertex

	parent   *EdgeID
	children []EdgeID
	ligatures []EdgeID // internal child ligatures (co-start/co-finish)

	channel    Channel
	isLigature bool

	delegate ExecutionDelegate
}

// ID returns the edge's stable identity.
func (e *Edge) ID() EdgeID { return e.id }

// Pre returns this edge's pre-vertex.
func (e *Edge) Pre() *Vertex { return e.pre }

// Post returns this edge's post-vertex.
func (e *Edge) Post() *Vertex { return e.post }

// IsLigature reports whether this edge is a zero-duration structural ligature.
func (e *Edge) IsLigature() bool { return e.isLigature }

// Channel returns the edge's channel marker.
func (e *Edge) Channel() Channel { return e.channel }

// SetChannel sets the edge's channel marker, used by firing managers to
// group outbound branches.
func (e *Edge) SetChannel(c Channel) { e.channel = c }

// Delegate returns the edge's execution delegate, or nil.
func (e *Edge) Delegate() ExecutionDelegate { return e.delegate }

// SetDelegate installs the edge's application-code execution callback.
func (e *Edge) SetDelegate(d ExecutionDelegate) { e.delegate = d }

// Parent returns the ID of this edge's parent edge and whether one exists.
func (e *Edge) Parent() (EdgeID, bool) {
	if e.parent == nil {
		return "", false
	}
	return *e.parent, true
}

// Children returns the IDs of this edge's child edges in insertion order.
func (e *Edge) Children() []EdgeID { return append([]EdgeID(nil), e.children...) }

// AddSuccessor connects e's post-vertex to other's pre-vertex with a
// ligature, unless one already exists. This is the "Connect two edges"
// operation of the data model.
func (e *Edge) AddSuccessor(other *Edge) error {
	return e.g.connect(e, other)
}

// AddPredecessor is the dual of AddSuccessor: other's post-vertex is
// connected to e's pre-vertex.
func (e *Edge) AddPredecessor(other *Edge) error {
	return e.g.connect(other, e)
}

func (g *Graph) connect(upstream, downstream *Edge) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connectLocked(upstream, downstream, false)
}

func (g *Graph) connectLocked(upstream, downstream *Edge, propagated bool) error {
	for _, existing := range upstream.post.postEdges {
		if lig, ok := g.edges[existing]; ok && lig.pre == upstream.post && lig.post == downstream.pre {
			return nil // already connected
		}
	}
	lig := g.newLigatureLocked()
	lig.pre = upstream.post
	lig.post = downstream.pre

	if err := upstream.post.addPostEdge(lig.id, propagated); err != nil {
		return err
	}
	if err := downstream.pre.addPreEdge(lig.id, propagated); err != nil {
		return err
	}
	return nil
}

// newLigatureLocked allocates a ligature edge with no vertices of its
// own; the caller wires lig.pre/post directly to the two vertices being
// connected, so a ligature made here never owns vertices the way a
// normal Edge does. Called only while holding g.mu.
func (g *Graph) newLigatureLocked() *Edge {
	id := EdgeID(newID(""))
	lig := &Edge{id: id, g: g, isLigature: true, channel: NullChannel}
	g.edges[id] = lig
	return lig
}

// Disconnect removes every predecessor and successor ligature attached
// to e, and detaches e from its parent edge (if any). deleteAll mirrors
// the data model's Disconnect(A, B, deleteAll=true): when true, every
// ligature on both vertex sides is removed, not just a single pairing.
func (e *Edge) Disconnect(deleteAll bool) error {
	e.g.mu.Lock()
	defer e.g.mu.Unlock()
	return e.g.disconnectLocked(e, deleteAll, false)
}

func (g *Graph) disconnectLocked(e *Edge, deleteAll bool, propagated bool) error {
	for _, id := range append([]EdgeID(nil), e.pre.preEdges...) {
		lig, ok := g.edges[id]
		if !ok {
			continue
		}
		lig.pre.removePostEdge(id, propagated)
		e.pre.removePreEdge(id, propagated)
		delete(g.edges, id)
		if !deleteAll {
			break
		}
	}
	for _, id := range append([]EdgeID(nil), e.post.postEdges...) {
		lig, ok := g.edges[id]
		if !ok {
			continue
		}
		e.post.removePostEdge(id, propagated)
		lig.post.removePreEdge(id, propagated)
		delete(g.edges, id)
		if !deleteAll {
			break
		}
	}
	if e.parent != nil {
		if parent, ok := g.edges[*e.parent]; ok {
			parent.children = removeEdgeFromChildren(parent.children, e.id)
		}
		e.parent = nil
	}
	return nil
}

func removeEdgeFromChildren(list []EdgeID, id EdgeID) []EdgeID {
	out := make([]EdgeID, 0, len(list))
	for _, e := range list {
		if e != id {
			out = append(out, e)
		}
	}
	return out
}

// InsertBetween chains A -> e -> B via ligatures, per the data model's
// "Insert edge between" operation.
func (e *Edge) InsertBetween(a, b *Edge) error {
	if err := a.AddSuccessor(e); err != nil {
		return err
	}
	return e.AddSuccessor(b)
}

// Clone is forbidden on a ligature. Non-ligature edges clone recursively
// through cloningCtx, a map from original ID to clone ID, threading newly
// cloned child IDs back through the map as the design notes require
// instead of the source's mutable "utility reference" slot.
func (e *Edge) Clone(cloningCtx map[EdgeID]EdgeID) (*Edge, error) {
	if e.isLigature {
		return nil, sageerr.NewGraphStructureError("Clone: ligature is not cloneable", nil)
	}
	if existing, ok := cloningCtx[e.id]; ok {
		if clone, found := e.g.edges[existing]; found {
			return clone, nil
		}
	}

	clone := e.g.NewEdge("")
	clone.channel = e.channel
	clone.delegate = e.delegate
	cloningCtx[e.id] = clone.id

	for _, childID := range e.children {
		child, ok := e.g.edges[childID]
		if !ok {
			continue
		}
		childClone, err := child.Clone(cloningCtx)
		if err != nil {
			return nil, err
		}
		if err := clone.AddChildEdge(childClone); err != nil {
			return nil, err
		}
	}
	return clone, nil
}
