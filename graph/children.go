// Sage
// Copyright (c) Sage contributors
// SPDX-License-Identifier: Apache-2.0

package graph

import "github.com/sagesim/sage/sageerr"

// AddChildEdge inserts child into e as a child edge, creating a co-start
// ligature (parent.pre -> child.pre) automatically if child currently has
// no external predecessor, and a co-finish ligature (child.post ->
// parent.post) if child currently has no external successor. A child
// edge already belonging to a different parent is a structure error: the
// {parent-edge, child-edges} relation must stay a forest.
func (e *Edge) AddChildEdge(child *Edge) error {
	e.g.suspendValidity()
	defer e.g.resumeValidity()

	e.g.mu.Lock()
	defer e.g.mu.Unlock()

	if child.parent != nil {
		return sageerr.NewGraphStructureError("AddChildEdge: second children-block on an already-parented edge", nil)
	}

	pid := e.id
	child.parent = &pid
	e.children = append(e.children, child.id)
	e.g.emit(StructureChange{Kind: AddChildEdge, Edge: child.id, Propagated: false})

	if len(child.pre.preEdges) == 0 {
		if err := e.addCostartLocked(child); err != nil {
			return err
		}
	}
	if len(child.post.postEdges) == 0 {
		if err := e.addCofinishLocked(child); err != nil {
			return err
		}
	}
	return nil
}

// addCostartLocked links the parent's pre-vertex to the child's pre-vertex
// with a ligature. Called only while holding e.g.mu.
func (e *Edge) addCostartLocked(child *Edge) error {
	lig := e.g.newLigatureLocked()
	lig.pre = e.pre
	lig.post = child.pre
	e.ligatures = append(e.ligatures, lig.id)
	if err := e.pre.addPostEdge(lig.id, true); err != nil {
		return err
	}
	if err := child.pre.addPreEdge(lig.id, true); err != nil {
		return err
	}
	e.g.emit(StructureChange{Kind: AddCostart, Vertex: child.pre.id, Edge: lig.id, Propagated: true})
	return nil
}

// addCofinishLocked links the child's post-vertex to the parent's
// post-vertex with a ligature. Called only while holding e.g.mu.
func (e *Edge) addCofinishLocked(child *Edge) error {
	lig := e.g.newLigatureLocked()
	lig.pre = child.post
	lig.post = e.post
	e.ligatures = append(e.ligatures, lig.id)
	if err := child.post.addPostEdge(lig.id, true); err != nil {
		return err
	}
	if err := e.post.addPreEdge(lig.id, true); err != nil {
		return err
	}
	e.g.emit(StructureChange{Kind: AddCofinish, Vertex: e.post.id, Edge: lig.id, Propagated: true})
	return nil
}

// RemoveChildEdge detaches child from e, atomically removing the
// co-start/co-finish ligatures that anchored it (the removal cascade the
// data model requires). The graph suspends whatever Suspendable is
// registered via RegisterValidity around the whole mutation, so an
// observing Validity Service sees one coherent batch rather than the
// individual ligature removals the cascade is built from.
func (e *Edge) RemoveChildEdge(child *Edge) error {
	e.g.suspendValidity()
	defer e.g.resumeValidity()

	e.g.mu.Lock()
	defer e.g.mu.Unlock()

	if child.parent == nil || *child.parent != e.id {
		return sageerr.NewGraphStructureError("RemoveChildEdge: not a child of this edge", nil)
	}

	for _, ligID := range append([]EdgeID(nil), child.pre.preEdges...) {
		if containsEdge(e.ligatures, ligID) {
			e.removeLigatureLocked(ligID, RemoveCostart, child.pre.id)
		}
	}
	for _, ligID := range append([]EdgeID(nil), child.post.postEdges...) {
		if containsEdge(e.ligatures, ligID) {
			e.removeLigatureLocked(ligID, RemoveCofinish, e.post.id)
		}
	}

	e.children = removeEdgeFromChildren(e.children, child.id)
	child.parent = nil
	e.g.emit(StructureChange{Kind: RemoveChildEdge, Edge: child.id, Propagated: false})
	return nil
}

func (e *Edge) removeLigatureLocked(ligID EdgeID, kind ChangeKind, vertex VertexID) {
	lig, ok := e.g.edges[ligID]
	if !ok {
		return
	}
	lig.pre.removePostEdge(ligID, true)
	lig.post.removePreEdge(ligID, true)
	delete(e.g.edges, ligID)
	e.ligatures = removeEdgeFromChildren(e.ligatures, ligID)
	e.g.emit(StructureChange{Kind: kind, Vertex: vertex, Edge: ligID, Propagated: true})
}

// AddChainOfChildren links successive elements of seq end-to-end via
// AddSuccessor, then attaches every element as a child of e in sequence
// order.
func (e *Edge) AddChainOfChildren(seq []*Edge) error {
	for i := 0; i+1 < len(seq); i++ {
		if err := seq[i].AddSuccessor(seq[i+1]); err != nil {
			return err
		}
	}
	for _, child := range seq {
		if err := e.AddChildEdge(child); err != nil {
			return err
		}
	}
	return nil
}

// Suspendable is the narrow contract children.go needs from the Validity
// Service to batch a cascading mutation: Suspend/Resume, re-entrant.
type Suspendable interface {
	Suspend()
	Resume()
}
