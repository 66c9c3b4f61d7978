// Sage
// Copyright (c) Sage contributors
// SPDX-License-Identifier: Apache-2.0

package graph

import (
	"github.com/sagesim/sage/sageerr"
	"github.com/sagesim/sage/util/disjoint"
)

// Synchronizer is a set of Pre vertices that must all be ready to fire
// before any of them fires; once ready, each member fires as an
// independent event at the same simulated instant. Synchronizer merge
// semantics are built on util/disjoint's union-find Elem: each
// Synchronizer carries an Elem whose Data is the representative
// *Synchronizer for its set, and merging two synchronizers replaces both
// with a new one whose member list is the two lists joined.
type Synchronizer struct {
	members []VertexID
	elem    *disjoint.Elem[*Synchronizer]
}

// Members returns the synchronizer's current member vertex IDs.
func (s *Synchronizer) Members() []VertexID { return append([]VertexID(nil), s.members...) }

// Synchronize forms the union of vs's existing synchronizers (destroying
// any old ones atomically) and returns the resulting Synchronizer. Every
// vertex in vs must be a Pre vertex; attaching a synchronizer to a Post
// vertex is a GraphStructureError.
func (g *Graph) Synchronize(vs ...*Vertex) (*Synchronizer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, v := range vs {
		if v.role != RolePre {
			return nil, sageerr.NewGraphStructureError("Synchronize: synchronizer attached to a Post vertex", nil)
		}
	}

	var merged *Synchronizer
	for _, v := range vs {
		if v.synchronizer == nil {
			v.synchronizer = &Synchronizer{members: []VertexID{v.id}}
			v.synchronizer.elem = disjoint.NewElem[*Synchronizer]()
			v.synchronizer.elem.Data = v.synchronizer
		}
		if merged == nil {
			merged = v.synchronizer
			continue
		}
		if merged == v.synchronizer {
			continue
		}
		elem := merged.elem
		if err := disjoint.Merge(elem, v.synchronizer.elem, mergeSynchronizers); err != nil {
			return nil, err
		}
		merged = disjoint.Representative(elem)
		merged.elem = elem.Find()
	}
	if merged == nil {
		return nil, sageerr.NewGraphStructureError("Synchronize: no vertices given", nil)
	}

	// Repoint every member vertex at the single surviving representative
	// and emit one NewSynchronizer event per vertex passed in vs (members
	// that arrived through a merged synchronizer get no event of their own).
	for _, id := range merged.members {
		if v, ok := g.vertices[id]; ok {
			v.synchronizer = merged
		}
	}
	for _, v := range vs {
		g.emit(StructureChange{Kind: NewSynchronizer, Vertex: v.id, Propagated: false})
	}
	return merged, nil
}

// mergeSynchronizers combines two synchronizers' member lists into one,
// used as the merge callback for disjoint.Merge. It is the resulting
// representative data stored at the new union's root.
func mergeSynchronizers(a, b *Synchronizer) (*Synchronizer, error) {
	merged := &Synchronizer{members: append(append([]VertexID(nil), a.members...), b.members...)}
	return merged, nil
}

// Detach removes v from its synchronizer, if any, destroying membership
// explicitly rather than the source's lazy prune-on-notify hack (see
// DESIGN.md's Open Question decisions).
func (g *Graph) Detach(v *Vertex) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if v.synchronizer == nil {
		return
	}
	sync := v.synchronizer
	sync.members = removeVertexID(sync.members, v.id)
	v.synchronizer = nil
}

func removeVertexID(list []VertexID, id VertexID) []VertexID {
	out := make([]VertexID, 0, len(list))
	for _, v := range list {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
