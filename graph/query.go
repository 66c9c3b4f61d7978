// Sage
// Copyright (c) Sage contributors
// SPDX-License-Identifier: Apache-2.0

package graph

// Predecessors returns the principal edges of every task wired into e's
// pre-vertex, the way purpleidea/mgmt's Graph.IncomingGraphEdges walks
// the adjacency in reverse. The edge's own parent (if any) is excluded:
// a co-start ligature wires the parent's pre-vertex to the pre-vertex of
// a child that had no predecessor for structural containment, not as a dependency
// edge, so it must not be mistaken for one by the Validity Service or
// the timing analysts.
func (e *Edge) Predecessors() []EdgeID {
	return e.g.neighborPrincipals(e.pre, e.pre.preEdges, e.parent)
}

// Successors returns the principal edges of every task wired from e's
// post-vertex, the dual of Predecessors.
func (e *Edge) Successors() []EdgeID {
	return e.g.neighborPrincipals(e.post, e.post.postEdges, e.parent)
}

// neighborPrincipals walks ligatures attached to self, returning the
// principal edge ID on the other side of each one, deduplicated and with
// the excluded parent edge dropped. It takes g.mu itself, so callers
// must not already hold it.
func (g *Graph) neighborPrincipals(self *Vertex, ligatures []EdgeID, exclude *EdgeID) []EdgeID {
	g.mu.Lock()
	defer g.mu.Unlock()

	seen := make(map[EdgeID]bool)
	var out []EdgeID
	for _, ligID := range ligatures {
		lig, ok := g.edges[ligID]
		if !ok {
			continue
		}
		var other *Vertex
		switch {
		case lig.pre == self:
			other = lig.post
		case lig.post == self:
			other = lig.pre
		default:
			continue
		}
		if other == nil {
			continue
		}
		principal := other.principal
		if exclude != nil && principal == *exclude {
			continue
		}
		if seen[principal] {
			continue
		}
		seen[principal] = true
		out = append(out, principal)
	}
	return out
}
