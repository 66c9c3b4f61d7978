// Sage
// Copyright (c) Sage contributors
// SPDX-License-Identifier: Apache-2.0

package validity

import (
	"sync"

	"github.com/sagesim/sage/graph"
)

// Service watches a *graph.Graph's structural events and an application's
// self-state reports and maintains an up-to-date aggregate validity flag
// per task edge, per spec §4.3. Clients use Overall to gate
// recomputations instead of re-deriving validity themselves.
type Service struct {
	// Logf is called for diagnostic tracing, including the mismatched
	// suspend/resume warning. Defaults to a no-op.
	Logf func(format string, v ...interface{})
	// Debug gates verbose propagation tracing.
	Debug bool

	g    *graph.Graph
	root graph.EdgeID

	mu        sync.Mutex
	nodes     map[graph.EdgeID]*ValidityNode
	observers []Observer

	suspendDepth int
	snapshot     map[graph.EdgeID]bool
}

// New builds a Service over g. root is recorded on the Service, but the
// shadow graph is built from every task edge of g, not only those
// reachable from root. New registers the Service as a graph.Observer so every
// subsequent structural mutation is seen, and registers it as g's
// Suspendable so a cascading mutation like Edge.RemoveChildEdge
// automatically batches its ligature removals into a single Suspend/
// Resume pair instead of emitting one ValidityChange per ligature.
func New(g *graph.Graph, root graph.EdgeID) *Service {
	s := &Service{
		Logf:  func(string, ...interface{}) {},
		g:     g,
		root:  root,
		nodes: make(map[graph.EdgeID]*ValidityNode),
	}
	s.mu.Lock()
	s.rebuildLocked()
	s.mu.Unlock()
	g.Observe(s)
	g.RegisterValidity(s)
	return s
}

func (s *Service) logf(format string, v ...interface{}) {
	if s.Debug {
		s.Logf(format, v...)
	}
}

// Observe registers o to receive every ValidityChange this service
// emits, from this call forward.
func (s *Service) Observe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

func (s *Service) emit(id graph.EdgeID, overall bool) {
	for _, o := range s.observers {
		o.ObserveValidityChange(id, overall)
	}
}

// Overall reports id's current aggregate validity. Unknown IDs report
// false.
func (s *Service) Overall(id graph.EdgeID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	if !ok {
		return false
	}
	return n.Overall()
}

// SetSelfState reports a node's own validity flip (Rule P). Application
// code calls this after it recomputes a task's state; spec §4.3 assigns
// ownership of "is this task itself correct" to the caller, not to the
// Validity Service.
func (s *Service) SetSelfState(id graph.EdgeID, state SelfState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setSelfStateLocked(id, state)
}

func (s *Service) setSelfStateLocked(id graph.EdgeID, state SelfState) {
	n, ok := s.nodes[id]
	if !ok {
		return
	}
	if n.SelfState == state {
		return
	}
	if s.suspendDepth > 0 {
		// Batched: Resume rebuilds wholesale and diffs against the
		// pre-suspend snapshot, so no incremental propagation is needed
		// (or even safe, since the shadow graph may be mid-mutation).
		n.SelfState = state
		return
	}

	before := n.Overall()
	n.SelfState = state
	after := n.Overall()
	if before != after {
		s.emit(id, after)
		s.propagateLocked(n, after)
	}
}

// propagateLocked applies the delta of n's overall-validity flip to n's
// parent's invalid-child count and each of n's successors' invalid-
// predecessor count, recursing further whenever that adjustment itself
// flips the neighbor's overall state (spec §4.3 Rule P's closing
// sentence: "recursively").
func (s *Service) propagateLocked(n *ValidityNode, nowValid bool) {
	delta := -1
	if !nowValid {
		delta = 1
	}

	if n.Parent != nil {
		if p, ok := s.nodes[*n.Parent]; ok {
			before := p.Overall()
			p.InvalidChildren += delta
			after := p.Overall()
			if before != after {
				s.emit(p.ID, after)
				s.propagateLocked(p, after)
			}
		}
	}
	for _, succID := range n.successors {
		succ, ok := s.nodes[succID]
		if !ok {
			continue
		}
		before := succ.Overall()
		succ.InvalidPredecessors += delta
		after := succ.Overall()
		if before != after {
			s.emit(succ.ID, after)
			s.propagateLocked(succ, after)
		}
	}
}

// ObserveStructureChange implements graph.Observer and applies Rule S:
// when a vertex gains or loses a predecessor edge, the owning task and
// everything downstream of it is marked self-invalid, since it must be
// recomputed by the owning application before being considered valid
// again.
func (s *Service) ObserveStructureChange(c graph.StructureChange) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch c.Kind {
	case graph.AddPreEdge, graph.RemovePreEdge:
	default:
		return
	}
	if s.suspendDepth > 0 {
		return // batched: Resume rebuilds wholesale
	}

	v, ok := s.g.Vertex(c.Vertex)
	if !ok {
		return
	}
	s.invalidateDownstreamLocked(v.Principal())
}

func (s *Service) invalidateDownstreamLocked(start graph.EdgeID) {
	visited := make(map[graph.EdgeID]bool)
	var walk func(graph.EdgeID)
	walk = func(id graph.EdgeID) {
		if visited[id] {
			return
		}
		visited[id] = true
		s.setSelfStateLocked(id, Invalid)
		n, ok := s.nodes[id]
		if !ok {
			return
		}
		for _, succID := range n.successors {
			walk(succID)
		}
	}
	walk(start)
}

// Suspend begins a (re-entrant) batch of structural mutations. The first
// Suspend in a nesting snapshots every known node's current overall
// state; nested calls only increment the depth counter.
func (s *Service) Suspend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.suspendDepth == 0 {
		s.snapshot = make(map[graph.EdgeID]bool, len(s.nodes))
		for id, n := range s.nodes {
			s.snapshot[id] = n.Overall()
		}
	}
	s.suspendDepth++
}

// Resume ends one level of a suspended batch. On the last matching
// Resume, the shadow graph is rebuilt from every task edge of g and "overall
// validity changed" is emitted only for nodes whose state actually
// differs from the pre-suspend snapshot. A Resume with no matching
// Suspend is reported as a warning through Logf, never an error, per
// spec §4.3 and §7.
func (s *Service) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.suspendDepth == 0 {
		s.Logf("validity: Resume called without a matching Suspend")
		return
	}
	s.suspendDepth--
	if s.suspendDepth > 0 {
		return
	}

	before := s.snapshot
	s.snapshot = nil
	s.rebuildLocked()
	for id, n := range s.nodes {
		now := n.Overall()
		was, ok := before[id]
		if !ok || was != now {
			s.emit(id, now)
		}
	}
}

// rebuildLocked reconstructs the shadow graph wholesale: a single pass
// over every task edge of g, reachable from s.root or not, records its
// parent, children, predecessors and successors, then initialization
// seeds each node's invalid counts from the current (preserved)
// self-states. No depth-first walk from the root is made. Called only
// while holding s.mu.
func (s *Service) rebuildLocked() {
	nodes := make(map[graph.EdgeID]*ValidityNode)

	// Pass 1 + 2: walk every known task edge (a DFS from the root
	// reaches the same set for a well-formed single-rooted graph;
	// TaskEdges is used here so a service also sees edges not yet wired
	// under the root, matching how a freshly-built recipe stays tracked
	// before its first Connect), recording parent/children, and fill in
	// predecessors/successors from the graph's own adjacency.
	for _, id := range s.g.TaskEdges() {
		e, ok := s.g.Edge(id)
		if !ok {
			continue
		}
		prevState := Valid
		if old, ok := s.nodes[id]; ok {
			prevState = old.SelfState
		}
		var parent *graph.EdgeID
		if pid, ok := e.Parent(); ok {
			p := pid
			parent = &p
		}
		nodes[id] = &ValidityNode{
			ID:           id,
			SelfState:    prevState,
			Parent:       parent,
			children:     e.Children(),
			predecessors: e.Predecessors(),
			successors:   e.Successors(),
		}
	}
	s.nodes = nodes

	// Pass 3: seed invalid counts from a memoized recursive overall
	// computation over the (acyclic, by graph invariant) children and
	// predecessor relations.
	memo := make(map[graph.EdgeID]bool)
	visiting := make(map[graph.EdgeID]bool)
	var overall func(graph.EdgeID) bool
	overall = func(id graph.EdgeID) bool {
		if v, ok := memo[id]; ok {
			return v
		}
		n, ok := nodes[id]
		if !ok {
			return true
		}
		if visiting[id] {
			return true // guard against an unexpected cycle
		}
		visiting[id] = true
		valid := n.SelfState == Valid
		for _, c := range n.children {
			if !overall(c) {
				valid = false
			}
		}
		for _, p := range n.predecessors {
			if !overall(p) {
				valid = false
			}
		}
		delete(visiting, id)
		memo[id] = valid
		return valid
	}

	for _, n := range nodes {
		n.InvalidChildren = 0
		for _, c := range n.children {
			if !overall(c) {
				n.InvalidChildren++
			}
		}
		n.InvalidPredecessors = 0
		for _, p := range n.predecessors {
			if !overall(p) {
				n.InvalidPredecessors++
			}
		}
	}
}
