// Sage
// Copyright (c) Sage contributors
// SPDX-License-Identifier: Apache-2.0

// Package graph implements the hierarchical directed-graph data model:
// vertices, edges, ligatures, vertex synchronizers, and the graph arena
// that owns them. Vertices and edges are never held by direct pointer
// from outside the owning Graph; callers look them up by ID through the
// arena, following the ownership design mirrored on
// purpleidea/mgmt's pgraph.Graph (an Adjacency-map-owned collection of
// vertices and edges) but generalized to the stable-ID arena this
// system's design notes call for instead of raw pointer back-references.
package graph

import (
	"sync"

	"github.com/google/uuid"

	"github.com/sagesim/sage/sageerr"
)

// VertexID and EdgeID are stable identities looked up through a Graph's
// arena. Nothing outside this package holds a *Vertex or *Edge directly
// across a structural mutation; every reference is by ID.
type VertexID string

// EdgeID identifies an edge within a Graph's arena.
type EdgeID string

// VertexRole distinguishes the two roles a Vertex may play on its
// principal edge.
type VertexRole int

// The two vertex roles named in the data model.
const (
	RolePre VertexRole = iota
	RolePost
)

func (r VertexRole) String() string {
	if r == RolePre {
		return "Pre"
	}
	return "Post"
}

// ChangeKind enumerates the structural events a Graph emits. The
// Validity Service subscribes to these through Graph.Observe.
type ChangeKind int

// The enumerated StructureChange kinds from the graph model operations.
const (
	AddPreEdge ChangeKind = iota
	RemovePreEdge
	AddPostEdge
	RemovePostEdge
	AddCostart
	RemoveCostart
	AddCofinish
	RemoveCofinish
	AddChildEdge
	RemoveChildEdge
	NewSynchronizer
)

//go:generate stringer -type=ChangeKind

// StructureChange is the single event type every graph mutation emits.
// Propagated is true when this change is itself the downstream effect of
// another mutation (e.g. the co-start ligature removal triggered by
// RemoveChildEdge), so observers can distinguish a root cause from its
// cascade.
type StructureChange struct {
	Kind       ChangeKind
	Vertex     VertexID
	Edge       EdgeID
	Propagated bool
}

// Observer receives structure-change notifications. The Validity Service
// is the canonical observer; tests may register their own to assert on
// emitted event sequences.
type Observer interface {
	ObserveStructureChange(StructureChange)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(StructureChange)

// ObserveStructureChange implements Observer.
func (f ObserverFunc) ObserveStructureChange(c StructureChange) { f(c) }

// Graph is the arena that owns every Vertex and Edge. It is not safe for
// concurrent structural mutation from multiple goroutines without
// external serialization — per the concurrency model, graph structure
// must never change while an execution is active.
type Graph struct {
	// Logf is called for diagnostic tracing. Defaults to a no-op.
	Logf func(format string, v ...interface{})
	// Debug gates verbose structural tracing.
	Debug bool

	mu       sync.Mutex
	vertices map[VertexID]*Vertex
	edges    map[EdgeID]*Edge

	observers []Observer

	// validity is the Suspendable that cascading mutations (AddChildEdge,
	// RemoveChildEdge) automatically wrap in a Suspend/Resume pair, so
	// observers see one coherent batch instead of the individual ligature
	// add/remove events the cascade is built from. Registered by whatever
	// constructs the Validity Service over this graph; nil until then, in
	// which case suspendValidity/resumeValidity are no-ops.
	validity Suspendable
}

// New builds an empty Graph.
func New() *Graph {
	return &Graph{
		Logf:     func(string, ...interface{}) {},
		vertices: make(map[VertexID]*Vertex),
		edges:    make(map[EdgeID]*Edge),
	}
}

func (g *Graph) logf(format string, v ...interface{}) {
	if g.Debug {
		g.Logf(format, v...)
	}
}

// Observe registers o to receive every StructureChange this graph emits,
// from this call forward.
func (g *Graph) Observe(o Observer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.observers = append(g.observers, o)
}

// RegisterValidity registers v as the Suspendable that AddChildEdge and
// RemoveChildEdge automatically suspend around their ligature cascade.
// Only one registrant is kept; a later call replaces the previous one.
// The Validity Service calls this on itself when constructed over a
// graph (see validity.New), so application code wiring a Service rarely
// needs to call this directly.
func (g *Graph) RegisterValidity(v Suspendable) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.validity = v
}

// suspendValidity begins a batch against the registered Suspendable, if
// any. A nil registrant makes this a no-op, so graphs built without a
// Validity Service pay nothing for the hook.
func (g *Graph) suspendValidity() {
	g.mu.Lock()
	v := g.validity
	g.mu.Unlock()
	if v != nil {
		v.Suspend()
	}
}

// resumeValidity ends one level of the batch started by suspendValidity.
func (g *Graph) resumeValidity() {
	g.mu.Lock()
	v := g.validity
	g.mu.Unlock()
	if v != nil {
		v.Resume()
	}
}

func (g *Graph) emit(c StructureChange) {
	for _, o := range g.observers {
		o.ObserveStructureChange(c)
	}
}

// Vertex looks up a vertex by ID. The bool is false if id is unknown.
func (g *Graph) Vertex(id VertexID) (*Vertex, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	v, ok := g.vertices[id]
	return v, ok
}

// Edge looks up an edge by ID. The bool is false if id is unknown.
func (g *Graph) Edge(id EdgeID) (*Edge, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.edges[id]
	return e, ok
}

// TaskEdges returns the IDs of every non-ligature edge in the arena, the
// way purpleidea/mgmt's Graph.GetVertices enumerates the adjacency map's
// keys. Order is unspecified; callers that need determinism sort the
// result themselves.
func (g *Graph) TaskEdges() []EdgeID {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]EdgeID, 0, len(g.edges))
	for id, e := range g.edges {
		if !e.isLigature {
			out = append(out, id)
		}
	}
	return out
}

func newID(given string) string {
	if given != "" {
		return given
	}
	return uuid.NewString()
}

// NewEdge allocates a new Edge together with its two owned vertices and
// registers it in the arena. name may be empty, in which case a UUID is
// generated, matching how mgmt derives a stable per-resource UID when
// none is supplied.
func (g *Graph) NewEdge(name string) *Edge {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := EdgeID(newID(name))
	e := &Edge{
		id:      id,
		g:       g,
		channel: NullChannel,
	}
	e.pre = &Vertex{id: VertexID(newID("")), role: RolePre, principal: id, g: g}
	e.post = &Vertex{id: VertexID(newID("")), role: RolePost, principal: id, g: g}

	g.edges[id] = e
	g.vertices[e.pre.id] = e.pre
	g.vertices[e.post.id] = e.post
	return e
}

// NewLigature allocates a zero-duration structural edge. Ligatures may
// never be cloned (NewGraphStructureError on Edge.Clone).
func (g *Graph) NewLigature(name string) *Edge {
	e := g.NewEdge(name)
	e.isLigature = true
	return e
}

// structErr is a small helper keeping call sites terse; it exists because
// sageerr constructors take (op, cause) and most call sites here have no
// underlying cause.
func structErr(op string) error { return sageerr.NewGraphStructureError(op, nil) }
