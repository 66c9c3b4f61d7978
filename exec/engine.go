// Sage
// Copyright (c) Sage contributors
// SPDX-License-Identifier: Apache-2.0

package exec

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sagesim/sage/executive"
	"github.com/sagesim/sage/graph"
	"github.com/sagesim/sage/sageerr"
	"github.com/sagesim/sage/util"
	"github.com/sagesim/sage/util/semaphore"
)

// EdgeEventKind enumerates the per-edge observable events of spec §6.
type EdgeEventKind int

// The four per-edge observable event kinds.
const (
	EdgeStarting EdgeEventKind = iota
	EdgeExecutionStarting
	EdgeExecutionFinishing
	EdgeFinishing
)

// VertexEventKind enumerates the per-vertex observable firing events.
type VertexEventKind int

// The two per-vertex observable firing event kinds.
const (
	BeforeVertexFiring VertexEventKind = iota
	AfterVertexFiring
)

// Observer receives firing observations. Register one with
// Engine.Observe to trace a run or assert on its event sequence in
// tests.
type Observer interface {
	ObserveEdge(kind EdgeEventKind, e graph.EdgeID)
	ObserveVertex(kind VertexEventKind, v graph.VertexID)
}

// Engine is the Firing Engine: it drives a *graph.Graph's vertices and
// edges through an executive.Executive, never mutating graph structure.
type Engine struct {
	// Logf is called for diagnostic tracing. Defaults to a no-op.
	Logf func(format string, v ...interface{})

	g        *graph.Graph
	ex       executive.Executive
	cfg      Config
	observer []Observer
	sem      *semaphore.Semaphore

	firingsTotal prometheus.Counter
	inflight     prometheus.Gauge
}

// New builds an Engine over g driven by ex.
func New(g *graph.Graph, ex executive.Executive, cfg Config) *Engine {
	e := &Engine{
		Logf: func(string, ...interface{}) {},
		g:    g,
		ex:   ex,
		cfg:  cfg,
	}
	if cfg.Registerer != nil {
		e.firingsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sage_vertex_firings_total",
			Help: "Total number of vertex firings across all executions.",
		})
		e.inflight = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sage_inflight_suspended_edges",
			Help: "Number of edges currently suspended awaiting Join.",
		})
		cfg.Registerer.MustRegister(e.firingsTotal, e.inflight)
	}
	if cfg.MaxInFlight > 0 {
		e.sem = semaphore.NewSemaphore(cfg.MaxInFlight)
	}
	return e
}

// Close releases the engine's concurrency-limiting semaphore, if one was
// configured, unblocking anything still waiting to acquire it.
func (e *Engine) Close() {
	if e.sem != nil {
		e.sem.Close()
	}
}

// Observe registers o to receive every firing observation this engine
// emits, from this call forward.
func (e *Engine) Observe(o Observer) { e.observer = append(e.observer, o) }

// Writer adapts e's Logf to an io.Writer, for plugging the engine's
// trace output into anything that expects a writer (e.g. log.New).
func (e *Engine) Writer() io.Writer {
	return &util.LogWriter{Prefix: "exec: ", Logf: e.Logf}
}

func (e *Engine) emitEdge(kind EdgeEventKind, id graph.EdgeID) {
	for _, o := range e.observer {
		o.ObserveEdge(kind, id)
	}
}

func (e *Engine) emitVertex(kind VertexEventKind, id graph.VertexID) {
	for _, o := range e.observer {
		o.ObserveVertex(kind, id)
	}
}

func (e *Engine) logf(format string, v ...interface{}) {
	if e.cfg.Debug {
		e.Logf(format, v...)
	}
}

// Start fires the root edge's pre-vertex within ctx. This is the single
// external entry point into a graph execution (spec §4.2 "Execution
// begins when a caller invokes Start(graphContext) on the root edge").
func (e *Engine) Start(ctx *graph.GraphContext, root graph.EdgeID) error {
	rootEdge, ok := e.g.Edge(root)
	if !ok {
		return sageerr.NewGraphStructureError("Start: unknown root edge", nil)
	}
	return e.fireVertex(ctx, rootEdge.Pre())
}

// fireVertex invokes v's fire-trigger, defaulting to notifying v's
// synchronizer (if any) or calling straight through to _FireVertex.
func (e *Engine) fireVertex(ctx *graph.GraphContext, v *graph.Vertex) error {
	if trigger := v.Trigger(); trigger != nil {
		return trigger(ctx, v)
	}
	if sync := v.Synchronizer(); sync != nil {
		return e.notifySynchronizerReady(ctx, sync, v)
	}
	return e.firingVertex(ctx, v)
}

// firingVertex is the internal `_FireVertex` routine: it emits
// BeforeVertexFiring, starts the firing manager, fires the principal
// edge first if v is Pre, then offers every successor edge to the
// firing manager in stored order.
func (e *Engine) firingVertex(ctx *graph.GraphContext, v *graph.Vertex) error {
	e.emitVertex(BeforeVertexFiring, v.ID())
	if e.firingsTotal != nil {
		e.firingsTotal.Inc()
	}

	fm := v.FiringManager()
	if fm != nil {
		if err := fm.Start(ctx); err != nil {
			return err
		}
	}

	if v.Role() == graph.RolePre {
		principal, ok := e.g.Edge(v.Principal())
		if !ok {
			return sageerr.NewGraphStructureError("firingVertex: missing principal edge", nil)
		}
		if err := e.fireEdge(ctx, principal, fm); err != nil {
			return err
		}
	}

	for _, id := range v.PostEdges() {
		edge, ok := e.g.Edge(id)
		if !ok {
			return sageerr.NewGraphStructureError("firingVertex: missing post-vertex reference", nil)
		}
		if err := e.fireEdge(ctx, edge, fm); err != nil {
			return err
		}
	}

	e.emitVertex(AfterVertexFiring, v.ID())
	return nil
}

// fireEdge offers edge to fm.FireIfAppropriate if a firing manager is
// set, otherwise fires it directly.
func (e *Engine) fireEdge(ctx *graph.GraphContext, edge *graph.Edge, fm graph.EdgeFiringManager) error {
	if fm == nil {
		return e.runEdge(ctx, edge)
	}
	return fm.FireIfAppropriate(ctx, edge)
}

// runEdge runs edge's execution delegate (spec §4.2 step 5-6): once the
// callback signals completion, the edge notifies its post-vertex via
// PreEdgeSatisfied.
func (e *Engine) runEdge(ctx *graph.GraphContext, edge *graph.Edge) error {
	e.emitEdge(EdgeStarting, edge.ID())

	if e.sem != nil {
		if err := e.sem.P(1); err != nil {
			return sageerr.NewResourceContentionError("runEdge: engine closed", err)
		}
	}

	done := func(err error) {
		if e.sem != nil {
			e.sem.V(1)
		}
		e.emitEdge(EdgeExecutionFinishing, edge.ID())
		e.emitEdge(EdgeFinishing, edge.ID())
		e.firePendingJoins(ctx, edge.ID())
		if err != nil {
			e.logf("exec: edge %s delegate failed: %v", edge.ID(), err)
			return
		}
		if ferr := e.satisfyPostVertex(ctx, edge); ferr != nil {
			e.logf("exec: edge %s satisfaction failed: %v", edge.ID(), ferr)
		}
	}

	delegate := edge.Delegate()
	if delegate == nil {
		done(nil)
		return nil
	}

	e.emitEdge(EdgeExecutionStarting, edge.ID())
	return delegate(ctx, edge, done)
}

// satisfyPostVertex signals PreEdgeSatisfied(edge) on edge's post-vertex
// and, if the receipt manager (or the default rule) says the vertex is
// now ready, fires it.
func (e *Engine) satisfyPostVertex(ctx *graph.GraphContext, edge *graph.Edge) error {
	post := edge.Post()
	ready, err := e.preEdgeSatisfied(ctx, post, edge)
	if err != nil {
		return err
	}
	if !ready {
		return nil
	}
	return e.fireVertex(ctx, post)
}

// preEdgeSatisfied applies post's receipt manager, or the default rule
// (fire once every pre-edge has signaled exactly once) if none is set.
func (e *Engine) preEdgeSatisfied(ctx *graph.GraphContext, post *graph.Vertex, edge *graph.Edge) (bool, error) {
	if rm := post.ReceiptManager(); rm != nil {
		return rm.PreEdgeSatisfied(ctx, edge)
	}
	return defaultReceipt(ctx, post, edge)
}
