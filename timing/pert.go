// Sage
// Copyright (c) Sage contributors
// SPDX-License-Identifier: Apache-2.0

package timing

import (
	"math"
	"sync"

	"github.com/sagesim/sage/graph"
	"github.com/sagesim/sage/sageerr"
)

// Durations is the per-edge duration input the PERTAnalyst reads:
// Nominal is required, Optimistic/Pessimistic are optional and enable
// the PERT mean/variance extension.
type Durations struct {
	Nominal     int64
	Optimistic  *int64
	Pessimistic *int64
}

// Diagnostics is the PERTAnalyst's immutable configuration, following
// spec §9's design note to replace global mutable diagnostics/overbook
// statics with a config struct passed to the constructor.
type Diagnostics struct {
	// Validate enables the §4.4.2 post-pass assertions, raising
	// sageerr.TimeCycleError on any violation.
	Validate bool
	// PermitUnknownEdges makes queries against unrecognized edges return
	// zero instead of a diagnostic error.
	PermitUnknownEdges bool
	// Epsilon is the tolerance used by Validate's equality checks.
	Epsilon float64
}

// Copy returns a shallow copy of d.
func (d Diagnostics) Copy() Diagnostics { return d }

// PERTAnalyst is the CPM/PERT timing analyst of spec §4.4.2: it operates
// directly on a *graph.Graph, honoring vertex synchronizers, and
// produces an earliest/latest tick table plus PERT mean/variance.
type PERTAnalyst struct {
	// Logf is called for diagnostic tracing. Defaults to a no-op.
	Logf func(format string, v ...interface{})
	// Debug gates verbose propagation tracing.
	Debug bool

	g           *graph.Graph
	root        graph.EdgeID
	finish      graph.EdgeID
	duration    func(graph.EdgeID) Durations
	pegged      func(graph.VertexID) (int64, bool)
	diagnostics Diagnostics

	mu       sync.Mutex
	earliest map[graph.VertexID]int64
	latest   map[graph.VertexID]int64
	computed bool
	err      error
}

// New2 builds a PERTAnalyst over g, timing the span from root's
// pre-vertex to finish's post-vertex. pegged may be nil, meaning no
// vertex is pinned to a fixed offset.
func New2(g *graph.Graph, root, finish graph.EdgeID, duration func(graph.EdgeID) Durations, pegged func(graph.VertexID) (int64, bool), diag Diagnostics) *PERTAnalyst {
	if pegged == nil {
		pegged = func(graph.VertexID) (int64, bool) { return 0, false }
	}
	return &PERTAnalyst{
		Logf:        func(string, ...interface{}) {},
		g:           g,
		root:        root,
		finish:      finish,
		duration:    duration,
		pegged:      pegged,
		diagnostics: diag,
	}
}

// NewPERTAnalyst is an alias of New2 kept for call-site readability; the
// timing package's generic analyst already claims the name New.
func NewPERTAnalyst(g *graph.Graph, root, finish graph.EdgeID, duration func(graph.EdgeID) Durations, pegged func(graph.VertexID) (int64, bool), diag Diagnostics) *PERTAnalyst {
	return New2(g, root, finish, duration, pegged, diag)
}

func (a *PERTAnalyst) logf(format string, v ...interface{}) {
	if a.Debug {
		a.Logf(format, v...)
	}
}

// Invalidate clears the memoized analysis, forcing the next query to
// recompute.
func (a *PERTAnalyst) Invalidate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.computed = false
	a.earliest = nil
	a.latest = nil
	a.err = nil
}

func (a *PERTAnalyst) computeLocked() error {
	if a.computed {
		return a.err
	}
	a.computed = true
	a.earliest, a.latest, a.err = a.compute()
	return a.err
}

func (a *PERTAnalyst) compute() (map[graph.VertexID]int64, map[graph.VertexID]int64, error) {
	rootEdge, ok := a.g.Edge(a.root)
	if !ok {
		return nil, nil, sageerr.NewAnalysisFailedError("unknown root edge", nil)
	}
	finishEdge, ok := a.g.Edge(a.finish)
	if !ok {
		return nil, nil, sageerr.NewAnalysisFailedError("unknown finish edge", nil)
	}

	checker := NewCycleChecker(func(id graph.EdgeID) []graph.EdgeID {
		e, ok := a.g.Edge(id)
		if !ok {
			return nil
		}
		return e.Successors()
	})
	if err := checker.Check(a.root); err != nil {
		return nil, nil, err
	}

	earliest := make(map[graph.VertexID]int64)
	syncFwd := make(map[*graph.Synchronizer]map[graph.VertexID]int64)
	a.forwardVisit(rootEdge.Pre(), 0, earliest, syncFwd)

	finishV := finishEdge.Post()
	start, ok := earliest[finishV.ID()]
	if !ok {
		return nil, nil, sageerr.NewAnalysisFailedError("no path exists from start to finish", nil)
	}

	latest := make(map[graph.VertexID]int64)
	const inf = int64(1) << 40
	syncBwd := make(map[*graph.Synchronizer]map[graph.VertexID]int64)
	a.backwardVisit(finishV, start, latest, inf, syncBwd)

	a.fixupSynchronizers(earliest, latest)

	syncBwd2 := make(map[*graph.Synchronizer]map[graph.VertexID]int64)
	a.backwardVisit(finishV, latest[finishV.ID()], latest, inf, syncBwd2)

	if a.diagnostics.Validate {
		if err := a.validate(earliest, latest); err != nil {
			return nil, nil, err
		}
	}

	return earliest, latest, nil
}

// forwardVisit implements spec §4.4.2's forward pass: a pegged vertex
// overrides elapsed to its fixed offset; an unsynchronized vertex
// relaxes its earliest to max(current, elapsed) and recurses into
// successors; a synchronized vertex registers its visit and, once every
// member has arrived, releases all members at the latest of their
// individually elapsed times.
func (a *PERTAnalyst) forwardVisit(v *graph.Vertex, elapsed int64, earliest map[graph.VertexID]int64, syncState map[*graph.Synchronizer]map[graph.VertexID]int64) {
	if peg, ok := a.pegged(v.ID()); ok {
		elapsed = peg
	}

	if sync := v.Synchronizer(); sync != nil {
		visits, ok := syncState[sync]
		if !ok {
			visits = make(map[graph.VertexID]int64)
			syncState[sync] = visits
		}
		visits[v.ID()] = elapsed
		if len(visits) < len(sync.Members()) {
			return
		}
		max := int64(math.MinInt64)
		for _, e := range visits {
			if e > max {
				max = e
			}
		}
		for _, mID := range sync.Members() {
			m, ok := a.g.Vertex(mID)
			if !ok {
				continue
			}
			if cur, ok := earliest[mID]; !ok || max > cur {
				earliest[mID] = max
			}
			a.forwardSuccessors(m, max, earliest, syncState)
		}
		return
	}

	if cur, ok := earliest[v.ID()]; ok && elapsed <= cur {
		return
	}
	earliest[v.ID()] = elapsed
	a.forwardSuccessors(v, elapsed, earliest, syncState)
}

func (a *PERTAnalyst) forwardSuccessors(v *graph.Vertex, elapsed int64, earliest map[graph.VertexID]int64, syncState map[*graph.Synchronizer]map[graph.VertexID]int64) {
	if v.Role() == graph.RolePre {
		if principal, ok := a.g.Edge(v.Principal()); ok {
			a.forwardVisit(principal.Post(), elapsed+a.duration(principal.ID()).Nominal, earliest, syncState)
		}
	}
	for _, ligID := range v.PostEdges() {
		lig, ok := a.g.Edge(ligID)
		if !ok {
			continue
		}
		a.forwardVisit(lig.Post(), elapsed, earliest, syncState)
	}
}

// backwardVisit is the symmetric backward pass, starting from the
// finish vertex with elapsed set to its earliest.
func (a *PERTAnalyst) backwardVisit(v *graph.Vertex, elapsed int64, latest map[graph.VertexID]int64, inf int64, syncState map[*graph.Synchronizer]map[graph.VertexID]int64) {
	if sync := v.Synchronizer(); sync != nil {
		visits, ok := syncState[sync]
		if !ok {
			visits = make(map[graph.VertexID]int64)
			syncState[sync] = visits
		}
		visits[v.ID()] = elapsed
		if len(visits) < len(sync.Members()) {
			return
		}
		min := inf
		for _, e := range visits {
			if e < min {
				min = e
			}
		}
		for _, mID := range sync.Members() {
			m, ok := a.g.Vertex(mID)
			if !ok {
				continue
			}
			if cur, ok := latest[mID]; !ok || min < cur {
				latest[mID] = min
			}
			a.backwardPredecessors(m, min, latest, inf, syncState)
		}
		return
	}

	if cur, ok := latest[v.ID()]; ok && elapsed >= cur {
		return
	}
	latest[v.ID()] = elapsed
	a.backwardPredecessors(v, elapsed, latest, inf, syncState)
}

func (a *PERTAnalyst) backwardPredecessors(v *graph.Vertex, elapsed int64, latest map[graph.VertexID]int64, inf int64, syncState map[*graph.Synchronizer]map[graph.VertexID]int64) {
	if v.Role() == graph.RolePost {
		if principal, ok := a.g.Edge(v.Principal()); ok {
			a.backwardVisit(principal.Pre(), elapsed-a.duration(principal.ID()).Nominal, latest, inf, syncState)
		}
	}
	for _, ligID := range v.PreEdges() {
		lig, ok := a.g.Edge(ligID)
		if !ok {
			continue
		}
		a.backwardVisit(lig.Pre(), elapsed, latest, inf, syncState)
	}
}

// fixupSynchronizers implements spec §4.4.2's fix-up pass: for every
// vertex inside a synchronizer, its principal edge's post-vertex latest
// is reset to the pre-vertex latest plus the edge's nominal duration,
// undoing the drift a synchronizer's coupling otherwise introduces
// between latest-start and latest-finish.
func (a *PERTAnalyst) fixupSynchronizers(earliest, latest map[graph.VertexID]int64) {
	seen := make(map[*graph.Synchronizer]bool)
	for vID := range earliest {
		v, ok := a.g.Vertex(vID)
		if !ok || v.Synchronizer() == nil {
			continue
		}
		sync := v.Synchronizer()
		if seen[sync] {
			continue
		}
		seen[sync] = true
		for _, mID := range sync.Members() {
			m, ok := a.g.Vertex(mID)
			if !ok {
				continue
			}
			principal, ok := a.g.Edge(m.Principal())
			if !ok {
				continue
			}
			preLatest, ok := latest[m.ID()]
			if !ok {
				continue
			}
			latest[principal.Post().ID()] = preLatest + a.duration(principal.ID()).Nominal
		}
	}
}

// validate asserts the §4.4.2 diagnostics-mode invariants for every
// task edge, aggregating every offender into a single TimeCycleError.
func (a *PERTAnalyst) validate(earliest, latest map[graph.VertexID]int64) error {
	eps := a.diagnostics.Epsilon
	var offenders []string
	for _, id := range a.g.TaskEdges() {
		e, ok := a.g.Edge(id)
		if !ok {
			continue
		}
		es, esOK := earliest[e.Pre().ID()]
		ef, efOK := earliest[e.Post().ID()]
		ls, lsOK := latest[e.Pre().ID()]
		lf, lfOK := latest[e.Post().ID()]
		if !esOK || !efOK || !lsOK || !lfOK {
			continue
		}
		d := float64(a.duration(id).Nominal)
		if math.Abs(float64(ef-es)-d) > eps {
			offenders = append(offenders, string(id)+": earliest-start+duration != earliest-finish")
		}
		if math.Abs(float64(lf-ls)-d) > eps {
			offenders = append(offenders, string(id)+": latest-start+duration != latest-finish")
		}
		if float64(es) > float64(ls)+eps {
			offenders = append(offenders, string(id)+": earliest-start > latest-start")
		}
		if float64(ef) > float64(lf)+eps {
			offenders = append(offenders, string(id)+": earliest-finish > latest-finish")
		}
	}
	if len(offenders) > 0 {
		return sageerr.NewTimeCycleError(offenders)
	}
	return nil
}

func (a *PERTAnalyst) lookup(id graph.EdgeID) (es, ef, ls, lf int64, ok bool) {
	e, found := a.g.Edge(id)
	if !found {
		return 0, 0, 0, 0, false
	}
	es, esOK := a.earliest[e.Pre().ID()]
	ef, efOK := a.earliest[e.Post().ID()]
	ls, lsOK := a.latest[e.Pre().ID()]
	lf, lfOK := a.latest[e.Post().ID()]
	return es, ef, ls, lf, esOK && efOK && lsOK && lfOK
}

// EarliestStart returns edge's earliest-start tick.
func (a *PERTAnalyst) EarliestStart(id graph.EdgeID) (int64, error) { return a.query(id, 0) }

// EarliestFinish returns edge's earliest-finish tick.
func (a *PERTAnalyst) EarliestFinish(id graph.EdgeID) (int64, error) { return a.query(id, 1) }

// LatestStart returns edge's latest-start tick.
func (a *PERTAnalyst) LatestStart(id graph.EdgeID) (int64, error) { return a.query(id, 2) }

// LatestFinish returns edge's latest-finish tick.
func (a *PERTAnalyst) LatestFinish(id graph.EdgeID) (int64, error) { return a.query(id, 3) }

func (a *PERTAnalyst) query(id graph.EdgeID, which int) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.computeLocked(); err != nil {
		return 0, err
	}
	es, ef, ls, lf, ok := a.lookup(id)
	if !ok {
		if a.diagnostics.PermitUnknownEdges {
			return 0, nil
		}
		return 0, sageerr.NewAnalysisFailedError("unknown edge: "+string(id), nil)
	}
	switch which {
	case 0:
		return es, nil
	case 1:
		return ef, nil
	case 2:
		return ls, nil
	default:
		return lf, nil
	}
}

// AcceptableSlip returns latest-start minus earliest-start for id.
func (a *PERTAnalyst) AcceptableSlip(id graph.EdgeID) (int64, error) {
	es, err := a.EarliestStart(id)
	if err != nil {
		return 0, err
	}
	ls, err := a.LatestStart(id)
	if err != nil {
		return 0, err
	}
	return ls - es, nil
}

// IsCritical reports whether id's earliest-start equals its latest-start.
func (a *PERTAnalyst) IsCritical(id graph.EdgeID) (bool, error) {
	slip, err := a.AcceptableSlip(id)
	if err != nil {
		return false, err
	}
	return slip == 0, nil
}

// Mean returns the PERT expected duration (optimistic + 4*nominal +
// pessimistic) / 6 for id, falling back to the nominal duration when
// optimistic/pessimistic are unset.
func (a *PERTAnalyst) Mean(id graph.EdgeID) float64 {
	d := a.duration(id)
	if d.Optimistic == nil || d.Pessimistic == nil {
		return float64(d.Nominal)
	}
	return (float64(*d.Optimistic) + 4*float64(d.Nominal) + float64(*d.Pessimistic)) / 6
}

// Variance returns (pessimistic - optimistic)^2 for id, per spec
// §4.4.2's PERT extension, or zero when optimistic/pessimistic are
// unset.
func (a *PERTAnalyst) Variance(id graph.EdgeID) float64 {
	d := a.duration(id)
	if d.Optimistic == nil || d.Pessimistic == nil {
		return 0
	}
	spread := float64(*d.Pessimistic) - float64(*d.Optimistic)
	return spread * spread
}

// CriticalPathStats sums Mean and Variance along every critical edge,
// per spec §4.4.2's "critical-path mean and variance derived by
// summation along the critical path".
func (a *PERTAnalyst) CriticalPathStats() (mean, variance float64, err error) {
	a.mu.Lock()
	if err := a.computeLocked(); err != nil {
		a.mu.Unlock()
		return 0, 0, err
	}
	a.mu.Unlock()

	for _, id := range a.g.TaskEdges() {
		critical, err := a.IsCritical(id)
		if err != nil {
			return 0, 0, err
		}
		if !critical {
			continue
		}
		mean += a.Mean(id)
		variance += a.Variance(id)
	}
	return mean, variance, nil
}
