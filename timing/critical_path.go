// Sage
// Copyright (c) Sage contributors
// SPDX-License-Identifier: Apache-2.0

package timing

import (
	"sort"
	"sync"

	"github.com/sagesim/sage/sageerr"
)

// Record is the per-node timing data spec §4.4.1 and §3 describe: the
// early/late start and finish instants, the caller-supplied nominal
// start and duration, and whether the node is pinned to a fixed offset.
type Record struct {
	EarlyStart, EarlyFinish float64
	LateStart, LateFinish   float64
	NominalStart            float64
	NominalDuration         float64
	Fixed                   bool
}

// Critical reports whether r's early and late times coincide exactly,
// the definition spec §3 and §4.4.1 both give.
func (r Record) Critical() bool {
	return r.EarlyStart == r.LateStart && r.EarlyFinish == r.LateFinish
}

// CriticalPathAnalyst is the "template-free" critical-path analysis of
// spec §4.4.1: a Go-generic reimplementation of the source's abstract
// node type T, driven entirely by caller-supplied callbacks so it never
// needs to know what T actually is. Results are memoized on first
// request and held until Invalidate is called.
type CriticalPathAnalyst[T comparable] struct {
	// Logf is called for diagnostic tracing. Defaults to a no-op.
	Logf func(format string, v ...interface{})
	// Debug gates verbose propagation tracing.
	Debug bool

	Start, Finish T
	StartTime     func(T) float64
	Duration      func(T) float64
	IsFixed       func(T) bool
	Successors    func(T) []T
	Predecessors  func(T) []T

	mu       sync.Mutex
	records  map[T]*Record
	computed bool
	err      error
}

// New builds a CriticalPathAnalyst between start and finish driven by
// the given callbacks.
func New[T comparable](start, finish T, startTime, duration func(T) float64, isFixed func(T) bool, successors, predecessors func(T) []T) *CriticalPathAnalyst[T] {
	return &CriticalPathAnalyst[T]{
		Logf:         func(string, ...interface{}) {},
		Start:        start,
		Finish:       finish,
		StartTime:    startTime,
		Duration:     duration,
		IsFixed:      isFixed,
		Successors:   successors,
		Predecessors: predecessors,
	}
}

// Invalidate clears the memoized result, forcing the next query to
// recompute.
func (a *CriticalPathAnalyst[T]) Invalidate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.computed = false
	a.records = nil
	a.err = nil
}

// Record returns the timing record for n, computing (or reusing the
// memoized) analysis first.
func (a *CriticalPathAnalyst[T]) Record(n T) (Record, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.computeLocked(); err != nil {
		return Record{}, err
	}
	r, ok := a.records[n]
	if !ok {
		return Record{}, sageerr.NewAnalysisFailedError("node not reachable from start", nil)
	}
	return *r, nil
}

// CriticalPath returns every critical node, ordered by early-start, per
// spec §4.4.1's closing sentence.
func (a *CriticalPathAnalyst[T]) CriticalPath() ([]T, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.computeLocked(); err != nil {
		return nil, err
	}
	var nodes []T
	for n, r := range a.records {
		if r.Critical() {
			nodes = append(nodes, n)
		}
	}
	sort.Slice(nodes, func(i, j int) bool {
		return a.records[nodes[i]].EarlyStart < a.records[nodes[j]].EarlyStart
	})
	return nodes, nil
}

func (a *CriticalPathAnalyst[T]) computeLocked() error {
	if a.computed {
		return a.err
	}
	a.computed = true
	a.records, a.err = a.compute()
	return a.err
}

func (a *CriticalPathAnalyst[T]) compute() (map[T]*Record, error) {
	discovered := make(map[T]bool)
	var order []T
	var dfs func(T)
	dfs = func(n T) {
		if discovered[n] {
			return
		}
		discovered[n] = true
		order = append(order, n)
		for _, s := range a.Successors(n) {
			dfs(s)
		}
	}
	dfs(a.Start)
	if !discovered[a.Finish] {
		return nil, sageerr.NewAnalysisFailedError("no path exists from start to finish", nil)
	}

	checker := NewCycleChecker(a.Successors)
	if err := checker.Check(a.Start); err != nil {
		return nil, err
	}

	records := make(map[T]*Record, len(order))
	for _, n := range order {
		records[n] = &Record{
			NominalStart:    a.StartTime(n),
			NominalDuration: a.Duration(n),
			Fixed:           a.IsFixed(n),
		}
	}

	a.forwardPass(discovered, records)
	a.backwardPass(discovered, records)
	return records, nil
}

// forwardPass propagates early-start/early-finish from a.Start, only
// recursing into a successor once every one of its (discovered)
// predecessors has weighed in, per spec §4.4.1 — the same remaining-
// in-degree gating as purpleidea/mgmt's pgraph.TopologicalSort (Kahn's
// algorithm).
func (a *CriticalPathAnalyst[T]) forwardPass(discovered map[T]bool, records map[T]*Record) {
	remaining := make(map[T]int, len(discovered))
	for n := range discovered {
		count := 0
		for _, p := range a.Predecessors(n) {
			if discovered[p] {
				count++
			}
		}
		remaining[n] = count
	}

	var queue []T
	queue = append(queue, a.Start)
	for n := range discovered {
		r := records[n]
		r.EarlyStart = r.NominalStart
		if n != a.Start && remaining[n] == 0 {
			queue = append(queue, n)
		}
	}

	processed := make(map[T]bool)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if processed[n] {
			continue
		}
		processed[n] = true

		r := records[n]
		r.EarlyFinish = r.EarlyStart + r.NominalDuration

		for _, s := range a.Successors(n) {
			if !discovered[s] {
				continue
			}
			sr := records[s]
			if !sr.Fixed && r.EarlyFinish > sr.EarlyStart {
				sr.EarlyStart = r.EarlyFinish
			}
			remaining[s]--
			if remaining[s] == 0 {
				queue = append(queue, s)
			}
		}
	}
}

// backwardPass propagates late-finish/late-start from a.Finish, whose
// late times are pinned to its early times, gated symmetrically to
// forwardPass.
func (a *CriticalPathAnalyst[T]) backwardPass(discovered map[T]bool, records map[T]*Record) {
	remaining := make(map[T]int, len(discovered))
	for n := range discovered {
		count := 0
		for _, s := range a.Successors(n) {
			if discovered[s] {
				count++
			}
		}
		remaining[n] = count
	}

	const inf = 1e18
	for n := range discovered {
		r := records[n]
		if n == a.Finish {
			r.LateStart = r.EarlyStart
			r.LateFinish = r.EarlyFinish
		} else {
			r.LateFinish = inf
		}
	}

	queue := []T{a.Finish}
	processed := make(map[T]bool)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if processed[n] {
			continue
		}
		processed[n] = true

		r := records[n]
		if n != a.Finish && !r.Fixed {
			r.LateStart = r.LateFinish - r.NominalDuration
		} else if r.Fixed {
			r.LateStart = r.EarlyStart
			r.LateFinish = r.EarlyFinish
		}

		for _, p := range a.Predecessors(n) {
			if !discovered[p] {
				continue
			}
			pr := records[p]
			if !pr.Fixed && r.LateStart < pr.LateFinish {
				pr.LateFinish = r.LateStart
			}
			remaining[p]--
			if remaining[p] == 0 {
				queue = append(queue, p)
			}
		}
	}
}
