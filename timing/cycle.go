// Sage
// Copyright (c) Sage contributors
// SPDX-License-Identifier: Apache-2.0

// Package timing implements the two independent static-graph analyses
// of spec §4.4: a template-free CriticalPathAnalyst over any caller
// supplied node type, and a PERTAnalyst operating directly on
// *graph.Graph with vertex synchronizer support. Neither analyst ever
// mutates the graph it reads.
package timing

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/sagesim/sage/sageerr"
)

// CycleError reports a dependency cycle found by CycleChecker. Offenders
// lists the loop's members in path order, exactly as spec §4.4.2's
// "Cycle detection" paragraph and its scenario 5 test require. The
// aggregate error underneath uses hashicorp/go-multierror so every
// offender is individually inspectable, the same way
// purpleidea/mgmt's pgraph/semaphore.go builds SemaLock's failure list.
type CycleError struct {
	Offenders []string
	Err       error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected among %v: %s", e.Offenders, e.Err)
}

// Unwrap exposes the underlying GraphStructureError so callers can use
// errors.As against the §7 error taxonomy.
func (e *CycleError) Unwrap() error { return e.Err }

func newCycleError(offenders []string) *CycleError {
	var merr *multierror.Error
	for _, o := range offenders {
		merr = multierror.Append(merr, fmt.Errorf("in cycle: %s", o))
	}
	var err error
	if merr != nil {
		err = merr.ErrorOrNil()
	}
	return &CycleError{Offenders: offenders, Err: sageerr.NewGraphStructureError("cycle detected", err)}
}

// CycleChecker walks a graph of type-parameterized nodes depth-first,
// marking each element "on-path" while recursing and raising a
// GraphStructureError the moment it re-encounters an on-path element,
// per spec §4.4.2's closing paragraph. It is shared by both
// CriticalPathAnalyst and PERTAnalyst so the same offender-ordering
// behavior applies to both.
type CycleChecker[T comparable] struct {
	// Successors returns the outbound neighbors of a node.
	Successors func(n T) []T
}

// NewCycleChecker builds a CycleChecker walking edges reported by successors.
func NewCycleChecker[T comparable](successors func(T) []T) *CycleChecker[T] {
	return &CycleChecker[T]{Successors: successors}
}

// Check walks forward from start and returns a *CycleError the first
// time a cycle is found, or nil if the reachable subgraph is acyclic.
func (c *CycleChecker[T]) Check(start T) error {
	onPath := make(map[T]bool)
	visited := make(map[T]bool)
	var path []T
	var result error

	var dfs func(T) bool
	dfs = func(n T) bool {
		if onPath[n] {
			loop := []T{n}
			for i := len(path) - 1; i >= 0; i-- {
				if path[i] == n {
					break
				}
				loop = append(loop, path[i])
			}
			offenders := make([]string, len(loop))
			for i, l := range loop {
				offenders[i] = fmt.Sprintf("%v", l)
			}
			result = newCycleError(offenders)
			return true
		}
		if visited[n] {
			return false
		}
		visited[n] = true
		onPath[n] = true
		path = append(path, n)

		stop := false
		for _, s := range c.Successors(n) {
			if dfs(s) {
				stop = true
				break
			}
		}

		path = path[:len(path)-1]
		onPath[n] = false
		return stop
	}

	dfs(start)
	return result
}
