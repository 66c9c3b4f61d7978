// Sage
// Copyright (c) Sage contributors
// SPDX-License-Identifier: Apache-2.0

// Package validity implements the Validity Service (spec §4.3): a
// shadow graph of per-task validity state, kept current by observing
// structural events on a *graph.Graph and by application code reporting
// self-state flips, so downstream clients (the timing analysts) can gate
// a recomputation on "is this graph currently valid".
package validity

import "github.com/sagesim/sage/graph"

// SelfState is a node's own validity, independent of its children or
// predecessors.
type SelfState int

// The two self-states a node may carry.
const (
	Valid SelfState = iota
	Invalid
)

func (s SelfState) String() string {
	if s == Valid {
		return "Valid"
	}
	return "Invalid"
}

// ValidityNode is the shadow-graph record the Validity Service keeps per
// task edge: its own state, how many of its children and predecessors
// are currently invalid, and a parent back-pointer. Overall validity is
// the conjunction of all three (spec §3).
type ValidityNode struct {
	ID                  graph.EdgeID
	SelfState           SelfState
	InvalidPredecessors int
	InvalidChildren     int
	Parent              *graph.EdgeID

	children     []graph.EdgeID
	predecessors []graph.EdgeID
	successors   []graph.EdgeID
}

// Overall reports the node's aggregate validity: self-valid, and no
// invalid children, and no invalid predecessors.
func (n *ValidityNode) Overall() bool {
	return n.SelfState == Valid && n.InvalidChildren == 0 && n.InvalidPredecessors == 0
}

// Observer receives "overall validity changed" notifications.
type Observer interface {
	ObserveValidityChange(node graph.EdgeID, overallValid bool)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(graph.EdgeID, bool)

// ObserveValidityChange implements Observer.
func (f ObserverFunc) ObserveValidityChange(id graph.EdgeID, v bool) { f(id, v) }
