// Sage
// Copyright (c) Sage contributors
// SPDX-License-Identifier: Apache-2.0

package exec

import (
	"github.com/sagesim/sage/graph"
	"github.com/sagesim/sage/sageerr"
)

type defaultReceiptKey struct{ v graph.VertexID }

// defaultReceipt implements the receipt rule every vertex uses when it
// has no EdgeReceiptManager set: fire once every pre-edge has signaled
// exactly once. Signaling the same edge twice within one execution is a
// fatal graph error, per spec §4.2 step 7.
func defaultReceipt(ctx *graph.GraphContext, v *graph.Vertex, e *graph.Edge) (bool, error) {
	key := defaultReceiptKey{v: v.ID()}
	raw, _ := ctx.Get(key)
	signaled, _ := raw.(map[graph.EdgeID]bool)
	if signaled == nil {
		signaled = make(map[graph.EdgeID]bool)
	}
	if signaled[e.ID()] {
		return false, duplicateSignalError(e.ID())
	}
	signaled[e.ID()] = true
	ctx.Set(key, signaled)

	for _, preID := range v.PreEdges() {
		if !signaled[preID] {
			return false, nil
		}
	}
	return true, nil
}

// MultiChannelEdgeReceiptManager accepts a pre-edge as satisfied only
// once every predecessor edge sharing the same channel marker has fired
// exactly once; the vertex then fires. Duplicate signals on the same
// channel are rejected with a fatal graph error.
type MultiChannelEdgeReceiptManager struct {
	// Channels maps each predecessor edge to its channel grouping. Edges
	// absent from this map are treated as belonging to graph.NullChannel.
	Channels map[graph.EdgeID]graph.Channel
}

type multiChannelKey struct{ v graph.VertexID }

// PreEdgeSatisfied implements graph.EdgeReceiptManager.
func (m *MultiChannelEdgeReceiptManager) PreEdgeSatisfied(ctx *graph.GraphContext, e *graph.Edge) (bool, error) {
	post := e.Post()
	key := multiChannelKey{v: post.ID()}
	raw, _ := ctx.Get(key)
	signaled, _ := raw.(map[graph.EdgeID]bool)
	if signaled == nil {
		signaled = make(map[graph.EdgeID]bool)
	}
	if signaled[e.ID()] {
		return false, duplicateSignalError(e.ID())
	}
	signaled[e.ID()] = true
	ctx.Set(key, signaled)

	channel := m.Channels[e.ID()]
	for _, preID := range post.PreEdges() {
		preChannel := m.Channels[preID]
		if preChannel != channel {
			continue
		}
		if !signaled[preID] {
			return false, nil
		}
	}
	return true, nil
}

func duplicateSignalError(e graph.EdgeID) error {
	return sageerr.NewGraphStructureError("PreEdgeSatisfied: duplicate signal from edge "+string(e), nil)
}
