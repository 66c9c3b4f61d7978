// Sage
// Copyright (c) Sage contributors
// SPDX-License-Identifier: Apache-2.0

package exec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagesim/sage/graph"
)

func TestDefaultReceiptFiresOnceEveryPreEdgeHasSignaled(t *testing.T) {
	g := graph.New()
	a := g.NewEdge("A")
	b := g.NewEdge("B")
	c := g.NewEdge("C")
	require.NoError(t, a.AddSuccessor(c))
	require.NoError(t, b.AddSuccessor(c))

	aLig, _ := g.Edge(a.Post().PostEdges()[0])
	bLig, _ := g.Edge(b.Post().PostEdges()[0])

	ctx := graph.NewGraphContext()
	ready, err := defaultReceipt(ctx, c.Pre(), aLig)
	require.NoError(t, err)
	assert.False(t, ready, "should not fire until every pre-edge has signaled")

	ready, err = defaultReceipt(ctx, c.Pre(), bLig)
	require.NoError(t, err)
	assert.True(t, ready)
}

func TestDefaultReceiptRejectsDuplicateSignal(t *testing.T) {
	g := graph.New()
	a := g.NewEdge("A")
	b := g.NewEdge("B")
	require.NoError(t, a.AddSuccessor(b))
	lig, _ := g.Edge(a.Post().PostEdges()[0])

	ctx := graph.NewGraphContext()
	_, err := defaultReceipt(ctx, b.Pre(), lig)
	require.NoError(t, err)

	_, err = defaultReceipt(ctx, b.Pre(), lig)
	assert.Error(t, err)
}
