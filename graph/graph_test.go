// Sage
// Copyright (c) Sage contributors
// SPDX-License-Identifier: Apache-2.0

package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagesim/sage/graph"
)

func TestConnectAndDisconnect(t *testing.T) {
	g := graph.New()
	a := g.NewEdge("A")
	b := g.NewEdge("B")

	require.NoError(t, a.AddSuccessor(b))
	assert.Len(t, a.Post().PostEdges(), 1)
	assert.Len(t, b.Pre().PreEdges(), 1)

	require.NoError(t, a.Disconnect(true))
	assert.Empty(t, a.Post().PostEdges())
	assert.Empty(t, b.Pre().PreEdges())
}

func TestEveryEdgeAppearsOnBothVertexAdjacencyLists(t *testing.T) {
	g := graph.New()
	a := g.NewEdge("A")
	b := g.NewEdge("B")
	require.NoError(t, a.AddSuccessor(b))

	ligID := a.Post().PostEdges()[0]
	lig, ok := g.Edge(ligID)
	require.True(t, ok)
	assert.Contains(t, lig.Pre().PostEdges(), ligID)
	assert.Contains(t, lig.Post().PreEdges(), ligID)
}

func TestChildEdgeGetsCostartAndCofinishWhenNoExternalNeighbors(t *testing.T) {
	g := graph.New()
	parent := g.NewEdge("parent")
	child := g.NewEdge("child")

	require.NoError(t, parent.AddChildEdge(child))

	assert.Len(t, parent.Pre().PostEdges(), 1, "co-start ligature expected from parent.pre")
	assert.Len(t, child.Pre().PreEdges(), 1, "co-start ligature expected into child.pre")
	assert.Len(t, child.Post().PostEdges(), 1, "co-finish ligature expected from child.post")
	assert.Len(t, parent.Post().PreEdges(), 1, "co-finish ligature expected into parent.post")

	pid, ok := child.Parent()
	require.True(t, ok)
	assert.Equal(t, parent.ID(), pid)
	assert.Contains(t, parent.Children(), child.ID())
}

func TestChildWithExternalPredecessorSkipsCostart(t *testing.T) {
	g := graph.New()
	parent := g.NewEdge("parent")
	upstream := g.NewEdge("upstream")
	child := g.NewEdge("child")

	require.NoError(t, upstream.AddSuccessor(child))
	require.NoError(t, parent.AddChildEdge(child))

	assert.Empty(t, parent.Pre().PostEdges(), "no co-start should be added when child already has an external predecessor")
	assert.Len(t, parent.Post().PreEdges(), 1, "co-finish still expected since child has no successor")
}

func TestRemoveChildEdgeDropsExactlyItsLigatures(t *testing.T) {
	g := graph.New()
	parent := g.NewEdge("parent")
	child := g.NewEdge("child")
	require.NoError(t, parent.AddChildEdge(child))

	require.NoError(t, parent.RemoveChildEdge(child))

	assert.Empty(t, parent.Pre().PostEdges())
	assert.Empty(t, child.Pre().PreEdges())
	assert.Empty(t, child.Post().PostEdges())
	assert.Empty(t, parent.Post().PreEdges())
	assert.Empty(t, parent.Children())
	_, ok := child.Parent()
	assert.False(t, ok)
}

// suspendResumeSpy is a graph.Suspendable double for asserting that a
// cascading mutation drives exactly one Suspend/Resume pair rather than
// one per ligature it touches, or none at all.
type suspendResumeSpy struct {
	suspends int
	resumes  int
}

func (s *suspendResumeSpy) Suspend() { s.suspends++ }
func (s *suspendResumeSpy) Resume()  { s.resumes++ }

func TestAddChildEdgeSuspendsValidityExactlyOnceAcrossTheCascade(t *testing.T) {
	g := graph.New()
	parent := g.NewEdge("parent")
	child := g.NewEdge("child")

	spy := &suspendResumeSpy{}
	g.RegisterValidity(spy)

	require.NoError(t, parent.AddChildEdge(child))

	assert.Equal(t, 1, spy.suspends, "the co-start and co-finish ligature inserts must share one Suspend")
	assert.Equal(t, 1, spy.resumes, "and one matching Resume, not one pair per ligature")
}

func TestRemoveChildEdgeSuspendsValidityExactlyOnceAcrossTheCascade(t *testing.T) {
	g := graph.New()
	parent := g.NewEdge("parent")
	child := g.NewEdge("child")
	require.NoError(t, parent.AddChildEdge(child))

	spy := &suspendResumeSpy{}
	g.RegisterValidity(spy)

	require.NoError(t, parent.RemoveChildEdge(child))

	assert.Equal(t, 1, spy.suspends, "the whole ligature-removal cascade must be wrapped in exactly one Suspend")
	assert.Equal(t, 1, spy.resumes, "and exactly one matching Resume, not one pair per ligature dropped")
}

func TestGraphMutationIsANoOpWithNoValidityRegistered(t *testing.T) {
	g := graph.New()
	parent := g.NewEdge("parent")
	child := g.NewEdge("child")

	require.NoError(t, parent.AddChildEdge(child))
	assert.NotPanics(t, func() {
		require.NoError(t, parent.RemoveChildEdge(child))
	}, "suspendValidity/resumeValidity must tolerate no Suspendable being registered")
}

func TestSecondChildrenBlockOnAlreadyParentedEdgeFails(t *testing.T) {
	g := graph.New()
	parentA := g.NewEdge("parentA")
	parentB := g.NewEdge("parentB")
	child := g.NewEdge("child")

	require.NoError(t, parentA.AddChildEdge(child))
	err := parentB.AddChildEdge(child)
	assert.Error(t, err)
}

func TestCloningALigatureFails(t *testing.T) {
	g := graph.New()
	a := g.NewEdge("A")
	b := g.NewEdge("B")
	require.NoError(t, a.AddSuccessor(b))

	ligID := a.Post().PostEdges()[0]
	lig, ok := g.Edge(ligID)
	require.True(t, ok)

	_, err := lig.Clone(map[graph.EdgeID]graph.EdgeID{})
	assert.Error(t, err)
}

func TestCloneDuplicatesChildStructure(t *testing.T) {
	g := graph.New()
	parent := g.NewEdge("parent")
	child := g.NewEdge("child")
	require.NoError(t, parent.AddChildEdge(child))

	clone, err := parent.Clone(map[graph.EdgeID]graph.EdgeID{})
	require.NoError(t, err)
	assert.NotEqual(t, parent.ID(), clone.ID())
	require.Len(t, clone.Children(), 1)
	assert.NotEqual(t, child.ID(), clone.Children()[0])
}

func TestStructureChangeEventsEmittedForConnect(t *testing.T) {
	g := graph.New()
	var kinds []graph.ChangeKind
	g.Observe(graph.ObserverFunc(func(c graph.StructureChange) {
		kinds = append(kinds, c.Kind)
	}))

	a := g.NewEdge("A")
	b := g.NewEdge("B")
	require.NoError(t, a.AddSuccessor(b))

	assert.Contains(t, kinds, graph.AddPostEdge)
	assert.Contains(t, kinds, graph.AddPreEdge)
}

func TestSynchronizeMergesAndRejectsPostVertex(t *testing.T) {
	g := graph.New()
	a := g.NewEdge("A")
	b := g.NewEdge("B")

	sync, err := g.Synchronize(a.Pre(), b.Pre())
	require.NoError(t, err)
	assert.ElementsMatch(t, []graph.VertexID{a.Pre().ID(), b.Pre().ID()}, sync.Members())
	assert.Equal(t, sync, a.Pre().Synchronizer())
	assert.Equal(t, sync, b.Pre().Synchronizer())

	_, err = g.Synchronize(a.Post())
	assert.Error(t, err)
}

func TestSynchronizeMergeOfTwoExistingSynchronizers(t *testing.T) {
	g := graph.New()
	a := g.NewEdge("A")
	b := g.NewEdge("B")
	c := g.NewEdge("C")
	d := g.NewEdge("D")

	_, err := g.Synchronize(a.Pre(), b.Pre())
	require.NoError(t, err)
	_, err = g.Synchronize(c.Pre(), d.Pre())
	require.NoError(t, err)

	merged, err := g.Synchronize(b.Pre(), c.Pre())
	require.NoError(t, err)
	assert.ElementsMatch(t,
		[]graph.VertexID{a.Pre().ID(), b.Pre().ID(), c.Pre().ID(), d.Pre().ID()},
		merged.Members())
}

func TestTaskEdgesExcludesLigatures(t *testing.T) {
	g := graph.New()
	a := g.NewEdge("A")
	b := g.NewEdge("B")
	require.NoError(t, a.AddSuccessor(b))

	ids := g.TaskEdges()
	assert.ElementsMatch(t, []graph.EdgeID{a.ID(), b.ID()}, ids)
}

func TestPredecessorsAndSuccessorsExcludeHierarchyLigatures(t *testing.T) {
	g := graph.New()
	parent := g.NewEdge("parent")
	a := g.NewEdge("a")
	b := g.NewEdge("b")
	require.NoError(t, a.AddSuccessor(b))
	require.NoError(t, parent.AddChildEdge(a))
	require.NoError(t, parent.AddChildEdge(b))

	assert.Empty(t, a.Predecessors(), "a's only predecessor ligature is the co-start from its parent")
	assert.Equal(t, []graph.EdgeID{b.ID()}, a.Successors())
	assert.Equal(t, []graph.EdgeID{a.ID()}, b.Predecessors())
}

func TestGraphContextIsolation(t *testing.T) {
	c1 := graph.NewGraphContext()
	c2 := graph.NewGraphContext()

	c1.Set("k", 1)
	_, ok := c2.Get("k")
	assert.False(t, ok)

	v, ok := c1.Get("k")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	c1.Delete("k")
	_, ok = c1.Get("k")
	assert.False(t, ok)
}
