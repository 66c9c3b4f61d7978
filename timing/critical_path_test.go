// Sage
// Copyright (c) Sage contributors
// SPDX-License-Identifier: Apache-2.0

package timing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagesim/sage/timing"
)

func chainGraph(edges map[string][]string) (successors, predecessors func(string) []string) {
	preds := make(map[string][]string)
	for n, succs := range edges {
		for _, s := range succs {
			preds[s] = append(preds[s], n)
		}
	}
	successors = func(n string) []string { return edges[n] }
	predecessors = func(n string) []string { return preds[n] }
	return
}

// TestLinearChainEveryNodeCritical exercises spec scenario 1: a linear
// chain A-B-C with durations 3, 4, 2 puts every node on the critical
// path with early-starts 0, 3, 7.
func TestLinearChainEveryNodeCritical(t *testing.T) {
	successors, predecessors := chainGraph(map[string][]string{
		"A": {"B"},
		"B": {"C"},
	})
	duration := map[string]float64{"A": 3, "B": 4, "C": 2}

	a := timing.New("A", "C",
		func(string) float64 { return 0 },
		func(n string) float64 { return duration[n] },
		func(string) bool { return false },
		successors, predecessors)

	ra, err := a.Record("A")
	require.NoError(t, err)
	rb, err := a.Record("B")
	require.NoError(t, err)
	rc, err := a.Record("C")
	require.NoError(t, err)

	assert.Equal(t, 0.0, ra.EarlyStart)
	assert.Equal(t, 3.0, rb.EarlyStart)
	assert.Equal(t, 7.0, rc.EarlyStart)
	assert.True(t, ra.Critical())
	assert.True(t, rb.Critical())
	assert.True(t, rc.Critical())

	path, err := a.CriticalPath()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, path)
}

// TestDiamondSlackOnlyOnTheShorterBranch exercises spec scenario 2: a
// diamond A -> {B, C} -> D with durations 2, 4, 6, 3 has earliest-finish
// 11 at D, a critical path of A, C, D, and 2 ticks of slip on B.
func TestDiamondSlackOnlyOnTheShorterBranch(t *testing.T) {
	successors, predecessors := chainGraph(map[string][]string{
		"A": {"B", "C"},
		"B": {"D"},
		"C": {"D"},
	})
	duration := map[string]float64{"A": 2, "B": 4, "C": 6, "D": 3}

	a := timing.New("A", "D",
		func(string) float64 { return 0 },
		func(n string) float64 { return duration[n] },
		func(string) bool { return false },
		successors, predecessors)

	rd, err := a.Record("D")
	require.NoError(t, err)
	assert.Equal(t, 11.0, rd.EarlyFinish)

	path, err := a.CriticalPath()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C", "D"}, path)

	rb, err := a.Record("B")
	require.NoError(t, err)
	assert.Equal(t, 2.0, rb.LateStart-rb.EarlyStart, "B should carry exactly 2 ticks of slip")
	assert.False(t, rb.Critical())
}

func TestRecordOfUnreachableNodeFails(t *testing.T) {
	successors, predecessors := chainGraph(map[string][]string{
		"A": {"B"},
	})
	a := timing.New("A", "B",
		func(string) float64 { return 0 },
		func(string) float64 { return 1 },
		func(string) bool { return false },
		successors, predecessors)

	_, err := a.Record("Z")
	assert.Error(t, err)
}

func TestInvalidateForcesRecompute(t *testing.T) {
	duration := map[string]float64{"A": 1, "B": 1}
	successors, predecessors := chainGraph(map[string][]string{"A": {"B"}})
	a := timing.New("A", "B",
		func(string) float64 { return 0 },
		func(n string) float64 { return duration[n] },
		func(string) bool { return false },
		successors, predecessors)

	r1, err := a.Record("B")
	require.NoError(t, err)
	assert.Equal(t, 1.0, r1.EarlyStart)

	duration["A"] = 5
	a.Invalidate()

	r2, err := a.Record("B")
	require.NoError(t, err)
	assert.Equal(t, 5.0, r2.EarlyStart)
}
