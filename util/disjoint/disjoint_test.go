// Sage
// Copyright (c) Sage contributors
// SPDX-License-Identifier: Apache-2.0

package disjoint_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagesim/sage/util/disjoint"
)

// TestUnionConnectsExactlyTheUnitedElements mirrors how
// graph.Graph.Synchronize merges two Pre vertices' synchronizer sets:
// once unioned, every element in either original set must report
// connected, and an untouched third element must not.
func TestUnionConnectsExactlyTheUnitedElements(t *testing.T) {
	a := disjoint.NewElem[string]()
	b := disjoint.NewElem[string]()
	untouched := disjoint.NewElem[string]()

	a.Union(b)

	assert.True(t, disjoint.IsConnected(a, b))
	assert.False(t, disjoint.IsConnected(a, untouched))
	assert.False(t, disjoint.IsConnected(b, untouched))
}

// TestRepresentativeIsStableAfterUnion exercises the same accessor
// graph.Synchronize uses after a Merge: Find (and the Representative
// helper built on it) must keep returning the same element no matter
// which side of the union it is read from.
func TestRepresentativeIsStableAfterUnion(t *testing.T) {
	a := disjoint.NewElem[int]()
	b := disjoint.NewElem[int]()
	a.Union(b)

	assert.Equal(t, a.Find(), b.Find())
	assert.Equal(t, disjoint.Representative(a), disjoint.Representative(b))
}

// TestMergeCombinesDataFromBothRepresentatives mirrors
// graph.mergeSynchronizers: Merge must run the supplied combinator
// against the two sets' representative data and store the result back
// on the new union's root, reachable from either original element.
func TestMergeCombinesDataFromBothRepresentatives(t *testing.T) {
	a := disjoint.NewElem[[]string]()
	a.Data = []string{"vertex-a"}
	b := disjoint.NewElem[[]string]()
	b.Data = []string{"vertex-b"}

	concat := func(x, y []string) ([]string, error) {
		out := append(append([]string(nil), x...), y...)
		return out, nil
	}
	require.NoError(t, disjoint.Merge(a, b, concat))

	got := append([]string(nil), disjoint.Representative(a)...)
	sort.Strings(got)
	assert.Equal(t, []string{"vertex-a", "vertex-b"}, got)
	assert.Equal(t, disjoint.Representative(a), disjoint.Representative(b))
}

// TestUnsafeMergeUsesGivenElementsWithoutFindingRootsFirst exercises the
// distinction the package documents between Merge and UnsafeMerge: a
// non-representative element passed directly to UnsafeMerge combines
// whatever data that element (not its set's representative) is
// currently holding.
func TestUnsafeMergeUsesGivenElementsWithoutFindingRootsFirst(t *testing.T) {
	a := disjoint.NewElem[int]()
	a.Data = 1
	b := disjoint.NewElem[int]()
	b.Data = 2
	c := disjoint.NewElem[int]()
	c.Data = 100

	sum := func(x, y int) (int, error) { return x + y, nil }
	require.NoError(t, disjoint.UnsafeMerge(a, b, sum))
	assert.Equal(t, 3, disjoint.Representative(a))

	// b is no longer its set's representative, so UnsafeMerge combines
	// b's stale 2 (not the set's 3) with c's 100.
	require.NoError(t, disjoint.UnsafeMerge(b, c, sum))
	assert.Equal(t, 102, disjoint.Representative(a))
}
