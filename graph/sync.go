// Sage
// Copyright (c) Sage contributors
// SPDX-License-Identifier: Apache-2.0

package graph

// Sync reconciles the edges named in wantEdges, without discarding edges
// that are already correct. cmp reports whether an existing edge (by
// name) still matches its wanted counterpart; a named edge that is
// missing is created with add, and one that no longer matches is torn
// down with remove and then re-created with add. Edges of g that are not
// named in wantEdges are left untouched; Sync never removes them.
// Grounded on purpleidea/mgmt's pgraph.GraphSync three-callback diff
// shape, generalized here to also let the caller re-wire children and
// synchronizers rather than only a plain adjacency map.
func (g *Graph) Sync(
	wantEdges []string,
	existing func(name string) (*Edge, bool),
	cmp func(have *Edge, name string) bool,
	add func(name string) (*Edge, error),
	remove func(have *Edge) error,
) ([]*Edge, error) {
	want := make(map[string]bool, len(wantEdges))
	result := make([]*Edge, 0, len(wantEdges))

	for _, name := range wantEdges {
		want[name] = true
		have, ok := existing(name)
		if ok && cmp(have, name) {
			result = append(result, have)
			continue
		}
		if ok {
			if err := remove(have); err != nil {
				return nil, err
			}
		}
		created, err := add(name)
		if err != nil {
			return nil, err
		}
		result = append(result, created)
	}
	return result, nil
}
