// Sage
// Copyright (c) Sage contributors
// SPDX-License-Identifier: Apache-2.0

package timing

// DetectDeadlock mirrors, verbatim, the source analyst's frontier-based
// deadlock heuristic flagged as a possible bug by spec §9's open
// questions: a candidate frontier node is pruned from the reported set
// whenever one of its own predecessors is also a candidate. Whether this
// is meant to suppress redundant reports of the same deadlock, or is
// simply a latent bug, is not resolved here — the rewrite preserves the
// exact behavior rather than silently "fixing" it.
//
// TODO(open question, spec §9): clarify the intent of frontier pruning
// before changing this behavior; preserved as-is pending that answer.
func DetectDeadlock[T comparable](frontier []T, predecessors func(n T) []T) []T {
	inFrontier := make(map[T]bool, len(frontier))
	for _, n := range frontier {
		inFrontier[n] = true
	}

	var pruned []T
	for _, n := range frontier {
		hasFrontierPredecessor := false
		for _, p := range predecessors(n) {
			if inFrontier[p] {
				hasFrontierPredecessor = true
				break
			}
		}
		if !hasFrontierPredecessor {
			pruned = append(pruned, n)
		}
	}
	return pruned
}
