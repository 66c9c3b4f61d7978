// Sage
// Copyright (c) Sage contributors
// SPDX-License-Identifier: Apache-2.0

package errwrap_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sagesim/sage/util/errwrap"
)

// TestWrapfPassesThroughANilCause mirrors sageerr.NewGraphStructureError,
// which always calls Wrapf even when its caller passed a nil cause.
func TestWrapfPassesThroughANilCause(t *testing.T) {
	assert.NoError(t, errwrap.Wrapf(nil, "graph: %s", "AddPreEdge: duplicate"))
}

// TestWrapfPrependsTheFormattedOperation mirrors the non-nil-cause path
// through sageerr.NewGraphStructureError.
func TestWrapfPrependsTheFormattedOperation(t *testing.T) {
	cause := fmt.Errorf("dangling reference")
	err := errwrap.Wrapf(cause, "graph: %s", "RemoveChildEdge")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "graph: RemoveChildEdge")
	assert.Contains(t, err.Error(), "dangling reference")
}

// TestAppendBuildsTheTimeCycleErrorChain mirrors
// sageerr.NewTimeCycleError's fold-one-offender-at-a-time loop.
func TestAppendBuildsTheTimeCycleErrorChain(t *testing.T) {
	var chain error
	for _, offender := range []string{"A", "B", "C"} {
		chain = errwrap.Append(chain, fmt.Errorf("in cycle: %s", offender))
	}
	assert.Error(t, chain)
	assert.Contains(t, chain.Error(), "in cycle: A")
	assert.Contains(t, chain.Error(), "in cycle: B")
	assert.Contains(t, chain.Error(), "in cycle: C")
}

func TestAppendWithBothNilIsNil(t *testing.T) {
	assert.NoError(t, errwrap.Append(nil, nil))
}

func TestAppendWithNilAdditionReturnsTheExistingChainUnchanged(t *testing.T) {
	existing := fmt.Errorf("existing")
	assert.Equal(t, existing, errwrap.Append(existing, nil))
}

func TestAppendWithNilChainReturnsTheNewErrorUnchanged(t *testing.T) {
	next := fmt.Errorf("next")
	assert.Equal(t, next, errwrap.Append(nil, next))
}

// TestStringUsedByEveryTypedSageerrMessage mirrors how
// sageerr.AnalysisFailedError, TimeCycleError, ResourceContentionError,
// and ConfigError all format their Err field: empty string for nil,
// the error's own message otherwise.
func TestStringUsedByEveryTypedSageerrMessage(t *testing.T) {
	assert.Equal(t, "", errwrap.String(nil))
	assert.Equal(t, "missing duration callback result", errwrap.String(fmt.Errorf("missing duration callback result")))
}
