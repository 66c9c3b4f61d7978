// Sage
// Copyright (c) Sage contributors
// SPDX-License-Identifier: Apache-2.0

package executive_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagesim/sage/executive"
)

type recordingReceiver struct {
	label string
	order *[]string
}

func (r recordingReceiver) Fire(ctrl executive.EventController) error {
	*r.order = append(*r.order, r.label)
	return nil
}

func TestSimExecutiveOrdersByTimeThenPriorityThenFIFO(t *testing.T) {
	ex := executive.NewSimExecutive()
	var order []string

	require.NoError(t, ex.RequestEvent(recordingReceiver{label: "t1-p1-first", order: &order}, 1, 1, nil, executive.Synchronous))
	require.NoError(t, ex.RequestEvent(recordingReceiver{label: "t1-p1-second", order: &order}, 1, 1, nil, executive.Synchronous))
	require.NoError(t, ex.RequestEvent(recordingReceiver{label: "t1-p0", order: &order}, 1, 0, nil, executive.Synchronous))
	require.NoError(t, ex.RequestEvent(recordingReceiver{label: "t0", order: &order}, 0, 0, nil, executive.Synchronous))

	require.NoError(t, ex.Run())

	assert.Equal(t, []string{"t0", "t1-p0", "t1-p1-first", "t1-p1-second"}, order)
}

type chainReceiver struct {
	ex    *executive.SimExecutive
	depth int
	max   int
	order *[]int
}

func (r chainReceiver) Fire(ctrl executive.EventController) error {
	*r.order = append(*r.order, r.depth)
	if r.depth < r.max {
		return r.ex.RequestEvent(chainReceiver{ex: r.ex, depth: r.depth + 1, max: r.max, order: r.order}, r.ex.Now()+1, 0, nil, executive.Synchronous)
	}
	return nil
}

func TestSimExecutiveRunDrainsEventsScheduledDuringFiring(t *testing.T) {
	ex := executive.NewSimExecutive()
	var order []int
	require.NoError(t, ex.RequestEvent(chainReceiver{ex: ex, depth: 0, max: 3, order: &order}, 0, 0, nil, executive.Synchronous))
	require.NoError(t, ex.Run())
	assert.Equal(t, []int{0, 1, 2, 3}, order)
}
