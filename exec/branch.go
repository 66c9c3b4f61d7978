// Sage
// Copyright (c) Sage contributors
// SPDX-License-Identifier: Apache-2.0

package exec

import (
	"github.com/sagesim/sage/executive"
	"github.com/sagesim/sage/graph"
)

// edgeFireReceiver adapts a single branch-manager-approved edge firing
// to executive.Receiver, so both channel branching managers schedule
// the edge at the executive's current time and priority instead of
// running it inline from within FireIfAppropriate.
type edgeFireReceiver struct {
	engine *Engine
	ctx    *graph.GraphContext
	edge   *graph.Edge
}

// Fire implements executive.Receiver.
func (r *edgeFireReceiver) Fire(ctrl executive.EventController) error {
	return r.engine.runEdge(r.ctx, r.edge)
}

func (e *Engine) scheduleEdge(ctx *graph.GraphContext, edge *graph.Edge) error {
	r := &edgeFireReceiver{engine: e, ctx: ctx, edge: edge}
	return e.ex.RequestEvent(r, e.ex.Now(), e.ex.CurrentPriority(), nil, executive.Synchronous)
}

// CountedBranchManager implements spec §4.2's first built-in firing
// manager: it cycles through Channels in declaration order, firing every
// edge on the active channel for Counts[i] activations before advancing
// to the next channel, wrapping back to the first once every channel has
// had its turn.
type CountedBranchManager struct {
	engine *Engine

	// Channels lists the channel groups in cycle order.
	Channels []graph.Channel
	// Counts gives, for each entry in Channels, how many activations to
	// fire from that channel before advancing. Must be the same length
	// as Channels.
	Counts []int
}

// NewCountedBranchManager builds a CountedBranchManager that schedules
// fired edges through e.
func NewCountedBranchManager(e *Engine, channels []graph.Channel, counts []int) *CountedBranchManager {
	return &CountedBranchManager{engine: e, Channels: channels, Counts: counts}
}

type countedBranchState struct {
	index     int
	remaining int
}

type countedBranchKey struct{ m *CountedBranchManager }

// Start implements graph.EdgeFiringManager: it stores the initial active
// channel and remaining count in ctx if this is the first Start seen for
// this context, otherwise leaves an in-progress cycle untouched.
func (m *CountedBranchManager) Start(ctx *graph.GraphContext) error {
	key := countedBranchKey{m: m}
	if _, ok := ctx.Get(key); ok {
		return nil
	}
	if len(m.Channels) == 0 {
		return nil
	}
	ctx.Set(key, &countedBranchState{index: 0, remaining: m.Counts[0]})
	return nil
}

// FireIfAppropriate implements graph.EdgeFiringManager: e fires only if
// its channel matches the currently active channel; every other edge is
// skipped. Firing an edge consumes one unit of the active channel's
// remaining count, advancing (and wrapping) the cycle once it reaches
// zero.
func (m *CountedBranchManager) FireIfAppropriate(ctx *graph.GraphContext, e *graph.Edge) error {
	if len(m.Channels) == 0 {
		return nil
	}
	key := countedBranchKey{m: m}
	raw, ok := ctx.Get(key)
	state, _ := raw.(*countedBranchState)
	if !ok || state == nil {
		state = &countedBranchState{index: 0, remaining: m.Counts[0]}
	}

	active := m.Channels[state.index]
	if e.Channel() != active {
		return nil
	}

	if err := m.engine.scheduleEdge(ctx, e); err != nil {
		return err
	}

	state.remaining--
	if state.remaining <= 0 {
		state.index = (state.index + 1) % len(m.Channels)
		state.remaining = m.Counts[state.index]
	}
	ctx.Set(key, state)
	return nil
}

// BranchScenario is one candidate branch of a ConditionalBranchManager:
// a channel to fire when selected, and the (currently unevaluated)
// condition, target, and master edges the source modeled for future
// condition-evaluation support.
type BranchScenario struct {
	// Channel is the outbound edge channel this scenario selects.
	Channel graph.Channel
	// Target, if set, names the edge this scenario's condition is
	// evaluated against. Unused until condition evaluation is
	// implemented.
	Target *graph.EdgeID
	// Master, if set, names a controlling edge whose own state this
	// scenario's condition depends on. Unused until condition evaluation
	// is implemented.
	Master *graph.EdgeID
	// Condition, if set, is evaluated against ctx to decide whether this
	// scenario applies. Unused until condition evaluation is
	// implemented — see FireIfAppropriate.
	Condition func(ctx *graph.GraphContext) bool
}

// ConditionalBranchManager implements spec §4.2's second built-in firing
// manager. Condition evaluation is not yet implemented upstream, so per
// spec it always selects Scenarios[0] — the scenario registered as the
// default channel — regardless of each scenario's Condition.
type ConditionalBranchManager struct {
	engine *Engine

	// Scenarios is the ordered list of candidate branches; Scenarios[0]
	// is the default channel.
	Scenarios []BranchScenario
}

// NewConditionalBranchManager builds a ConditionalBranchManager that
// schedules fired edges through e.
func NewConditionalBranchManager(e *Engine, scenarios []BranchScenario) *ConditionalBranchManager {
	return &ConditionalBranchManager{engine: e, Scenarios: scenarios}
}

// Start implements graph.EdgeFiringManager. The selected channel is
// fixed for the lifetime of one Start cycle, so no per-context state is
// needed beyond re-reading Scenarios[0] on every FireIfAppropriate call.
func (m *ConditionalBranchManager) Start(ctx *graph.GraphContext) error {
	return nil
}

// FireIfAppropriate implements graph.EdgeFiringManager: e fires only if
// its channel matches the default scenario's channel.
func (m *ConditionalBranchManager) FireIfAppropriate(ctx *graph.GraphContext, e *graph.Edge) error {
	if len(m.Scenarios) == 0 {
		return nil
	}
	if e.Channel() != m.Scenarios[0].Channel {
		return nil
	}
	return m.engine.scheduleEdge(ctx, e)
}
