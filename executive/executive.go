// Sage
// Copyright (c) Sage contributors
// SPDX-License-Identifier: Apache-2.0

// Package executive defines the contract the discrete-event executive
// provides to the core (spec §6). The executive itself — the priority
// queue, the simulated clock, the scheduling loop — is explicitly out of
// scope for this module and is assumed to be supplied by the embedding
// application; only the interfaces it must satisfy live here, plus a
// small in-memory reference implementation under testexecutive.go kept
// test-only for exercising exec, validity, and timing end to end.
package executive

import "time"

// EventKind distinguishes whether an event's receiver runs in a
// suspend-capable context.
type EventKind int

// The two event kinds named in the concurrency model.
const (
	// Synchronous events run to completion without suspending.
	Synchronous EventKind = iota
	// Detachable events run in a suspend-capable coroutine-like context,
	// required for Join and Yield to succeed.
	Detachable
)

// Instant is a simulated-time value. The executive defines its own
// notion of ordering and zero value; the core only ever compares and
// stores instants it is handed.
type Instant = time.Duration

// Priority orders events scheduled at the same Instant; lower values run
// first. Ties are broken FIFO by scheduling sequence.
type Priority = float64

// Receiver is anything the executive can deliver an event to.
type Receiver interface {
	// Fire is invoked when the scheduled event comes due.
	Fire(ctrl EventController) error
}

// EventController is the "current event controller" exposed to a
// receiver while its event is firing. Suspend-capable controllers (those
// backing a Detachable event) support Suspend/Resume/SuspendUntil;
// calling them on a non-suspendable controller is a caller error the
// executive is expected to reject before ever invoking Fire with one.
type EventController interface {
	// Suspend blocks the current event until Resume is called.
	Suspend() error
	// Resume wakes a previously suspended event.
	Resume() error
	// SuspendUntil blocks until the given simulated instant.
	SuspendUntil(t Instant) error
	// IsWaiting reports whether the controller is currently suspended.
	IsWaiting() bool
	// SetAbortHandler installs f to run synchronously if this event's
	// pending request is aborted while suspended.
	SetAbortHandler(f func())
}

// Executive is the external scheduler the Firing Engine and resource
// pool drive events through.
type Executive interface {
	// Now returns the executive's current simulated time.
	Now() Instant
	// CurrentPriority returns the priority level of the event currently
	// firing.
	CurrentPriority() Priority
	// CurrentEventController returns the controller for the event
	// currently firing, or nil if there is none (e.g. called outside
	// any event).
	CurrentEventController() EventController
	// CurrentEventKind returns the kind of the event currently firing.
	CurrentEventKind() EventKind
	// RequestEvent queues receiver to fire at the given time and
	// priority, carrying userData through to Fire via the controller
	// implementation's own side channel, with the given event kind.
	RequestEvent(receiver Receiver, t Instant, p Priority, userData interface{}, kind EventKind) error
}
