// Sage
// Copyright (c) Sage contributors
// SPDX-License-Identifier: Apache-2.0

package executive

import "container/heap"

// SimExecutive is a minimal single-threaded reference Executive used by
// this module's own test suites to drive a Start() call end to end,
// exactly the way purpleidea/mgmt's engine/graph tests exercise a fake
// in-memory Res instead of a real managed resource. It is not part of
// the public surface other packages depend on for anything but testing:
// the discrete-event executive implementation itself stays out of scope
// per this module's non-goals.
type SimExecutive struct {
	now      Instant
	priority Priority
	seq      int
	queue    simQueue
	kind     EventKind
	ctrl     EventController
}

// NewSimExecutive builds an empty SimExecutive starting at time zero.
func NewSimExecutive() *SimExecutive {
	return &SimExecutive{}
}

type simEvent struct {
	receiver Receiver
	t        Instant
	p        Priority
	seq      int
	userData interface{}
	kind     EventKind
}

type simQueue []*simEvent

func (q simQueue) Len() int { return len(q) }
func (q simQueue) Less(i, j int) bool {
	if q[i].t != q[j].t {
		return q[i].t < q[j].t
	}
	if q[i].p != q[j].p {
		return q[i].p < q[j].p
	}
	return q[i].seq < q[j].seq // FIFO tie-break by scheduling sequence
}
func (q simQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *simQueue) Push(x interface{}) { *q = append(*q, x.(*simEvent)) }
func (q *simQueue) Pop() interface{} {
	old := *q
	n := len(old)
	e := old[n-1]
	*q = old[:n-1]
	return e
}

// Now implements Executive.
func (s *SimExecutive) Now() Instant { return s.now }

// CurrentPriority implements Executive.
func (s *SimExecutive) CurrentPriority() Priority { return s.priority }

// CurrentEventController implements Executive.
func (s *SimExecutive) CurrentEventController() EventController { return s.ctrl }

// CurrentEventKind implements Executive.
func (s *SimExecutive) CurrentEventKind() EventKind { return s.kind }

// RequestEvent implements Executive.
func (s *SimExecutive) RequestEvent(receiver Receiver, t Instant, p Priority, userData interface{}, kind EventKind) error {
	s.seq++
	heap.Push(&s.queue, &simEvent{receiver: receiver, t: t, p: p, seq: s.seq, userData: userData, kind: kind})
	return nil
}

// Run drains the event queue until empty, firing each receiver in
// (time, priority, sequence) order. Every event, Detachable or not, gets
// a simController since this reference executive has no real coroutine
// machinery: Suspend and Resume only record the waiting flag and return
// at once, nothing blocks, which is sufficient for deterministic unit
// tests that never actually need a suspended chain to wait.
func (s *SimExecutive) Run() error {
	for s.queue.Len() > 0 {
		ev := heap.Pop(&s.queue).(*simEvent)
		s.now = ev.t
		s.priority = ev.p
		s.kind = ev.kind
		ctrl := &simController{exec: s}
		s.ctrl = ctrl
		if err := ev.receiver.Fire(ctrl); err != nil {
			s.ctrl = nil
			return err
		}
		s.ctrl = nil
	}
	return nil
}

// simController is a trivial EventController: suspension primitives are
// no-ops beyond bookkeeping, sufficient for tests that only assert on
// firing order, not real blocking concurrency.
type simController struct {
	exec     *SimExecutive
	waiting  bool
	abortFn  func()
}

func (c *simController) Suspend() error       { c.waiting = true; return nil }
func (c *simController) Resume() error        { c.waiting = false; return nil }
func (c *simController) SuspendUntil(Instant) error { c.waiting = true; return nil }
func (c *simController) IsWaiting() bool      { return c.waiting }
func (c *simController) SetAbortHandler(f func()) { c.abortFn = f }
