// Sage
// Copyright (c) Sage contributors
// SPDX-License-Identifier: Apache-2.0

// Package exec implements the Firing Engine: the runtime traversal that
// fires vertices and edges in response to an external executive driving
// events, per spec §4.2. It never mutates graph structure — only the
// per-execution GraphContext.
package exec

import "github.com/prometheus/client_golang/prometheus"

// Config is the Engine's immutable configuration, replacing the global
// mutable diagnostics/permit-overbook statics the design notes flag,
// modeled on purpleidea/mgmt's engine.MetaParams copy-per-resource
// pattern but collapsed to the handful of knobs this engine actually
// needs.
type Config struct {
	// Debug gates verbose firing tracing through Logf.
	Debug bool
	// Registerer, if non-nil, receives the engine's prometheus metrics
	// (a counter of vertex firings and a gauge of in-flight suspended
	// edges). Always safe to leave nil.
	Registerer prometheus.Registerer
	// MaxInFlight, if positive, caps the number of edge executions
	// running concurrently across every graph context this engine
	// drives, the same way purpleidea/mgmt's engine/graph/actions.go
	// gates concurrent checkApply runs with a semaphore. Zero means
	// unbounded.
	MaxInFlight int
}

// Copy returns a shallow copy of cfg, mirroring MetaParams.Copy()'s
// per-use-site immutability.
func (c Config) Copy() Config { return c }
