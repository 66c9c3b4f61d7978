// Sage
// Copyright (c) Sage contributors
// SPDX-License-Identifier: Apache-2.0

// Package sageerr defines the typed error taxonomy shared by the graph,
// exec, validity, and timing packages. GraphStructureError wraps its
// cause with github.com/pkg/errors via util/errwrap, TimeCycleError folds
// its offenders through util/errwrap, and the others keep the cause as
// given. Every type satisfies the standard error interface, and those
// carrying a cause implement Unwrap, so callers can still use
// errors.As/errors.Is against them.
package sageerr

import (
	"fmt"

	"github.com/sagesim/sage/util/errwrap"
)

// GraphStructureError reports an attempt to build or mutate the graph into
// an invalid shape: a dangling edge, a ligature given a non-zero duration,
// an attempt to clone a ligature, a synchronizer spanning incompatible
// vertices, and similar static shape violations.
type GraphStructureError struct {
	Op  string
	Err error
}

func (e *GraphStructureError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("graph structure error: %s", e.Op)
	}
	return fmt.Sprintf("graph structure error: %s: %s", e.Op, e.Err)
}

func (e *GraphStructureError) Unwrap() error { return e.Err }

// NewGraphStructureError wraps cause (which may be nil) as a
// GraphStructureError for operation op.
func NewGraphStructureError(op string, cause error) *GraphStructureError {
	return &GraphStructureError{Op: op, Err: errwrap.Wrapf(cause, "graph: %s", op)}
}

// AnalysisFailedError reports that a timing analyst could not produce a
// consistent schedule for reasons other than a cycle: a missing duration
// callback result, a fixed-start conflict, or similar.
type AnalysisFailedError struct {
	Reason string
	Err    error
}

func (e *AnalysisFailedError) Error() string {
	return fmt.Sprintf("analysis failed: %s: %s", e.Reason, errwrap.String(e.Err))
}

func (e *AnalysisFailedError) Unwrap() error { return e.Err }

// NewAnalysisFailedError builds an AnalysisFailedError.
func NewAnalysisFailedError(reason string, cause error) *AnalysisFailedError {
	return &AnalysisFailedError{Reason: reason, Err: cause}
}

// TimeCycleError reports an inconsistent timing schedule. The
// PERTAnalyst's diagnostics-mode validation returns one, with one
// Offenders entry per violated check (the edge ID and the check that
// failed); dependency cycles found by timing.CycleChecker are reported as
// a timing.CycleError instead. The aggregate error underneath is built by
// folding one sub-error per offender through errwrap.Append (backed by
// hashicorp/go-multierror): with two or more offenders it is a
// *multierror.Error whose entries are individually inspectable, and a
// single offender's sub-error is stored as is.
type TimeCycleError struct {
	Offenders []string
	Err       error
}

func (e *TimeCycleError) Error() string {
	return fmt.Sprintf("time cycle detected among %v: %s", e.Offenders, errwrap.String(e.Err))
}

func (e *TimeCycleError) Unwrap() error { return e.Err }

// NewTimeCycleError builds a TimeCycleError from an ordered list of offender
// identifiers, aggregating one sub-error per offender through errwrap.Append
// so the underlying multierror machinery can format and flatten them
// consistently.
func NewTimeCycleError(offenders []string) *TimeCycleError {
	var err error
	for _, o := range offenders {
		err = errwrap.Append(err, fmt.Errorf("in cycle: %s", o))
	}
	return &TimeCycleError{Offenders: offenders, Err: err}
}

// ResourceContentionError reports that a shared-resource request could not
// be satisfied: an overbook ceiling was exceeded, or a waiter was aborted
// while queued. Err is the single underlying cause, if any (for example
// the context error of a canceled Acquire).
type ResourceContentionError struct {
	Resource string
	Err      error
}

func (e *ResourceContentionError) Error() string {
	return fmt.Sprintf("resource contention on %q: %s", e.Resource, errwrap.String(e.Err))
}

func (e *ResourceContentionError) Unwrap() error { return e.Err }

// NewResourceContentionError builds a ResourceContentionError.
func NewResourceContentionError(resource string, cause error) *ResourceContentionError {
	return &ResourceContentionError{Resource: resource, Err: cause}
}

// IllegalContext reports that an operation requiring a suspend-capable
// EventController (Join, Yield) was invoked from an event that does not
// support suspension.
type IllegalContext struct {
	Op string
}

func (e *IllegalContext) Error() string {
	return fmt.Sprintf("illegal context for %s: current event is not suspend-capable", e.Op)
}

// NewIllegalContext builds an IllegalContext error for operation op.
func NewIllegalContext(op string) *IllegalContext {
	return &IllegalContext{Op: op}
}

// ConfigError reports an invalid Config or Diagnostics value supplied to a
// constructor: a negative overbook scalar, a nil required callback, and
// similar parameter-validation failures caught before any work starts.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Field, errwrap.String(e.Err))
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError builds a ConfigError for the named field.
func NewConfigError(field string, cause error) *ConfigError {
	return &ConfigError{Field: field, Err: cause}
}
