// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package callback defines the invocable contract shared by event bindings
// and timed events, and the lifetime-managed handle that wraps it.
package callback

import "context"

// Unlimited is the shot budget for a handle that never exhausts.
const Unlimited uint32 = 0

// Outcome is what a single invocation reports back to its caller.
type Outcome struct {
	// Suppress asks the firing collaborator to skip its default handling.
	Suppress bool
	// Values carries any extra values the callback returned.
	Values []any
}

// Invocable is user callback code. Implementations may wrap a Go closure or a
// function living inside a scripting runtime.
type Invocable interface {
	Invoke(ctx context.Context, args ...any) (Outcome, error)
}

// Func adapts an ordinary function to Invocable.
type Func func(ctx context.Context, args ...any) (Outcome, error)

// Invoke calls f.
func (f Func) Invoke(ctx context.Context, args ...any) (Outcome, error) {
	return f(ctx, args...)
}

// State is the lifecycle state of a Handle.
type State uint8

// Handle states.
const (
	StateActive State = iota
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Handle is one registered callback plus its remaining invocation budget.
//
// Handle is not safe for concurrent use. It is owned by the registry or
// processor that created it and is touched only from that owner's dispatch
// goroutine.
type Handle struct {
	id    uint64
	fn    Invocable
	shots uint32
	state State
}

// NewHandle wraps fn. A shots value of Unlimited never exhausts.
func NewHandle(id uint64, fn Invocable, shots uint32) (*Handle, error) {
	if fn == nil {
		return nil, ErrNilCallback()
	}
	return &Handle{id: id, fn: fn, shots: shots}, nil
}

// ID returns the registration id assigned by the owner.
func (h *Handle) ID() uint64 { return h.id }

// Invocable returns the wrapped callback.
func (h *Handle) Invocable() Invocable { return h.fn }

// Shots returns the remaining budget. Zero means unlimited while the handle
// is active.
func (h *Handle) Shots() uint32 { return h.shots }

// State returns the current lifecycle state.
func (h *Handle) State() State { return h.state }

// Active reports whether the handle may still be invoked.
func (h *Handle) Active() bool { return h.state == StateActive }

// Abort marks the handle aborted. It returns false if it already was.
func (h *Handle) Abort() bool {
	if h.state == StateAborted {
		return false
	}
	h.state = StateAborted
	return true
}

// Consume records one completed invocation against the budget and reports
// whether the handle is now exhausted. An exhausted handle is aborted so that
// stale snapshots skip it.
func (h *Handle) Consume() bool {
	if h.shots == Unlimited {
		return false
	}
	h.shots--
	if h.shots == 0 {
		h.state = StateAborted
		return true
	}
	return false
}

// Invoke calls the wrapped callback without checking state.
func (h *Handle) Invoke(ctx context.Context, args ...any) (Outcome, error) {
	return h.fn.Invoke(ctx, args...)
}
