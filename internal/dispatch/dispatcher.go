// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package dispatch fires events at the callbacks bound in an event family's
// registries.
package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/hookbridge/internal/binding"
	"github.com/holomush/hookbridge/internal/callback"
	"github.com/holomush/hookbridge/pkg/errutil"
)

var tracer = otel.Tracer("hookbridge/dispatch")

// Registries groups the registries of one family. Any of them may be nil when
// the family does not support that key shape.
type Registries struct {
	Global *binding.Registry
	Entry  *binding.Registry
	Unique *binding.Registry
}

// Target carries the key-relevant context of one fire.
type Target struct {
	entry     uint32
	identity  uint64
	scope     uint32
	hasEntry  bool
	hasUnique bool
}

// AnyTarget applies only global subscriptions.
func AnyTarget() Target { return Target{} }

// EntryTarget applies global and entry subscriptions.
func EntryTarget(entry uint32) Target {
	return Target{entry: entry, hasEntry: true}
}

// UniqueTarget applies global and unique subscriptions.
func UniqueTarget(identity uint64, scope uint32) Target {
	return Target{identity: identity, scope: scope, hasUnique: true}
}

// InstanceTarget applies global, entry and unique subscriptions for one
// runtime instance spawned from entry.
func InstanceTarget(entry uint32, identity uint64, scope uint32) Target {
	return Target{entry: entry, identity: identity, scope: scope, hasEntry: true, hasUnique: true}
}

// AggregateResult is everything a fire reports back to the firing caller.
type AggregateResult struct {
	// Suppressed is true when any callback requested suppression.
	Suppressed bool
	// Values holds the extra values of the first suppressing callback.
	Values []any
	// Invoked counts callbacks that ran, faulted ones included.
	Invoked int
	// Faults counts callbacks that returned an error or panicked.
	Faults int
}

// Dispatcher fires events for a single family.
//
// Dispatcher is not safe for concurrent use; see binding.Registry.
type Dispatcher struct {
	family string
	regs   Registries
	logger *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger used for callback faults.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// New creates a dispatcher for family over regs.
func New(family string, regs Registries, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		family: family,
		regs:   regs,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Family returns the family name.
func (d *Dispatcher) Family() string { return d.family }

type bound struct {
	reg    *binding.Registry
	key    binding.Key
	handle *callback.Handle
}

// snapshot collects every applicable handle before any of them runs, so
// registrations made by a callback are only seen by the next fire.
func (d *Dispatcher) snapshot(kind binding.Kind, target Target) []bound {
	var out []bound
	add := func(reg *binding.Registry, key binding.Key) {
		if reg == nil {
			return
		}
		for _, h := range reg.Lookup(key) {
			out = append(out, bound{reg: reg, key: key, handle: h})
		}
	}
	add(d.regs.Global, binding.GlobalKey(kind))
	if target.hasEntry {
		add(d.regs.Entry, binding.EntryKey(kind, target.entry))
	}
	if target.hasUnique {
		add(d.regs.Unique, binding.UniqueKey(kind, target.identity, target.scope))
	}
	return out
}

// Fire invokes every live callback bound to kind for target: global first,
// then entry, then unique, each in registration order. Callbacks receive kind
// followed by args.
//
// Fire never returns an error. A callback that fails is logged and treated as
// not suppressing; the remaining callbacks still run.
func (d *Dispatcher) Fire(ctx context.Context, kind binding.Kind, target Target, args ...any) AggregateResult {
	RecordFire(d.family)

	handles := d.snapshot(kind, target)
	if len(handles) == 0 {
		return AggregateResult{}
	}

	ctx, span := tracer.Start(ctx, "dispatch.fire",
		trace.WithAttributes(
			attribute.String("hook.family", d.family),
			attribute.Int64("hook.kind", int64(kind)),
			attribute.Int("hook.handles", len(handles)),
		),
	)
	defer span.End()

	callArgs := make([]any, 0, len(args)+1)
	callArgs = append(callArgs, kind)
	callArgs = append(callArgs, args...)

	var res AggregateResult
	start := time.Now()
	for i, b := range handles {
		if !b.handle.Active() {
			b.reg.Remove(b.key, b.handle)
			RecordInvocation(d.family, StatusSkipped)
			continue
		}

		res.Invoked++
		out, err := callback.SafeInvoke(ctx, b.handle, callArgs...)
		if err != nil {
			res.Faults++
			RecordInvocation(d.family, StatusFault)
			err = oops.In("dispatch").
				With("family", d.family).
				With("kind", uint32(kind)).
				With("key", b.key.String()).
				With("handle", b.handle.ID()).
				With("index", i).
				Wrap(err)
			span.RecordError(err)
			errutil.LogError(d.log(), "event callback failed", err)
		} else {
			RecordInvocation(d.family, StatusOK)
			if out.Suppress && !res.Suppressed {
				res.Suppressed = true
				res.Values = out.Values
			}
		}

		// A fault still spends one shot.
		if b.handle.Consume() {
			b.reg.Remove(b.key, b.handle)
		}
	}
	RecordDuration(d.family, time.Since(start))

	if res.Suppressed {
		RecordSuppression(d.family)
	}
	if res.Faults > 0 {
		span.SetStatus(codes.Error, "callback faults")
	}
	span.SetAttributes(
		attribute.Int("hook.invoked", res.Invoked),
		attribute.Bool("hook.suppressed", res.Suppressed),
	)
	return res
}

func (d *Dispatcher) log() *slog.Logger {
	if d.logger != nil {
		return d.logger
	}
	return slog.Default()
}
