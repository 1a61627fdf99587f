// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package core provides the Engine, the per-context owner of every event
// registry, dispatcher and timer processor.
package core

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/holomush/hookbridge/internal/binding"
	"github.com/holomush/hookbridge/internal/callback"
	"github.com/holomush/hookbridge/internal/dispatch"
	"github.com/holomush/hookbridge/internal/hooks"
	"github.com/holomush/hookbridge/internal/timed"
)

type familyState struct {
	family     *hooks.Family
	regs       dispatch.Registries
	dispatcher *dispatch.Dispatcher
}

func (fs *familyState) registry(shape binding.Shape) *binding.Registry {
	switch shape {
	case binding.ShapeGlobal:
		return fs.regs.Global
	case binding.ShapeEntry:
		return fs.regs.Entry
	case binding.ShapeUnique:
		return fs.regs.Unique
	default:
		return nil
	}
}

func (fs *familyState) each(fn func(*binding.Registry) int) int {
	n := 0
	for _, reg := range []*binding.Registry{fs.regs.Global, fs.regs.Entry, fs.regs.Unique} {
		if reg != nil {
			n += fn(reg)
		}
	}
	return n
}

// Engine owns the event state of one scripting context.
//
// Engine is not safe for concurrent use. Every call must come from the
// goroutine that drives it; other goroutines go through runner.Runner.Submit.
type Engine struct {
	id       ulid.ULID
	logger   *slog.Logger
	families map[string]*familyState
	order    []*hooks.Family
	timers   *timed.Manager
	closed   bool
}

type engineConfig struct {
	logger   *slog.Logger
	families []*hooks.Family
	timed    []timed.ManagerOption
}

// EngineOption configures an Engine.
type EngineOption func(*engineConfig)

// WithLogger sets the logger for the engine and everything it owns.
func WithLogger(l *slog.Logger) EngineOption {
	return func(c *engineConfig) {
		c.logger = l
	}
}

// WithFamilies restricts the engine to the given families. By default it
// hosts every family in hooks.All.
func WithFamilies(families ...*hooks.Family) EngineOption {
	return func(c *engineConfig) {
		c.families = families
	}
}

// WithClock sets the time source used when scheduling timers.
func WithClock(clock func() time.Time) EngineOption {
	return func(c *engineConfig) {
		c.timed = append(c.timed, timed.WithManagerClock(clock))
	}
}

// WithSeed makes timer delay ranges reproducible.
func WithSeed(seed uint64) EngineOption {
	return func(c *engineConfig) {
		c.timed = append(c.timed, timed.WithManagerSeed(seed))
	}
}

// NewEngine creates an engine with empty registries for every hosted family.
func NewEngine(opts ...EngineOption) *Engine {
	cfg := engineConfig{
		logger:   slog.Default(),
		families: hooks.All(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	id := NewULID()
	logger := cfg.logger.With("engine_id", id.String())

	e := &Engine{
		id:       id,
		logger:   logger,
		families: make(map[string]*familyState, len(cfg.families)),
		timers:   timed.NewManager(append(cfg.timed, timed.WithManagerLogger(logger))...),
	}
	for _, fam := range cfg.families {
		if _, dup := e.families[fam.Name()]; dup {
			continue
		}
		kinds := fam.KindValues()
		regs := dispatch.Registries{
			Global: binding.NewRegistry(fam.Name()+".global", binding.ShapeGlobal, kinds),
		}
		if fam.Supports(binding.ShapeEntry) {
			regs.Entry = binding.NewRegistry(fam.Name()+".entry", binding.ShapeEntry, kinds)
		}
		if fam.Supports(binding.ShapeUnique) {
			regs.Unique = binding.NewRegistry(fam.Name()+".unique", binding.ShapeUnique, kinds)
		}
		e.families[fam.Name()] = &familyState{
			family:     fam,
			regs:       regs,
			dispatcher: dispatch.New(fam.Name(), regs, dispatch.WithLogger(logger)),
		}
		e.order = append(e.order, fam)
	}
	return e
}

// ID returns the engine id.
func (e *Engine) ID() ulid.ULID { return e.id }

// Logger returns the engine's logger.
func (e *Engine) Logger() *slog.Logger { return e.logger }

// Closed reports whether Close has run.
func (e *Engine) Closed() bool { return e.closed }

// Families returns the hosted families in a stable order.
func (e *Engine) Families() []*hooks.Family {
	out := make([]*hooks.Family, len(e.order))
	copy(out, e.order)
	return out
}

// Family looks up a hosted family by name.
func (e *Engine) Family(name string) (*hooks.Family, bool) {
	fs, ok := e.families[name]
	if !ok {
		return nil, false
	}
	return fs.family, true
}

// Registries returns the registries of a hosted family.
func (e *Engine) Registries(family string) (dispatch.Registries, bool) {
	fs, ok := e.families[family]
	if !ok {
		return dispatch.Registries{}, false
	}
	return fs.regs, true
}

// Timers returns the engine's timer manager.
func (e *Engine) Timers() *timed.Manager { return e.timers }

func (e *Engine) lookup(family string) (*familyState, error) {
	if e.closed {
		return nil, ErrClosed(e.id.String())
	}
	fs, ok := e.families[family]
	if !ok {
		return nil, ErrUnknownFamily(family)
	}
	return fs, nil
}

func (e *Engine) register(family string, key binding.Key, fn callback.Invocable, shots uint32) (*binding.Subscription, error) {
	fs, err := e.lookup(family)
	if err != nil {
		return nil, err
	}
	reg := fs.registry(key.Shape())
	if reg == nil {
		return nil, ErrUnsupportedShape(family, key.Shape())
	}
	return reg.Register(key, fn, shots)
}

// RegisterGlobal binds fn to every fire of kind in family. A shots value of
// callback.Unlimited keeps it bound until cancelled.
func (e *Engine) RegisterGlobal(family string, kind binding.Kind, fn callback.Invocable, shots uint32) (*binding.Subscription, error) {
	return e.register(family, binding.GlobalKey(kind), fn, shots)
}

// RegisterForEntry binds fn to fires of kind targeting entry.
func (e *Engine) RegisterForEntry(family string, kind binding.Kind, entry uint32, fn callback.Invocable, shots uint32) (*binding.Subscription, error) {
	return e.register(family, binding.EntryKey(kind, entry), fn, shots)
}

// RegisterForUnique binds fn to fires of kind targeting one runtime instance.
func (e *Engine) RegisterForUnique(family string, kind binding.Kind, identity uint64, scope uint32, fn callback.Invocable, shots uint32) (*binding.Subscription, error) {
	return e.register(family, binding.UniqueKey(kind, identity, scope), fn, shots)
}

func (e *Engine) clear(family string, fn func(*familyState) int) (int, error) {
	fs, err := e.lookup(family)
	if err != nil {
		return 0, err
	}
	return fn(fs), nil
}

// ClearAllOfFamily drops every subscription in family.
func (e *Engine) ClearAllOfFamily(family string) (int, error) {
	return e.clear(family, func(fs *familyState) int {
		return fs.each((*binding.Registry).ClearAll)
	})
}

// ClearKind drops every subscription of kind in family, whatever its key shape.
func (e *Engine) ClearKind(family string, kind binding.Kind) (int, error) {
	return e.clear(family, func(fs *familyState) int {
		return fs.each(func(r *binding.Registry) int { return r.ClearKind(kind) })
	})
}

// ClearEntry drops every entry subscription for entry across all kinds.
func (e *Engine) ClearEntry(family string, entry uint32) (int, error) {
	return e.clear(family, func(fs *familyState) int {
		if fs.regs.Entry == nil {
			return 0
		}
		return fs.regs.Entry.ClearEntry(entry)
	})
}

// ClearEntryKind drops the entry subscriptions for exactly (kind, entry).
func (e *Engine) ClearEntryKind(family string, entry uint32, kind binding.Kind) (int, error) {
	return e.clear(family, func(fs *familyState) int {
		if fs.regs.Entry == nil {
			return 0
		}
		return fs.regs.Entry.ClearKey(binding.EntryKey(kind, entry))
	})
}

// ClearUnique drops every unique subscription for (identity, scope) across
// all kinds.
func (e *Engine) ClearUnique(family string, identity uint64, scope uint32) (int, error) {
	return e.clear(family, func(fs *familyState) int {
		if fs.regs.Unique == nil {
			return 0
		}
		return fs.regs.Unique.ClearUnique(identity, scope)
	})
}

// ClearUniqueKind drops the unique subscriptions for exactly
// (kind, identity, scope).
func (e *Engine) ClearUniqueKind(family string, identity uint64, scope uint32, kind binding.Kind) (int, error) {
	return e.clear(family, func(fs *familyState) int {
		if fs.regs.Unique == nil {
			return 0
		}
		return fs.regs.Unique.ClearKey(binding.UniqueKey(kind, identity, scope))
	})
}

func (e *Engine) fire(ctx context.Context, family string, kind binding.Kind, target dispatch.Target, args []any) dispatch.AggregateResult {
	if e.closed {
		return dispatch.AggregateResult{}
	}
	fs, ok := e.families[family]
	if !ok {
		e.logger.Debug("fire for unknown family ignored", "family", family, "kind", uint32(kind))
		return dispatch.AggregateResult{}
	}
	return fs.dispatcher.Fire(ctx, kind, target, args...)
}

// FireGlobal fires kind at the global subscriptions of family.
func (e *Engine) FireGlobal(ctx context.Context, family string, kind binding.Kind, args ...any) dispatch.AggregateResult {
	return e.fire(ctx, family, kind, dispatch.AnyTarget(), args)
}

// FireForEntry fires kind at the global and entry subscriptions of family.
func (e *Engine) FireForEntry(ctx context.Context, family string, kind binding.Kind, entry uint32, args ...any) dispatch.AggregateResult {
	return e.fire(ctx, family, kind, dispatch.EntryTarget(entry), args)
}

// FireForUnique fires kind at the global and unique subscriptions of family.
func (e *Engine) FireForUnique(ctx context.Context, family string, kind binding.Kind, identity uint64, scope uint32, args ...any) dispatch.AggregateResult {
	return e.fire(ctx, family, kind, dispatch.UniqueTarget(identity, scope), args)
}

// FireForInstance fires kind at the global, entry and unique subscriptions
// that apply to an instance spawned from entry.
func (e *Engine) FireForInstance(ctx context.Context, family string, kind binding.Kind, entry uint32, identity uint64, scope uint32, args ...any) dispatch.AggregateResult {
	return e.fire(ctx, family, kind, dispatch.InstanceTarget(entry, identity, scope), args)
}

// ScheduleOnce runs fn once after delay.
func (e *Engine) ScheduleOnce(fn callback.Invocable, delay timed.Delay) (timed.ID, error) {
	return e.ScheduleRepeating(fn, delay, 1)
}

// ScheduleRepeating runs fn repeats times, drawing a fresh delay from the
// range before each fire. timed.Forever repeats until cancelled.
func (e *Engine) ScheduleRepeating(fn callback.Invocable, delay timed.Delay, repeats uint32) (timed.ID, error) {
	if e.closed {
		return 0, ErrClosed(e.id.String())
	}
	return e.timers.Global().Schedule(fn, delay, repeats)
}

// ScheduleForObject schedules fn on the processor of one game object.
func (e *Engine) ScheduleForObject(identity uint64, fn callback.Invocable, delay timed.Delay, repeats uint32) (timed.ID, error) {
	if e.closed {
		return 0, ErrClosed(e.id.String())
	}
	return e.timers.ForObject(identity).Schedule(fn, delay, repeats)
}

// CancelScheduled aborts id in the global processor.
func (e *Engine) CancelScheduled(id timed.ID) bool {
	return e.timers.Global().Abort(id)
}

// CancelScheduledEverywhere aborts id in whichever processor holds it.
func (e *Engine) CancelScheduledEverywhere(id timed.ID) bool {
	return e.timers.Abort(id)
}

// CancelAllScheduled aborts every entry in the global processor.
func (e *Engine) CancelAllScheduled() int {
	return e.timers.Global().AbortAll()
}

// CancelAllScheduledEverywhere aborts every entry in every processor.
func (e *Engine) CancelAllScheduledEverywhere() int {
	return e.timers.AbortAll()
}

// CancelObjectScheduled aborts id in the processor of identity.
func (e *Engine) CancelObjectScheduled(identity uint64, id timed.ID) bool {
	p, ok := e.timers.Object(identity)
	if !ok {
		return false
	}
	return p.Abort(id)
}

// CancelAllObjectScheduled aborts every entry of identity's processor but keeps
// the processor.
func (e *Engine) CancelAllObjectScheduled(identity uint64) int {
	p, ok := e.timers.Object(identity)
	if !ok {
		return 0
	}
	return p.AbortAll()
}

// ReleaseObject tears down identity's timer processor.
func (e *Engine) ReleaseObject(identity uint64) int {
	return e.timers.ReleaseObject(identity)
}

// Tick sweeps every timer processor at now and returns the number of fires.
func (e *Engine) Tick(ctx context.Context, now time.Time) int {
	if e.closed {
		return 0
	}
	return e.timers.Sweep(ctx, now)
}

// Close clears every registry and timer. Later registrations and schedules
// fail with CLOSED and fires do nothing. Close is idempotent.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	subs := 0
	for _, fam := range e.order {
		subs += e.families[fam.Name()].each((*binding.Registry).ClearAll)
	}
	timers := e.timers.Len()
	e.timers.Close()
	e.closed = true
	e.logger.Debug("engine closed", "subscriptions", subs, "timers", timers)
}
