// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package hostfunc provides the bridge functions Lua scripts call.
//
// Every script gets its own environment table holding the bridge, events,
// timers and hooks modules. Functions that change engine state require
// capability grants.
package hostfunc

import (
	"log/slog"
	"slices"

	lua "github.com/yuin/gopher-lua"

	"github.com/holomush/hookbridge/internal/binding"
	"github.com/holomush/hookbridge/internal/core"
	"github.com/holomush/hookbridge/internal/plugin/capability"
	"github.com/holomush/hookbridge/internal/timed"
)

// pruneEvery is how many tracked items accumulate before finished ones are
// dropped from a script's ownership record.
const pruneEvery = 64

type timerRef struct {
	identity uint64
	object   bool
}

// owned records what one script created so unloading can undo it.
type owned struct {
	subs   []*binding.Subscription
	timers map[timed.ID]timerRef
}

// Functions provides bridge functions to Lua scripts.
//
// Functions is driven by the engine's goroutine and holds no lock.
type Functions struct {
	engine   *core.Engine
	enforcer *capability.Enforcer
	logger   *slog.Logger
	owners   map[string]*owned
}

// Option configures Functions.
type Option func(*Functions)

// WithLogger sets the logger scripts write to through bridge.log.
func WithLogger(l *slog.Logger) Option {
	return func(f *Functions) {
		f.logger = l
	}
}

// New creates bridge functions over engine. Panics if engine or enforcer is nil.
func New(engine *core.Engine, enforcer *capability.Enforcer, opts ...Option) *Functions {
	if engine == nil {
		panic("hostfunc.New: engine cannot be nil")
	}
	if enforcer == nil {
		panic("hostfunc.New: enforcer cannot be nil")
	}
	f := &Functions{
		engine:   engine,
		enforcer: enforcer,
		owners:   make(map[string]*owned),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = engine.Logger()
	}
	return f
}

// Engine returns the engine the functions drive.
func (f *Functions) Engine() *core.Engine { return f.engine }

// Register installs the bridge, events, timers and hooks modules into env for
// script.
func (f *Functions) Register(L *lua.LState, env *lua.LTable, script string) {
	bridge := L.NewTable()
	L.SetField(bridge, "log", L.NewFunction(f.logFn(script)))
	L.SetField(bridge, "new_request_id", L.NewFunction(f.newRequestIDFn()))
	L.SetField(bridge, "script_name", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(script))
		return 1
	}))
	L.SetField(env, "bridge", bridge)

	L.SetField(env, "events", f.eventsModule(L, script))
	L.SetField(env, "timers", f.timersModule(L, script))
	L.SetField(env, "hooks", f.hooksModule(L))
}

// Release cancels every subscription and timer script created. It returns how
// many were still live. Releasing an unknown script is a no-op.
func (f *Functions) Release(script string) int {
	o, ok := f.owners[script]
	if !ok {
		return 0
	}
	delete(f.owners, script)

	n := 0
	for _, sub := range o.subs {
		if sub.Active() {
			n++
		}
		sub.Cancel()
	}
	for id, ref := range o.timers {
		if f.cancelTimer(id, ref) {
			n++
		}
	}
	return n
}

// Owned reports how many live subscriptions and timers script holds.
func (f *Functions) Owned(script string) (subs, timers int) {
	o, ok := f.owners[script]
	if !ok {
		return 0, 0
	}
	f.prune(o)
	return len(o.subs), len(o.timers)
}

func (f *Functions) owner(script string) *owned {
	o, ok := f.owners[script]
	if !ok {
		o = &owned{timers: make(map[timed.ID]timerRef)}
		f.owners[script] = o
	}
	return o
}

func (f *Functions) trackSub(script string, sub *binding.Subscription) {
	o := f.owner(script)
	if len(o.subs) > 0 && len(o.subs)%pruneEvery == 0 {
		f.prune(o)
	}
	o.subs = append(o.subs, sub)
}

func (f *Functions) trackTimer(script string, id timed.ID, ref timerRef) {
	o := f.owner(script)
	if len(o.timers) > 0 && len(o.timers)%pruneEvery == 0 {
		f.prune(o)
	}
	o.timers[id] = ref
}

func (f *Functions) prune(o *owned) {
	o.subs = slices.DeleteFunc(o.subs, func(s *binding.Subscription) bool {
		return !s.Active()
	})
	for id, ref := range o.timers {
		if !f.timerPending(id, ref) {
			delete(o.timers, id)
		}
	}
}

func (f *Functions) timerPending(id timed.ID, ref timerRef) bool {
	timers := f.engine.Timers()
	if !ref.object {
		return timers.Global().Has(id)
	}
	p, ok := timers.Object(ref.identity)
	return ok && p.Has(id)
}

func (f *Functions) cancelTimer(id timed.ID, ref timerRef) bool {
	if ref.object {
		return f.engine.CancelObjectScheduled(ref.identity, id)
	}
	return f.engine.CancelScheduled(id)
}

// wrap guards fn behind a fixed capability.
func (f *Functions) wrap(script, capName string, fn lua.LGFunction) lua.LGFunction {
	return func(L *lua.LState) int {
		if err := f.enforcer.Require(script, capName); err != nil {
			return raise(L, err)
		}
		return fn(L)
	}
}

// require checks a capability computed from call arguments.
func (f *Functions) require(L *lua.LState, script, capName string) {
	if err := f.enforcer.Require(script, capName); err != nil {
		raise(L, err)
	}
}

func (f *Functions) logFn(script string) lua.LGFunction {
	return func(L *lua.LState) int {
		level := L.CheckString(1)
		message := L.CheckString(2)

		logger := f.logger.With("script", script)
		switch level {
		case "debug":
			logger.Debug(message)
		case "info":
			logger.Info(message)
		case "warn":
			logger.Warn(message)
		case "error":
			logger.Error(message)
		default:
			logger.Info(message)
		}
		return 0
	}
}

func (f *Functions) newRequestIDFn() lua.LGFunction {
	return func(L *lua.LState) int {
		L.Push(lua.LString(core.NewULID().String()))
		return 1
	}
}
