// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package hostfunc

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/holomush/hookbridge/internal/hooks"
	"github.com/holomush/hookbridge/internal/timed"
)

// Timer capabilities.
const (
	CapTimersCreate = "timers.create"
	CapTimersRemove = "timers.remove"
)

// defaultRepeats applies when a script omits the repeat count.
const defaultRepeats uint32 = 1

func (f *Functions) timersModule(L *lua.LState, script string) *lua.LTable {
	mod := L.NewTable()
	L.SetField(mod, "create", L.NewFunction(f.wrap(script, CapTimersCreate, f.createFn(L, script))))
	L.SetField(mod, "remove", L.NewFunction(f.wrap(script, CapTimersRemove, f.removeFn())))
	L.SetField(mod, "remove_all", L.NewFunction(f.wrap(script, CapTimersRemove, f.removeAllFn())))
	L.SetField(mod, "create_for", L.NewFunction(f.wrap(script, CapTimersCreate, f.createForFn(L, script))))
	L.SetField(mod, "remove_for", L.NewFunction(f.wrap(script, CapTimersRemove, f.removeForFn())))
	L.SetField(mod, "remove_all_for", L.NewFunction(f.wrap(script, CapTimersRemove, f.removeAllForFn())))
	return mod
}

// timers.create(fn, delay|{min, max}[, repeats]) -> id
func (f *Functions) createFn(main *lua.LState, script string) lua.LGFunction {
	return func(L *lua.LState) int {
		fn := L.CheckFunction(1)
		delay := checkDelay(L, 2)
		repeats := optCount(L, 3, defaultRepeats)

		cb := newLuaCallback(main, fn, script, hooks.SuppressNever)
		id, err := f.engine.ScheduleRepeating(cb, delay, repeats)
		if err != nil {
			return raise(L, err)
		}
		f.trackTimer(script, id, timerRef{})
		L.Push(lua.LNumber(id))
		return 1
	}
}

// timers.create_for(guid, fn, delay|{min, max}[, repeats]) -> id
func (f *Functions) createForFn(main *lua.LState, script string) lua.LGFunction {
	return func(L *lua.LState) int {
		identity := checkIdentity(L, 1)
		fn := L.CheckFunction(2)
		delay := checkDelay(L, 3)
		repeats := optCount(L, 4, defaultRepeats)

		cb := newLuaCallback(main, fn, script, hooks.SuppressNever)
		id, err := f.engine.ScheduleForObject(identity, cb, delay, repeats)
		if err != nil {
			return raise(L, err)
		}
		f.trackTimer(script, id, timerRef{identity: identity, object: true})
		L.Push(lua.LNumber(id))
		return 1
	}
}

func checkTimerID(L *lua.LState, n int) timed.ID {
	return timed.ID(checkIdentity(L, n))
}

// timers.remove(id[, all]) -> removed
func (f *Functions) removeFn() lua.LGFunction {
	return func(L *lua.LState) int {
		id := checkTimerID(L, 1)
		all := L.OptBool(2, false)

		var ok bool
		if all {
			ok = f.engine.CancelScheduledEverywhere(id)
		} else {
			ok = f.engine.CancelScheduled(id)
		}
		L.Push(lua.LBool(ok))
		return 1
	}
}

// timers.remove_all([all]) -> count
func (f *Functions) removeAllFn() lua.LGFunction {
	return func(L *lua.LState) int {
		var n int
		if L.OptBool(1, false) {
			n = f.engine.CancelAllScheduledEverywhere()
		} else {
			n = f.engine.CancelAllScheduled()
		}
		L.Push(lua.LNumber(n))
		return 1
	}
}

// timers.remove_for(guid, id) -> removed
func (f *Functions) removeForFn() lua.LGFunction {
	return func(L *lua.LState) int {
		identity := checkIdentity(L, 1)
		id := checkTimerID(L, 2)
		L.Push(lua.LBool(f.engine.CancelObjectScheduled(identity, id)))
		return 1
	}
}

// timers.remove_all_for(guid) -> count
func (f *Functions) removeAllForFn() lua.LGFunction {
	return func(L *lua.LState) int {
		identity := checkIdentity(L, 1)
		L.Push(lua.LNumber(f.engine.CancelAllObjectScheduled(identity)))
		return 1
	}
}
