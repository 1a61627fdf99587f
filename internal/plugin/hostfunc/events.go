// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package hostfunc

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/holomush/hookbridge/internal/binding"
	"github.com/holomush/hookbridge/internal/callback"
	"github.com/holomush/hookbridge/internal/hooks"
)

func registerCapability(fam *hooks.Family) string { return "events.register." + fam.Name() }

func clearCapability(fam *hooks.Family) string { return "events.clear." + fam.Name() }

// eventsModule builds the events table. Callbacks run on L, the shared script
// state, even when registered from inside a coroutine.
func (f *Functions) eventsModule(L *lua.LState, script string) *lua.LTable {
	mod := L.NewTable()
	L.SetField(mod, "register", L.NewFunction(f.registerFn(L, script)))
	L.SetField(mod, "register_entry", L.NewFunction(f.registerEntryFn(L, script)))
	L.SetField(mod, "register_unique", L.NewFunction(f.registerUniqueFn(L, script)))
	L.SetField(mod, "clear", L.NewFunction(f.clearFn(script)))
	L.SetField(mod, "clear_entry", L.NewFunction(f.clearEntryFn(script)))
	L.SetField(mod, "clear_unique", L.NewFunction(f.clearUniqueFn(script)))
	return mod
}

// hooksModule exposes hooks.<family>.<KIND_NAME> constants.
func (f *Functions) hooksModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	for _, fam := range f.engine.Families() {
		kinds := fam.Kinds()
		t := L.CreateTable(0, len(kinds))
		for _, k := range kinds {
			t.RawSetString(k.Name, lua.LNumber(k.Kind))
		}
		L.SetField(mod, fam.Name(), t)
	}
	return mod
}

// subscribe finishes a registration: it tracks the subscription and pushes a
// cancel function.
func (f *Functions) subscribe(L *lua.LState, script string, sub *binding.Subscription, err error) int {
	if err != nil {
		return raise(L, err)
	}
	f.trackSub(script, sub)
	L.Push(L.NewFunction(func(L *lua.LState) int {
		sub.Cancel()
		return 0
	}))
	return 1
}

// events.register(family, kind, fn[, shots]) -> cancel
func (f *Functions) registerFn(main *lua.LState, script string) lua.LGFunction {
	return func(L *lua.LState) int {
		fam := f.checkFamily(L, 1)
		kind := checkKind(L, 2, fam)
		fn := L.CheckFunction(3)
		shots := optCount(L, 4, callback.Unlimited)
		f.require(L, script, registerCapability(fam))

		cb := newLuaCallback(main, fn, script, fam.Convention())
		sub, err := f.engine.RegisterGlobal(fam.Name(), kind, cb, shots)
		return f.subscribe(L, script, sub, err)
	}
}

// events.register_entry(family, entry, kind, fn[, shots]) -> cancel
func (f *Functions) registerEntryFn(main *lua.LState, script string) lua.LGFunction {
	return func(L *lua.LState) int {
		fam := f.checkFamily(L, 1)
		entry := checkEntry(L, 2)
		kind := checkKind(L, 3, fam)
		fn := L.CheckFunction(4)
		shots := optCount(L, 5, callback.Unlimited)
		f.require(L, script, registerCapability(fam))

		cb := newLuaCallback(main, fn, script, fam.Convention())
		sub, err := f.engine.RegisterForEntry(fam.Name(), kind, entry, cb, shots)
		return f.subscribe(L, script, sub, err)
	}
}

// events.register_unique(family, guid, scope, kind, fn[, shots]) -> cancel
func (f *Functions) registerUniqueFn(main *lua.LState, script string) lua.LGFunction {
	return func(L *lua.LState) int {
		fam := f.checkFamily(L, 1)
		identity := checkIdentity(L, 2)
		scope := checkEntry(L, 3)
		kind := checkKind(L, 4, fam)
		fn := L.CheckFunction(5)
		shots := optCount(L, 6, callback.Unlimited)
		f.require(L, script, registerCapability(fam))

		cb := newLuaCallback(main, fn, script, fam.Convention())
		sub, err := f.engine.RegisterForUnique(fam.Name(), kind, identity, scope, cb, shots)
		return f.subscribe(L, script, sub, err)
	}
}

func pushCleared(L *lua.LState, n int, err error) int {
	if err != nil {
		return raise(L, err)
	}
	L.Push(lua.LNumber(n))
	return 1
}

// events.clear(family[, kind]) -> count
func (f *Functions) clearFn(script string) lua.LGFunction {
	return func(L *lua.LState) int {
		fam := f.checkFamily(L, 1)
		kind, hasKind := optKind(L, 2, fam)
		f.require(L, script, clearCapability(fam))

		if hasKind {
			n, err := f.engine.ClearKind(fam.Name(), kind)
			return pushCleared(L, n, err)
		}
		n, err := f.engine.ClearAllOfFamily(fam.Name())
		return pushCleared(L, n, err)
	}
}

// events.clear_entry(family, entry[, kind]) -> count
func (f *Functions) clearEntryFn(script string) lua.LGFunction {
	return func(L *lua.LState) int {
		fam := f.checkFamily(L, 1)
		entry := checkEntry(L, 2)
		kind, hasKind := optKind(L, 3, fam)
		f.require(L, script, clearCapability(fam))

		if hasKind {
			n, err := f.engine.ClearEntryKind(fam.Name(), entry, kind)
			return pushCleared(L, n, err)
		}
		n, err := f.engine.ClearEntry(fam.Name(), entry)
		return pushCleared(L, n, err)
	}
}

// events.clear_unique(family, guid, scope[, kind]) -> count
func (f *Functions) clearUniqueFn(script string) lua.LGFunction {
	return func(L *lua.LState) int {
		fam := f.checkFamily(L, 1)
		identity := checkIdentity(L, 2)
		scope := checkEntry(L, 3)
		kind, hasKind := optKind(L, 4, fam)
		f.require(L, script, clearCapability(fam))

		if hasKind {
			n, err := f.engine.ClearUniqueKind(fam.Name(), identity, scope, kind)
			return pushCleared(L, n, err)
		}
		n, err := f.engine.ClearUnique(fam.Name(), identity, scope)
		return pushCleared(L, n, err)
	}
}
