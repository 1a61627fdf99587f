// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package hostfunc

import (
	"context"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"

	"github.com/holomush/hookbridge/internal/callback"
	"github.com/holomush/hookbridge/internal/hooks"
)

// luaCallback invokes a Lua function held by the shared script state.
type luaCallback struct {
	L          *lua.LState
	fn         *lua.LFunction
	script     string
	convention hooks.Convention
}

var _ callback.Invocable = (*luaCallback)(nil)

func newLuaCallback(L *lua.LState, fn *lua.LFunction, script string, convention hooks.Convention) *luaCallback {
	return &luaCallback{L: L, fn: fn, script: script, convention: convention}
}

// Invoke calls the function with args. A leading boolean return value is read
// through the family's suppression convention; any values after it become
// Outcome.Values.
func (c *luaCallback) Invoke(ctx context.Context, args ...any) (callback.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return callback.Outcome{}, oops.In("lua").With("script", c.script).Wrap(err)
	}

	L := c.L
	base := L.GetTop()
	largs := make([]lua.LValue, len(args))
	for i, a := range args {
		largs[i] = toLua(L, a)
	}
	if err := L.CallByParam(lua.P{
		Fn:      c.fn,
		NRet:    lua.MultRet,
		Protect: true,
	}, largs...); err != nil {
		L.SetTop(base)
		return callback.Outcome{}, oops.In("lua").With("script", c.script).Wrap(err)
	}

	nret := L.GetTop() - base
	rets := make([]lua.LValue, nret)
	for i := range nret {
		rets[i] = L.Get(base + 1 + i)
	}
	L.SetTop(base)

	var out callback.Outcome
	if len(rets) == 0 {
		return out, nil
	}
	if b, ok := rets[0].(lua.LBool); ok {
		out.Suppress = c.convention.Suppresses(bool(b))
		rets = rets[1:]
	}
	if out.Suppress && len(rets) > 0 {
		out.Values = make([]any, len(rets))
		for i, r := range rets {
			out.Values[i] = fromLua(r)
		}
	}
	return out, nil
}
