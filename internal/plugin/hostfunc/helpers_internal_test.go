// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package hostfunc

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"

	"github.com/holomush/hookbridge/internal/binding"
	"github.com/holomush/hookbridge/internal/hooks"
	"github.com/holomush/hookbridge/internal/timed"
)

func TestToLua(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	tests := []struct {
		name string
		in   any
		want lua.LValue
	}{
		{"nil", nil, lua.LNil},
		{"bool", true, lua.LTrue},
		{"string", "hi", lua.LString("hi")},
		{"int", 7, lua.LNumber(7)},
		{"int64", int64(-3), lua.LNumber(-3)},
		{"uint32", uint32(9), lua.LNumber(9)},
		{"small identity", uint64(0xF130), lua.LNumber(0xF130)},
		{"large identity", uint64(0xF130000000000001), lua.LString("0xf130000000000001")},
		{"kind", binding.Kind(13), lua.LNumber(13)},
		{"timer id", timed.ID(4), lua.LNumber(4)},
		{"duration", 1500 * time.Millisecond, lua.LNumber(1500)},
		{"lua value", lua.LString("raw"), lua.LString("raw")},
		{"fallback", struct{ A int }{1}, lua.LString("{1}")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, toLua(L, tt.in))
		})
	}
}

func TestToLua_Tables(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	arr, ok := toLua(L, []any{"a", 2}).(*lua.LTable)
	require.True(t, ok)
	assert.Equal(t, 2, arr.Len())
	assert.Equal(t, lua.LString("a"), arr.RawGetInt(1))

	m, ok := toLua(L, map[string]any{"k": true}).(*lua.LTable)
	require.True(t, ok)
	assert.Equal(t, lua.LTrue, m.RawGetString("k"))
}

func TestFromLua(t *testing.T) {
	L := lua.NewState()
	defer L.Close()
	require.NoError(t, L.DoString(`
		arr = {"x", 2, true}
		map = {name = "guard", level = 10}
	`))

	assert.Nil(t, fromLua(lua.LNil))
	assert.Equal(t, true, fromLua(lua.LTrue))
	assert.Equal(t, 1.5, fromLua(lua.LNumber(1.5)))
	assert.Equal(t, "s", fromLua(lua.LString("s")))
	assert.Equal(t, []any{"x", 2.0, true}, fromLua(L.GetGlobal("arr")))
	assert.Equal(t, map[string]any{"name": "guard", "level": 10.0}, fromLua(L.GetGlobal("map")))
}

// callCheck runs check inside a Lua call so argument errors surface as errors.
func callCheck(t *testing.T, check func(L *lua.LState) int, args ...lua.LValue) (lua.LValue, error) {
	t.Helper()
	L := lua.NewState()
	defer L.Close()
	err := L.CallByParam(lua.P{Fn: L.NewFunction(check), NRet: 1, Protect: true}, args...)
	if err != nil {
		return nil, err
	}
	return L.Get(-1), nil
}

func TestCheckIdentity(t *testing.T) {
	check := func(L *lua.LState) int {
		L.Push(lua.LString(identityString(checkIdentity(L, 1))))
		return 1
	}
	tests := []struct {
		name    string
		in      lua.LValue
		want    string
		wantErr bool
	}{
		{"number", lua.LNumber(1234), "1234", false},
		{"decimal string", lua.LString("1234"), "1234", false},
		{"hex string", lua.LString("0xF130000000000001"), "17379390962022744065", false},
		{"padded", lua.LString(" 0x10 "), "16", false},
		{"negative", lua.LNumber(-1), "", true},
		{"fraction", lua.LNumber(1.5), "", true},
		{"garbage", lua.LString("guid"), "", true},
		{"wrong type", lua.LTrue, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := callCheck(t, check, tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestCheckDelay(t *testing.T) {
	var got timed.Delay
	check := func(L *lua.LState) int {
		got = checkDelay(L, 1)
		return 0
	}

	L := lua.NewState()
	defer L.Close()
	run := func(code string) error {
		L.SetGlobal("check", L.NewFunction(check))
		return L.DoString(code)
	}

	require.NoError(t, run(`check(250)`))
	assert.Equal(t, timed.Fixed(250*time.Millisecond), got)

	require.NoError(t, run(`check({min = 5, max = 10})`))
	assert.Equal(t, timed.Range(5*time.Millisecond, 10*time.Millisecond), got)

	require.NoError(t, run(`check({1, 2})`))
	assert.Equal(t, timed.Range(time.Millisecond, 2*time.Millisecond), got)

	require.NoError(t, run(`check(0.5)`))
	assert.Equal(t, timed.Fixed(500*time.Microsecond), got)

	require.NoError(t, run(`check({0, 86400000})`))
	assert.Equal(t, timed.Range(0, 24*time.Hour), got)

	assert.ErrorContains(t, run(`check(1e300)`), "out of range")
	assert.ErrorContains(t, run(`check({min = 0, max = 1/0})`), "out of range")
	assert.ErrorContains(t, run(`check(0/0)`), "out of range")
	assert.Error(t, run(`check({min = "a", max = 2})`))
	assert.Error(t, run(`check(nil)`))
}

func TestLuaCallback_Outcome(t *testing.T) {
	L := lua.NewState()
	defer L.Close()
	require.NoError(t, L.DoString(`
		function veto() return false, "reason", 7 end
		function allow() return true, "ignored" end
		function silent() end
		function nonbool() return "text" end
		function boom() error("bad") end
	`))
	fn := func(name string) *lua.LFunction { return L.GetGlobal(name).(*lua.LFunction) }
	ctx := context.Background()

	out, err := newLuaCallback(L, fn("veto"), "s", hooks.SuppressOnFalse).Invoke(ctx)
	require.NoError(t, err)
	assert.True(t, out.Suppress)
	assert.Equal(t, []any{"reason", 7.0}, out.Values)

	out, err = newLuaCallback(L, fn("allow"), "s", hooks.SuppressOnFalse).Invoke(ctx)
	require.NoError(t, err)
	assert.False(t, out.Suppress)
	assert.Nil(t, out.Values)

	out, err = newLuaCallback(L, fn("silent"), "s", hooks.SuppressOnTrue).Invoke(ctx)
	require.NoError(t, err)
	assert.False(t, out.Suppress)

	out, err = newLuaCallback(L, fn("nonbool"), "s", hooks.SuppressOnTrue).Invoke(ctx)
	require.NoError(t, err)
	assert.False(t, out.Suppress)

	_, err = newLuaCallback(L, fn("boom"), "s", hooks.SuppressOnTrue).Invoke(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
	assert.Zero(t, L.GetTop())
}

func TestLuaCallback_CancelledContext(t *testing.T) {
	L := lua.NewState()
	defer L.Close()
	require.NoError(t, L.DoString(`called = false; function f() called = true end`))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newLuaCallback(L, L.GetGlobal("f").(*lua.LFunction), "s", hooks.SuppressNever).Invoke(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, lua.LFalse, L.GetGlobal("called"))
}

func identityString(id uint64) string {
	return strconv.FormatUint(id, 10)
}
