// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package hostfunc note: L is the idiomatic variable name for lua.LState
// in the gopher-lua community, matching the reference implementation.
//nolint:gocritic // captLocal: L is the idiomatic name for lua.LState
package hostfunc

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/holomush/hookbridge/internal/binding"
	"github.com/holomush/hookbridge/internal/hooks"
	"github.com/holomush/hookbridge/internal/timed"
)

// maxExactNumber is the largest integer a Lua number holds without loss.
const maxExactNumber = 1 << 53

// maxDelayMillis is the longest delay, in milliseconds, a time.Duration holds.
const maxDelayMillis = float64(math.MaxInt64 / int64(time.Millisecond))

// toLua converts a Go value handed to a callback into a Lua value.
func toLua(L *lua.LState, v any) lua.LValue {
	switch v := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return v
	case bool:
		return lua.LBool(v)
	case string:
		return lua.LString(v)
	case int:
		return lua.LNumber(v)
	case int32:
		return lua.LNumber(v)
	case int64:
		return lua.LNumber(v)
	case uint32:
		return lua.LNumber(v)
	case uint64:
		return identityToLua(v)
	case float64:
		return lua.LNumber(v)
	case binding.Kind:
		return lua.LNumber(v)
	case timed.ID:
		return lua.LNumber(v)
	case time.Duration:
		return lua.LNumber(v.Milliseconds())
	case []any:
		t := L.CreateTable(len(v), 0)
		for _, item := range v {
			t.Append(toLua(L, item))
		}
		return t
	case map[string]any:
		t := L.CreateTable(0, len(v))
		for k, item := range v {
			t.RawSetString(k, toLua(L, item))
		}
		return t
	default:
		return lua.LString(fmt.Sprint(v))
	}
}

// identityToLua keeps identities exact: values past the float mantissa travel
// as hex strings, which checkIdentity accepts back.
func identityToLua(id uint64) lua.LValue {
	if id > maxExactNumber {
		return lua.LString(fmt.Sprintf("%#x", id))
	}
	return lua.LNumber(id)
}

// fromLua converts a value returned by a callback into a plain Go value.
// Arrays become []any, other tables map[string]any.
func fromLua(v lua.LValue) any {
	switch v := v.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		return float64(v)
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if n := v.MaxN(); n > 0 && n == v.Len() {
			out := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				out = append(out, fromLua(v.RawGetInt(i)))
			}
			return out
		}
		out := make(map[string]any)
		v.ForEach(func(k, item lua.LValue) {
			out[k.String()] = fromLua(item)
		})
		return out
	default:
		return v
	}
}

// checkFamily reads a family name argument.
func (f *Functions) checkFamily(L *lua.LState, n int) *hooks.Family {
	name := L.CheckString(n)
	fam, ok := f.engine.Family(name)
	if !ok {
		L.ArgError(n, "unknown event family "+strconv.Quote(name))
		return nil
	}
	return fam
}

// checkKind reads a kind given as a number or a kind name. Numbers are not
// checked against the family here so the registry reports UNKNOWN_KIND.
func checkKind(L *lua.LState, n int, fam *hooks.Family) binding.Kind {
	switch v := L.Get(n).(type) {
	case lua.LNumber:
		return binding.Kind(checkUint(L, n, float64(v), math.MaxUint32))
	case lua.LString:
		kind, ok := fam.KindByName(string(v))
		if !ok {
			L.ArgError(n, fmt.Sprintf("unknown %s event %q", fam.Name(), string(v)))
		}
		return kind
	default:
		L.TypeError(n, lua.LTNumber)
		return 0
	}
}

// optKind reads an optional kind. The second result is false when absent.
func optKind(L *lua.LState, n int, fam *hooks.Family) (binding.Kind, bool) {
	if L.Get(n) == lua.LNil {
		return 0, false
	}
	return checkKind(L, n, fam), true
}

// checkIdentity reads a guid given as a number or a decimal or 0x-prefixed
// hex string.
func checkIdentity(L *lua.LState, n int) uint64 {
	switch v := L.Get(n).(type) {
	case lua.LNumber:
		return checkUint(L, n, float64(v), math.MaxUint64)
	case lua.LString:
		s := strings.TrimSpace(string(v))
		id, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			L.ArgError(n, "invalid guid "+strconv.Quote(s))
		}
		return id
	default:
		L.TypeError(n, lua.LTNumber)
		return 0
	}
}

// checkEntry reads an entry id.
func checkEntry(L *lua.LState, n int) uint32 {
	return uint32(checkUint(L, n, float64(L.CheckNumber(n)), math.MaxUint32))
}

// optCount reads an optional shots or repeats count.
func optCount(L *lua.LState, n int, def uint32) uint32 {
	if L.Get(n) == lua.LNil {
		return def
	}
	return uint32(checkUint(L, n, float64(L.CheckNumber(n)), math.MaxUint32))
}

func checkUint(L *lua.LState, n int, v float64, limit float64) uint64 {
	if v < 0 || v != math.Trunc(v) || v > limit {
		L.ArgError(n, fmt.Sprintf("expected a non-negative integer, got %v", v))
		return 0
	}
	return uint64(v)
}

// checkDelay reads a delay in milliseconds or a {min, max} table.
func checkDelay(L *lua.LState, n int) timed.Delay {
	ms := func(v lua.LValue, field string) time.Duration {
		num, ok := v.(lua.LNumber)
		if !ok {
			L.ArgError(n, "delay "+field+" must be a number of milliseconds")
			return 0
		}
		f := float64(num)
		if math.IsNaN(f) || math.Abs(f) > maxDelayMillis {
			L.ArgError(n, "delay "+field+" is out of range")
			return 0
		}
		return time.Duration(f * float64(time.Millisecond))
	}

	switch v := L.Get(n).(type) {
	case lua.LNumber:
		return timed.Fixed(ms(v, "value"))
	case *lua.LTable:
		lo := v.RawGetString("min")
		hi := v.RawGetString("max")
		if lo == lua.LNil && hi == lua.LNil {
			lo, hi = v.RawGetInt(1), v.RawGetInt(2)
		}
		return timed.Range(ms(lo, "min"), ms(hi, "max"))
	default:
		L.TypeError(n, lua.LTNumber)
		return timed.Delay{}
	}
}

// raise turns err into a Lua error at the call site.
func raise(L *lua.LState, err error) int {
	L.RaiseError("%s", err.Error())
	return 0
}
