// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package lua provides the sandboxed Lua runtime scripts execute in.
package lua

import (
	"context"
	"log/slog"
	"strings"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"
)

// safeLibrary represents a Lua library that is safe to load in sandboxed state.
type safeLibrary struct {
	name string
	fn   lua.LGFunction
}

// defaultSafeLibraries returns the list of libraries safe to load.
// Safe: base, table, string, math.
// Blocked: os, io, debug, package.
func defaultSafeLibraries() []safeLibrary {
	return []safeLibrary{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	}
}

// StateFactory creates sandboxed Lua states with only safe libraries.
type StateFactory struct {
	// libraries allows overriding the default safe libraries for testing.
	libraries     []safeLibrary
	callStackSize int
	printer       *slog.Logger
}

// StateOption configures a StateFactory.
type StateOption func(*StateFactory)

// WithCallStackSize bounds Lua call depth. Zero keeps the gopher-lua default.
func WithCallStackSize(n int) StateOption {
	return func(f *StateFactory) {
		f.callStackSize = n
	}
}

// WithPrintLogger routes Lua print() to l at info level instead of stdout.
func WithPrintLogger(l *slog.Logger) StateOption {
	return func(f *StateFactory) {
		f.printer = l
	}
}

// NewStateFactory creates a new state factory.
func NewStateFactory(opts ...StateOption) *StateFactory {
	f := &StateFactory{
		libraries: defaultSafeLibraries(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// unsafeBaseFunctions lists base library functions that must be blocked for security.
// These functions allow filesystem access or loading unchecked chunks.
var unsafeBaseFunctions = []string{"dofile", "loadfile", "loadstring", "load"}

// NewState creates a Lua state with only safe libraries loaded.
// Safe libraries: base, table, string, math.
// Blocked libraries: os, io, debug, package.
// Blocked base functions: dofile, loadfile, loadstring, load.
//
// The state is bound to ctx: once ctx is done, running Lua code stops with an
// error at its next instruction.
func (f *StateFactory) NewState(ctx context.Context) (*lua.LState, error) {
	L := lua.NewState(lua.Options{
		SkipOpenLibs:  true,
		CallStackSize: f.callStackSize,
	})

	for _, lib := range f.libraries {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, oops.In("lua").With("library", lib.name).Wrapf(err, "failed to open library %s", lib.name)
		}
	}

	for _, fn := range unsafeBaseFunctions {
		L.SetGlobal(fn, lua.LNil)
	}

	if f.printer != nil {
		printer := f.printer
		L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
			top := L.GetTop()
			parts := make([]string, 0, top)
			for i := 1; i <= top; i++ {
				parts = append(parts, L.ToStringMeta(L.Get(i)).String())
			}
			printer.Info(strings.Join(parts, "\t"), "source", "print")
			return 0
		}))
	}

	if ctx != nil {
		L.SetContext(ctx)
	}
	return L, nil
}
