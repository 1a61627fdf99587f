// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package lua

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/holomush/hookbridge/internal/core"
	plugins "github.com/holomush/hookbridge/internal/plugin"
	"github.com/holomush/hookbridge/internal/plugin/hostfunc"
)

// Compile-time interface check.
var _ plugins.Host = (*Host)(nil)

// Error codes for script loading.
const (
	CodeAlreadyLoaded = "ALREADY_LOADED"
	CodeNotLoaded     = "NOT_LOADED"
	CodeCompile       = "SCRIPT_COMPILE"
	CodeRuntime       = "SCRIPT_RUNTIME"
)

// luaScript is a script whose entry chunk ran in the shared state.
type luaScript struct {
	manifest *plugins.Manifest
	env      *lua.LTable
}

// Host runs every script of one engine in a single persistent Lua state.
// Each script gets its own environment table that falls back to the shared
// globals, so scripts do not see each other's globals.
//
// Host is driven by the engine's goroutine and holds no lock.
type Host struct {
	funcs   *hostfunc.Functions
	logger  *slog.Logger
	L       *lua.LState
	scripts map[string]*luaScript
	closed  bool
}

// HostOption configures a Host.
type HostOption func(*hostConfig)

type hostConfig struct {
	logger    *slog.Logger
	stateOpts []StateOption
}

// WithHostLogger sets the logger for load and unload messages.
func WithHostLogger(l *slog.Logger) HostOption {
	return func(c *hostConfig) {
		c.logger = l
	}
}

// WithStateOptions passes options to the state factory.
func WithStateOptions(opts ...StateOption) HostOption {
	return func(c *hostConfig) {
		c.stateOpts = append(c.stateOpts, opts...)
	}
}

// NewHost creates a script host whose scripts call into hf.
// Panics if hf is nil (consistent with hostfunc.New).
func NewHost(hf *hostfunc.Functions, opts ...HostOption) (*Host, error) {
	if hf == nil {
		panic("lua.NewHost: hostFuncs cannot be nil")
	}
	cfg := hostConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = hf.Engine().Logger()
	}

	L, err := NewStateFactory(cfg.stateOpts...).NewState(context.Background())
	if err != nil {
		return nil, oops.In("lua").Hint("failed to create script state").Wrap(err)
	}
	// Lua code runs unbounded unless a call installs its own context.
	L.RemoveContext()

	return &Host{
		funcs:   hf,
		logger:  cfg.logger,
		L:       L,
		scripts: make(map[string]*luaScript),
	}, nil
}

// Load compiles the script's entry file and runs it in a fresh environment.
// A script whose entry chunk fails keeps nothing it registered.
func (h *Host) Load(ctx context.Context, manifest *plugins.Manifest, dir string) error {
	errb := oops.In("lua").With("script", manifest.Name).With("operation", "load")
	if h.closed {
		return errb.Code(core.CodeClosed).New("host is closed")
	}
	if _, ok := h.scripts[manifest.Name]; ok {
		return errb.Code(CodeAlreadyLoaded).Errorf("script %s is already loaded", manifest.Name)
	}

	entryPath := filepath.Join(dir, manifest.Entry)
	code, err := os.ReadFile(filepath.Clean(entryPath))
	if err != nil {
		return errb.With("path", entryPath).Hint("failed to read entry file").Wrap(err)
	}

	fn, err := h.compile(code, manifest.Entry)
	if err != nil {
		return errb.Code(CodeCompile).With("entry", manifest.Entry).Hint("syntax error").Wrap(err)
	}

	L := h.L
	env := L.NewTable()
	meta := L.NewTable()
	L.SetField(meta, "__index", L.G.Global)
	L.SetMetatable(env, meta)
	h.funcs.Register(L, env, manifest.Name)
	L.SetFEnv(fn, env)

	if err := h.run(ctx, fn); err != nil {
		h.funcs.Release(manifest.Name)
		return errb.Code(CodeRuntime).With("entry", manifest.Entry).Wrap(err)
	}

	h.scripts[manifest.Name] = &luaScript{manifest: manifest, env: env}
	h.logger.Info("loaded script",
		"script", manifest.Name,
		"version", manifest.Version)
	return nil
}

// compile parses source without running it.
func (h *Host) compile(source []byte, name string) (*lua.LFunction, error) {
	chunk, err := parse.Parse(bytes.NewReader(source), name)
	if err != nil {
		return nil, err
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, err
	}
	return h.L.NewFunctionFromProto(proto), nil
}

// run calls fn bounded by ctx.
func (h *Host) run(ctx context.Context, fn *lua.LFunction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	L := h.L
	L.SetContext(ctx)
	defer L.RemoveContext()

	base := L.GetTop()
	err := L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true})
	L.SetTop(base)
	return err
}

// Unload cancels every subscription and timer the script created.
func (h *Host) Unload(_ context.Context, name string) error {
	if _, ok := h.scripts[name]; !ok {
		return oops.In("lua").With("script", name).With("operation", "unload").Code(CodeNotLoaded).New("script not loaded")
	}
	delete(h.scripts, name)
	n := h.funcs.Release(name)
	h.logger.Info("unloaded script", "script", name, "released", n)
	return nil
}

// Scripts returns names of loaded scripts in sorted order.
func (h *Host) Scripts() []string {
	names := make([]string, 0, len(h.scripts))
	for name := range h.scripts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Close unloads every script and closes the Lua state. Close is idempotent.
func (h *Host) Close(ctx context.Context) error {
	if h.closed {
		return nil
	}
	for _, name := range h.Scripts() {
		if err := h.Unload(ctx, name); err != nil {
			return err
		}
	}
	h.closed = true
	h.L.Close()
	return nil
}

// Validate compiles the entry file of a script without running it.
func Validate(manifest *plugins.Manifest, dir string) error {
	entryPath := filepath.Join(dir, manifest.Entry)
	code, err := os.ReadFile(filepath.Clean(entryPath))
	if err != nil {
		return oops.In("lua").With("script", manifest.Name).With("path", entryPath).Hint("failed to read entry file").Wrap(err)
	}
	chunk, err := parse.Parse(bytes.NewReader(code), manifest.Entry)
	if err == nil {
		_, err = lua.Compile(chunk, manifest.Entry)
	}
	if err != nil {
		return oops.In("lua").Code(CodeCompile).With("script", manifest.Name).With("entry", manifest.Entry).Hint("syntax error").Wrap(err)
	}
	return nil
}
