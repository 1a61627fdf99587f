// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package runner_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/holomush/hookbridge/internal/binding"
	"github.com/holomush/hookbridge/internal/callback"
	"github.com/holomush/hookbridge/internal/core"
	"github.com/holomush/hookbridge/internal/hooks"
	"github.com/holomush/hookbridge/internal/runner"
	"github.com/holomush/hookbridge/internal/timed"
	"github.com/holomush/hookbridge/pkg/errutil"
)

// recorder collects the server events it sees. Safe for use across goroutines
// so tests can read it after Stop.
type recorder struct {
	mu     sync.Mutex
	events []binding.Kind
	args   [][]any
}

func (r *recorder) fn() callback.Func {
	return func(_ context.Context, args ...any) (callback.Outcome, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, args[0].(binding.Kind))
		r.args = append(r.args, args[1:])
		return callback.Outcome{}, nil
	}
}

func (r *recorder) kinds() []binding.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]binding.Kind(nil), r.events...)
}

func (r *recorder) count(kind binding.Kind) int {
	n := 0
	for _, k := range r.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

func watchServer(t *testing.T, e *core.Engine, rec *recorder, kinds ...binding.Kind) {
	t.Helper()
	for _, k := range kinds {
		_, err := e.RegisterGlobal(hooks.Server.Name(), k, rec.fn(), callback.Unlimited)
		require.NoError(t, err)
	}
}

func TestRunner_StepFiresUpdateThenSweeps(t *testing.T) {
	t0 := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	e := core.NewEngine(core.WithClock(func() time.Time { return t0 }))
	defer e.Close()
	r := runner.New(e)

	rec := &recorder{}
	watchServer(t, e, rec, hooks.ServerOnUpdate)

	var order []string
	_, err := e.ScheduleOnce(callback.Func(func(context.Context, ...any) (callback.Outcome, error) {
		order = append(order, "timer")
		return callback.Outcome{}, nil
	}), timed.Fixed(100*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, r.Submit(func(context.Context, *core.Engine) { order = append(order, "task") }))

	fired := r.Step(context.Background(), t0.Add(100*time.Millisecond), 100*time.Millisecond)

	assert.Equal(t, 1, fired)
	assert.Equal(t, []string{"task", "timer"}, order)
	require.Equal(t, []binding.Kind{hooks.ServerOnUpdate}, rec.kinds())
	assert.Equal(t, []any{uint32(100)}, rec.args[0])
}

func TestRunner_StepClampsNegativeDiff(t *testing.T) {
	e := core.NewEngine()
	defer e.Close()
	r := runner.New(e)
	rec := &recorder{}
	watchServer(t, e, rec, hooks.ServerOnUpdate)

	r.Step(context.Background(), time.Now(), -time.Second)
	assert.Equal(t, []any{uint32(0)}, rec.args[0])
}

func TestRunner_Lifecycle(t *testing.T) {
	defer goleak.VerifyNone(t)

	e := core.NewEngine()
	rec := &recorder{}
	watchServer(t, e, rec,
		hooks.ServerOnLuaStateOpen, hooks.ServerOnStartup, hooks.ServerOnUpdate,
		hooks.ServerOnShutdown, hooks.ServerOnLuaStateClose)

	var stopped bool
	r := runner.New(e,
		runner.WithInterval(time.Millisecond),
		runner.WithOnStop(func(context.Context) error {
			stopped = true
			return nil
		}),
	)
	r.Start(context.Background())

	require.Eventually(t, func() bool { return rec.count(hooks.ServerOnUpdate) >= 3 }, time.Second, time.Millisecond)
	require.NoError(t, r.Stop())

	kinds := rec.kinds()
	require.GreaterOrEqual(t, len(kinds), 7)
	assert.Equal(t, []binding.Kind{hooks.ServerOnLuaStateOpen, hooks.ServerOnStartup}, kinds[:2])
	assert.Equal(t, []binding.Kind{hooks.ServerOnShutdown, hooks.ServerOnLuaStateClose}, kinds[len(kinds)-2:])
	for _, k := range kinds[2 : len(kinds)-2] {
		assert.Equal(t, hooks.ServerOnUpdate, k)
	}
	assert.True(t, stopped)
	assert.True(t, e.Closed())
}

func TestRunner_SubmitRunsOnRunnerGoroutine(t *testing.T) {
	defer goleak.VerifyNone(t)

	e := core.NewEngine()
	r := runner.New(e, runner.WithInterval(time.Hour))
	r.Start(context.Background())

	rec := &recorder{}
	err := r.Do(context.Background(), func(_ context.Context, eng *core.Engine) {
		_, err := eng.RegisterGlobal(hooks.Player.Name(), hooks.PlayerOnLogin, rec.fn(), 1)
		assert.NoError(t, err)
	})
	require.NoError(t, err)

	var invoked int
	require.NoError(t, r.Do(context.Background(), func(ctx context.Context, eng *core.Engine) {
		invoked = eng.FireGlobal(ctx, hooks.Player.Name(), hooks.PlayerOnLogin, "guid").Invoked
	}))
	assert.Equal(t, 1, invoked)

	require.NoError(t, r.Stop())
	assert.Equal(t, []binding.Kind{hooks.PlayerOnLogin}, rec.kinds())
}

func TestRunner_SubmitAfterStopFails(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := runner.New(core.NewEngine(), runner.WithInterval(time.Hour))
	r.Start(context.Background())
	require.NoError(t, r.Stop())

	err := r.Submit(func(context.Context, *core.Engine) {})
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, runner.CodeClosed)

	err = r.Do(context.Background(), func(context.Context, *core.Engine) {})
	errutil.AssertErrorCode(t, err, runner.CodeClosed)
}

func TestRunner_SubmitNil(t *testing.T) {
	r := runner.New(core.NewEngine())
	errutil.AssertErrorCode(t, r.Submit(nil), "INVALID_ARGUMENT")
}

func TestRunner_QueuedTasksRunBeforeShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)

	e := core.NewEngine()
	rec := &recorder{}
	watchServer(t, e, rec, hooks.ServerOnShutdown)

	r := runner.New(e, runner.WithInterval(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())

	var order []string
	require.NoError(t, r.Submit(func(context.Context, *core.Engine) { order = append(order, "queued") }))
	require.NoError(t, r.Submit(func(context.Context, *core.Engine) { cancel() }))

	require.NoError(t, r.Run(ctx))
	assert.Equal(t, []string{"queued"}, order)
	assert.Equal(t, 1, rec.count(hooks.ServerOnShutdown))
}

func TestRunner_TaskPanicIsContained(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := runner.New(core.NewEngine(), runner.WithInterval(time.Hour))
	r.Start(context.Background())

	require.NoError(t, r.Submit(func(context.Context, *core.Engine) { panic("boom") }))
	ran := false
	require.NoError(t, r.Do(context.Background(), func(context.Context, *core.Engine) { ran = true }))
	assert.True(t, ran)
	require.NoError(t, r.Stop())
}

func TestRunner_RunTwice(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := runner.New(core.NewEngine(), runner.WithInterval(time.Hour))
	r.Start(context.Background())
	require.NoError(t, r.Do(context.Background(), func(context.Context, *core.Engine) {}))

	err := r.Run(context.Background())
	errutil.AssertErrorCode(t, err, runner.CodeRunning)
	require.NoError(t, r.Stop())
}

func TestRunner_StopHookErrorIsReturned(t *testing.T) {
	defer goleak.VerifyNone(t)

	hookErr := errors.New("close failed")
	second := false
	r := runner.New(core.NewEngine(),
		runner.WithInterval(time.Hour),
		runner.WithOnStop(func(context.Context) error { return hookErr }),
		runner.WithOnStop(func(context.Context) error { second = true; return nil }),
	)
	r.Start(context.Background())
	err := r.Stop()
	assert.ErrorIs(t, err, hookErr)
	assert.True(t, second)
}

func TestRunner_ShutdownCallbacksSeeLiveContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	e := core.NewEngine()
	var ctxErr error = errors.New("not called")
	_, err := e.RegisterGlobal(hooks.Server.Name(), hooks.ServerOnShutdown,
		callback.Func(func(ctx context.Context, _ ...any) (callback.Outcome, error) {
			ctxErr = ctx.Err()
			return callback.Outcome{}, nil
		}), 1)
	require.NoError(t, err)

	r := runner.New(e, runner.WithInterval(time.Hour))
	r.Start(context.Background())
	require.NoError(t, r.Stop())
	assert.NoError(t, ctxErr)
}
