// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package dispatch

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/hookbridge/internal/binding"
	"github.com/holomush/hookbridge/internal/callback"
)

const (
	kindLogin        binding.Kind = 3
	kindDamageTaken  binding.Kind = 9
	kindUnregistered binding.Kind = 1
)

var kinds = []binding.Kind{kindUnregistered, kindLogin, kindDamageTaken}

type fixture struct {
	regs Registries
	d    *Dispatcher
	log  *bytes.Buffer
}

func newFixture(family string) *fixture {
	buf := &bytes.Buffer{}
	regs := Registries{
		Global: binding.NewRegistry(family+".global", binding.ShapeGlobal, kinds),
		Entry:  binding.NewRegistry(family+".entry", binding.ShapeEntry, kinds),
		Unique: binding.NewRegistry(family+".unique", binding.ShapeUnique, kinds),
	}
	return &fixture{
		regs: regs,
		d:    New(family, regs, WithLogger(slog.New(slog.NewJSONHandler(buf, nil)))),
		log:  buf,
	}
}

// recorder appends a label to calls every time it runs.
func recorder(calls *[]string, label string) callback.Invocable {
	return callback.Func(func(context.Context, ...any) (callback.Outcome, error) {
		*calls = append(*calls, label)
		return callback.Outcome{}, nil
	})
}

func register(t *testing.T, reg *binding.Registry, key binding.Key, fn callback.Invocable, shots uint32) *binding.Subscription {
	t.Helper()
	sub, err := reg.Register(key, fn, shots)
	require.NoError(t, err)
	return sub
}

func TestDispatcher_OrderGlobalEntryUnique(t *testing.T) {
	f := newFixture("creature")
	var calls []string

	// Interleave registrations across shapes; invocation order must still
	// group by shape and keep registration order inside each group.
	register(t, f.regs.Unique, binding.UniqueKey(kindDamageTaken, 77, 1), recorder(&calls, "u1"), 0)
	register(t, f.regs.Entry, binding.EntryKey(kindDamageTaken, 1234), recorder(&calls, "e1"), 0)
	register(t, f.regs.Global, binding.GlobalKey(kindDamageTaken), recorder(&calls, "g1"), 0)
	register(t, f.regs.Unique, binding.UniqueKey(kindDamageTaken, 77, 1), recorder(&calls, "u2"), 0)
	register(t, f.regs.Global, binding.GlobalKey(kindDamageTaken), recorder(&calls, "g2"), 0)
	register(t, f.regs.Entry, binding.EntryKey(kindDamageTaken, 1234), recorder(&calls, "e2"), 0)
	register(t, f.regs.Entry, binding.EntryKey(kindDamageTaken, 9999), recorder(&calls, "other"), 0)

	res := f.d.Fire(context.Background(), kindDamageTaken, InstanceTarget(1234, 77, 1))

	assert.Equal(t, []string{"g1", "g2", "e1", "e2", "u1", "u2"}, calls)
	assert.Equal(t, 6, res.Invoked)
	assert.False(t, res.Suppressed)
}

func TestDispatcher_TargetSelectsScopes(t *testing.T) {
	f := newFixture("creature")
	var calls []string
	register(t, f.regs.Global, binding.GlobalKey(kindDamageTaken), recorder(&calls, "g"), 0)
	register(t, f.regs.Entry, binding.EntryKey(kindDamageTaken, 1234), recorder(&calls, "e"), 0)
	register(t, f.regs.Unique, binding.UniqueKey(kindDamageTaken, 77, 1), recorder(&calls, "u"), 0)

	tests := []struct {
		name   string
		target Target
		want   []string
	}{
		{"any", AnyTarget(), []string{"g"}},
		{"entry", EntryTarget(1234), []string{"g", "e"}},
		{"unique", UniqueTarget(77, 1), []string{"g", "u"}},
		{"unique other scope", UniqueTarget(77, 2), []string{"g"}},
		{"instance", InstanceTarget(1234, 77, 1), []string{"g", "e", "u"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls = nil
			f.d.Fire(context.Background(), kindDamageTaken, tt.target)
			assert.Equal(t, tt.want, calls)
		})
	}
}

func TestDispatcher_SingleShotGlobalLogin(t *testing.T) {
	f := newFixture("player")
	var calls []string
	register(t, f.regs.Global, binding.GlobalKey(kindLogin), recorder(&calls, "login"), 1)

	first := f.d.Fire(context.Background(), kindLogin, AnyTarget())
	second := f.d.Fire(context.Background(), kindLogin, AnyTarget())

	assert.Equal(t, []string{"login"}, calls)
	assert.Equal(t, 1, first.Invoked)
	assert.Equal(t, 0, second.Invoked)
	assert.Empty(t, f.regs.Global.Lookup(binding.GlobalKey(kindLogin)))
	assert.Empty(t, f.regs.Global.Keys())
}

func TestDispatcher_ShotExhaustion(t *testing.T) {
	f := newFixture("player")
	count := 0
	counter := callback.Func(func(context.Context, ...any) (callback.Outcome, error) {
		count++
		return callback.Outcome{}, nil
	})
	register(t, f.regs.Global, binding.GlobalKey(kindLogin), counter, 5)

	for range 5 {
		require.NotEmpty(t, f.regs.Global.Lookup(binding.GlobalKey(kindLogin)))
		f.d.Fire(context.Background(), kindLogin, AnyTarget())
	}
	assert.Equal(t, 5, count)
	assert.Empty(t, f.regs.Global.Lookup(binding.GlobalKey(kindLogin)))

	f.d.Fire(context.Background(), kindLogin, AnyTarget())
	assert.Equal(t, 5, count)
}

func TestDispatcher_UnlimitedShots(t *testing.T) {
	f := newFixture("player")
	count := 0
	counter := callback.Func(func(context.Context, ...any) (callback.Outcome, error) {
		count++
		return callback.Outcome{}, nil
	})
	register(t, f.regs.Global, binding.GlobalKey(kindLogin), counter, callback.Unlimited)

	for range 10000 {
		f.d.Fire(context.Background(), kindLogin, AnyTarget())
	}
	assert.Equal(t, 10000, count)
	assert.Len(t, f.regs.Global.Lookup(binding.GlobalKey(kindLogin)), 1)
}

func TestDispatcher_EntryScoped(t *testing.T) {
	f := newFixture("creature")
	var entries []any
	handler := callback.Func(func(_ context.Context, args ...any) (callback.Outcome, error) {
		entries = append(entries, args[1])
		return callback.Outcome{}, nil
	})
	register(t, f.regs.Entry, binding.EntryKey(kindDamageTaken, 1234), handler, 0)

	for range 5 {
		f.d.Fire(context.Background(), kindDamageTaken, EntryTarget(1234), uint32(1234))
	}
	f.d.Fire(context.Background(), kindDamageTaken, EntryTarget(5678), uint32(5678))

	require.Len(t, entries, 5)
	for _, e := range entries {
		assert.Equal(t, uint32(1234), e)
	}

	// Clearing the entry without a kind removes every subscription for it.
	f.regs.Entry.ClearEntry(1234)
	entries = nil
	res := f.d.Fire(context.Background(), kindDamageTaken, EntryTarget(1234), uint32(1234))
	assert.Empty(t, entries)
	assert.Equal(t, 0, res.Invoked)
}

func TestDispatcher_PassesKindThenArgs(t *testing.T) {
	f := newFixture("player")
	var got []any
	register(t, f.regs.Global, binding.GlobalKey(kindLogin), callback.Func(func(_ context.Context, args ...any) (callback.Outcome, error) {
		got = args
		return callback.Outcome{}, nil
	}), 0)

	f.d.Fire(context.Background(), kindLogin, AnyTarget(), "alice", 42)

	assert.Equal(t, []any{kindLogin, "alice", 42}, got)
}

func TestDispatcher_ReentrantRegisterSeenNextFire(t *testing.T) {
	f := newFixture("player")
	var calls []string
	registered := false
	self := callback.Func(func(context.Context, ...any) (callback.Outcome, error) {
		calls = append(calls, "outer")
		if !registered {
			registered = true
			_, err := f.regs.Global.Register(binding.GlobalKey(kindLogin), recorder(&calls, "inner"), 0)
			require.NoError(t, err)
		}
		return callback.Outcome{}, nil
	})
	register(t, f.regs.Global, binding.GlobalKey(kindLogin), self, 0)

	f.d.Fire(context.Background(), kindLogin, AnyTarget())
	assert.Equal(t, []string{"outer"}, calls)

	calls = nil
	f.d.Fire(context.Background(), kindLogin, AnyTarget())
	assert.Equal(t, []string{"outer", "inner"}, calls)
}

func TestDispatcher_CancelDuringFireSkipsLaterHandle(t *testing.T) {
	f := newFixture("player")
	var calls []string
	var victim *binding.Subscription
	canceller := callback.Func(func(context.Context, ...any) (callback.Outcome, error) {
		calls = append(calls, "canceller")
		victim.Cancel()
		return callback.Outcome{}, nil
	})
	register(t, f.regs.Global, binding.GlobalKey(kindLogin), canceller, 0)
	victim = register(t, f.regs.Global, binding.GlobalKey(kindLogin), recorder(&calls, "victim"), 0)

	res := f.d.Fire(context.Background(), kindLogin, AnyTarget())

	assert.Equal(t, []string{"canceller"}, calls)
	assert.Equal(t, 1, res.Invoked)
	assert.Len(t, f.regs.Global.Lookup(binding.GlobalKey(kindLogin)), 1)
}

func TestDispatcher_SuppressionDoesNotStopOthers(t *testing.T) {
	f := newFixture("player")
	var calls []string
	suppress := func(label string, values ...any) callback.Invocable {
		return callback.Func(func(context.Context, ...any) (callback.Outcome, error) {
			calls = append(calls, label)
			return callback.Outcome{Suppress: true, Values: values}, nil
		})
	}
	register(t, f.regs.Global, binding.GlobalKey(kindLogin), recorder(&calls, "a"), 0)
	register(t, f.regs.Global, binding.GlobalKey(kindLogin), suppress("b", "first"), 0)
	register(t, f.regs.Global, binding.GlobalKey(kindLogin), suppress("c", "second"), 0)
	register(t, f.regs.Global, binding.GlobalKey(kindLogin), recorder(&calls, "d"), 0)

	res := f.d.Fire(context.Background(), kindLogin, AnyTarget())

	assert.Equal(t, []string{"a", "b", "c", "d"}, calls)
	assert.True(t, res.Suppressed)
	assert.Equal(t, []any{"first"}, res.Values)
	assert.Equal(t, 4, res.Invoked)
}

func TestDispatcher_FaultsAreIsolated(t *testing.T) {
	f := newFixture("player")
	var calls []string
	failing := callback.Func(func(context.Context, ...any) (callback.Outcome, error) {
		calls = append(calls, "error")
		return callback.Outcome{Suppress: true}, errors.New("script error")
	})
	panicking := callback.Func(func(context.Context, ...any) (callback.Outcome, error) {
		calls = append(calls, "panic")
		panic("nil index")
	})
	register(t, f.regs.Global, binding.GlobalKey(kindLogin), failing, 1)
	register(t, f.regs.Global, binding.GlobalKey(kindLogin), panicking, 0)
	register(t, f.regs.Global, binding.GlobalKey(kindLogin), recorder(&calls, "ok"), 0)

	var res AggregateResult
	require.NotPanics(t, func() {
		res = f.d.Fire(context.Background(), kindLogin, AnyTarget())
	})

	assert.Equal(t, []string{"error", "panic", "ok"}, calls)
	assert.Equal(t, 3, res.Invoked)
	assert.Equal(t, 2, res.Faults)
	assert.False(t, res.Suppressed, "a faulting callback never suppresses")

	// The failing single-shot handle is spent; the others stay bound.
	assert.Len(t, f.regs.Global.Lookup(binding.GlobalKey(kindLogin)), 2)

	logged := f.log.String()
	assert.Contains(t, logged, "event callback failed")
	assert.Contains(t, logged, `"family":"player"`)
	assert.Contains(t, logged, `"key":"global(3)"`)
	assert.Contains(t, logged, `"index":1`)
}

func TestDispatcher_UnknownKindIsNoop(t *testing.T) {
	f := newFixture("player")

	res := f.d.Fire(context.Background(), 250, InstanceTarget(1, 2, 3))

	assert.Equal(t, AggregateResult{}, res)
}

func TestDispatcher_MissingRegistriesAreSkipped(t *testing.T) {
	global := binding.NewRegistry("player.global", binding.ShapeGlobal, kinds)
	d := New("player", Registries{Global: global})
	var calls []string
	register(t, global, binding.GlobalKey(kindLogin), recorder(&calls, "g"), 0)

	res := d.Fire(context.Background(), kindLogin, InstanceTarget(1, 2, 3))

	assert.Equal(t, []string{"g"}, calls)
	assert.Equal(t, 1, res.Invoked)
	assert.Equal(t, "player", d.Family())
}

func TestDispatcher_RecordsMetrics(t *testing.T) {
	f := newFixture("metrics_family")
	register(t, f.regs.Global, binding.GlobalKey(kindLogin), callback.Func(func(context.Context, ...any) (callback.Outcome, error) {
		return callback.Outcome{Suppress: true}, nil
	}), 0)

	fires := testutil.ToFloat64(Fires.WithLabelValues("metrics_family"))
	ok := testutil.ToFloat64(Invocations.WithLabelValues("metrics_family", StatusOK))
	suppressed := testutil.ToFloat64(Suppressions.WithLabelValues("metrics_family"))

	f.d.Fire(context.Background(), kindLogin, AnyTarget())

	assert.InDelta(t, fires+1, testutil.ToFloat64(Fires.WithLabelValues("metrics_family")), 0)
	assert.InDelta(t, ok+1, testutil.ToFloat64(Invocations.WithLabelValues("metrics_family", StatusOK)), 0)
	assert.InDelta(t, suppressed+1, testutil.ToFloat64(Suppressions.WithLabelValues("metrics_family")), 0)
}

func TestDispatcher_FaultSpendsShot(t *testing.T) {
	f := newFixture("player")
	calls := 0
	failing := callback.Func(func(context.Context, ...any) (callback.Outcome, error) {
		calls++
		return callback.Outcome{}, errors.New("boom")
	})
	register(t, f.regs.Global, binding.GlobalKey(kindLogin), failing, 1)

	for range 5 {
		f.d.Fire(context.Background(), kindLogin, AnyTarget())
	}

	assert.Equal(t, 1, calls)
	assert.Empty(t, f.regs.Global.Lookup(binding.GlobalKey(kindLogin)))
	assert.Equal(t, 0, f.regs.Global.Len())
}
