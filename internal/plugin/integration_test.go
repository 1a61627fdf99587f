// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package plugin_test

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/hookbridge/internal/binding"
	"github.com/holomush/hookbridge/internal/core"
	"github.com/holomush/hookbridge/internal/hooks"
	"github.com/holomush/hookbridge/internal/plugin"
	"github.com/holomush/hookbridge/internal/plugin/capability"
	"github.com/holomush/hookbridge/internal/plugin/hostfunc"
	pluginlua "github.com/holomush/hookbridge/internal/plugin/lua"
	"github.com/holomush/hookbridge/internal/runner"
)

const (
	guardEntry = uint32(1234)
	guardGUID  = uint64(0xF1300004D2000001)
	mapScope   = uint32(0)
)

// findScriptsDir locates the bundled scripts directory relative to the test.
func findScriptsDir() string {
	candidates := []string{
		"../../scripts",    // From internal/plugin
		"../../../scripts", // If test is deeper
		"./scripts",        // Current directory
	}

	cwd, err := os.Getwd()
	Expect(err).NotTo(HaveOccurred())

	for _, candidate := range candidates {
		path, err := filepath.Abs(filepath.Join(cwd, candidate))
		if err != nil {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	Fail("could not find scripts directory from " + cwd)
	return ""
}

func kindOf(fam *hooks.Family, name string) binding.Kind {
	kind, ok := fam.KindByName(name)
	Expect(ok).To(BeTrue(), "unknown kind %s", name)
	return kind
}

var _ = Describe("Bundled scripts", func() {
	var (
		ctx     context.Context
		now     time.Time
		logs    *bytes.Buffer
		engine  *core.Engine
		manager *plugin.Manager
		run     *runner.Runner
	)

	// advance moves the clock forward by d and runs one runner step.
	advance := func(d time.Duration) int {
		now = now.Add(d)
		return run.Step(ctx, now, d)
	}

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
		logs = &bytes.Buffer{}
		logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

		engine = core.NewEngine(
			core.WithLogger(logger),
			core.WithClock(func() time.Time { return now }),
			core.WithSeed(1),
		)
		enforcer := capability.NewEnforcer()
		host, err := pluginlua.NewHost(hostfunc.New(engine, enforcer), pluginlua.WithHostLogger(logger))
		Expect(err).NotTo(HaveOccurred())

		manager = plugin.NewManager(findScriptsDir(),
			plugin.WithHost(host),
			plugin.WithEnforcer(enforcer),
			plugin.WithLogger(logger),
		)
		Expect(manager.LoadAll(ctx)).To(Succeed())

		run = runner.New(engine, runner.WithLogger(logger), runner.WithOnStop(manager.Close))
	})

	AfterEach(func() {
		Expect(manager.Close(ctx)).To(Succeed())
		engine.Close()
	})

	It("loads every bundled script", func() {
		Expect(manager.ListScripts()).To(Equal([]string{"chat-filter", "creature-ai"}))
	})

	Describe("chat-filter", func() {
		var chat binding.Kind

		BeforeEach(func() {
			chat = kindOf(hooks.Player, "PLAYER_EVENT_ON_CHAT")
		})

		It("drops lines with banned words", func() {
			res := engine.FireGlobal(ctx, hooks.Player.Name(), chat, "alice", "Big SPOILER ahead")
			Expect(res.Suppressed).To(BeTrue())
			Expect(res.Values).To(Equal([]any{"message contains a banned word"}))
			Expect(logs.String()).To(ContainSubstring("dropped chat from alice: spoiler"))
		})

		It("passes other lines through", func() {
			res := engine.FireGlobal(ctx, hooks.Player.Name(), chat, "bob", "hello there")
			Expect(res.Suppressed).To(BeFalse())
			Expect(res.Invoked).To(Equal(1))
		})

		It("has no grants outside its manifest", func() {
			res := engine.FireForInstance(ctx, hooks.Creature.Name(),
				kindOf(hooks.Creature, "CREATURE_EVENT_ON_DIED"), guardEntry, guardGUID, mapScope, guardGUID, "alice")
			Expect(res.Invoked).To(Equal(1), "only creature-ai listens to creature events")
		})
	})

	Describe("creature-ai", func() {
		var enterCombat, leaveCombat binding.Kind

		BeforeEach(func() {
			enterCombat = kindOf(hooks.Creature, "CREATURE_EVENT_ON_ENTER_COMBAT")
			leaveCombat = kindOf(hooks.Creature, "CREATURE_EVENT_ON_LEAVE_COMBAT")
		})

		It("taunts on a timer while in combat", func() {
			res := engine.FireForInstance(ctx, hooks.Creature.Name(), enterCombat, guardEntry, guardGUID, mapScope, guardGUID, "alice")
			Expect(res.Invoked).To(Equal(1))
			Expect(logs.String()).To(ContainSubstring("engages alice"))

			proc, ok := engine.Timers().Object(guardGUID)
			Expect(ok).To(BeTrue())
			Expect(proc.Len()).To(Equal(1))

			Expect(advance(500 * time.Millisecond)).To(Equal(0))
			Expect(advance(500 * time.Millisecond)).To(Equal(1))
			Expect(advance(time.Second)).To(Equal(1))

			engine.FireForInstance(ctx, hooks.Creature.Name(), leaveCombat, guardEntry, guardGUID, mapScope, guardGUID)
			Expect(proc.Len()).To(Equal(0))
			Expect(advance(time.Second)).To(Equal(0))
		})

		It("ignores other creature entries", func() {
			res := engine.FireForInstance(ctx, hooks.Creature.Name(), enterCombat, 99, 42, mapScope, uint64(42), "alice")
			Expect(res.Invoked).To(BeZero())
			_, ok := engine.Timers().Object(42)
			Expect(ok).To(BeFalse())
		})

		It("prevents the guard's death", func() {
			res := engine.FireForInstance(ctx, hooks.Creature.Name(),
				kindOf(hooks.Creature, "CREATURE_EVENT_ON_DIED"), guardEntry, guardGUID, mapScope, guardGUID, "alice")
			Expect(res.Suppressed).To(BeTrue())
		})

		It("drops its timers when unloaded", func() {
			engine.FireForInstance(ctx, hooks.Creature.Name(), enterCombat, guardEntry, guardGUID, mapScope, guardGUID, "alice")
			Expect(engine.Timers().Len()).To(Equal(1))

			Expect(manager.Unload(ctx, "creature-ai")).To(Succeed())
			Expect(engine.Timers().Len()).To(BeZero())
			Expect(advance(time.Second)).To(BeZero())
		})
	})

	Describe("runner lifecycle", func() {
		It("runs queued tasks on the next step", func() {
			var invoked int
			Expect(run.Submit(func(ctx context.Context, e *core.Engine) {
				res := e.FireGlobal(ctx, hooks.Player.Name(), kindOf(hooks.Player, "PLAYER_EVENT_ON_CHAT"), "carol", "gold for sale")
				invoked = res.Invoked
			})).To(Succeed())

			advance(100 * time.Millisecond)
			Expect(invoked).To(Equal(1))
			Expect(logs.String()).To(ContainSubstring("dropped chat from carol: gold for sale"))
		})
	})
})
