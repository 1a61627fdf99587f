// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package runner drives an engine from a single goroutine: lifecycle events,
// the per-tick update and timer sweep, and work submitted by other goroutines.
package runner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/hookbridge/internal/binding"
	"github.com/holomush/hookbridge/internal/core"
	"github.com/holomush/hookbridge/internal/hooks"
	"github.com/holomush/hookbridge/pkg/errutil"
)

// DefaultInterval is the tick period when none is configured.
const DefaultInterval = 100 * time.Millisecond

const defaultQueueSize = 64

// Error codes.
const (
	CodeClosed  = core.CodeClosed
	CodeRunning = "ALREADY_RUNNING"
)

// Task runs on the runner's goroutine with exclusive use of the engine.
type Task func(ctx context.Context, e *core.Engine)

// Runner owns an engine. Everything that touches the engine after Run starts
// goes through Submit.
type Runner struct {
	engine   *core.Engine
	interval time.Duration
	clock    func() time.Time
	logger   *slog.Logger
	onStop   []func(context.Context) error

	tasks chan Task
	quit  chan struct{}
	once  sync.Once

	mu      sync.RWMutex
	running bool
	stopped bool

	wg     sync.WaitGroup
	cancel context.CancelFunc
	err    error
}

// Option configures a Runner.
type Option func(*Runner)

// WithInterval sets the tick period.
func WithInterval(d time.Duration) Option {
	return func(r *Runner) {
		r.interval = d
	}
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(r *Runner) {
		r.clock = clock
	}
}

// WithLogger sets the runner's logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithQueueSize bounds how many submitted tasks may wait.
func WithQueueSize(n int) Option {
	return func(r *Runner) {
		r.tasks = make(chan Task, n)
	}
}

// WithOnStop adds a hook run after the shutdown events and before the engine
// closes. Hooks run in the order added.
func WithOnStop(fn func(context.Context) error) Option {
	return func(r *Runner) {
		r.onStop = append(r.onStop, fn)
	}
}

// New creates a runner for engine.
func New(engine *core.Engine, opts ...Option) *Runner {
	r := &Runner{
		engine:   engine,
		interval: DefaultInterval,
		clock:    time.Now,
		quit:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.tasks == nil {
		r.tasks = make(chan Task, defaultQueueSize)
	}
	if r.logger == nil {
		r.logger = engine.Logger()
	}
	return r
}

// Engine returns the owned engine. Only use it from a Task or before Run.
func (r *Runner) Engine() *core.Engine { return r.engine }

// Run fires the startup events and ticks until ctx is done, then fires the
// shutdown events, runs the stop hooks and closes the engine.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.running || r.stopped {
		r.mu.Unlock()
		return oops.In("runner").Code(CodeRunning).New("runner already started")
	}
	r.running = true
	r.mu.Unlock()

	r.fireServer(ctx, hooks.ServerOnLuaStateOpen)
	r.fireServer(ctx, hooks.ServerOnStartup)
	r.logger.Info("runner started", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	last := r.clock()

	for {
		select {
		case <-ctx.Done():
			return r.shutdown(context.WithoutCancel(ctx))
		case task := <-r.tasks:
			r.runTask(ctx, task)
		case <-ticker.C:
			now := r.clock()
			r.Step(ctx, now, now.Sub(last))
			last = now
		}
	}
}

// Step performs one tick: queued tasks, the server update event and the timer
// sweep. Run calls it on every tick; tests drive it directly.
func (r *Runner) Step(ctx context.Context, now time.Time, diff time.Duration) int {
	r.drain(ctx)
	ms := diff.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	r.fireServer(ctx, hooks.ServerOnUpdate, uint32(ms))
	return r.engine.Tick(ctx, now)
}

// Start runs the runner on a new goroutine bound to ctx.
func (r *Runner) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.err = r.Run(ctx)
	}()
}

// Stop cancels a runner begun with Start and waits for it to finish.
func (r *Runner) Stop() error {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	return r.err
}

// Submit queues task for the runner's goroutine. It fails with CLOSED once
// the runner is shutting down.
func (r *Runner) Submit(task Task) error {
	if task == nil {
		return oops.In("runner").Code("INVALID_ARGUMENT").New("task cannot be nil")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.stopped {
		return r.closedErr()
	}
	select {
	case r.tasks <- task:
		return nil
	case <-r.quit:
		return r.closedErr()
	}
}

// Do submits task and waits for it to run. It returns ctx's error if ctx ends
// first; the task may still run later.
func (r *Runner) Do(ctx context.Context, task Task) error {
	done := make(chan struct{})
	err := r.Submit(func(ctx context.Context, e *core.Engine) {
		defer close(done)
		task(ctx, e)
	})
	if err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) closedErr() error {
	return oops.In("runner").Code(CodeClosed).New("runner is stopped")
}

func (r *Runner) drain(ctx context.Context) {
	for {
		select {
		case task := <-r.tasks:
			r.runTask(ctx, task)
		default:
			return
		}
	}
}

func (r *Runner) runTask(ctx context.Context, task Task) {
	defer func() {
		if rec := recover(); rec != nil {
			errutil.LogError(r.logger, "runner task panicked",
				oops.In("runner").With("panic", rec).Errorf("task panicked: %v", rec))
		}
	}()
	task(ctx, r.engine)
}

func (r *Runner) fireServer(ctx context.Context, kind binding.Kind, args ...any) {
	res := r.engine.FireGlobal(ctx, hooks.Server.Name(), kind, args...)
	if res.Faults > 0 {
		r.logger.Debug("server event had faults",
			"kind", hooks.Server.KindName(kind),
			"faults", res.Faults)
	}
}

func (r *Runner) shutdown(ctx context.Context) error {
	r.once.Do(func() { close(r.quit) })
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()

	r.drain(ctx)
	r.fireServer(ctx, hooks.ServerOnShutdown)
	r.fireServer(ctx, hooks.ServerOnLuaStateClose)

	var firstErr error
	for _, fn := range r.onStop {
		if err := fn(ctx); err != nil {
			errutil.LogError(r.logger, "runner stop hook failed", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	r.engine.Close()
	r.logger.Info("runner stopped")
	return firstErr
}
