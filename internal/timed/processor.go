// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package timed schedules callbacks to run after a delay, optionally
// repeating, and fires them from a per-tick sweep.
package timed

import (
	"cmp"
	"context"
	"log/slog"
	mathrand "math/rand/v2"
	"slices"
	"sync/atomic"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/hookbridge/internal/callback"
	"github.com/holomush/hookbridge/pkg/errutil"
)

// Forever is the repeat count of an entry that fires until aborted.
const Forever uint32 = 0

// ID identifies a scheduled entry.
type ID uint64

// IDSource hands out schedule ids. Processors sharing one source never reuse
// each other's ids.
type IDSource struct {
	last atomic.Uint64
}

// Next returns a fresh id.
func (s *IDSource) Next() ID {
	return ID(s.last.Add(1))
}

type entry struct {
	id         ID
	handle     *callback.Handle
	delay      Delay
	repeats    uint32
	nextFireAt time.Time
	delayUsed  time.Duration
}

// Processor holds scheduled entries for one dispatch scope.
//
// Processor holds no lock. Like binding.Registry it is owned by one dispatch
// goroutine.
type Processor struct {
	name    string
	scope   string
	clock   func() time.Time
	rng     *mathrand.Rand
	ids     *IDSource
	logger  *slog.Logger
	extra   []any
	entries map[ID]*entry
	closed  bool
}

// Option configures a Processor.
type Option func(*Processor)

// WithClock sets the time source used when scheduling.
func WithClock(clock func() time.Time) Option {
	return func(p *Processor) {
		p.clock = clock
	}
}

// WithRand sets the generator used to pick delays within a range.
func WithRand(rng *mathrand.Rand) Option {
	return func(p *Processor) {
		p.rng = rng
	}
}

// WithSeed seeds a private generator, making delay picks reproducible.
func WithSeed(seed uint64) Option {
	return func(p *Processor) {
		p.rng = NewRand(seed)
	}
}

// WithIDSource shares an id source with other processors.
func WithIDSource(ids *IDSource) Option {
	return func(p *Processor) {
		p.ids = ids
	}
}

// WithLogger sets the logger used for callback faults.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = l
	}
}

// WithScope sets the metrics scope label. Defaults to "global".
func WithScope(scope string) Option {
	return func(p *Processor) {
		p.scope = scope
	}
}

// WithTrailingArgs appends args to every callback invocation after the
// standard (id, delay, repeats) triple.
func WithTrailingArgs(args ...any) Option {
	return func(p *Processor) {
		p.extra = args
	}
}

// NewProcessor creates an empty processor.
func NewProcessor(name string, opts ...Option) *Processor {
	p := &Processor{
		name:    name,
		scope:   "global",
		clock:   time.Now,
		entries: make(map[ID]*entry),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.ids == nil {
		p.ids = &IDSource{}
	}
	if p.rng == nil {
		seed, err := NewSeed()
		if err != nil {
			seed = uint64(time.Now().UnixNano())
		}
		p.rng = NewRand(seed)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string { return p.name }

// Schedule adds fn to fire after a delay drawn from delay, repeats times.
// A repeats value of Forever fires until aborted. On error nothing is
// scheduled.
func (p *Processor) Schedule(fn callback.Invocable, delay Delay, repeats uint32) (ID, error) {
	if p.closed {
		return 0, ErrClosed(p.name)
	}
	if err := delay.Validate(); err != nil {
		return 0, err
	}
	id := p.ids.Next()
	h, err := callback.NewHandle(uint64(id), fn, callback.Unlimited)
	if err != nil {
		return 0, err
	}

	e := &entry{
		id:      id,
		handle:  h,
		delay:   delay,
		repeats: repeats,
	}
	p.arm(e, p.clock())
	p.entries[id] = e
	return id, nil
}

// ScheduleRange is Schedule with an explicit [minDelay, maxDelay] range.
func (p *Processor) ScheduleRange(fn callback.Invocable, minDelay, maxDelay time.Duration, repeats uint32) (ID, error) {
	return p.Schedule(fn, Range(minDelay, maxDelay), repeats)
}

// ScheduleAfter is Schedule with a single fixed delay.
func (p *Processor) ScheduleAfter(fn callback.Invocable, d time.Duration, repeats uint32) (ID, error) {
	return p.Schedule(fn, Fixed(d), repeats)
}

func (p *Processor) arm(e *entry, now time.Time) {
	e.delayUsed = e.delay.pick(p.rng)
	e.nextFireAt = now.Add(e.delayUsed)
}

// Sweep fires every active entry whose fire time is at or before now, in
// (fire time, id) order, and returns how many fired. Entries scheduled by a
// callback during the sweep wait for a later sweep.
func (p *Processor) Sweep(ctx context.Context, now time.Time) int {
	var due []*entry
	for _, e := range p.entries {
		if !e.handle.Active() {
			delete(p.entries, e.id)
			continue
		}
		if !e.nextFireAt.After(now) {
			due = append(due, e)
		}
	}
	if len(due) == 0 {
		return 0
	}
	slices.SortFunc(due, func(a, b *entry) int {
		if c := a.nextFireAt.Compare(b.nextFireAt); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})

	fired := 0
	for _, e := range due {
		// An earlier callback in this sweep may have aborted it.
		if !e.handle.Active() {
			delete(p.entries, e.id)
			continue
		}

		args := make([]any, 0, 3+len(p.extra))
		args = append(args, e.id, e.delayUsed, e.repeats)
		args = append(args, p.extra...)

		fired++
		if _, err := callback.SafeInvoke(ctx, e.handle, args...); err != nil {
			RecordFire(p.scope, StatusFault)
			err = oops.In("timed").
				With("processor", p.name).
				With("event_id", uint64(e.id)).
				With("repeats", e.repeats).
				Wrap(err)
			errutil.LogError(p.log(), "timed event callback failed", err)
		} else {
			RecordFire(p.scope, StatusOK)
		}

		if !e.handle.Active() {
			delete(p.entries, e.id)
			continue
		}
		if e.repeats != Forever {
			e.repeats--
			if e.repeats == 0 {
				e.handle.Abort()
				delete(p.entries, e.id)
				continue
			}
		}
		p.arm(e, now)
	}
	return fired
}

// Abort stops the entry with id. It reports whether the entry existed.
// Aborting an unknown or finished entry is a no-op.
func (p *Processor) Abort(id ID) bool {
	e, ok := p.entries[id]
	if !ok {
		return false
	}
	e.handle.Abort()
	delete(p.entries, id)
	return true
}

// AbortAll stops every entry and returns how many were pending.
func (p *Processor) AbortAll() int {
	n := len(p.entries)
	for id, e := range p.entries {
		e.handle.Abort()
		delete(p.entries, id)
	}
	return n
}

// Close aborts every entry and rejects further scheduling.
func (p *Processor) Close() {
	p.AbortAll()
	p.closed = true
}

// Len returns the number of pending entries.
func (p *Processor) Len() int { return len(p.entries) }

// Has reports whether id is pending.
func (p *Processor) Has(id ID) bool {
	_, ok := p.entries[id]
	return ok
}

// NextFireAt returns when id is next due.
func (p *Processor) NextFireAt(id ID) (time.Time, bool) {
	e, ok := p.entries[id]
	if !ok {
		return time.Time{}, false
	}
	return e.nextFireAt, true
}

// Repeats returns the remaining repeat count of id.
func (p *Processor) Repeats(id ID) (uint32, bool) {
	e, ok := p.entries[id]
	if !ok {
		return 0, false
	}
	return e.repeats, true
}

func (p *Processor) log() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}
	return slog.Default()
}
