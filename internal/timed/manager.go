// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package timed

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	mathrand "math/rand/v2"
	"slices"
	"time"
)

// Manager owns the global processor plus one processor per game object.
// Every processor it creates shares the same id source and generator, so ids
// are unique across the whole manager.
type Manager struct {
	global  *Processor
	objects map[uint64]*Processor
	ids     *IDSource
	rng     *mathrand.Rand
	clock   func() time.Time
	logger  *slog.Logger
	closed  bool
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerClock sets the time source for every processor.
func WithManagerClock(clock func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.clock = clock
	}
}

// WithManagerSeed seeds the shared generator.
func WithManagerSeed(seed uint64) ManagerOption {
	return func(m *Manager) {
		m.rng = NewRand(seed)
	}
}

// WithManagerLogger sets the logger for every processor.
func WithManagerLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = l
	}
}

// NewManager creates a manager with an empty global processor.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		objects: make(map[uint64]*Processor),
		ids:     &IDSource{},
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.rng == nil {
		seed, err := NewSeed()
		if err != nil {
			seed = uint64(time.Now().UnixNano())
		}
		m.rng = NewRand(seed)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.global = NewProcessor("global", m.processorOptions("global")...)
	return m
}

func (m *Manager) processorOptions(scope string, extra ...any) []Option {
	opts := []Option{
		WithClock(m.clock),
		WithRand(m.rng),
		WithIDSource(m.ids),
		WithLogger(m.logger),
		WithScope(scope),
	}
	if len(extra) > 0 {
		opts = append(opts, WithTrailingArgs(extra...))
	}
	return opts
}

// Global returns the processor for timers not bound to an object.
func (m *Manager) Global() *Processor { return m.global }

// ForObject returns the processor for identity, creating it on first use.
// Its callbacks receive identity after the standard arguments.
func (m *Manager) ForObject(identity uint64) *Processor {
	if p, ok := m.objects[identity]; ok {
		return p
	}
	p := NewProcessor(fmt.Sprintf("object-%#x", identity), m.processorOptions("object", identity)...)
	if m.closed {
		p.Close()
	}
	m.objects[identity] = p
	return p
}

// Object returns the processor for identity if one exists.
func (m *Manager) Object(identity uint64) (*Processor, bool) {
	p, ok := m.objects[identity]
	return p, ok
}

// ReleaseObject aborts and forgets identity's processor. It returns the number
// of entries that were pending.
func (m *Manager) ReleaseObject(identity uint64) int {
	p, ok := m.objects[identity]
	if !ok {
		return 0
	}
	n := p.AbortAll()
	p.Close()
	delete(m.objects, identity)
	return n
}

// Objects returns the identities that currently have a processor, sorted.
func (m *Manager) Objects() []uint64 {
	out := make([]uint64, 0, len(m.objects))
	for id := range m.objects {
		out = append(out, id)
	}
	slices.SortFunc(out, cmp.Compare[uint64])
	return out
}

// Sweep runs the global processor and then every object processor in
// identity order. It returns the total number of fires.
func (m *Manager) Sweep(ctx context.Context, now time.Time) int {
	fired := m.global.Sweep(ctx, now)
	for _, identity := range m.Objects() {
		// A callback may release an object mid-sweep.
		p, ok := m.objects[identity]
		if !ok {
			continue
		}
		fired += p.Sweep(ctx, now)
	}
	RecordPending(m.Len())
	return fired
}

// Abort removes id from whichever processor holds it.
func (m *Manager) Abort(id ID) bool {
	if m.global.Abort(id) {
		return true
	}
	for _, p := range m.objects {
		if p.Abort(id) {
			return true
		}
	}
	return false
}

// AbortAll aborts every entry in every processor and returns how many were
// pending.
func (m *Manager) AbortAll() int {
	n := m.global.AbortAll()
	for _, p := range m.objects {
		n += p.AbortAll()
	}
	return n
}

// Len returns the number of pending entries across all processors.
func (m *Manager) Len() int {
	n := m.global.Len()
	for _, p := range m.objects {
		n += p.Len()
	}
	return n
}

// Close aborts everything and rejects further scheduling.
func (m *Manager) Close() {
	m.closed = true
	m.global.Close()
	for identity, p := range m.objects {
		p.Close()
		delete(m.objects, identity)
	}
	RecordPending(0)
}
