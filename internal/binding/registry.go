// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package binding

import (
	"slices"

	"github.com/holomush/hookbridge/internal/callback"
)

// Registry maps keys of one shape to ordered handle sequences.
//
// Registry holds no lock. It belongs to a single dispatch goroutine and must
// only be touched from there; work from other goroutines is marshalled onto
// that goroutine by the caller.
type Registry struct {
	name     string
	shape    Shape
	kinds    []Kind
	valid    map[Kind]struct{}
	bindings map[Key][]*callback.Handle
	nextID   uint64
}

// NewRegistry creates a registry for keys of shape whose kinds are drawn from
// the given enumeration.
func NewRegistry(name string, shape Shape, kinds []Kind) *Registry {
	valid := make(map[Kind]struct{}, len(kinds))
	for _, k := range kinds {
		valid[k] = struct{}{}
	}
	return &Registry{
		name:     name,
		shape:    shape,
		kinds:    slices.Clone(kinds),
		valid:    valid,
		bindings: make(map[Key][]*callback.Handle),
	}
}

// Name returns the registry name used in logs and errors.
func (r *Registry) Name() string { return r.name }

// Shape returns the key shape this registry holds.
func (r *Registry) Shape() Shape { return r.shape }

// Kinds returns a copy of the kind enumeration.
func (r *Registry) Kinds() []Kind { return slices.Clone(r.kinds) }

// HasKind reports whether kind belongs to the enumeration.
func (r *Registry) HasKind(kind Kind) bool {
	_, ok := r.valid[kind]
	return ok
}

// Register appends a new handle for key. A shots value of zero means
// unlimited. On error nothing is added.
func (r *Registry) Register(key Key, fn callback.Invocable, shots uint32) (*Subscription, error) {
	if key.Shape() != r.shape {
		return nil, ErrShapeMismatch(r.name, r.shape, key)
	}
	if key.Shape() == ShapeUnique && key.Identity() == 0 {
		return nil, ErrMissingIdentity(r.name, key)
	}
	if !r.HasKind(key.Kind()) {
		return nil, ErrUnknownKind(r.name, key.Kind())
	}
	h, err := callback.NewHandle(r.nextID+1, fn, shots)
	if err != nil {
		return nil, err
	}
	r.nextID++

	// Copy on write so outstanding lookups keep their own view.
	existing := r.bindings[key]
	seq := make([]*callback.Handle, len(existing), len(existing)+1)
	copy(seq, existing)
	r.bindings[key] = append(seq, h)

	return &Subscription{registry: r, key: key, handle: h}, nil
}

// Lookup returns the live handles for exactly key, in registration order.
// The returned slice is a snapshot and is safe to iterate while the registry
// is mutated.
func (r *Registry) Lookup(key Key) []*callback.Handle {
	seq := r.bindings[key]
	if len(seq) == 0 {
		return nil
	}
	live := make([]*callback.Handle, 0, len(seq))
	for _, h := range seq {
		if h.Active() {
			live = append(live, h)
		}
	}
	return live
}

// Remove drops h from key's sequence. It reports whether h was present.
func (r *Registry) Remove(key Key, h *callback.Handle) bool {
	seq := r.bindings[key]
	i := slices.Index(seq, h)
	if i < 0 {
		return false
	}
	if len(seq) == 1 {
		delete(r.bindings, key)
		return true
	}
	next := make([]*callback.Handle, 0, len(seq)-1)
	next = append(next, seq[:i]...)
	next = append(next, seq[i+1:]...)
	r.bindings[key] = next
	return true
}

// ClearAll aborts and drops every handle in the registry.
func (r *Registry) ClearAll() int {
	n := 0
	for key := range r.bindings {
		n += r.ClearKey(key)
	}
	return n
}

// ClearKey aborts and drops every handle for exactly key. Clearing an absent
// key is a no-op.
func (r *Registry) ClearKey(key Key) int {
	seq, ok := r.bindings[key]
	if !ok {
		return 0
	}
	for _, h := range seq {
		h.Abort()
	}
	delete(r.bindings, key)
	return len(seq)
}

// ClearKind drops every key of kind regardless of its entry or identity.
func (r *Registry) ClearKind(kind Kind) int {
	n := 0
	for key := range r.bindings {
		if key.Kind() == kind {
			n += r.ClearKey(key)
		}
	}
	return n
}

// ClearEntry drops the entry keys for entry across every kind in the
// enumeration.
func (r *Registry) ClearEntry(entry uint32) int {
	if r.shape != ShapeEntry {
		return 0
	}
	return r.clearAllKinds(EntryKey(0, entry))
}

// ClearUnique drops the unique keys for identity and scope across every kind
// in the enumeration.
func (r *Registry) ClearUnique(identity uint64, scope uint32) int {
	if r.shape != ShapeUnique {
		return 0
	}
	return r.clearAllKinds(UniqueKey(0, identity, scope))
}

func (r *Registry) clearAllKinds(template Key) int {
	n := 0
	for _, kind := range r.kinds {
		n += r.ClearKey(template.withKind(kind))
	}
	return n
}

// Len returns the number of handles held.
func (r *Registry) Len() int {
	n := 0
	for _, seq := range r.bindings {
		n += len(seq)
	}
	return n
}

// Keys returns every key with at least one handle, in key order.
func (r *Registry) Keys() []Key {
	keys := make([]Key, 0, len(r.bindings))
	for key := range r.bindings {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, Compare)
	return keys
}

// Subscription is the weak control handle returned by Register. It can cancel
// its own registration but does not own it.
type Subscription struct {
	registry *Registry
	key      Key
	handle   *callback.Handle
}

// Key returns the key the subscription was registered under.
func (s *Subscription) Key() Key { return s.key }

// ID returns the registration id.
func (s *Subscription) ID() uint64 { return s.handle.ID() }

// Active reports whether the registration can still be invoked.
func (s *Subscription) Active() bool { return s.handle.Active() }

// Cancel aborts the registration and prunes it. Cancelling twice, or after the
// handle exhausted or was cleared, is a no-op.
func (s *Subscription) Cancel() {
	s.handle.Abort()
	s.registry.Remove(s.key, s.handle)
}
