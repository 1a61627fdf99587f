// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package binding stores event subscriptions indexed by binding keys.
package binding

import (
	"cmp"
	"fmt"
)

// Kind is a numeric event kind within one event family.
type Kind uint32

// Shape identifies which variant a Key is.
type Shape uint8

// Key shapes.
const (
	ShapeGlobal Shape = iota + 1
	ShapeEntry
	ShapeUnique
)

func (s Shape) String() string {
	switch s {
	case ShapeGlobal:
		return "global"
	case ShapeEntry:
		return "entry"
	case ShapeUnique:
		return "unique"
	default:
		return "unknown"
	}
}

// Key identifies one subscription slot. Keys are comparable and can be used
// directly as map keys; fields not used by a shape are always zero, so two
// keys of different shapes never compare equal.
type Key struct {
	shape    Shape
	kind     Kind
	entry    uint32
	identity uint64
	scope    uint32
}

// GlobalKey matches every subscription for kind that is not scoped to an
// entry or an identity.
func GlobalKey(kind Kind) Key {
	return Key{shape: ShapeGlobal, kind: kind}
}

// EntryKey matches subscriptions for kind scoped to a template entry id.
func EntryKey(kind Kind, entry uint32) Key {
	return Key{shape: ShapeEntry, kind: kind, entry: entry}
}

// UniqueKey matches subscriptions for kind scoped to one runtime instance.
// scope disambiguates identities that are only unique within a scope.
func UniqueKey(kind Kind, identity uint64, scope uint32) Key {
	return Key{shape: ShapeUnique, kind: kind, identity: identity, scope: scope}
}

// Shape returns the key variant.
func (k Key) Shape() Shape { return k.shape }

// Kind returns the event kind.
func (k Key) Kind() Kind { return k.kind }

// Entry returns the entry id of an entry key.
func (k Key) Entry() uint32 { return k.entry }

// Identity returns the instance identity of a unique key.
func (k Key) Identity() uint64 { return k.identity }

// Scope returns the scope id of a unique key.
func (k Key) Scope() uint32 { return k.scope }

// IsZero reports whether k was never constructed.
func (k Key) IsZero() bool { return k.shape == 0 }

func (k Key) String() string {
	switch k.shape {
	case ShapeGlobal:
		return fmt.Sprintf("global(%d)", k.kind)
	case ShapeEntry:
		return fmt.Sprintf("entry(%d, %d)", k.kind, k.entry)
	case ShapeUnique:
		return fmt.Sprintf("unique(%d, %#x, %d)", k.kind, k.identity, k.scope)
	default:
		return "invalid"
	}
}

// withKind returns a copy of k with a different kind.
func (k Key) withKind(kind Kind) Key {
	k.kind = kind
	return k
}

// Compare orders keys by shape, then kind, entry, identity and scope.
func Compare(a, b Key) int {
	if c := cmp.Compare(a.shape, b.shape); c != 0 {
		return c
	}
	if c := cmp.Compare(a.kind, b.kind); c != 0 {
		return c
	}
	if c := cmp.Compare(a.entry, b.entry); c != 0 {
		return c
	}
	if c := cmp.Compare(a.identity, b.identity); c != 0 {
		return c
	}
	return cmp.Compare(a.scope, b.scope)
}
