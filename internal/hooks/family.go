// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package hooks describes the event families a host can fire and the kinds
// each family enumerates.
package hooks

import (
	"slices"
	"strings"

	"github.com/holomush/hookbridge/internal/binding"
)

// Convention says which boolean return value of a callback asks the firing
// collaborator to suppress its default handling.
type Convention uint8

// Suppression conventions.
const (
	// SuppressNever ignores return values.
	SuppressNever Convention = iota
	// SuppressOnFalse treats an explicit false as a veto.
	SuppressOnFalse
	// SuppressOnTrue treats an explicit true as "handled, stop normal action".
	SuppressOnTrue
)

func (c Convention) String() string {
	switch c {
	case SuppressNever:
		return "never"
	case SuppressOnFalse:
		return "on_false"
	case SuppressOnTrue:
		return "on_true"
	default:
		return "unknown"
	}
}

// Suppresses reports whether a boolean first return value requests
// suppression under c.
func (c Convention) Suppresses(v bool) bool {
	switch c {
	case SuppressOnFalse:
		return !v
	case SuppressOnTrue:
		return v
	default:
		return false
	}
}

// KindInfo names one event kind.
type KindInfo struct {
	Kind binding.Kind
	Name string
}

// Family is one group of related events sharing a kind enumeration.
type Family struct {
	name       string
	shapes     []binding.Shape
	kinds      []KindInfo
	convention Convention
	byName     map[string]binding.Kind
	byKind     map[binding.Kind]string
}

func newFamily(name string, convention Convention, shapes []binding.Shape, kinds []KindInfo) *Family {
	f := &Family{
		name:       name,
		shapes:     shapes,
		kinds:      kinds,
		convention: convention,
		byName:     make(map[string]binding.Kind, len(kinds)),
		byKind:     make(map[binding.Kind]string, len(kinds)),
	}
	for _, k := range kinds {
		f.byName[k.Name] = k.Kind
		f.byKind[k.Kind] = k.Name
	}
	return f
}

// Name returns the family name used by scripts and metrics.
func (f *Family) Name() string { return f.name }

// Convention returns the family's suppression convention.
func (f *Family) Convention() Convention { return f.convention }

// Shapes returns the key shapes the family supports.
func (f *Family) Shapes() []binding.Shape { return slices.Clone(f.shapes) }

// Supports reports whether the family accepts keys of shape.
func (f *Family) Supports(shape binding.Shape) bool {
	return slices.Contains(f.shapes, shape)
}

// Kinds returns the kind enumeration in ascending order.
func (f *Family) Kinds() []KindInfo { return slices.Clone(f.kinds) }

// KindValues returns just the numeric kinds.
func (f *Family) KindValues() []binding.Kind {
	out := make([]binding.Kind, len(f.kinds))
	for i, k := range f.kinds {
		out[i] = k.Kind
	}
	return out
}

// HasKind reports whether kind belongs to the family.
func (f *Family) HasKind(kind binding.Kind) bool {
	_, ok := f.byKind[kind]
	return ok
}

// KindName returns the name of kind, or "" if it is not in the family.
func (f *Family) KindName(kind binding.Kind) string {
	return f.byKind[kind]
}

// KindByName looks a kind up by its name. Matching is case-insensitive.
func (f *Family) KindByName(name string) (binding.Kind, bool) {
	k, ok := f.byName[strings.ToUpper(name)]
	return k, ok
}

func (f *Family) String() string { return f.name }
