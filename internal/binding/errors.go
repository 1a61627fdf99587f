// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package binding

import (
	"github.com/samber/oops"
)

// Error codes for registration failures.
const (
	CodeInvalidKey  = "INVALID_KEY"
	CodeUnknownKind = "UNKNOWN_KIND"
)

// ErrShapeMismatch creates an error for a key whose shape the registry does not hold.
func ErrShapeMismatch(registry string, want Shape, key Key) error {
	return oops.Code(CodeInvalidKey).
		With("registry", registry).
		With("want_shape", want.String()).
		With("key", key.String()).
		Errorf("registry %s holds %s keys, got %s", registry, want, key)
}

// ErrMissingIdentity creates an error for a unique key without an identity.
func ErrMissingIdentity(registry string, key Key) error {
	return oops.Code(CodeInvalidKey).
		With("registry", registry).
		With("key", key.String()).
		Errorf("unique key requires a non-zero identity")
}

// ErrUnknownKind creates an error for a kind outside the registry's enumeration.
func ErrUnknownKind(registry string, kind Kind) error {
	return oops.Code(CodeUnknownKind).
		With("registry", registry).
		With("kind", uint32(kind)).
		Errorf("unknown event kind %d for %s", kind, registry)
}
