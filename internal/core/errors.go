// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package core

import (
	"github.com/samber/oops"

	"github.com/holomush/hookbridge/internal/binding"
	"github.com/holomush/hookbridge/internal/timed"
)

// Error codes for engine operations.
const (
	CodeUnknownFamily = "UNKNOWN_FAMILY"
	CodeClosed        = timed.CodeClosed
)

// ErrUnknownFamily creates an error for a family name the engine does not host.
func ErrUnknownFamily(name string) error {
	return oops.Code(CodeUnknownFamily).
		With("family", name).
		Errorf("unknown event family %q", name)
}

// ErrUnsupportedShape creates an error for a key shape the family does not accept.
func ErrUnsupportedShape(family string, shape binding.Shape) error {
	return oops.Code(binding.CodeInvalidKey).
		With("family", family).
		With("shape", shape.String()).
		Errorf("family %s does not support %s keys", family, shape)
}

// ErrClosed creates an error for an operation on a torn-down engine.
func ErrClosed(engineID string) error {
	return oops.Code(CodeClosed).
		With("engine_id", engineID).
		Errorf("engine %s is closed", engineID)
}
