// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package timed

import (
	"github.com/samber/oops"
)

// Error codes for scheduling failures.
const (
	CodeInvalidDelay = "INVALID_DELAY"
	CodeClosed       = "CLOSED"
)

// ErrInvalidDelay creates an error for a rejected delay range.
func ErrInvalidDelay(d Delay, reason string) error {
	return oops.Code(CodeInvalidDelay).
		With("min_delay", d.Min.String()).
		With("max_delay", d.Max.String()).
		Errorf("invalid delay %s: %s", d, reason)
}

// ErrClosed creates an error for scheduling on a closed processor.
func ErrClosed(processor string) error {
	return oops.Code(CodeClosed).
		With("processor", processor).
		Errorf("processor %s is closed", processor)
}
