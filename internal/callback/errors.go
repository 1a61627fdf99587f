// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package callback

import (
	"context"
	"fmt"

	"github.com/samber/oops"
)

// Error codes for callback failures.
const (
	CodeNilCallback    = "NIL_CALLBACK"
	CodeCallbackFailed = "CALLBACK_FAILED"
)

// ErrNilCallback creates an error for a registration without invocable code.
func ErrNilCallback() error {
	return oops.Code(CodeNilCallback).
		Errorf("callback is not invocable")
}

// ErrPanicked converts a recovered panic into an error.
func ErrPanicked(recovered any) error {
	if err, ok := recovered.(error); ok {
		return oops.Code(CodeCallbackFailed).
			With("panic", true).
			Wrap(err)
	}
	return oops.Code(CodeCallbackFailed).
		With("panic", true).
		Errorf("callback panicked: %s", fmt.Sprint(recovered))
}

// SafeInvoke calls h and turns a panic inside the callback into an error.
func SafeInvoke(ctx context.Context, h *Handle, args ...any) (out Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{}
			err = ErrPanicked(r)
		}
	}()
	return h.Invoke(ctx, args...)
}
