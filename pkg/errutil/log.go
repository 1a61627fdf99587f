// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package errutil holds helpers for logging and asserting oops errors.
package errutil

import (
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs err at error level. Oops errors contribute their domain,
// code, hint and context as separate attributes; attrs are appended as-is.
func LogError(logger *slog.Logger, msg string, err error, attrs ...any) {
	fields := []any{"error", err.Error()}
	if oopsErr, ok := oops.AsOops(err); ok {
		if domain := oopsErr.Domain(); domain != "" {
			fields = append(fields, "domain", domain)
		}
		if code := Code(err); code != "" {
			fields = append(fields, "code", code)
		}
		if hint := oopsErr.Hint(); hint != "" {
			fields = append(fields, "hint", hint)
		}
		if ctx := oopsErr.Context(); len(ctx) > 0 {
			fields = append(fields, "context", ctx)
		}
	}
	logger.Error(msg, append(fields, attrs...)...)
}

// Code returns the code carried by err, or "" when it has none.
func Code(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := oopsErr.Code().(string)
	return code
}
