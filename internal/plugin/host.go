// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package plugin

import (
	"context"
)

// Host runs loaded scripts against an engine.
type Host interface {
	// Load compiles a script from its manifest and runs its entry chunk.
	Load(ctx context.Context, manifest *Manifest, dir string) error

	// Unload tears down a script and everything it registered.
	Unload(ctx context.Context, name string) error

	// Scripts returns names of all loaded scripts.
	Scripts() []string

	// Close shuts down the host and all scripts.
	Close(ctx context.Context) error
}
