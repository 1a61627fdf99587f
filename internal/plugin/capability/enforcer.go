// Package capability decides which script may call which bridge function.
//
// Patterns use gobwas/glob with '.' as the segment separator:
//   - '*' matches a single segment (does not cross '.')
//   - '**' matches zero or more segments (crosses '.')
//
// Examples:
//   - "events.register.*" matches "events.register.player" but NOT "events.register"
//   - "timers.**" matches "timers.create" and "timers.remove"
//   - "**" matches any capability
package capability

import (
	"slices"
	"sync"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// Error codes returned by the enforcer.
const (
	CodeInvalidGrant = "INVALID_GRANT"
	CodeDenied       = "CAPABILITY_DENIED"
)

type compiledGrant struct {
	pattern string
	glob    glob.Glob
}

// Enforcer checks script capabilities at call time.
//
// Enforcer is safe for concurrent use. The zero value is ready to use.
// Grants are installed by the loader goroutine and checked from the
// dispatch goroutine.
type Enforcer struct {
	grants map[string][]compiledGrant
	mu     sync.RWMutex
}

// NewEnforcer creates a capability enforcer.
func NewEnforcer() *Enforcer {
	return &Enforcer{
		grants: make(map[string][]compiledGrant),
	}
}

// SetGrants replaces the capabilities of script. Either every pattern
// compiles and the grants are replaced, or nothing changes.
func (e *Enforcer) SetGrants(script string, capabilities []string) error {
	if script == "" {
		return oops.Code(CodeInvalidGrant).Errorf("script name cannot be empty")
	}

	compiled := make([]compiledGrant, len(capabilities))
	for i, pattern := range capabilities {
		if pattern == "" {
			return oops.Code(CodeInvalidGrant).
				With("script", script).
				With("index", i).
				Errorf("capability %d: empty capability pattern", i)
		}
		g, err := glob.Compile(pattern, '.')
		if err != nil {
			return oops.Code(CodeInvalidGrant).
				With("script", script).
				With("pattern", pattern).
				Wrapf(err, "capability %d (%q)", i, pattern)
		}
		compiled[i] = compiledGrant{pattern: pattern, glob: g}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.grants == nil {
		e.grants = make(map[string][]compiledGrant)
	}
	e.grants[script] = compiled
	return nil
}

// IsRegistered reports whether script has grants installed.
func (e *Enforcer) IsRegistered(script string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	_, ok := e.grants[script]
	return ok
}

// RemoveGrants forgets script. Unknown scripts are ignored.
func (e *Enforcer) RemoveGrants(script string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.grants, script)
}

// GetGrants returns a copy of the patterns granted to script, or nil.
func (e *Enforcer) GetGrants(script string) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	grants, ok := e.grants[script]
	if !ok {
		return nil
	}
	patterns := make([]string, len(grants))
	for i, g := range grants {
		patterns[i] = g.pattern
	}
	return patterns
}

// ListScripts returns every script with grants, sorted.
func (e *Enforcer) ListScripts() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	scripts := make([]string, 0, len(e.grants))
	for name := range e.grants {
		scripts = append(scripts, name)
	}
	slices.Sort(scripts)
	return scripts
}

// Check reports whether script holds capability. Unknown scripts and empty
// capabilities are denied.
func (e *Enforcer) Check(script, capability string) bool {
	if capability == "" {
		return false
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, grant := range e.grants[script] {
		if grant.glob.Match(capability) {
			return true
		}
	}
	return false
}

// Require is Check returning a CAPABILITY_DENIED error on refusal.
func (e *Enforcer) Require(script, capability string) error {
	if e.Check(script, capability) {
		return nil
	}
	return oops.Code(CodeDenied).
		With("script", script).
		With("capability", capability).
		Errorf("capability denied: %s requires %s", script, capability)
}
