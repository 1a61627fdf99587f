// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package plugin

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"

	"github.com/samber/oops"

	"github.com/holomush/hookbridge/internal/plugin/capability"
	"github.com/holomush/hookbridge/pkg/errutil"
)

// APIVersion is the bridge API version scripts declare compatibility with.
const APIVersion = "1.0.0"

// Manager discovers and manages script lifecycle.
type Manager struct {
	scriptsDir string
	host       Host
	enforcer   *capability.Enforcer
	apiVersion string
	grants     map[string][]string
	logger     *slog.Logger
	loaded     map[string]*DiscoveredScript
	mu         sync.RWMutex
}

// ManagerOption configures the Manager.
type ManagerOption func(*Manager)

// WithHost sets the host scripts are loaded into.
func WithHost(h Host) ManagerOption {
	return func(m *Manager) {
		m.host = h
	}
}

// WithEnforcer sets the enforcer that receives each script's grants.
func WithEnforcer(e *capability.Enforcer) ManagerOption {
	return func(m *Manager) {
		m.enforcer = e
	}
}

// WithAPIVersion overrides the API version checked against script constraints.
func WithAPIVersion(v string) ManagerOption {
	return func(m *Manager) {
		m.apiVersion = v
	}
}

// WithGrants adds operator grants per script on top of the manifest's own.
func WithGrants(grants map[string][]string) ManagerOption {
	return func(m *Manager) {
		m.grants = grants
	}
}

// WithLogger sets the manager's logger.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = l
	}
}

// NewManager creates a script manager.
func NewManager(scriptsDir string, opts ...ManagerOption) *Manager {
	m := &Manager{
		scriptsDir: scriptsDir,
		apiVersion: APIVersion,
		loaded:     make(map[string]*DiscoveredScript),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// DiscoveredScript contains a manifest and its directory.
type DiscoveredScript struct {
	Manifest *Manifest
	Dir      string
}

// ReadScript reads and validates the manifest in dir.
func ReadScript(dir string) (*DiscoveredScript, error) {
	manifestPath := filepath.Join(dir, ManifestFile)
	data, err := os.ReadFile(filepath.Clean(manifestPath))
	if err != nil {
		return nil, oops.In("plugin").With("path", manifestPath).Wrapf(err, "read manifest")
	}
	if err := ValidateSchema(data); err != nil {
		return nil, oops.In("plugin").With("path", manifestPath).Wrap(err)
	}
	manifest, err := ParseManifest(data)
	if err != nil {
		return nil, oops.In("plugin").With("path", manifestPath).Wrap(err)
	}
	return &DiscoveredScript{Manifest: manifest, Dir: dir}, nil
}

// Discover finds all valid scripts in the scripts directory.
// Invalid scripts are logged and skipped.
func (m *Manager) Discover(_ context.Context) ([]*DiscoveredScript, error) {
	entries, err := os.ReadDir(m.scriptsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // No scripts directory
		}
		return nil, oops.In("plugin").With("dir", m.scriptsDir).Wrapf(err, "failed to read scripts directory")
	}

	var scripts []*DiscoveredScript
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		ds, err := ReadScript(filepath.Join(m.scriptsDir, entry.Name()))
		if err != nil {
			m.logger.Warn("skipping invalid script",
				"dir", entry.Name(),
				"error", err)
			continue
		}
		scripts = append(scripts, ds)
	}

	return scripts, nil
}

// LoadAll discovers and loads all scripts in the scripts directory.
//
// Individual script failures are logged but don't fail the entire load, so the
// bridge starts even when some scripts have problems. Callers who need strict
// loading use Discover and Load.
func (m *Manager) LoadAll(ctx context.Context) error {
	discovered, err := m.Discover(ctx)
	if err != nil {
		return err
	}

	for _, ds := range discovered {
		if err := m.Load(ctx, ds); err != nil {
			errutil.LogError(m.logger, "failed to load script", err, "dir", ds.Dir)
			continue
		}
	}

	return nil
}

// Load checks API compatibility, installs grants and loads one script.
// Without a host configured the script is skipped with a warning.
func (m *Manager) Load(ctx context.Context, ds *DiscoveredScript) error {
	manifest := ds.Manifest
	if err := manifest.CheckCompatibility(m.apiVersion); err != nil {
		return err
	}
	if m.host == nil {
		m.logger.Warn("no script host configured, skipping script",
			"script", manifest.Name)
		return nil
	}

	if m.enforcer != nil {
		grants := slices.Concat(manifest.Capabilities, m.grants[manifest.Name])
		if err := m.enforcer.SetGrants(manifest.Name, grants); err != nil {
			return oops.In("plugin").With("script", manifest.Name).Wrap(err)
		}
	}

	if err := m.host.Load(ctx, manifest, ds.Dir); err != nil {
		if m.enforcer != nil && !m.isLoaded(manifest.Name) {
			m.enforcer.RemoveGrants(manifest.Name)
		}
		return oops.In("plugin").With("script", manifest.Name).Wrapf(err, "load script %s", manifest.Name)
	}

	m.mu.Lock()
	m.loaded[manifest.Name] = ds
	m.mu.Unlock()

	m.logger.Info("loaded script",
		"script", manifest.Name,
		"version", manifest.Version,
		"dir", ds.Dir)
	return nil
}

func (m *Manager) isLoaded(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.loaded[name]
	return ok
}

// Unload removes a script and revokes its grants.
func (m *Manager) Unload(ctx context.Context, name string) error {
	if !m.isLoaded(name) {
		return oops.In("plugin").With("script", name).Errorf("script %s is not loaded", name)
	}
	if m.host != nil {
		if err := m.host.Unload(ctx, name); err != nil {
			return oops.In("plugin").With("script", name).Wrap(err)
		}
	}
	if m.enforcer != nil {
		m.enforcer.RemoveGrants(name)
	}

	m.mu.Lock()
	delete(m.loaded, name)
	m.mu.Unlock()
	return nil
}

// ListScripts returns names of all loaded scripts.
func (m *Manager) ListScripts() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.loaded))
	for name := range m.loaded {
		names = append(names, name)
	}

	// Sort for deterministic output
	sort.Strings(names)
	return names
}

// Close shuts down the manager and all loaded scripts.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Clear loaded map first to ensure consistent state even if close fails.
	names := make([]string, 0, len(m.loaded))
	for name := range m.loaded {
		names = append(names, name)
	}
	m.loaded = make(map[string]*DiscoveredScript)

	if m.enforcer != nil {
		for _, name := range names {
			m.enforcer.RemoveGrants(name)
		}
	}

	if m.host != nil {
		if err := m.host.Close(ctx); err != nil {
			return oops.In("plugin").Wrapf(err, "close script host")
		}
	}

	return nil
}
