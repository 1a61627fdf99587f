// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package plugin discovers, validates and loads scripts.
package plugin

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// ManifestFile is the file name that marks a script directory.
const ManifestFile = "script.yaml"

// Error codes for manifest problems.
const (
	CodeInvalidManifest = "INVALID_MANIFEST"
	CodeIncompatibleAPI = "INCOMPATIBLE_API"
)

// Manifest represents a script.yaml file.
type Manifest struct {
	Schema       string   `yaml:"$schema,omitempty" json:"$schema,omitempty"`
	Name         string   `yaml:"name" json:"name" jsonschema:"pattern=^[a-z]([a-z0-9-]*[a-z0-9])?$,maxLength=64"`
	Version      string   `yaml:"version" json:"version" jsonschema:"minLength=1"`
	Description  string   `yaml:"description,omitempty" json:"description,omitempty"`
	API          string   `yaml:"api,omitempty" json:"api,omitempty" jsonschema:"description=Semver constraint on the bridge API version"`
	Entry        string   `yaml:"entry" json:"entry" jsonschema:"pattern=\\.lua$"`
	Capabilities []string `yaml:"capabilities,omitempty" json:"capabilities,omitempty"`
}

// maxNameLength is the maximum allowed length for script names.
const maxNameLength = 64

// namePattern validates script names: must start with lowercase letter,
// followed by lowercase letters, digits, or hyphens.
// Cannot end with a hyphen. Single character names are allowed.
var namePattern = regexp.MustCompile(`^[a-z]([a-z0-9-]*[a-z0-9])?$`)

func invalid(format string, args ...any) error {
	return oops.Code(CodeInvalidManifest).Errorf(format, args...)
}

// ParseManifest parses and validates a script.yaml file.
func ParseManifest(data []byte) (*Manifest, error) {
	if len(data) == 0 {
		return nil, invalid("manifest data is empty")
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, oops.Code(CodeInvalidManifest).Wrapf(err, "invalid YAML")
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks manifest constraints.
func (m *Manifest) Validate() error {
	if m.Name == "" || !namePattern.MatchString(m.Name) {
		return invalid("name %q must start with a-z, contain only a-z, 0-9, hyphens, and not end with a hyphen", m.Name)
	}
	if len(m.Name) > maxNameLength {
		return invalid("name must be %d characters or less, got %d", maxNameLength, len(m.Name))
	}

	if m.Version == "" {
		return invalid("version is required")
	}
	if _, err := semver.StrictNewVersion(m.Version); err != nil {
		return oops.Code(CodeInvalidManifest).With("version", m.Version).Wrapf(err, "version %q is not semver", m.Version)
	}

	if m.API != "" {
		if _, err := semver.NewConstraint(m.API); err != nil {
			return oops.Code(CodeInvalidManifest).With("api", m.API).Wrapf(err, "api %q is not a version constraint", m.API)
		}
	}

	if m.Entry == "" {
		return invalid("entry is required")
	}
	if !strings.HasSuffix(m.Entry, ".lua") {
		return invalid("entry %q must be a .lua file", m.Entry)
	}
	clean := filepath.Clean(m.Entry)
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return invalid("entry %q must stay inside the script directory", m.Entry)
	}

	for i, c := range m.Capabilities {
		if c == "" {
			return invalid("capabilities[%d] is empty", i)
		}
	}
	return nil
}

// CheckCompatibility reports whether the script accepts apiVersion. Scripts
// without an api constraint accept every version.
func (m *Manifest) CheckCompatibility(apiVersion string) error {
	if m.API == "" {
		return nil
	}
	v, err := semver.NewVersion(apiVersion)
	if err != nil {
		return oops.Code(CodeIncompatibleAPI).With("api_version", apiVersion).Wrapf(err, "invalid bridge api version")
	}
	c, err := semver.NewConstraint(m.API)
	if err != nil {
		return oops.Code(CodeInvalidManifest).With("api", m.API).Wrapf(err, "api %q is not a version constraint", m.API)
	}
	if ok, errs := c.Validate(v); !ok {
		reason := "constraint not met"
		if len(errs) > 0 {
			reason = errs[0].Error()
		}
		return oops.Code(CodeIncompatibleAPI).
			With("script", m.Name).
			With("api", m.API).
			With("api_version", apiVersion).
			Errorf("script %s requires api %s, bridge provides %s: %s", m.Name, m.API, apiVersion, reason)
	}
	return nil
}
