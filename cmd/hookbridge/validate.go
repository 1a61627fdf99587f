// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/hookbridge/internal/plugin"
	pluginlua "github.com/holomush/hookbridge/internal/plugin/lua"
	"github.com/holomush/hookbridge/pkg/errutil"
)

// NewValidateCmd creates the validate subcommand.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <dir>...",
		Short: "Validate scripts without running them",
		Long: `Checks each script's manifest against the schema, parses it and
compiles its Lua entry file. A directory holding script.yaml is checked as a
single script; any other directory is treated as a scripts directory and every
subdirectory with a manifest is checked.

Exits with code 0 on success, non-zero on failure:
  hookbridge validate ./scripts`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.OutOrStdout(), args)
		},
	}
}

func runValidate(out io.Writer, dirs []string) error {
	var scripts []string
	for _, dir := range dirs {
		found, err := scriptDirs(dir)
		if err != nil {
			return err
		}
		scripts = append(scripts, found...)
	}
	if len(scripts) == 0 {
		return oops.With("dirs", dirs).Errorf("no scripts found")
	}

	failed := 0
	for _, dir := range scripts {
		ds, err := plugin.ReadScript(dir)
		if err == nil {
			err = pluginlua.Validate(ds.Manifest, ds.Dir)
		}
		if err != nil {
			failed++
			if code := errutil.Code(err); code != "" {
				fmt.Fprintf(out, "FAIL %s [%s]: %v\n", dir, code, err)
			} else {
				fmt.Fprintf(out, "FAIL %s: %v\n", dir, err)
			}
			continue
		}
		fmt.Fprintf(out, "ok   %s (%s %s)\n", dir, ds.Manifest.Name, ds.Manifest.Version)
	}

	if failed > 0 {
		return oops.Errorf("validation failed: %d of %d scripts invalid", failed, len(scripts))
	}
	return nil
}

// scriptDirs expands dir into the script directories it names.
func scriptDirs(dir string) ([]string, error) {
	if fileExists(filepath.Join(dir, plugin.ManifestFile)) {
		return []string{dir}, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, oops.With("dir", dir).Wrapf(err, "read scripts directory")
	}
	var dirs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		sub := filepath.Join(dir, e.Name())
		if fileExists(filepath.Join(sub, plugin.ManifestFile)) {
			dirs = append(dirs, sub)
		}
	}
	return dirs, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
