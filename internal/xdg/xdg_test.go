// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package xdg

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDirs(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		fn   func() string
		want string
	}{
		{"config env", map[string]string{"XDG_CONFIG_HOME": "/custom/config"}, ConfigDir, "/custom/config/hookbridge"},
		{"config default", map[string]string{"XDG_CONFIG_HOME": "", "HOME": "/home/testuser"}, ConfigDir, "/home/testuser/.config/hookbridge"},
		{"data env", map[string]string{"XDG_DATA_HOME": "/custom/data"}, DataDir, "/custom/data/hookbridge"},
		{"data default", map[string]string{"XDG_DATA_HOME": "", "HOME": "/home/testuser"}, DataDir, "/home/testuser/.local/share/hookbridge"},
		{"state env", map[string]string{"XDG_STATE_HOME": "/custom/state"}, StateDir, "/custom/state/hookbridge"},
		{"state default", map[string]string{"XDG_STATE_HOME": "", "HOME": "/home/testuser"}, StateDir, "/home/testuser/.local/state/hookbridge"},
		{"runtime env", map[string]string{"XDG_RUNTIME_DIR": "/run/user/1000"}, RuntimeDir, "/run/user/1000/hookbridge"},
		{"runtime fallback", map[string]string{"XDG_RUNTIME_DIR": "", "XDG_STATE_HOME": "/custom/state"}, RuntimeDir, "/custom/state/hookbridge/run"},
		{"config file", map[string]string{"XDG_CONFIG_HOME": "/custom/config"}, ConfigFile, "/custom/config/hookbridge/config.yaml"},
		{"scripts dir", map[string]string{"XDG_DATA_HOME": "/custom/data"}, ScriptsDir, "/custom/data/hookbridge/scripts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if got := tt.fn(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEnsureDir(t *testing.T) {
	tmpDir := t.TempDir()
	testPath := filepath.Join(tmpDir, "nested", "dir")

	err := EnsureDir(testPath)
	if err != nil {
		t.Fatalf("EnsureDir() error = %v", err)
	}

	info, err := os.Stat(testPath)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if !info.IsDir() {
		t.Error("Expected directory, got file")
	}
}

func TestEnsureDir_Permissions(t *testing.T) {
	tmpDir := t.TempDir()
	testPath := filepath.Join(tmpDir, "secure", "dir")

	err := EnsureDir(testPath)
	if err != nil {
		t.Fatalf("EnsureDir() error = %v", err)
	}

	info, err := os.Stat(testPath)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}

	// Check permissions are 0700
	perm := info.Mode().Perm()
	if perm != 0o700 {
		t.Errorf("EnsureDir() permissions = %o, want %o", perm, 0o700)
	}
}

func TestEnsureDir_Idempotent(t *testing.T) {
	tmpDir := t.TempDir()
	testPath := filepath.Join(tmpDir, "idempotent")

	// Create twice - should not error
	if err := EnsureDir(testPath); err != nil {
		t.Fatalf("First EnsureDir() error = %v", err)
	}
	if err := EnsureDir(testPath); err != nil {
		t.Fatalf("Second EnsureDir() error = %v", err)
	}
}
