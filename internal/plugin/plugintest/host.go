// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package plugintest provides test doubles for script hosting.
package plugintest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/holomush/hookbridge/internal/plugin"
)

var _ plugin.Host = (*MockHost)(nil)

// MockHost is a plugin.Host driven by testify expectations.
type MockHost struct {
	mock.Mock
}

// NewMockHost creates a MockHost that asserts its expectations at cleanup.
func NewMockHost(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockHost {
	m := &MockHost{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Load records the call and returns the configured error.
func (m *MockHost) Load(ctx context.Context, manifest *plugin.Manifest, dir string) error {
	return m.Called(ctx, manifest, dir).Error(0)
}

// Unload records the call and returns the configured error.
func (m *MockHost) Unload(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

// Scripts returns the configured names.
func (m *MockHost) Scripts() []string {
	args := m.Called()
	names, _ := args.Get(0).([]string)
	return names
}

// Close records the call and returns the configured error.
func (m *MockHost) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
