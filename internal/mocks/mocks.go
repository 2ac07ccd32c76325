// File: internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/halilc4/tabby-mcp/api/schemas"
	"github.com/halilc4/tabby-mcp/internal/browser"
)

// -- Browser Connection Mock --

// MockConnector mocks the tools.Connector view of a browser connection.
type MockConnector struct {
	mock.Mock
}

func (m *MockConnector) ListTargets(ctx context.Context) ([]schemas.TargetDescriptor, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]schemas.TargetDescriptor), args.Error(1)
}

func (m *MockConnector) Execute(ctx context.Context, spec schemas.TargetSpecifier, code string, raw bool) (interface{}, error) {
	args := m.Called(ctx, spec, code, raw)
	return args.Get(0), args.Error(1)
}

func (m *MockConnector) Query(ctx context.Context, spec schemas.TargetSpecifier, selector string, opts browser.QueryOptions) ([]schemas.ElementInfo, error) {
	args := m.Called(ctx, spec, selector, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]schemas.ElementInfo), args.Error(1)
}

func (m *MockConnector) Click(ctx context.Context, spec schemas.TargetSpecifier, selector string, index int) (bool, error) {
	args := m.Called(ctx, spec, selector, index)
	return args.Bool(0), args.Error(1)
}

func (m *MockConnector) Text(ctx context.Context, spec schemas.TargetSpecifier, selector string) (string, bool, error) {
	args := m.Called(ctx, spec, selector)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockConnector) WaitForSelector(ctx context.Context, spec schemas.TargetSpecifier, selector string, opts browser.WaitOptions) (bool, error) {
	args := m.Called(ctx, spec, selector, opts)
	return args.Bool(0), args.Error(1)
}

func (m *MockConnector) Screenshot(ctx context.Context, spec schemas.TargetSpecifier, format schemas.ImageFormat, quality int) ([]byte, error) {
	args := m.Called(ctx, spec, format, quality)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
