package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	model "github.com/TextQLLabs/market-cap-tracker/internal/model"
	source "github.com/TextQLLabs/market-cap-tracker/internal/source"
)

// MockProvider is a mock type for the Provider interface.
type MockProvider struct {
	mock.Mock

	name          string
	needsFilingID bool
}

// NewMockProvider creates a MockProvider with a fixed name and registers a
// cleanup function to assert the mock's expectations.
func NewMockProvider(t interface {
	mock.TestingT
	Cleanup(func())
}, name string) *MockProvider {
	m := &MockProvider{name: name}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// WithFilingID marks the mock as a filing provider.
func (_m *MockProvider) WithFilingID() *MockProvider {
	_m.needsFilingID = true
	return _m
}

// Name returns the configured provider name.
func (_m *MockProvider) Name() string { return _m.name }

// RequiresFilingID reports whether WithFilingID was called.
func (_m *MockProvider) RequiresFilingID() bool { return _m.needsFilingID }

// Fetch provides a mock function with given fields: ctx, q
func (_m *MockProvider) Fetch(ctx context.Context, q source.Query) *model.MarketCapPoint {
	ret := _m.Called(ctx, q)

	if len(ret) == 0 {
		panic("no return value specified for Fetch")
	}

	if rf, ok := ret.Get(0).(func(context.Context, source.Query) *model.MarketCapPoint); ok {
		return rf(ctx, q)
	}
	if ret.Get(0) == nil {
		return nil
	}
	return ret.Get(0).(*model.MarketCapPoint)
}
