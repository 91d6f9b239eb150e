// Package mocks provides test doubles for the source package.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	source "github.com/TextQLLabs/market-cap-tracker/internal/source"
	xbrl "github.com/TextQLLabs/market-cap-tracker/internal/xbrl"
)

// MockPriceSeries is a mock type for the PriceSeries interface.
type MockPriceSeries struct {
	mock.Mock
}

// MonthlyCloses provides a mock function with given fields: ctx, symbol, year
func (_m *MockPriceSeries) MonthlyCloses(ctx context.Context, symbol string, year int) ([]source.Close, error) {
	ret := _m.Called(ctx, symbol, year)

	if len(ret) == 0 {
		panic("no return value specified for MonthlyCloses")
	}

	var r0 []source.Close
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]source.Close)
	}
	return r0, ret.Error(1)
}

// SharesOutstanding provides a mock function with given fields: ctx, symbol
func (_m *MockPriceSeries) SharesOutstanding(ctx context.Context, symbol string) (float64, error) {
	ret := _m.Called(ctx, symbol)

	if len(ret) == 0 {
		panic("no return value specified for SharesOutstanding")
	}

	return ret.Get(0).(float64), ret.Error(1)
}

// MockFactsSource is a mock type for the FactsSource interface.
type MockFactsSource struct {
	mock.Mock
}

// CompanyFacts provides a mock function with given fields: ctx, cik
func (_m *MockFactsSource) CompanyFacts(ctx context.Context, cik string) (*xbrl.CompanyFacts, error) {
	ret := _m.Called(ctx, cik)

	if len(ret) == 0 {
		panic("no return value specified for CompanyFacts")
	}

	var r0 *xbrl.CompanyFacts
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*xbrl.CompanyFacts)
	}
	return r0, ret.Error(1)
}

// NewMockPriceSeries creates a MockPriceSeries and registers a cleanup
// function to assert the mock's expectations.
func NewMockPriceSeries(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockPriceSeries {
	m := &MockPriceSeries{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// NewMockFactsSource creates a MockFactsSource and registers a cleanup
// function to assert the mock's expectations.
func NewMockFactsSource(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockFactsSource {
	m := &MockFactsSource{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
