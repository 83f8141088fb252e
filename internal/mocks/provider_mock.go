package mocks

import (
	"context"

	"adventure-server/internal/provider"

	"github.com/stretchr/testify/mock"
)

var _ provider.Provider = (*MockProvider)(nil)

// MockProvider is a mock type for the Provider type
type MockProvider struct {
	mock.Mock
}

// Generate provides a mock function with given fields: ctx, theme
func (_m *MockProvider) Generate(ctx context.Context, theme string) (string, error) {
	ret := _m.Called(ctx, theme)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, string) string); ok {
		r0 = rf(ctx, theme)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(string)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, theme)
	} else {
		r1 = ret.Error(1)
	}
	return r0, r1
}

// NewMockProvider creates a new instance of MockProvider and asserts expectations on cleanup.
func NewMockProvider(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockProvider {
	m := &MockProvider{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
