package mocks

import (
	"context"

	"gamecontent-server/internal/ai"
	"gamecontent-server/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockTextGenerator is a mock type for the TextGenerator type
type MockTextGenerator struct {
	mock.Mock
}

// GenerateText provides a mock function with given fields: ctx, prompt, contentType
func (_m *MockTextGenerator) GenerateText(ctx context.Context, prompt string, contentType models.ContentType) (string, error) {
	ret := _m.Called(ctx, prompt, contentType)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, string, models.ContentType) string); ok {
		r0 = rf(ctx, prompt, contentType)
	} else {
		r0 = ret.String(0)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string, models.ContentType) error); ok {
		r1 = rf(ctx, prompt, contentType)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockTextGenerator creates a new instance of MockTextGenerator. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockTextGenerator(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockTextGenerator {
	m := &MockTextGenerator{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ ai.TextGenerator = (*MockTextGenerator)(nil)
