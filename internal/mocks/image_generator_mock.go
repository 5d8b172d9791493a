package mocks

import (
	"context"

	"gamecontent-server/internal/ai"

	"github.com/stretchr/testify/mock"
)

// MockImageGenerator is a mock type for the ImageGenerator type
type MockImageGenerator struct {
	mock.Mock
}

// GenerateImage provides a mock function with given fields: ctx, prompt, opts
func (_m *MockImageGenerator) GenerateImage(ctx context.Context, prompt string, opts ai.ImageOptions) (*ai.ImageResult, error) {
	ret := _m.Called(ctx, prompt, opts)

	var r0 *ai.ImageResult
	if rf, ok := ret.Get(0).(func(context.Context, string, ai.ImageOptions) *ai.ImageResult); ok {
		r0 = rf(ctx, prompt, opts)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*ai.ImageResult)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string, ai.ImageOptions) error); ok {
		r1 = rf(ctx, prompt, opts)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// GenerateImageFromImage provides a mock function with given fields: ctx, sourceImage, prompt, opts
func (_m *MockImageGenerator) GenerateImageFromImage(ctx context.Context, sourceImage string, prompt string, opts ai.ImageToImageOptions) (*ai.ImageResult, error) {
	ret := _m.Called(ctx, sourceImage, prompt, opts)

	var r0 *ai.ImageResult
	if rf, ok := ret.Get(0).(func(context.Context, string, string, ai.ImageToImageOptions) *ai.ImageResult); ok {
		r0 = rf(ctx, sourceImage, prompt, opts)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*ai.ImageResult)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string, string, ai.ImageToImageOptions) error); ok {
		r1 = rf(ctx, sourceImage, prompt, opts)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockImageGenerator creates a new instance of MockImageGenerator. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockImageGenerator(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockImageGenerator {
	m := &MockImageGenerator{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ ai.ImageGenerator = (*MockImageGenerator)(nil)
