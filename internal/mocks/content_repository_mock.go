package mocks

import (
	"context"

	"gamecontent-server/internal/models"
	"gamecontent-server/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockContentRepository is a mock type for the ContentRepository type
type MockContentRepository struct {
	mock.Mock
}

// Create provides a mock function with given fields: ctx, content
func (_m *MockContentRepository) Create(ctx context.Context, content *models.GeneratedContent) error {
	ret := _m.Called(ctx, content)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *models.GeneratedContent) error); ok {
		r0 = rf(ctx, content)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// GetByID provides a mock function with given fields: ctx, id
func (_m *MockContentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.GeneratedContent, error) {
	ret := _m.Called(ctx, id)

	var r0 *models.GeneratedContent
	if rf, ok := ret.Get(0).(func(context.Context, uuid.UUID) *models.GeneratedContent); ok {
		r0 = rf(ctx, id)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.GeneratedContent)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, uuid.UUID) error); ok {
		r1 = rf(ctx, id)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Delete provides a mock function with given fields: ctx, id
func (_m *MockContentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ret := _m.Called(ctx, id)
	return ret.Error(0)
}

// List provides a mock function with given fields: ctx, filter
func (_m *MockContentRepository) List(ctx context.Context, filter models.ContentFilter) ([]*models.GeneratedContent, error) {
	ret := _m.Called(ctx, filter)

	var r0 []*models.GeneratedContent
	if rf, ok := ret.Get(0).(func(context.Context, models.ContentFilter) []*models.GeneratedContent); ok {
		r0 = rf(ctx, filter)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*models.GeneratedContent)
	}

	return r0, ret.Error(1)
}

// CountByCategory provides a mock function with given fields: ctx
func (_m *MockContentRepository) CountByCategory(ctx context.Context) ([]models.CategoryCount, error) {
	ret := _m.Called(ctx)

	var r0 []models.CategoryCount
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.CategoryCount)
	}

	return r0, ret.Error(1)
}

// Count provides a mock function with given fields: ctx
func (_m *MockContentRepository) Count(ctx context.Context) (int64, error) {
	ret := _m.Called(ctx)

	var r0 int64
	if rf, ok := ret.Get(0).(func(context.Context) int64); ok {
		r0 = rf(ctx)
	} else {
		r0 = ret.Get(0).(int64)
	}

	return r0, ret.Error(1)
}

// NewMockContentRepository creates a new instance of MockContentRepository. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockContentRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockContentRepository {
	m := &MockContentRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ repository.ContentRepository = (*MockContentRepository)(nil)
