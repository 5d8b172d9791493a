package mocks

import (
	"context"

	"gamecontent-server/internal/service"

	"github.com/stretchr/testify/mock"
)

// MockProgressReporter is a mock type for the ProgressReporter type
type MockProgressReporter struct {
	mock.Mock
}

// ReportProgress provides a mock function with given fields: ctx, event
func (m *MockProgressReporter) ReportProgress(ctx context.Context, event service.ProgressEvent) {
	m.Called(ctx, event)
}

var _ service.ProgressReporter = (*MockProgressReporter)(nil)
