package mocks

import (
	"context"

	"gamecontent-server/internal/messaging"

	"github.com/stretchr/testify/mock"
)

// MockEventPublisher is a mock type for the EventPublisher type
type MockEventPublisher struct {
	mock.Mock
}

// PublishContentEvent provides a mock function with given fields: ctx, event
func (m *MockEventPublisher) PublishContentEvent(ctx context.Context, event messaging.ContentEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

var _ messaging.EventPublisher = (*MockEventPublisher)(nil)
