package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"gamecontent-server/internal/models"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const contentExchangeType = "fanout"

// ContentEventType - тип события о контенте.
type ContentEventType string

const (
	ContentCreated ContentEventType = "created"
	ContentDeleted ContentEventType = "deleted"
)

// ContentEvent публикуется при сохранении и удалении записи.
type ContentEvent struct {
	Event     ContentEventType   `json:"event"`
	ContentID uuid.UUID          `json:"contentId"`
	Type      models.ContentType `json:"type"`
	Category  string             `json:"category"`
	Timestamp time.Time          `json:"timestamp"`
}

// NewContentEvent собирает событие по записи.
func NewContentEvent(event ContentEventType, content *models.GeneratedContent) ContentEvent {
	return ContentEvent{
		Event:     event,
		ContentID: content.ID,
		Type:      content.Type,
		Category:  content.Category,
		Timestamp: time.Now().UTC(),
	}
}

// EventPublisher отправляет события о контенте.
type EventPublisher interface {
	PublishContentEvent(ctx context.Context, event ContentEvent) error
}

// NopPublisher используется, когда RabbitMQ не настроен.
type NopPublisher struct{}

func (NopPublisher) PublishContentEvent(context.Context, ContentEvent) error { return nil }

// RabbitMQPublisher публикует события в durable fanout exchange.
type RabbitMQPublisher struct {
	mu           sync.Mutex
	ch           *amqp.Channel
	exchangeName string
	logger       *zap.Logger
}

// NewRabbitMQPublisher открывает канал и объявляет exchange.
func NewRabbitMQPublisher(conn *amqp.Connection, exchangeName string, logger *zap.Logger) (*RabbitMQPublisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("rabbitmq connection is nil")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchangeName,
		contentExchangeType,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare exchange '%s': %w", exchangeName, err)
	}

	logger.Info("Content events exchange declared", zap.String("exchange", exchangeName), zap.String("type", contentExchangeType))
	return &RabbitMQPublisher{
		ch:           ch,
		exchangeName: exchangeName,
		logger:       logger.Named("ContentEventPublisher"),
	}, nil
}

func (p *RabbitMQPublisher) PublishContentEvent(ctx context.Context, event ContentEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal content event: %w", err)
	}

	p.mu.Lock()
	err = p.ch.PublishWithContext(ctx,
		p.exchangeName,
		"", // routing key не используется для fanout
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    event.Timestamp,
			Type:         string(event.Event),
			Body:         body,
		},
	)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to publish content event: %w", err)
	}

	p.logger.Debug("Content event published",
		zap.String("event", string(event.Event)),
		zap.String("contentID", event.ContentID.String()),
	)
	return nil
}

// Close закрывает канал RabbitMQ.
func (p *RabbitMQPublisher) Close() error {
	if p.ch != nil {
		return p.ch.Close()
	}
	return nil
}

// Connect подключается к RabbitMQ с несколькими попытками.
func Connect(url string, maxRetries int, retryDelay time.Duration, logger *zap.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	for i := 0; i < maxRetries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		logger.Warn("Не удалось подключиться к RabbitMQ",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", maxRetries),
			zap.Duration("retry_delay", retryDelay),
			zap.Error(err),
		)
		time.Sleep(retryDelay)
	}
	return nil, err
}
