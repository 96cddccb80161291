package service

import (
	"context"
	"fmt"
	"time"

	"docuchat-be/internal/entity"
	"docuchat-be/internal/pkg/logger"
	"docuchat-be/internal/websocket"
	"docuchat-be/pkg/events"
	pktNats "docuchat-be/pkg/nats"

	"github.com/google/uuid"
)

const (
	documentEventsSubject  = pktNats.SubjectPrefix + "document.>"
	notificationConsumer   = "docuchat-notifier"
	notificationPublishTTL = 5 * time.Second
)

// NotificationDelivery pushes real-time updates to connected clients.
// Typically implemented by the WebSocket Hub.
type NotificationDelivery interface {
	SendToUser(userID uuid.UUID, msg websocket.Message)
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type EventSubscriber interface {
	Subscribe(ctx context.Context, subject, durableName string, handler pktNats.EventHandler) error
}

// NotificationService fans document status changes out to the owner's
// devices. With an event bus it goes through JetStream so every instance
// sees the event; without one it delivers to the local hub.
type NotificationService struct {
	publisher  EventPublisher
	subscriber EventSubscriber
	delivery   NotificationDelivery
	logger     logger.ILogger
}

func NewNotificationService(publisher EventPublisher, subscriber EventSubscriber, delivery NotificationDelivery, log logger.ILogger) *NotificationService {
	return &NotificationService{
		publisher:  publisher,
		subscriber: subscriber,
		delivery:   delivery,
		logger:     log,
	}
}

// DocumentStatusChanged never blocks the caller.
func (s *NotificationService) DocumentStatusChanged(_ context.Context, doc *entity.Document) {
	event, ok := events.NewDocumentStatusEvent(doc)
	if !ok {
		return
	}

	if s.publisher == nil {
		s.deliver(doc.UserId, event)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notificationPublishTTL)
		defer cancel()
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn(logger.ModuleNotify, "Event publish failed, delivering locally", map[string]interface{}{
				"type":  event.EventType(),
				"error": err.Error(),
			})
			s.deliver(doc.UserId, event)
		}
	}()
}

// Start subscribes to document events. It is a no-op without an event bus.
func (s *NotificationService) Start(ctx context.Context) error {
	if s.subscriber == nil {
		s.logger.Info(logger.ModuleNotify, "No event bus configured, notifications are local only", nil)
		return nil
	}
	if err := s.subscriber.Subscribe(ctx, documentEventsSubject, notificationConsumer, s.handleEvent); err != nil {
		return fmt.Errorf("subscribe %s: %w", documentEventsSubject, err)
	}
	s.logger.Info(logger.ModuleNotify, "Notification service started", map[string]interface{}{
		"subject": documentEventsSubject,
	})
	return nil
}

func (s *NotificationService) handleEvent(_ context.Context, event events.Event) error {
	raw, _ := event.Payload()["user_id"].(string)
	userID, err := uuid.Parse(raw)
	if err != nil {
		// Nothing to deliver to; retrying will not help.
		s.logger.Warn(logger.ModuleNotify, "Dropping event without user", map[string]interface{}{
			"type": event.EventType(),
		})
		return nil
	}
	s.deliver(userID, event)
	return nil
}

func (s *NotificationService) deliver(userID uuid.UUID, event events.Event) {
	if s.delivery == nil {
		return
	}
	s.delivery.SendToUser(userID, websocket.Message{
		Type: event.EventType(),
		Data: event.Payload(),
	})
}
