package service

import (
	"context"
	"encoding/json"

	"docuchat-be/internal/dto"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

type IPublisherService interface {
	PublishIngest(ctx context.Context, msg dto.IngestDocumentMessage) error
}

type publisherService struct {
	topicName string
	publisher message.Publisher
}

func NewPublisherService(topicName string, publisher message.Publisher) IPublisherService {
	return &publisherService{
		topicName: topicName,
		publisher: publisher,
	}
}

// PublishIngest queues the job. The request context is deliberately not attached
// to the message so the job outlives the request.
func (s *publisherService) PublishIngest(_ context.Context, msg dto.IngestDocumentMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return s.publisher.Publish(s.topicName, message.NewMessage(watermill.NewUUID(), payload))
}
