package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"docuchat-be/internal/dto"
	"docuchat-be/internal/entity"
	"docuchat-be/internal/pkg/logger"
	"docuchat-be/internal/repository/specification"
	"docuchat-be/internal/repository/unitofwork"
	"docuchat-be/pkg/ingest"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
	Wait()
}

// DocumentProcessor runs one ingestion job.
type DocumentProcessor interface {
	Process(ctx context.Context, documentID uuid.UUID, stagedPath string) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	processor  DocumentProcessor
	workers    int
	logger     logger.ILogger
	wg         sync.WaitGroup
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	processor DocumentProcessor,
	workers int,
	log logger.ILogger,
) IConsumerService {
	if workers <= 0 {
		workers = 1
	}
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		processor:  processor,
		workers:    workers,
		logger:     log,
	}
}

// Consume starts the worker pool. A single subscription feeds the workers:
// subscribers on the same topic each receive every message, and the
// subscription holds back the next message until the current one is acked,
// so a message is acked once a worker has taken it. Workers stop when ctx is
// cancelled and the subscription channel closes.
func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	jobs := make(chan *message.Message)
	cs.wg.Add(1)
	go func() {
		defer cs.wg.Done()
		defer close(jobs)
		for msg := range messages {
			jobs <- msg
			msg.Ack()
		}
	}()

	for i := 0; i < cs.workers; i++ {
		cs.wg.Add(1)
		go func() {
			defer cs.wg.Done()
			for msg := range jobs {
				cs.processMessage(msg)
			}
		}()
	}

	cs.logger.Info(logger.ModuleIngest, "Ingestion workers started", map[string]interface{}{
		"topic":   cs.topicName,
		"workers": cs.workers,
	})
	return nil
}

func (cs *consumerService) Wait() {
	cs.wg.Wait()
}

// processMessage never asks for redelivery: failures are recorded on the
// document itself and a redelivery would only race the lease.
func (cs *consumerService) processMessage(msg *message.Message) {
	var payload dto.IngestDocumentMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error(logger.ModuleIngest, "Failed to unmarshal ingest message", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err,
		})
		return
	}

	// Jobs are detached from the request that queued them.
	err := cs.processor.Process(context.Background(), payload.DocumentId, payload.StagedPath)
	switch {
	case err == nil:
	case errors.Is(err, ingest.ErrAlreadyProcessing):
		cs.logger.Info(logger.ModuleIngest, "Skipping document already claimed", map[string]interface{}{
			"document_id": payload.DocumentId.String(),
		})
	case errors.Is(err, ingest.ErrDocumentNotFound):
		cs.logger.Warn(logger.ModuleIngest, "Document vanished before processing", map[string]interface{}{
			"document_id": payload.DocumentId.String(),
		})
	default:
		cs.logger.Error(logger.ModuleIngest, "Ingestion job failed", map[string]interface{}{
			"document_id": payload.DocumentId.String(),
			"error":       err,
		})
	}
}

// documentStore adapts the repositories to the pipeline's record store.
type documentStore struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewDocumentStore(uowFactory unitofwork.RepositoryFactory) ingest.DocumentStore {
	return &documentStore{uowFactory: uowFactory}
}

func (s *documentStore) Get(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	return s.uowFactory.NewUnitOfWork(ctx).DocumentRepository().FindOne(ctx, specification.ByID{ID: id})
}

func (s *documentStore) MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.uowFactory.NewUnitOfWork(ctx).DocumentRepository().TransitionStatus(ctx, id,
		entity.DocumentStatusPending, entity.DocumentStatusProcessing)
}

func (s *documentStore) SaveIfStatus(ctx context.Context, doc *entity.Document, expected entity.DocumentStatus) (bool, error) {
	return s.uowFactory.NewUnitOfWork(ctx).DocumentRepository().UpdateIfStatus(ctx, doc, expected)
}
