package service_test

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"docuchat-be/internal/dto"
	"docuchat-be/internal/entity"
	"docuchat-be/internal/service"
	"docuchat-be/pkg/ingest"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProcessor struct {
	calls chan dto.IngestDocumentMessage
	err   error
}

func (p *recordingProcessor) Process(_ context.Context, id uuid.UUID, stagedPath string) error {
	p.calls <- dto.IngestDocumentMessage{DocumentId: id, StagedPath: stagedPath}
	return p.err
}

// gatedProcessor holds every job until release closes and records how many
// jobs were in flight at once.
type gatedProcessor struct {
	release  chan struct{}
	inFlight atomic.Int32
	peak     atomic.Int32
	done     atomic.Int32
}

func (p *gatedProcessor) Process(context.Context, uuid.UUID, string) error {
	n := p.inFlight.Add(1)
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	<-p.release
	p.inFlight.Add(-1)
	p.done.Add(1)
	return nil
}

func TestConsumerRunsJobsConcurrently(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
	defer pubSub.Close()

	tests := []struct {
		name    string
		workers int
		want    int32
	}{
		{name: "four workers", workers: 4, want: 4},
		{name: "single worker", workers: 1, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topic := "document.process." + uuid.NewString()
			processor := &gatedProcessor{release: make(chan struct{})}
			consumer := service.NewConsumerService(pubSub, topic, processor, tt.workers, nopLogger)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			require.NoError(t, consumer.Consume(ctx))

			publisher := service.NewPublisherService(topic, pubSub)
			for i := 0; i < 4; i++ {
				require.NoError(t, publisher.PublishIngest(context.Background(), dto.IngestDocumentMessage{DocumentId: uuid.New(), StagedPath: "/tmp/upload.txt"}))
			}

			assert.Eventually(t, func() bool { return processor.inFlight.Load() == tt.want }, 2*time.Second, 5*time.Millisecond)
			close(processor.release)
			assert.Eventually(t, func() bool { return processor.done.Load() == 4 }, 2*time.Second, 5*time.Millisecond)
			assert.Equal(t, tt.want, processor.peak.Load())

			cancel()
			consumer.Wait()
		})
	}
}

func TestConsumerDispatchesJobsToProcessor(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 8}, watermill.NopLogger{})
	defer pubSub.Close()

	processor := &recordingProcessor{calls: make(chan dto.IngestDocumentMessage, 8), err: ingest.ErrAlreadyProcessing}
	consumer := service.NewConsumerService(pubSub, "document.process", processor, 2, nopLogger)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, consumer.Consume(ctx))

	publisher := service.NewPublisherService("document.process", pubSub)
	want := dto.IngestDocumentMessage{DocumentId: uuid.New(), StagedPath: "/tmp/upload.txt"}
	require.NoError(t, publisher.PublishIngest(context.Background(), want))

	// Malformed payloads are acked and dropped.
	require.NoError(t, pubSub.Publish("document.process", message.NewMessage(watermill.NewUUID(), []byte("{"))))

	select {
	case got := <-processor.calls:
		assert.Equal(t, want, got)
	case <-time.After(2 * time.Second):
		t.Fatal("job was not processed")
	}

	cancel()
	done := make(chan struct{})
	go func() {
		consumer.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("workers did not stop")
	}
	assert.Empty(t, processor.calls)
}

func TestDocumentStoreMarkProcessingOnlyOnce(t *testing.T) {
	ctx := context.Background()
	factory := newFactory()
	store := service.NewDocumentStore(factory)

	doc := &entity.Document{UserId: uuid.New(), OriginalFilename: "a.txt", Status: entity.DocumentStatusPending}
	require.NoError(t, factory.NewUnitOfWork(ctx).DocumentRepository().Create(ctx, doc))

	ok, err := store.MarkProcessing(ctx, doc.Id)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.MarkProcessing(ctx, doc.Id)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := store.Get(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentStatusProcessing, got.Status)

	got.Status = entity.DocumentStatusCompleted
	got.ChunkCount = 4
	saved, err := store.SaveIfStatus(ctx, got, entity.DocumentStatusPending)
	require.NoError(t, err)
	assert.False(t, saved, "stale expected status must not overwrite")

	saved, err = store.SaveIfStatus(ctx, got, entity.DocumentStatusProcessing)
	require.NoError(t, err)
	assert.True(t, saved)

	got, err = store.Get(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, 4, got.ChunkCount)
	assert.Equal(t, entity.DocumentStatusCompleted, got.Status)

	missing, err := store.Get(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDocumentStoreDoesNotResurrectDeletedDocument(t *testing.T) {
	ctx := context.Background()
	factory := newFactory()
	store := service.NewDocumentStore(factory)

	doc := &entity.Document{UserId: uuid.New(), OriginalFilename: "a.txt", Status: entity.DocumentStatusPending}
	require.NoError(t, factory.NewUnitOfWork(ctx).DocumentRepository().Create(ctx, doc))
	ok, err := store.MarkProcessing(ctx, doc.Id)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, factory.NewUnitOfWork(ctx).DocumentRepository().Delete(ctx, doc.Id))

	doc.Status = entity.DocumentStatusCompleted
	saved, err := store.SaveIfStatus(ctx, doc, entity.DocumentStatusProcessing)
	require.NoError(t, err)
	assert.False(t, saved)

	got, err := store.Get(ctx, doc.Id)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPublisherPayloadShape(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 1}, watermill.NopLogger{})
	defer pubSub.Close()

	msgs, err := pubSub.Subscribe(context.Background(), "jobs")
	require.NoError(t, err)

	id := uuid.New()
	require.NoError(t, service.NewPublisherService("jobs", pubSub).PublishIngest(context.Background(), dto.IngestDocumentMessage{DocumentId: id, StagedPath: "p"}))

	msg := <-msgs
	msg.Ack()
	var payload map[string]string
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	assert.Equal(t, map[string]string{"document_id": id.String(), "staged_path": "p"}, payload)
}
