package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"docuchat-be/internal/entity"
	"docuchat-be/internal/pkg/logger"
	"docuchat-be/pkg/embedding"
	"docuchat-be/pkg/extract"
	"docuchat-be/pkg/lock"
	"docuchat-be/pkg/staging"
	"docuchat-be/pkg/vectorstore"
	"docuchat-be/pkg/vectorstore/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryDocuments struct {
	mu   sync.Mutex
	docs map[uuid.UUID]entity.Document
}

func newMemoryDocuments(docs ...entity.Document) *memoryDocuments {
	s := &memoryDocuments{docs: map[uuid.UUID]entity.Document{}}
	for _, d := range docs {
		s.docs[d.Id] = d
	}
	return s
}

func (s *memoryDocuments) Get(_ context.Context, id uuid.UUID) (*entity.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return nil, nil
	}
	meta := map[string]interface{}{}
	for k, v := range d.Metadata {
		meta[k] = v
	}
	d.Metadata = meta
	return &d, nil
}

func (s *memoryDocuments) MarkProcessing(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok || d.Status != entity.DocumentStatusPending {
		return false, nil
	}
	d.Status = entity.DocumentStatusProcessing
	s.docs[id] = d
	return true, nil
}

func (s *memoryDocuments) SaveIfStatus(_ context.Context, doc *entity.Document, expected entity.DocumentStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.docs[doc.Id]
	if !ok || current.Status != expected {
		return false, nil
	}
	s.docs[doc.Id] = *doc
	return true, nil
}

func (s *memoryDocuments) put(doc entity.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.Id] = doc
}

func (s *memoryDocuments) delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
}

func (s *memoryDocuments) status(id uuid.UUID) entity.DocumentStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs[id].Status
}

type recordingNotifier struct {
	mu       sync.Mutex
	statuses []entity.DocumentStatus
}

func (n *recordingNotifier) DocumentStatusChanged(_ context.Context, doc *entity.Document) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, doc.Status)
}

// blockingEmbedder never answers until released.
type blockingEmbedder struct {
	*embedding.HashingProvider
	release chan struct{}
}

func (b *blockingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	<-b.release
	return b.HashingProvider.EmbedBatch(ctx, texts)
}

// hookedEmbedder runs before each batch, standing in for a concurrent user action.
type hookedEmbedder struct {
	*embedding.HashingProvider
	before func()
}

func (h *hookedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	h.before()
	return h.HashingProvider.EmbedBatch(ctx, texts)
}

type failingExtractor struct{ err error }

func (f failingExtractor) Extract(context.Context, string, string) (*extract.Result, error) {
	return nil, f.err
}

type fixture struct {
	store    *memoryDocuments
	index    *memory.Store
	notifier *recordingNotifier
	doc      entity.Document
	path     string
	deps     Dependencies
}

func newFixture(t *testing.T, content, fileType string) *fixture {
	t.Helper()
	stager, err := staging.NewLocalStager(t.TempDir())
	require.NoError(t, err)
	path, size, err := stager.Save(context.Background(), strings.NewReader(content), "upload"+fileType)
	require.NoError(t, err)

	doc := entity.Document{
		Id:               uuid.New(),
		UserId:           uuid.New(),
		Filename:         "sky" + fileType,
		OriginalFilename: "sky" + fileType,
		FileSize:         size,
		FileType:         fileType,
		Status:           entity.DocumentStatusPending,
	}
	f := &fixture{
		store:    newMemoryDocuments(doc),
		index:    memory.NewStore(vectorstore.Options{Dimension: 384}),
		notifier: &recordingNotifier{},
		doc:      doc,
		path:     path,
	}
	f.deps = Dependencies{
		Store:     f.store,
		Extractor: extract.New(logger.NewNopLogger()),
		Embedder:  embedding.NewHashingProvider(384),
		Index:     f.index,
		Stager:    stager,
		Locker:    lock.NewMemoryLocker(),
		Notifier:  f.notifier,
		Logger:    logger.NewNopLogger(),
	}
	return f
}

func assertRemoved(t *testing.T, path string) {
	t.Helper()
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "staged file %s should be removed", filepath.Base(path))
}

func TestPipeline_ProcessesTextDocument(t *testing.T) {
	f := newFixture(t, "The sky is blue. Grass is green.", ".txt")
	p := NewPipeline(f.deps)

	require.NoError(t, p.Process(context.Background(), f.doc.Id, f.path))

	got, _ := f.store.Get(context.Background(), f.doc.Id)
	assert.Equal(t, entity.DocumentStatusCompleted, got.Status)
	assert.Equal(t, 1, got.ChunkCount)
	require.NotNil(t, got.TotalPages)
	assert.Equal(t, 1, *got.TotalPages)
	require.NotNil(t, got.CollectionId)
	assert.Equal(t, "documents", *got.CollectionId)
	assert.Empty(t, got.ProcessingError())
	assertRemoved(t, f.path)

	q, _ := embedding.NewHashingProvider(384).Embed(context.Background(), "What color is the sky?")
	hits, err := f.index.Search(context.Background(), q, vectorstore.Filter{UserID: f.doc.UserId.String()}, 5, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "The sky is blue. Grass is green.", hits[0].Text)
	assert.Equal(t, 1, hits[0].Metadata.Page)
	assert.Equal(t, f.doc.Id.String(), hits[0].Metadata.DocumentID)

	assert.Equal(t, []entity.DocumentStatus{entity.DocumentStatusProcessing, entity.DocumentStatusCompleted}, f.notifier.statuses)
}

func TestPipeline_ExtractionFailureMarksFailed(t *testing.T) {
	f := newFixture(t, "irrelevant", ".txt")
	f.deps.Extractor = failingExtractor{err: errors.New("pdf is encrypted")}
	p := NewPipeline(f.deps)

	err := p.Process(context.Background(), f.doc.Id, f.path)
	require.Error(t, err)

	got, _ := f.store.Get(context.Background(), f.doc.Id)
	assert.Equal(t, entity.DocumentStatusFailed, got.Status)
	assert.Equal(t, "pdf is encrypted", got.ProcessingError())
	assert.Zero(t, got.ChunkCount)
	assert.Nil(t, got.CollectionId)
	assert.Zero(t, f.index.Len())
	assertRemoved(t, f.path)
}

func TestPipeline_EmbeddingTimeout(t *testing.T) {
	f := newFixture(t, "The sky is blue.", ".txt")
	blocker := &blockingEmbedder{HashingProvider: embedding.NewHashingProvider(384), release: make(chan struct{})}
	t.Cleanup(func() { close(blocker.release) })
	f.deps.Embedder = blocker
	p := NewPipeline(f.deps, WithEmbedTimeout(30*time.Millisecond))

	started := time.Now()
	err := p.Process(context.Background(), f.doc.Id, f.path)
	assert.ErrorIs(t, err, ErrEmbeddingTimeout)
	assert.Less(t, time.Since(started), 2*time.Second)

	got, _ := f.store.Get(context.Background(), f.doc.Id)
	assert.Equal(t, entity.DocumentStatusFailed, got.Status)
	assert.Contains(t, got.ProcessingError(), "embedding timed out")
	assertRemoved(t, f.path)
}

func TestPipeline_DeletedWhileEmbeddingLeavesNothingBehind(t *testing.T) {
	f := newFixture(t, "The sky is blue. Grass is green.", ".txt")
	f.deps.Embedder = &hookedEmbedder{
		HashingProvider: embedding.NewHashingProvider(384),
		before: func() {
			f.store.delete(f.doc.Id)
			require.NoError(t, f.index.DeleteByDocument(context.Background(), f.doc.Id.String()))
		},
	}
	p := NewPipeline(f.deps)

	err := p.Process(context.Background(), f.doc.Id, f.path)
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	got, err := f.store.Get(context.Background(), f.doc.Id)
	require.NoError(t, err)
	assert.Nil(t, got, "the record must not be recreated")
	assert.Zero(t, f.index.Len(), "vectors written after the delete must be discarded")
	assertRemoved(t, f.path)
	assert.Equal(t, []entity.DocumentStatus{entity.DocumentStatusProcessing}, f.notifier.statuses)
}

func TestPipeline_OnlyPendingDocumentsAreProcessed(t *testing.T) {
	f := newFixture(t, "The sky is blue.", ".txt")
	f.doc.Status = entity.DocumentStatusProcessing
	f.store.put(f.doc)
	p := NewPipeline(f.deps)

	err := p.Process(context.Background(), f.doc.Id, f.path)
	assert.ErrorIs(t, err, ErrAlreadyProcessing)
	assert.Equal(t, entity.DocumentStatusProcessing, f.store.status(f.doc.Id))
	assert.FileExists(t, f.path, "the in-flight attempt still owns the staged file")
	assert.Empty(t, f.notifier.statuses)
}

func TestPipeline_LeaseHeldElsewhere(t *testing.T) {
	f := newFixture(t, "The sky is blue.", ".txt")
	locker := lock.NewMemoryLocker()
	_, ok, _ := locker.TryAcquire(context.Background(), "ingest:"+f.doc.Id.String(), time.Minute)
	require.True(t, ok)
	f.deps.Locker = locker
	p := NewPipeline(f.deps)

	err := p.Process(context.Background(), f.doc.Id, f.path)
	assert.ErrorIs(t, err, ErrAlreadyProcessing)
	assert.Equal(t, entity.DocumentStatusPending, f.store.status(f.doc.Id))
}

type brokenLocker struct{ err error }

func (l brokenLocker) TryAcquire(context.Context, string, time.Duration) (func(), bool, error) {
	return nil, false, l.err
}

func TestPipeline_LeaseBackendErrorMarksPendingDocumentFailed(t *testing.T) {
	f := newFixture(t, "The sky is blue.", ".txt")
	f.deps.Locker = brokenLocker{err: errors.New("redis: connection refused")}
	p := NewPipeline(f.deps)

	err := p.Process(context.Background(), f.doc.Id, f.path)
	require.Error(t, err)

	got, _ := f.store.Get(context.Background(), f.doc.Id)
	assert.Equal(t, entity.DocumentStatusFailed, got.Status, "goes straight from pending to failed")
	assert.Contains(t, got.ProcessingError(), "acquire lease")
	assert.Equal(t, []entity.DocumentStatus{entity.DocumentStatusFailed}, f.notifier.statuses)
	assertRemoved(t, f.path)
}

func TestPipeline_ConcurrentDeliveriesProcessOnce(t *testing.T) {
	f := newFixture(t, "The sky is blue. Grass is green.", ".txt")
	p := NewPipeline(f.deps)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = p.Process(context.Background(), f.doc.Id, f.path)
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrAlreadyProcessing)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, f.index.Len())
}

func TestPipeline_EmptyDocumentCompletesWithoutChunks(t *testing.T) {
	f := newFixture(t, "   \n\n", ".md")
	p := NewPipeline(f.deps)

	require.NoError(t, p.Process(context.Background(), f.doc.Id, f.path))
	got, _ := f.store.Get(context.Background(), f.doc.Id)
	assert.Equal(t, entity.DocumentStatusCompleted, got.Status)
	assert.Zero(t, got.ChunkCount)
}
