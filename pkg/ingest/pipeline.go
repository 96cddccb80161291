// Package ingest runs a staged upload through extraction, chunking, embedding
// and indexing, recording the outcome on the document record.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"docuchat-be/internal/entity"
	"docuchat-be/internal/pkg/logger"
	"docuchat-be/pkg/chunking"
	"docuchat-be/pkg/embedding"
	"docuchat-be/pkg/extract"
	"docuchat-be/pkg/lock"
	"docuchat-be/pkg/staging"
	"docuchat-be/pkg/vectorstore"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultEmbedTimeout = 90 * time.Second
	DefaultLeaseTTL     = 10 * time.Minute
)

var (
	ErrAlreadyProcessing = errors.New("document is already being processed")
	ErrEmbeddingTimeout  = errors.New("embedding timed out")
	ErrDocumentNotFound  = errors.New("document not found")
)

var tracer = otel.Tracer("docuchat-be/ingest")

// DocumentStore is the slice of the record store the pipeline needs. Get
// returns nil, nil when the record does not exist.
type DocumentStore interface {
	Get(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	// MarkProcessing moves a Pending document to Processing and reports
	// whether this caller made the transition.
	MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error)
	// SaveIfStatus writes doc only while the stored record is still in the
	// expected status. A deleted record reports false.
	SaveIfStatus(ctx context.Context, doc *entity.Document, expected entity.DocumentStatus) (bool, error)
}

type Extractor interface {
	Extract(ctx context.Context, path, fileType string) (*extract.Result, error)
}

// StatusNotifier is told about every status change. It must not block.
type StatusNotifier interface {
	DocumentStatusChanged(ctx context.Context, doc *entity.Document)
}

type nopNotifier struct{}

func (nopNotifier) DocumentStatusChanged(context.Context, *entity.Document) {}

type Dependencies struct {
	Store     DocumentStore
	Extractor Extractor
	Chunker   *chunking.Chunker
	Embedder  embedding.EmbeddingProvider
	Index     vectorstore.Index
	Stager    staging.Stager
	Locker    lock.Locker
	Notifier  StatusNotifier
	Logger    logger.ILogger
}

type Pipeline struct {
	Dependencies
	embedTimeout time.Duration
	leaseTTL     time.Duration
}

type Option func(*Pipeline)

func WithEmbedTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.embedTimeout = d
		}
	}
}

func WithLeaseTTL(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.leaseTTL = d
		}
	}
}

func NewPipeline(deps Dependencies, opts ...Option) *Pipeline {
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	if deps.Chunker == nil {
		deps.Chunker = chunking.New()
	}
	if deps.Locker == nil {
		deps.Locker = lock.NewMemoryLocker()
	}
	p := &Pipeline{
		Dependencies: deps,
		embedTimeout: DefaultEmbedTimeout,
		leaseTTL:     DefaultLeaseTTL,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process makes a single attempt at ingesting documentID from stagedPath.
// Only the caller that moves the record out of Pending does any work; others
// get ErrAlreadyProcessing and leave the record and the staged file alone.
func (p *Pipeline) Process(ctx context.Context, documentID uuid.UUID, stagedPath string) error {
	ctx, span := tracer.Start(ctx, "ingest.process")
	defer span.End()
	span.SetAttributes(attribute.String("document.id", documentID.String()))

	release, ok, err := p.Locker.TryAcquire(ctx, "ingest:"+documentID.String(), p.leaseTTL)
	if err != nil {
		return p.fail(ctx, documentID, stagedPath, fmt.Errorf("acquire lease: %w", err))
	}
	if !ok {
		return ErrAlreadyProcessing
	}
	defer release()

	moved, err := p.Store.MarkProcessing(ctx, documentID)
	if err != nil {
		return p.fail(ctx, documentID, stagedPath, err)
	}
	if !moved {
		p.Logger.Warn(logger.ModuleIngest, "Document is not pending, skipping", map[string]interface{}{
			"document_id": documentID.String(),
		})
		return ErrAlreadyProcessing
	}

	doc, err := p.Store.Get(ctx, documentID)
	if err != nil {
		return p.fail(ctx, documentID, stagedPath, err)
	}
	if doc == nil {
		p.removeStaged(stagedPath)
		return ErrDocumentNotFound
	}
	p.Notifier.DocumentStatusChanged(ctx, doc)

	started := time.Now()
	if err := p.run(ctx, doc, stagedPath); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return p.fail(ctx, documentID, stagedPath, err)
	}

	saved, err := p.Store.SaveIfStatus(ctx, doc, entity.DocumentStatusProcessing)
	if err != nil {
		return p.fail(ctx, documentID, stagedPath, err)
	}
	if !saved {
		// Deleted mid-flight: the vectors written above belong to nobody.
		p.discard(ctx, documentID, stagedPath)
		return ErrDocumentNotFound
	}
	p.removeStaged(stagedPath)
	p.Notifier.DocumentStatusChanged(ctx, doc)

	p.Logger.Info(logger.ModuleIngest, "Document processed", map[string]interface{}{
		"document_id": doc.Id.String(),
		"chunks":      doc.ChunkCount,
		"duration_ms": time.Since(started).Milliseconds(),
	})
	return nil
}

// run mutates doc in memory only. The caller persists it on success.
func (p *Pipeline) run(ctx context.Context, doc *entity.Document, stagedPath string) error {
	extracted, err := p.Extractor.Extract(ctx, stagedPath, doc.FileType)
	if err != nil {
		return err
	}

	chunks := p.Chunker.Chunk(extracted.Text, doc.Id.String(), doc.Filename, extracted.Pages)
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}

	vectors, err := p.embed(ctx, texts)
	if err != nil {
		return err
	}

	owner := doc.UserId.String()
	for i := range chunks {
		chunks[i].Metadata.UserID = owner
	}
	if _, err := p.Index.Upsert(ctx, chunks, vectors); err != nil {
		return err
	}

	totalPages := extracted.TotalPages()
	collection := p.Index.CollectionName()
	doc.Status = entity.DocumentStatusCompleted
	doc.ChunkCount = len(chunks)
	doc.TotalPages = &totalPages
	doc.CollectionId = &collection
	doc.Metadata = extracted.Metadata
	return nil
}

// embed runs the batch on its own goroutine so a stuck model cannot hold the
// worker past the timeout.
func (p *Pipeline) embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, p.embedTimeout)
	defer cancel()

	type result struct {
		vectors [][]float32
		err     error
	}
	done := make(chan result, 1)
	go func() {
		vectors, err := p.Embedder.EmbedBatch(ctx, texts)
		done <- result{vectors, err}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrEmbeddingTimeout, p.embedTimeout)
		}
		return r.vectors, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrEmbeddingTimeout, p.embedTimeout)
		}
		return nil, ctx.Err()
	}
}

// fail reloads the record so nothing from the aborted attempt is persisted,
// then stores the failure. The original cause is returned.
func (p *Pipeline) fail(ctx context.Context, id uuid.UUID, stagedPath string, cause error) error {
	defer p.removeStaged(stagedPath)

	p.Logger.Error(logger.ModuleIngest, "Document processing failed", map[string]interface{}{
		"document_id": id.String(),
		"error":       cause,
	})

	// the request context may already be done; the failure must still land
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	doc, err := p.Store.Get(saveCtx, id)
	if err != nil || doc == nil {
		p.Logger.Error(logger.ModuleIngest, "Could not reload document to record failure", map[string]interface{}{
			"document_id": id.String(),
			"error":       err,
		})
		return cause
	}

	expected := doc.Status
	doc.Status = entity.DocumentStatusFailed
	if doc.Metadata == nil {
		doc.Metadata = map[string]interface{}{}
	}
	doc.Metadata[entity.MetadataProcessingError] = strings.TrimSpace(cause.Error())
	saved, err := p.Store.SaveIfStatus(saveCtx, doc, expected)
	if err != nil {
		p.Logger.Error(logger.ModuleIngest, "Could not record document failure", map[string]interface{}{
			"document_id": id.String(),
			"error":       err,
		})
		return cause
	}
	if !saved {
		return cause
	}
	p.Notifier.DocumentStatusChanged(saveCtx, doc)
	return cause
}

// discard drops everything an attempt produced for a record that no longer exists.
func (p *Pipeline) discard(ctx context.Context, id uuid.UUID, stagedPath string) {
	defer p.removeStaged(stagedPath)

	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := p.Index.DeleteByDocument(cleanupCtx, id.String()); err != nil {
		p.Logger.Error(logger.ModuleIngest, "Could not remove vectors of deleted document", map[string]interface{}{
			"document_id": id.String(),
			"error":       err,
		})
		return
	}
	p.Logger.Warn(logger.ModuleIngest, "Document deleted while processing, vectors discarded", map[string]interface{}{
		"document_id": id.String(),
	})
}

func (p *Pipeline) removeStaged(path string) {
	if err := p.Stager.Remove(path); err != nil {
		p.Logger.Warn(logger.ModuleIngest, "Could not remove staged file", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
	}
}
