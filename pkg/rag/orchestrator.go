// Package rag answers questions from a user's indexed documents.
package rag

import (
	"context"
	"errors"
	"math"
	"time"

	"docuchat-be/internal/entity"
	"docuchat-be/internal/pkg/logger"
	"docuchat-be/pkg/embedding"
	"docuchat-be/pkg/llm"
	"docuchat-be/pkg/rag/prompt"
	"docuchat-be/pkg/vectorstore"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// NoResultsAnswer is returned without calling the model when retrieval finds nothing.
const NoResultsAnswer = "I couldn't find any relevant information in the documents to answer your question."

const previewLength = 200

var tracer = otel.Tracer("docuchat-be/rag")

type Request struct {
	Question    string
	DocumentIDs []string
	History     []llm.Message
	UserID      string
}

type Result struct {
	Answer  string
	Sources []entity.MessageSource
	Context string
}

type StreamEventKind string

const (
	StreamText    StreamEventKind = "text"
	StreamSources StreamEventKind = "sources"
)

// StreamEvent is either a text fragment or the final citation list.
type StreamEvent struct {
	Kind    StreamEventKind        `json:"type"`
	Text    string                 `json:"text,omitempty"`
	Sources []entity.MessageSource `json:"sources,omitempty"`
}

type Config struct {
	TopK                int
	SimilarityThreshold float64
	// HistoryWindow is how many trailing history messages reach the model;
	// negative sends all of them.
	HistoryWindow int
	Temperature   float64
	MaxTokens     int
}

type Orchestrator struct {
	embedder  embedding.EmbeddingProvider
	index     vectorstore.Index
	generator llm.LLMProvider
	logger    logger.ILogger
	cfg       Config
}

func NewOrchestrator(embedder embedding.EmbeddingProvider, index vectorstore.Index, generator llm.LLMProvider, cfg Config, log logger.ILogger) *Orchestrator {
	if cfg.TopK <= 0 {
		cfg.TopK = vectorstore.DefaultLimit
	}
	return &Orchestrator{
		embedder:  embedder,
		index:     index,
		generator: generator,
		logger:    log,
		cfg:       cfg,
	}
}

func (o *Orchestrator) retrieve(ctx context.Context, req Request) ([]vectorstore.Hit, error) {
	ctx, span := tracer.Start(ctx, "rag.retrieve")
	defer span.End()

	vector, err := o.embedder.Embed(ctx, req.Question)
	if err != nil {
		return nil, err
	}
	hits, err := o.index.Search(ctx, vector, vectorstore.Filter{
		UserID:      req.UserID,
		DocumentIDs: req.DocumentIDs,
	}, o.cfg.TopK, o.cfg.SimilarityThreshold)
	if errors.Is(err, vectorstore.ErrZeroVector) {
		// nothing in the question to match on, e.g. punctuation only
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("rag.hits", len(hits)))
	o.logger.Debug(logger.ModuleRAG, "Retrieved chunks", map[string]interface{}{
		"user_id":      req.UserID,
		"document_ids": req.DocumentIDs,
		"hits":         len(hits),
	})
	return hits, nil
}

func (o *Orchestrator) options() []llm.Option {
	opts := []llm.Option{llm.WithTemperature(o.cfg.Temperature)}
	if o.cfg.MaxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(o.cfg.MaxTokens))
	}
	return opts
}

func (o *Orchestrator) Query(ctx context.Context, req Request) (*Result, error) {
	ctx, span := tracer.Start(ctx, "rag.query")
	defer span.End()

	hits, err := o.retrieve(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return &Result{Answer: NoResultsAnswer, Sources: []entity.MessageSource{}}, nil
	}

	builder := prompt.NewContextBuilder(hits, req.Question, req.History, o.cfg.HistoryWindow)
	started := time.Now()
	answer, err := o.generator.Chat(ctx, builder.Messages(), o.options()...)
	if err != nil {
		return nil, err
	}
	o.logger.Info(logger.ModuleRAG, "Answer generated", map[string]interface{}{
		"user_id":     req.UserID,
		"sources":     len(hits),
		"duration_ms": time.Since(started).Milliseconds(),
	})

	return &Result{
		Answer:  answer,
		Sources: Sources(hits),
		Context: builder.Context(),
	}, nil
}

// Stream forwards fragments as the model yields them, then one sources event.
// When retrieval finds nothing a single canned text event is sent.
func (o *Orchestrator) Stream(ctx context.Context, req Request, emit func(StreamEvent) error) error {
	ctx, span := tracer.Start(ctx, "rag.stream")
	defer span.End()

	hits, err := o.retrieve(ctx, req)
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		return emit(StreamEvent{Kind: StreamText, Text: NoResultsAnswer})
	}

	builder := prompt.NewContextBuilder(hits, req.Question, req.History, o.cfg.HistoryWindow)
	err = o.generator.ChatStream(ctx, builder.Messages(), func(fragment string) error {
		return emit(StreamEvent{Kind: StreamText, Text: fragment})
	}, o.options()...)
	if err != nil {
		return err
	}
	return emit(StreamEvent{Kind: StreamSources, Sources: Sources(hits)})
}

// Sources converts hits to citations with a short preview and a score rounded
// to three decimals.
func Sources(hits []vectorstore.Hit) []entity.MessageSource {
	sources := make([]entity.MessageSource, len(hits))
	for i, h := range hits {
		sources[i] = entity.MessageSource{
			DocumentId:     h.Metadata.DocumentID,
			Filename:       h.Metadata.Filename,
			Page:           h.Metadata.Page,
			ChunkText:      preview(h.Text),
			RelevanceScore: math.Round(h.Score*1000) / 1000,
		}
	}
	return sources
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) > previewLength {
		runes = runes[:previewLength]
	}
	return string(runes) + "..."
}
