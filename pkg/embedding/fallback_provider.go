package embedding

import (
	"context"
	"sync"
	"time"

	"docuchat-be/internal/pkg/logger"
)

// Prober is implemented by providers that can check readiness before first use.
type Prober interface {
	Probe(ctx context.Context) error
}

// loadTimeout bounds the one-time readiness check of the primary model.
const loadTimeout = 30 * time.Second

// FallbackProvider loads the primary model lazily on first use. If loading fails
// it switches to the fallback for the rest of the process lifetime. Errors from a
// successfully loaded primary are returned as-is.
type FallbackProvider struct {
	primary  EmbeddingProvider
	fallback EmbeddingProvider
	logger   logger.ILogger

	once   sync.Once
	active EmbeddingProvider
}

var _ EmbeddingProvider = (*FallbackProvider)(nil)

func NewFallbackProvider(primary, fallback EmbeddingProvider, log logger.ILogger) *FallbackProvider {
	return &FallbackProvider{
		primary:  primary,
		fallback: fallback,
		logger:   log,
	}
}

func (p *FallbackProvider) load(ctx context.Context) EmbeddingProvider {
	p.once.Do(func() {
		if p.primary == nil {
			p.active = p.fallback
			return
		}
		if p.primary.Dimensions() != p.fallback.Dimensions() {
			p.logger.Warn(logger.ModuleEmbedding, "Primary model dimension differs from configured dimension, using fallback", map[string]interface{}{
				"model":    p.primary.ModelName(),
				"got":      p.primary.Dimensions(),
				"expected": p.fallback.Dimensions(),
			})
			p.active = p.fallback
			return
		}
		if prober, ok := p.primary.(Prober); ok {
			// The outcome is sticky, so the caller's cancellation must not decide it.
			loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
			err := prober.Probe(loadCtx)
			cancel()
			if err != nil {
				p.logger.Warn(logger.ModuleEmbedding, "Embedding model load failed, using fallback", map[string]interface{}{
					"model": p.primary.ModelName(),
					"error": err.Error(),
				})
				p.active = p.fallback
				return
			}
		}
		p.logger.Info(logger.ModuleEmbedding, "Embedding model loaded", map[string]interface{}{"model": p.primary.ModelName()})
		p.active = p.primary
	})
	return p.active
}

// Degraded reports whether the fallback is in use. It forces the lazy load.
func (p *FallbackProvider) Degraded(ctx context.Context) bool {
	return p.load(ctx) == p.fallback
}

func (p *FallbackProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return p.load(ctx).Embed(ctx, text)
}

func (p *FallbackProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return p.load(ctx).EmbedBatch(ctx, texts)
}

func (p *FallbackProvider) Dimensions() int {
	return p.fallback.Dimensions()
}

// ModelName forces the lazy load so the reported name matches what embeds.
func (p *FallbackProvider) ModelName() string {
	return p.load(context.Background()).ModelName()
}
