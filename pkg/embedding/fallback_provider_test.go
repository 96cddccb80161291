package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"docuchat-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	dim      int
	probeErr error
	probes   atomic.Int32
	embedErr error
}

func (s *stubProvider) Probe(ctx context.Context) error {
	s.probes.Add(1)
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.probeErr
}

func (s *stubProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.embedErr != nil {
		return nil, s.embedErr
	}
	v := make([]float32, s.dim)
	v[0] = 1
	return v, nil
}

func (s *stubProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v, err := s.Embed(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *stubProvider) Dimensions() int   { return s.dim }
func (s *stubProvider) ModelName() string { return "stub" }

func TestFallbackProvider_UsesPrimaryWhenProbeSucceeds(t *testing.T) {
	primary := &stubProvider{dim: 8}
	p := NewFallbackProvider(primary, NewHashingProvider(8), logger.NewNopLogger())

	vec, err := p.Embed(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, float32(1), vec[0])
	assert.False(t, p.Degraded(context.Background()))
	assert.Equal(t, "stub", p.ModelName())
}

func TestFallbackProvider_SwitchesPermanentlyOnLoadFailure(t *testing.T) {
	primary := &stubProvider{dim: 8, probeErr: errors.New("connection refused")}
	fallback := NewHashingProvider(8)
	p := NewFallbackProvider(primary, fallback, logger.NewNopLogger())

	for i := 0; i < 3; i++ {
		vec, err := p.Embed(context.Background(), "hello")
		require.NoError(t, err)
		want, _ := fallback.Embed(context.Background(), "hello")
		assert.Equal(t, want, vec)
	}
	assert.Equal(t, int32(1), primary.probes.Load(), "model load is attempted once")
	assert.True(t, p.Degraded(context.Background()))
	assert.Equal(t, 8, p.Dimensions())
}

func TestFallbackProvider_CancelledFirstCallerKeepsPrimary(t *testing.T) {
	primary := &stubProvider{dim: 8}
	p := NewFallbackProvider(primary, NewHashingProvider(8), logger.NewNopLogger())

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, _ = p.Embed(cancelled, "first request gave up")

	assert.False(t, p.Degraded(context.Background()))
	vec, err := p.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, float32(1), vec[0], "primary model stays active")
}

func TestFallbackProvider_DimensionMismatchFallsBack(t *testing.T) {
	primary := &stubProvider{dim: 768}
	p := NewFallbackProvider(primary, NewHashingProvider(384), logger.NewNopLogger())

	vec, err := p.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, vec, 384)
	assert.Zero(t, primary.probes.Load())
}

func TestFallbackProvider_RuntimeErrorsPropagate(t *testing.T) {
	boom := errors.New("model crashed")
	primary := &stubProvider{dim: 8, embedErr: boom}
	p := NewFallbackProvider(primary, NewHashingProvider(8), logger.NewNopLogger())

	_, err := p.EmbedBatch(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, boom)
}

func TestOllamaProvider_EmbedBatch(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/api/embed", r.URL.Path)
		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		resp := ollamaEmbedResponse{}
		for range req.Input {
			resp.Embeddings = append(resp.Embeddings, []float64{3, 4, 0})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "all-minilm", 3)
	texts := make([]string, 70)
	for i := range texts {
		texts[i] = "chunk"
	}

	vectors, err := p.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, 70)
	assert.InDelta(t, 0.6, vectors[69][0], 1e-6)
	assert.InDelta(t, 0.8, vectors[69][1], 1e-6)
	assert.Equal(t, int32(3), calls.Load())
}

func TestOllamaProvider_RejectsWrongDimension(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float64{{1, 2}}})
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "nomic-embed-text", 384)
	err := p.Probe(context.Background())
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
