package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestHashingProvider_KnownBuckets(t *testing.T) {
	p := NewHashingProvider(384)

	vec, err := p.Embed(context.Background(), "hello")
	require.NoError(t, err)
	require.Len(t, vec, 384)
	assert.InDelta(t, -1.0, vec[274], 1e-6)

	vec, err = p.Embed(context.Background(), "Sky")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, vec[243], 1e-6)

	vec, err = p.Embed(context.Background(), "hello, sky!")
	require.NoError(t, err)
	assert.InDelta(t, -1/math.Sqrt2, vec[274], 1e-6)
	assert.InDelta(t, 1/math.Sqrt2, vec[243], 1e-6)
}

func TestHashingProvider_Properties(t *testing.T) {
	p := NewHashingProvider(384)
	ctx := context.Background()

	a, _ := p.Embed(ctx, "The sky is blue. Grass is green.")
	b, _ := p.Embed(ctx, "the SKY is blue grass is GREEN")
	assert.Equal(t, a, b, "tokenization ignores case and punctuation")
	assert.InDelta(t, 1.0, norm(a), 1e-5)

	empty, _ := p.Embed(ctx, "  ... !!! ")
	assert.Len(t, empty, 384)
	assert.Zero(t, norm(empty))
}

func TestHashingProvider_EmbedBatchPreservesOrder(t *testing.T) {
	p := NewHashingProvider(64)
	ctx := context.Background()

	texts := []string{"alpha", "beta", "gamma"}
	batch, err := p.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, batch, 3)
	for i, text := range texts {
		single, _ := p.Embed(ctx, text)
		assert.Equal(t, single, batch[i])
		assert.Len(t, batch[i], p.Dimensions())
	}
}

func TestHashingProvider_EmbedBatchHonoursCancellation(t *testing.T) {
	p := NewHashingProvider(64)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.EmbedBatch(ctx, []string{"a"})
	assert.ErrorIs(t, err, context.Canceled)
}
