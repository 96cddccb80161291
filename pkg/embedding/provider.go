package embedding

import (
	"context"
	"errors"
	"math"
)

var (
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrModelUnavailable  = errors.New("embedding model unavailable")
)

// EmbeddingProvider turns text into fixed-length vectors.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelName() string
}

// normalizeVector normalizes a vector to unit length (magnitude = 1).
// Zero vectors are returned unchanged.
func normalizeVector(vec []float32) []float32 {
	var magnitude float64
	for _, v := range vec {
		magnitude += float64(v) * float64(v)
	}
	magnitude = math.Sqrt(magnitude)

	if magnitude == 0 {
		return vec
	}

	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = float32(float64(v) / magnitude)
	}
	return normalized
}
