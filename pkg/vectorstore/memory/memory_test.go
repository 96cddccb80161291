package memory

import (
	"context"
	"testing"

	"docuchat-be/pkg/chunking"
	"docuchat-be/pkg/vectorstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunk(text, docID, userID string, idx int) chunking.Chunk {
	return chunking.Chunk{
		Text: text,
		Metadata: chunking.Metadata{
			DocumentID: docID,
			Filename:   docID + ".txt",
			Page:       1,
			TotalPages: 1,
			ChunkIndex: idx,
			UserID:     userID,
		},
	}
}

func seeded(t *testing.T) *Store {
	t.Helper()
	s := NewStore(vectorstore.Options{Dimension: 3})
	n, err := s.Upsert(context.Background(),
		[]chunking.Chunk{
			chunk("alice close", "doc-a", "alice", 0),
			chunk("alice far", "doc-a", "alice", 1),
			chunk("alice other doc", "doc-b", "alice", 0),
			chunk("bob close", "doc-c", "bob", 0),
		},
		[][]float32{{1, 0, 0}, {0, 1, 0}, {0.9, 0.1, 0}, {1, 0, 0}},
	)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	return s
}

func TestStore_SearchIsTenantScoped(t *testing.T) {
	s := seeded(t)

	hits, err := s.Search(context.Background(), []float32{1, 0, 0}, vectorstore.Filter{UserID: "alice"}, 10, 0)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	for _, h := range hits {
		assert.Equal(t, "alice", h.Metadata.UserID)
	}
	assert.Equal(t, "alice close", hits[0].Text)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
	assert.GreaterOrEqual(t, hits[1].Score, hits[2].Score)
}

func TestStore_SearchFilters(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		filter    vectorstore.Filter
		limit     int
		threshold float64
		want      []string
	}{
		{"document allow-list", vectorstore.Filter{UserID: "alice", DocumentIDs: []string{"doc-b"}}, 5, 0, []string{"alice other doc"}},
		{"threshold drops orthogonal", vectorstore.Filter{UserID: "alice"}, 5, 0.7, []string{"alice close", "alice other doc"}},
		{"limit truncates", vectorstore.Filter{UserID: "alice"}, 1, 0, []string{"alice close"}},
		{"unknown tenant", vectorstore.Filter{UserID: "carol"}, 5, 0, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits, err := s.Search(ctx, []float32{1, 0, 0}, tt.filter, tt.limit, tt.threshold)
			require.NoError(t, err)
			got := make([]string, 0, len(hits))
			for _, h := range hits {
				got = append(got, h.Text)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStore_Errors(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	_, err := s.Search(ctx, []float32{1, 0, 0}, vectorstore.Filter{}, 5, 0)
	assert.ErrorIs(t, err, vectorstore.ErrMissingTenant)

	_, err = s.Search(ctx, []float32{1, 0}, vectorstore.Filter{UserID: "alice"}, 5, 0)
	assert.ErrorIs(t, err, vectorstore.ErrDimensionMismatch)

	_, err = s.Search(ctx, []float32{0, 0, 0}, vectorstore.Filter{UserID: "alice"}, 5, 0)
	assert.ErrorIs(t, err, vectorstore.ErrZeroVector)

	_, err = s.Upsert(ctx, []chunking.Chunk{chunk("x", "d", "u", 0)}, nil)
	assert.ErrorIs(t, err, vectorstore.ErrLengthMismatch)

	_, err = s.Upsert(ctx, []chunking.Chunk{chunk("x", "d", "u", 0)}, [][]float32{{1, 2}})
	assert.ErrorIs(t, err, vectorstore.ErrDimensionMismatch)
}

func TestStore_DeleteByDocument(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	require.NoError(t, s.DeleteByDocument(ctx, "doc-a"))
	assert.Equal(t, 2, s.Len())

	hits, err := s.Search(ctx, []float32{1, 0, 0}, vectorstore.Filter{UserID: "alice"}, 5, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "doc-b", hits[0].Metadata.DocumentID)
}
