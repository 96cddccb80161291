// Package memory is a brute-force in-process index for development and tests.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"docuchat-be/pkg/chunking"
	"docuchat-be/pkg/vectorstore"

	"github.com/google/uuid"
)

type point struct {
	id     uuid.UUID
	vector []float32
	chunk  chunking.Chunk
}

type Store struct {
	mu         sync.RWMutex
	collection string
	dimension  int
	points     []point
}

var _ vectorstore.Index = (*Store)(nil)

func NewStore(opts vectorstore.Options) *Store {
	opts = opts.WithDefaults()
	return &Store{collection: opts.Collection, dimension: opts.Dimension}
}

func (s *Store) CollectionName() string { return s.collection }

func (s *Store) EnsureCollection(context.Context) error { return nil }

func (s *Store) Upsert(_ context.Context, chunks []chunking.Chunk, vectors [][]float32) (int, error) {
	if err := vectorstore.ValidateUpsert(chunks, vectors, s.dimension); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range chunks {
		s.points = append(s.points, point{
			id:     uuid.New(),
			vector: slices.Clone(vectors[i]),
			chunk:  chunks[i],
		})
	}
	return len(chunks), nil
}

func (s *Store) Search(_ context.Context, query []float32, filter vectorstore.Filter, limit int, threshold float64) ([]vectorstore.Hit, error) {
	limit, err := vectorstore.ValidateSearch(query, filter, limit, s.dimension)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]vectorstore.Hit, 0)
	for _, p := range s.points {
		if p.chunk.Metadata.UserID != filter.UserID {
			continue
		}
		if len(filter.DocumentIDs) > 0 && !slices.Contains(filter.DocumentIDs, p.chunk.Metadata.DocumentID) {
			continue
		}
		score := vectorstore.Cosine(query, p.vector)
		if score < threshold {
			continue
		}
		hits = append(hits, vectorstore.Hit{Text: p.chunk.Text, Metadata: p.chunk.Metadata, Score: score})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *Store) DeleteByDocument(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points = slices.DeleteFunc(s.points, func(p point) bool {
		return p.chunk.Metadata.DocumentID == documentID
	})
	return nil
}

// Len reports the number of stored points.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points)
}
