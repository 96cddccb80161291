// Package vectorstore defines the similarity index that chunk embeddings are
// written to and searched from. All tenants share one collection; every read
// and delete is scoped by a filter.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"docuchat-be/pkg/chunking"
)

const (
	DefaultLimit    = 5
	DistanceCosine  = "cosine"
	DefaultCollName = "documents"
)

var (
	ErrMissingTenant     = errors.New("vector search requires a user filter")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrLengthMismatch    = errors.New("chunks and vectors length mismatch")
	ErrSchemaMismatch    = errors.New("vector collection schema mismatch")
	ErrUnavailable       = errors.New("vector index unavailable")
	// ErrZeroVector marks a query without direction; cosine similarity is
	// undefined for it.
	ErrZeroVector = errors.New("query vector has zero magnitude")
)

// Filter scopes a search. UserID is mandatory. DocumentIDs, when non-empty,
// restricts results to those documents.
type Filter struct {
	UserID      string
	DocumentIDs []string
}

type Hit struct {
	Text     string            `json:"text"`
	Metadata chunking.Metadata `json:"metadata"`
	Score    float64           `json:"score"`
}

type Index interface {
	// EnsureCollection creates the collection when absent and verifies its
	// schema otherwise. Upsert and Search call it lazily.
	EnsureCollection(ctx context.Context) error
	Upsert(ctx context.Context, chunks []chunking.Chunk, vectors [][]float32) (int, error)
	Search(ctx context.Context, query []float32, filter Filter, limit int, threshold float64) ([]Hit, error)
	DeleteByDocument(ctx context.Context, documentID string) error
	CollectionName() string
}

// Options are shared by every backend.
type Options struct {
	Collection    string
	Dimension     int
	AllowRecreate bool
}

func (o Options) WithDefaults() Options {
	if o.Collection == "" {
		o.Collection = DefaultCollName
	}
	return o
}

// SchemaError describes an existing collection that does not match the
// configured schema. It unwraps to ErrSchemaMismatch.
type SchemaError struct {
	Collection    string
	WantDimension int
	GotDimension  int
	WantDistance  string
	GotDistance   string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("collection %q has dimension %d / distance %s, configured %d / %s; rerun with explicit recreation to migrate",
		e.Collection, e.GotDimension, e.GotDistance, e.WantDimension, e.WantDistance)
}

func (e *SchemaError) Unwrap() error { return ErrSchemaMismatch }

// ValidateUpsert checks the positional pairing of chunks and vectors.
func ValidateUpsert(chunks []chunking.Chunk, vectors [][]float32, dim int) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks, %d vectors", ErrLengthMismatch, len(chunks), len(vectors))
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has %d values, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
	}
	return nil
}

// ValidateSearch enforces the tenant filter, query width and a non-zero query
// and returns the effective limit.
func ValidateSearch(query []float32, filter Filter, limit, dim int) (int, error) {
	if filter.UserID == "" {
		return 0, ErrMissingTenant
	}
	if len(query) != dim {
		return 0, fmt.Errorf("%w: query has %d values, want %d", ErrDimensionMismatch, len(query), dim)
	}
	if isZero(query) {
		return 0, ErrZeroVector
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return limit, nil
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Cosine returns the cosine similarity of a and b, 0 when either is zero.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Lazy runs an initialisation function until it succeeds once.
type Lazy struct {
	mu   sync.Mutex
	done bool
}

func (l *Lazy) Do(fn func() error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done {
		return nil
	}
	if err := fn(); err != nil {
		return err
	}
	l.done = true
	return nil
}

// Reset forces the next Do to run again.
func (l *Lazy) Reset() {
	l.mu.Lock()
	l.done = false
	l.mu.Unlock()
}
