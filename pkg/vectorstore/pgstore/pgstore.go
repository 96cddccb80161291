// Package pgstore stores chunk embeddings in Postgres using the pgvector
// extension with an HNSW cosine index.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"docuchat-be/internal/model"
	"docuchat-be/internal/pkg/logger"
	"docuchat-be/pkg/chunking"
	"docuchat-be/pkg/vectorstore"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var collectionName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,50}$`)

type Store struct {
	db            *gorm.DB
	logger        logger.ILogger
	collection    string
	table         string
	dimension     int
	allowRecreate bool
	ensure        vectorstore.Lazy
}

var _ vectorstore.Index = (*Store)(nil)

func NewStore(db *gorm.DB, opts vectorstore.Options, log logger.ILogger) (*Store, error) {
	opts = opts.WithDefaults()
	if !collectionName.MatchString(opts.Collection) {
		return nil, fmt.Errorf("invalid collection name %q", opts.Collection)
	}
	if opts.Dimension <= 0 {
		return nil, errors.New("invalid dimension")
	}
	return &Store{
		db:            db,
		logger:        log,
		collection:    opts.Collection,
		table:         opts.Collection + "_chunks",
		dimension:     opts.Dimension,
		allowRecreate: opts.AllowRecreate,
	}, nil
}

func (s *Store) CollectionName() string { return s.collection }

func (s *Store) EnsureCollection(ctx context.Context) error {
	return s.ensure.Do(func() error { return s.ensureCollection(ctx) })
}

func (s *Store) ensureCollection(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("%w: %v", vectorstore.ErrUnavailable, err)
	}
	if err := db.AutoMigrate(&model.VectorCollection{}); err != nil {
		return fmt.Errorf("%w: %v", vectorstore.ErrUnavailable, err)
	}

	var existing model.VectorCollection
	err := db.Where("name = ?", s.collection).Take(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return s.createCollection(db)
	case err != nil:
		return fmt.Errorf("%w: %v", vectorstore.ErrUnavailable, err)
	}

	if existing.Dimension == s.dimension && existing.Distance == vectorstore.DistanceCosine {
		return nil
	}

	schemaErr := &vectorstore.SchemaError{
		Collection:    s.collection,
		WantDimension: s.dimension,
		GotDimension:  existing.Dimension,
		WantDistance:  vectorstore.DistanceCosine,
		GotDistance:   existing.Distance,
	}
	if !s.allowRecreate {
		s.logger.Error(logger.ModuleVector, "Vector collection schema mismatch", map[string]interface{}{
			"collection": s.collection,
			"error":      schemaErr.Error(),
		})
		return schemaErr
	}

	s.logger.Warn(logger.ModuleVector, "Recreating vector collection, all indexed chunks are dropped", map[string]interface{}{
		"collection":    s.collection,
		"old_dimension": existing.Dimension,
		"old_distance":  existing.Distance,
		"new_dimension": s.dimension,
	})
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", s.table)).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.VectorCollection{}, "name = ?", s.collection).Error; err != nil {
			return err
		}
		return s.createCollection(tx)
	})
}

func (s *Store) createCollection(db *gorm.DB) error {
	ddl := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id uuid PRIMARY KEY,
			document_id varchar(64) NOT NULL,
			user_id varchar(64) NOT NULL,
			text text NOT NULL,
			metadata jsonb,
			embedding vector(%d) NOT NULL,
			created_at timestamptz
		)`, s.table, s.dimension),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_user ON %s (user_id)", s.table, s.table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_document ON %s (document_id)", s.table, s.table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_embedding ON %s USING hnsw (embedding vector_cosine_ops)", s.table, s.table),
	}
	for _, stmt := range ddl {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("%w: %v", vectorstore.ErrUnavailable, err)
		}
	}
	if err := db.Create(&model.VectorCollection{
		Name:      s.collection,
		Dimension: s.dimension,
		Distance:  vectorstore.DistanceCosine,
	}).Error; err != nil {
		return err
	}
	s.logger.Info(logger.ModuleVector, "Vector collection created", map[string]interface{}{
		"collection": s.collection,
		"dimension":  s.dimension,
	})
	return nil
}

func (s *Store) Upsert(ctx context.Context, chunks []chunking.Chunk, vectors [][]float32) (int, error) {
	if err := vectorstore.ValidateUpsert(chunks, vectors, s.dimension); err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, nil
	}
	if err := s.EnsureCollection(ctx); err != nil {
		return 0, err
	}

	rows := make([]model.DocumentChunk, len(chunks))
	for i, c := range chunks {
		meta, err := json.Marshal(c.Metadata)
		if err != nil {
			return 0, err
		}
		rows[i] = model.DocumentChunk{
			Id:         uuid.New(),
			DocumentId: c.Metadata.DocumentID,
			UserId:     c.Metadata.UserID,
			Text:       c.Text,
			Metadata:   datatypes.JSON(meta),
			Embedding:  pgvector.NewVector(vectors[i]),
		}
	}

	if err := s.db.WithContext(ctx).Table(s.table).CreateInBatches(rows, 100).Error; err != nil {
		return 0, fmt.Errorf("upsert into %s: %w", s.collection, err)
	}
	return len(rows), nil
}

type scoredRow struct {
	Text     string
	Metadata datatypes.JSON
	Score    float64
}

// Search ranks by cosine distance. Similarity is reported as 1 - distance.
func (s *Store) Search(ctx context.Context, query []float32, filter vectorstore.Filter, limit int, threshold float64) ([]vectorstore.Hit, error) {
	limit, err := vectorstore.ValidateSearch(query, filter, limit, s.dimension)
	if err != nil {
		return nil, err
	}
	if err := s.EnsureCollection(ctx); err != nil {
		return nil, err
	}

	queryVector := pgvector.NewVector(query)
	q := s.db.WithContext(ctx).
		Table(s.table).
		Select("text, metadata, 1 - (embedding <=> ?) AS score", queryVector).
		Where("user_id = ?", filter.UserID)
	if len(filter.DocumentIDs) > 0 {
		q = q.Where("document_id IN ?", filter.DocumentIDs)
	}

	var rows []scoredRow
	// a stored zero vector scores NaN, which postgres orders above every number
	err = q.Where("(embedding <=> ?) <> 'NaN'::float8", queryVector).
		Where("1 - (embedding <=> ?) >= ?", queryVector, threshold).
		Order(gorm.Expr("embedding <=> ?", queryVector)).
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", s.collection, err)
	}

	hits := make([]vectorstore.Hit, 0, len(rows))
	for _, r := range rows {
		var meta chunking.Metadata
		if err := json.Unmarshal(r.Metadata, &meta); err != nil {
			return nil, err
		}
		hits = append(hits, vectorstore.Hit{Text: r.Text, Metadata: meta, Score: r.Score})
	}
	return hits, nil
}

func (s *Store) DeleteByDocument(ctx context.Context, documentID string) error {
	if err := s.EnsureCollection(ctx); err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Table(s.table).
		Where("document_id = ?", documentID).
		Delete(&model.DocumentChunk{}).Error
}
