// Package qdrant is a minimal REST client for a Qdrant collection using cosine
// distance. Chunk payloads are stored as {text, metadata}.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"docuchat-be/internal/pkg/logger"
	"docuchat-be/pkg/chunking"
	"docuchat-be/pkg/vectorstore"

	"github.com/google/uuid"
)

const (
	keyUserID     = "metadata.user_id"
	keyDocumentID = "metadata.document_id"
)

type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

type Store struct {
	url           string
	apiKey        string
	collection    string
	dimension     int
	allowRecreate bool
	client        *http.Client
	logger        logger.ILogger
	ensure        vectorstore.Lazy
}

var _ vectorstore.Index = (*Store)(nil)

func NewStore(cfg Config, opts vectorstore.Options, log logger.ILogger) *Store {
	opts = opts.WithDefaults()
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Store{
		url:           strings.TrimRight(cfg.URL, "/"),
		apiKey:        cfg.APIKey,
		collection:    opts.Collection,
		dimension:     opts.Dimension,
		allowRecreate: opts.AllowRecreate,
		client:        &http.Client{Timeout: timeout},
		logger:        log,
	}
}

func (s *Store) CollectionName() string { return s.collection }

type payload struct {
	Text     string            `json:"text"`
	Metadata chunking.Metadata `json:"metadata"`
}

type pointStruct struct {
	ID      string    `json:"id"`
	Vector  []float32 `json:"vector"`
	Payload payload   `json:"payload"`
}

type match struct {
	Value string   `json:"value,omitempty"`
	Any   []string `json:"any,omitempty"`
}

type condition struct {
	Key   string `json:"key"`
	Match match  `json:"match"`
}

type filter struct {
	Must []condition `json:"must"`
}

type collectionInfo struct {
	Result struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	} `json:"result"`
}

func (s *Store) EnsureCollection(ctx context.Context) error {
	return s.ensure.Do(func() error { return s.ensureCollection(ctx) })
}

func (s *Store) ensureCollection(ctx context.Context) error {
	var info collectionInfo
	status, err := s.do(ctx, http.MethodGet, s.collectionURL(""), nil, &info)
	if status == http.StatusNotFound {
		return s.createCollection(ctx)
	}
	if err != nil {
		return err
	}

	vectors := info.Result.Config.Params.Vectors
	distance := strings.ToLower(vectors.Distance)
	if vectors.Size == s.dimension && distance == vectorstore.DistanceCosine {
		return nil
	}

	schemaErr := &vectorstore.SchemaError{
		Collection:    s.collection,
		WantDimension: s.dimension,
		GotDimension:  vectors.Size,
		WantDistance:  vectorstore.DistanceCosine,
		GotDistance:   distance,
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
		"old_dimension": vectors.Size,
		"old_distance":  distance,
		"new_dimension": s.dimension,
	})
	if _, err := s.do(ctx, http.MethodDelete, s.collectionURL(""), nil, nil); err != nil {
		return err
	}
	return s.createCollection(ctx)
}

func (s *Store) createCollection(ctx context.Context) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     s.dimension,
			"distance": "Cosine",
		},
	}
	if _, err := s.do(ctx, http.MethodPut, s.collectionURL(""), body, nil); err != nil {
		return err
	}
	for _, field := range []string{keyUserID, keyDocumentID} {
		index := map[string]any{"field_name": field, "field_schema": "keyword"}
		if _, err := s.do(ctx, http.MethodPut, s.collectionURL("/index?wait=true"), index, nil); err != nil {
			return err
		}
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

	points := make([]pointStruct, len(chunks))
	for i, c := range chunks {
		points[i] = pointStruct{
			ID:      uuid.NewString(),
			Vector:  vectors[i],
			Payload: payload{Text: c.Text, Metadata: c.Metadata},
		}
	}
	if _, err := s.do(ctx, http.MethodPut, s.collectionURL("/points?wait=true"), map[string]any{"points": points}, nil); err != nil {
		return 0, err
	}
	return len(points), nil
}

func (s *Store) Search(ctx context.Context, query []float32, f vectorstore.Filter, limit int, threshold float64) ([]vectorstore.Hit, error) {
	limit, err := vectorstore.ValidateSearch(query, f, limit, s.dimension)
	if err != nil {
		return nil, err
	}
	if err := s.EnsureCollection(ctx); err != nil {
		return nil, err
	}

	must := []condition{{Key: keyUserID, Match: match{Value: f.UserID}}}
	if len(f.DocumentIDs) > 0 {
		must = append(must, condition{Key: keyDocumentID, Match: match{Any: f.DocumentIDs}})
	}
	req := map[string]any{
		"vector":          query,
		"limit":           limit,
		"with_payload":    true,
		"score_threshold": threshold,
		"filter":          filter{Must: must},
	}

	var resp struct {
		Result []struct {
			Score   float64 `json:"score"`
			Payload payload `json:"payload"`
		} `json:"result"`
	}
	if _, err := s.do(ctx, http.MethodPost, s.collectionURL("/points/search"), req, &resp); err != nil {
		return nil, err
	}

	hits := make([]vectorstore.Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		if r.Score < threshold {
			continue
		}
		hits = append(hits, vectorstore.Hit{Text: r.Payload.Text, Metadata: r.Payload.Metadata, Score: r.Score})
	}
	return hits, nil
}

func (s *Store) DeleteByDocument(ctx context.Context, documentID string) error {
	if err := s.EnsureCollection(ctx); err != nil {
		return err
	}
	body := map[string]any{
		"filter": filter{Must: []condition{{Key: keyDocumentID, Match: match{Value: documentID}}}},
	}
	_, err := s.do(ctx, http.MethodPost, s.collectionURL("/points/delete?wait=true"), body, nil)
	return err
}

func (s *Store) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", s.url, s.collection, suffix)
}

// do sends a JSON request and decodes the response into out when non-nil.
// The status code is returned even when err is set.
func (s *Store) do(ctx context.Context, method, url string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", vectorstore.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, fmt.Errorf("qdrant %s %s failed: %s: %s", method, url, resp.Status, strings.TrimSpace(string(msg)))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}
