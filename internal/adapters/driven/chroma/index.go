package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/anita-labs/anita-core/internal/core/domain"
	"github.com/anita-labs/anita-core/internal/core/ports/driven"
)

// Ensure Index implements VectorIndex
var _ driven.VectorIndex = (*Index)(nil)

// Config holds ChromaDB connection settings
type Config struct {
	BaseURL    string
	Collection string
	Timeout    time.Duration
}

// Index implements VectorIndex against a ChromaDB HTTP server. One Index
// maps to one collection; the collection is created on first use with
// cosine distance.
type Index struct {
	cfg    Config
	client *http.Client

	mu           sync.Mutex
	collectionID string
}

// NewIndex creates a new ChromaDB-backed index
func NewIndex(cfg Config) (*Index, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("chroma base URL is required")
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("chroma collection name is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Index{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}, nil
}

// Add upserts records into the collection
func (idx *Index) Add(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	collectionID, err := idx.ensureCollection(ctx)
	if err != nil {
		return err
	}

	ids := make([]string, len(records))
	embeddings := make([][]float32, len(records))
	metadatas := make([]map[string]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
		embeddings[i] = r.Embedding
		metadatas[i] = r.Metadata
	}

	body := map[string]interface{}{
		"ids":        ids,
		"embeddings": embeddings,
		"metadatas":  metadatas,
	}
	return idx.post(ctx, fmt.Sprintf("/api/v1/collections/%s/upsert", collectionID), body, nil)
}

// Delete removes every vector whose metadata matches the filter. A nil or
// empty filter clears the collection; a filter matching nothing is a no-op.
func (idx *Index) Delete(ctx context.Context, filter map[string]string) error {
	collectionID, err := idx.ensureCollection(ctx)
	if err != nil {
		return err
	}

	// Chroma rejects a delete carrying neither ids nor where, so clearing
	// the collection lists every ID first and deletes by that.
	if len(filter) == 0 {
		ids, err := idx.allIDs(ctx, collectionID)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		body := map[string]interface{}{"ids": ids}
		return idx.post(ctx, fmt.Sprintf("/api/v1/collections/%s/delete", collectionID), body, nil)
	}

	body := map[string]interface{}{"where": buildWhere(filter)}
	return idx.post(ctx, fmt.Sprintf("/api/v1/collections/%s/delete", collectionID), body, nil)
}

// allIDs lists every vector ID in the collection
func (idx *Index) allIDs(ctx context.Context, collectionID string) ([]string, error) {
	body := map[string]interface{}{"include": []string{}}
	var resp struct {
		IDs []string `json:"ids"`
	}
	if err := idx.post(ctx, fmt.Sprintf("/api/v1/collections/%s/get", collectionID), body, &resp); err != nil {
		return nil, err
	}
	return resp.IDs, nil
}

// queryResponse is Chroma's nested per-query result shape
type queryResponse struct {
	IDs       [][]string                 `json:"ids"`
	Distances [][]float64                `json:"distances"`
	Metadatas [][]map[string]interface{} `json:"metadatas"`
}

// Query returns up to k hits matching the filter, ascending by cosine
// distance.
func (idx *Index) Query(ctx context.Context, embedding []float32, k int, filter map[string]string) ([]domain.VectorHit, error) {
	collectionID, err := idx.ensureCollection(ctx)
	if err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"query_embeddings": [][]float32{embedding},
		"n_results":        k,
		"include":          []string{"metadatas", "distances"},
	}
	if where := buildWhere(filter); where != nil {
		body["where"] = where
	}

	var resp queryResponse
	if err := idx.post(ctx, fmt.Sprintf("/api/v1/collections/%s/query", collectionID), body, &resp); err != nil {
		return nil, err
	}
	if len(resp.IDs) == 0 {
		return nil, nil
	}

	hits := make([]domain.VectorHit, 0, len(resp.IDs[0]))
	for i, id := range resp.IDs[0] {
		hit := domain.VectorHit{ID: id, Metadata: make(map[string]string)}
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			hit.Distance = resp.Distances[0][i]
		}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			for key, v := range resp.Metadatas[0][i] {
				if s, ok := v.(string); ok {
					hit.Metadata[key] = s
				}
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// HealthCheck verifies the server is reachable
func (idx *Index) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", idx.cfg.BaseURL+"/api/v1/heartbeat", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := idx.client.Do(req)
	if err != nil {
		return fmt.Errorf("chroma unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("chroma heartbeat returned status %d", resp.StatusCode)
	}
	return nil
}

// Close releases the HTTP client's idle connections
func (idx *Index) Close() error {
	idx.client.CloseIdleConnections()
	return nil
}

// ensureCollection resolves and caches the collection ID, creating the
// collection with cosine distance if it does not exist.
func (idx *Index) ensureCollection(ctx context.Context) (string, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.collectionID != "" {
		return idx.collectionID, nil
	}

	body := map[string]interface{}{
		"name":          idx.cfg.Collection,
		"get_or_create": true,
		"metadata":      map[string]string{"hnsw:space": "cosine"},
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := idx.post(ctx, "/api/v1/collections", body, &resp); err != nil {
		return "", fmt.Errorf("ensure collection %s: %w", idx.cfg.Collection, err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("chroma returned no id for collection %s", idx.cfg.Collection)
	}

	idx.collectionID = resp.ID
	return idx.collectionID, nil
}

// buildWhere converts an equality filter into Chroma's where syntax: a bare
// clause for one key, $and for several. Nil means no filter.
func buildWhere(filter map[string]string) map[string]interface{} {
	if len(filter) == 0 {
		return nil
	}
	if len(filter) == 1 {
		for k, v := range filter {
			return map[string]interface{}{k: v}
		}
	}

	clauses := make([]map[string]interface{}, 0, len(filter))
	for k, v := range filter {
		clauses = append(clauses, map[string]interface{}{k: v})
	}
	return map[string]interface{}{"$and": clauses}
}

// post sends a JSON request and decodes the response into out when non-nil
func (idx *Index) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", idx.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := idx.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("chroma returned status %d: %s", resp.StatusCode, bytes.TrimSpace(respBody))
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}
