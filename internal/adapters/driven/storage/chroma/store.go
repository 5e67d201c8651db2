// Package chroma provides a VectorStore backed by a Chroma server's REST API.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/meetsight/internal/adapters/driven/storage/vecmath"
	"github.com/custodia-labs/meetsight/internal/core/domain"
	"github.com/custodia-labs/meetsight/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Default configuration values.
const (
	DefaultURL        = "http://localhost:8001"
	DefaultCollection = "meetings"
	DefaultTimeout    = 30 * time.Second
)

// metaPosition is the Chroma metadata key holding the chunk position.
const metaPosition = "position"

// Config holds configuration for the Chroma store.
type Config struct {
	// URL is the Chroma server root (default: http://localhost:8001).
	URL string

	// Collection is created on first use with cosine space (default: meetings).
	Collection string

	// Dimensions is the expected embedding size. Zero skips the check.
	Dimensions int

	// Timeout bounds each request (default: 30s).
	Timeout time.Duration
}

// Store implements driven.VectorStore against Chroma.
type Store struct {
	client     *http.Client
	baseURL    string
	collection string
	dimensions int

	mu           sync.Mutex
	collectionID string
}

// New creates a Chroma store. The collection is resolved lazily.
func New(cfg Config) *Store {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Store{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.URL, "/") + "/api/v1",
		collection: cfg.Collection,
		dimensions: cfg.Dimensions,
	}
}

type collectionRequest struct {
	Name        string            `json:"name"`
	GetOrCreate bool              `json:"get_or_create"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type collectionResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type upsertRequest struct {
	IDs        []string         `json:"ids"`
	Embeddings [][]float32      `json:"embeddings"`
	Documents  []string         `json:"documents"`
	Metadatas  []map[string]any `json:"metadatas"`
}

type queryRequest struct {
	QueryEmbeddings [][]float32       `json:"query_embeddings"`
	NResults        int               `json:"n_results"`
	Where           map[string]string `json:"where"`
	Include         []string          `json:"include"`
}

type queryResponse struct {
	IDs        [][]string         `json:"ids"`
	Documents  [][]string         `json:"documents"`
	Metadatas  [][]map[string]any `json:"metadatas"`
	Distances  [][]float64        `json:"distances"`
	Embeddings [][][]float32      `json:"embeddings"`
}

type getRequest struct {
	Where   map[string]string `json:"where,omitempty"`
	Include []string          `json:"include"`
}

type getResponse struct {
	IDs []string `json:"ids"`
}

type deleteRequest struct {
	Where map[string]string `json:"where"`
}

// resolveCollection returns the collection id, creating the collection
// on first use. Failures are not cached.
func (s *Store) resolveCollection(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collectionID != "" {
		return s.collectionID, nil
	}

	var resp collectionResponse
	err := s.do(ctx, http.MethodPost, "/collections", collectionRequest{
		Name:        s.collection,
		GetOrCreate: true,
		Metadata:    map[string]string{"hnsw:space": "cosine"},
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("get or create collection %s: %w", s.collection, err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("%w: chroma returned no collection id", domain.ErrStore)
	}
	s.collectionID = resp.ID
	return s.collectionID, nil
}

func (s *Store) collectionPath(ctx context.Context, op string) (string, error) {
	id, err := s.resolveCollection(ctx)
	if err != nil {
		return "", err
	}
	return "/collections/" + url.PathEscape(id) + "/" + op, nil
}

// Upsert sends all chunks in a single request.
func (s *Store) Upsert(ctx context.Context, chunks ...domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	req := upsertRequest{
		IDs:        make([]string, len(chunks)),
		Embeddings: make([][]float32, len(chunks)),
		Documents:  make([]string, len(chunks)),
		Metadatas:  make([]map[string]any, len(chunks)),
	}
	for i, c := range chunks {
		if c.ID == "" {
			return fmt.Errorf("%w: chunk id is required", domain.ErrStore)
		}
		if err := vecmath.CheckDimensions(c.Embedding, s.dimensions); err != nil {
			return fmt.Errorf("chunk %s: %w", c.ID, err)
		}
		meta := make(map[string]any, len(c.Metadata)+1)
		for k, v := range c.Metadata {
			meta[k] = v
		}
		meta[domain.MetaMeetingID] = string(c.MeetingID)
		meta[metaPosition] = c.Position

		req.IDs[i] = c.ID
		req.Embeddings[i] = c.Embedding
		req.Documents[i] = c.Text
		req.Metadatas[i] = meta
	}

	path, err := s.collectionPath(ctx, "upsert")
	if err != nil {
		return err
	}
	return s.do(ctx, http.MethodPost, path, req, nil)
}

// Query runs a meeting-filtered nearest-neighbour search.
func (s *Store) Query(
	ctx context.Context, embedding []float32, topK int, filter domain.Filter,
) ([]domain.ScoredChunk, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if err := vecmath.CheckDimensions(embedding, s.dimensions); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	if topK <= 0 {
		topK = domain.DefaultTopK
	}

	path, err := s.collectionPath(ctx, "query")
	if err != nil {
		return nil, err
	}

	var resp queryResponse
	err = s.do(ctx, http.MethodPost, path, queryRequest{
		QueryEmbeddings: [][]float32{embedding},
		NResults:        topK,
		Where:           map[string]string{domain.MetaMeetingID: string(filter.MeetingID)},
		Include:         []string{"documents", "metadatas", "distances", "embeddings"},
	}, &resp)
	if err != nil {
		return nil, err
	}

	hits := []domain.ScoredChunk{}
	if len(resp.IDs) == 0 {
		return hits, nil
	}
	ids := resp.IDs[0]
	for i, id := range ids {
		c := domain.Chunk{ID: id, Metadata: map[string]string{}}
		if len(resp.Documents) > 0 && i < len(resp.Documents[0]) {
			c.Text = resp.Documents[0][i]
		}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			for k, v := range resp.Metadatas[0][i] {
				switch val := v.(type) {
				case string:
					c.Metadata[k] = val
				case float64:
					if k == metaPosition {
						c.Position = int(val)
					}
				}
			}
		}
		if len(resp.Embeddings) > 0 && i < len(resp.Embeddings[0]) {
			c.Embedding = resp.Embeddings[0][i]
		}
		c.MeetingID = domain.MeetingID(c.Metadata[domain.MetaMeetingID])
		if !filter.Matches(c.Metadata) {
			continue
		}

		var distance float64
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			distance = resp.Distances[0][i]
		}
		hits = append(hits, domain.ScoredChunk{Chunk: c, Distance: distance})
	}
	return hits, nil
}

// DeleteMeeting removes every chunk of a meeting.
func (s *Store) DeleteMeeting(ctx context.Context, meetingID domain.MeetingID) error {
	path, err := s.collectionPath(ctx, "delete")
	if err != nil {
		return err
	}
	return s.do(ctx, http.MethodPost, path, deleteRequest{
		Where: map[string]string{domain.MetaMeetingID: string(meetingID)},
	}, nil)
}

// Count returns the number of chunks for the filtered meeting, or all
// chunks when the filter is empty.
func (s *Store) Count(ctx context.Context, filter domain.Filter) (int, error) {
	if filter.MeetingID == "" {
		path, err := s.collectionPath(ctx, "count")
		if err != nil {
			return 0, err
		}
		var n int
		if err := s.do(ctx, http.MethodGet, path, nil, &n); err != nil {
			return 0, err
		}
		return n, nil
	}

	path, err := s.collectionPath(ctx, "get")
	if err != nil {
		return 0, err
	}
	var resp getResponse
	err = s.do(ctx, http.MethodPost, path, getRequest{
		Where:   map[string]string{domain.MetaMeetingID: string(filter.MeetingID)},
		Include: []string{},
	}, &resp)
	if err != nil {
		return 0, err
	}
	return len(resp.IDs), nil
}

// Ping calls the heartbeat endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.do(ctx, http.MethodGet, "/heartbeat", nil, nil)
}

// Close releases resources.
func (s *Store) Close() error {
	return nil
}

// do sends a JSON request and decodes a JSON response into out when non-nil.
func (s *Store) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %w: chroma %s: %w", domain.ErrStore, domain.ErrUnavailable, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512)) //nolint:errcheck
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("%w: %w: chroma %s (status %d): %s",
				domain.ErrStore, domain.ErrUnavailable, path, resp.StatusCode, strings.TrimSpace(string(msg)))
		}
		return fmt.Errorf("%w: chroma %s (status %d): %s", domain.ErrStore, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: chroma %s: decode response: %w", domain.ErrStore, path, err)
	}
	return nil
}
