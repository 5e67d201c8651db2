package chroma

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/meetsight/internal/adapters/driven/storage/vecmath"
	"github.com/custodia-labs/meetsight/internal/core/domain"
)

// fakeChroma is a minimal in-memory Chroma REST server.
type fakeChroma struct {
	mu          sync.Mutex
	created     int
	space       string
	records     map[string]record
	lastQuery   queryRequest
	failUpserts bool
}

type record struct {
	embedding []float32
	document  string
	metadata  map[string]any
}

func newFakeChroma(t *testing.T) (*fakeChroma, *httptest.Server) {
	t.Helper()
	f := &fakeChroma{records: make(map[string]record)}
	server := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(server.Close)
	return f, server
}

func (f *fakeChroma) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/api/v1")
	switch {
	case path == "/heartbeat":
		_ = json.NewEncoder(w).Encode(map[string]int64{"nanosecond heartbeat": 1})
	case path == "/collections" && r.Method == http.MethodPost:
		var req collectionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.created++
		f.space = req.Metadata["hnsw:space"]
		_ = json.NewEncoder(w).Encode(collectionResponse{ID: "col-1", Name: req.Name})
	case path == "/collections/col-1/upsert":
		if f.failUpserts {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var req upsertRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		for i, id := range req.IDs {
			f.records[id] = record{embedding: req.Embeddings[i], document: req.Documents[i], metadata: req.Metadatas[i]}
		}
		_, _ = w.Write([]byte("true"))
	case path == "/collections/col-1/query":
		var req queryRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.lastQuery = req
		type hit struct {
			id   string
			dist float64
		}
		var hits []hit
		for id, rec := range f.records {
			if !matches(rec.metadata, req.Where) {
				continue
			}
			hits = append(hits, hit{id, vecmath.CosineDistance(req.QueryEmbeddings[0], rec.embedding)})
		}
		sort.Slice(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })
		if len(hits) > req.NResults {
			hits = hits[:req.NResults]
		}
		resp := queryResponse{
			IDs: [][]string{{}}, Documents: [][]string{{}}, Metadatas: [][]map[string]any{{}},
			Distances: [][]float64{{}}, Embeddings: [][][]float32{{}},
		}
		for _, h := range hits {
			rec := f.records[h.id]
			resp.IDs[0] = append(resp.IDs[0], h.id)
			resp.Documents[0] = append(resp.Documents[0], rec.document)
			resp.Metadatas[0] = append(resp.Metadatas[0], rec.metadata)
			resp.Distances[0] = append(resp.Distances[0], h.dist)
			resp.Embeddings[0] = append(resp.Embeddings[0], rec.embedding)
		}
		_ = json.NewEncoder(w).Encode(resp)
	case path == "/collections/col-1/delete":
		var req deleteRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		for id, rec := range f.records {
			if matches(rec.metadata, req.Where) {
				delete(f.records, id)
			}
		}
		_, _ = w.Write([]byte("[]"))
	case path == "/collections/col-1/count":
		_ = json.NewEncoder(w).Encode(len(f.records))
	case path == "/collections/col-1/get":
		var req getRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		resp := getResponse{IDs: []string{}}
		for id, rec := range f.records {
			if matches(rec.metadata, req.Where) {
				resp.IDs = append(resp.IDs, id)
			}
		}
		_ = json.NewEncoder(w).Encode(resp)
	default:
		http.NotFound(w, r)
	}
}

func matches(meta map[string]any, where map[string]string) bool {
	for k, v := range where {
		if meta[k] != v {
			return false
		}
	}
	return true
}

func testChunk(meetingID domain.MeetingID, n int, text string, embedding ...float32) domain.Chunk {
	return domain.Chunk{
		ID:        domain.ChunkID(meetingID, n),
		MeetingID: meetingID,
		Text:      text,
		Position:  n,
		Embedding: embedding,
		Metadata:  map[string]string{domain.MetaMeetingID: string(meetingID)},
	}
}

func TestStore_UpsertQueryDelete(t *testing.T) {
	fake, server := newFakeChroma(t)
	s := New(Config{URL: server.URL, Dimensions: 2})
	ctx := context.Background()

	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Upsert(ctx,
		testChunk("a", 0, "east", 1, 0),
		testChunk("a", 1, "north", 0, 1),
		testChunk("b", 0, "other meeting", 1, 0),
	))

	hits, err := s.Query(ctx, []float32{1, 0.1}, 5, domain.Filter{MeetingID: "a"})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "east", hits[0].Chunk.Text)
	assert.Equal(t, "a:0", hits[0].Chunk.ID)
	assert.Equal(t, domain.MeetingID("a"), hits[0].Chunk.MeetingID)
	assert.Equal(t, 1, hits[1].Chunk.Position)
	assert.Equal(t, []float32{1, 0}, hits[0].Chunk.Embedding)
	assert.Equal(t, map[string]string{domain.MetaMeetingID: "a"}, fake.lastQuery.Where)
	assert.Equal(t, 5, fake.lastQuery.NResults)

	n, err := s.Count(ctx, domain.Filter{MeetingID: "a"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.DeleteMeeting(ctx, "a"))
	n, err = s.Count(ctx, domain.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, 1, fake.created, "collection is resolved once")
	assert.Equal(t, "cosine", fake.space)
}

func TestStore_QueryUnknownMeeting(t *testing.T) {
	_, server := newFakeChroma(t)
	s := New(Config{URL: server.URL})
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, testChunk("a", 0, "east", 1, 0)))

	hits, err := s.Query(ctx, []float32{1, 0}, 3, domain.Filter{MeetingID: "missing"})

	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func TestStore_Validation(t *testing.T) {
	_, server := newFakeChroma(t)
	s := New(Config{URL: server.URL, Dimensions: 3})
	ctx := context.Background()

	_, err := s.Query(ctx, []float32{1, 0, 0}, 3, domain.Filter{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = s.Upsert(ctx, testChunk("a", 0, "x", 1, 0))
	assert.ErrorIs(t, err, domain.ErrStore)

	_, err = s.Query(ctx, []float32{1, 0}, 3, domain.Filter{MeetingID: "a"})
	assert.ErrorIs(t, err, domain.ErrStore)
}

func TestStore_ServerErrorsAreTransient(t *testing.T) {
	fake, server := newFakeChroma(t)
	fake.failUpserts = true
	s := New(Config{URL: server.URL})

	err := s.Upsert(context.Background(), testChunk("a", 0, "x", 1, 0))

	assert.ErrorIs(t, err, domain.ErrStore)
	assert.True(t, domain.IsTransient(err))
}

func TestStore_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()
	s := New(Config{URL: url})

	err := s.Ping(context.Background())

	assert.ErrorIs(t, err, domain.ErrStore)
	assert.True(t, domain.IsTransient(err))
}
