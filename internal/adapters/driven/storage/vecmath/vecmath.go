// Package vecmath holds the vector helpers shared by stores that rank
// candidates in Go rather than in the backend.
package vecmath

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/custodia-labs/meetsight/internal/core/domain"
)

// CosineDistance returns 1 - cosine similarity. A zero vector is treated
// as maximally distant.
func CosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

// TopK orders hits by ascending distance, breaking ties by chunk id so
// results are stable, and keeps the first k.
func TopK(hits []domain.ScoredChunk, k int) []domain.ScoredChunk {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Chunk.ID < hits[j].Chunk.ID
	})
	if k >= 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// CheckDimensions validates a vector against the store's dimensionality.
// want <= 0 accepts any non-empty vector.
func CheckDimensions(got []float32, want int) error {
	if len(got) == 0 {
		return fmt.Errorf("%w: empty embedding", domain.ErrStore)
	}
	if want > 0 && len(got) != want {
		return fmt.Errorf("%w: embedding has %d dimensions, store expects %d", domain.ErrStore, len(got), want)
	}
	return nil
}

// Encode packs a vector as little-endian float32 bytes.
func Encode(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Decode unpacks bytes written by Encode.
func Decode(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(data))
	}
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return v, nil
}
