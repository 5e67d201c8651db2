package normalisers

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/meetsight/internal/core/ports/driven"
	"github.com/custodia-labs/meetsight/internal/normalisers/docx"
	"github.com/custodia-labs/meetsight/internal/normalisers/markdown"
	"github.com/custodia-labs/meetsight/internal/normalisers/plaintext"
	"github.com/custodia-labs/meetsight/internal/normalisers/subtitle"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry dispatches transcript files to normalisers by extension.
type Registry struct {
	mu       sync.RWMutex
	byExt    map[string]driven.Normaliser
	fallback driven.Normaliser
}

// NewRegistry creates a registry holding ns. Files with an unregistered
// extension go to the plain text normaliser.
func NewRegistry(ns ...driven.Normaliser) *Registry {
	r := &Registry{
		byExt:    make(map[string]driven.Normaliser),
		fallback: plaintext.New(),
	}
	for _, n := range ns {
		r.Register(n)
	}
	return r
}

// Default returns a registry with every built-in normaliser.
func Default() *Registry {
	return NewRegistry(
		plaintext.New(),
		markdown.New(),
		docx.New(),
		subtitle.New(),
	)
}

// Register adds n for each of its extensions.
func (r *Registry) Register(n driven.Normaliser) {
	if n == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range n.Extensions() {
		r.byExt[strings.ToLower(ext)] = n
	}
}

// Normalise converts raw with the normaliser for filename.
func (r *Registry) Normalise(ctx context.Context, filename string, raw []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	r.mu.RLock()
	n, ok := r.byExt[ext]
	r.mu.RUnlock()
	if !ok {
		n = r.fallback
	}
	return n.Normalise(ctx, raw)
}

// Extensions returns the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
