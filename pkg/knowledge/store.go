// Package knowledge is the process-scoped knowledge base behind the
// encyclopedia search tool: markdown chunks, their embeddings and a vector
// store to search them.
package knowledge

import (
	"context"
	"math"
)

// Chunk is one embedded line of source text.
type Chunk struct {
	ID      string    `json:"id"`
	ChunkID int       `json:"chunk_id"`
	Text    string    `json:"text"`
	Vector  []float32 `json:"embedding"`
}

// Match is a search hit.
type Match struct {
	Text    string  `json:"text"`
	ChunkID int     `json:"chunk_id"`
	Score   float64 `json:"score"`
}

// Store persists chunks and searches them by vector similarity.
type Store interface {
	// Open prepares the store and loads previously indexed chunks, if any.
	Open(ctx context.Context) error
	// Reset drops every chunk and prepares the store for vectors of size dim.
	Reset(ctx context.Context, dim int) error
	Upsert(ctx context.Context, chunks []Chunk) error
	// Search returns at most limit matches, best first.
	Search(ctx context.Context, vector []float32, limit int) ([]Match, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// Embedder converts text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbedderFunc adapts a function to Embedder.
type EmbedderFunc func(ctx context.Context, text string) ([]float32, error)

// Embed implements Embedder.
func (f EmbedderFunc) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

// Cosine returns the cosine similarity of a and b, or 0 when either vector has
// zero norm or the sizes differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
