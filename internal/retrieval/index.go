// Package retrieval implements the Semantic Retriever: chunking, a
// persistent vector index backed by sqlite-vec, a bounded background
// upsert queue, and similarity search that never fails its caller.
package retrieval

import "context"

// Match is one vector-index search hit.
type Match struct {
	ID       string
	Document string
	Distance float64
}

// VectorIndex is a persistent store of (id, document, embedding, metadata)
// rows supporting upsert and cosine-distance k-NN query. Grounded on the
// vec_index virtual table usage in internal/store/vector_store.go.
type VectorIndex interface {
	Upsert(ctx context.Context, id, document string, vector []float32, metadata map[string]string) error
	Query(ctx context.Context, vector []float32, k int) ([]Match, error)
}

// EmbeddingClient embeds text into vectors.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}
