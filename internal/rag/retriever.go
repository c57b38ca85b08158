package rag

import (
	"context"
	"fmt"

	"github.com/docquery/docquery/internal/embedding"
	"github.com/docquery/docquery/internal/vectorstore"
)

const defaultTopK = 5

type Retriever struct {
	store    vectorstore.Store
	embedder *embedding.Service
}

func NewRetriever(store vectorstore.Store, embedder *embedding.Service) *Retriever {
	return &Retriever{store: store, embedder: embedder}
}

// RetrievalResult carries the ranked chunks for a query. Degraded is
// set when the query embedding failed; the chunk list is then empty
// rather than ranked against a zero vector.
type RetrievalResult struct {
	Chunks   []vectorstore.RetrievedChunk
	Degraded bool
	Reason   string
}

// Retrieve embeds the query and asks the store for the user's top
// chunks. An empty result is valid; a store failure propagates.
func (r *Retriever) Retrieve(ctx context.Context, query, userID string, limit int) (RetrievalResult, error) {
	if limit <= 0 {
		limit = defaultTopK
	}

	embedded := r.embedder.EmbedQuery(ctx, query)
	if embedded.Degraded {
		return RetrievalResult{Degraded: true, Reason: embedded.Reason}, nil
	}

	chunks, err := r.store.Nearest(ctx, embedded.Vector, userID, limit)
	if err != nil {
		return RetrievalResult{}, fmt.Errorf("nearest neighbors: %w", err)
	}
	return RetrievalResult{Chunks: chunks}, nil
}
