package vectorstore

import (
	"context"
	"encoding/json"

	"github.com/docquery/docquery/internal/models"
)

// RetrievedChunk is a chunk row joined with its document's file name and
// scored against a query embedding. Similarity is cosine, in [0,1] with
// 1 meaning identical direction.
type RetrievedChunk struct {
	ChunkID         string          `json:"chunk_id"`
	DocumentID      string          `json:"document_id"`
	UserID          string          `json:"user_id"`
	Content         string          `json:"content"`
	Metadata        json.RawMessage `json:"metadata"`
	FileName        string          `json:"file_name"`
	SimilarityScore float64         `json:"similarity_score"`
}

// Store owns the persisted document and chunk rows. The query pipeline
// only reads them, scoped by user id.
type Store interface {
	// CreateDocument appends a document row in status uploaded.
	CreateDocument(ctx context.Context, doc models.Document) error
	// IngestDocument marks the document processed and appends all chunk
	// rows in a single transaction, so a crash cannot leave a processed
	// document with missing chunks.
	IngestDocument(ctx context.Context, doc models.Document, chunks []models.Chunk) error
	// MarkFailed records an ingestion failure for the document.
	MarkFailed(ctx context.Context, documentID string) error
	// Nearest returns at most limit chunks owned by userID, ordered by
	// descending cosine similarity to the query embedding.
	Nearest(ctx context.Context, embedding []float32, userID string, limit int) ([]RetrievedChunk, error)
	// ListDocuments returns the user's documents, newest first.
	ListDocuments(ctx context.Context, userID string, limit, offset int) ([]models.Document, error)
	// GetDocument returns one document by its external id.
	GetDocument(ctx context.Context, userID, documentID string) (*models.Document, error)
	// AppendQueryLog records one query invocation.
	AppendQueryLog(ctx context.Context, log models.QueryLog) error
}
