package vectorstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/docquery/docquery/internal/models"
)

// ErrDocumentNotFound is returned by GetDocument for an unknown id.
var ErrDocumentNotFound = errors.New("document not found")

const defaultLimit = 5

type PgVectorStore struct {
	db *pgxpool.Pool
}

func NewPgVectorStore(db *pgxpool.Pool) *PgVectorStore {
	return &PgVectorStore{db: db}
}

func (s *PgVectorStore) CreateDocument(ctx context.Context, doc models.Document) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO documents (document_id, user_id, file_name, mime_type, status, bucket, key)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		doc.DocumentID, doc.UserID, doc.FileName, doc.MimeType, models.DocStatusUploaded, doc.Bucket, doc.Key,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *PgVectorStore) IngestDocument(ctx context.Context, doc models.Document, chunks []models.Chunk) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Flip the uploaded row if it exists, otherwise append one; either
	// way the processed row and its chunks land in the same transaction.
	tag, err := tx.Exec(ctx,
		`UPDATE documents SET status = $1, key = $2, updated_at = now() WHERE document_id = $3`,
		models.DocStatusProcessed, doc.Key, doc.DocumentID,
	)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		_, err = tx.Exec(ctx,
			`INSERT INTO documents (document_id, user_id, file_name, mime_type, status, bucket, key)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			doc.DocumentID, doc.UserID, doc.FileName, doc.MimeType, models.DocStatusProcessed, doc.Bucket, doc.Key,
		)
		if err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
	}

	for i, c := range chunks {
		_, err := tx.Exec(ctx,
			`INSERT INTO chunks (chunk_id, document_id, user_id, content, metadata, embedding)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			c.ChunkID, c.DocumentID, c.UserID, c.Content, c.Metadata, pgvector.NewVector(c.Embedding),
		)
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}

	return tx.Commit(ctx)
}

func (s *PgVectorStore) MarkFailed(ctx context.Context, documentID string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE documents SET status = $1, updated_at = now() WHERE document_id = $2`,
		models.DocStatusFailed, documentID,
	)
	if err != nil {
		return fmt.Errorf("mark document failed: %w", err)
	}
	return nil
}

func (s *PgVectorStore) Nearest(ctx context.Context, embedding []float32, userID string, limit int) ([]RetrievedChunk, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	vec := pgvector.NewVector(embedding)

	rows, err := s.db.Query(ctx,
		`SELECT c.chunk_id, c.document_id, c.user_id, c.content, c.metadata, d.file_name,
		        1 - (c.embedding <=> $1) AS similarity_score
		 FROM chunks c
		 JOIN documents d ON c.document_id = d.document_id
		 WHERE c.user_id = $2
		 ORDER BY c.embedding <=> $1
		 LIMIT $3`,
		vec, userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	var results []RetrievedChunk
	for rows.Next() {
		var r RetrievedChunk
		if err := rows.Scan(&r.ChunkID, &r.DocumentID, &r.UserID, &r.Content, &r.Metadata, &r.FileName, &r.SimilarityScore); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return results, nil
}

func (s *PgVectorStore) ListDocuments(ctx context.Context, userID string, limit, offset int) ([]models.Document, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, document_id, user_id, file_name, mime_type, status, bucket, key, created_at, updated_at
		 FROM documents WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.DocumentID, &d.UserID, &d.FileName, &d.MimeType, &d.Status, &d.Bucket, &d.Key, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *PgVectorStore) GetDocument(ctx context.Context, userID, documentID string) (*models.Document, error) {
	var d models.Document
	err := s.db.QueryRow(ctx,
		`SELECT id, document_id, user_id, file_name, mime_type, status, bucket, key, created_at, updated_at
		 FROM documents WHERE document_id = $1 AND user_id = $2`,
		documentID, userID,
	).Scan(&d.ID, &d.DocumentID, &d.UserID, &d.FileName, &d.MimeType, &d.Status, &d.Bucket, &d.Key, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &d, nil
}

func (s *PgVectorStore) AppendQueryLog(ctx context.Context, log models.QueryLog) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO query_logs (user_id, query, response, model, num_chunks, degraded)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		log.UserID, log.Query, log.Response, log.Model, log.NumChunks, log.Degraded,
	)
	if err != nil {
		return fmt.Errorf("append query log: %w", err)
	}
	return nil
}
