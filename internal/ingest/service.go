package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/google/uuid"

	"github.com/docquery/docquery/internal/embedding"
	"github.com/docquery/docquery/internal/models"
	"github.com/docquery/docquery/internal/storage"
	"github.com/docquery/docquery/internal/vectorstore"
	"github.com/docquery/docquery/pkg/chunker"
)

// Request identifies one uploaded object to ingest.
type Request struct {
	Bucket     string
	Key        string
	DocumentID string
	UserID     string
	MimeType   string
}

// Service turns an uploaded document into indexed, embedded chunks:
// resolve the real key, download, extract text, chunk, embed, persist.
type Service struct {
	resolver  *KeyResolver
	store     storage.Storage
	embedder  *embedding.Service
	vectors   vectorstore.Store
	chunker   chunker.Chunker
	chunkOpts chunker.ChunkOptions
}

func NewService(store storage.Storage, embedder *embedding.Service, vectors vectorstore.Store, opts chunker.ChunkOptions) *Service {
	if opts.ChunkSize <= 0 {
		opts = chunker.DefaultOptions()
	}
	return &Service{
		resolver:  NewKeyResolver(store),
		store:     store,
		embedder:  embedder,
		vectors:   vectors,
		chunker:   chunker.New(),
		chunkOpts: opts,
	}
}

// Ingest processes one document end to end and returns the number of
// chunks written and their ids. Any failure aborts the whole run: the
// document is marked failed and no chunk becomes visible, because the
// document row and all chunk rows commit in one transaction.
func (s *Service) Ingest(ctx context.Context, req Request) (int, []string, error) {
	key, err := s.resolver.Resolve(ctx, req.Bucket, req.Key)
	if err != nil {
		return 0, nil, s.fail(ctx, req.DocumentID, fmt.Errorf("resolve key: %w", err))
	}

	body, err := s.store.Download(ctx, req.Bucket, key)
	if err != nil {
		return 0, nil, s.fail(ctx, req.DocumentID, fmt.Errorf("download object: %w", err))
	}
	data, err := io.ReadAll(body)
	body.Close()
	if err != nil {
		return 0, nil, s.fail(ctx, req.DocumentID, fmt.Errorf("read object: %w", err))
	}

	pages, err := LoaderFor(req.MimeType).Load(data)
	if err != nil {
		return 0, nil, s.fail(ctx, req.DocumentID, fmt.Errorf("load document: %w", err))
	}

	var chunks []models.Chunk
	var chunkIDs []string
	for _, page := range pages {
		for _, tc := range s.chunker.Chunk(page.Content, s.chunkOpts) {
			// Embeddings are computed one at a time, in chunk order. A
			// degraded embedding would permanently pollute the index
			// with a zero vector, so it aborts the document instead.
			res := s.embedder.EmbedQuery(ctx, tc.Content)
			if res.Degraded {
				return 0, nil, s.fail(ctx, req.DocumentID,
					fmt.Errorf("embed chunk %d: %s", tc.Index, res.Reason))
			}

			metadata, err := json.Marshal(map[string]any{
				"source": key,
				"page":   page.Page,
			})
			if err != nil {
				return 0, nil, s.fail(ctx, req.DocumentID, fmt.Errorf("marshal chunk metadata: %w", err))
			}

			chunkID := uuid.NewString()
			chunkIDs = append(chunkIDs, chunkID)
			chunks = append(chunks, models.Chunk{
				ChunkID:    chunkID,
				DocumentID: req.DocumentID,
				UserID:     req.UserID,
				Content:    tc.Content,
				Metadata:   metadata,
				Embedding:  res.Vector,
			})
		}
	}

	doc := models.Document{
		DocumentID: req.DocumentID,
		UserID:     req.UserID,
		FileName:   path.Base(key),
		MimeType:   req.MimeType,
		Bucket:     req.Bucket,
		Key:        key,
	}
	if err := s.vectors.IngestDocument(ctx, doc, chunks); err != nil {
		return 0, nil, s.fail(ctx, req.DocumentID, fmt.Errorf("persist document: %w", err))
	}

	slog.Info("document ingested",
		"document_id", req.DocumentID,
		"user_id", req.UserID,
		"chunks", len(chunks),
	)
	return len(chunks), chunkIDs, nil
}

// fail marks the document failed, best effort, and passes the cause on.
func (s *Service) fail(ctx context.Context, documentID string, cause error) error {
	if err := s.vectors.MarkFailed(ctx, documentID); err != nil {
		slog.Error("could not mark document failed", "document_id", documentID, "error", err)
	}
	return cause
}
