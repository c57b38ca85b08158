package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/docquery/docquery/internal/ingest"
	"github.com/docquery/docquery/internal/queue"
)

// FallbackUserID owns documents whose storage key does not carry a
// user segment.
const FallbackUserID = "system"

type IngestWorker struct {
	svc *ingest.Service
}

func NewIngestWorker(svc *ingest.Service) *IngestWorker {
	return &IngestWorker{svc: svc}
}

func (w *IngestWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.DocumentIngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	req := RequestFromEvent(payload.Bucket, payload.Key)

	slog.Info("processing uploaded document",
		"bucket", req.Bucket,
		"key", req.Key,
		"document_id", req.DocumentID,
		"user_id", req.UserID,
	)

	count, _, err := w.svc.Ingest(ctx, req)
	if err != nil {
		slog.Error("ingestion failed", "document_id", req.DocumentID, "error", err)
		return fmt.Errorf("ingest %s: %w", req.DocumentID, err)
	}

	slog.Info("document processed", "document_id", req.DocumentID, "chunks", count)
	return nil
}

// RequestFromEvent derives an ingestion request from a storage event.
// Keys follow uploads/{user_id}/{document_id}/{file_name}; anything
// else falls back to the system user with the filename stem as the
// document id.
func RequestFromEvent(bucket, key string) ingest.Request {
	// Event keys arrive with inconsistent URL encoding.
	if decoded, err := url.QueryUnescape(key); err == nil && decoded != key {
		key = decoded
	}

	parts := strings.Split(key, "/")

	var userID, documentID, fileName string
	if len(parts) >= 4 {
		userID = parts[1]
		documentID = parts[2]
		fileName = parts[3]
	} else {
		fileName = parts[len(parts)-1]
		documentID = strings.TrimSuffix(fileName, pathExt(fileName))
		userID = FallbackUserID
	}

	return ingest.Request{
		Bucket:     bucket,
		Key:        key,
		DocumentID: documentID,
		UserID:     userID,
		MimeType:   ingest.MimeTypeFor(fileName),
	}
}

func pathExt(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return ""
	}
	return name[idx:]
}
