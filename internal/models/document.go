package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Document struct {
	ID         uuid.UUID `json:"id" db:"id"`
	DocumentID string    `json:"document_id" db:"document_id"`
	UserID     string    `json:"user_id" db:"user_id"`
	FileName   string    `json:"file_name" db:"file_name"`
	MimeType   string    `json:"mime_type" db:"mime_type"`
	Status     string    `json:"status" db:"status"`
	Bucket     string    `json:"bucket" db:"bucket"`
	Key        string    `json:"key" db:"key"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

type Chunk struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	ChunkID    string          `json:"chunk_id" db:"chunk_id"`
	DocumentID string          `json:"document_id" db:"document_id"`
	UserID     string          `json:"user_id" db:"user_id"`
	Content    string          `json:"content" db:"content"`
	Metadata   json.RawMessage `json:"metadata" db:"metadata"`
	Embedding  []float32       `json:"-" db:"embedding"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

type QueryLog struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Query     string    `json:"query" db:"query"`
	Response  string    `json:"response" db:"response"`
	Model     string    `json:"model" db:"model"`
	NumChunks int       `json:"num_chunks" db:"num_chunks"`
	Degraded  bool      `json:"degraded" db:"degraded"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

const (
	DocStatusUploaded  = "uploaded"
	DocStatusProcessed = "processed"
	DocStatusFailed    = "failed"
)
