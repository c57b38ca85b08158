package queue

const TypeDocumentIngest = "document:ingest"

// DocumentIngestPayload mirrors the storage-creation event that
// triggers ingestion. Key is conventionally
// uploads/{user_id}/{document_id}/{file_name}.
type DocumentIngestPayload struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}
