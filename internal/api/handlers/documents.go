package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/docquery/docquery/internal/ingest"
	"github.com/docquery/docquery/internal/models"
	"github.com/docquery/docquery/internal/queue"
	"github.com/docquery/docquery/internal/storage"
	"github.com/docquery/docquery/internal/vectorstore"
)

type DocumentHandler struct {
	store   vectorstore.Store
	objects storage.Storage
	queue   *queue.Client
	bucket  string
}

func NewDocumentHandler(store vectorstore.Store, objects storage.Storage, qc *queue.Client, bucket string) *DocumentHandler {
	return &DocumentHandler{store: store, objects: objects, queue: qc, bucket: bucket}
}

type uploadRequest struct {
	FileName      string `json:"file_name"`
	ContentBase64 string `json:"content_base64"`
	MimeType      string `json:"mime_type,omitempty"`
	UserID        string `json:"user_id,omitempty"`
	DocumentID    string `json:"document_id,omitempty"`
}

// Upload stores the file under uploads/{user_id}/{document_id}/{file_name}
// and queues it for ingestion.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.FileName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file_name required"})
		return
	}
	if req.ContentBase64 == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "content_base64 required"})
		return
	}

	data, err := base64.StdEncoding.DecodeString(req.ContentBase64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "content_base64 is not valid base64"})
		return
	}

	if req.UserID == "" {
		req.UserID = "system"
	}
	if req.DocumentID == "" {
		req.DocumentID = uuid.New().String()
	}
	if req.MimeType == "" {
		req.MimeType = ingest.MimeTypeFor(req.FileName)
	}

	key := fmt.Sprintf("uploads/%s/%s/%s", req.UserID, req.DocumentID, req.FileName)

	if err := h.objects.Upload(r.Context(), h.bucket, key, bytes.NewReader(data), req.MimeType); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "upload failed: " + err.Error()})
		return
	}

	doc := models.Document{
		DocumentID: req.DocumentID,
		UserID:     req.UserID,
		FileName:   req.FileName,
		MimeType:   req.MimeType,
		Status:     models.DocStatusUploaded,
		Bucket:     h.bucket,
		Key:        key,
	}
	if err := h.store.CreateDocument(r.Context(), doc); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if err := h.queue.EnqueueDocumentIngest(queue.DocumentIngestPayload{Bucket: h.bucket, Key: key}); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "enqueue failed: " + err.Error()})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"document_id": req.DocumentID,
		"user_id":     req.UserID,
		"key":         key,
		"status":      models.DocStatusUploaded,
	})
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = "system"
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = 20
	}

	docs, err := h.store.ListDocuments(r.Context(), userID, limit, offset)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"documents": docs, "count": len(docs)})
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = "system"
	}

	doc, err := h.store.GetDocument(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, vectorstore.ErrDocumentNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "document not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = "system"
	}

	doc, err := h.store.GetDocument(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, vectorstore.ErrDocumentNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "document not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"document_id": doc.DocumentID, "status": doc.Status})
}
