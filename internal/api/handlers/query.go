package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/docquery/docquery/internal/rag"
)

type QueryHandler struct {
	pipeline rag.Pipeline
}

func NewQueryHandler(p rag.Pipeline) *QueryHandler {
	return &QueryHandler{pipeline: p}
}

// queryEnvelope is the query request plus the action field used by
// monitoring probes.
type queryEnvelope struct {
	Action string `json:"action,omitempty"`
	rag.QueryRequest
}

func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req queryEnvelope
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	// Probes post {"action":"healthcheck"} and must not touch the
	// model or the index.
	if req.Action == "healthcheck" {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": "query-processor",
		})
		return
	}

	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query required"})
		return
	}

	resp, err := h.pipeline.Query(r.Context(), req.QueryRequest)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
