package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docquery/docquery/internal/eval"
	"github.com/docquery/docquery/internal/models"
	"github.com/docquery/docquery/internal/vectorstore"
)

// QueryRequest is the natural-language question plus its options.
type QueryRequest struct {
	Query            string `json:"query"`
	UserID           string `json:"user_id,omitempty"`
	ModelName        string `json:"model_name,omitempty"`
	EnableEvaluation bool   `json:"enable_evaluation,omitempty"`
	GroundTruth      string `json:"ground_truth,omitempty"`
}

// QueryResponse is the grounded answer with its supporting chunks.
// Degraded is set when the answer or the retrieval was a fallback
// rather than a genuine model result.
type QueryResponse struct {
	Query          string                       `json:"query"`
	Response       string                       `json:"response"`
	Results        []vectorstore.RetrievedChunk `json:"results"`
	Count          int                          `json:"count"`
	Evaluation     eval.Scores                  `json:"evaluation,omitempty"`
	Degraded       bool                         `json:"degraded,omitempty"`
	DegradedReason string                       `json:"degraded_reason,omitempty"`
}

// Scorer grades an answer against its grounding context.
type Scorer interface {
	Evaluate(ctx context.Context, model, query, answer string, contexts []string, groundTruth string) eval.Scores
}

type Pipeline interface {
	Query(ctx context.Context, req QueryRequest) (*QueryResponse, error)
}

type pipeline struct {
	retriever *Retriever
	generator *Generator
	scorer    Scorer
	store     vectorstore.Store
}

func NewPipeline(retriever *Retriever, generator *Generator, scorer Scorer, store vectorstore.Store) Pipeline {
	return &pipeline{
		retriever: retriever,
		generator: generator,
		scorer:    scorer,
		store:     store,
	}
}

// Query runs retrieve, generate, and optionally evaluate, then records
// the invocation in the query log.
func (p *pipeline) Query(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if req.UserID == "" {
		req.UserID = "system"
	}

	retrieval, err := p.retriever.Retrieve(ctx, req.Query, req.UserID, defaultTopK)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	gen := p.generator.Generate(ctx, req.ModelName, req.Query, retrieval.Chunks)

	resp := &QueryResponse{
		Query:    req.Query,
		Response: gen.Answer,
		Results:  retrieval.Chunks,
		Count:    len(retrieval.Chunks),
	}
	if resp.Results == nil {
		resp.Results = []vectorstore.RetrievedChunk{}
	}

	switch {
	case retrieval.Degraded:
		resp.Degraded = true
		resp.DegradedReason = "query embedding failed: " + retrieval.Reason
	case gen.Degraded:
		resp.Degraded = true
		resp.DegradedReason = "generation failed: " + gen.Reason
	}

	// No auxiliary scoring calls unless evaluation was asked for.
	if req.EnableEvaluation {
		contexts := make([]string, len(retrieval.Chunks))
		for i, c := range retrieval.Chunks {
			contexts[i] = c.Content
		}
		resp.Evaluation = p.scorer.Evaluate(ctx, req.ModelName, req.Query, gen.Answer, contexts, req.GroundTruth)
	}

	p.logQuery(ctx, req, resp, gen.Model)

	return resp, nil
}

func (p *pipeline) logQuery(ctx context.Context, req QueryRequest, resp *QueryResponse, model string) {
	err := p.store.AppendQueryLog(ctx, models.QueryLog{
		UserID:    req.UserID,
		Query:     req.Query,
		Response:  resp.Response,
		Model:     model,
		NumChunks: resp.Count,
		Degraded:  resp.Degraded,
	})
	if err != nil {
		slog.Error("query log append failed", "error", err)
	}
}
