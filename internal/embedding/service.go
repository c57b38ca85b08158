package embedding

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docquery/docquery/internal/llm"
)

// Result is a single embedding outcome. Degraded marks the zero-vector
// fallback substituted after a failed model call; the vector is still
// usable for drop-in behavior, but callers can now tell it apart from a
// genuine low-magnitude embedding.
type Result struct {
	Vector   []float32
	Degraded bool
	Reason   string
}

type Service struct {
	gateway   llm.Gateway
	model     string
	dimension int
}

func NewService(gw llm.Gateway, model string, dimension int) *Service {
	if model == "" {
		model = "text-embedding-3-small"
	}
	if dimension <= 0 {
		dimension = 768
	}
	return &Service{gateway: gw, model: model, dimension: dimension}
}

func (s *Service) Dimension() int { return s.dimension }

// EmbedQuery embeds a single text. A failed model call degrades to the
// zero vector instead of returning an error.
func (s *Service) EmbedQuery(ctx context.Context, text string) Result {
	resp, err := s.gateway.Embed(ctx, llm.EmbeddingRequest{
		Model: s.model,
		Input: []string{text},
	})
	if err != nil {
		slog.Error("embedding call failed, substituting zero vector", "error", err)
		return s.zeroResult(err.Error())
	}
	if len(resp.Embeddings) == 0 {
		slog.Error("embedding call returned no vectors")
		return s.zeroResult("empty embedding response")
	}
	vec := resp.Embeddings[0]
	if len(vec) != s.dimension {
		slog.Error("embedding has unexpected dimension",
			"got", len(vec),
			"want", s.dimension,
		)
		return s.zeroResult(fmt.Sprintf("dimension mismatch: got %d, want %d", len(vec), s.dimension))
	}
	return Result{Vector: vec}
}

// EmbedDocuments embeds each text independently, in order. Batching is
// a per-item loop so results match N single calls exactly.
func (s *Service) EmbedDocuments(ctx context.Context, texts []string) []Result {
	results := make([]Result, len(texts))
	for i, t := range texts {
		results[i] = s.EmbedQuery(ctx, t)
	}
	return results
}

func (s *Service) zeroResult(reason string) Result {
	return Result{
		Vector:   make([]float32, s.dimension),
		Degraded: true,
		Reason:   reason,
	}
}
