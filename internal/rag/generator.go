package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/docquery/docquery/internal/config"
	"github.com/docquery/docquery/internal/llm"
	"github.com/docquery/docquery/internal/vectorstore"
)

// apologyAnswer substitutes a failed generation call. Callers see it as
// a valid answer; the Degraded flag is what tells them apart.
const apologyAnswer = "Sorry, I couldn't generate a response. Please try again later."

type Generator struct {
	gateway      llm.Gateway
	gen          config.GenerationConfig
	defaultModel string
}

func NewGenerator(gw llm.Gateway, gen config.GenerationConfig, defaultModel string) *Generator {
	return &Generator{gateway: gw, gen: gen, defaultModel: defaultModel}
}

// GenerationResult is the generated answer plus the exact context it
// was grounded on and the model that produced it.
type GenerationResult struct {
	Answer   string
	Context  []vectorstore.RetrievedChunk
	Model    string
	Degraded bool
	Reason   string
}

// Generate builds the grounding prompt from the retrieved chunks and
// calls the generation model with the configured decoding bounds.
func (g *Generator) Generate(ctx context.Context, model, query string, contexts []vectorstore.RetrievedChunk) GenerationResult {
	if model == "" {
		model = g.defaultModel
	}

	resp, err := g.gateway.Chat(ctx, llm.ChatRequest{
		Model: model,
		Messages: []llm.Message{
			{Role: "user", Content: buildPrompt(query, contexts)},
		},
		Temperature: g.gen.Temperature,
		TopP:        g.gen.TopP,
		TopK:        g.gen.TopK,
		MaxTokens:   g.gen.MaxOutputTokens,
		JSONOutput:  true,
	})
	if err != nil {
		slog.Error("generation call failed, substituting apology", "model", model, "error", err)
		return GenerationResult{
			Answer:   apologyAnswer,
			Context:  contexts,
			Model:    model,
			Degraded: true,
			Reason:   err.Error(),
		}
	}

	return GenerationResult{
		Answer:  resp.Content,
		Context: contexts,
		Model:   model,
	}
}

func buildPrompt(query string, contexts []vectorstore.RetrievedChunk) string {
	blocks := make([]string, len(contexts))
	for i, c := range contexts {
		blocks[i] = fmt.Sprintf("Document: %s\nContent: %s", c.FileName, c.Content)
	}
	contextStr := strings.Join(blocks, "\n\n")

	return fmt.Sprintf(`Answer the following question based on the provided context.
If the answer is not in the context, say "I don't have enough information."

Context:
%s

Question: %s

Answer:`, contextStr, query)
}
