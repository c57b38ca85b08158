package eval

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/docquery/docquery/internal/llm"
)

const (
	MetricAnswerRelevancy  = "answer_relevancy"
	MetricFaithfulness     = "faithfulness"
	MetricContextPrecision = "context_precision"

	// NeutralScore stands in for a metric whose auxiliary call or parse
	// failed. Evaluation never blocks answer delivery.
	NeutralScore = 0.5
)

// Scores maps metric names to values in [0,1].
type Scores map[string]float64

type Evaluator struct {
	gateway      llm.Gateway
	defaultModel string
}

func NewEvaluator(gw llm.Gateway, defaultModel string) *Evaluator {
	return &Evaluator{gateway: gw, defaultModel: defaultModel}
}

// Evaluate scores an answer against its grounding context. It always
// computes answer_relevancy and faithfulness; context_precision only
// when a reference answer is supplied. One model call per metric,
// issued in order.
func (e *Evaluator) Evaluate(ctx context.Context, model, query, answer string, contexts []string, groundTruth string) Scores {
	if model == "" {
		model = e.defaultModel
	}

	contextStr := strings.Join(contexts, "\n---\n")

	scores := Scores{
		MetricAnswerRelevancy: e.score(ctx, model, relevancyPrompt(query, answer)),
		MetricFaithfulness:    e.score(ctx, model, faithfulnessPrompt(contextStr, answer)),
	}
	if groundTruth != "" {
		scores[MetricContextPrecision] = e.score(ctx, model, precisionPrompt(query, contextStr, groundTruth))
	}
	return scores
}

func (e *Evaluator) score(ctx context.Context, model, prompt string) float64 {
	resp, err := e.gateway.Chat(ctx, llm.ChatRequest{
		Model: model,
		Messages: []llm.Message{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		slog.Warn("evaluation call failed, using neutral score", "error", err)
		return NeutralScore
	}
	return parseScore(resp.Content)
}

var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// parseScore extracts the first numeric literal from the model output
// and clamps it to [0,1]; anything unparsable scores neutral.
func parseScore(content string) float64 {
	match := numberPattern.FindString(content)
	if match == "" {
		slog.Warn("no numeric score in evaluation response", "content", content)
		return NeutralScore
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return NeutralScore
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func relevancyPrompt(query, answer string) string {
	return fmt.Sprintf(`Rate how relevant the following answer is to the question.
A score of 1.00 means the answer fully addresses the question; 0.00 means it is off-topic.

Question: %s

Answer: %s

Respond with a single number between 0.00 and 1.00 (two decimals) and nothing else.`, query, answer)
}

func faithfulnessPrompt(contextStr, answer string) string {
	return fmt.Sprintf(`Rate how faithful the following answer is to the provided context.
A score of 1.00 means every claim is supported by the context; 0.00 means none are.

Context:
%s

Answer: %s

Respond with a single number between 0.00 and 1.00 (two decimals) and nothing else.`, contextStr, answer)
}

func precisionPrompt(query, contextStr, groundTruth string) string {
	return fmt.Sprintf(`Rate how useful the retrieved context is for answering the question, given the reference answer.
A score of 1.00 means the context contains what the reference answer needs; 0.00 means it is irrelevant.

Question: %s

Context:
%s

Reference answer: %s

Respond with a single number between 0.00 and 1.00 (two decimals) and nothing else.`, query, contextStr, groundTruth)
}
