package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docquery/docquery/internal/config"
	"github.com/docquery/docquery/internal/embedding"
	"github.com/docquery/docquery/internal/eval"
	"github.com/docquery/docquery/internal/llm"
	"github.com/docquery/docquery/internal/models"
	"github.com/docquery/docquery/internal/vectorstore"
)

const testDim = 8

type fakeGateway struct {
	llm.Gateway
	chatFn  func(req llm.ChatRequest) (*llm.ChatResponse, error)
	embedFn func(req llm.EmbeddingRequest) (*llm.EmbeddingResponse, error)
	chats   []llm.ChatRequest
}

func (f *fakeGateway) Chat(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	f.chats = append(f.chats, req)
	return f.chatFn(req)
}

func (f *fakeGateway) Embed(_ context.Context, req llm.EmbeddingRequest) (*llm.EmbeddingResponse, error) {
	return f.embedFn(req)
}

type nearestCall struct {
	userID string
	limit  int
}

type fakeStore struct {
	vectorstore.Store
	chunks     []vectorstore.RetrievedChunk
	nearestErr error
	nearest    []nearestCall
	logs       []models.QueryLog
}

func (f *fakeStore) Nearest(_ context.Context, _ []float32, userID string, limit int) ([]vectorstore.RetrievedChunk, error) {
	f.nearest = append(f.nearest, nearestCall{userID: userID, limit: limit})
	if f.nearestErr != nil {
		return nil, f.nearestErr
	}
	return f.chunks, nil
}

func (f *fakeStore) AppendQueryLog(_ context.Context, log models.QueryLog) error {
	f.logs = append(f.logs, log)
	return nil
}

type fakeScorer struct {
	calls  int
	scores eval.Scores
}

func (f *fakeScorer) Evaluate(_ context.Context, _, _, _ string, _ []string, _ string) eval.Scores {
	f.calls++
	return f.scores
}

func happyGateway(answer string) *fakeGateway {
	return &fakeGateway{
		chatFn: func(req llm.ChatRequest) (*llm.ChatResponse, error) {
			return &llm.ChatResponse{Content: answer, Model: req.Model}, nil
		},
		embedFn: func(req llm.EmbeddingRequest) (*llm.EmbeddingResponse, error) {
			vec := make([]float32, testDim)
			vec[0] = 1
			return &llm.EmbeddingResponse{Embeddings: [][]float32{vec}}, nil
		},
	}
}

func newTestPipeline(gw *fakeGateway, store *fakeStore, scorer Scorer) Pipeline {
	embedder := embedding.NewService(gw, "test-embed", testDim)
	retriever := NewRetriever(store, embedder)
	generator := NewGenerator(gw, config.GenerationConfig{Temperature: 0.2, TopP: 0.95, TopK: 40, MaxOutputTokens: 1024}, "test-model")
	return NewPipeline(retriever, generator, scorer, store)
}

func someChunks() []vectorstore.RetrievedChunk {
	return []vectorstore.RetrievedChunk{
		{ChunkID: "c1", DocumentID: "d1", UserID: "u1", Content: "alpha facts", FileName: "a.txt", SimilarityScore: 0.91},
		{ChunkID: "c2", DocumentID: "d1", UserID: "u1", Content: "beta facts", FileName: "a.txt", SimilarityScore: 0.84},
	}
}

func TestQueryReturnsGroundedAnswer(t *testing.T) {
	gw := happyGateway("the answer")
	store := &fakeStore{chunks: someChunks()}
	scorer := &fakeScorer{}
	p := newTestPipeline(gw, store, scorer)

	resp, err := p.Query(context.Background(), QueryRequest{Query: "what is alpha?", UserID: "u1"})

	require.NoError(t, err)
	assert.Equal(t, "the answer", resp.Response)
	assert.Equal(t, 2, resp.Count)
	assert.Len(t, resp.Results, 2)
	assert.False(t, resp.Degraded)
	assert.Nil(t, resp.Evaluation)

	// The prompt carries each retrieved chunk and its file name.
	require.Len(t, gw.chats, 1)
	prompt := gw.chats[0].Messages[0].Content
	assert.Contains(t, prompt, "Document: a.txt")
	assert.Contains(t, prompt, "alpha facts")
	assert.Contains(t, prompt, "Question: what is alpha?")

	// No scoring without the flag.
	assert.Zero(t, scorer.calls)
}

func TestQueryRequiresQuery(t *testing.T) {
	p := newTestPipeline(happyGateway("x"), &fakeStore{}, &fakeScorer{})

	_, err := p.Query(context.Background(), QueryRequest{UserID: "u1"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "query is required")
}

func TestQueryScopesRetrievalToUser(t *testing.T) {
	store := &fakeStore{chunks: someChunks()}
	p := newTestPipeline(happyGateway("x"), store, &fakeScorer{})

	_, err := p.Query(context.Background(), QueryRequest{Query: "q", UserID: "tenant-a"})
	require.NoError(t, err)

	require.Len(t, store.nearest, 1)
	assert.Equal(t, "tenant-a", store.nearest[0].userID)
	assert.Equal(t, defaultTopK, store.nearest[0].limit)
}

func TestQueryDefaultsUserToSystem(t *testing.T) {
	store := &fakeStore{}
	p := newTestPipeline(happyGateway("x"), store, &fakeScorer{})

	_, err := p.Query(context.Background(), QueryRequest{Query: "q"})
	require.NoError(t, err)

	require.Len(t, store.nearest, 1)
	assert.Equal(t, "system", store.nearest[0].userID)
}

func TestQueryDegradesWhenEmbeddingFails(t *testing.T) {
	gw := happyGateway("unused")
	gw.embedFn = func(req llm.EmbeddingRequest) (*llm.EmbeddingResponse, error) {
		return nil, errors.New("embedder down")
	}
	store := &fakeStore{chunks: someChunks()}
	p := newTestPipeline(gw, store, &fakeScorer{})

	resp, err := p.Query(context.Background(), QueryRequest{Query: "q", UserID: "u1"})

	require.NoError(t, err)
	assert.True(t, resp.Degraded)
	assert.Contains(t, resp.DegradedReason, "query embedding failed")
	assert.Empty(t, resp.Results)
	assert.Zero(t, resp.Count)
	// A degraded embedding never reaches the index.
	assert.Empty(t, store.nearest)
}

func TestQuerySubstitutesApologyWhenGenerationFails(t *testing.T) {
	gw := happyGateway("unused")
	gw.chatFn = func(req llm.ChatRequest) (*llm.ChatResponse, error) {
		return nil, errors.New("model down")
	}
	store := &fakeStore{chunks: someChunks()}
	p := newTestPipeline(gw, store, &fakeScorer{})

	resp, err := p.Query(context.Background(), QueryRequest{Query: "q", UserID: "u1"})

	require.NoError(t, err)
	assert.Equal(t, apologyAnswer, resp.Response)
	assert.True(t, resp.Degraded)
	assert.Contains(t, resp.DegradedReason, "generation failed")
	// Retrieval results are still returned alongside the fallback.
	assert.Equal(t, 2, resp.Count)
}

func TestQueryStoreFailurePropagates(t *testing.T) {
	store := &fakeStore{nearestErr: errors.New("connection refused")}
	p := newTestPipeline(happyGateway("x"), store, &fakeScorer{})

	_, err := p.Query(context.Background(), QueryRequest{Query: "q", UserID: "u1"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestQueryEvaluationOnlyWhenEnabled(t *testing.T) {
	store := &fakeStore{chunks: someChunks()}
	scorer := &fakeScorer{scores: eval.Scores{eval.MetricAnswerRelevancy: 0.9}}
	p := newTestPipeline(happyGateway("x"), store, scorer)

	resp, err := p.Query(context.Background(), QueryRequest{Query: "q", UserID: "u1", EnableEvaluation: true})
	require.NoError(t, err)

	assert.Equal(t, 1, scorer.calls)
	assert.Equal(t, 0.9, resp.Evaluation[eval.MetricAnswerRelevancy])
}

func TestQueryAppendsQueryLog(t *testing.T) {
	store := &fakeStore{chunks: someChunks()}
	p := newTestPipeline(happyGateway("the answer"), store, &fakeScorer{})

	_, err := p.Query(context.Background(), QueryRequest{Query: "q", UserID: "u1"})
	require.NoError(t, err)

	require.Len(t, store.logs, 1)
	log := store.logs[0]
	assert.Equal(t, "u1", log.UserID)
	assert.Equal(t, "q", log.Query)
	assert.Equal(t, "the answer", log.Response)
	assert.Equal(t, 2, log.NumChunks)
	assert.False(t, log.Degraded)
}
