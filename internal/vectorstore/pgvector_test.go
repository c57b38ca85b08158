package vectorstore

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docquery/docquery/internal/database"
	"github.com/docquery/docquery/internal/models"
)

const embedDim = 768

// axisVec is zero everywhere except dimension i.
func axisVec(i int) []float32 {
	v := make([]float32, embedDim)
	v[i] = 1
	return v
}

// mixVec points halfway between dimensions 0 and 1, cosine ~0.707
// against axisVec(0).
func mixVec() []float32 {
	v := make([]float32, embedDim)
	v[0] = 1
	v[1] = 1
	return v
}

func integrationStore(t *testing.T) (*PgVectorStore, *pgxpool.Pool) {
	t.Helper()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set; skipping pgvector integration test")
	}

	ctx := context.Background()
	cfg, err := pgxpool.ParseConfig(url)
	require.NoError(t, err)
	// Probe every ivfflat list so recall is exact on small fixtures.
	cfg.ConnConfig.RuntimeParams["ivfflat.probes"] = "100"
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, database.RunMigrations(ctx, pool, "../../migrations"))

	return NewPgVectorStore(pool), pool
}

func seedDocument(t *testing.T, store *PgVectorStore, userID, documentID, fileName string, embeddings ...[]float32) {
	t.Helper()

	doc := models.Document{
		DocumentID: documentID,
		UserID:     userID,
		FileName:   fileName,
		MimeType:   "text/plain",
		Bucket:     "docs",
		Key:        "uploads/" + userID + "/" + documentID + "/" + fileName,
	}

	chunks := make([]models.Chunk, len(embeddings))
	for i, e := range embeddings {
		chunks[i] = models.Chunk{
			ChunkID:    uuid.NewString(),
			DocumentID: documentID,
			UserID:     userID,
			Content:    "chunk of " + fileName,
			Metadata:   []byte(`{"source":"` + fileName + `"}`),
			Embedding:  e,
		}
	}

	require.NoError(t, store.IngestDocument(context.Background(), doc, chunks))
}

func TestNearestAgainstPgvector(t *testing.T) {
	store, pool := integrationStore(t)
	ctx := context.Background()

	// Unique tenants per run so parallel CI runs cannot collide.
	tenantA := "it-a-" + uuid.NewString()
	tenantB := "it-b-" + uuid.NewString()
	t.Cleanup(func() {
		for _, u := range []string{tenantA, tenantB} {
			pool.Exec(ctx, "DELETE FROM chunks WHERE user_id = $1", u)
			pool.Exec(ctx, "DELETE FROM documents WHERE user_id = $1", u)
		}
	})

	seedDocument(t, store, tenantA, uuid.NewString(), "a.txt", axisVec(0), mixVec(), axisVec(1))
	// Same direction as the query, but owned by another tenant: it would
	// rank first if scoping leaked.
	seedDocument(t, store, tenantB, uuid.NewString(), "b.txt", axisVec(0))

	results, err := store.Nearest(ctx, axisVec(0), tenantA, 5)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for _, r := range results {
		assert.Equal(t, tenantA, r.UserID)
		assert.Equal(t, "a.txt", r.FileName)
	}

	// Descending cosine similarity: exact match, halfway, orthogonal.
	assert.InDelta(t, 1.0, results[0].SimilarityScore, 1e-4)
	assert.InDelta(t, 0.7071, results[1].SimilarityScore, 1e-3)
	assert.InDelta(t, 0.0, results[2].SimilarityScore, 1e-4)
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i].SimilarityScore, results[i-1].SimilarityScore)
	}
}

func TestNearestHonorsLimit(t *testing.T) {
	store, pool := integrationStore(t)
	ctx := context.Background()

	tenant := "it-limit-" + uuid.NewString()
	t.Cleanup(func() {
		pool.Exec(ctx, "DELETE FROM chunks WHERE user_id = $1", tenant)
		pool.Exec(ctx, "DELETE FROM documents WHERE user_id = $1", tenant)
	})

	seedDocument(t, store, tenant, uuid.NewString(), "c.txt",
		axisVec(0), axisVec(1), axisVec(2), axisVec(3))

	results, err := store.Nearest(ctx, axisVec(0), tenant, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.InDelta(t, 1.0, results[0].SimilarityScore, 1e-4)
}
